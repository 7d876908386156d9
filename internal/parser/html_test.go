package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/chaptermap/internal/block"
)

func TestHTMLParser_Blocks(t *testing.T) {
	input := `<html><head><title>ignored</title><style>p{}</style></head>
<body>
<nav>menu</nav>
<h1>半导体简史</h1>
<p>晶体管
  于 1947 年发明。</p>
<ul><li>点接触</li><li>结型</li></ul>
<blockquote>引用一句话</blockquote>
<pre>x := 1
y := 2</pre>
<h3>小节</h3>
<p>[component:Timeline](start:1947)</p>
</body></html>`

	p := &HTMLParser{Chapter: &ChapterParser{NewID: seqIDs()}}
	blocks, err := p.Parse(strings.NewReader(input), "ch.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertShape(t, blocks, []block.Type{
		block.Heading, block.Paragraph, block.List, block.Blockquote,
		block.Code, block.Heading, block.Component,
	})

	if blocks[0].Content != "半导体简史" || blocks[0].Level != 1 {
		t.Errorf("unexpected h1 %+v", blocks[0])
	}
	if blocks[1].Content != "晶体管 于 1947 年发明。" {
		t.Errorf("whitespace should collapse, got %q", blocks[1].Content)
	}
	if blocks[2].Content != "- 点接触\n\n- 结型" {
		t.Errorf("unexpected list %q", blocks[2].Content)
	}
	if blocks[3].Content != "> 引用一句话" {
		t.Errorf("unexpected quote %q", blocks[3].Content)
	}
	if blocks[4].Content != "```\nx := 1\ny := 2\n```" {
		t.Errorf("unexpected code %q", blocks[4].Content)
	}
	if blocks[5].Level != 3 {
		t.Errorf("expected h3, got level %d", blocks[5].Level)
	}
	if blocks[6].ComponentName != "Timeline" {
		t.Errorf("expected Timeline directive, got %q", blocks[6].ComponentName)
	}
}

func TestForFile(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"ch1.md", "*parser.ChapterParser", false},
		{"ch1.MDX", "*parser.ChapterParser", false},
		{"notes.txt", "*parser.ChapterParser", false},
		{"page.htm", "*parser.HTMLParser", false},
		{"book.pdf", "*parser.PDFParser", false},
		{"draft.docx", "*parser.DOCXParser", false},
		{"table.csv", "", true},
	}
	for _, tt := range tests {
		p, err := ForFile(tt.name, Options{})
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
			continue
		}
		if got := typeName(p); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, got)
		}
	}

	if p, _ := ForFile("x.pdf", Options{PDFFallbackPdftotext: true}); !p.(*PDFParser).FallbackPdftotext {
		t.Error("pdftotext fallback option not propagated")
	}
}

func typeName(p Parser) string {
	switch p.(type) {
	case *ChapterParser:
		return "*parser.ChapterParser"
	case *HTMLParser:
		return "*parser.HTMLParser"
	case *PDFParser:
		return "*parser.PDFParser"
	case *DOCXParser:
		return "*parser.DOCXParser"
	}
	return "unknown"
}

func TestIsSupportedExtension(t *testing.T) {
	if !IsSupportedExtension("a.MARKDOWN") {
		t.Error("expected .markdown to be supported")
	}
	if IsSupportedExtension("a.csv") {
		t.Error("csv should not be supported")
	}
}
