package parser

import (
	"io"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/dgallion1/chaptermap/internal/block"
)

// ChapterParser splits chapter text into typed content blocks.
//
// The grammar is line oriented: headings, fenced code (```), fenced
// formulas ($$), blockquotes, list items, paragraphs and the inline
// directive [component:Name](k:v, ...). ParseText never fails; malformed
// input degrades to paragraphs and an unterminated fence is flushed at
// end of input.
type ChapterParser struct {
	// NewID returns a fresh block id. Defaults to "block-<uuid>".
	NewID func() string
}

func (p *ChapterParser) Parse(r io.Reader, filename string) ([]block.Block, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return p.ParseText(string(src)), nil
}

// ParseText runs the full pass: split into blocks, drop repeated
// component insertions, then merge adjacent blocks of the same type.
func (p *ChapterParser) ParseText(raw string) []block.Block {
	blocks := p.split(normalize(raw))
	blocks = dedupComponents(blocks)
	return mergeAdjacent(blocks)
}

var (
	headingRe    = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	blockquoteRe = regexp.MustCompile(`^>(\s|$)`)
	listRe       = regexp.MustCompile(`^([-*+]|\d+\.)\s`)
	tickedRe     = regexp.MustCompile("`(\\[component:[^\\]]+\\]\\([^)]*\\))`")
)

type fence int

const (
	noFence fence = iota
	codeFence
	formulaFence
)

func (f fence) marker() string {
	if f == formulaFence {
		return "$$"
	}
	return "```"
}

func normalize(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	raw = norm.NFC.String(raw)
	return tickedRe.ReplaceAllString(raw, "$1")
}

func (p *ChapterParser) split(text string) []block.Block {
	var (
		blocks  []block.Block
		open    *block.Block
		inFence = noFence
	)

	flush := func() {
		if open != nil {
			blocks = append(blocks, *open)
			open = nil
		}
		inFence = noFence
	}
	accumulate := func(t block.Type, line string) {
		if open != nil && open.Type == t {
			open.Content += "\n" + line
			return
		}
		flush()
		open = p.newBlock(t, line)
	}

	emitDirective := func(line string, d Directive) {
		flush()
		b := p.newBlock(block.Component, strings.TrimSpace(line))
		b.ComponentName = d.Name
		b.ComponentProps = d.Props
		blocks = append(blocks, *b)
	}

	for _, line := range strings.Split(text, "\n") {
		lead := strings.TrimLeft(line, " \t")

		// Code fence bodies are verbatim. A directive inside a formula
		// fence closes the formula.
		if inFence != noFence {
			if inFence == formulaFence {
				if d, ok := parseDirective(line); ok {
					emitDirective(line, d)
					continue
				}
			}
			open.Content += "\n" + line
			if strings.HasPrefix(lead, inFence.marker()) {
				flush()
			}
			continue
		}

		if d, ok := parseDirective(line); ok {
			emitDirective(line, d)
			continue
		}

		// Markers are anchored at column 0. Indented list items only
		// continue a list that is already open.
		switch {
		case headingRe.MatchString(line):
			flush()
			m := headingRe.FindStringSubmatch(line)
			b := p.newBlock(block.Heading, strings.TrimSpace(m[2]))
			b.Level = len(m[1])
			blocks = append(blocks, *b)

		case strings.HasPrefix(line, "```"):
			flush()
			open = p.newBlock(block.Code, line)
			inFence = codeFence

		case strings.HasPrefix(line, "$$"):
			flush()
			open = p.newBlock(block.Formula, line)
			if t := strings.TrimSpace(line); len(t) > 4 && strings.HasSuffix(t, "$$") {
				flush()
			} else {
				inFence = formulaFence
			}

		case blockquoteRe.MatchString(line):
			accumulate(block.Blockquote, line)

		case listRe.MatchString(line),
			open != nil && open.Type == block.List && listRe.MatchString(lead):
			accumulate(block.List, line)

		case lead == "":
			flush()

		default:
			accumulate(block.Paragraph, line)
		}
	}
	flush()

	return blocks
}

func (p *ChapterParser) newBlock(t block.Type, content string) *block.Block {
	var id string
	if p.NewID != nil {
		id = p.NewID()
	} else {
		id = "block-" + uuid.NewString()
	}
	return &block.Block{ID: id, Type: t, Content: content}
}

// dedupComponents keeps the first insertion of each component name.
func dedupComponents(blocks []block.Block) []block.Block {
	seen := make(map[string]bool)
	out := blocks[:0:0]
	for _, b := range blocks {
		if b.Type == block.Component && b.ComponentName != "" {
			if seen[b.ComponentName] {
				continue
			}
			seen[b.ComponentName] = true
		}
		out = append(out, b)
	}
	return out
}

// mergeAdjacent joins neighbouring blocks of the same mergeable type.
func mergeAdjacent(blocks []block.Block) []block.Block {
	var out []block.Block
	for _, b := range blocks {
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.Type == b.Type && b.Mergeable() {
				last.Content += "\n\n" + b.Content
				continue
			}
		}
		out = append(out, b)
	}
	return out
}
