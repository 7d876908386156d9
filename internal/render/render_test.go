package render

import (
	"bytes"
	"html"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/chaptermap/internal/block"
	"github.com/dgallion1/chaptermap/internal/chapter"
	"github.com/dgallion1/chaptermap/internal/mapping"
)

func render(t *testing.T, blocks []block.Block, res *mapping.Result) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, New().Render(&buf, blocks, res))
	return buf.String()
}

func TestRender_PlainFallback(t *testing.T) {
	blocks := []block.Block{
		{ID: "b1", Type: block.Heading, Content: "能带理论", Level: 2},
		{ID: "b2", Type: block.Paragraph, Content: "电子在 **晶格** 中运动。"},
		{ID: "b3", Type: block.List, Content: "- 价带\n- 导带"},
		{ID: "b4", Type: block.Code, Content: "```go\nfmt.Println(1 < 2)\n```"},
		{ID: "b5", Type: block.Formula, Content: "$$\nE = mc^2\n$$"},
		{ID: "b6", Type: block.Paragraph, Content: "| a | b |\n|---|---|\n| 1 | 2 |"},
	}
	out := render(t, blocks, nil)

	assert.True(t, strings.HasPrefix(out, `<article class="chapter">`))
	assert.Contains(t, out, "<h2>能带理论</h2>")
	assert.Contains(t, out, "<strong>晶格</strong>")
	assert.Contains(t, out, "<li>价带</li>")
	assert.Contains(t, out, `<code class="language-go">fmt.Println(1 &lt; 2)`)
	assert.Contains(t, out, `<div class="math math-display">\[E = mc^2\]</div>`)
	assert.Contains(t, out, "<table>", "GFM tables are enabled")
	assert.NotContains(t, out, "data-component")
}

func TestRender_MountPoints(t *testing.T) {
	blocks := []block.Block{
		{ID: "b1", Type: block.Paragraph, Content: "欧姆定律"},
		{ID: "b2", Type: block.Paragraph, Content: "plain"},
	}
	res := &mapping.Result{
		ChapterID: "part1/ch2",
		Assignments: map[string]mapping.Assignment{
			"b1": {
				BlockID:   "b1",
				Component: "ConceptExplanationModule",
				Props:     map[string]any{"showFormula": true, "mode": "full"},
				ClassName: "mb-8",
				Lazy:      true,
				Fallback:  "Loading…",
			},
		},
		Registry: map[string]chapter.RegistryEntry{
			"ConceptExplanationModule": {Path: "@/x", DefaultProps: map[string]any{"mode": "compact", "theme": "dark"}},
		},
	}
	out := render(t, blocks, res)

	assert.Contains(t, out, `data-chapter="part1/ch2"`)
	assert.Contains(t, out, `<div data-component="ConceptExplanationModule" data-block-id="b1"`)
	assert.Contains(t, out, `class="mb-8" data-lazy="true" data-fallback="Loading…"`)

	unescaped := html.UnescapeString(out)
	assert.Contains(t, unescaped, `{"mode":"full","showFormula":true,"theme":"dark"}`)
	assert.Contains(t, out, "<noscript><p>欧姆定律</p>\n</noscript>")
	assert.Contains(t, out, "<p>plain</p>")
}

func TestRender_UnassignedDirective(t *testing.T) {
	blocks := []block.Block{{
		ID:             "c1",
		Type:           block.Component,
		Content:        "[component:BandDiagram](interactive:true)",
		ComponentName:  "BandDiagram",
		ComponentProps: map[string]any{"interactive": true},
	}}
	out := render(t, blocks, &mapping.Result{Assignments: map[string]mapping.Assignment{}})

	assert.Contains(t, out, `<div data-component="BandDiagram" data-block-id="c1"`)
	assert.Contains(t, html.UnescapeString(out), `data-props="{"interactive":true}"`)
}

func TestRender_EscapesAttributes(t *testing.T) {
	blocks := []block.Block{{ID: `x"y`, Type: block.Paragraph, Content: "t"}}
	res := &mapping.Result{Assignments: map[string]mapping.Assignment{
		`x"y`: {Component: `<script>`},
	}}
	out := render(t, blocks, res)
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, `data-block-id="x&#34;y"`)
}
