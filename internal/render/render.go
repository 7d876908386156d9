// Package render turns a parsed chapter and its component assignments into
// an HTML fragment. Assigned blocks become component mount points that a
// client-side runtime hydrates; everything else is rendered as markdown.
package render

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"maps"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/dgallion1/chaptermap/internal/block"
	"github.com/dgallion1/chaptermap/internal/mapping"
)

// Renderer is safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

func New() *Renderer {
	return &Renderer{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Render writes the chapter as an <article>. res may be nil, in which case
// every block is plain content.
func (r *Renderer) Render(w io.Writer, blocks []block.Block, res *mapping.Result) error {
	bw := bufio.NewWriter(w)

	if res != nil {
		fmt.Fprintf(bw, "<article class=\"chapter\" data-chapter=\"%s\">\n", html.EscapeString(res.ChapterID))
	} else {
		bw.WriteString("<article class=\"chapter\">\n")
	}

	for i := range blocks {
		b := &blocks[i]
		var err error
		if a, ok := lookup(res, b.ID); ok {
			err = r.mount(bw, b, a, res)
		} else {
			err = r.plain(bw, b)
		}
		if err != nil {
			return fmt.Errorf("render block %s: %w", b.ID, err)
		}
	}

	bw.WriteString("</article>\n")
	return bw.Flush()
}

func lookup(res *mapping.Result, id string) (mapping.Assignment, bool) {
	if res == nil {
		return mapping.Assignment{}, false
	}
	a, ok := res.Assignments[id]
	return a, ok
}

// mount writes a placeholder element carrying the component name and its
// props as JSON. Registry default props sit under the assignment's own.
func (r *Renderer) mount(w *bufio.Writer, b *block.Block, a mapping.Assignment, res *mapping.Result) error {
	props := map[string]any{}
	if entry, ok := res.Registry[a.Component]; ok {
		maps.Copy(props, entry.DefaultProps)
	}
	maps.Copy(props, a.Props)

	raw, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("props for %s: %w", a.Component, err)
	}

	fmt.Fprintf(w, `<div data-component="%s" data-block-id="%s" data-props="%s"`,
		html.EscapeString(a.Component), html.EscapeString(b.ID), html.EscapeString(string(raw)))
	if a.ClassName != "" {
		fmt.Fprintf(w, ` class="%s"`, html.EscapeString(a.ClassName))
	}
	if a.Lazy {
		w.WriteString(` data-lazy="true"`)
	}
	if a.Fallback != "" {
		fmt.Fprintf(w, ` data-fallback="%s"`, html.EscapeString(a.Fallback))
	}
	w.WriteString(">\n<noscript>")
	if err := r.plain(w, b); err != nil {
		return err
	}
	w.WriteString("</noscript>\n</div>\n")
	return nil
}

func (r *Renderer) plain(w *bufio.Writer, b *block.Block) error {
	switch b.Type {
	case block.Component:
		// An unassigned directive still names the component to mount.
		raw, err := json.Marshal(b.ComponentProps)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "<div data-component=\"%s\" data-block-id=\"%s\" data-props=\"%s\"></div>\n",
			html.EscapeString(b.ComponentName), html.EscapeString(b.ID), html.EscapeString(string(raw)))
		return nil

	case block.Formula:
		body := strings.TrimSpace(b.Content)
		body = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(body, "$$"), "$$"))
		fmt.Fprintf(w, "<div class=\"math math-display\">\\[%s\\]</div>\n", html.EscapeString(body))
		return nil
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdownSource(b)), &buf); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// markdownSource rebuilds the markdown a block was parsed from.
func markdownSource(b *block.Block) string {
	if b.Type == block.Heading {
		level := min(max(b.Level, 1), 6)
		return strings.Repeat("#", level) + " " + b.Content
	}
	return b.Content
}
