package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/chaptermap/internal/block"
)

// Parser converts a chapter document into ordered content blocks.
type Parser interface {
	Parse(r io.Reader, filename string) ([]block.Block, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".mdx":      true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// Options tunes the parsers returned by ForFile.
type Options struct {
	// PDFFallbackPdftotext shells out to pdftotext when the Go PDF reader fails.
	PDFFallbackPdftotext bool
	// NewID overrides block id generation.
	NewID func() string
}

// ForFile returns the appropriate parser for a filename. Every front-end
// reduces its input to chapter text and hands it to a ChapterParser.
func ForFile(filename string, opts Options) (Parser, error) {
	chapter := &ChapterParser{NewID: opts.NewID}
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".md", ".mdx", ".markdown":
		return chapter, nil
	case ".html", ".htm":
		return &HTMLParser{Chapter: chapter}, nil
	case ".pdf":
		return &PDFParser{Chapter: chapter, FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{Chapter: chapter}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// textWriter accumulates chapter text one block at a time, separating
// blocks with a blank line.
type textWriter struct {
	buf strings.Builder
}

func (w *textWriter) block(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	if w.buf.Len() > 0 {
		w.buf.WriteString("\n\n")
	}
	w.buf.WriteString(s)
}

func (w *textWriter) heading(level int, title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	w.block(strings.Repeat("#", level) + " " + title)
}

func (w *textWriter) String() string { return w.buf.String() }

func chapterOrDefault(c *ChapterParser) *ChapterParser {
	if c == nil {
		return &ChapterParser{}
	}
	return c
}
