// Package content reads chapter sources (markdown or MDX with optional
// YAML front matter) from a directory tree.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/maruel/natural"
	"gopkg.in/yaml.v3"
)

var ErrNotFound = errors.New("chapter source not found")

// DefaultAliases maps the short chapter ids used in URLs to the file
// names under the content root.
var DefaultAliases = map[string]string{
	"part0/ch0": "part0/ch0-preface",
	"part1/ch1": "part1/ch1-Crystal-Structures",
	"part1/ch2": "part1/ch2-Quantum-Energy-Band",
	"part1/ch3": "part1/ch3-Statistics-Thermal-Equilibrium",
	"part3/ch4": "part3/ch4-Carrier-Transport",
}

type Chapter struct {
	Slug     string         `json:"slug"`
	Path     string         `json:"path"`
	Metadata map[string]any `json:"metadata"`
	Content  string         `json:"content"`

	Words          int `json:"words"`
	ReadingMinutes int `json:"readingMinutes"`
}

// Navigation holds the neighbouring chapter ids; empty at either end.
type Navigation struct {
	Prev string `json:"prev,omitempty"`
	Next string `json:"next,omitempty"`
}

// Store looks chapters up in FS. Aliases may be replaced before first use.
type Store struct {
	FS      fs.FS
	Aliases map[string]string
}

func NewStore(fsys fs.FS) *Store {
	return &Store{FS: fsys, Aliases: DefaultAliases}
}

func (s *Store) resolve(slug string) (string, error) {
	slug = strings.Trim(strings.TrimSpace(slug), "/")
	if mapped, ok := s.Aliases[slug]; ok {
		slug = mapped
	}
	if slug == "" || !fs.ValidPath(slug) {
		return "", fmt.Errorf("%w: invalid slug %q", ErrNotFound, slug)
	}
	return slug, nil
}

// Get reads the chapter for slug, trying <slug>.mdx, <slug>.md,
// <slug>/index.mdx and <slug>/index.md in that order.
func (s *Store) Get(slug string) (*Chapter, error) {
	mapped, err := s.resolve(slug)
	if err != nil {
		return nil, err
	}

	candidates := []string{
		mapped + ".mdx",
		mapped + ".md",
		path.Join(mapped, "index.mdx"),
		path.Join(mapped, "index.md"),
	}
	for _, p := range candidates {
		src, err := fs.ReadFile(s.FS, p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		meta, body, err := SplitFrontMatter(src)
		if err != nil {
			return nil, fmt.Errorf("front matter %s: %w", p, err)
		}
		words := CountWords(stripMarkup(body))
		return &Chapter{
			Slug:           strings.Trim(strings.TrimSpace(slug), "/"),
			Path:           p,
			Metadata:       meta,
			Content:        body,
			Words:          words,
			ReadingMinutes: ReadingMinutes(words),
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, slug)
}

// List returns the slug of every markdown source under the root in
// natural order. A directory holding index.md(x) is listed by its own
// path.
func (s *Store) List() ([]string, error) {
	seen := make(map[string]bool)
	err := fs.WalkDir(s.FS, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := path.Ext(p)
		if ext != ".md" && ext != ".mdx" {
			return nil
		}
		slug := strings.TrimSuffix(p, ext)
		if path.Base(slug) == "index" {
			slug = path.Dir(slug)
			if slug == "." {
				return nil
			}
		}
		seen[slug] = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	slugs := make([]string, 0, len(seen))
	for slug := range seen {
		slugs = append(slugs, slug)
	}
	sort.Sort(natural.StringSlice(slugs))
	return slugs, nil
}

// Order lists the aliased chapter ids in reading order.
func (s *Store) Order() []string {
	ids := make([]string, 0, len(s.Aliases))
	for id := range s.Aliases {
		ids = append(ids, id)
	}
	sort.Sort(natural.StringSlice(ids))
	return ids
}

// Navigate returns the chapters before and after id in reading order.
// Unknown ids have no neighbours.
func (s *Store) Navigate(id string) Navigation {
	order := s.Order()
	for i, o := range order {
		if o != id {
			continue
		}
		var nav Navigation
		if i > 0 {
			nav.Prev = order[i-1]
		}
		if i < len(order)-1 {
			nav.Next = order[i+1]
		}
		return nav
	}
	return Navigation{}
}

var fmDelim = []byte("---")

// SplitFrontMatter separates a leading "---" delimited YAML block from the
// body. Sources without front matter come back unchanged with empty
// metadata.
func SplitFrontMatter(src []byte) (map[string]any, string, error) {
	meta := map[string]any{}
	src = bytes.TrimPrefix(src, []byte("\ufeff"))

	first, rest, ok := bytes.Cut(src, []byte("\n"))
	if !ok || !bytes.Equal(bytes.TrimRight(first, " \t\r"), fmDelim) {
		return meta, string(src), nil
	}

	var head []byte
	for len(rest) > 0 {
		var line []byte
		line, rest, _ = bytes.Cut(rest, []byte("\n"))
		if bytes.Equal(bytes.TrimRight(line, " \t\r"), fmDelim) {
			if err := yaml.Unmarshal(head, &meta); err != nil {
				return nil, "", err
			}
			if meta == nil {
				meta = map[string]any{}
			}
			return meta, strings.TrimLeft(string(rest), "\r\n"), nil
		}
		head = append(head, line...)
		head = append(head, '\n')
	}
	// No closing delimiter: treat the whole file as body.
	return meta, string(src), nil
}
