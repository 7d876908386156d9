package chapter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gosimple/slug"
	"github.com/maruel/natural"
	"go.uber.org/multierr"
)

var (
	// ErrNotFound is returned by a Loader that has no override for an id.
	ErrNotFound = errors.New("chapter config not found")
	// ErrInvalidID is returned for ids that normalise to nothing.
	ErrInvalidID = errors.New("invalid chapter id")
)

// Loader finds the chapter-specific override for an id. The result is a
// partial Config to be merged onto Default.
type Loader interface {
	Load(ctx context.Context, id string) (*Config, error)
}

// NormalizeID lower-cases and trims id and slugifies each "/" segment,
// so "Part1/Ch2 " and "part1/ch2" name the same chapter.
func NormalizeID(id string) (string, error) {
	var segs []string
	for _, seg := range strings.Split(strings.TrimSpace(id), "/") {
		if s := slug.Make(seg); s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) == 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return strings.Join(segs, "/"), nil
}

// Catalog is a Loader over overrides registered in code.
type Catalog struct {
	mu      sync.RWMutex
	configs map[string]*Config
}

func NewCatalog() *Catalog {
	return &Catalog{configs: make(map[string]*Config)}
}

// Register adds or replaces the override for id.
func (c *Catalog) Register(id string, cfg *Config) error {
	key, err := NormalizeID(id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configs[key] = cfg
	return nil
}

func (c *Catalog) Load(_ context.Context, id string) (*Config, error) {
	key, err := NormalizeID(id)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	cfg, ok := c.configs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return cfg, nil
}

// IDs lists the registered chapter ids in sorted order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.configs))
	for id := range c.configs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Chain tries each loader in turn. The first result that is not
// ErrNotFound wins, errors included.
type Chain []Loader

func (ch Chain) Load(ctx context.Context, id string) (*Config, error) {
	for _, l := range ch {
		cfg, err := l.Load(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return cfg, err
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// IDs merges the ids of every loader in the chain that can enumerate
// them, in natural order without duplicates.
func (ch Chain) IDs() ([]string, error) {
	seen := make(map[string]bool)
	var errs error
	for _, l := range ch {
		var ids []string
		switch v := l.(type) {
		case interface{ IDs() ([]string, error) }:
			got, err := v.IDs()
			errs = multierr.Append(errs, err)
			ids = got
		case interface{ IDs() []string }:
			ids = v.IDs()
		}
		for _, id := range ids {
			seen[id] = true
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Sort(natural.StringSlice(out))
	return out, errs
}
