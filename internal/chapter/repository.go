package chapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Repository hands out merged chapter configs. Get never fails: when the
// chapter cannot be loaded it returns the default config. Returned configs
// may be shared between callers and must not be modified.
type Repository interface {
	Get(ctx context.Context, id string) *Config
	Invalidate(id string)
	Purge()
}

// CacheOptions bounds a Cache. Zero values mean no expiry and no size
// limit.
type CacheOptions struct {
	TTL        time.Duration
	MaxEntries int
}

type cacheEntry struct {
	cfg      *Config
	loadedAt time.Time
}

// generation identifies the cache state a load started from. Invalidate
// bumps the key's counter and Purge bumps the epoch, so loads begun
// earlier do not store their result.
type generation struct {
	epoch uint64
	key   uint64
}

// Cache is a Repository that merges loader results onto Default and
// memoizes them per chapter id. Concurrent misses for one id share a
// single load. Failed loads are cached as the default config too, until
// they expire or are invalidated.
type Cache struct {
	loader Loader
	opts   CacheOptions
	log    *slog.Logger
	now    func() time.Time

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]cacheEntry
	epoch   uint64
	gens    map[string]uint64
	loading map[string]int
}

func NewCache(loader Loader, opts CacheOptions, log *slog.Logger) *Cache {
	return &Cache{
		loader:  loader,
		opts:    opts,
		log:     log,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
		gens:    make(map[string]uint64),
		loading: make(map[string]int),
	}
}

func (c *Cache) Get(ctx context.Context, id string) *Config {
	key, err := NormalizeID(id)
	if err != nil {
		c.log.Warn("invalid chapter id, using default config", "chapter", id, "error", err)
		return Default()
	}

	if cfg, ok := c.lookup(key); ok {
		return cfg
	}

	// The load runs detached from the first caller's cancellation since
	// its result is shared.
	v, _, _ := c.group.Do(key, func() (any, error) {
		if cfg, ok := c.lookup(key); ok {
			return cfg, nil
		}
		gen := c.begin(key)
		defer c.end(key)
		cfg := c.load(context.WithoutCancel(ctx), key)
		c.store(key, gen, cfg)
		return cfg, nil
	})
	return v.(*Config)
}

func (c *Cache) lookup(key string) (*Config, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.opts.TTL > 0 && c.now().Sub(e.loadedAt) >= c.opts.TTL {
		delete(c.entries, key)
		return nil, false
	}
	return e.cfg, true
}

func (c *Cache) begin(key string) generation {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading[key]++
	return generation{epoch: c.epoch, key: c.gens[key]}
}

func (c *Cache) end(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading[key]--; c.loading[key] <= 0 {
		delete(c.loading, key)
	}
}

func (c *Cache) store(key string, gen generation, cfg *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != (generation{epoch: c.epoch, key: c.gens[key]}) {
		return
	}
	if _, exists := c.entries[key]; !exists && c.opts.MaxEntries > 0 && len(c.entries) >= c.opts.MaxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = cacheEntry{cfg: cfg, loadedAt: c.now()}
}

func (c *Cache) evictOldestLocked() {
	var (
		oldest string
		at     time.Time
	)
	for k, e := range c.entries {
		if oldest == "" || e.loadedAt.Before(at) {
			oldest, at = k, e.loadedAt
		}
	}
	delete(c.entries, oldest)
}

// load merges the chapter override onto Default. Errors and panics from
// the loader degrade to Default.
func (c *Cache) load(ctx context.Context, key string) (cfg *Config) {
	log := c.log.With("chapter", key)
	defer func() {
		if r := recover(); r != nil {
			log.Warn("chapter config loader panicked, using default config", "panic", fmt.Sprint(r))
			cfg = Default()
		}
	}()

	override, err := c.loader.Load(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		log.Warn("no chapter config found, using default config")
		return Default()
	case err != nil:
		log.Warn("failed to load chapter config, using default config", "error", err)
		return Default()
	}

	log.Debug("chapter config loaded", "mappings", len(override.Mappings))
	return Merge(Default(), override)
}

func (c *Cache) Invalidate(id string) {
	key, err := NormalizeID(id)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.gens[key]++
	c.group.Forget(key)
}

func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	c.gens = make(map[string]uint64)
	c.epoch++
	for key := range c.loading {
		c.group.Forget(key)
	}
}

// Len reports the number of cached chapters.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
