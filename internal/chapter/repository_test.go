package chapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/chaptermap/internal/logger"
	"github.com/dgallion1/chaptermap/internal/rule"
)

type loaderFunc func(ctx context.Context, id string) (*Config, error)

func (f loaderFunc) Load(ctx context.Context, id string) (*Config, error) { return f(ctx, id) }

func TestCache_UnknownChapterFallsBackToDefault(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.New("warn", "json", &buf)
	require.NoError(t, err)

	c := NewCache(Builtin(), CacheOptions{}, log)

	var cfg *Config
	require.NotPanics(t, func() { cfg = c.Get(context.Background(), "unknown/slug") })
	assert.Equal(t, Default(), cfg)
	assert.Contains(t, buf.String(), "using default config")
	assert.Contains(t, buf.String(), "unknown/slug")
}

func TestCache_MergesOverride(t *testing.T) {
	c := NewCache(Builtin(), CacheOptions{}, logger.Nop())

	cfg := c.Get(context.Background(), "part1/ch2")
	assert.Equal(t, "sidebar", cfg.Layout.Type)
	assert.Equal(t, "#7c3aed", cfg.Theme.Colors.Primary)
	assert.Equal(t, "#6b7280", cfg.Theme.Colors.Secondary)
	assert.Equal(t, []string{"band_diagram_interaction"}, cfg.Analytics.Events)
	assert.Len(t, cfg.Mappings, 4)
	assert.Contains(t, cfg.Registry, "EnergyBandDiagram")
}

func TestCache_LoadErrorsAndPanicsDegrade(t *testing.T) {
	c := NewCache(loaderFunc(func(_ context.Context, id string) (*Config, error) {
		if id == "boom" {
			panic("loader exploded")
		}
		return nil, errors.New("disk on fire")
	}), CacheOptions{}, logger.Nop())

	assert.Equal(t, Default(), c.Get(context.Background(), "broken"))
	assert.Equal(t, Default(), c.Get(context.Background(), "boom"))
	assert.Equal(t, Default(), c.Get(context.Background(), ""))
	assert.Equal(t, 2, c.Len())
}

func TestCache_MemoizesAndInvalidates(t *testing.T) {
	var loads atomic.Int32
	c := NewCache(loaderFunc(func(context.Context, string) (*Config, error) {
		loads.Add(1)
		return &Config{Mappings: []Mapping{{Component: "X", Match: rule.Default{}}}}, nil
	}), CacheOptions{}, logger.Nop())
	ctx := context.Background()

	first := c.Get(ctx, "part1/ch1")
	assert.Same(t, first, c.Get(ctx, "Part1/CH1"))
	assert.Equal(t, int32(1), loads.Load())

	c.Invalidate("part1/ch1")
	assert.NotSame(t, first, c.Get(ctx, "part1/ch1"))
	assert.Equal(t, int32(2), loads.Load())

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestCache_CoalescesConcurrentLoads(t *testing.T) {
	var loads atomic.Int32
	release := make(chan struct{})
	c := NewCache(loaderFunc(func(context.Context, string) (*Config, error) {
		loads.Add(1)
		<-release
		return &Config{}, nil
	}), CacheOptions{}, logger.Nop())

	var wg sync.WaitGroup
	results := make([]*Config, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Get(context.Background(), "part2/ch3")
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

// slowFirstLoader blocks its first load until release is closed; later
// loads return at once. Each load yields a distinct DefaultComponent.
func slowFirstLoader(loads *atomic.Int32, started chan<- struct{}, release <-chan struct{}) Loader {
	return loaderFunc(func(context.Context, string) (*Config, error) {
		n := loads.Add(1)
		if n == 1 {
			started <- struct{}{}
			<-release
		}
		return &Config{DefaultComponent: fmt.Sprintf("v%d", n)}, nil
	})
}

func TestCache_InvalidateDuringLoad(t *testing.T) {
	for name, reset := range map[string]func(*Cache){
		"invalidate": func(c *Cache) { c.Invalidate("part2/ch3") },
		"purge":      func(c *Cache) { c.Purge() },
	} {
		t.Run(name, func(t *testing.T) {
			var loads atomic.Int32
			started := make(chan struct{}, 1)
			release := make(chan struct{})
			c := NewCache(slowFirstLoader(&loads, started, release), CacheOptions{}, logger.Nop())
			ctx := context.Background()

			done := make(chan *Config, 1)
			go func() { done <- c.Get(ctx, "part2/ch3") }()
			<-started
			reset(c)

			// A Get after the reset starts its own load instead of joining
			// the one in flight.
			fresh := c.Get(ctx, "part2/ch3")
			assert.Equal(t, "v2", fresh.DefaultComponent)

			close(release)
			stale := <-done
			assert.Equal(t, "v1", stale.DefaultComponent)

			assert.Same(t, fresh, c.Get(ctx, "part2/ch3"), "stale load must not overwrite the fresh entry")
			assert.Equal(t, int32(2), loads.Load())
			assert.Equal(t, 1, c.Len())
		})
	}
}

func TestCache_TTLAndMaxEntries(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var loads atomic.Int32
	c := NewCache(loaderFunc(func(context.Context, string) (*Config, error) {
		loads.Add(1)
		return &Config{}, nil
	}), CacheOptions{TTL: time.Minute, MaxEntries: 2}, logger.Nop())
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Get(ctx, "a")
	now = now.Add(time.Second)
	c.Get(ctx, "b")
	now = now.Add(time.Second)
	c.Get(ctx, "c") // evicts a
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, int32(3), loads.Load())

	c.Get(ctx, "b")
	assert.Equal(t, int32(3), loads.Load(), "b still cached")

	c.Get(ctx, "a")
	assert.Equal(t, int32(4), loads.Load(), "a was evicted")

	now = now.Add(2 * time.Minute)
	c.Get(ctx, "a")
	assert.Equal(t, int32(5), loads.Load(), "expired entries reload")
}
