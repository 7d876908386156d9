// Package mapping decides, for every block of a chapter, which component
// renders it and with which props.
package mapping

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgallion1/chaptermap/internal/block"
	"github.com/dgallion1/chaptermap/internal/chapter"
	"github.com/dgallion1/chaptermap/internal/rule"
	"github.com/dgallion1/chaptermap/internal/score"
	"github.com/dgallion1/chaptermap/internal/stats"
)

// MatchResult is one satisfied (block, mapping) pair with its score.
type MatchResult = score.Result

// Assignment is the winning mapping for one block, props resolved.
type Assignment struct {
	BlockID   string         `json:"blockId"`
	Component string         `json:"component"`
	Props     map[string]any `json:"props,omitempty"`
	ClassName string         `json:"className,omitempty"`
	Lazy      bool           `json:"lazy,omitempty"`
	Fallback  string         `json:"fallback,omitempty"`
	Score     float64        `json:"score"`
	Mapping   string         `json:"mapping,omitempty"`
}

// Result is handed to the renderer. Blocks without an assignment are
// rendered as plain content.
type Result struct {
	ChapterID   string                           `json:"chapterId"`
	Assignments map[string]Assignment            `json:"assignments"`
	Registry    map[string]chapter.RegistryEntry `json:"componentRegistry"`
	Theme       chapter.Theme                    `json:"theme"`
}

// Resolver runs the mapping pass over parsed blocks.
type Resolver struct {
	repo  chapter.Repository
	stats *stats.Mapping
	log   *slog.Logger
}

// NewResolver wires a resolver. st may be nil.
func NewResolver(repo chapter.Repository, st *stats.Mapping, log *slog.Logger) *Resolver {
	return &Resolver{repo: repo, stats: st, log: log}
}

// Resolve assigns at most one component per block. For each block every
// mapping is tried in config order; the highest score wins, ties going to
// the earlier mapping. A winner whose condition rejects the block leaves
// the block unassigned.
func (r *Resolver) Resolve(ctx context.Context, chapterID string, blocks []block.Block) *Result {
	start := time.Now()
	cfg := r.repo.Get(ctx, chapterID)

	res := &Result{
		ChapterID:   chapterID,
		Assignments: make(map[string]Assignment, len(blocks)),
		Registry:    cfg.Registry,
		Theme:       cfg.Theme,
	}
	mc := &chapter.MappingContext{ChapterID: chapterID, Blocks: blocks, Config: cfg}

	var vetoed int
	for _, best := range score.Best(matchAll(cfg, blocks)) {
		m, b := best.Mapping, best.Block
		if m.Condition != nil && !m.Condition(b, mc) {
			vetoed++
			continue
		}
		a := Assignment{
			BlockID:   b.ID,
			Component: m.Component,
			ClassName: m.ClassName,
			Lazy:      m.Lazy,
			Fallback:  m.Fallback,
			Score:     best.Score,
			Mapping:   m.Name,
		}
		if m.Props != nil {
			a.Props = m.Props.Resolve(b, mc)
		}
		res.Assignments[b.ID] = a
	}

	elapsed := time.Since(start)
	if r.stats != nil {
		r.stats.Observe(elapsed, len(blocks), len(res.Assignments), vetoed)
	}
	r.log.Debug("chapter resolved",
		"chapter", chapterID,
		"blocks", len(blocks),
		"assigned", len(res.Assignments),
		"vetoed", vetoed,
		"elapsed", elapsed,
	)
	return res
}

// Matches returns every satisfied (block, mapping) pair with its score,
// before reduction and conditions. It is meant for debugging rule sets.
func (r *Resolver) Matches(ctx context.Context, chapterID string, blocks []block.Block) []MatchResult {
	return matchAll(r.repo.Get(ctx, chapterID), blocks)
}

func matchAll(cfg *chapter.Config, blocks []block.Block) []MatchResult {
	var out []MatchResult
	for i := range blocks {
		b := &blocks[i]
		for j := range cfg.Mappings {
			m := &cfg.Mappings[j]
			if !rule.MatchAt(m.Match, blocks, i) {
				continue
			}
			out = append(out, MatchResult{Mapping: m, Block: b, Index: i, Score: score.Score(b, m)})
		}
	}
	return out
}
