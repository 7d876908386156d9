// Package score ranks mappings whose rule already matched a block.
package score

import (
	"github.com/dgallion1/chaptermap/internal/block"
	"github.com/dgallion1/chaptermap/internal/chapter"
	"github.com/dgallion1/chaptermap/internal/rule"
)

// Bonus values added on top of a mapping's priority.
const (
	HeadingExact     = 100
	HeadingSubstring = 80
	PerKeyword       = 10
	ContentTypeMatch = 50
	RegexMatch       = 80
)

// Score returns m.Priority plus the bonus earned by the leaf declared on
// the top-level node of m.Match. Composite rules are scored by that leaf
// alone, whichever branch made them true.
func Score(b *block.Block, m *chapter.Mapping) float64 {
	return m.Priority + Bonus(b, rule.DeclaredLeaf(m.Match))
}

// Bonus scores a single leaf against b. Non-leaf rules and leaves with no
// entry in the bonus table score 0.
func Bonus(b *block.Block, leaf rule.Rule) float64 {
	switch l := leaf.(type) {
	case rule.Heading:
		if b.Type != block.Heading || l.Text == "" {
			return 0
		}
		if b.Content == l.Text {
			return HeadingExact
		}
		if rule.Matches(l, b) {
			return HeadingSubstring
		}
	case rule.Keywords:
		return float64(PerKeyword * len(rule.MatchedKeywords(l, b)))
	case rule.ContentType:
		if b.Type == l.Type {
			return ContentTypeMatch
		}
	case rule.Regex:
		if rule.Matches(l, b) {
			return RegexMatch
		}
	}
	return 0
}

// Result is one satisfied (block, mapping) pair. Index is the block's
// position in the parsed sequence.
type Result struct {
	Mapping *chapter.Mapping `json:"mapping"`
	Block   *block.Block     `json:"block"`
	Index   int              `json:"index"`
	Score   float64          `json:"score"`
}

// Best keeps the highest scoring result per block id. A later result only
// replaces the current best when its score is strictly greater, so ties go
// to whichever came first. Output order follows the first appearance of
// each block.
func Best(results []Result) []Result {
	pos := make(map[string]int)
	var out []Result
	for _, r := range results {
		i, ok := pos[r.Block.ID]
		if !ok {
			pos[r.Block.ID] = len(out)
			out = append(out, r)
			continue
		}
		if r.Score > out[i].Score {
			out[i] = r
		}
	}
	return out
}
