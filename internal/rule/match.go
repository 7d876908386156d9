package rule

import (
	"strings"

	"github.com/dgallion1/chaptermap/internal/block"
)

// Matches evaluates r against a single block with no neighbours. Prev and
// Next are false in this mode.
func Matches(r Rule, b *block.Block) bool {
	return MatchAt(r, []block.Block{*b}, 0)
}

// MatchAt evaluates r against blocks[i], with blocks supplying the
// neighbours for Prev and Next. An index out of range never matches.
func MatchAt(r Rule, blocks []block.Block, i int) bool {
	if i < 0 || i >= len(blocks) {
		return false
	}
	b := &blocks[i]

	switch r := r.(type) {
	case And:
		for _, sub := range r.Rules {
			if !MatchAt(sub, blocks, i) {
				return false
			}
		}
		return true
	case Or:
		for _, sub := range r.Rules {
			if MatchAt(sub, blocks, i) {
				return true
			}
		}
		return false
	case Not:
		return !MatchAt(r.Rule, blocks, i)
	case Prev:
		return MatchAt(r.Rule, blocks, i-1)
	case Next:
		return MatchAt(r.Rule, blocks, i+1)
	case Heading:
		return b.Type == block.Heading && (b.Content == r.Text || strings.Contains(b.Content, r.Text))
	case Keywords:
		return len(MatchedKeywords(r, b)) > 0
	case ContentType:
		return b.Type == r.Type
	case Regex:
		return r.Pattern != nil && r.Pattern.MatchString(b.Content)
	case Default:
		return true
	default:
		return false
	}
}

// MatchedKeywords returns the values of k that occur in b's content, in
// declared order. Duplicate values are counted each time.
func MatchedKeywords(k Keywords, b *block.Block) []string {
	var out []string
	for _, v := range k.Values {
		if strings.Contains(b.Content, v) {
			out = append(out, v)
		}
	}
	return out
}
