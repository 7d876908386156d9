// Package rule defines the match-rule tree used to decide which component
// mapping applies to a content block, and evaluates it.
package rule

import (
	"regexp"

	"github.com/dgallion1/chaptermap/internal/block"
)

// Rule is a node in a match-rule tree. The set of implementations is
// closed; see the types in this file.
type Rule interface {
	isRule()
}

// Heading matches heading blocks whose content equals or contains Text.
type Heading struct{ Text string }

// Keywords matches blocks containing at least one of Values.
type Keywords struct{ Values []string }

// ContentType matches blocks of the given structural type.
type ContentType struct{ Type block.Type }

// Regex matches blocks whose content matches Pattern.
type Regex struct{ Pattern *regexp.Regexp }

// Default always matches.
type Default struct{}

// Never never matches. Kind records the unrecognised leaf type it was
// compiled from, if any.
type Never struct{ Kind string }

// And matches when every sub-rule matches. Leaf is the leaf declared on
// the same config node; it is not evaluated and only feeds scoring.
type And struct {
	Rules []Rule
	Leaf  Rule
}

// Or matches when any sub-rule matches.
type Or struct {
	Rules []Rule
	Leaf  Rule
}

// Not negates Rule.
type Not struct {
	Rule Rule
	Leaf Rule
}

// Prev matches when the preceding block exists and satisfies Rule.
type Prev struct{ Rule Rule }

// Next matches when the following block exists and satisfies Rule.
type Next struct{ Rule Rule }

func (Heading) isRule()     {}
func (Keywords) isRule()    {}
func (ContentType) isRule() {}
func (Regex) isRule()       {}
func (Default) isRule()     {}
func (Never) isRule()       {}
func (And) isRule()         {}
func (Or) isRule()          {}
func (Not) isRule()         {}
func (Prev) isRule()        {}
func (Next) isRule()        {}

// DeclaredLeaf returns the leaf written on the rule's top-level node: the
// rule itself for leaves, the Leaf field for composites. It returns nil
// when nothing was declared.
func DeclaredLeaf(r Rule) Rule {
	switch r := r.(type) {
	case And:
		return r.Leaf
	case Or:
		return r.Leaf
	case Not:
		return r.Leaf
	case Prev, Next, nil:
		return nil
	default:
		return r
	}
}
