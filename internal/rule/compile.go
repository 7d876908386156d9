package rule

import (
	"fmt"
	"regexp"

	"go.uber.org/multierr"

	"github.com/dgallion1/chaptermap/internal/block"
)

// Leaf type names accepted in configuration.
const (
	TypeHeading     = "heading"
	TypeKeywords    = "keywords"
	TypeContentType = "contentType"
	TypeRegex       = "regex"
	TypeDefault     = "default"
)

// Spec is the configuration form of a rule node, as written in chapter
// YAML or JSON.
type Spec struct {
	Type    string       `yaml:"type,omitempty" json:"type,omitempty"`
	Text    string       `yaml:"text,omitempty" json:"text,omitempty"`
	Values  []string     `yaml:"values,omitempty" json:"values,omitempty"`
	Value   string       `yaml:"value,omitempty" json:"value,omitempty"`
	Pattern string       `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	And     []Spec       `yaml:"and,omitempty" json:"and,omitempty"`
	Or      []Spec       `yaml:"or,omitempty" json:"or,omitempty"`
	Not     *Spec        `yaml:"not,omitempty" json:"not,omitempty"`
	Context *ContextSpec `yaml:"context,omitempty" json:"context,omitempty"`
	Expr    string       `yaml:"expr,omitempty" json:"expr,omitempty"`
}

// ContextSpec constrains the neighbouring blocks.
type ContextSpec struct {
	Previous *Spec `yaml:"previous,omitempty" json:"previous,omitempty"`
	Next     *Spec `yaml:"next,omitempty" json:"next,omitempty"`
}

// Compile turns a Spec into a Rule. Regex patterns are compiled here.
// Every problem found in the tree is reported, combined with multierr.
//
// On one node and/or/not take precedence over the node's own leaf, in
// that order; empty and/or lists count as absent. An unrecognised type
// compiles to Never.
func Compile(s Spec) (Rule, error) {
	return compileNode(s, "match")
}

// MustCompile is like Compile but panics on error. It is meant for rules
// written in code.
func MustCompile(s Spec) Rule {
	r, err := Compile(s)
	if err != nil {
		panic(err)
	}
	return r
}

func compileNode(s Spec, path string) (Rule, error) {
	var (
		node Rule
		errs error
	)

	switch {
	case s.Expr != "":
		if s.hasLeafFields() || s.Type != "" || len(s.And) > 0 || len(s.Or) > 0 || s.Not != nil {
			return nil, fmt.Errorf("%s: expr cannot be combined with other rule fields", path)
		}
		r, err := ParseExpr(s.Expr)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		node = r

	default:
		leaf, err := compileLeaf(s, path)
		errs = multierr.Append(errs, err)

		switch {
		case len(s.And) > 0:
			subs, err := compileList(s.And, path+".and")
			errs = multierr.Append(errs, err)
			node = And{Rules: subs, Leaf: leaf}
		case len(s.Or) > 0:
			subs, err := compileList(s.Or, path+".or")
			errs = multierr.Append(errs, err)
			node = Or{Rules: subs, Leaf: leaf}
		case s.Not != nil:
			sub, err := compileNode(*s.Not, path+".not")
			errs = multierr.Append(errs, err)
			node = Not{Rule: sub, Leaf: leaf}
		case leaf != nil:
			node = leaf
		case err == nil:
			errs = multierr.Append(errs, fmt.Errorf("%s: rule has no type", path))
		}
	}

	if c := s.Context; c != nil && (c.Previous != nil || c.Next != nil) {
		rules := []Rule{node}
		if c.Previous != nil {
			sub, err := compileNode(*c.Previous, path+".context.previous")
			errs = multierr.Append(errs, err)
			rules = append(rules, Prev{Rule: sub})
		}
		if c.Next != nil {
			sub, err := compileNode(*c.Next, path+".context.next")
			errs = multierr.Append(errs, err)
			rules = append(rules, Next{Rule: sub})
		}
		node = And{Rules: rules, Leaf: DeclaredLeaf(node)}
	}

	if errs != nil {
		return nil, errs
	}
	return node, nil
}

func compileList(specs []Spec, path string) ([]Rule, error) {
	var errs error
	out := make([]Rule, 0, len(specs))
	for i, s := range specs {
		r, err := compileNode(s, fmt.Sprintf("%s[%d]", path, i))
		errs = multierr.Append(errs, err)
		out = append(out, r)
	}
	return out, errs
}

func (s Spec) hasLeafFields() bool {
	return s.Text != "" || s.Values != nil || s.Value != "" || s.Pattern != ""
}

// compileLeaf builds the leaf declared by s.Type. It returns nil, nil when
// the node declares no type.
func compileLeaf(s Spec, path string) (Rule, error) {
	var stray []string
	check := func(field string, set bool) {
		if set {
			stray = append(stray, field)
		}
	}

	var leaf Rule
	switch s.Type {
	case "":
		if s.hasLeafFields() {
			return nil, fmt.Errorf("%s: leaf fields given without a type", path)
		}
		return nil, nil
	case TypeHeading:
		check("values", s.Values != nil)
		check("value", s.Value != "")
		check("pattern", s.Pattern != "")
		leaf = Heading{Text: s.Text}
	case TypeKeywords:
		check("text", s.Text != "")
		check("value", s.Value != "")
		check("pattern", s.Pattern != "")
		leaf = Keywords{Values: s.Values}
	case TypeContentType:
		check("text", s.Text != "")
		check("values", s.Values != nil)
		check("pattern", s.Pattern != "")
		t := block.Type(s.Value)
		if !t.Valid() {
			return nil, fmt.Errorf("%s: unknown content type %q", path, s.Value)
		}
		leaf = ContentType{Type: t}
	case TypeRegex:
		check("text", s.Text != "")
		check("values", s.Values != nil)
		check("value", s.Value != "")
		if s.Pattern == "" {
			// A regex leaf without a pattern never matches.
			leaf = Regex{}
			break
		}
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%s: compile pattern: %w", path, err)
		}
		leaf = Regex{Pattern: re}
	case TypeDefault:
		check("text", s.Text != "")
		check("values", s.Values != nil)
		check("value", s.Value != "")
		check("pattern", s.Pattern != "")
		leaf = Default{}
	default:
		return Never{Kind: s.Type}, nil
	}

	if len(stray) > 0 {
		return nil, fmt.Errorf("%s: %s rule does not take %v", path, s.Type, stray)
	}
	return leaf, nil
}

// ToSpec converts a compiled rule back to its configuration form. Context
// wrappers come back as and-lists containing prev/next expressions.
func ToSpec(r Rule) Spec {
	var s Spec
	switch r := r.(type) {
	case Heading:
		return Spec{Type: TypeHeading, Text: r.Text}
	case Keywords:
		return Spec{Type: TypeKeywords, Values: r.Values}
	case ContentType:
		return Spec{Type: TypeContentType, Value: string(r.Type)}
	case Regex:
		s = Spec{Type: TypeRegex}
		if r.Pattern != nil {
			s.Pattern = r.Pattern.String()
		}
		return s
	case Default:
		return Spec{Type: TypeDefault}
	case Never:
		return Spec{Type: r.Kind}
	case Prev:
		return Spec{Expr: "prev(" + Format(r.Rule) + ")"}
	case Next:
		return Spec{Expr: "next(" + Format(r.Rule) + ")"}
	case And:
		s = leafSpec(r.Leaf)
		for _, sub := range r.Rules {
			s.And = append(s.And, ToSpec(sub))
		}
	case Or:
		s = leafSpec(r.Leaf)
		for _, sub := range r.Rules {
			s.Or = append(s.Or, ToSpec(sub))
		}
	case Not:
		s = leafSpec(r.Leaf)
		sub := ToSpec(r.Rule)
		s.Not = &sub
	}
	return s
}

func leafSpec(leaf Rule) Spec {
	if leaf == nil {
		return Spec{}
	}
	return ToSpec(leaf)
}
