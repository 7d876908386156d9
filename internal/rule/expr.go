package rule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/dgallion1/chaptermap/internal/block"
)

// Expression grammar:
//
//	expr    = and { "|" and }
//	and     = unary { "&" unary }
//	unary   = "!" unary | primary
//	primary = "(" expr ")" | ("prev" | "next") "(" expr ")" | call
//	call    = ident "(" [ arg { "," arg } ] ")"
//
//nolint:govet // participle grammar tags are not standard struct tags
type dslExpr struct {
	Or []*dslAnd `@@ ( "|" @@ )*`
}

//nolint:govet
type dslAnd struct {
	And []*dslUnary `@@ ( "&" @@ )*`
}

//nolint:govet
type dslUnary struct {
	Not     *dslUnary   `  "!" @@`
	Primary *dslPrimary `| @@`
}

//nolint:govet
type dslPrimary struct {
	Group    *dslExpr     `  "(" @@ ")"`
	Neighbor *dslNeighbor `| @@`
	Call     *dslCall     `| @@`
}

//nolint:govet
type dslNeighbor struct {
	Dir  string   `@("prev" | "next")`
	Expr *dslExpr `"(" @@ ")"`
}

//nolint:govet
type dslCall struct {
	Pos  lexer.Position
	Name string   `@Ident`
	Args []string `"(" ( @(String | RawString | Ident) ( "," @(String | RawString | Ident) )* )? ")"`
}

var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "RawString", Pattern: "`[^`]*`"},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[()&|!,]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var exprParser = participle.MustBuild[dslExpr](
	participle.Lexer(exprLexer),
	participle.Unquote("String"),
	participle.Map(func(t lexer.Token) (lexer.Token, error) {
		t.Value = t.Value[1 : len(t.Value)-1]
		return t, nil
	}, "RawString"),
	participle.Elide("Whitespace"),
)

// ParseExpr compiles a rule expression such as
//
//	heading("摩尔定律") | (keywords("晶体管", "芯片") & !type(code))
//
// Strings are double-quoted (Go escapes) or back-quoted (raw).
func ParseExpr(src string) (Rule, error) {
	ast, err := exprParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("parse expr: %w", err)
	}
	return ast.rule()
}

func (e *dslExpr) rule() (Rule, error) {
	rules := make([]Rule, 0, len(e.Or))
	for _, a := range e.Or {
		r, err := a.rule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	if len(rules) == 1 {
		return rules[0], nil
	}
	return Or{Rules: rules}, nil
}

func (a *dslAnd) rule() (Rule, error) {
	rules := make([]Rule, 0, len(a.And))
	for _, u := range a.And {
		r, err := u.rule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	if len(rules) == 1 {
		return rules[0], nil
	}
	return And{Rules: rules}, nil
}

func (u *dslUnary) rule() (Rule, error) {
	if u.Not != nil {
		r, err := u.Not.rule()
		if err != nil {
			return nil, err
		}
		return Not{Rule: r}, nil
	}
	return u.Primary.rule()
}

func (p *dslPrimary) rule() (Rule, error) {
	switch {
	case p.Group != nil:
		return p.Group.rule()
	case p.Neighbor != nil:
		r, err := p.Neighbor.Expr.rule()
		if err != nil {
			return nil, err
		}
		if p.Neighbor.Dir == "prev" {
			return Prev{Rule: r}, nil
		}
		return Next{Rule: r}, nil
	default:
		return p.Call.rule()
	}
}

func (c *dslCall) rule() (Rule, error) {
	arity := func(n int) error {
		if len(c.Args) != n {
			return fmt.Errorf("%s: %s() takes %d argument(s), got %d", c.Pos, c.Name, n, len(c.Args))
		}
		return nil
	}

	switch c.Name {
	case TypeHeading:
		if err := arity(1); err != nil {
			return nil, err
		}
		return Heading{Text: c.Args[0]}, nil
	case TypeKeywords:
		if len(c.Args) == 0 {
			return nil, fmt.Errorf("%s: keywords() needs at least one value", c.Pos)
		}
		return Keywords{Values: c.Args}, nil
	case "type", TypeContentType:
		if err := arity(1); err != nil {
			return nil, err
		}
		t := block.Type(c.Args[0])
		if !t.Valid() {
			return nil, fmt.Errorf("%s: unknown content type %q", c.Pos, c.Args[0])
		}
		return ContentType{Type: t}, nil
	case TypeRegex:
		if err := arity(1); err != nil {
			return nil, err
		}
		re, err := regexp.Compile(c.Args[0])
		if err != nil {
			return nil, fmt.Errorf("%s: compile pattern: %w", c.Pos, err)
		}
		return Regex{Pattern: re}, nil
	case TypeDefault:
		if err := arity(0); err != nil {
			return nil, err
		}
		return Default{}, nil
	}
	return nil, fmt.Errorf("%s: unknown function %q", c.Pos, c.Name)
}

// Format renders r in expression syntax. Declared leaves on composites
// are not part of the expression language and are omitted.
func Format(r Rule) string {
	switch r := r.(type) {
	case Heading:
		return "heading(" + strconv.Quote(r.Text) + ")"
	case Keywords:
		quoted := make([]string, len(r.Values))
		for i, v := range r.Values {
			quoted[i] = strconv.Quote(v)
		}
		return "keywords(" + strings.Join(quoted, ", ") + ")"
	case ContentType:
		return "type(" + string(r.Type) + ")"
	case Regex:
		if r.Pattern == nil {
			return "!default()"
		}
		return "regex(" + strconv.Quote(r.Pattern.String()) + ")"
	case Default:
		return "default()"
	case Never:
		return "!default()"
	case Prev:
		return "prev(" + Format(r.Rule) + ")"
	case Next:
		return "next(" + Format(r.Rule) + ")"
	case Not:
		return "!" + formatOperand(r.Rule)
	case And:
		return joinFormatted(r.Rules, " & ")
	case Or:
		return joinFormatted(r.Rules, " | ")
	}
	return "!default()"
}

func joinFormatted(rules []Rule, sep string) string {
	parts := make([]string, len(rules))
	for i, sub := range rules {
		parts[i] = formatOperand(sub)
	}
	return strings.Join(parts, sep)
}

// formatOperand parenthesises composites so the output reparses to the
// same tree.
func formatOperand(r Rule) string {
	switch r.(type) {
	case And, Or:
		return "(" + Format(r) + ")"
	}
	return Format(r)
}
