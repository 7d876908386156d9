package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Directive is an explicit component insertion: [component:Name](k:v, ...).
type Directive struct {
	Name  string
	Props map[string]any
}

var directiveRe = regexp.MustCompile(`\[component:([^\]]+)\]\(([^)]*)\)`)

// parseDirective finds the first component directive anywhere on line.
func parseDirective(line string) (Directive, bool) {
	if !strings.Contains(line, "[component:") {
		return Directive{}, false
	}
	m := directiveRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return Directive{}, false
	}
	name := strings.TrimSpace(m[1])
	if name == "" {
		return Directive{}, false
	}
	return Directive{Name: name, Props: parseArgs(m[2])}, true
}

// parseArgs splits "k:v, k2:v2" on commas and then on the first colon of
// each pair. Pairs with an empty key or value are skipped.
func parseArgs(s string) map[string]any {
	props := make(map[string]any)
	s = strings.TrimSpace(s)
	if s == "" {
		return props
	}
	for _, pair := range strings.Split(s, ",") {
		key, value, _ := strings.Cut(pair, ":")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		props[key] = coerce(value)
	}
	return props
}

// coerce turns an argument literal into a number, a bool, an unquoted
// string, or leaves it as the raw string.
func coerce(v string) any {
	if !strings.ContainsRune(v, '_') {
		if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return f
		}
	}
	switch {
	case strings.EqualFold(v, "true"):
		return true
	case strings.EqualFold(v, "false"):
		return false
	}
	if len(v) >= 2 {
		first, last := v[0], v[len(v)-1]
		if (first == '"' || first == '\'') && first == last {
			return v[1 : len(v)-1]
		}
	}
	return v
}
