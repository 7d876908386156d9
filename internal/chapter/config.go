// Package chapter holds per-chapter mapping configuration: the types, the
// baseline default, the merge of a chapter override onto it, the loaders
// that find overrides, and the cache in front of them.
package chapter

import (
	"encoding/json"

	"github.com/dgallion1/chaptermap/internal/block"
	"github.com/dgallion1/chaptermap/internal/rule"
)

// MappingContext is passed to dynamic props and conditions.
type MappingContext struct {
	ChapterID string
	Blocks    []block.Block
	Config    *Config
}

// Props produces the properties handed to a mapped component.
type Props interface {
	Resolve(b *block.Block, mc *MappingContext) map[string]any
}

// StaticProps are passed through unchanged.
type StaticProps map[string]any

func (p StaticProps) Resolve(*block.Block, *MappingContext) map[string]any { return p }

// PropsFunc computes props from the block and its surroundings. It must
// not modify its arguments.
type PropsFunc func(b *block.Block, mc *MappingContext) map[string]any

func (f PropsFunc) Resolve(b *block.Block, mc *MappingContext) map[string]any { return f(b, mc) }

// Condition vetoes a winning mapping when it returns false.
type Condition func(b *block.Block, mc *MappingContext) bool

// Mapping routes blocks matching Match to Component.
type Mapping struct {
	Name      string
	Match     rule.Rule
	Component string
	Props     Props
	Priority  float64
	Condition Condition
	ClassName string
	Lazy      bool
	Fallback  string

	// Names of the registered functions behind Props and Condition when
	// the mapping was loaded from a file. Informational only.
	PropsFuncName string
	ConditionName string
}

// MarshalJSON renders the mapping in its configuration form. Functions
// appear by registered name.
func (m Mapping) MarshalJSON() ([]byte, error) {
	type out struct {
		Name      string         `json:"name,omitempty"`
		Match     rule.Spec      `json:"match"`
		Component string         `json:"component"`
		Props     map[string]any `json:"props,omitempty"`
		PropsFunc string         `json:"propsFunc,omitempty"`
		Priority  float64        `json:"priority"`
		Condition string         `json:"condition,omitempty"`
		ClassName string         `json:"className,omitempty"`
		Lazy      bool           `json:"lazy,omitempty"`
		Fallback  string         `json:"fallback,omitempty"`
	}
	o := out{
		Name:      m.Name,
		Match:     rule.ToSpec(m.Match),
		Component: m.Component,
		PropsFunc: m.PropsFuncName,
		Priority:  m.Priority,
		Condition: m.ConditionName,
		ClassName: m.ClassName,
		Lazy:      m.Lazy,
		Fallback:  m.Fallback,
	}
	if sp, ok := m.Props.(StaticProps); ok {
		o.Props = sp
	} else if m.Props != nil && o.PropsFunc == "" {
		o.PropsFunc = "<func>"
	}
	if m.Condition != nil && o.Condition == "" {
		o.Condition = "<func>"
	}
	return json.Marshal(o)
}

// RegistryEntry tells the renderer where a component lives.
type RegistryEntry struct {
	Path         string         `yaml:"path" json:"path,omitempty" validate:"required"`
	Kind         string         `yaml:"type" json:"type,omitempty" validate:"omitempty,oneof=client server"`
	ExportName   string         `yaml:"exportName" json:"exportName,omitempty"`
	DefaultProps map[string]any `yaml:"defaultProps" json:"defaultProps,omitempty"`
}

type Palette struct {
	Primary    string `yaml:"primary" json:"primary,omitempty"`
	Secondary  string `yaml:"secondary" json:"secondary,omitempty"`
	Accent     string `yaml:"accent" json:"accent,omitempty"`
	Background string `yaml:"background" json:"background,omitempty"`
	Text       string `yaml:"text" json:"text,omitempty"`
}

type Typography struct {
	Heading   string `yaml:"heading" json:"heading,omitempty"`
	Body      string `yaml:"body" json:"body,omitempty"`
	Monospace string `yaml:"monospace" json:"monospace,omitempty"`
}

type Spacing struct {
	Small  string `yaml:"small" json:"small,omitempty"`
	Medium string `yaml:"medium" json:"medium,omitempty"`
	Large  string `yaml:"large" json:"large,omitempty"`
	XLarge string `yaml:"xlarge" json:"xlarge,omitempty"`
}

type Animations struct {
	Enabled  *bool  `yaml:"enabled" json:"enabled,omitempty"`
	Duration string `yaml:"duration" json:"duration,omitempty"`
}

// Theme is read by the theming collaborator; the engine only carries it.
type Theme struct {
	Colors     Palette    `yaml:"colors" json:"colors"`
	Typography Typography `yaml:"typography" json:"typography"`
	Spacing    Spacing    `yaml:"spacing" json:"spacing"`
	Animations Animations `yaml:"animations" json:"animations"`
}

type Layout struct {
	Type         string `yaml:"type" json:"type,omitempty" validate:"omitempty,oneof=default sidebar fullscreen custom"`
	CustomLayout string `yaml:"customLayout" json:"customLayout,omitempty" validate:"required_if=Type custom"`
}

type Analytics struct {
	Enabled *bool    `yaml:"enabled" json:"enabled,omitempty"`
	Events  []string `yaml:"events" json:"events,omitempty" validate:"dive,required"`
}

type I18n struct {
	DefaultLocale    string   `yaml:"defaultLocale" json:"defaultLocale,omitempty"`
	SupportedLocales []string `yaml:"supportedLocales" json:"supportedLocales,omitempty" validate:"dive,required"`
}

// Config is a chapter's complete mapping configuration. The same type is
// used for the baseline, for partial overrides and for merged results:
// empty strings, nil pointers and nil maps mean "not set".
type Config struct {
	Mappings         []Mapping                `json:"componentMappings"`
	Registry         map[string]RegistryEntry `json:"componentRegistry"`
	DefaultComponent string                   `json:"defaultComponent,omitempty"`
	Theme            Theme                    `json:"theme"`
	Layout           Layout                   `json:"layout"`
	GlobalProps      map[string]any           `json:"globalProps,omitempty"`
	Interactive      *bool                    `json:"interactive,omitempty"`
	Analytics        Analytics                `json:"analytics"`
	I18n             I18n                     `json:"i18n"`
}

// Bool returns a pointer to v, for filling optional flags.
func Bool(v bool) *bool { return &v }
