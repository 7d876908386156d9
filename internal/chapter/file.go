package chapter

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/maruel/natural"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/chaptermap/internal/rule"
)

// Document is the on-disk form of a chapter override.
type Document struct {
	Mappings         []MappingDoc             `yaml:"componentMappings" validate:"dive"`
	Registry         map[string]RegistryEntry `yaml:"componentRegistry" validate:"dive"`
	DefaultComponent string                   `yaml:"defaultComponent"`
	Theme            Theme                    `yaml:"theme"`
	Layout           Layout                   `yaml:"layout"`
	GlobalProps      map[string]any           `yaml:"globalProps"`
	Interactive      *bool                    `yaml:"interactive"`
	Analytics        Analytics                `yaml:"analytics"`
	I18n             I18n                     `yaml:"i18n"`
}

// MappingDoc is one entry of componentMappings. Dynamic props and
// conditions refer to Funcs by name.
type MappingDoc struct {
	Name      string         `yaml:"name"`
	Match     rule.Spec      `yaml:"match"`
	Component string         `yaml:"component" validate:"required"`
	Props     map[string]any `yaml:"props" validate:"excluded_with=PropsFunc"`
	PropsFunc string         `yaml:"props_func"`
	Priority  float64        `yaml:"priority"`
	Condition string         `yaml:"condition"`
	ClassName string         `yaml:"className"`
	Lazy      bool           `yaml:"lazy"`
	Fallback  string         `yaml:"fallback"`
}

// Decode reads a chapter override from YAML. Unknown keys, failed
// validation, bad rules and unknown function names are all errors; every
// problem found is reported.
func Decode(r io.Reader, funcs Funcs) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return doc.Compile(funcs)
}

// Compile validates d and turns it into a Config.
func (d *Document) Compile(funcs Funcs) (*Config, error) {
	if err := validateStruct(d); err != nil {
		return nil, err
	}

	cfg := &Config{
		Registry:         d.Registry,
		DefaultComponent: d.DefaultComponent,
		Theme:            d.Theme,
		Layout:           d.Layout,
		GlobalProps:      d.GlobalProps,
		Interactive:      d.Interactive,
		Analytics:        d.Analytics,
		I18n:             d.I18n,
	}

	var errs error
	for i, md := range d.Mappings {
		m, err := md.compile(funcs)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("componentMappings[%d] (%s): %w", i, md.Component, err))
			continue
		}
		cfg.Mappings = append(cfg.Mappings, m)
	}
	if errs != nil {
		return nil, errs
	}
	return cfg, nil
}

func (md MappingDoc) compile(funcs Funcs) (Mapping, error) {
	m := Mapping{
		Name:          md.Name,
		Component:     md.Component,
		Priority:      md.Priority,
		ClassName:     md.ClassName,
		Lazy:          md.Lazy,
		Fallback:      md.Fallback,
		PropsFuncName: md.PropsFunc,
		ConditionName: md.Condition,
	}

	var errs error
	match, err := rule.Compile(md.Match)
	errs = multierr.Append(errs, err)
	m.Match = match

	switch {
	case md.PropsFunc != "":
		fn, ok := funcs.Props[md.PropsFunc]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("unknown props_func %q", md.PropsFunc))
		}
		m.Props = fn
	case md.Props != nil:
		m.Props = StaticProps(md.Props)
	}

	if md.Condition != "" {
		fn, ok := funcs.Conditions[md.Condition]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("unknown condition %q", md.Condition))
		}
		m.Condition = fn
	}
	return m, errs
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs the struct tags and flattens the result so each
// failing field is its own error.
func validateStruct(v any) error {
	err := validate.Struct(v)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	var errs error
	for _, fe := range verrs {
		errs = multierr.Append(errs, fmt.Errorf("%s: failed %q check", fe.Namespace(), fe.Tag()))
	}
	return errs
}

//go:embed builtin
var builtinFS embed.FS

// Builtin returns a loader for the chapter overrides shipped with the
// binary.
func Builtin() *DirLoader {
	sub, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		panic(err)
	}
	return &DirLoader{FS: sub, Funcs: BuiltinFuncs()}
}

// Layered puts the YAML files under dir, when dir is set, in front of the
// built-in chapters.
func Layered(dir string) Chain {
	if dir == "" {
		return Chain{Builtin()}
	}
	return Chain{&DirLoader{FS: os.DirFS(dir), Funcs: BuiltinFuncs()}, Builtin()}
}

// DirLoader loads overrides from YAML files: <id>.yaml or <id>/index.yaml
// under FS.
type DirLoader struct {
	FS    fs.FS
	Funcs Funcs
}

func (l *DirLoader) Load(ctx context.Context, id string) (*Config, error) {
	key, err := NormalizeID(id)
	if err != nil {
		return nil, err
	}
	for _, name := range []string{key + ".yaml", key + ".yml", path.Join(key, "index.yaml")} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := fs.ReadFile(l.FS, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		cfg, err := Decode(bytes.NewReader(data), l.Funcs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return cfg, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
}

// IDs lists every chapter id the loader can serve, in natural order.
func (l *DirLoader) IDs() ([]string, error) {
	var ids []string
	err := fs.WalkDir(l.FS, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := path.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		id := strings.TrimSuffix(p, ext)
		if path.Base(id) == "index" {
			id = path.Dir(id)
		}
		if id != "." {
			ids = append(ids, id)
		}
		return nil
	})
	sort.Sort(natural.StringSlice(ids))
	return ids, err
}
