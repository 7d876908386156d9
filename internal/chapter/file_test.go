package chapter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/dgallion1/chaptermap/internal/block"
	"github.com/dgallion1/chaptermap/internal/rule"
)

const sampleYAML = `
componentRegistry:
  Timeline: {path: "@/Timeline", type: client}
layout: {type: sidebar}
interactive: false
componentMappings:
  - name: years
    match: {type: regex, pattern: '\d{4}年'}
    component: Timeline
    props: {dense: true}
    priority: 3
  - match: {expr: 'type(paragraph) & keywords("数据")'}
    component: Chart
    condition: data_trend
    props_func: block_meta
`

func TestDecode(t *testing.T) {
	cfg, err := Decode(strings.NewReader(sampleYAML), BuiltinFuncs())
	require.NoError(t, err)

	assert.Equal(t, "sidebar", cfg.Layout.Type)
	require.NotNil(t, cfg.Interactive)
	assert.False(t, *cfg.Interactive)
	assert.Equal(t, "client", cfg.Registry["Timeline"].Kind)

	require.Len(t, cfg.Mappings, 2)
	years := cfg.Mappings[0]
	assert.Equal(t, "years", years.Name)
	assert.Equal(t, 3.0, years.Priority)
	assert.Equal(t, StaticProps{"dense": true}, years.Props)
	assert.IsType(t, rule.Regex{}, years.Match)

	chart := cfg.Mappings[1]
	assert.Equal(t, "block_meta", chart.PropsFuncName)
	assert.Equal(t, "data_trend", chart.ConditionName)
	require.NotNil(t, chart.Condition)
	assert.True(t, chart.Condition(&block.Block{Content: "数据增长"}, nil))
}

func TestDecode_Empty(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""), Funcs{})
	require.NoError(t, err)
	assert.Empty(t, cfg.Mappings)
}

func TestDecode_UnknownField(t *testing.T) {
	_, err := Decode(strings.NewReader("componentMapings: []\n"), Funcs{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "componentMapings")
}

func TestDecode_AggregatesErrors(t *testing.T) {
	src := `
componentMappings:
  - match: {type: default}
    component: A
    props_func: nope
    condition: missing
  - match: {type: regex, pattern: '('}
    component: B
`
	_, err := Decode(strings.NewReader(src), BuiltinFuncs())
	require.Error(t, err)

	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), `unknown props_func "nope"`)
	assert.Contains(t, errs[0].Error(), `unknown condition "missing"`)
	assert.Contains(t, errs[1].Error(), "componentMappings[1] (B)")
}

func TestDecode_Validation(t *testing.T) {
	src := `
componentRegistry:
  Broken: {type: edge}
layout: {type: custom}
componentMappings:
  - match: {type: default}
    props: {a: 1}
    props_func: block_meta
`
	_, err := Decode(strings.NewReader(src), BuiltinFuncs())
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "Path")
	assert.Contains(t, msg, "Kind")
	assert.Contains(t, msg, "CustomLayout")
	assert.Contains(t, msg, "Component")
	assert.Contains(t, msg, "excluded_with")
}

func TestDirLoader(t *testing.T) {
	fsys := fstest.MapFS{
		"part1/ch1.yaml":        {Data: []byte("layout: {type: fullscreen}\n")},
		"part2/ch10/index.yaml": {Data: []byte("layout: {type: sidebar}\n")},
		"part2/ch9.yml":         {Data: []byte("defaultComponent: X\n")},
		"bad.yaml":              {Data: []byte("layout: {type: diagonal}\n")},
		"README.md":             {Data: []byte("not a chapter")},
	}
	l := &DirLoader{FS: fsys}
	ctx := context.Background()

	cfg, err := l.Load(ctx, " Part1/CH1 ")
	require.NoError(t, err)
	assert.Equal(t, "fullscreen", cfg.Layout.Type)

	cfg, err = l.Load(ctx, "part2/ch10")
	require.NoError(t, err)
	assert.Equal(t, "sidebar", cfg.Layout.Type)

	_, err = l.Load(ctx, "part9/ch9")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = l.Load(ctx, "bad")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))

	_, err = l.Load(ctx, " / ")
	assert.True(t, errors.Is(err, ErrInvalidID))

	ids, err := l.IDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"bad", "part1/ch1", "part2/ch9", "part2/ch10"}, ids)
}

func TestBuiltin(t *testing.T) {
	l := Builtin()
	ids, err := l.IDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"part0/ch0", "part0/ch0-demo", "part1/ch2"}, ids)

	for _, id := range ids {
		cfg, err := l.Load(context.Background(), id)
		require.NoError(t, err, id)
		assert.NotEmpty(t, cfg.Mappings, id)
		for _, m := range cfg.Mappings {
			assert.NotNil(t, m.Match, "%s: %s", id, m.Component)
		}
	}
}

func TestNormalizeID(t *testing.T) {
	tests := map[string]string{
		"part1/ch2":        "part1/ch2",
		"  Part1/CH2  ":    "part1/ch2",
		"part0//ch0-demo/": "part0/ch0-demo",
		"Part 3/Ch 4":      "part-3/ch-4",
	}
	for in, want := range tests {
		got, err := NormalizeID(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := NormalizeID("///")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestCatalogAndChain(t *testing.T) {
	cat := NewCatalog()
	require.NoError(t, cat.Register("Part9/Ch1", &Config{DefaultComponent: "FromCatalog"}))
	assert.Error(t, cat.Register("", &Config{}))
	assert.Equal(t, []string{"part9/ch1"}, cat.IDs())

	fsys := fstest.MapFS{"part9/ch1.yaml": {Data: []byte("defaultComponent: FromFile\n")}}
	chain := Chain{cat, &DirLoader{FS: fsys}}

	cfg, err := chain.Load(context.Background(), "part9/ch1")
	require.NoError(t, err)
	assert.Equal(t, "FromCatalog", cfg.DefaultComponent)

	_, err = chain.Load(context.Background(), "part9/ch2")
	assert.ErrorIs(t, err, ErrNotFound)

	fsys["part10/ch1.yaml"] = &fstest.MapFile{Data: []byte("{}\n")}
	ids, err := chain.IDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"part9/ch1", "part10/ch1"}, ids)
}

func TestConceptFeatures(t *testing.T) {
	b := &block.Block{ID: "b7", Content: "定律的公式，例如 E = hv"}
	props := ConceptFeatures(b, &MappingContext{ChapterID: "part1/ch2"})
	assert.Equal(t, map[string]any{
		"showDefinition": true,
		"showFormula":    true,
		"showExample":    true,
		"blockId":        "b7",
		"chapterSlug":    "part1/ch2",
	}, props)
}

func TestDataTrend(t *testing.T) {
	assert.True(t, DataTrend(&block.Block{Content: "数据显示比例上升"}, nil))
	assert.False(t, DataTrend(&block.Block{Content: "数据"}, nil))
	assert.False(t, DataTrend(&block.Block{Content: "增长趋势"}, nil))
}
