package chapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/chaptermap/internal/rule"
)

func TestMerge_MappingsOverrideFirst(t *testing.T) {
	x := Mapping{Component: "X", Match: rule.Default{}}
	y := Mapping{Component: "Y", Match: rule.Default{}}

	base := Default()
	base.Mappings = []Mapping{y}
	override := &Config{Mappings: []Mapping{x}}

	merged := Merge(base, override)
	require.Len(t, merged.Mappings, 2)
	assert.Equal(t, "X", merged.Mappings[0].Component)
	assert.Equal(t, "Y", merged.Mappings[1].Component)
}

func TestMerge_Scalars(t *testing.T) {
	override := &Config{
		DefaultComponent: "Fallback",
		Theme: Theme{
			Colors:     Palette{Primary: "#7c3aed"},
			Animations: Animations{Enabled: Bool(false)},
		},
		Layout:      Layout{Type: "sidebar"},
		Interactive: Bool(false),
	}

	merged := Merge(Default(), override)

	assert.Equal(t, "Fallback", merged.DefaultComponent)
	assert.Equal(t, "#7c3aed", merged.Theme.Colors.Primary)
	assert.Equal(t, "#6b7280", merged.Theme.Colors.Secondary, "unset fields keep the base")
	assert.Equal(t, "Fira Code, monospace", merged.Theme.Typography.Monospace)
	assert.Equal(t, "sidebar", merged.Layout.Type)
	require.NotNil(t, merged.Interactive)
	assert.False(t, *merged.Interactive, "false must override true")
	require.NotNil(t, merged.Theme.Animations.Enabled)
	assert.False(t, *merged.Theme.Animations.Enabled)
	assert.Equal(t, "0.3s", merged.Theme.Animations.Duration)
	require.NotNil(t, merged.Analytics.Enabled)
	assert.False(t, *merged.Analytics.Enabled)
}

func TestMerge_ListsBaseFirst(t *testing.T) {
	base := &Config{
		Analytics:   Analytics{Events: []string{"page_view"}},
		GlobalProps: map[string]any{"tags": []any{"a"}, "site": "old", "nested": map[string]any{"x": 1, "y": 2}},
	}
	override := &Config{
		Analytics:   Analytics{Events: []string{"scroll"}},
		GlobalProps: map[string]any{"tags": []any{"b"}, "site": "new", "nested": map[string]any{"y": 3}, "keep": nil},
	}

	merged := Merge(base, override)

	assert.Equal(t, []string{"page_view", "scroll"}, merged.Analytics.Events)
	assert.Equal(t, []any{"a", "b"}, merged.GlobalProps["tags"])
	assert.Equal(t, "new", merged.GlobalProps["site"])
	assert.Equal(t, map[string]any{"x": 1, "y": 3}, merged.GlobalProps["nested"])
	assert.NotContains(t, merged.GlobalProps, "keep", "nil values are undefined")
}

func TestMerge_Registry(t *testing.T) {
	base := &Config{Registry: map[string]RegistryEntry{
		"History": {Path: "@/History", Kind: "client", DefaultProps: map[string]any{"interactive": true}},
	}}
	override := &Config{Registry: map[string]RegistryEntry{
		"History": {ExportName: "HistoryModule", DefaultProps: map[string]any{"showTimeline": true}},
		"Quiz":    {Path: "@/Quiz", Kind: "server"},
	}}

	merged := Merge(base, override)

	assert.Equal(t, RegistryEntry{
		Path:         "@/History",
		Kind:         "client",
		ExportName:   "HistoryModule",
		DefaultProps: map[string]any{"interactive": true, "showTimeline": true},
	}, merged.Registry["History"])
	assert.Equal(t, "@/Quiz", merged.Registry["Quiz"].Path)
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	base := Default()
	base.Mappings = []Mapping{{Component: "Y"}}
	base.GlobalProps = map[string]any{"nested": map[string]any{"k": "base"}}
	override := &Config{
		Mappings:    []Mapping{{Component: "X"}},
		GlobalProps: map[string]any{"nested": map[string]any{"k": "over"}},
		Interactive: Bool(false),
	}

	merged := Merge(base, override)
	merged.GlobalProps["nested"].(map[string]any)["k"] = "changed"
	merged.Registry["New"] = RegistryEntry{Path: "p"}
	*merged.Interactive = true

	assert.Equal(t, "base", base.GlobalProps["nested"].(map[string]any)["k"])
	assert.Equal(t, "over", override.GlobalProps["nested"].(map[string]any)["k"])
	assert.NotContains(t, base.Registry, "New")
	assert.False(t, *override.Interactive)
	assert.Len(t, base.Mappings, 1)
	assert.Len(t, override.Mappings, 1)
	assert.Equal(t, Default(), Merge(Default(), nil))
}

func TestDefault_FreshCopy(t *testing.T) {
	a := Default()
	a.Theme.Colors.Primary = "red"
	*a.Interactive = false
	a.Registry["x"] = RegistryEntry{}

	b := Default()
	assert.Equal(t, "#3b82f6", b.Theme.Colors.Primary)
	assert.True(t, *b.Interactive)
	assert.Empty(t, b.Registry)
	assert.Empty(t, b.Mappings)
	assert.False(t, *b.Analytics.Enabled)
}
