package chapter

import (
	"strings"

	"github.com/dgallion1/chaptermap/internal/block"
)

// Funcs resolves the props_func and condition names used in chapter
// files.
type Funcs struct {
	Props      map[string]PropsFunc
	Conditions map[string]Condition
}

// BuiltinFuncs returns the functions available to every chapter file.
func BuiltinFuncs() Funcs {
	return Funcs{
		Props: map[string]PropsFunc{
			"concept_features": ConceptFeatures,
			"block_meta":       BlockMeta,
		},
		Conditions: map[string]Condition{
			"data_trend": DataTrend,
		},
	}
}

// With returns a copy of f with other's entries added on top.
func (f Funcs) With(other Funcs) Funcs {
	out := Funcs{
		Props:      make(map[string]PropsFunc, len(f.Props)+len(other.Props)),
		Conditions: make(map[string]Condition, len(f.Conditions)+len(other.Conditions)),
	}
	for k, v := range f.Props {
		out.Props[k] = v
	}
	for k, v := range other.Props {
		out.Props[k] = v
	}
	for k, v := range f.Conditions {
		out.Conditions[k] = v
	}
	for k, v := range other.Conditions {
		out.Conditions[k] = v
	}
	return out
}

// ConceptFeatures toggles parts of a concept explanation panel depending
// on whether the block looks like it carries a formula or an example.
func ConceptFeatures(b *block.Block, mc *MappingContext) map[string]any {
	var chapterID string
	if mc != nil {
		chapterID = mc.ChapterID
	}
	return map[string]any{
		"showDefinition": true,
		"showFormula":    strings.Contains(b.Content, "=") || strings.Contains(b.Content, "公式"),
		"showExample":    strings.Contains(b.Content, "例如") || strings.Contains(b.Content, "示例"),
		"blockId":        b.ID,
		"chapterSlug":    chapterID,
	}
}

// BlockMeta exposes the block's position and type to the component.
func BlockMeta(b *block.Block, mc *MappingContext) map[string]any {
	props := map[string]any{
		"blockId":   b.ID,
		"blockType": string(b.Type),
	}
	if b.Level > 0 {
		props["level"] = b.Level
	}
	if mc != nil {
		for i := range mc.Blocks {
			if mc.Blocks[i].ID == b.ID {
				props["index"] = i
				props["total"] = len(mc.Blocks)
				break
			}
		}
	}
	return props
}

// DataTrend accepts blocks that talk about data together with a growth,
// proportion or trend.
func DataTrend(b *block.Block, _ *MappingContext) bool {
	c := b.Content
	return strings.Contains(c, "数据") &&
		(strings.Contains(c, "增长") || strings.Contains(c, "比例") || strings.Contains(c, "趋势"))
}
