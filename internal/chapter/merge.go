package chapter

// Merge lays override on top of base and returns a new Config; neither
// input is modified and the result shares no maps or slices with them.
//
// Nested structs and maps merge field by field. Mappings are
// concatenated override first so chapter rules precede the baseline's on
// equal scores; every other list is concatenated base first. A scalar in
// override replaces base only when set (non-empty string, non-nil
// pointer, non-nil map value).
func Merge(base, override *Config) *Config {
	if base == nil {
		base = &Config{}
	}
	if override == nil {
		override = &Config{}
	}

	out := &Config{
		Mappings:         make([]Mapping, 0, len(override.Mappings)+len(base.Mappings)),
		Registry:         mergeRegistry(base.Registry, override.Registry),
		DefaultComponent: str(base.DefaultComponent, override.DefaultComponent),
		Theme:            mergeTheme(base.Theme, override.Theme),
		Layout: Layout{
			Type:         str(base.Layout.Type, override.Layout.Type),
			CustomLayout: str(base.Layout.CustomLayout, override.Layout.CustomLayout),
		},
		GlobalProps: mergeMaps(base.GlobalProps, override.GlobalProps),
		Interactive: flag(base.Interactive, override.Interactive),
		Analytics: Analytics{
			Enabled: flag(base.Analytics.Enabled, override.Analytics.Enabled),
			Events:  concat(base.Analytics.Events, override.Analytics.Events),
		},
		I18n: I18n{
			DefaultLocale:    str(base.I18n.DefaultLocale, override.I18n.DefaultLocale),
			SupportedLocales: concat(base.I18n.SupportedLocales, override.I18n.SupportedLocales),
		},
	}
	out.Mappings = append(out.Mappings, override.Mappings...)
	out.Mappings = append(out.Mappings, base.Mappings...)
	return out
}

func str(base, over string) string {
	if over != "" {
		return over
	}
	return base
}

func flag(base, over *bool) *bool {
	switch {
	case over != nil:
		return Bool(*over)
	case base != nil:
		return Bool(*base)
	}
	return nil
}

func concat[T any](base, over []T) []T {
	if base == nil && over == nil {
		return nil
	}
	out := make([]T, 0, len(base)+len(over))
	out = append(out, base...)
	return append(out, over...)
}

func mergeTheme(base, over Theme) Theme {
	return Theme{
		Colors: Palette{
			Primary:    str(base.Colors.Primary, over.Colors.Primary),
			Secondary:  str(base.Colors.Secondary, over.Colors.Secondary),
			Accent:     str(base.Colors.Accent, over.Colors.Accent),
			Background: str(base.Colors.Background, over.Colors.Background),
			Text:       str(base.Colors.Text, over.Colors.Text),
		},
		Typography: Typography{
			Heading:   str(base.Typography.Heading, over.Typography.Heading),
			Body:      str(base.Typography.Body, over.Typography.Body),
			Monospace: str(base.Typography.Monospace, over.Typography.Monospace),
		},
		Spacing: Spacing{
			Small:  str(base.Spacing.Small, over.Spacing.Small),
			Medium: str(base.Spacing.Medium, over.Spacing.Medium),
			Large:  str(base.Spacing.Large, over.Spacing.Large),
			XLarge: str(base.Spacing.XLarge, over.Spacing.XLarge),
		},
		Animations: Animations{
			Enabled:  flag(base.Animations.Enabled, over.Animations.Enabled),
			Duration: str(base.Animations.Duration, over.Animations.Duration),
		},
	}
}

func mergeRegistry(base, over map[string]RegistryEntry) map[string]RegistryEntry {
	if base == nil && over == nil {
		return nil
	}
	out := make(map[string]RegistryEntry, len(base)+len(over))
	for name, e := range base {
		out[name] = RegistryEntry{
			Path:         e.Path,
			Kind:         e.Kind,
			ExportName:   e.ExportName,
			DefaultProps: mergeMaps(e.DefaultProps, nil),
		}
	}
	for name, o := range over {
		b := out[name]
		out[name] = RegistryEntry{
			Path:         str(b.Path, o.Path),
			Kind:         str(b.Kind, o.Kind),
			ExportName:   str(b.ExportName, o.ExportName),
			DefaultProps: mergeMaps(b.DefaultProps, o.DefaultProps),
		}
	}
	return out
}

// mergeMaps deep-merges free-form property maps: nested maps recurse,
// lists concatenate base first, nil override values keep the base.
func mergeMaps(base, over map[string]any) map[string]any {
	if base == nil && over == nil {
		return nil
	}
	out := make(map[string]any, len(base)+len(over))
	for k, v := range base {
		out[k] = cloneValue(v)
	}
	for k, ov := range over {
		if ov == nil {
			continue
		}
		bv, exists := out[k]
		if !exists {
			out[k] = cloneValue(ov)
			continue
		}
		bm, bIsMap := bv.(map[string]any)
		om, oIsMap := ov.(map[string]any)
		if bIsMap && oIsMap {
			out[k] = mergeMaps(bm, om)
			continue
		}
		bs, bIsList := bv.([]any)
		ol, oIsList := ov.([]any)
		if bIsList && oIsList {
			out[k] = concat(bs, cloneValue(ol).([]any))
			continue
		}
		out[k] = cloneValue(ov)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return mergeMaps(v, nil)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}
