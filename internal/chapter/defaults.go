package chapter

// Default returns a fresh copy of the baseline configuration every chapter
// override is merged onto. It maps nothing; chapters bring their own
// mappings and registry.
func Default() *Config {
	return &Config{
		Mappings: []Mapping{},
		Registry: map[string]RegistryEntry{},
		Theme: Theme{
			Colors: Palette{
				Primary:    "#3b82f6",
				Secondary:  "#6b7280",
				Accent:     "#10b981",
				Background: "#ffffff",
				Text:       "#111827",
			},
			Typography: Typography{
				Heading:   "Inter, sans-serif",
				Body:      "Inter, sans-serif",
				Monospace: "Fira Code, monospace",
			},
			Spacing: Spacing{
				Small:  "0.5rem",
				Medium: "1rem",
				Large:  "1.5rem",
				XLarge: "2rem",
			},
			Animations: Animations{Enabled: Bool(true), Duration: "0.3s"},
		},
		Layout:      Layout{Type: "default"},
		Interactive: Bool(true),
		Analytics:   Analytics{Enabled: Bool(false)},
	}
}
