package block

// Type is the structural kind of a content block.
type Type string

const (
	Heading    Type = "heading"
	Paragraph  Type = "paragraph"
	List       Type = "list"
	Blockquote Type = "blockquote"
	Code       Type = "code"
	Formula    Type = "formula"
	Component  Type = "component"
)

// Types lists every block type in declaration order.
var Types = []Type{Heading, Paragraph, List, Blockquote, Code, Formula, Component}

// Valid reports whether t is one of the known block types.
func (t Type) Valid() bool {
	for _, k := range Types {
		if k == t {
			return true
		}
	}
	return false
}

// Block is one structurally classified unit of parsed chapter text.
type Block struct {
	ID      string `json:"id"`
	Type    Type   `json:"type"`
	Content string `json:"content"`
	Level   int    `json:"level,omitempty"` // Heading depth, 1-6

	// Set only for explicit component insertions.
	ComponentName  string         `json:"componentName,omitempty"`
	ComponentProps map[string]any `json:"componentProps,omitempty"`
}

// Mergeable reports whether adjacent blocks of this type may be joined.
func (b *Block) Mergeable() bool {
	return b.Type != Heading && b.Type != Component
}
