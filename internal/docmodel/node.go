// Package docmodel defines the structured-document tree that the CRDT
// engine replicates and the HTML codec converts to and from. It is a
// minimal, direct port of the block/inline/mark schema described by the
// spec: no external structured-document library exists in the Go
// ecosystem examples retrieved for this project, so the schema is
// expressed here as plain Go types instead.
package docmodel

// Mark is an inline annotation attached to a Node (bold, link, etc).
type Mark struct {
	Type  string
	Attrs map[string]string
}

// Node is one element of the structured document tree. Block nodes carry
// Content; inline text nodes carry Text and Marks.
type Node struct {
	Type    string
	Attrs   map[string]string
	Content []*Node
	Text    string
	Marks   []Mark
}

// NewBlock builds a block node with the given children.
func NewBlock(typ string, attrs map[string]string, content ...*Node) *Node {
	return &Node{Type: typ, Attrs: attrs, Content: content}
}

// NewText builds an inline text node carrying the given marks.
func NewText(text string, marks ...Mark) *Node {
	return &Node{Type: TypeText, Text: text, Marks: marks}
}

// Attr returns the named attribute, or "" with ok=false.
func (n *Node) Attr(name string) (string, bool) {
	if n == nil || n.Attrs == nil {
		return "", false
	}
	v, ok := n.Attrs[name]
	return v, ok
}

// Mark returns the first mark of the given type, or nil.
func (n *Node) Mark(typ string) *Mark {
	for i := range n.Marks {
		if n.Marks[i].Type == typ {
			return &n.Marks[i]
		}
	}
	return nil
}

// IsText reports whether the node is an inline text leaf.
func (n *Node) IsText() bool { return n.Type == TypeText }

// Clone deep-copies a node tree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	cp := &Node{Type: n.Type, Text: n.Text}
	if n.Attrs != nil {
		cp.Attrs = make(map[string]string, len(n.Attrs))
		for k, v := range n.Attrs {
			cp.Attrs[k] = v
		}
	}
	if n.Marks != nil {
		cp.Marks = make([]Mark, len(n.Marks))
		for i, m := range n.Marks {
			mc := Mark{Type: m.Type}
			if m.Attrs != nil {
				mc.Attrs = make(map[string]string, len(m.Attrs))
				for k, v := range m.Attrs {
					mc.Attrs[k] = v
				}
			}
			cp.Marks[i] = mc
		}
	}
	if n.Content != nil {
		cp.Content = make([]*Node, len(n.Content))
		for i, c := range n.Content {
			cp.Content[i] = c.Clone()
		}
	}
	return cp
}
