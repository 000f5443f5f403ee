package docmodel

// Block node type names, per spec §4.1.
const (
	TypeDoc            = "doc"
	TypeParagraph      = "paragraph"
	TypeBlockquote     = "blockquote"
	TypeHorizontalRule = "horizontal_rule"
	TypeHeading        = "heading"
	TypeCodeBlock      = "code_block"
	TypeOrderedList    = "ordered_list"
	TypeBulletList     = "bullet_list"
	TypeListItem       = "list_item"
	TypeTable          = "table"
	TypeTableRow       = "table_row"
	TypeTableCell      = "table_cell"
	TypeLocAdded       = "loc_added"
	TypeLocDeleted     = "loc_deleted"
)

// Inline node type names.
const (
	TypeText      = "text"
	TypeImage     = "image"
	TypeHardBreak = "hard_break"
)

// Mark type names.
const (
	MarkLink                = "link"
	MarkEm                  = "em"
	MarkStrong              = "strong"
	MarkCode                = "code"
	MarkSup                 = "sup"
	MarkSub                 = "sub"
	MarkContextHighlighting = "contextHighlightingMark"
)

// blockNodeNames lists every block-level node type, used by the codec to
// decide whether an arbitrary structured-document value is a block.
var blockNodeNames = map[string]bool{
	TypeDoc: true, TypeParagraph: true, TypeBlockquote: true,
	TypeHorizontalRule: true, TypeHeading: true, TypeCodeBlock: true,
	TypeOrderedList: true, TypeBulletList: true, TypeListItem: true,
	TypeTable: true, TypeTableRow: true, TypeTableCell: true,
	TypeLocAdded: true, TypeLocDeleted: true,
}

// IsBlockType reports whether typ names a block node.
func IsBlockType(typ string) bool { return blockNodeNames[typ] }

// RegionWrapperTag maps a region-edit block type to its custom HTML tag.
var RegionWrapperTag = map[string]string{
	TypeLocAdded:   "da-loc-added",
	TypeLocDeleted: "da-loc-deleted",
}

// RegionWrapperType is the inverse of RegionWrapperTag.
var RegionWrapperType = map[string]string{
	"da-loc-added":   TypeLocAdded,
	"da-loc-deleted": TypeLocDeleted,
}

// HeadingLevels is the valid range for the heading "level" attribute.
const (
	MinHeadingLevel = 1
	MaxHeadingLevel = 6
)

// NewDoc wraps the given top-level blocks in a doc root node.
func NewDoc(blocks ...*Node) *Node {
	return &Node{Type: TypeDoc, Content: blocks}
}
