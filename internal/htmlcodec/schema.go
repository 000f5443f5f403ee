package htmlcodec

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/astromechza/da-collab/internal/docmodel"
)

// markTags maps an inline wrapper HTML tag to its schema mark type.
var markTags = map[string]string{
	"strong": docmodel.MarkStrong,
	"b":      docmodel.MarkStrong,
	"em":     docmodel.MarkEm,
	"i":      docmodel.MarkEm,
	"code":   docmodel.MarkCode,
	"sup":    docmodel.MarkSup,
	"sub":    docmodel.MarkSub,
}

var markTagOf = map[string]string{
	docmodel.MarkStrong: "strong",
	docmodel.MarkEm:     "em",
	docmodel.MarkCode:   "code",
	docmodel.MarkSup:    "sup",
	docmodel.MarkSub:    "sub",
}

// htmlBlocksToNodes converts a flat sequence of HTML block-level nodes
// (already block-rewritten, dash-converted, region-wrapped) into the
// structured-document block list. Whitespace-only text nodes between
// blocks are dropped.
func htmlBlocksToNodes(nodes []*html.Node) []*docmodel.Node {
	var out []*docmodel.Node
	for _, n := range nodes {
		if n.Type == html.TextNode {
			if strings.TrimSpace(n.Data) == "" {
				continue
			}
			// Bare inline text at block position: wrap in a paragraph.
			out = append(out, docmodel.NewBlock(docmodel.TypeParagraph, nil, docmodel.NewText(n.Data)))
			continue
		}
		if n.Type != html.ElementNode {
			continue
		}
		if blk := htmlBlockToNode(n); blk != nil {
			out = append(out, blk)
		}
	}
	return out
}

func htmlBlockToNode(n *html.Node) *docmodel.Node {
	if regionType, ok := docmodel.RegionWrapperType[n.Data]; ok {
		return docmodel.NewBlock(regionType, nil, htmlBlocksToNodes(children(n))...)
	}
	switch n.Data {
	case "p":
		return docmodel.NewBlock(docmodel.TypeParagraph, nil, htmlInlineToNodes(n, nil)...)
	case "blockquote":
		return docmodel.NewBlock(docmodel.TypeBlockquote, nil, htmlBlocksToNodes(children(n))...)
	case "hr":
		return docmodel.NewBlock(docmodel.TypeHorizontalRule, nil)
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := n.Data[1:]
		return docmodel.NewBlock(docmodel.TypeHeading, map[string]string{"level": level}, htmlInlineToNodes(n, nil)...)
	case "pre":
		return docmodel.NewBlock(docmodel.TypeCodeBlock, nil, docmodel.NewText(textContent(n)))
	case "ol":
		return docmodel.NewBlock(docmodel.TypeOrderedList, nil, htmlListItems(n)...)
	case "ul":
		return docmodel.NewBlock(docmodel.TypeBulletList, nil, htmlListItems(n)...)
	case "table":
		return htmlTableToNode(n)
	default:
		// Unknown element at block position: treat its inline content as a
		// paragraph rather than dropping it.
		if inline := htmlInlineToNodes(n, nil); len(inline) > 0 {
			return docmodel.NewBlock(docmodel.TypeParagraph, nil, inline...)
		}
		return nil
	}
}

func htmlListItems(list *html.Node) []*docmodel.Node {
	var out []*docmodel.Node
	for _, li := range elementChildren(list) {
		if li.Data != "li" {
			continue
		}
		out = append(out, docmodel.NewBlock(docmodel.TypeListItem, nil, htmlBlocksToNodes(children(li))...))
	}
	return out
}

func htmlTableToNode(table *html.Node) *docmodel.Node {
	var rows []*docmodel.Node
	for _, tr := range elementChildren(table) {
		if tr.Data != "tr" {
			continue
		}
		var cells []*docmodel.Node
		for _, td := range elementChildren(tr) {
			if td.Data != "td" && td.Data != "th" {
				continue
			}
			cells = append(cells, docmodel.NewBlock(docmodel.TypeTableCell, nil, htmlBlocksToNodes(children(td))...))
		}
		rows = append(rows, docmodel.NewBlock(docmodel.TypeTableRow, nil, cells...))
	}
	return docmodel.NewBlock(docmodel.TypeTable, nil, rows...)
}

// htmlInlineToNodes converts the inline content of n into schema inline
// nodes, accumulating the marks contributed by wrapper elements.
func htmlInlineToNodes(n *html.Node, marks []docmodel.Mark) []*docmodel.Node {
	var out []*docmodel.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if c.Data == "" {
				continue
			}
			out = append(out, docmodel.NewText(c.Data, marks...))
		case html.ElementNode:
			switch c.Data {
			case "br":
				out = append(out, &docmodel.Node{Type: docmodel.TypeHardBreak, Marks: marks})
			case "img":
				out = append(out, htmlImageToNode(c, marks))
			case "a":
				href, _ := attrOf(c, "href")
				title, titleOK := attrOf(c, "title")
				attrs := map[string]string{"href": href}
				if titleOK {
					attrs["title"] = title
				}
				nested := append(append([]docmodel.Mark{}, marks...), docmodel.Mark{Type: docmodel.MarkLink, Attrs: attrs})
				out = append(out, htmlInlineToNodes(c, nested)...)
			default:
				if markType, ok := markTags[c.Data]; ok {
					nested := append(append([]docmodel.Mark{}, marks...), docmodel.Mark{Type: markType})
					out = append(out, htmlInlineToNodes(c, nested)...)
				} else {
					out = append(out, htmlInlineToNodes(c, marks)...)
				}
			}
		}
	}
	return out
}

func htmlImageToNode(img *html.Node, marks []docmodel.Mark) *docmodel.Node {
	attrs := map[string]string{}
	if v, ok := attrOf(img, "src"); ok {
		attrs["src"] = v
	}
	if v, ok := attrOf(img, "alt"); ok {
		attrs["alt"] = v
	}
	if v, ok := attrOf(img, "title"); ok {
		attrs["title"] = v
	}
	if v, ok := attrOf(img, "href"); ok {
		attrs["href"] = v
	}
	return &docmodel.Node{Type: docmodel.TypeImage, Attrs: attrs, Marks: marks}
}

// nodeToHTML converts one structured-document block node into its HTML
// representation (the DOM-serializer of spec §4.1 doc2aem rule 1).
func nodeToHTML(n *docmodel.Node) *html.Node {
	if regionTag, ok := docmodel.RegionWrapperTag[n.Type]; ok {
		// The non-editable flag is an editor-only artifact of the schema
		// (spec §4.1): doc2aem strips it from the canonical HTML.
		wrapper := elem(regionTag, nil)
		for _, c := range n.Content {
			wrapper.AppendChild(nodeToHTML(c))
		}
		return wrapper
	}
	switch n.Type {
	case docmodel.TypeParagraph:
		p := elem("p", nil)
		appendInline(p, n.Content)
		return p
	case docmodel.TypeBlockquote:
		bq := elem("blockquote", nil)
		for _, c := range n.Content {
			bq.AppendChild(nodeToHTML(c))
		}
		return bq
	case docmodel.TypeHorizontalRule:
		return elem("hr", nil)
	case docmodel.TypeHeading:
		level, _ := n.Attr("level")
		if level == "" {
			level = "1"
		}
		h := elem("h"+level, nil)
		appendInline(h, n.Content)
		return h
	case docmodel.TypeCodeBlock:
		code := elem("code", nil)
		if len(n.Content) > 0 {
			code.AppendChild(textNode(n.Content[0].Text))
		}
		return elem("pre", nil, code)
	case docmodel.TypeOrderedList:
		return listToHTML("ol", n)
	case docmodel.TypeBulletList:
		return listToHTML("ul", n)
	case docmodel.TypeTable:
		return nodeTableToHTML(n)
	default:
		p := elem("p", nil)
		appendInline(p, n.Content)
		return p
	}
}

func listToHTML(tag string, n *docmodel.Node) *html.Node {
	list := elem(tag, nil)
	for _, li := range n.Content {
		item := elem("li", nil)
		for _, c := range li.Content {
			item.AppendChild(nodeToHTML(c))
		}
		list.AppendChild(item)
	}
	return list
}

func nodeTableToHTML(n *docmodel.Node) *html.Node {
	table := elem("table", nil)
	for _, row := range n.Content {
		tr := elem("tr", nil)
		for _, cell := range row.Content {
			td := elem("td", nil)
			for _, c := range cell.Content {
				td.AppendChild(nodeToHTML(c))
			}
			tr.AppendChild(td)
		}
		table.AppendChild(tr)
	}
	return table
}

// appendInline serializes inline content into parent, wrapping each inline
// node in its own mark tags and rendering images/hard-breaks per spec §4.1
// doc2aem rule 5. Adjacent nodes that share a mark are not merged under one
// tag.
func appendInline(parent *html.Node, content []*docmodel.Node) {
	for _, c := range content {
		parent.AppendChild(inlineNodeToHTML(c))
	}
}

func inlineNodeToHTML(n *docmodel.Node) *html.Node {
	var leaf *html.Node
	switch n.Type {
	case docmodel.TypeText:
		leaf = textNode(n.Text)
	case docmodel.TypeHardBreak:
		leaf = elem("br", nil)
	case docmodel.TypeImage:
		leaf = imageNodeToHTML(n)
	default:
		leaf = textNode("")
	}
	// Marks are listed outermost first (the order htmlInlineToNodes collects
	// them in), so wrap from the last one outwards to keep the nesting.
	for i := len(n.Marks) - 1; i >= 0; i-- {
		m := n.Marks[i]
		if m.Type == docmodel.MarkLink {
			continue // link wrapping is handled by the picture/image renderer or applied last, below
		}
		tag, ok := markTagOf[m.Type]
		if !ok {
			continue
		}
		leaf = elem(tag, nil, leaf)
	}
	if link := n.Mark(docmodel.MarkLink); link != nil && n.Type != docmodel.TypeImage {
		attrs := map[string]string{"href": link.Attrs["href"]}
		if t, ok := link.Attrs["title"]; ok {
			attrs["title"] = t
		}
		leaf = elem("a", attrs, leaf)
	}
	return leaf
}

// imageNodeToHTML renders an image node as a <picture> with two sources plus
// an <img> fallback, optionally wrapped in a hyperlink, per spec §4.1
// doc2aem rule 5.
func imageNodeToHTML(n *docmodel.Node) *html.Node {
	src, _ := n.Attr("src")
	img := elem("img", map[string]string{"src": src})
	if alt, ok := n.Attr("alt"); ok {
		setAttr(img, "alt", alt)
	}
	if _, hasLoading := n.Attr("loading"); !hasLoading {
		setAttr(img, "loading", "lazy")
	}

	wideSource := elem("source", map[string]string{"srcset": src})
	setAttr(wideSource, "media", "(min-width: 600px)")
	picture := elem("picture", nil,
		elem("source", map[string]string{"srcset": src}),
		wideSource,
		img,
	)

	if href, ok := n.Attr("href"); ok {
		attrs := map[string]string{"href": href}
		if title, ok := n.Attr("title"); ok {
			attrs["title"] = title
		}
		return elem("a", attrs, picture)
	}
	return picture
}
