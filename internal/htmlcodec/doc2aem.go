package htmlcodec

import (
	"golang.org/x/net/html"

	"github.com/astromechza/da-collab/internal/docmodel"
)

// Doc2Aem converts a structured document tree back into the canonical
// envelope HTML string, per spec §4.1 "Document → HTML (doc2aem) rules".
func Doc2Aem(doc *docmodel.Node) string {
	flat := make([]*html.Node, 0, len(doc.Content))
	for _, blk := range doc.Content {
		flat = append(flat, nodeToHTML(blk))
	}

	scratch := elem("div", nil, flat...)
	rewriteTablesToBlocks(scratch)
	unwrapSoleImageParagraphs(scratch)
	unwrapSoleParagraphListItems(scratch)

	sections := splitAtHorizontalRules(children(scratch))
	sectionDivs := make([]*html.Node, 0, len(sections))
	for _, secNodes := range sections {
		div := elem("div", nil)
		for _, n := range secNodes {
			detach(n)
			div.AppendChild(n)
		}
		sectionDivs = append(sectionDivs, div)
	}

	return wrapEnvelope(renderNodes(sectionDivs))
}

// splitAtHorizontalRules splits nodes into sections wherever an <hr>
// appears, dropping the <hr> itself and an empty <p> directly on either side
// of it (the separators Aem2Doc inserts between sections), per spec §4.1
// doc2aem rule 4.
func splitAtHorizontalRules(nodes []*html.Node) [][]*html.Node {
	var sections [][]*html.Node
	var current []*html.Node
	for i, n := range nodes {
		if isElement(n, "hr") {
			sections = append(sections, current)
			current = nil
			continue
		}
		if isElement(n, "p") && n.FirstChild == nil &&
			((i > 0 && isElement(nodes[i-1], "hr")) || (i+1 < len(nodes) && isElement(nodes[i+1], "hr"))) {
			continue
		}
		current = append(current, n)
	}
	sections = append(sections, current)
	return sections
}

// unwrapSoleImageParagraphs unwraps a <p> whose only child is a <picture>
// (or an anchor-wrapped <picture>), per spec §4.1 doc2aem rule 5.
func unwrapSoleImageParagraphs(n *html.Node) {
	for _, c := range elementChildren(n) {
		if c.Data == "p" && c.FirstChild != nil && c.FirstChild == c.LastChild {
			only := c.FirstChild
			if isElement(only, "picture") || (isElement(only, "a") && isElement(only.FirstChild, "picture")) {
				detach(only)
				replaceWith(c, only)
				continue
			}
		}
		unwrapSoleImageParagraphs(c)
	}
}

// unwrapSoleParagraphListItems prints a <li> whose sole child is a <p>
// directly, per spec §4.1 doc2aem rule 5.
func unwrapSoleParagraphListItems(n *html.Node) {
	for _, c := range elementChildren(n) {
		if c.Data == "li" {
			if kids := elementChildren(c); len(kids) == 1 && kids[0].Data == "p" {
				p := kids[0]
				for _, gc := range children(p) {
					detach(gc)
					c.AppendChild(gc)
				}
				detach(p)
			}
		}
		unwrapSoleParagraphListItems(c)
	}
}
