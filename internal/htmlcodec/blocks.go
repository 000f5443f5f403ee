package htmlcodec

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// blockHeaderText builds the header-cell text for a block's class list,
// per spec §4.1: "first-class (other, classes)".
func blockHeaderText(classes []string) string {
	if len(classes) == 0 {
		return ""
	}
	if len(classes) == 1 {
		return classes[0]
	}
	return classes[0] + " (" + strings.Join(classes[1:], ", ") + ")"
}

var nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)

// classNameFromHeaderText derives a div class name from a rewritten table's
// header-cell text, per spec §4.1 doc2aem rule 2.
func classNameFromHeaderText(text string) string {
	lower := strings.ToLower(text)
	dashed := nonAlnumRun.ReplaceAllString(lower, "-")
	return strings.Trim(dashed, "-")
}

// rewriteBlocksToTables walks n looking for descendant <div class="..."> nodes
// and rewrites each into a <table>, surrounded by empty <p> nodes, per spec
// §4.1 aem2doc rule 1. It recurses into region-edit wrappers. n itself is not
// considered (callers pass a section's child list, or a wrapper's content).
func rewriteBlocksToTables(n *html.Node) {
	for _, c := range elementChildren(n) {
		if _, isWrapper := docmodelRegionType(c.Data); isWrapper {
			rewriteBlocksToTables(c)
			continue
		}
		if c.Data == "div" {
			if classes := classesOf(c); len(classes) > 0 {
				table := blockDivToTable(c, classes)
				before := elem("p", nil)
				after := elem("p", nil)
				parent := c.Parent
				parent.InsertBefore(before, c)
				parent.InsertBefore(table, c)
				parent.InsertBefore(after, c)
				parent.RemoveChild(c)
				continue
			}
		}
		rewriteBlocksToTables(c)
	}
}

func docmodelRegionType(tag string) (string, bool) {
	switch tag {
	case "da-loc-added", "da-loc-deleted":
		return tag, true
	}
	return "", false
}

// blockDivToTable converts one classed <div> into its <table> encoding.
func blockDivToTable(div *html.Node, classes []string) *html.Node {
	rows := elementChildren(div)
	maxCols := 1
	bodyRows := make([]*html.Node, 0, len(rows))
	for _, row := range rows {
		cells := elementChildren(row)
		if len(cells) > maxCols {
			maxCols = len(cells)
		}
		tds := make([]*html.Node, 0, len(cells))
		for _, cellDiv := range cells {
			td := elem("td", nil)
			for _, cc := range children(cellDiv) {
				detach(cc)
				td.AppendChild(cc)
			}
			tds = append(tds, td)
		}
		bodyRows = append(bodyRows, elem("tr", nil, tds...))
	}

	headerText := blockHeaderText(classes)
	headerCell := elem("th", map[string]string{"colspan": itoa(maxCols)}, textNode(headerText))
	headerRow := elem("tr", nil, headerCell)

	table := elem("table", nil, headerRow)
	for _, r := range bodyRows {
		table.AppendChild(r)
	}
	return table
}

// rewriteTablesToBlocks is the inverse of rewriteBlocksToTables: every
// descendant <table> becomes a classed <div>, per spec §4.1 doc2aem rule 2/3.
func rewriteTablesToBlocks(n *html.Node) {
	for _, c := range elementChildren(n) {
		if _, isWrapper := docmodelRegionType(c.Data); isWrapper {
			rewriteTablesToBlocks(c)
			continue
		}
		if c.Data == "table" {
			// Drop the empty <p> rewriteBlocksToTables put on either side.
			if prev := c.PrevSibling; isElement(prev, "p") && prev.FirstChild == nil {
				detach(prev)
			}
			if next := c.NextSibling; isElement(next, "p") && next.FirstChild == nil {
				detach(next)
			}
			div := tableToBlockDiv(c)
			replaceWith(c, div)
			continue
		}
		rewriteTablesToBlocks(c)
	}
}

func tableToBlockDiv(table *html.Node) *html.Node {
	trs := elementChildren(table)
	if len(trs) == 0 {
		return elem("div", nil)
	}
	headerRow := trs[0]
	headerCell := firstElementChild(headerRow)
	className := ""
	if headerCell != nil {
		className = classNameFromHeaderText(textContent(headerCell))
	}

	rowDivs := make([]*html.Node, 0, len(trs)-1)
	for _, tr := range trs[1:] {
		cellDivs := make([]*html.Node, 0)
		for _, td := range elementChildren(tr) {
			cellDiv := elem("div", nil)
			for _, cc := range children(td) {
				detach(cc)
				cellDiv.AppendChild(cc)
			}
			cellDivs = append(cellDivs, cellDiv)
		}
		rowDivs = append(rowDivs, elem("div", nil, cellDivs...))
	}

	attrs := map[string]string{}
	if className != "" {
		attrs["class"] = className
	}
	return elem("div", attrs, rowDivs...)
}

func firstElementChild(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// collapseAnchorImages copies href/title from an <a> wrapping exactly one
// <img> onto the image itself and unwraps the anchor, per spec §4.1 aem2doc
// rule 1 (the structured-document engine's known anchor-image limitation).
func collapseAnchorImages(n *html.Node) {
	for _, c := range elementChildren(n) {
		if c.Data == "a" {
			if img := soleImgChild(c); img != nil {
				if href, ok := attrOf(c, "href"); ok {
					setAttr(img, "href", href)
				}
				if title, ok := attrOf(c, "title"); ok {
					setAttr(img, "title", title)
				}
				detach(img)
				replaceWith(c, img)
				continue
			}
		}
		collapseAnchorImages(c)
	}
}

func soleImgChild(a *html.Node) *html.Node {
	kids := elementChildren(a)
	if len(kids) == 1 && kids[0].Data == "img" {
		return kids[0]
	}
	return nil
}

// dashParagraphsToHR converts any <p> whose sole child is the text "---"
// into <hr>, per spec §4.1 aem2doc rule 2.
func dashParagraphsToHR(n *html.Node) {
	for _, c := range elementChildren(n) {
		if c.Data == "p" && c.FirstChild != nil && c.FirstChild == c.LastChild &&
			c.FirstChild.Type == html.TextNode && strings.TrimSpace(c.FirstChild.Data) == "---" {
			replaceWith(c, elem("hr", nil))
			continue
		}
		dashParagraphsToHR(c)
	}
}
