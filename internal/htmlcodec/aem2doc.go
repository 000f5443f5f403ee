package htmlcodec

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/astromechza/da-collab/internal/docmodel"
)

// Aem2Doc converts a canonical-envelope HTML string into a structured
// document tree, per spec §4.1 "HTML → document (aem2doc) rules".
func Aem2Doc(input string) (*docmodel.Node, error) {
	parsed, err := html.Parse(strings.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	main := findDescendant(parsed, "main")
	if main == nil {
		// Not wrapped in the canonical envelope: synthesize one around the
		// whole input, per SPEC_FULL.md's supplemental aem2doc leniency.
		reparsed, err := html.Parse(strings.NewReader(wrapEnvelope(input)))
		if err != nil {
			return nil, fmt.Errorf("parse html: %w", err)
		}
		main = findDescendant(reparsed, "main")
		if main == nil {
			return docmodel.NewDoc(), nil
		}
	}

	sections := sectionDivs(main)
	var flat []*html.Node
	for i, section := range sections {
		collapseAnchorImages(section)
		rewriteBlocksToTables(section)
		dashParagraphsToHR(section)

		if i > 0 {
			flat = append(flat, elem("p", nil), elem("hr", nil), elem("p", nil))
		}
		for _, c := range children(section) {
			detach(c)
			flat = append(flat, c)
		}
	}

	return docmodel.NewDoc(htmlBlocksToNodes(flat)...), nil
}

// sectionDivs returns main's top-level <div> section children. If main has
// no such wrapper divs, its own children are treated as one implicit
// section so odd but non-empty input still converts.
func sectionDivs(main *html.Node) []*html.Node {
	var divs []*html.Node
	for _, c := range elementChildren(main) {
		if c.Data == "div" {
			divs = append(divs, c)
		}
	}
	if len(divs) > 0 {
		return divs
	}
	if main.FirstChild == nil {
		return nil
	}
	return []*html.Node{main}
}
