package htmlcodec

import (
	"strings"

	"golang.org/x/net/html"
)

// renderNode renders n, printing void elements as <img ...> rather than the
// <img .../> form html.Render emits. Text and attribute values are escaped by
// the renderer, so the only literal "/>" in its output closes a void element.
func renderNode(n *html.Node) string {
	var b strings.Builder
	_ = html.Render(&b, n)
	return strings.ReplaceAll(b.String(), "/>", ">")
}

func renderNodes(nodes []*html.Node) string {
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(renderNode(n))
	}
	return b.String()
}
