package htmlcodec

import "strings"

// EmptyHTML is the canonical empty document, returned by the content-store
// client on a 404 (spec §6).
const EmptyHTML = "<main></main>"

// wrapEnvelope renders the canonical envelope of spec §4.1/§6 around a
// rendered <main> body.
//
//	\n<body>\n  <header></header>\n  <main>…</main>\n  <footer></footer>\n</body>\n
func wrapEnvelope(mainInner string) string {
	var b strings.Builder
	b.WriteString("\n<body>\n  <header></header>\n  <main>")
	b.WriteString(mainInner)
	b.WriteString("</main>\n  <footer></footer>\n</body>\n")
	return b.String()
}
