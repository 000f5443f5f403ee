package htmlcodec

import "testing"

func roundTrip(t *testing.T, input string) string {
	t.Helper()
	doc, err := Aem2Doc(input)
	if err != nil {
		t.Fatalf("Aem2Doc: %v", err)
	}
	return Doc2Aem(doc)
}

func TestEmptyRoundTrip(t *testing.T) {
	input := "\n<body>\n  <header></header>\n  <main><div></div></main>\n  <footer></footer>\n</body>\n"
	got := roundTrip(t, input)
	if got != input {
		t.Fatalf("round trip mismatch:\n got:  %q\n want: %q", got, input)
	}
}

func TestBlockToTableRoundTrip(t *testing.T) {
	input := "\n<body>\n  <header></header>\n  <main><div><div class=\"columns\"><div><div><p>A</p></div><div><p>B</p></div></div></div></div></main>\n  <footer></footer>\n</body>\n"
	got := roundTrip(t, input)
	if got != input {
		t.Fatalf("round trip mismatch:\n got:  %q\n want: %q", got, input)
	}
}

func TestIdempotenceOnArbitraryInput(t *testing.T) {
	inputs := []string{
		"<p>hello <strong>world</strong></p>",
		"<div><p>one</p><p>---</p><p>two</p></div>",
		"<a href=\"/x\"><img src=\"/y.png\" alt=\"z\"></a>",
	}
	for _, in := range inputs {
		once := roundTrip(t, in)
		doc2, err := Aem2Doc(once)
		if err != nil {
			t.Fatalf("Aem2Doc(once): %v", err)
		}
		twice := Doc2Aem(doc2)
		if once != twice {
			t.Fatalf("not idempotent for %q:\n once:  %q\n twice: %q", in, once, twice)
		}
	}
}

func TestImageWithHref(t *testing.T) {
	input := "<main><div><p><a href=\"/x\"><img src=\"/y.png\" alt=\"z\"></a></p></div></main>"
	doc, err := Aem2Doc(input)
	if err != nil {
		t.Fatalf("Aem2Doc: %v", err)
	}
	out := Doc2Aem(doc)
	want := "<a href=\"/x\"><picture><source srcset=\"/y.png\"><source srcset=\"/y.png\" media=\"(min-width: 600px)\"><img src=\"/y.png\" alt=\"z\" loading=\"lazy\"></picture></a>"
	if !contains(out, want) {
		t.Fatalf("expected output to contain %q, got %q", want, out)
	}
}

func TestRegionEditPreservation(t *testing.T) {
	input := "<main><div><da-loc-deleted><h1>Old</h1></da-loc-deleted><da-loc-added><h1>New</h1></da-loc-added></div></main>"
	doc, err := Aem2Doc(input)
	if err != nil {
		t.Fatalf("Aem2Doc: %v", err)
	}
	out := Doc2Aem(doc)
	for _, want := range []string{"<da-loc-deleted>", "<h1>Old</h1>", "<da-loc-added>", "<h1>New</h1>"} {
		if !contains(out, want) {
			t.Fatalf("expected output to contain %q, got %q", want, out)
		}
	}
	if contains(out, "contenteditable") {
		t.Fatalf("output should not carry the non-editable flag, got %q", out)
	}
}

func contains(haystack, needle string) bool {
	return indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	n := len(needle)
	for i := 0; i+n <= len(haystack); i++ {
		if haystack[i:i+n] == needle {
			return i
		}
	}
	return -1
}
