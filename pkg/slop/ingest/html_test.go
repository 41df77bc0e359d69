package ingest

import (
	"reflect"
	"strings"
	"testing"
)

func TestStripHTMLListsAndHiddenElements(t *testing.T) {
	page := `<!DOCTYPE html>
<html>
<head><title>Title text</title><style>p { color: red; }</style></head>
<body>
<h1>A heading</h1>
<p>First <b>bold</b> claim. Second claim!</p>
<script>alert("hidden");</script>
<ul><li>One item</li><li>Two item</li></ul>
<noscript>Enable scripts</noscript>
</body>
</html>`

	text, err := StripHTML(strings.NewReader(page))
	if err != nil {
		t.Fatalf("StripHTML: %v", err)
	}

	for _, hidden := range []string{"Title text", "color: red", "alert", "Enable scripts"} {
		if strings.Contains(text, hidden) {
			t.Errorf("text contains hidden content %q:\n%s", hidden, text)
		}
	}

	got := SplitSentences(text)
	want := []string{"A heading", "First bold claim.", "Second claim!", "One item", "Two item"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("sentences:\n got %q\nwant %q", got, want)
	}
}
