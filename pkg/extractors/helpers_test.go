package extractors

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

// newDoc parses markup as if it had been fetched from base.
func newDoc(t *testing.T, base, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("failed to parse markup: %v", err)
	}
	u, err := url.Parse(base)
	if err != nil {
		t.Fatalf("bad base URL %q: %v", base, err)
	}
	doc.Url = u
	return doc
}
