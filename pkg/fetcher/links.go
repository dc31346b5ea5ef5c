package fetcher

import (
	"net/url"
	"strings"

	"github.com/dtnitsch/design-scan/internal/common"
	"golang.org/x/net/html"
)

// StyleLinks are the style sources referenced by a page.
type StyleLinks struct {
	URLs   []string
	Inline []string
}

// ExtractStylesheets tokenizes raw markup and collects <link rel="stylesheet">
// hrefs (in any attribute order) plus inline <style> bodies. Hrefs are
// resolved against base; anything that does not resolve to http(s) is dropped.
func ExtractStylesheets(markup string, base *url.URL) StyleLinks {
	var links StyleLinks
	seen := make(map[string]bool)
	z := html.NewTokenizer(strings.NewReader(markup))
	inStyle := false

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return links

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch string(name) {
			case "link":
				if !hasAttr {
					continue
				}
				href, ok := stylesheetHref(z)
				if !ok {
					continue
				}
				abs, ok := common.ResolveURL(base, href)
				if !ok || seen[abs] {
					continue
				}
				seen[abs] = true
				links.URLs = append(links.URLs, abs)
			case "style":
				inStyle = tt == html.StartTagToken
			}

		case html.TextToken:
			if inStyle {
				if css := strings.TrimSpace(string(z.Text())); css != "" {
					links.Inline = append(links.Inline, css)
				}
			}

		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "style" {
				inStyle = false
			}
		}
	}
}

func stylesheetHref(z *html.Tokenizer) (string, bool) {
	var href string
	isStylesheet := false
	for {
		key, val, more := z.TagAttr()
		switch strings.ToLower(string(key)) {
		case "rel":
			for _, token := range strings.Fields(strings.ToLower(string(val))) {
				if token == "stylesheet" {
					isStylesheet = true
				}
			}
		case "href":
			href = string(val)
		}
		if !more {
			break
		}
	}
	return href, isStylesheet && href != ""
}
