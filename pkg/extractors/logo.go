package extractors

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/design-scan/internal/common"
	"github.com/dtnitsch/design-scan/models"
)

const (
	headerLogoConfidence  = 0.85
	vectorLogoConfidence  = 0.6
	iconLogoConfidence    = 0.5
	ogImageLogoConfidence = 0.4

	minIconSize = 96
)

// Tried in order; the first selector yielding a usable image wins.
var logoSelectors = []string{
	`header img[class*="logo"], header img[id*="logo"], header [class*="logo"] img, header [id*="logo"] img, nav img[class*="logo"], nav [class*="logo"] img`,
	`img[class*="logo"], img[id*="logo"]`,
	`header a img, nav a img`,
	`#logo img, .logo img, img#logo, img.logo`,
}

// Inline SVGs only count as a logo when scoped to a logo container. Icons
// elsewhere in the header (menu, search, cart) do not.
const vectorLogoSelector = `header [class*="logo"] svg, header svg[class*="logo"], nav [class*="logo"] svg, nav svg[class*="logo"], #logo svg, .logo svg`

var lazySrcAttrs = []string{"data-src", "data-lazy-src", "data-original", "data-lazy", "data-srcset"}

// LogoResult is the most likely logo on the page. Vector is set when only an
// inline SVG was found, which has no URL to download.
type LogoResult struct {
	URL        string
	Source     models.LogoSource
	Confidence float64
	Vector     bool
}

// Found reports whether a downloadable logo URL was located.
func (r LogoResult) Found() bool {
	return r.URL != ""
}

// ExtractLogo walks the logo fallback chain: header images, inline header
// SVG, social preview image, large favicons, then Apple touch icons.
func ExtractLogo(doc *goquery.Document) LogoResult {
	base := doc.Url

	for _, selector := range logoSelectors {
		var found string
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if src := imageSource(s); src != "" {
				if abs, ok := common.ResolveURL(base, src); ok {
					found = abs
					return false
				}
			}
			return true
		})
		if found != "" {
			return LogoResult{URL: found, Source: models.LogoSourceHeaderImage, Confidence: headerLogoConfidence}
		}
	}

	if hasVectorLogo(doc, base) {
		return LogoResult{Source: models.LogoSourceInlineSVG, Confidence: vectorLogoConfidence, Vector: true}
	}

	if content, ok := doc.Find(`meta[property="og:image"], meta[name="og:image"]`).First().Attr("content"); ok {
		if abs, ok := common.ResolveURL(base, content); ok {
			return LogoResult{URL: abs, Source: models.LogoSourceOGImage, Confidence: ogImageLogoConfidence}
		}
	}

	if href := largestIcon(doc, base); href != "" {
		return LogoResult{URL: href, Source: models.LogoSourceFavicon, Confidence: iconLogoConfidence}
	}

	if href, ok := doc.Find(`link[rel="apple-touch-icon"], link[rel="apple-touch-icon-precomposed"]`).First().Attr("href"); ok {
		if abs, ok := common.ResolveURL(base, href); ok {
			return LogoResult{URL: abs, Source: models.LogoSourceAppleTouchIcon, Confidence: iconLogoConfidence}
		}
	}

	return LogoResult{}
}

// hasVectorLogo reports an inline SVG logo: one inside a logo-scoped
// container, or an SVG that is the only content of a header home link.
func hasVectorLogo(doc *goquery.Document, base *url.URL) bool {
	if doc.Find(vectorLogoSelector).Length() > 0 {
		return true
	}
	found := false
	doc.Find("header a[href], nav a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		children := a.Children()
		if children.Length() != 1 || !children.Is("svg") || strings.TrimSpace(a.Text()) != strings.TrimSpace(children.Text()) {
			return true
		}
		href, _ := a.Attr("href")
		found = isHomeLink(base, href)
		return !found
	})
	return found
}

// isHomeLink reports whether href points at the site root.
func isHomeLink(base *url.URL, href string) bool {
	abs, ok := common.ResolveURL(base, href)
	if !ok {
		return false
	}
	u, err := url.Parse(abs)
	if err != nil {
		return false
	}
	if base != nil && !strings.EqualFold(u.Host, base.Host) {
		return false
	}
	return (u.Path == "" || u.Path == "/") && u.RawQuery == ""
}

// imageSource picks the best URL for an img: srcset's largest candidate,
// then src unless it is a data URI, then lazy-load attributes.
func imageSource(s *goquery.Selection) string {
	if srcset, ok := s.Attr("srcset"); ok {
		if best := bestSrcsetCandidate(srcset); best != "" {
			return best
		}
	}
	if src, ok := s.Attr("src"); ok {
		src = strings.TrimSpace(src)
		if src != "" && !strings.HasPrefix(strings.ToLower(src), "data:") {
			return src
		}
	}
	for _, attr := range lazySrcAttrs {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			if attr == "data-srcset" {
				if best := bestSrcsetCandidate(v); best != "" {
					return best
				}
				continue
			}
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// bestSrcsetCandidate returns the URL with the largest density or width
// descriptor. A missing descriptor counts as 1x.
func bestSrcsetCandidate(srcset string) string {
	var best string
	bestScore := -1.0
	for _, entry := range strings.Split(srcset, ",") {
		fields := strings.Fields(entry)
		if len(fields) == 0 || strings.HasPrefix(strings.ToLower(fields[0]), "data:") {
			continue
		}
		score := 1.0
		if len(fields) > 1 {
			desc := strings.ToLower(fields[1])
			if n, err := strconv.ParseFloat(desc[:len(desc)-1], 64); err == nil &&
				(strings.HasSuffix(desc, "x") || strings.HasSuffix(desc, "w")) {
				score = n
			}
		}
		if score > bestScore {
			best, bestScore = fields[0], score
		}
	}
	return best
}

// largestIcon returns the biggest rel=icon link whose declared size is at
// least minIconSize. Unsized favicons are too small to serve as a logo.
func largestIcon(doc *goquery.Document, base *url.URL) string {
	var best string
	bestSize := 0
	doc.Find("link[rel][href][sizes]").Each(func(_ int, s *goquery.Selection) {
		rel, _ := s.Attr("rel")
		if !hasToken(rel, "icon") {
			return
		}
		sizes, _ := s.Attr("sizes")
		size := maxIconDimension(sizes)
		if size < minIconSize || size <= bestSize {
			return
		}
		href, _ := s.Attr("href")
		if abs, ok := common.ResolveURL(base, href); ok {
			best, bestSize = abs, size
		}
	})
	return best
}

func maxIconDimension(sizes string) int {
	largest := 0
	for _, size := range strings.Fields(strings.ToLower(sizes)) {
		w, h, ok := strings.Cut(size, "x")
		if !ok {
			continue
		}
		wn, err1 := strconv.Atoi(w)
		hn, err2 := strconv.Atoi(h)
		if err1 != nil || err2 != nil {
			continue
		}
		largest = max(largest, wn, hn)
	}
	return largest
}

func hasToken(list, token string) bool {
	for _, t := range strings.Fields(strings.ToLower(list)) {
		if t == token {
			return true
		}
	}
	return false
}
