package detector

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/design-scan/models"
)

const (
	productSectionConfidence = 0.5
	productSelector          = `[class*="product"], [data-product-id], [data-product]`
)

var productJSONLD = regexp.MustCompile(`"@type"\s*:\s*\[?\s*"(Product|ProductGroup|Offer)"`)

// Signals are page-level facts the template matcher weighs beside sections.
type Signals struct {
	HasProducts  bool
	ArticleCount int
}

// DetectSignals gathers the page-level signals for template matching.
func DetectSignals(doc *goquery.Document, sections []models.DetectedSection) Signals {
	return Signals{
		HasProducts:  DetectsProducts(doc, sections),
		ArticleCount: doc.Find("article").Length(),
	}
}

// DetectsProducts reports whether the page independently confirms product
// listings: a confident product-grid section, priced product elements, or
// schema.org Product markup.
func DetectsProducts(doc *goquery.Document, sections []models.DetectedSection) bool {
	for _, s := range sections {
		if s.Type == models.SectionProductGrid && s.Confidence >= productSectionConfidence {
			return true
		}
	}

	// Priced product cards. Only the innermost priced match counts, so a
	// wrapper around one card (or a card around its price tag) is one listing.
	isPriced := func(_ int, s *goquery.Selection) bool {
		return pricePattern.MatchString(s.Text())
	}
	priced := doc.Find(productSelector).FilterFunction(isPriced).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find(productSelector).FilterFunction(isPriced).Length() == 0
	})
	if priced.Length() >= 2 {
		return true
	}

	// Structured data
	if doc.Find(`[itemtype*="schema.org/Product"]`).Length() > 0 {
		return true
	}
	found := false
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found = productJSONLD.MatchString(s.Text())
		return !found
	})
	return found
}
