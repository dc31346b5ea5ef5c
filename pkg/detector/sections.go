package detector

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/dtnitsch/design-scan/models"
	"golang.org/x/net/html"
)

const (
	classMatchWeight = 0.3
	minSectionChars  = 50

	// Generic section-like containers scored in the first pass
	containerSelector = `section, [class*="section"], [id*="section"], main > *, article, [role="region"]`
	buttonSelector    = `button, a[class*="btn"], a[class*="button"], a[class*="cta"], input[type="submit"]`
	headingSelector   = "h1, h2, h3, h4, h5, h6"
)

var containerMatcher = cascadia.MustCompile(containerSelector)

var (
	pricePattern      = regexp.MustCompile(`[$€£¥]\s?\d[\d.,]*`)
	gridClassPattern  = regexp.MustCompile(`(?i)grid|row|columns?|col-|cols|flex|masonry`)
	reviewWordPattern = regexp.MustCompile(`(?i)testimonial|review|customers? (say|love)|what (our )?(clients|customers) say|rated`)
	aboutHeading      = regexp.MustCompile(`(?i)about|our story|who we are|our mission|meet the team`)
	contactHeading    = regexp.MustCompile(`(?i)contact|get in touch|reach us|find us|visit us`)
	featuresHeading   = regexp.MustCompile(`(?i)features|why choose|benefits|what we offer|how it works|why us`)
	faqHeading        = regexp.MustCompile(`(?i)faq|frequently asked|questions`)
	addToCartPattern  = regexp.MustCompile(`(?i)add to (cart|bag|basket)|buy now|shop now|add-to-cart|addtocart`)
	phonePattern      = regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`)
	newsletterPattern = regexp.MustCompile(`(?i)newsletter|subscribe|sign up for`)
	teamPattern       = regexp.MustCompile(`(?i)team|founder|people|portrait|staff`)
)

// region caches the facts indicators ask about a candidate element.
type region struct {
	sel      *goquery.Selection
	text     string
	images   int
	headings string
}

func newRegion(s *goquery.Selection) *region {
	var headings []string
	s.Find(headingSelector).Each(func(_ int, h *goquery.Selection) {
		headings = append(headings, normalize(h.Text()))
	})
	return &region{
		sel:      s,
		text:     normalize(s.Text()),
		images:   s.Find("img, picture source").Length(),
		headings: strings.Join(headings, " | "),
	}
}

func (r *region) count(selector string) int {
	return r.sel.Find(selector).Length()
}

func (r *region) has(selector string) bool {
	return r.count(selector) > 0
}

func (r *region) hasGrid() bool {
	if gridClassPattern.MatchString(attr(r.sel, "class")) {
		return true
	}
	found := false
	r.sel.Find("[class], [style]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		style := strings.ToLower(attr(s, "style"))
		if gridClassPattern.MatchString(attr(s, "class")) || strings.Contains(style, "grid") || strings.Contains(style, "flex") {
			found = true
			return false
		}
		return true
	})
	return found
}

// indicator is one weighted content check.
type indicator struct {
	name   string
	weight float64
	check  func(r *region) bool
}

// archetype is the pattern bundle for one section type.
type archetype struct {
	kind         models.SectionType
	classPattern *regexp.Regexp
	selectors    cascadia.Selector
	indicators   []indicator
	threshold    float64
}

var archetypes = []archetype{
	{
		kind:         models.SectionHero,
		classPattern: regexp.MustCompile(`(?i)hero|banner|jumbotron|masthead|splash`),
		selectors:    cascadia.MustCompile(`[class*="hero"], [id*="hero"], [class*="banner"], [class*="jumbotron"], [class*="masthead"]`),
		threshold:    0.5,
		indicators: []indicator{
			{"h1", 0.3, func(r *region) bool { return r.has("h1") }},
			{"cta-button", 0.2, func(r *region) bool { return r.has(buttonSelector) }},
			{"visual", 0.15, func(r *region) bool {
				return r.images > 0 || r.has("video") || strings.Contains(strings.ToLower(attr(r.sel, "style")), "background")
			}},
			{"short-copy", 0.1, func(r *region) bool { return len(r.text) > 0 && len(r.text) < 400 }},
		},
	},
	{
		kind:         models.SectionProductGrid,
		classPattern: regexp.MustCompile(`(?i)product|shop|collection|catalog|merch|store`),
		selectors:    cascadia.MustCompile(`[class*="product-grid"], [class*="products"], [class*="product-list"], [class*="collection"], [class*="shop-grid"], [id*="products"]`),
		threshold:    0.5,
		indicators: []indicator{
			{"price", 0.3, func(r *region) bool { return pricePattern.MatchString(r.text) }},
			{"images", 0.2, func(r *region) bool { return r.images >= 3 }},
			{"grid-layout", 0.15, func(r *region) bool { return r.hasGrid() }},
			{"add-to-cart", 0.25, func(r *region) bool {
				return addToCartPattern.MatchString(r.text) || r.has(`[class*="add-to-cart"], [name="add"]`)
			}},
			{"product-cards", 0.2, func(r *region) bool {
				return r.count(`[class*="product"], [itemtype*="Product"]`) >= 3
			}},
		},
	},
	{
		kind:         models.SectionTestimonials,
		classPattern: regexp.MustCompile(`(?i)testimonial|review|quote|feedback`),
		selectors:    cascadia.MustCompile(`[class*="testimonial"], [id*="testimonial"], [class*="review"], [id*="review"]`),
		threshold:    0.45,
		indicators: []indicator{
			{"quotes", 0.3, func(r *region) bool {
				return r.has("blockquote, q") || strings.ContainsAny(r.text, "“”")
			}},
			{"review-words", 0.25, func(r *region) bool { return reviewWordPattern.MatchString(r.text) }},
			{"stars", 0.2, func(r *region) bool {
				return strings.Contains(r.text, "★") || r.has(`[class*="star"], [class*="rating"]`)
			}},
			{"attribution", 0.15, func(r *region) bool { return r.has(`cite, [class*="author"], [class*="name"]`) }},
		},
	},
	{
		kind:         models.SectionAbout,
		classPattern: regexp.MustCompile(`(?i)about|story|mission|who-we-are`),
		selectors:    cascadia.MustCompile(`[class*="about"], [id*="about"], [class*="story"], [id*="story"]`),
		threshold:    0.45,
		indicators: []indicator{
			{"about-heading", 0.35, func(r *region) bool { return aboutHeading.MatchString(r.headings) }},
			{"long-paragraph", 0.2, func(r *region) bool {
				long := false
				r.sel.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
					long = len(normalize(p.Text())) > 200
					return !long
				})
				return long
			}},
			{"team-image", 0.1, func(r *region) bool {
				found := false
				r.sel.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
					found = teamPattern.MatchString(attr(img, "alt") + " " + attr(img, "class"))
					return !found
				})
				return found || r.has(`[class*="team"]`)
			}},
		},
	},
	{
		kind:         models.SectionContact,
		classPattern: regexp.MustCompile(`(?i)contact|get-in-touch|reach`),
		selectors:    cascadia.MustCompile(`[class*="contact"], [id*="contact"]`),
		threshold:    0.45,
		indicators: []indicator{
			{"email-input", 0.3, func(r *region) bool { return r.has(`input[type="email"]`) }},
			{"form", 0.2, func(r *region) bool { return r.has("form") }},
			{"address-phone", 0.2, func(r *region) bool {
				return r.has(`address, a[href^="tel:"]`) || phonePattern.MatchString(r.text)
			}},
			{"contact-heading", 0.25, func(r *region) bool { return contactHeading.MatchString(r.headings) }},
			{"map", 0.1, func(r *region) bool { return r.has(`iframe[src*="map"], [class*="map"]`) }},
		},
	},
	{
		kind:         models.SectionFeatures,
		classPattern: regexp.MustCompile(`(?i)feature|benefit|service|usp`),
		selectors:    cascadia.MustCompile(`[class*="feature"], [id*="feature"], [class*="benefit"], [class*="services"]`),
		threshold:    0.45,
		indicators: []indicator{
			{"icon-grid", 0.25, func(r *region) bool { return r.count(`svg, i[class*="icon"], [class*="icon"]`) >= 3 }},
			{"features-heading", 0.25, func(r *region) bool { return featuresHeading.MatchString(r.headings) }},
			{"subheadings", 0.2, func(r *region) bool { return r.count("h3, h4") >= 3 }},
			{"short-blurbs", 0.15, func(r *region) bool {
				blurbs := 0
				r.sel.Find("p").Each(func(_ int, p *goquery.Selection) {
					if n := len(normalize(p.Text())); n >= 20 && n <= 200 {
						blurbs++
					}
				})
				return blurbs >= 3
			}},
		},
	},
	{
		kind:         models.SectionGallery,
		classPattern: regexp.MustCompile(`(?i)gallery|portfolio|lookbook|instagram|masonry`),
		selectors:    cascadia.MustCompile(`[class*="gallery"], [id*="gallery"], [class*="portfolio"], [class*="lookbook"]`),
		threshold:    0.5,
		indicators: []indicator{
			{"many-images", 0.35, func(r *region) bool { return r.images >= 6 }},
			{"lightbox", 0.2, func(r *region) bool {
				return r.has(`[data-lightbox], [class*="lightbox"], [data-fancybox], [class*="fancybox"]`)
			}},
			{"grid-layout", 0.15, func(r *region) bool { return r.hasGrid() }},
			{"low-text", 0.15, func(r *region) bool { return r.images > 0 && len(r.text) < 40*r.images }},
		},
	},
	{
		kind:         models.SectionFAQ,
		classPattern: regexp.MustCompile(`(?i)faq|accordion|questions`),
		selectors:    cascadia.MustCompile(`[class*="faq"], [id*="faq"], [class*="accordion"]`),
		threshold:    0.45,
		indicators: []indicator{
			{"details", 0.35, func(r *region) bool { return r.count("details") >= 2 }},
			{"question-headings", 0.3, func(r *region) bool {
				questions := 0
				r.sel.Find(headingSelector + ", summary, dt, button").Each(func(_ int, q *goquery.Selection) {
					if strings.HasSuffix(normalize(q.Text()), "?") {
						questions++
					}
				})
				return questions >= 2
			}},
			{"faq-heading", 0.25, func(r *region) bool { return faqHeading.MatchString(r.headings) }},
			{"accordion", 0.15, func(r *region) bool { return r.has(`[class*="accordion"], [aria-expanded]`) }},
		},
	},
	{
		kind:         models.SectionCTA,
		classPattern: regexp.MustCompile(`(?i)cta|call-to-action|newsletter|signup|subscribe`),
		selectors:    cascadia.MustCompile(`[class*="cta"], [class*="call-to-action"], [class*="newsletter"], [id*="newsletter"]`),
		threshold:    0.5,
		indicators: []indicator{
			{"button", 0.3, func(r *region) bool { return r.has(buttonSelector) }},
			{"short-text", 0.2, func(r *region) bool { return len(r.text) > 0 && len(r.text) < 300 }},
			{"heading", 0.2, func(r *region) bool { return r.headings != "" }},
			{"newsletter", 0.2, func(r *region) bool {
				return r.has(`input[type="email"]`) || newsletterPattern.MatchString(r.text)
			}},
		},
	},
}

// score rates r against a. matched is the fixed class/selector credit.
func (a archetype) score(r *region, matched string) (float64, []string) {
	var total float64
	indicators := []string{}
	if matched != "" {
		total += classMatchWeight
		indicators = append(indicators, matched)
	}
	for _, ind := range a.indicators {
		if ind.check(r) {
			total += ind.weight
			indicators = append(indicators, ind.name)
		}
	}
	return models.ClampConfidence(round2(total)), indicators
}

func (a archetype) classMatches(s *goquery.Selection) bool {
	return a.classPattern.MatchString(attr(s, "class") + " " + attr(s, "id"))
}

// DetectSections segments the page into section archetypes. The result holds
// at most one section per type, highest confidence first.
func DetectSections(doc *goquery.Document) []models.DetectedSection {
	claimed := make(map[*html.Node]bool)
	var found []models.DetectedSection

	// Pass 1: generic containers, first archetype over its threshold wins
	doc.FindMatcher(containerMatcher).Each(func(_ int, s *goquery.Selection) {
		r := newRegion(s)
		if len(r.text) <= minSectionChars {
			return
		}
		for _, a := range archetypes {
			matched := ""
			if a.classMatches(s) {
				matched = "class-match"
			}
			confidence, indicators := a.score(r, matched)
			if confidence >= a.threshold {
				claimed[s.Get(0)] = true
				found = append(found, section(a.kind, confidence, s, indicators))
				return
			}
		}
	})

	// Pass 2: archetype selectors catch well-marked sections pass 1 missed
	for _, a := range archetypes {
		doc.FindMatcher(a.selectors).Each(func(_ int, s *goquery.Selection) {
			if insideClaimed(s, claimed) {
				return
			}
			confidence, indicators := a.score(newRegion(s), "selector-match")
			if confidence >= a.threshold {
				claimed[s.Get(0)] = true
				found = append(found, section(a.kind, confidence, s, indicators))
			}
		})
	}

	return dedupeSections(found)
}

func insideClaimed(s *goquery.Selection, claimed map[*html.Node]bool) bool {
	for n := s.Get(0); n != nil; n = n.Parent {
		if claimed[n] {
			return true
		}
	}
	return false
}

// dedupeSections keeps the most confident section per type, ordered by
// confidence then archetype order.
func dedupeSections(found []models.DetectedSection) []models.DetectedSection {
	best := make(map[models.SectionType]models.DetectedSection)
	for _, s := range found {
		if current, ok := best[s.Type]; !ok || s.Confidence > current.Confidence {
			best[s.Type] = s
		}
	}

	out := make([]models.DetectedSection, 0, len(best))
	for _, kind := range models.SectionTypes() {
		if s, ok := best[kind]; ok {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

func section(kind models.SectionType, confidence float64, s *goquery.Selection, indicators []string) models.DetectedSection {
	return models.DetectedSection{
		Type:       kind,
		Confidence: confidence,
		Selector:   describe(s),
		Indicators: indicators,
	}
}

// describe renders a short selector for s: tag plus id, or tag plus first class.
func describe(s *goquery.Selection) string {
	tag := goquery.NodeName(s)
	if id := strings.TrimSpace(attr(s, "id")); id != "" {
		return tag + "#" + id
	}
	if classes := strings.Fields(attr(s, "class")); len(classes) > 0 {
		return tag + "." + classes[0]
	}
	return tag
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return v
}

func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
