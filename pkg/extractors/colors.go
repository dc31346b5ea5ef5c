package extractors

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/design-scan/models"
)

// ColorSource records where a color candidate was observed.
type ColorSource string

const (
	ColorSourceThemeColor  ColorSource = "theme-color"
	ColorSourceCSSVariable ColorSource = "css-variable"
	ColorSourceTileColor   ColorSource = "tile-color"
	ColorSourceButton      ColorSource = "button"
	ColorSourceHeader      ColorSource = "header"
	ColorSourceLink        ColorSource = "link"
	ColorSourceHeading     ColorSource = "heading"
	ColorSourceInlineStyle ColorSource = "inline-style"
)

// Metadata-declared colors outrank visually inferred ones.
var colorPriorities = map[ColorSource]int{
	ColorSourceThemeColor:  100,
	ColorSourceCSSVariable: 90,
	ColorSourceTileColor:   80,
	ColorSourceButton:      60,
	ColorSourceHeader:      50,
	ColorSourceLink:        40,
	ColorSourceHeading:     30,
	ColorSourceInlineStyle: 20,
}

// ColorCandidate is an observed color and how strongly it counts.
type ColorCandidate struct {
	Hex       string
	Source    ColorSource
	Frequency int
	Priority  int

	accentHint bool
	firstSeen  int
}

// ColorResult holds the chosen brand colors and the ranked candidates.
type ColorResult struct {
	Primary    string
	Accent     string
	Confidence float64
	Candidates []ColorCandidate
}

var (
	colorValuePattern = regexp.MustCompile(`(?i)#[0-9a-f]{3,8}\b|rgba?\([^)]*\)`)
	brandVarPattern   = regexp.MustCompile(`(?i)primary|brand|main|theme`)
	accentVarPattern  = regexp.MustCompile(`(?i)accent|secondary|highlight`)
	buttonSelector    = regexp.MustCompile(`btn|button|cta`)
	headerSelector    = regexp.MustCompile(`(^|[\s.#>])(header|nav|navbar|site-header|topbar)\b`)
)

const minAccentDistance = 60.0

type colorCollector struct {
	byHex map[string]*ColorCandidate
	seq   int
}

func (c *colorCollector) add(value string, source ColorSource, accentHint bool) {
	for _, match := range colorValuePattern.FindAllString(value, -1) {
		hex, ok := normalizeColor(match)
		if !ok || isNeutral(hex) {
			continue
		}
		priority := colorPriorities[source]
		cand, exists := c.byHex[hex]
		if !exists {
			c.seq++
			cand = &ColorCandidate{Hex: hex, Source: source, Priority: priority, firstSeen: c.seq}
			c.byHex[hex] = cand
		}
		cand.Frequency++
		if priority > cand.Priority {
			cand.Priority = priority
			cand.Source = source
		}
		cand.accentHint = cand.accentHint || accentHint
	}
}

// ExtractColors collects color candidates from page metadata, CSS custom
// properties and visual-prominence heuristics, then picks primary and accent.
func ExtractColors(doc *goquery.Document, cssBodies []string) ColorResult {
	c := &colorCollector{byHex: make(map[string]*ColorCandidate)}

	if content, ok := doc.Find(`meta[name="theme-color"]`).First().Attr("content"); ok {
		c.add(content, ColorSourceThemeColor, false)
	}
	if content, ok := doc.Find(`meta[name="msapplication-TileColor"], meta[name="msapplication-tilecolor"]`).First().Attr("content"); ok {
		c.add(content, ColorSourceTileColor, false)
	}

	for _, css := range cssBodies {
		for _, rule := range parseCSS(css) {
			if rule.AtRule != "" {
				continue
			}
			collectRuleColors(c, rule)
		}
	}

	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		source := ColorSourceInlineStyle
		if isButtonElement(s) {
			source = ColorSourceButton
		}
		for _, decl := range parseStyleAttr(style) {
			switch {
			case strings.HasPrefix(decl.Property, "--"):
				collectVariable(c, decl)
			case decl.Property == "background" || decl.Property == "background-color" || decl.Property == "color":
				c.add(decl.Value, source, false)
			}
		}
	})

	return rankColors(c)
}

func collectRuleColors(c *colorCollector, rule cssRule) {
	for _, decl := range rule.Decls {
		if strings.HasPrefix(decl.Property, "--") {
			collectVariable(c, decl)
			continue
		}
		isBackground := decl.Property == "background" || decl.Property == "background-color"
		isColor := decl.Property == "color"
		if !isBackground && !isColor {
			continue
		}
		for _, sel := range selectorParts(rule.Selector) {
			compound := lastCompound(sel)
			tag := compoundTag(compound)
			switch {
			case isBackground && buttonSelector.MatchString(compound):
				c.add(decl.Value, ColorSourceButton, false)
			case isBackground && headerSelector.MatchString(sel):
				c.add(decl.Value, ColorSourceHeader, false)
			case isColor && tag == "a":
				c.add(decl.Value, ColorSourceLink, false)
			case isColor && (tag == "h1" || tag == "h2" || tag == "h3"):
				c.add(decl.Value, ColorSourceHeading, false)
			default:
				continue
			}
			break
		}
	}
}

func collectVariable(c *colorCollector, decl cssDecl) {
	name := decl.Property
	isAccent := accentVarPattern.MatchString(name)
	if !isAccent && !brandVarPattern.MatchString(name) {
		return
	}
	if strings.Contains(strings.ToLower(decl.Value), "var(") {
		return
	}
	c.add(decl.Value, ColorSourceCSSVariable, isAccent)
}

func isButtonElement(s *goquery.Selection) bool {
	if goquery.NodeName(s) == "button" {
		return true
	}
	class, _ := s.Attr("class")
	return buttonSelector.MatchString(strings.ToLower(class))
}

func rankColors(c *colorCollector) ColorResult {
	candidates := make([]ColorCandidate, 0, len(c.byHex))
	for _, cand := range c.byHex {
		candidates = append(candidates, *cand)
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Frequency != b.Frequency {
			return a.Frequency > b.Frequency
		}
		return a.firstSeen < b.firstSeen
	})

	result := ColorResult{Candidates: candidates}
	if len(candidates) == 0 {
		return result
	}

	top := candidates[0]
	result.Primary = top.Hex

	for _, cand := range candidates[1:] {
		if cand.accentHint && colorDistance(top.Hex, cand.Hex) > 0 {
			result.Accent = cand.Hex
			break
		}
	}
	if result.Accent == "" {
		for _, cand := range candidates[1:] {
			if colorDistance(top.Hex, cand.Hex) >= minAccentDistance {
				result.Accent = cand.Hex
				break
			}
		}
	}

	result.Confidence = colorConfidence(top, result.Accent != "")
	return result
}

// colorConfidence blends source authority with corroboration.
func colorConfidence(top ColorCandidate, hasAccent bool) float64 {
	confidence := 0.35
	switch {
	case top.Priority >= colorPriorities[ColorSourceCSSVariable]:
		confidence = 0.7
	case top.Priority >= colorPriorities[ColorSourceButton]:
		confidence = 0.5
	}
	confidence += math.Min(0.2, 0.05*float64(top.Frequency-1))
	if hasAccent {
		confidence += 0.05
	}
	return models.ClampConfidence(math.Round(confidence*100) / 100)
}

// normalizeColor converts a hex or rgb()/rgba() color to lowercase #rrggbb.
// Fully transparent colors are rejected.
func normalizeColor(raw string) (string, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "#") {
		hex := raw[1:]
		switch len(hex) {
		case 3, 4:
			if len(hex) == 4 && hex[3] == '0' {
				return "", false
			}
			return fmt.Sprintf("#%c%c%c%c%c%c", hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]), true
		case 6:
			return "#" + hex, true
		case 8:
			if hex[6:] == "00" {
				return "", false
			}
			return "#" + hex[:6], true
		}
		return "", false
	}

	open := strings.IndexByte(raw, '(')
	end := strings.IndexByte(raw, ')')
	if open < 0 || end < open {
		return "", false
	}
	parts := strings.FieldsFunc(raw[open+1:end], func(r rune) bool {
		return r == ',' || r == ' ' || r == '/'
	})
	if len(parts) < 3 {
		return "", false
	}
	var channels [3]int
	for i := 0; i < 3; i++ {
		v, ok := parseChannel(parts[i])
		if !ok {
			return "", false
		}
		channels[i] = v
	}
	if len(parts) >= 4 {
		if alpha, err := strconv.ParseFloat(strings.TrimSuffix(parts[3], "%"), 64); err == nil && alpha == 0 {
			return "", false
		}
	}
	return fmt.Sprintf("#%02x%02x%02x", channels[0], channels[1], channels[2]), true
}

func parseChannel(s string) (int, bool) {
	if strings.HasSuffix(s, "%") {
		pct, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0, false
		}
		return clampChannel(int(math.Round(pct * 2.55))), true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return clampChannel(int(math.Round(v))), true
}

func clampChannel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func rgbOf(hex string) (r, g, b int) {
	v, _ := strconv.ParseUint(strings.TrimPrefix(hex, "#"), 16, 32)
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}

// isNeutral reports whites, blacks and greys, which are never brand colors.
func isNeutral(hex string) bool {
	r, g, b := rgbOf(hex)
	maxC := max(r, g, b)
	minC := min(r, g, b)
	return maxC-minC < 24
}

func colorDistance(a, b string) float64 {
	r1, g1, b1 := rgbOf(a)
	r2, g2, b2 := rgbOf(b)
	dr, dg, db := float64(r1-r2), float64(g1-g2), float64(b1-b2)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}
