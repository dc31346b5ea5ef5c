package extractors

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/design-scan/models"
)

// Hosts whose stylesheet URLs name their families in the query string.
var hostedFontHosts = []string{"fonts.googleapis.com", "fonts.bunny.net"}

// Services whose font lists cannot be read without fetching their kit.
var fontServices = []struct {
	host string
	name string
}{
	{"use.typekit.net", "Adobe Fonts"},
	{"p.typekit.net", "Adobe Fonts"},
	{"fonts.adobe.com", "Adobe Fonts"},
	{"fast.fonts.net", "Fonts.com"},
	{"cloud.typography.com", "Cloud.typography"},
}

var excludedFonts = map[string]bool{
	"serif": true, "sans-serif": true, "monospace": true, "cursive": true,
	"fantasy": true, "system-ui": true, "ui-sans-serif": true, "ui-serif": true,
	"ui-monospace": true, "ui-rounded": true, "math": true, "emoji": true,
	"inherit": true, "initial": true, "unset": true, "revert": true,
	"-apple-system": true, "blinkmacsystemfont": true, "segoe ui": true,
	"helvetica": true, "helvetica neue": true, "arial": true, "verdana": true,
	"tahoma": true, "times": true, "times new roman": true, "courier": true,
	"courier new": true, "apple color emoji": true, "segoe ui emoji": true,
	"segoe ui symbol": true, "noto color emoji": true, "android emoji": true,
	"font awesome": true, "fontawesome": true, "font awesome 5 free": true,
	"font awesome 6 free": true, "font awesome 5 brands": true,
	"font awesome 6 brands": true, "material icons": true,
	"material symbols outlined": true, "glyphicons halflings": true,
	"dashicons": true, "icomoon": true,
}

var fontPresets = map[string]models.TypographyPreset{
	"inter": models.PresetModern, "roboto": models.PresetModern,
	"open sans": models.PresetModern, "lato": models.PresetModern,
	"nunito": models.PresetModern, "source sans pro": models.PresetModern,
	"source sans 3": models.PresetModern, "work sans": models.PresetModern,
	"dm sans": models.PresetModern, "poppins": models.PresetModern,

	"georgia": models.PresetClassic, "merriweather": models.PresetClassic,
	"lora": models.PresetClassic, "libre baskerville": models.PresetClassic,
	"pt serif": models.PresetClassic, "eb garamond": models.PresetClassic,

	"playfair display": models.PresetElegant, "cormorant": models.PresetElegant,
	"cormorant garamond": models.PresetElegant, "cinzel": models.PresetElegant,
	"bodoni moda": models.PresetElegant, "didot": models.PresetElegant,

	"montserrat": models.PresetBold, "oswald": models.PresetBold,
	"bebas neue": models.PresetBold, "anton": models.PresetBold,
	"archivo black": models.PresetBold, "raleway": models.PresetBold,

	"karla": models.PresetMinimal, "space grotesk": models.PresetMinimal,
	"ibm plex sans": models.PresetMinimal, "manrope": models.PresetMinimal,
	"jost": models.PresetMinimal, "futura": models.PresetMinimal,
}

// Lower rank is more trusted.
var fontSourceRank = map[models.FontSource]int{
	models.FontSourceHostedLink:  0,
	models.FontSourceFontFace:    1,
	models.FontSourceCSSRule:     2,
	models.FontSourceServiceLink: 3,
}

type fontEntry struct {
	font    models.DetectedFont
	sources map[models.FontSource]bool
}

type fontCollector struct {
	order []*fontEntry
	byKey map[string]*fontEntry
}

func (c *fontCollector) add(name string, source models.FontSource, usage models.FontUsage, weights []int) {
	name = strings.Join(strings.Fields(trimQuotes(name)), " ")
	key := strings.ToLower(name)
	if name == "" || (source != models.FontSourceServiceLink && excludedFonts[key]) {
		return
	}

	entry, ok := c.byKey[key]
	if !ok {
		entry = &fontEntry{
			font:    models.DetectedFont{Name: name, Source: source, Usage: models.FontUsageUnknown, Weights: []int{}},
			sources: make(map[models.FontSource]bool),
		}
		c.byKey[key] = entry
		c.order = append(c.order, entry)
	}
	entry.sources[source] = true
	if fontSourceRank[source] < fontSourceRank[entry.font.Source] {
		entry.font.Source = source
	}
	entry.font.Weights = mergeWeights(entry.font.Weights, weights)
	if usage == "" {
		usage = usageFromWeights(weights)
	}
	if entry.font.Usage == models.FontUsageUnknown && usage != models.FontUsageUnknown {
		entry.font.Usage = usage
	}
}

// ExtractTypography detects font families from hosted-font links, @font-face
// blocks and font-family rules, and maps them to a typography preset.
func ExtractTypography(doc *goquery.Document, cssBodies []string) models.Typography {
	c := &fontCollector{byKey: make(map[string]*fontEntry)}

	var placeholders []string
	doc.Find("link[href][rel]").Each(func(_ int, s *goquery.Selection) {
		// preconnect and dns-prefetch hints name a font host but load nothing
		if rel, _ := s.Attr("rel"); !strings.Contains(strings.ToLower(rel), "stylesheet") {
			return
		}
		href, _ := s.Attr("href")
		if name := fontServiceName(href); name != "" {
			placeholders = append(placeholders, name)
			return
		}
		collectHostedFonts(c, href)
	})

	for _, css := range cssBodies {
		for _, target := range cssImports(css) {
			collectHostedFonts(c, target)
		}
	}
	for _, css := range cssBodies {
		for _, rule := range parseCSS(css) {
			if rule.AtRule == "font-face" {
				collectFontFace(c, rule)
			}
		}
	}
	for _, css := range cssBodies {
		for _, rule := range parseCSS(css) {
			if rule.AtRule == "" {
				collectFontRule(c, rule)
			}
		}
	}
	for _, name := range placeholders {
		c.add(name, models.FontSourceServiceLink, models.FontUsageUnknown, nil)
	}

	return summarizeFonts(c)
}

func summarizeFonts(c *fontCollector) models.Typography {
	result := models.Typography{
		MatchedPreset: models.PresetModern,
		DetectedFonts: make([]models.DetectedFont, 0, len(c.order)),
	}

	var heading, body, unknown *fontEntry
	realFonts := 0
	highTrust := false
	for _, entry := range c.order {
		result.DetectedFonts = append(result.DetectedFonts, entry.font)
		if entry.font.Source == models.FontSourceServiceLink {
			continue
		}
		realFonts++
		highTrust = highTrust || entry.font.Source == models.FontSourceHostedLink
		switch entry.font.Usage {
		case models.FontUsageHeading:
			if heading == nil {
				heading = entry
			}
		case models.FontUsageBody:
			if body == nil {
				body = entry
			}
		default:
			if unknown == nil {
				unknown = entry
			}
		}
	}
	if body == nil {
		body = unknown
	}
	if heading != nil {
		name := heading.font.Name
		result.HeadingFont = &name
	}
	if body != nil {
		name := body.font.Name
		result.BodyFont = &name
	}

	preset, matched := matchPreset(result.HeadingFont, result.BodyFont)
	if matched {
		result.MatchedPreset = preset
	}

	corroborated := realFonts >= 2
	for _, entry := range []*fontEntry{heading, body} {
		if entry != nil && len(entry.sources) >= 2 {
			corroborated = true
		}
	}

	switch {
	case len(result.DetectedFonts) == 0:
		result.Confidence = 0
	case highTrust:
		result.Confidence = 0.9
	case !matched:
		result.Confidence = 0.4
	case corroborated:
		result.Confidence = 0.7
	default:
		result.Confidence = 0.5
	}
	result.Confidence = models.ClampConfidence(result.Confidence)
	return result
}

// matchPreset checks the heading font before the body font.
func matchPreset(heading, body *string) (models.TypographyPreset, bool) {
	for _, name := range []*string{heading, body} {
		if name == nil {
			continue
		}
		if preset, ok := fontPresets[strings.ToLower(*name)]; ok {
			return preset, true
		}
	}
	return models.PresetModern, false
}

func fontServiceName(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	for _, svc := range fontServices {
		if host == svc.host {
			return svc.name
		}
	}
	return ""
}

// collectHostedFonts reads families out of a hosted-font stylesheet URL.
// Both the css2 form (family=Name:wght@400;700) and the legacy form
// (family=Name:400,700|Other) are understood.
func collectHostedFonts(c *fontCollector, href string) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return
	}
	host := strings.ToLower(u.Hostname())
	hosted := false
	for _, h := range hostedFontHosts {
		if host == h {
			hosted = true
			break
		}
	}
	if !hosted {
		return
	}

	// url.Query drops pairs containing ';', which css2 uses between tuples.
	for _, pair := range strings.Split(u.RawQuery, "&") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key != "family" {
			continue
		}
		value, err := url.QueryUnescape(value)
		if err != nil {
			continue
		}
		if strings.Contains(value, "@") {
			name, spec, _ := strings.Cut(value, ":")
			c.add(name, models.FontSourceHostedLink, "", css2Weights(spec))
			continue
		}
		for _, family := range strings.Split(value, "|") {
			name, spec, _ := strings.Cut(family, ":")
			c.add(name, models.FontSourceHostedLink, "", legacyWeights(spec))
		}
	}
}

func css2Weights(spec string) []int {
	axes, tuples, ok := strings.Cut(spec, "@")
	if !ok {
		return nil
	}
	wght := -1
	for i, axis := range strings.Split(axes, ",") {
		if axis == "wght" {
			wght = i
		}
	}
	if wght < 0 {
		return nil
	}
	var weights []int
	for _, tuple := range strings.Split(tuples, ";") {
		values := strings.Split(tuple, ",")
		if wght >= len(values) {
			continue
		}
		weights = append(weights, parseWeightValue(values[wght])...)
	}
	return weights
}

func legacyWeights(spec string) []int {
	var weights []int
	for _, v := range strings.Split(spec, ",") {
		v = strings.TrimSuffix(strings.TrimSuffix(strings.TrimSpace(v), "italic"), "i")
		weights = append(weights, parseWeightValue(v)...)
	}
	return weights
}

// parseWeightValue understands numbers, keywords and ranges ("100..900",
// "100 900").
func parseWeightValue(v string) []int {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "normal", "regular":
		return []int{400}
	case "bold":
		return []int{700}
	}
	var weights []int
	for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ' ' || r == '.' }) {
		if n, err := strconv.Atoi(part); err == nil && n >= 1 && n <= 1000 {
			weights = append(weights, n)
		}
	}
	return weights
}

func collectFontFace(c *fontCollector, rule cssRule) {
	var family string
	var weights []int
	for _, decl := range rule.Decls {
		switch decl.Property {
		case "font-family":
			family = decl.Value
		case "font-weight":
			weights = parseWeightValue(decl.Value)
		}
	}
	c.add(family, models.FontSourceFontFace, "", weights)
}

func collectFontRule(c *fontCollector, rule cssRule) {
	for _, decl := range rule.Decls {
		if strings.HasPrefix(decl.Property, "--") {
			if usage := fontVariableUsage(decl.Property); usage != "" {
				if name := firstFamily(decl.Value); name != "" {
					c.add(name, models.FontSourceCSSRule, usage, nil)
				}
			}
			continue
		}
		if decl.Property != "font-family" {
			continue
		}
		usage := selectorUsage(rule.Selector)
		if usage == "" {
			continue
		}
		if name := firstFamily(decl.Value); name != "" {
			c.add(name, models.FontSourceCSSRule, usage, nil)
		}
	}
}

func fontVariableUsage(name string) models.FontUsage {
	if !strings.Contains(name, "font") && !strings.Contains(name, "family") {
		return ""
	}
	switch {
	case strings.Contains(name, "heading"), strings.Contains(name, "display"), strings.Contains(name, "title"):
		return models.FontUsageHeading
	case strings.Contains(name, "body"), strings.Contains(name, "text"), strings.Contains(name, "base"):
		return models.FontUsageBody
	}
	return ""
}

// selectorUsage tags a rule by the elements it styles, or "" when the rule is
// too narrow to say anything about the page's type.
func selectorUsage(selector string) models.FontUsage {
	var usage models.FontUsage
	for _, sel := range selectorParts(selector) {
		compound := lastCompound(sel)
		tag := compoundTag(compound)
		switch {
		case len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6',
			strings.Contains(compound, "heading"), strings.Contains(compound, "title"):
			return models.FontUsageHeading
		case tag == "body" || tag == "html" || tag == "p" || strings.HasPrefix(compound, ":root"):
			usage = models.FontUsageBody
		}
	}
	return usage
}

// firstFamily returns the first non-generic family in a font stack.
func firstFamily(stack string) string {
	if strings.Contains(stack, "var(") {
		return ""
	}
	for _, name := range strings.Split(stack, ",") {
		name = trimQuotes(name)
		if name != "" && !excludedFonts[strings.ToLower(name)] {
			return name
		}
	}
	return ""
}

// usageFromWeights leans heading when bold weights dominate and body when
// light ones do.
func usageFromWeights(weights []int) models.FontUsage {
	heavy, light := 0, 0
	for _, w := range weights {
		switch {
		case w >= 600:
			heavy++
		case w <= 400:
			light++
		}
	}
	switch {
	case heavy > light:
		return models.FontUsageHeading
	case light > heavy:
		return models.FontUsageBody
	}
	return models.FontUsageUnknown
}

func mergeWeights(a, b []int) []int {
	seen := make(map[int]bool, len(a)+len(b))
	out := make([]int, 0, len(a)+len(b))
	for _, w := range append(append([]int{}, a...), b...) {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	sort.Ints(out)
	return out
}
