package extractors

import (
	"reflect"
	"testing"

	"github.com/dtnitsch/design-scan/models"
)

func TestExtractTypography_HostedLink(t *testing.T) {
	doc := newDoc(t, "https://example.com/", `<html><head>
<link rel="preconnect" href="https://fonts.gstatic.com">
<link href="https://fonts.googleapis.com/css2?family=Roboto:wght@400;700&amp;display=swap" rel="stylesheet">
</head><body></body></html>`)

	got := ExtractTypography(doc, nil)

	if len(got.DetectedFonts) != 1 {
		t.Fatalf("got %d fonts, want 1: %+v", len(got.DetectedFonts), got.DetectedFonts)
	}
	font := got.DetectedFonts[0]
	if font.Name != "Roboto" {
		t.Errorf("Name = %q, want Roboto", font.Name)
	}
	if !reflect.DeepEqual(font.Weights, []int{400, 700}) {
		t.Errorf("Weights = %v, want [400 700]", font.Weights)
	}
	if font.Source != models.FontSourceHostedLink {
		t.Errorf("Source = %q, want %q", font.Source, models.FontSourceHostedLink)
	}
	if font.Usage != models.FontUsageUnknown {
		t.Errorf("Usage = %q, want unknown for mixed weights", font.Usage)
	}
	if got.HeadingFont != nil {
		t.Errorf("HeadingFont = %q, want nil", *got.HeadingFont)
	}
	if got.BodyFont == nil || *got.BodyFont != "Roboto" {
		t.Errorf("BodyFont = %v, want Roboto", got.BodyFont)
	}
	if got.MatchedPreset != models.PresetModern || got.Confidence != 0.9 {
		t.Errorf("preset=%q confidence=%v, want modern 0.9", got.MatchedPreset, got.Confidence)
	}
}

func TestExtractTypography_LegacyHostedLink(t *testing.T) {
	doc := newDoc(t, "https://example.com/", `<html><head>
<link rel="stylesheet" href="https://fonts.googleapis.com/css?family=Open+Sans:400,700italic|Montserrat:800">
</head></html>`)

	got := ExtractTypography(doc, nil)

	if got.HeadingFont == nil || *got.HeadingFont != "Montserrat" {
		t.Fatalf("HeadingFont = %v, want Montserrat", got.HeadingFont)
	}
	if got.BodyFont == nil || *got.BodyFont != "Open Sans" {
		t.Errorf("BodyFont = %v, want Open Sans", got.BodyFont)
	}
	if got.MatchedPreset != models.PresetBold {
		t.Errorf("MatchedPreset = %q, want bold (heading checked first)", got.MatchedPreset)
	}
}

func TestExtractTypography_CSSSources(t *testing.T) {
	doc := newDoc(t, "https://example.com/", `<html><body></body></html>`)
	css := []string{
		`@font-face { font-family: "Lato"; font-weight: 300; src: url(lato.woff2) }
body { font-family: "Lato", Arial, sans-serif }
h1, h2 { font-family: Georgia, serif }
.card { font-family: "Comic Neue" }`,
	}

	got := ExtractTypography(doc, css)

	if got.HeadingFont == nil || *got.HeadingFont != "Georgia" {
		t.Errorf("HeadingFont = %v, want Georgia", got.HeadingFont)
	}
	if got.BodyFont == nil || *got.BodyFont != "Lato" {
		t.Errorf("BodyFont = %v, want Lato", got.BodyFont)
	}
	if got.MatchedPreset != models.PresetClassic {
		t.Errorf("MatchedPreset = %q, want classic", got.MatchedPreset)
	}
	if got.Confidence != 0.7 {
		t.Errorf("Confidence = %v, want 0.7", got.Confidence)
	}
	if len(got.DetectedFonts) != 2 {
		t.Fatalf("DetectedFonts = %+v, want Lato and Georgia only", got.DetectedFonts)
	}
	if got.DetectedFonts[0].Source != models.FontSourceFontFace {
		t.Errorf("Lato source = %q, want the more trusted font-face", got.DetectedFonts[0].Source)
	}
}

func TestExtractTypography_PlaceholderOnly(t *testing.T) {
	doc := newDoc(t, "https://example.com/", `<html><head>
<link rel="stylesheet" href="https://use.typekit.net/abc1234.css">
</head></html>`)
	css := []string{`body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif }`}

	got := ExtractTypography(doc, css)

	if len(got.DetectedFonts) != 1 || got.DetectedFonts[0].Source != models.FontSourceServiceLink {
		t.Fatalf("DetectedFonts = %+v, want one service placeholder", got.DetectedFonts)
	}
	if got.HeadingFont != nil || got.BodyFont != nil {
		t.Error("placeholder fonts must not be promoted")
	}
	if got.MatchedPreset != models.PresetModern || got.Confidence != 0.4 {
		t.Errorf("preset=%q confidence=%v, want modern 0.4", got.MatchedPreset, got.Confidence)
	}
}

func TestExtractTypography_ResourceHintsIgnored(t *testing.T) {
	doc := newDoc(t, "https://example.com/", `<html><head>
<link rel="preconnect" href="https://use.typekit.net">
<link rel="dns-prefetch" href="https://fonts.googleapis.com/css2?family=Roboto">
<link rel="preload" href="https://fonts.googleapis.com/css2?family=Lato" as="font">
</head></html>`)

	got := ExtractTypography(doc, nil)

	if len(got.DetectedFonts) != 0 {
		t.Errorf("DetectedFonts = %+v, want none from resource hints", got.DetectedFonts)
	}
	if got.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", got.Confidence)
	}
}

func TestExtractTypography_NothingFound(t *testing.T) {
	doc := newDoc(t, "https://example.com/", `<html><body><p>text</p></body></html>`)

	got := ExtractTypography(doc, nil)

	if got.DetectedFonts == nil || len(got.DetectedFonts) != 0 {
		t.Errorf("DetectedFonts = %v, want empty non-nil", got.DetectedFonts)
	}
	if got.Confidence != 0 || got.MatchedPreset != models.PresetModern {
		t.Errorf("preset=%q confidence=%v, want modern 0", got.MatchedPreset, got.Confidence)
	}
}

func TestUsageFromWeights(t *testing.T) {
	tests := []struct {
		weights []int
		want    models.FontUsage
	}{
		{[]int{400, 700}, models.FontUsageUnknown},
		{[]int{600, 700, 400}, models.FontUsageHeading},
		{[]int{300, 400, 700}, models.FontUsageBody},
		{nil, models.FontUsageUnknown},
		{[]int{500}, models.FontUsageUnknown},
	}
	for _, tt := range tests {
		if got := usageFromWeights(tt.weights); got != tt.want {
			t.Errorf("usageFromWeights(%v) = %q, want %q", tt.weights, got, tt.want)
		}
	}
}

func TestParseWeightValue(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"700", []int{700}},
		{"bold", []int{700}},
		{"normal", []int{400}},
		{"100 900", []int{100, 900}},
		{"200..800", []int{200, 800}},
		{"heavy", nil},
	}
	for _, tt := range tests {
		if got := parseWeightValue(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseWeightValue(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
