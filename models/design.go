// Package models defines the data structures shared across the design scan pipeline.
package models

import "time"

// MaxConfidence is the ceiling for every confidence value the pipeline reports.
// A heuristic signal is never asserted as certain.
const MaxConfidence = 0.95

// ClampConfidence bounds c to [0, MaxConfidence].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > MaxConfidence {
		return MaxConfidence
	}
	return c
}

// ScanRequest is the input to a single design scan.
type ScanRequest struct {
	URL          string        `json:"url" yaml:"url"`
	TenantID     string        `json:"tenantId" yaml:"tenant_id"`
	Timeout      time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	DownloadLogo bool          `json:"downloadLogo,omitempty" yaml:"download_logo,omitempty"`
}

// ScanResult is the outcome of a scan. Errors is populated only when the scan
// could not complete; partial signal loss is reported through
// ExtractedDesign.Limitations instead.
type ScanResult struct {
	Success         bool            `json:"success" yaml:"success"`
	ExtractedDesign ExtractedDesign `json:"extractedDesign" yaml:"extracted_design"`
	Errors          []string        `json:"errors" yaml:"errors"`
}

// ExtractedDesign is the design fingerprint of a single page.
type ExtractedDesign struct {
	Colors        ColorPalette           `json:"colors" yaml:"colors"`
	Typography    Typography             `json:"typography" yaml:"typography"`
	Logo          *Logo                  `json:"logo" yaml:"logo"`
	Navigation    Navigation             `json:"navigation" yaml:"navigation"`
	Sections      []DetectedSection      `json:"sections" yaml:"sections"`
	TemplateMatch TemplateRecommendation `json:"templateMatch" yaml:"template_match"`
	Site          SiteMetadata           `json:"site" yaml:"site"`
	Limitations   []string               `json:"limitations" yaml:"limitations"`
}

// EmptyDesign returns the placeholder design: every field present with
// null, empty or zero-confidence values.
func EmptyDesign() ExtractedDesign {
	return ExtractedDesign{
		Colors: ColorPalette{},
		Typography: Typography{
			MatchedPreset: PresetModern,
			DetectedFonts: []DetectedFont{},
		},
		Navigation: Navigation{
			Items:     []NavItem{},
			Structure: NavStructureUnknown,
		},
		Sections: []DetectedSection{},
		TemplateMatch: TemplateRecommendation{
			Recommended:  TemplateClassicStore,
			Alternatives: []TemplateAlternative{},
		},
		Limitations: []string{},
	}
}

// ColorPalette holds the brand colors as lowercase #rrggbb strings.
type ColorPalette struct {
	Primary    *string `json:"primary" yaml:"primary"`
	Accent     *string `json:"accent" yaml:"accent"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Typography holds the detected fonts and the preset they map to.
type Typography struct {
	HeadingFont   *string          `json:"headingFont" yaml:"heading_font"`
	BodyFont      *string          `json:"bodyFont" yaml:"body_font"`
	MatchedPreset TypographyPreset `json:"matchedPreset" yaml:"matched_preset"`
	DetectedFonts []DetectedFont   `json:"detectedFonts" yaml:"detected_fonts"`
	Confidence    float64          `json:"confidence" yaml:"confidence"`
}

// Logo points at the page's logo image and, once persisted, the registry record.
type Logo struct {
	SourceURL         string     `json:"sourceUrl" yaml:"source_url"`
	DownloadedAssetID *string    `json:"downloadedAssetId" yaml:"downloaded_asset_id"`
	Source            LogoSource `json:"source" yaml:"source"`
	Confidence        float64    `json:"confidence" yaml:"confidence"`
}

// Navigation is the primary menu of the page.
type Navigation struct {
	Items      []NavItem    `json:"items" yaml:"items"`
	Structure  NavStructure `json:"structure" yaml:"structure"`
	Confidence float64      `json:"confidence" yaml:"confidence"`
}

// NavItem is a single primary navigation link. Href is always absolute.
type NavItem struct {
	Label      string `json:"label" yaml:"label"`
	Href       string `json:"href" yaml:"href"`
	HasSubmenu bool   `json:"hasSubmenu" yaml:"has_submenu"`
}

// DetectedSection is a page region classified as one of the section archetypes.
type DetectedSection struct {
	Type       SectionType `json:"type" yaml:"type"`
	Confidence float64     `json:"confidence" yaml:"confidence"`
	Selector   string      `json:"selector" yaml:"selector"`
	Indicators []string    `json:"indicators" yaml:"indicators"`
}

// TemplateRecommendation is the best-fit storefront template for the page.
type TemplateRecommendation struct {
	Recommended  Template              `json:"recommended" yaml:"recommended"`
	Confidence   float64               `json:"confidence" yaml:"confidence"`
	Reason       string                `json:"reason" yaml:"reason"`
	Alternatives []TemplateAlternative `json:"alternatives" yaml:"alternatives"`
}

// TemplateAlternative is a runner-up template with a short explanation.
type TemplateAlternative struct {
	Template Template `json:"template" yaml:"template"`
	Reason   string   `json:"reason" yaml:"reason"`
}

// SiteMetadata holds descriptive page metadata gathered alongside the design.
type SiteMetadata struct {
	Title              string  `json:"title,omitempty" yaml:"title,omitempty"`
	SiteName           string  `json:"siteName,omitempty" yaml:"site_name,omitempty"`
	Description        string  `json:"description,omitempty" yaml:"description,omitempty"`
	Favicon            string  `json:"favicon,omitempty" yaml:"favicon,omitempty"`
	Image              string  `json:"image,omitempty" yaml:"image,omitempty"`
	Language           string  `json:"language,omitempty" yaml:"language,omitempty"`
	LanguageConfidence float64 `json:"languageConfidence,omitempty" yaml:"language_confidence,omitempty"`
	FinalURL           string  `json:"finalUrl,omitempty" yaml:"final_url,omitempty"`
}
