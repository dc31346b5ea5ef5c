package models

// SectionType is a page-region archetype.
type SectionType string

const (
	SectionHero         SectionType = "hero"
	SectionProductGrid  SectionType = "product-grid"
	SectionTestimonials SectionType = "testimonials"
	SectionAbout        SectionType = "about"
	SectionContact      SectionType = "contact"
	SectionFeatures     SectionType = "features"
	SectionGallery      SectionType = "gallery"
	SectionFAQ          SectionType = "faq"
	SectionCTA          SectionType = "cta"
	SectionUnknown      SectionType = "unknown"
)

// SectionTypes lists the detectable archetypes in scoring order.
func SectionTypes() []SectionType {
	return []SectionType{
		SectionHero,
		SectionProductGrid,
		SectionTestimonials,
		SectionAbout,
		SectionContact,
		SectionFeatures,
		SectionGallery,
		SectionFAQ,
		SectionCTA,
	}
}

// Template is a page template the storefront can be built from.
type Template string

const (
	TemplateClassicStore Template = "classic-store"
	TemplateLandingPage  Template = "landing-page"
	TemplatePortfolio    Template = "portfolio"
	TemplateMagazine     Template = "magazine"
)

// Templates lists every template; the order is the tie-break order.
func Templates() []Template {
	return []Template{TemplateClassicStore, TemplateLandingPage, TemplatePortfolio, TemplateMagazine}
}

// TypographyPreset is one of the five typography presets.
type TypographyPreset string

const (
	PresetModern  TypographyPreset = "modern"
	PresetClassic TypographyPreset = "classic"
	PresetElegant TypographyPreset = "elegant"
	PresetBold    TypographyPreset = "bold"
	PresetMinimal TypographyPreset = "minimal"
)

// FontUsage says whether a font looks like a heading or body face.
type FontUsage string

const (
	FontUsageHeading FontUsage = "heading"
	FontUsageBody    FontUsage = "body"
	FontUsageUnknown FontUsage = "unknown"
)

// FontSource records where a font was observed, most trusted first.
type FontSource string

const (
	FontSourceHostedLink  FontSource = "google-fonts"
	FontSourceFontFace    FontSource = "font-face"
	FontSourceCSSRule     FontSource = "css-rule"
	FontSourceServiceLink FontSource = "font-service"
)

// DetectedFont is a font family observed on the page.
type DetectedFont struct {
	Name    string     `json:"name" yaml:"name"`
	Source  FontSource `json:"source" yaml:"source"`
	Usage   FontUsage  `json:"usage" yaml:"usage"`
	Weights []int      `json:"weights" yaml:"weights"`
}

// NavStructure classifies menu complexity.
type NavStructure string

const (
	NavStructureSimple   NavStructure = "simple"
	NavStructureDropdown NavStructure = "dropdown"
	NavStructureMegaMenu NavStructure = "mega-menu"
	NavStructureUnknown  NavStructure = "unknown"
)

// LogoSource records which signal produced the logo.
type LogoSource string

const (
	LogoSourceHeaderImage    LogoSource = "header-image"
	LogoSourceInlineSVG      LogoSource = "inline-svg"
	LogoSourceOGImage        LogoSource = "og-image"
	LogoSourceFavicon        LogoSource = "favicon"
	LogoSourceAppleTouchIcon LogoSource = "apple-touch-icon"
	LogoSourceNone           LogoSource = ""
)
