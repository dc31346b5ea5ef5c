package scanner

import "fmt"

// User-facing notes for signals a completed scan could not extract.
const (
	LimitationNoColors          = "No brand colors could be detected on the page"
	LimitationNoFonts           = "No web fonts could be detected; the default typography preset was used"
	LimitationNoNavigation      = "No primary navigation menu was detected"
	LimitationNoSections        = "No page sections could be identified"
	LimitationVectorLogo        = "An inline SVG logo was found but it cannot be imported automatically"
	LimitationLogoDownload      = "A logo was found but it could not be downloaded"
	LimitationLogoNotSaved      = "The logo was downloaded but could not be saved"
	LimitationLogoNotRegistered = "The logo was saved but could not be added to the asset library"
)

func stageFailed(stage string) string {
	return fmt.Sprintf("The %s could not be analyzed because of an internal error", stage)
}
