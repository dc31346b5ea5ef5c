package detector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dtnitsch/design-scan/models"
)

// templateProfile is a template's base suitability and its per-archetype
// weights. Negative weights argue against the template.
type templateProfile struct {
	base    float64
	weights map[models.SectionType]float64
}

var templateProfiles = map[models.Template]templateProfile{
	models.TemplateClassicStore: {
		base: 1.0,
		weights: map[models.SectionType]float64{
			models.SectionHero:         0.5,
			models.SectionProductGrid:  3,
			models.SectionTestimonials: 0.5,
			models.SectionAbout:        0.3,
			models.SectionContact:      0.2,
			models.SectionFeatures:     0.3,
			models.SectionGallery:      0.3,
			models.SectionFAQ:          0.5,
			models.SectionCTA:          0.3,
		},
	},
	models.TemplateLandingPage: {
		base: 0.5,
		weights: map[models.SectionType]float64{
			models.SectionHero:         1.5,
			models.SectionProductGrid:  0.5,
			models.SectionTestimonials: 1.5,
			models.SectionAbout:        0.5,
			models.SectionContact:      0.5,
			models.SectionFeatures:     2,
			models.SectionGallery:      0,
			models.SectionFAQ:          1,
			models.SectionCTA:          1.5,
		},
	},
	models.TemplatePortfolio: {
		base: 0.3,
		weights: map[models.SectionType]float64{
			models.SectionHero:         0.5,
			models.SectionProductGrid:  -1,
			models.SectionTestimonials: 0.5,
			models.SectionAbout:        1,
			models.SectionContact:      1,
			models.SectionFeatures:     0,
			models.SectionGallery:      2.5,
			models.SectionFAQ:          -0.3,
			models.SectionCTA:          0.3,
		},
	},
	models.TemplateMagazine: {
		base: 0.3,
		weights: map[models.SectionType]float64{
			models.SectionHero:         0.2,
			models.SectionProductGrid:  -0.5,
			models.SectionTestimonials: 0,
			models.SectionAbout:        0.5,
			models.SectionContact:      0.2,
			models.SectionFeatures:     0,
			models.SectionGallery:      0.5,
			models.SectionFAQ:          0,
			models.SectionCTA:          0,
		},
	},
}

const (
	productStoreBonus     = 3.0
	productLandingBonus   = 0.5
	manySectionsBonus     = 1.0
	galleryPortfolioBonus = 1.0
	articleMagazineBonus  = 1.5

	manySections = 4
	manyArticles = 3
)

// TemplateScore is one template's total.
type TemplateScore struct {
	Template models.Template
	Score    float64
}

// ScoreTemplates scores every template, best first. Ties keep the
// models.Templates order.
func ScoreTemplates(sections []models.DetectedSection, signals Signals) []TemplateScore {
	hasGallery := false
	for _, s := range sections {
		hasGallery = hasGallery || s.Type == models.SectionGallery
	}

	scores := make([]TemplateScore, 0, len(templateProfiles))
	for _, t := range models.Templates() {
		profile := templateProfiles[t]
		score := profile.base
		for _, s := range sections {
			score += profile.weights[s.Type] * s.Confidence
		}

		switch t {
		case models.TemplateClassicStore:
			if signals.HasProducts {
				score += productStoreBonus
			}
		case models.TemplateLandingPage:
			if signals.HasProducts {
				score += productLandingBonus
			}
			if len(sections) >= manySections {
				score += manySectionsBonus
			}
		case models.TemplatePortfolio:
			if hasGallery {
				score += galleryPortfolioBonus
			}
		case models.TemplateMagazine:
			if signals.ArticleCount >= manyArticles {
				score += articleMagazineBonus
			}
		}
		scores = append(scores, TemplateScore{Template: t, Score: round2(score)})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	return scores
}

// MatchTemplate recommends the best-fit template with two alternatives.
// With no sections and no products the storefront wins on its base score.
func MatchTemplate(sections []models.DetectedSection, signals Signals) models.TemplateRecommendation {
	scores := ScoreTemplates(sections, signals)
	top := scores[0]

	rec := models.TemplateRecommendation{
		Recommended:  top.Template,
		Confidence:   marginConfidence(top.Score-scores[1].Score, len(sections)),
		Reason:       templateReason(top.Template, sections, signals),
		Alternatives: make([]models.TemplateAlternative, 0, 2),
	}
	for _, alt := range scores[1:3] {
		rec.Alternatives = append(rec.Alternatives, models.TemplateAlternative{
			Template: alt.Template,
			Reason:   templateReason(alt.Template, sections, signals),
		})
	}
	return rec
}

// marginConfidence grows with the lead of the top template over the runner-up.
func marginConfidence(margin float64, sectionCount int) float64 {
	var confidence float64
	switch {
	case margin > 3:
		confidence = 0.9
	case margin > 2:
		confidence = 0.8
	case margin > 1:
		confidence = 0.7
	case margin > 0.5:
		confidence = 0.6
	default:
		confidence = 0.5
	}
	if sectionCount >= manySections {
		confidence += 0.1
	}
	return models.ClampConfidence(round2(confidence))
}

func templateReason(t models.Template, sections []models.DetectedSection, signals Signals) string {
	var reason string
	switch t {
	case models.TemplateClassicStore:
		if signals.HasProducts {
			reason = "Product listings were found on the page"
		} else {
			reason = "A storefront layout suits most online shops"
		}
	case models.TemplateLandingPage:
		if has(sections, models.SectionHero, models.SectionFeatures, models.SectionTestimonials, models.SectionCTA) {
			reason = "The page is built from marketing sections"
		} else {
			reason = "A single focused page with a clear call to action"
		}
	case models.TemplatePortfolio:
		if has(sections, models.SectionGallery) {
			reason = "An image gallery is a central part of the page"
		} else {
			reason = "A visual layout for showcasing work"
		}
	case models.TemplateMagazine:
		if signals.ArticleCount >= manyArticles {
			reason = fmt.Sprintf("The page lists %d articles", signals.ArticleCount)
		} else {
			reason = "An editorial layout for content-led sites"
		}
	}

	if len(sections) == 0 {
		return reason
	}
	names := make([]string, 0, len(sections))
	for _, s := range sections {
		names = append(names, string(s.Type))
	}
	return fmt.Sprintf("%s (detected sections: %s)", reason, strings.Join(names, ", "))
}

func has(sections []models.DetectedSection, kinds ...models.SectionType) bool {
	for _, s := range sections {
		for _, k := range kinds {
			if s.Type == k {
				return true
			}
		}
	}
	return false
}
