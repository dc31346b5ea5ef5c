package extractors

import (
	"math"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/design-scan/internal/common"
	"github.com/dtnitsch/design-scan/models"
)

const (
	MaxNavItems      = 12
	maxNavLabelChars = 50
	megaMenuLinks    = 8
)

var navContainerSelectors = []string{
	"header nav",
	`[role="navigation"]`,
	"nav",
	`[class*="navbar"], [class*="nav-menu"], [class*="main-menu"], [class*="primary-menu"], [id*="navbar"], [id*="nav-menu"]`,
}

var (
	utilityLabelPattern = regexp.MustCompile(`(?i)\b(cart|bag|basket|checkout|log ?in|log ?out|sign ?in|sign ?up|register|my account|account|search|wishlist|privacy|terms|cookies?|legal|imprint|impressum|sitemap)\b`)
	utilityHrefPattern  = regexp.MustCompile(`(?i)(^(mailto|tel|sms):)|/(cart|basket|checkout|login|logout|signin|signup|register|account|search|wishlist|privacy|terms|cookies?|legal|sitemap)\b|wa\.me|whatsapp`)
	socialHostPattern   = regexp.MustCompile(`(?i)(^|\.)(facebook|instagram|twitter|x|tiktok|youtube|linkedin|pinterest|snapchat|threads|reddit|tumblr|vimeo)\.com$`)
	megaClassPattern    = regexp.MustCompile(`(?i)mega`)
	columnClassPattern  = regexp.MustCompile(`(?i)\b(col|cols|columns?|grid)\b|col-`)
	submenuClassPattern = regexp.MustCompile(`(?i)dropdown|submenu|sub-menu|has-children|menu-item-has-children`)
)

// ExtractNavigation finds the primary menu and classifies its structure.
func ExtractNavigation(doc *goquery.Document) models.Navigation {
	result := models.Navigation{Items: []models.NavItem{}, Structure: models.NavStructureUnknown}

	container := findNavContainer(doc)
	if container == nil {
		return result
	}

	seen := make(map[string]bool)
	container.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		item, ok := navItem(doc, a)
		if !ok {
			return true
		}
		key := common.NormalizeHref(item.Href)
		if seen[key] {
			return true
		}
		seen[key] = true
		result.Items = append(result.Items, item)
		return len(result.Items) < MaxNavItems
	})

	if len(result.Items) == 0 {
		return result
	}

	mega := isMegaMenu(container)
	hasSubmenu := false
	for _, item := range result.Items {
		hasSubmenu = hasSubmenu || item.HasSubmenu
	}
	switch {
	case mega:
		result.Structure = models.NavStructureMegaMenu
	case hasSubmenu:
		result.Structure = models.NavStructureDropdown
	default:
		result.Structure = models.NavStructureSimple
	}

	confidence := 0.7
	if n := len(result.Items); n >= 3 && n <= 10 {
		confidence = 0.85
	}
	if mega {
		confidence += 0.1
	}
	result.Confidence = models.ClampConfidence(math.Round(confidence*100) / 100)
	return result
}

// findNavContainer returns the first container selector match that holds at
// least one anchor.
func findNavContainer(doc *goquery.Document) *goquery.Selection {
	for _, selector := range navContainerSelectors {
		var found *goquery.Selection
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if s.Find("a[href]").Length() > 0 {
				found = s
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

func navItem(doc *goquery.Document, a *goquery.Selection) (models.NavItem, bool) {
	href, _ := a.Attr("href")
	href = strings.TrimSpace(href)
	lower := strings.ToLower(href)
	if href == "" || href == "#" || strings.HasPrefix(lower, "javascript:") {
		return models.NavItem{}, false
	}

	label := strings.Join(strings.Fields(a.Text()), " ")
	if label == "" {
		label, _ = a.Attr("aria-label")
		label = strings.TrimSpace(label)
	}
	if label == "" || len([]rune(label)) > maxNavLabelChars {
		return models.NavItem{}, false
	}
	if isUtilityLink(label, lower) {
		return models.NavItem{}, false
	}

	abs, ok := common.ResolveURL(doc.Url, href)
	if !ok {
		return models.NavItem{}, false
	}
	if host := hostOf(abs); socialHostPattern.MatchString(host) {
		return models.NavItem{}, false
	}

	return models.NavItem{Label: label, Href: abs, HasSubmenu: hasSubmenu(a)}, true
}

func isUtilityLink(label, href string) bool {
	return utilityLabelPattern.MatchString(label) || utilityHrefPattern.MatchString(href)
}

func hostOf(abs string) string {
	rest := abs[strings.Index(abs, "//")+2:]
	if end := strings.IndexAny(rest, "/?#"); end >= 0 {
		rest = rest[:end]
	}
	if colon := strings.LastIndexByte(rest, ':'); colon >= 0 {
		rest = rest[:colon]
	}
	return strings.TrimPrefix(strings.ToLower(rest), "www.")
}

// hasSubmenu reports a dropdown attached to the anchor's list item.
func hasSubmenu(a *goquery.Selection) bool {
	if popup, ok := a.Attr("aria-haspopup"); ok && popup != "false" {
		return true
	}
	li := a.Closest("li")
	if li.Length() == 0 {
		return false
	}
	if li.ChildrenFiltered("ul, ol, div").Find("a").Length() > 0 {
		return true
	}
	class, _ := li.Attr("class")
	return submenuClassPattern.MatchString(class)
}

func isMegaMenu(container *goquery.Selection) bool {
	mega := false
	container.Find("*").AddSelection(container).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		if megaClassPattern.MatchString(class) {
			mega = true
			return false
		}
		return true
	})
	if mega {
		return true
	}
	if container.Find("ul ul ul").Length() > 0 {
		return true
	}
	container.Find("li > ul, li > ol, li > div").EachWithBreak(func(_ int, dropdown *goquery.Selection) bool {
		class, _ := dropdown.Attr("class")
		if dropdown.Find("a").Length() > megaMenuLinks || columnClassPattern.MatchString(class) {
			mega = true
			return false
		}
		return true
	})
	return mega
}
