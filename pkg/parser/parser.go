package parser

import (
	"bufio"
	"fmt"
	"math"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/design-scan/models"
	"github.com/go-shiori/go-readability"
	"github.com/pemistahl/lingua-go"
)

const maxLanguageSample = 4000

// Document is a parsed page: the queryable tree plus the URL every relative
// reference resolves against.
type Document struct {
	*goquery.Document
	BaseURL *url.URL
	Site    models.SiteMetadata
}

type Parser struct {
	once     sync.Once
	detector lingua.LanguageDetector
}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) languageDetector() lingua.LanguageDetector {
	p.once.Do(func() {
		p.detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(
				lingua.English, lingua.French, lingua.German, lingua.Spanish,
				lingua.Italian, lingua.Portuguese, lingua.Dutch, lingua.Swedish,
				lingua.Danish, lingua.Polish, lingua.Japanese, lingua.Chinese,
			).
			WithMinimumRelativeDistance(0.1).
			Build()
	})
	return p.detector
}

// Parse builds the document tree for html fetched from baseURL. Site metadata
// is best effort and never fails the parse.
func (p *Parser) Parse(html string, baseURL *url.URL) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Url = baseURL

	d := &Document{Document: doc, BaseURL: baseURL}
	d.Site = p.siteMetadata(html, d)
	return d, nil
}

func (p *Parser) siteMetadata(html string, d *Document) models.SiteMetadata {
	meta := models.SiteMetadata{}
	if d.BaseURL != nil {
		meta.FinalURL = d.BaseURL.String()
	}

	var text string
	article, err := readability.NewParser().Parse(strings.NewReader(html), d.BaseURL)
	if err == nil {
		meta.Title = normalizeText(article.Title)
		meta.SiteName = normalizeText(article.SiteName)
		meta.Description = normalizeText(article.Excerpt)
		meta.Favicon = article.Favicon
		meta.Image = article.Image
		text = article.TextContent
	}

	if meta.Title == "" {
		meta.Title = normalizeText(d.Find("title").First().Text())
	}
	if meta.Description == "" {
		if desc, ok := d.Find(`meta[name="description"]`).Attr("content"); ok {
			meta.Description = normalizeText(desc)
		}
	}
	if text == "" {
		text = d.Find("body").Text()
	}

	meta.Language, meta.LanguageConfidence = p.detectLanguage(normalizeText(text))
	if meta.Language == "" {
		if lang, ok := d.Find("html").Attr("lang"); ok {
			meta.Language = strings.ToLower(strings.SplitN(strings.TrimSpace(lang), "-", 2)[0])
		}
	}
	return meta
}

func (p *Parser) detectLanguage(text string) (string, float64) {
	if len(strings.Fields(text)) < 5 {
		return "", 0
	}
	if len(text) > maxLanguageSample {
		text = text[:maxLanguageSample]
	}

	detector := p.languageDetector()
	language, ok := detector.DetectLanguageOf(text)
	if !ok {
		return "", 0
	}
	confidence := detector.ComputeLanguageConfidence(text, language)
	return strings.ToLower(language.IsoCode639_1().String()), math.Round(confidence*100) / 100
}

// normalizeText cleans up a string by trimming space and removing excess newlines.
func normalizeText(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.Join(strings.Fields(scanner.Text()), " ")
		if line != "" {
			b.WriteString(line)
			b.WriteString(" ")
		}
	}
	return strings.TrimSpace(b.String())
}
