// Package scanner runs the full design scan: fetch, parse, extract, classify
// and optionally persist the logo.
package scanner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/dtnitsch/design-scan/models"
	"github.com/dtnitsch/design-scan/pkg/detector"
	"github.com/dtnitsch/design-scan/pkg/extractors"
	"github.com/dtnitsch/design-scan/pkg/fetcher"
	"github.com/dtnitsch/design-scan/pkg/imaging"
	"github.com/dtnitsch/design-scan/pkg/parser"
	"golang.org/x/sync/errgroup"
)

// AssetStore uploads a byte buffer and reports where it was put.
type AssetStore interface {
	Upload(ctx context.Context, in models.UploadInput) (models.StoredObject, error)
}

// AssetRegistry records an uploaded asset and returns it with a stable id.
type AssetRegistry interface {
	Create(ctx context.Context, rec models.AssetRecord) (models.Asset, error)
}

type Scanner struct {
	fetcher        *fetcher.Fetcher
	parser         *parser.Parser
	store          AssetStore
	registry       AssetRegistry
	logger         *slog.Logger
	defaultTimeout time.Duration
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithAssetStore enables logo uploads.
func WithAssetStore(store AssetStore) Option {
	return func(s *Scanner) { s.store = store }
}

// WithAssetRegistry enables registering uploaded logos.
func WithAssetRegistry(registry AssetRegistry) Option {
	return func(s *Scanner) { s.registry = registry }
}

// WithDefaultTimeout sets the page timeout used when a request has none.
func WithDefaultTimeout(d time.Duration) Option {
	return func(s *Scanner) {
		if d > 0 {
			s.defaultTimeout = d
		}
	}
}

func NewScanner(f *fetcher.Fetcher, logger *slog.Logger, opts ...Option) *Scanner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if f == nil {
		f = fetcher.NewFetcher(logger)
	}
	s := &Scanner{
		fetcher:        f,
		parser:         parser.NewParser(),
		logger:         logger,
		defaultTimeout: fetcher.DefaultPageTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan extracts the design of req.URL. It never returns a malformed result:
// scan-aborting failures yield Success=false, the placeholder design and a
// message in Errors.
func (s *Scanner) Scan(ctx context.Context, req models.ScanRequest) (result models.ScanResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scan failed unexpectedly", "url", req.URL, "panic", r, "stack", string(debug.Stack()))
			result = failedResult(fetcher.NewScanError(fetcher.CodeUnexpected, "", nil))
		}
	}()

	started := time.Now()
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.defaultTimeout
	}

	page, err := s.fetcher.FetchPage(ctx, req.URL, timeout)
	if err != nil {
		s.logger.Warn("Scan aborted", "url", req.URL, "error", err)
		return failedResult(err)
	}

	doc, err := s.parser.Parse(page.HTML, page.FinalURL)
	if err != nil {
		s.logger.Warn("Scan aborted", "url", req.URL, "error", err)
		return failedResult(fetcher.NewScanError(fetcher.CodeInvalidContent, "the HTML could not be parsed", err))
	}

	css := append([]string{}, page.InlineStyles...)
	css = append(css, s.fetcher.FetchStylesheets(ctx, page.StylesheetURLs)...)

	design := s.extract(ctx, req, doc, css)

	s.logger.Info("Scan complete",
		"url", req.URL,
		"final_url", page.FinalURL.String(),
		"sections", len(design.Sections),
		"template", design.TemplateMatch.Recommended,
		"limitations", len(design.Limitations),
		"duration", time.Since(started).Round(time.Millisecond))

	return models.ScanResult{
		Success:         true,
		ExtractedDesign: design,
		Errors:          []string{},
	}
}

// extract runs every extraction stage. A stage that panics falls back to
// its empty result and a limitation; it never aborts the scan.
func (s *Scanner) extract(ctx context.Context, req models.ScanRequest, doc *parser.Document, css []string) models.ExtractedDesign {
	design := models.EmptyDesign()
	design.Site = doc.Site
	var limitations []string
	page := doc.Document

	// Colors and typography only read the tree, so they can share it
	var (
		colors     extractors.ColorResult
		typography = design.Typography
		colorsOK   bool
		typeOK     bool
		g          errgroup.Group
	)
	g.Go(func() error {
		colors, colorsOK = runStage(s.logger, "colors", extractors.ColorResult{}, func() extractors.ColorResult {
			return extractors.ExtractColors(page, css)
		})
		return nil
	})
	g.Go(func() error {
		typography, typeOK = runStage(s.logger, "typography", typography, func() models.Typography {
			return extractors.ExtractTypography(page, css)
		})
		return nil
	})
	_ = g.Wait()

	switch {
	case !colorsOK:
		limitations = append(limitations, stageFailed("color palette"))
	case colors.Primary == "":
		limitations = append(limitations, LimitationNoColors)
	default:
		design.Colors = models.ColorPalette{
			Primary:    stringPtr(colors.Primary),
			Accent:     optionalString(colors.Accent),
			Confidence: models.ClampConfidence(colors.Confidence),
		}
	}

	design.Typography = typography
	switch {
	case !typeOK:
		limitations = append(limitations, stageFailed("typography"))
	case typography.HeadingFont == nil && typography.BodyFont == nil:
		limitations = append(limitations, LimitationNoFonts)
	}

	logo, ok := runStage(s.logger, "logo", extractors.LogoResult{}, func() extractors.LogoResult {
		return extractors.ExtractLogo(page)
	})
	switch {
	case !ok:
		limitations = append(limitations, stageFailed("logo"))
	case logo.Vector:
		// Reported without a URL; inline markup has nothing to download.
		design.Logo = &models.Logo{
			Source:     logo.Source,
			Confidence: models.ClampConfidence(logo.Confidence),
		}
		limitations = append(limitations, LimitationVectorLogo)
	case logo.Found():
		design.Logo = &models.Logo{
			SourceURL:  logo.URL,
			Source:     logo.Source,
			Confidence: models.ClampConfidence(logo.Confidence),
		}
	}

	nav, ok := runStage(s.logger, "navigation", design.Navigation, func() models.Navigation {
		return extractors.ExtractNavigation(page)
	})
	design.Navigation = nav
	switch {
	case !ok:
		limitations = append(limitations, stageFailed("navigation"))
	case len(nav.Items) == 0:
		limitations = append(limitations, LimitationNoNavigation)
	}

	sections, ok := runStage(s.logger, "sections", design.Sections, func() []models.DetectedSection {
		return detector.DetectSections(page)
	})
	design.Sections = sections
	switch {
	case !ok:
		limitations = append(limitations, stageFailed("page layout"))
	case len(sections) == 0:
		limitations = append(limitations, LimitationNoSections)
	}

	match, ok := runStage(s.logger, "template", design.TemplateMatch, func() models.TemplateRecommendation {
		return detector.MatchTemplate(sections, detector.DetectSignals(page, sections))
	})
	design.TemplateMatch = match
	if !ok {
		limitations = append(limitations, stageFailed("template match"))
	}

	// The logo download runs last, after every extractor has finished
	if design.Logo != nil && design.Logo.SourceURL != "" && req.DownloadLogo {
		if note := s.persistLogo(ctx, req, design.Logo); note != "" {
			limitations = append(limitations, note)
		}
	}

	if limitations == nil {
		limitations = []string{}
	}
	design.Limitations = limitations
	return design
}

// persistLogo downloads, uploads and registers the logo. It returns a
// limitation when any step fails.
func (s *Scanner) persistLogo(ctx context.Context, req models.ScanRequest, logo *models.Logo) (note string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Logo import failed unexpectedly", "url", logo.SourceURL, "panic", r)
			note = LimitationLogoDownload
		}
	}()

	img, err := s.fetcher.DownloadImage(ctx, logo.SourceURL)
	if err != nil {
		s.logger.Warn("Logo download failed", "url", logo.SourceURL, "error", err)
		return LimitationLogoDownload
	}

	if s.store == nil {
		s.logger.Warn("Logo not saved, no asset store configured", "url", logo.SourceURL)
		return LimitationLogoNotSaved
	}
	obj, err := s.store.Upload(ctx, models.UploadInput{
		OwnerID:     req.TenantID,
		FileName:    "logo" + fetcher.ExtensionFor(img.ContentType),
		Buffer:      img.Data,
		ContentType: img.ContentType,
		Metadata: map[string]string{
			"importedFrom": logo.SourceURL,
			"source":       string(logo.Source),
		},
	})
	if err != nil {
		s.logger.Warn("Logo upload failed", "url", logo.SourceURL, "error", err)
		return LimitationLogoNotSaved
	}

	variants := []models.AssetVariant{{Name: "original", URL: obj.URL, Key: obj.Key}}
	if thumb, ok := s.uploadThumbnail(ctx, req, logo, img.Data); ok {
		variants = append(variants, thumb)
	}

	if s.registry == nil {
		s.logger.Warn("Logo not registered, no asset registry configured", "key", obj.Key)
		return LimitationLogoNotRegistered
	}
	asset, err := s.registry.Create(ctx, models.AssetRecord{
		OwnerID:      req.TenantID,
		Type:         models.AssetTypeImage,
		MimeType:     img.ContentType,
		Filename:     "logo" + fetcher.ExtensionFor(img.ContentType),
		SizeBytes:    int64(len(img.Data)),
		Variants:     variants,
		Source:       models.AssetSourceWebsiteImport,
		ImportedFrom: logo.SourceURL,
	})
	if err != nil {
		s.logger.Warn("Logo registration failed", "key", obj.Key, "error", err)
		return LimitationLogoNotRegistered
	}

	s.logger.Info("Logo imported", "asset_id", asset.ID, "content_type", img.ContentType, "bytes", len(img.Data))
	logo.DownloadedAssetID = &asset.ID
	return ""
}

// uploadThumbnail stores a small PNG rendition of a raster logo. Logos that
// cannot be decoded or are already small get no thumbnail.
func (s *Scanner) uploadThumbnail(ctx context.Context, req models.ScanRequest, logo *models.Logo, data []byte) (models.AssetVariant, bool) {
	thumb, err := imaging.Thumbnail(data, imaging.DefaultThumbnailSize)
	if err != nil {
		if !errors.Is(err, imaging.ErrAlreadySmall) {
			s.logger.Debug("Skipping logo thumbnail", "url", logo.SourceURL, "error", err)
		}
		return models.AssetVariant{}, false
	}
	obj, err := s.store.Upload(ctx, models.UploadInput{
		OwnerID:     req.TenantID,
		FileName:    "logo-thumbnail.png",
		Buffer:      thumb,
		ContentType: "image/png",
		Metadata: map[string]string{
			"importedFrom": logo.SourceURL,
			"variant":      "thumbnail",
		},
	})
	if err != nil {
		s.logger.Warn("Logo thumbnail upload failed", "url", logo.SourceURL, "error", err)
		return models.AssetVariant{}, false
	}
	return models.AssetVariant{Name: "thumbnail", URL: obj.URL, Key: obj.Key}, true
}

// runStage calls fn, converting a panic into fallback and ok=false.
func runStage[T any](logger *slog.Logger, stage string, fallback T, fn func() T) (out T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Extraction stage failed", "stage", stage, "panic", r)
			out, ok = fallback, false
		}
	}()
	return fn(), true
}

// failedResult is the aborted-scan shape: placeholder design plus one error.
func failedResult(err error) models.ScanResult {
	msg := fetcher.DefaultMessage(fetcher.CodeUnexpected)
	if se, ok := fetcher.AsScanError(err); ok {
		msg = se.Message
	}
	return models.ScanResult{
		Success:         false,
		ExtractedDesign: models.EmptyDesign(),
		Errors:          []string{msg},
	}
}

func stringPtr(s string) *string {
	return &s
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
