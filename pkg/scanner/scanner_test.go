package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/dtnitsch/design-scan/models"
	"github.com/dtnitsch/design-scan/pkg/fetcher"
)

const storePage = `<!doctype html>
<html lang="en"><head>
<title>Acme Outfitters</title>
<meta name="theme-color" content="#1a73e8">
<link rel="stylesheet" href="/css/site.css">
</head><body>
<header>
  <a href="/"><img class="logo" src="/logo.png" alt="Acme"></a>
  <nav><ul>
    <li><a href="/">Home</a></li>
    <li><a href="/shop">Shop</a></li>
    <li><a href="/about">About</a></li>
    <li><a href="/cart">Cart</a></li>
  </ul></nav>
</header>
<main>
  <section class="hero">
    <h1>Gear for every season</h1>
    <p>Durable outdoor clothing, tested in the mountains before it reaches you.</p>
    <a class="btn" href="/shop">Shop now</a>
  </section>
  <section class="products">
    <h2>Best sellers</h2>
    <div class="product-card"><img src="/p/1.jpg"><p>Trail Jacket</p><span>$129.00</span></div>
    <div class="product-card"><img src="/p/2.jpg"><p>Wool Beanie</p><span>$25.00</span></div>
    <div class="product-card"><img src="/p/3.jpg"><p>Camp Mug</p><span>$14.50</span></div>
  </section>
</main>
</body></html>`

const siteCSS = `body { font-family: "Lato", Arial, sans-serif; color: #222 }
h1, h2 { font-family: "Montserrat", sans-serif }
.btn { background-color: #ff5722; color: #fff }`

func pngBytes(size int) []byte {
	data := []byte("\x89PNG\r\n\x1a\n")
	return append(data, bytes.Repeat([]byte{0}, size-len(data))...)
}

const redirectPrefix = "redirect:"

// newSite serves pages keyed by path. Unknown paths are 404s and a body of
// "redirect:<target>" answers with a 302 to target.
func newSite(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if target, found := strings.CutPrefix(body, redirectPrefix); found {
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
		switch {
		case strings.HasSuffix(r.URL.Path, ".css"):
			w.Header().Set("Content-Type", "text/css")
		case strings.HasSuffix(r.URL.Path, ".png"):
			w.Header().Set("Content-Type", "image/png")
		default:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestScanner(opts ...Option) *Scanner {
	f := fetcher.NewFetcher(nil, fetcher.WithStylesheetTimeout(time.Second), fetcher.WithImageTimeout(time.Second))
	return NewScanner(f, nil, opts...)
}

type fakeStore struct {
	uploads []models.UploadInput
	err     error
}

func (f *fakeStore) Upload(_ context.Context, in models.UploadInput) (models.StoredObject, error) {
	if f.err != nil {
		return models.StoredObject{}, f.err
	}
	f.uploads = append(f.uploads, in)
	return models.StoredObject{URL: "https://cdn.example.com/" + in.FileName, Key: in.OwnerID + "/" + in.FileName}, nil
}

type fakeRegistry struct {
	records []models.AssetRecord
}

func (f *fakeRegistry) Create(_ context.Context, rec models.AssetRecord) (models.Asset, error) {
	f.records = append(f.records, rec)
	return models.Asset{ID: "asset-1", AssetRecord: rec}, nil
}

// checkInvariants asserts the properties every completed scan must hold.
func checkInvariants(t *testing.T, d models.ExtractedDesign) {
	t.Helper()
	confidences := []float64{d.Colors.Confidence, d.Typography.Confidence, d.Navigation.Confidence, d.TemplateMatch.Confidence}
	if d.Logo != nil {
		confidences = append(confidences, d.Logo.Confidence)
	}
	seenTypes := make(map[models.SectionType]bool)
	for _, s := range d.Sections {
		confidences = append(confidences, s.Confidence)
		if seenTypes[s.Type] {
			t.Errorf("section type %q appears twice", s.Type)
		}
		seenTypes[s.Type] = true
	}
	for _, c := range confidences {
		if c < 0 || c > models.MaxConfidence {
			t.Errorf("confidence %v outside [0, %v]", c, models.MaxConfidence)
		}
	}
	if len(d.Navigation.Items) > 12 {
		t.Errorf("navigation has %d items", len(d.Navigation.Items))
	}
	for _, item := range d.Navigation.Items {
		if !strings.HasPrefix(item.Href, "http://") && !strings.HasPrefix(item.Href, "https://") {
			t.Errorf("nav href %q is not absolute", item.Href)
		}
	}
}

func TestScan_Storefront(t *testing.T) {
	srv := newSite(t, map[string]string{
		"/":             storePage,
		"/css/site.css": siteCSS,
	})

	result := newTestScanner().Scan(context.Background(), models.ScanRequest{URL: srv.URL + "/", TenantID: "tenant-1"})

	if !result.Success || len(result.Errors) != 0 {
		t.Fatalf("Scan() success=%v errors=%v", result.Success, result.Errors)
	}
	d := result.ExtractedDesign
	checkInvariants(t, d)

	if d.Colors.Primary == nil || *d.Colors.Primary != "#1a73e8" {
		t.Errorf("Colors.Primary = %v, want #1a73e8", d.Colors.Primary)
	}
	if d.Colors.Accent == nil || *d.Colors.Accent != "#ff5722" {
		t.Errorf("Colors.Accent = %v, want #ff5722", d.Colors.Accent)
	}
	if d.Typography.HeadingFont == nil || *d.Typography.HeadingFont != "Montserrat" {
		t.Errorf("HeadingFont = %v, want Montserrat", d.Typography.HeadingFont)
	}
	if d.Logo == nil || d.Logo.SourceURL != srv.URL+"/logo.png" || d.Logo.Confidence != 0.85 {
		t.Errorf("Logo = %+v, want header logo at %s/logo.png", d.Logo, srv.URL)
	}
	if d.Logo != nil && d.Logo.DownloadedAssetID != nil {
		t.Error("logo was downloaded without being requested")
	}
	if len(d.Navigation.Items) != 3 || d.Navigation.Structure != models.NavStructureSimple {
		t.Errorf("Navigation = %+v", d.Navigation)
	}
	types := make(map[models.SectionType]bool)
	for _, s := range d.Sections {
		types[s.Type] = true
	}
	if !types[models.SectionHero] || !types[models.SectionProductGrid] {
		t.Errorf("Sections = %+v, want hero and product-grid", d.Sections)
	}
	if d.TemplateMatch.Recommended != models.TemplateClassicStore {
		t.Errorf("Recommended = %q, want classic-store", d.TemplateMatch.Recommended)
	}
	if len(d.Limitations) != 0 {
		t.Errorf("Limitations = %v, want none", d.Limitations)
	}
	if d.Site.Title == "" || d.Site.FinalURL != srv.URL+"/" {
		t.Errorf("Site = %+v", d.Site)
	}
}

func TestScan_OGImageLogo(t *testing.T) {
	srv := newSite(t, map[string]string{
		"/": `<html><head><meta property="og:image" content="https://x/y.png"></head>
<body><header><h1>Shop</h1></header><p>` + strings.Repeat("Plenty of words about the shop. ", 5) + `</p></body></html>`,
	})

	result := newTestScanner().Scan(context.Background(), models.ScanRequest{URL: srv.URL})

	logo := result.ExtractedDesign.Logo
	if logo == nil {
		t.Fatal("Logo is nil")
	}
	if logo.SourceURL != "https://x/y.png" || logo.Confidence != 0.4 || logo.Source != models.LogoSourceOGImage {
		t.Errorf("Logo = %+v, want og-image https://x/y.png at 0.4", logo)
	}
}

func TestScan_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	result := newTestScanner().Scan(context.Background(), models.ScanRequest{URL: srv.URL, Timeout: 50 * time.Millisecond})

	if result.Success {
		t.Fatal("Scan() succeeded, want timeout failure")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], fetcher.DefaultMessage(fetcher.CodeTimeout)) {
		t.Errorf("Errors = %v, want the timeout message", result.Errors)
	}
	if !reflect.DeepEqual(result.ExtractedDesign, models.EmptyDesign()) {
		t.Errorf("ExtractedDesign = %+v, want the placeholder design", result.ExtractedDesign)
	}
}

func TestScan_FetchFailures(t *testing.T) {
	srv := newSite(t, map[string]string{
		"/tiny": "<html></html>",
	})

	tests := []struct {
		name string
		url  string
		want fetcher.ErrorCode
	}{
		{"bad scheme", "ftp://example.com/", fetcher.CodeFetchFailed},
		{"not found", srv.URL + "/missing", fetcher.CodeFetchFailed},
		{"empty body", srv.URL + "/tiny", fetcher.CodeNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := newTestScanner().Scan(context.Background(), models.ScanRequest{URL: tt.url})
			if result.Success {
				t.Fatal("Scan() succeeded, want failure")
			}
			if len(result.Errors) != 1 || !strings.HasPrefix(result.Errors[0], fetcher.DefaultMessage(tt.want)) {
				t.Errorf("Errors = %v, want %s message", result.Errors, tt.want)
			}
			if result.ExtractedDesign.Sections == nil || result.ExtractedDesign.Limitations == nil {
				t.Error("placeholder design has nil slices")
			}
		})
	}
}

func TestScan_PartialStylesheets(t *testing.T) {
	page := strings.Replace(storePage, `<link rel="stylesheet" href="/css/site.css">`,
		`<link rel="stylesheet" href="/css/site.css"><link rel="stylesheet" href="/css/missing.css"><link rel="stylesheet" href="/css/gone.css">`, 1)
	srv := newSite(t, map[string]string{
		"/":             page,
		"/css/site.css": siteCSS,
	})

	result := newTestScanner().Scan(context.Background(), models.ScanRequest{URL: srv.URL})

	if !result.Success || len(result.Errors) != 0 {
		t.Fatalf("Scan() success=%v errors=%v, want success", result.Success, result.Errors)
	}
	if result.ExtractedDesign.Typography.BodyFont == nil {
		t.Error("fonts from the stylesheet that loaded were lost")
	}
	checkInvariants(t, result.ExtractedDesign)
}

func TestScan_NoSignals(t *testing.T) {
	srv := newSite(t, map[string]string{
		"/": `<html><body><p>` + strings.Repeat("Just some plain words on a page. ", 6) + `</p></body></html>`,
	})

	result := newTestScanner().Scan(context.Background(), models.ScanRequest{URL: srv.URL})

	if !result.Success {
		t.Fatalf("Scan() errors = %v", result.Errors)
	}
	want := []string{LimitationNoColors, LimitationNoFonts, LimitationNoNavigation, LimitationNoSections}
	if !reflect.DeepEqual(result.ExtractedDesign.Limitations, want) {
		t.Errorf("Limitations = %v, want %v", result.ExtractedDesign.Limitations, want)
	}
	d := result.ExtractedDesign
	if d.Colors.Primary != nil || d.Colors.Confidence != 0 {
		t.Errorf("Colors = %+v, want empty", d.Colors)
	}
	if d.Typography.MatchedPreset != models.PresetModern {
		t.Errorf("MatchedPreset = %q, want modern", d.Typography.MatchedPreset)
	}
	if d.TemplateMatch.Recommended != models.TemplateClassicStore {
		t.Errorf("Recommended = %q, want classic-store", d.TemplateMatch.Recommended)
	}
}

func TestScan_VectorLogo(t *testing.T) {
	srv := newSite(t, map[string]string{
		"/": `<html><body><header><a href="/"><svg viewBox="0 0 10 10"><path d="M0 0h10v10z"/></svg></a>
<nav><a href="/a">Alpha</a><a href="/b">Beta</a></nav></header><p>` + strings.Repeat("Words. ", 20) + `</p></body></html>`,
	})

	store := &fakeStore{}
	result := newTestScanner(WithAssetStore(store)).Scan(context.Background(), models.ScanRequest{URL: srv.URL, DownloadLogo: true})
	checkInvariants(t, result.ExtractedDesign)

	want := &models.Logo{Source: models.LogoSourceInlineSVG, Confidence: 0.6}
	if !reflect.DeepEqual(result.ExtractedDesign.Logo, want) {
		t.Errorf("Logo = %+v, want %+v", result.ExtractedDesign.Logo, want)
	}
	if len(store.uploads) != 0 {
		t.Errorf("got %d uploads for an inline logo, want 0", len(store.uploads))
	}
	notes := strings.Join(result.ExtractedDesign.Limitations, "|")
	if !strings.Contains(notes, LimitationVectorLogo) {
		t.Errorf("Limitations = %v, want vector logo note", result.ExtractedDesign.Limitations)
	}
	if strings.Contains(notes, LimitationLogoDownload) {
		t.Errorf("Limitations = %v, want no download failure", result.ExtractedDesign.Limitations)
	}
}

func TestScan_ResolvesAgainstRedirectTarget(t *testing.T) {
	page := `<html><head><title>Acme Shop</title>
<meta name="theme-color" content="#1a73e8">
<link rel="stylesheet" href="css/site.css">
</head><body>
<header>
  <a href="./"><img class="logo" src="logo.png" alt="Acme"></a>
  <nav><a href="./">Home</a><a href="item">Items</a><a href="../about">About</a><a href="sale?page=1">Sale</a></nav>
</header>
<main><p>` + strings.Repeat("Durable outdoor gear. ", 10) + `</p></main>
</body></html>`
	srv := newSite(t, map[string]string{
		"/old":               redirectPrefix + "/shop/",
		"/shop/":             page,
		"/shop/css/site.css": siteCSS,
		"/shop/logo.png":     string(pngBytes(2048)),
	})
	store := &fakeStore{}
	s := newTestScanner(WithAssetStore(store))

	result := s.Scan(context.Background(), models.ScanRequest{URL: srv.URL + "/old", TenantID: "tenant-1", DownloadLogo: true})

	if !result.Success {
		t.Fatalf("Scan() errors = %v", result.Errors)
	}
	d := result.ExtractedDesign
	checkInvariants(t, d)

	if want := srv.URL + "/shop/"; d.Site.FinalURL != want {
		t.Errorf("Site.FinalURL = %q, want %q", d.Site.FinalURL, want)
	}
	if d.Logo == nil || d.Logo.SourceURL != srv.URL+"/shop/logo.png" {
		t.Fatalf("Logo = %+v, want %s/shop/logo.png", d.Logo, srv.URL)
	}
	if len(store.uploads) == 0 || store.uploads[0].Metadata["importedFrom"] != srv.URL+"/shop/logo.png" {
		t.Errorf("uploads = %d, want the logo fetched from the redirect target", len(store.uploads))
	}
	if d.Typography.BodyFont == nil || *d.Typography.BodyFont != "Lato" {
		t.Errorf("BodyFont = %v, want Lato from the relative stylesheet", d.Typography.BodyFont)
	}

	hrefs := make(map[string]bool)
	for _, item := range d.Navigation.Items {
		hrefs[item.Href] = true
	}
	for _, want := range []string{
		srv.URL + "/shop/item",
		srv.URL + "/about",
		srv.URL + "/shop/sale?page=1",
	} {
		if !hrefs[want] {
			t.Errorf("navigation hrefs %v missing %s", hrefs, want)
		}
	}
}

func TestScan_LogoImport(t *testing.T) {
	srv := newSite(t, map[string]string{
		"/":             storePage,
		"/css/site.css": siteCSS,
		"/logo.png":     string(pngBytes(2048)),
	})

	t.Run("stored and registered", func(t *testing.T) {
		store := &fakeStore{}
		registry := &fakeRegistry{}
		s := newTestScanner(WithAssetStore(store), WithAssetRegistry(registry))

		result := s.Scan(context.Background(), models.ScanRequest{URL: srv.URL, TenantID: "tenant-7", DownloadLogo: true})

		logo := result.ExtractedDesign.Logo
		if logo == nil || logo.DownloadedAssetID == nil || *logo.DownloadedAssetID != "asset-1" {
			t.Fatalf("Logo = %+v, want asset-1", logo)
		}
		if len(store.uploads) != 1 {
			t.Fatalf("got %d uploads, want 1", len(store.uploads))
		}
		up := store.uploads[0]
		if up.OwnerID != "tenant-7" || up.FileName != "logo.png" || up.ContentType != "image/png" || len(up.Buffer) != 2048 {
			t.Errorf("upload = %+v", up)
		}
		if up.Metadata["importedFrom"] != srv.URL+"/logo.png" {
			t.Errorf("importedFrom = %q", up.Metadata["importedFrom"])
		}
		rec := registry.records[0]
		if rec.Source != models.AssetSourceWebsiteImport || rec.Type != models.AssetTypeImage || rec.Variants[0].Key != "tenant-7/logo.png" {
			t.Errorf("record = %+v", rec)
		}
		if len(result.ExtractedDesign.Limitations) != 0 {
			t.Errorf("Limitations = %v", result.ExtractedDesign.Limitations)
		}
	})

	t.Run("no store", func(t *testing.T) {
		result := newTestScanner().Scan(context.Background(), models.ScanRequest{URL: srv.URL, DownloadLogo: true})
		assertOnlyLimitation(t, result, LimitationLogoNotSaved)
	})

	t.Run("upload fails", func(t *testing.T) {
		s := newTestScanner(WithAssetStore(&fakeStore{err: errors.New("disk full")}), WithAssetRegistry(&fakeRegistry{}))
		result := s.Scan(context.Background(), models.ScanRequest{URL: srv.URL, DownloadLogo: true})
		assertOnlyLimitation(t, result, LimitationLogoNotSaved)
	})

	t.Run("no registry", func(t *testing.T) {
		result := newTestScanner(WithAssetStore(&fakeStore{})).Scan(context.Background(), models.ScanRequest{URL: srv.URL, DownloadLogo: true})
		assertOnlyLimitation(t, result, LimitationLogoNotRegistered)
	})
}

func TestScan_LogoDownloadFails(t *testing.T) {
	srv := newSite(t, map[string]string{
		"/":             storePage,
		"/css/site.css": siteCSS,
	})
	s := newTestScanner(WithAssetStore(&fakeStore{}), WithAssetRegistry(&fakeRegistry{}))

	result := s.Scan(context.Background(), models.ScanRequest{URL: srv.URL, DownloadLogo: true})

	assertOnlyLimitation(t, result, LimitationLogoDownload)
	if result.ExtractedDesign.Logo == nil || result.ExtractedDesign.Logo.SourceURL == "" {
		t.Error("logo URL should survive a failed download")
	}
}

func TestScan_LogoThumbnail(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	logo := image.NewRGBA(image.Rect(0, 0, 400, 200))
	for i := range logo.Pix {
		logo.Pix[i] = byte(rng.Intn(256))
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, logo); err != nil {
		t.Fatalf("encoding logo: %v", err)
	}

	srv := newSite(t, map[string]string{
		"/":             storePage,
		"/css/site.css": siteCSS,
		"/logo.png":     buf.String(),
	})
	store := &fakeStore{}
	registry := &fakeRegistry{}
	s := newTestScanner(WithAssetStore(store), WithAssetRegistry(registry))

	result := s.Scan(context.Background(), models.ScanRequest{URL: srv.URL, TenantID: "acme", DownloadLogo: true})

	if len(store.uploads) != 2 {
		t.Fatalf("got %d uploads, want original and thumbnail", len(store.uploads))
	}
	if thumb := store.uploads[1]; thumb.FileName != "logo-thumbnail.png" || thumb.ContentType != "image/png" {
		t.Errorf("thumbnail upload = %s %s", thumb.FileName, thumb.ContentType)
	}
	variants := registry.records[0].Variants
	if len(variants) != 2 || variants[0].Name != "original" || variants[1].Name != "thumbnail" {
		t.Errorf("Variants = %+v", variants)
	}
	if len(result.ExtractedDesign.Limitations) != 0 {
		t.Errorf("Limitations = %v", result.ExtractedDesign.Limitations)
	}
}

func assertOnlyLimitation(t *testing.T, result models.ScanResult, want string) {
	t.Helper()
	if !result.Success {
		t.Fatalf("Scan() errors = %v", result.Errors)
	}
	if got := result.ExtractedDesign.Limitations; len(got) != 1 || got[0] != want {
		t.Errorf("Limitations = %v, want [%s]", got, want)
	}
	if logo := result.ExtractedDesign.Logo; logo != nil && logo.DownloadedAssetID != nil {
		t.Errorf("DownloadedAssetID = %q, want nil", *logo.DownloadedAssetID)
	}
}

func TestScan_Idempotent(t *testing.T) {
	srv := newSite(t, map[string]string{
		"/":             storePage,
		"/css/site.css": siteCSS,
	})
	s := newTestScanner()

	first, err := json.Marshal(s.Scan(context.Background(), models.ScanRequest{URL: srv.URL}).ExtractedDesign)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := json.Marshal(s.Scan(context.Background(), models.ScanRequest{URL: srv.URL}).ExtractedDesign)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("scans differ:\n%s\n%s", first, second)
	}
}

func TestRunStage_RecoversPanics(t *testing.T) {
	s := newTestScanner()
	got, ok := runStage(s.logger, "boom", 7, func() int { panic("nil map") })
	if ok || got != 7 {
		t.Errorf("runStage() = %d, %v; want fallback 7, false", got, ok)
	}
}
