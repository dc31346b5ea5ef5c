// Package fetcher retrieves pages, style sheets and images over HTTP with
// bounded timeouts and sizes.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultPageTimeout       = 15 * time.Second
	DefaultStylesheetTimeout = 5 * time.Second
	DefaultImageTimeout      = 10 * time.Second
	DefaultMaxStylesheets    = 3

	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	maxPageBytes       = 10 << 20
	maxStylesheetBytes = 2 << 20
	minContentChars    = 100
)

// Page is a fetched HTML document.
type Page struct {
	HTML           string
	FinalURL       *url.URL
	StatusCode     int
	ContentType    string
	StylesheetURLs []string
	InlineStyles   []string
}

type Fetcher struct {
	client            *http.Client
	logger            *slog.Logger
	userAgent         string
	stylesheetTimeout time.Duration
	maxStylesheets    int
	imageTimeout      time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) { f.client = client }
}

func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

func WithStylesheetTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.stylesheetTimeout = d
		}
	}
}

func WithMaxStylesheets(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxStylesheets = n
		}
	}
}

func WithImageTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.imageTimeout = d
		}
	}
}

func NewFetcher(logger *slog.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	f := &Fetcher{
		client:            &http.Client{},
		logger:            logger,
		userAgent:         DefaultUserAgent,
		stylesheetTimeout: DefaultStylesheetTimeout,
		maxStylesheets:    DefaultMaxStylesheets,
		imageTimeout:      DefaultImageTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fetcher) setBrowserHeaders(req *http.Request, accept string) {
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
}

// FetchPage retrieves rawURL, following redirects, and aborts after timeout.
// Every failure is returned as a *ScanError.
func (f *Fetcher) FetchPage(ctx context.Context, rawURL string, timeout time.Duration) (*Page, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, NewScanError(CodeFetchFailed, "invalid URL, only http and https are supported", err)
	}
	if timeout <= 0 {
		timeout = DefaultPageTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, NewScanError(CodeFetchFailed, "", fmt.Errorf("creating request: %w", err))
	}
	f.setBrowserHeaders(req, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, NewScanError(CodeTimeout, fmt.Sprintf("no response within %s", timeout), err)
		}
		return nil, NewScanError(CodeFetchFailed, "", fmt.Errorf("fetching %s: %w", parsed, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, NewScanError(CodeBlocked, fmt.Sprintf("HTTP %d", resp.StatusCode), nil)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, NewScanError(CodeFetchFailed, fmt.Sprintf("HTTP %d", resp.StatusCode), nil)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !isHTMLContentType(contentType) {
		return nil, NewScanError(CodeInvalidContent, fmt.Sprintf("got %s", contentType), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, NewScanError(CodeTimeout, fmt.Sprintf("body not received within %s", timeout), err)
		}
		return nil, NewScanError(CodeFetchFailed, "", fmt.Errorf("reading response body: %w", err))
	}

	html := string(body)
	if len(strings.TrimSpace(html)) < minContentChars {
		return nil, NewScanError(CodeNoContent, "", nil)
	}

	finalURL := parsed
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	}

	links := ExtractStylesheets(html, finalURL)
	f.logger.Info("Fetched page", "url", parsed.String(), "final_url", finalURL.String(), "bytes", len(body), "stylesheets", len(links.URLs))

	return &Page{
		HTML:           html,
		FinalURL:       finalURL,
		StatusCode:     resp.StatusCode,
		ContentType:    contentType,
		StylesheetURLs: links.URLs,
		InlineStyles:   links.Inline,
	}, nil
}

// FetchStylesheets fetches the first few stylesheet URLs concurrently, each
// with its own timeout. Failures are logged and skipped; the returned bodies
// keep the order of urls.
func (f *Fetcher) FetchStylesheets(ctx context.Context, urls []string) []string {
	if len(urls) > f.maxStylesheets {
		urls = urls[:f.maxStylesheets]
	}

	bodies := make([]string, len(urls))
	var g errgroup.Group
	for i, sheetURL := range urls {
		g.Go(func() error {
			css, err := f.fetchStylesheet(ctx, sheetURL)
			if err != nil {
				f.logger.Warn("Skipping stylesheet", "url", sheetURL, "error", err)
				return nil
			}
			bodies[i] = css
			return nil
		})
	}
	_ = g.Wait()

	fetched := make([]string, 0, len(bodies))
	for _, css := range bodies {
		if css != "" {
			fetched = append(fetched, css)
		}
	}
	return fetched
}

func (f *Fetcher) fetchStylesheet(ctx context.Context, sheetURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.stylesheetTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sheetURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	f.setBrowserHeaders(req, "text/css,*/*;q=0.1")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching stylesheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStylesheetBytes))
	if err != nil {
		return "", fmt.Errorf("reading stylesheet: %w", err)
	}
	return string(body), nil
}

func isHTMLContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
