package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const samplePage = `<!doctype html>
<html><head>
<title>Sample</title>
<link rel="stylesheet" href="/css/main.css">
<link href="theme.css" rel="stylesheet" type="text/css">
<link rel="icon" href="/favicon.ico">
<link rel="stylesheet" href="javascript:alert(1)">
<style>:root { --brand-primary: #ff6600; }</style>
</head>
<body><h1>Welcome to the sample shop</h1><p>Lots of content so the body clears the minimum length check.</p></body></html>`

func newTestFetcher(opts ...Option) *Fetcher {
	return NewFetcher(nil, opts...)
}

func TestFetchPage_FollowsRedirectsAndExtractsStylesheets(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/store/home", http.StatusFound)
	})
	mux.HandleFunc("/store/home", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("request is missing a User-Agent header")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(samplePage))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	page, err := newTestFetcher().FetchPage(context.Background(), srv.URL+"/", time.Second)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}

	if got, want := page.FinalURL.String(), srv.URL+"/store/home"; got != want {
		t.Errorf("FinalURL = %q, want %q", got, want)
	}

	want := []string{srv.URL + "/css/main.css", srv.URL + "/store/theme.css"}
	if len(page.StylesheetURLs) != len(want) {
		t.Fatalf("StylesheetURLs = %v, want %v", page.StylesheetURLs, want)
	}
	for i := range want {
		if page.StylesheetURLs[i] != want[i] {
			t.Errorf("StylesheetURLs[%d] = %q, want %q", i, page.StylesheetURLs[i], want[i])
		}
	}
	if len(page.InlineStyles) != 1 || !strings.Contains(page.InlineStyles[0], "--brand-primary") {
		t.Errorf("InlineStyles = %v, want the :root block", page.InlineStyles)
	}
}

func TestFetchPage_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantCode ErrorCode
	}{
		{
			name:     "forbidden is blocked",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) },
			wantCode: CodeBlocked,
		},
		{
			name:     "unauthorized is blocked",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) },
			wantCode: CodeBlocked,
		},
		{
			name:     "server error is fetch failure",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			wantCode: CodeFetchFailed,
		},
		{
			name: "json is invalid content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"hello":"world"}`))
			},
			wantCode: CodeInvalidContent,
		},
		{
			name: "tiny body is no content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte("<html><body>hi</body></html>"))
			},
			wantCode: CodeNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := newTestFetcher().FetchPage(context.Background(), srv.URL, time.Second)
			scanErr, ok := AsScanError(err)
			if !ok {
				t.Fatalf("FetchPage() error = %v, want *ScanError", err)
			}
			if scanErr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", scanErr.Code, tt.wantCode)
			}
		})
	}
}

func TestFetchPage_InvalidScheme(t *testing.T) {
	for _, raw := range []string{"ftp://example.com", "example.com", "javascript:alert(1)", "://"} {
		_, err := newTestFetcher().FetchPage(context.Background(), raw, time.Second)
		scanErr, ok := AsScanError(err)
		if !ok || scanErr.Code != CodeFetchFailed {
			t.Errorf("FetchPage(%q) error = %v, want fetch-failed", raw, err)
		}
	}
}

func TestFetchPage_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newTestFetcher().FetchPage(context.Background(), srv.URL, 50*time.Millisecond)
	scanErr, ok := AsScanError(err)
	if !ok {
		t.Fatalf("FetchPage() error = %v, want *ScanError", err)
	}
	if scanErr.Code != CodeTimeout {
		t.Errorf("Code = %q, want %q", scanErr.Code, CodeTimeout)
	}
}

func TestFetchStylesheets_PartialFailureAndLimit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/a.css":
			_, _ = w.Write([]byte("a { color: #123456; }"))
		case "/slow.css":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte("b { color: red; }"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f := newTestFetcher(WithStylesheetTimeout(50 * time.Millisecond))
	urls := []string{srv.URL + "/a.css", srv.URL + "/missing.css", srv.URL + "/slow.css", srv.URL + "/never.css"}
	bodies := f.FetchStylesheets(context.Background(), urls)

	if len(bodies) != 1 || !strings.Contains(bodies[0], "#123456") {
		t.Errorf("FetchStylesheets() = %v, want only a.css", bodies)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("server hits = %d, want 3 (limit)", got)
	}
}

func TestExtractStylesheets_AttributeOrders(t *testing.T) {
	base, _ := url.Parse("https://example.com/shop/")
	markup := `<link rel="stylesheet" href="a.css"><link href="/b.css" media="all" rel="stylesheet">` +
		`<LINK REL="Stylesheet" HREF="//cdn.example.com/c.css"><link rel="preload" href="d.css">` +
		`<link rel="stylesheet" href="a.css">`

	links := ExtractStylesheets(markup, base)
	want := []string{"https://example.com/shop/a.css", "https://example.com/b.css", "https://cdn.example.com/c.css"}
	if len(links.URLs) != len(want) {
		t.Fatalf("URLs = %v, want %v", links.URLs, want)
	}
	for i := range want {
		if links.URLs[i] != want[i] {
			t.Errorf("URLs[%d] = %q, want %q", i, links.URLs[i], want[i])
		}
	}
}
