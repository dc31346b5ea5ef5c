package common

import (
	"net/url"
	"testing"
)

func TestResolveURL(t *testing.T) {
	base, _ := url.Parse("https://shop.example.com/en/home")

	tests := []struct {
		name   string
		ref    string
		want   string
		wantOK bool
	}{
		{name: "relative path", ref: "logo.png", want: "https://shop.example.com/en/logo.png", wantOK: true},
		{name: "root relative", ref: "/img/logo.png", want: "https://shop.example.com/img/logo.png", wantOK: true},
		{name: "protocol relative", ref: "//cdn.example.com/a.css", want: "https://cdn.example.com/a.css", wantOK: true},
		{name: "absolute", ref: "http://other.com/x", want: "http://other.com/x", wantOK: true},
		{name: "empty", ref: "  ", wantOK: false},
		{name: "javascript", ref: "javascript:void(0)", wantOK: false},
		{name: "mailto", ref: "mailto:hi@example.com", wantOK: false},
		{name: "data uri", ref: "data:image/png;base64,AAAA", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveURL(base, tt.ref)
			if ok != tt.wantOK {
				t.Fatalf("ResolveURL(%q) ok = %v, want %v", tt.ref, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ResolveURL(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestNormalizeHref(t *testing.T) {
	if got := NormalizeHref("https://Example.com/Shop/"); got != "https://example.com/shop" {
		t.Errorf("NormalizeHref() = %q", got)
	}
}

func TestSanitizeURL(t *testing.T) {
	tests := map[string]string{
		"  https://example.com  ":            "https://example.com",
		"[site](https://example.com/page)":   "https://example.com/page",
		"(https://example.com),":             "https://example.com",
		"<https://example.com/path?q=1>":     "https://example.com/path?q=1",
	}
	for in, want := range tests {
		if got := SanitizeURL(in); got != want {
			t.Errorf("SanitizeURL(%q) = %q, want %q", in, got, want)
		}
	}
}
