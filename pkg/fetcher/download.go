package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dustin/go-humanize"
)

const (
	MinImageBytes = 1 << 10
	MaxImageBytes = 5 << 20
)

var (
	ErrNotImage      = errors.New("response is not an image")
	ErrImageTooSmall = errors.New("image is too small to be a logo")
	ErrImageTooLarge = errors.New("image exceeds the size limit")
)

// Image is a downloaded and validated image.
type Image struct {
	URL         string
	Data        []byte
	ContentType string
	ClaimedType string
}

// DownloadImage fetches an image with a bounded timeout and validates it.
// Any rejection is returned as an error so the caller can record it and move on.
func (f *Fetcher) DownloadImage(ctx context.Context, imageURL string) (*Image, error) {
	parsed, err := url.Parse(imageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("invalid image URL %q", imageURL)
	}

	ctx, cancel := context.WithTimeout(ctx, f.imageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	f.setBrowserHeaders(req, "image/avif,image/webp,image/png,image/svg+xml,image/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, imageURL)
	}

	claimed := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(claimed), "image/") {
		return nil, fmt.Errorf("%w: content type %q", ErrNotImage, claimed)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("%w: more than %s", ErrImageTooLarge, humanize.IBytes(MaxImageBytes))
	}
	if len(data) < MinImageBytes {
		return nil, fmt.Errorf("%w: %s", ErrImageTooSmall, humanize.IBytes(uint64(len(data))))
	}

	return &Image{
		URL:         parsed.String(),
		Data:        data,
		ContentType: SniffImageType(data, claimed),
		ClaimedType: baseType(claimed),
	}, nil
}
