// Package imaging builds derived variants of downloaded raster images.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/nfnt/resize"
)

const (
	// DefaultThumbnailSize bounds both sides of a generated thumbnail.
	DefaultThumbnailSize = 128

	// MaxPixels caps the decoded size. A small compressed file can declare
	// dimensions whose decode buffer runs to gigabytes.
	MaxPixels = 40_000_000
)

var (
	// ErrAlreadySmall means the image already fits the requested bounds.
	ErrAlreadySmall = errors.New("image already fits thumbnail bounds")

	// ErrTooLarge means the declared dimensions exceed MaxPixels.
	ErrTooLarge = errors.New("image dimensions exceed pixel limit")
)

// Thumbnail decodes a PNG, JPEG or GIF and returns a PNG scaled to fit within
// maxSide x maxSide, keeping the aspect ratio. Other formats fail to decode.
func Thumbnail(data []byte, maxSide uint) ([]byte, error) {
	if maxSide == 0 {
		maxSide = DefaultThumbnailSize
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image header: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%dx%d: %w", cfg.Width, cfg.Height, ErrTooLarge)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	bounds := src.Bounds()
	if uint(bounds.Dx()) <= maxSide && uint(bounds.Dy()) <= maxSide {
		return nil, ErrAlreadySmall
	}

	thumb := resize.Thumbnail(maxSide, maxSide, src, resize.Lanczos3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		return nil, fmt.Errorf("encoding %s thumbnail: %w", format, err)
	}
	return buf.Bytes(), nil
}
