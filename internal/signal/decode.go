// Package signal computes the pixel statistics used by the recommendation policy.
package signal

import (
	"bytes"
	"fmt"
	"image"

	// Formats accepted on upload besides those imaging registers itself.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
)

// DefaultMaxPixels bounds the decoded area of an upload (40 megapixels).
const DefaultMaxPixels = 40_000_000

// Decode is DecodeLimit with DefaultMaxPixels.
func Decode(data []byte) (image.Image, string, error) {
	return DecodeLimit(data, DefaultMaxPixels)
}

// DecodeLimit decodes an encoded raster image and applies its EXIF orientation.
// Images whose header declares more than maxPixels pixels are rejected before
// any pixel data is allocated. A non-positive maxPixels disables the check.
func DecodeLimit(data []byte, maxPixels int) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty input", domain.ErrDecode)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	if area := int64(cfg.Width) * int64(cfg.Height); maxPixels > 0 && area > int64(maxPixels) {
		return nil, "", fmt.Errorf("%w: %dx%d exceeds the %d pixel limit",
			domain.ErrDecode, cfg.Width, cfg.Height, maxPixels)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, "", fmt.Errorf("%w: empty image", domain.ErrDecode)
	}
	return img, format, nil
}

// MIMEType maps a decoder format name to its media type.
func MIMEType(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "bmp":
		return "image/bmp"
	case "tiff":
		return "image/tiff"
	case "webp":
		return "image/webp"
	}
	return "application/octet-stream"
}
