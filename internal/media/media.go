// Package media derives storable artifacts from decoded images: thumbnails
// and content and perceptual hashes.
package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"

	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/record"
	"github.com/DevHassanMehdi/ImageUpLift/internal/logger"
)

// ThumbnailSide bounds the longer side of generated thumbnails.
const ThumbnailSide = 256

// Thumbnail fits img into a side×side box (never enlarging) and encodes it as PNG.
func Thumbnail(img image.Image, side int) (record.Blob, error) {
	thumb := imaging.Fit(img, side, side, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.PNG); err != nil {
		return record.Blob{}, fmt.Errorf("encode thumbnail: %w", err)
	}
	return record.Blob{Data: buf.Bytes(), MIME: "image/png"}, nil
}

// ContentHash returns the hex sha256 of data.
func ContentHash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// PerceptualHash returns the 64-bit pHash of img in goimagehash string form ("p:<hex>").
func PerceptualHash(img image.Image) (string, error) {
	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return "", fmt.Errorf("perception hash: %w", err)
	}
	return h.ToString(), nil
}

// Describe fills the thumbnail and perceptual hash of an image row from its pixels.
// Failures are logged and leave the field empty; the row is still storable.
func Describe(ctx context.Context, img *record.Image, pixels image.Image) {
	log := logger.FromContext(ctx)
	if thumb, err := Thumbnail(pixels, ThumbnailSide); err != nil {
		log.Warn("Thumbnail failed", zap.String("file", img.OriginalFilename), zap.Error(err))
	} else {
		img.Thumb = thumb
	}
	if phash, err := PerceptualHash(pixels); err != nil {
		log.Warn("Perceptual hash failed", zap.String("file", img.OriginalFilename), zap.Error(err))
	} else {
		img.PerceptualHash = phash
	}
}
