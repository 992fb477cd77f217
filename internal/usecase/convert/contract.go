package convert

import (
	"context"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/mode"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/params"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/record"
)

// Converter runs one conversion pipeline.
type Converter interface {
	Mode() mode.Mode
	Convert(ctx context.Context, img domain.Image, p params.Bundle) (record.Artifact, error)
}

// ImageRepository loads and stores source images.
type ImageRepository interface {
	Create(ctx context.Context, img record.Image) (int64, error)
	Get(ctx context.Context, id int64) (record.Image, error)
	FindByContentHash(ctx context.Context, hash string) (record.Image, error)
}

// RecommendationRepository supplies stored parameters for an image.
type RecommendationRepository interface {
	LatestForImage(ctx context.Context, imageID int64) (record.Recommendation, error)
}

// ConversionRepository records pipeline runs.
type ConversionRepository interface {
	Create(ctx context.Context, c record.Conversion) (int64, error)
}
