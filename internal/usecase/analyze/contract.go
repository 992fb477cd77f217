package analyze

import (
	"context"
	"image"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/classification"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/metadata"
)

// SignalExtractor computes pixel statistics for a decoded image.
type SignalExtractor interface {
	Extract(img image.Image) (metadata.Signals, error)
}

// Classifier labels an image as photo or graphic.
type Classifier interface {
	Classify(ctx context.Context, img domain.Image) (classification.Classification, error)
}
