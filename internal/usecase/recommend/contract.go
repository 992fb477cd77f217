package recommend

import (
	"context"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/record"
	"github.com/DevHassanMehdi/ImageUpLift/internal/usecase/analyze"
)

// Analyzer builds metadata for an upload.
type Analyzer interface {
	Analyze(ctx context.Context, name string, data []byte) (analyze.Analysis, error)
}

// ImageRepository stores uploaded originals.
type ImageRepository interface {
	Create(ctx context.Context, img record.Image) (int64, error)
	FindByContentHash(ctx context.Context, hash string) (record.Image, error)
}

// RecommendationRepository stores recommendation snapshots.
type RecommendationRepository interface {
	Create(ctx context.Context, rec record.Recommendation) (int64, error)
}
