package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/metadata"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/policy"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/record"
	"github.com/DevHassanMehdi/ImageUpLift/internal/logger"
	"github.com/DevHassanMehdi/ImageUpLift/internal/media"
	"github.com/DevHassanMehdi/ImageUpLift/internal/usecase/analyze"
)

// Upload is a raw image submitted for analysis.
type Upload struct {
	Name string
	Data []byte
}

// Result is the outcome of analyzing and persisting an upload.
type Result struct {
	ImageID          int64
	RecommendationID int64
	// Reused is true when an identical upload was already stored.
	Reused         bool
	Metadata       metadata.ImageMetadata
	Recommendation policy.Recommendation
}

// Service analyzes uploads, applies the recommendation policy and keeps a snapshot.
type Service struct {
	analyzer Analyzer
	images   ImageRepository
	recs     RecommendationRepository
	total    *prometheus.CounterVec
	now      func() time.Time
}

// New creates a Service. total counts recommendations by mode and image type and may be nil.
func New(analyzer Analyzer, images ImageRepository, recs RecommendationRepository, total *prometheus.CounterVec) *Service {
	return &Service{
		analyzer: analyzer,
		images:   images,
		recs:     recs,
		total:    total,
		now:      time.Now,
	}
}

// Analyze runs the full recommendation flow for one upload.
func (s *Service) Analyze(ctx context.Context, up Upload) (Result, error) {
	a, err := s.analyzer.Analyze(ctx, up.Name, up.Data)
	if err != nil {
		return Result{}, err
	}

	rec, err := policy.Recommend(a.Metadata)
	if err != nil {
		return Result{}, err
	}
	if s.total != nil {
		s.total.WithLabelValues(string(rec.Mode), string(a.Metadata.ImageType())).Inc()
	}

	imageID, reused, err := s.storeImage(ctx, a)
	if err != nil {
		return Result{}, err
	}

	recID, err := s.storeSnapshot(ctx, imageID, a.Metadata, rec)
	if err != nil {
		return Result{}, err
	}

	logger.FromContext(ctx).Info("Recommendation stored",
		zap.Int64("image_id", imageID),
		zap.Int64("recommendation_id", recID),
		zap.String("mode", string(rec.Mode)),
		zap.Bool("reused_image", reused),
	)

	return Result{
		ImageID:          imageID,
		RecommendationID: recID,
		Reused:           reused,
		Metadata:         a.Metadata,
		Recommendation:   rec,
	}, nil
}

func (s *Service) storeImage(ctx context.Context, a analyze.Analysis) (int64, bool, error) {
	hash := media.ContentHash(a.Image.Data)

	existing, err := s.images.FindByContentHash(ctx, hash)
	switch {
	case err == nil:
		return existing.ID, true, nil
	case !errors.Is(err, domain.ErrNotFound):
		return 0, false, fmt.Errorf("find image: %w", err)
	}

	img := record.Image{
		OriginalFilename: a.Image.Name,
		MIMEType:         a.MIMEType(),
		SizeBytes:        int64(len(a.Image.Data)),
		Width:            a.Metadata.Width(),
		Height:           a.Metadata.Height(),
		AspectRatio:      a.Metadata.AspectRatio(),
		ContentHash:      hash,
		CreatedAt:        s.now(),
		Original:         a.Image.Data,
	}

	media.Describe(ctx, &img, a.Image.Pixels)

	id, err := s.images.Create(ctx, img)
	if err != nil {
		return 0, false, fmt.Errorf("store image: %w", err)
	}
	return id, false, nil
}

func (s *Service) storeSnapshot(
	ctx context.Context, imageID int64, md metadata.ImageMetadata, rec policy.Recommendation,
) (int64, error) {
	vec, err := json.Marshal(rec.Vector)
	if err != nil {
		return 0, fmt.Errorf("marshal vector params: %w", err)
	}
	outline, err := json.Marshal(rec.Outline)
	if err != nil {
		return 0, fmt.Errorf("marshal outline params: %w", err)
	}
	mdJSON, err := json.Marshal(md)
	if err != nil {
		return 0, fmt.Errorf("marshal metadata: %w", err)
	}

	id, err := s.recs.Create(ctx, record.Recommendation{
		ImageID:            imageID,
		Mode:               rec.Mode,
		VectorParams:       vec,
		OutlineParams:      outline,
		MetadataJSON:       mdJSON,
		Confidence:         rec.Confidence,
		RecommenderVersion: policy.RecommenderVersion,
		CreatedAt:          s.now(),
	})
	if err != nil {
		return 0, fmt.Errorf("store recommendation: %w", err)
	}
	return id, nil
}
