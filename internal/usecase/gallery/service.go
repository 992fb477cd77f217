// Package gallery browses recorded conversions and their artifacts.
package gallery

import (
	"context"

	"go.uber.org/zap"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/mode"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/record"
	"github.com/DevHassanMehdi/ImageUpLift/internal/logger"
)

const (
	// DefaultLimit applies when a listing does not ask for a size.
	DefaultLimit = 100
	// MaxLimit caps a single listing.
	MaxLimit = 500
)

// Service lists, fetches and deletes conversions.
type Service struct {
	repo Repository
}

// New creates a gallery Service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns conversions newest first. An empty modeFilter lists every mode;
// limit 0 means DefaultLimit.
func (s *Service) List(ctx context.Context, modeFilter string, limit int) ([]record.Conversion, error) {
	f := record.ConversionFilter{Limit: limit}
	if modeFilter != "" {
		m, err := mode.Parse(modeFilter)
		if err != nil {
			return nil, err
		}
		f.Mode = m
	}
	switch {
	case limit < 0 || limit > MaxLimit:
		return nil, domain.NewParamError("limit", "must be between 1 and %d, got %d", MaxLimit, limit)
	case limit == 0:
		f.Limit = DefaultLimit
	}
	return s.repo.List(ctx, f)
}

// Get returns one conversion without its artifact bytes.
func (s *Service) Get(ctx context.Context, id int64) (record.Conversion, error) {
	return s.repo.Get(ctx, id)
}

// Output returns the artifact of a conversion, or its thumbnail when thumb is set.
func (s *Service) Output(ctx context.Context, id int64, thumb bool) (record.Blob, error) {
	return s.repo.Output(ctx, id, thumb)
}

// Delete removes a conversion and its artifacts.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("Conversion deleted", zap.Int64("conversion_id", id))
	return nil
}
