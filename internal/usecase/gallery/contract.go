package gallery

import (
	"context"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/record"
)

// Repository reads and removes recorded conversions.
type Repository interface {
	Get(ctx context.Context, id int64) (record.Conversion, error)
	List(ctx context.Context, f record.ConversionFilter) ([]record.Conversion, error)
	Output(ctx context.Context, id int64, thumb bool) (record.Blob, error)
	Delete(ctx context.Context, id int64) error
}
