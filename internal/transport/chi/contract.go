package chi

import (
	"context"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/record"
	domusage "github.com/DevHassanMehdi/ImageUpLift/internal/domain/usage"
	analyticsuc "github.com/DevHassanMehdi/ImageUpLift/internal/usecase/analytics"
	convertuc "github.com/DevHassanMehdi/ImageUpLift/internal/usecase/convert"
	healthuc "github.com/DevHassanMehdi/ImageUpLift/internal/usecase/health"
	recommenduc "github.com/DevHassanMehdi/ImageUpLift/internal/usecase/recommend"
)

// Recommender analyzes uploads and stores recommendations.
type Recommender interface {
	Analyze(ctx context.Context, up recommenduc.Upload) (recommenduc.Result, error)
}

// Converter runs conversion pipelines.
type Converter interface {
	Convert(ctx context.Context, req convertuc.Request) (convertuc.Result, error)
}

// Gallery browses recorded conversions.
type Gallery interface {
	List(ctx context.Context, mode string, limit int) ([]record.Conversion, error)
	Get(ctx context.Context, id int64) (record.Conversion, error)
	Output(ctx context.Context, id int64, thumb bool) (record.Blob, error)
	Delete(ctx context.Context, id int64) error
}

// Analytics serves the dashboard aggregates.
type Analytics interface {
	Summary(ctx context.Context) (record.Summary, error)
	ModeUsage(ctx context.Context) (map[string]int, error)
	DailyTrend(ctx context.Context) ([]record.DayCount, error)
	Recent(ctx context.Context) ([]analyticsuc.RecentItem, error)
	TimeByMode(ctx context.Context) ([]record.ModeTime, error)
	PeakHours(ctx context.Context) ([]record.HourCount, error)
	ImageTypes(ctx context.Context) ([]record.TypeCount, error)
	Fastest(ctx context.Context) ([]analyticsuc.RankedItem, error)
	Slowest(ctx context.Context) ([]analyticsuc.RankedItem, error)
}

// Usage reports paid classifier consumption.
type Usage interface {
	Report(ctx context.Context, period domusage.Period) domusage.Report
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
