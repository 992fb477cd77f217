package analytics

import (
	"context"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/record"
)

// StatsRepository runs the aggregate queries. Durations come back unrounded.
type StatsRepository interface {
	Summary(ctx context.Context) (record.Summary, error)
	ModeUsage(ctx context.Context) (map[string]int, error)
	DailyTrend(ctx context.Context) ([]record.DayCount, error)
	PeakHours(ctx context.Context) ([]record.HourCount, error)
	TimeByMode(ctx context.Context) ([]record.ModeTime, error)
	ImageTypes(ctx context.Context) ([]record.TypeCount, error)
	Recent(ctx context.Context, n int) ([]record.TimedConversion, error)
	Fastest(ctx context.Context, n int) ([]record.TimedConversion, error)
	Slowest(ctx context.Context, n int) ([]record.TimedConversion, error)
}
