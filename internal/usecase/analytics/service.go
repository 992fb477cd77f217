// Package analytics shapes conversion statistics for the dashboard.
package analytics

import (
	"context"
	"math"
	"time"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/record"
)

// TopN is the length of the recent, fastest and slowest lists.
const TopN = 5

// RecentItem is one entry of the recent conversions list.
type RecentItem struct {
	ImageName string  `json:"image_name"`
	Mode      string  `json:"mode"`
	TimeTaken float64 `json:"time_taken"`
	Timestamp string  `json:"timestamp"`
}

// RankedItem is one entry of the fastest or slowest lists.
type RankedItem struct {
	ImageName string  `json:"image_name"`
	Mode      string  `json:"mode"`
	Time      float64 `json:"time"`
	Timestamp string  `json:"timestamp"`
}

// Service wraps the stats repository with the dashboard's rounding and shapes.
type Service struct {
	repo StatsRepository
}

// New creates an analytics Service.
func New(repo StatsRepository) *Service {
	return &Service{repo: repo}
}

// Summary returns totals with the mean duration rounded to 2 decimals.
func (s *Service) Summary(ctx context.Context) (record.Summary, error) {
	sum, err := s.repo.Summary(ctx)
	if err != nil {
		return record.Summary{}, err
	}
	sum.AvgProcessingTime = round(sum.AvgProcessingTime, 2)
	return sum, nil
}

// ModeUsage returns run counts keyed by mode.
func (s *Service) ModeUsage(ctx context.Context) (map[string]int, error) {
	return s.repo.ModeUsage(ctx)
}

// DailyTrend returns run counts per UTC date, oldest first.
func (s *Service) DailyTrend(ctx context.Context) ([]record.DayCount, error) {
	return s.repo.DailyTrend(ctx)
}

// PeakHours returns run counts per UTC hour of day.
func (s *Service) PeakHours(ctx context.Context) ([]record.HourCount, error) {
	return s.repo.PeakHours(ctx)
}

// ImageTypes returns run counts per input media type.
func (s *Service) ImageTypes(ctx context.Context) ([]record.TypeCount, error) {
	return s.repo.ImageTypes(ctx)
}

// TimeByMode returns the mean duration per mode rounded to 2 decimals.
func (s *Service) TimeByMode(ctx context.Context) ([]record.ModeTime, error) {
	rows, err := s.repo.TimeByMode(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].AvgTime = round(rows[i].AvgTime, 2)
	}
	return rows, nil
}

// Recent returns the TopN newest runs with durations rounded to 3 decimals.
func (s *Service) Recent(ctx context.Context) ([]RecentItem, error) {
	rows, err := s.repo.Recent(ctx, TopN)
	if err != nil {
		return nil, err
	}
	out := make([]RecentItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, RecentItem{
			ImageName: r.ImageName,
			Mode:      r.Mode,
			TimeTaken: round(r.DurationSec, 3),
			Timestamp: timestamp(r.CreatedAt),
		})
	}
	return out, nil
}

// Fastest returns the TopN shortest runs.
func (s *Service) Fastest(ctx context.Context) ([]RankedItem, error) {
	return ranked(s.repo.Fastest(ctx, TopN))
}

// Slowest returns the TopN longest runs.
func (s *Service) Slowest(ctx context.Context) ([]RankedItem, error) {
	return ranked(s.repo.Slowest(ctx, TopN))
}

func ranked(rows []record.TimedConversion, err error) ([]RankedItem, error) {
	if err != nil {
		return nil, err
	}
	out := make([]RankedItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, RankedItem{
			ImageName: r.ImageName,
			Mode:      r.Mode,
			Time:      round(r.DurationSec, 2),
			Timestamp: timestamp(r.CreatedAt),
		})
	}
	return out, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
