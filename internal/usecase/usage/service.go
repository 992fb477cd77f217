package usage

import (
	"context"
	"time"

	domusage "github.com/DevHassanMehdi/ImageUpLift/internal/domain/usage"
)

// Service reports paid classifier usage.
type Service struct {
	br       BudgetReader
	provider string
	now      func() time.Time
}

// New creates a Service. br can be nil when no budget is configured; reports
// then show zero calls and no limit.
func New(br BudgetReader, provider string) *Service {
	return &Service{br: br, provider: provider, now: time.Now}
}

// Report builds the usage report for the period containing now.
func (s *Service) Report(_ context.Context, period domusage.Period) domusage.Report {
	start, end := period.Bounds(s.now())

	var calls, limit int64
	if s.br != nil {
		if period == domusage.PeriodMonth {
			calls, limit = s.br.MonthlyUsed(), s.br.MonthlyLimit()
		} else {
			calls, limit = s.br.DailyUsed(), s.br.DailyLimit()
		}
	}
	return domusage.NewReport(period, s.provider, start, end, calls, limit)
}
