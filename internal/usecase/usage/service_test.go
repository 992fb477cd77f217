package usage

import (
	"context"
	"testing"
	"time"

	domusage "github.com/DevHassanMehdi/ImageUpLift/internal/domain/usage"
)

// --- Mock ---

type mockBudgetReader struct {
	dailyLimit   int64
	monthlyLimit int64
	dailyUsed    int64
	monthlyUsed  int64
}

func (m *mockBudgetReader) DailyLimit() int64   { return m.dailyLimit }
func (m *mockBudgetReader) MonthlyLimit() int64 { return m.monthlyLimit }
func (m *mockBudgetReader) DailyUsed() int64    { return m.dailyUsed }
func (m *mockBudgetReader) MonthlyUsed() int64  { return m.monthlyUsed }

func fixedService(br BudgetReader) *Service {
	s := New(br, "openai")
	s.now = func() time.Time { return time.Date(2026, 3, 10, 15, 4, 5, 0, time.UTC) }
	return s
}

// --- Tests ---

func TestReport_Daily(t *testing.T) {
	svc := fixedService(&mockBudgetReader{dailyLimit: 100, dailyUsed: 30, monthlyLimit: 1000, monthlyUsed: 500})

	r := svc.Report(context.Background(), domusage.PeriodDay)

	if r.Period() != domusage.PeriodDay || r.Provider() != "openai" {
		t.Errorf("period/provider = %q/%q", r.Period(), r.Provider())
	}
	if r.Calls() != 30 || r.Limit() != 100 || r.Remaining() != 70 {
		t.Errorf("calls=%d limit=%d remaining=%d", r.Calls(), r.Limit(), r.Remaining())
	}
	if want := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC); !r.ResetsAt().Equal(want) {
		t.Errorf("ResetsAt() = %v, want %v", r.ResetsAt(), want)
	}
}

func TestReport_Monthly(t *testing.T) {
	svc := fixedService(&mockBudgetReader{dailyLimit: 100, dailyUsed: 30, monthlyLimit: 500, monthlyUsed: 500})

	r := svc.Report(context.Background(), domusage.PeriodMonth)

	if r.Calls() != 500 || !r.Exhausted() {
		t.Errorf("calls=%d exhausted=%v", r.Calls(), r.Exhausted())
	}
	if want := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC); !r.ResetsAt().Equal(want) {
		t.Errorf("ResetsAt() = %v, want %v", r.ResetsAt(), want)
	}
}

func TestReport_NoBudget(t *testing.T) {
	r := fixedService(nil).Report(context.Background(), domusage.PeriodDay)

	if r.Calls() != 0 || r.Limit() != 0 || r.Remaining() != -1 || r.Exhausted() {
		t.Errorf("calls=%d limit=%d remaining=%d exhausted=%v", r.Calls(), r.Limit(), r.Remaining(), r.Exhausted())
	}
}
