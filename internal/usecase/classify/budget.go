package classify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/usage"
)

// BudgetAction defines behavior when the call budget is exhausted.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but lets the call through.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the call with ErrClassifierQuotaExceeded.
	BudgetActionReject BudgetAction = "reject"
)

const persistTimeout = 2 * time.Second

// CounterStore persists call counters shared by every replica.
type CounterStore interface {
	Incr(ctx context.Context, provider string, p usage.Period, at time.Time) (int64, error)
	Load(ctx context.Context, provider string, p usage.Period, at time.Time) (int64, error)
}

// window is the usage of one period against its cap. A zero limit is unlimited.
type window struct {
	period usage.Period
	limit  int64
	used   int64
	start  time.Time
}

func newWindow(p usage.Period, limit int64, now time.Time) window {
	start, _ := p.Bounds(now)
	return window{period: p, limit: limit, start: start}
}

// roll zeroes the counter once now is past the current period.
func (w *window) roll(now time.Time) {
	if start, _ := w.period.Bounds(now); start.After(w.start) {
		w.used = 0
		w.start = start
	}
}

// observe adopts a shared total reported by the store for the period starting at start.
func (w *window) observe(start time.Time, total int64) {
	if start.Equal(w.start) && total > w.used {
		w.used = total
	}
}

func (w *window) exceeded() bool { return w.limit > 0 && w.used >= w.limit }

func (w *window) remaining() int64 {
	if w.limit == 0 {
		return -1
	}
	return max(0, w.limit-w.used)
}

// CallBudget caps paid classifier calls per UTC day and month.
// Check is in-memory only; Record writes behind to the store when one is attached.
type CallBudget struct {
	mu       sync.Mutex
	daily    window
	monthly  window
	action   BudgetAction
	provider string
	store    CounterStore
	now      func() time.Time
	logger   *zap.Logger
}

// NewCallBudget creates a budget. A zero limit means unlimited.
func NewCallBudget(
	provider string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger,
) *CallBudget {
	b := &CallBudget{
		action:   action,
		provider: provider,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
	b.startAt(b.now(), dailyLimit, monthlyLimit)
	return b
}

func (b *CallBudget) startAt(now time.Time, dailyLimit, monthlyLimit int64) {
	b.daily = newWindow(usage.PeriodDay, dailyLimit, now)
	b.monthly = newWindow(usage.PeriodMonth, monthlyLimit, now)
}

// WithStore attaches a counter store and loads the current period's usage.
func (b *CallBudget) WithStore(ctx context.Context, store CounterStore) *CallBudget {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	now := b.now()
	for _, w := range []*window{&b.daily, &b.monthly} {
		w.roll(now)
		n, err := store.Load(ctx, b.provider, w.period, now)
		if err != nil {
			b.logger.Warn("Failed to load classifier budget",
				zap.String("period", string(w.period)), zap.Error(err))
			continue
		}
		w.used = n
	}

	b.logger.Info("Classifier budget loaded",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.daily.used),
		zap.Int64("monthly_used", b.monthly.used),
	)
	return b
}

// Check reports whether another call is allowed.
func (b *CallBudget) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.roll()
	if !b.daily.exceeded() && !b.monthly.exceeded() {
		return nil
	}
	if b.action == BudgetActionReject {
		return domain.ErrClassifierQuotaExceeded
	}

	b.logger.Warn("Classifier call budget exceeded",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.daily.used),
		zap.Int64("daily_limit", b.daily.limit),
		zap.Int64("monthly_used", b.monthly.used),
		zap.Int64("monthly_limit", b.monthly.limit),
	)
	return nil
}

// Record counts one completed call. With a store attached, the shared totals
// it returns replace the local ones when they are higher.
func (b *CallBudget) Record() {
	b.mu.Lock()
	b.roll()
	b.daily.used++
	b.monthly.used++
	store := b.store
	now := b.now()
	b.mu.Unlock()

	if store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	for _, p := range []usage.Period{usage.PeriodDay, usage.PeriodMonth} {
		total, err := store.Incr(ctx, b.provider, p, now)
		if err != nil {
			b.logger.Warn("Failed to persist classifier budget",
				zap.String("period", string(p)), zap.Error(err))
			continue
		}
		start, _ := p.Bounds(now)
		b.mu.Lock()
		b.window(p).observe(start, total)
		b.mu.Unlock()
	}
}

func (b *CallBudget) window(p usage.Period) *window {
	if p == usage.PeriodMonth {
		return &b.monthly
	}
	return &b.daily
}

// RemainingDaily returns calls left today (-1 if unlimited).
func (b *CallBudget) RemainingDaily() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll()
	return b.daily.remaining()
}

// RemainingMonthly returns calls left this month (-1 if unlimited).
func (b *CallBudget) RemainingMonthly() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll()
	return b.monthly.remaining()
}

// DailyLimit returns the daily cap (0 if unlimited).
func (b *CallBudget) DailyLimit() int64 { return b.daily.limit }

// MonthlyLimit returns the monthly cap (0 if unlimited).
func (b *CallBudget) MonthlyLimit() int64 { return b.monthly.limit }

// DailyUsed returns calls recorded today.
func (b *CallBudget) DailyUsed() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll()
	return b.daily.used
}

// MonthlyUsed returns calls recorded this month.
func (b *CallBudget) MonthlyUsed() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll()
	return b.monthly.used
}

func (b *CallBudget) roll() {
	now := b.now()
	b.daily.roll(now)
	b.monthly.roll(now)
}
