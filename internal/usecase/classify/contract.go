package classify

import "context"

// BudgetChecker is the local interface for call budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record()
	RemainingDaily() int64
	RemainingMonthly() int64
}
