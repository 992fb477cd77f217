// Package budget persists classifier call counters in the key-value cache so
// the call budget survives restarts and is shared between replicas.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/DevHassanMehdi/ImageUpLift/internal/db"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/usage"
)

type counterKV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Counters reads and increments per-period call counters.
type Counters struct {
	kv  counterKV
	ttl map[usage.Period]time.Duration
}

// New creates Counters. Day counters expire after dayTTL, month counters after monthTTL,
// both measured from the first call of the period.
func New(kv counterKV, dayTTL, monthTTL time.Duration) *Counters {
	return &Counters{
		kv: kv,
		ttl: map[usage.Period]time.Duration{
			usage.PeriodDay:   dayTTL,
			usage.PeriodMonth: monthTTL,
		},
	}
}

// Key names the counter of provider for the period containing at, e.g.
// imageuplift:classifier_budget:openai:month:2026-03.
func Key(provider string, p usage.Period, at time.Time) string {
	start, _ := p.Bounds(at)
	layout := "2006-01-02"
	if p == usage.PeriodMonth {
		layout = "2006-01"
	}
	return fmt.Sprintf("%sclassifier_budget:%s:%s:%s", domain.KeyPrefix, provider, p, start.Format(layout))
}

// Incr counts one call and returns the shared total for the period.
func (c *Counters) Incr(ctx context.Context, provider string, p usage.Period, at time.Time) (int64, error) {
	key := Key(provider, p, at)
	n, err := c.kv.IncrWithTTL(ctx, key, c.ttl[p])
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	return n, nil
}

// Load returns the stored total for the period, 0 when nothing was counted yet.
func (c *Counters) Load(ctx context.Context, provider string, p usage.Period, at time.Time) (int64, error) {
	key := Key(provider, p, at)
	data, err := c.kv.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("load %s: %w", key, err)
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("load %s: corrupt counter %q: %w", key, data, err)
	}
	return n, nil
}
