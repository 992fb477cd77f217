package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DevHassanMehdi/ImageUpLift/internal/db"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/usage"
)

type fakeKV struct {
	values  map[string]int64
	raw     map[string][]byte
	ttls    map[string]time.Duration
	incrErr error
	getErr  error
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]int64{}, raw: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.raw[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeKV) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	f.values[key]++
	if _, ok := f.ttls[key]; !ok {
		f.ttls[key] = ttl
	}
	return f.values[key], nil
}

var at = time.Date(2026, 3, 10, 15, 4, 5, 0, time.UTC)

func TestKey(t *testing.T) {
	tests := []struct {
		period usage.Period
		want   string
	}{
		{usage.PeriodDay, "imageuplift:classifier_budget:openai:day:2026-03-10"},
		{usage.PeriodMonth, "imageuplift:classifier_budget:openai:month:2026-03"},
	}
	for _, tt := range tests {
		if got := Key("openai", tt.period, at); got != tt.want {
			t.Errorf("Key(%s) = %q, want %q", tt.period, got, tt.want)
		}
	}
}

func TestIncr_AppliesPeriodTTL(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, 48*time.Hour, 62*24*time.Hour)
	ctx := context.Background()

	for range 3 {
		if _, err := c.Incr(ctx, "openai", usage.PeriodDay, at); err != nil {
			t.Fatal(err)
		}
	}
	n, err := c.Incr(ctx, "openai", usage.PeriodMonth, at)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("month total = %d, want 1", n)
	}

	if got := kv.values[Key("openai", usage.PeriodDay, at)]; got != 3 {
		t.Errorf("day total = %d, want 3", got)
	}
	if got := kv.ttls[Key("openai", usage.PeriodDay, at)]; got != 48*time.Hour {
		t.Errorf("day ttl = %s", got)
	}
	if got := kv.ttls[Key("openai", usage.PeriodMonth, at)]; got != 62*24*time.Hour {
		t.Errorf("month ttl = %s", got)
	}
}

func TestIncr_Error(t *testing.T) {
	kv := newFakeKV()
	kv.incrErr = errors.New("down")

	if _, err := New(kv, time.Hour, time.Hour).Incr(context.Background(), "openai", usage.PeriodDay, at); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoad(t *testing.T) {
	kv := newFakeKV()
	kv.raw[Key("openai", usage.PeriodMonth, at)] = []byte("42")
	kv.raw[Key("bad", usage.PeriodMonth, at)] = []byte("forty-two")
	c := New(kv, time.Hour, time.Hour)
	ctx := context.Background()

	n, err := c.Load(ctx, "openai", usage.PeriodMonth, at)
	if err != nil || n != 42 {
		t.Errorf("Load() = %d, %v; want 42", n, err)
	}

	n, err = c.Load(ctx, "openai", usage.PeriodDay, at)
	if err != nil || n != 0 {
		t.Errorf("missing counter: Load() = %d, %v; want 0", n, err)
	}

	if _, err := c.Load(ctx, "bad", usage.PeriodMonth, at); err == nil {
		t.Error("expected parse error")
	}

	kv.getErr = errors.New("timeout")
	if _, err := c.Load(ctx, "openai", usage.PeriodMonth, at); err == nil {
		t.Error("expected store error")
	}
}
