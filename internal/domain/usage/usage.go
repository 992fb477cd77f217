// Package usage describes paid classifier consumption over a billing period.
package usage

import (
	"encoding/json"
	"fmt"
	"time"
)

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod accepts "day" or "month"; empty means day.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodDay:
		return PeriodDay, nil
	case PeriodMonth:
		return PeriodMonth, nil
	}
	return "", fmt.Errorf("unknown usage period %q", s)
}

// Bounds returns the UTC half-open interval of the period containing t.
func (p Period) Bounds(t time.Time) (start, end time.Time) {
	t = t.UTC()
	if p == PeriodMonth {
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	}
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// Report is the classifier call count for one period against its cap.
type Report struct {
	period   Period
	provider string
	start    time.Time
	end      time.Time
	calls    int64
	limit    int64
}

// NewReport creates a report. A zero limit means unlimited.
func NewReport(period Period, provider string, start, end time.Time, calls, limit int64) Report {
	return Report{period: period, provider: provider, start: start, end: end, calls: calls, limit: limit}
}

// Period returns the aggregation granularity.
func (r Report) Period() Period { return r.period }

// Provider names the classifier backend the calls went to.
func (r Report) Provider() string { return r.provider }

// Calls returns the number of billed calls in the period.
func (r Report) Calls() int64 { return r.calls }

// Limit returns the cap, 0 when unlimited.
func (r Report) Limit() int64 { return r.limit }

// Remaining returns calls left, or -1 when unlimited.
func (r Report) Remaining() int64 {
	if r.limit == 0 {
		return -1
	}
	return max(0, r.limit-r.calls)
}

// Exhausted reports whether the cap has been reached.
func (r Report) Exhausted() bool { return r.limit > 0 && r.calls >= r.limit }

// ResetsAt is when the counter starts over.
func (r Report) ResetsAt() time.Time { return r.end }

// MarshalJSON encodes the report for the HTTP API.
func (r Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Period      Period    `json:"period"`
		Provider    string    `json:"provider"`
		PeriodStart time.Time `json:"period_start"`
		PeriodEnd   time.Time `json:"period_end"`
		Calls       int64     `json:"calls"`
		Limit       int64     `json:"limit"`
		Remaining   int64     `json:"remaining"`
		Exhausted   bool      `json:"exhausted"`
	}{r.period, r.provider, r.start, r.end, r.calls, r.limit, r.Remaining(), r.Exhausted()})
}
