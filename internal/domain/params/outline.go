package params

import (
	"encoding/json"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/mode"
)

// MaxOutlineThreshold caps the Canny hysteresis thresholds.
const MaxOutlineThreshold = 1000

// Outline holds the Canny hysteresis thresholds used for outlining.
type Outline struct {
	low  int
	high int
}

// NewOutline validates and creates an Outline bundle.
func NewOutline(low, high int) (Outline, error) {
	var o Outline
	if err := o.SetThresholds(low, high); err != nil {
		return Outline{}, err
	}
	return o, nil
}

// Mode returns the conversion mode the bundle configures.
func (Outline) Mode() mode.Mode { return mode.Outline }

// Low returns the lower hysteresis threshold.
func (o Outline) Low() int { return o.low }

// High returns the upper hysteresis threshold.
func (o Outline) High() int { return o.high }

// SetThresholds sets both thresholds. Requires 0 <= low < high <= MaxOutlineThreshold.
func (o *Outline) SetThresholds(low, high int) error {
	if low < 0 {
		return domain.NewParamError("low", "must be non-negative, got %d", low)
	}
	if high > MaxOutlineThreshold {
		return domain.NewParamError("high", "must be at most %d, got %d", MaxOutlineThreshold, high)
	}
	if high <= low {
		return domain.NewParamError("high", "must be greater than low (%d), got %d", low, high)
	}
	o.low, o.high = low, high
	return nil
}

type outlineJSON struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

type outlinePatch struct {
	Low  *int `json:"low"`
	High *int `json:"high"`
}

// MarshalJSON encodes the bundle as {"low": n, "high": n}.
func (o Outline) MarshalJSON() ([]byte, error) {
	return json.Marshal(outlineJSON{Low: o.low, High: o.high})
}

// UnmarshalJSON overlays the given thresholds on the current values (the
// defaults when the receiver is zero).
func (o *Outline) UnmarshalJSON(data []byte) error {
	var p outlinePatch
	if err := decodeStrict(data, &p); err != nil {
		return err
	}
	cur := *o
	if cur.high == 0 {
		cur = DefaultOutline()
	}
	low, high := cur.low, cur.high
	if p.Low != nil {
		low = *p.Low
	}
	if p.High != nil {
		high = *p.High
	}
	if err := cur.SetThresholds(low, high); err != nil {
		return err
	}
	*o = cur
	return nil
}
