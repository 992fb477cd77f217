package params

import (
	"encoding/json"
	"strings"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/mode"
)

// Enhance holds the super-resolution parameters.
type Enhance struct {
	scale int
	model string
}

// Mode returns the conversion mode the bundle configures.
func (Enhance) Mode() mode.Mode { return mode.Enhance }

// Scale returns the upscale factor.
func (e Enhance) Scale() int { return e.scale }

// Model returns the super-resolution model name.
func (e Enhance) Model() string { return e.model }

// SetScale sets the upscale factor (2, 3 or 4).
func (e *Enhance) SetScale(n int) error {
	if n < 2 || n > 4 {
		return domain.NewParamError("scale", "must be 2, 3 or 4, got %d", n)
	}
	e.scale = n
	return nil
}

// SetModel sets the model name.
func (e *Enhance) SetModel(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.NewParamError("model", "is required")
	}
	if strings.ContainsAny(name, `/\`) {
		return domain.NewParamError("model", "must be a bare model name, got %q", name)
	}
	e.model = name
	return nil
}

type enhanceJSON struct {
	Scale int    `json:"scale"`
	Model string `json:"model"`
}

type enhancePatch struct {
	Scale *int    `json:"scale"`
	Model *string `json:"model"`
}

// MarshalJSON encodes the bundle as {"scale": n, "model": "..."}.
func (e Enhance) MarshalJSON() ([]byte, error) {
	return json.Marshal(enhanceJSON{Scale: e.scale, Model: e.model})
}

// UnmarshalJSON overlays the given keys on the current values (the defaults
// when the receiver is zero).
func (e *Enhance) UnmarshalJSON(data []byte) error {
	var p enhancePatch
	if err := decodeStrict(data, &p); err != nil {
		return err
	}
	cur := *e
	if cur.scale == 0 {
		cur = DefaultEnhance()
	}
	if err := applyIf(p.Scale, cur.SetScale); err != nil {
		return err
	}
	if err := applyIf(p.Model, cur.SetModel); err != nil {
		return err
	}
	*e = cur
	return nil
}
