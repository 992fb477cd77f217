// Package params holds the typed conversion parameter bundles and their defaults.
package params

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/mode"
)

// Bundle is a parameter set for exactly one conversion mode.
type Bundle interface {
	Mode() mode.Mode
	json.Marshaler
}

var (
	_ Bundle = Vector{}
	_ Bundle = Outline{}
	_ Bundle = Enhance{}
)

// DefaultVector returns the default vector tracing bundle.
func DefaultVector() Vector {
	return Vector{
		curveFitting:     Spline,
		colorPrecision:   6,
		filterSpeckle:    16,
		hierarchical:     Stacked,
		cornerThreshold:  40,
		gradientStep:     60,
		segmentLength:    10,
		spliceThreshold:  80,
		pathPrecision:    1,
		scale:            4,
		qualityThreshold: 5500,
	}
}

// DefaultOutline returns the default outline bundle.
func DefaultOutline() Outline {
	return Outline{low: 100, high: 200}
}

// DefaultEnhance returns the default enhancement bundle.
func DefaultEnhance() Enhance {
	return Enhance{scale: 4, model: "realesrgan-x4plus"}
}

// Default returns the default bundle for a mode.
func Default(m mode.Mode) (Bundle, error) {
	switch m {
	case mode.Vectorize:
		return DefaultVector(), nil
	case mode.Outline:
		return DefaultOutline(), nil
	case mode.Enhance:
		return DefaultEnhance(), nil
	}
	return nil, domain.NewParamError("mode", "unsupported mode %q", m)
}

// Decode parses user supplied JSON for a mode. Missing keys keep their
// default values; unknown keys are rejected.
func Decode(m mode.Mode, raw []byte) (Bundle, error) {
	switch m {
	case mode.Vectorize:
		v := DefaultVector()
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, asParamError(err)
		}
		return v, nil
	case mode.Outline:
		o := DefaultOutline()
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, asParamError(err)
		}
		return o, nil
	case mode.Enhance:
		e := DefaultEnhance()
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, asParamError(err)
		}
		return e, nil
	}
	return nil, domain.NewParamError("mode", "unsupported mode %q", m)
}

func asParamError(err error) error {
	if errors.Is(err, domain.ErrInvalidParams) {
		return err
	}
	return fmt.Errorf("decode params: %v: %w", err, domain.ErrInvalidParams)
}

func decodeStrict(data []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode params: %v: %w", err, domain.ErrInvalidParams)
	}
	return nil
}

func applyIf[T any](v *T, set func(T) error) error {
	if v == nil {
		return nil
	}
	return set(*v)
}
