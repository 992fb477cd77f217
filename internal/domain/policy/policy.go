// Package policy maps image metadata to a conversion recommendation.
package policy

import (
	"encoding/json"
	"fmt"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/classification"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/metadata"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/mode"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/params"
)

// RecommenderVersion identifies the rule set stored alongside recommendation snapshots.
const RecommenderVersion = "rules-v1"

// Thresholds of the rule set.
const (
	lowColorCount  = 64
	highColorCount = 4000

	minTunedColorPrecision = 3
	maxTunedPathPrecision  = 5
	maxTunedCorner         = 80
	speckleReduction       = 8

	busyEdgeDensity   = 0.03
	sparseEdgeDensity = 0.02
	lowEdgeDensity    = 0.01
)

// Recommendation is the policy output for one image.
type Recommendation struct {
	Mode       mode.Mode
	Vector     params.Vector
	Outline    params.Outline
	Confidence float64
}

// MarshalJSON encodes the recommendation with the public field names.
func (r Recommendation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Mode       mode.Mode      `json:"conversion_mode"`
		Vector     params.Vector  `json:"vector_settings"`
		Outline    params.Outline `json:"outline_settings"`
		Confidence float64        `json:"confidence"`
	}{r.Mode, r.Vector, r.Outline, r.Confidence})
}

// Recommend picks a conversion mode and tunes the vector and outline bundles.
// Photos go to enhancement with untouched defaults; everything else is
// vectorized with bundles adjusted to color cardinality and edge density.
func Recommend(md metadata.ImageMetadata) (Recommendation, error) {
	if err := md.Validate(); err != nil {
		return Recommendation{}, err
	}

	rec := Recommendation{
		Mode:       mode.Vectorize,
		Vector:     params.DefaultVector(),
		Outline:    params.DefaultOutline(),
		Confidence: md.Confidence(),
	}
	if md.ImageType() == classification.Photo {
		rec.Mode = mode.Enhance
		return rec, nil
	}

	density := md.EdgeDensity()
	v, err := tuneVector(rec.Vector, md.ColorCount(), density)
	if err != nil {
		return Recommendation{}, err
	}
	o, err := tuneOutline(density)
	if err != nil {
		return Recommendation{}, err
	}
	rec.Vector, rec.Outline = v, o
	return rec, nil
}

func tuneVector(v params.Vector, colors int, density float64) (params.Vector, error) {
	cp := v.ColorPrecision()
	switch {
	case colors < lowColorCount:
		cp = max(minTunedColorPrecision, cp-2)
	case colors > highColorCount:
		cp = min(params.MaxColorPrecision, cp+1)
	}
	if err := v.SetColorPrecision(cp); err != nil {
		return params.Vector{}, fmt.Errorf("tune color_precision: %w", err)
	}

	if density > busyEdgeDensity {
		if err := v.SetPathPrecision(min(maxTunedPathPrecision, v.PathPrecision()+2)); err != nil {
			return params.Vector{}, fmt.Errorf("tune path_precision: %w", err)
		}
		if err := v.SetCornerThreshold(min(maxTunedCorner, v.CornerThreshold()+10)); err != nil {
			return params.Vector{}, fmt.Errorf("tune corner_threshold: %w", err)
		}
	}

	if colors < lowColorCount && density < sparseEdgeDensity {
		if err := v.SetFilterSpeckle(max(0, v.FilterSpeckle()-speckleReduction)); err != nil {
			return params.Vector{}, fmt.Errorf("tune filter_speckle: %w", err)
		}
	}
	return v, nil
}

func tuneOutline(density float64) (params.Outline, error) {
	switch {
	case density < lowEdgeDensity:
		return params.NewOutline(10, 40)
	case density < busyEdgeDensity:
		return params.NewOutline(80, 180)
	default:
		return params.NewOutline(120, 240)
	}
}
