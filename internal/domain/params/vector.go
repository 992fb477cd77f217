package params

import (
	"encoding/json"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/mode"
)

// CurveFitting is the vtracer curve fitting mode.
type CurveFitting string

// Curve fitting modes.
const (
	Spline  CurveFitting = "spline"
	Polygon CurveFitting = "polygon"
	Pixel   CurveFitting = "pixel"
)

// Hierarchy is the vtracer shape clustering mode.
type Hierarchy string

// Clustering modes.
const (
	Stacked Hierarchy = "stacked"
	Cutout  Hierarchy = "cutout"
)

// Bounds of the vector tracing parameters.
const (
	MinColorPrecision  = 1
	MaxColorPrecision  = 8
	MaxFilterSpeckle   = 128
	MaxCornerThreshold = 180
	MaxGradientStep    = 255
	MinSegmentLength   = 4
	MaxSegmentLength   = 10
	MaxSpliceThreshold = 180
	MaxPathPrecision   = 8
	MinScale           = 1
	MaxScale           = 4
)

// Vector holds the vector tracing parameters. The zero value is not valid;
// start from DefaultVector.
type Vector struct {
	curveFitting     CurveFitting
	colorPrecision   int
	filterSpeckle    int
	hierarchical     Hierarchy
	cornerThreshold  int
	gradientStep     int
	segmentLength    int
	spliceThreshold  int
	pathPrecision    int
	scale            int
	qualityThreshold int
}

// Mode returns the conversion mode the bundle configures.
func (Vector) Mode() mode.Mode { return mode.Vectorize }

// CurveFitting returns the curve fitting mode.
func (v Vector) CurveFitting() CurveFitting { return v.curveFitting }

// ColorPrecision returns the number of significant bits per color channel.
func (v Vector) ColorPrecision() int { return v.colorPrecision }

// FilterSpeckle returns the patch size (px) below which speckles are discarded.
func (v Vector) FilterSpeckle() int { return v.filterSpeckle }

// Hierarchical returns the clustering mode.
func (v Vector) Hierarchical() Hierarchy { return v.hierarchical }

// CornerThreshold returns the minimum angle (degrees) considered a corner.
func (v Vector) CornerThreshold() int { return v.cornerThreshold }

// GradientStep returns the color difference between gradient layers.
func (v Vector) GradientStep() int { return v.gradientStep }

// SegmentLength returns the maximum segment length for subdivision.
func (v Vector) SegmentLength() int { return v.segmentLength }

// SpliceThreshold returns the minimum angle displacement (degrees) to splice a spline.
func (v Vector) SpliceThreshold() int { return v.spliceThreshold }

// PathPrecision returns the number of decimal places in path coordinates.
func (v Vector) PathPrecision() int { return v.pathPrecision }

// Scale returns the pre-trace upscale factor applied to low-resolution inputs.
func (v Vector) Scale() int { return v.scale }

// QualityThreshold returns the pixel area below which an input counts as low resolution.
func (v Vector) QualityThreshold() int { return v.qualityThreshold }

// SetCurveFitting sets the curve fitting mode.
func (v *Vector) SetCurveFitting(c CurveFitting) error {
	switch c {
	case Spline, Polygon, Pixel:
		v.curveFitting = c
		return nil
	}
	return domain.NewParamError("mode", "must be spline, polygon or pixel, got %q", c)
}

// SetHierarchical sets the clustering mode.
func (v *Vector) SetHierarchical(h Hierarchy) error {
	switch h {
	case Stacked, Cutout:
		v.hierarchical = h
		return nil
	}
	return domain.NewParamError("hierarchical", "must be stacked or cutout, got %q", h)
}

// SetColorPrecision sets the color precision.
func (v *Vector) SetColorPrecision(n int) error {
	return setInt(&v.colorPrecision, "color_precision", n, MinColorPrecision, MaxColorPrecision)
}

// SetFilterSpeckle sets the speckle filter size.
func (v *Vector) SetFilterSpeckle(n int) error {
	return setInt(&v.filterSpeckle, "filter_speckle", n, 0, MaxFilterSpeckle)
}

// SetCornerThreshold sets the corner threshold.
func (v *Vector) SetCornerThreshold(n int) error {
	return setInt(&v.cornerThreshold, "corner_threshold", n, 0, MaxCornerThreshold)
}

// SetGradientStep sets the gradient step.
func (v *Vector) SetGradientStep(n int) error {
	return setInt(&v.gradientStep, "gradient_step", n, 0, MaxGradientStep)
}

// SetSegmentLength sets the segment length.
func (v *Vector) SetSegmentLength(n int) error {
	return setInt(&v.segmentLength, "segment_length", n, MinSegmentLength, MaxSegmentLength)
}

// SetSpliceThreshold sets the splice threshold.
func (v *Vector) SetSpliceThreshold(n int) error {
	return setInt(&v.spliceThreshold, "splice_threshold", n, 0, MaxSpliceThreshold)
}

// SetPathPrecision sets the path precision.
func (v *Vector) SetPathPrecision(n int) error {
	return setInt(&v.pathPrecision, "path_precision", n, 0, MaxPathPrecision)
}

// SetScale sets the pre-trace upscale factor.
func (v *Vector) SetScale(n int) error {
	return setInt(&v.scale, "scale", n, MinScale, MaxScale)
}

// SetQualityThreshold sets the low resolution pixel area threshold.
func (v *Vector) SetQualityThreshold(n int) error {
	if n < 0 {
		return domain.NewParamError("quality_threshold", "must be non-negative, got %d", n)
	}
	v.qualityThreshold = n
	return nil
}

func setInt(dst *int, field string, n, lo, hi int) error {
	if n < lo || n > hi {
		return domain.NewParamError(field, "must be between %d and %d, got %d", lo, hi, n)
	}
	*dst = n
	return nil
}

type vectorJSON struct {
	Mode             CurveFitting `json:"mode"`
	ColorPrecision   int          `json:"color_precision"`
	FilterSpeckle    int          `json:"filter_speckle"`
	Hierarchical     Hierarchy    `json:"hierarchical"`
	CornerThreshold  int          `json:"corner_threshold"`
	GradientStep     int          `json:"gradient_step"`
	SegmentLength    int          `json:"segment_length"`
	SpliceThreshold  int          `json:"splice_threshold"`
	PathPrecision    int          `json:"path_precision"`
	Scale            int          `json:"scale"`
	QualityThreshold int          `json:"quality_threshold"`
}

type vectorPatch struct {
	Mode             *CurveFitting `json:"mode"`
	ColorPrecision   *int          `json:"color_precision"`
	FilterSpeckle    *int          `json:"filter_speckle"`
	Hierarchical     *Hierarchy    `json:"hierarchical"`
	CornerThreshold  *int          `json:"corner_threshold"`
	GradientStep     *int          `json:"gradient_step"`
	SegmentLength    *int          `json:"segment_length"`
	SpliceThreshold  *int          `json:"splice_threshold"`
	PathPrecision    *int          `json:"path_precision"`
	Scale            *int          `json:"scale"`
	QualityThreshold *int          `json:"quality_threshold"`
}

// MarshalJSON encodes the bundle as the flat snake_case parameter map.
func (v Vector) MarshalJSON() ([]byte, error) {
	return json.Marshal(vectorJSON{
		Mode:             v.curveFitting,
		ColorPrecision:   v.colorPrecision,
		FilterSpeckle:    v.filterSpeckle,
		Hierarchical:     v.hierarchical,
		CornerThreshold:  v.cornerThreshold,
		GradientStep:     v.gradientStep,
		SegmentLength:    v.segmentLength,
		SpliceThreshold:  v.spliceThreshold,
		PathPrecision:    v.pathPrecision,
		Scale:            v.scale,
		QualityThreshold: v.qualityThreshold,
	})
}

// UnmarshalJSON overlays the given keys on top of the current values (the
// defaults when the receiver is zero) and validates every provided field.
func (v *Vector) UnmarshalJSON(data []byte) error {
	var p vectorPatch
	if err := decodeStrict(data, &p); err != nil {
		return err
	}
	out := *v
	if out.curveFitting == "" {
		out = DefaultVector()
	}

	for _, err := range []error{
		applyIf(p.Mode, out.SetCurveFitting),
		applyIf(p.ColorPrecision, out.SetColorPrecision),
		applyIf(p.FilterSpeckle, out.SetFilterSpeckle),
		applyIf(p.Hierarchical, out.SetHierarchical),
		applyIf(p.CornerThreshold, out.SetCornerThreshold),
		applyIf(p.GradientStep, out.SetGradientStep),
		applyIf(p.SegmentLength, out.SetSegmentLength),
		applyIf(p.SpliceThreshold, out.SetSpliceThreshold),
		applyIf(p.PathPrecision, out.SetPathPrecision),
		applyIf(p.Scale, out.SetScale),
		applyIf(p.QualityThreshold, out.SetQualityThreshold),
	} {
		if err != nil {
			return err
		}
	}
	*v = out
	return nil
}
