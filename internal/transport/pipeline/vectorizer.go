package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strconv"

	"github.com/disintegration/imaging"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/mode"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/params"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/record"
)

// MIMESVG is the media type of traced outputs.
const MIMESVG = "image/svg+xml"

// Vectorizer traces raster images into color SVG with vtracer.
type Vectorizer struct {
	bin     string
	workDir string
	runner  Runner
}

// NewVectorizer creates a Vectorizer. bin defaults to "vtracer".
func NewVectorizer(bin, workDir string, runner Runner) *Vectorizer {
	if bin == "" {
		bin = "vtracer"
	}
	return &Vectorizer{bin: bin, workDir: workDir, runner: runner}
}

// HealthCheck verifies the tool binary can be found.
func (v *Vectorizer) HealthCheck(context.Context) error { return toolAvailable(v.bin) }

// Mode returns mode.Vectorize.
func (*Vectorizer) Mode() mode.Mode { return mode.Vectorize }

// Convert traces img. Inputs smaller than the quality threshold (pixel area)
// are upscaled by the bundle's scale factor first.
func (v *Vectorizer) Convert(ctx context.Context, img domain.Image, b params.Bundle) (record.Artifact, error) {
	p, ok := b.(params.Vector)
	if !ok {
		return record.Artifact{}, domain.NewParamError("params", "expected vectorize parameters, got %s", b.Mode())
	}

	ws, err := newWorkspace(v.workDir)
	if err != nil {
		return record.Artifact{}, err
	}
	defer ws.remove(ctx)

	png, err := encodePNG(prepareForTrace(img.Pixels, p))
	if err != nil {
		return record.Artifact{}, err
	}
	in, err := ws.write("input.png", png)
	if err != nil {
		return record.Artifact{}, err
	}

	out := ws.path("output.svg")
	if err := v.runner.Run(ctx, ws.dir, v.bin, vtracerArgs(in, out, p)...); err != nil {
		return record.Artifact{}, err
	}

	svg, err := ws.read("output.svg")
	if err != nil {
		return record.Artifact{}, err
	}
	return record.Artifact{Output: record.Blob{Data: svg, MIME: MIMESVG}, Device: record.DeviceCPU}, nil
}

func prepareForTrace(img image.Image, p params.Vector) image.Image {
	b := img.Bounds()
	if p.Scale() <= 1 || b.Dx()*b.Dy() >= p.QualityThreshold() {
		return img
	}
	return imaging.Resize(img, b.Dx()*p.Scale(), b.Dy()*p.Scale(), imaging.Lanczos)
}

func vtracerArgs(in, out string, p params.Vector) []string {
	return []string{
		"--input", in,
		"--output", out,
		"--colormode", "color",
		"--mode", string(p.CurveFitting()),
		"--hierarchical", string(p.Hierarchical()),
		"--filter_speckle", strconv.Itoa(p.FilterSpeckle()),
		"--color_precision", strconv.Itoa(p.ColorPrecision()),
		"--gradient_step", strconv.Itoa(p.GradientStep()),
		"--corner_threshold", strconv.Itoa(p.CornerThreshold()),
		"--segment_length", strconv.Itoa(p.SegmentLength()),
		"--splice_threshold", strconv.Itoa(p.SpliceThreshold()),
		"--path_precision", strconv.Itoa(p.PathPrecision()),
	}
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
