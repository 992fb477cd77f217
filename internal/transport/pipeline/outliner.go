package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/mode"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/params"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/record"
	"github.com/DevHassanMehdi/ImageUpLift/internal/signal"
)

// blurSigma approximates a 5×5 Gaussian kernel.
const blurSigma = 1.1

// Outliner turns Canny edges into a line-art SVG with potrace.
type Outliner struct {
	bin     string
	workDir string
	runner  Runner
}

// NewOutliner creates an Outliner. bin defaults to "potrace".
func NewOutliner(bin, workDir string, runner Runner) *Outliner {
	if bin == "" {
		bin = "potrace"
	}
	return &Outliner{bin: bin, workDir: workDir, runner: runner}
}

// HealthCheck verifies the tool binary can be found.
func (o *Outliner) HealthCheck(context.Context) error { return toolAvailable(o.bin) }

// Mode returns mode.Outline.
func (*Outliner) Mode() mode.Mode { return mode.Outline }

// Convert blurs img, detects edges with the bundle thresholds and traces them.
func (o *Outliner) Convert(ctx context.Context, img domain.Image, b params.Bundle) (record.Artifact, error) {
	p, ok := b.(params.Outline)
	if !ok {
		return record.Artifact{}, domain.NewParamError("params", "expected outline parameters, got %s", b.Mode())
	}

	ws, err := newWorkspace(o.workDir)
	if err != nil {
		return record.Artifact{}, err
	}
	defer ws.remove(ctx)

	in, err := ws.write("edges.pbm", encodePBM(EdgeMap(img.Pixels, p)))
	if err != nil {
		return record.Artifact{}, err
	}

	out := ws.path("output.svg")
	args := []string{in, "--svg", "--flat", "--longcoding", "--opttolerance", "0.2", "-o", out}
	if err := o.runner.Run(ctx, ws.dir, o.bin, args...); err != nil {
		return record.Artifact{}, err
	}

	svg, err := ws.read("output.svg")
	if err != nil {
		return record.Artifact{}, err
	}
	return record.Artifact{Output: record.Blob{Data: svg, MIME: MIMESVG}, Device: record.DeviceCPU}, nil
}

// EdgeMap blurs img and returns its Canny edges (255 on edges, 0 elsewhere).
func EdgeMap(img image.Image, p params.Outline) *image.Gray {
	blurred := imaging.Blur(img, blurSigma)
	return signal.Canny(signal.Grayscale(blurred), float64(p.Low()), float64(p.High()))
}

// encodePBM writes edges as a binary P4 bitmap. Edge pixels become black (1).
func encodePBM(edges *image.Gray) []byte {
	b := edges.Bounds()
	w, h := b.Dx(), b.Dy()
	rowBytes := (w + 7) / 8

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "P4\n%d %d\n", w, h)
	row := make([]byte, rowBytes)
	for y := 0; y < h; y++ {
		clear(row)
		for x := 0; x < w; x++ {
			if edges.GrayAt(b.Min.X+x, b.Min.Y+y).Y > 128 {
				row[x/8] |= 0x80 >> (x % 8)
			}
		}
		buf.Write(row)
	}
	return buf.Bytes()
}
