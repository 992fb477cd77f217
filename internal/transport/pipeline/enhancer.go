package pipeline

import (
	"context"
	"strconv"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/mode"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/params"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/record"
)

// MIMEPNG is the media type of enhanced outputs.
const MIMEPNG = "image/png"

// EnhancerConfig configures the super-resolution tool.
type EnhancerConfig struct {
	Bin     string
	WorkDir string
	// ModelDir is passed as -m when set.
	ModelDir string
	// GPUID selects a Vulkan device; negative leaves the choice to the tool.
	GPUID int
	GPU   bool
}

// Enhancer upscales photos with realesrgan-ncnn-vulkan.
type Enhancer struct {
	cfg    EnhancerConfig
	runner Runner
}

// NewEnhancer creates an Enhancer. Bin defaults to "realesrgan-ncnn-vulkan".
func NewEnhancer(cfg EnhancerConfig, runner Runner) *Enhancer {
	if cfg.Bin == "" {
		cfg.Bin = "realesrgan-ncnn-vulkan"
	}
	return &Enhancer{cfg: cfg, runner: runner}
}

// HealthCheck verifies the tool binary can be found.
func (e *Enhancer) HealthCheck(context.Context) error { return toolAvailable(e.cfg.Bin) }

// Mode returns mode.Enhance.
func (*Enhancer) Mode() mode.Mode { return mode.Enhance }

// Convert upscales img by the bundle scale with the bundle model.
func (e *Enhancer) Convert(ctx context.Context, img domain.Image, b params.Bundle) (record.Artifact, error) {
	p, ok := b.(params.Enhance)
	if !ok {
		return record.Artifact{}, domain.NewParamError("params", "expected enhance parameters, got %s", b.Mode())
	}

	ws, err := newWorkspace(e.cfg.WorkDir)
	if err != nil {
		return record.Artifact{}, err
	}
	defer ws.remove(ctx)

	png, err := encodePNG(img.Pixels)
	if err != nil {
		return record.Artifact{}, err
	}
	in, err := ws.write("input.png", png)
	if err != nil {
		return record.Artifact{}, err
	}

	out := ws.path("output.png")
	if err := e.runner.Run(ctx, ws.dir, e.cfg.Bin, e.args(in, out, p)...); err != nil {
		return record.Artifact{}, err
	}

	data, err := ws.read("output.png")
	if err != nil {
		return record.Artifact{}, err
	}
	device := record.DeviceCPU
	if e.cfg.GPU {
		device = record.DeviceGPU
	}
	return record.Artifact{Output: record.Blob{Data: data, MIME: MIMEPNG}, Device: device}, nil
}

func (e *Enhancer) args(in, out string, p params.Enhance) []string {
	args := []string{"-i", in, "-o", out, "-s", strconv.Itoa(p.Scale()), "-n", p.Model(), "-f", "png"}
	if e.cfg.ModelDir != "" {
		args = append(args, "-m", e.cfg.ModelDir)
	}
	if e.cfg.GPUID >= 0 {
		args = append(args, "-g", strconv.Itoa(e.cfg.GPUID))
	}
	return args
}
