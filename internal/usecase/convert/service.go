package convert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/mode"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/params"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/record"
	"github.com/DevHassanMehdi/ImageUpLift/internal/logger"
	"github.com/DevHassanMehdi/ImageUpLift/internal/media"
	"github.com/DevHassanMehdi/ImageUpLift/internal/signal"
)

// recordTimeout bounds the write of a failed run detached from the request.
const recordTimeout = 5 * time.Second

// Upload is a raw image submitted together with the conversion request.
type Upload struct {
	Name string
	Data []byte
}

// Request selects the source image, the pipeline and optionally its parameters.
// Exactly one of Upload and ImageID identifies the source.
type Request struct {
	Upload  *Upload
	ImageID int64
	Mode    mode.Mode
	// Params is a JSON object overlaid on the defaults. When empty the
	// image's latest recommendation is used, else the defaults.
	Params json.RawMessage
}

// Result describes a successful conversion.
type Result struct {
	ConversionID int64
	ImageID      int64
	Mode         mode.Mode
	Params       params.Bundle
	Output       record.Blob
	Device       record.Device
	Duration     time.Duration
}

// Metrics are the optional instruments updated per run.
type Metrics struct {
	Total    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// Service dispatches conversion requests to the registered pipelines.
type Service struct {
	converters map[mode.Mode]Converter
	images     ImageRepository
	recs       RecommendationRepository
	runs       ConversionRepository
	metrics    Metrics
	maxPixels  int
	now        func() time.Time
}

// New creates a Service. Each converter is registered under its Mode.
func New(
	images ImageRepository,
	recs RecommendationRepository,
	runs ConversionRepository,
	m Metrics,
	converters ...Converter,
) *Service {
	reg := make(map[mode.Mode]Converter, len(converters))
	for _, c := range converters {
		reg[c.Mode()] = c
	}
	return &Service{
		converters: reg,
		images:     images,
		recs:       recs,
		runs:       runs,
		metrics:    m,
		maxPixels:  signal.DefaultMaxPixels,
		now:        time.Now,
	}
}

// WithMaxPixels overrides the decoded area limit for sources and outputs.
// Non-positive disables it.
func (s *Service) WithMaxPixels(n int) *Service {
	s.maxPixels = n
	return s
}

// source is the resolved input of a run.
type source struct {
	id     int64
	name   string
	mime   string
	pixels image.Image
	data   []byte
}

// Convert resolves the source and parameters, runs the pipeline and records the run.
// A pipeline failure is recorded as a failed conversion and returned wrapped in
// domain.ErrConversionFailed.
func (s *Service) Convert(ctx context.Context, req Request) (Result, error) {
	if !req.Mode.IsValid() {
		return Result{}, domain.NewParamError("mode", "unsupported mode %q", req.Mode)
	}
	conv, ok := s.converters[req.Mode]
	if !ok {
		return Result{}, domain.NewParamError("mode", "no pipeline configured for %q", req.Mode)
	}

	src, err := s.resolveSource(ctx, req)
	if err != nil {
		return Result{}, err
	}

	bundle, err := s.resolveParams(ctx, src.id, req)
	if err != nil {
		return Result{}, err
	}
	chosen, err := json.Marshal(bundle)
	if err != nil {
		return Result{}, fmt.Errorf("marshal params: %w", err)
	}

	ctx = logger.WithFields(ctx,
		zap.Int64("image_id", src.id),
		zap.String("mode", string(req.Mode)),
	)
	log := logger.FromContext(ctx)

	started := s.now()
	art, runErr := conv.Convert(ctx, domain.Image{Name: src.name, Data: src.data, Pixels: src.pixels}, bundle)
	ended := s.now()
	took := ended.Sub(started)

	row := record.Conversion{
		ImageID:      src.id,
		ImageName:    src.name,
		ImageType:    src.mime,
		Mode:         req.Mode,
		StartedAt:    started,
		EndedAt:      ended,
		DurationSec:  took.Seconds(),
		Status:       record.StatusSuccess,
		ChosenParams: chosen,
		CreatedAt:    ended,
	}
	if s.metrics.Duration != nil {
		s.metrics.Duration.WithLabelValues(string(req.Mode)).Observe(took.Seconds())
	}

	if runErr != nil {
		row.Status = record.StatusFail
		row.FailureReason = runErr.Error()
		row.Device = record.DeviceCPU
		s.count(req.Mode, record.StatusFail)

		log.Error("Conversion failed", zap.Duration("took", took), zap.Error(runErr))
		// The run may have failed because the caller went away; record it anyway.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		_, err := s.runs.Create(rctx, row)
		cancel()
		if err != nil {
			log.Error("Failed to record failed conversion", zap.Error(err))
		}
		return Result{}, fmt.Errorf("%s: %v: %w", req.Mode, runErr, domain.ErrConversionFailed)
	}

	row.Device = art.Device
	row.Output = art.Output
	row.OutputHash = media.ContentHash(art.Output.Data)
	row.OutputThumb = s.outputThumb(ctx, art.Output)

	id, err := s.runs.Create(ctx, row)
	if err != nil {
		return Result{}, fmt.Errorf("record conversion: %w", err)
	}
	s.count(req.Mode, record.StatusSuccess)

	log.Info("Conversion finished",
		zap.Int64("conversion_id", id),
		zap.Duration("took", took),
		zap.String("device", string(art.Device)),
		zap.Int64("output_bytes", art.Output.Size()),
	)

	return Result{
		ConversionID: id,
		ImageID:      src.id,
		Mode:         req.Mode,
		Params:       bundle,
		Output:       art.Output,
		Device:       art.Device,
		Duration:     took,
	}, nil
}

func (s *Service) count(m mode.Mode, status record.Status) {
	if s.metrics.Total != nil {
		s.metrics.Total.WithLabelValues(string(m), string(status)).Inc()
	}
}

func (s *Service) resolveSource(ctx context.Context, req Request) (source, error) {
	if req.Upload != nil {
		return s.storeUpload(ctx, *req.Upload)
	}
	if req.ImageID <= 0 {
		return source{}, domain.NewParamError("image_id", "an upload or a positive image id is required")
	}

	img, err := s.images.Get(ctx, req.ImageID)
	if err != nil {
		return source{}, err
	}
	pixels, _, err := signal.DecodeLimit(img.Original, s.maxPixels)
	if err != nil {
		return source{}, err
	}
	return source{id: img.ID, name: img.OriginalFilename, mime: img.MIMEType, pixels: pixels, data: img.Original}, nil
}

func (s *Service) storeUpload(ctx context.Context, up Upload) (source, error) {
	pixels, format, err := signal.DecodeLimit(up.Data, s.maxPixels)
	if err != nil {
		return source{}, err
	}
	src := source{name: up.Name, mime: signal.MIMEType(format), pixels: pixels, data: up.Data}

	hash := media.ContentHash(up.Data)
	existing, err := s.images.FindByContentHash(ctx, hash)
	switch {
	case err == nil:
		src.id = existing.ID
		return src, nil
	case !errors.Is(err, domain.ErrNotFound):
		return source{}, fmt.Errorf("find image: %w", err)
	}

	b := pixels.Bounds()
	img := record.Image{
		OriginalFilename: up.Name,
		MIMEType:         src.mime,
		SizeBytes:        int64(len(up.Data)),
		Width:            b.Dx(),
		Height:           b.Dy(),
		AspectRatio:      float64(b.Dx()) / float64(b.Dy()),
		ContentHash:      hash,
		CreatedAt:        s.now(),
		Original:         up.Data,
	}
	media.Describe(ctx, &img, pixels)

	src.id, err = s.images.Create(ctx, img)
	if err != nil {
		return source{}, fmt.Errorf("store image: %w", err)
	}
	return src, nil
}

// resolveParams picks explicit params, then the latest recommendation, then defaults.
func (s *Service) resolveParams(ctx context.Context, imageID int64, req Request) (params.Bundle, error) {
	if !emptyJSON(req.Params) {
		return params.Decode(req.Mode, req.Params)
	}

	rec, err := s.recs.LatestForImage(ctx, imageID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return params.Default(req.Mode)
	case err != nil:
		return nil, fmt.Errorf("load recommendation: %w", err)
	}

	var stored []byte
	switch req.Mode {
	case mode.Vectorize:
		stored = rec.VectorParams
	case mode.Outline:
		stored = rec.OutlineParams
	}
	if emptyJSON(stored) {
		return params.Default(req.Mode)
	}

	b, err := params.Decode(req.Mode, stored)
	if err != nil {
		logger.FromContext(ctx).Warn("Stored params rejected, using defaults",
			zap.Int64("recommendation_id", rec.ID), zap.Error(err))
		return params.Default(req.Mode)
	}
	return b, nil
}

// outputThumb renders a thumbnail for raster outputs. SVG outputs get none.
func (s *Service) outputThumb(ctx context.Context, out record.Blob) record.Blob {
	if out.MIME == "image/svg+xml" {
		return record.Blob{}
	}
	pixels, _, err := signal.DecodeLimit(out.Data, s.maxPixels)
	if err != nil {
		logger.FromContext(ctx).Warn("Output is not a decodable raster", zap.String("mime", out.MIME), zap.Error(err))
		return record.Blob{}
	}
	thumb, err := media.Thumbnail(pixels, media.ThumbnailSide)
	if err != nil {
		logger.FromContext(ctx).Warn("Output thumbnail failed", zap.Error(err))
		return record.Blob{}
	}
	return thumb
}

func emptyJSON(b []byte) bool {
	t := strings.TrimSpace(string(b))
	return t == "" || t == "null"
}
