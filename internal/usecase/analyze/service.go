package analyze

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/metadata"
	"github.com/DevHassanMehdi/ImageUpLift/internal/logger"
	"github.com/DevHassanMehdi/ImageUpLift/internal/signal"
)

// Analysis is the metadata of an upload plus the decoded image it was built from.
type Analysis struct {
	Metadata metadata.ImageMetadata
	Image    domain.Image
	// Format is the decoder name ("png", "jpeg", ...).
	Format string
}

// MIMEType returns the media type of the decoded upload.
func (a Analysis) MIMEType() string { return signal.MIMEType(a.Format) }

// Service assembles ImageMetadata from raw upload bytes.
type Service struct {
	extractor  SignalExtractor
	classifier Classifier
	duration   prometheus.Observer
	maxPixels  int
}

// New creates a Service. duration observes signal extraction time and may be nil.
func New(extractor SignalExtractor, classifier Classifier, duration prometheus.Observer) *Service {
	return &Service{
		extractor:  extractor,
		classifier: classifier,
		duration:   duration,
		maxPixels:  signal.DefaultMaxPixels,
	}
}

// WithMaxPixels overrides the decoded area limit. Non-positive disables it.
func (s *Service) WithMaxPixels(n int) *Service {
	s.maxPixels = n
	return s
}

// ExtractMetadata decodes data, computes signals, classifies the image and
// returns the assembled metadata.
func (s *Service) ExtractMetadata(ctx context.Context, name string, data []byte) (metadata.ImageMetadata, error) {
	a, err := s.Analyze(ctx, name, data)
	if err != nil {
		return metadata.ImageMetadata{}, err
	}
	return a.Metadata, nil
}

// Analyze is ExtractMetadata that also hands back the decoded image.
// Decode failures wrap domain.ErrDecode; classifier errors are returned as is.
func (s *Service) Analyze(ctx context.Context, name string, data []byte) (Analysis, error) {
	pixels, format, err := signal.DecodeLimit(data, s.maxPixels)
	if err != nil {
		return Analysis{}, err
	}
	img := domain.Image{Name: name, Data: data, Pixels: pixels}

	start := time.Now()
	signals, err := s.extractor.Extract(pixels)
	if err != nil {
		return Analysis{}, fmt.Errorf("extract signals: %w", err)
	}
	if s.duration != nil {
		s.duration.Observe(time.Since(start).Seconds())
	}

	cls, err := s.classifier.Classify(ctx, img)
	if err != nil {
		return Analysis{}, err
	}

	md, err := metadata.New(name, img.Width(), img.Height(), int64(len(data)), signals, cls)
	if err != nil {
		return Analysis{}, err
	}

	logger.FromContext(ctx).Debug("Image analyzed",
		zap.String("file", name),
		zap.String("format", format),
		zap.String("resolution", md.Resolution()),
		zap.String("image_type", string(md.ImageType())),
		zap.Float64("confidence", md.Confidence()),
	)
	return Analysis{Metadata: md, Image: img, Format: format}, nil
}
