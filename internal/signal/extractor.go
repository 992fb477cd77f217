package signal

import (
	"fmt"
	"image"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/metadata"
)

// Backend names accepted by NewExtractor.
const (
	BackendGo     = "go"
	BackendOpenCV = "opencv"
)

// Extractor computes metadata signals for a decoded image.
type Extractor interface {
	Extract(img image.Image) (metadata.Signals, error)
}

// NewExtractor returns the extractor for the named backend.
func NewExtractor(backend string) (Extractor, error) {
	switch backend {
	case "", BackendGo:
		return GoExtractor{}, nil
	case BackendOpenCV:
		return newOpenCVExtractor()
	}
	return nil, fmt.Errorf("unknown signal backend %q", backend)
}

// GoExtractor computes all signals in pure Go.
type GoExtractor struct{}

// Extract computes the signals. Noise level reuses the Laplacian variance.
func (GoExtractor) Extract(img image.Image) (metadata.Signals, error) {
	gray := Grayscale(img)
	sharpness := LaplacianVariance(gray)
	return metadata.Signals{
		Sharpness:      sharpness,
		NoiseLevel:     sharpness,
		ColorCount:     ColorCount(img),
		DominantColors: DominantColors(img, metadata.MaxDominantColors),
		EdgeComplexity: CountNonZero(Canny(gray, EdgeLowThreshold, EdgeHighThreshold)),
	}, nil
}
