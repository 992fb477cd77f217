package metadata

import (
	"encoding/json"
	"fmt"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/classification"
)

// Limits of the color statistics.
const (
	// ColorGrid is the side of the resampled grid used for color counting.
	ColorGrid = 128
	// MaxColorCount is the largest possible color_count.
	MaxColorCount = ColorGrid * ColorGrid
	// MaxDominantColors is the length cap of dominant_colors.
	MaxDominantColors = 5
)

// RGB is an 8-bit color triple.
type RGB [3]uint8

// Signals are the pixel statistics computed for an image.
type Signals struct {
	Sharpness      float64
	NoiseLevel     float64
	ColorCount     int
	DominantColors []RGB
	EdgeComplexity int
}

// ImageMetadata is the immutable description of an analyzed image.
type ImageMetadata struct {
	fileName       string
	width          int
	height         int
	fileSizeBytes  int64
	signals        Signals
	classification classification.Classification
}

// New validates and creates ImageMetadata.
func New(
	fileName string, width, height int, fileSizeBytes int64,
	signals Signals, cls classification.Classification,
) (ImageMetadata, error) {
	m := Reconstruct(fileName, width, height, fileSizeBytes, signals, cls)
	if err := m.Validate(); err != nil {
		return ImageMetadata{}, err
	}
	return m, nil
}

// Reconstruct creates ImageMetadata without validation (storage hydration).
func Reconstruct(
	fileName string, width, height int, fileSizeBytes int64,
	signals Signals, cls classification.Classification,
) ImageMetadata {
	dc := make([]RGB, len(signals.DominantColors))
	copy(dc, signals.DominantColors)
	signals.DominantColors = dc
	return ImageMetadata{
		fileName:       fileName,
		width:          width,
		height:         height,
		fileSizeBytes:  fileSizeBytes,
		signals:        signals,
		classification: cls,
	}
}

// Validate checks the metadata invariants.
func (m ImageMetadata) Validate() error {
	switch {
	case m.width <= 0 || m.height <= 0:
		return fmt.Errorf("%w: dimensions %dx%d", domain.ErrInvalidMetadata, m.width, m.height)
	case m.fileSizeBytes < 0:
		return fmt.Errorf("%w: negative file size", domain.ErrInvalidMetadata)
	case m.signals.ColorCount < 0 || m.signals.ColorCount > MaxColorCount:
		return fmt.Errorf("%w: color_count %d out of range", domain.ErrInvalidMetadata, m.signals.ColorCount)
	case m.signals.EdgeComplexity < 0:
		return fmt.Errorf("%w: negative edge_complexity", domain.ErrInvalidMetadata)
	case m.signals.Sharpness < 0 || m.signals.NoiseLevel < 0:
		return fmt.Errorf("%w: negative variance", domain.ErrInvalidMetadata)
	case len(m.signals.DominantColors) > MaxDominantColors:
		return fmt.Errorf("%w: %d dominant colors", domain.ErrInvalidMetadata, len(m.signals.DominantColors))
	case m.classification.Confidence() < 0 || m.classification.Confidence() > 1:
		return fmt.Errorf("%w: ai_confidence %v", domain.ErrInvalidMetadata, m.classification.Confidence())
	case !m.classification.Label().IsValid():
		return fmt.Errorf("%w: ai_image_type %q", domain.ErrInvalidMetadata, m.classification.Label())
	}
	return nil
}

// FileName returns the original file name.
func (m ImageMetadata) FileName() string { return m.fileName }

// Width returns the width in pixels.
func (m ImageMetadata) Width() int { return m.width }

// Height returns the height in pixels.
func (m ImageMetadata) Height() int { return m.height }

// AspectRatio returns width / height. Zero for invalid dimensions.
func (m ImageMetadata) AspectRatio() float64 {
	if m.height == 0 {
		return 0
	}
	return float64(m.width) / float64(m.height)
}

// Resolution returns the "WxH" string.
func (m ImageMetadata) Resolution() string { return fmt.Sprintf("%dx%d", m.width, m.height) }

// FileSizeBytes returns the encoded size of the upload.
func (m ImageMetadata) FileSizeBytes() int64 { return m.fileSizeBytes }

// Sharpness returns the Laplacian variance of the grayscale image.
func (m ImageMetadata) Sharpness() float64 { return m.signals.Sharpness }

// NoiseLevel returns the noise estimate.
func (m ImageMetadata) NoiseLevel() float64 { return m.signals.NoiseLevel }

// ColorCount returns the number of distinct colors on the 128x128 grid.
func (m ImageMetadata) ColorCount() int { return m.signals.ColorCount }

// DominantColors returns up to five most frequent colors.
func (m ImageMetadata) DominantColors() []RGB {
	out := make([]RGB, len(m.signals.DominantColors))
	copy(out, m.signals.DominantColors)
	return out
}

// EdgeComplexity returns the number of Canny edge pixels.
func (m ImageMetadata) EdgeComplexity() int { return m.signals.EdgeComplexity }

// EdgeDensity returns edge pixels per pixel of area. Zero for invalid dimensions.
func (m ImageMetadata) EdgeDensity() float64 {
	area := m.width * m.height
	if area <= 0 {
		return 0
	}
	return float64(m.signals.EdgeComplexity) / float64(area)
}

// ImageType returns the classifier label.
func (m ImageMetadata) ImageType() classification.ImageType { return m.classification.Label() }

// Confidence returns the classifier confidence.
func (m ImageMetadata) Confidence() float64 { return m.classification.Confidence() }

// RawProbs returns the classifier per-category distribution.
func (m ImageMetadata) RawProbs() map[string]float64 { return m.classification.Probs() }

type metadataJSON struct {
	FileName       string             `json:"file_name"`
	Width          int                `json:"width"`
	Height         int                `json:"height"`
	Resolution     string             `json:"resolution"`
	AspectRatio    float64            `json:"aspect_ratio"`
	FileSizeBytes  int64              `json:"file_size_bytes"`
	Sharpness      float64            `json:"sharpness"`
	ColorCount     int                `json:"color_count"`
	DominantColors []RGB              `json:"dominant_colors"`
	NoiseLevel     float64            `json:"noise_level"`
	EdgeComplexity int                `json:"edge_complexity"`
	AIImageType    string             `json:"ai_image_type"`
	AIConfidence   float64            `json:"ai_confidence"`
	AIRawProbs     map[string]float64 `json:"ai_raw_probs"`
}

// MarshalJSON encodes the metadata with snake_case keys.
func (m ImageMetadata) MarshalJSON() ([]byte, error) {
	dc := m.signals.DominantColors
	if dc == nil {
		dc = []RGB{}
	}
	return json.Marshal(metadataJSON{
		FileName:       m.fileName,
		Width:          m.width,
		Height:         m.height,
		Resolution:     m.Resolution(),
		AspectRatio:    m.AspectRatio(),
		FileSizeBytes:  m.fileSizeBytes,
		Sharpness:      m.signals.Sharpness,
		ColorCount:     m.signals.ColorCount,
		DominantColors: dc,
		NoiseLevel:     m.signals.NoiseLevel,
		EdgeComplexity: m.signals.EdgeComplexity,
		AIImageType:    string(m.classification.Label()),
		AIConfidence:   m.classification.Confidence(),
		AIRawProbs:     m.classification.Probs(),
	})
}

// UnmarshalJSON decodes a stored snapshot without validation.
func (m *ImageMetadata) UnmarshalJSON(data []byte) error {
	var j metadataJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	*m = Reconstruct(j.FileName, j.Width, j.Height, j.FileSizeBytes, Signals{
		Sharpness:      j.Sharpness,
		NoiseLevel:     j.NoiseLevel,
		ColorCount:     j.ColorCount,
		DominantColors: j.DominantColors,
		EdgeComplexity: j.EdgeComplexity,
	}, classification.Reconstruct(classification.ImageType(j.AIImageType), j.AIConfidence, j.AIRawProbs))
	return nil
}
