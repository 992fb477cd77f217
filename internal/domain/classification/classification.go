package classification

import (
	"context"
	"fmt"
	"math"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
)

// ImageType is the coarse semantic label attached to an image.
type ImageType string

const (
	// Photo is a photographic image.
	Photo ImageType = "photo"
	// Graphic covers logos, icons, illustrations and other non-photographic artwork.
	Graphic ImageType = "graphic"
)

// IsValid checks if the type is one of the supported labels.
func (t ImageType) IsValid() bool {
	return t == Photo || t == Graphic
}

// ParseImageType converts a stored label into an ImageType.
func ParseImageType(s string) (ImageType, error) {
	t := ImageType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown image type %q: %w", s, domain.ErrClassifierFailure)
	}
	return t, nil
}

// Category is one candidate description scored by the classifier.
type Category struct {
	Prompt string
	Group  ImageType
}

// Categories is the fixed candidate set. Scores are aggregated per group.
var Categories = []Category{
	{Prompt: "a simple logo or icon on a plain background", Group: Graphic},
	{Prompt: "a flat vector illustration or graphic design", Group: Graphic},
	{Prompt: "a cartoon or character illustration", Group: Graphic},
	{Prompt: "a watercolor or stylized logo", Group: Graphic},
	{Prompt: "a realistic photograph of a person", Group: Photo},
	{Prompt: "a realistic photograph of a landscape or scene", Group: Photo},
}

// Prompts returns the category prompts in canonical order.
func Prompts() []string {
	out := make([]string, len(Categories))
	for i, c := range Categories {
		out[i] = c.Prompt
	}
	return out
}

// Classification is the classifier verdict for one image.
type Classification struct {
	label      ImageType
	confidence float64
	probs      map[string]float64
}

// FromScores normalizes non-negative per-prompt scores into a distribution and
// aggregates it into a label. Every prompt in Categories must be present.
// The photo group wins only when strictly more probable than the graphic group.
func FromScores(scores map[string]float64) (Classification, error) {
	if len(scores) != len(Categories) {
		return Classification{}, fmt.Errorf(
			"expected %d scores, got %d: %w", len(Categories), len(scores), domain.ErrClassifierFailure)
	}

	var total float64
	for _, c := range Categories {
		s, ok := scores[c.Prompt]
		if !ok {
			return Classification{}, fmt.Errorf("missing score for %q: %w", c.Prompt, domain.ErrClassifierFailure)
		}
		if s < 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return Classification{}, fmt.Errorf("bad score %v for %q: %w", s, c.Prompt, domain.ErrClassifierFailure)
		}
		total += s
	}
	if total <= 0 {
		return Classification{}, fmt.Errorf("all scores are zero: %w", domain.ErrClassifierFailure)
	}

	probs := make(map[string]float64, len(Categories))
	var photo, graphic float64
	for _, c := range Categories {
		p := scores[c.Prompt] / total
		probs[c.Prompt] = p
		if c.Group == Photo {
			photo += p
		} else {
			graphic += p
		}
	}

	if photo > graphic {
		return Classification{label: Photo, confidence: photo, probs: probs}, nil
	}
	return Classification{label: Graphic, confidence: graphic, probs: probs}, nil
}

// Reconstruct creates a Classification without validation (cache hydration).
func Reconstruct(label ImageType, confidence float64, probs map[string]float64) Classification {
	return Classification{label: label, confidence: confidence, probs: probs}
}

// Label returns the winning image type.
func (c Classification) Label() ImageType { return c.label }

// Confidence returns the probability mass of the winning group.
func (c Classification) Confidence() float64 { return c.confidence }

// Probs returns a copy of the per-prompt distribution.
func (c Classification) Probs() map[string]float64 {
	out := make(map[string]float64, len(c.probs))
	for k, v := range c.probs {
		out[k] = v
	}
	return out
}

// Classifier assigns a semantic label to a decoded image.
type Classifier interface {
	Classify(ctx context.Context, img domain.Image) (Classification, error)
}
