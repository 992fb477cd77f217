package classify

import (
	"context"
	"math"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/classification"
	"github.com/DevHassanMehdi/ImageUpLift/internal/signal"
)

// Palette size at which the heuristic is undecided between photo and graphic.
const (
	pivotColors = 1024
	steepness   = 1.5
)

// Heuristic is a rule-based classifier for offline use. Photographs have
// many distinct colors after resampling, flat artwork has few.
type Heuristic struct{}

// Name identifies the classifier, e.g. for cache keys.
func (Heuristic) Name() string { return "heuristic/palette-v1" }

// Classify implements classification.Classifier.
func (Heuristic) Classify(ctx context.Context, img domain.Image) (classification.Classification, error) {
	if err := ctx.Err(); err != nil {
		return classification.Classification{}, err
	}
	colors := signal.ColorCount(img.Pixels)
	z := steepness * (math.Log2(float64(colors)+1) - math.Log2(pivotColors))
	photo := 1 / (1 + math.Exp(-z))

	var photoPrompts, graphicPrompts float64
	for _, c := range classification.Categories {
		if c.Group == classification.Photo {
			photoPrompts++
		} else {
			graphicPrompts++
		}
	}

	scores := make(map[string]float64, len(classification.Categories))
	for _, c := range classification.Categories {
		if c.Group == classification.Photo {
			scores[c.Prompt] = photo / photoPrompts
		} else {
			scores[c.Prompt] = (1 - photo) / graphicPrompts
		}
	}
	return classification.FromScores(scores)
}
