package domain

import (
	"context"
	"image"
)

// Image is a decoded upload passed between the analysis layers.
// Data keeps the original encoded bytes for hashing and forwarding.
type Image struct {
	Name   string
	Data   []byte
	Pixels image.Image
}

// Width returns the decoded width in pixels.
func (i Image) Width() int { return i.Pixels.Bounds().Dx() }

// Height returns the decoded height in pixels.
func (i Image) Height() int { return i.Pixels.Bounds().Dy() }

// HealthChecker verifies availability of an external dependency.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
