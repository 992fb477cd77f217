package mode

import "github.com/DevHassanMehdi/ImageUpLift/internal/domain"

// Mode is the conversion pipeline an image is sent to.
type Mode string

// Conversion mode constants.
const (
	// Vectorize traces the image into a layered color SVG.
	Vectorize Mode = "vectorize"
	// Outline traces Canny edges into a single-color SVG.
	Outline Mode = "outline"
	// Enhance upscales the raster with a super-resolution model.
	Enhance Mode = "enhance"
)

// All lists every supported mode.
var All = []Mode{Vectorize, Outline, Enhance}

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Vectorize || m == Outline || m == Enhance
}

// Parse converts user input into a Mode.
func Parse(s string) (Mode, error) {
	m := Mode(s)
	if !m.IsValid() {
		return "", domain.NewParamError("mode", "must be one of vectorize, outline, enhance, got %q", s)
	}
	return m, nil
}
