//go:build opencv

package signal

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/metadata"
)

// OpenCVExtractor computes the grayscale signals with OpenCV so values match
// data produced by OpenCV-based deployments exactly. Color signals stay in Go.
type OpenCVExtractor struct{}

func newOpenCVExtractor() (Extractor, error) { return OpenCVExtractor{}, nil }

// Extract computes the signals.
func (OpenCVExtractor) Extract(img image.Image) (metadata.Signals, error) {
	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return metadata.Signals{}, fmt.Errorf("image to mat: %w", err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	mean := gocv.NewMat()
	defer mean.Close()
	stddev := gocv.NewMat()
	defer stddev.Close()
	gocv.MeanStdDev(lap, &mean, &stddev)
	sd := stddev.GetDoubleAt(0, 0)
	sharpness := sd * sd

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, EdgeLowThreshold, EdgeHighThreshold)

	return metadata.Signals{
		Sharpness:      sharpness,
		NoiseLevel:     sharpness,
		ColorCount:     ColorCount(img),
		DominantColors: DominantColors(img, metadata.MaxDominantColors),
		EdgeComplexity: gocv.CountNonZero(edges),
	}, nil
}
