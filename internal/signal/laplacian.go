package signal

import "image"

// LaplacianVariance returns the population variance of the 4-neighbour
// Laplacian response over the whole image. Higher means more fine detail.
func LaplacianVariance(gray *image.Gray) float64 {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	n := w * h
	if n == 0 {
		return 0
	}

	at := func(x, y int) int64 {
		return int64(gray.Pix[reflect101(y, h)*gray.Stride+reflect101(x, w)])
	}

	var sum, sumSq int64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			l := at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1) - 4*at(x, y)
			sum += l
			sumSq += l * l
		}
	}

	mean := float64(sum) / float64(n)
	v := float64(sumSq)/float64(n) - mean*mean
	if v < 0 {
		return 0
	}
	return v
}
