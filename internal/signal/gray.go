package signal

import (
	"image"

	"github.com/disintegration/imaging"
)

// Grayscale converts img to 8-bit luma with the BT.601 weights in the same
// 14-bit fixed point OpenCV uses for BGR2GRAY, so values match bit for bit.
func Grayscale(img image.Image) *image.Gray {
	src := imaging.Clone(img)
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x := 0; x < w; x++ {
			r, g, bl := uint32(row[x*4]), uint32(row[x*4+1]), uint32(row[x*4+2])
			out[x] = uint8((r*4899 + g*9617 + bl*1868 + 1<<13) >> 14)
		}
	}
	return dst
}

// reflect101 maps an out-of-range index the way BORDER_REFLECT_101 does.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
