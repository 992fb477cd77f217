package signal

import (
	"image"
	"math"
)

// Canny thresholds used for the edge_complexity signal.
const (
	EdgeLowThreshold  = 80
	EdgeHighThreshold = 160
)

const tan22 = 0.4142135623730950488

// Canny runs Canny edge detection with a 3x3 Sobel aperture and L1 gradient
// magnitude. Edge pixels are 255, the rest 0.
func Canny(gray *image.Gray, low, high float64) *image.Gray {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}
	if low > high {
		low, high = high, low
	}
	lo, hi := int32(math.Floor(low)), int32(math.Floor(high))

	px := func(x, y int) int32 {
		return int32(gray.Pix[clampIndex(y, h)*gray.Stride+clampIndex(x, w)])
	}

	dx := make([]int32, w*h)
	dy := make([]int32, w*h)
	mag := make([]int32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := px(x+1, y-1) + 2*px(x+1, y) + px(x+1, y+1) -
				px(x-1, y-1) - 2*px(x-1, y) - px(x-1, y+1)
			gy := px(x-1, y+1) + 2*px(x, y+1) + px(x+1, y+1) -
				px(x-1, y-1) - 2*px(x, y-1) - px(x+1, y-1)
			i := y*w + x
			dx[i], dy[i] = gx, gy
			mag[i] = abs32(gx) + abs32(gy)
		}
	}

	m := func(x, y int) int32 {
		if x < 0 || x >= w || y < 0 || y >= h {
			return 0
		}
		return mag[y*w+x]
	}

	const (
		none = iota
		weak
		strong
	)
	state := make([]uint8, w*h)
	stack := make([]int, 0, 64)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			v := mag[i]
			if v <= lo {
				continue
			}
			xs, ys := dx[i], dy[i]
			ax, ay := float64(abs32(xs)), float64(abs32(ys))
			tg22x := ax * tan22
			tg67x := tg22x + 2*ax

			var peak bool
			switch {
			case ay < tg22x:
				peak = v > m(x-1, y) && v >= m(x+1, y)
			case ay > tg67x:
				peak = v > m(x, y-1) && v >= m(x, y+1)
			default:
				s := 1
				if (xs ^ ys) < 0 {
					s = -1
				}
				peak = v > m(x-s, y-1) && v > m(x+s, y+1)
			}
			if !peak {
				continue
			}
			if v > hi {
				state[i] = strong
				stack = append(stack, i)
			} else {
				state[i] = weak
			}
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out.Pix[(i/w)*out.Stride+i%w] = 255
		cx, cy := i%w, i/w
		for ny := cy - 1; ny <= cy+1; ny++ {
			for nx := cx - 1; nx <= cx+1; nx++ {
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				j := ny*w + nx
				if state[j] == weak {
					state[j] = strong
					stack = append(stack, j)
				}
			}
		}
	}
	return out
}

// CountNonZero returns the number of non-zero pixels.
func CountNonZero(gray *image.Gray) int {
	b := gray.Bounds()
	n := 0
	for y := 0; y < b.Dy(); y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()]
		for _, p := range row {
			if p != 0 {
				n++
			}
		}
	}
	return n
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
