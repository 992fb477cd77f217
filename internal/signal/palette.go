package signal

import (
	"image"
	"sort"

	"github.com/disintegration/imaging"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/metadata"
)

const dominantGrid = 64

// resample scales img to an n x n grid. Downscaling averages with a box
// filter; upscaling uses nearest neighbour so no new colors appear.
func resample(img image.Image, n int) *image.NRGBA {
	b := img.Bounds()
	filter := imaging.Box
	if b.Dx() < n || b.Dy() < n {
		filter = imaging.NearestNeighbor
	}
	return imaging.Resize(img, n, n, filter)
}

func rgbKey(p []uint8) uint32 {
	return uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
}

// ColorCount returns the number of distinct RGB values on the 128x128 grid.
func ColorCount(img image.Image) int {
	g := resample(img, metadata.ColorGrid)
	seen := make(map[uint32]struct{}, 1024)
	for i := 0; i+3 < len(g.Pix); i += 4 {
		seen[rgbKey(g.Pix[i:])] = struct{}{}
	}
	return len(seen)
}

// DominantColors returns up to topN most frequent RGB values on the 64x64
// grid. Ties keep the order in which colors were first seen (row-major).
func DominantColors(img image.Image, topN int) []metadata.RGB {
	if topN <= 0 {
		return nil
	}
	g := resample(img, dominantGrid)

	counts := make(map[uint32]int, 256)
	order := make([]uint32, 0, 256)
	for i := 0; i+3 < len(g.Pix); i += 4 {
		k := rgbKey(g.Pix[i:])
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}

	sort.SliceStable(order, func(a, b int) bool { return counts[order[a]] > counts[order[b]] })
	if len(order) > topN {
		order = order[:topN]
	}

	out := make([]metadata.RGB, len(order))
	for i, k := range order {
		out[i] = metadata.RGB{uint8(k >> 16), uint8(k >> 8), uint8(k)}
	}
	return out
}
