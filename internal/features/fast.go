package features

import (
	"image"
)

// circle is the Bresenham circle of radius 3 used by the FAST segment test,
// clockwise from 12 o'clock. Entry i and entry i+8 are point reflections of
// each other.
var circle = [16]image.Point{
	{0, -3}, {1, -3}, {2, -2}, {3, -1},
	{3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1},
	{-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}

// arcLength is the number of contiguous circle pixels that must all be
// brighter or all darker than the centre (FAST-9).
const arcLength = 9

// FASTConfig holds the parameters of the corner detector.
type FASTConfig struct {
	// Threshold is the minimum intensity difference between the centre and
	// the arc pixels.
	Threshold int `toml:"threshold"`
	// Border excludes pixels closer than this to the image edge.
	Border int `toml:"border"`
}

// DetectFAST finds FAST-9 corners with non-maximum suppression over a 3x3
// neighbourhood. Keypoints are returned in raster order with integer
// coordinates; Response is the sum of the absolute differences exceeding the
// threshold over the winning arc polarity.
//
// A corner survives suppression when no neighbour has a strictly higher
// score, so plateaus of equal scores are all kept. This keeps the result
// symmetric under point reflection of the image.
func DetectFAST(img *image.Gray, cfg FASTConfig) []Keypoint {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	border := max(cfg.Border, 3)
	if w <= 2*border || h <= 2*border {
		return nil
	}

	var offsets [16]int
	for i, p := range circle {
		offsets[i] = p.Y*img.Stride + p.X
	}

	scores := make([]int, w*h)
	for y := border; y < h-border; y++ {
		for x := border; x < w-border; x++ {
			scores[y*w+x] = cornerScore(img.Pix, y*img.Stride+x, &offsets, cfg.Threshold)
		}
	}

	var kps []Keypoint
	for y := border; y < h-border; y++ {
		for x := border; x < w-border; x++ {
			s := scores[y*w+x]
			if s == 0 || !isLocalMax(scores, w, x, y, s) {
				continue
			}
			kps = append(kps, Keypoint{X: float64(x), Y: float64(y), Response: float64(s)})
		}
	}
	return kps
}

func isLocalMax(scores []int, w, x, y, s int) bool {
	for dy := -1; dy <= 1; dy++ {
		row := (y + dy) * w
		for dx := -1; dx <= 1; dx++ {
			if (dx != 0 || dy != 0) && scores[row+x+dx] > s {
				return false
			}
		}
	}
	return true
}

// cornerScore returns 0 when the pixel at index i fails the segment test.
func cornerScore(pix []uint8, i int, offsets *[16]int, threshold int) int {
	c := int(pix[i])
	hi, lo := c+threshold, c-threshold

	// Quick rejection on the four compass points: a 9-arc covers at least two
	// adjacent ones.
	n, e, s, wst := int(pix[i+offsets[0]]), int(pix[i+offsets[4]]), int(pix[i+offsets[8]]), int(pix[i+offsets[12]])
	bright := btoi(n > hi) + btoi(e > hi) + btoi(s > hi) + btoi(wst > hi)
	dark := btoi(n < lo) + btoi(e < lo) + btoi(s < lo) + btoi(wst < lo)
	if bright < 2 && dark < 2 {
		return 0
	}

	var vals [16]int
	for k := range vals {
		vals[k] = int(pix[i+offsets[k]])
	}

	best := 0
	if bright >= 2 && hasArc(&vals, func(v int) bool { return v > hi }) {
		sum := 0
		for _, v := range vals {
			if v > hi {
				sum += v - hi
			}
		}
		best = sum
	}
	if dark >= 2 && hasArc(&vals, func(v int) bool { return v < lo }) {
		sum := 0
		for _, v := range vals {
			if v < lo {
				sum += lo - v
			}
		}
		best = max(best, sum)
	}
	return best
}

func hasArc(vals *[16]int, pass func(int) bool) bool {
	run := 0
	// Walk the circle twice so arcs wrapping past index 15 are counted.
	for k := 0; k < 16+arcLength-1; k++ {
		if pass(vals[k%16]) {
			run++
			if run >= arcLength {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
