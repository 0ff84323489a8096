package features

import (
	"image"
	"math"
	"math/rand"

	"github.com/anthonynsimon/bild/blur"
)

// PatchRadius is the radius of the circular patch used for orientation and
// for descriptor sampling.
const PatchRadius = 15

// patchExtent bounds the pixel offsets a steered sample can reach: rotating a
// point of the radius-15 disk and rounding never leaves radius 16.
const patchExtent = PatchRadius + 1

// DescriptorBits is the length of the steered BRIEF descriptor.
const DescriptorBits = 512

// rowExtent[|dy|] is the half width of the circular patch at row dy.
var rowExtent = [PatchRadius + 1]int{15, 15, 15, 15, 14, 14, 14, 13, 13, 12, 11, 10, 9, 8, 6, 3}

// SamplePairs are the point pairs compared to produce each descriptor bit.
type SamplePairs struct {
	P0 []image.Point
	P1 []image.Point
}

// samplingSeed fixes the test pattern so descriptors stay comparable across
// processes.
const samplingSeed = 0x5eed_b00c

// NewSamplePairs draws n pairs from an isotropic Gaussian with sigma
// PatchRadius*2/5, keeping only points inside the circular patch.
func NewSamplePairs(n int) *SamplePairs {
	rng := rand.New(rand.NewSource(samplingSeed))
	sigma := float64(2*PatchRadius) / 5
	draw := func() image.Point {
		for {
			x := int(math.Round(rng.NormFloat64() * sigma))
			y := int(math.Round(rng.NormFloat64() * sigma))
			if x*x+y*y <= PatchRadius*PatchRadius {
				return image.Point{x, y}
			}
		}
	}
	sp := &SamplePairs{P0: make([]image.Point, 0, n), P1: make([]image.Point, 0, n)}
	for len(sp.P0) < n {
		p0, p1 := draw(), draw()
		if p0 == p1 {
			continue
		}
		sp.P0 = append(sp.P0, p0)
		sp.P1 = append(sp.P1, p1)
	}
	return sp
}

// Orientation returns the intensity-centroid angle of the circular patch
// centred on (x, y). The patch must lie inside img.
func Orientation(img *image.Gray, x, y int) float64 {
	m01, m10 := 0, 0
	for dy := -PatchRadius; dy <= PatchRadius; dy++ {
		ext := rowExtent[abs(dy)]
		row := img.Pix[(y+dy)*img.Stride:]
		rowSum := 0
		for dx := -ext; dx <= ext; dx++ {
			v := int(row[x+dx])
			m10 += dx * v
			rowSum += v
		}
		m01 += dy * rowSum
	}
	return math.Atan2(float64(m01), float64(m10))
}

// Smooth prepares an image for descriptor sampling with a Gaussian blur of
// the given radius.
func Smooth(img *image.Gray, radius float64) *image.Gray {
	if radius <= 0 {
		return img
	}
	rgba := blur.Gaussian(img, radius)
	b := rgba.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := rgba.Pix[y*rgba.Stride:]
		dst := out.Pix[y*out.Stride : y*out.Stride+b.Dx()]
		for x := range dst {
			dst[x] = src[x*4]
		}
	}
	return out
}

// BRIEF computes a steered BRIEF descriptor at (x, y) on a smoothed image.
// The sample pattern is rotated by angle so the descriptor follows the patch
// orientation. Bit i is set when the first sample of pair i is brighter than
// the second.
func BRIEF(smoothed *image.Gray, x, y int, angle float64, sp *SamplePairs) Descriptor {
	desc := make(Descriptor, (len(sp.P0)+63)/64)
	cos, sin := math.Cos(angle), math.Sin(angle)
	rotate := func(p image.Point) (int, int) {
		fx, fy := float64(p.X), float64(p.Y)
		return int(math.Round(cos*fx - sin*fy)), int(math.Round(sin*fx + cos*fy))
	}
	for i := range sp.P0 {
		x0, y0 := rotate(sp.P0[i])
		x1, y1 := rotate(sp.P1[i])
		if smoothed.Pix[(y+y0)*smoothed.Stride+x+x0] > smoothed.Pix[(y+y1)*smoothed.Stride+x+x1] {
			desc[i/64] |= 1 << (i % 64)
		}
	}
	return desc
}

// patchInside reports whether a steered patch centred on (x, y) fits in b.
func patchInside(b image.Rectangle, x, y int) bool {
	return x-patchExtent >= 0 && y-patchExtent >= 0 && x+patchExtent < b.Dx() && y+patchExtent < b.Dy()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
