package tracker

import (
	"image"
	"math"

	"github.com/ironsheep/arbook-tracker/internal/geometry"
)

// NoPage is the page reported when nothing was recognized.
const NoPage = -1

// Result is the outcome of processing one frame. Coordinates are pixels of
// the frame as it was passed in.
type Result struct {
	Found bool `json:"found"`
	Page  int  `json:"page"`
	// Index is the registry position of the recognized image, -1 if none.
	Index  int         `json:"index"`
	Center Pixel       `json:"center"`
	// Rotation is the 3x3 page rotation in row-major order.
	Rotation [9]float64 `json:"rotation"`
	// Corners are the projected training image corners, clockwise from
	// the top left of the page.
	Corners [4]geometry.Point `json:"corners"`
}

// Pixel is an integer frame position.
type Pixel struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Point converts p to an image.Point.
func (p Pixel) Point() image.Point { return image.Pt(p.X, p.Y) }

func notFound() Result {
	return Result{Page: NoPage, Index: -1}
}

// EulerAngles decomposes Rotation into X, Y and Z angles in degrees,
// rounded to two decimals.
func (r Result) EulerAngles() (x, y, z float64) {
	m := r.Rotation
	r11, r21, r31, r32, r33 := m[0], m[3], m[6], m[7], m[8]

	thetaY := -math.Asin(clamp(r31, -1, 1))
	cy := math.Cos(thetaY)
	thetaX := math.Atan2(r32/cy, r33/cy)
	thetaZ := math.Atan2(r21/cy, r11/cy)

	return round2(degrees(thetaX)), round2(degrees(thetaY)), round2(degrees(thetaZ))
}

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
