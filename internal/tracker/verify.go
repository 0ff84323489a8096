package tracker

import (
	"math"

	"github.com/ironsheep/arbook-tracker/internal/features"
	"github.com/ironsheep/arbook-tracker/internal/geometry"
)

// query is a preprocessed camera frame.
type query struct {
	width, height int
	keypoints     []features.Keypoint
	descriptors   features.Descriptors
}

// verdict is the outcome of matching one training image against a query.
type verdict struct {
	accepted bool
	h        geometry.Homography
	matches  int
	inliers  int
}

// match decides whether img appears in q.
func (t *Tracker) match(img *TrainingImage, q *query) verdict {
	knn := t.provider.KnnMatch(img.Descriptors, q.descriptors, 2)

	good := rejectAmbiguous(knn, t.params.SimilarityFactor)
	if len(good) == 0 {
		return verdict{}
	}
	good = rejectOutliers(good, t.params.DistanceFactor)
	if len(good) < t.params.RequiredMatches {
		return verdict{matches: len(good)}
	}

	src := make([]geometry.Point, len(good))
	dst := make([]geometry.Point, len(good))
	for i, m := range good {
		tk := img.Keypoints[m.Train]
		qk := q.keypoints[m.Query]
		src[i] = geometry.Pt(tk.X, tk.Y)
		dst[i] = geometry.Pt(qk.X, qk.Y)
	}

	h, mask, ok := t.provider.EstimateHomography(src, dst, t.params.RansacThreshold)
	if !ok || len(mask) == 0 {
		return verdict{matches: len(good)}
	}
	inliers := 0
	for _, in := range mask {
		if in {
			inliers++
		}
	}
	v := verdict{h: h, matches: len(good), inliers: inliers}
	v.accepted = inliersSufficient(inliers, len(mask), t.params.RequiredInliers) &&
		plausibleOutline(h, img, q, t.params.MinPageArea)
	return v
}

func inliersSufficient(inliers, total int, required float64) bool {
	if total == 0 {
		return false
	}
	return float64(inliers)/float64(total) >= required
}

// plausibleOutline reports whether h maps the training image onto a finite,
// convex quadrilateral with the training image's winding that covers at
// least minArea of the query frame.
func plausibleOutline(h geometry.Homography, img *TrainingImage, q *query, minArea float64) bool {
	var quad [4]geometry.Point
	for i, c := range trainingCorners(img) {
		p, ok := h.Project(c)
		if !ok || math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return false
		}
		quad[i] = p
	}
	if !convexClockwise(quad) {
		return false
	}
	return polygonArea(quad) >= minArea*float64(q.width*q.height)
}

// convexClockwise reports whether every turn of quad bends the same way as
// the training corners (clockwise on screen, y pointing down).
func convexClockwise(quad [4]geometry.Point) bool {
	for i := range quad {
		a, b, c := quad[i], quad[(i+1)%4], quad[(i+2)%4]
		ab, bc := b.Sub(a), c.Sub(b)
		if ab.X*bc.Y-ab.Y*bc.X <= 0 {
			return false
		}
	}
	return true
}

// polygonArea is the shoelace area of quad.
func polygonArea(quad [4]geometry.Point) float64 {
	area := 0.0
	for i := range quad {
		j := (i + 1) % 4
		area += quad[i].X*quad[j].Y - quad[j].X*quad[i].Y
	}
	return math.Abs(area) / 2
}

func trainingCorners(img *TrainingImage) []geometry.Point {
	w, h := img.Size()
	fw, fh := float64(w), float64(h)
	return []geometry.Point{{X: 0, Y: 0}, {X: fw, Y: 0}, {X: fw, Y: fh}, {X: 0, Y: fh}}
}
