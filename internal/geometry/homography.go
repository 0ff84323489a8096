package geometry

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerate is returned when point correspondences do not determine a
// homography.
var ErrDegenerate = errors.New("degenerate point configuration")

// Homography is a 3x3 projective transform, row-major, mapping source points
// to destination points.
type Homography Mat3

// Project maps p through h. ok is false when p maps to infinity.
func (h Homography) Project(p Point) (Point, bool) {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if math.Abs(w) < 1e-12 {
		return Point{}, false
	}
	return Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}, true
}

// PerspectiveTransform projects every point. Points mapped to infinity come
// back as NaN.
func PerspectiveTransform(h Homography, pts []Point) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		q, ok := h.Project(p)
		if !ok {
			q = Point{math.NaN(), math.NaN()}
		}
		out[i] = q
	}
	return out
}

// normalization returns the similarity that moves the centroid of pts to the
// origin and scales their mean distance from it to sqrt(2).
func normalization(pts []Point) (Mat3, error) {
	var cx, cy float64
	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}
	n := float64(len(pts))
	cx, cy = cx/n, cy/n

	var mean float64
	for _, p := range pts {
		mean += math.Hypot(p.X-cx, p.Y-cy)
	}
	mean /= n
	if mean < 1e-12 {
		return Mat3{}, ErrDegenerate
	}
	s := math.Sqrt2 / mean
	return Mat3{s, 0, -s * cx, 0, s, -s * cy, 0, 0, 1}, nil
}

func inverseSimilarity(t Mat3) Mat3 {
	s := t[0]
	return Mat3{1 / s, 0, -t[2] / s, 0, 1 / s, -t[5] / s, 0, 0, 1}
}

// FitHomography computes the least-squares homography mapping src to dst
// with the normalized direct linear transform. At least four
// correspondences are needed.
func FitHomography(src, dst []Point) (Homography, error) {
	if len(src) != len(dst) {
		return Homography{}, fmt.Errorf("point count mismatch: %d vs %d", len(src), len(dst))
	}
	if len(src) < 4 {
		return Homography{}, fmt.Errorf("need at least 4 points, got %d: %w", len(src), ErrDegenerate)
	}
	ts, err := normalization(src)
	if err != nil {
		return Homography{}, err
	}
	td, err := normalization(dst)
	if err != nil {
		return Homography{}, err
	}

	a := mat.NewDense(2*len(src), 9, nil)
	for i := range src {
		s := Mat3(ts).MulVec(Vec3{src[i].X, src[i].Y, 1})
		d := Mat3(td).MulVec(Vec3{dst[i].X, dst[i].Y, 1})
		x, y, u, v := s[0], s[1], d[0], d[1]
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFullV) {
		return Homography{}, fmt.Errorf("svd failed: %w", ErrDegenerate)
	}
	values := svd.Values(nil)
	// A rank below 8 leaves more than one solution.
	if len(values) >= 8 && values[7] < 1e-9*values[0] {
		return Homography{}, fmt.Errorf("rank deficient system: %w", ErrDegenerate)
	}
	var v mat.Dense
	svd.VTo(&v)
	var hn Mat3
	for i := range hn {
		hn[i] = v.At(i, 8)
	}

	h := inverseSimilarity(td).Mul(hn).Mul(ts)
	if math.Abs(h[8]) < 1e-12 {
		return Homography{}, fmt.Errorf("homography at infinity: %w", ErrDegenerate)
	}
	for i := range h {
		h[i] /= h[8]
	}
	return Homography(h), nil
}

// RANSACOptions control EstimateHomography.
type RANSACOptions struct {
	// Threshold is the maximum reprojection distance of an inlier, in pixels.
	Threshold float64
	// MaxIterations bounds the number of sampled hypotheses.
	MaxIterations int
	// Confidence stops sampling early once an outlier-free sample has been
	// drawn with this probability.
	Confidence float64
	// Seed makes the sampling reproducible.
	Seed int64
}

// DefaultRANSACOptions mirror the usual findHomography defaults.
func DefaultRANSACOptions(threshold float64) RANSACOptions {
	return RANSACOptions{
		Threshold:     threshold,
		MaxIterations: 2000,
		Confidence:    0.995,
		Seed:          1,
	}
}

// EstimateHomography robustly fits a homography from src to dst. It returns
// the model, a per-correspondence inlier mask and whether a model was found.
//
// Minimal samples of four correspondences whose triangles change orientation
// inconsistently between src and dst are skipped, as are samples with
// collinear triples. The winning model is refitted on its inliers.
func EstimateHomography(src, dst []Point, opts RANSACOptions) (Homography, []bool, bool) {
	n := len(src)
	if n != len(dst) || n < 4 {
		return Homography{}, nil, false
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 2000
	}
	thr2 := opts.Threshold * opts.Threshold

	rng := rand.New(rand.NewSource(opts.Seed))
	var (
		best      Homography
		bestCount = -1
		mask      = make([]bool, n)
		bestMask  = make([]bool, n)
		idx       [4]int
		sSrc      = make([]Point, 4)
		sDst      = make([]Point, 4)
	)

	iterations := opts.MaxIterations
	for iter := 0; iter < iterations; iter++ {
		if n == 4 {
			idx = [4]int{0, 1, 2, 3}
		} else {
			sample(rng, n, &idx)
		}
		for k, i := range idx {
			sSrc[k], sDst[k] = src[i], dst[i]
		}
		if !goodSubset(sSrc, sDst) {
			if n == 4 {
				break
			}
			continue
		}
		h, err := FitHomography(sSrc, sDst)
		if err != nil {
			if n == 4 {
				break
			}
			continue
		}

		count := countInliers(h, src, dst, thr2, mask)
		if count > bestCount {
			best, bestCount = h, count
			copy(bestMask, mask)
			iterations = min(iterations, adaptiveIterations(count, n, opts))
		}
		if n == 4 {
			break
		}
	}
	if bestCount < 4 {
		return Homography{}, nil, false
	}

	// Refit on all inliers and keep the refinement unless it loses support.
	inSrc := make([]Point, 0, bestCount)
	inDst := make([]Point, 0, bestCount)
	for i, in := range bestMask {
		if in {
			inSrc = append(inSrc, src[i])
			inDst = append(inDst, dst[i])
		}
	}
	if refined, err := FitHomography(inSrc, inDst); err == nil {
		if count := countInliers(refined, src, dst, thr2, mask); count >= bestCount {
			best, bestCount = refined, count
			copy(bestMask, mask)
		}
	}
	return best, bestMask, true
}

// sample draws four distinct indices in [0, n).
func sample(rng *rand.Rand, n int, idx *[4]int) {
	for k := 0; k < 4; k++ {
	draw:
		for {
			v := rng.Intn(n)
			for j := 0; j < k; j++ {
				if idx[j] == v {
					continue draw
				}
			}
			idx[k] = v
			break
		}
	}
}

func countInliers(h Homography, src, dst []Point, thr2 float64, mask []bool) int {
	count := 0
	for i := range src {
		p, ok := h.Project(src[i])
		in := false
		if ok {
			dx, dy := p.X-dst[i].X, p.Y-dst[i].Y
			in = dx*dx+dy*dy <= thr2
		}
		mask[i] = in
		if in {
			count++
		}
	}
	return count
}

// adaptiveIterations returns the number of samples needed to draw one
// outlier-free minimal sample with the configured confidence.
func adaptiveIterations(inliers, n int, opts RANSACOptions) int {
	if opts.Confidence <= 0 || opts.Confidence >= 1 {
		return opts.MaxIterations
	}
	w := float64(inliers) / float64(n)
	p := math.Pow(w, 4)
	if p >= 1 {
		return 1
	}
	if p <= 0 {
		return opts.MaxIterations
	}
	k := math.Log(1-opts.Confidence) / math.Log(1-p)
	if k >= float64(opts.MaxIterations) {
		return opts.MaxIterations
	}
	return int(math.Ceil(k))
}

// goodSubset rejects minimal samples that cannot come from a proper
// homography: a collinear triple in either set, or triangle orientations
// that agree for some triples and flip for others.
func goodSubset(src, dst []Point) bool {
	negative := 0
	triples := [4][3]int{{0, 1, 2}, {1, 2, 3}, {0, 2, 3}, {0, 1, 3}}
	for _, t := range triples {
		a := orient(src[t[0]], src[t[1]], src[t[2]])
		b := orient(dst[t[0]], dst[t[1]], dst[t[2]])
		if math.Abs(a) < 1e-6 || math.Abs(b) < 1e-6 {
			return false
		}
		if a*b < 0 {
			negative++
		}
	}
	return negative == 0 || negative == 4
}

func orient(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}
