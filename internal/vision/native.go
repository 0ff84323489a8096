package vision

import (
	"fmt"
	"image"

	"github.com/ironsheep/arbook-tracker/internal/features"
	"github.com/ironsheep/arbook-tracker/internal/geometry"
)

// RANSACOptions tune homography estimation of the native provider. The
// inlier threshold comes from the caller on every call.
type RANSACOptions struct {
	MaxIterations int     `toml:"max_iterations"`
	Confidence    float64 `toml:"confidence"`
	Seed          int64   `toml:"seed"`
}

// NativeOptions configure the pure-Go provider.
type NativeOptions struct {
	Features features.Config `toml:"features"`
	RANSAC   RANSACOptions   `toml:"ransac"`
	// MaxDistance drops knn neighbours farther than this many bits. Zero
	// keeps every neighbour.
	MaxDistance int `toml:"max_distance"`
}

// DefaultNativeOptions returns the options used when none are configured.
func DefaultNativeOptions() NativeOptions {
	d := geometry.DefaultRANSACOptions(0)
	return NativeOptions{
		Features: features.DefaultConfig(),
		RANSAC: RANSACOptions{
			MaxIterations: d.MaxIterations,
			Confidence:    d.Confidence,
			Seed:          d.Seed,
		},
		MaxDistance: features.DescriptorBits / 4,
	}
}

// Native implements Provider with oriented FAST keypoints, steered BRIEF
// descriptors, brute-force Hamming matching, DLT/RANSAC homographies and
// homography-based planar pose.
type Native struct {
	extractor   *features.Extractor
	ransac      RANSACOptions
	maxDistance int
}

var _ Provider = (*Native)(nil)

// NewNative validates opts and builds a native provider.
func NewNative(opts NativeOptions) (*Native, error) {
	if opts.MaxDistance < 0 || opts.MaxDistance > features.DescriptorBits {
		return nil, fmt.Errorf("max_distance %d out of range [0, %d]", opts.MaxDistance, features.DescriptorBits)
	}
	ext, err := features.NewExtractor(opts.Features)
	if err != nil {
		return nil, err
	}
	return &Native{extractor: ext, ransac: opts.RANSAC, maxDistance: opts.MaxDistance}, nil
}

// Name returns NameNative.
func (n *Native) Name() string { return NameNative }

// Detect finds oriented FAST keypoints over the image pyramid.
func (n *Native) Detect(img *image.Gray) []features.Keypoint {
	return n.extractor.Detect(img)
}

// Compute describes kps with steered BRIEF.
func (n *Native) Compute(img *image.Gray, kps []features.Keypoint) ([]features.Keypoint, features.Descriptors) {
	return n.extractor.Compute(img, kps)
}

// KnnMatch performs brute-force Hamming knn matching. Neighbours beyond
// MaxDistance are dropped, so a row may hold fewer than k matches.
func (n *Native) KnnMatch(train, query features.Descriptors, k int) [][]features.Match {
	rows := features.KnnMatch(train, query, k)
	if n.maxDistance == 0 {
		return rows
	}
	for i, row := range rows {
		keep := 0
		for keep < len(row) && row[keep].Distance <= float64(n.maxDistance) {
			keep++
		}
		rows[i] = row[:keep]
	}
	return rows
}

// EstimateHomography fits a homography with RANSAC. Every call reseeds the
// sampler, so equal inputs give equal outputs.
func (n *Native) EstimateHomography(src, dst []geometry.Point, threshold float64) (geometry.Homography, []bool, bool) {
	return geometry.EstimateHomography(src, dst, geometry.RANSACOptions{
		Threshold:     threshold,
		MaxIterations: n.ransac.MaxIterations,
		Confidence:    n.ransac.Confidence,
		Seed:          n.ransac.Seed,
	})
}

// SolvePose recovers the rotation vector of a planar object.
func (n *Native) SolvePose(imagePts []geometry.Point, objectPts []geometry.Point3, camera geometry.CameraMatrix) (geometry.Vec3, error) {
	rvec, _, err := geometry.SolvePlanarPose(imagePts, objectPts, camera)
	return rvec, err
}
