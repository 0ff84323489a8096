// Package vision defines the primitive operations the page recognizer
// depends on and ships two implementations: a pure-Go provider (the default)
// and an OpenCV provider available when built with the gocv tag.
//
// The recognizer never looks inside descriptors or keypoints beyond their
// positions; any detector, descriptor and matcher combination that honours
// the Provider contract can be swapped in.
package vision

import (
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/arbook-tracker/internal/features"
	"github.com/ironsheep/arbook-tracker/internal/geometry"
)

// Provider names accepted by New.
const (
	NameNative = "native"
	NameOpenCV = "opencv"
)

var (
	// ErrUnknownProvider is returned by New for an unrecognized name.
	ErrUnknownProvider = errors.New("unknown vision provider")
	// ErrOpenCVUnavailable is returned when the binary was built without gocv.
	ErrOpenCVUnavailable = errors.New("opencv provider not compiled in (build with -tags gocv)")
)

// Provider supplies feature extraction, matching and geometry primitives.
//
// Compute may drop keypoints it cannot describe; the returned keypoints and
// descriptors always have the same length and order. KnnMatch returns one row
// per training descriptor holding up to k nearest query descriptors, nearest
// first, with Match.Train indexing train and Match.Query indexing query.
type Provider interface {
	Name() string
	Detect(img *image.Gray) []features.Keypoint
	Compute(img *image.Gray, kps []features.Keypoint) ([]features.Keypoint, features.Descriptors)
	KnnMatch(train, query features.Descriptors, k int) [][]features.Match
	EstimateHomography(src, dst []geometry.Point, threshold float64) (geometry.Homography, []bool, bool)
	SolvePose(imagePts []geometry.Point, objectPts []geometry.Point3, camera geometry.CameraMatrix) (geometry.Vec3, error)
}

// New returns the provider registered under name. An empty name selects the
// native provider.
func New(name string, opts NativeOptions) (Provider, error) {
	switch name {
	case "", NameNative:
		return NewNative(opts)
	case NameOpenCV:
		return NewOpenCV()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}
