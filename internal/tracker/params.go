package tracker

import (
	"fmt"

	"go.uber.org/multierr"
)

// Params holds the tuning constants of the recognition pipeline.
type Params struct {
	// TrainSize is the short side, in pixels, of preprocessed training images.
	TrainSize int `toml:"train_size"`
	// QuerySize is the short side, in pixels, of preprocessed camera frames.
	QuerySize int `toml:"query_size"`
	// TrainBlurSigma is the Gaussian sigma applied to training images.
	TrainBlurSigma float64 `toml:"train_blur_sigma"`

	// ReductionKeypoints is the keypoint count above which weak training
	// keypoints are discarded.
	ReductionKeypoints int `toml:"reduction_keypoints"`
	// ResponseFactor is the fraction of the strongest response a training
	// keypoint must reach to survive reduction.
	ResponseFactor float64 `toml:"response_factor"`

	SimilarityFactor float64 `toml:"similarity_factor"`
	DistanceFactor   float64 `toml:"distance_factor"`
	RequiredMatches  int     `toml:"required_matches"`

	RansacThreshold float64 `toml:"ransac_threshold"`
	RequiredInliers float64 `toml:"required_inliers"`
	// MinPageArea is the fraction of the preprocessed frame a recognized
	// page must cover. Its projected outline must also be a convex,
	// unmirrored quadrilateral.
	MinPageArea float64 `toml:"min_page_area"`

	// PredictionAttempts is how many consecutive frames the last recognized
	// page is tried alone before a full scan resumes.
	PredictionAttempts int `toml:"prediction_attempts"`
}

// DefaultParams returns the values the recognizer was tuned with.
func DefaultParams() Params {
	return Params{
		TrainSize:          240,
		QuerySize:          360,
		TrainBlurSigma:     0.8,
		ReductionKeypoints: 800,
		ResponseFactor:     0.6,
		SimilarityFactor:   0.9,
		DistanceFactor:     3.0,
		RequiredMatches:    4,
		RansacThreshold:    3.0,
		RequiredInliers:    0.65,
		MinPageArea:        0.01,
		PredictionAttempts: 3,
	}
}

// Validate reports every out-of-range field.
func (p Params) Validate() error {
	var err error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf(format, args...))
		}
	}
	check(p.TrainSize > 0, "train_size must be positive, got %d", p.TrainSize)
	check(p.QuerySize > 0, "query_size must be positive, got %d", p.QuerySize)
	check(p.TrainBlurSigma >= 0, "train_blur_sigma must not be negative, got %g", p.TrainBlurSigma)
	check(p.ReductionKeypoints >= 0, "reduction_keypoints must not be negative, got %d", p.ReductionKeypoints)
	check(p.ResponseFactor >= 0 && p.ResponseFactor <= 1, "response_factor must be in [0,1], got %g", p.ResponseFactor)
	check(p.SimilarityFactor >= 0 && p.SimilarityFactor <= 1, "similarity_factor must be in [0,1], got %g", p.SimilarityFactor)
	check(p.DistanceFactor >= 1, "distance_factor must be at least 1, got %g", p.DistanceFactor)
	check(p.RequiredMatches >= 4, "required_matches must be at least 4, got %d", p.RequiredMatches)
	check(p.RansacThreshold > 0, "ransac_threshold must be positive, got %g", p.RansacThreshold)
	check(p.RequiredInliers > 0 && p.RequiredInliers <= 1, "required_inliers must be in (0,1], got %g", p.RequiredInliers)
	check(p.MinPageArea >= 0 && p.MinPageArea < 1, "min_page_area must be in [0,1), got %g", p.MinPageArea)
	check(p.PredictionAttempts >= 1, "prediction_attempts must be at least 1, got %d", p.PredictionAttempts)
	return err
}
