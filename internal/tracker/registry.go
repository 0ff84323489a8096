package tracker

import (
	"errors"
	"image"

	"github.com/ironsheep/arbook-tracker/internal/features"
	"github.com/ironsheep/arbook-tracker/internal/imaging"
)

// ErrRegistryFinalized is returned by Register once the registry has been
// finalized. Call Clear to start over.
var ErrRegistryFinalized = errors.New("training registry already finalized")

// ErrEmptyFrame is returned by Register for a frame without pixels.
var ErrEmptyFrame = errors.New("empty frame")

// TrainingImage is one registered reference image.
type TrainingImage struct {
	// Index is the registration order, starting at 0.
	Index int
	// Page is the caller's tag for the image.
	Page int
	// Gray is the preprocessed image features are extracted from.
	Gray        *image.Gray
	Keypoints   []features.Keypoint
	Descriptors features.Descriptors
}

// Size returns the dimensions of the preprocessed image.
func (t *TrainingImage) Size() (int, int) {
	b := t.Gray.Bounds()
	return b.Dx(), b.Dy()
}

// TrainingInfo summarizes a registered image.
type TrainingInfo struct {
	Index     int `json:"index"`
	Page      int `json:"page"`
	Width     int `json:"width"`
	Height    int `json:"height"`
	Keypoints int `json:"keypoints"`
}

// Info returns a summary of t.
func (t *TrainingImage) Info() TrainingInfo {
	w, h := t.Size()
	return TrainingInfo{
		Index:     t.Index,
		Page:      t.Page,
		Width:     w,
		Height:    h,
		Keypoints: len(t.Keypoints),
	}
}

// preprocessTraining converts a training frame to the gray image that
// features are extracted from.
func preprocessTraining(f imaging.Frame, p Params) *image.Gray {
	gray := imaging.ToGray(f)
	gray = imaging.ResizeShortSide(gray, p.TrainSize)
	return imaging.Blur(gray, p.TrainBlurSigma)
}

// reduceKeypoints drops weak keypoints when there are more than limit of
// them. Survivors keep their order.
func reduceKeypoints(kps []features.Keypoint, limit int, factor float64) []features.Keypoint {
	if len(kps) <= limit {
		return kps
	}
	cut := features.MaxResponse(kps) * factor
	kept := kps[:0:0]
	for _, kp := range kps {
		if kp.Response >= cut {
			kept = append(kept, kp)
		}
	}
	return kept
}
