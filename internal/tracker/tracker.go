package tracker

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/ironsheep/arbook-tracker/internal/imaging"
	"github.com/ironsheep/arbook-tracker/internal/vision"
)

// Tracker recognizes registered pages in camera frames. It is not safe for
// concurrent use.
type Tracker struct {
	provider vision.Provider
	params   Params
	logger   *slog.Logger

	images []*TrainingImage
	ready  bool
	state  searchState
}

// New creates a tracker backed by provider. A nil logger discards output.
func New(provider vision.Provider, params Params, logger *slog.Logger) (*Tracker, error) {
	if provider == nil {
		return nil, fmt.Errorf("tracker: nil provider")
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("tracker params: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Tracker{
		provider: provider,
		params:   params,
		logger:   logger.With("component", "tracker"),
		state:    newSearchState(params.PredictionAttempts),
	}, nil
}

// Params returns the parameters the tracker was created with.
func (t *Tracker) Params() Params { return t.params }

// Provider returns the vision provider in use.
func (t *Tracker) Provider() vision.Provider { return t.provider }

// Register preprocesses frame and appends it to the registry under page.
func (t *Tracker) Register(frame imaging.Frame, page int) error {
	if t.ready {
		return ErrRegistryFinalized
	}
	if frame.Empty() {
		return ErrEmptyFrame
	}
	img := &TrainingImage{
		Index: len(t.images),
		Page:  page,
		Gray:  preprocessTraining(frame, t.params),
	}
	t.images = append(t.images, img)
	w, h := img.Size()
	t.logger.Debug("registered training image", "index", img.Index, "page", page, "width", w, "height", h)
	return nil
}

// Finalize extracts features from every registered image and makes the
// tracker ready. Calling it again re-extracts the current contents.
func (t *Tracker) Finalize() {
	for _, img := range t.images {
		kps := t.provider.Detect(img.Gray)
		detected := len(kps)
		kps = reduceKeypoints(kps, t.params.ReductionKeypoints, t.params.ResponseFactor)
		img.Keypoints, img.Descriptors = t.provider.Compute(img.Gray, kps)
		t.logger.Debug("extracted training features",
			"page", img.Page, "detected", detected, "kept", len(img.Keypoints))
	}
	t.ready = true
	t.logger.Info("training finalized", "images", len(t.images), "provider", t.provider.Name())
}

// Clear drops every registered image and resets the search state.
func (t *Tracker) Clear() {
	t.images = nil
	t.ready = false
	t.state.reset()
}

// Ready reports whether Finalize has run since the last Clear.
func (t *Tracker) Ready() bool { return t.ready }

// Len returns the number of registered images.
func (t *Tracker) Len() int { return len(t.images) }

// Images returns a summary of every registered image in registry order.
func (t *Tracker) Images() []TrainingInfo {
	out := make([]TrainingInfo, len(t.images))
	for i, img := range t.images {
		out[i] = img.Info()
	}
	return out
}

// Image returns the registered image at index, or nil.
func (t *Tracker) Image(index int) *TrainingImage {
	if index < 0 || index >= len(t.images) {
		return nil
	}
	return t.images[index]
}

// Prediction returns the registry index currently predicted and the
// remaining attempts, or -1 when idle.
func (t *Tracker) Prediction() (index, remaining int) {
	if !t.state.predicting() {
		return -1, 0
	}
	return t.state.predicted, t.state.remaining
}

// ProcessFrame looks for a registered page in frame. Frames processed before
// Finalize, frames without features and frames that match nothing all give
// a Result with Page NoPage.
func (t *Tracker) ProcessFrame(frame imaging.Frame) Result {
	if !t.ready {
		t.logger.Debug("frame skipped, training not finalized")
		return notFound()
	}
	if frame.Empty() {
		return notFound()
	}

	gray := imaging.ResizeShortSide(imaging.ToGray(frame), t.params.QuerySize)
	b := gray.Bounds()
	q := &query{width: b.Dx(), height: b.Dy()}
	q.keypoints, q.descriptors = t.provider.Compute(gray, t.provider.Detect(gray))
	if len(q.keypoints) == 0 || q.descriptors.Empty() {
		t.logger.Debug("no features in frame")
		return notFound()
	}

	var accepted verdict
	index := t.state.step(len(t.images), func(i int) bool {
		v := t.match(t.images[i], q)
		t.logger.Debug("candidate checked", "page", t.images[i].Page,
			"matches", v.matches, "inliers", v.inliers, "accepted", v.accepted)
		if v.accepted {
			accepted = v
		}
		return v.accepted
	})
	if index == noPrediction {
		return notFound()
	}

	res := t.report(t.images[index], accepted.h, q, frame.Width, frame.Height)
	t.logger.Debug("page recognized", "page", res.Page, "x", res.Center.X, "y", res.Center.Y)
	return res
}
