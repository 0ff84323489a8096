package features

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/ironsheep/arbook-tracker/internal/imaging"
)

// Config contains the parameters of the multi-scale oriented FAST / steered
// BRIEF extractor.
type Config struct {
	// Levels is the number of pyramid levels. Level i is 2^i times smaller
	// than the input. Levels too small to hold a patch are skipped.
	Levels int `toml:"levels"`
	// MaxKeypoints caps the number of keypoints kept by Detect, strongest first.
	MaxKeypoints int `toml:"max_keypoints"`
	// SmoothRadius is the Gaussian radius applied before descriptor sampling.
	SmoothRadius float64 `toml:"smooth_radius"`
	FAST         FASTConfig `toml:"fast"`
}

// DefaultConfig returns the extractor parameters used by the native provider.
func DefaultConfig() Config {
	return Config{
		Levels:       3,
		MaxKeypoints: 1000,
		SmoothRadius: 2,
		FAST: FASTConfig{
			Threshold: 20,
			Border:    patchExtent + 4,
		},
	}
}

// Validate ensures all parts of the Config are valid.
func (c Config) Validate() error {
	if c.Levels < 1 {
		return errors.New("levels should be >= 1")
	}
	if c.MaxKeypoints < 1 {
		return errors.New("max_keypoints should be >= 1")
	}
	if c.SmoothRadius < 0 {
		return errors.New("smooth_radius should be >= 0")
	}
	if c.FAST.Threshold < 1 || c.FAST.Threshold > 255 {
		return fmt.Errorf("fast.threshold %d out of range [1, 255]", c.FAST.Threshold)
	}
	if c.FAST.Border < patchExtent {
		return fmt.Errorf("fast.border should be >= %d", patchExtent)
	}
	return nil
}

// Extractor detects oriented keypoints and computes their descriptors.
// It is stateless apart from its sampling pattern and safe for concurrent use.
type Extractor struct {
	cfg   Config
	pairs *SamplePairs
}

// NewExtractor validates cfg and prepares the sampling pattern.
func NewExtractor(cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{cfg: cfg, pairs: NewSamplePairs(DescriptorBits)}, nil
}

// Config returns the extractor parameters.
func (e *Extractor) Config() Config { return e.cfg }

// Pyramid returns img followed by successive exact halvings, stopping at
// levels or when a level can no longer hold a bordered patch.
func (e *Extractor) Pyramid(img *image.Gray) []*image.Gray {
	levels := []*image.Gray{img}
	minSide := 2*e.cfg.FAST.Border + 1
	for len(levels) < e.cfg.Levels {
		next := imaging.HalfSize(levels[len(levels)-1])
		if b := next.Bounds(); b.Dx() < minSide || b.Dy() < minSide {
			break
		}
		levels = append(levels, next)
	}
	return levels
}

// Detect finds oriented FAST keypoints on every pyramid level, keeps the
// strongest MaxKeypoints and returns them with level-0 coordinates.
func (e *Extractor) Detect(img *image.Gray) []Keypoint {
	var all []Keypoint
	for octave, level := range e.Pyramid(img) {
		for _, kp := range DetectFAST(level, e.cfg.FAST) {
			kp.Angle = Orientation(level, int(kp.X), int(kp.Y))
			kp.Octave = octave
			kp.X, kp.Y = toBase(kp.X, octave), toBase(kp.Y, octave)
			all = append(all, kp)
		}
	}
	SortByResponse(all)
	if len(all) > e.cfg.MaxKeypoints {
		all = all[:e.cfg.MaxKeypoints]
	}
	return all
}

// Compute returns descriptors for kps. Keypoints whose patch does not fit in
// their pyramid level are dropped; the returned keypoints and descriptors
// correspond one to one.
func (e *Extractor) Compute(img *image.Gray, kps []Keypoint) ([]Keypoint, Descriptors) {
	if len(kps) == 0 {
		return nil, nil
	}
	pyramid := e.Pyramid(img)
	smoothed := make([]*image.Gray, len(pyramid))

	kept := make([]Keypoint, 0, len(kps))
	descs := make(Descriptors, 0, len(kps))
	for _, kp := range kps {
		if kp.Octave < 0 || kp.Octave >= len(pyramid) {
			continue
		}
		level := pyramid[kp.Octave]
		x, y := toLevel(kp.X, kp.Octave), toLevel(kp.Y, kp.Octave)
		if !patchInside(level.Bounds(), x, y) {
			continue
		}
		if smoothed[kp.Octave] == nil {
			smoothed[kp.Octave] = Smooth(level, e.cfg.SmoothRadius)
		}
		kept = append(kept, kp)
		descs = append(descs, BRIEF(smoothed[kp.Octave], x, y, kp.Angle, e.pairs))
	}
	return kept, descs
}

// DetectAndCompute runs Detect followed by Compute.
func (e *Extractor) DetectAndCompute(img *image.Gray) ([]Keypoint, Descriptors) {
	return e.Compute(img, e.Detect(img))
}

// toBase maps a pixel centre on an octave to level-0 coordinates.
func toBase(v float64, octave int) float64 {
	s := float64(int(1) << octave)
	return (v+0.5)*s - 0.5
}

// toLevel is the inverse of toBase, rounded to the nearest pixel.
func toLevel(v float64, octave int) int {
	s := float64(int(1) << octave)
	return int(math.Round((v+0.5)/s - 0.5))
}

// KnnMatch finds, for every training descriptor, its k nearest query
// descriptors by Hamming distance, nearest first. Equal distances are broken
// by the lower query index. Rows may hold fewer than k matches when the
// query has fewer descriptors.
func KnnMatch(train, query Descriptors, k int) [][]Match {
	out := make([][]Match, len(train))
	if k <= 0 {
		return out
	}
	for t, td := range train {
		row := make([]Match, 0, k+1)
		for q, qd := range query {
			d := float64(Hamming(td, qd))
			if len(row) == k && d >= row[k-1].Distance {
				continue
			}
			// Insert after every entry with an equal or smaller distance.
			pos := sort.Search(len(row), func(i int) bool { return row[i].Distance > d })
			row = append(row, Match{})
			copy(row[pos+1:], row[pos:])
			row[pos] = Match{Train: t, Query: q, Distance: d}
			if len(row) > k {
				row = row[:k]
			}
		}
		out[t] = row
	}
	return out
}
