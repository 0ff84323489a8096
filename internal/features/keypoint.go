package features

import (
	"math/bits"
	"sort"
)

// Keypoint is a detected corner in level-0 image coordinates.
type Keypoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	// Response is the detector score. Higher is stronger.
	Response float64 `json:"response"`
	// Angle is the patch orientation in radians, measured from the x axis
	// towards the y axis (clockwise on screen).
	Angle float64 `json:"angle"`
	// Octave is the pyramid level the keypoint was found on.
	Octave int `json:"octave"`
}

// Descriptor is a binary feature vector packed 64 bits per word.
type Descriptor []uint64

// Descriptors holds one descriptor per keypoint, in keypoint order.
type Descriptors []Descriptor

// Len returns the number of descriptors.
func (d Descriptors) Len() int { return len(d) }

// Empty reports whether there are no descriptors.
func (d Descriptors) Empty() bool { return len(d) == 0 }

// Match is a correspondence between a training descriptor and a query
// descriptor.
type Match struct {
	Train    int     `json:"train"`
	Query    int     `json:"query"`
	Distance float64 `json:"distance"`
}

// Hamming returns the number of differing bits. Words missing from the
// shorter descriptor count as fully different.
func Hamming(a, b Descriptor) int {
	n := min(len(a), len(b))
	d := 0
	for i := 0; i < n; i++ {
		d += bits.OnesCount64(a[i] ^ b[i])
	}
	return d + 64*(max(len(a), len(b))-n)
}

// SortByResponse orders keypoints strongest first. Equal responses keep
// their relative order.
func SortByResponse(kps []Keypoint) {
	sort.SliceStable(kps, func(i, j int) bool {
		return kps[i].Response > kps[j].Response
	})
}

// MaxResponse returns the largest response, or 0 for no keypoints.
func MaxResponse(kps []Keypoint) float64 {
	best := 0.0
	for i, kp := range kps {
		if i == 0 || kp.Response > best {
			best = kp.Response
		}
	}
	return best
}
