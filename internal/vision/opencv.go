//go:build gocv

package vision

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ironsheep/arbook-tracker/internal/features"
	"github.com/ironsheep/arbook-tracker/internal/geometry"
)

// OpenCV implements Provider with BRISK features and a brute-force Hamming
// matcher from OpenCV. Homographies come from cv::findHomography; the gocv
// release in use does not bind solvePnP, so pose is solved in Go.
//
// Call Close to release the native objects.
type OpenCV struct {
	mu      sync.Mutex
	brisk   gocv.BRISK
	matcher gocv.BFMatcher
}

var _ Provider = (*OpenCV)(nil)

// NewOpenCV creates the OpenCV-backed provider.
func NewOpenCV() (Provider, error) {
	return &OpenCV{
		brisk:   gocv.NewBRISK(),
		matcher: gocv.NewBFMatcherWithParams(gocv.NormHamming, false),
	}, nil
}

// OpenCVAvailable reports whether the OpenCV provider can be constructed.
func OpenCVAvailable() bool { return true }

// Close releases the detector and matcher.
func (o *OpenCV) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.brisk.Close(); err != nil {
		return err
	}
	return o.matcher.Close()
}

// Name returns NameOpenCV.
func (o *OpenCV) Name() string { return NameOpenCV }

func grayMat(img *image.Gray) (gocv.Mat, error) {
	b := img.Bounds()
	pix := img.Pix
	if img.Stride != b.Dx() {
		pix = make([]byte, 0, b.Dx()*b.Dy())
		for y := 0; y < b.Dy(); y++ {
			pix = append(pix, img.Pix[y*img.Stride:y*img.Stride+b.Dx()]...)
		}
	}
	return gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC1, pix)
}

func fromCV(kp gocv.KeyPoint) features.Keypoint {
	return features.Keypoint{
		X:        kp.X,
		Y:        kp.Y,
		Response: kp.Response,
		Angle:    kp.Angle * math.Pi / 180,
		Octave:   kp.Octave,
	}
}

// Detect runs the BRISK detector.
func (o *OpenCV) Detect(img *image.Gray) []features.Keypoint {
	m, err := grayMat(img)
	if err != nil {
		return nil
	}
	defer m.Close()

	o.mu.Lock()
	cvKps := o.brisk.Detect(m)
	o.mu.Unlock()

	kps := make([]features.Keypoint, len(cvKps))
	for i, kp := range cvKps {
		kps[i] = fromCV(kp)
	}
	return kps
}

// Compute describes the requested keypoints. BRISK is re-run with
// description enabled and only the keypoints that were requested are kept,
// compared at 1/64 pixel.
func (o *OpenCV) Compute(img *image.Gray, kps []features.Keypoint) ([]features.Keypoint, features.Descriptors) {
	if len(kps) == 0 {
		return nil, nil
	}
	m, err := grayMat(img)
	if err != nil {
		return nil, nil
	}
	defer m.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	o.mu.Lock()
	cvKps, desc := o.brisk.DetectAndCompute(m, mask)
	o.mu.Unlock()
	defer desc.Close()

	wanted := make(map[keypointKey]bool, len(kps))
	for _, kp := range kps {
		wanted[keyOf(kp)] = true
	}

	raw := desc.ToBytes()
	width := desc.Cols()
	var kept []features.Keypoint
	var descs features.Descriptors
	for i, cvKp := range cvKps {
		kp := fromCV(cvKp)
		if !wanted[keyOf(kp)] || (i+1)*width > len(raw) {
			continue
		}
		kept = append(kept, kp)
		descs = append(descs, packBytes(raw[i*width:(i+1)*width]))
	}
	return kept, descs
}

type keypointKey struct {
	x, y   int64
	octave int
}

func keyOf(kp features.Keypoint) keypointKey {
	return keypointKey{int64(math.Round(kp.X * 64)), int64(math.Round(kp.Y * 64)), kp.Octave}
}

func packBytes(b []byte) features.Descriptor {
	d := make(features.Descriptor, (len(b)+7)/8)
	var word [8]byte
	for i := range d {
		word = [8]byte{}
		copy(word[:], b[i*8:])
		d[i] = binary.LittleEndian.Uint64(word[:])
	}
	return d
}

func descriptorMat(d features.Descriptors) (gocv.Mat, error) {
	if len(d) == 0 {
		return gocv.NewMat(), nil
	}
	width := len(d[0]) * 8
	data := make([]byte, 0, len(d)*width)
	var word [8]byte
	for _, row := range d {
		if len(row)*8 != width {
			return gocv.Mat{}, fmt.Errorf("descriptor width %d, want %d", len(row)*8, width)
		}
		for _, w := range row {
			binary.LittleEndian.PutUint64(word[:], w)
			data = append(data, word[:]...)
		}
	}
	return gocv.NewMatFromBytes(len(d), width, gocv.MatTypeCV8UC1, data)
}

// KnnMatch matches with OpenCV's brute-force Hamming matcher, using the
// training descriptors as the query set of the matcher.
func (o *OpenCV) KnnMatch(train, query features.Descriptors, k int) [][]features.Match {
	out := make([][]features.Match, len(train))
	if len(train) == 0 || len(query) == 0 || k <= 0 {
		return out
	}
	tm, err := descriptorMat(train)
	if err != nil {
		return out
	}
	defer tm.Close()
	qm, err := descriptorMat(query)
	if err != nil {
		return out
	}
	defer qm.Close()

	o.mu.Lock()
	rows := o.matcher.KnnMatch(tm, qm, k)
	o.mu.Unlock()

	for _, row := range rows {
		for _, m := range row {
			if m.QueryIdx < 0 || m.QueryIdx >= len(out) {
				continue
			}
			out[m.QueryIdx] = append(out[m.QueryIdx], features.Match{
				Train:    m.QueryIdx,
				Query:    m.TrainIdx,
				Distance: m.Distance,
			})
		}
	}
	return out
}

// pointMat packs pts as an N x 2 single channel matrix.
func pointMat(pts []geometry.Point) gocv.Mat {
	m := gocv.NewMatWithSize(len(pts), 2, gocv.MatTypeCV64F)
	for i, p := range pts {
		m.SetDoubleAt(i, 0, p.X)
		m.SetDoubleAt(i, 1, p.Y)
	}
	return m
}

// EstimateHomography calls cv::findHomography with RANSAC.
func (o *OpenCV) EstimateHomography(src, dst []geometry.Point, threshold float64) (geometry.Homography, []bool, bool) {
	if len(src) != len(dst) || len(src) < 4 {
		return geometry.Homography{}, nil, false
	}
	sm := pointMat(src)
	defer sm.Close()
	dm := pointMat(dst)
	defer dm.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	h := gocv.FindHomography(sm, &dm, gocv.HomograpyMethodRANSAC, threshold, &mask, 2000, 0.995)
	defer h.Close()
	if h.Empty() || mask.Rows() != len(src) {
		return geometry.Homography{}, nil, false
	}

	var out geometry.Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r*3+c] = h.GetDoubleAt(r, c)
		}
	}
	inliers := make([]bool, len(src))
	for i := range inliers {
		inliers[i] = mask.GetUCharAt(i, 0) > 0
	}
	return out, inliers, true
}

// SolvePose recovers the rotation vector of a planar object.
func (o *OpenCV) SolvePose(imagePts []geometry.Point, objectPts []geometry.Point3, camera geometry.CameraMatrix) (geometry.Vec3, error) {
	rvec, _, err := geometry.SolvePlanarPose(imagePts, objectPts, camera)
	return rvec, err
}
