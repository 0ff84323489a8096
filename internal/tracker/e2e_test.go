package tracker

import (
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/ironsheep/arbook-tracker/internal/features"
	"github.com/ironsheep/arbook-tracker/internal/imaging"
	"github.com/ironsheep/arbook-tracker/internal/vision"
)

// texturedPage returns a size x size page of random 8 pixel cells.
func texturedPage(size int, seed int64) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	cols := (size + 7) / 8
	levels := make([]uint8, cols*cols)
	for i := range levels {
		levels[i] = uint8(rng.Intn(256))
	}
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Pix[y*img.Stride+x] = levels[(y/8)*cols+x/8]
		}
	}
	return img
}

// placeDoubled draws src scaled x2 (nearest neighbour) into a size x size
// mid-gray canvas with its top left corner at (off, off).
func placeDoubled(src *image.Gray, size, off int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, size, size))
	for i := range dst.Pix {
		dst.Pix[i] = 128
	}
	b := src.Bounds()
	for y := 0; y < 2*b.Dy(); y++ {
		for x := 0; x < 2*b.Dx(); x++ {
			dst.Pix[(off+y)*dst.Stride+off+x] = src.Pix[(y/2)*src.Stride+x/2]
		}
	}
	return dst
}

func flip(img *image.Gray) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(b)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Pix[(b.Dy()-1-y)*out.Stride+b.Dx()-1-x] = img.Pix[y*img.Stride+x]
		}
	}
	return out
}

func grayFrame(img *image.Gray) imaging.Frame {
	return imaging.FrameFromImage(imaging.GrayToRGBA(img))
}

func newNativeTracker(t *testing.T) *Tracker {
	t.Helper()
	p, err := vision.NewNative(vision.DefaultNativeOptions())
	if err != nil {
		t.Fatal(err)
	}
	tr, err := New(p, DefaultParams(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Register(grayFrame(texturedPage(240, 42)), 7); err != nil {
		t.Fatal(err)
	}
	tr.Finalize()
	if tr.Images()[0].Keypoints < 4 {
		t.Fatalf("training page has %d keypoints", tr.Images()[0].Keypoints)
	}
	return tr
}

func TestEndToEnd_RecognizesPage(t *testing.T) {
	tests := []struct {
		name   string
		rotate bool
		want   [9]float64
	}{
		{"upright", false, [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}},
		{"rotated 180", true, [9]float64{-1, 0, 0, 0, -1, 0, 0, 0, 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := newNativeTracker(t)
			frame := placeDoubled(tr.Image(0).Gray, 720, 120)
			if tc.rotate {
				frame = flip(frame)
			}

			res := tr.ProcessFrame(grayFrame(frame))
			if !res.Found || res.Page != 7 {
				t.Fatalf("got %+v, want page 7", res)
			}
			if math.Abs(float64(res.Center.X-360)) > 4 || math.Abs(float64(res.Center.Y-360)) > 4 {
				t.Errorf("center = %v, want near (360,360)", res.Center)
			}
			for i := range tc.want {
				if math.Abs(res.Rotation[i]-tc.want[i]) > 0.05 {
					t.Fatalf("rotation = %v, want %v", res.Rotation, tc.want)
				}
			}
		})
	}
}

// countingProvider counts the knn searches of the provider it wraps.
type countingProvider struct {
	vision.Provider
	knnCalls int
}

func (c *countingProvider) KnnMatch(train, query features.Descriptors, k int) [][]features.Match {
	c.knnCalls++
	return c.Provider.KnnMatch(train, query, k)
}

func TestEndToEnd_NoiseFramesNotRecognized(t *testing.T) {
	native, err := vision.NewNative(vision.DefaultNativeOptions())
	if err != nil {
		t.Fatal(err)
	}
	p := &countingProvider{Provider: native}
	tr, err := New(p, DefaultParams(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Register(grayFrame(texturedPage(240, 42)), 7); err != nil {
		t.Fatal(err)
	}
	tr.Finalize()

	rng := rand.New(rand.NewSource(99))
	const frames = 100
	for i := 0; i < frames; i++ {
		noise := image.NewGray(image.Rect(0, 0, 640, 480))
		for j := range noise.Pix {
			noise.Pix[j] = uint8(rng.Intn(256))
		}
		before := p.knnCalls
		if res := tr.ProcessFrame(grayFrame(noise)); res.Found {
			t.Errorf("noise frame %d recognized as page %d at %v", i, res.Page, res.Corners)
		}
		if p.knnCalls == before {
			t.Fatalf("noise frame %d never reached matching", i)
		}
	}
}

func TestEndToEnd_FeaturelessFrames(t *testing.T) {
	tr := newNativeTracker(t)

	flat := image.NewGray(image.Rect(0, 0, 640, 480))
	gradient := image.NewGray(image.Rect(0, 0, 640, 480))
	for y := 0; y < 480; y++ {
		for x := 0; x < 640; x++ {
			gradient.Pix[y*gradient.Stride+x] = uint8(x * 255 / 639)
		}
	}
	for name, f := range map[string]*image.Gray{"flat": flat, "gradient": gradient} {
		if res := tr.ProcessFrame(grayFrame(f)); res.Found {
			t.Errorf("%s frame recognized as page %d", name, res.Page)
		}
	}
}
