package vision

import (
	"errors"
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/ironsheep/arbook-tracker/internal/features"
	"github.com/ironsheep/arbook-tracker/internal/geometry"
)

func TestNew(t *testing.T) {
	for _, name := range []string{"", NameNative} {
		p, err := New(name, DefaultNativeOptions())
		if err != nil {
			t.Fatalf("New(%q) failed: %v", name, err)
		}
		if p.Name() != NameNative {
			t.Errorf("New(%q).Name() = %q", name, p.Name())
		}
	}

	if _, err := New("sift", DefaultNativeOptions()); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("unknown provider: got %v", err)
	}

	bad := DefaultNativeOptions()
	bad.Features.Levels = 0
	if _, err := New(NameNative, bad); err == nil {
		t.Error("invalid native options accepted")
	}
	bad = DefaultNativeOptions()
	bad.MaxDistance = -1
	if _, err := New(NameNative, bad); err == nil {
		t.Error("negative max_distance accepted")
	}
}

func TestNew_OpenCVWithoutTag(t *testing.T) {
	if OpenCVAvailable() {
		t.Skip("built with gocv")
	}
	if _, err := New(NameOpenCV, DefaultNativeOptions()); !errors.Is(err, ErrOpenCVUnavailable) {
		t.Errorf("got %v, want ErrOpenCVUnavailable", err)
	}
}

func TestNative_DetectComputeMatch(t *testing.T) {
	p, err := NewNative(DefaultNativeOptions())
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(11))
	img := image.NewGray(image.Rect(0, 0, 160, 160))
	for cy := 0; cy < 20; cy++ {
		for cx := 0; cx < 20; cx++ {
			v := uint8(rng.Intn(256))
			for y := 0; y < 8; y++ {
				for x := 0; x < 8; x++ {
					img.Pix[(cy*8+y)*img.Stride+cx*8+x] = v
				}
			}
		}
	}

	kps, descs := p.Compute(img, p.Detect(img))
	if len(kps) == 0 || len(kps) != len(descs) {
		t.Fatalf("got %d keypoints and %d descriptors", len(kps), len(descs))
	}

	rows := p.KnnMatch(descs, descs, 2)
	if len(rows) != len(descs) {
		t.Fatalf("got %d rows", len(rows))
	}
	for i, row := range rows {
		if len(row) == 0 || row[0].Distance != 0 || row[0].Train != i {
			t.Fatalf("row %d: descriptor does not match itself first: %+v", i, row)
		}
	}
}

func TestNative_EstimateHomography(t *testing.T) {
	p, err := NewNative(DefaultNativeOptions())
	if err != nil {
		t.Fatal(err)
	}
	h := geometry.Homography{0.9, -0.1, 40, 0.1, 0.9, 25, 0, 0, 1}
	src := []geometry.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}, {X: 50, Y: 20}, {X: 10, Y: 70}}
	dst := geometry.PerspectiveTransform(h, src)

	got, mask, ok := p.EstimateHomography(src, dst, 3)
	if !ok {
		t.Fatal("no homography")
	}
	for i, in := range mask {
		if !in {
			t.Errorf("correspondence %d marked outlier", i)
		}
	}
	for i := range got {
		if math.Abs(got[i]-h[i]) > 1e-6 {
			t.Fatalf("homography: got %v, want %v", got, h)
		}
	}
	if _, _, ok := p.EstimateHomography(src[:3], dst[:3], 3); ok {
		t.Error("three points accepted")
	}
}

func TestNative_SolvePose(t *testing.T) {
	p, err := NewNative(DefaultNativeOptions())
	if err != nil {
		t.Fatal(err)
	}
	obj := []geometry.Point3{{X: 0, Y: 0, Z: 0}, {X: 240, Y: 0, Z: 0}, {X: 240, Y: 240, Z: 0}, {X: 0, Y: 240, Z: 0}}
	img := []geometry.Point{{X: 60, Y: 60}, {X: 300, Y: 60}, {X: 300, Y: 300}, {X: 60, Y: 300}}

	rvec, err := p.SolvePose(img, obj, geometry.DefaultCamera(360, 360))
	if err != nil {
		t.Fatalf("SolvePose failed: %v", err)
	}
	if rvec.Norm() > 1e-6 {
		t.Errorf("fronto-parallel page: rotation vector %v, want zero", rvec)
	}
}

// withBits returns a descriptor whose first n bits are set.
func withBits(n int) features.Descriptor {
	d := make(features.Descriptor, features.DescriptorBits/64)
	for i := 0; i < n; i++ {
		d[i/64] |= 1 << (i % 64)
	}
	return d
}

func TestNative_KnnMatchMaxDistance(t *testing.T) {
	train := features.Descriptors{withBits(0)}
	query := features.Descriptors{withBits(300), withBits(10), withBits(200)}

	tests := []struct {
		maxDistance int
		want        []float64
	}{
		{0, []float64{10, 200}},
		{128, []float64{10}},
		{5, nil},
	}
	for _, tt := range tests {
		opts := DefaultNativeOptions()
		opts.MaxDistance = tt.maxDistance
		p, err := NewNative(opts)
		if err != nil {
			t.Fatal(err)
		}
		rows := p.KnnMatch(train, query, 2)
		if len(rows) != 1 {
			t.Fatalf("max %d: got %d rows, want 1", tt.maxDistance, len(rows))
		}
		var got []float64
		for _, m := range rows[0] {
			got = append(got, m.Distance)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("max %d: distances %v, want %v", tt.maxDistance, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("max %d: distances %v, want %v", tt.maxDistance, got, tt.want)
			}
		}
	}
}

func TestDefaultNativeOptions_MaxDistance(t *testing.T) {
	if got := DefaultNativeOptions().MaxDistance; got != features.DescriptorBits/4 {
		t.Errorf("MaxDistance = %d, want %d", got, features.DescriptorBits/4)
	}
}
