package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestCrop(t *testing.T) {
	img := solidImage(100, 80, color.RGBA{200, 10, 10, 255})

	tests := []struct {
		name       string
		r          image.Rectangle
		scale      float64
		wantRegion image.Rectangle
		wantW      int
		wantH      int
	}{
		{"inside", image.Rect(10, 10, 60, 40), 1, image.Rect(10, 10, 60, 40), 50, 30},
		{"clipped", image.Rect(-20, 50, 30, 200), 1, image.Rect(0, 50, 30, 80), 30, 30},
		{"reversed corners", image.Rect(60, 40, 10, 10), 0, image.Rect(10, 10, 60, 40), 50, 30},
		{"scaled up", image.Rect(0, 0, 50, 50), 2, image.Rect(0, 0, 50, 50), 100, 100},
		{"scaled down", image.Rect(0, 0, 100, 80), 0.5, image.Rect(0, 0, 100, 80), 50, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Crop(img, tt.r, tt.scale)
			if err != nil {
				t.Fatalf("Crop failed: %v", err)
			}
			if res.Region != tt.wantRegion {
				t.Errorf("region: got %v, want %v", res.Region, tt.wantRegion)
			}
			if res.Width != tt.wantW || res.Height != tt.wantH {
				t.Errorf("size: got %dx%d, want %dx%d", res.Width, res.Height, tt.wantW, tt.wantH)
			}
			if res.MimeType != "image/png" {
				t.Errorf("MimeType: got %s", res.MimeType)
			}

			data, err := base64.StdEncoding.DecodeString(res.ImageBase64)
			if err != nil {
				t.Fatalf("bad base64: %v", err)
			}
			decoded, err := png.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("bad PNG: %v", err)
			}
			if b := decoded.Bounds(); b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("decoded size: got %v", b)
			}
		})
	}
}

func TestCrop_Outside(t *testing.T) {
	img := solidImage(20, 20, color.White)
	_, err := Crop(img, image.Rect(30, 30, 40, 40), 1)
	if !errors.Is(err, ErrEmptyCrop) {
		t.Errorf("got %v, want ErrEmptyCrop", err)
	}
}

func TestQuadBounds(t *testing.T) {
	corners := [4]image.Point{{40, 10}, {90, 30}, {70, 80}, {20, 60}}

	if got, want := QuadBounds(corners, 0), image.Rect(20, 10, 90, 80); got != want {
		t.Errorf("no margin: got %v, want %v", got, want)
	}
	if got, want := QuadBounds(corners, 5), image.Rect(15, 5, 95, 85); got != want {
		t.Errorf("margin 5: got %v, want %v", got, want)
	}
}
