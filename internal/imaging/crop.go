package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// ErrEmptyCrop is returned when a crop region does not overlap the image.
var ErrEmptyCrop = errors.New("crop region is outside the image")

// CropResult contains the cropped image data
type CropResult struct {
	// Region is the cropped rectangle in source image pixels.
	Region      image.Rectangle `json:"region"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	ImageBase64 string          `json:"image_base64"`
	MimeType    string          `json:"mime_type"`
}

// Crop extracts r from img, clipped to the image bounds, and scales the
// result by scale (values <= 0 mean 1).
func Crop(img image.Image, r image.Rectangle, scale float64) (*CropResult, error) {
	region := r.Canon().Intersect(img.Bounds())
	if region.Empty() {
		return nil, fmt.Errorf("%w: %v not in %v", ErrEmptyCrop, r, img.Bounds())
	}

	var cropped image.Image = imaging.Crop(img, region)
	if scale > 0 && scale != 1.0 {
		w := max(1, int(float64(region.Dx())*scale))
		h := max(1, int(float64(region.Dy())*scale))
		cropped = imaging.Resize(cropped, w, h, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	return &CropResult{
		Region:      region,
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// QuadBounds returns the smallest rectangle holding every corner, grown by
// margin pixels on each side.
func QuadBounds(corners [4]image.Point, margin int) image.Rectangle {
	r := image.Rectangle{Min: corners[0], Max: corners[0]}
	for _, c := range corners[1:] {
		r.Min.X = min(r.Min.X, c.X)
		r.Min.Y = min(r.Min.Y, c.Y)
		r.Max.X = max(r.Max.X, c.X)
		r.Max.Y = max(r.Max.Y, c.Y)
	}
	return r.Inset(-margin)
}
