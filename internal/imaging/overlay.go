package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
)

// Annotation describes one recognized page to draw over a frame.
type Annotation struct {
	Page      int
	Corners   [4]image.Point
	Center    image.Point
	Keypoints []image.Point
}

// OverlayOptions controls overlay rendering.
type OverlayOptions struct {
	// Color is "#RRGGBB" or "#RRGGBBAA". Empty picks a colour from the page number.
	Color string
	// MaxSize bounds the longer side of the output image; 0 keeps the frame size.
	MaxSize int
	// LineWidth of the page outline in pixels; 0 means 3.
	LineWidth float64
}

// OverlayResult contains the annotated image.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Annotated   int    `json:"annotated"`
}

// PageColor returns a stable, well separated colour for a page number.
func PageColor(page int) color.Color {
	// Golden-angle hue steps keep neighbouring pages apart.
	hue := float64(((page*137)%360 + 360) % 360)
	return colorful.Hcl(hue, 0.75, 0.65).Clamped()
}

// DrawOverlay draws the outline, centroid and label of every annotation over
// img and returns the result PNG-encoded as base64.
func DrawOverlay(img image.Image, annotations []Annotation, opts OverlayOptions) (*OverlayResult, error) {
	var fixed color.Color
	if opts.Color != "" {
		c, err := parseHexColor(opts.Color)
		if err != nil {
			return nil, fmt.Errorf("invalid overlay color %q: %w", opts.Color, err)
		}
		fixed = c
	}
	lineWidth := opts.LineWidth
	if lineWidth <= 0 {
		lineWidth = 3
	}

	dc := gg.NewContextForImage(img)
	for _, a := range annotations {
		c := fixed
		if c == nil {
			c = PageColor(a.Page)
		}
		dc.SetColor(c)

		for _, kp := range a.Keypoints {
			dc.DrawCircle(float64(kp.X), float64(kp.Y), 2)
			dc.Fill()
		}

		if a.Corners == ([4]image.Point{}) {
			continue
		}
		dc.SetLineWidth(lineWidth)
		dc.MoveTo(float64(a.Corners[0].X), float64(a.Corners[0].Y))
		for _, p := range a.Corners[1:] {
			dc.LineTo(float64(p.X), float64(p.Y))
		}
		dc.ClosePath()
		dc.Stroke()

		dc.DrawCircle(float64(a.Center.X), float64(a.Center.Y), lineWidth+2)
		dc.Fill()

		label := "page " + strconv.Itoa(a.Page)
		w, h := dc.MeasureString(label)
		x, y := float64(a.Center.X)+lineWidth+6, float64(a.Center.Y)
		dc.SetRGBA(0, 0, 0, 0.7)
		dc.DrawRectangle(x-2, y-h-2, w+4, h+6)
		dc.Fill()
		dc.SetRGB(1, 1, 1)
		dc.DrawString(label, x, y)
	}

	out := dc.Image()
	if opts.MaxSize > 0 {
		b := out.Bounds()
		if b.Dx() > opts.MaxSize || b.Dy() > opts.MaxSize {
			out = imaging.Fit(out, opts.MaxSize, opts.MaxSize, imaging.Lanczos)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	b := out.Bounds()
	return &OverlayResult{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		Annotated:   len(annotations),
	}, nil
}

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080".
func parseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	switch len(hex) {
	case 6:
		c, err := colorful.Hex("#" + hex)
		if err != nil {
			return color.RGBA{}, err
		}
		r, g, b := c.RGB255()
		return color.RGBA{R: r, G: g, B: b, A: 255}, nil
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		// Premultiply so the value is a valid color.RGBA.
		a := uint32(val & 0xff)
		pm := func(v uint32) uint8 { return uint8(v * a / 255) }
		return color.RGBA{R: pm(uint32(val >> 24 & 0xff)), G: pm(uint32(val >> 16 & 0xff)), B: pm(uint32(val >> 8 & 0xff)), A: uint8(a)}, nil
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length")
	}
}
