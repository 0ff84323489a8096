package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
)

// ErrBufferSize is returned when a pixel buffer does not match its declared dimensions.
var ErrBufferSize = errors.New("pixel buffer size does not match dimensions")

// PixelFormat identifies the channel layout of a Frame buffer.
type PixelFormat int

const (
	// FormatRGBA is 4 bytes per pixel in R, G, B, A order.
	FormatRGBA PixelFormat = iota
	// FormatBGRA is 4 bytes per pixel in B, G, R, A order (Android/Windows camera buffers).
	FormatBGRA
)

// BytesPerPixel is the pixel size of every supported format.
const BytesPerPixel = 4

// Frame is a bounds-checked view over a raw camera or page buffer.
//
// A Frame never copies the pixels it is built from. It is validated once, at
// construction, so that the recognition pipeline can index it without
// re-checking sizes. Rows are Stride bytes apart; the first Width*4 bytes of
// each row hold pixels, the rest is padding.
type Frame struct {
	Width  int
	Height int
	Stride int
	Format PixelFormat
	Pix    []byte
}

// NewFrame wraps a tightly packed RGBA buffer. The buffer length must equal
// width*height*4.
func NewFrame(pix []byte, width, height int) (Frame, error) {
	return NewFrameWithStride(pix, width, height, width*BytesPerPixel, FormatRGBA)
}

// NewFrameWithStride wraps a buffer whose rows may carry trailing padding.
func NewFrameWithStride(pix []byte, width, height, stride int, format PixelFormat) (Frame, error) {
	if width <= 0 || height <= 0 {
		return Frame{}, fmt.Errorf("invalid frame dimensions %dx%d: %w", width, height, ErrBufferSize)
	}
	if stride < width*BytesPerPixel {
		return Frame{}, fmt.Errorf("stride %d shorter than row of %d pixels: %w", stride, width, ErrBufferSize)
	}
	if format != FormatRGBA && format != FormatBGRA {
		return Frame{}, fmt.Errorf("unsupported pixel format %d", format)
	}
	// A padded buffer may omit the padding of its last row.
	want := stride * height
	if len(pix) != want && len(pix) != want-stride+width*BytesPerPixel {
		return Frame{}, fmt.Errorf("got %d bytes for %dx%d (stride %d), want %d: %w",
			len(pix), width, height, stride, want, ErrBufferSize)
	}
	return Frame{Width: width, Height: height, Stride: stride, Format: format, Pix: pix}, nil
}

// FrameFromImage converts any decoded image into an RGBA Frame. Tightly packed
// *image.RGBA values anchored at the origin are shared, everything else is copied.
func FrameFromImage(img image.Image) Frame {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) || rgba.Stride != b.Dx()*BytesPerPixel {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return Frame{
		Width:  b.Dx(),
		Height: b.Dy(),
		Stride: rgba.Stride,
		Format: FormatRGBA,
		Pix:    rgba.Pix,
	}
}

// Bounds returns the frame rectangle anchored at the origin.
func (f Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// Empty reports whether the frame holds no pixels.
func (f Frame) Empty() bool {
	return f.Width == 0 || f.Height == 0
}

// Image returns an RGBA image that shares the frame's pixels when the layout
// allows it. BGRA frames are converted into a new buffer.
func (f Frame) Image() *image.RGBA {
	if f.Format == FormatRGBA {
		return &image.RGBA{Pix: f.Pix, Stride: f.Stride, Rect: f.Bounds()}
	}
	out := image.NewRGBA(f.Bounds())
	for y := 0; y < f.Height; y++ {
		src := f.Pix[y*f.Stride : y*f.Stride+f.Width*BytesPerPixel]
		dst := out.Pix[y*out.Stride : y*out.Stride+f.Width*BytesPerPixel]
		for i := 0; i < len(src); i += BytesPerPixel {
			dst[i], dst[i+1], dst[i+2], dst[i+3] = src[i+2], src[i+1], src[i], src[i+3]
		}
	}
	return out
}
