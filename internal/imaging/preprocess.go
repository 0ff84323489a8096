package imaging

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ToGray converts a frame to a single-channel image using ITU-R BT.601 luma
// weights (0.299*R + 0.587*G + 0.114*B). Alpha is ignored; camera buffers are
// opaque.
func ToGray(f Frame) *image.Gray {
	gray := image.NewGray(f.Bounds())
	ri, bi := 0, 2
	if f.Format == FormatBGRA {
		ri, bi = 2, 0
	}
	for y := 0; y < f.Height; y++ {
		row := f.Pix[y*f.Stride : y*f.Stride+f.Width*BytesPerPixel]
		out := gray.Pix[y*gray.Stride : y*gray.Stride+f.Width]
		for x := range out {
			p := row[x*BytesPerPixel : x*BytesPerPixel+BytesPerPixel]
			// Fixed point with 14 fractional bits, rounded.
			v := (4899*uint32(p[ri]) + 9617*uint32(p[1]) + 1868*uint32(p[bi]) + 8192) >> 14
			out[x] = uint8(v)
		}
	}
	return gray
}

// ShortSideSize returns the dimensions of a w x h image uniformly scaled so
// that its shorter side equals target. The longer side is truncated toward
// zero, so the short side always lands exactly on target.
func ShortSideSize(w, h, target int) (int, int) {
	if w <= 0 || h <= 0 || target <= 0 {
		return 0, 0
	}
	if w < h {
		return target, max(1, h*target/w)
	}
	return max(1, w*target/h), target
}

// ResizeShortSide scales a grayscale image so that its shorter side equals
// target, preserving the aspect ratio. When the size already matches, the
// image is returned unchanged.
//
// Shrinking uses a box filter (area averaging) and enlarging a linear filter.
func ResizeShortSide(img *image.Gray, target int) *image.Gray {
	b := img.Bounds()
	w, h := ShortSideSize(b.Dx(), b.Dy(), target)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	filter := imaging.Box
	if w > b.Dx() {
		filter = imaging.Linear
	}
	return grayFromNRGBA(imaging.Resize(img, w, h, filter))
}

// Blur applies a Gaussian blur with the given sigma.
func Blur(img *image.Gray, sigma float64) *image.Gray {
	if sigma <= 0 {
		return img
	}
	return grayFromNRGBA(imaging.Blur(img, sigma))
}

// HalfSize downsamples by exactly two in each direction using 2x2 area
// averaging. Odd trailing rows and columns are dropped.
func HalfSize(img *image.Gray) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx()/2, b.Dy()/2
	if w == 0 || h == 0 {
		return image.NewGray(image.Rect(0, 0, w, h))
	}
	src := img
	if b.Dx()%2 != 0 || b.Dy()%2 != 0 || b.Min != (image.Point{}) {
		src = grayFromNRGBA(imaging.Crop(img, image.Rect(b.Min.X, b.Min.Y, b.Min.X+2*w, b.Min.Y+2*h)))
	}
	return grayFromNRGBA(imaging.Resize(src, w, h, imaging.Box))
}

// GrayFromImage converts any image to *image.Gray using the same weights as ToGray.
func GrayFromImage(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	return ToGray(FrameFromImage(img))
}

// grayFromNRGBA keeps the red channel of an image produced by the imaging
// package from a gray source, where R == G == B.
func grayFromNRGBA(img *image.NRGBA) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[y*img.Stride:]
		dst := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()]
		for x := range dst {
			dst[x] = src[x*4]
		}
	}
	return gray
}

// GrayToRGBA expands a grayscale image into an opaque RGBA image, for drawing.
func GrayToRGBA(img *image.Gray) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			v := img.GrayAt(b.Min.X+x, b.Min.Y+y).Y
			out.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return out
}
