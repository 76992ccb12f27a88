package rectify

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// RotateCenter rotates the image about its center by the given angle in
// degrees (counter-clockwise), keeping the output dimensions unchanged.
// Pixels sampled outside the source are replicated from the nearest edge so
// the rotation does not introduce dark borders that would bias a later
// binarization step.
func RotateCenter(img image.Image, degrees float64) image.Image {
	if degrees == 0 {
		return img
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	cx := float64(w) / 2
	cy := float64(h) / 2

	// Inverse rotation: for each output pixel find its source location.
	rad := degrees * math.Pi / 180
	sin, cos := math.Sincos(rad)

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			dx := float64(x) - cx
			dy := float64(y) - cy
			sx := cos*dx - sin*dy + cx
			sy := sin*dx + cos*dy + cy
			out.Set(x, y, bilinearSample(img, sx+float64(b.Min.X), sy+float64(b.Min.Y), true))
		}
	}
	return out
}

// PadBorder adds a constant white border of pad pixels on all four sides.
// Characters touching the rectified image's edge often fail recognition;
// the border keeps them clear of the boundary.
func PadBorder(img image.Image, pad int) image.Image {
	if pad <= 0 {
		return img
	}
	b := img.Bounds()
	canvas := imaging.New(b.Dx()+2*pad, b.Dy()+2*pad, color.White)
	return imaging.Paste(canvas, img, image.Pt(pad, pad))
}
