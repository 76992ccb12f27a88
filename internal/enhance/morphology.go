package enhance

import (
	"image"
	"image/color"
)

// dilate expands bright regions using a square structuring element of side
// kernelSize, applied once.
func dilate(src *image.Gray, kernelSize int) *image.Gray {
	return morph(src, kernelSize, func(a, b uint8) bool { return a > b })
}

// erode shrinks bright regions using a square structuring element of side
// kernelSize, applied once.
func erode(src *image.Gray, kernelSize int) *image.Gray {
	return morph(src, kernelSize, func(a, b uint8) bool { return a < b })
}

// morph computes a windowed extremum over the structuring element; pick
// decides whether a candidate value replaces the current extremum.
func morph(src *image.Gray, kernelSize int, pick func(a, b uint8) bool) *image.Gray {
	if kernelSize <= 1 {
		return src
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	half := kernelSize / 2
	out := image.NewGray(image.Rect(0, 0, w, h))

	for y := range h {
		for x := range w {
			best := src.GrayAt(b.Min.X+x, b.Min.Y+y).Y
			for ky := -half; ky <= half; ky++ {
				for kx := -half; kx <= half; kx++ {
					nx, ny := x+kx, y+ky
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					v := src.GrayAt(b.Min.X+nx, b.Min.Y+ny).Y
					if pick(v, best) {
						best = v
					}
				}
			}
			out.SetGray(x, y, color.Gray{Y: best})
		}
	}
	return out
}
