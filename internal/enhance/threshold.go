package enhance

import (
	"image"
	"image/color"
	"math"
)

// Fixed adaptive thresholding parameters. Block 11 with constant 2 handles
// uneven plate lighting (shadows, headlight glare) well.
const (
	adaptiveBlockSize = 11
	adaptiveConstant  = 2.0
)

// adaptiveGaussianThreshold binarizes using a per-pixel threshold computed
// as the Gaussian-weighted mean of the block x block neighborhood minus c.
// Neighborhood samples outside the image clamp to the nearest edge pixel.
func adaptiveGaussianThreshold(src *image.Gray, block int, c float64) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	half := block / 2
	kernel := gaussianKernel1D(block)

	// Separable filter: horizontal pass then vertical pass.
	tmp := make([]float64, w*h)
	for y := range h {
		for x := range w {
			var sum float64
			for k := -half; k <= half; k++ {
				sx := clampInt(x+k, 0, w-1)
				sum += kernel[k+half] * float64(src.GrayAt(b.Min.X+sx, b.Min.Y+y).Y)
			}
			tmp[y*w+x] = sum
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			var mean float64
			for k := -half; k <= half; k++ {
				sy := clampInt(y+k, 0, h-1)
				mean += kernel[k+half] * tmp[sy*w+x]
			}
			v := float64(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			if v > mean-c {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return out
}

// gaussianKernel1D builds a normalized 1-D Gaussian kernel of the given
// size, with sigma derived from the size the way OpenCV does.
func gaussianKernel1D(size int) []float64 {
	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	half := size / 2
	kernel := make([]float64, size)
	var sum float64
	for i := -half; i <= half; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		kernel[i+half] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
