package enhance

import (
	"image"
	"image/color"
	"math"
)

// Fixed non-local-means strength parameters, matching the values the plate
// pipeline was tuned with.
const (
	denoiseStrength   = 10.0
	denoiseTemplate   = 7
	denoiseSearchSize = 21
)

// denoise applies a non-local-means style filter: each pixel is replaced by
// a weighted average of pixels in the search window, weighted by the
// similarity of their surrounding template patches.
func denoise(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))

	tHalf := denoiseTemplate / 2
	sHalf := denoiseSearchSize / 2
	h2 := denoiseStrength * denoiseStrength
	patchArea := float64(denoiseTemplate * denoiseTemplate)

	at := func(x, y int) float64 {
		return float64(src.GrayAt(b.Min.X+clampInt(x, 0, w-1), b.Min.Y+clampInt(y, 0, h-1)).Y)
	}

	for y := range h {
		for x := range w {
			var weightSum, valueSum float64
			for sy := y - sHalf; sy <= y+sHalf; sy++ {
				for sx := x - sHalf; sx <= x+sHalf; sx++ {
					var dist float64
					for ty := -tHalf; ty <= tHalf; ty++ {
						for tx := -tHalf; tx <= tHalf; tx++ {
							d := at(x+tx, y+ty) - at(sx+tx, sy+ty)
							dist += d * d
						}
					}
					weight := math.Exp(-dist / (patchArea * h2))
					weightSum += weight
					valueSum += weight * at(sx, sy)
				}
			}
			out.SetGray(x, y, color.Gray{Y: uint8(valueSum/weightSum + 0.5)})
		}
	}
	return out
}
