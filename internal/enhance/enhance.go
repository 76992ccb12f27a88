// Package enhance produces the binarized diagnostic view of a rectified
// plate: grayscale conversion, conditional upscaling, denoising,
// thresholding and optional morphology, in that fixed order.
package enhance

import (
	"errors"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// minHeightPx is the height below which the grayscale image is upscaled
// before binarization; small plates binarize poorly at native resolution.
const minHeightPx = 50

// Enhance runs the enhancement pipeline and returns a single-channel
// binary image.
func Enhance(img image.Image, cfg Config) (*image.Gray, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	gray := toGray(img)

	if gray.Bounds().Dy() < minHeightPx {
		b := gray.Bounds()
		up := imaging.Resize(gray, b.Dx()*2, b.Dy()*2, imaging.CatmullRom)
		gray = toGray(up)
	}

	denoised := denoise(gray)

	var binary *image.Gray
	if cfg.Threshold >= 0 {
		binary = globalThreshold(denoised, uint8(cfg.Threshold))
	} else {
		binary = adaptiveGaussianThreshold(denoised, adaptiveBlockSize, adaptiveConstant)
	}

	if cfg.KernelSize > 0 {
		switch cfg.MorphOp {
		case MorphDilation:
			binary = dilate(binary, cfg.KernelSize)
		case MorphErosion:
			binary = erode(binary, cfg.KernelSize)
		}
	}
	return binary, nil
}

// toGray converts any image to 8-bit grayscale.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := range b.Dy() {
		for x := range b.Dx() {
			out.Set(x, y, color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)))
		}
	}
	return out
}

// globalThreshold binarizes with a fixed cutoff: values above thresh map to
// 255, the rest to 0.
func globalThreshold(src *image.Gray, thresh uint8) *image.Gray {
	b := src.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := src.GrayAt(x, y).Y
			if v > thresh {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return out
}
