package rectify

import (
	"errors"
	"image"
	"image/color"
	"math"

	"github.com/MeKo-Tech/platewarp/internal/utils"
)

// ErrDegenerateTarget indicates the quadrilateral produced a target
// rectangle with zero or negative dimensions.
var ErrDegenerateTarget = errors.New("degenerate target dimensions")

// targetSize derives output rectangle dimensions from the ordered quad's
// edge lengths, applying the aspect-ratio and width-scale overrides.
func targetSize(quad [4]utils.Point, cfg Config) (int, int) {
	widthA := utils.Dist(quad[BottomRight], quad[BottomLeft])
	widthB := utils.Dist(quad[TopRight], quad[TopLeft])
	w := math.Round(math.Max(widthA, widthB))

	heightA := utils.Dist(quad[TopRight], quad[BottomRight])
	heightB := utils.Dist(quad[TopLeft], quad[BottomLeft])
	h := math.Round(math.Max(heightA, heightB))

	if cfg.AspectRatio > 0 {
		h = math.Round(w / cfg.AspectRatio)
	}
	if cfg.WidthScale != 1.0 {
		w = math.Round(w * cfg.WidthScale)
		h = math.Round(h * cfg.WidthScale)
	}
	return int(w), int(h)
}

// Rectify orders the supplied corner points and warps the enclosed
// quadrilateral into a frontal rectangle.
func Rectify(img image.Image, pts []utils.Point, cfg Config) (image.Image, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	quad, err := OrderQuadPoints(pts)
	if err != nil {
		return nil, err
	}

	w, h := targetSize(quad, cfg)
	if w < 1 || h < 1 {
		return nil, ErrDegenerateTarget
	}

	out := warpPerspective(img, quad, w, h)
	if out == nil {
		return nil, ErrDegenerateTarget
	}
	return out, nil
}

// warpPerspective resamples the source quadrilateral into a dstW x dstH
// rectangle using the inverse homography and bilinear sampling.
func warpPerspective(src image.Image, quad [4]utils.Point, dstW, dstH int) image.Image {
	// Destination corners in the same TL/TR/BR/BL order as the quad.
	dst := [4]utils.Point{
		{X: 0, Y: 0},
		{X: float64(dstW - 1), Y: 0},
		{X: float64(dstW - 1), Y: float64(dstH - 1)},
		{X: 0, Y: float64(dstH - 1)},
	}
	// Map destination pixels back into the source quad.
	h, ok := computeHomography(dst, quad)
	if !ok {
		return nil
	}

	sb := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	for y := range dstH {
		for x := range dstW {
			sx, sy := projectPoint(h, float64(x), float64(y))
			out.Set(x, y, bilinearSample(src, sx+float64(sb.Min.X), sy+float64(sb.Min.Y), false))
		}
	}
	return out
}

// bilinearSample samples src at fractional coordinates. Out-of-bounds
// coordinates return black unless replicate is set, in which case they clamp
// to the nearest edge pixel.
func bilinearSample(src image.Image, x, y float64, replicate bool) color.Color {
	b := src.Bounds()
	if x < float64(b.Min.X) || y < float64(b.Min.Y) || x > float64(b.Max.X-1) || y > float64(b.Max.Y-1) {
		if !replicate {
			return color.RGBA{0, 0, 0, 255}
		}
		x = math.Min(math.Max(x, float64(b.Min.X)), float64(b.Max.X-1))
		y = math.Min(math.Max(y, float64(b.Min.Y)), float64(b.Max.Y-1))
	}
	x0, y0 := int(x), int(y)
	x1, y1 := x0+1, y0+1
	if x1 >= b.Max.X {
		x1 = b.Max.X - 1
	}
	if y1 >= b.Max.Y {
		y1 = b.Max.Y - 1
	}
	fx := x - float64(x0)
	fy := y - float64(y0)
	c00 := toRGBAf(src.At(x0, y0))
	c10 := toRGBAf(src.At(x1, y0))
	c01 := toRGBAf(src.At(x0, y1))
	c11 := toRGBAf(src.At(x1, y1))
	r := lerp(lerp(c00.r, c10.r, fx), lerp(c01.r, c11.r, fx), fy)
	g := lerp(lerp(c00.g, c10.g, fx), lerp(c01.g, c11.g, fx), fy)
	bl := lerp(lerp(c00.b, c10.b, fx), lerp(c01.b, c11.b, fx), fy)
	a := lerp(lerp(c00.a, c10.a, fx), lerp(c01.a, c11.a, fx), fy)
	return color.RGBA{uint8(r + 0.5), uint8(g + 0.5), uint8(bl + 0.5), uint8(a + 0.5)}
}

type rgbaf struct{ r, g, b, a float64 }

func toRGBAf(c color.Color) rgbaf {
	r, g, b, a := c.RGBA()
	return rgbaf{r: float64(r >> 8), g: float64(g >> 8), b: float64(b >> 8), a: float64(a >> 8)}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
