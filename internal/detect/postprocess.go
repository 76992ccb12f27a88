package detect

import "github.com/MeKo-Tech/platewarp/internal/utils"

// Box is a detection in normalized center-size coordinates (0..1 relative
// to the model input).
type Box struct {
	CX, CY, W, H float32
}

// detectionGrid interprets the output tensor shape as rows x cols of
// detections. Exported YOLO heads come as [1, rows, cols]; anything shorter
// falls back to a single row.
func detectionGrid(shape []int64) (int, int) {
	switch len(shape) {
	case 3:
		return int(shape[1]), int(shape[2])
	case 2:
		return int(shape[0]), int(shape[1])
	default:
		return 1, len(shape)
	}
}

// bestDetection scans rows of [cx, cy, w, h, conf, ...] and returns the
// single most confident box above the threshold. Only the best box is kept;
// one plate per frame is the operating assumption.
func bestDetection(data []float32, rows, cols int, confThresh float32) (Box, float32, bool) {
	if cols < 5 {
		return Box{}, 0, false
	}
	var best Box
	var bestConf float32
	for r := range rows {
		off := r * cols
		if off+5 > len(data) {
			break
		}
		conf := data[off+4]
		if conf < confThresh || conf <= bestConf {
			continue
		}
		bestConf = conf
		best = Box{CX: data[off], CY: data[off+1], W: data[off+2], H: data[off+3]}
	}
	return best, bestConf, bestConf > 0
}

// boxCorners converts a normalized box to the four corner points of its
// axis-aligned rectangle in image coordinates, ordered TL/TR/BR/BL.
func boxCorners(b Box, imgW, imgH float64) []utils.Point {
	x1 := float64(b.CX-b.W/2) * imgW
	y1 := float64(b.CY-b.H/2) * imgH
	x2 := float64(b.CX+b.W/2) * imgW
	y2 := float64(b.CY+b.H/2) * imgH

	x1 = clamp(x1, 0, imgW-1)
	y1 = clamp(y1, 0, imgH-1)
	x2 = clamp(x2, 0, imgW-1)
	y2 = clamp(y2, 0, imgH-1)

	return []utils.Point{
		{X: x1, Y: y1},
		{X: x2, Y: y1},
		{X: x2, Y: y2},
		{X: x1, Y: y2},
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
