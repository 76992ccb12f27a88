package rectify

import (
	"errors"

	"github.com/MeKo-Tech/platewarp/internal/utils"
)

// ErrInvalidGeometry indicates the supplied corner points cannot form a
// usable quadrilateral.
var ErrInvalidGeometry = errors.New("invalid quadrilateral geometry")

// Corner indices of an ordered quadrilateral.
const (
	TopLeft = iota
	TopRight
	BottomRight
	BottomLeft
)

// OrderQuadPoints relabels four unordered corner points as
// (top-left, top-right, bottom-right, bottom-left).
//
// The top-left corner has the minimal coordinate sum x+y, the bottom-right
// the maximal sum; the top-right has the minimal difference y-x, the
// bottom-left the maximal. Ties resolve to the first point encountered.
// This heuristic can misassign corners for strongly rotated quadrilaterals;
// that behavior is kept as-is since downstream tuning was calibrated
// against it.
func OrderQuadPoints(pts []utils.Point) ([4]utils.Point, error) {
	var quad [4]utils.Point
	if len(pts) != 4 {
		return quad, ErrInvalidGeometry
	}
	if countDistinct(pts) < 4 {
		return quad, ErrInvalidGeometry
	}

	minSum, maxSum := pts[0], pts[0]
	minDiff, maxDiff := pts[0], pts[0]
	for _, p := range pts[1:] {
		if p.X+p.Y < minSum.X+minSum.Y {
			minSum = p
		}
		if p.X+p.Y > maxSum.X+maxSum.Y {
			maxSum = p
		}
		if p.Y-p.X < minDiff.Y-minDiff.X {
			minDiff = p
		}
		if p.Y-p.X > maxDiff.Y-maxDiff.X {
			maxDiff = p
		}
	}

	quad[TopLeft] = minSum
	quad[TopRight] = minDiff
	quad[BottomRight] = maxSum
	quad[BottomLeft] = maxDiff
	return quad, nil
}

func countDistinct(pts []utils.Point) int {
	seen := make(map[utils.Point]struct{}, len(pts))
	for _, p := range pts {
		seen[p] = struct{}{}
	}
	return len(seen)
}
