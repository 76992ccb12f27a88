package rectify

import (
	"math"

	"github.com/MeKo-Tech/platewarp/internal/utils"
)

// computeHomography computes the 3x3 projective transform H mapping
// src[i] -> dst[i] for exactly four correspondences. With four point pairs
// the 8-unknown system is determined, so an exact Gaussian-elimination solve
// suffices (no least squares). Returns H row-major with h22 fixed to 1.
func computeHomography(src, dst [4]utils.Point) ([9]float64, bool) {
	// Augmented 8x9 system: rows for x' and y' of each correspondence.
	var m [8][9]float64
	for i := range 4 {
		sx, sy := src[i].X, src[i].Y
		dx, dy := dst[i].X, dst[i].Y
		m[2*i] = [9]float64{sx, sy, 1, 0, 0, 0, -sx * dx, -sy * dx, dx}
		m[2*i+1] = [9]float64{0, 0, 0, sx, sy, 1, -sx * dy, -sy * dy, dy}
	}

	// Gauss-Jordan elimination with partial pivoting.
	for col := range 8 {
		pivot := col
		for r := col + 1; r < 8; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if m[pivot][col] == 0 {
			return [9]float64{}, false
		}
		m[col], m[pivot] = m[pivot], m[col]

		inv := 1 / m[col][col]
		for c := col; c < 9; c++ {
			m[col][c] *= inv
		}
		for r := range 8 {
			if r == col || m[r][col] == 0 {
				continue
			}
			f := m[r][col]
			for c := col; c < 9; c++ {
				m[r][c] -= f * m[col][c]
			}
		}
	}

	return [9]float64{
		m[0][8], m[1][8], m[2][8],
		m[3][8], m[4][8], m[5][8],
		m[6][8], m[7][8], 1,
	}, true
}

// projectPoint maps (x, y) through the homography h.
func projectPoint(h [9]float64, x, y float64) (float64, float64) {
	denom := h[6]*x + h[7]*y + h[8]
	if denom == 0 {
		return -1e9, -1e9
	}
	return (h[0]*x + h[1]*y + h[2]) / denom, (h[3]*x + h[4]*y + h[5]) / denom
}
