package utils

import (
	"errors"
	"math"
)

// Point represents a 2D point with floating point coordinates.
type Point struct {
	X, Y float64
}

// Dist returns the Euclidean distance between points a and b.
func Dist(a, b Point) float64 { return math.Hypot(a.X-b.X, a.Y-b.Y) }

// PointsFromFloats converts a decoded JSON point list ([[x,y], ...]) into
// Points. Every entry must have at least two coordinates.
func PointsFromFloats(pairs [][]float64) ([]Point, error) {
	pts := make([]Point, 0, len(pairs))
	for _, p := range pairs {
		if len(p) < 2 {
			return nil, errors.New("point needs two coordinates")
		}
		pts = append(pts, Point{X: p[0], Y: p[1]})
	}
	return pts, nil
}
