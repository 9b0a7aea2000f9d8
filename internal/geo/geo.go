// Package geo provides the 2D plane geometry used by the coverage and
// corroboration logic. Positions come from the mobility feed in flat
// scenario coordinates (metres), so plain Euclidean distance is correct.
package geo

import "math"

// Point is a position in scenario coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between p and q.
func Distance(p, q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// DistanceSquared returns the squared distance between p and q.
// Useful for comparisons that do not need the square root.
func DistanceSquared(p, q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return dx*dx + dy*dy
}

// Clamp limits v to the inclusive range [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
