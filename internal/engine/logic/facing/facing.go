// Package facing derives a four-way sprite orientation from movement deltas.
package facing

import "math"

type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

const epsilon = 1e-6

// Derive picks the dominant axis of (dx, dy). A near-zero delta keeps the
// fallback so idle entities do not lose their last orientation. Positive dy
// faces down (screen coordinates).
func Derive(dx, dy float64, fallback Direction) Direction {
	if math.Abs(dx) < epsilon && math.Abs(dy) < epsilon {
		return fallback
	}
	if math.Abs(dx) >= math.Abs(dy) {
		if dx > 0 {
			return Right
		}
		return Left
	}
	if dy > 0 {
		return Down
	}
	return Up
}

// Vector returns the unit axis vector for a direction.
func Vector(d Direction) (dx, dy float64) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	default:
		return 0, 1
	}
}
