package radar

import (
	"math"
	"time"

	"arduino-radar.klederson.com/internal/config"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"
)

// Layout is the square drawing area fitted into a container.
type Layout struct {
	Side   float64
	Center r2.Point
	Radius float64 // Drawing radius R
}

// NewLayout fits a square of side min(w, h) into the container.
func NewLayout(containerW, containerH int) Layout {
	side := containerW
	if containerH < side {
		side = containerH
	}
	if side < 0 {
		side = 0
	}
	half := float64(side) / 2
	return Layout{
		Side:   float64(side),
		Center: r2.Point{X: half, Y: half},
		Radius: half * config.RadiusFactor,
	}
}

// RingRadii returns the grid circle radii R/4, R/2, 3R/4 and R.
func (l Layout) RingRadii() []float64 {
	radii := make([]float64, config.RingCount)
	for i := range radii {
		radii[i] = l.Radius * float64(i+1) / float64(config.RingCount)
	}
	return radii
}

// PointPosition maps a detection to surface coordinates. Angles are degrees
// measured from the positive x axis; with y pointing down they grow
// clockwise on screen.
func PointPosition(center r2.Point, radius, angleDeg, ratio float64) r2.Point {
	a := DegreesToRadians(angleDeg)
	dir := r2.Point{X: math.Cos(a), Y: math.Sin(a)}
	return center.Add(dir.Mul(ratio * radius))
}

// Opacity is the linear fade of a detection: 1 at detection time, 0 once
// fade has elapsed. fade must be positive.
func Opacity(now, detected time.Time, fade time.Duration) float64 {
	return 1 - float64(now.Sub(detected))/float64(fade)
}

// DegreesToRadians converts an angle in degrees to radians.
func DegreesToRadians(deg float64) float64 {
	return (s1.Angle(deg) * s1.Degree).Radians()
}

// NormalizeDegrees wraps an angle to [0, 360).
func NormalizeDegrees(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		a = 0
	}
	return a
}

// NormalizeAngle wraps an angle to [0, 2π).
func NormalizeAngle(a float64) float64 {
	for a < 0 {
		a += 2 * math.Pi
	}
	for a >= 2*math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// AngleDiff returns the shortest angular distance between two angles.
// Result is in [0, π].
func AngleDiff(a, b float64) float64 {
	d := math.Abs(NormalizeAngle(a) - NormalizeAngle(b))
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}

// RingChar returns the glyph tangent to a circle at the given angle
// (radians, clockwise from +x).
func RingChar(angle float64) rune {
	// 8 sectors for character selection
	sector := int(math.Round(NormalizeAngle(angle)/(math.Pi/4))) % 8

	switch sector {
	case 0, 4: // East, West
		return '|'
	case 1, 5: // SE, NW
		return '/'
	case 2, 6: // South, North
		return '-'
	case 3, 7: // SW, NE
		return '\\'
	default:
		return '.'
	}
}

// LineChar returns the glyph for a segment running along (dx, dy).
func LineChar(dx, dy float64) rune {
	ax, ay := math.Abs(dx), math.Abs(dy)
	switch {
	case ax >= 2*ay:
		return '-'
	case ay >= 2*ax:
		return '|'
	case dx*dy > 0:
		return '\\'
	default:
		return '/'
	}
}
