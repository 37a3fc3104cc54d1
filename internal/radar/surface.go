package radar

import (
	"image/color"
	"math"

	"github.com/golang/geo/r2"
)

// Surface is a square drawing target. Coordinates are in surface units with
// the origin at the top-left corner and y pointing down; angles are radians
// clockwise from the positive x axis.
type Surface interface {
	// Resize sets the side of the square and discards its content.
	Resize(side int)
	Fill(c color.NRGBA)
	StrokeCircle(center r2.Point, radius, width float64, c color.NRGBA)
	StrokeLine(from, to r2.Point, width float64, c color.NRGBA)
	FillCircle(center r2.Point, radius float64, c color.NRGBA)
	// FillSector fills the circular sector between start and end with a
	// radial gradient evaluated at distance/radius.
	FillSector(center r2.Point, radius, start, end float64, g Gradient)
}

// GradientStop is one color stop at Offset ∈ [0, 1].
type GradientStop struct {
	Offset float64
	Color  color.NRGBA
}

// Gradient is a list of stops sorted by offset.
type Gradient []GradientStop

// At interpolates the gradient linearly at t, clamped to the end stops.
func (g Gradient) At(t float64) color.NRGBA {
	if len(g) == 0 {
		return color.NRGBA{}
	}
	if t <= g[0].Offset {
		return g[0].Color
	}
	for i := 1; i < len(g); i++ {
		if t <= g[i].Offset {
			a, b := g[i-1], g[i]
			span := b.Offset - a.Offset
			if span <= 0 {
				return b.Color
			}
			return lerpColor(a.Color, b.Color, (t-a.Offset)/span)
		}
	}
	return g[len(g)-1].Color
}

func lerpColor(a, b color.NRGBA, t float64) color.NRGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

// withAlpha scales the color's alpha by opacity ∈ [0, 1].
func withAlpha(c color.NRGBA, opacity float64) color.NRGBA {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	c.A = uint8(math.Round(float64(c.A) * opacity))
	return c
}
