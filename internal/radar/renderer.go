package radar

import (
	"image/color"
	"math"
	"time"

	"arduino-radar.klederson.com/internal/config"
	"arduino-radar.klederson.com/internal/sensor"
	"github.com/golang/geo/r2"
)

var (
	colorBackground = color.NRGBA{R: 0, G: 20, B: 0, A: 255}
	colorGrid       = color.NRGBA{R: 0, G: 255, B: 0, A: 51}
	colorPoint      = color.NRGBA{R: 0, G: 255, B: 0, A: 255}

	sweepGradient = Gradient{
		{Offset: 0, Color: color.NRGBA{G: 255, A: 179}},
		{Offset: 0.8, Color: color.NRGBA{G: 255, A: 77}},
		{Offset: 1, Color: color.NRGBA{G: 255, A: 0}},
	}
)

// Style holds the sizes that depend on the surface resolution.
type Style struct {
	DotRadius  float64
	RingRadius float64
	LineWidth  float64
}

// DefaultStyle is sized for pixel surfaces.
func DefaultStyle() Style {
	return Style{
		DotRadius:  config.DotRadius,
		RingRadius: config.RingRadius,
		LineWidth:  1,
	}
}

// Frame is everything one radar frame depends on.
type Frame struct {
	Angle  float64 // Sweep angle in degrees
	Points []sensor.RadarPoint
	Fade   time.Duration
	Now    time.Time
}

// Render draws a complete radar frame. The surface is resized to the largest
// square fitting the container and repainted from scratch.
func Render(s Surface, containerW, containerH int, f Frame, st Style) {
	l := NewLayout(containerW, containerH)
	s.Resize(int(l.Side))
	s.Fill(colorBackground)

	for _, r := range l.RingRadii() {
		s.StrokeCircle(l.Center, r, st.LineWidth, colorGrid)
	}
	s.StrokeLine(
		l.Center.Sub(r2.Point{X: l.Radius}),
		l.Center.Add(r2.Point{X: l.Radius}),
		st.LineWidth, colorGrid)
	s.StrokeLine(
		l.Center.Sub(r2.Point{Y: l.Radius}),
		l.Center.Add(r2.Point{Y: l.Radius}),
		st.LineWidth, colorGrid)

	a := DegreesToRadians(f.Angle)
	half := DegreesToRadians(config.SweepHalfDeg)
	s.FillSector(l.Center, l.Radius, a-half, a+half, sweepGradient)

	if f.Fade <= 0 {
		return
	}
	for _, p := range f.Points {
		op := Opacity(f.Now, p.Timestamp, f.Fade)
		if op <= 0 {
			continue
		}
		op = math.Min(op, 1)
		pos := PointPosition(l.Center, l.Radius, p.Angle, p.Distance)
		s.FillCircle(pos, st.DotRadius, withAlpha(colorPoint, op))
		s.StrokeCircle(pos, st.RingRadius, st.LineWidth, withAlpha(colorPoint, op*config.RingOpacity))
	}
}
