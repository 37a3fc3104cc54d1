package radar

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/golang/geo/r2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

var colorLabel = color.NRGBA{R: 0, G: 255, B: 0, A: 140}

// ImageSurface rasterizes radar frames into an RGBA image.
type ImageSurface struct {
	img *image.RGBA
	z   *vector.Rasterizer
}

// NewImageSurface returns an empty surface. Render sizes it.
func NewImageSurface() *ImageSurface {
	s := &ImageSurface{}
	s.Resize(0)
	return s
}

// Resize reallocates the backing image.
func (s *ImageSurface) Resize(side int) {
	if side < 0 {
		side = 0
	}
	s.img = image.NewRGBA(image.Rect(0, 0, side, side))
	s.z = vector.NewRasterizer(side, side)
}

// Image returns the current frame.
func (s *ImageSurface) Image() *image.RGBA {
	return s.img
}

func (s *ImageSurface) empty() bool {
	return s.img.Bounds().Empty()
}

func (s *ImageSurface) Fill(c color.NRGBA) {
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

func (s *ImageSurface) FillCircle(center r2.Point, radius float64, c color.NRGBA) {
	if s.empty() || radius <= 0 {
		return
	}
	s.begin()
	circlePath(s.z, center, radius, false)
	s.draw(image.NewUniform(c))
}

func (s *ImageSurface) StrokeCircle(center r2.Point, radius, width float64, c color.NRGBA) {
	if s.empty() || radius <= 0 {
		return
	}
	hw := math.Max(width, 1) / 2
	s.begin()
	circlePath(s.z, center, radius+hw, false)
	if inner := radius - hw; inner > 0 {
		circlePath(s.z, center, inner, true)
	}
	s.draw(image.NewUniform(c))
}

func (s *ImageSurface) StrokeLine(from, to r2.Point, width float64, c color.NRGBA) {
	d := to.Sub(from)
	if s.empty() || d.Norm() == 0 {
		return
	}
	n := d.Ortho().Normalize().Mul(math.Max(width, 1) / 2)
	s.begin()
	moveTo(s.z, from.Add(n))
	lineTo(s.z, to.Add(n))
	lineTo(s.z, to.Sub(n))
	lineTo(s.z, from.Sub(n))
	s.z.ClosePath()
	s.draw(image.NewUniform(c))
}

func (s *ImageSurface) FillSector(center r2.Point, radius, start, end float64, g Gradient) {
	if s.empty() || radius <= 0 || end <= start {
		return
	}
	steps := int(math.Ceil((end - start) * radius / 2))
	if steps < 2 {
		steps = 2
	}
	s.begin()
	moveTo(s.z, center)
	for i := 0; i <= steps; i++ {
		a := start + (end-start)*float64(i)/float64(steps)
		lineTo(s.z, center.Add(r2.Point{X: math.Cos(a), Y: math.Sin(a)}.Mul(radius)))
	}
	s.z.ClosePath()
	s.draw(&radialGradient{center: center, radius: radius, g: g, bounds: s.img.Bounds()})
}

// LabelRings writes the range of each grid circle just inside its top edge.
func (s *ImageSurface) LabelRings(l Layout, maxDistance float64) {
	if s.empty() {
		return
	}
	d := &font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(colorLabel),
		Face: basicfont.Face7x13,
	}
	for i, r := range l.RingRadii() {
		cm := maxDistance * float64(i+1) / float64(len(l.RingRadii()))
		x := int(l.Center.X) + 3
		y := int(l.Center.Y-r) + basicfont.Face7x13.Ascent + 1
		d.Dot = fixed.P(x, y)
		d.DrawString(fmt.Sprintf("%.0fcm", cm))
	}
}

// EncodePNG writes the current frame as PNG.
func (s *ImageSurface) EncodePNG(w io.Writer) error {
	return png.Encode(w, s.img)
}

func (s *ImageSurface) begin() {
	b := s.img.Bounds()
	s.z.Reset(b.Dx(), b.Dy())
}

func (s *ImageSurface) draw(src image.Image) {
	s.z.Draw(s.img, s.img.Bounds(), src, image.Point{})
}

func circlePath(z *vector.Rasterizer, center r2.Point, radius float64, reverse bool) {
	steps := int(math.Ceil(radius * 2))
	steps = max(16, min(steps, 256))
	dir := 1.0
	if reverse {
		dir = -1
	}
	moveTo(z, center.Add(r2.Point{X: radius}))
	for i := 1; i < steps; i++ {
		a := dir * 2 * math.Pi * float64(i) / float64(steps)
		lineTo(z, center.Add(r2.Point{X: math.Cos(a), Y: math.Sin(a)}.Mul(radius)))
	}
	z.ClosePath()
}

func moveTo(z *vector.Rasterizer, p r2.Point) {
	z.MoveTo(float32(p.X), float32(p.Y))
}

func lineTo(z *vector.Rasterizer, p r2.Point) {
	z.LineTo(float32(p.X), float32(p.Y))
}

// radialGradient is an image source whose color depends only on the distance
// from center, scaled by radius.
type radialGradient struct {
	center r2.Point
	radius float64
	g      Gradient
	bounds image.Rectangle
}

func (r *radialGradient) ColorModel() color.Model { return color.NRGBAModel }

func (r *radialGradient) Bounds() image.Rectangle { return r.bounds }

func (r *radialGradient) At(x, y int) color.Color {
	p := r2.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5}
	return r.g.At(p.Sub(r.center).Norm() / r.radius)
}
