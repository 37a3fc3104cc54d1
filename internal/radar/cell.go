package radar

import (
	"fmt"
	"image/color"
	"math"
	"strings"
	"time"

	"arduino-radar.klederson.com/internal/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/golang/geo/r2"
)

// TerminalStyle is sized for character cells.
func TerminalStyle() Style {
	return Style{
		DotRadius:  0.5,
		RingRadius: 1.5,
		LineWidth:  1,
	}
}

type cell struct {
	ch rune
	fg color.NRGBA
}

// CellSurface draws onto a grid of terminal cells. A cell is one unit wide
// and 1/AspectRatio units tall, so circles stay round on screen.
type CellSurface struct {
	cols, rows int // Panel size in cells
	side       int
	gridW      int
	gridH      int
	bg         color.NRGBA
	cells      []cell
	seen       []bool
}

// NewCellSurface creates a surface for a panel of cols x rows cells.
func NewCellSurface(cols, rows int) *CellSurface {
	return &CellSurface{cols: max(cols, 0), rows: max(rows, 0)}
}

// ContainerSize returns the panel size in surface units.
func (s *CellSurface) ContainerSize() (int, int) {
	return s.cols, int(float64(s.rows) / config.AspectRatio)
}

func (s *CellSurface) Resize(side int) {
	s.side = max(side, 0)
	s.gridW = s.side
	s.gridH = int(math.Ceil(float64(s.side) * config.AspectRatio))
	s.cells = make([]cell, s.gridW*s.gridH)
	s.seen = make([]bool, len(s.cells))
}

// Cols returns the grid width in cells.
func (s *CellSurface) Cols() int { return s.gridW }

// Rows returns the grid height in cells.
func (s *CellSurface) Rows() int { return s.gridH }

// Glyph returns the character at a cell, or 0 outside the grid.
func (s *CellSurface) Glyph(col, row int) rune {
	if !s.inside(col, row) {
		return 0
	}
	return s.cells[row*s.gridW+col].ch
}

// Color returns the resolved foreground color at a cell.
func (s *CellSurface) Color(col, row int) color.NRGBA {
	if !s.inside(col, row) {
		return color.NRGBA{}
	}
	return s.cells[row*s.gridW+col].fg
}

func (s *CellSurface) Fill(c color.NRGBA) {
	c.A = 255
	s.bg = c
	for i := range s.cells {
		s.cells[i] = cell{ch: ' ', fg: c}
	}
}

func (s *CellSurface) StrokeCircle(center r2.Point, radius, width float64, c color.NRGBA) {
	s.resetSeen()
	s.eachCell(center, radius+2, func(col, row int, p r2.Point) {
		d := p.Sub(center)
		dist := d.Norm()
		tol := 0.5
		if dist > 0 {
			tol += 0.5 * math.Abs(d.Y) / dist
		}
		tol = math.Max(tol, width/2)
		if math.Abs(dist-radius) <= tol {
			s.plot(col, row, RingChar(math.Atan2(d.Y, d.X)), c)
		}
	})
}

func (s *CellSurface) StrokeLine(from, to r2.Point, width float64, c color.NRGBA) {
	d := to.Sub(from)
	ch := LineChar(d.X, d.Y)
	steps := int(math.Ceil(d.Norm()*2)) + 1
	s.resetSeen()
	for i := 0; i <= steps; i++ {
		p := from.Add(d.Mul(float64(i) / float64(steps)))
		col, row := s.cellAt(p)
		s.plot(col, row, ch, c)
	}
}

const dotGlyph = '*'

func (s *CellSurface) FillCircle(center r2.Point, radius float64, c color.NRGBA) {
	s.resetSeen()
	col, row := s.cellAt(center)
	s.plot(col, row, dotGlyph, c)
	s.eachCell(center, radius+1, func(col, row int, p r2.Point) {
		if p.Sub(center).Norm() <= radius {
			s.plot(col, row, dotGlyph, c)
		}
	})
}

func (s *CellSurface) FillSector(center r2.Point, radius, start, end float64, g Gradient) {
	mid := (start + end) / 2
	half := (end - start) / 2
	ch := LineChar(math.Cos(mid), math.Sin(mid))
	s.resetSeen()
	s.eachCell(center, radius, func(col, row int, p r2.Point) {
		d := p.Sub(center)
		dist := d.Norm()
		if dist > radius {
			return
		}
		// Widen the wedge by half a cell so a thin beam still shows.
		slack := math.Pi
		if dist > 0.5 {
			slack = math.Atan(0.5 / dist)
		}
		if AngleDiff(math.Atan2(d.Y, d.X), mid) <= half+slack {
			s.plot(col, row, ch, g.At(dist/radius))
		}
	})
}

// String renders the grid with lipgloss colors.
func (s *CellSurface) String() string {
	styles := make(map[color.NRGBA]lipgloss.Style)
	bg := lipgloss.Color(hexColor(s.bg))

	var sb strings.Builder
	for row := 0; row < s.gridH; row++ {
		for col := 0; col < s.gridW; col++ {
			c := s.cells[row*s.gridW+col]
			st, ok := styles[c.fg]
			if !ok {
				st = lipgloss.NewStyle().Foreground(lipgloss.Color(hexColor(c.fg))).Background(bg)
				styles[c.fg] = st
			}
			sb.WriteString(st.Render(string(c.ch)))
		}
		if row < s.gridH-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func (s *CellSurface) inside(col, row int) bool {
	return col >= 0 && row >= 0 && col < s.gridW && row < s.gridH
}

func (s *CellSurface) cellAt(p r2.Point) (int, int) {
	return int(math.Floor(p.X)), int(math.Floor(p.Y * config.AspectRatio))
}

func (s *CellSurface) cellCenter(col, row int) r2.Point {
	return r2.Point{X: float64(col) + 0.5, Y: (float64(row) + 0.5) / config.AspectRatio}
}

// eachCell visits the grid cells overlapping the square of half-size reach
// around center.
func (s *CellSurface) eachCell(center r2.Point, reach float64, fn func(col, row int, p r2.Point)) {
	c0, r0 := s.cellAt(center.Sub(r2.Point{X: reach, Y: reach}))
	c1, r1 := s.cellAt(center.Add(r2.Point{X: reach, Y: reach}))
	for row := max(r0, 0); row <= min(r1, s.gridH-1); row++ {
		for col := max(c0, 0); col <= min(c1, s.gridW-1); col++ {
			fn(col, row, s.cellCenter(col, row))
		}
	}
}

func (s *CellSurface) resetSeen() {
	for i := range s.seen {
		s.seen[i] = false
	}
}

// plot blends c over a cell once per drawing operation. A detection dot
// keeps its glyph when later strokes cross its cell.
func (s *CellSurface) plot(col, row int, ch rune, c color.NRGBA) {
	if !s.inside(col, row) || c.A == 0 {
		return
	}
	i := row*s.gridW + col
	if s.seen[i] {
		return
	}
	s.seen[i] = true
	if s.cells[i].ch == dotGlyph {
		ch = dotGlyph
	}
	s.cells[i] = cell{ch: ch, fg: blend(s.cells[i].fg, c)}
}

func blend(dst, src color.NRGBA) color.NRGBA {
	a := float64(src.A) / 255
	mix := func(d, s uint8) uint8 {
		return uint8(math.Round(float64(s)*a + float64(d)*(1-a)))
	}
	return color.NRGBA{R: mix(dst.R, src.R), G: mix(dst.G, src.G), B: mix(dst.B, src.B), A: 255}
}

func hexColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

var (
	styleLegPoint = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	styleLegDim   = lipgloss.NewStyle().Foreground(lipgloss.Color("#008F11"))
)

// RenderLegend produces the radar legend line.
func RenderLegend(width int, maxDistance float64, fade time.Duration) string {
	legend := styleLegPoint.Render("* detection") +
		"  " +
		styleLegDim.Render(fmt.Sprintf("range %.0fcm  fade %s", maxDistance, fade))

	pad := (width - lipgloss.Width(legend)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + legend
}
