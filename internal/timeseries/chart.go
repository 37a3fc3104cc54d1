package timeseries

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"arduino-radar.klederson.com/internal/config"
	"arduino-radar.klederson.com/internal/sensor"
	"github.com/charmbracelet/lipgloss"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	Title       = "Arduino Distance Over Time"
	SeriesName  = "Distance (cm)"
	XAxisName   = "Time"
	LabelFormat = "15:04:05"
)

var (
	ErrReleased  = errors.New("chart released")
	ErrNoSamples = errors.New("chart has no samples")
)

// Palette is the line and fill color of the distance series.
type Palette struct {
	Line drawing.Color
	Fill drawing.Color
}

var (
	PaletteAlert = Palette{
		Line: drawing.Color{R: 255, G: 0, B: 0, A: 255},
		Fill: drawing.Color{R: 255, G: 0, B: 0, A: 51},
	}
	PaletteNominal = Palette{
		Line: drawing.Color{R: 75, G: 192, B: 192, A: 255},
		Fill: drawing.Color{R: 75, G: 192, B: 192, A: 51},
	}
)

// PaletteFor picks the palette for the current detection state.
func PaletteFor(detected bool) Palette {
	if detected {
		return PaletteAlert
	}
	return PaletteNominal
}

// Chart is one immutable rendering of the distance history.
type Chart struct {
	mu       sync.RWMutex
	times    []time.Time
	values   []float64
	labels   []string
	palette  Palette
	yMax     float64
	released bool
}

func newChart(samples []sensor.DistanceSample, detected bool) *Chart {
	c := &Chart{
		times:   make([]time.Time, len(samples)),
		values:  make([]float64, len(samples)),
		labels:  make([]string, len(samples)),
		palette: PaletteFor(detected),
		yMax:    config.MaxDistanceCM,
	}
	for i, s := range samples {
		c.times[i] = s.Timestamp
		c.values[i] = s.Distance
		c.labels[i] = s.Timestamp.Format(LabelFormat)
	}
	return c
}

// PointCount returns the number of plotted samples.
func (c *Chart) PointCount() int { return len(c.values) }

// Labels returns the x axis label of every sample.
func (c *Chart) Labels() []string { return append([]string(nil), c.labels...) }

// Values returns the plotted distances.
func (c *Chart) Values() []float64 { return append([]float64(nil), c.values...) }

// YRange returns the fixed value axis bounds.
func (c *Chart) YRange() (float64, float64) { return 0, c.yMax }

// Palette returns the series colors.
func (c *Chart) Palette() Palette { return c.palette }

// Released reports whether the chart has been superseded.
func (c *Chart) Released() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.released
}

func (c *Chart) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released = true
}

// RenderPNG draws the chart with go-chart.
func (c *Chart) RenderPNG(w io.Writer, width, height int) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.released {
		return ErrReleased
	}
	if len(c.values) == 0 {
		return ErrNoSamples
	}

	xs, ys := c.times, c.values
	if len(xs) == 1 {
		// go-chart needs a non-empty x range
		xs = []time.Time{xs[0], xs[0].Add(time.Second)}
		ys = []float64{ys[0], ys[0]}
	}

	graph := chart.Chart{
		Title:      Title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           XAxisName,
			ValueFormatter: chart.TimeValueFormatterWithFormat(LabelFormat),
		},
		YAxis: chart.YAxis{
			Name:  SeriesName,
			Range: &chart.ContinuousRange{Min: 0, Max: c.yMax},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    SeriesName,
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: c.palette.Line,
					StrokeWidth: 1,
					FillColor:   c.palette.Fill,
					DotColor:    c.palette.Line,
					DotWidth:    2,
				},
			},
		},
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// Text draws the most recent samples as a character plot of the given size.
// The last row holds the time labels of the first and last visible sample.
func (c *Chart) Text(width, height int) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.released {
		return "", ErrReleased
	}
	if width < 12 || height < 3 {
		return "", nil
	}

	line := lipgloss.NewStyle().Foreground(lipgloss.Color(hexColor(c.palette.Line)))
	fill := lipgloss.NewStyle().Foreground(lipgloss.Color(hexColor(blendOnBlack(c.palette.Fill))))
	axis := lipgloss.NewStyle().Foreground(lipgloss.Color("#008F11"))

	const gutter = 5 // "400 |"
	plotW := width - gutter
	plotH := height - 1

	values, labels := c.values, c.labels
	if len(values) > plotW {
		values = values[len(values)-plotW:]
		labels = labels[len(labels)-plotW:]
	}

	// Row of each column's sample, 0 at the top.
	rows := make([]int, len(values))
	for i, v := range values {
		ratio := math.Max(0, math.Min(v/c.yMax, 1))
		rows[i] = int(math.Round((1 - ratio) * float64(plotH-1)))
	}

	var sb strings.Builder
	for row := 0; row < plotH; row++ {
		var tick string
		switch row {
		case 0:
			tick = fmt.Sprintf("%3.0f", c.yMax)
		case plotH - 1:
			tick = "  0"
		default:
			tick = "   "
		}
		sb.WriteString(axis.Render(tick + " |"))
		for col := 0; col < plotW; col++ {
			switch {
			case col >= len(rows):
				sb.WriteByte(' ')
			case rows[col] == row:
				sb.WriteString(line.Render("•"))
			case rows[col] < row:
				sb.WriteString(fill.Render("░"))
			default:
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}

	var footer string
	switch len(labels) {
	case 0:
		footer = "no data"
	case 1:
		footer = labels[0]
	default:
		first, last := labels[0], labels[len(labels)-1]
		gap := plotW - len(first) - len(last)
		if gap < 1 {
			footer = last
		} else {
			footer = first + strings.Repeat(" ", gap) + last
		}
	}
	sb.WriteString(axis.Render(strings.Repeat(" ", gutter) + footer))
	return sb.String(), nil
}

func hexColor(c drawing.Color) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// blendOnBlack resolves a translucent color against a black terminal.
func blendOnBlack(c drawing.Color) drawing.Color {
	a := float64(c.A) / 255
	scale := func(v uint8) uint8 { return uint8(math.Round(float64(v) * a)) }
	return drawing.Color{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: 255}
}
