package timeseries

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
	"time"

	"arduino-radar.klederson.com/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samples(start time.Time, distances ...float64) []sensor.DistanceSample {
	out := make([]sensor.DistanceSample, len(distances))
	for i, d := range distances {
		out[i] = sensor.DistanceSample{Timestamp: start.Add(time.Duration(i) * time.Second), Distance: d}
	}
	return out
}

func TestUpdateBuildsChart(t *testing.T) {
	r := NewRenderer()
	assert.Nil(t, r.Current())

	start := time.Date(2026, 3, 1, 14, 5, 9, 0, time.Local)
	c := r.Update(samples(start, 120, 80, 310), false)

	assert.Equal(t, 3, c.PointCount())
	assert.Equal(t, []string{"14:05:09", "14:05:10", "14:05:11"}, c.Labels())
	assert.Equal(t, []float64{120, 80, 310}, c.Values())
	lo, hi := c.YRange()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 400.0, hi)
	assert.Equal(t, PaletteNominal, c.Palette())
	assert.Same(t, c, r.Current())
}

func TestUpdateReleasesPrevious(t *testing.T) {
	r := NewRenderer()
	now := time.Now()

	first := r.Update(samples(now, 100), false)
	second := r.Update(samples(now, 100, 200), true)

	assert.True(t, first.Released())
	assert.False(t, second.Released())
	assert.Equal(t, PaletteAlert, second.Palette())

	var buf bytes.Buffer
	assert.ErrorIs(t, first.RenderPNG(&buf, 400, 200), ErrReleased)
	_, err := first.Text(40, 10)
	assert.ErrorIs(t, err, ErrReleased)

	r.Close()
	assert.True(t, second.Released())
	assert.Nil(t, r.Current())
	r.Close()
}

func TestPaletteColors(t *testing.T) {
	assert.Equal(t, uint8(255), PaletteAlert.Line.R)
	assert.Equal(t, uint8(51), PaletteAlert.Fill.A)
	assert.Equal(t, uint8(75), PaletteNominal.Line.R)
	assert.Equal(t, uint8(192), PaletteNominal.Line.G)
	assert.Equal(t, uint8(192), PaletteNominal.Line.B)
	assert.Equal(t, uint8(51), PaletteNominal.Fill.A)
}

func TestRenderPNG(t *testing.T) {
	r := NewRenderer()
	c := r.Update(samples(time.Now(), 50, 150, 250, 350), true)

	var buf bytes.Buffer
	require.NoError(t, c.RenderPNG(&buf, 640, 320))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 640, img.Bounds().Dx())
	assert.Equal(t, 320, img.Bounds().Dy())
}

func TestRenderPNGSingleSample(t *testing.T) {
	c := NewRenderer().Update(samples(time.Now(), 42), false)

	var buf bytes.Buffer
	require.NoError(t, c.RenderPNG(&buf, 320, 200))
	assert.NotZero(t, buf.Len())
}

func TestRenderPNGEmpty(t *testing.T) {
	c := NewRenderer().Update(nil, false)

	var buf bytes.Buffer
	assert.ErrorIs(t, c.RenderPNG(&buf, 320, 200), ErrNoSamples)
}

func TestText(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	c := NewRenderer().Update(samples(start, 0, 400, 200), false)

	out, err := c.Text(40, 6)
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[0], "400")
	assert.Contains(t, lines[0], "•", "400cm plots on the top row")
	assert.Contains(t, lines[4], "•", "0cm plots on the bottom row")
	assert.Contains(t, lines[5], "09:00:00")
	assert.Contains(t, lines[5], "09:00:02")
}

func TestTextKeepsMostRecent(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	d := make([]float64, 100)
	c := NewRenderer().Update(samples(start, d...), false)

	out, err := c.Text(20, 5)
	require.NoError(t, err)
	assert.NotContains(t, out, "09:00:00")
	assert.Contains(t, out, "09:01:39")
}

func TestTextEmpty(t *testing.T) {
	c := NewRenderer().Update(nil, false)

	out, err := c.Text(30, 4)
	require.NoError(t, err)
	assert.Contains(t, out, "no data")

	out, err = c.Text(5, 2)
	require.NoError(t, err)
	assert.Empty(t, out)
}
