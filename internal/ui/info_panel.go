package ui

import (
	"fmt"
	"strings"
	"time"

	"arduino-radar.klederson.com/internal/session"
	"github.com/charmbracelet/lipgloss"
)

// RenderInfoPanel renders the live readout beside the radar.
func RenderInfoPanel(snap session.Snapshot, now time.Time, sweepDeg float64, width, height int) string {
	innerW := width - 4
	if innerW < 20 {
		innerW = 20
	}

	title := StylePanelTitle.Render("ARDUINO")
	sep := StyleSeparator.Render(strings.Repeat("-", innerW))
	lines := []string{title, sep}

	distance := "--"
	if latest, ok := snap.Latest(); ok {
		distance = fmt.Sprintf("%.1f cm", latest.Distance)
	}

	detection := "None"
	if p, ok := snap.LatestPoint(); ok {
		detection = fmt.Sprintf("%.0fdeg @ %.0f%%  %s", p.Angle, p.Distance*100, formatLastSeen(now, p.Timestamp))
	}

	objectsSty := StyleValue
	if snap.Detected {
		objectsSty = StyleValueAlert
	}
	statusSty := StyleValue
	if snap.Status == session.StatusError {
		statusSty = StyleValueBad
	}

	arduino, arduinoSty := "Disconnected", StyleValueBad
	if snap.Connected {
		arduino, arduinoSty = "Connected", StyleValue
	}

	fields := []struct {
		label, value string
		sty          lipgloss.Style
	}{
		{"Arduino", arduino, arduinoSty},
		{"Time", now.Format("15:04:05"), StyleValue},
		{"Distance", distance, StyleValue},
		{"Status", snap.Status, statusSty},
		{"Points", fmt.Sprintf("%d", len(snap.Samples)), StyleValue},
		{"Port", snap.Port, StyleValue},
		{"Sweep", fmt.Sprintf("%.0fdeg", sweepDeg), StyleValue},
		{"Objects", fmt.Sprintf("%d", len(snap.Points)), objectsSty},
		{"Latest", detection, StyleValue},
	}
	if snap.LastError != "" {
		fields = append(fields, struct {
			label, value string
			sty          lipgloss.Style
		}{"Error", snap.LastError, StyleValueBad})
	}

	for _, f := range fields {
		label := StyleLabel.Render(fmt.Sprintf("  %-10s", f.label))
		value := f.sty.Render(truncate(f.value, innerW-12))
		lines = append(lines, label+value)
	}

	if len(snap.Samples) > 0 {
		values := make([]float64, len(snap.Samples))
		for i, s := range snap.Samples {
			values[i] = s.Distance
		}
		lines = append(lines, "", StyleLabel.Render("  Recent:"))
		lines = append(lines, "  "+lipgloss.NewStyle().Foreground(ColorGreen).Render(renderSparkline(values, innerW-4)))
	}

	for len(lines) < height-2 {
		lines = append(lines, "")
	}
	if len(lines) > height-2 && height > 2 {
		lines = lines[:height-2]
	}

	return StylePanelBorder.Width(width - 2).Height(height - 2).Render(strings.Join(lines, "\n"))
}

func renderSparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	chars := []byte{'_', '.', '-', '~', '^'}

	minV, maxV := values[0], values[0]
	for _, v := range values {
		minV = min(minV, v)
		maxV = max(maxV, v)
	}

	rng := maxV - minV
	if rng < 1 {
		rng = 1
	}

	start := 0
	if len(values) > width {
		start = len(values) - width
	}

	var sb strings.Builder
	for i := start; i < len(values); i++ {
		idx := int((values[i] - minV) / rng * float64(len(chars)-1))
		idx = max(0, min(idx, len(chars)-1))
		sb.WriteByte(chars[idx])
	}
	return sb.String()
}

func formatLastSeen(now, t time.Time) string {
	d := now.Sub(t)
	if d < time.Second {
		return "now"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm ago", int(d.Minutes()))
}

func truncate(s string, n int) string {
	if n < 1 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "~"
	}
	return string(r[:n-1]) + "~"
}
