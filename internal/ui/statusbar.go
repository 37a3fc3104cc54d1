package ui

import (
	"fmt"
	"strings"
	"time"

	"arduino-radar.klederson.com/internal/session"
	"github.com/charmbracelet/lipgloss"
)

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, status string, samples, objects int, sweepDeg, maxRange float64, fade time.Duration) string {
	var badge string
	switch status {
	case session.StatusCollecting:
		badge = StyleStatusCollecting.Render("[" + strings.ToUpper(status) + "]")
	case session.StatusError:
		badge = StyleStatusError.Render("[" + strings.ToUpper(status) + "]")
	default:
		badge = StyleStatusIdle.Render("[" + strings.ToUpper(status) + "]")
	}

	info := fmt.Sprintf(" Samples: %d  Objects: %d  Sweep: %ddeg  Range: 0-%.0fcm  Fade: %s",
		samples, objects, int(sweepDeg), maxRange, fade)

	content := badge + StyleStatusBar.Foreground(ColorGreen).Render(info)

	gap := width - 2 - lipgloss.Width(content)
	if gap < 0 {
		gap = 0
	}

	return StyleStatusBar.Width(width).Render(content + strings.Repeat(" ", gap))
}
