package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Log levels for LogEntry.
const (
	LevelInfo   = "info"
	LevelWarn   = "warn"
	LevelError  = "error"
	LevelDetect = "detect"
)

// LogEntry is one line of the on-screen event log.
type LogEntry struct {
	Time  time.Time
	Level string
	Text  string
}

// RenderLogPanel renders the most recent log entries, newest at the bottom.
func RenderLogPanel(entries []LogEntry, width, height int) string {
	innerW := width - 4
	if innerW < 10 {
		innerW = 10
	}
	innerH := height - 2
	if innerH < 3 {
		innerH = 3
	}

	title := StylePanelTitle.Render(fmt.Sprintf("EVENTS [%d]", len(entries)))
	lines := []string{title, StyleSeparator.Render(strings.Repeat("-", innerW))}

	space := innerH - len(lines)
	if len(entries) == 0 {
		lines = append(lines, StyleHelp.Render(" Waiting for events..."))
	} else {
		if len(entries) > space {
			entries = entries[len(entries)-space:]
		}
		for _, e := range entries {
			ts := StyleLogTime.Render(e.Time.Format("15:04:05") + " ")
			lines = append(lines, ts+levelStyle(e.Level).Render(truncate(e.Text, innerW-9)))
		}
	}

	for len(lines) < innerH {
		lines = append(lines, "")
	}

	return StylePanelBorder.Width(width - 2).Height(innerH).Render(strings.Join(lines, "\n"))
}

func levelStyle(level string) lipgloss.Style {
	switch level {
	case LevelWarn:
		return StyleLogWarn
	case LevelError:
		return StyleLogError
	case LevelDetect:
		return StyleLogDetect
	default:
		return StyleLogInfo
	}
}
