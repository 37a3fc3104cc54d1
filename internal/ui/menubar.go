package ui

import (
	"fmt"
	"strings"

	"arduino-radar.klederson.com/internal/config"
	"github.com/charmbracelet/lipgloss"
)

// RenderMenuBar renders the top menu bar.
func RenderMenuBar(width int, source string, connected, collecting bool) string {
	title := fmt.Sprintf(" %s v%s ", config.AppName, config.AppVersion)

	keys := []struct{ key, label string }{
		{"C", "onnect"},
		{"D", "isconnect"},
		{"S", "tart"},
		{"P", "ause"},
		{"X", " clear"},
		{"Q", "uit"},
	}

	menu := ""
	for _, k := range keys {
		menu += "  " + StyleMenuKey.Render("["+k.key+"]") + StyleMenuLabel.Render(k.label)
	}

	var status string
	switch {
	case collecting:
		status = StyleStatusCollecting.Render("COLLECTING")
	case connected:
		status = StyleStatusIdle.Render("IDLE")
	default:
		status = StyleStatusIdle.Render("OFFLINE")
	}

	sourceInfo := StyleMenuLabel.Render(fmt.Sprintf("Source: %s", source))

	left := StyleMenuKey.Render(title) + menu
	right := status + "  " + sourceInfo + " "

	gap := width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	return StyleMenuBar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}
