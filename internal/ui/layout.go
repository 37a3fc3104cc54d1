package ui

import "github.com/charmbracelet/lipgloss"

// ComposeLayout stacks the menu bar, the radar beside the info and log
// column, the chart and the status bar.
func ComposeLayout(menuBar, radarPanel, infoPanel, logPanel, chartPanel, statusBar string) string {
	right := infoPanel
	if logPanel != "" {
		right = lipgloss.JoinVertical(lipgloss.Left, infoPanel, logPanel)
	}
	middle := lipgloss.JoinHorizontal(lipgloss.Top, radarPanel, right)
	return lipgloss.JoinVertical(lipgloss.Left, menuBar, middle, chartPanel, statusBar)
}
