package ui

import "github.com/charmbracelet/lipgloss"

// RenderRadarPanel wraps radar content with a styled border.
// The actual radar rendering is done externally to avoid import cycles.
func RenderRadarPanel(width, height int, radarContent, legend string) string {
	innerW := width - 2
	content := lipgloss.PlaceHorizontal(innerW, lipgloss.Center, radarContent) + "\n" + legend
	return StylePanelBorder.Width(innerW).Height(height - 2).Render(content)
}

// RenderChartPanel wraps the distance plot with a titled border.
func RenderChartPanel(width, height int, title, plot string) string {
	content := StylePanelTitle.Render(title) + "\n" + plot
	return StylePanelBorder.Width(width - 2).Height(height - 2).Render(content)
}
