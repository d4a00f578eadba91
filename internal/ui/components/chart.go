package components

import (
	"github.com/guptarohit/asciigraph"

	"github.com/dmelo/outfit-studio/internal/ui/styles"
)

// RenderUsageChart plots the remaining-calls series gathered this session.
func RenderUsageChart(data []float64, width, height int, caption string) string {
	if len(data) < 2 {
		return styles.HelpStyle.Render("Not enough data yet")
	}

	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}
