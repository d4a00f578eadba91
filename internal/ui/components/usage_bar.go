package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dmelo/outfit-studio/internal/logger"
	"github.com/dmelo/outfit-studio/internal/models"
	"github.com/dmelo/outfit-studio/internal/ui/styles"
)

// UsageBar renders the remaining free-tier calls as a gradient bar.
// Premium and unlimited accounts get a badge instead of a bar.
func UsageBar(snapshot *models.UsageSnapshot, freeTierLimit int, width int) string {
	if snapshot == nil {
		return styles.HelpStyle.Render("usage unknown")
	}

	if snapshot.IsPremium || snapshot.APICallsRemaining.Unlimited {
		return styles.SuccessTextStyle.Bold(true).Render("PREMIUM · unlimited calls")
	}

	if freeTierLimit <= 0 {
		freeTierLimit = 10
	}

	remaining := snapshot.APICallsRemaining.Count
	percent := float64(remaining) / float64(freeTierLimit) * 100
	if percent > 100 {
		percent = 100
	}

	countStr := fmt.Sprintf("%d left", remaining)
	barWidth := width - len(countStr) - 4
	if barWidth < 5 {
		barWidth = 5
	}

	bar := renderGradientBar(percent, barWidth)

	countStyle := styles.InfoTextStyle
	if remaining == 0 {
		countStyle = styles.ErrorTextStyle
	}

	return fmt.Sprintf("[%s] %s", bar, countStyle.Render(countStr))
}

// renderGradientBar renders the bar characters with a red-to-green gradient.
func renderGradientBar(percent float64, width int) string {
	if width < 1 {
		return ""
	}

	filled := int(float64(width) * percent / 100)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	var barChars []string
	for i := 0; i < width; i++ {
		if i < filled {
			t := float64(i) / float64(max(1, width-1))
			color := interpolateColor("#ff6b6b", "#51cf66", t)
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
			barChars = append(barChars, style.Render("█"))
		} else {
			style := lipgloss.NewStyle().Foreground(styles.Subtle)
			barChars = append(barChars, style.Render("░"))
		}
	}

	return strings.Join(barChars, "")
}

func interpolateColor(fromHex, toHex string, t float64) string {
	from := hexToRGB(fromHex)
	to := hexToRGB(toHex)

	r := int(float64(from[0]) + t*(float64(to[0])-float64(from[0])))
	g := int(float64(from[1]) + t*(float64(to[1])-float64(from[1])))
	b := int(float64(from[2]) + t*(float64(to[2])-float64(from[2])))

	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func hexToRGB(hex string) [3]int {
	hex = strings.TrimPrefix(hex, "#")
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		logger.Error("failed to parse hex color", "hex", hex, "error", err)
		return [3]int{0, 0, 0}
	}
	return [3]int{r, g, b}
}
