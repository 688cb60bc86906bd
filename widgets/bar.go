package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderBar draws a horizontal meter of width cells filled to frac (0-1)
func RenderBar(frac float64, width int, full, empty rune, color lipgloss.Color) string {
	if width <= 0 {
		return ""
	}
	frac = min(max(frac, 0), 1)
	n := int(frac*float64(width) + 0.5)
	filled := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat(string(full), n))
	return filled + strings.Repeat(string(empty), width-n)
}

// RenderSlider draws a track of width cells with a thumb at value within lo..hi
func RenderSlider(value, lo, hi float64, width int, color lipgloss.Color) string {
	if width <= 0 {
		return ""
	}
	pos := 0
	if hi > lo {
		frac := min(max((value-lo)/(hi-lo), 0), 1)
		pos = int(frac*float64(width-1) + 0.5)
	}
	thumb := lipgloss.NewStyle().Foreground(color).Bold(true).Render("●")
	return strings.Repeat("─", pos) + thumb + strings.Repeat("─", width-1-pos)
}

// RenderSteps draws one glyph per pattern step with current highlighted
func RenderSteps(count, current int, done, now, ahead rune, color lipgloss.Color) string {
	var out strings.Builder
	for i := 0; i < count; i++ {
		switch {
		case i < current:
			out.WriteRune(done)
		case i == current:
			out.WriteString(lipgloss.NewStyle().Foreground(color).Render(string(now)))
		default:
			out.WriteRune(ahead)
		}
	}
	return out.String()
}
