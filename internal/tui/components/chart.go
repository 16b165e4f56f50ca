package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders a unicode sparkline scaled to the series peak.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	peak := 0.0
	for _, v := range values {
		peak = math.Max(peak, v)
	}
	return sparkline(values, peak, color)
}

// ScoreSparkline renders 0-1 scores on a fixed scale so a flat healthy
// series reads as high, not as the series peak.
func ScoreSparkline(values []float64, color lipgloss.Color) string {
	return sparkline(values, 1, color)
}

func sparkline(values []float64, peak float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	if peak <= 0 {
		peak = 1
	}
	var buf strings.Builder
	buf.Grow(len(values) * 3)
	for _, v := range values {
		idx := int(v / peak * float64(len(sparkBlocks)-1))
		idx = max(0, min(idx, len(sparkBlocks)-1))
		buf.WriteRune(sparkBlocks[idx])
	}
	return lipgloss.NewStyle().Foreground(color).Background(theme.Active.Surface).Render(buf.String())
}

// BarChart renders values as vertical bars, newest on the right. Series
// wider than the plot keep their most recent values. format labels the
// y-axis peak.
func BarChart(values []float64, color lipgloss.Color, width, height int, format func(float64) string) string {
	if len(values) == 0 {
		return ""
	}
	if width < 15 || height < 3 {
		return Sparkline(values, color)
	}
	t := theme.Active

	peak := 0.0
	for _, v := range values {
		peak = math.Max(peak, v)
	}
	if peak <= 0 {
		peak = 1
	}

	top := format(peak)
	labelW := max(len(top), len("0")) + 1
	plotW := width - labelW - 1

	barW := 2
	maxBars := (plotW + 1) / (barW + 1)
	if len(values) > maxBars {
		values = values[len(values)-maxBars:]
	}

	axis := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	bar := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	blank := lipgloss.NewStyle().Background(t.Surface)

	// Eighths of a row per bar, so partial rows use the finer blocks.
	units := make([]int, len(values))
	for i, v := range values {
		units[i] = int(math.Round(math.Max(v, 0) / peak * float64(height*8)))
	}

	var b strings.Builder
	for row := height; row >= 1; row-- {
		label := ""
		if row == height {
			label = top
		}
		b.WriteString(axis.Render(fmt.Sprintf("%*s│", labelW, label)))
		for i, u := range units {
			if i > 0 {
				b.WriteString(blank.Render(" "))
			}
			floor := (row - 1) * 8
			switch {
			case u >= row*8:
				b.WriteString(bar.Render(strings.Repeat("█", barW)))
			case u > floor:
				b.WriteString(bar.Render(strings.Repeat(string(sparkBlocks[u-floor-1]), barW)))
			default:
				b.WriteString(blank.Render(strings.Repeat(" ", barW)))
			}
		}
		b.WriteString("\n")
	}
	axisLen := len(units)*(barW+1) - 1
	b.WriteString(axis.Render(fmt.Sprintf("%*s└%s", labelW, "0", strings.Repeat("─", axisLen))))
	return b.String()
}
