package components

import (
	"fmt"
	"strings"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/tui/theme"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ProgressBar renders an indeterminate-style fill used while loading.
func ProgressBar(pct float64, width int) string {
	t := theme.Active
	pct = clamp01(pct)
	filled := int(pct * float64(width))

	filledStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	emptyStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	return filledStyle.Render(strings.Repeat("█", filled)) +
		emptyStyle.Render(strings.Repeat("░", width-filled))
}

// ScoreBar renders a labeled 0-1 score bar, colored by how healthy the
// score is.
func ScoreBar(label string, score float64, labelW, barWidth int) string {
	t := theme.Active
	score = clamp01(score)
	color := t.ScoreColor(score)
	return labeledBar(label, score, fmt.Sprintf("%.2f", score), color, labelW, barWidth)
}

// ShareBar renders a labeled bar for value's share of total, with the
// formatted value printed after it.
func ShareBar(label string, value, total float64, valueStr string, labelW, barWidth int) string {
	t := theme.Active
	pct := 0.0
	if total > 0 {
		pct = clamp01(value / total)
	}
	return labeledBar(label, pct, valueStr, t.Accent, labelW, barWidth)
}

func labeledBar(label string, pct float64, valueStr string, color lipgloss.Color, labelW, barWidth int) string {
	t := theme.Active

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) +
		spaceStyle.Render(" ") +
		bar.ViewAs(pct) +
		spaceStyle.Render(" ") +
		valueStyle.Render(valueStr)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
