package components

import (
	"strings"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// StatusInfo is what the bottom bar reports.
type StatusInfo struct {
	Persona     string
	Updated     string
	Notice      string
	Refreshing  bool
	AutoRefresh bool
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, info StatusInfo) string {
	t := theme.Active

	base := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	left := base.Render(" [?]help  [s]ync  [r]efresh  [q]uit")
	if info.Notice != "" {
		left += dim.Render("  " + info.Notice)
	}

	var right []string
	if info.Persona != "" {
		right = append(right, accent.Render(info.Persona))
	}
	switch {
	case info.Refreshing:
		right = append(right, accent.Render("refreshing"))
	case info.Updated != "":
		right = append(right, base.Render("updated "+info.Updated))
	}
	if info.AutoRefresh {
		right = append(right, dim.Render("auto"))
	}
	rightStr := strings.Join(right, dim.Render(" · ")) + base.Render(" ")

	gap := width - lipgloss.Width(left) - lipgloss.Width(rightStr)
	if gap < 1 {
		gap = 1
	}
	return left + base.Render(strings.Repeat(" ", gap)) + rightStr
}
