package tui

import (
	"fmt"
	"strings"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/cli"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/economy"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/tui/components"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderWalletsTab(cw int) string {
	t := theme.Active
	r := a.data.report
	var b strings.Builder

	enabled := 0
	for _, p := range r.Providers {
		if p.Enabled {
			enabled++
		}
	}
	address := r.WalletAddress
	if address == "" {
		address = "not initialized"
	}
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Operational", Value: cli.FormatAmount(r.OperationalBalance, r.OperationalCurrency), Delta: "from " + r.PrimaryProvider},
		{Label: "Providers", Value: fmt.Sprintf("%d enabled", enabled), Delta: fmt.Sprintf("of %d", len(r.Providers))},
		{Label: "Wallet", Value: truncStr(address, max(cw/3-6, 12))},
	}, cw))
	b.WriteString("\n")

	b.WriteString(components.ContentCard("Balances", renderProviderRows(r.Providers, components.CardInnerWidth(cw)), cw))
	b.WriteString("\n")

	muted := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	b.WriteString(muted.Render("  Press s to sync enabled providers. Cached balances are kept when a provider is unreachable."))
	return b.String()
}

func renderProviderRows(providers []economy.ProviderBalance, innerW int) string {
	t := theme.Active
	head := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Bold(true)
	format := "%-2s%-14s %16s %-9s %-10s %s"

	lines := []string{head.Render(truncStr(fmt.Sprintf(format, "", "Provider", "Balance", "Enabled", "Connected", "Last sync"), innerW))}
	for _, p := range providers {
		marker := ""
		if p.Primary {
			marker = "*"
		}
		line := fmt.Sprintf(format,
			marker,
			string(p.Provider),
			cli.FormatAmount(p.Balance, p.Currency),
			yesNo(p.Enabled),
			yesNo(p.Connected),
			cli.FormatAgo(p.LastSync))

		color := t.TextDim
		switch {
		case p.Primary:
			color = t.AccentBright
		case p.Enabled:
			color = t.TextPrimary
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(color).Background(t.Surface).Render(truncStr(line, innerW)))
	}
	return strings.Join(lines, "\n")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
