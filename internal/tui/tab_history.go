package tui

import (
	"fmt"
	"strings"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/cli"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/store"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/tui/components"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// previousSnapshot is the archived snapshot before the newest one.
func (a App) previousSnapshot() (store.Snapshot, bool) {
	if len(a.data.history) < 2 {
		return store.Snapshot{}, false
	}
	return a.data.history[1], true
}

// scoreSeries returns up to limit FHS values from history, oldest first.
func scoreSeries(history []store.Snapshot, limit int) []float64 {
	n := min(len(history), limit)
	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		vals[n-1-i] = history[i].Score
	}
	return vals
}

func (a App) renderHistoryTab(cw int) string {
	t := theme.Active
	r := a.data.report
	cur := r.OperationalCurrency
	var b strings.Builder

	halves := components.LayoutRow(cw, 2)
	if a.isCompactLayout() {
		halves = []int{cw, cw}
	}
	chartH := 8
	if a.isCompactLayout() {
		chartH = 6
	}

	burn := make([]float64, len(r.BurnRateHistory))
	for i, s := range r.BurnRateHistory {
		burn[i] = s.DailyBurnRate
	}
	burnBody := "No burn samples yet. Costs add one each."
	if len(burn) > 0 {
		burnBody = components.BarChart(burn, t.Orange, components.CardInnerWidth(halves[0]), chartH,
			func(v float64) string { return cli.FormatAmount(v, cur) })
	}
	burnCard := components.ContentCard(
		fmt.Sprintf("Daily burn rate (%d samples, %s)", len(burn), r.Vitality.TrendDirection),
		burnBody, halves[0])

	scoreBody := "No archived snapshots. History is off or nothing has changed yet."
	if len(a.data.history) > 0 {
		inner := components.CardInnerWidth(halves[1])
		scoreBody = components.BarChart(scoreSeries(a.data.history, inner), t.Accent, inner, chartH,
			func(v float64) string { return fmt.Sprintf("%.2f", v) })
	}
	scoreCard := components.ContentCard("Health score by change", scoreBody, halves[1])

	if a.isCompactLayout() {
		b.WriteString(burnCard + "\n" + scoreCard)
	} else {
		b.WriteString(components.CardRow([]string{burnCard, scoreCard}))
	}
	b.WriteString("\n")

	if len(a.data.history) > 0 {
		b.WriteString(components.ContentCard("Recent snapshots",
			renderSnapshotRows(a.data.history, components.CardInnerWidth(cw), 10), cw))
		b.WriteString("\n")
	}
	return b.String()
}

func renderSnapshotRows(history []store.Snapshot, innerW, limit int) string {
	t := theme.Active
	head := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Bold(true)
	row := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	opW := 16
	diagW := max(innerW-14-opW-12-7-14-5, 8)
	format := fmt.Sprintf("%%-14s %%-%ds %%-12s %%7s %%14s %%s", opW)

	lines := []string{head.Render(truncStr(fmt.Sprintf(format, "When", "Operation", "Tier", "FHS", "Balance", "Diagnosis"), innerW))}
	for i, s := range history {
		if i >= limit {
			break
		}
		at := s.ComputedAt
		line := fmt.Sprintf(format,
			truncStr(cli.FormatAgo(&at), 14),
			truncStr(s.Operation, opW),
			s.Tier,
			cli.FormatScore(s.Score),
			cli.FormatAmount(s.OperationalBalance, s.OperationalCurrency),
			truncStr(s.Diagnosis, diagW))
		tier := lipgloss.NewStyle().Foreground(t.TierColor(s.Tier)).Background(t.Surface)
		if i == 0 {
			lines = append(lines, tier.Render(truncStr(line, innerW)))
			continue
		}
		lines = append(lines, row.Render(truncStr(line, innerW)))
	}
	return strings.Join(lines, "\n")
}
