package tui

import (
	"fmt"
	"strings"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/cli"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/tui/components"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/tui/theme"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/vitality"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	r := a.data.report
	v := r.Vitality
	cur := r.OperationalCurrency
	var b strings.Builder

	// Row 1: headline metrics
	balanceDelta := "provider " + r.PrimaryProvider
	if prev, ok := a.previousSnapshot(); ok {
		balanceDelta = cli.FormatDelta(r.OperationalBalance, prev.OperationalBalance, cur) + " since " + prev.Operation
	}
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Balance", Value: cli.FormatAmount(r.OperationalBalance, cur), Delta: balanceDelta},
		{Label: "Tier", Value: strings.ToUpper(string(v.Tier)), Delta: v.Diagnosis, Color: t.TierColor(string(v.Tier))},
		{Label: "Health (FHS)", Value: cli.FormatScore(v.FHS), Delta: "trend " + string(v.TrendDirection), Color: t.ScoreColor(v.FHS)},
		{Label: "Runway", Value: cli.FormatDays(v.DaysToDepletion), Delta: cli.FormatAmount(v.DailyBurnRate, cur) + "/day"},
	}, cw))
	b.WriteString("\n")

	// Row 2: score components beside the diagnosis
	halves := components.LayoutRow(cw, 2)
	if a.isCompactLayout() {
		halves = []int{cw, cw}
	}
	scores := components.ContentCard("Score Components", renderScoreBars(v, components.CardInnerWidth(halves[0])), halves[0])
	diag := components.ContentCard("Diagnosis", renderDiagnosis(v, cur), halves[1])
	if a.isCompactLayout() {
		b.WriteString(scores)
		b.WriteString("\n")
		b.WriteString(diag)
	} else {
		b.WriteString(components.CardRow([]string{scores, diag}))
	}
	b.WriteString("\n")

	// Row 3: FHS over archived snapshots
	if len(a.data.history) > 1 {
		inner := components.CardInnerWidth(cw)
		vals := scoreSeries(a.data.history, inner)
		b.WriteString(components.ContentCard(
			fmt.Sprintf("Health over the last %d changes", len(vals)),
			components.ScoreSparkline(vals, t.TierColor(string(v.Tier))),
			cw,
		))
		b.WriteString("\n")
	}
	return b.String()
}

func renderScoreBars(v vitality.Result, innerW int) string {
	labelW := 18
	barW := max(innerW-labelW-6, 10)
	rows := []struct {
		label  string
		score  float64
		weight float64
	}{
		{"Liquidity", v.Liquidity, vitality.WeightLiquidity},
		{"Profitability", v.Profitability, vitality.WeightProfitability},
		{"Efficiency", v.Efficiency, vitality.WeightEfficiency},
		{"Trend", v.TrendScore, vitality.WeightTrend},
	}
	lines := make([]string, 0, len(rows)+1)
	for _, row := range rows {
		lines = append(lines, components.ScoreBar(
			fmt.Sprintf("%-13s %3.0f%%", row.label, row.weight*100),
			row.score, labelW, barW))
	}
	lines = append(lines, components.ScoreBar("FHS", v.FHS, labelW, barW))
	return strings.Join(lines, "\n")
}

func renderDiagnosis(v vitality.Result, currency string) string {
	t := theme.Active
	label := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	value := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	action := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)

	diagColor := t.Green
	if v.Diagnosis != vitality.DiagHealthy {
		diagColor = t.TierColor(string(v.Tier))
	}
	diag := lipgloss.NewStyle().Foreground(diagColor).Background(t.Surface).Bold(true)

	var b strings.Builder
	b.WriteString(label.Render("Diagnosis  ") + diag.Render(v.Diagnosis) + "\n")
	b.WriteString(label.Render("Top cost   ") + value.Render(v.DominantCost) + "\n")
	b.WriteString(label.Render("Burn rate  ") + value.Render(cli.FormatAmount(v.DailyBurnRate, currency)+"/day") + "\n")
	b.WriteString(label.Render("Actions") + "\n")
	for _, p := range v.Prescriptions {
		b.WriteString(action.Render("  › "+p) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
