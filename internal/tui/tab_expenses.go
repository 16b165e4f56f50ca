package tui

import (
	"fmt"
	"strings"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/cli"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/tui/components"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderExpensesTab(cw int) string {
	t := theme.Active
	pl := a.data.pl
	period := pl.Period
	cur := pl.Currency
	var b strings.Builder

	netColor := t.Green
	if period.NetIncome < 0 {
		netColor = t.Red
	}
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Revenue", Value: cli.FormatAmount(period.Revenue, cur), Delta: "this period"},
		{Label: "Expenses", Value: cli.FormatAmount(period.Expenses.Total, cur), Delta: "top: " + pl.DominantCost},
		{Label: "Net income", Value: cli.FormatAmount(period.NetIncome, cur), Color: netColor},
		{Label: "Period", Value: fmt.Sprintf("%.1f days", pl.DaysElapsed), Delta: "since " + period.PeriodStart.Local().Format("Jan 2 15:04")},
	}, cw))
	b.WriteString("\n")

	halves := components.LayoutRow(cw, 2)
	if a.isCompactLayout() {
		halves = []int{cw, cw}
	}
	cats := components.ContentCard("Spend by category", renderCategoryBars(period.Expenses, cur, components.CardInnerWidth(halves[0])), halves[0])
	accounts := components.ContentCard("Accounts", renderAccountRows(period.Expenses, cur, components.CardInnerWidth(halves[1])), halves[1])
	if a.isCompactLayout() {
		b.WriteString(cats + "\n" + accounts)
	} else {
		b.WriteString(components.CardRow([]string{cats, accounts}))
	}
	b.WriteString("\n")

	label := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	value := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface).Bold(true)
	allTime := strings.Join([]string{
		label.Render("Revenue ") + value.Render(cli.FormatAmount(pl.AllTime.TotalRevenue, cur)),
		label.Render("Expenses ") + value.Render(cli.FormatAmount(pl.AllTime.TotalExpenses, cur)),
		label.Render("Net ") + value.Render(cli.FormatAmount(pl.AllTime.NetIncome, cur)),
		label.Render("Equity ") + value.Render(cli.FormatAmount(pl.Equity, cur)),
		label.Render("Burn ") + value.Render(cli.FormatAmount(pl.DailyBurnRate, cur)+"/day"),
	}, label.Render("   "))
	b.WriteString(components.ContentCard("All time", allTime, cw))
	b.WriteString("\n")
	return b.String()
}

func renderCategoryBars(exp model.Expenses, currency string, innerW int) string {
	labelW := 10
	valueW := 12
	barW := max(innerW-labelW-valueW-2, 8)
	lines := make([]string, 0, len(model.Categories))
	for _, cat := range model.Categories {
		v := exp.Category(cat).Sum()
		lines = append(lines, components.ShareBar(cat, v, exp.Total, cli.FormatAmount(v, currency), labelW, barW))
	}
	return strings.Join(lines, "\n")
}

func renderAccountRows(exp model.Expenses, currency string, innerW int) string {
	t := theme.Active
	path := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	amount := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	var lines []string
	for _, cat := range model.Categories {
		node := exp.Category(cat)
		if node == nil {
			continue
		}
		leaves := node.Leaves(cat)
		if node.IsLeaf() && node.Sum() != 0 {
			leaves = []model.ExpenseLeaf{{Path: cat, Amount: node.Sum()}}
		}
		for _, leaf := range leaves {
			amt := cli.FormatAmount(leaf.Amount, currency)
			pathW := max(innerW-len(amt)-1, 4)
			lines = append(lines, path.Render(fmt.Sprintf("%-*s ", pathW, truncStr(leaf.Path, pathW)))+amount.Render(amt))
		}
	}
	if len(lines) == 0 {
		return path.Render("No expenses recorded this period.")
	}
	return strings.Join(lines, "\n")
}
