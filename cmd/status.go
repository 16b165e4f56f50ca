package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/cli"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/economy"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/vitality"

	"github.com/spf13/cobra"
)

var flagLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show balances, the income statement, and vitality",
	RunE:  runStatus,
}

var tierCmd = &cobra.Command{
	Use:   "tier",
	Short: "Show the current vitality tier and diagnosis",
	RunE:  runTier,
}

var plCmd = &cobra.Command{
	Use:   "pl",
	Short: "Show the profit and loss statement",
	RunE:  runPL,
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "List recent ledger entries",
	RunE:  runLedger,
}

func init() {
	ledgerCmd.Flags().IntVarP(&flagLimit, "limit", "l", 20, "Max entries to show (0 = all)")
	rootCmd.AddCommand(statusCmd, tierCmd, plCmd, ledgerCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	r, err := e.svc.Status()
	if err != nil {
		return err
	}
	return cli.Write(os.Stdout, e.format, r, func() string {
		var b strings.Builder
		b.WriteString("\n")
		b.WriteString(cli.RenderTitle(fmt.Sprintf("ECONOMY  %s", r.PersonaSlug)))
		b.WriteString("\n\n")
		if r.WalletAddress != "" {
			fmt.Fprintf(&b, "  Wallet: %s\n", r.WalletAddress)
		}
		if r.MigratedFrom != "" {
			b.WriteString(cli.RenderMuted(fmt.Sprintf("  Migrated from schema %s", r.MigratedFrom)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(renderBalances(r))
		b.WriteString("\n")
		b.WriteString(renderVitality(r.Vitality, r.OperationalCurrency))
		b.WriteString("\n")
		return b.String()
	})
}

func renderVitality(v vitality.Result, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  Tier:      %s\n", cli.RenderTier(string(v.Tier)))
	fmt.Fprintf(&b, "  Health:    %s\n", cli.RenderScoreBar(v.FHS, string(v.Tier), 30))
	fmt.Fprintf(&b, "  Runway:    %s at %s/day\n", cli.FormatDays(v.DaysToDepletion), cli.FormatAmount(v.DailyBurnRate, currency))
	fmt.Fprintf(&b, "  Trend:     %s\n", v.TrendDirection)
	fmt.Fprintf(&b, "  Top cost:  %s\n", v.DominantCost)
	fmt.Fprintf(&b, "  Diagnosis: %s\n", v.Diagnosis)
	fmt.Fprintf(&b, "  Actions:   %s\n", strings.Join(v.Prescriptions, ", "))
	b.WriteString("\n")

	b.WriteString(cli.RenderTable(cli.Table{
		Title:   "Score Components",
		Headers: []string{"Component", "Score", "Weight"},
		Rows: [][]string{
			{"Liquidity", cli.FormatScore(v.Liquidity), cli.FormatPercent(vitality.WeightLiquidity)},
			{"Profitability", cli.FormatScore(v.Profitability), cli.FormatPercent(vitality.WeightProfitability)},
			{"Efficiency", cli.FormatScore(v.Efficiency), cli.FormatPercent(vitality.WeightEfficiency)},
			{"Trend", cli.FormatScore(v.TrendScore), cli.FormatPercent(vitality.WeightTrend)},
			{"---"},
			{"FHS", cli.FormatScore(v.FHS), ""},
		},
	}))
	return b.String()
}

func runTier(_ *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	v, err := e.svc.Tier()
	if err != nil {
		return err
	}
	return cli.Write(os.Stdout, e.format, v, func() string {
		return fmt.Sprintf("\n  %s  %s  %s\n%s\n",
			cli.RenderTier(string(v.Tier)),
			cli.RenderScoreBar(v.FHS, string(v.Tier), 20),
			v.Diagnosis,
			"  "+strings.Join(v.Prescriptions, ", ")+"\n")
	})
}

func runPL(_ *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	pl, err := e.svc.ProfitAndLoss()
	if err != nil {
		return err
	}
	return cli.Write(os.Stdout, e.format, pl, func() string {
		return renderPL(pl)
	})
}

func renderPL(pl economy.ProfitAndLoss) string {
	cur := pl.Currency
	period := pl.Period
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(cli.RenderTitle("PROFIT & LOSS"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "  Period since %s (%.1f days)\n\n", period.PeriodStart.Local().Format(time.DateTime), pl.DaysElapsed)

	t := cli.Table{
		Title:   "Current Period",
		Headers: []string{"Account", "Amount"},
	}
	t.Rows = append(t.Rows, []string{"Revenue", cli.FormatAmount(period.Revenue, cur)})
	t.Rows = append(t.Rows, []string{"---"})
	for _, cat := range model.Categories {
		node := period.Expenses.Category(cat)
		t.Rows = append(t.Rows, []string{cat, cli.FormatAmount(node.Sum(), cur)})
		for _, leaf := range node.Leaves(cat) {
			t.Rows = append(t.Rows, []string{"  " + leaf.Path, cli.FormatAmount(leaf.Amount, cur)})
		}
	}
	t.Rows = append(t.Rows, []string{"---"})
	t.Rows = append(t.Rows, []string{"Expenses", cli.FormatAmount(period.Expenses.Total, cur)})
	t.Rows = append(t.Rows, []string{"Net income", cli.FormatAmount(period.NetIncome, cur)})
	b.WriteString(cli.RenderTable(t))
	b.WriteString("\n")

	if period.Expenses.Total > 0 {
		b.WriteString("  Spend by category\n")
		for _, cat := range model.Categories {
			b.WriteString(cli.RenderHorizontalBar(cat, period.Expenses.Category(cat).Sum(), period.Expenses.Total, 30))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(cli.RenderTable(cli.Table{
		Title:   "All Time",
		Headers: []string{"Account", "Amount"},
		Rows: [][]string{
			{"Revenue", cli.FormatAmount(pl.AllTime.TotalRevenue, cur)},
			{"Expenses", cli.FormatAmount(pl.AllTime.TotalExpenses, cur)},
			{"Net income", cli.FormatAmount(pl.AllTime.NetIncome, cur)},
			{"Burn / day", cli.FormatAmount(pl.DailyBurnRate, cur)},
		},
	}))
	b.WriteString("\n")
	return b.String()
}

func runLedger(_ *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	entries, err := e.svc.Ledger(flagLimit)
	if err != nil {
		return err
	}
	return cli.Write(os.Stdout, e.format, entries, func() string {
		if len(entries) == 0 {
			return "\n  No ledger entries yet.\n\n"
		}
		t := cli.Table{
			Title:   fmt.Sprintf("Ledger (%d newest first)", len(entries)),
			Headers: []string{"When", "Type", "Amount", "Detail"},
		}
		for _, entry := range entries {
			ts := entry.Timestamp
			t.Rows = append(t.Rows, []string{
				cli.FormatAgo(&ts),
				entry.Type,
				cli.FormatAmount(entry.Amount, entry.Currency),
				ledgerDetail(entry),
			})
		}
		return "\n" + cli.RenderTable(t) + "\n"
	})
}

func ledgerDetail(e model.LedgerEntry) string {
	var parts []string
	switch e.Type {
	case model.EntryCost:
		parts = append(parts, e.Channel)
	case model.EntryDeposit:
		parts = append(parts, e.Source)
	case model.EntryIncome:
		if e.TaskID != "" {
			parts = append(parts, e.TaskID)
		}
		if e.Quality != nil {
			parts = append(parts, fmt.Sprintf("q=%.2f", *e.Quality))
		}
	}
	if e.Note != "" {
		parts = append(parts, e.Note)
	}
	return strings.Join(parts, " ")
}
