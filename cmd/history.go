package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/cli"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/state"

	"github.com/spf13/cobra"
)

var closePeriodCmd = &cobra.Command{
	Use:   "close-period",
	Short: "Close the current accounting period and start a new one",
	RunE:  runClosePeriod,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show archived vitality snapshots",
	RunE:  runHistory,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the persisted economic state against its schema",
	RunE:  runValidate,
}

func init() {
	historyCmd.Flags().IntVarP(&flagLimit, "limit", "l", 20, "Max snapshots to show")
	rootCmd.AddCommand(closePeriodCmd, historyCmd, validateCmd)
}

func runClosePeriod(_ *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	closed, err := e.svc.ClosePeriod()
	if err != nil {
		return err
	}
	return cli.Write(os.Stdout, e.format, closed, func() string {
		return fmt.Sprintf("\n  Closed period %s to %s\n  Revenue %s, expenses %s, net %s\n\n",
			closed.PeriodStart.Local().Format("2006-01-02 15:04"),
			closed.PeriodEnd.Local().Format("2006-01-02 15:04"),
			cli.FormatAmount(closed.Revenue, ""),
			cli.FormatAmount(closed.Expenses.Total, ""),
			cli.FormatAmount(closed.NetIncome, ""))
	})
}

func runHistory(_ *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	snaps, err := e.svc.VitalityHistory(flagLimit)
	if err != nil {
		return err
	}
	return cli.Write(os.Stdout, e.format, snaps, func() string {
		if len(snaps) == 0 {
			return "\n  No history yet. Snapshots are archived on every change.\n\n"
		}
		t := cli.Table{
			Title:   "Vitality History",
			Headers: []string{"When", "Operation", "Tier", "FHS", "Balance", "Diagnosis"},
		}
		scores := make([]float64, len(snaps))
		for i, s := range snaps {
			at := s.ComputedAt
			t.Rows = append(t.Rows, []string{
				cli.FormatAgo(&at),
				s.Operation,
				s.Tier,
				cli.FormatScore(s.Score),
				cli.FormatAmount(s.OperationalBalance, s.OperationalCurrency),
				s.Diagnosis,
			})
			// Oldest first for the sparkline.
			scores[len(snaps)-1-i] = s.Score
		}
		return "\n" + cli.RenderTable(t) + "\n  FHS " + cli.RenderSparkline(scores) + "\n\n"
	})
}

func runValidate(_ *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := state.ValidateFile(e.loc)
	if err != nil {
		return err
	}
	if werr := cli.Write(os.Stdout, e.format, res, func() string {
		var b strings.Builder
		b.WriteString("\n")
		if res.Valid {
			fmt.Fprintf(&b, "  %s is valid (schema %s)\n\n", e.loc.StatePath(), res.Version)
			return b.String()
		}
		fmt.Fprintf(&b, "  %s has %d issue(s):\n", e.loc.StatePath(), len(res.Issues))
		for _, is := range res.Issues {
			path := is.Path
			if path == "" {
				path = "/"
			}
			fmt.Fprintf(&b, "    %-40s %s\n", path, is.Message)
		}
		b.WriteString("\n")
		return b.String()
	}); werr != nil {
		return werr
	}
	if !res.Valid {
		return errors.New("economic state failed validation")
	}
	return nil
}
