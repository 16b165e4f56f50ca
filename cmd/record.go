package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/cli"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/config"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/economy"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/ledger"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/vitality"

	"github.com/spf13/cobra"
)

var (
	flagAmount    float64
	flagCurrency  string
	flagSource    string
	flagChannel   string
	flagNote      string
	flagQuality   float64
	flagConfirmed bool
	flagTaskID    string

	flagModel          string
	flagInputTokens    int64
	flagOutputTokens   int64
	flagThinkingTokens int64
	flagCacheTokens    int64
)

var depositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Fund the local budget",
	RunE:  runDeposit,
}

var recordCostCmd = &cobra.Command{
	Use:   "record-cost",
	Short: "Record an expense against an account path",
	Long: `Record an expense against an account path such as inference.llm.output,
runtime.compute, faculty, or a custom name. Unknown top-level names are
recorded under custom.

With --model, token counts are priced from the model's pricing table and
split across inference.llm.input, output, and thinking.`,
	RunE: runRecordCost,
}

var recordIncomeCmd = &cobra.Command{
	Use:   "record-income",
	Short: "Record income from completed work",
	RunE:  runRecordIncome,
}

func init() {
	depositCmd.Flags().Float64Var(&flagAmount, "amount", 0, "Amount to deposit")
	depositCmd.Flags().StringVar(&flagCurrency, "currency", "", "Currency (must match the local budget, default USD)")
	depositCmd.Flags().StringVar(&flagSource, "source", "", "Funding source label")

	recordCostCmd.Flags().StringVar(&flagChannel, "channel", "", "Account path, e.g. inference.llm.output")
	recordCostCmd.Flags().Float64Var(&flagAmount, "amount", 0, "Cost amount")
	recordCostCmd.Flags().StringVar(&flagNote, "note", "", "Free-form note")
	recordCostCmd.Flags().StringVar(&flagModel, "model", "", "Price token usage for this model instead of --amount")
	recordCostCmd.Flags().Int64Var(&flagInputTokens, "input-tokens", 0, "Input tokens (with --model)")
	recordCostCmd.Flags().Int64Var(&flagOutputTokens, "output-tokens", 0, "Output tokens (with --model)")
	recordCostCmd.Flags().Int64Var(&flagThinkingTokens, "thinking-tokens", 0, "Thinking tokens (with --model)")
	recordCostCmd.Flags().Int64Var(&flagCacheTokens, "cache-read-tokens", 0, "Cache read tokens (with --model)")

	recordIncomeCmd.Flags().Float64Var(&flagAmount, "amount", 0, "Income amount")
	recordIncomeCmd.Flags().Float64Var(&flagQuality, "quality", 0, "Quality score of the work, 0-1")
	recordIncomeCmd.Flags().BoolVar(&flagConfirmed, "confirmed", false, "The income has been confirmed by the payer")
	recordIncomeCmd.Flags().StringVar(&flagTaskID, "task-id", "", "Task identifier")
	recordIncomeCmd.Flags().StringVar(&flagNote, "note", "", "Free-form note")

	rootCmd.AddCommand(depositCmd, recordCostCmd, recordIncomeCmd)
}

func runDeposit(_ *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	out, err := e.svc.Deposit(ledger.Deposit{Amount: flagAmount, Currency: flagCurrency, Source: flagSource})
	if err != nil {
		return err
	}
	return cli.Write(os.Stdout, e.format, out, func() string {
		return fmt.Sprintf("\n  Deposited %s\n%s\n",
			cli.FormatAmount(out.Entry.Amount, out.Entry.Currency), renderOutcome(out))
	})
}

func runRecordCost(_ *cobra.Command, _ []string) error {
	if flagModel != "" {
		return runRecordInference()
	}
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	out, err := e.svc.RecordCost(ledger.Cost{Channel: flagChannel, Amount: flagAmount, Note: flagNote})
	if err != nil {
		return err
	}
	return cli.Write(os.Stdout, e.format, out, func() string {
		return fmt.Sprintf("\n  Recorded %s on %s\n%s\n",
			cli.FormatAmount(out.Entry.Amount, out.Entry.Currency), out.Entry.Channel, renderOutcome(out))
	})
}

func runRecordInference() error {
	if flagChannel != "" || flagAmount != 0 {
		return errors.New("--model prices tokens itself; drop --channel and --amount")
	}
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	usage := config.TokenUsage{
		Input:     flagInputTokens,
		Output:    flagOutputTokens,
		Thinking:  flagThinkingTokens,
		CacheRead: flagCacheTokens,
	}
	out, err := e.svc.RecordInference(flagModel, usage, flagNote)
	if err != nil {
		return err
	}
	return cli.Write(os.Stdout, e.format, out, func() string {
		var b strings.Builder
		fmt.Fprintf(&b, "\n  Priced %s tokens for %s\n",
			cli.FormatTokens(usage.Input+usage.Output+usage.Thinking+usage.CacheRead), out.Model)
		for _, entry := range out.Entries {
			fmt.Fprintf(&b, "    %-24s %s\n", entry.Channel, cli.FormatAmount(entry.Amount, entry.Currency))
		}
		b.WriteString(renderOutcome(economy.Outcome{
			Vitality: out.Vitality,
			Balance:  out.Balance,
			Currency: out.Currency,
		}))
		b.WriteString("\n")
		return b.String()
	})
}

func runRecordIncome(cmd *cobra.Command, _ []string) error {
	// A defaulted quality of 0 would read as low-quality work, not a missing value.
	if !cmd.Flags().Changed("quality") {
		return fmt.Errorf("%w: --quality is required", ledger.ErrInvalidQuality)
	}
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	out, err := e.svc.RecordIncome(ledger.Income{
		Amount:    flagAmount,
		Quality:   flagQuality,
		Confirmed: flagConfirmed,
		TaskID:    flagTaskID,
		Note:      flagNote,
	})
	if err != nil {
		return err
	}
	return cli.Write(os.Stdout, e.format, out, func() string {
		if !out.Recorded {
			return fmt.Sprintf("\n  Income not recorded: %s\n\n", out.Reason)
		}
		return fmt.Sprintf("\n  Recorded income %s\n%s\n",
			cli.FormatAmount(out.Entry.Amount, out.Entry.Currency),
			renderOutcome(economy.Outcome{Vitality: *out.Vitality, Balance: out.Vitality.Balance, Currency: out.Entry.Currency}))
	})
}

// renderOutcome renders the balance and tier after a mutation.
func renderOutcome(out economy.Outcome) string {
	return fmt.Sprintf("  Balance: %s   Tier: %s   Runway: %s\n",
		cli.FormatAmount(out.Balance, out.Currency),
		cli.RenderTier(string(out.Vitality.Tier)),
		cli.FormatDays(out.Vitality.DaysToDepletion),
	) + renderDiagnosis(out.Vitality)
}

func renderDiagnosis(r vitality.Result) string {
	if r.Diagnosis == vitality.DiagHealthy {
		return ""
	}
	return cli.RenderWarning(fmt.Sprintf("%s: %s", r.Diagnosis, strings.Join(r.Prescriptions, ", "))) + "\n"
}
