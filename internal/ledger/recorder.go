package ledger

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/wallet"

	"github.com/google/uuid"
)

// QualityThreshold is the minimum quality score for income to be recorded.
const QualityThreshold = 0.6

var (
	// ErrInvalidAmount is returned for non-positive or non-finite amounts.
	ErrInvalidAmount = errors.New("ledger: amount must be a positive number")
	// ErrMissingChannel is returned when a cost has no account path.
	ErrMissingChannel = errors.New("ledger: channel is required")
	// ErrInvalidQuality is returned for quality scores outside [0,1].
	ErrInvalidQuality = errors.New("ledger: quality must be between 0 and 1")
	// ErrCurrencyMismatch is returned when a deposit's currency differs from
	// the local budget's currency.
	ErrCurrencyMismatch = errors.New("ledger: deposit currency does not match local budget")
)

// Reasons income may be accepted but not recorded.
const (
	ReasonUnconfirmed  = "unconfirmed"
	ReasonBelowQuality = "below_quality_threshold"
)

// Deposit funds the local budget.
type Deposit struct {
	Amount   float64
	Currency string
	Source   string
}

// Cost is one expense routed by its account path.
type Cost struct {
	Channel string
	Amount  float64
	Note    string
}

// Income is revenue attributed to completed work.
type Income struct {
	Amount    float64
	Quality   float64
	Confirmed bool
	TaskID    string
	Note      string
}

// IncomeResult reports whether income was recorded. A result with
// Recorded=false is not an error.
type IncomeResult struct {
	Recorded bool               `json:"recorded"`
	Reason   string             `json:"reason,omitempty"`
	Entry    *model.LedgerEntry `json:"entry,omitempty"`
}

func validAmount(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// RecordDeposit credits the local provider and appends a deposit entry.
func RecordDeposit(st *model.EconomicState, d Deposit, now time.Time) (model.LedgerEntry, error) {
	if !validAmount(d.Amount) {
		return model.LedgerEntry{}, ErrInvalidAmount
	}
	local := &st.BalanceSheet.Assets.Providers.Local
	budgetCurrency := wallet.Currency(&st.BalanceSheet, wallet.Local)
	currency := strings.ToUpper(strings.TrimSpace(d.Currency))
	if currency == "" {
		currency = budgetCurrency
	}
	if currency != budgetCurrency {
		return model.LedgerEntry{}, fmt.Errorf("%w: got %s, budget is %s", ErrCurrencyMismatch, currency, budgetCurrency)
	}
	source := d.Source
	if source == "" {
		source = "manual"
	}

	now = now.UTC()
	local.Currency = budgetCurrency
	wallet.Credit(&st.BalanceSheet, wallet.Local, d.Amount)
	local.TotalDeposits = model.RoundAmount(local.TotalDeposits + d.Amount)
	local.LastDepositAt = &now

	entry := model.LedgerEntry{
		ID:        newID(),
		Type:      model.EntryDeposit,
		Amount:    model.RoundAmount(d.Amount),
		Currency:  currency,
		Source:    source,
		Timestamp: now,
	}
	appendEntry(st, entry)
	Recompute(st)
	return entry, nil
}

// RecordCost routes c into the expense tree, debits the primary provider,
// and appends a cost entry.
func RecordCost(st *model.EconomicState, c Cost, now time.Time) (model.LedgerEntry, error) {
	path := ResolvePath(c.Channel)
	if len(path) == 0 {
		return model.LedgerEntry{}, ErrMissingChannel
	}
	if !validAmount(c.Amount) {
		return model.LedgerEntry{}, ErrInvalidAmount
	}

	amount := model.RoundAmount(c.Amount)
	period := &st.IncomeStatement.CurrentPeriod
	addExpense(&period.Expenses, path, amount)

	allTime := &st.IncomeStatement.AllTime
	allTime.TotalExpenses = model.RoundAmount(allTime.TotalExpenses + amount)

	bs := &st.BalanceSheet
	wallet.Debit(bs, wallet.Primary(bs), amount)

	entry := model.LedgerEntry{
		ID:        newID(),
		Type:      model.EntryCost,
		Amount:    amount,
		Currency:  bs.OperationalCurrency,
		Channel:   strings.Join(path, "."),
		Note:      c.Note,
		Timestamp: now.UTC(),
	}
	appendEntry(st, entry)
	Recompute(st)
	return entry, nil
}

// RecordIncome records confirmed income of sufficient quality. Argument
// errors leave st untouched; unconfirmed or low-quality income returns a
// non-recorded result without mutation.
func RecordIncome(st *model.EconomicState, in Income, now time.Time) (IncomeResult, error) {
	if !validAmount(in.Amount) {
		return IncomeResult{}, ErrInvalidAmount
	}
	if math.IsNaN(in.Quality) || in.Quality < 0 || in.Quality > 1 {
		return IncomeResult{}, ErrInvalidQuality
	}
	if !in.Confirmed {
		return IncomeResult{Reason: ReasonUnconfirmed}, nil
	}
	if in.Quality < QualityThreshold {
		return IncomeResult{Reason: ReasonBelowQuality}, nil
	}

	amount := model.RoundAmount(in.Amount)
	period := &st.IncomeStatement.CurrentPeriod
	period.Revenue = model.RoundAmount(period.Revenue + amount)
	allTime := &st.IncomeStatement.AllTime
	allTime.TotalRevenue = model.RoundAmount(allTime.TotalRevenue + amount)

	bs := &st.BalanceSheet
	wallet.Credit(bs, wallet.Primary(bs), amount)

	quality := in.Quality
	entry := model.LedgerEntry{
		ID:        newID(),
		Type:      model.EntryIncome,
		Amount:    amount,
		Currency:  bs.OperationalCurrency,
		Quality:   &quality,
		TaskID:    in.TaskID,
		Note:      in.Note,
		Timestamp: now.UTC(),
	}
	appendEntry(st, entry)
	Recompute(st)
	return IncomeResult{Recorded: true, Entry: &entry}, nil
}

// Recompute re-derives every aggregate from its inputs: the expense total,
// period and lifetime net income, equity, and the operational mirror.
func Recompute(st *model.EconomicState) {
	period := &st.IncomeStatement.CurrentPeriod
	period.Expenses.Total = model.RoundAmount(period.Expenses.Sum())
	period.NetIncome = model.RoundAmount(period.Revenue - period.Expenses.Total)

	allTime := &st.IncomeStatement.AllTime
	allTime.NetIncome = model.RoundAmount(allTime.TotalRevenue - allTime.TotalExpenses)
	eq := &st.BalanceSheet.Equity
	eq.AccumulatedNetIncome = model.RoundAmount(eq.OpeningEquity + allTime.NetIncome)

	wallet.Mirror(&st.BalanceSheet)
}

// ClosePeriod starts a new accounting period at now. Lifetime totals,
// balances, and burn-rate history carry over.
func ClosePeriod(st *model.EconomicState, now time.Time) model.Period {
	closed := st.IncomeStatement.CurrentPeriod
	closed.Expenses = closed.Expenses.Clone()
	st.IncomeStatement.CurrentPeriod = model.Period{
		PeriodStart: now.UTC(),
		Expenses:    model.DefaultExpenses(),
	}
	Recompute(st)
	return closed
}

// Recent returns up to limit ledger entries, newest first.
func Recent(st *model.EconomicState, limit int) []model.LedgerEntry {
	n := len(st.Ledger)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]model.LedgerEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, st.Ledger[i])
	}
	return out
}

func appendEntry(st *model.EconomicState, e model.LedgerEntry) {
	st.Ledger = append(st.Ledger, e)
	if len(st.Ledger) > model.MaxLedgerEntries {
		st.Ledger = st.Ledger[len(st.Ledger)-model.MaxLedgerEntries:]
	}
}

func newID() string {
	return "tx_" + uuid.NewString()
}
