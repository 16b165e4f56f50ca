// Package model defines the persisted economy documents for a persona.
package model

import "time"

// SchemaID identifies the economic state document family.
const SchemaID = "openpersona/economic-state"

// CurrentVersion is the schema version written by this module.
const CurrentVersion = "2.1.0"

// Bounded list sizes.
const (
	MaxLedgerEntries   = 500
	MaxBurnRateSamples = 30
)

// EconomicState is the root persisted document for one persona.
type EconomicState struct {
	Schema          string           `json:"schema"`
	Version         string           `json:"version"`
	PersonaSlug     string           `json:"personaSlug"`
	MigratedFrom    string           `json:"migratedFrom,omitempty"`
	BalanceSheet    BalanceSheet     `json:"balanceSheet"`
	IncomeStatement IncomeStatement  `json:"incomeStatement"`
	BurnRateHistory []BurnRateSample `json:"burnRateHistory"`
	Vitality        *Vitality        `json:"vitality"`
	Ledger          []LedgerEntry    `json:"ledger"`
	CreatedAt       time.Time        `json:"createdAt"`
	LastUpdatedAt   time.Time        `json:"lastUpdatedAt"`
}

// BalanceSheet holds per-provider assets and the operational mirror of the
// primary provider.
type BalanceSheet struct {
	Assets              Assets  `json:"assets"`
	PrimaryProvider     string  `json:"primaryProvider"`
	OperationalBalance  float64 `json:"operationalBalance"`
	OperationalCurrency string  `json:"operationalCurrency"`
	Equity              Equity  `json:"equity"`
}

// Assets wraps the provider records.
type Assets struct {
	Providers Providers `json:"providers"`
}

// Providers holds one record per fixed balance source.
type Providers struct {
	Local       LocalAccount  `json:"local"`
	CoinbaseCDP WalletAccount `json:"coinbase-cdp"`
	ACN         CreditAccount `json:"acn"`
	Onchain     WalletAccount `json:"onchain"`
}

// LocalAccount is the only source fundable by direct deposit.
type LocalAccount struct {
	Budget        float64    `json:"budget"`
	Currency      string     `json:"currency"`
	TotalDeposits float64    `json:"totalDeposits"`
	LastDepositAt *time.Time `json:"lastDepositAt"`
}

// WalletAccount is an externally held USDC/ETH balance.
type WalletAccount struct {
	Connected  bool       `json:"connected"`
	Address    string     `json:"address,omitempty"`
	USDC       float64    `json:"USDC"`
	ETH        float64    `json:"ETH"`
	LastSyncAt *time.Time `json:"lastSyncAt"`
}

// CreditAccount is an externally held credit balance.
type CreditAccount struct {
	Connected  bool       `json:"connected"`
	Credits    float64    `json:"credits"`
	LastSyncAt *time.Time `json:"lastSyncAt"`
}

// Equity tracks accumulated results.
type Equity struct {
	AccumulatedNetIncome float64 `json:"accumulatedNetIncome"`
	// OpeningEquity is equity carried over from a migrated document that
	// its lifetime totals do not account for.
	OpeningEquity float64 `json:"openingEquity,omitempty"`
}

// IncomeStatement holds the open period and lifetime aggregates.
type IncomeStatement struct {
	CurrentPeriod Period  `json:"currentPeriod"`
	AllTime       AllTime `json:"allTime"`
}

// Period is the current open accounting window.
type Period struct {
	PeriodStart time.Time `json:"periodStart"`
	Revenue     float64   `json:"revenue"`
	Expenses    Expenses  `json:"expenses"`
	NetIncome   float64   `json:"netIncome"`
}

// AllTime holds lifetime aggregates.
type AllTime struct {
	TotalRevenue  float64 `json:"totalRevenue"`
	TotalExpenses float64 `json:"totalExpenses"`
	NetIncome     float64 `json:"netIncome"`
}

// BurnRateSample is the daily burn rate observed at a point in time.
type BurnRateSample struct {
	Timestamp     time.Time `json:"timestamp"`
	DailyBurnRate float64   `json:"dailyBurnRate"`
}

// Vitality is the last computed health snapshot persisted with the state.
type Vitality struct {
	Score           float64   `json:"score"`
	Tier            string    `json:"tier"`
	Diagnosis       string    `json:"diagnosis"`
	Prescriptions   []string  `json:"prescriptions"`
	DaysToDepletion float64   `json:"daysToDepletion"`
	DominantCost    string    `json:"dominantCost"`
	Trend           string    `json:"trend"`
	ComputedAt      time.Time `json:"computedAt"`
}

// Ledger entry types.
const (
	EntryDeposit = "deposit"
	EntryCost    = "cost"
	EntryIncome  = "income"
)

// LedgerEntry is an immutable record of one transaction.
type LedgerEntry struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency,omitempty"`
	Channel   string    `json:"channel,omitempty"`
	Quality   *float64  `json:"quality,omitempty"`
	Source    string    `json:"source,omitempty"`
	TaskID    string    `json:"taskId,omitempty"`
	Note      string    `json:"note,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEconomicState returns the cold-start document for slug.
func NewEconomicState(slug string, now time.Time) *EconomicState {
	now = now.UTC()
	return &EconomicState{
		Schema:      SchemaID,
		Version:     CurrentVersion,
		PersonaSlug: slug,
		BalanceSheet: BalanceSheet{
			Assets: Assets{Providers: Providers{
				Local: LocalAccount{Currency: "USD"},
			}},
			PrimaryProvider:     "local",
			OperationalCurrency: "USD",
		},
		IncomeStatement: IncomeStatement{
			CurrentPeriod: Period{
				PeriodStart: now,
				Expenses:    DefaultExpenses(),
			},
		},
		BurnRateHistory: []BurnRateSample{},
		Ledger:          []LedgerEntry{},
		CreatedAt:       now,
		LastUpdatedAt:   now,
	}
}
