// Package store archives vitality snapshots, provider sync attempts, and
// closed accounting periods in SQLite. The archive is secondary to the
// JSON state document and never consulted for scoring.
package store

import (
	"time"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
)

// Snapshot is one scored vitality result and the figures behind it.
type Snapshot struct {
	ID                  int64     `json:"id"`
	PersonaSlug         string    `json:"personaSlug"`
	Operation           string    `json:"operation"`
	ComputedAt          time.Time `json:"computedAt"`
	Score               float64   `json:"score"`
	Tier                string    `json:"tier"`
	Diagnosis           string    `json:"diagnosis"`
	Trend               string    `json:"trend"`
	DominantCost        string    `json:"dominantCost"`
	DaysToDepletion     float64   `json:"daysToDepletion"`
	OperationalBalance  float64   `json:"operationalBalance"`
	OperationalCurrency string    `json:"operationalCurrency"`
	PeriodRevenue       float64   `json:"periodRevenue"`
	PeriodExpenses      float64   `json:"periodExpenses"`
}

// SnapshotOf flattens the state's current vitality into a Snapshot.
func SnapshotOf(st *model.EconomicState, operation string) Snapshot {
	s := Snapshot{
		PersonaSlug:         st.PersonaSlug,
		Operation:           operation,
		ComputedAt:          st.LastUpdatedAt,
		OperationalBalance:  st.BalanceSheet.OperationalBalance,
		OperationalCurrency: st.BalanceSheet.OperationalCurrency,
		PeriodRevenue:       st.IncomeStatement.CurrentPeriod.Revenue,
		PeriodExpenses:      st.IncomeStatement.CurrentPeriod.Expenses.Total,
	}
	if v := st.Vitality; v != nil {
		s.ComputedAt = v.ComputedAt
		s.Score = v.Score
		s.Tier = v.Tier
		s.Diagnosis = v.Diagnosis
		s.Trend = v.Trend
		s.DominantCost = v.DominantCost
		s.DaysToDepletion = v.DaysToDepletion
	}
	return s
}

// SyncAttempt is one provider sync, fresh or served from cache.
type SyncAttempt struct {
	PersonaSlug string    `json:"personaSlug"`
	Provider    string    `json:"provider"`
	SyncedAt    time.Time `json:"syncedAt"`
	Source      string    `json:"source"`
	Balance     float64   `json:"balance"`
	Currency    string    `json:"currency"`
	Reason      string    `json:"reason,omitempty"`
}

// ClosedPeriod is an accounting period archived by close-period.
type ClosedPeriod struct {
	PersonaSlug string         `json:"personaSlug"`
	PeriodStart time.Time      `json:"periodStart"`
	PeriodEnd   time.Time      `json:"periodEnd"`
	Revenue     float64        `json:"revenue"`
	Expenses    model.Expenses `json:"expenses"`
	NetIncome   float64        `json:"netIncome"`
}

// Recorder persists history for later inspection.
type Recorder interface {
	RecordSnapshot(s Snapshot) error
	RecordSync(a SyncAttempt) error
	RecordPeriod(p ClosedPeriod) error
	Snapshots(slug string, limit int) ([]Snapshot, error)
	Close() error
}
