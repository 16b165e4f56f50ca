package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver
)

// History is the SQLite-backed Recorder.
type History struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the history database at the given path.
func Open(dbPath string) (*History, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &History{db: db}, nil
}

// Close closes the history database.
func (h *History) Close() error {
	return h.db.Close()
}

// RecordSnapshot appends a vitality snapshot.
func (h *History) RecordSnapshot(s Snapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.db.Exec(`INSERT INTO vitality_snapshots
		(persona_slug, operation, computed_at, score, tier, diagnosis, trend, dominant_cost,
		 days_to_depletion, operational_balance, operational_currency, period_revenue, period_expenses)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.PersonaSlug, s.Operation, formatTime(s.ComputedAt), s.Score, s.Tier, s.Diagnosis, s.Trend, s.DominantCost,
		s.DaysToDepletion, s.OperationalBalance, s.OperationalCurrency, s.PeriodRevenue, s.PeriodExpenses,
	)
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	return nil
}

// RecordSync appends a provider sync attempt.
func (h *History) RecordSync(a SyncAttempt) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.db.Exec(`INSERT INTO provider_syncs
		(persona_slug, provider, synced_at, source, balance, currency, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.PersonaSlug, a.Provider, formatTime(a.SyncedAt), a.Source, a.Balance, a.Currency, a.Reason,
	)
	if err != nil {
		return fmt.Errorf("inserting sync: %w", err)
	}
	return nil
}

// RecordPeriod archives a closed accounting period.
func (h *History) RecordPeriod(p ClosedPeriod) error {
	expenses, err := json.Marshal(p.Expenses)
	if err != nil {
		return fmt.Errorf("encoding expenses: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err = h.db.Exec(`INSERT INTO closed_periods
		(persona_slug, period_start, period_end, revenue, expenses, net_income, expenses_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.PersonaSlug, formatTime(p.PeriodStart), formatTime(p.PeriodEnd),
		p.Revenue, p.Expenses.Total, p.NetIncome, string(expenses),
	)
	if err != nil {
		return fmt.Errorf("inserting period: %w", err)
	}
	return nil
}

// Snapshots returns up to limit snapshots for slug, newest first.
func (h *History) Snapshots(slug string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.Query(`SELECT
		id, persona_slug, operation, computed_at, score, tier, diagnosis, trend, dominant_cost,
		days_to_depletion, operational_balance, operational_currency, period_revenue, period_expenses
		FROM vitality_snapshots
		WHERE persona_slug = ?
		ORDER BY computed_at DESC, id DESC
		LIMIT ?`, slug, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		var computed string
		var trend, dominant, currency sql.NullString
		err := rows.Scan(
			&s.ID, &s.PersonaSlug, &s.Operation, &computed, &s.Score, &s.Tier, &s.Diagnosis, &trend, &dominant,
			&s.DaysToDepletion, &s.OperationalBalance, &currency, &s.PeriodRevenue, &s.PeriodExpenses,
		)
		if err != nil {
			return nil, err
		}
		s.ComputedAt, _ = time.Parse(time.RFC3339Nano, computed)
		s.Trend = trend.String
		s.DominantCost = dominant.String
		s.OperationalCurrency = currency.String
		out = append(out, s)
	}
	return out, rows.Err()
}

// SyncCount returns the number of recorded sync attempts for slug.
func (h *History) SyncCount(slug string) (int, error) {
	var count int
	err := h.db.QueryRow("SELECT COUNT(*) FROM provider_syncs WHERE persona_slug = ?", slug).Scan(&count)
	return count, err
}

// PeriodCount returns the number of archived periods for slug.
func (h *History) PeriodCount(slug string) (int, error) {
	var count int
	err := h.db.QueryRow("SELECT COUNT(*) FROM closed_periods WHERE persona_slug = ?", slug).Scan(&count)
	return count, err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
