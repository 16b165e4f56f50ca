package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/ledger"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/vitality"
)

// Load reads the persona's economic state. A missing or unparsable
// document is replaced by a fresh cold-start state, which is persisted
// immediately. Older schema versions are migrated and persisted.
func Load(loc Location, now time.Time) (*model.EconomicState, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(loc.StatePath())
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading economic state: %w", err)
	}

	var st *model.EconomicState
	if err == nil {
		st, err = decode(data, now)
	}
	if err != nil || st == nil {
		st = Fresh(loc.Slug, now)
		if err := Save(loc, st, now); err != nil {
			return nil, err
		}
		return st, nil
	}

	if st.PersonaSlug == "" {
		st.PersonaSlug = loc.Slug
	}
	migrated := migrate(st, now)
	normalize(st)
	if migrated {
		if err := Save(loc, st, now); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// Fresh returns a cold-start state with its vitality already scored.
func Fresh(slug string, now time.Time) *model.EconomicState {
	st := model.NewEconomicState(slug, now)
	st.Vitality = vitality.Compute(vitality.InputFrom(st, nil, now)).Snapshot(now)
	return st
}

// Exists reports whether the persona already has a state document.
func Exists(loc Location) bool {
	_, err := os.Stat(loc.StatePath())
	return err == nil
}

// Save stamps lastUpdatedAt and writes the full document.
func Save(loc Location, st *model.EconomicState, now time.Time) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	st.LastUpdatedAt = now.UTC()
	if st.BurnRateHistory == nil {
		st.BurnRateHistory = []model.BurnRateSample{}
	}
	if st.Ledger == nil {
		st.Ledger = []model.LedgerEntry{}
	}
	return WriteJSON(loc.StatePath(), st)
}

// WriteJSON writes v as indented JSON via a temp file and rename, so a
// crash never leaves a half-written document behind.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating persona dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

var errNotObject = errors.New("state: document is not a JSON object")

func decode(data []byte, now time.Time) (*model.EconomicState, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, errNotObject
	}

	var head struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	if classify(head.Version) == versionLegacy {
		return decodeLegacy(data, head.Version, now)
	}

	var st model.EconomicState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// normalize fills absent collections and re-derives every aggregate.
func normalize(st *model.EconomicState) {
	if st.Schema == "" {
		st.Schema = model.SchemaID
	}
	if st.BurnRateHistory == nil {
		st.BurnRateHistory = []model.BurnRateSample{}
	}
	if st.Ledger == nil {
		st.Ledger = []model.LedgerEntry{}
	}
	if len(st.Ledger) > model.MaxLedgerEntries {
		st.Ledger = st.Ledger[len(st.Ledger)-model.MaxLedgerEntries:]
	}
	if len(st.BurnRateHistory) > model.MaxBurnRateSamples {
		st.BurnRateHistory = st.BurnRateHistory[len(st.BurnRateHistory)-model.MaxBurnRateSamples:]
	}
	if st.IncomeStatement.CurrentPeriod.Expenses.Categories == nil {
		st.IncomeStatement.CurrentPeriod.Expenses = model.DefaultExpenses()
	}
	if st.BalanceSheet.Assets.Providers.Local.Currency == "" {
		st.BalanceSheet.Assets.Providers.Local.Currency = "USD"
	}
	ledger.Recompute(st)
}
