package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/ledger"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func testLocation(t *testing.T) Location {
	t.Helper()
	return Location{Slug: "ada", Dir: t.TempDir()}
}

func TestLoadColdStart(t *testing.T) {
	loc := testLocation(t)
	st, err := Load(loc, t0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Version != model.CurrentVersion || st.PersonaSlug != "ada" {
		t.Fatalf("got version %q slug %q", st.Version, st.PersonaSlug)
	}
	if st.Vitality == nil || st.Vitality.Tier != "suspended" || st.Vitality.Diagnosis != "unfunded" {
		t.Fatalf("Vitality = %+v, want suspended/unfunded", st.Vitality)
	}
	if !Exists(loc) {
		t.Fatal("cold start was not persisted")
	}
}

func TestLoadCorruptedIsFresh(t *testing.T) {
	loc := testLocation(t)
	writeRaw(t, loc, []byte("{not json"))

	st, err := Load(loc, t0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.BalanceSheet.OperationalBalance != 0 || len(st.Ledger) != 0 {
		t.Fatalf("corrupted document not replaced: %+v", st.BalanceSheet)
	}

	data, _ := os.ReadFile(loc.StatePath())
	if !json.Valid(data) {
		t.Fatal("fresh state was not written over the corrupted file")
	}
}

func TestLoadNonObjectIsFresh(t *testing.T) {
	loc := testLocation(t)
	writeRaw(t, loc, []byte("null"))
	st, err := Load(loc, t0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Version != model.CurrentVersion {
		t.Fatalf("Version = %q, want %q", st.Version, model.CurrentVersion)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	loc := testLocation(t)
	st, err := Load(loc, t0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := ledger.RecordDeposit(st, ledger.Deposit{Amount: 25}, t0); err != nil {
		t.Fatalf("RecordDeposit: %v", err)
	}
	if _, err := ledger.RecordCost(st, ledger.Cost{Channel: "inference.llm.output", Amount: 1.25}, t0); err != nil {
		t.Fatalf("RecordCost: %v", err)
	}
	if err := Save(loc, st, t0); err != nil {
		t.Fatalf("Save: %v", err)
	}
	first, _ := os.ReadFile(loc.StatePath())

	reloaded, err := Load(loc, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := Save(loc, reloaded, t0); err != nil {
		t.Fatalf("Save: %v", err)
	}
	second, _ := os.ReadFile(loc.StatePath())

	if !bytes.Equal(first, second) {
		t.Fatalf("save(load(save)) changed the document:\n%s\n---\n%s", first, second)
	}
}

func TestSaveStampsLastUpdated(t *testing.T) {
	loc := testLocation(t)
	st := Fresh("ada", t0)
	later := t0.Add(48 * time.Hour)
	if err := Save(loc, st, later); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !st.LastUpdatedAt.Equal(later) {
		t.Fatalf("LastUpdatedAt = %v, want %v", st.LastUpdatedAt, later)
	}
	if !st.CreatedAt.Equal(t0) {
		t.Fatalf("CreatedAt = %v, want %v", st.CreatedAt, t0)
	}
}

func TestLoadRejectsUnsafeSlug(t *testing.T) {
	for _, slug := range []string{"", "..", "a/b"} {
		_, err := Load(Location{Slug: slug, Dir: t.TempDir()}, t0)
		if !errors.Is(err, ErrInvalidSlug) {
			t.Errorf("Load(%q) err = %v, want ErrInvalidSlug", slug, err)
		}
	}
}

func TestMigrateLegacyKeepsLedgerAndEquity(t *testing.T) {
	loc := testLocation(t)
	writeRaw(t, loc, []byte(`{
  "version": "1.2.0",
  "personaSlug": "ada",
  "balance": 12.5,
  "currency": "usd",
  "totalDeposits": 20,
  "revenue": 4,
  "expenses": {"inference": 2, "skill": 1.5, "total": 99},
  "accumulatedNetIncome": -7.5,
  "ledger": [
    {"id": "tx_1", "type": "deposit", "amount": 20, "timestamp": "2025-12-01T00:00:00Z"},
    {"id": "tx_2", "type": "cost", "amount": 2, "channel": "inference", "timestamp": "2025-12-02T00:00:00Z"}
  ],
  "createdAt": "2025-12-01T00:00:00Z"
}`))

	st, err := Load(loc, t0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Version != model.CurrentVersion || st.MigratedFrom != "1.2.0" {
		t.Fatalf("version %q migratedFrom %q", st.Version, st.MigratedFrom)
	}
	if len(st.Ledger) != 2 || st.Ledger[1].ID != "tx_2" {
		t.Fatalf("Ledger = %+v, want both legacy entries", st.Ledger)
	}
	if st.BalanceSheet.Equity.AccumulatedNetIncome != -7.5 {
		t.Fatalf("AccumulatedNetIncome = %v, want -7.5", st.BalanceSheet.Equity.AccumulatedNetIncome)
	}
	if st.BalanceSheet.Assets.Providers.Local.Budget != 12.5 || st.BalanceSheet.OperationalBalance != 12.5 {
		t.Fatalf("balance not carried into local provider: %+v", st.BalanceSheet)
	}
	if st.IncomeStatement.CurrentPeriod.Expenses.Total != 3.5 {
		t.Fatalf("expenses.total = %v, want recomputed 3.5", st.IncomeStatement.CurrentPeriod.Expenses.Total)
	}
	if st.Vitality == nil {
		t.Fatal("migrated state has no vitality snapshot")
	}

	// The migrated document was persisted at the current version.
	again, err := Load(loc, t0)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.MigratedFrom != "1.2.0" || again.Version != model.CurrentVersion {
		t.Fatalf("reloaded version %q migratedFrom %q", again.Version, again.MigratedFrom)
	}
}

func TestMigrateLegacyScalarExpensesAndEpochTimestamps(t *testing.T) {
	loc := testLocation(t)
	writeRaw(t, loc, []byte(`{
  "version": "1.0.0",
  "balance": 5,
  "expenses": 3.5,
  "accumulatedNetIncome": -3.5,
  "createdAt": 1733011200000,
  "ledger": [
    {"id": "tx_1", "type": "cost", "amount": "3.5", "channel": "inference", "timestamp": 1733097600000},
    {"type": "deposit", "amount": 8.5, "timestamp": 1733184000},
    "not an entry"
  ]
}`))

	st, err := Load(loc, t0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.MigratedFrom != "1.0.0" {
		t.Fatalf("MigratedFrom = %q, want 1.0.0", st.MigratedFrom)
	}
	if st.BalanceSheet.Assets.Providers.Local.Budget != 5 {
		t.Fatalf("Budget = %v, want 5", st.BalanceSheet.Assets.Providers.Local.Budget)
	}
	if st.BalanceSheet.Equity.AccumulatedNetIncome != -3.5 {
		t.Fatalf("AccumulatedNetIncome = %v, want -3.5", st.BalanceSheet.Equity.AccumulatedNetIncome)
	}

	if len(st.Ledger) != 2 {
		t.Fatalf("Ledger has %d entries, want 2", len(st.Ledger))
	}
	if want := time.UnixMilli(1733097600000).UTC(); !st.Ledger[0].Timestamp.Equal(want) {
		t.Fatalf("Ledger[0].Timestamp = %v, want %v", st.Ledger[0].Timestamp, want)
	}
	if st.Ledger[0].Amount != 3.5 {
		t.Fatalf("Ledger[0].Amount = %v, want 3.5", st.Ledger[0].Amount)
	}
	if want := time.Unix(1733184000, 0).UTC(); !st.Ledger[1].Timestamp.Equal(want) {
		t.Fatalf("Ledger[1].Timestamp = %v, want %v", st.Ledger[1].Timestamp, want)
	}
	if st.Ledger[1].ID == "" {
		t.Fatal("legacy entry without id was not given one")
	}
	if want := time.UnixMilli(1733011200000).UTC(); !st.CreatedAt.Equal(want) {
		t.Fatalf("CreatedAt = %v, want %v", st.CreatedAt, want)
	}

	exp := st.IncomeStatement.CurrentPeriod.Expenses
	custom := exp.Category("custom")
	if custom == nil || custom.IsLeaf() || custom.Children["legacy"].Sum() != 3.5 {
		t.Fatalf("custom = %+v, want legacy leaf of 3.5", custom)
	}
	if exp.Total != 3.5 {
		t.Fatalf("expenses.total = %v, want 3.5", exp.Total)
	}
}

func TestMigrateLegacyUnknownExpenseKeysMoveToCustom(t *testing.T) {
	loc := testLocation(t)
	writeRaw(t, loc, []byte(`{"version":"1.1.0","expenses":{"inference":1,"hosting":2,"total":3}}`))

	st, err := Load(loc, t0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	exp := st.IncomeStatement.CurrentPeriod.Expenses
	if exp.Category("hosting") != nil {
		t.Fatal("unknown category kept at the top level")
	}
	if got := exp.Category("custom").Children["hosting"].Sum(); got != 2 {
		t.Fatalf("custom.hosting = %v, want 2", got)
	}
	if exp.Total != 3 {
		t.Fatalf("expenses.total = %v, want 3", exp.Total)
	}
}

func TestMigrateLegacyKeepsLifetimeTotals(t *testing.T) {
	loc := testLocation(t)
	writeRaw(t, loc, []byte(`{"version":"1.0.0","totalRevenue":10,"totalExpenses":4,"accumulatedNetIncome":1}`))

	st, err := Load(loc, t0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	all := st.IncomeStatement.AllTime
	if all.TotalRevenue != 10 || all.TotalExpenses != 4 {
		t.Fatalf("AllTime = %+v, want the recorded 10/4", all)
	}
	eq := st.BalanceSheet.Equity
	if eq.AccumulatedNetIncome != 1 || eq.OpeningEquity != -5 {
		t.Fatalf("Equity = %+v, want accumulated 1 with opening -5", eq)
	}

	if _, err := ledger.RecordCost(st, ledger.Cost{Channel: "skill", Amount: 2}, t0); err != nil {
		t.Fatalf("RecordCost: %v", err)
	}
	if st.BalanceSheet.Equity.AccumulatedNetIncome != -1 {
		t.Fatalf("AccumulatedNetIncome after cost = %v, want -1", st.BalanceSheet.Equity.AccumulatedNetIncome)
	}
}

func TestMigrateLegacyExternalProvider(t *testing.T) {
	loc := testLocation(t)
	writeRaw(t, loc, []byte(`{"version":"1.0.0","provider":"acn","balance":300}`))
	st, err := Load(loc, t0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.BalanceSheet.PrimaryProvider != "acn" || st.BalanceSheet.OperationalBalance != 300 {
		t.Fatalf("BalanceSheet = %+v, want acn primary with 300", st.BalanceSheet)
	}
	if st.BalanceSheet.OperationalCurrency != "credits" {
		t.Fatalf("OperationalCurrency = %q, want credits", st.BalanceSheet.OperationalCurrency)
	}
}

func TestMigrate200AddsHistoryAndVitality(t *testing.T) {
	loc := testLocation(t)
	st := Fresh("ada", t0)
	st.Version = "2.0.0"
	st.Vitality = nil
	data, _ := json.Marshal(st)
	var raw map[string]any
	_ = json.Unmarshal(data, &raw)
	delete(raw, "burnRateHistory")
	delete(raw, "vitality")
	data, _ = json.Marshal(raw)
	writeRaw(t, loc, data)

	got, err := Load(loc, t0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Version != "2.1.0" {
		t.Fatalf("Version = %q, want 2.1.0", got.Version)
	}
	if got.BurnRateHistory == nil || got.Vitality == nil {
		t.Fatalf("history %v vitality %v, want both present", got.BurnRateHistory, got.Vitality)
	}
	if got.MigratedFrom != "" {
		t.Fatalf("MigratedFrom = %q, want empty for 2.0.0", got.MigratedFrom)
	}
}

func TestUnknownVersionPassesThrough(t *testing.T) {
	loc := testLocation(t)
	st := Fresh("ada", t0)
	st.Version = "3.4.0"
	if err := Save(loc, st, t0); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(loc, t0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Version != "3.4.0" {
		t.Fatalf("Version = %q, want 3.4.0 untouched", got.Version)
	}
}

func TestClassify(t *testing.T) {
	tests := map[string]docVersion{
		"":       versionLegacy,
		"1.0.0":  versionLegacy,
		"v1.9":   versionLegacy,
		"2.0.0":  version200,
		"2.0.3":  version200,
		"2.1.0":  versionCurrent,
		"4.0.0":  versionUnknown,
		"banana": versionUnknown,
	}
	for in, want := range tests {
		if got := classify(in); got != want {
			t.Errorf("classify(%q) = %d, want %d", in, got, want)
		}
	}
}

func writeRaw(t *testing.T, loc Location, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(loc.StatePath()), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(loc.StatePath(), data, 0o600); err != nil {
		t.Fatal(err)
	}
}
