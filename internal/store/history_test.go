package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
)

func openTest(t *testing.T) *History {
	t.Helper()
	h, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestSnapshotsNewestFirst(t *testing.T) {
	h := openTest(t)
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for i, tier := range []string{"suspended", "critical", "normal"} {
		err := h.RecordSnapshot(Snapshot{
			PersonaSlug: "ada",
			Operation:   "deposit",
			ComputedAt:  base.Add(time.Duration(i) * time.Hour),
			Score:       float64(i) / 2,
			Tier:        tier,
			Diagnosis:   "healthy",
		})
		if err != nil {
			t.Fatalf("RecordSnapshot: %v", err)
		}
	}
	if err := h.RecordSnapshot(Snapshot{PersonaSlug: "grace", ComputedAt: base, Tier: "normal", Diagnosis: "healthy"}); err != nil {
		t.Fatalf("RecordSnapshot: %v", err)
	}

	got, err := h.Snapshots("ada", 2)
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Tier != "normal" || got[1].Tier != "critical" {
		t.Fatalf("tiers = %s,%s, want normal,critical", got[0].Tier, got[1].Tier)
	}
	if !got[0].ComputedAt.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("ComputedAt = %v", got[0].ComputedAt)
	}
}

func TestRecordSyncAndPeriod(t *testing.T) {
	h := openTest(t)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	if err := h.RecordSync(SyncAttempt{PersonaSlug: "ada", Provider: "acn", SyncedAt: now, Source: "cached", Reason: "timeout"}); err != nil {
		t.Fatalf("RecordSync: %v", err)
	}
	exp := model.DefaultExpenses()
	exp.Total = 4
	if err := h.RecordPeriod(ClosedPeriod{PersonaSlug: "ada", PeriodStart: now.AddDate(0, -1, 0), PeriodEnd: now, Revenue: 6, Expenses: exp, NetIncome: 2}); err != nil {
		t.Fatalf("RecordPeriod: %v", err)
	}

	if n, err := h.SyncCount("ada"); err != nil || n != 1 {
		t.Fatalf("SyncCount = %d, %v, want 1", n, err)
	}
	if n, err := h.PeriodCount("ada"); err != nil || n != 1 {
		t.Fatalf("PeriodCount = %d, %v, want 1", n, err)
	}
}

func TestSnapshotOf(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	st := model.NewEconomicState("ada", now)
	st.Vitality = &model.Vitality{Score: 0.42, Tier: "optimizing", Diagnosis: "zero_revenue", ComputedAt: now}

	s := SnapshotOf(st, "record-cost")
	if s.Tier != "optimizing" || s.Score != 0.42 || s.Operation != "record-cost" || s.PersonaSlug != "ada" {
		t.Fatalf("SnapshotOf = %+v", s)
	}
}

var _ Recorder = (*History)(nil)
var _ Recorder = (*Noop)(nil)
