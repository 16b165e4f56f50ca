package economy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/config"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/identity"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/ledger"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/state"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/store"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/vitality"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/wallet"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts Options) (*Service, *store.History) {
	t.Helper()
	dir := t.TempDir()
	h, err := store.Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })

	opts.Location = state.Location{Slug: "ada", Dir: dir}
	opts.History = h
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return testNow }
	}
	if opts.Fetchers.Getenv == nil {
		opts.Fetchers.Getenv = func(string) string { return "" }
	}
	return New(opts), h
}

func TestColdStartStatus(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	r, err := svc.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if r.Vitality.Tier != vitality.TierSuspended || r.Vitality.Diagnosis != vitality.DiagUnfunded {
		t.Fatalf("tier/diagnosis = %s/%s, want suspended/unfunded", r.Vitality.Tier, r.Vitality.Diagnosis)
	}
	if r.PrimaryProvider != "local" || len(r.Providers) != len(wallet.All) {
		t.Fatalf("primary = %s, providers = %d", r.PrimaryProvider, len(r.Providers))
	}
	if r.WalletAddress != "" {
		t.Fatalf("WalletAddress = %q before wallet-init", r.WalletAddress)
	}
}

func TestInitWalletIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	first, err := svc.InitWallet()
	if err != nil {
		t.Fatalf("InitWallet: %v", err)
	}
	if !first.IdentityCreated || !first.StateCreated {
		t.Fatalf("first init = %+v, want both created", first)
	}
	second, err := svc.InitWallet()
	if err != nil {
		t.Fatalf("InitWallet: %v", err)
	}
	if second.IdentityCreated || second.StateCreated {
		t.Fatalf("second init = %+v, want nothing created", second)
	}
	if second.Identity.WalletAddress != identity.WalletAddress("ada") {
		t.Fatalf("address = %s", second.Identity.WalletAddress)
	}
}

func TestDepositAndCostPersistAndArchive(t *testing.T) {
	svc, h := newTestService(t, Options{})

	dep, err := svc.Deposit(ledger.Deposit{Amount: 10})
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if dep.Balance != 10 || dep.Entry == nil || dep.Entry.Type != model.EntryDeposit {
		t.Fatalf("deposit outcome = %+v", dep)
	}

	cost, err := svc.RecordCost(ledger.Cost{Channel: "runtime.compute", Amount: 2})
	if err != nil {
		t.Fatalf("RecordCost: %v", err)
	}
	if cost.Balance != 8 {
		t.Fatalf("balance = %v, want 8", cost.Balance)
	}
	// 8 / (2 per day) = 4 days of runway.
	if cost.Vitality.DaysToDepletion != 4 || cost.Vitality.Diagnosis != vitality.DiagCriticalRunway {
		t.Fatalf("days/diagnosis = %v/%s, want 4/critical_runway", cost.Vitality.DaysToDepletion, cost.Vitality.Diagnosis)
	}

	st, err := state.Load(svc.Location(), testNow)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(st.Ledger) != 2 || len(st.BurnRateHistory) != 1 {
		t.Fatalf("ledger = %d, burn samples = %d, want 2 and 1", len(st.Ledger), len(st.BurnRateHistory))
	}
	if st.Vitality == nil || st.Vitality.Diagnosis != vitality.DiagCriticalRunway {
		t.Fatalf("persisted vitality = %+v", st.Vitality)
	}

	snaps, err := h.Snapshots("ada", 10)
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if len(snaps) != 2 || snaps[0].Operation != "record-cost" {
		t.Fatalf("snapshots = %+v, want 2 with record-cost newest", snaps)
	}
}

func TestCorruptIdentityKeepsLocalScoring(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	if _, err := svc.InitWallet(); err != nil {
		t.Fatalf("InitWallet: %v", err)
	}
	if _, err := svc.Deposit(ledger.Deposit{Amount: 10}); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if err := os.WriteFile(svc.Location().IdentityPath(), []byte("{garbage"), 0o600); err != nil {
		t.Fatal(err)
	}

	r, err := svc.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if r.OperationalBalance != 10 || r.PrimaryProvider != "local" {
		t.Fatalf("report = %s %v, want local 10", r.PrimaryProvider, r.OperationalBalance)
	}

	cost, err := svc.RecordCost(ledger.Cost{Channel: "runtime.compute", Amount: 2})
	if err != nil {
		t.Fatalf("RecordCost: %v", err)
	}
	if cost.Balance != 8 {
		t.Fatalf("balance = %v, want 8", cost.Balance)
	}
	if _, err := svc.Tier(); err != nil {
		t.Fatalf("Tier: %v", err)
	}
}

func TestInvalidCostLeavesStateUntouched(t *testing.T) {
	svc, h := newTestService(t, Options{})

	if _, err := svc.RecordCost(ledger.Cost{Channel: "skill", Amount: -1}); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
	entries, err := svc.Ledger(0)
	if err != nil {
		t.Fatalf("Ledger: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("ledger = %d entries, want 0", len(entries))
	}
	snaps, _ := h.Snapshots("ada", 10)
	if len(snaps) != 0 {
		t.Fatalf("snapshots = %d, want 0", len(snaps))
	}
}

func TestIncomeNotRecordedSkipsSave(t *testing.T) {
	var changes int
	svc, _ := newTestService(t, Options{
		OnChange: func(string, *model.EconomicState, vitality.Result) { changes++ },
	})

	out, err := svc.RecordIncome(ledger.Income{Amount: 5, Quality: 0.9})
	if err != nil {
		t.Fatalf("RecordIncome: %v", err)
	}
	if out.Recorded || out.Reason != ledger.ReasonUnconfirmed || out.Vitality != nil {
		t.Fatalf("outcome = %+v, want unconfirmed", out)
	}
	if changes != 0 {
		t.Fatalf("OnChange called %d times, want 0", changes)
	}

	out, err = svc.RecordIncome(ledger.Income{Amount: 5, Quality: 0.9, Confirmed: true, TaskID: "t-1"})
	if err != nil {
		t.Fatalf("RecordIncome: %v", err)
	}
	if !out.Recorded || out.Vitality == nil {
		t.Fatalf("outcome = %+v, want recorded", out)
	}
	if changes != 1 {
		t.Fatalf("OnChange called %d times, want 1", changes)
	}
}

func acnServer(t *testing.T, credits string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer acn-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"credits": ` + credits + `}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestConnectSyncAndSetPrimary(t *testing.T) {
	srv := acnServer(t, "120.5")
	svc, h := newTestService(t, Options{
		Fetchers: wallet.FetcherOptions{
			ACNEndpoint: srv.URL,
			HTTPClient:  srv.Client(),
			Getenv: func(name string) string {
				if name == wallet.DefaultACNCredentialEnv {
					return "acn-key"
				}
				return ""
			},
		},
	})
	ctx := context.Background()

	if _, err := svc.SetPrimary(wallet.ACN); !errors.Is(err, ErrProviderNotEnabled) {
		t.Fatalf("SetPrimary before connect err = %v, want ErrProviderNotEnabled", err)
	}

	res, err := svc.ConnectProvider(ctx, wallet.ACN, model.ProviderSettings{AgentID: "agent-7"})
	if err != nil {
		t.Fatalf("ConnectProvider: %v", err)
	}
	if !res.Sync.IsFresh() || res.Sync.Balance != 120.5 {
		t.Fatalf("sync = %+v, want fresh 120.5", res.Sync)
	}
	// An enabled external provider means the persona is funded.
	if res.Vitality.Diagnosis == vitality.DiagUnfunded {
		t.Fatalf("diagnosis = unfunded with acn enabled")
	}

	out, err := svc.SetPrimary(wallet.ACN)
	if err != nil {
		t.Fatalf("SetPrimary: %v", err)
	}
	if out.Balance != 120.5 || out.Currency != "credits" {
		t.Fatalf("operational = %v %s, want 120.5 credits", out.Balance, out.Currency)
	}
	id, err := identity.Load(svc.Location())
	if err != nil {
		t.Fatalf("identity.Load: %v", err)
	}
	if id.PrimaryProvider != "acn" {
		t.Fatalf("identity primary = %s, want acn", id.PrimaryProvider)
	}

	results, err := svc.SyncAll(ctx)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if len(results) != 1 || results[0].Provider != wallet.ACN {
		t.Fatalf("SyncAll = %+v, want one acn result", results)
	}
	if n, _ := h.SyncCount("ada"); n != 2 {
		t.Fatalf("SyncCount = %d, want 2", n)
	}
}

func TestSyncFailureFallsBackToCache(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	res, err := svc.ConnectProvider(context.Background(), wallet.CoinbaseCDP, model.ProviderSettings{})
	if err != nil {
		t.Fatalf("ConnectProvider: %v", err)
	}
	if res.Sync.Source != wallet.Cached || !strings.Contains(res.Sync.Reason, "missing credentials") {
		t.Fatalf("sync = %+v, want cached missing credentials", res.Sync)
	}
	if res.Settings.Address != identity.WalletAddress("ada") {
		t.Fatalf("address = %s, want derived address", res.Settings.Address)
	}

	sync, err := svc.Sync(context.Background(), wallet.CoinbaseCDP)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if sync.IsFresh() {
		t.Fatalf("sync = %+v, want cached", sync)
	}
}

func TestSyncRejectsLocalAndDisabled(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	if _, err := svc.Sync(ctx, wallet.Local); !errors.Is(err, wallet.ErrNotSyncable) {
		t.Fatalf("Sync(local) err = %v, want ErrNotSyncable", err)
	}
	if _, err := svc.Sync(ctx, wallet.ACN); !errors.Is(err, ErrProviderNotEnabled) {
		t.Fatalf("Sync(acn) err = %v, want ErrProviderNotEnabled", err)
	}
	if _, err := svc.ConnectProvider(ctx, wallet.Local, model.ProviderSettings{}); !errors.Is(err, wallet.ErrNotSyncable) {
		t.Fatalf("ConnectProvider(local) err = %v, want ErrNotSyncable", err)
	}
	results, err := svc.SyncAll(ctx)
	if err != nil || len(results) != 0 {
		t.Fatalf("SyncAll = %v, %v, want nothing", results, err)
	}
}

func TestRecordInferencePricesTokens(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	if _, err := svc.Deposit(ledger.Deposit{Amount: 100}); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	out, err := svc.RecordInference("claude-sonnet-4-20250514", config.TokenUsage{Input: 1_000_000, Output: 200_000}, "")
	if err != nil {
		t.Fatalf("RecordInference: %v", err)
	}
	if out.Model != "claude-sonnet-4" {
		t.Fatalf("Model = %s", out.Model)
	}
	if len(out.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(out.Entries))
	}
	if out.Entries[0].Channel != "inference.llm.input" || out.Entries[0].Amount != 3 {
		t.Fatalf("input entry = %+v, want 3 on inference.llm.input", out.Entries[0])
	}
	if out.Cost.Total() != 6 || out.Balance != 94 {
		t.Fatalf("total = %v, balance = %v, want 6 and 94", out.Cost.Total(), out.Balance)
	}
	if out.Vitality.DominantCost != "inference" {
		t.Fatalf("dominant = %s, want inference", out.Vitality.DominantCost)
	}

	if _, err := svc.RecordInference("mystery-model", config.TokenUsage{Input: 10}, ""); !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("err = %v, want ErrUnknownModel", err)
	}
	if _, err := svc.RecordInference("gpt-4o", config.TokenUsage{}, ""); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
}

func TestClosePeriodArchives(t *testing.T) {
	now := testNow
	svc, h := newTestService(t, Options{Clock: func() time.Time { return now }})

	if _, err := svc.Deposit(ledger.Deposit{Amount: 20}); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if _, err := svc.RecordCost(ledger.Cost{Channel: "faculty", Amount: 4}); err != nil {
		t.Fatalf("RecordCost: %v", err)
	}

	now = now.Add(48 * time.Hour)
	closed, err := svc.ClosePeriod()
	if err != nil {
		t.Fatalf("ClosePeriod: %v", err)
	}
	if closed.Expenses.Total != 4 || closed.NetIncome != -4 || !closed.PeriodEnd.Equal(now) {
		t.Fatalf("closed = %+v", closed)
	}
	if n, _ := h.PeriodCount("ada"); n != 1 {
		t.Fatalf("PeriodCount = %d, want 1", n)
	}

	pl, err := svc.ProfitAndLoss()
	if err != nil {
		t.Fatalf("ProfitAndLoss: %v", err)
	}
	if pl.Period.Expenses.Total != 0 || pl.AllTime.TotalExpenses != 4 || pl.Equity != -4 {
		t.Fatalf("pl = %+v", pl)
	}
	if !pl.Period.PeriodStart.Equal(now) {
		t.Fatalf("period start = %v, want %v", pl.Period.PeriodStart, now)
	}

	snaps, err := svc.VitalityHistory(1)
	if err != nil {
		t.Fatalf("VitalityHistory: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Operation != "close-period" {
		t.Fatalf("history = %+v", snaps)
	}
}

func TestReadsDoNotArchive(t *testing.T) {
	svc, h := newTestService(t, Options{})

	if _, err := svc.Tier(); err != nil {
		t.Fatalf("Tier: %v", err)
	}
	if _, err := svc.ProfitAndLoss(); err != nil {
		t.Fatalf("ProfitAndLoss: %v", err)
	}
	snaps, _ := h.Snapshots("ada", 10)
	if len(snaps) != 0 {
		t.Fatalf("snapshots = %d, want 0", len(snaps))
	}
}
