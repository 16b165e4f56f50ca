package economy

import (
	"context"
	"fmt"
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

// InitResult reports what wallet-init created.
type InitResult struct {
	Identity        *model.Identity `json:"identity"`
	IdentityCreated bool            `json:"identityCreated"`
	StateCreated    bool            `json:"stateCreated"`
	StatePath       string          `json:"statePath"`
}

// InitWallet creates the identity and state documents if missing.
// Existing documents are left untouched.
func (s *Service) InitWallet() (InitResult, error) {
	if err := s.loc.Validate(); err != nil {
		return InitResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id, created, err := identity.Init(s.loc, now)
	if err != nil {
		return InitResult{}, err
	}
	existed := state.Exists(s.loc)
	if _, err := state.Load(s.loc, now); err != nil {
		return InitResult{}, err
	}
	return InitResult{
		Identity:        id,
		IdentityCreated: created,
		StateCreated:    !existed,
		StatePath:       s.loc.StatePath(),
	}, nil
}

// ConnectResult reports an enabled provider and its first sync.
type ConnectResult struct {
	Provider wallet.Provider        `json:"provider"`
	Settings model.ProviderSettings `json:"settings"`
	Sync     wallet.SyncResult      `json:"sync"`
	Vitality vitality.Result        `json:"vitality"`
}

// ConnectProvider enables p in the identity (creating the identity if
// needed), marks it connected, and attempts a first sync. A failed sync
// still connects the provider.
func (s *Service) ConnectProvider(ctx context.Context, p wallet.Provider, settings model.ProviderSettings) (ConnectResult, error) {
	if !p.Syncable() {
		return ConnectResult{}, fmt.Errorf("%w: %s is always enabled", wallet.ErrNotSyncable, p)
	}
	if err := s.loc.Validate(); err != nil {
		return ConnectResult{}, err
	}

	out := ConnectResult{Provider: p}
	id, err := s.enable(p, settings)
	if err != nil {
		return ConnectResult{}, err
	}
	out.Settings = id.Providers[string(p)]

	_, res, err := s.mutate("wallet-connect", func(st *model.EconomicState, id *model.Identity, now time.Time) (bool, error) {
		wallet.MarkConnected(&st.BalanceSheet, p, out.Settings.Address)
		out.Sync = s.syncOne(ctx, st, id, p, now)
		return true, nil
	})
	if err != nil {
		return ConnectResult{}, err
	}
	out.Vitality = res
	return out, nil
}

// enable turns p on in the identity document, creating it if needed.
// CDP and onchain default to the persona's derived address.
func (s *Service) enable(p wallet.Provider, settings model.ProviderSettings) (*model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, _, err := identity.Init(s.loc, s.now())
	if err != nil {
		return nil, err
	}
	if settings.Address == "" && (p == wallet.CoinbaseCDP || p == wallet.Onchain) && id.Providers[string(p)].Address == "" {
		settings.Address = id.WalletAddress
	}
	identity.Enable(id, p, settings)
	if err := identity.Save(s.loc, id); err != nil {
		return nil, err
	}
	return id, nil
}

// SetPrimary makes p the primary provider in both documents.
func (s *Service) SetPrimary(p wallet.Provider) (Outcome, error) {
	st, res, err := s.mutate("set-primary", func(st *model.EconomicState, id *model.Identity, _ time.Time) (bool, error) {
		if err := checkEnabled(id, p); err != nil {
			return false, err
		}
		if id != nil && id.PrimaryProvider != string(p) {
			id.PrimaryProvider = string(p)
			if err := identity.Save(s.loc, id); err != nil {
				return false, err
			}
		}
		wallet.SetPrimary(&st.BalanceSheet, p)
		return true, nil
	})
	if err != nil {
		return Outcome{}, err
	}
	return outcome(st, res, nil), nil
}

// Sync refreshes p's cached balance. Provider failures never surface as
// errors; they come back as a Cached result.
func (s *Service) Sync(ctx context.Context, p wallet.Provider) (wallet.SyncResult, error) {
	if !p.Syncable() {
		return wallet.SyncResult{}, fmt.Errorf("%w: %s", wallet.ErrNotSyncable, p)
	}
	var out wallet.SyncResult
	_, _, err := s.mutate("sync", func(st *model.EconomicState, id *model.Identity, now time.Time) (bool, error) {
		if err := checkEnabled(id, p); err != nil {
			return false, err
		}
		out = s.syncOne(ctx, st, id, p, now)
		return true, nil
	})
	return out, err
}

// SyncAll syncs every enabled external provider in display order and
// persists once.
func (s *Service) SyncAll(ctx context.Context) ([]wallet.SyncResult, error) {
	var out []wallet.SyncResult
	_, _, err := s.mutate("sync", func(st *model.EconomicState, id *model.Identity, now time.Time) (bool, error) {
		for _, p := range wallet.All {
			if !p.Syncable() || !id.Enabled(string(p)) {
				continue
			}
			out = append(out, s.syncOne(ctx, st, id, p, now))
		}
		return len(out) > 0, nil
	})
	return out, err
}

func (s *Service) syncOne(ctx context.Context, st *model.EconomicState, id *model.Identity, p wallet.Provider, now time.Time) wallet.SyncResult {
	if ctx == nil {
		ctx = context.Background()
	}
	f, err := s.fetcherFor(id, p)
	res := wallet.Sync(ctx, &st.BalanceSheet, p, f, now)
	if err != nil {
		res.Reason = err.Error()
	}
	s.recordSync(st.PersonaSlug, res)
	return res
}

// Deposit funds the local budget.
func (s *Service) Deposit(d ledger.Deposit) (Outcome, error) {
	var entry model.LedgerEntry
	st, res, err := s.mutate("deposit", func(st *model.EconomicState, _ *model.Identity, now time.Time) (bool, error) {
		var err error
		entry, err = ledger.RecordDeposit(st, d, now)
		return err == nil, err
	})
	if err != nil {
		return Outcome{}, err
	}
	return outcome(st, res, &entry), nil
}

// RecordCost records an expense and samples the burn rate.
func (s *Service) RecordCost(c ledger.Cost) (Outcome, error) {
	var entry model.LedgerEntry
	st, res, err := s.mutate("record-cost", func(st *model.EconomicState, _ *model.Identity, now time.Time) (bool, error) {
		var err error
		entry, err = ledger.RecordCost(st, c, now)
		if err != nil {
			return false, err
		}
		vitality.Track(st, now)
		return true, nil
	})
	if err != nil {
		return Outcome{}, err
	}
	return outcome(st, res, &entry), nil
}

// InferenceOutcome is the result of pricing and recording token usage.
type InferenceOutcome struct {
	Model    string               `json:"model"`
	Cost     config.InferenceCost `json:"cost"`
	Entries  []model.LedgerEntry  `json:"entries"`
	Vitality vitality.Result      `json:"vitality"`
	Balance  float64              `json:"operationalBalance"`
	Currency string               `json:"operationalCurrency"`
}

// RecordInference prices token usage for modelName and records each
// non-zero part under inference.llm.{input,output,thinking}. One burn-rate
// sample is taken for the whole call.
func (s *Service) RecordInference(modelName string, u config.TokenUsage, note string) (InferenceOutcome, error) {
	out := InferenceOutcome{Model: config.NormalizeModelName(modelName)}
	st, res, err := s.mutate("record-cost", func(st *model.EconomicState, _ *model.Identity, now time.Time) (bool, error) {
		p, ok := s.pricing(modelName, now)
		if !ok {
			return false, fmt.Errorf("%w: %q", ErrUnknownModel, modelName)
		}
		out.Cost = config.CalculateCost(p, u)
		if out.Cost.Total() <= 0 {
			return false, ledger.ErrInvalidAmount
		}

		parts := []struct {
			channel string
			amount  float64
		}{
			{"inference.llm.input", out.Cost.Input},
			{"inference.llm.output", out.Cost.Output},
			{"inference.llm.thinking", out.Cost.Thinking},
		}
		for _, part := range parts {
			if model.RoundAmount(part.amount) <= 0 {
				continue
			}
			e, err := ledger.RecordCost(st, ledger.Cost{Channel: part.channel, Amount: part.amount, Note: note}, now)
			if err != nil {
				return false, err
			}
			out.Entries = append(out.Entries, e)
		}
		if len(out.Entries) == 0 {
			return false, ledger.ErrInvalidAmount
		}
		vitality.Track(st, now)
		return true, nil
	})
	if err != nil {
		return InferenceOutcome{}, err
	}
	out.Vitality = res
	out.Balance = st.BalanceSheet.OperationalBalance
	out.Currency = st.BalanceSheet.OperationalCurrency
	return out, nil
}

// IncomeOutcome reports income recording. Vitality is only set when the
// income was recorded.
type IncomeOutcome struct {
	ledger.IncomeResult
	Vitality *vitality.Result `json:"vitality,omitempty"`
}

// RecordIncome records confirmed income above the quality threshold.
// Income that is not recorded leaves the document untouched.
func (s *Service) RecordIncome(in ledger.Income) (IncomeOutcome, error) {
	var out IncomeOutcome
	_, res, err := s.mutate("record-income", func(st *model.EconomicState, _ *model.Identity, now time.Time) (bool, error) {
		var err error
		out.IncomeResult, err = ledger.RecordIncome(st, in, now)
		if err != nil {
			return false, err
		}
		return out.Recorded, nil
	})
	if err != nil {
		return IncomeOutcome{}, err
	}
	if out.Recorded {
		out.Vitality = &res
	}
	return out, nil
}

// ProviderBalance is one provider's cached balance.
type ProviderBalance struct {
	Provider  wallet.Provider `json:"provider"`
	Enabled   bool            `json:"enabled"`
	Connected bool            `json:"connected"`
	Primary   bool            `json:"primary"`
	Balance   float64         `json:"balance"`
	Currency  string          `json:"currency"`
	LastSync  *time.Time      `json:"lastSyncAt,omitempty"`
}

// Report is the read-only view behind status and balance.
type Report struct {
	PersonaSlug         string                 `json:"personaSlug"`
	WalletAddress       string                 `json:"walletAddress,omitempty"`
	PrimaryProvider     string                 `json:"primaryProvider"`
	OperationalBalance  float64                `json:"operationalBalance"`
	OperationalCurrency string                 `json:"operationalCurrency"`
	Providers           []ProviderBalance      `json:"providers"`
	Period              model.Period           `json:"currentPeriod"`
	AllTime             model.AllTime          `json:"allTime"`
	Vitality            vitality.Result        `json:"vitality"`
	BurnRateHistory     []model.BurnRateSample `json:"burnRateHistory"`
	MigratedFrom        string                 `json:"migratedFrom,omitempty"`
	LastUpdatedAt       time.Time              `json:"lastUpdatedAt"`
}

// Status scores the current documents without persisting.
func (s *Service) Status() (Report, error) {
	st, id, res, err := s.read()
	if err != nil {
		return Report{}, err
	}
	return report(st, id, res), nil
}

func report(st *model.EconomicState, id *model.Identity, res vitality.Result) Report {
	bs := &st.BalanceSheet
	r := Report{
		PersonaSlug:         st.PersonaSlug,
		PrimaryProvider:     bs.PrimaryProvider,
		OperationalBalance:  bs.OperationalBalance,
		OperationalCurrency: bs.OperationalCurrency,
		Period:              st.IncomeStatement.CurrentPeriod,
		AllTime:             st.IncomeStatement.AllTime,
		Vitality:            res,
		BurnRateHistory:     st.BurnRateHistory,
		MigratedFrom:        st.MigratedFrom,
		LastUpdatedAt:       st.LastUpdatedAt,
	}
	if id != nil {
		r.WalletAddress = id.WalletAddress
	}
	primary := wallet.Primary(bs)
	for _, p := range wallet.All {
		r.Providers = append(r.Providers, ProviderBalance{
			Provider:  p,
			Enabled:   id.Enabled(string(p)),
			Connected: connected(bs, p),
			Primary:   p == primary,
			Balance:   wallet.Balance(bs, p),
			Currency:  wallet.Currency(bs, p),
			LastSync:  wallet.LastSync(bs, p),
		})
	}
	return r
}

func connected(bs *model.BalanceSheet, p wallet.Provider) bool {
	ps := &bs.Assets.Providers
	switch p {
	case wallet.Local:
		return true
	case wallet.CoinbaseCDP:
		return ps.CoinbaseCDP.Connected
	case wallet.ACN:
		return ps.ACN.Connected
	case wallet.Onchain:
		return ps.Onchain.Connected
	}
	return false
}

// Tier scores the current documents without persisting.
func (s *Service) Tier() (vitality.Result, error) {
	_, _, res, err := s.read()
	return res, err
}

// ProfitAndLoss is the income statement view.
type ProfitAndLoss struct {
	PersonaSlug   string        `json:"personaSlug"`
	Currency      string        `json:"currency"`
	Period        model.Period  `json:"currentPeriod"`
	DaysElapsed   float64       `json:"daysElapsed"`
	DailyBurnRate float64       `json:"dailyBurnRate"`
	DominantCost  string        `json:"dominantCost"`
	AllTime       model.AllTime `json:"allTime"`
	Equity        float64       `json:"accumulatedNetIncome"`
}

// ProfitAndLoss reports the current period and lifetime totals.
func (s *Service) ProfitAndLoss() (ProfitAndLoss, error) {
	st, _, res, err := s.read()
	if err != nil {
		return ProfitAndLoss{}, err
	}
	period := st.IncomeStatement.CurrentPeriod
	return ProfitAndLoss{
		PersonaSlug:   st.PersonaSlug,
		Currency:      st.BalanceSheet.OperationalCurrency,
		Period:        period,
		DaysElapsed:   vitality.DaysElapsed(period.PeriodStart, s.now()),
		DailyBurnRate: res.DailyBurnRate,
		DominantCost:  res.DominantCost,
		AllTime:       st.IncomeStatement.AllTime,
		Equity:        st.BalanceSheet.Equity.AccumulatedNetIncome,
	}, nil
}

// Ledger returns up to limit entries, newest first. A non-positive limit
// returns all of them.
func (s *Service) Ledger(limit int) ([]model.LedgerEntry, error) {
	st, _, _, err := s.read()
	if err != nil {
		return nil, err
	}
	return ledger.Recent(st, limit), nil
}

// ClosePeriod starts a new accounting period and archives the closed one.
func (s *Service) ClosePeriod() (store.ClosedPeriod, error) {
	var closed store.ClosedPeriod
	_, _, err := s.mutate("close-period", func(st *model.EconomicState, _ *model.Identity, now time.Time) (bool, error) {
		p := ledger.ClosePeriod(st, now)
		closed = store.ClosedPeriod{
			PersonaSlug: st.PersonaSlug,
			PeriodStart: p.PeriodStart,
			PeriodEnd:   now.UTC(),
			Revenue:     p.Revenue,
			Expenses:    p.Expenses,
			NetIncome:   p.NetIncome,
		}
		return true, nil
	})
	if err != nil {
		return store.ClosedPeriod{}, err
	}
	if err := s.history.RecordPeriod(closed); err != nil {
		return closed, fmt.Errorf("archiving period: %w", err)
	}
	return closed, nil
}

// VitalityHistory returns archived snapshots, newest first.
func (s *Service) VitalityHistory(limit int) ([]store.Snapshot, error) {
	if err := s.loc.Validate(); err != nil {
		return nil, err
	}
	return s.history.Snapshots(s.loc.Slug, limit)
}
