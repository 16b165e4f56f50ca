// Package economy runs every economy operation against a persona's
// documents: load, mutate, track burn, score, persist, and archive.
package economy

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/config"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/identity"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/state"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/store"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/vitality"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/wallet"
)

var (
	// ErrProviderNotEnabled is returned for providers the identity has not
	// enabled.
	ErrProviderNotEnabled = errors.New("economy: provider not enabled (run wallet-connect)")
	// ErrUnknownModel is returned when token usage names a model with no
	// known or configured pricing.
	ErrUnknownModel = errors.New("economy: no pricing for model")
)

// PriceFunc resolves per-token pricing for a model.
type PriceFunc func(model string, at time.Time) (config.ModelPricing, bool)

// ChangeFunc observes every persisted mutation.
type ChangeFunc func(op string, st *model.EconomicState, r vitality.Result)

// Options configures a Service.
type Options struct {
	Location state.Location
	Fetchers wallet.FetcherOptions
	// History archives snapshots; nil disables archiving.
	History store.Recorder
	Pricing PriceFunc
	// Clock defaults to time.Now.
	Clock    func() time.Time
	OnChange ChangeFunc
}

// Service serializes operations on one persona within this process.
// Separate processes writing the same persona race with last write wins.
type Service struct {
	loc      state.Location
	fetchers wallet.FetcherOptions
	history  store.Recorder
	pricing  PriceFunc
	now      func() time.Time
	onChange ChangeFunc

	mu sync.Mutex
}

// New returns a Service for opts.Location.
func New(opts Options) *Service {
	s := &Service{
		loc:      opts.Location,
		fetchers: opts.Fetchers,
		history:  opts.History,
		pricing:  opts.Pricing,
		now:      opts.Clock,
		onChange: opts.OnChange,
	}
	if s.history == nil {
		s.history = store.NewNoop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.pricing == nil {
		s.pricing = config.DefaultConfig().PriceFor
	}
	return s
}

// Location returns the persona location the service operates on.
func (s *Service) Location() state.Location {
	return s.loc
}

// SetOnChange replaces the mutation observer.
func (s *Service) SetOnChange(fn ChangeFunc) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Outcome is the result of a persisted mutation.
type Outcome struct {
	Entry    *model.LedgerEntry `json:"entry,omitempty"`
	Vitality vitality.Result    `json:"vitality"`
	Balance  float64            `json:"operationalBalance"`
	Currency string             `json:"operationalCurrency"`
}

// mutateFunc applies one operation. Returning changed=false skips scoring
// and persistence.
type mutateFunc func(st *model.EconomicState, id *model.Identity, now time.Time) (changed bool, err error)

// mutate runs fn against freshly loaded documents, then rescores and
// persists the state when fn reports a change.
func (s *Service) mutate(op string, fn mutateFunc) (*model.EconomicState, vitality.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id, err := identity.LoadOrNil(s.loc)
	if err != nil {
		return nil, vitality.Result{}, err
	}
	st, err := state.Load(s.loc, now)
	if err != nil {
		return nil, vitality.Result{}, err
	}

	changed, err := fn(st, id, now)
	if err != nil {
		return nil, vitality.Result{}, err
	}

	res := vitality.Compute(vitality.InputFrom(st, id, now))
	if !changed {
		return st, res, nil
	}

	st.Vitality = res.Snapshot(now)
	if err := state.Save(s.loc, st, now); err != nil {
		return nil, vitality.Result{}, err
	}
	if err := s.history.RecordSnapshot(store.SnapshotOf(st, op)); err != nil {
		log.Printf("economy: recording %s snapshot: %v", op, err)
	}
	if s.onChange != nil {
		s.onChange(op, st, res)
	}
	return st, res, nil
}

// read loads the documents and scores them without persisting anything
// beyond a cold-start state.
func (s *Service) read() (*model.EconomicState, *model.Identity, vitality.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id, err := identity.LoadOrNil(s.loc)
	if err != nil {
		return nil, nil, vitality.Result{}, err
	}
	st, err := state.Load(s.loc, now)
	if err != nil {
		return nil, nil, vitality.Result{}, err
	}
	return st, id, vitality.Compute(vitality.InputFrom(st, id, now)), nil
}

func outcome(st *model.EconomicState, r vitality.Result, e *model.LedgerEntry) Outcome {
	return Outcome{
		Entry:    e,
		Vitality: r,
		Balance:  st.BalanceSheet.OperationalBalance,
		Currency: st.BalanceSheet.OperationalCurrency,
	}
}

// checkEnabled rejects providers the identity has not enabled. Local is
// always enabled.
func checkEnabled(id *model.Identity, p wallet.Provider) error {
	if p == wallet.Local || id.Enabled(string(p)) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrProviderNotEnabled, p)
}

// fetcherFor builds the live fetcher for p from the identity settings.
func (s *Service) fetcherFor(id *model.Identity, p wallet.Provider) (wallet.Fetcher, error) {
	var settings model.ProviderSettings
	if id != nil {
		settings = id.Providers[string(p)]
	}
	return wallet.NewFetcher(p, settings, s.fetchers)
}

func (s *Service) recordSync(slug string, r wallet.SyncResult) {
	err := s.history.RecordSync(store.SyncAttempt{
		PersonaSlug: slug,
		Provider:    string(r.Provider),
		SyncedAt:    r.At,
		Source:      string(r.Source),
		Balance:     r.Balance,
		Currency:    r.Currency,
		Reason:      r.Reason,
	})
	if err != nil {
		log.Printf("economy: recording %s sync: %v", r.Provider, err)
	}
}
