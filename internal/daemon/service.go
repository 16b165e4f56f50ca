// Package daemon provides the long-running background sync service.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/economy"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/store"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/vitality"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/wallet"

	"github.com/robfig/cron/v3"
)

// Config controls the daemon runtime behavior.
type Config struct {
	PersonaSlug         string
	Addr                string
	SyncSchedule        string
	PeriodCloseSchedule string
	EventsBuffer        int
}

// Economy is the part of economy.Service the daemon drives.
type Economy interface {
	Status() (economy.Report, error)
	SyncAll(ctx context.Context) ([]wallet.SyncResult, error)
	ClosePeriod() (store.ClosedPeriod, error)
	SetOnChange(fn economy.ChangeFunc)
}

// Snapshot is a compact vitality state for status/event payloads.
type Snapshot struct {
	At              time.Time `json:"at"`
	Score           float64   `json:"score"`
	Tier            string    `json:"tier"`
	Diagnosis       string    `json:"diagnosis"`
	Trend           string    `json:"trend"`
	DaysToDepletion float64   `json:"days_to_depletion"`
	Balance         float64   `json:"balance"`
	Currency        string    `json:"currency"`
	DailyBurnRate   float64   `json:"daily_burn_rate"`
}

// Delta captures snapshot deltas between updates.
type Delta struct {
	Score           float64 `json:"score"`
	Balance         float64 `json:"balance"`
	DaysToDepletion float64 `json:"days_to_depletion"`
	TierChanged     bool    `json:"tier_changed"`
}

func (d Delta) isZero() bool {
	return d.Score == 0 &&
		d.Balance == 0 &&
		d.DaysToDepletion == 0 &&
		!d.TierChanged
}

// Event is emitted whenever the vitality snapshot changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Operation string    `json:"operation,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Event types.
const (
	EventSnapshot   = "snapshot"
	EventVitality   = "vitality_delta"
	EventTierChange = "tier_change"
)

// Status is served at /v1/status.
type Status struct {
	StartedAt           time.Time           `json:"started_at"`
	LastSyncAt          time.Time           `json:"last_sync_at"`
	SyncSchedule        string              `json:"sync_schedule"`
	PeriodCloseSchedule string              `json:"period_close_schedule,omitempty"`
	NextSyncAt          time.Time           `json:"next_sync_at"`
	SyncCount           int64               `json:"sync_count"`
	PeriodsClosed       int64               `json:"periods_closed"`
	PersonaSlug         string              `json:"persona_slug"`
	Summary             Snapshot            `json:"summary"`
	LastSync            []wallet.SyncResult `json:"last_sync,omitempty"`
	LastError           string              `json:"last_error,omitempty"`
	EventCount          int                 `json:"event_count"`
	SubscriberCount     int                 `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg  Config
	econ Economy
	cron *cron.Cron

	mu            sync.RWMutex
	startedAt     time.Time
	lastSyncAt    time.Time
	syncCount     int64
	periodsClosed int64
	lastSync      []wallet.SyncResult
	lastError     string
	hasSnapshot   bool
	snapshot      Snapshot
	nextEventID   int64
	events        []Event
	syncEntry     cron.EntryID

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service with the provided config.
func New(cfg Config, econ Economy) *Service {
	if cfg.SyncSchedule == "" {
		cfg.SyncSchedule = "@every 15m"
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8797"
	}

	s := &Service{
		cfg:       cfg,
		econ:      econ,
		cron:      cron.New(),
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
	if econ != nil {
		econ.SetOnChange(s.observe)
	}
	return s
}

// schedule registers the sync and period-close jobs.
func (s *Service) schedule(ctx context.Context) error {
	id, err := s.cron.AddFunc(s.cfg.SyncSchedule, func() { s.syncOnce(ctx) })
	if err != nil {
		return fmt.Errorf("register sync schedule %q: %w", s.cfg.SyncSchedule, err)
	}
	s.mu.Lock()
	s.syncEntry = id
	s.mu.Unlock()

	if s.cfg.PeriodCloseSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.PeriodCloseSchedule, s.closePeriod); err != nil {
			return fmt.Errorf("register period close schedule %q: %w", s.cfg.PeriodCloseSchedule, err)
		}
	}
	return nil
}

// Run starts HTTP endpoints and the schedules until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.schedule(ctx); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Seed initial snapshot so status is useful immediately.
	s.refresh("start")
	s.syncOnce(ctx)

	s.cron.Start()
	log.Printf("economy daemon started for %s (sync %s)", s.cfg.PersonaSlug, s.cfg.SyncSchedule)
	defer func() {
		<-s.cron.Stop().Done()
		log.Println("economy daemon stopped")
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("daemon http server: %w", err)
	}
}

func (s *Service) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/stream", s.handleStream)
	return mux
}

// syncOnce syncs every enabled provider. Provider failures arrive as
// cached results; only document errors are reported.
func (s *Service) syncOnce(ctx context.Context) {
	results, err := s.econ.SyncAll(ctx)

	s.mu.Lock()
	s.lastSyncAt = time.Now()
	s.syncCount++
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
		s.lastSync = results
	}
	s.mu.Unlock()

	if err != nil {
		log.Printf("economy daemon sync error: %v", err)
		return
	}
	for _, r := range results {
		if !r.IsFresh() {
			log.Printf("economy daemon: %s served from cache: %s", r.Provider, r.Reason)
		}
	}
}

func (s *Service) closePeriod() {
	closed, err := s.econ.ClosePeriod()
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.mu.Unlock()
		log.Printf("economy daemon close-period error: %v", err)
		return
	}
	s.mu.Lock()
	s.periodsClosed++
	s.mu.Unlock()
	log.Printf("economy daemon closed period %s (net %.6f)",
		closed.PeriodStart.Format(time.RFC3339), closed.NetIncome)
}

// refresh scores the current documents and publishes the result.
func (s *Service) refresh(op string) {
	r, err := s.econ.Status()
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.mu.Unlock()
		log.Printf("economy daemon status error: %v", err)
		return
	}
	s.update(op, snapshotFromResult(r.Vitality, r.OperationalCurrency, time.Now()))
}

// observe receives every persisted mutation from the economy service.
func (s *Service) observe(op string, st *model.EconomicState, res vitality.Result) {
	s.update(op, snapshotFromResult(res, st.BalanceSheet.OperationalCurrency, time.Now()))
}

func (s *Service) update(op string, snap Snapshot) {
	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap

	if !prevExists {
		s.nextEventID++
		ev = Event{
			ID:        s.nextEventID,
			Type:      EventSnapshot,
			Operation: op,
			Timestamp: snap.At,
			Snapshot:  snap,
		}
		publish = true
	} else {
		delta := diffSnapshots(prev, snap)
		if !delta.isZero() {
			s.nextEventID++
			typ := EventVitality
			if delta.TierChanged {
				typ = EventTierChange
			}
			ev = Event{
				ID:        s.nextEventID,
				Type:      typ,
				Operation: op,
				Timestamp: snap.At,
				Snapshot:  snap,
				Delta:     delta,
			}
			publish = true
		}
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
}

func snapshotFromResult(r vitality.Result, currency string, at time.Time) Snapshot {
	return Snapshot{
		At:              at,
		Score:           r.FHS,
		Tier:            string(r.Tier),
		Diagnosis:       r.Diagnosis,
		Trend:           string(r.TrendDirection),
		DaysToDepletion: r.DaysToDepletion,
		Balance:         r.Balance,
		Currency:        currency,
		DailyBurnRate:   r.DailyBurnRate,
	}
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Score:           model.RoundAmount(curr.Score - prev.Score),
		Balance:         model.RoundAmount(curr.Balance - prev.Balance),
		DaysToDepletion: model.RoundAmount(curr.DaysToDepletion - prev.DaysToDepletion),
		TierChanged:     curr.Tier != prev.Tier,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var next time.Time
	if s.syncEntry != 0 {
		next = s.cron.Entry(s.syncEntry).Next
	}

	return Status{
		StartedAt:           s.startedAt,
		LastSyncAt:          s.lastSyncAt,
		SyncSchedule:        s.cfg.SyncSchedule,
		PeriodCloseSchedule: s.cfg.PeriodCloseSchedule,
		NextSyncAt:          next,
		SyncCount:           s.syncCount,
		PeriodsClosed:       s.periodsClosed,
		PersonaSlug:         s.cfg.PersonaSlug,
		Summary:             s.snapshot,
		LastSync:            s.lastSync,
		LastError:           s.lastError,
		EventCount:          len(s.events),
		SubscriberCount:     len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      EventSnapshot,
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
