package tui

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/config"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/economy"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/store"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/wallet"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	ledgerWindow  = 500
	historyWindow = 90
	syncTimeout   = 30 * time.Second
)

// dashboardData is everything the tabs render, read in one pass.
type dashboardData struct {
	report  economy.Report
	pl      economy.ProfitAndLoss
	entries []model.LedgerEntry
	history []store.Snapshot // newest first
}

// ServiceOpenedMsg is sent once the economy service has been built.
type ServiceOpenedMsg struct {
	Service *economy.Service
	Closer  io.Closer
	Err     error
}

// DataLoadedMsg is sent when a read of the persona's documents finishes.
type DataLoadedMsg struct {
	Data     dashboardData
	LoadTime time.Duration
	Err      error
}

// SyncDoneMsg is sent when a provider sync finishes.
type SyncDoneMsg struct {
	Results []wallet.SyncResult
	Err     error
}

func openCmd(open OpenFunc, cfg config.Config) tea.Cmd {
	return func() tea.Msg {
		svc, closer, err := open(cfg)
		return ServiceOpenedMsg{Service: svc, Closer: closer, Err: err}
	}
}

// loadDataCmd reads the dashboard in the background. Reads never persist.
func loadDataCmd(svc *economy.Service) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		d, err := fetchDashboard(svc)
		return DataLoadedMsg{Data: d, LoadTime: time.Since(start), Err: err}
	}
}

func fetchDashboard(svc *economy.Service) (dashboardData, error) {
	var d dashboardData
	var err error
	if d.report, err = svc.Status(); err != nil {
		return d, err
	}
	if d.pl, err = svc.ProfitAndLoss(); err != nil {
		return d, err
	}
	if d.entries, err = svc.Ledger(ledgerWindow); err != nil {
		return d, err
	}
	if d.history, err = svc.VitalityHistory(historyWindow); err != nil {
		return d, fmt.Errorf("reading history: %w", err)
	}
	return d, nil
}

func syncCmd(svc *economy.Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()
		res, err := svc.SyncAll(ctx)
		return SyncDoneMsg{Results: res, Err: err}
	}
}

func syncNotice(msg SyncDoneMsg) string {
	if msg.Err != nil {
		return "sync failed: " + msg.Err.Error()
	}
	if len(msg.Results) == 0 {
		return "no external providers enabled"
	}
	fresh := 0
	for _, r := range msg.Results {
		if r.IsFresh() {
			fresh++
		}
	}
	return fmt.Sprintf("synced %d/%d providers", fresh, len(msg.Results))
}
