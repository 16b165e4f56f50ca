// Package tui provides the interactive Bubble Tea dashboard for a persona's
// economy: balances, the income statement, the ledger, and vitality history.
package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/config"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/economy"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/tui/components"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// OpenFunc builds the economy service for cfg. The closer releases the
// history archive behind it.
type OpenFunc func(cfg config.Config) (*economy.Service, io.Closer, error)

// App is the root Bubble Tea model.
type App struct {
	cfg  config.Config
	open OpenFunc
	svc  *economy.Service
	done io.Closer

	// Data
	data     dashboardData
	loaded   bool
	loadErr  error
	loadTime time.Duration

	// Auto-refresh state
	autoRefresh     bool
	refreshInterval time.Duration
	lastRefresh     time.Time
	refreshing      bool
	syncing         bool
	notice          string

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	ledger    ledgerState

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals *setupValues // shared with the form, which writes through it
	needSetup bool

	spinner spinner.Model
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180

	minContentHeight = 5
	minRefresh       = 10 * time.Second
)

// NewApp creates the dashboard for cfg. When no persona is configured the
// first-run setup form is shown before anything is loaded.
func NewApp(cfg config.Config, open OpenFunc) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	refreshInterval := time.Duration(cfg.TUI.RefreshIntervalSec) * time.Second
	if refreshInterval < minRefresh {
		refreshInterval = 30 * time.Second
	}

	a := App{
		cfg:             cfg,
		open:            open,
		autoRefresh:     cfg.TUI.AutoRefresh,
		refreshInterval: refreshInterval,
		spinner:         sp,
		needSetup:       cfg.General.PersonaSlug == "",
	}
	if a.needSetup {
		vals := setupValuesFrom(cfg)
		a.setupVals = &vals
		a.setupForm = newSetupForm(a.setupVals)
	}
	return a
}

// Close releases the history archive. Call it with the model returned by
// tea.Program.Run.
func (a App) Close() error {
	if a.done == nil {
		return nil
	}
	return a.done.Close()
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnableMouseCellMotion,
		a.spinner.Tick,
		tickCmd(),
	}
	if a.needSetup {
		cmds = append(cmds, a.setupForm.Init())
	} else {
		cmds = append(cmds, openCmd(a.open, a.cfg))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.needSetup {
			return a, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			if a.activeTab == tabLedger {
				a.ledger.move(-1, len(a.data.entries))
			}
		case tea.MouseButtonWheelDown:
			if a.activeTab == tabLedger {
				a.ledger.move(1, len(a.data.entries))
			}
		case tea.MouseButtonLeft:
			if msg.Y == 0 {
				if tab := a.tabAtX(msg.X); tab >= 0 {
					a.activeTab = tab
				}
			}
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)

	case ServiceOpenedMsg:
		if msg.Err != nil {
			a.loaded = true
			a.loadErr = msg.Err
			return a, nil
		}
		if a.done != nil {
			_ = a.done.Close()
		}
		a.svc = msg.Service
		a.done = msg.Closer
		a.refreshing = true
		return a, loadDataCmd(a.svc)

	case DataLoadedMsg:
		a.refreshing = false
		a.loaded = true
		a.lastRefresh = time.Now()
		a.loadTime = msg.LoadTime
		a.loadErr = msg.Err
		if msg.Err == nil {
			a.data = msg.Data
			a.ledger.clamp(len(a.data.entries))
		}
		return a, nil

	case SyncDoneMsg:
		a.syncing = false
		a.notice = syncNotice(msg)
		if a.svc == nil {
			return a, nil
		}
		a.refreshing = true
		return a, loadDataCmd(a.svc)

	case spinner.TickMsg:
		if !a.loaded || a.refreshing || a.syncing {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.loaded && a.svc != nil && a.autoRefresh && !a.refreshing && !a.syncing &&
			time.Since(a.lastRefresh) >= a.refreshInterval {
			a.refreshing = true
			cmds = append(cmds, loadDataCmd(a.svc), a.spinner.Tick)
		}
		return a, tea.Batch(cmds...)
	}

	// Forward unhandled messages to the setup form (cursor blinks, etc.)
	if a.needSetup && a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return a, tea.Quit
	}

	if a.needSetup && a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if !a.loaded {
		return a, nil
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	if a.activeTab == tabLedger {
		if a.ledger.handleKey(key, len(a.data.entries), a.height) {
			return a, nil
		}
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "r":
		if a.svc == nil {
			a.loaded = false
			return a, tea.Batch(openCmd(a.open, a.cfg), a.spinner.Tick)
		}
		if !a.refreshing {
			a.refreshing = true
			return a, tea.Batch(loadDataCmd(a.svc), a.spinner.Tick)
		}
		return a, nil
	case "s":
		if a.svc != nil && !a.syncing {
			a.syncing = true
			a.notice = "syncing providers"
			return a, tea.Batch(syncCmd(a.svc), a.spinner.Tick)
		}
		return a, nil
	case "R":
		a.autoRefresh = !a.autoRefresh
		// Persist to config (best-effort, ignore errors)
		cfg, err := config.LoadFile(config.ConfigPath())
		if err == nil {
			cfg.TUI.AutoRefresh = a.autoRefresh
			_ = config.Save(cfg)
		}
		return a, nil
	case "left":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		return a, nil
	case "right", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	}

	if len(key) == 1 {
		if idx := components.TabIdxByKey(rune(key[0])); idx >= 0 {
			a.activeTab = idx
		}
	}
	return a, nil
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		cfg := a.setupVals.apply(a.cfg)
		if err := config.Save(cfg); err != nil {
			a.notice = "config not saved: " + err.Error()
		}
		theme.SetActive(cfg.Appearance.Theme)
		a.cfg = cfg
		a.needSetup = false
		a.setupForm = nil
		return a, openCmd(a.open, cfg)
	case huh.StateAborted:
		return a, tea.Quit
	}
	return a, cmd
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.needSetup && a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.data.report.PersonaSlug == "" && a.loadErr != nil {
		return a.viewError()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  The dashboard needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) centeredCard(body string) string {
	t := theme.Active
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3).
		Render(body)
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewLoading() string {
	t := theme.Active
	logo := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logo.Render("◈ economy"))
	b.WriteString(muted.Render(" · " + a.cfg.General.PersonaSlug))
	b.WriteString("\n\n")
	b.WriteString(a.spinner.View())
	b.WriteString(muted.Render(" Loading economic state..."))
	return a.centeredCard(b.String())
}

func (a App) viewError() string {
	t := theme.Active
	title := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Bold(true)
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	body := title.Render("Could not load the persona") + "\n\n" +
		muted.Render(a.loadErr.Error()) + "\n\n" +
		muted.Render("Press q to quit, r to retry")
	return a.centeredCard(body)
}

func (a App) viewHelp() string {
	t := theme.Active
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")
	bindings := []struct{ key, desc string }{
		{"o e l h w", "Jump to tab"},
		{"← →", "Previous / Next tab"},
		{"j k", "Move through the ledger"},
		{"g G", "First / last entry"},
		{"s", "Sync external providers"},
		{"r", "Reload state"},
		{"R", "Toggle auto-refresh"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	}
	for _, bind := range bindings {
		fmt.Fprintf(&b, "  %s  %s\n",
			keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
			descStyle.Render(bind.desc))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))
	return a.centeredCard(b.String())
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	header := components.RenderTabBar(a.activeTab, w)

	notice := a.notice
	if a.loadErr != nil {
		notice = "reload failed: " + a.loadErr.Error()
	}
	updated := ""
	if !a.lastRefresh.IsZero() {
		updated = a.lastRefresh.Format("15:04:05")
	}
	statusBar := components.RenderStatusBar(w, components.StatusInfo{
		Persona:     a.data.report.PersonaSlug,
		Updated:     updated,
		Notice:      notice,
		Refreshing:  a.refreshing || a.syncing,
		AutoRefresh: a.autoRefresh,
	})

	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch a.activeTab {
	case tabOverview:
		content = a.renderOverviewTab(cw)
	case tabExpenses:
		content = a.renderExpensesTab(cw)
	case tabLedger:
		content = a.renderLedgerTab(cw, contentH)
	case tabHistory:
		content = a.renderHistoryTab(cw)
	case tabWallets:
		content = a.renderWalletsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// Tab indexes, matching components.Tabs.
const (
	tabOverview = iota
	tabExpenses
	tabLedger
	tabHistory
	tabWallets
)

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW + 1 // separator
	}
	return -1
}

// ─── Helpers ────────────────────────────────────────────────────

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
	}
	return strings.Join(lines, "\n")
}
