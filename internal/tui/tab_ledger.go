package tui

import (
	"fmt"
	"strings"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/cli"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/tui/components"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// ledgerState tracks the ledger list cursor and scroll window.
type ledgerState struct {
	cursor int
	offset int
}

func (s *ledgerState) move(delta, n int) {
	s.cursor += delta
	s.clamp(n)
}

func (s *ledgerState) clamp(n int) {
	if s.cursor >= n {
		s.cursor = n - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
	if s.offset > s.cursor {
		s.offset = s.cursor
	}
}

// handleKey applies list navigation and reports whether key was consumed.
func (s *ledgerState) handleKey(key string, n, height int) bool {
	halfPage := max((height-6)/2, 1)
	switch key {
	case "j", "down":
		s.move(1, n)
	case "k", "up":
		s.move(-1, n)
	case "g":
		s.cursor, s.offset = 0, 0
	case "G":
		s.move(n, n)
	case "ctrl+d":
		s.move(halfPage, n)
	case "ctrl+u":
		s.move(-halfPage, n)
	default:
		return false
	}
	return true
}

// window returns the visible [start, end) range for rows lines and keeps
// the cursor inside it.
func (s *ledgerState) window(n, rows int) (int, int) {
	if rows < 1 {
		rows = 1
	}
	if s.cursor < s.offset {
		s.offset = s.cursor
	}
	if s.cursor >= s.offset+rows {
		s.offset = s.cursor - rows + 1
	}
	return s.offset, min(s.offset+rows, n)
}

func (a App) renderLedgerTab(cw, h int) string {
	t := theme.Active
	entries := a.data.entries
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	if len(entries) == 0 {
		return components.ContentCard("Ledger", muted.Render("No ledger entries yet. Deposit funds to get started."), cw)
	}

	listW, detailW := cw, 0
	if !a.isCompactLayout() {
		widths := components.LayoutRow(cw, 3)
		listW = widths[0] + widths[1]
		detailW = widths[2]
	}

	// Card border and title take three lines.
	rows := max(h-3, 1)
	st := a.ledger
	start, end := st.window(len(entries), rows-1)

	inner := components.CardInnerWidth(listW)
	format := "%-8s %-7s %12s  %s"
	head := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Bold(true)
	lines := []string{head.Render(truncStr(fmt.Sprintf(format, "When", "Type", "Amount", "Detail"), inner))}
	for i := start; i < end; i++ {
		e := entries[i]
		ts := e.Timestamp
		line := fmt.Sprintf(format,
			truncStr(shortAgo(cli.FormatAgo(&ts)), 8),
			e.Type,
			cli.FormatAmount(e.Amount, e.Currency),
			entryDetail(e))
		line = fmt.Sprintf("%-*s", inner, truncStr(line, inner))
		style := lipgloss.NewStyle().Foreground(entryColor(e.Type)).Background(t.Surface)
		if i == st.cursor {
			style = style.Background(t.SurfaceHover).Bold(true)
		}
		lines = append(lines, style.Render(line))
	}
	title := fmt.Sprintf("Ledger (%d/%d)", st.cursor+1, len(entries))
	list := components.ContentCard(title, strings.Join(lines, "\n"), listW)
	if detailW == 0 {
		return list
	}
	detail := components.ContentCard("Entry", renderEntryDetail(entries[st.cursor], components.CardInnerWidth(detailW)), detailW)
	return components.CardRow([]string{list, detail})
}

func entryColor(typ string) lipgloss.Color {
	t := theme.Active
	switch typ {
	case model.EntryDeposit:
		return t.Blue
	case model.EntryIncome:
		return t.Green
	case model.EntryCost:
		return t.TextPrimary
	}
	return t.TextMuted
}

// entryDetail is the one-line summary shown in the list.
func entryDetail(e model.LedgerEntry) string {
	var parts []string
	switch e.Type {
	case model.EntryCost:
		parts = append(parts, e.Channel)
	case model.EntryDeposit:
		parts = append(parts, e.Source)
	case model.EntryIncome:
		if e.TaskID != "" {
			parts = append(parts, e.TaskID)
		}
		if e.Quality != nil {
			parts = append(parts, fmt.Sprintf("q=%.2f", *e.Quality))
		}
	}
	if e.Note != "" {
		parts = append(parts, e.Note)
	}
	return strings.Join(parts, " ")
}

func renderEntryDetail(e model.LedgerEntry, innerW int) string {
	t := theme.Active
	label := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	value := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	field := func(name, v string) string {
		if v == "" {
			return ""
		}
		return label.Render(fmt.Sprintf("%-9s", name)) + value.Render(truncStr(v, innerW-9)) + "\n"
	}

	var b strings.Builder
	b.WriteString(field("Type", e.Type))
	b.WriteString(field("Amount", cli.FormatAmount(e.Amount, e.Currency)))
	b.WriteString(field("When", e.Timestamp.Local().Format("2006-01-02 15:04:05")))
	b.WriteString(field("Channel", e.Channel))
	b.WriteString(field("Source", e.Source))
	b.WriteString(field("Task", e.TaskID))
	if e.Quality != nil {
		b.WriteString(field("Quality", fmt.Sprintf("%.2f", *e.Quality)))
	}
	b.WriteString(field("Note", e.Note))
	b.WriteString(field("ID", e.ID))
	return strings.TrimRight(b.String(), "\n")
}

// shortAgo trims humanized durations to fit the list column.
func shortAgo(s string) string {
	r := strings.NewReplacer(" ago", "", " seconds", "s", " second", "s", " minutes", "m", " minute", "m",
		" hours", "h", " hour", "h", " days", "d", " day", "d", " weeks", "w", " week", "w")
	return r.Replace(s)
}
