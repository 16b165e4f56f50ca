package cmd

import (
	"fmt"
	"io"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/config"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/economy"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/tui"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"tui"},
	Short:   "Launch the interactive vitality dashboard",
	RunE:    runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	theme.SetActive(cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	// The dashboard owns the terminal; keep history warnings off stderr.
	flagQuiet = true

	app := tui.NewApp(cfg, openDashboardService)
	final, err := tea.NewProgram(app, tea.WithAltScreen()).Run()
	if a, ok := final.(tui.App); ok {
		_ = a.Close()
	}
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func openDashboardService(cfg config.Config) (*economy.Service, io.Closer, error) {
	svc, history, err := openService(cfg)
	if err != nil {
		return nil, nil, err
	}
	return svc, history, nil
}
