// Package cmd implements the economy CLI commands.
package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/cli"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	format, err := cli.ParseFormat(flagFormat)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	return cli.Write(os.Stdout, format, cfg, func() string {
		var b strings.Builder
		fmt.Fprintf(&b, "  Config file: %s\n", config.ConfigPath())
		if config.Exists() {
			b.WriteString("  Status: loaded\n")
		} else {
			b.WriteString("  Status: using defaults (no config file)\n")
		}
		b.WriteString("\n")

		loc := cfg.Location()
		b.WriteString("  [General]\n")
		fmt.Fprintf(&b, "    Persona:        %s\n", orUnset(cfg.General.PersonaSlug))
		fmt.Fprintf(&b, "    Data directory: %s\n", loc.Dir)
		if loc.Slug != "" {
			fmt.Fprintf(&b, "    State file:     %s\n", loc.StatePath())
		}
		b.WriteString("\n")

		b.WriteString("  [Providers]\n")
		fmt.Fprintf(&b, "    ACN endpoint:   %s\n", orUnset(cfg.Providers.ACN.Endpoint))
		fmt.Fprintf(&b, "    CDP base URL:   %s\n", orUnset(cfg.Providers.CoinbaseCDP.BaseURL))
		fmt.Fprintf(&b, "    CDP network:    %s\n", orUnset(cfg.Providers.CoinbaseCDP.Network))
		b.WriteString("\n")

		b.WriteString("  [Daemon]\n")
		fmt.Fprintf(&b, "    Address:        %s\n", cfg.Daemon.Addr)
		fmt.Fprintf(&b, "    Sync schedule:  %s\n", cfg.Daemon.SyncSchedule)
		fmt.Fprintf(&b, "    Period close:   %s\n", orUnset(cfg.Daemon.PeriodCloseSchedule))
		b.WriteString("\n")

		b.WriteString("  [History]\n")
		if cfg.History.Enabled {
			fmt.Fprintf(&b, "    Archive:        %s\n", cfg.HistoryPath())
		} else {
			b.WriteString("    Archive:        disabled\n")
		}
		b.WriteString("\n")

		b.WriteString("  [Appearance]\n")
		fmt.Fprintf(&b, "    Theme:          %s\n", cfg.Appearance.Theme)
		fmt.Fprintf(&b, "    Auto-refresh:   %v every %ds\n", cfg.TUI.AutoRefresh, cfg.TUI.RefreshIntervalSec)
		b.WriteString("\n")

		if len(cfg.Pricing.Overrides) > 0 {
			b.WriteString("  [Pricing overrides]\n")
			names := make([]string, 0, len(cfg.Pricing.Overrides))
			for name := range cfg.Pricing.Overrides {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(&b, "    %s\n", name)
			}
			b.WriteString("\n")
		}

		b.WriteString("  Run `economy setup` to reconfigure.\n")
		return b.String()
	})
}

func orUnset(s string) string {
	if s == "" {
		return "not set"
	}
	return s
}
