package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/cli"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/config"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/economy"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/state"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/store"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/wallet"

	"github.com/spf13/cobra"
)

var (
	flagSlug      string
	flagDir       string
	flagQuiet     bool
	flagFormat    string
	flagNoHistory bool
)

var rootCmd = &cobra.Command{
	Use:           "economy",
	Short:         "Persona economy and vitality CLI",
	Long:          "Track a persona's balances, costs, and income, and score its financial health.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runStatus,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "  Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagSlug, "slug", "s", "", "Persona slug (overrides config and PERSONA_SLUG)")
	rootCmd.PersistentFlags().StringVarP(&flagDir, "dir", "d", "", "Persona data directory (overrides config and PERSONA_ECONOMY_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().StringVarP(&flagFormat, "format", "f", cli.FormatTable, "Output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&flagNoHistory, "no-history", false, "Skip the SQLite history archive")
}

// env bundles what every persona command needs.
type env struct {
	cfg     config.Config
	loc     state.Location
	format  string
	svc     *economy.Service
	history store.Recorder
}

func (e *env) Close() {
	if err := e.history.Close(); err != nil {
		logf("  Closing history: %v\n", err)
	}
}

// loadEnv resolves configuration with flags > env > file precedence and
// builds the economy service.
func loadEnv() (*env, error) {
	format, err := cli.ParseFormat(flagFormat)
	if err != nil {
		return nil, err
	}
	cfg, err := resolveConfig()
	if err != nil {
		return nil, err
	}
	if cfg.General.PersonaSlug == "" {
		return nil, errors.New("no persona selected (use --slug, PERSONA_SLUG, or economy setup)")
	}
	svc, history, err := openService(cfg)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, loc: cfg.Location(), format: format, svc: svc, history: history}, nil
}

// resolveConfig loads the config file and environment, then applies the
// persistent flags.
func resolveConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if flagSlug != "" {
		cfg.General.PersonaSlug = flagSlug
	}
	if flagDir != "" {
		cfg.General.DataDir = flagDir
	}
	return cfg, nil
}

// openService builds the economy service for cfg. A history archive that
// cannot be opened is skipped rather than failing the command.
func openService(cfg config.Config) (*economy.Service, store.Recorder, error) {
	loc := cfg.Location()
	if err := loc.Validate(); err != nil {
		return nil, nil, err
	}

	var history store.Recorder = store.NewNoop()
	if cfg.History.Enabled && !flagNoHistory {
		h, err := store.Open(cfg.HistoryPath())
		if err != nil {
			logf("  History unavailable, continuing without it: %v\n", err)
		} else {
			history = h
		}
	}

	svc := economy.New(economy.Options{
		Location: loc,
		Fetchers: wallet.FetcherOptions{
			CDPBaseURL:  cfg.Providers.CoinbaseCDP.BaseURL,
			ACNEndpoint: cfg.Providers.ACN.Endpoint,
		},
		History: history,
		Pricing: cfg.PriceFor,
	})
	return svc, history, nil
}

// logf writes progress output to stderr unless --quiet.
func logf(format string, args ...any) {
	if flagQuiet {
		return
	}
	fmt.Fprintf(os.Stderr, format, args...)
}

func parseProvider(name string) (wallet.Provider, error) {
	if name == "" {
		return "", errors.New("--provider is required")
	}
	return wallet.ParseProvider(name)
}
