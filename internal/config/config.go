package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/state"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// Config holds all economy configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Providers  ProvidersConfig  `toml:"providers"`
	Daemon     DaemonConfig     `toml:"daemon"`
	History    HistoryConfig    `toml:"history"`
	Appearance AppearanceConfig `toml:"appearance"`
	TUI        TUIConfig        `toml:"tui"`
	Pricing    PricingOverrides `toml:"pricing"`
}

// GeneralConfig selects the persona and where its documents live.
type GeneralConfig struct {
	PersonaSlug string `toml:"persona_slug"`
	DataDir     string `toml:"data_dir,omitempty"`
}

// ProvidersConfig holds process-wide provider endpoints. Per-persona
// settings live in the identity document.
type ProvidersConfig struct {
	ACN         ACNConfig         `toml:"acn"`
	CoinbaseCDP CoinbaseCDPConfig `toml:"coinbase_cdp"`
}

// ACNConfig holds ACN balance API settings.
type ACNConfig struct {
	Endpoint string `toml:"endpoint,omitempty"`
}

// CoinbaseCDPConfig holds Coinbase CDP settings.
type CoinbaseCDPConfig struct {
	BaseURL string `toml:"base_url,omitempty"`
	Network string `toml:"network,omitempty"`
}

// DaemonConfig holds background sync settings.
type DaemonConfig struct {
	Addr                string `toml:"addr"`
	SyncSchedule        string `toml:"sync_schedule"`
	PeriodCloseSchedule string `toml:"period_close_schedule,omitempty"`
	EventsBuffer        int    `toml:"events_buffer"`
}

// HistoryConfig controls the SQLite history archive.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path,omitempty"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// TUIConfig holds dashboard refresh settings.
type TUIConfig struct {
	AutoRefresh        bool `toml:"auto_refresh"`
	RefreshIntervalSec int  `toml:"refresh_interval_sec"`
}

// envOverlay lists the environment variables that override the file.
type envOverlay struct {
	PersonaSlug string `env:"PERSONA_SLUG"`
	DataDir     string `env:"PERSONA_ECONOMY_DIR"`
	ACNEndpoint string `env:"ACN_ENDPOINT"`
	CDPBaseURL  string `env:"CDP_BASE_URL"`
	CDPNetwork  string `env:"CDP_NETWORK"`
	DaemonAddr  string `env:"PERSONA_ECONOMY_DAEMON_ADDR"`
	HistoryPath string `env:"PERSONA_ECONOMY_HISTORY"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Daemon: DaemonConfig{
			Addr:         "127.0.0.1:8797",
			SyncSchedule: "@every 15m",
			EventsBuffer: 200,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		TUI: TUIConfig{
			AutoRefresh:        true,
			RefreshIntervalSec: 30,
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "openpersona")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "openpersona")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "economy.toml")
}

// DefaultDataDir is where persona documents live when no directory is
// configured.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".openpersona", "personas")
}

// Load reads the config file, returning defaults if it doesn't exist, and
// applies environment overrides.
func Load() (Config, error) {
	cfg, err := LoadFile(ConfigPath())
	if err != nil {
		return cfg, err
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFile reads the config at path without environment overrides.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overlays set environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	var o envOverlay
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	setIf(&cfg.General.PersonaSlug, o.PersonaSlug)
	setIf(&cfg.General.DataDir, o.DataDir)
	setIf(&cfg.Providers.ACN.Endpoint, o.ACNEndpoint)
	setIf(&cfg.Providers.CoinbaseCDP.BaseURL, o.CDPBaseURL)
	setIf(&cfg.Providers.CoinbaseCDP.Network, o.CDPNetwork)
	setIf(&cfg.Daemon.Addr, o.DaemonAddr)
	setIf(&cfg.History.Path, o.HistoryPath)
	return nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// Location resolves the persona location from the config.
func (c Config) Location() state.Location {
	dir := c.General.DataDir
	if dir == "" {
		dir = DefaultDataDir()
	}
	return state.Location{Slug: c.General.PersonaSlug, Dir: dir}
}

// HistoryPath returns the history database path.
func (c Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	dir := c.General.DataDir
	if dir == "" {
		dir = DefaultDataDir()
	}
	return filepath.Join(dir, "economy-history.db")
}
