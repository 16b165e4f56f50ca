package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Daemon.SyncSchedule != "@every 15m" || !cfg.History.Enabled {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadFileParsesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "economy.toml")
	data := `
[general]
persona_slug = "ada"
data_dir = "/tmp/personas"

[providers.acn]
endpoint = "https://acn.example"

[providers.coinbase_cdp]
network = "base-sepolia"

[daemon]
sync_schedule = "@hourly"

[pricing.overrides.local-llama]
input_per_mtok = 0.1
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.General.PersonaSlug != "ada" || cfg.Providers.ACN.Endpoint != "https://acn.example" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Providers.CoinbaseCDP.Network != "base-sepolia" || cfg.Daemon.SyncSchedule != "@hourly" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Daemon.Addr != "127.0.0.1:8797" {
		t.Fatalf("Daemon.Addr = %q, want default kept", cfg.Daemon.Addr)
	}
	if o := cfg.Pricing.Overrides["local-llama"]; o.InputPerMTok == nil || *o.InputPerMTok != 0.1 {
		t.Fatalf("override = %+v", o)
	}
}

func TestApplyEnvOverridesFile(t *testing.T) {
	t.Setenv("PERSONA_SLUG", "grace")
	t.Setenv("PERSONA_ECONOMY_DIR", "/srv/personas")

	cfg := DefaultConfig()
	cfg.General.PersonaSlug = "ada"
	cfg.Providers.ACN.Endpoint = "https://file.example"
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.General.PersonaSlug != "grace" || cfg.General.DataDir != "/srv/personas" {
		t.Fatalf("general = %+v, want env values", cfg.General)
	}
	if cfg.Providers.ACN.Endpoint != "https://file.example" {
		t.Fatalf("unset env var clobbered file value: %q", cfg.Providers.ACN.Endpoint)
	}

	loc := cfg.Location()
	if loc.Slug != "grace" || loc.Dir != "/srv/personas" {
		t.Fatalf("Location = %+v", loc)
	}
	if got := cfg.HistoryPath(); got != filepath.Join("/srv/personas", "economy-history.db") {
		t.Fatalf("HistoryPath = %q", got)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg := DefaultConfig()
	cfg.General.PersonaSlug = "ada"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !Exists() {
		t.Fatal("Exists = false after Save")
	}
	got, err := LoadFile(ConfigPath())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got.General.PersonaSlug != "ada" {
		t.Fatalf("PersonaSlug = %q, want ada", got.General.PersonaSlug)
	}
}
