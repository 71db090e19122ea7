package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSimulationConfigAppliesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `{
		"gateway": {"mode": "simulation", "csv_path": "data/aapl.csv"},
		"strategy": {"type": "crossover", "short_window": 5, "long_window": 20, "quantity": 10}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.InitialCapital != 100000 {
		t.Errorf("InitialCapital = %v, want 100000 default", cfg.InitialCapital)
	}
	if cfg.MaxOrdersPerMinute != 60 {
		t.Errorf("MaxOrdersPerMinute = %v, want 60 default", cfg.MaxOrdersPerMinute)
	}
	if cfg.Strategy.Type != "crossover" {
		t.Errorf("Strategy.Type = %q, want crossover", cfg.Strategy.Type)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadCredentialsComeFromEnvNotFile(t *testing.T) {
	t.Setenv("TRADER_API_KEY", "env-key")
	t.Setenv("TRADER_API_SECRET", "env-secret")
	t.Setenv("TRADER_PASSPHRASE", "env-pass")

	path := writeConfig(t, `{
		"gateway": {"mode": "simulation", "csv_path": "data/aapl.csv"},
		"strategy": {"type": "crossover"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Credentials.APIKey != "env-key" || cfg.Credentials.Secret != "env-secret" || cfg.Credentials.Passphrase != "env-pass" {
		t.Errorf("Credentials = %+v, want values from TRADER_* env vars", cfg.Credentials)
	}
}

func TestValidateRejectsMissingCSVPathInSimulationMode(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `{"gateway": {"mode": "simulation"}, "strategy": {"type": "crossover"}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate() error for missing gateway.csv_path")
	}
}

func TestValidateRejectsUnknownGatewayMode(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `{"gateway": {"mode": "bogus"}, "strategy": {"type": "crossover"}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate() error for unknown gateway.mode")
	}
}

func TestValidateRejectsMissingStrategyType(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `{"gateway": {"mode": "simulation", "csv_path": "data/aapl.csv"}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate() error for missing strategy.type")
	}
}

func TestValidateRequiresSymbolsAndBaseURLInLiveMode(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `{
		"gateway": {"mode": "live"},
		"strategy": {"type": "crossover"}
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate() error for missing gateway.symbols/exchange.base_url in live mode")
	}
}
