package source_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	source "candlecache/pkg/source"
	_ "candlecache/pkg/source/binance"
	_ "candlecache/pkg/source/sim"
)

func TestLoadConfigAndBuildBackends(t *testing.T) {
	dir := t.TempDir()
	os.Setenv("BINANCE_BASE_URL", "https://api.binance.com")
	t.Cleanup(func() {
		os.Unsetenv("BINANCE_BASE_URL")
	})

	configYAML := `
default: binance_spot
backends:
  binance_spot:
    type: binance
    base_url: ${BINANCE_BASE_URL}
    timeout: 15s
    max_retries: 2
  local_sim:
    type: sim
    seed: 42
    batch_limit: 50
`
	path := filepath.Join(dir, "sources.yaml")
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := source.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Default != "binance_spot" {
		t.Fatalf("unexpected default: %s", cfg.Default)
	}
	if got := cfg.Backends["binance_spot"].BaseURL; got != "https://api.binance.com" {
		t.Fatalf("env expansion failed, got %s", got)
	}
	if got := cfg.Backends["binance_spot"].Timeout.Seconds(); got != 15 {
		t.Fatalf("unexpected timeout: %v", got)
	}

	backends, err := cfg.BuildBackends()
	if err != nil {
		t.Fatalf("BuildBackends error: %v", err)
	}
	if len(backends) != 2 {
		t.Fatalf("expected 2 backends, got %d", len(backends))
	}
	if got := backends["local_sim"].BatchLimit(); got != 50 {
		t.Fatalf("batch_limit override not applied, got %d", got)
	}
}

func TestLoadConfigRejectsUnknownType(t *testing.T) {
	dir := t.TempDir()
	configYAML := `
backends:
  mystery:
    type: carrier_pigeon
`
	path := filepath.Join(dir, "sources.yaml")
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := source.LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "unsupported type") {
		t.Fatalf("expected unsupported type error, got %v", err)
	}
}

func TestLoadConfigRejectsUndefinedDefault(t *testing.T) {
	dir := t.TempDir()
	configYAML := `
default: missing
backends:
  local_sim:
    type: sim
`
	path := filepath.Join(dir, "sources.yaml")
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := source.LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "default backend") {
		t.Fatalf("expected default backend error, got %v", err)
	}
}

func TestLoadConfigRejectsBadTimeout(t *testing.T) {
	dir := t.TempDir()
	configYAML := `
backends:
  binance_spot:
    type: binance
    timeout: soon
`
	path := filepath.Join(dir, "sources.yaml")
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := source.LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "invalid timeout") {
		t.Fatalf("expected timeout error, got %v", err)
	}
}
