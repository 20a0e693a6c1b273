package config

import (
	"os"
	"path/filepath"
	"testing"

	_ "candlecache/pkg/source/sim"
)

func TestLoadWithSourcesSection(t *testing.T) {
	dir := t.TempDir()

	sourcesYAML := []byte(`
default: local_sim
backends:
  local_sim:
    type: sim
    seed: 42
    batch_limit: 25
`)
	if err := os.WriteFile(filepath.Join(dir, "sources.yaml"), sourcesYAML, 0o600); err != nil {
		t.Fatalf("write sources.yaml: %v", err)
	}

	mainYAML := []byte(`
Env: dev
Fetch:
  Workers: 8
  TimeoutSeconds: 20
Sources:
  File: sources.yaml
`)
	mainPath := filepath.Join(dir, "candlecache.yaml")
	if err := os.WriteFile(mainPath, mainYAML, 0o600); err != nil {
		t.Fatalf("write candlecache.yaml: %v", err)
	}

	cfg, err := Load(mainPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "dev" {
		t.Fatalf("unexpected env: %s", cfg.Env)
	}
	if cfg.Fetch.Workers != 8 || cfg.Fetch.TimeoutSeconds != 20 {
		t.Fatalf("fetch conf not loaded: %+v", cfg.Fetch)
	}
	if cfg.TTL.Short != 10 || cfg.TTL.Medium != 60 || cfg.TTL.Long != 300 {
		t.Fatalf("ttl defaults not applied: %+v", cfg.TTL)
	}

	if cfg.Sources.Value == nil {
		t.Fatalf("sources section not hydrated")
	}
	if cfg.Sources.Value.Default != "local_sim" {
		t.Fatalf("unexpected default backend: %s", cfg.Sources.Value.Default)
	}
	backend := cfg.Sources.Value.Backends["local_sim"]
	if backend == nil || backend.Seed != 42 || backend.BatchLimit != 25 {
		t.Fatalf("sim backend config not parsed: %+v", backend)
	}
}

func TestValidate_EnvBounds(t *testing.T) {
	cfg := &Config{Env: "staging"}
	cfg.TTL = CacheTTL{Short: 10, Medium: 60, Long: 300}
	cfg.Fetch = FetchConf{Workers: 4, TimeoutSeconds: 10}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected env validation error")
	}
}

func TestValidate_TTLBounds(t *testing.T) {
	cfg := &Config{}
	cfg.TTL.Short = 0
	cfg.TTL.Medium = 60
	cfg.TTL.Long = 300
	cfg.Fetch = FetchConf{Workers: 4, TimeoutSeconds: 10}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected ttl.short validation error")
	}
}

func TestValidate_FetchBounds(t *testing.T) {
	cfg := &Config{}
	cfg.TTL = CacheTTL{Short: 10, Medium: 60, Long: 300}
	cfg.Fetch = FetchConf{Workers: 0, TimeoutSeconds: 10}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected fetch.workers validation error")
	}
}
