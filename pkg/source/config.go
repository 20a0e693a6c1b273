package source

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"candlecache/pkg/confkit"
)

// Config describes the set of source backends available to the application.
type Config struct {
	Default  string                    `yaml:"default"`
	Backends map[string]*BackendConfig `yaml:"backends"`
}

// BackendConfig represents configuration for a single source backend.
type BackendConfig struct {
	Type string `yaml:"type"`

	BaseURL string `yaml:"base_url"`

	TimeoutRaw string        `yaml:"timeout"`
	Timeout    time.Duration `yaml:"-"`
	MaxRetries int           `yaml:"max_retries"`

	// BatchLimit overrides the backend's per-call candle ceiling when set.
	BatchLimit int `yaml:"batch_limit"`

	// Seed drives deterministic generation for the sim backend.
	Seed int64 `yaml:"seed"`
}

// BackendBuilder constructs a Backend from configuration.
type BackendBuilder func(name string, cfg *BackendConfig) (Backend, error)

var (
	backendRegistry   = make(map[string]BackendBuilder)
	backendRegistryMu sync.RWMutex
)

// RegisterBackend registers a source backend constructor.
func RegisterBackend(typeName string, builder BackendBuilder) {
	backendRegistryMu.Lock()
	defer backendRegistryMu.Unlock()
	backendRegistry[strings.ToLower(strings.TrimSpace(typeName))] = builder
}

func lookupBackendBuilder(typeName string) (BackendBuilder, bool) {
	backendRegistryMu.RLock()
	defer backendRegistryMu.RUnlock()
	builder, ok := backendRegistry[strings.ToLower(strings.TrimSpace(typeName))]
	return builder, ok
}

// LoadConfig reads source configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read source config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal source config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	if c.Backends == nil {
		c.Backends = make(map[string]*BackendConfig)
	}
	for name, backend := range c.Backends {
		if backend == nil {
			backend = &BackendConfig{}
			c.Backends[name] = backend
		}
		backend.expandEnv()
		if err := backend.parseDurations(name); err != nil {
			return err
		}
	}
	return nil
}

func (b *BackendConfig) expandEnv() {
	b.Type = strings.TrimSpace(os.ExpandEnv(b.Type))
	b.BaseURL = strings.TrimSpace(os.ExpandEnv(b.BaseURL))
	b.TimeoutRaw = strings.TrimSpace(os.ExpandEnv(b.TimeoutRaw))
}

func (b *BackendConfig) parseDurations(name string) error {
	if b.TimeoutRaw == "" {
		return nil
	}
	d, err := time.ParseDuration(b.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("source backend %s: invalid timeout %q: %w", name, b.TimeoutRaw, err)
	}
	if d <= 0 {
		return fmt.Errorf("source backend %s: timeout must be positive, got %s", name, d)
	}
	b.Timeout = d
	return nil
}

// Validate ensures the configuration is structurally sound.
func (c *Config) Validate() error {
	if len(c.Backends) == 0 {
		return fmt.Errorf("source config: backends cannot be empty")
	}
	if c.Default != "" {
		if _, ok := c.Backends[c.Default]; !ok {
			return fmt.Errorf("source config: default backend %q not defined", c.Default)
		}
	}
	for name, backend := range c.Backends {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("source config: backend name cannot be empty")
		}
		if err := backend.validate(name); err != nil {
			return err
		}
	}
	return nil
}

func (b *BackendConfig) validate(name string) error {
	if b == nil {
		return fmt.Errorf("source config: backend %s is nil", name)
	}
	if strings.TrimSpace(b.Type) == "" {
		return fmt.Errorf("source config: backend %s must specify type", name)
	}
	if _, ok := lookupBackendBuilder(b.Type); !ok {
		return fmt.Errorf("source config: backend %s has unsupported type %q", name, b.Type)
	}
	if b.BatchLimit < 0 {
		return fmt.Errorf("source config: backend %s batch_limit cannot be negative", name)
	}
	return nil
}

// BuildBackends instantiates source backends according to configuration.
func (c *Config) BuildBackends() (map[string]Backend, error) {
	result := make(map[string]Backend, len(c.Backends))
	for name, backendCfg := range c.Backends {
		builder, ok := lookupBackendBuilder(backendCfg.Type)
		if !ok {
			return nil, fmt.Errorf("source backend %s: unsupported type %q", name, backendCfg.Type)
		}
		backend, err := builder(name, backendCfg)
		if err != nil {
			return nil, fmt.Errorf("source backend %s: %w", name, err)
		}
		result[name] = backend
	}
	return result, nil
}
