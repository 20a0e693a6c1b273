package config

import (
	sourcepkg "candlecache/pkg/source"
)

// MustLoadSources loads etc/sources.yaml from the project root and panics on
// error. It isolates source backend config so tests and tools that only need
// backends do not have to load the full application config.
func MustLoadSources() *sourcepkg.Config {
	path := MustProjectPath("etc/sources.yaml")
	cfg, err := sourcepkg.LoadConfig(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// MustBuildSourceBackends loads source config from the default path and
// builds backend instances; returns the map and default backend name.
func MustBuildSourceBackends() (map[string]sourcepkg.Backend, string) {
	cfg := MustLoadSources()
	backends, err := cfg.BuildBackends()
	if err != nil {
		panic(err)
	}
	return backends, cfg.Default
}
