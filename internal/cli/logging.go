package cli

import (
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"candlecache/internal/config"
)

// ConfigSummaryLines returns human readable lines describing the loaded app config.
func ConfigSummaryLines(cfg *config.Config) []string {
	if cfg == nil {
		return []string{"Configuration: <nil>"}
	}

	lines := []string{
		fmt.Sprintf("Environment: %s", cfg.Env),
		fmt.Sprintf("Postgres: %s", presence(cfg.Postgres.DSN != "")),
		fmt.Sprintf("Redis: %s", presence(strings.TrimSpace(cfg.Redis.Host) != "")),
		fmt.Sprintf("TTL (short/medium/long): %ds / %ds / %ds", cfg.TTL.Short, cfg.TTL.Medium, cfg.TTL.Long),
		fmt.Sprintf("Fetch: workers=%d timeout=%ds", cfg.Fetch.Workers, cfg.Fetch.TimeoutSeconds),
		fmt.Sprintf("Snapshot dir: %s", cfg.SnapshotDir),
		sourcesLine(cfg),
	}

	return lines
}

// LogConfigSummary emits the configuration summary using logx.
func LogConfigSummary(cfg *config.Config) {
	lines := ConfigSummaryLines(cfg)
	if len(lines) == 0 {
		return
	}
	logx.Info("configuration summary")
	for _, line := range lines {
		logx.Infof("config • %s", line)
	}
}

func presence(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func sourcesLine(cfg *config.Config) string {
	switch {
	case cfg.Sources.Value != nil:
		return fmt.Sprintf("Sources config: %d backends, default %q", len(cfg.Sources.Value.Backends), cfg.Sources.Value.Default)
	case strings.TrimSpace(cfg.Sources.File) != "":
		return fmt.Sprintf("Sources config: %s", cfg.Sources.File)
	default:
		return "Sources config: not configured"
	}
}
