package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	cachekeys "candlecache/internal/cache"
	"candlecache/internal/cli"
	"candlecache/internal/config"
	"candlecache/internal/svc"
	"candlecache/pkg/candle"
)

const (
	refreshInterval = 5 * time.Minute  // cache warm interval
	shutdownTimeout = 10 * time.Second // grace period for shutdown
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("[main] Starting refresh daemon...")

	var (
		configPath = flag.String("config", "etc/candlecache.yaml", "path to application configuration")
		symbolsRaw = flag.String("symbols", "BTCUSDT,ETHUSDT,SOLUSDT", "comma-separated list of symbols to keep warm")
		interval   = flag.String("interval", "1h", "candle interval label")
		lookback   = flag.Duration("lookback", 48*time.Hour, "window length to keep warm")
	)
	flag.Parse()

	appCfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("[main] Warning: failed to load app config: %v", err)
		log.Printf("[main] Using default configuration")
		appCfg = &config.Config{Env: "test"}
		if err := appCfg.Validate(); err != nil {
			log.Fatalf("[main] %v", err)
		}
	}

	log.Printf("[main] Configuration loaded:")
	for _, line := range cli.ConfigSummaryLines(appCfg) {
		log.Printf("  - %s", line)
	}

	symbols := splitSymbols(*symbolsRaw)
	svcCtx := svc.NewServiceContext(*appCfg)
	if svcCtx.DefaultSource == "" {
		log.Fatal("[main] no default source backend configured")
	}
	log.Printf("  - Warmed symbols: %v", symbols)
	log.Printf("  - Source: %s, interval: %s, lookback: %s", svcCtx.DefaultSource, *interval, *lookback)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if svcCtx.CandleStore != nil {
		if err := svcCtx.CandleStore.EnsureSchema(ctx); err != nil {
			log.Fatalf("[main] %v", err)
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runRefresher(ctx, svcCtx, symbols, *interval, *lookback)
	}()

	log.Println("[main] Refresh daemon started. Press Ctrl+C to stop.")

	<-ctx.Done()
	log.Println("[main] Shutdown signal received, stopping tasks...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[main] All tasks stopped cleanly")
	case <-shutdownCtx.Done():
		log.Println("[main] Shutdown timeout exceeded, forcing exit")
	}

	log.Println("[main] Refresh daemon stopped")
}

// runRefresher warms the candle cache on a schedule.
func runRefresher(ctx context.Context, svcCtx *svc.ServiceContext, symbols []string, interval string, lookback time.Duration) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	// Run once immediately on startup
	warm(ctx, svcCtx, symbols, interval, lookback)

	for {
		select {
		case <-ctx.Done():
			log.Println("[refresh] Stopping refresher")
			return
		case <-ticker.C:
			warm(ctx, svcCtx, symbols, interval, lookback)
		}
	}
}

// warm pulls the recent window for each symbol so gaps are filled before
// consumers ask for them.
func warm(parentCtx context.Context, svcCtx *svc.ServiceContext, symbols []string, interval string, lookback time.Duration) {
	if parentCtx.Err() != nil {
		return
	}

	end := time.Now().UTC()
	window := candle.Window{Start: end.Add(-lookback), End: end}

	rows, err := svcCtx.Series.Get(parentCtx, symbols, window, interval, svcCtx.DefaultSource)
	if err != nil {
		logx.Errorf("refresh: warm cycle failed: %v", err)
		return
	}
	log.Printf("[refresh] warmed %d symbols, %d rows through %s", len(symbols), len(rows), end.Format(time.RFC3339))

	publishSummary(parentCtx, svcCtx, symbols, interval, len(rows), end)
}

// publishSummary mirrors the latest warm cycle stats into Redis for
// dashboards, when a cache is configured.
func publishSummary(ctx context.Context, svcCtx *svc.ServiceContext, symbols []string, interval string, records int, at time.Time) {
	if svcCtx.Cache == nil {
		return
	}
	ttl := cachekeys.SnapshotSummaryTTL(svcCtx.TTL)
	if ttl <= 0 {
		return
	}
	latest := map[string]float64{}
	for _, sym := range symbols {
		if last, ok := svcCtx.CandleStore.LatestClose(ctx, candle.Canonical(sym), interval, svcCtx.DefaultSource); ok {
			latest[candle.Canonical(sym)] = last
		}
	}
	payload := map[string]any{
		"records":   records,
		"refreshed": at.Unix(),
		"source":    svcCtx.DefaultSource,
		"latest":    latest,
	}
	if err := svcCtx.Cache.SetWithExpireCtx(ctx, cachekeys.SnapshotSummaryKey(), payload, ttl); err != nil {
		logx.Errorf("refresh: publish summary: %v", err)
	}
}

func splitSymbols(raw string) []string {
	var out []string
	for _, sym := range strings.Split(raw, ",") {
		if sym = strings.TrimSpace(sym); sym != "" {
			out = append(out, sym)
		}
	}
	return out
}
