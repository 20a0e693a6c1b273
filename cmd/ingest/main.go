package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"candlecache/internal/cli"
	"candlecache/internal/config"
	"candlecache/internal/svc"
	"candlecache/pkg/candle"
	"candlecache/pkg/dataset"
	"candlecache/pkg/features"
)

func main() {
	var (
		configPath = flag.String("config", "etc/candlecache.yaml", "path to application configuration")
		symbolsRaw = flag.String("symbols", "BTCUSDT,ETHUSDT", "comma-separated list of symbols")
		startRaw   = flag.String("start", "", "window start, RFC3339 (default: 7 days ago)")
		endRaw     = flag.String("end", "", "window end, RFC3339 (default: now)")
		interval   = flag.String("interval", "1h", "candle interval label")
		source     = flag.String("source", "", "source backend name (default: configured default)")
		withFeats  = flag.Bool("features", false, "compute standard feature columns")
		csvOut     = flag.String("csv", "", "write the result to this CSV file")
		snapOut    = flag.String("snapshot", "", "write the snapshot to this file")
	)
	flag.Parse()

	appCfg := config.MustLoad(*configPath)
	cli.LogConfigSummary(appCfg)

	window, err := parseWindow(*startRaw, *endRaw)
	if err != nil {
		log.Fatalf("[ingest] %v", err)
	}

	symbols := splitSymbols(*symbolsRaw)
	if len(symbols) == 0 {
		log.Fatal("[ingest] no symbols given")
	}

	src := strings.TrimSpace(*source)
	svcCtx := svc.NewServiceContext(*appCfg)
	if src == "" {
		src = svcCtx.DefaultSource
	}
	if src == "" {
		log.Fatal("[ingest] no source given and no default configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if svcCtx.CandleStore != nil {
		if err := svcCtx.CandleStore.EnsureSchema(ctx); err != nil {
			log.Fatalf("[ingest] %v", err)
		}
	}

	if *withFeats {
		registerStandardFeatures(svcCtx.Dataset)
	}

	snap, err := svcCtx.Dataset.GetData(ctx, dataset.Request{
		Symbols:         symbols,
		Window:          window,
		Interval:        *interval,
		Source:          src,
		IncludeFeatures: *withFeats,
	})
	if err != nil {
		log.Fatalf("[ingest] %v", err)
	}

	sum := snap.Summary()
	log.Printf("[ingest] snapshot v%d: %d symbols, %d rows, %s .. %s",
		sum.Version, sum.Symbols, sum.Records,
		sum.Earliest.Format(time.RFC3339), sum.Latest.Format(time.RFC3339))

	if *csvOut != "" {
		path := resolveOutput(appCfg.SnapshotDir, *csvOut)
		if err := snap.ExportCSV(path); err != nil {
			log.Fatalf("[ingest] export csv: %v", err)
		}
		log.Printf("[ingest] wrote %s", path)
	}
	if *snapOut != "" {
		path := resolveOutput(appCfg.SnapshotDir, *snapOut)
		if err := snap.Save(path); err != nil {
			log.Fatalf("[ingest] save snapshot: %v", err)
		}
		log.Printf("[ingest] wrote %s", path)
	}
}

func parseWindow(startRaw, endRaw string) (candle.Window, error) {
	end := time.Now().UTC()
	start := end.Add(-7 * 24 * time.Hour)

	var err error
	if startRaw != "" {
		if start, err = time.Parse(time.RFC3339, startRaw); err != nil {
			return candle.Window{}, fmt.Errorf("parse -start: %w", err)
		}
	}
	if endRaw != "" {
		if end, err = time.Parse(time.RFC3339, endRaw); err != nil {
			return candle.Window{}, fmt.Errorf("parse -end: %w", err)
		}
	}
	w := candle.Window{Start: start, End: end}
	if w.Empty() {
		return candle.Window{}, fmt.Errorf("window end %s precedes start %s", end, start)
	}
	return w, nil
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

func registerStandardFeatures(mgr *dataset.Manager) {
	mgr.Features().Register(features.SMA{Periods: []int{20, 50}})
	mgr.Features().Register(features.EMA{Periods: []int{12, 26}})
	mgr.Features().Register(features.RSI{Period: 14})
	mgr.Features().Register(features.MACD{})
	mgr.Features().Register(features.Bollinger{Period: 20, StdDev: 2})
	mgr.Features().Register(features.ATR{Period: 14})
}

func resolveOutput(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	if dir == "" {
		return name
	}
	_ = os.MkdirAll(dir, 0o755)
	return filepath.Join(dir, name)
}
