package sim

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"candlecache/pkg/candle"
	"candlecache/pkg/source"
)

const defaultBatchLimit = 100

// Backend is a deterministic in-memory data source. Given the same seed it
// always produces the same candles for the same (symbol, timestamp), which
// makes it usable both for tests and for sourceless local runs.
type Backend struct {
	mu sync.Mutex

	seed       int64
	batchLimit int

	// canned rows served instead of generated ones, keyed by symbol
	canned map[string][]candle.Candle
	// symbols whose fetches always fail, for failure-path exercises
	failing map[string]error
}

// New constructs a simulator backend with the given seed.
func New(seed int64) *Backend {
	return &Backend{
		seed:       seed,
		batchLimit: defaultBatchLimit,
		canned:     make(map[string][]candle.Candle),
		failing:    make(map[string]error),
	}
}

// SetCanned replaces generated data for a symbol with fixed rows.
func (b *Backend) SetCanned(symbol string, rows []candle.Candle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.canned[candle.Canonical(symbol)] = rows
}

// FailWith makes every fetch for the symbol return err.
func (b *Backend) FailWith(symbol string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing[candle.Canonical(symbol)] = err
}

// Fetch generates interval-aligned candles covering the window.
func (b *Backend) Fetch(ctx context.Context, symbols []string, window candle.Window, interval string) ([]candle.Candle, error) {
	if window.Empty() {
		return nil, nil
	}
	step := candle.IntervalStep(interval)

	var out []candle.Candle
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sym = candle.Canonical(sym)

		b.mu.Lock()
		failErr := b.failing[sym]
		canned, hasCanned := b.canned[sym]
		b.mu.Unlock()

		if failErr != nil {
			return nil, failErr
		}
		if hasCanned {
			for _, row := range canned {
				if window.Contains(row.Timestamp) {
					out = append(out, row)
				}
			}
			continue
		}

		start := window.Start.Truncate(step)
		if start.Before(window.Start) {
			start = start.Add(step)
		}
		for at := start; !at.After(window.End); at = at.Add(step) {
			out = append(out, b.generate(sym, at))
		}
	}
	return out, nil
}

// BatchLimit reports the simulated per-call ceiling.
func (b *Backend) BatchLimit() int { return b.batchLimit }

// generate derives one candle purely from (seed, symbol, timestamp).
func (b *Backend) generate(symbol string, at time.Time) candle.Candle {
	h := b.seed
	for _, r := range symbol {
		h = h*31 + int64(r)
	}
	rng := rand.New(rand.NewSource(h ^ at.Unix()))

	base := 50 + 100*math.Abs(math.Sin(float64(h%360)))
	open := base * (1 + 0.02*(rng.Float64()-0.5))
	close := open * (1 + 0.01*(rng.Float64()-0.5))
	high := math.Max(open, close) * (1 + 0.005*rng.Float64())
	low := math.Min(open, close) * (1 - 0.005*rng.Float64())

	return candle.Candle{
		Symbol:    symbol,
		Timestamp: at,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    float64(rng.Intn(10000)),
	}
}

func init() {
	source.RegisterBackend("sim", func(name string, cfg *source.BackendConfig) (source.Backend, error) {
		backend := New(cfg.Seed)
		if cfg.BatchLimit > 0 {
			backend.batchLimit = cfg.BatchLimit
		}
		return backend, nil
	})
}

var _ source.Backend = (*Backend)(nil)
