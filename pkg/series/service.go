package series

import (
	"context"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/mr"

	"candlecache/pkg/candle"
	"candlecache/pkg/source"
)

const (
	defaultWorkers      = 4
	defaultFetchTimeout = 10 * time.Second
)

// Service is the incremental cache orchestrator. For every requested symbol
// it consults the store, detects uncovered sub-windows, drives the batch
// planner against the registered backend, writes fetched candles back, and
// returns the merged chronologically ordered series.
type Service struct {
	store        Store
	backends     map[string]source.Backend
	workers      int
	fetchTimeout time.Duration
}

// Option customises the orchestrator.
type Option func(*Service)

// WithWorkers bounds the number of symbols fetched concurrently.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithFetchTimeout caps the duration of a single backend call. A timed-out
// call is treated like any other failed fetch. Zero disables the cap.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.fetchTimeout = d
		}
	}
}

// NewService wires an orchestrator over a store and a source-name to backend
// mapping resolved at configuration time.
func NewService(store Store, backends map[string]source.Backend, opts ...Option) *Service {
	svc := &Service{
		store:        store,
		backends:     backends,
		workers:      defaultWorkers,
		fetchTimeout: defaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Get is the single public read entry point. It returns the merged,
// deduplicated, time-ordered candles covering the window for all requested
// symbols. Backend failures degrade to a partial result; only an unknown
// source name fails the call.
func (s *Service) Get(ctx context.Context, symbols []string, window candle.Window, interval, src string) ([]candle.Candle, error) {
	backend, ok := s.backends[src]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSourceNotRegistered, src)
	}
	if len(symbols) == 0 || window.Empty() {
		return nil, nil
	}

	normalized := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if c := candle.Canonical(sym); c != "" {
			normalized = append(normalized, c)
		}
	}
	if len(normalized) == 0 {
		return nil, nil
	}

	results := make([][]candle.Candle, len(normalized))
	if s.workers <= 1 || len(normalized) == 1 {
		for i, sym := range normalized {
			results[i] = s.collectSymbol(ctx, backend, sym, window, interval, src)
		}
	} else {
		// Symbols have no data dependency on each other; fetch them under a
		// bounded worker pool. Each slot is written by exactly one worker.
		mr.ForEach(func(indexes chan<- int) {
			for i := range normalized {
				indexes <- i
			}
		}, func(i int) {
			results[i] = s.collectSymbol(ctx, backend, normalized[i], window, interval, src)
		}, mr.WithWorkers(s.workers))
	}

	var merged []candle.Candle
	for _, rows := range results {
		merged = append(merged, rows...)
	}
	if len(merged) == 0 {
		logx.WithContext(ctx).Infof("series: no data retrieved for %d symbol(s) from %s over %s", len(normalized), src, window)
		return nil, nil
	}
	candle.SortByTime(merged)
	return candle.DedupeKeepLast(merged), nil
}

// collectSymbol runs the per-symbol cache algorithm: coverage check, gap
// detection, batched fetch, write-back, merge. It never fails; errors degrade
// to whatever data could be assembled.
func (s *Service) collectSymbol(ctx context.Context, backend source.Backend, symbol string, window candle.Window, interval, src string) []candle.Candle {
	logger := logx.WithContext(ctx)

	cov, err := s.store.Coverage(ctx, symbol, interval, src, window)
	if err != nil {
		logger.Errorf("%v", &StorageError{Op: "coverage", Err: err})
		cov = Coverage{}
	}

	var cached []candle.Candle
	if !cov.Empty() {
		cached, err = s.store.Query(ctx, symbol, interval, src, window)
		if err != nil {
			logger.Errorf("%v", &StorageError{Op: "query", Err: err})
			// Rows we cannot read might as well not exist; forget the
			// coverage too so the whole window is refetched.
			cached = nil
			cov = Coverage{}
		}
	}

	gaps := Gaps(window, cov)
	if len(gaps) == 0 {
		// Cache hit: zero backend calls.
		return cached
	}

	merged := cached
	for _, gap := range gaps {
		for _, sub := range Plan(gap, interval, backend.BatchLimit()) {
			batch, err := s.fetch(ctx, backend, symbol, sub, interval)
			if err != nil {
				logger.Errorf("%v", &FetchError{Source: src, Symbol: symbol, Window: sub, Err: err})
				continue
			}
			if len(batch) == 0 {
				logger.Infof("series: %s %s returned no data for %s %s, treating as exhausted", src, symbol, interval, sub)
				continue
			}
			batch = s.stamp(batch, symbol, interval, src)
			// Persist immediately so a later failure in the same request does
			// not lose already-fetched work. A failed write keeps the batch
			// usable for this response.
			if err := s.store.Upsert(ctx, batch); err != nil {
				logger.Errorf("%v", &StorageError{Op: "upsert", Err: err})
			}
			for _, c := range batch {
				if window.Contains(c.Timestamp) {
					merged = append(merged, c)
				}
			}
		}
	}

	// Stable sort keeps append order among equal keys, so DedupeKeepLast
	// prefers the most recently fetched value over stale cache.
	candle.SortByTime(merged)
	return candle.DedupeKeepLast(merged)
}

func (s *Service) fetch(ctx context.Context, backend source.Backend, symbol string, window candle.Window, interval string) ([]candle.Candle, error) {
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}
	return backend.Fetch(ctx, []string{symbol}, window, interval)
}

// stamp normalises ownership labels on fetched rows; the orchestrator, not
// the backend, decides which key-space a batch belongs to.
func (s *Service) stamp(batch []candle.Candle, symbol, interval, src string) []candle.Candle {
	for i := range batch {
		if batch[i].Symbol == "" {
			batch[i].Symbol = symbol
		} else {
			batch[i].Symbol = candle.Canonical(batch[i].Symbol)
		}
		batch[i].Interval = interval
		batch[i].Source = src
	}
	return batch
}
