package series

import (
	"context"
	"sort"
	"sync"
	"time"

	"candlecache/pkg/candle"
)

// MemoryStore is an in-memory Store keeping candles in a map keyed by the
// full tuple. It backs tests and sourceless local runs; durability comes from
// the Postgres adapter.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[candle.Key]candle.Candle
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[candle.Key]candle.Candle)}
}

// Upsert replaces rows sharing a key with the newest write.
func (m *MemoryStore) Upsert(ctx context.Context, candles []candle.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range candles {
		m.rows[c.Key()] = c
	}
	return nil
}

// Query returns the key-space rows inside the window, ascending by timestamp.
func (m *MemoryStore) Query(ctx context.Context, symbol, interval, source string, window candle.Window) ([]candle.Candle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []candle.Candle
	for _, c := range m.rows {
		if c.Symbol != symbol || c.Interval != interval || c.Source != source {
			continue
		}
		if !window.Contains(c.Timestamp) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Coverage reports the extremal timestamps for the key-space inside the window.
func (m *MemoryStore) Coverage(ctx context.Context, symbol, interval, source string, window candle.Window) (Coverage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var earliest, latest time.Time
	for _, c := range m.rows {
		if c.Symbol != symbol || c.Interval != interval || c.Source != source {
			continue
		}
		if !window.Contains(c.Timestamp) {
			continue
		}
		if earliest.IsZero() || c.Timestamp.Before(earliest) {
			earliest = c.Timestamp
		}
		if latest.IsZero() || c.Timestamp.After(latest) {
			latest = c.Timestamp
		}
	}
	return Coverage{Earliest: earliest, Latest: latest}, nil
}

// Len reports the number of stored rows.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}
