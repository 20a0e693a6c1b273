package series

import (
	"context"
	"time"

	"candlecache/pkg/candle"
)

// Coverage holds the extremal cached timestamps for a key-space intersected
// with a requested window. Interior holes between the two extremes are not
// tracked.
type Coverage struct {
	Earliest time.Time
	Latest   time.Time
}

// Empty reports whether no cached data exists inside the window.
func (c Coverage) Empty() bool {
	return c.Earliest.IsZero() && c.Latest.IsZero()
}

// Covers reports whether the extremes span the whole window, leaving no
// leading or trailing gap. Coverage only ever grows, so once a window is
// covered it stays covered.
func (c Coverage) Covers(w candle.Window) bool {
	if c.Empty() || w.Empty() {
		return false
	}
	return !c.Earliest.After(w.Start) && !c.Latest.Before(w.End)
}

// Store is durable keyed storage of candles. It is the sole source of truth
// for what has already been fetched, and must be safe for concurrent use from
// multiple symbols' fetch pipelines.
type Store interface {
	// Upsert writes candles keyed by (symbol, timestamp, interval, source),
	// replacing existing rows with the same key. Empty input is a no-op.
	Upsert(ctx context.Context, candles []candle.Candle) error

	// Query returns candles with window.Start <= timestamp <= window.End for
	// the key-space, ascending by timestamp, with no duplicate timestamps.
	Query(ctx context.Context, symbol, interval, source string, window candle.Window) ([]candle.Candle, error)

	// Coverage reports the earliest and latest cached timestamps for the
	// key-space inside the window.
	Coverage(ctx context.Context, symbol, interval, source string, window candle.Window) (Coverage, error)
}
