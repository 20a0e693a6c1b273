package source

import (
	"context"

	"candlecache/pkg/candle"
)

// Backend is the fetch capability consumed by the series cache. A backend
// returns raw OHLCV rows for the requested symbols inside the window; it does
// not persist anything and does not deduplicate across calls.
type Backend interface {
	// Fetch downloads candles for the given symbols and window. A transient
	// failure is returned as an error; callers treat it as "no data for this
	// sub-window" rather than fatal.
	Fetch(ctx context.Context, symbols []string, window candle.Window, interval string) ([]candle.Candle, error)

	// BatchLimit reports the maximum number of candles the backend returns in
	// a single call. Zero means unlimited.
	BatchLimit() int
}
