package candle

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Candle is a single OHLCV observation for a symbol at a point in time.
// The tuple (Symbol, Timestamp, Interval, Source) uniquely identifies a
// candle; writing the same key again replaces the earlier value.
type Candle struct {
	Symbol    string
	Timestamp time.Time // second resolution
	Interval  string    // interval label, e.g. "1h"
	Source    string    // backend label, e.g. "binance"

	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Key identifies a candle within the store.
type Key struct {
	Symbol    string
	Timestamp int64 // epoch seconds
	Interval  string
	Source    string
}

// Key returns the unique storage key for the candle.
func (c Candle) Key() Key {
	return Key{
		Symbol:    c.Symbol,
		Timestamp: c.Timestamp.Unix(),
		Interval:  c.Interval,
		Source:    c.Source,
	}
}

func (c Candle) String() string {
	return fmt.Sprintf("%s %s o=%.8g h=%.8g l=%.8g c=%.8g v=%.8g",
		c.Symbol, c.Timestamp.UTC().Format(time.RFC3339), c.Open, c.High, c.Low, c.Close, c.Volume)
}

// Canonical normalises a symbol for lookups and storage.
func Canonical(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// SortByTime orders candles ascending by timestamp, breaking ties by symbol
// so results are deterministic across merges.
func SortByTime(candles []Candle) {
	sort.SliceStable(candles, func(i, j int) bool {
		if !candles[i].Timestamp.Equal(candles[j].Timestamp) {
			return candles[i].Timestamp.Before(candles[j].Timestamp)
		}
		return candles[i].Symbol < candles[j].Symbol
	})
}

// DedupeKeepLast removes duplicate keys from a time-sorted slice, keeping the
// last occurrence of each key. The input order is preserved otherwise.
func DedupeKeepLast(candles []Candle) []Candle {
	if len(candles) == 0 {
		return candles
	}
	last := make(map[Key]int, len(candles))
	for i, c := range candles {
		last[c.Key()] = i
	}
	out := make([]Candle, 0, len(last))
	for i, c := range candles {
		if last[c.Key()] == i {
			out = append(out, c)
		}
	}
	return out
}
