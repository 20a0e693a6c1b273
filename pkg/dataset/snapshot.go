package dataset

import (
	"sort"
	"time"

	"candlecache/pkg/candle"
)

// Snapshot is one immutable dataset build. Callers hold the snapshot they
// were given; a newer build never mutates an older one.
type Snapshot struct {
	Version  int64     `msgpack:"version"`
	BuiltAt  time.Time `msgpack:"built_at"`
	Interval string    `msgpack:"interval"`
	Source   string    `msgpack:"source"`

	// Rows holds every candle in the snapshot, base and synthetic.
	Rows []candle.Candle `msgpack:"rows"`

	// Features maps symbol to feature column to series aligned with the
	// symbol's rows. Nil when the build skipped features.
	Features map[string]map[string][]float64 `msgpack:"features,omitempty"`

	bySymbol map[string][]candle.Candle
}

// Symbols returns all symbols present, sorted.
func (s *Snapshot) Symbols() []string {
	index := s.index()
	out := make([]string, 0, len(index))
	for symbol := range index {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// SymbolRows returns the time-ordered candles for one symbol.
func (s *Snapshot) SymbolRows(symbol string) []candle.Candle {
	return s.index()[candle.Canonical(symbol)]
}

// SymbolWindow returns a symbol's candles restricted to the window.
func (s *Snapshot) SymbolWindow(symbol string, window candle.Window) []candle.Candle {
	var out []candle.Candle
	for _, row := range s.SymbolRows(symbol) {
		if window.Contains(row.Timestamp) {
			out = append(out, row)
		}
	}
	return out
}

// SymbolFeatures returns the feature columns computed for a symbol, or nil.
func (s *Snapshot) SymbolFeatures(symbol string) map[string][]float64 {
	if s.Features == nil {
		return nil
	}
	return s.Features[candle.Canonical(symbol)]
}

// Summary reports counts and the covered time range.
func (s *Snapshot) Summary() Summary {
	sum := Summary{
		Version: s.Version,
		Symbols: len(s.index()),
		Records: len(s.Rows),
	}
	for _, row := range s.Rows {
		if sum.Earliest.IsZero() || row.Timestamp.Before(sum.Earliest) {
			sum.Earliest = row.Timestamp
		}
		if row.Timestamp.After(sum.Latest) {
			sum.Latest = row.Timestamp
		}
	}
	return sum
}

// Summary holds snapshot-level statistics.
type Summary struct {
	Version  int64
	Symbols  int
	Records  int
	Earliest time.Time
	Latest   time.Time
}

// index lazily rebuilds the per-symbol grouping, needed after a snapshot is
// loaded from disk where only Rows survive serialization.
func (s *Snapshot) index() map[string][]candle.Candle {
	if s.bySymbol == nil {
		s.bySymbol = groupBySymbol(s.Rows)
	}
	return s.bySymbol
}
