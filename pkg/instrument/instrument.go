// Package instrument derives synthetic instruments from real candle series,
// such as spreads, ratios, and weighted baskets.
package instrument

import (
	"fmt"
	"sort"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"candlecache/pkg/candle"
)

// SyntheticSource marks candles produced by a generator rather than fetched
// from a market data backend.
const SyntheticSource = "synthetic"

// Generator derives one synthetic symbol from existing per-symbol series.
type Generator interface {
	// Symbol is the name of the instrument this generator produces.
	Symbol() string
	// RequiredSymbols lists the input symbols the generator needs.
	RequiredSymbols() []string
	// Generate builds the synthetic series from per-symbol input series.
	Generate(data map[string][]candle.Candle) ([]candle.Candle, error)
}

// Registry holds a set of generators and applies them to candle data.
type Registry struct {
	order      []string
	generators map[string]Generator
}

func NewRegistry() *Registry {
	return &Registry{generators: make(map[string]Generator)}
}

// Register adds a generator, replacing any previous one for the same symbol.
func (r *Registry) Register(gen Generator) {
	symbol := candle.Canonical(gen.Symbol())
	if _, exists := r.generators[symbol]; !exists {
		r.order = append(r.order, symbol)
	}
	r.generators[symbol] = gen
}

// Symbols returns the registered synthetic symbols in registration order.
func (r *Registry) Symbols() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// GenerateAll runs every registered generator over the data. Generators whose
// required inputs are missing are skipped with a log line, as are generators
// that return an error; one bad generator never blocks the rest.
func (r *Registry) GenerateAll(data map[string][]candle.Candle) []candle.Candle {
	var out []candle.Candle
	for _, symbol := range r.order {
		gen := r.generators[symbol]

		missing := false
		for _, required := range gen.RequiredSymbols() {
			if len(data[candle.Canonical(required)]) == 0 {
				logx.Infof("skipping synthetic %s: required symbol %s has no data", symbol, required)
				missing = true
				break
			}
		}
		if missing {
			continue
		}

		rows, err := gen.Generate(data)
		if err != nil {
			logx.Errorf("generating synthetic %s: %v", symbol, err)
			continue
		}
		out = append(out, rows...)
	}
	candle.SortByTime(out)
	return out
}

// Spread produces first minus second per aligned timestamp. Volume is taken
// from the first leg, matching how spread charts are usually quoted.
type Spread struct {
	First, Second string
	Name          string
}

func (s Spread) Symbol() string            { return s.Name }
func (s Spread) RequiredSymbols() []string { return []string{s.First, s.Second} }

func (s Spread) Generate(data map[string][]candle.Candle) ([]candle.Candle, error) {
	return combine(s.Name, data, s.First, s.Second, func(a, b float64) float64 {
		return a - b
	})
}

// Ratio produces first divided by second per aligned timestamp.
type Ratio struct {
	Numerator, Denominator string
	Name                   string
}

func (r Ratio) Symbol() string            { return r.Name }
func (r Ratio) RequiredSymbols() []string { return []string{r.Numerator, r.Denominator} }

func (r Ratio) Generate(data map[string][]candle.Candle) ([]candle.Candle, error) {
	return combine(r.Name, data, r.Numerator, r.Denominator, func(a, b float64) float64 {
		return a / b
	})
}

// WeightedCombination produces a basket such as 0.5*BTC + 0.3*ETH - 0.2*SOL.
// Volume is taken from the first weighted symbol in Order.
type WeightedCombination struct {
	Weights map[string]float64
	// Order fixes the iteration order over Weights; symbols absent from
	// Order are ignored.
	Order []string
	Name  string
}

func (w WeightedCombination) Symbol() string            { return w.Name }
func (w WeightedCombination) RequiredSymbols() []string { return w.Order }

func (w WeightedCombination) Generate(data map[string][]candle.Candle) ([]candle.Candle, error) {
	if len(w.Order) == 0 {
		return nil, fmt.Errorf("weighted combination %s has no symbols", w.Name)
	}

	series := make([]map[time.Time]candle.Candle, len(w.Order))
	for i, symbol := range w.Order {
		series[i] = indexByTime(data[candle.Canonical(symbol)])
	}

	var out []candle.Candle
	for at, firstRow := range series[0] {
		row := candle.Candle{
			Symbol:    candle.Canonical(w.Name),
			Timestamp: at,
			Interval:  firstRow.Interval,
			Source:    SyntheticSource,
			Volume:    firstRow.Volume,
		}
		aligned := true
		for i, symbol := range w.Order {
			leg, ok := series[i][at]
			if !ok {
				aligned = false
				break
			}
			weight := w.Weights[symbol]
			row.Open += leg.Open * weight
			row.High += leg.High * weight
			row.Low += leg.Low * weight
			row.Close += leg.Close * weight
		}
		if aligned {
			out = append(out, row)
		}
	}
	sortRows(out)
	return out, nil
}

// combine builds a two-leg instrument over the timestamp intersection of the
// legs, applying op to each OHLC field.
func combine(name string, data map[string][]candle.Candle, first, second string, op func(a, b float64) float64) ([]candle.Candle, error) {
	left := data[candle.Canonical(first)]
	right := indexByTime(data[candle.Canonical(second)])

	var out []candle.Candle
	for _, a := range left {
		b, ok := right[a.Timestamp]
		if !ok {
			continue
		}
		out = append(out, candle.Candle{
			Symbol:    candle.Canonical(name),
			Timestamp: a.Timestamp,
			Interval:  a.Interval,
			Source:    SyntheticSource,
			Open:      op(a.Open, b.Open),
			High:      op(a.High, b.High),
			Low:       op(a.Low, b.Low),
			Close:     op(a.Close, b.Close),
			Volume:    a.Volume,
		})
	}
	sortRows(out)
	return out, nil
}

func indexByTime(rows []candle.Candle) map[time.Time]candle.Candle {
	idx := make(map[time.Time]candle.Candle, len(rows))
	for _, row := range rows {
		idx[row.Timestamp] = row
	}
	return idx
}

func sortRows(rows []candle.Candle) {
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})
}
