// Package features turns candle series into named indicator columns. A set
// of calculators is applied per symbol; every calculator contributes one or
// more float series aligned with the symbol's candles.
package features

import (
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"

	"candlecache/pkg/candle"
	"candlecache/pkg/indicators"
)

// Calculator computes named feature series from one symbol's candles.
type Calculator interface {
	// Names lists the feature columns this calculator produces.
	Names() []string
	// Compute returns one series per name, each aligned with rows.
	Compute(rows []candle.Candle) (map[string][]float64, error)
}

// Set applies registered calculators symbol by symbol.
type Set struct {
	calculators []Calculator
}

func NewSet(calculators ...Calculator) *Set {
	return &Set{calculators: calculators}
}

// Register appends a calculator to the set.
func (s *Set) Register(c Calculator) {
	s.calculators = append(s.calculators, c)
}

// Names returns all feature column names across registered calculators.
func (s *Set) Names() []string {
	var names []string
	for _, c := range s.calculators {
		names = append(names, c.Names()...)
	}
	return names
}

// Compute runs every calculator over a symbol's candles. A failing calculator
// is logged and skipped so the rest of the columns still come back.
func (s *Set) Compute(symbol string, rows []candle.Candle) map[string][]float64 {
	out := make(map[string][]float64)
	for _, c := range s.calculators {
		series, err := c.Compute(rows)
		if err != nil {
			logx.Errorf("computing features for %s: %v", symbol, err)
			continue
		}
		for name, values := range series {
			out[name] = values
		}
	}
	return out
}

// SMA computes simple moving averages of the close for each period.
type SMA struct {
	Periods []int
}

func (c SMA) Names() []string {
	names := make([]string, len(c.Periods))
	for i, p := range c.Periods {
		names[i] = fmt.Sprintf("sma_%d", p)
	}
	return names
}

func (c SMA) Compute(rows []candle.Candle) (map[string][]float64, error) {
	closes := indicators.Closes(rows)
	out := make(map[string][]float64, len(c.Periods))
	for _, p := range c.Periods {
		out[fmt.Sprintf("sma_%d", p)] = indicators.SMA(closes, p)
	}
	return out, nil
}

// EMA computes exponential moving averages of the close for each period.
type EMA struct {
	Periods []int
}

func (c EMA) Names() []string {
	names := make([]string, len(c.Periods))
	for i, p := range c.Periods {
		names[i] = fmt.Sprintf("ema_%d", p)
	}
	return names
}

func (c EMA) Compute(rows []candle.Candle) (map[string][]float64, error) {
	closes := indicators.Closes(rows)
	out := make(map[string][]float64, len(c.Periods))
	for _, p := range c.Periods {
		out[fmt.Sprintf("ema_%d", p)] = indicators.EMA(closes, p)
	}
	return out, nil
}

// RSI computes the relative strength index of the close.
type RSI struct {
	Period int
}

func (c RSI) Names() []string {
	return []string{fmt.Sprintf("rsi_%d", c.Period)}
}

func (c RSI) Compute(rows []candle.Candle) (map[string][]float64, error) {
	return map[string][]float64{
		fmt.Sprintf("rsi_%d", c.Period): indicators.RSI(indicators.Closes(rows), c.Period),
	}, nil
}

// MACD computes the standard 12/26/9 MACD columns.
type MACD struct{}

func (MACD) Names() []string {
	return []string{"macd", "macd_signal", "macd_histogram"}
}

func (MACD) Compute(rows []candle.Candle) (map[string][]float64, error) {
	macd, signal, hist := indicators.MACD(indicators.Closes(rows))
	return map[string][]float64{
		"macd":           macd,
		"macd_signal":    signal,
		"macd_histogram": hist,
	}, nil
}

// Bollinger computes middle, upper, and lower bands of the close.
type Bollinger struct {
	Period int
	StdDev float64
}

func (c Bollinger) Names() []string {
	return []string{
		fmt.Sprintf("bb_middle_%d", c.Period),
		fmt.Sprintf("bb_upper_%d", c.Period),
		fmt.Sprintf("bb_lower_%d", c.Period),
	}
}

func (c Bollinger) Compute(rows []candle.Candle) (map[string][]float64, error) {
	middle, upper, lower := indicators.Bollinger(indicators.Closes(rows), c.Period, c.StdDev)
	return map[string][]float64{
		fmt.Sprintf("bb_middle_%d", c.Period): middle,
		fmt.Sprintf("bb_upper_%d", c.Period):  upper,
		fmt.Sprintf("bb_lower_%d", c.Period):  lower,
	}, nil
}

// ATR computes the average true range from high/low/close.
type ATR struct {
	Period int
}

func (c ATR) Names() []string {
	return []string{fmt.Sprintf("atr_%d", c.Period)}
}

func (c ATR) Compute(rows []candle.Candle) (map[string][]float64, error) {
	return map[string][]float64{
		fmt.Sprintf("atr_%d", c.Period): indicators.ATR(rows, c.Period),
	}, nil
}
