package instrument

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candlecache/pkg/candle"
)

func series(symbol string, base float64, hours ...int) []candle.Candle {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]candle.Candle, 0, len(hours))
	for _, h := range hours {
		price := base + float64(h)
		rows = append(rows, candle.Candle{
			Symbol:    symbol,
			Timestamp: start.Add(time.Duration(h) * time.Hour),
			Interval:  "1h",
			Source:    "binance",
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price + 0.5,
			Volume:    100,
		})
	}
	return rows
}

func dataset(lists ...[]candle.Candle) map[string][]candle.Candle {
	data := make(map[string][]candle.Candle)
	for _, rows := range lists {
		data[rows[0].Symbol] = rows
	}
	return data
}

func TestSpread(t *testing.T) {
	data := dataset(series("BTCUSDT", 100, 0, 1, 2), series("ETHUSDT", 40, 0, 1, 2))

	rows, err := Spread{First: "BTCUSDT", Second: "ETHUSDT", Name: "BTC-ETH"}.Generate(data)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "BTC-ETH", rows[0].Symbol)
	assert.Equal(t, SyntheticSource, rows[0].Source)
	assert.Equal(t, "1h", rows[0].Interval)
	assert.InDelta(t, 60.0, rows[0].Open, 1e-9)
	assert.InDelta(t, 60.5, rows[0].Close, 1e-9)
	assert.InDelta(t, 100.0, rows[0].Volume, 1e-9)
}

func TestSpreadAlignsOnCommonTimestamps(t *testing.T) {
	data := dataset(series("BTCUSDT", 100, 0, 1, 2, 3), series("ETHUSDT", 40, 1, 3))

	rows, err := Spread{First: "BTCUSDT", Second: "ETHUSDT", Name: "BTC-ETH"}.Generate(data)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Timestamp.Hour())
	assert.Equal(t, 3, rows[1].Timestamp.Hour())
}

func TestRatio(t *testing.T) {
	data := dataset(series("BTCUSDT", 100, 0), series("ETHUSDT", 49, 0))

	rows, err := Ratio{Numerator: "BTCUSDT", Denominator: "ETHUSDT", Name: "BTC/ETH"}.Generate(data)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 100.0/49.0, rows[0].Open, 1e-9)
	assert.InDelta(t, 100.5/49.5, rows[0].Close, 1e-9)
}

func TestWeightedCombination(t *testing.T) {
	data := dataset(series("BTCUSDT", 100, 0, 1), series("ETHUSDT", 40, 0, 1))

	gen := WeightedCombination{
		Weights: map[string]float64{"BTCUSDT": 0.5, "ETHUSDT": -0.25},
		Order:   []string{"BTCUSDT", "ETHUSDT"},
		Name:    "BASKET",
	}
	rows, err := gen.Generate(data)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.InDelta(t, 0.5*100-0.25*40, rows[0].Open, 1e-9)
	assert.InDelta(t, 0.5*100.5-0.25*40.5, rows[0].Close, 1e-9)
	assert.InDelta(t, 100.0, rows[0].Volume, 1e-9)
	assert.True(t, rows[0].Timestamp.Before(rows[1].Timestamp))
}

type failingGenerator struct{}

func (failingGenerator) Symbol() string            { return "FAIL" }
func (failingGenerator) RequiredSymbols() []string { return []string{"BTCUSDT"} }
func (failingGenerator) Generate(map[string][]candle.Candle) ([]candle.Candle, error) {
	return nil, errors.New("boom")
}

func TestRegistrySkipsMissingAndFailing(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Spread{First: "BTCUSDT", Second: "ETHUSDT", Name: "BTC-ETH"})
	reg.Register(Spread{First: "BTCUSDT", Second: "SOLUSDT", Name: "BTC-SOL"})
	reg.Register(failingGenerator{})

	data := dataset(series("BTCUSDT", 100, 0, 1), series("ETHUSDT", 40, 0, 1))
	rows := reg.GenerateAll(data)

	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, "BTC-ETH", row.Symbol)
	}
	assert.Equal(t, []string{"BTC-ETH", "BTC-SOL", "FAIL"}, reg.Symbols())
}

func TestRegistryReplacesSameSymbol(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Spread{First: "BTCUSDT", Second: "ETHUSDT", Name: "PAIR"})
	reg.Register(Ratio{Numerator: "BTCUSDT", Denominator: "ETHUSDT", Name: "PAIR"})

	data := dataset(series("BTCUSDT", 100, 0), series("ETHUSDT", 50, 0))
	rows := reg.GenerateAll(data)

	require.Len(t, rows, 1)
	assert.InDelta(t, 2.0, rows[0].Open, 1e-9)
}
