package binance

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"candlecache/pkg/candle"
)

// A kline row is a positional JSON array:
// [openTimeMs, open, high, low, close, volume, closeTimeMs, ...extras].
const klineMinFields = 6

func parseKline(symbol string, row []any) (candle.Candle, error) {
	if len(row) < klineMinFields {
		return candle.Candle{}, fmt.Errorf("binance: kline row has %d fields, want at least %d", len(row), klineMinFields)
	}
	openTime, ok := toFloat(row[0])
	if !ok {
		return candle.Candle{}, fmt.Errorf("binance: kline open time %v is not numeric", row[0])
	}
	fields := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, ok := toFloat(row[i+1])
		if !ok {
			return candle.Candle{}, fmt.Errorf("binance: kline field %d value %v is not numeric", i+1, row[i+1])
		}
		fields[i] = v
	}
	return candle.Candle{
		Symbol:    candle.Canonical(symbol),
		Timestamp: time.UnixMilli(int64(openTime)).UTC(),
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
	}, nil
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
