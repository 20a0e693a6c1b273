// Package indicators provides technical indicator calculations over candle
// series. All functions return slices aligned one-to-one with their input;
// positions where the indicator is not yet defined hold NaN.
package indicators

import (
	"math"

	"candlecache/pkg/candle"
)

// SMA produces the simple moving average for the supplied prices.
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) == 0 {
		return []float64{}
	}
	result := nanSlice(len(prices))
	if len(prices) < period {
		return result
	}

	var sum float64
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			result[i] = sum / float64(period)
		}
	}
	return result
}

// EMA produces the exponential moving average for the supplied prices.
func EMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) == 0 {
		return []float64{}
	}
	result := nanSlice(len(prices))
	if len(prices) < period {
		return result
	}
	multiplier := 2.0 / float64(period+1)

	// seed with the first fully-populated SMA window
	start := -1
	var seed float64
	for i := period - 1; i < len(prices); i++ {
		windowValid := true
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			if math.IsNaN(prices[j]) {
				windowValid = false
				break
			}
			sum += prices[j]
		}
		if windowValid {
			start = i
			seed = sum / float64(period)
			break
		}
	}
	if start == -1 {
		return result
	}
	result[start] = seed

	for i := start + 1; i < len(prices); i++ {
		if math.IsNaN(prices[i]) {
			result[i] = result[i-1]
			continue
		}
		prev := result[i-1]
		if math.IsNaN(prev) {
			prev = seed
		}
		result[i] = (prices[i]-prev)*multiplier + prev
	}
	return result
}

// MACD returns MACD, signal, and histogram series using the standard
// 12/26/9 periods.
func MACD(prices []float64) ([]float64, []float64, []float64) {
	if len(prices) == 0 {
		return []float64{}, []float64{}, []float64{}
	}
	emaFast := EMA(prices, 12)
	emaSlow := EMA(prices, 26)

	macd := make([]float64, len(prices))
	for i := range prices {
		if math.IsNaN(emaFast[i]) || math.IsNaN(emaSlow[i]) {
			macd[i] = math.NaN()
		} else {
			macd[i] = emaFast[i] - emaSlow[i]
		}
	}

	signal := EMA(macd, 9)
	hist := make([]float64, len(prices))
	for i := range hist {
		if math.IsNaN(macd[i]) || math.IsNaN(signal[i]) {
			hist[i] = math.NaN()
		} else {
			hist[i] = macd[i] - signal[i]
		}
	}
	return macd, signal, hist
}

// RSI computes the Relative Strength Index across the supplied prices.
func RSI(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) == 0 {
		return []float64{}
	}
	rsi := nanSlice(len(prices))
	if len(prices) <= period {
		return rsi
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gainSum += change
		} else {
			lossSum -= change
		}
	}

	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)

	rsi[period] = computeRSI(avgGain, avgLoss)

	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain := math.Max(change, 0)
		loss := math.Max(-change, 0)

		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)

		rsi[i] = computeRSI(avgGain, avgLoss)
	}
	return rsi
}

// Bollinger returns the middle, upper, and lower Bollinger bands using the
// given period and standard-deviation multiplier.
func Bollinger(prices []float64, period int, mult float64) ([]float64, []float64, []float64) {
	middle := SMA(prices, period)
	upper := nanSlice(len(prices))
	lower := nanSlice(len(prices))
	if period <= 0 || len(prices) < period {
		return middle, upper, lower
	}

	for i := period - 1; i < len(prices); i++ {
		if math.IsNaN(middle[i]) {
			continue
		}
		var variance float64
		for j := i - period + 1; j <= i; j++ {
			d := prices[j] - middle[i]
			variance += d * d
		}
		sd := math.Sqrt(variance / float64(period))
		upper[i] = middle[i] + mult*sd
		lower[i] = middle[i] - mult*sd
	}
	return middle, upper, lower
}

// ATR computes the Average True Range across the candle series.
func ATR(rows []candle.Candle, period int) []float64 {
	if period <= 0 || len(rows) == 0 {
		return []float64{}
	}
	tr := make([]float64, len(rows))
	for i := range rows {
		if i == 0 {
			tr[i] = rows[i].High - rows[i].Low
			continue
		}
		highLow := rows[i].High - rows[i].Low
		highClose := math.Abs(rows[i].High - rows[i-1].Close)
		lowClose := math.Abs(rows[i].Low - rows[i-1].Close)
		tr[i] = math.Max(highLow, math.Max(highClose, lowClose))
	}
	return EMA(tr, period)
}

// Closes extracts the close series from a candle slice.
func Closes(rows []candle.Candle) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = row.Close
	}
	return out
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

func computeRSI(avgGain, avgLoss float64) float64 {
	switch {
	case avgLoss == 0 && avgGain == 0:
		return 50.0
	case avgLoss == 0:
		return 100.0
	case avgGain == 0:
		return 0.0
	default:
		rs := avgGain / avgLoss
		return 100.0 - (100.0 / (1.0 + rs))
	}
}
