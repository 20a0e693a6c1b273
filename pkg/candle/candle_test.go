package candle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIntervalStep(t *testing.T) {
	require.Equal(t, time.Minute, IntervalStep("1m"))
	require.Equal(t, 4*time.Hour, IntervalStep("4h"))
	require.Equal(t, 24*time.Hour, IntervalStep("1d"))
	require.Equal(t, DefaultIntervalStep, IntervalStep("banana"), "unknown labels fall back instead of failing")
	require.False(t, KnownInterval("banana"))
	require.True(t, KnownInterval("1w"))
}

func TestWindow(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	w := NewWindow(start, start.Add(2*time.Hour))
	require.False(t, w.Empty())
	require.Equal(t, 2*time.Hour, w.Duration())
	require.True(t, w.Contains(start))
	require.True(t, w.Contains(w.End))
	require.False(t, w.Contains(start.Add(-time.Second)))

	degenerate := NewWindow(start, start.Add(-time.Second))
	require.True(t, degenerate.Empty())
	require.Equal(t, time.Duration(0), degenerate.Duration())
}

func TestDedupeKeepLast(t *testing.T) {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := []Candle{
		{Symbol: "BTC", Timestamp: at, Interval: "1h", Source: "s", Close: 1},
		{Symbol: "ETH", Timestamp: at, Interval: "1h", Source: "s", Close: 2},
		{Symbol: "BTC", Timestamp: at, Interval: "1h", Source: "s", Close: 3},
	}
	out := DedupeKeepLast(rows)
	require.Len(t, out, 2)
	for _, row := range out {
		if row.Symbol == "BTC" {
			require.Equal(t, 3.0, row.Close, "last write wins")
		}
	}
}

func TestSortByTimeStable(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := []Candle{
		{Symbol: "B", Timestamp: base.Add(time.Hour)},
		{Symbol: "A", Timestamp: base},
		{Symbol: "A", Timestamp: base.Add(time.Hour)},
	}
	SortByTime(rows)
	require.Equal(t, "A", rows[0].Symbol)
	require.Equal(t, "A", rows[1].Symbol)
	require.Equal(t, "B", rows[2].Symbol)
}

func TestCanonical(t *testing.T) {
	require.Equal(t, "BTCUSDT", Canonical("  btcusdt "))
	require.Equal(t, "", Canonical("   "))
}
