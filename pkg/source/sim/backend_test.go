package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candlecache/pkg/candle"
)

func window(startHour, endHour int) candle.Window {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return candle.Window{
		Start: base.Add(time.Duration(startHour) * time.Hour),
		End:   base.Add(time.Duration(endHour) * time.Hour),
	}
}

func TestFetchIsDeterministic(t *testing.T) {
	a := New(42)
	b := New(42)

	rowsA, err := a.Fetch(context.Background(), []string{"BTCUSDT"}, window(0, 5), "1h")
	require.NoError(t, err)
	rowsB, err := b.Fetch(context.Background(), []string{"BTCUSDT"}, window(0, 5), "1h")
	require.NoError(t, err)

	require.Len(t, rowsA, 6)
	assert.Equal(t, rowsA, rowsB)

	other := New(7)
	rowsC, err := other.Fetch(context.Background(), []string{"BTCUSDT"}, window(0, 5), "1h")
	require.NoError(t, err)
	assert.NotEqual(t, rowsA[0].Close, rowsC[0].Close)
}

func TestFetchAlignsToInterval(t *testing.T) {
	b := New(1)
	w := candle.Window{
		Start: time.Date(2024, 3, 1, 0, 30, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC),
	}
	rows, err := b.Fetch(context.Background(), []string{"ETHUSDT"}, w, "1h")
	require.NoError(t, err)

	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Zero(t, row.Timestamp.Minute())
		assert.True(t, w.Contains(row.Timestamp))
		assert.GreaterOrEqual(t, row.High, row.Low)
	}
}

func TestCannedRowsOverrideGenerated(t *testing.T) {
	b := New(1)
	at := time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)
	b.SetCanned("btcusdt", []candle.Candle{
		{Symbol: "BTCUSDT", Timestamp: at, Close: 123.45},
		{Symbol: "BTCUSDT", Timestamp: at.Add(48 * time.Hour), Close: 99},
	})

	rows, err := b.Fetch(context.Background(), []string{"BTCUSDT"}, window(0, 5), "1h")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 123.45, rows[0].Close)
}

func TestFailureInjection(t *testing.T) {
	b := New(1)
	boom := errors.New("exchange down")
	b.FailWith("BTCUSDT", boom)

	_, err := b.Fetch(context.Background(), []string{"BTCUSDT"}, window(0, 2), "1h")
	assert.ErrorIs(t, err, boom)

	rows, err := b.Fetch(context.Background(), []string{"ETHUSDT"}, window(0, 2), "1h")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestEmptyWindowYieldsNothing(t *testing.T) {
	b := New(1)
	w := window(5, 0)
	rows, err := b.Fetch(context.Background(), []string{"BTCUSDT"}, w, "1h")
	require.NoError(t, err)
	assert.Empty(t, rows)
}
