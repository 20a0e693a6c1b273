package series

import (
	"time"

	"candlecache/pkg/candle"
)

// Plan partitions a window into contiguous, non-overlapping sub-windows in
// ascending order, each spanning at most (limit - 1) interval steps so that a
// backend capped at limit candles per call can serve it. A limit of zero or
// one yields the window unchanged. Unknown interval labels use the default
// step from pkg/candle, so planning never fails on an unrecognised label.
func Plan(window candle.Window, interval string, limit int) []candle.Window {
	if window.Empty() {
		return nil
	}
	if limit <= 1 {
		return []candle.Window{window}
	}
	span := candle.IntervalStep(interval) * time.Duration(limit-1)

	var out []candle.Window
	current := window.Start
	for current.Before(window.End) {
		end := current.Add(span)
		if end.After(window.End) {
			end = window.End
		}
		out = append(out, candle.Window{Start: current, End: end})
		current = end
	}
	if len(out) == 0 {
		// Single-instant window still maps to one fetchable sub-window.
		out = []candle.Window{window}
	}
	return out
}
