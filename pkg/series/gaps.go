package series

import "candlecache/pkg/candle"

// Gaps compares a requested window against cached coverage extremes and
// returns the uncovered sub-windows, leading gap first.
//
// Only the two extremal boundaries are checked: a request falling entirely
// inside [earliest, latest] reports no gap even when interior data is
// missing. Gap boundaries include the adjacent cached candle; the refetched
// boundary row is deduplicated by the upsert key.
func Gaps(requested candle.Window, cov Coverage) []candle.Window {
	if requested.Empty() {
		return nil
	}
	if cov.Empty() {
		return []candle.Window{requested}
	}
	var gaps []candle.Window
	if requested.Start.Before(cov.Earliest) {
		gaps = append(gaps, candle.Window{Start: requested.Start, End: cov.Earliest})
	}
	if requested.End.After(cov.Latest) {
		gaps = append(gaps, candle.Window{Start: cov.Latest, End: requested.End})
	}
	return gaps
}
