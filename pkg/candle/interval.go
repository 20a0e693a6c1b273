package candle

import "time"

// DefaultIntervalStep is the fallback duration used when an interval label is
// not recognised. Resolution stays total so an exotic label degrades to
// imprecise batching instead of a failed request.
const DefaultIntervalStep = time.Hour

var intervalSteps = map[string]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"6h":  6 * time.Hour,
	"8h":  8 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"3d":  72 * time.Hour,
	"1w":  7 * 24 * time.Hour,
	"1M":  30 * 24 * time.Hour, // approximate
}

// IntervalStep maps an interval label to its candle duration. Unknown labels
// fall back to DefaultIntervalStep.
func IntervalStep(interval string) time.Duration {
	if d, ok := intervalSteps[interval]; ok {
		return d
	}
	return DefaultIntervalStep
}

// KnownInterval reports whether the label has an exact duration mapping.
func KnownInterval(interval string) bool {
	_, ok := intervalSteps[interval]
	return ok
}
