package candle

import (
	"fmt"
	"time"
)

// Window is a closed time range [Start, End] over which data is requested.
// Callers should pass Start <= End; a degenerate window yields an empty
// result rather than an error.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow builds a window from two instants.
func NewWindow(start, end time.Time) Window {
	return Window{Start: start, End: end}
}

// Empty reports whether the window covers no time at all.
func (w Window) Empty() bool {
	return w.End.Before(w.Start)
}

// Duration returns the span of the window, zero when degenerate.
func (w Window) Duration() time.Duration {
	if w.Empty() {
		return 0
	}
	return w.End.Sub(w.Start)
}

// Contains reports whether t falls inside the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s]", w.Start.UTC().Format(time.RFC3339), w.End.UTC().Format(time.RFC3339))
}
