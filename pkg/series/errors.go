package series

import (
	"errors"
	"fmt"

	"candlecache/pkg/candle"
)

// ErrSourceNotRegistered indicates a request named a source with no backend.
// This is the only failure that aborts a request outright.
var ErrSourceNotRegistered = errors.New("series: source not registered")

// FetchError wraps a recoverable backend failure for one sub-window. The
// orchestrator logs it, skips the sub-window, and continues.
type FetchError struct {
	Source string
	Symbol string
	Window candle.Window
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("series: fetch %s %s %s: %v", e.Source, e.Symbol, e.Window, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StorageError wraps a store read or write failure. A write failure does not
// invalidate the in-memory data for the current request; it only leaves the
// cache colder for future calls.
type StorageError struct {
	Op  string // "upsert", "query" or "coverage"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("series: storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
