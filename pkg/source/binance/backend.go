package binance

import (
	"context"
	"net/http"

	"candlecache/pkg/candle"
	"candlecache/pkg/source"
)

var _ source.Backend = (*Backend)(nil)

// Backend adapts the klines client to the generic source.Backend contract.
type Backend struct {
	client *Client
	limit  int
}

// NewBackend constructs a Binance source backend.
func NewBackend(opts ...Option) *Backend {
	return &Backend{client: NewClient(opts...), limit: MaxCandlesPerRequest}
}

// Fetch downloads candles for each symbol sequentially. The exchange rate
// limits per API key, so symbols within one call stay ordered.
func (b *Backend) Fetch(ctx context.Context, symbols []string, window candle.Window, interval string) ([]candle.Candle, error) {
	if window.Empty() {
		return nil, nil
	}
	var out []candle.Candle
	for _, sym := range symbols {
		rows, err := b.client.GetKlines(ctx, sym, interval, window.Start, window.End)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// BatchLimit reports the per-call candle ceiling.
func (b *Backend) BatchLimit() int { return b.limit }

func init() {
	source.RegisterBackend("binance", func(name string, cfg *source.BackendConfig) (source.Backend, error) {
		var opts []Option
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		if cfg.MaxRetries > 0 {
			opts = append(opts, WithMaxRetries(cfg.MaxRetries))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
		}
		backend := NewBackend(opts...)
		if cfg.BatchLimit > 0 {
			backend.limit = cfg.BatchLimit
		}
		return backend, nil
	})
}
