package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"candlecache/pkg/candle"
)

const (
	defaultBaseURL          = "https://api.binance.com"
	defaultHTTPTimeout      = 10 * time.Second
	defaultMaxRetries       = 3
	defaultRetryBackoffBase = 150 * time.Millisecond

	// MaxCandlesPerRequest is the number of klines requested per call. The
	// exchange allows more, but the planner sizes sub-windows around this
	// ceiling so one sub-window always fits one call.
	MaxCandlesPerRequest = 100
)

// Client wraps access to the Binance spot klines endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	logger     *log.Logger
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the default API endpoint URL.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = base
		}
	}
}

// WithMaxRetries adjusts the retry budget.
func WithMaxRetries(max int) Option {
	return func(c *Client) {
		if max >= 0 {
			c.maxRetries = max
		}
	}
}

// WithLogger injects a custom logger (defaults to log.Default()).
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient constructs a Binance API client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		maxRetries: defaultMaxRetries,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if client.logger == nil {
		client.logger = log.Default()
	}
	return client
}

// GetKlines fetches OHLCV candles for one symbol inside [start, end].
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, start, end time.Time) ([]candle.Candle, error) {
	query := url.Values{}
	query.Set("symbol", candle.Canonical(symbol))
	query.Set("interval", interval)
	query.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	query.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	query.Set("limit", strconv.Itoa(MaxCandlesPerRequest))
	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", c.baseURL, query.Encode())

	body, err := c.doRequest(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var raw [][]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("binance: decode klines: %w", err)
	}

	klines := make([]candle.Candle, 0, len(raw))
	for _, row := range raw {
		k, err := parseKline(symbol, row)
		if err != nil {
			return nil, err
		}
		klines = append(klines, k)
	}
	sort.Slice(klines, func(i, j int) bool {
		return klines[i].Timestamp.Before(klines[j].Timestamp)
	})
	return klines, nil
}

// doRequest performs a GET with retries and exponential backoff, honoring
// context cancellation between attempts.
func (c *Client) doRequest(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error
	backoff := defaultRetryBackoffBase
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("binance: build request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("binance: read response: %w", readErr)
			case resp.StatusCode == http.StatusOK:
				return body, nil
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				lastErr = fmt.Errorf("binance: status %d: %s", resp.StatusCode, truncate(body, 256))
			default:
				return nil, fmt.Errorf("binance: status %d: %s", resp.StatusCode, truncate(body, 256))
			}
		}

		if attempt < c.maxRetries {
			c.logger.Printf("binance: attempt %d/%d failed: %v", attempt+1, c.maxRetries+1, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return nil, lastErr
}

func truncate(body []byte, max int) string {
	if len(body) > max {
		body = body[:max]
	}
	return string(body)
}
