// Package candlepersist stores candle series in Postgres and mirrors hot
// lookups into Redis.
package candlepersist

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	gocache "github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	cachekeys "candlecache/internal/cache"
	"candlecache/pkg/candle"
	"candlecache/pkg/series"
)

// Store implements series.Store on Postgres. The Redis cache is optional;
// when absent every lookup goes straight to the database.
type Store struct {
	sqlConn sqlx.SqlConn
	cache   gocache.Cache
	ttl     cachekeys.TTLSet
}

// Config enumerates dependencies required to persist candle data.
type Config struct {
	SQLConn sqlx.SqlConn
	Cache   gocache.Cache
	TTL     cachekeys.TTLSet
}

// NewStore wires a candle persistence store. Returns nil when the database
// connection is missing.
func NewStore(cfg Config) *Store {
	if cfg.SQLConn == nil {
		return nil
	}
	return &Store{
		sqlConn: cfg.SQLConn,
		cache:   cfg.Cache,
		ttl:     cfg.TTL,
	}
}

var _ series.Store = (*Store)(nil)

// EnsureSchema creates the market_data table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil || s.sqlConn == nil {
		return nil
	}
	stmt := `
CREATE TABLE IF NOT EXISTS public.market_data (
    symbol     TEXT             NOT NULL,
    ts         TIMESTAMPTZ      NOT NULL,
    "interval" TEXT             NOT NULL,
    source     TEXT             NOT NULL,
    open       DOUBLE PRECISION NOT NULL,
    high       DOUBLE PRECISION NOT NULL,
    low        DOUBLE PRECISION NOT NULL,
    close      DOUBLE PRECISION NOT NULL,
    volume     DOUBLE PRECISION NOT NULL,
    created_at TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
    PRIMARY KEY (symbol, ts, "interval", source)
);`
	if _, err := s.sqlConn.ExecCtx(ctx, stmt); err != nil {
		return fmt.Errorf("ensure market_data schema: %w", err)
	}
	return nil
}

// Upsert writes candles with last-write-wins semantics on the identity key.
func (s *Store) Upsert(ctx context.Context, rows []candle.Candle) error {
	if s == nil || s.sqlConn == nil || len(rows) == 0 {
		return nil
	}
	stmt := `
INSERT INTO public.market_data (
    symbol, ts, "interval", source, open, high, low, close, volume, created_at, updated_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW()
)
ON CONFLICT (symbol, ts, "interval", source) DO UPDATE SET
    open = EXCLUDED.open,
    high = EXCLUDED.high,
    low = EXCLUDED.low,
    close = EXCLUDED.close,
    volume = EXCLUDED.volume,
    updated_at = NOW();`
	for _, row := range rows {
		if _, err := s.sqlConn.ExecCtx(ctx, stmt,
			row.Symbol,
			row.Timestamp.UTC(),
			row.Interval,
			row.Source,
			row.Open,
			row.High,
			row.Low,
			row.Close,
			row.Volume,
		); err != nil {
			return fmt.Errorf("upsert candle %s: %w", row, err)
		}
	}
	s.cacheLatest(ctx, rows)
	return nil
}

type candleRow struct {
	Symbol   string    `db:"symbol"`
	Ts       time.Time `db:"ts"`
	Interval string    `db:"interval"`
	Source   string    `db:"source"`
	Open     float64   `db:"open"`
	High     float64   `db:"high"`
	Low      float64   `db:"low"`
	Close    float64   `db:"close"`
	Volume   float64   `db:"volume"`
}

// Query returns stored candles for the series identity within the window,
// ascending by timestamp.
func (s *Store) Query(ctx context.Context, symbol, interval, src string, window candle.Window) ([]candle.Candle, error) {
	if s == nil || s.sqlConn == nil {
		return nil, nil
	}
	stmt := `
SELECT symbol, ts, "interval", source, open, high, low, close, volume
FROM public.market_data
WHERE symbol = $1 AND "interval" = $2 AND source = $3 AND ts BETWEEN $4 AND $5
ORDER BY ts ASC;`
	var rows []candleRow
	err := s.sqlConn.QueryRowsCtx(ctx, &rows, stmt, symbol, interval, src, window.Start.UTC(), window.End.UTC())
	if err != nil {
		if err == sqlx.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("query candles %s/%s/%s: %w", src, interval, symbol, err)
	}
	out := make([]candle.Candle, len(rows))
	for i, row := range rows {
		out[i] = candle.Candle{
			Symbol:    row.Symbol,
			Timestamp: row.Ts.UTC(),
			Interval:  row.Interval,
			Source:    row.Source,
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Close:     row.Close,
			Volume:    row.Volume,
		}
	}
	return out, nil
}

type coveragePayload struct {
	Earliest int64 `json:"earliest"`
	Latest   int64 `json:"latest"`
}

// Coverage reports the extremal stored timestamps within the window. Only
// fully covering extents are mirrored into Redis, so a cache hit always means
// zero gaps for the window.
func (s *Store) Coverage(ctx context.Context, symbol, interval, src string, window candle.Window) (series.Coverage, error) {
	if s == nil || s.sqlConn == nil {
		return series.Coverage{}, nil
	}

	key := coverageCacheKey(symbol, interval, src, window)
	if s.cache != nil {
		var payload coveragePayload
		if err := s.cache.GetCtx(ctx, key, &payload); err == nil {
			return series.Coverage{
				Earliest: time.Unix(payload.Earliest, 0).UTC(),
				Latest:   time.Unix(payload.Latest, 0).UTC(),
			}, nil
		} else if !s.cache.IsNotFound(err) {
			logx.WithContext(ctx).Errorf("candlepersist: read coverage key=%s err=%v", key, err)
		}
	}

	stmt := `
SELECT MIN(ts) AS earliest, MAX(ts) AS latest
FROM public.market_data
WHERE symbol = $1 AND "interval" = $2 AND source = $3 AND ts BETWEEN $4 AND $5;`
	var row struct {
		Earliest sql.NullTime `db:"earliest"`
		Latest   sql.NullTime `db:"latest"`
	}
	err := s.sqlConn.QueryRowCtx(ctx, &row, stmt, symbol, interval, src, window.Start.UTC(), window.End.UTC())
	if err != nil && err != sqlx.ErrNotFound {
		return series.Coverage{}, fmt.Errorf("coverage %s/%s/%s: %w", src, interval, symbol, err)
	}
	if !row.Earliest.Valid || !row.Latest.Valid {
		return series.Coverage{}, nil
	}

	cov := series.Coverage{
		Earliest: row.Earliest.Time.UTC(),
		Latest:   row.Latest.Time.UTC(),
	}
	// Only fully covered windows are cached. A partial extent would outlive
	// the upserts that fill its gaps and make the next identical request
	// re-download them; full coverage never regresses.
	if cov.Covers(window) {
		s.cacheCoverage(ctx, key, cov)
	}
	return cov, nil
}

// LatestClose returns the cached most recent close for a series, if present.
func (s *Store) LatestClose(ctx context.Context, symbol, interval, src string) (float64, bool) {
	if s == nil || s.cache == nil {
		return 0, false
	}
	key := cachekeys.CandleLatestKey(symbol, interval, src)
	var payload map[string]float64
	if err := s.cache.GetCtx(ctx, key, &payload); err != nil {
		if !s.cache.IsNotFound(err) {
			logx.WithContext(ctx).Errorf("candlepersist: read latest key=%s err=%v", key, err)
		}
		return 0, false
	}
	last, ok := payload["close"]
	return last, ok
}

func (s *Store) cacheLatest(ctx context.Context, rows []candle.Candle) {
	if s.cache == nil {
		return
	}
	ttl := cachekeys.CandleLatestTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	newest := make(map[candle.Key]candle.Candle, len(rows))
	for _, row := range rows {
		key := row.Key()
		key.Timestamp = 0
		if prev, ok := newest[key]; !ok || row.Timestamp.After(prev.Timestamp) {
			newest[key] = row
		}
	}
	for _, row := range newest {
		key := cachekeys.CandleLatestKey(row.Symbol, row.Interval, row.Source)
		payload := map[string]float64{
			"close": row.Close,
			"ts":    float64(row.Timestamp.Unix()),
		}
		if err := s.cache.SetWithExpireCtx(ctx, key, payload, ttl); err != nil {
			logx.WithContext(ctx).Errorf("candlepersist: cache latest key=%s err=%v", key, err)
		}
	}
}

func (s *Store) cacheCoverage(ctx context.Context, key string, cov series.Coverage) {
	if s.cache == nil {
		return
	}
	ttl := cachekeys.CoverageTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	payload := coveragePayload{
		Earliest: cov.Earliest.Unix(),
		Latest:   cov.Latest.Unix(),
	}
	if err := s.cache.SetWithExpireCtx(ctx, key, payload, ttl); err != nil {
		logx.WithContext(ctx).Errorf("candlepersist: cache coverage key=%s err=%v", key, err)
	}
}

func coverageCacheKey(symbol, interval, src string, window candle.Window) string {
	suffix := fmt.Sprintf("%d-%d", window.Start.Unix(), window.End.Unix())
	return cachekeys.BuildKeyWithSuffix(cachekeys.CoverageKey(symbol, interval, src), suffix)
}
