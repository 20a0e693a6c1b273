package candlepersist

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cachekeys "candlecache/internal/cache"
	"candlecache/internal/config"
	"candlecache/pkg/candle"
)

var errCacheMiss = errors.New("not found")

// fakeCache is an in-process stand-in for the Redis-backed cache, good enough
// to exercise the read/write pairing of the hot-lookup helpers.
type fakeCache struct {
	entries map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (f *fakeCache) set(key string, val any) error {
	buf, err := json.Marshal(val)
	if err != nil {
		return err
	}
	f.entries[key] = buf
	return nil
}

func (f *fakeCache) get(key string, val any) error {
	buf, ok := f.entries[key]
	if !ok {
		return errCacheMiss
	}
	return json.Unmarshal(buf, val)
}

func (f *fakeCache) Del(keys ...string) error { return f.DelCtx(context.Background(), keys...) }

func (f *fakeCache) DelCtx(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.entries, key)
	}
	return nil
}

func (f *fakeCache) Get(key string, val any) error { return f.get(key, val) }

func (f *fakeCache) GetCtx(_ context.Context, key string, val any) error { return f.get(key, val) }

func (f *fakeCache) IsNotFound(err error) bool { return errors.Is(err, errCacheMiss) }

func (f *fakeCache) Set(key string, val any) error { return f.set(key, val) }

func (f *fakeCache) SetCtx(_ context.Context, key string, val any) error { return f.set(key, val) }

func (f *fakeCache) SetWithExpire(key string, val any, _ time.Duration) error {
	return f.set(key, val)
}

func (f *fakeCache) SetWithExpireCtx(_ context.Context, key string, val any, _ time.Duration) error {
	return f.set(key, val)
}

func (f *fakeCache) Take(val any, key string, query func(val any) error) error {
	if err := f.get(key, val); err == nil {
		return nil
	}
	if err := query(val); err != nil {
		return err
	}
	return f.set(key, val)
}

func (f *fakeCache) TakeCtx(_ context.Context, val any, key string, query func(val any) error) error {
	return f.Take(val, key, query)
}

func (f *fakeCache) TakeWithExpire(val any, key string, query func(val any, expire time.Duration) error) error {
	if err := f.get(key, val); err == nil {
		return nil
	}
	if err := query(val, 0); err != nil {
		return err
	}
	return f.set(key, val)
}

func (f *fakeCache) TakeWithExpireCtx(_ context.Context, val any, key string,
	query func(val any, expire time.Duration) error) error {
	return f.TakeWithExpire(val, key, query)
}

func testTTL() cachekeys.TTLSet {
	return cachekeys.NewTTLSet(config.CacheTTL{Short: 10, Medium: 60, Long: 300})
}

func TestLatestCloseReadsWhatUpsertCaches(t *testing.T) {
	fake := newFakeCache()
	store := &Store{cache: fake, ttl: testTTL()}

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := []candle.Candle{
		{Symbol: "BTCUSDT", Timestamp: base, Interval: "1h", Source: "sim", Close: 100},
		{Symbol: "BTCUSDT", Timestamp: base.Add(time.Hour), Interval: "1h", Source: "sim", Close: 105},
		{Symbol: "ETHUSDT", Timestamp: base, Interval: "1h", Source: "sim", Close: 40},
	}
	store.cacheLatest(context.Background(), rows)

	last, ok := store.LatestClose(context.Background(), "BTCUSDT", "1h", "sim")
	require.True(t, ok)
	require.Equal(t, 105.0, last, "the newest row per series wins")

	last, ok = store.LatestClose(context.Background(), "ETHUSDT", "1h", "sim")
	require.True(t, ok)
	require.Equal(t, 40.0, last)

	_, ok = store.LatestClose(context.Background(), "SOLUSDT", "1h", "sim")
	require.False(t, ok)
}

func TestLatestCloseWithoutCache(t *testing.T) {
	var store *Store
	_, ok := store.LatestClose(context.Background(), "BTCUSDT", "1h", "sim")
	require.False(t, ok)

	store = &Store{}
	_, ok = store.LatestClose(context.Background(), "BTCUSDT", "1h", "sim")
	require.False(t, ok)
}
