package svc

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/core/syncx"

	cachekeys "candlecache/internal/cache"
	"candlecache/internal/config"
	candlepersist "candlecache/internal/persistence/candle"
	"candlecache/pkg/dataset"
	"candlecache/pkg/series"
	sourcepkg "candlecache/pkg/source"
	_ "candlecache/pkg/source/binance" // register binance backend
	_ "candlecache/pkg/source/sim"     // register sim backend
)

type ServiceContext struct {
	Config config.Config

	DBConn sqlx.SqlConn
	Cache  cache.Cache
	TTL    cachekeys.TTLSet

	// CandleStore is the Postgres-backed store, nil without a DSN.
	CandleStore *candlepersist.Store
	// Store is what the series service persists into: the Postgres store
	// when configured, an in-memory store otherwise.
	Store series.Store

	Backends      map[string]sourcepkg.Backend
	DefaultSource string

	Series  *series.Service
	Dataset *dataset.Manager
}

func NewServiceContext(c config.Config) *ServiceContext {
	svc := &ServiceContext{
		Config: c,
		TTL:    cachekeys.NewTTLSet(c.TTL),
	}

	if c.Redis.Host != "" {
		svc.Cache = cache.NewNode(redis.MustNewRedis(c.Redis), syncx.NewSingleFlight(), cache.NewStat(cachekeys.Namespace), sql.ErrNoRows)
	}

	if c.Postgres.DSN != "" {
		conn := sqlx.NewSqlConn("pgx", c.Postgres.DSN)
		svc.DBConn = conn
		svc.CandleStore = candlepersist.NewStore(candlepersist.Config{
			SQLConn: conn,
			Cache:   svc.Cache,
			TTL:     svc.TTL,
		})
	}

	if svc.CandleStore != nil {
		svc.Store = svc.CandleStore
	} else {
		svc.Store = series.NewMemoryStore()
	}

	if c.Sources.Value != nil {
		backends, err := c.Sources.Value.BuildBackends()
		if err != nil {
			log.Fatalf("failed to build source backends: %v", err)
		}
		svc.Backends = backends
		svc.DefaultSource = c.Sources.Value.Default
	} else {
		svc.Backends = map[string]sourcepkg.Backend{}
	}

	svc.Series = series.NewService(svc.Store, svc.Backends,
		series.WithWorkers(c.Fetch.Workers),
		series.WithFetchTimeout(time.Duration(c.Fetch.TimeoutSeconds)*time.Second),
	)
	svc.Dataset = dataset.NewManager(svc.Series, nil, nil)

	return svc
}
