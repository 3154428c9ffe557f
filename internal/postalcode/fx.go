package postalcode

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/orderdesk/internal/config"
	"github.com/smallbiznis/orderdesk/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("postal.code",
	fx.Provide(NewStore),
	fx.Provide(NewLookup),
)

type StoreParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
}

// NewStore returns a Redis store when REDIS_ADDR is set, otherwise an in-process one.
func NewStore(p StoreParams) Store {
	addr := strings.TrimSpace(p.Config.RedisAddr)
	if addr == "" {
		p.Log.Info("postal cache running in memory")
		return NewMemoryStore(defaultMemoryEntries, p.Config.PostalCacheTTL)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(p.Config.RedisPassword),
		DB:       p.Config.RedisDB,
	})
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				p.Log.Warn("postal cache redis unreachable", zap.String("addr", addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return NewRedisStore(client)
}

type LookupParams struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Store   Store
	Metrics *metrics.Metrics `optional:"true"`
}

func NewLookup(p LookupParams) Lookup {
	client := NewClient(p.Config.PostalLookupURL, p.Config.PostalLookupTimeout)
	return NewCachedLookup(client, p.Store, p.Config.PostalCacheTTL, p.Log.Named("postal.lookup"), p.Metrics)
}
