package memcache_fx

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"hairsim/internal/config"
	mem "hairsim/pkg/memcache"
)

var Module = fx.Provide(provideLeaseStore)

func provideLeaseStore(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (mem.LeaseStore, error) {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, generation leases are process-local")
		return mem.NewLeases(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := mem.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return mem.NewRedisLeases(client), nil
}
