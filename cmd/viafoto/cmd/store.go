package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/viafoto/viafoto/internal/cache"
	"github.com/viafoto/viafoto/internal/config"
)

// newStore builds the result cache backend selected in the configuration.
func newStore(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case "redis":
		store, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			TTL:      time.Duration(cfg.Cache.Redis.TTLHours) * time.Hour,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to redis cache: %w", err)
		}
		return store, nil
	case "memory", "":
		return cache.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
