package redisdb

import (
	"agriapp/internal/config"

	"github.com/redis/go-redis/v9"
)

// NewClient returns nil when no address is configured; presence tracking is
// then switched off.
func NewClient(cfg *config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
