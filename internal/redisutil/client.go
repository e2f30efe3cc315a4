package redisutil

import (
	"context"

	"beacon-alerts/internal/config"

	"github.com/go-redis/redis/v8"
)

// NewClient creates a Redis client from configuration.
func NewClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping verifies the connection.
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
