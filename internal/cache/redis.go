// Package cache mirrors carts, orders and payment statuses into Redis so
// other processes can read them and follow changes over pub/sub.
package cache

import (
	"context"
	"fmt"
	"time"

	"freetime_shop/internal/config"

	"github.com/redis/go-redis/v9"
)

// Connect opens a client for cfg and checks it with a PING.
func Connect(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("cache: REDIS_HOST not configured")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Host,
		Password:     cfg.Password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: connect to redis %s: %w", cfg.Host, err)
	}
	return client, nil
}
