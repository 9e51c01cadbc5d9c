// Package cache opens the Redis connection shared by the preview cache and the queue.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options tunes the Redis client.
type Options struct {
	Addr         string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// New creates a Redis client and verifies it with a ping.
func New(ctx context.Context, opts Options) (*redis.Client, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("platform/cache: address required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		DialTimeout:  orDefault(opts.DialTimeout, 5*time.Second),
		ReadTimeout:  orDefault(opts.ReadTimeout, 3*time.Second),
		WriteTimeout: orDefault(opts.WriteTimeout, 3*time.Second),
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping: %w", err)
	}
	return client, nil
}

// Checker adapts a client into a readiness probe.
func Checker(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

func orDefault(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}
