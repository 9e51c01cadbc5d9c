package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const planCacheVersionKey = "documents:plan:version"

// PlanCache memoises preview results in Redis. Keys carry a version so Bump
// invalidates everything at once. A nil cache or client computes directly.
type PlanCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewPlanCache instantiates the cache helper.
func NewPlanCache(client *redis.Client, ttl time.Duration) *PlanCache {
	return &PlanCache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *PlanCache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, planCacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, planCacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, planCacheVersionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// BuildKey composes the cache key with the current version.
func (c *PlanCache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(append([]string{"documents", "plan"}, parts...), ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", joined, ver), nil
}

// FetchJSON loads a cached value into dest or populates it using loader.
// Concurrent misses for the same key share one loader call. It reports whether
// the value came from Redis.
func (c *PlanCache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) (bool, error) {
	if loader == nil {
		return false, errors.New("documents: cache loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return false, err
		}
		return false, decodeInto(value, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return true, json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return false, err
	}

	ch := c.group.DoChan(key, func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			return nil, err
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return false, json.Unmarshal(res.Val.([]byte), dest)
	}
}

// Bump invalidates every cached plan by incrementing the version.
func (c *PlanCache) Bump(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	return c.client.Incr(ctx, planCacheVersionKey).Result()
}

func decodeInto(value, dest any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
