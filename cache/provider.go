// Package cache implements the Redis-backed session cache: namespaced keys
// with per-key expiry, explicit cache-aside reads, and delete-on-write
// invalidation. Bearer tokens, transient tokens, and login-log aggregates all
// live here.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key has no live entry.
var ErrMiss = errors.New("cache miss")

// ErrRedisUnavailable wraps transport-level Redis failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Provider is a thin namespace over a Redis client. All values are strings;
// callers serialize structured values themselves.
type Provider struct {
	redis  redis.UniversalClient
	prefix string
}

// NewProvider creates a cache [Provider]. prefix sets the Redis key namespace.
func NewProvider(redisClient redis.UniversalClient, prefix string) *Provider {
	if prefix == "" {
		prefix = "warden"
	}
	return &Provider{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (p *Provider) key(k string) string {
	return p.prefix + ":" + k
}

// Set writes value under key with the given TTL. A non-positive TTL persists
// the key until explicit removal.
func (p *Provider) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := p.redis.Set(ctx, p.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get returns the live value for key or [ErrMiss].
func (p *Provider) Get(ctx context.Context, key string) (string, error) {
	value, err := p.redis.Get(ctx, p.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrMiss
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return value, nil
}

// GetOrLoad is the cache-aside read: look the key up; on miss invoke loader,
// store its result under key with ttl, and return it. Concurrent misses may
// each invoke loader; last write wins, which is acceptable for rebuildable
// aggregates.
func (p *Provider) GetOrLoad(
	ctx context.Context,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (string, error),
) (string, error) {
	value, err := p.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, ErrMiss) {
		return "", err
	}

	value, err = loader(ctx)
	if err != nil {
		return "", err
	}
	if err := p.Set(ctx, key, value, ttl); err != nil {
		return "", err
	}
	return value, nil
}

// Remove deletes the given keys. Removing an absent key is not an error.
func (p *Provider) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	namespaced := make([]string, 0, len(keys))
	for _, k := range keys {
		namespaced = append(namespaced, p.key(k))
	}
	if err := p.redis.Del(ctx, namespaced...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// TakeOne atomically reads and deletes key (GETDEL), reporting whether a live
// entry existed. This is the at-most-once primitive behind transient tokens.
func (p *Provider) TakeOne(ctx context.Context, key string) (bool, error) {
	_, err := p.redis.GetDel(ctx, p.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return true, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (p *Provider) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := p.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
