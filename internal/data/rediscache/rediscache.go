// Package rediscache implements the CacheRepository port on Redis.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stagehand-app/stagehand/internal/core"
)

// Repo implements core.CacheRepository using Redis.
type Repo struct {
	client redis.UniversalClient
}

var _ core.CacheRepository = (*Repo)(nil)

// New creates a Repo with the given Redis client.
func New(client redis.UniversalClient) *Repo {
	return &Repo{client: client}
}

// Get retrieves a value from Redis by key. Returns nil if the key doesn't
// exist or has expired.
func (r *Repo) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("key cannot be empty")
	}

	result, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return []byte(result), nil
}

// Set stores a value in Redis with the given key and TTL. A zero TTL means
// the key does not expire.
func (r *Repo) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes a key from Redis, reporting whether it existed.
func (r *Repo) Delete(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("key cannot be empty")
	}

	result, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis del: %w", err)
	}
	return result > 0, nil
}

// SetIfNotExists atomically sets a key only if it doesn't already exist.
// SET with NX and TTL is atomic; a separate SETNX+EXPIRE pair would race
// under concurrency.
func (r *Repo) SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, errors.New("key cannot be empty")
	}

	actualTTL := ttl
	if ttl <= 0 {
		actualTTL = time.Second
	}

	status, err := r.client.SetArgs(ctx, key, value, redis.SetArgs{Mode: "NX", TTL: actualTTL}).Result()
	if err != nil {
		// Redis replies nil when the NX condition fails; go-redis surfaces
		// that as redis.Nil, meaning "was not set", not an error.
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis SET NX: %w", err)
	}
	return status == "OK", nil
}

// Increment atomically increments a counter, setting the TTL only when the
// key is first created so the window does not slide on every hit.
func (r *Repo) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if key == "" {
		return 0, errors.New("key cannot be empty")
	}

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	if ttl > 0 {
		pipe.ExpireNX(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr: %w", err)
	}
	return incr.Val(), nil
}

// Health checks the health of the Redis connection.
func (r *Repo) Health(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
