// Package cache provides the namespaced key-value cache used by report
// generation and the dashboards. Keys are prefixed by concern
// ("ai_analysis:*", "dashboard:*") so related entries can be invalidated by
// pattern.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/meditrack-ai/platform/pkg/common/logger"
	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeleteMatching removes every key matching the glob pattern and returns
	// the count. Deleting zero keys is not an error.
	DeleteMatching(ctx context.Context, pattern string) (int, error)
}

// Redis implements Cache over go-redis. The client is constructed at process
// start, injected here, and closed at shutdown by the owner.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (r *Redis) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *Redis) DeleteMatching(ctx context.Context, pattern string) (int, error) {
	var deleted int

	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, err
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}

	if deleted > 0 {
		logger.WithComponent("cache").WithFields(map[string]interface{}{
			"pattern": pattern,
			"deleted": deleted,
		}).Info("Invalidated cache keys")
	}
	return deleted, nil
}
