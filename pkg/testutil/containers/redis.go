//go:build integration

package containers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisContainer backs the scheduler lock in integration tests and lets a
// test play the part of another replica holding that lock.
type RedisContainer struct {
	Container testcontainers.Container
	URL       string
	Client    *redis.Client
}

// NewRedisContainer starts Redis and connects a client to it. The container
// is shared through Manager, so no cleanup is registered on t.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	r, err := startRedis(context.Background())
	if err != nil {
		t.Fatalf("redis container: %v", err)
	}
	return r
}

func startRedis(ctx context.Context) (*RedisContainer, error) {
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	url, err := container.ConnectionString(ctx)
	if err == nil {
		var opts *redis.Options
		if opts, err = redis.ParseURL(url); err == nil {
			client := redis.NewClient(opts)
			if err = client.Ping(ctx).Err(); err == nil {
				return &RedisContainer{Container: container, URL: url, Client: client}, nil
			}
			_ = client.Close()
		}
	}
	_ = container.Terminate(ctx)
	return nil, fmt.Errorf("connect: %w", err)
}

// FlushAll drops every key, including locks left by a previous test.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}

// HoldLock stores key with a token no locker in the test owns, as a second
// replica mid-pass would.
func (r *RedisContainer) HoldLock(ctx context.Context, key string, ttl time.Duration) error {
	return r.Client.Set(ctx, key, "other-replica", ttl).Err()
}

// LockOwner returns the token stored under key and whether the key exists.
func (r *RedisContainer) LockOwner(ctx context.Context, key string) (string, bool, error) {
	token, err := r.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

// LockTTL returns the remaining lifetime of key.
func (r *RedisContainer) LockTTL(ctx context.Context, key string) (time.Duration, error) {
	return r.Client.TTL(ctx, key).Result()
}
