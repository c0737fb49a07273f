//go:build integration

// Package containers starts throwaway infrastructure for integration tests.
package containers

import (
	"context"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisContainer wraps a testcontainers Redis instance.
type RedisContainer struct {
	Container *tcredis.RedisContainer
	URL       string
	Client    *redis.Client
}

var (
	redisOnce   sync.Once
	sharedRedis *RedisContainer
	redisErr    error
)

// SharedRedis starts one Redis container per test binary and returns it.
// Ryuk reaps the container when the binary exits.
func SharedRedis(t *testing.T) *RedisContainer {
	t.Helper()
	redisOnce.Do(func() {
		sharedRedis, redisErr = startRedis(context.Background())
	})
	if redisErr != nil {
		t.Fatalf("failed to start redis container: %v", redisErr)
	}
	return sharedRedis
}

func startRedis(ctx context.Context) (*RedisContainer, error) {
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return nil, err
	}

	url, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &RedisContainer{Container: container, URL: url, Client: client}, nil
}

// FlushAll removes all keys from the Redis database.
// Use between tests to ensure isolation.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}
