//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisStores(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	t.Run("idempotency", func(t *testing.T) {
		store := NewRedisIdempotencyStore(client, "test:")
		isNew, err := store.MarkProcessed(ctx, "event:1", time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew)
		isNew, err = store.MarkProcessed(ctx, "event:1", time.Minute)
		require.NoError(t, err)
		assert.False(t, isNew)
		seen, err := store.IsProcessed(ctx, "event:1")
		require.NoError(t, err)
		assert.True(t, seen)
	})

	t.Run("sequence seeds once then increments", func(t *testing.T) {
		seq := NewRedisSequence(client, func(context.Context, int) (int64, error) { return 9, nil })
		n, err := seq.Next(ctx, 2026)
		require.NoError(t, err)
		assert.Equal(t, int64(10), n)
		n, err = seq.Next(ctx, 2026)
		require.NoError(t, err)
		assert.Equal(t, int64(11), n)
	})
}
