package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marmoleria/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInMemoryIdempotencyStore(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Close()
	ctx := context.Background()

	isNew, err := store.MarkProcessed(ctx, "event:1", time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = store.MarkProcessed(ctx, "event:1", time.Hour)
	require.NoError(t, err)
	assert.False(t, isNew)

	seen, err := store.IsProcessed(ctx, "event:1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = store.IsProcessed(ctx, "event:2")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Close()
	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "event:1", time.Millisecond)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	seen, _ := store.IsProcessed(ctx, "event:1")
	assert.False(t, seen)

	store.sweep()
	assert.Equal(t, 0, store.Size())

	isNew, _ := store.MarkProcessed(ctx, "event:1", time.Hour)
	assert.True(t, isNew)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestMemorySequence(t *testing.T) {
	ctx := context.Background()

	t.Run("starts after the seeded floor", func(t *testing.T) {
		calls := 0
		seq := NewMemorySequence(func(_ context.Context, year int) (int64, error) {
			calls++
			if year == 2026 {
				return 41, nil
			}
			return 0, nil
		})

		n, err := seq.Next(ctx, 2026)
		require.NoError(t, err)
		assert.Equal(t, int64(42), n)
		n, _ = seq.Next(ctx, 2026)
		assert.Equal(t, int64(43), n)
		n, _ = seq.Next(ctx, 2027)
		assert.Equal(t, int64(1), n)
		assert.Equal(t, 2, calls)
	})

	t.Run("seed failure is returned", func(t *testing.T) {
		seq := NewMemorySequence(func(context.Context, int) (int64, error) {
			return 0, errors.New("db down")
		})
		_, err := seq.Next(ctx, 2026)
		assert.ErrorContains(t, err, "seed sequence")
	})

	t.Run("concurrent callers get distinct numbers", func(t *testing.T) {
		seq := NewMemorySequence(nil)
		var (
			mu   sync.Mutex
			seen = map[int64]bool{}
			wg   sync.WaitGroup
		)
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				n, err := seq.Next(ctx, 2026)
				assert.NoError(t, err)
				mu.Lock()
				seen[n] = true
				mu.Unlock()
			}()
		}
		wg.Wait()
		assert.Len(t, seen, 50)
	})
}

func TestNewStores_FallsBackToMemory(t *testing.T) {
	cfg := &config.Config{
		App:   config.AppConfig{Env: "development"},
		Redis: config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1},
	}
	stores, err := NewStores(context.Background(), cfg, nil, zap.NewNop())
	require.NoError(t, err)
	defer stores.Close()

	assert.False(t, stores.Distributed())
	assert.IsType(t, &InMemoryIdempotencyStore{}, stores.Idempotency)
	assert.IsType(t, &MemorySequence{}, stores.Sequence)
}

func TestNewStores_ProductionRequiresRedis(t *testing.T) {
	cfg := &config.Config{
		App:   config.AppConfig{Env: "production"},
		Redis: config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1},
	}
	_, err := NewStores(context.Background(), cfg, nil, zap.NewNop())
	assert.ErrorContains(t, err, "redis required")
}
