package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/marmoleria/backend/internal/domain/quote"
	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stores are the shared-state components that live in Redis when it is
// available and in process memory otherwise
type Stores struct {
	Idempotency shared.IdempotencyStore
	Sequence    quote.NumberSequence
	client      *redis.Client
}

// Close releases the Redis connection or the in-memory sweeper
func (s *Stores) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return s.Idempotency.Close()
}

// Client returns the Redis client, or nil when the stores live in memory
func (s *Stores) Client() *redis.Client {
	return s.client
}

// Distributed reports whether the stores are backed by Redis
func (s *Stores) Distributed() bool {
	return s.client != nil
}

// NewStores builds the stores. With Redis enabled but unreachable it fails in
// production and falls back to memory elsewhere.
func NewStores(ctx context.Context, cfg *config.Config, seed SeedFunc, logger *zap.Logger) (*Stores, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Redis.Enabled {
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err == nil {
			logger.Info("using Redis for idempotency and quote numbering", zap.String("addr", cfg.Redis.Addr()))
			return &Stores{
				Idempotency: NewRedisIdempotencyStore(client, ""),
				Sequence:    NewRedisSequence(client, seed),
				client:      client,
			}, nil
		}
		if cfg.App.IsProduction() {
			return nil, fmt.Errorf("redis required but unavailable: %w", err)
		}
		logger.Warn("Redis unavailable, falling back to in-memory stores", zap.Error(err))
	}
	return &Stores{
		Idempotency: NewInMemoryIdempotencyStore(5 * time.Minute),
		Sequence:    NewMemorySequence(seed),
	}, nil
}
