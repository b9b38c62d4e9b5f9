package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which keys (event IDs, reservation IDs) have already
// been applied so that a redelivered event is not counted twice.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed for ttl.
	// Returns true if the key was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close releases resources held by the store
	Close() error
}

// DefaultIdempotencyTTL is how long processed keys are remembered
const DefaultIdempotencyTTL = 24 * time.Hour
