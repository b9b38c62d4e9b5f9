package stock

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/marmoleria/backend/internal/domain/shared"
	"golang.org/x/sync/semaphore"
)

// DefaultLockTimeout bounds how long a caller waits for a contended key
const DefaultLockTimeout = 2 * time.Second

// KeyedLocker serializes access per key with one weighted semaphore per key.
// Multi-key acquisitions take keys in lexicographic order so that two callers
// can never wait on each other.
type KeyedLocker struct {
	mu      sync.Mutex
	sems    map[string]*semaphore.Weighted
	timeout time.Duration
}

// NewKeyedLocker creates a locker whose acquisitions give up after timeout
func NewKeyedLocker(timeout time.Duration) *KeyedLocker {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &KeyedLocker{
		sems:    make(map[string]*semaphore.Weighted),
		timeout: timeout,
	}
}

func (l *KeyedLocker) sem(key string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sems[key]
	if !ok {
		s = semaphore.NewWeighted(1)
		l.sems[key] = s
	}
	return s
}

// Acquire locks every key and returns a function releasing them. A wait longer
// than the locker timeout fails with BUSY and holds nothing. Cancellation of
// ctx is returned as-is.
func (l *KeyedLocker) Acquire(ctx context.Context, keys ...string) (func(), error) {
	ordered := slices.Clone(keys)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	waitCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	held := make([]*semaphore.Weighted, 0, len(ordered))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Release(1)
		}
	}

	for _, key := range ordered {
		s := l.sem(key)
		if err := s.Acquire(waitCtx, 1); err != nil {
			release()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, shared.NewDomainErrorf(shared.CodeBusy, "Resource %s is busy, retry later", key)
			}
			return nil, err
		}
		held = append(held, s)
	}
	return release, nil
}

// AcquireAll locks every key, waiting as long as it takes. It is reserved for
// compensations, which must not be abandoned on contention.
func (l *KeyedLocker) AcquireAll(keys ...string) func() {
	ordered := slices.Clone(keys)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	held := make([]*semaphore.Weighted, 0, len(ordered))
	for _, key := range ordered {
		s := l.sem(key)
		// Acquire only fails on a done context.
		_ = s.Acquire(context.Background(), 1)
		held = append(held, s)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Release(1)
		}
	}
}
