package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/marmoleria/backend/internal/domain/quote"
	"github.com/redis/go-redis/v9"
)

// SeedFunc returns the highest sequence already used in year, so a counter
// that starts empty never hands out a number twice
type SeedFunc func(ctx context.Context, year int) (int64, error)

const sequenceKeyPrefix = "marmoleria:quote_seq:"

// RedisSequence hands out quote sequence numbers with INCR, one key per year
type RedisSequence struct {
	client *redis.Client
	seed   SeedFunc
}

// NewRedisSequence creates a sequence. seed may be nil.
func NewRedisSequence(client *redis.Client, seed SeedFunc) *RedisSequence {
	return &RedisSequence{client: client, seed: seed}
}

// seedScript raises the counter to the floor without ever lowering it
var seedScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local floor = tonumber(ARGV[1])
if floor > cur then redis.call('SET', KEYS[1], floor) end
return 1`)

// Next returns the next sequence number of year
func (s *RedisSequence) Next(ctx context.Context, year int) (int64, error) {
	key := sequenceKeyPrefix + strconv.Itoa(year)

	if s.seed != nil {
		exists, err := s.client.Exists(ctx, key).Result()
		if err != nil {
			return 0, fmt.Errorf("check sequence: %w", err)
		}
		if exists == 0 {
			floor, err := s.seed(ctx, year)
			if err != nil {
				return 0, fmt.Errorf("seed sequence: %w", err)
			}
			if err := seedScript.Run(ctx, s.client, []string{key}, floor).Err(); err != nil {
				return 0, fmt.Errorf("seed sequence: %w", err)
			}
		}
	}

	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("increment sequence: %w", err)
	}
	return n, nil
}

// MemorySequence is an in-process quote.NumberSequence for single-instance
// deployments. Each year is seeded once from seed.
type MemorySequence struct {
	mu      sync.Mutex
	seed    SeedFunc
	current map[int]int64
}

// NewMemorySequence creates a sequence. seed may be nil.
func NewMemorySequence(seed SeedFunc) *MemorySequence {
	return &MemorySequence{seed: seed, current: make(map[int]int64)}
}

// Next returns the next sequence number of year
func (s *MemorySequence) Next(ctx context.Context, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.current[year]
	if !ok && s.seed != nil {
		floor, err := s.seed(ctx, year)
		if err != nil {
			return 0, fmt.Errorf("seed sequence: %w", err)
		}
		cur = floor
	}
	cur++
	s.current[year] = cur
	return cur, nil
}

var (
	_ quote.NumberSequence = (*RedisSequence)(nil)
	_ quote.NumberSequence = (*MemorySequence)(nil)
)
