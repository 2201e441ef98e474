package middleware

import (
	"context"
	"encoding/json"
	"time"

	"navalha/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisIdempotencyStore shares the replay cache across instances, so a
// webhook redelivered to a different replica is still suppressed.
type RedisIdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

func NewRedisIdempotencyStore(rdb *redis.Client, ttl time.Duration, log *logger.Logger) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		rdb: rdb,
		ttl: ttl,
		log: log,
	}
}

func (s *RedisIdempotencyStore) key(k string) string {
	return "idempotency:" + k
}

func (s *RedisIdempotencyStore) Get(key string) (*CachedResponse, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.Warn("Idempotency cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var cached CachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		s.log.Warn("Idempotency cache entry corrupted", "key", key, "error", err)
		return nil, false
	}

	return &cached, true
}

func (s *RedisIdempotencyStore) Set(key string, response *CachedResponse) {
	response.CreatedAt = time.Now()

	data, err := json.Marshal(response)
	if err != nil {
		s.log.Warn("Failed to encode idempotency cache entry", "key", key, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.rdb.Set(ctx, s.key(key), data, s.ttl).Err(); err != nil {
		s.log.Warn("Idempotency cache write failed", "key", key, "error", err)
	}
}

// Stop is a no-op: expiry is handled by Redis TTLs.
func (s *RedisIdempotencyStore) Stop() {}
