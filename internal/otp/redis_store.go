package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fraudshield/server/internal/model"
)

const redisKeyPrefix = "otp:"

// redisGraceTTL keeps expired entries around past their logical expiry so
// that lazy-expiry checks and Status can still observe them; Redis eviction
// is only a backstop against entries nobody ever touches again.
const redisGraceTTL = time.Hour

// RedisStore backs the ledger with Redis for multi-instance deployments.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Store on top of the given Redis client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (model.OTPEntry, bool, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.OTPEntry{}, false, nil
		}
		return model.OTPEntry{}, false, fmt.Errorf("redis get: %w", err)
	}
	var entry model.OTPEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return model.OTPEntry{}, false, fmt.Errorf("decode otp entry: %w", err)
	}
	return entry, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, entry model.OTPEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode otp entry: %w", err)
	}
	ttl := time.Until(entry.ExpiresAt) + redisGraceTTL
	if ttl <= 0 {
		ttl = redisGraceTTL
	}
	if err := s.client.Set(ctx, redisKeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()[len(redisKeyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}
