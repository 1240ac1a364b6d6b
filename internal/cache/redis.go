package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"doc-investigator/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "investigation:cache:"
	fieldAnswer    = "answer"
	fieldWrittenAt = "written_at"
)

// RedisStore keeps each answer in a hash with answer and written_at fields.
type RedisStore struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client, now: nowUTC}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	answer, err := s.client.HGet(ctx, redisKeyPrefix+key, fieldAnswer).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis hget: %w", err)
	}
	return answer, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key, answer string) error {
	err := s.client.HSet(ctx, redisKeyPrefix+key,
		fieldAnswer, answer,
		fieldWrittenAt, s.now().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

// Touch rewrites written_at only. A missing hash is left missing so no
// answerless entry is created.
func (s *RedisStore) Touch(ctx context.Context, key string) error {
	exists, err := s.client.HExists(ctx, redisKeyPrefix+key, fieldAnswer).Result()
	if err != nil {
		return fmt.Errorf("redis hexists: %w", err)
	}
	if !exists {
		return nil
	}
	if err := s.client.HSet(ctx, redisKeyPrefix+key, fieldWrittenAt, s.now().Format(time.RFC3339Nano)).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Entry returns the stored hash for key.
func (s *RedisStore) Entry(ctx context.Context, key string) (*models.CacheEntry, error) {
	fields, err := s.client.HGetAll(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(fields) == 0 {
		return nil, redis.Nil
	}
	writtenAt, err := time.Parse(time.RFC3339Nano, fields[fieldWrittenAt])
	if err != nil {
		return nil, fmt.Errorf("parse written_at: %w", err)
	}
	return &models.CacheEntry{Key: key, Answer: fields[fieldAnswer], WrittenAt: writtenAt}, nil
}
