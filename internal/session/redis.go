package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "doc-investigator/internal/common/errors"
	"doc-investigator/internal/models"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "investigation:session:"

// RedisStore keeps sessions in Redis so a verdict can be processed by any
// instance. Sessions with an ExpiresAt get a matching key TTL.
type RedisStore struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func key(token string) string {
	return keyPrefix + token
}

func (s *RedisStore) Save(ctx context.Context, sess *models.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	var ttl time.Duration
	if !sess.ExpiresAt.IsZero() {
		ttl = sess.ExpiresAt.Sub(s.now())
		if ttl <= 0 {
			return fmt.Errorf("session %s already expired", sess.Token)
		}
	}

	if err := s.client.Set(ctx, key(sess.Token), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, token string) (*models.Session, error) {
	data, err := s.client.Get(ctx, key(token)).Bytes()
	return decode(token, data, err)
}

// Take uses GETDEL so concurrent verdicts for one token resolve to a single winner.
func (s *RedisStore) Take(ctx context.Context, token string) (*models.Session, error) {
	data, err := s.client.GetDel(ctx, key(token)).Bytes()
	return decode(token, data, err)
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, key(token)).Err(); err != nil {
		return apperrors.NewSessionStoreFailedError(fmt.Errorf("redis del session: %w", err))
	}
	return nil
}

func decode(token string, data []byte, err error) (*models.Session, error) {
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NewSessionNotFoundError(token)
	}
	if err != nil {
		return nil, apperrors.NewSessionStoreFailedError(fmt.Errorf("redis get session: %w", err))
	}

	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, apperrors.NewSessionStoreFailedError(fmt.Errorf("decode session %s: %w", token, err))
	}
	return &sess, nil
}
