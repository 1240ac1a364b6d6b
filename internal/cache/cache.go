// Package cache implements the answer cache: a map from request fingerprints
// to previously produced answers, with a recency timestamp refreshed on every
// write and on every Touch.
package cache

import (
	"context"
	"fmt"
	"time"

	"doc-investigator/internal/common/config"
	"doc-investigator/internal/common/database"
	"doc-investigator/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

// Store is implemented by every backend.
type Store interface {
	Get(ctx context.Context, key string) (answer string, found bool, err error)
	Put(ctx context.Context, key, answer string) error
	// Touch refreshes the timestamp of an existing entry and leaves its answer
	// alone. A missing key is not an error.
	Touch(ctx context.Context, key string) error
	Delete(ctx context.Context, key string) error
}

// New builds the backend selected by storage.cache_backend, fronted by an
// in-process L1 when storage.l1_cache_bytes is positive. The returned closer
// releases the L1.
func New(cfg *config.Config, sqlClient *database.SQLClient, redisClient *redis.Client, log logger.Logger) (Store, func(), error) {
	var l2 Store
	switch cfg.Storage.CacheBackend {
	case "sqlite", "postgres", "":
		if sqlClient == nil {
			return nil, nil, fmt.Errorf("cache backend %q needs a SQL client", cfg.Storage.CacheBackend)
		}
		l2 = NewSQLStore(sqlClient)
	case "redis":
		if redisClient == nil {
			return nil, nil, fmt.Errorf("cache backend redis needs a redis client")
		}
		l2 = NewRedisStore(redisClient)
	case "memory":
		l2 = NewMemoryStore()
	default:
		return nil, nil, fmt.Errorf("unsupported cache backend %q", cfg.Storage.CacheBackend)
	}

	if cfg.Storage.L1CacheBytes <= 0 {
		return l2, func() {}, nil
	}

	l1, err := NewL1(cfg.Storage.L1CacheBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("create L1 cache: %w", err)
	}
	log = logger.Component(log, "cache")
	log.Info("answer cache ready", map[string]interface{}{
		"backend": cfg.Storage.CacheBackend,
		"l1Bytes": cfg.Storage.L1CacheBytes,
	})
	return NewTiered(l1, l2, log), l1.Close, nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
