package session

import (
	"context"
	"fmt"

	"doc-investigator/internal/models"

	"github.com/redis/go-redis/v9"
)

// Store is implemented by every session backend.
type Store interface {
	Save(ctx context.Context, sess *models.Session) error
	Load(ctx context.Context, token string) (*models.Session, error)
	Take(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
}

// New returns the backend named by storage.session_backend.
func New(backend string, client redis.Cmdable) (Store, error) {
	switch backend {
	case "memory", "":
		return NewMemoryStore(), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("session backend redis needs a redis client")
		}
		return NewRedisStore(client), nil
	}
	return nil, fmt.Errorf("unsupported session backend %q", backend)
}
