// Package session stores suspended investigations until their human verdict
// arrives.
package session

import (
	"context"
	"sync"

	apperrors "doc-investigator/internal/common/errors"
	"doc-investigator/internal/models"
)

// MemoryStore keeps sessions in process memory. Suspensions do not survive a
// restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]models.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]models.Session)}
}

func (s *MemoryStore) Save(_ context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token] = clone(sess)
	return nil
}

func (s *MemoryStore) Load(_ context.Context, token string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil, apperrors.NewSessionNotFoundError(token)
	}
	out := clone(&sess)
	return &out, nil
}

func (s *MemoryStore) Take(_ context.Context, token string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil, apperrors.NewSessionNotFoundError(token)
	}
	delete(s.sessions, token)
	return &sess, nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// Len reports the number of parked sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func clone(sess *models.Session) models.Session {
	out := *sess
	out.State = append([]byte(nil), sess.State...)
	return out
}
