package cache

import (
	"context"
	"sync"
	"time"

	"doc-investigator/internal/models"
)

// MemoryStore is a map-backed cache for tests and one-shot CLI runs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]models.CacheEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]models.CacheEntry), now: nowUTC}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e.Answer, ok, nil
}

func (m *MemoryStore) Put(_ context.Context, key, answer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = models.CacheEntry{Key: key, Answer: answer, WrittenAt: m.now()}
	return nil
}

func (m *MemoryStore) Touch(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok {
		e.WrittenAt = m.now()
		m.entries[key] = e
	}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Entry returns the stored entry including its timestamp.
func (m *MemoryStore) Entry(key string) (models.CacheEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok
}

// Len reports the number of cached answers.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
