package interactionlog

import (
	"context"
	"sync"

	"doc-investigator/internal/models"
)

// MemoryLog keeps interactions in process memory.
type MemoryLog struct {
	mu      sync.Mutex
	entries []models.Interaction
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (l *MemoryLog) Append(_ context.Context, e models.Interaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.ID = int64(len(l.entries) + 1)
	l.entries = append(l.entries, e)
	return nil
}

func (l *MemoryLog) List(_ context.Context) ([]models.Interaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Interaction(nil), l.entries...), nil
}
