package cache

import (
	"context"

	"github.com/dgraph-io/ristretto/v2"
)

// L1 is an in-process, size-bounded answer cache.
type L1 struct {
	c *ristretto.Cache[string, string]
}

// NewL1 creates a ristretto cache bounded to maxCostBytes of keys and answers.
func NewL1(maxCostBytes int64) (*L1, error) {
	counters := maxCostBytes / 100 * 10 // ~10x expected items
	if counters < 1000 {
		counters = 1000
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: counters,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &L1{c: c}, nil
}

func (l *L1) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := l.c.Get(key)
	return v, ok, nil
}

// Put admits the entry synchronously so a following Get observes it.
func (l *L1) Put(_ context.Context, key, answer string) error {
	l.c.Set(key, answer, int64(len(key)+len(answer)))
	l.c.Wait()
	return nil
}

// Touch is a no-op: L1 entries carry no timestamp.
func (l *L1) Touch(context.Context, string) error {
	return nil
}

func (l *L1) Delete(_ context.Context, key string) error {
	l.c.Del(key)
	return nil
}

// Close shuts down the cache and releases resources.
func (l *L1) Close() {
	l.c.Close()
}
