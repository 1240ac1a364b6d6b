package cache

import (
	"context"

	"doc-investigator/internal/common/logger"
)

// Tiered checks an in-process L1 before the durable L2 and backfills L1 on
// an L2 hit. Writes always reach L2 so its timestamp is refreshed.
type Tiered struct {
	l1  Store
	l2  Store
	log logger.Logger
}

func NewTiered(l1, l2 Store, log logger.Logger) *Tiered {
	return &Tiered{l1: l1, l2: l2, log: log}
}

func (t *Tiered) Get(ctx context.Context, key string) (string, bool, error) {
	if answer, found, err := t.l1.Get(ctx, key); err == nil && found {
		return answer, true, nil
	}

	answer, found, err := t.l2.Get(ctx, key)
	if err != nil || !found {
		return "", false, err
	}
	if err := t.l1.Put(ctx, key, answer); err != nil {
		t.log.Warn("L1 backfill failed", map[string]interface{}{
			"cacheKey": key,
			"error":    err,
		})
	}
	return answer, true, nil
}

func (t *Tiered) Put(ctx context.Context, key, answer string) error {
	if err := t.l2.Put(ctx, key, answer); err != nil {
		return err
	}
	return t.l1.Put(ctx, key, answer)
}

// Touch refreshes the L2 timestamp and evicts the L1 copy, so the next read
// observes whatever answer L2 holds now.
func (t *Tiered) Touch(ctx context.Context, key string) error {
	if err := t.l2.Touch(ctx, key); err != nil {
		return err
	}
	return t.l1.Delete(ctx, key)
}

func (t *Tiered) Delete(ctx context.Context, key string) error {
	if err := t.l2.Delete(ctx, key); err != nil {
		return err
	}
	return t.l1.Delete(ctx, key)
}
