package cache

import (
	"context"
	"testing"

	"pgregory.net/rapid"
)

// After Put(k, a), every Get(k) returns a until the next Put.
func TestMemoryStore_PutThenGetProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		store := NewMemoryStore()
		ctx := context.Background()

		keys := rapid.SliceOfNDistinct(rapid.StringMatching(`[0-9a-f]{64}`), 1, 5, rapid.ID[string]).Draw(rt, "keys")
		want := make(map[string]string)

		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			key := rapid.SampledFrom(keys).Draw(rt, "key")
			if rapid.Bool().Draw(rt, "put") {
				answer := rapid.String().Draw(rt, "answer")
				if err := store.Put(ctx, key, answer); err != nil {
					rt.Fatalf("put: %v", err)
				}
				want[key] = answer
				continue
			}

			got, found, err := store.Get(ctx, key)
			if err != nil {
				rt.Fatalf("get: %v", err)
			}
			expected, ok := want[key]
			if found != ok || got != expected {
				rt.Fatalf("get %s = (%q, %v), want (%q, %v)", key, got, found, expected, ok)
			}
		}
	})
}
