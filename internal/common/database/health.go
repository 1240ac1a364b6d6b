// internal/common/database/health.go
package database

import (
	"context"
	"fmt"
)

// Pinger is implemented by every store client that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingAll pings each named dependency and returns the failures keyed by name.
func PingAll(ctx context.Context, deps map[string]Pinger) map[string]error {
	failed := make(map[string]error)
	for name, p := range deps {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			failed[name] = fmt.Errorf("%s: %w", name, err)
		}
	}
	return failed
}
