package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	"doc-investigator/internal/common/config"
	"doc-investigator/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff(t *testing.T) {
	log := logger.NewTestLogger(t)
	fast := ConnectRetry{Attempts: 3, InitialDelay: time.Millisecond}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff(context.Background(), fast, log, "op", func() error {
			calls++
			if calls < 3 {
				return errors.New("unavailable")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after the last attempt", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff(context.Background(), fast, log, "op", func() error {
			calls++
			return errors.New("connection refused")
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.Contains(t, err.Error(), "op failed after 3 attempts")
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("zero attempts still runs once", func(t *testing.T) {
		calls := 0
		_ = retryWithBackoff(context.Background(), ConnectRetry{}, log, "op", func() error {
			calls++
			return errors.New("boom")
		})
		assert.Equal(t, 1, calls)
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := retryWithBackoff(ctx, ConnectRetry{Attempts: 5, InitialDelay: time.Hour}, log, "op", func() error {
			calls++
			cancel()
			return errors.New("boom")
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestRequestTimeout(t *testing.T) {
	assert.Equal(t, 10*time.Second, requestTimeout(config.CamundaConfig{}))
	assert.Equal(t, 250*time.Millisecond, requestTimeout(config.CamundaConfig{RequestTimeout: 250}))
}
