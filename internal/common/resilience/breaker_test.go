package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errUnavailable = errors.New("service unavailable")
	errRateLimited = errors.New("rate limited")
)

func TestBreaker_ClosedAllowsCalls(t *testing.T) {
	b := NewBreaker(3, time.Second)
	called := false

	err := b.Execute(func() error {
		called = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "closed", b.State())
}

func TestBreaker_OpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker(3, time.Second)

	for i := 0; i < 3; i++ {
		err := b.Execute(func() error { return errUnavailable })
		assert.ErrorIs(t, err, errUnavailable)
	}

	err := b.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, "open", b.State())
}

func TestBreaker_HalfOpenAfterTimeout(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_ = b.Execute(func() error { return errUnavailable })
	}
	require.ErrorIs(t, b.Execute(func() error { return nil }), ErrCircuitOpen)

	now = now.Add(2 * time.Second)

	called := false
	err := b.Execute(func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "closed", b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_ = b.Execute(func() error { return errUnavailable })
	}
	now = now.Add(2 * time.Second)

	_ = b.Execute(func() error { return errUnavailable })
	assert.Equal(t, "open", b.State())
	assert.ErrorIs(t, b.Execute(func() error { return nil }), ErrCircuitOpen)
}

func TestBreaker_CountOnlyIgnoresOtherErrors(t *testing.T) {
	b := NewBreaker(1, time.Minute).CountOnly(func(err error) bool {
		return errors.Is(err, errUnavailable)
	})

	for i := 0; i < 5; i++ {
		err := b.Execute(func() error { return errRateLimited })
		assert.ErrorIs(t, err, errRateLimited)
	}
	assert.Equal(t, "closed", b.State())

	_ = b.Execute(func() error { return errUnavailable })
	assert.Equal(t, "open", b.State())
}

func TestBreaker_ZeroMaxFailuresNeverOpens(t *testing.T) {
	b := NewBreaker(0, time.Minute)
	for i := 0; i < 10; i++ {
		_ = b.Execute(func() error { return errUnavailable })
	}
	assert.Equal(t, "closed", b.State())
}

func TestBreaker_UncountedErrorKeepsState(t *testing.T) {
	countUnavailable := func(err error) bool { return errors.Is(err, errUnavailable) }

	t.Run("failures are not reset", func(t *testing.T) {
		b := NewBreaker(2, time.Minute).CountOnly(countUnavailable)

		_ = b.Execute(func() error { return errUnavailable })
		_ = b.Execute(func() error { return errRateLimited })
		_ = b.Execute(func() error { return errUnavailable })

		assert.Equal(t, "open", b.State())
	})

	t.Run("half-open stays half-open", func(t *testing.T) {
		now := time.Now()
		b := NewBreaker(1, time.Second).CountOnly(countUnavailable)
		b.now = func() time.Time { return now }

		_ = b.Execute(func() error { return errUnavailable })
		require.Equal(t, "open", b.State())
		now = now.Add(2 * time.Second)

		err := b.Execute(func() error { return errRateLimited })
		assert.ErrorIs(t, err, errRateLimited)
		assert.Equal(t, "half-open", b.State())

		_ = b.Execute(func() error { return errUnavailable })
		assert.Equal(t, "open", b.State())
	})
}
