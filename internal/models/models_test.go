package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInteraction_Passed(t *testing.T) {
	assert.True(t, Interaction{OutputPassed: OutputPassedYes}.Passed())
	assert.False(t, Interaction{OutputPassed: OutputPassedNo}.Passed())
}

func TestSession_IsExpired(t *testing.T) {
	now := time.Now()

	assert.False(t, (&Session{}).IsExpired(now))
	assert.False(t, (&Session{ExpiresAt: now.Add(time.Minute)}).IsExpired(now))
	assert.True(t, (&Session{ExpiresAt: now.Add(-time.Minute)}).IsExpired(now))
}
