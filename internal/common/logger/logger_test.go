package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestZapWrapper_FieldsAndComponent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := Component(NewZapAdapter(zap.New(core)), "engine")

	log.WithFields(map[string]interface{}{"state": "check_cache"}).
		Info("cache lookup", map[string]interface{}{"hit": true})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		ctx := entries[0].ContextMap()
		assert.Equal(t, "engine", ctx["component"])
		assert.Equal(t, "check_cache", ctx["state"])
		assert.Equal(t, true, ctx["hit"])
		assert.Equal(t, "cache lookup", entries[0].Message)
	}
}

func TestZapWrapper_ErrorValuesBecomeNamedErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core))

	log.Error("put failed", map[string]interface{}{"error": errors.New("disk full")})
	log.WithError(errors.New("boom")).Warn("degraded", nil)

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "disk full", entries[0].ContextMap()["error"])
		assert.Equal(t, "boom", entries[1].ContextMap()["error"])
	}
}

func TestNewWithOutput_InvalidPathFallsBackToNop(t *testing.T) {
	l := NewWithOutput("info", "json", "/nonexistent-dir/sub/log.txt")
	assert.NotNil(t, l)
	l.Info("discarded")
}
