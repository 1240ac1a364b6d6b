// internal/workers/investigation/process-evaluation/handler_test.go
package processevaluation

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"doc-investigator/internal/cache"
	"doc-investigator/internal/common/config"
	apperrors "doc-investigator/internal/common/errors"
	"doc-investigator/internal/common/logger"
	"doc-investigator/internal/common/validation"
	"doc-investigator/internal/documents"
	"doc-investigator/internal/interactionlog"
	"doc-investigator/internal/investigation"
	"doc-investigator/internal/session"
	"doc-investigator/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Doubles
// ==========================

type stubModel struct {
	answer string
}

func (m *stubModel) Complete(context.Context, string, string, float64, float64) (string, error) {
	return m.answer, nil
}

type testEnv struct {
	service *investigation.Service
	log     *interactionlog.MemoryLog
	handler *Handler
	docs    []investigation.Document
}

// ==========================
// Test Helper Functions
// ==========================

func createTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.NewTestLogger(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "policy.txt")
	require.NoError(t, os.WriteFile(path, []byte("Refunds are issued within 30 days."), 0o600))

	cfg := config.InvestigationConfig{
		SupportedFileTypes: config.DefaultSupportedFileTypes,
		UnknownAnswer:      config.DefaultUnknownAnswer,
		NotAllowedAnswer:   config.DefaultNotAllowedAnswer,
		TokenLimitAnswer:   config.DefaultTokenLimitAnswer,
	}
	interactions := interactionlog.NewMemoryLog()
	engine := investigation.NewEngine(investigation.Settings{
		ModelName:            "test-model",
		MaxContextCharacters: 10000,
		Sentinels:            cfg.Sentinels(),
		DefaultTemperature:   config.DefaultTemperature,
		DefaultTopP:          config.DefaultTopP,
	}, investigation.Dependencies{
		Documents: documents.NewProcessor(cfg, log),
		Model:     &stubModel{answer: "Refunds take up to 30 days."},
		Cache:     cache.NewMemoryStore(),
		Log:       interactions,
	}, log)
	svc := investigation.NewService(engine, session.NewMemoryStore(), 0, log)

	reg, err := registry.Default()
	require.NoError(t, err)
	v, err := validation.NewValidator(reg)
	require.NoError(t, err)

	return &testEnv{
		service: svc,
		log:     interactions,
		handler: NewHandler(&Config{Timeout: 5 * time.Second}, svc, v, nil, log),
		docs:    []investigation.Document{{Name: "policy.txt", Path: path}},
	}
}

func (e *testEnv) submit(t *testing.T) string {
	t.Helper()
	res, err := e.service.Submit(context.Background(), investigation.Request{
		Documents: e.docs,
		Prompt:    "How long do refunds take?",
	})
	require.NoError(t, err)
	require.Equal(t, investigation.StatusSuspended, res.Status)
	require.NotEmpty(t, res.Token)
	return res.Token
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_LogsVerdict(t *testing.T) {
	tests := []struct {
		name           string
		input          func(token string) *Input
		validateOutput func(t *testing.T, out *Output, entries []investigationEntry)
	}{
		{
			name: "accepted with reason",
			input: func(token string) *Input {
				return &Input{Token: token, Verdict: "yes", Reason: "matches section 4"}
			},
			validateOutput: func(t *testing.T, out *Output, entries []investigationEntry) {
				assert.Equal(t, "yes", out.Verdict)
				require.Len(t, entries, 1)
				assert.Equal(t, "yes", entries[0].passed)
				assert.Equal(t, "matches section 4", entries[0].reason)
			},
		},
		{
			name: "rejected without reason",
			input: func(token string) *Input {
				return &Input{Token: token, Verdict: "no"}
			},
			validateOutput: func(t *testing.T, out *Output, entries []investigationEntry) {
				assert.Equal(t, "no", out.Verdict)
				require.Len(t, entries, 1)
				assert.Equal(t, "no", entries[0].passed)
				assert.Equal(t, config.DefaultNoReasonGiven, entries[0].reason)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := createTestEnv(t)
			token := env.submit(t)

			out, err := env.handler.Execute(context.Background(), tt.input(token))
			require.NoError(t, err)
			assert.Equal(t, "terminal", out.Status)
			assert.Equal(t, "end", out.State)
			assert.True(t, out.Logged)
			assert.NotEmpty(t, out.WorkflowID)

			tt.validateOutput(t, out, listEntries(t, env.log))
		})
	}
}

type investigationEntry struct {
	passed string
	reason string
}

func listEntries(t *testing.T, log *interactionlog.MemoryLog) []investigationEntry {
	t.Helper()
	all, err := log.List(context.Background())
	require.NoError(t, err)
	out := make([]investigationEntry, 0, len(all))
	for _, e := range all {
		out = append(out, investigationEntry{passed: e.OutputPassed, reason: e.EvalReason})
	}
	return out
}

func TestHandler_Execute_TokenConsumedOnce(t *testing.T) {
	env := createTestEnv(t)
	token := env.submit(t)

	_, err := env.handler.Execute(context.Background(), &Input{Token: token, Verdict: "yes"})
	require.NoError(t, err)

	_, err = env.handler.Execute(context.Background(), &Input{Token: token, Verdict: "yes"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSessionNotFound))
}

func TestHandler_Execute_UnknownToken(t *testing.T) {
	env := createTestEnv(t)

	_, err := env.handler.Execute(context.Background(), &Input{Token: "missing", Verdict: "no"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSessionNotFound))
	assert.Empty(t, listEntries(t, env.log))
}

// ==========================
// Input Parsing Tests
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	env := createTestEnv(t)

	tests := []struct {
		name      string
		variables string
		wantField string
	}{
		{name: "malformed json", variables: `{"token":`, wantField: "parse input"},
		{name: "missing verdict", variables: `{"token":"t"}`, wantField: "verdict"},
		{name: "verdict outside enum", variables: `{"token":"t","verdict":"maybe"}`, wantField: "verdict"},
		{name: "blank token", variables: `{"token":"  ","verdict":"yes"}`, wantField: "token"},
		{name: "missing token", variables: `{"verdict":"yes"}`, wantField: "token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := env.handler.parseInput(tt.variables)
			require.Error(t, err)
			assert.Nil(t, in)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInputValidationFailed))
			assert.Contains(t, apperrors.AsStandard(err).Details, tt.wantField)
		})
	}
}

func TestHandler_Process_EndToEnd(t *testing.T) {
	env := createTestEnv(t)
	token := env.submit(t)

	out, err := env.handler.process(context.Background(),
		`{"token":"`+token+`","verdict":"yes","reason":"ok","instanceVar":42}`)
	require.NoError(t, err)
	assert.Equal(t, "end", out.State)
	assert.Len(t, listEntries(t, env.log), 1)
}
