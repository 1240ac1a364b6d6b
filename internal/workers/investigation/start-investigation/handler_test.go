// internal/workers/investigation/start-investigation/handler_test.go
package startinvestigation

import (
	"context"
	"errors"
	"testing"
	"time"

	"doc-investigator/internal/common/config"
	apperrors "doc-investigator/internal/common/errors"
	"doc-investigator/internal/common/logger"
	"doc-investigator/internal/common/validation"
	"doc-investigator/internal/investigation"
	"doc-investigator/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Doubles
// ==========================

type fakeInvestigator struct {
	result  *investigation.Result
	err     error
	lastReq investigation.Request
	calls   int
}

func (f *fakeInvestigator) Submit(_ context.Context, req investigation.Request) (*investigation.Result, error) {
	f.calls++
	f.lastReq = req
	return f.result, f.err
}

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second, MaxRetries: 3}
}

func createTestHandler(t *testing.T, svc Investigator) *Handler {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)
	v, err := validation.NewValidator(reg)
	require.NoError(t, err)
	return NewHandler(createTestConfig(), svc, v, nil, logger.NewTestLogger(t))
}

func createSuspendedResult() *investigation.Result {
	return &investigation.Result{
		Status: investigation.StatusSuspended,
		Token:  "tok-1",
		State: &investigation.WorkflowState{
			ID:             "wf-1",
			Current:        investigation.StateAwaitHumanEvaluation,
			Answer:         "The contract term is 12 months.",
			Classification: investigation.RealAnswer,
			CacheHit:       investigation.CacheMiss,
		},
	}
}

func floatPtr(f float64) *float64 { return &f }

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Suspended(t *testing.T) {
	svc := &fakeInvestigator{result: createSuspendedResult()}
	h := createTestHandler(t, svc)

	out, err := h.Execute(context.Background(), &Input{
		Documents:   []investigation.Document{{Name: "contract.pdf", Path: "/tmp/contract.pdf"}},
		Prompt:      "How long is the contract term?",
		Temperature: floatPtr(0.4),
	})
	require.NoError(t, err)

	assert.Equal(t, "suspended", out.Status)
	assert.Equal(t, "tok-1", out.Token)
	assert.Equal(t, "wf-1", out.WorkflowID)
	assert.Equal(t, "await_human_evaluation", out.State)
	assert.Equal(t, "real_answer", out.Classification)
	assert.Equal(t, "miss", out.CacheHit)
	assert.False(t, out.Logged)

	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, 0.4, svc.lastReq.Params[investigation.ParamTemperature])
	_, hasTopP := svc.lastReq.Params[investigation.ParamTopP]
	assert.False(t, hasTopP, "unset parameters are left to the engine defaults")
}

func TestHandler_Execute_Terminal(t *testing.T) {
	svc := &fakeInvestigator{result: &investigation.Result{
		Status: investigation.StatusTerminal,
		State: &investigation.WorkflowState{
			ID:             "wf-2",
			Current:        investigation.StateEnd,
			Answer:         config.DefaultUnknownAnswer,
			Classification: investigation.PredefinedAnswer,
			Logged:         true,
		},
	}}
	h := createTestHandler(t, svc)

	out, err := h.Execute(context.Background(), &Input{Prompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, "terminal", out.Status)
	assert.Empty(t, out.Token)
	assert.Equal(t, "end", out.State)
	assert.True(t, out.Logged)
}

func TestHandler_Execute_ServiceError(t *testing.T) {
	svc := &fakeInvestigator{err: apperrors.NewSessionStoreFailedError(errors.New("redis down"))}
	h := createTestHandler(t, svc)

	_, err := h.Execute(context.Background(), &Input{Prompt: "q"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSessionStoreFailed))
}

func TestHandler_Execute_EmptyResult(t *testing.T) {
	h := createTestHandler(t, &fakeInvestigator{result: &investigation.Result{Status: investigation.StatusTerminal}})

	_, err := h.Execute(context.Background(), &Input{Prompt: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyResult)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInternal))
}

// ==========================
// Input Parsing Tests
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	h := createTestHandler(t, &fakeInvestigator{})

	tests := []struct {
		name           string
		variables      string
		wantErr        bool
		validateOutput func(t *testing.T, in *Input, err error)
	}{
		{
			name:      "valid with extra process variables",
			variables: `{"documents":[{"name":"a.txt","path":"/data/a.txt"}],"prompt":"q","topP":0.9,"customerId":"c-1"}`,
			validateOutput: func(t *testing.T, in *Input, err error) {
				require.Len(t, in.Documents, 1)
				assert.Equal(t, "/data/a.txt", in.Documents[0].Path)
				assert.Equal(t, "q", in.Prompt)
				require.NotNil(t, in.TopP)
				assert.Equal(t, 0.9, *in.TopP)
				assert.Nil(t, in.Temperature)
			},
		},
		{
			name:      "malformed json",
			variables: `{"documents":`,
			wantErr:   true,
			validateOutput: func(t *testing.T, in *Input, err error) {
				assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInputValidationFailed))
			},
		},
		{
			name:      "missing prompt",
			variables: `{"documents":[]}`,
			wantErr:   true,
			validateOutput: func(t *testing.T, in *Input, err error) {
				assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInputValidationFailed))
				assert.Contains(t, apperrors.AsStandard(err).Details, "prompt")
			},
		},
		{
			name:      "temperature out of range",
			variables: `{"documents":[],"prompt":"q","temperature":1.5}`,
			wantErr:   true,
			validateOutput: func(t *testing.T, in *Input, err error) {
				assert.Contains(t, apperrors.AsStandard(err).Details, "temperature")
			},
		},
		{
			name:      "document without path",
			variables: `{"documents":[{"name":"a.txt"}],"prompt":"q"}`,
			wantErr:   true,
			validateOutput: func(t *testing.T, in *Input, err error) {
				assert.Contains(t, apperrors.AsStandard(err).Details, "path")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := h.parseInput(tt.variables)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, in)
			} else {
				require.NoError(t, err)
			}
			if tt.validateOutput != nil {
				tt.validateOutput(t, in, err)
			}
		})
	}
}

func TestHandler_Process_SkipsServiceOnInvalidInput(t *testing.T) {
	svc := &fakeInvestigator{result: createSuspendedResult()}
	h := createTestHandler(t, svc)

	_, err := h.process(context.Background(), `{"prompt":"q"}`)
	require.Error(t, err)
	assert.Equal(t, 0, svc.calls)

	out, err := h.process(context.Background(), `{"documents":[],"prompt":"q"}`)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", out.Token)
	assert.Equal(t, 1, svc.calls)
}

func TestLoadConfig(t *testing.T) {
	cfg := LoadConfig(config.WorkerConfig{Timeout: 1500, MaxRetries: 2})
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeout)
	assert.Equal(t, 2, cfg.MaxRetries)

	assert.Equal(t, 300*time.Second, LoadConfig(config.WorkerConfig{}).Timeout)
}
