package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew_RecordsSpansAndMetrics(t *testing.T) {
	reg := promclient.NewRegistry()
	recorder := tracetest.NewSpanRecorder()

	obs, err := New(Config{
		ServiceName:    "investigator-test",
		Registerer:     reg,
		SpanProcessors: []sdktrace.SpanProcessor{recorder},
	})
	require.NoError(t, err)
	defer func() { _ = obs.Shutdown(context.Background()) }()

	ctx, span := obs.StartSpan(context.Background(), "investigation.check_cache",
		attribute.String("cache_key", "abc"))
	RecordSpanError(span, errors.New("redis down"), "cache read failed")
	span.End()

	obs.RecordWorkflow(ctx, "await_human_evaluation", 25*time.Millisecond)
	obs.RecordJobProcessed(ctx, "start-investigation", "completed")

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "investigation.check_cache", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	joined := strings.Join(names, ",")
	assert.Contains(t, joined, "investigations_completed")
	assert.Contains(t, joined, "investigations_duration")
	assert.Contains(t, joined, "jobs_processed")
}

func TestNewNoop(t *testing.T) {
	obs := NewNoop()

	_, span := obs.StartSpan(context.Background(), "investigation.call_model")
	span.End()

	obs.RecordWorkflow(context.Background(), "end", time.Millisecond)
	obs.RecordJobProcessed(context.Background(), "process-evaluation", "failed")
	assert.NoError(t, obs.Shutdown(context.Background()))
}
