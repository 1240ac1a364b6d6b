package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config selects the exporters behind the handle.
type Config struct {
	ServiceName    string
	JaegerEndpoint string
	// Registerer receives the OpenTelemetry metric collector. Nil means the
	// default Prometheus registerer.
	Registerer promclient.Registerer
	// SpanProcessors are attached in addition to the Jaeger batcher.
	SpanProcessors []sdktrace.SpanProcessor
}

// Observability is the process-wide telemetry handle. It is created once in
// main, passed explicitly to the components that report through it, and shut
// down on exit.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider trace.TracerProvider
	shutdownTracer func(context.Context) error
	tracer         trace.Tracer

	workflowCounter  otelmetric.Int64Counter
	workflowDuration otelmetric.Float64Histogram
	jobCounter       otelmetric.Int64Counter
}

func New(cfg Config) (*Observability, error) {
	promOpts := []prometheus.Option{}
	if cfg.Registerer != nil {
		promOpts = append(promOpts, prometheus.WithRegisterer(cfg.Registerer))
	}
	exporter, err := prometheus.New(promOpts...)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))

	meterProvider := metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithResource(res),
	)
	meter := meterProvider.Meter(cfg.ServiceName)

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.JaegerEndpoint != "" {
		jexp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.JaegerEndpoint)))
		if err != nil {
			_ = meterProvider.Shutdown(context.Background())
			return nil, fmt.Errorf("create jaeger exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(jexp))
	}
	for _, sp := range cfg.SpanProcessors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(sp))
	}
	tracerProvider := sdktrace.NewTracerProvider(tpOpts...)

	o := &Observability{
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
		shutdownTracer: tracerProvider.Shutdown,
		tracer:         tracerProvider.Tracer(cfg.ServiceName),
	}
	if err := o.initInstruments(meter); err != nil {
		_ = o.Shutdown(context.Background())
		return nil, err
	}
	return o, nil
}

// NewNoop returns a handle that records nothing. Used by tests and one-shot CLI runs.
func NewNoop() *Observability {
	tp := noop.NewTracerProvider()
	return &Observability{
		tracerProvider: tp,
		tracer:         tp.Tracer("noop"),
	}
}

func (o *Observability) initInstruments(meter otelmetric.Meter) error {
	var err error
	o.workflowCounter, err = meter.Int64Counter(
		"investigations.completed",
		otelmetric.WithDescription("Investigations that reached a terminal state or suspended"),
	)
	if err != nil {
		return fmt.Errorf("create workflow counter: %w", err)
	}

	o.workflowDuration, err = meter.Float64Histogram(
		"investigations.duration",
		otelmetric.WithDescription("Time spent inside Start or Resume"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return fmt.Errorf("create workflow histogram: %w", err)
	}

	o.jobCounter, err = meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of Zeebe jobs processed"),
	)
	if err != nil {
		return fmt.Errorf("create job counter: %w", err)
	}
	return nil
}

// Tracer returns the tracer used for per-action spans.
func (o *Observability) Tracer() trace.Tracer {
	return o.tracer
}

// StartSpan opens a span named name with the given attributes.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordSpanError marks span as failed without ending it.
func RecordSpanError(span trace.Span, err error, description string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, description)
}

// RecordWorkflow counts a Start/Resume call that ended in state.
func (o *Observability) RecordWorkflow(ctx context.Context, state string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(attribute.String("state", state))
	if o.workflowCounter != nil {
		o.workflowCounter.Add(ctx, 1, attrs)
	}
	if o.workflowDuration != nil {
		o.workflowDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

// RecordJobProcessed counts a Zeebe job by task type and status.
func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) Shutdown(ctx context.Context) error {
	var errs []error
	if o.shutdownTracer != nil {
		errs = append(errs, o.shutdownTracer(ctx))
	}
	if o.meterProvider != nil {
		errs = append(errs, o.meterProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
