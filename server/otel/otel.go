// Package otel wires the task manager and protocol surface to Prometheus
// metrics via the OpenTelemetry metrics SDK.
package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/zap"
)

// RequestAttributes labels an inbound HTTP request for the request/response
// metrics.
type RequestAttributes struct {
	Method string
	Path   string
}

// TaskAttributes labels a task lifecycle event.
type TaskAttributes struct {
	TaskID string
	State  string
}

// OpenTelemetry defines the metrics this runtime records: request
// accounting, task lifecycle transitions, and active-stream gauges.
type OpenTelemetry interface {
	RecordRequest(ctx context.Context, attrs RequestAttributes)
	RecordResponseStatus(ctx context.Context, attrs RequestAttributes, statusCode int)
	RecordRequestDuration(ctx context.Context, attrs RequestAttributes, durationMs float64)
	RecordTaskTransition(ctx context.Context, attrs TaskAttributes)
	StreamOpened(ctx context.Context, taskID string)
	StreamClosed(ctx context.Context, taskID string)
	ShutDown(ctx context.Context) error
}

// NoOp is the zero-cost OpenTelemetry implementation used when telemetry is
// disabled, so callers never need a nil check before recording a metric.
type NoOp struct{}

var _ OpenTelemetry = NoOp{}

func (NoOp) RecordRequest(context.Context, RequestAttributes)                  {}
func (NoOp) RecordResponseStatus(context.Context, RequestAttributes, int)      {}
func (NoOp) RecordRequestDuration(context.Context, RequestAttributes, float64) {}
func (NoOp) RecordTaskTransition(context.Context, TaskAttributes)              {}
func (NoOp) StreamOpened(context.Context, string)                              {}
func (NoOp) StreamClosed(context.Context, string)                              {}
func (NoOp) ShutDown(context.Context) error                                    { return nil }

type openTelemetryImpl struct {
	logger        *zap.Logger
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter

	requestCounter           metric.Int64Counter
	responseStatusCounter    metric.Int64Counter
	requestDurationHistogram metric.Float64Histogram
	taskTransitionCounter    metric.Int64Counter
	activeStreamsUpDown      metric.Int64UpDownCounter
}

var _ OpenTelemetry = (*openTelemetryImpl)(nil)

// New builds the Prometheus-backed OpenTelemetry implementation for the
// named service.
func New(serviceName, serviceVersion string, logger *zap.Logger) (OpenTelemetry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	o := &openTelemetryImpl{logger: logger}
	if err := o.initialize(serviceName, serviceVersion); err != nil {
		return nil, fmt.Errorf("failed to initialize opentelemetry: %w", err)
	}
	return o, nil
}

func (o *openTelemetryImpl) initialize(serviceName, serviceVersion string) error {
	exporter, err := prometheus.New()
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", serviceName),
		attribute.String("service.version", serviceVersion),
	)

	o.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(o.meterProvider)
	o.meter = o.meterProvider.Meter(serviceName)

	return o.initializeMetrics()
}

func (o *openTelemetryImpl) initializeMetrics() error {
	var err error

	o.requestCounter, err = o.meter.Int64Counter(
		"a2a.requests.total",
		metric.WithDescription("Total number of inbound protocol requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create request counter: %w", err)
	}

	o.responseStatusCounter, err = o.meter.Int64Counter(
		"a2a.responses.total",
		metric.WithDescription("Total number of protocol responses by status code"),
	)
	if err != nil {
		return fmt.Errorf("failed to create response status counter: %w", err)
	}

	o.requestDurationHistogram, err = o.meter.Float64Histogram(
		"a2a.request.duration",
		metric.WithDescription("Request handling duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return fmt.Errorf("failed to create request duration histogram: %w", err)
	}

	o.taskTransitionCounter, err = o.meter.Int64Counter(
		"a2a.task.transitions.total",
		metric.WithDescription("Total number of task state transitions"),
	)
	if err != nil {
		return fmt.Errorf("failed to create task transition counter: %w", err)
	}

	o.activeStreamsUpDown, err = o.meter.Int64UpDownCounter(
		"a2a.streams.active",
		metric.WithDescription("Number of currently open SSE event streams"),
	)
	if err != nil {
		return fmt.Errorf("failed to create active streams gauge: %w", err)
	}

	return nil
}

func (o *openTelemetryImpl) RecordRequest(ctx context.Context, attrs RequestAttributes) {
	o.requestCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", attrs.Method),
		attribute.String("path", attrs.Path),
	))
}

func (o *openTelemetryImpl) RecordResponseStatus(ctx context.Context, attrs RequestAttributes, statusCode int) {
	o.responseStatusCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", attrs.Method),
		attribute.String("path", attrs.Path),
		attribute.Int("status_code", statusCode),
	))
}

func (o *openTelemetryImpl) RecordRequestDuration(ctx context.Context, attrs RequestAttributes, durationMs float64) {
	o.requestDurationHistogram.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("method", attrs.Method),
		attribute.String("path", attrs.Path),
	))
}

func (o *openTelemetryImpl) RecordTaskTransition(ctx context.Context, attrs TaskAttributes) {
	o.taskTransitionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("task_id", attrs.TaskID),
		attribute.String("state", attrs.State),
	))
}

func (o *openTelemetryImpl) StreamOpened(ctx context.Context, taskID string) {
	o.activeStreamsUpDown.Add(ctx, 1, metric.WithAttributes(attribute.String("task_id", taskID)))
}

func (o *openTelemetryImpl) StreamClosed(ctx context.Context, taskID string) {
	o.activeStreamsUpDown.Add(ctx, -1, metric.WithAttributes(attribute.String("task_id", taskID)))
}

func (o *openTelemetryImpl) ShutDown(ctx context.Context) error {
	return o.meterProvider.Shutdown(ctx)
}
