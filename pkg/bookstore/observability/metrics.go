package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records event bus metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordPublish records one published event and its dispatch duration.
	RecordPublish(ctx context.Context, eventType string, duration time.Duration)

	// RecordHandlerExecution records a handler run with its duration and
	// error status.
	RecordHandlerExecution(ctx context.Context, handler, eventType string, duration time.Duration, err error)

	// RecordDeadLetter records an event routed to the dead-letter queue.
	RecordDeadLetter(ctx context.Context, handler, eventType string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	eventsPublished   metric.Int64Counter
	publishLatency    metric.Float64Histogram
	handlerExecutions metric.Int64Counter
	handlerLatency    metric.Float64Histogram
	handlerErrors     metric.Int64Counter
	deadLetters       metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("bookstore.eventbus")

	eventsPublished, err := meter.Int64Counter("eventbus.events.published",
		metric.WithDescription("Number of events published"),
	)
	if err != nil {
		return nil, err
	}

	publishLatency, err := meter.Float64Histogram("eventbus.publish.latency_ms",
		metric.WithDescription("Publish dispatch latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	handlerExecutions, err := meter.Int64Counter("eventbus.handler.executions",
		metric.WithDescription("Number of handler executions"),
	)
	if err != nil {
		return nil, err
	}

	handlerLatency, err := meter.Float64Histogram("eventbus.handler.latency_ms",
		metric.WithDescription("Handler execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	handlerErrors, err := meter.Int64Counter("eventbus.handler.errors",
		metric.WithDescription("Number of handler execution errors"),
	)
	if err != nil {
		return nil, err
	}

	deadLetters, err := meter.Int64Counter("eventbus.dead_letters",
		metric.WithDescription("Number of events routed to the dead-letter queue"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		eventsPublished:   eventsPublished,
		publishLatency:    publishLatency,
		handlerExecutions: handlerExecutions,
		handlerLatency:    handlerLatency,
		handlerErrors:     handlerErrors,
		deadLetters:       deadLetters,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordPublish records one published event.
func (m *otelMetrics) RecordPublish(ctx context.Context, eventType string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("event_type", eventType),
	}
	m.eventsPublished.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.publishLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordHandlerExecution records a handler run.
func (m *otelMetrics) RecordHandlerExecution(ctx context.Context, handler, eventType string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("handler", handler),
		attribute.String("event_type", eventType),
	}
	m.handlerExecutions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.handlerLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		m.handlerErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordDeadLetter records a dead-lettered event.
func (m *otelMetrics) RecordDeadLetter(ctx context.Context, handler, eventType string) {
	attrs := []attribute.KeyValue{
		attribute.String("handler", handler),
		attribute.String("event_type", eventType),
	}
	m.deadLetters.Add(ctx, 1, metric.WithAttributes(attrs...))
}
