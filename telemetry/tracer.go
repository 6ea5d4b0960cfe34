// Package telemetry wires distributed tracing spans around orchestration
// work, scoped down to a stdout exporter since this module has no default
// collector endpoint (see DESIGN.md's note on the dropped
// otlptracegrpc/otelhttp dependencies).
package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/gomind-ai/orchestrator-core/core"
)

// OTelTelemetry implements core.Telemetry backed by a real OTel
// TracerProvider exporting to stdout. Installed on an Orchestrator via
// SetTelemetry to get a span per step execution (§4.3's execution journal
// records the same events; this gives them a trace view too).
type OTelTelemetry struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

var _ core.Telemetry = (*OTelTelemetry)(nil)
var _ core.Span = (*otelSpan)(nil)

// NewOTelTelemetry builds an OTelTelemetry exporting spans to os.Stdout,
// tagged with serviceName. If OTEL_SDK_DISABLED=true, a no-op
// TracerProvider is installed instead, matching OpenTelemetry's standard
// auto-instrumentation opt-out env var.
func NewOTelTelemetry(serviceName string) (*OTelTelemetry, error) {
	if os.Getenv("OTEL_SDK_DISABLED") == "true" {
		noop := trace.NewNoopTracerProvider()
		return &OTelTelemetry{tracer: noop.Tracer(serviceName)}, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stdout), stdouttrace.WithoutTimestamps())
	if err != nil {
		return nil, fmt.Errorf("create stdout trace exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &OTelTelemetry{tp: tp, tracer: tp.Tracer(serviceName)}, nil
}

// Shutdown flushes and stops the exporter. No-op when OTEL_SDK_DISABLED
// was set at construction.
func (t *OTelTelemetry) Shutdown(ctx context.Context) error {
	if t.tp == nil {
		return nil
	}
	return t.tp.Shutdown(ctx)
}

// StartSpan satisfies core.Telemetry.
func (t *OTelTelemetry) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

// RecordMetric satisfies core.Telemetry. This tracer only emits spans;
// metrics are carried by the execution journal (§4.5) instead of a
// separate metrics pipeline, so this is intentionally a no-op.
func (t *OTelTelemetry) RecordMetric(name string, value float64, labels map[string]string) {}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() { s.span.End() }

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", value)))
}

func (s *otelSpan) RecordError(err error) {
	s.span.RecordError(err)
}
