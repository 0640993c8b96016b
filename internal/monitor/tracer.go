package monitor

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "hammer-relay"

// Tracer wraps OpenTelemetry tracing for the relay.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new Tracer using the global TracerProvider.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(tracerName),
	}
}

// StartSpan creates a new span and returns the updated context.
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, fmt.Sprintf("relay.%s", name),
		trace.WithAttributes(attrs...),
	)
	return ctx, span
}

// SpanFromContext returns the current span from the context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// Common attribute keys for relay tracing.
var (
	AttrCodeHash      = attribute.Key("relay.code_hash")
	AttrCodeBytes     = attribute.Key("relay.code_bytes")
	AttrCheckerStatus = attribute.Key("relay.checker.status")
	AttrOutcome       = attribute.Key("relay.outcome")
	AttrRequestID     = attribute.Key("relay.request_id")
)
