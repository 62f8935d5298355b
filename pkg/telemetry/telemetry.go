// Package telemetry provides the tracing half of
// pkg/observability/observability.go's Provider, trimmed to what a
// single-process pipeline needs: no metrics, no OTLP exporter wiring
// (nothing here talks to a collector), just a Tracer and a helper that
// starts one span per pipeline stage the way Provider.TrackOperation
// does, with the error-recording and span.End() bookkeeping folded into
// a single deferred call.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const instrumentationName = "toolexec"

// Provider holds a tracer. NewProvider's TracerProvider has no exporter
// registered and Provider exposes no way to add one, so spans are
// created and ended but never shipped anywhere; setting the global
// OpenTelemetry provider only affects a nil Provider's Tracer fallback.
// This keeps telemetry zero-config and free of any process-wide side
// effect at construction time.
type Provider struct {
	tracerProvider *trace.TracerProvider
	tracer         oteltrace.Tracer
}

// NewProvider builds a no-op-exporter tracer provider.
func NewProvider() *Provider {
	tp := trace.NewTracerProvider()
	return &Provider{
		tracerProvider: tp,
		tracer:         tp.Tracer(instrumentationName),
	}
}

// Tracer returns the provider's tracer, falling back to the global
// tracer the way Provider.Tracer() does, for callers constructed
// without NewProvider.
func (p *Provider) Tracer() oteltrace.Tracer {
	if p == nil || p.tracer == nil {
		return otel.Tracer(instrumentationName)
	}
	return p.tracer
}

// StartStage starts a span named for one pipeline stage (toolexec.Run
// uses "resolve", "verify" and "run") and returns a context
// carrying it plus a function that ends the span, recording err on it
// when non-nil. Call the returned func via defer around the stage call.
func (p *Provider) StartStage(ctx context.Context, stage, component, action string, attempt int) (context.Context, func(error)) {
	ctx, span := p.Tracer().Start(ctx, stage,
		oteltrace.WithSpanKind(oteltrace.SpanKindInternal),
		oteltrace.WithAttributes(
			attribute.String("toolexec.component", component),
			attribute.String("toolexec.action", action),
			attribute.Int("toolexec.attempt", attempt),
		),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// Shutdown releases the provider's resources. With no exporter
// registered this only frees in-memory span batches.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tracerProvider == nil {
		return nil
	}
	return p.tracerProvider.Shutdown(ctx)
}
