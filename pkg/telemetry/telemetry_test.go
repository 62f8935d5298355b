package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	oteltrace "go.opentelemetry.io/otel/trace"
)

func TestStartStageReturnsSpanCarryingContext(t *testing.T) {
	p := NewProvider()
	defer p.Shutdown(context.Background())

	ctx, end := p.StartStage(context.Background(), "resolve", "echo", "tool-invoke", 0)
	require.NotNil(t, end)
	require.True(t, oteltrace.SpanContextFromContext(ctx).IsValid())
	end(nil)
}

func TestStartStageRecordsErrorWithoutPanicking(t *testing.T) {
	p := NewProvider()
	defer p.Shutdown(context.Background())

	_, end := p.StartStage(context.Background(), "run", "echo", "tool-invoke", 2)
	require.NotPanics(t, func() { end(errors.New("boom")) })
}

func TestTracerFallsBackToGlobalWhenProviderNil(t *testing.T) {
	var p *Provider
	require.NotNil(t, p.Tracer())
}
