// Package telemetry provides OpenTelemetry observability for Barkeep
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the global tracer for Barkeep
var tracer = otel.Tracer("barkeep")

// Span names for Barkeep operations
const (
	// Agent engine spans
	SpanAgentRun       = "barkeep.agent.run"
	SpanAgentModelCall = "barkeep.agent.model_call"
	SpanAgentSummarize = "barkeep.agent.summarize"

	// Tool spans
	SpanToolDispatch = "barkeep.tool.dispatch"

	// POS API spans
	SpanPosterCall = "barkeep.poster.call"

	// Reporting spans
	SpanDailySummary = "barkeep.report.daily_summary"
)

// StartRunSpan starts a span for one agent run
func StartRunSpan(ctx context.Context, userID, runID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String(KeyUserID, userID),
		attribute.String(KeyRunID, runID),
	)
	return tracer.Start(ctx, SpanAgentRun, trace.WithAttributes(attrs...))
}

// StartModelCallSpan starts a span for one model invocation
func StartModelCallSpan(ctx context.Context, iteration int, toolsEnabled bool) (context.Context, trace.Span) {
	return tracer.Start(ctx, SpanAgentModelCall, trace.WithAttributes(
		attribute.Int(KeyIteration, iteration),
		attribute.Bool(KeyToolsEnabled, toolsEnabled),
	))
}

// StartToolSpan starts a span for one tool dispatch
func StartToolSpan(ctx context.Context, toolName string) (context.Context, trace.Span) {
	return tracer.Start(ctx, SpanToolDispatch, trace.WithAttributes(
		attribute.String(KeyToolName, toolName),
	))
}

// StartSummarizeSpan starts a span for the final tools-disabled call on the
// exhaustion path.
func StartSummarizeSpan(ctx context.Context) (context.Context, trace.Span) {
	return tracer.Start(ctx, SpanAgentSummarize)
}

// StartPosterSpan starts a span for one POS API call
func StartPosterSpan(ctx context.Context, method string) (context.Context, trace.Span) {
	return tracer.Start(ctx, SpanPosterCall, trace.WithAttributes(
		attribute.String(KeyPosterMethod, method),
	))
}

// StartDailySummarySpan starts a span for the scheduled daily report
func StartDailySummarySpan(ctx context.Context) (context.Context, trace.Span) {
	return tracer.Start(ctx, SpanDailySummary)
}

// RecordError records an error on a span and marks it failed
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetStopReason sets the run's terminal state on a span
func SetStopReason(span trace.Span, reason string) {
	span.SetAttributes(attribute.String(KeyStopReason, reason))
}

// SetArtifactCount sets the number of artifacts a run produced
func SetArtifactCount(span trace.Span, count int) {
	span.SetAttributes(attribute.Int(KeyArtifactCount, count))
}

// SetToolOutcome sets the outcome kind of a tool dispatch on its span
func SetToolOutcome(span trace.Span, outcome string) {
	span.SetAttributes(attribute.String(KeyToolOutcome, outcome))
}
