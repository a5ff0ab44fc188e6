package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ToolCallOutcome describes how a served tool call ended.
type ToolCallOutcome string

const (
	ToolCallOutcomeSuccess ToolCallOutcome = "success"
	ToolCallOutcomeError   ToolCallOutcome = "error"
)

// CustomMetrics records the domain metrics of toolserver.
// Callers always get a usable implementation, so they never need to check whether telemetry is enabled.
type CustomMetrics interface {
	// RecordToolCall records a tool call that reached the tool's handler.
	RecordToolCall(
		ctx context.Context, tool, mode string, outcome ToolCallOutcome, credits float64, elapsed time.Duration,
	)
	// RecordOutputValidationWarning records a tool output that did not match the tool's output schema.
	RecordOutputValidationWarning(ctx context.Context, tool string)
}

type noopCustomMetrics struct{}

// NewNoopCustomMetrics returns a CustomMetrics implementation that discards everything.
func NewNoopCustomMetrics() CustomMetrics {
	return noopCustomMetrics{}
}

func (noopCustomMetrics) RecordToolCall(context.Context, string, string, ToolCallOutcome, float64, time.Duration) {
}

func (noopCustomMetrics) RecordOutputValidationWarning(context.Context, string) {}

type otelCustomMetrics struct {
	toolCalls         metric.Int64Counter
	toolCallDuration  metric.Float64Histogram
	creditsBilled     metric.Float64Counter
	outputSchemaWarns metric.Int64Counter
}

// NewOtelCustomMetrics creates the toolserver instruments on the given meter.
func NewOtelCustomMetrics(meter metric.Meter) (CustomMetrics, error) {
	toolCalls, err := meter.Int64Counter(
		"toolserver_tool_calls",
		metric.WithDescription("Number of tool calls that reached a handler"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool calls counter: %w", err)
	}

	toolCallDuration, err := meter.Float64Histogram(
		"toolserver_tool_call_duration",
		metric.WithDescription("Time spent in tool handlers"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool call duration histogram: %w", err)
	}

	creditsBilled, err := meter.Float64Counter(
		"toolserver_credits",
		metric.WithDescription("Credits reported by successful tool calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create credits counter: %w", err)
	}

	outputSchemaWarns, err := meter.Int64Counter(
		"toolserver_output_validation_warnings",
		metric.WithDescription("Number of tool outputs that did not match the declared output schema"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create output validation warnings counter: %w", err)
	}

	return &otelCustomMetrics{
		toolCalls:         toolCalls,
		toolCallDuration:  toolCallDuration,
		creditsBilled:     creditsBilled,
		outputSchemaWarns: outputSchemaWarns,
	}, nil
}

func (m *otelCustomMetrics) RecordToolCall(
	ctx context.Context, tool, mode string, outcome ToolCallOutcome, credits float64, elapsed time.Duration,
) {
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("mode", mode),
		attribute.String("outcome", string(outcome)),
	)
	m.toolCalls.Add(ctx, 1, attrs)
	m.toolCallDuration.Record(ctx, elapsed.Seconds(), attrs)
	if outcome == ToolCallOutcomeSuccess {
		m.creditsBilled.Add(ctx, credits, attrs)
	}
}

func (m *otelCustomMetrics) RecordOutputValidationWarning(ctx context.Context, tool string) {
	m.outputSchemaWarns.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", tool)))
}
