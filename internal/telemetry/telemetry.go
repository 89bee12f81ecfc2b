// Package telemetry records invocation spans and counters through the
// OpenTelemetry API. A nil *Telemetry is valid and records nothing.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// scopeName is the instrumentation scope for every tracer and meter.
const scopeName = "github.com/ggoodman/mcp-toolguard"

// Telemetry holds the tracer and instruments.
type Telemetry struct {
	tracer trace.Tracer

	invocations  metric.Int64Counter
	latency      metric.Float64Histogram
	timeouts     metric.Int64Counter
	polls        metric.Int64Counter
	elicitations metric.Int64Counter
}

var latencyBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// New builds instruments from the given providers.
func New(tp trace.TracerProvider, mp metric.MeterProvider) (*Telemetry, error) {
	m := mp.Meter(scopeName)
	t := &Telemetry{tracer: tp.Tracer(scopeName)}
	var err error

	if t.invocations, err = m.Int64Counter("toolguard.invocations",
		metric.WithDescription("Tool invocations by outcome."),
	); err != nil {
		return nil, err
	}
	if t.latency, err = m.Float64Histogram("toolguard.invocation.duration",
		metric.WithDescription("End-to-end tool invocation latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if t.timeouts, err = m.Int64Counter("toolguard.timeouts",
		metric.WithDescription("Operations abandoned by the timeout guard."),
	); err != nil {
		return nil, err
	}
	if t.polls, err = m.Int64Counter("toolguard.polls",
		metric.WithDescription("Status checks issued by the long-running poller."),
	); err != nil {
		return nil, err
	}
	if t.elicitations, err = m.Int64Counter("toolguard.elicitations",
		metric.WithDescription("Elicitation round trips by outcome."),
	); err != nil {
		return nil, err
	}
	return t, nil
}

// Global builds a Telemetry on the process-wide otel providers. It returns
// nil if an instrument cannot be created.
func Global() *Telemetry {
	t, err := New(otel.GetTracerProvider(), otel.GetMeterProvider())
	if err != nil {
		otel.Handle(err)
		return nil
	}
	return t
}

// Invocation is an in-flight tool invocation span.
type Invocation struct {
	t     *Telemetry
	span  trace.Span
	tool  string
	start time.Time
}

// StartInvocation opens a span for one tool call.
func (t *Telemetry) StartInvocation(ctx context.Context, tool, invocationID string) (context.Context, *Invocation) {
	if t == nil {
		return ctx, nil
	}
	ctx, span := t.tracer.Start(ctx, "tool.invoke", trace.WithAttributes(
		attribute.String("tool_name", tool),
		attribute.String("invocation_id", invocationID),
	))
	return ctx, &Invocation{t: t, span: span, tool: tool, start: time.Now()}
}

// End closes the span. An empty kind means success; otherwise kind is the
// error envelope kind.
func (i *Invocation) End(ctx context.Context, kind string) {
	if i == nil {
		return
	}
	outcome := "ok"
	if kind != "" {
		outcome = kind
		i.span.SetStatus(codes.Error, kind)
	} else {
		i.span.SetStatus(codes.Ok, "")
	}
	i.span.SetAttributes(attribute.String("outcome", outcome))
	i.span.End()

	opts := metric.WithAttributes(
		attribute.String("tool_name", i.tool),
		attribute.String("outcome", outcome),
	)
	i.t.invocations.Add(ctx, 1, opts)
	i.t.latency.Record(ctx, time.Since(i.start).Seconds(), opts)
}

// Timeout counts one abandoned operation.
func (t *Telemetry) Timeout(ctx context.Context, operation string) {
	if t == nil {
		return
	}
	t.timeouts.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
	trace.SpanFromContext(ctx).AddEvent("timeout", trace.WithAttributes(attribute.String("operation", operation)))
}

// Polls counts the status checks of one poll loop.
func (t *Telemetry) Polls(ctx context.Context, n int, status string, timedOut bool) {
	if t == nil || n <= 0 {
		return
	}
	t.polls.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("status", status),
		attribute.Bool("timed_out", timedOut),
	))
}

// Elicitation counts one elicitation outcome.
func (t *Telemetry) Elicitation(ctx context.Context, outcome string) {
	if t == nil {
		return
	}
	t.elicitations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	trace.SpanFromContext(ctx).AddEvent("elicitation", trace.WithAttributes(attribute.String("outcome", outcome)))
}
