// Package logctx enriches log records with invocation data carried in the
// context.
package logctx

import (
	"context"
	"log/slog"
	"time"
)

type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if inv, ok := ctx.Value(invocationKey{}).(*Invocation); ok {
		attrs := []any{
			slog.String("name", inv.ToolName),
			slog.String("invocation_id", inv.InvocationID),
		}
		if inv.RequestID != "" {
			attrs = append(attrs, slog.String("request_id", inv.RequestID))
		}
		r.AddAttrs(slog.Group("tool", attrs...))
	}

	if op, ok := ctx.Value(operationKey{}).(*Operation); ok {
		r.AddAttrs(slog.Group("op",
			slog.String("name", op.Name),
			slog.Duration("timeout", op.Timeout),
		))
	}

	return h.Handler.Handle(ctx, r)
}

func (h Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return Handler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h Handler) WithGroup(name string) slog.Handler {
	return Handler{Handler: h.Handler.WithGroup(name)}
}

type invocationKey struct{}

// Invocation identifies one tool call.
type Invocation struct {
	ToolName     string
	InvocationID string
	// RequestID is the backend correlation id, when the caller supplied one.
	RequestID string
}

func WithInvocation(ctx context.Context, inv *Invocation) context.Context {
	return context.WithValue(ctx, invocationKey{}, inv)
}

// InvocationFrom returns the invocation stored in ctx, if any.
func InvocationFrom(ctx context.Context) (*Invocation, bool) {
	inv, ok := ctx.Value(invocationKey{}).(*Invocation)
	return inv, ok
}

type operationKey struct{}

type Operation struct {
	Name    string
	Timeout time.Duration
}

func WithOperation(ctx context.Context, op *Operation) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}
