// Package formatter shapes backend results into bounded tool result
// envelopes.
//
// Every payload is serialized as indented JSON and measured against a byte
// budget. Payloads that fit are returned whole. Payloads that don't are
// degraded: sequences become a truncated preview, objects are summarized when
// a Summarizer is configured and otherwise have their known large arrays
// (history, value, errors) cut down.
//
// # Known limitation
//
// An object that has none of the recognized large arrays, formatted without a
// Summarizer, cannot be reduced. It is returned untruncated even when it
// exceeds MaxSize and a "formatter.over_budget" warning is logged. Callers
// hitting this must pick a smaller result shape or configure a Summarizer.
package formatter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ggoodman/mcp-toolguard/guard"
	"github.com/ggoodman/mcp-toolguard/mcp"
	"github.com/ggoodman/mcp-toolguard/toolerr"
)

// Mode selects how aggressively a result is reduced.
type Mode string

const (
	ModeFull    Mode = "full"
	ModeSummary Mode = "summary"
	ModeMinimal Mode = "minimal"
)

// ParseMode maps a caller-supplied format string onto a Mode. Unknown or
// empty values select ModeFull.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeSummary, ModeMinimal:
		return Mode(s)
	default:
		return ModeFull
	}
}

const (
	// DefaultMaxSize is the serialized size budget in bytes.
	DefaultMaxSize = 25000
	// DefaultTokenBudget is the token budget handed to a Summarizer.
	DefaultTokenBudget = 500
)

// Summarizer condenses text to roughly maxTokens tokens.
type Summarizer interface {
	Summarize(ctx context.Context, text string, maxTokens int) (string, error)
}

// SummarizerFunc adapts a function to the Summarizer interface.
type SummarizerFunc func(ctx context.Context, text string, maxTokens int) (string, error)

// Summarize implements Summarizer.
func (f SummarizerFunc) Summarize(ctx context.Context, text string, maxTokens int) (string, error) {
	return f(ctx, text, maxTokens)
}

// Options tune a single Format call. The zero value is usable.
type Options struct {
	// MaxSize is the byte budget for the serialized payload.
	MaxSize int
	// Summarizer is optional.
	Summarizer Summarizer
	Mode       Mode
	// TokenBudget is passed to the Summarizer.
	TokenBudget int
	// SummaryTimeout bounds each Summarizer call. Zero selects
	// guard.DefaultTimeout.
	SummaryTimeout time.Duration
	Logger         *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultMaxSize
	}
	if o.TokenBudget <= 0 {
		o.TokenBudget = DefaultTokenBudget
	}
	if o.Mode == "" {
		o.Mode = ModeFull
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

var errEmptySummary = errors.New("summarizer returned an empty summary")

// Format renders data as a tool result. It never returns nil and never
// panics; data that cannot be serialized yields an error result.
func Format(ctx context.Context, data any, opts Options) (res *mcp.CallToolResult) {
	opts = opts.withDefaults()
	defer func() {
		if r := recover(); r != nil {
			opts.Logger.ErrorContext(ctx, "formatter.panic", slog.Any("panic", r))
			res = ErrorResult(toolerr.Normalize(fmt.Errorf("formatting result: %v", r), ""))
		}
	}()

	v, err := normalize(data)
	if err != nil {
		return ErrorResult(toolerr.Normalize(fmt.Errorf("formatting result: %w", err), ""))
	}

	switch opts.Mode {
	case ModeMinimal:
		return formatFull(ctx, Minimal(v), opts)
	case ModeSummary:
		if opts.Summarizer == nil {
			return formatFull(ctx, v, opts)
		}
		text, err := marshal(v)
		if err != nil {
			return ErrorResult(toolerr.Normalize(err, ""))
		}
		summary, err := summarize(ctx, text, opts)
		if err != nil {
			opts.Logger.DebugContext(ctx, "formatter.summarize.fail", slog.String("err", err.Error()))
			fallback := opts
			fallback.Summarizer = nil
			fallback.MaxSize = max(opts.MaxSize/2, 1)
			return formatFull(ctx, v, fallback)
		}
		return render(map[string]any{
			"summary":      summary,
			"summarized":   true,
			"originalSize": len(text),
		}, opts.MaxSize)
	default:
		return formatFull(ctx, v, opts)
	}
}

func formatFull(ctx context.Context, v any, opts Options) *mcp.CallToolResult {
	text, err := marshal(v)
	if err != nil {
		return ErrorResult(toolerr.Normalize(err, ""))
	}
	if len(text) <= opts.MaxSize {
		return renderText(v, text, opts.MaxSize)
	}

	switch tv := v.(type) {
	case []any:
		return render(truncateSequence(tv, opts.MaxSize), opts.MaxSize)
	case map[string]any:
		if opts.Summarizer != nil {
			summary, err := summarize(ctx, text, opts)
			if err == nil {
				return render(map[string]any{
					"summary":      summary,
					"summarized":   true,
					"originalSize": len(text),
					"note":         fmt.Sprintf("Response exceeded %d bytes and was summarized. Use targeted queries or pagination for complete data.", opts.MaxSize),
				}, opts.MaxSize)
			}
			opts.Logger.DebugContext(ctx, "formatter.summarize.fail", slog.String("err", err.Error()))
		}
	}

	reduced := TruncateLargeArrays(v)
	out, err := marshal(reduced)
	if err != nil {
		return ErrorResult(toolerr.Normalize(err, ""))
	}
	if len(out) > opts.MaxSize {
		opts.Logger.WarnContext(ctx, "formatter.over_budget",
			slog.Int("size", len(out)),
			slog.Int("max_size", opts.MaxSize),
		)
	}
	return renderText(reduced, out, opts.MaxSize)
}

func summarize(ctx context.Context, text string, opts Options) (string, error) {
	s, err := guard.Do(ctx, "summarize", opts.SummaryTimeout, func(ctx context.Context) (string, error) {
		return opts.Summarizer.Summarize(ctx, text, opts.TokenBudget)
	})
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", errEmptySummary
	}
	return s, nil
}

// normalize converts arbitrary Go values into the generic JSON model
// (map[string]any, []any, json.Number, string, bool, nil).
func normalize(data any) (any, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func marshal(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializing result: %w", err)
	}
	return string(b), nil
}

func size(v any) int {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return 0
	}
	return len(b)
}
