// Package toolcall runs a tool invocation through the whole execution
// contract: parameter elicitation, a bounded backend call, optional
// completion polling, and result shaping or error normalization.
//
// Invoke always produces a result. Backend failures, timeouts and panics all
// come back as error envelopes, so a tool handler can return whatever Invoke
// gives it.
package toolcall

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ggoodman/mcp-toolguard/config"
	"github.com/ggoodman/mcp-toolguard/elicitation"
	"github.com/ggoodman/mcp-toolguard/formatter"
	"github.com/ggoodman/mcp-toolguard/guard"
	"github.com/ggoodman/mcp-toolguard/internal/logctx"
	"github.com/ggoodman/mcp-toolguard/internal/telemetry"
	"github.com/ggoodman/mcp-toolguard/mcp"
	"github.com/ggoodman/mcp-toolguard/poll"
	"github.com/ggoodman/mcp-toolguard/toolerr"
)

// RunFunc performs the backend work of a tool with the final parameters.
type RunFunc func(ctx context.Context, params map[string]any) (any, error)

// Await turns a started backend operation into a verified completion. Fetch
// receives the value returned by Run and reports the job status.
type Await struct {
	Fetch   func(ctx context.Context, started any) (string, error)
	Options poll.Options
}

// Completion is the payload formatted for an awaited call.
type Completion struct {
	Result     any         `json:"result,omitempty"`
	Completion poll.Result `json:"completion"`
}

// Call describes one tool invocation.
type Call struct {
	Name   string
	Params map[string]any
	// Required lists parameters that must be present before Run. Missing
	// ones are elicited from the caller when Server supports it.
	Required []string
	// Elicit overrides the request sent for missing parameters. When nil a
	// string field is requested for each missing parameter.
	Elicit *mcp.ElicitRequest
	// Server is whatever the host handed the tool handler; it is probed for
	// elicitation support.
	Server any
	// Timeout bounds Run. Zero selects the configured default.
	Timeout time.Duration
	Format  formatter.Mode
	Run     RunFunc
	Await   *Await
	// RequestID is an explicit correlation id for error envelopes.
	RequestID string
}

// Invoker executes calls with shared configuration.
type Invoker struct {
	cfg        config.Config
	logger     *slog.Logger
	summarizer formatter.Summarizer
	tel        *telemetry.Telemetry
	newID      func() string
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option { return func(i *Invoker) { i.logger = l } }

// WithSummarizer enables summarization of oversized objects and summary
// mode.
func WithSummarizer(s formatter.Summarizer) Option {
	return func(i *Invoker) { i.summarizer = s }
}

// WithTelemetry records spans and metrics on the given providers instead of
// the global ones.
func WithTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(i *Invoker) {
		if tel, err := telemetry.New(tp, mp); err == nil {
			i.tel = tel
		}
	}
}

// WithIDGenerator replaces the invocation id source.
func WithIDGenerator(fn func() string) Option { return func(i *Invoker) { i.newID = fn } }

// New builds an Invoker. A zero cfg is replaced by config.Default().
func New(cfg config.Config, opts ...Option) *Invoker {
	if cfg == (config.Config{}) {
		cfg = config.Default()
	}
	inv := &Invoker{cfg: cfg, newID: uuid.NewString}
	for _, o := range opts {
		if o != nil {
			o(inv)
		}
	}
	if inv.logger == nil {
		inv.logger = slog.Default()
	}
	if inv.tel == nil {
		inv.tel = telemetry.Global()
	}
	return inv
}

// Invoke runs c and returns the result to hand back to the host. It never
// returns nil.
func (i *Invoker) Invoke(ctx context.Context, c Call) (res *mcp.CallToolResult) {
	id := i.newID()
	ctx = logctx.WithInvocation(ctx, &logctx.Invocation{ToolName: c.Name, InvocationID: id, RequestID: c.RequestID})
	ctx, span := i.tel.StartInvocation(ctx, c.Name, id)
	log := i.logger

	var kind toolerr.Kind
	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "toolcall.panic", slog.Any("panic", r))
			env := toolerr.Normalize(fmt.Errorf("tool %q panicked: %v", c.Name, r), c.RequestID)
			kind = env.Error
			res = formatter.ErrorResult(env)
		}
		span.End(ctx, string(kind))
	}()

	fail := func(err error) *mcp.CallToolResult {
		env := toolerr.Normalize(err, c.RequestID)
		kind = env.Error
		log.WarnContext(ctx, "toolcall.fail", slog.String("kind", string(env.Error)), slog.String("err", err.Error()))
		return formatter.ErrorResult(env)
	}

	if c.Run == nil {
		return fail(fmt.Errorf("tool %q has no run function", c.Name))
	}

	params, err := i.resolveParams(ctx, c)
	if err != nil {
		return fail(err)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = i.cfg.Timeout()
	}
	opCtx := logctx.WithOperation(ctx, &logctx.Operation{Name: c.Name, Timeout: timeout})
	v, err := guard.Do(opCtx, c.Name, timeout, func(ctx context.Context) (any, error) {
		return c.Run(ctx, params)
	})
	if err != nil {
		if guard.IsTimeout(err) {
			i.tel.Timeout(ctx, c.Name)
		}
		return fail(err)
	}

	if c.Await != nil && c.Await.Fetch != nil {
		v, err = i.await(ctx, c, v)
		if err != nil {
			return fail(err)
		}
	}

	fopts := i.cfg.FormatterOptions()
	fopts.Summarizer = i.summarizer
	fopts.Mode = c.Format
	fopts.Logger = log
	res = formatter.Format(ctx, v, fopts)
	if res.IsError {
		kind = toolerr.KindUnknown
	}
	return res
}

// resolveParams elicits missing required parameters and merges them in.
// Parameters still missing afterwards are an invalid request.
func (i *Invoker) resolveParams(ctx context.Context, c Call) (map[string]any, error) {
	params := c.Params
	if !elicitation.NeedsElicitation(params, c.Required) {
		return params, nil
	}
	missing := elicitation.Missing(params, c.Required)

	req := c.Elicit
	if req == nil {
		b := elicitation.NewBuilder()
		for _, name := range missing {
			b.String(name, elicitation.Required())
		}
		var err error
		req, err = b.Request(fmt.Sprintf("%s needs: %s", c.Name, strings.Join(missing, ", ")))
		if err != nil {
			return nil, err
		}
	}

	r := elicitation.Elicit(ctx, c.Server, req,
		elicitation.WithTimeout(i.cfg.ElicitTimeout()),
		elicitation.WithLogger(i.logger),
	)
	i.tel.Elicitation(ctx, r.Outcome.String())
	if r.OK() {
		params = elicitation.Merge(params, r.Content)
	}

	if still := elicitation.Missing(params, c.Required); len(still) > 0 {
		reason := fmt.Sprintf("missing required parameter (elicitation %s)", r.Outcome)
		if r.Err != nil {
			reason += ": " + r.Err.Error()
		}
		return nil, &toolerr.InvalidParamsError{Field: strings.Join(still, ","), Reason: reason}
	}
	return params, nil
}

func (i *Invoker) await(ctx context.Context, c Call, started any) (any, error) {
	opts := c.Await.Options
	defaults := i.cfg.PollOptions()
	if opts.Interval <= 0 {
		opts.Interval = defaults.Interval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.Logger == nil {
		opts.Logger = i.logger
	}

	pr, err := poll.Until(ctx, func(ctx context.Context) (string, error) {
		return c.Await.Fetch(ctx, started)
	}, opts)
	i.tel.Polls(ctx, pr.Polls, pr.Status, pr.TimedOut)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("awaiting %s: %w", c.Name, err)
	}
	return Completion{Result: started, Completion: pr}, nil
}
