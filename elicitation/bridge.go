package elicitation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"time"

	"github.com/ggoodman/mcp-toolguard/guard"
	"github.com/ggoodman/mcp-toolguard/internal/validation"
	"github.com/ggoodman/mcp-toolguard/mcp"
)

// DefaultTimeout bounds an elicitation round trip. It is longer than the
// backend default because a human is on the other end.
const DefaultTimeout = 2 * time.Minute

// Host is the capability to ask the caller for input.
type Host interface {
	Elicit(ctx context.Context, req *mcp.ElicitRequest) (*mcp.ElicitResult, error)
}

// HostFunc adapts a function to the Host interface.
type HostFunc func(ctx context.Context, req *mcp.ElicitRequest) (*mcp.ElicitResult, error)

// Elicit implements Host.
func (f HostFunc) Elicit(ctx context.Context, req *mcp.ElicitRequest) (*mcp.ElicitResult, error) {
	return f(ctx, req)
}

// Provider is implemented by server contexts that may carry a Host. ok is
// false when the connected client did not advertise elicitation support.
type Provider interface {
	ElicitationHost() (h Host, ok bool)
}

// maxProbeDepth limits how many wrappers HostFrom looks through.
const maxProbeDepth = 2

// HostFrom finds the elicitation capability behind v. It accepts a Host, a
// Provider, a go-sdk server session or a go-sdk tool call request, looking
// through at most two levels of wrapping. ok is false when v offers no way
// to elicit; callers treat that as a signal to continue with the parameters
// they already have.
func HostFrom(v any) (Host, bool) {
	return hostFrom(v, 0)
}

func hostFrom(v any, depth int) (Host, bool) {
	if isNil(v) || depth > maxProbeDepth {
		return nil, false
	}
	switch h := v.(type) {
	case Host:
		return h, true
	case sdkElicitor:
		return sdkHost{s: h}, true
	case Provider:
		inner, ok := h.ElicitationHost()
		if !ok {
			return nil, false
		}
		return hostFrom(inner, depth+1)
	}
	if inner, ok := sdkSession(v); ok {
		return hostFrom(inner, depth+1)
	}
	return nil, false
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Func, reflect.Chan, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

// Outcome is the terminal state of one elicitation round trip.
type Outcome int

const (
	// OutcomeNotSupported: no host capability was found.
	OutcomeNotSupported Outcome = iota + 1
	// OutcomeTimedOut: the host did not answer in time.
	OutcomeTimedOut
	// OutcomeDeclined: the caller explicitly declined.
	OutcomeDeclined
	// OutcomeCancelled: the caller dismissed the request, or the host sent no action.
	OutcomeCancelled
	// OutcomeRejected: the caller accepted but the content failed validation.
	OutcomeRejected
	// OutcomeFailed: the request was malformed or the host returned an error.
	OutcomeFailed
	// OutcomeValidated: accepted content passed validation.
	OutcomeValidated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNotSupported:
		return "not_supported"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeDeclined:
		return "declined"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	case OutcomeValidated:
		return "validated"
	default:
		return "unknown"
	}
}

// Result is the outcome of Elicit. Content is only set for
// OutcomeValidated; every other outcome means no value was obtained.
type Result struct {
	Outcome Outcome
	Action  mcp.ElicitAction
	Content map[string]any
	// Err explains Rejected, Failed and TimedOut outcomes.
	Err error
}

// OK reports whether usable content was obtained.
func (r Result) OK() bool { return r.Outcome == OutcomeValidated }

type config struct {
	timeout time.Duration
	strict  bool
	logger  *slog.Logger
}

// Option configures Elicit.
type Option func(*config)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option { return func(c *config) { c.timeout = d } }

// WithStrict rejects accepted content that carries keys outside the schema.
func WithStrict() Option { return func(c *config) { c.strict = true } }

// WithLogger sets the logger used for round-trip diagnostics.
func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

// Elicit asks the caller behind server for the input described by req. It
// never returns an error: all failures are folded into the Result outcome
// so a tool can proceed with the parameters it already has.
func Elicit(ctx context.Context, server any, req *mcp.ElicitRequest, opts ...Option) Result {
	cfg := config{timeout: DefaultTimeout}
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	log := cfg.logger

	host, ok := HostFrom(server)
	if !ok {
		log.DebugContext(ctx, "elicitation.not_supported")
		return Result{Outcome: OutcomeNotSupported}
	}
	if req == nil {
		return Result{Outcome: OutcomeFailed, Err: errors.New("elicitation: nil request")}
	}
	normalized := *req
	normalized.RequestedSchema.Required = slices.Clone(req.RequestedSchema.Required)
	normalized.RequestedSchema.Properties = maps.Clone(req.RequestedSchema.Properties)
	if err := validation.ElicitationSchema(&normalized.RequestedSchema); err != nil {
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("elicitation: invalid schema: %w", err)}
	}

	resp, err := guard.Do(ctx, "elicitation", cfg.timeout, func(ctx context.Context) (*mcp.ElicitResult, error) {
		return host.Elicit(ctx, &normalized)
	})
	if err != nil {
		if guard.IsTimeout(err) {
			log.WarnContext(ctx, "elicitation.timeout", slog.Duration("timeout", cfg.timeout))
			return Result{Outcome: OutcomeTimedOut, Err: err}
		}
		log.WarnContext(ctx, "elicitation.fail", slog.String("err", err.Error()))
		return Result{Outcome: OutcomeFailed, Err: err}
	}

	action := mcp.ElicitActionCancel
	if resp != nil && resp.Action != "" {
		action = resp.Action
	}
	switch action {
	case mcp.ElicitActionAccept:
	case mcp.ElicitActionDecline:
		return Result{Outcome: OutcomeDeclined, Action: action}
	default:
		return Result{Outcome: OutcomeCancelled, Action: mcp.ElicitActionCancel}
	}

	if err := validation.Content(normalized.RequestedSchema, resp.Content, cfg.strict); err != nil {
		log.InfoContext(ctx, "elicitation.rejected", slog.String("err", err.Error()))
		return Result{Outcome: OutcomeRejected, Action: action, Err: err}
	}
	return Result{Outcome: OutcomeValidated, Action: action, Content: declared(resp.Content, normalized.RequestedSchema)}
}

// declared copies the entries of content that the schema has a property for.
func declared(content map[string]any, s mcp.ElicitationSchema) map[string]any {
	out := make(map[string]any, len(s.Properties))
	for k, v := range content {
		if _, ok := s.Properties[k]; ok {
			out[k] = v
		}
	}
	return out
}
