// Package logging owns the process-wide log state: the verbosity level and
// the list of subscribed sinks.
//
// Both are deliberately global for the lifetime of the process. The level is
// a slog.LevelVar so it can be changed at runtime (logging/setLevel). Sinks
// can only be added, never removed, which lets concurrent invocations log
// without coordinating with subscribers. Tests build an isolated State with
// New instead of touching the global one.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ggoodman/mcp-toolguard/internal/logctx"
	"github.com/ggoodman/mcp-toolguard/mcp"
)

// ErrInvalidLoggingLevel indicates the provided level is not one of the
// protocol-defined LoggingLevel values.
var ErrInvalidLoggingLevel = errors.New("invalid logging level")

// Entry is a log record as delivered to sinks.
type Entry struct {
	Time    time.Time
	Level   mcp.LoggingLevel
	Logger  string
	Message string
	Attrs   map[string]any
}

// Sink receives every enabled log record. Emit runs synchronously on the
// logging goroutine; errors are dropped.
type Sink interface {
	Emit(ctx context.Context, e Entry) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, e Entry) error

// Emit implements Sink.
func (f SinkFunc) Emit(ctx context.Context, e Entry) error { return f(ctx, e) }

// Options configure a State.
type Options struct {
	// Writer receives formatted records. Defaults to os.Stderr.
	Writer io.Writer
	// Format is "text" (default) or "json".
	Format string
	// Level is the initial verbosity. Defaults to info.
	Level mcp.LoggingLevel
	// Name is reported to sinks as the logger name.
	Name string
}

// State is one instance of log state.
type State struct {
	name  string
	level *slog.LevelVar

	mu    sync.RWMutex
	sinks []Sink

	logger *slog.Logger
}

// New builds an isolated State.
func New(opts Options) (*State, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	st := &State{name: opts.Name, level: new(slog.LevelVar)}
	if opts.Level != "" {
		if err := st.SetLevel(opts.Level); err != nil {
			return nil, err
		}
	}

	hopts := &slog.HandlerOptions{Level: st.level}
	var base slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		base = slog.NewTextHandler(w, hopts)
	case "json":
		base = slog.NewJSONHandler(w, hopts)
	default:
		return nil, fmt.Errorf("logging: unknown format %q", opts.Format)
	}
	st.logger = slog.New(logctx.Handler{Handler: &fanout{state: st, base: base}})
	return st, nil
}

// Logger returns the slog.Logger backed by this State.
func (s *State) Logger() *slog.Logger { return s.logger }

// Subscribe adds a sink. There is no way to remove one.
func (s *State) Subscribe(sink Sink) {
	if sink == nil {
		return
	}
	s.mu.Lock()
	s.sinks = append(slices.Clip(s.sinks), sink)
	s.mu.Unlock()
}

func (s *State) snapshot() []Sink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sinks
}

// SetLevel maps an MCP level onto the slog level. notice folds into info and
// everything above error folds into error.
func (s *State) SetLevel(level mcp.LoggingLevel) error {
	if !mcp.IsValidLoggingLevel(level) {
		return ErrInvalidLoggingLevel
	}
	var slogLevel slog.Level
	switch level {
	case mcp.LoggingLevelDebug:
		slogLevel = slog.LevelDebug
	case mcp.LoggingLevelInfo, mcp.LoggingLevelNotice:
		slogLevel = slog.LevelInfo
	case mcp.LoggingLevelWarning:
		slogLevel = slog.LevelWarn
	default:
		slogLevel = slog.LevelError
	}
	s.level.Set(slogLevel)
	return nil
}

// Level reports the current verbosity as an MCP level.
func (s *State) Level() mcp.LoggingLevel {
	return fromSlog(s.level.Level())
}

func fromSlog(l slog.Level) mcp.LoggingLevel {
	switch {
	case l < slog.LevelInfo:
		return mcp.LoggingLevelDebug
	case l < slog.LevelWarn:
		return mcp.LoggingLevelInfo
	case l < slog.LevelError:
		return mcp.LoggingLevelWarning
	default:
		return mcp.LoggingLevelError
	}
}

// ParseLevel accepts the MCP level names plus "warn".
func ParseLevel(s string) (mcp.LoggingLevel, error) {
	l := mcp.LoggingLevel(strings.ToLower(strings.TrimSpace(s)))
	if l == "warn" {
		l = mcp.LoggingLevelWarning
	}
	if !mcp.IsValidLoggingLevel(l) {
		return "", fmt.Errorf("%w: %q", ErrInvalidLoggingLevel, s)
	}
	return l, nil
}

var global atomic.Pointer[State]

// Init installs a process-wide State and makes its logger the slog default.
// It is meant to be called once at startup.
func Init(opts Options) (*State, error) {
	st, err := New(opts)
	if err != nil {
		return nil, err
	}
	global.Store(st)
	slog.SetDefault(st.Logger())
	return st, nil
}

// Default returns the process-wide State, creating one with default options
// if Init was never called.
func Default() *State {
	if st := global.Load(); st != nil {
		return st
	}
	st, _ := New(Options{})
	if global.CompareAndSwap(nil, st) {
		return st
	}
	return global.Load()
}

// Subscribe adds a sink to the process-wide State.
func Subscribe(sink Sink) { Default().Subscribe(sink) }

// SetLevel sets the process-wide verbosity.
func SetLevel(level mcp.LoggingLevel) error { return Default().SetLevel(level) }
