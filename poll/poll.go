// Package poll waits for an asynchronous backend job to reach a terminal
// state.
//
// Polling is paced by a token bucket limiter with a burst of one. The first
// status fetch happens immediately and the bucket is emptied whenever a
// fetch returns, so the next fetch starts at least one interval after the
// previous one finished. The whole loop runs under a deadline context: a
// wait that would cross the deadline ends the loop instead, which keeps the
// overshoot under one interval.
package poll

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultInterval = 2 * time.Second
	DefaultTimeout  = 60 * time.Second
)

// State is the classification of an observed job status.
type State int

const (
	StateInProgress State = iota
	StateSuccess
	StateReset
	StateTransientFailure
	StatePersistentFailure
)

func (s State) String() string {
	switch s {
	case StateSuccess:
		return "success"
	case StateReset:
		return "reset"
	case StateTransientFailure:
		return "transientFailure"
	case StatePersistentFailure:
		return "persistentFailure"
	default:
		return "inProgress"
	}
}

// Terminal reports whether polling stops at s.
func (s State) Terminal() bool { return s != StateInProgress }

// Classify maps a backend status string onto a State. Matching is case
// insensitive; anything unrecognized counts as in progress.
func Classify(status string) State {
	switch {
	case strings.EqualFold(status, "success"):
		return StateSuccess
	case strings.EqualFold(status, "reset"):
		return StateReset
	case strings.EqualFold(status, "transientFailure"):
		return StateTransientFailure
	case strings.EqualFold(status, "persistentFailure"):
		return StatePersistentFailure
	default:
		return StateInProgress
	}
}

// StatusFunc fetches the current job status.
type StatusFunc func(ctx context.Context) (string, error)

// Options configure Until.
type Options struct {
	// Interval is the minimum spacing between fetches.
	Interval time.Duration
	// Timeout is the wall-clock budget for the whole wait.
	Timeout time.Duration
	Logger  *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Result summarizes a finished wait. Verified is true whenever a terminal
// status was actually observed; OK additionally requires that status to be
// success.
type Result struct {
	OK       bool          `json:"ok"`
	Verified bool          `json:"verified"`
	Status   string        `json:"status,omitempty"`
	Polls    int           `json:"polls"`
	Elapsed  time.Duration `json:"-"`
	TimedOut bool          `json:"timedOut,omitempty"`
}

// MarshalJSON reports Elapsed in milliseconds.
func (r Result) MarshalJSON() ([]byte, error) {
	type alias Result
	return json.Marshal(struct {
		alias
		Elapsed int64 `json:"elapsedMs"`
	}{alias: alias(r), Elapsed: r.Elapsed.Milliseconds()})
}

// Until polls fetch until it reports a terminal status or the timeout
// elapses. Timing out is not an error: it yields a Result with TimedOut set
// and Verified false. A fetch error ends the wait immediately and is
// returned. Cancellation of ctx is returned as ctx.Err().
func Until(ctx context.Context, fetch StatusFunc, opts Options) (Result, error) {
	opts = opts.withDefaults()
	start := time.Now()
	var res Result
	if fetch == nil {
		return res, errors.New("poll: nil status function")
	}

	deadlineCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	limiter := rate.NewLimiter(rate.Every(opts.Interval), 1)

	for {
		if err := limiter.Wait(deadlineCtx); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			return timedOut(res, start), nil
		}

		status, err := fetch(deadlineCtx)
		limiter = drained(opts.Interval, time.Now())
		res.Polls++
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			if deadlineCtx.Err() != nil {
				return timedOut(res, start), nil
			}
			return res, fmt.Errorf("poll: fetch status (attempt %d): %w", res.Polls, err)
		}
		res.Status = status

		state := Classify(status)
		opts.Logger.DebugContext(ctx, "poll.tick",
			slog.Int("poll", res.Polls),
			slog.String("status", status),
		)
		if state.Terminal() {
			res.Verified = true
			res.OK = state == StateSuccess
			res.Elapsed = time.Since(start)
			return res, nil
		}
	}
}

// drained returns a limiter whose only token was spent at t.
func drained(every time.Duration, t time.Time) *rate.Limiter {
	l := rate.NewLimiter(rate.Every(every), 1)
	l.AllowN(t, 1)
	return l
}

func timedOut(res Result, start time.Time) Result {
	res.OK = false
	res.Verified = false
	res.TimedOut = true
	res.Elapsed = time.Since(start)
	return res
}

// IndexerCompletion polls a job whose status document nests the state at
// lastResult.status, the shape used by indexer-style backends. fetch may
// return any JSON-serializable value.
func IndexerCompletion(ctx context.Context, fetch func(ctx context.Context) (any, error), opts Options) (Result, error) {
	return Until(ctx, func(ctx context.Context) (string, error) {
		doc, err := fetch(ctx)
		if err != nil {
			return "", err
		}
		return LastResultStatus(doc)
	}, opts)
}

// LastResultStatus extracts lastResult.status from a status document. A
// missing lastResult (a job that never ran) reads as an empty, in-progress
// status.
func LastResultStatus(doc any) (string, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("poll: encode status document: %w", err)
	}
	var shape struct {
		LastResult *struct {
			Status string `json:"status"`
		} `json:"lastResult"`
	}
	if err := json.Unmarshal(b, &shape); err != nil {
		return "", fmt.Errorf("poll: decode status document: %w", err)
	}
	if shape.LastResult == nil {
		return "", nil
	}
	return shape.LastResult.Status, nil
}
