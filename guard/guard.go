// Package guard bounds the wall-clock duration of tool operations.
//
// Every backend call made on behalf of a tool invocation runs through [Run]
// (or one of its helpers). The operation and a timer race; whichever settles
// first decides the outcome and the timer is always stopped so that sustained
// load never accumulates pending timers.
//
// Cancellation is cooperative. When the timer wins, the context handed to the
// operation is cancelled, but an operation that ignores its context keeps
// running in the background until it returns on its own. Its late result is
// discarded. Callers must make sure such operations are cheap to abandon or
// internally bounded.
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout applies when an Operation does not carry its own timeout.
const DefaultTimeout = 30 * time.Second

// TimeoutError reports that an operation did not settle within its budget.
// It is distinct from any error the operation itself can return.
type TimeoutError struct {
	Operation string
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation %q timed out after %s", e.Operation, e.Timeout)
}

// Is lets errors.Is(err, context.DeadlineExceeded) match a guard timeout.
func (e *TimeoutError) Is(target error) bool {
	return target == context.DeadlineExceeded
}

// IsTimeout reports whether err (or anything it wraps) is a *TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// Operation is a deferred unit of work executed at most once.
type Operation[T any] struct {
	// Name identifies the operation in timeout errors and logs.
	Name string
	// Timeout bounds the operation. Zero or negative selects DefaultTimeout.
	Timeout time.Duration
	// Run performs the work. The context is cancelled when the guard gives up.
	Run func(ctx context.Context) (T, error)
}

// Outcome is the settled value of an operation that was started elsewhere.
type Outcome[T any] struct {
	Value T
	Err   error
}

// PanicError wraps a value recovered from a panicking operation.
type PanicError struct {
	Operation string
	Value     any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("operation %q panicked: %v", e.Operation, e.Value)
}

// Run executes op and returns its result, or a *TimeoutError if the timeout
// elapses first. If ctx is cancelled before either settles, ctx.Err() is
// returned.
func Run[T any](ctx context.Context, op Operation[T]) (T, error) {
	var zero T
	if op.Run == nil {
		return zero, fmt.Errorf("guard: operation %q has no Run function", op.Name)
	}
	timeout := effective(op.Timeout)

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so the operation goroutine can always deliver and exit, even
	// after nobody is listening anymore.
	done := make(chan Outcome[T], 1)
	go func() {
		var out Outcome[T]
		defer func() {
			if r := recover(); r != nil {
				out = Outcome[T]{Err: &PanicError{Operation: op.Name, Value: r}}
			}
			done <- out
		}()
		v, err := op.Run(opCtx)
		out = Outcome[T]{Value: v, Err: err}
	}()

	return wait(ctx, op.Name, timeout, done)
}

// Do is shorthand for Run with an inline operation.
func Do[T any](ctx context.Context, name string, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	return Run(ctx, Operation[T]{Name: name, Timeout: timeout, Run: fn})
}

// Await bounds an operation that is already in flight. The producer owns the
// channel and must send at most one Outcome; a buffered channel keeps it from
// blocking once Await has given up.
func Await[T any](ctx context.Context, name string, timeout time.Duration, ch <-chan Outcome[T]) (T, error) {
	return wait(ctx, name, effective(timeout), ch)
}

func wait[T any](ctx context.Context, name string, timeout time.Duration, ch <-chan Outcome[T]) (T, error) {
	var zero T
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out, ok := <-ch:
		if !ok {
			return zero, fmt.Errorf("guard: operation %q finished without a result", name)
		}
		return out.Value, out.Err
	case <-timer.C:
		return zero, &TimeoutError{Operation: name, Timeout: timeout}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func effective(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTimeout
	}
	return d
}
