package guard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ReturnsResultWhenFast(t *testing.T) {
	got, err := Do(context.Background(), "fast", time.Second, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestRun_PropagatesOperationError(t *testing.T) {
	boom := errors.New("backend rejected")
	_, err := Do(context.Background(), "fails", time.Second, func(ctx context.Context) (string, error) {
		return "", boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, IsTimeout(err))
}

func TestRun_TimesOutBeforeSlowOperationResolves(t *testing.T) {
	var finished atomic.Bool
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	_, err := Do(context.Background(), "listIndexes", 20*time.Millisecond, func(ctx context.Context) (int, error) {
		<-release
		finished.Store(true)
		return 1, nil
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "listIndexes", te.Operation)
	assert.Equal(t, 20*time.Millisecond, te.Timeout)
	assert.False(t, finished.Load(), "timeout must be observed before the operation resolves")
	assert.Less(t, elapsed, time.Second)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Error(), "listIndexes")
}

func TestRun_CancelsOperationContextOnTimeout(t *testing.T) {
	cancelled := make(chan struct{})
	_, err := Do(context.Background(), "cooperative", 10*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		close(cancelled)
		return 0, ctx.Err()
	})
	require.True(t, IsTimeout(err))
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("operation context was not cancelled after timeout")
	}
}

func TestRun_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	defer close(release)
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := Do(ctx, "parent", time.Minute, func(context.Context) (int, error) {
		<-release
		return 0, nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsTimeout(err))
}

func TestRun_DefaultTimeoutApplied(t *testing.T) {
	assert.Equal(t, DefaultTimeout, effective(0))
	assert.Equal(t, DefaultTimeout, effective(-time.Second))
	assert.Equal(t, time.Second, effective(time.Second))
}

func TestRun_RecoversPanics(t *testing.T) {
	_, err := Do(context.Background(), "panics", time.Second, func(ctx context.Context) (int, error) {
		panic("kaboom")
	})
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "panics", pe.Operation)
}

func TestRun_NilRun(t *testing.T) {
	_, err := Run(context.Background(), Operation[int]{Name: "empty"})
	require.Error(t, err)
}

func TestAwait_AlreadyStarted(t *testing.T) {
	ch := make(chan Outcome[string], 1)
	go func() { ch <- Outcome[string]{Value: "done"} }()
	got, err := Await(context.Background(), "started", time.Second, ch)
	require.NoError(t, err)
	assert.Equal(t, "done", got)

	never := make(chan Outcome[string], 1)
	_, err = Await(context.Background(), "stuck", 10*time.Millisecond, never)
	assert.True(t, IsTimeout(err))
}

func TestAwait_ClosedChannel(t *testing.T) {
	ch := make(chan Outcome[int])
	close(ch)
	_, err := Await(context.Background(), "closed", time.Second, ch)
	require.Error(t, err)
	assert.False(t, IsTimeout(err))
}
