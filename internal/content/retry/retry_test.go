package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/noor/internal/core/errclass"
)

var testConfig = Config{
	MaxAttempts:    3,
	AttemptTimeout: 100 * time.Millisecond,
	Delay:          50 * time.Millisecond,
}

// recorder counts invocations and remembers when each started.
type recorder struct {
	mu     sync.Mutex
	starts []time.Time
}

func (r *recorder) record() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts = append(r.starts, time.Now())
	return len(r.starts)
}

func (r *recorder) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.starts)
}

func TestExecute_RetryableExhaustsBudget(t *testing.T) {
	f := NewFetcher(testConfig, nil, nil)
	rec := &recorder{}

	_, err := f.Execute(context.Background(), Operation{
		Name: "test",
		Invoke: func(ctx context.Context) (any, error) {
			rec.record()
			return nil, &errclass.StatusError{StatusCode: 503}
		},
	})

	require.Error(t, err)
	var ce *errclass.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, errclass.KindServerError, ce.Kind)
	assert.Equal(t, 3, rec.calls())

	for i := 1; i < len(rec.starts); i++ {
		gap := rec.starts[i].Sub(rec.starts[i-1])
		assert.GreaterOrEqual(t, gap, testConfig.Delay, "gap between attempt %d and %d", i, i+1)
	}
}

func TestExecute_NotFoundStopsImmediately(t *testing.T) {
	f := NewFetcher(testConfig, nil, nil)
	rec := &recorder{}

	_, err := f.Execute(context.Background(), Operation{
		Name: "test",
		Invoke: func(ctx context.Context) (any, error) {
			rec.record()
			return nil, &errclass.StatusError{StatusCode: 404}
		},
	})

	var ce *errclass.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, errclass.KindNotFound, ce.Kind)
	assert.False(t, ce.Retryable)
	assert.Equal(t, 1, rec.calls())
}

func TestExecute_SucceedsAfterFailure(t *testing.T) {
	f := NewFetcher(testConfig, nil, nil)
	rec := &recorder{}

	got, err := f.Execute(context.Background(), Operation{
		Name: "test",
		Invoke: func(ctx context.Context) (any, error) {
			if rec.record() < 2 {
				return nil, errors.New("connection reset")
			}
			return "ok", nil
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, rec.calls())
}

func TestExecute_AttemptTimeout(t *testing.T) {
	f := NewFetcher(testConfig, nil, nil)
	rec := &recorder{}

	start := time.Now()
	_, err := f.Execute(context.Background(), Operation{
		Name: "test",
		Invoke: func(ctx context.Context) (any, error) {
			rec.record()
			// Ignores ctx on purpose; the fetcher must still bound the attempt.
			time.Sleep(300 * time.Millisecond)
			return "late", nil
		},
	})
	elapsed := time.Since(start)

	var ce *errclass.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, errclass.KindTimeout, ce.Kind)
	assert.Equal(t, 3, rec.calls())
	// 3 timeouts + 2 delays
	assert.GreaterOrEqual(t, elapsed, 3*testConfig.AttemptTimeout+2*testConfig.Delay)
	assert.Less(t, elapsed, 3*300*time.Millisecond)
}

func TestExecute_ContextCancelledDuringDelay(t *testing.T) {
	f := NewFetcher(Config{MaxAttempts: 3, AttemptTimeout: time.Second, Delay: time.Second}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := f.Execute(ctx, Operation{
		Name: "test",
		Invoke: func(ctx context.Context) (any, error) {
			rec.record()
			return nil, errors.New("boom")
		},
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, rec.calls())
}

func TestExecute_PanicIsContained(t *testing.T) {
	f := NewFetcher(testConfig, nil, nil)
	rec := &recorder{}

	got, err := f.Execute(context.Background(), Operation{
		Name: "test",
		Invoke: func(ctx context.Context) (any, error) {
			if rec.record() < 3 {
				var m map[string]int
				m["boom"]++
			}
			return "ok", nil
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, rec.calls())
}

func TestExecute_PanicEveryAttempt(t *testing.T) {
	f := NewFetcher(testConfig, nil, nil)

	_, err := f.Execute(context.Background(), Operation{
		Name: "test",
		Invoke: func(ctx context.Context) (any, error) {
			panic("parser bug")
		},
	})

	var ce *errclass.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, errclass.KindUnknown, ce.Kind)
	assert.Contains(t, ce.Message, "parser bug")
}

func TestNewFetcher_Defaults(t *testing.T) {
	f := NewFetcher(Config{Delay: -1}, nil, nil)
	assert.Equal(t, DefaultConfig, f.Config())
}

func TestNewFetcher_ZeroDelayRetriesImmediately(t *testing.T) {
	f := NewFetcher(Config{MaxAttempts: 3, AttemptTimeout: time.Second}, nil, nil)
	assert.Equal(t, time.Duration(0), f.Config().Delay)

	rec := &recorder{}
	start := time.Now()
	_, err := f.Execute(context.Background(), Operation{
		Name: "test",
		Invoke: func(ctx context.Context) (any, error) {
			rec.record()
			return nil, errors.New("boom")
		},
	})
	require.Error(t, err)
	assert.Equal(t, 3, rec.calls())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
