// Package retry runs a single network operation under a bounded
// attempt/timeout/delay policy.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/noor/internal/content/metrics"
	"github.com/vietddude/noor/internal/core/errclass"
)

// Config defines retry behavior.
type Config struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	Delay          time.Duration
}

// DefaultConfig is three attempts of at most 10s each, one second apart.
var DefaultConfig = Config{
	MaxAttempts:    3,
	AttemptTimeout: 10 * time.Second,
	Delay:          1 * time.Second,
}

// Operation is one network attempt. Name labels logs and metrics.
type Operation struct {
	Name   string
	Invoke func(ctx context.Context) (any, error)
}

// Fetcher executes operations with retry. It holds no shared state besides
// its configuration.
type Fetcher struct {
	config     Config
	classifier *errclass.Classifier
	log        *slog.Logger
}

// NewFetcher creates a fetcher. Zero attempts or timeout, or a negative
// delay, take DefaultConfig values. A zero delay retries immediately.
func NewFetcher(cfg Config, classifier *errclass.Classifier, logger *slog.Logger) *Fetcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig.MaxAttempts
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultConfig.AttemptTimeout
	}
	if cfg.Delay < 0 {
		cfg.Delay = DefaultConfig.Delay
	}
	if classifier == nil {
		classifier = errclass.NewClassifier(cfg.AttemptTimeout)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		config:     cfg,
		classifier: classifier,
		log:        logger.With("component", "retry"),
	}
}

// Config returns the effective policy.
func (f *Fetcher) Config() Config {
	return f.config
}

// Execute runs op until it succeeds, fails with a non-retryable kind, or
// the attempt budget is spent. The returned error is an *errclass.Error
// unless ctx ended first.
func (f *Fetcher) Execute(ctx context.Context, op Operation) (any, error) {
	var lastErr *errclass.Error

	for attempt := 1; attempt <= f.config.MaxAttempts; attempt++ {
		start := time.Now()
		result, err := f.attempt(ctx, op)
		if err == nil {
			metrics.FetchAttemptsTotal.WithLabelValues(op.Name, "success").Inc()
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = f.classifier.Classify(err, time.Since(start))
		metrics.FetchAttemptsTotal.WithLabelValues(op.Name, "failure").Inc()
		metrics.FetchErrorsTotal.WithLabelValues(op.Name, lastErr.Kind.String()).Inc()

		f.log.Debug("Attempt failed",
			"op", op.Name,
			"attempt", attempt,
			"max_attempts", f.config.MaxAttempts,
			"kind", lastErr.Kind.String(),
			"error", err,
		)

		if !lastErr.Retryable {
			return nil, lastErr
		}
		if attempt == f.config.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.config.Delay):
		}
	}

	f.log.Warn("Attempts exhausted", "op", op.Name, "attempts", f.config.MaxAttempts, "error", lastErr)
	return nil, lastErr
}

type outcome struct {
	val any
	err error
}

// attempt bounds one invocation by the attempt timeout, even when Invoke
// ignores its context. A panic in Invoke becomes a failed attempt.
func (f *Fetcher) attempt(ctx context.Context, op Operation) (any, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.config.AttemptTimeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("attempt panicked: %v", r)}
			}
		}()
		v, err := op.Invoke(attemptCtx)
		done <- outcome{val: v, err: err}
	}()

	select {
	case out := <-done:
		return out.val, out.err
	case <-attemptCtx.Done():
		return nil, attemptCtx.Err()
	}
}
