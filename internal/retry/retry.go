// Package retry wraps external-store calls with bounded exponential-backoff
// retry, classifying errors as transient-retryable or terminal.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"syscall"
	"time"

	apperrors "github.com/stagehand-app/stagehand/internal/errors"
)

// Config bounds the retry behaviour.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the delay before the second attempt; each further delay
	// doubles (pure exponential backoff, no jitter).
	BaseDelay time.Duration
}

// DefaultConfig returns the production retry bounds.
func DefaultConfig() Config {
	return Config{MaxAttempts: 3, BaseDelay: time.Second}
}

// Sanitize applies guardrails to retry configuration values.
func (c *Config) Sanitize() {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
}

// Operation is a single external call. Operations must be side-effect
// idempotent on the remote (field overwrites) or must fully reconstruct
// their payload per invocation (file uploads).
type Operation func(ctx context.Context) error

// Executor retries operations whose failures classify as transient. It adds
// no side effects of its own beyond timing and logging.
type Executor struct {
	cfg    Config
	logger *slog.Logger

	// sleep is injectable for tests; defaults to a context-aware timer wait.
	sleep func(ctx context.Context, d time.Duration) error
}

// Options bundles dependencies for NewExecutor.
type Options struct {
	Config Config
	Logger *slog.Logger
}

// NewExecutor constructs a retry executor.
func NewExecutor(opts Options) *Executor {
	cfg := opts.Config
	cfg.Sanitize()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "retry")
	}

	return &Executor{
		cfg:    cfg,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Do attempts the operation, retrying transient failures with exponential
// backoff until attempts are exhausted. Terminal errors propagate
// immediately. The label identifies the operation in logs.
func (e *Executor) Do(ctx context.Context, label string, op Operation) error {
	var lastErr error

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				// Distinct from a first-try success for observability.
				e.logger.InfoContext(ctx, "operation succeeded after retry",
					"operation", label,
					"attempt", attempt,
				)
			}
			return nil
		}
		lastErr = err

		if !Retryable(err) {
			e.logger.WarnContext(ctx, "operation failed with terminal error",
				"operation", label,
				"attempt", attempt,
				"error", err,
			)
			return err
		}

		if attempt == e.cfg.MaxAttempts {
			break
		}

		delay := e.cfg.BaseDelay << (attempt - 1)
		e.logger.WarnContext(ctx, "operation failed, retrying",
			"operation", label,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		if serr := e.sleep(ctx, delay); serr != nil {
			return apperrors.Wrap(serr, apperrors.ErrCodeCanceled, label+" canceled during backoff")
		}
	}

	e.logger.ErrorContext(ctx, "operation failed, attempts exhausted",
		"operation", label,
		"attempts", e.cfg.MaxAttempts,
		"error", lastErr,
	)
	return lastErr
}

// Result runs a value-returning operation through the executor. The zero
// value is returned alongside the terminal error on failure.
func Result[T any](ctx context.Context, e *Executor, label string, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := e.Do(ctx, label, func(ctx context.Context) error {
		var opErr error
		out, opErr = op(ctx)
		return opErr
	})
	return out, err
}

// Retryable classifies an error as transient-retryable. Covered: the
// taxonomy's rate-limited/unavailable/timeout codes, transport timeouts, and
// connection reset/refused.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if apperrors.IsRetryable(err) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
