package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/stagehand-app/stagehand/internal/errors"
)

func testExecutor(cfg Config) (*Executor, *[]time.Duration) {
	e := NewExecutor(Options{
		Config: cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	delays := &[]time.Duration{}
	e.sleep = func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return e, delays
}

func TestDoFirstTrySuccess(t *testing.T) {
	e, delays := testExecutor(Config{MaxAttempts: 3, BaseDelay: time.Second})

	calls := 0
	err := e.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *delays)
}

func TestDoRetriesTransientWithExponentialBackoff(t *testing.T) {
	e, delays := testExecutor(Config{MaxAttempts: 3, BaseDelay: time.Second})

	calls := 0
	err := e.Do(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return apperrors.RateLimited("slow down")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *delays)
}

func TestDoTerminalErrorPropagatesImmediately(t *testing.T) {
	e, delays := testExecutor(Config{MaxAttempts: 3, BaseDelay: time.Second})

	calls := 0
	wantErr := apperrors.Validation("bad input")
	err := e.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return wantErr
	})

	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *delays)
}

func TestDoExhaustsAttempts(t *testing.T) {
	e, delays := testExecutor(Config{MaxAttempts: 3, BaseDelay: time.Second})

	calls := 0
	wantErr := apperrors.Unavailable("remote down")
	err := e.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return wantErr
	})

	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, 3, calls)
	// No sleep after the final attempt.
	assert.Len(t, *delays, 2)
}

func TestDoCanceledDuringBackoff(t *testing.T) {
	e, _ := testExecutor(Config{MaxAttempts: 3, BaseDelay: time.Second})
	e.sleep = func(context.Context, time.Duration) error {
		return context.Canceled
	}

	calls := 0
	err := e.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return apperrors.Unavailable("remote down")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, apperrors.ErrCodeCanceled, apperrors.GetCode(err))
}

func TestResultReturnsValue(t *testing.T) {
	e, _ := testExecutor(Config{MaxAttempts: 3, BaseDelay: time.Second})

	calls := 0
	got, err := Result(context.Background(), e, "op", func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, apperrors.Unavailable("remote down")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 2, calls)
}

func TestResultPropagatesTerminalError(t *testing.T) {
	e, _ := testExecutor(Config{MaxAttempts: 1, BaseDelay: time.Second})

	_, err := Result(context.Background(), e, "op", func(context.Context) (string, error) {
		return "", apperrors.Validation("nope")
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: true},
		{name: "rate limited", err: apperrors.RateLimited("429"), want: true},
		{name: "unavailable", err: apperrors.Unavailable("503"), want: true},
		{name: "validation", err: apperrors.Validation("bad"), want: false},
		{name: "not found", err: apperrors.NotFound("job"), want: false},
		{name: "conflict", err: apperrors.Conflict("job"), want: false},
		{name: "connection reset", err: syscall.ECONNRESET, want: true},
		{name: "connection refused", err: syscall.ECONNREFUSED, want: true},
		{name: "wrapped unavailable", err: apperrors.Wrap(errors.New("boom"), apperrors.ErrCodeUnavailable, "call"), want: true},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}
