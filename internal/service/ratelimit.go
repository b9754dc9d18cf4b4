package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/stagehand-app/stagehand/internal/core"
)

// ReminderRateLimiter caps reminder sends per recipient per window. Counters
// live in the cache keyed by recipient and expire lazily; there is no
// background sweep.
type ReminderRateLimiter struct {
	cache  core.CacheRepository
	limit  int
	window time.Duration
	logger *slog.Logger
}

// ReminderRateLimiterOptions bundles dependencies for NewReminderRateLimiter.
type ReminderRateLimiterOptions struct {
	Cache  core.CacheRepository // Required
	Limit  int                  // Sends allowed per recipient per window
	Window time.Duration        // Rate-limit window
	Logger *slog.Logger         // Optional
}

// NewReminderRateLimiter constructs a ReminderRateLimiter.
func NewReminderRateLimiter(opts ReminderRateLimiterOptions) (*ReminderRateLimiter, error) {
	if opts.Cache == nil {
		return nil, errors.New("CacheRepository is required")
	}
	if opts.Limit < 1 {
		return nil, errors.New("limit must be at least 1")
	}
	if opts.Window <= 0 {
		return nil, errors.New("window must be positive")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ReminderRateLimiter{
		cache:  opts.Cache,
		limit:  opts.Limit,
		window: opts.Window,
		logger: logger.With("component", "reminder_rate_limiter"),
	}, nil
}

// Allow records a send attempt for the recipient and reports whether it is
// within the window's budget. Cache failures fail open: delivery matters
// more than precise accounting.
func (l *ReminderRateLimiter) Allow(ctx context.Context, recipientID string) bool {
	if recipientID == "" {
		return true
	}

	count, err := l.cache.Increment(ctx, "reminder:count:"+recipientID, l.window)
	if err != nil {
		l.logger.WarnContext(ctx, "rate limit counter failed, failing open",
			"recipient_id", recipientID,
			"error", err,
		)
		return true
	}
	return count <= int64(l.limit)
}
