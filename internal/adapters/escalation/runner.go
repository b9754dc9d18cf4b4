// Package escalation provides the adapter that runs the escalation
// scheduler loop.
package escalation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	obserrors "github.com/stagehand-app/stagehand/internal/observability/errors"
	"github.com/stagehand-app/stagehand/internal/observability/metrics"
	"github.com/stagehand-app/stagehand/internal/observability/statsd"
	"github.com/stagehand-app/stagehand/internal/service"
)

// Runner drives the escalation service on a fixed interval until the
// context is cancelled. Run errors are logged and counted, never fatal: the
// next tick gets a fresh chance.
type Runner struct {
	svc      *service.EscalationService
	interval time.Duration
	logger   *slog.Logger
	metrics  statsd.Sink
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Service  *service.EscalationService // Required
	Interval time.Duration
	Logger   *slog.Logger // Optional
	Metrics  statsd.Sink  // Optional
}

// NewRunner creates an escalation runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Service == nil {
		return nil, errors.New("escalation service is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Minute
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		svc:      opts.Service,
		interval: opts.Interval,
		logger:   logger.With("component", "escalation_runner"),
		metrics:  opts.Metrics,
	}, nil
}

// Run starts the scheduler loop and runs until the context is cancelled.
// The first pass happens on the first tick, not at startup, so a restart
// storm does not hammer the record store.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting escalation runner", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "escalation runner stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			start := time.Now()
			summary, err := r.svc.RunOnce(ctx)
			elapsed := time.Since(start)

			r.emitRunMetrics(summary, elapsed, err)

			if err != nil {
				r.logger.ErrorContext(ctx, "escalation run failed", "error", err)
				// Continue running despite errors
			}
		}
	}
}

func (r *Runner) emitRunMetrics(summary service.RunSummary, elapsed time.Duration, err error) {
	if r.metrics == nil {
		return
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	} else if summary.JobsChecked == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{
		"result": result,
	}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	r.metrics.Count("escalation.run", 1, tags)

	if summary.JobsChecked > 0 {
		r.metrics.Count("escalation.jobs_checked", int64(summary.JobsChecked), tags)
	}
	if summary.RemindersSent > 0 {
		r.metrics.Count("escalation.reminders_sent", int64(summary.RemindersSent), tags)
	}
	if summary.StaffNotificationsSent > 0 {
		r.metrics.Count("escalation.staff_notifications_sent", int64(summary.StaffNotificationsSent), tags)
	}
	for reason, n := range summary.Skipped {
		r.metrics.Count("escalation.skipped", int64(n), map[string]string{"reason": reason})
	}

	if elapsed > 0 {
		r.metrics.Timing("escalation.run_duration", elapsed, metrics.CloneTags(tags))
	}

	if err == nil {
		r.metrics.Gauge("escalation.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}
