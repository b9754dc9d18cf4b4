package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stagehand-app/stagehand/config"
	"github.com/stagehand-app/stagehand/internal/core"
	"github.com/stagehand-app/stagehand/internal/domain/model"
	"github.com/stagehand-app/stagehand/internal/retry"
)

// Skip reasons recorded in the run summary.
const (
	SkipReadFailed   = "read_failed"
	SkipTerminal     = "terminal"
	SkipNotConfirmed = "not_confirmed"
	SkipMaxLevel     = "max_level"
	SkipNotDue       = "not_due"
	SkipClaimed      = "claimed"
	SkipWriteFailed  = "write_failed"
	SkipMuted        = "muted"
	SkipRateLimited  = "rate_limited"
)

// RunSummary is the structured result of one scheduler run.
type RunSummary struct {
	JobsChecked            int
	RemindersSent          int
	StaffNotificationsSent int
	Skipped                map[string]int
}

func (s *RunSummary) skip(reason string) {
	if s.Skipped == nil {
		s.Skipped = make(map[string]int)
	}
	s.Skipped[reason]++
}

// EscalationService advances overdue confirmed jobs through the reminder
// schedule. Each run advances a job by at most one level, and the advanced
// level is persisted before the corresponding notification is sent: at most
// one email per level is the guaranteed property, at the accepted cost of an
// occasional "level advanced but email lost" gap.
type EscalationService struct {
	store   core.RecordStore
	mailer  core.Mailer
	cache   core.CacheRepository
	gate    *MuteGate
	limiter *ReminderRateLimiter
	exec    *retry.Executor
	policy  model.EscalationPolicy
	cfg     config.EscalationConfig
	clock   core.Clock
	logger  *slog.Logger
}

// EscalationServiceOptions bundles dependencies for NewEscalationService.
type EscalationServiceOptions struct {
	Store   core.RecordStore     // Required
	Mailer  core.Mailer          // Required
	Cache   core.CacheRepository // Required: single-flight claims
	Gate    *MuteGate            // Required
	Limiter *ReminderRateLimiter // Optional: per-recipient send cap
	Exec    *retry.Executor      // Required
	Policy  model.EscalationPolicy
	Config  config.EscalationConfig
	Clock   core.Clock   // Optional: defaults to the system clock
	Logger  *slog.Logger // Optional
}

// NewEscalationService constructs an EscalationService.
func NewEscalationService(opts EscalationServiceOptions) (*EscalationService, error) {
	if opts.Store == nil {
		return nil, errors.New("RecordStore is required")
	}
	if opts.Mailer == nil {
		return nil, errors.New("Mailer is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("CacheRepository is required")
	}
	if opts.Gate == nil {
		return nil, errors.New("MuteGate is required")
	}
	if opts.Exec == nil {
		return nil, errors.New("retry executor is required")
	}
	if opts.Policy.MaxLevel() == 0 {
		return nil, errors.New("escalation policy is required")
	}

	clock := opts.Clock
	if clock == nil {
		clock = core.SystemClock{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &EscalationService{
		store:   opts.Store,
		mailer:  opts.Mailer,
		cache:   opts.Cache,
		gate:    opts.Gate,
		limiter: opts.Limiter,
		exec:    opts.Exec,
		policy:  opts.Policy,
		cfg:     opts.Config,
		clock:   clock,
		logger:  logger.With("component", "escalation"),
	}, nil
}

// RunOnce executes a single scheduler pass. Overlapping invocations are
// safe: state is re-read immediately before the level write, a cache claim
// record serialises work per job and level, and the write-before-notify
// ordering keeps duplicate sends out even when the claim is unavailable.
func (s *EscalationService) RunOnce(ctx context.Context) (RunSummary, error) {
	summary := RunSummary{}
	now := s.clock.Now()

	// Checked once per run, not per job: no sends happen outside the window
	// no matter how overdue a job is.
	if !s.withinBusinessHours(now) {
		s.logger.InfoContext(ctx, "outside business hours, skipping run",
			"hour", now.Hour(),
			"window_start", s.cfg.BusinessHoursStart,
			"window_end", s.cfg.BusinessHoursEnd,
		)
		return summary, nil
	}

	jobs, err := retry.Result(ctx, s.exec, "list jobs due",
		func(ctx context.Context) ([]*model.Job, error) {
			return s.store.ListJobsDue(ctx, core.JobWindow{
				From: dateOf(now).AddDate(0, 0, -1),
				To:   dateOf(now),
			})
		})
	if err != nil {
		return summary, fmt.Errorf("escalation scan: %w", err)
	}

	for _, job := range jobs {
		if !s.eligible(job, now) {
			continue
		}
		summary.JobsChecked++
		s.processJob(ctx, job.ID, now, &summary)
	}

	s.logger.InfoContext(ctx, "escalation run finished",
		"jobs_checked", summary.JobsChecked,
		"reminders_sent", summary.RemindersSent,
		"staff_notifications_sent", summary.StaffNotificationsSent,
		"skipped", summary.Skipped,
	)
	return summary, nil
}

// eligible is the cheap batch filter: confirmed, incomplete, assigned,
// below max level, and scheduled time already passed.
func (s *EscalationService) eligible(job *model.Job, now time.Time) bool {
	return job.Status == model.JobStatusConfirmed &&
		!job.Completed() &&
		job.Assignee.Assigned() &&
		job.EscalationLevel < s.policy.MaxLevel() &&
		!now.Before(job.ScheduledAt)
}

// processJob advances a single job by at most one level. Ordering is
// load-bearing: the level write commits before any notification goes out.
func (s *EscalationService) processJob(ctx context.Context, jobID string, now time.Time, summary *RunSummary) {
	logger := s.logger.With("job_id", jobID)

	// Re-read current persisted state to avoid racing a concurrent run or a
	// completion that landed since the batch read.
	job, err := retry.Result(ctx, s.exec, "re-read job",
		func(ctx context.Context) (*model.Job, error) {
			return s.store.GetJob(ctx, jobID)
		})
	if err != nil {
		logger.WarnContext(ctx, "job re-read failed, deferring to next run", "error", err)
		summary.skip(SkipReadFailed)
		return
	}

	switch {
	case job.Terminal():
		summary.skip(SkipTerminal)
		return
	case job.Status != model.JobStatusConfirmed:
		summary.skip(SkipNotConfirmed)
		return
	case job.EscalationLevel >= s.policy.MaxLevel():
		summary.skip(SkipMaxLevel)
		return
	}

	elapsed := now.Sub(job.ScheduledAt)
	if !s.policy.NextLevelDue(job.EscalationLevel, elapsed) {
		summary.skip(SkipNotDue)
		return
	}
	nextLevel := job.EscalationLevel + 1

	if !s.claim(ctx, jobID, nextLevel) {
		logger.DebugContext(ctx, "level already claimed by a concurrent run", "level", nextLevel)
		summary.skip(SkipClaimed)
		return
	}

	// Persist the state transition before the irreversible side effect.
	err = s.exec.Do(ctx, "write escalation level", func(ctx context.Context) error {
		return s.store.SetEscalationLevel(ctx, jobID, nextLevel)
	})
	if err != nil {
		logger.WarnContext(ctx, "escalation level write failed, deferring to next run",
			"level", nextLevel,
			"error", err,
		)
		s.releaseClaim(ctx, jobID, nextLevel)
		summary.skip(SkipWriteFailed)
		return
	}

	logger.InfoContext(ctx, "escalation level advanced",
		"level", nextLevel,
		"elapsed", elapsed,
	)

	suppressed := s.deliveryGated(ctx, job, now, summary, logger)
	if !suppressed {
		if err := s.sendReminder(ctx, job, nextLevel); err != nil {
			// Never revert the write: a missed reminder beats duplicate spam.
			logger.WarnContext(ctx, "reminder send failed after level write",
				"level", nextLevel,
				"error", err,
			)
		} else {
			summary.RemindersSent++
		}
	}

	if nextLevel == s.policy.MaxLevel() && !suppressed {
		if err := s.sendStaffEscalation(ctx, job); err != nil {
			logger.WarnContext(ctx, "staff escalation send failed", "error", err)
		} else {
			summary.StaffNotificationsSent++
		}
	}
}

// deliveryGated applies the mute and rate-limit gates. Both suppress
// delivery only; the level advance above has already been persisted.
func (s *EscalationService) deliveryGated(ctx context.Context, job *model.Job, now time.Time, summary *RunSummary, logger *slog.Logger) bool {
	if s.gate.IsSuppressed(ctx, job.Assignee.ID, job.ID, now) {
		logger.InfoContext(ctx, "reminder suppressed by mute preference",
			"recipient_id", job.Assignee.ID,
		)
		summary.skip(SkipMuted)
		return true
	}
	if s.limiter != nil && !s.limiter.Allow(ctx, job.Assignee.ID) {
		logger.WarnContext(ctx, "reminder suppressed by rate limit",
			"recipient_id", job.Assignee.ID,
		)
		summary.skip(SkipRateLimited)
		return true
	}
	return false
}

// claim takes the single-flight claim for this job and level. Claim storage
// failures fail open: the write-before-notify ordering still bounds the
// damage to an idempotent overwrite.
func (s *EscalationService) claim(ctx context.Context, jobID string, level int) bool {
	key := claimKey(jobID, level)
	ok, err := s.cache.SetIfNotExists(ctx, key, []byte("1"), s.cfg.ClaimTTL)
	if err != nil {
		s.logger.WarnContext(ctx, "claim store failed, proceeding without claim",
			"job_id", jobID,
			"level", level,
			"error", err,
		)
		return true
	}
	return ok
}

func (s *EscalationService) releaseClaim(ctx context.Context, jobID string, level int) {
	if _, err := s.cache.Delete(ctx, claimKey(jobID, level)); err != nil {
		s.logger.DebugContext(ctx, "claim release failed", "job_id", jobID, "error", err)
	}
}

func claimKey(jobID string, level int) string {
	return fmt.Sprintf("escalation:claim:%s:%d", jobID, level)
}

func (s *EscalationService) sendReminder(ctx context.Context, job *model.Job, level int) error {
	subject := fmt.Sprintf("Reminder %d of %d: job %s is awaiting completion", level, s.policy.MaxLevel(), job.ID)
	body := fmt.Sprintf(
		"Hi %s,\n\nJob %s was scheduled for %s and has not been marked complete yet. "+
			"Please complete it in the portal, or get in touch if something is blocking you.\n",
		job.Assignee.Name,
		job.ID,
		job.ScheduledAt.Format("Mon 2 Jan 15:04"),
	)
	return s.mailer.Send(ctx, core.Message{
		To:      []string{job.Assignee.Email},
		Subject: subject,
		Body:    body,
	})
}

func (s *EscalationService) sendStaffEscalation(ctx context.Context, job *model.Job) error {
	subject := fmt.Sprintf("Escalation: job %s still incomplete after final reminder", job.ID)
	body := fmt.Sprintf(
		"Job %s (assignee %s <%s>) was scheduled for %s and has exhausted the reminder schedule.\n",
		job.ID,
		job.Assignee.Name,
		job.Assignee.Email,
		job.ScheduledAt.Format("Mon 2 Jan 15:04"),
	)
	return s.mailer.Send(ctx, core.Message{
		To:      []string{s.cfg.StaffEmail},
		Subject: subject,
		Body:    body,
	})
}

func (s *EscalationService) withinBusinessHours(now time.Time) bool {
	hour := now.Hour()
	return hour >= s.cfg.BusinessHoursStart && hour < s.cfg.BusinessHoursEnd
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
