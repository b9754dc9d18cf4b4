package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/stagehand-app/stagehand/config"
	"github.com/stagehand-app/stagehand/internal/core"
	"github.com/stagehand-app/stagehand/internal/domain/model"
	apperrors "github.com/stagehand-app/stagehand/internal/errors"
	"github.com/stagehand-app/stagehand/internal/retry"
)

// CompletionService drives Phase 1 of job completion: the synchronous,
// user-blocking writes that commit a job as done, followed by a
// fire-and-forget dispatch of the background side effects.
//
// Only the multi-field completion write is fatal. Attachment uploads degrade
// to warnings, and a failed dispatch is logged without revoking the success
// already returned to the caller.
type CompletionService struct {
	store      core.RecordStore
	dispatcher core.Dispatcher
	exec       *retry.Executor
	clock      core.Clock
	cfg        config.CompletionConfig
	logger     *slog.Logger
}

// CompletionServiceOptions bundles dependencies for NewCompletionService.
type CompletionServiceOptions struct {
	Store      core.RecordStore // Required
	Dispatcher core.Dispatcher  // Required
	Exec       *retry.Executor  // Required
	Config     config.CompletionConfig
	Clock      core.Clock   // Optional: defaults to the system clock
	Logger     *slog.Logger // Optional
}

// NewCompletionService constructs a CompletionService.
func NewCompletionService(opts CompletionServiceOptions) (*CompletionService, error) {
	if opts.Store == nil {
		return nil, errors.New("RecordStore is required")
	}
	if opts.Dispatcher == nil {
		return nil, errors.New("Dispatcher is required")
	}
	if opts.Exec == nil {
		return nil, errors.New("retry executor is required")
	}

	clock := opts.Clock
	if clock == nil {
		clock = core.SystemClock{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := opts.Config
	cfg.Sanitize()

	return &CompletionService{
		store:      opts.Store,
		dispatcher: opts.Dispatcher,
		exec:       opts.Exec,
		clock:      clock,
		cfg:        cfg,
		logger:     logger.With("component", "completion"),
	}, nil
}

// Complete marks a job done on behalf of the acting crew member.
//
// Completion is single-fire by contract: a job that already carries a
// completion timestamp yields a conflict, not a silent no-op. Typed failures:
// validation, not_found (also covers "not assigned to the actor"), conflict,
// and the write error when the final multi-field write fails.
func (s *CompletionService) Complete(ctx context.Context, actorID string, req model.CompletionRequest) (model.CompletionOutcome, error) {
	outcome := model.CompletionOutcome{}

	if err := req.Validate(s.cfg.MaxPhotos); err != nil {
		return outcome, err
	}

	job, err := retry.Result(ctx, s.exec, "read job for completion",
		func(ctx context.Context) (*model.Job, error) {
			return s.store.GetJob(ctx, req.JobID)
		})
	if err != nil {
		if apperrors.IsNotFound(err) {
			return outcome, apperrors.NotFoundf("job %s not found", req.JobID)
		}
		return outcome, apperrors.Wrapf(err, apperrors.ErrCodeUnavailable, "read job %s", req.JobID)
	}

	// Assignment is part of visibility: a job assigned to someone else is
	// indistinguishable from a missing one for the caller.
	if job.Assignee.ID != actorID {
		return outcome, apperrors.NotFoundf("job %s not found", req.JobID)
	}

	if job.Completed() {
		return outcome, apperrors.Conflictf("job %s is already completed", req.JobID)
	}

	logger := s.logger.With("job_id", req.JobID, "actor_id", actorID)

	// Attachments first, each failure degrading to a warning: the record of
	// completion matters more than the attachment.
	if req.Signature != nil {
		if err := s.upload(ctx, req.JobID, *req.Signature); err != nil {
			logger.WarnContext(ctx, "signature upload failed", "error", err)
			outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("signature upload failed: %v", err))
		}
	}
	for i, photo := range req.Photos {
		if err := s.upload(ctx, req.JobID, photo); err != nil {
			logger.WarnContext(ctx, "photo upload failed", "index", i, "error", err)
			outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("photo %d upload failed: %v", i+1, err))
		}
	}

	// The one fatal step: without this write the job is not complete.
	completedAt := s.clock.Now()
	err = s.exec.Do(ctx, "completion write", func(ctx context.Context) error {
		return s.store.CompleteJob(ctx, req.JobID, req.Notes, completedAt)
	})
	if err != nil {
		logger.ErrorContext(ctx, "completion write failed", "error", err)
		return model.CompletionOutcome{}, apperrors.Wrapf(err, apperrors.ErrCodeUnavailable, "completion write for job %s", req.JobID)
	}
	outcome.Success = true

	logger.InfoContext(ctx, "job completed", "completed_at", completedAt)

	payload := &model.BackgroundCompletionPayload{
		DispatchID:       uuid.NewString(),
		JobID:            req.JobID,
		JobKind:          job.Kind,
		ActorID:          actorID,
		Notes:            req.Notes,
		Photos:           req.Photos,
		Signature:        req.Signature,
		NotifyRecipients: req.NotifyRecipients,
		Recipient:        job.Assignee,
		VenueID:          job.VenueID,
		CompletedAt:      completedAt,
	}

	// Phase 2 is fire-and-forget: the completion above is committed, so a
	// dispatch failure degrades to a warning.
	if err := s.dispatcher.Dispatch(ctx, payload); err != nil {
		logger.ErrorContext(ctx, "background dispatch failed",
			"dispatch_id", payload.DispatchID,
			"error", err,
		)
		outcome.Warnings = append(outcome.Warnings, "background processing could not be scheduled")
	}

	return outcome, nil
}

// upload sends one attachment through the retry executor. The store rebuilds
// the request body from the raw payload per attempt, so retries are safe.
func (s *CompletionService) upload(ctx context.Context, jobID string, file model.MediaPayload) error {
	return s.exec.Do(ctx, "attach file", func(ctx context.Context) error {
		return s.store.AttachFile(ctx, jobID, file)
	})
}
