// Package completionworker runs the background half of the completion
// pipeline: the side effects a caller never waits for.
package completionworker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stagehand-app/stagehand/internal/core"
	"github.com/stagehand-app/stagehand/internal/dispatch"
	"github.com/stagehand-app/stagehand/internal/domain/model"
	obserrors "github.com/stagehand-app/stagehand/internal/observability/errors"
	"github.com/stagehand-app/stagehand/internal/observability/metrics"
	"github.com/stagehand-app/stagehand/internal/observability/statsd"
	"github.com/stagehand-app/stagehand/internal/retry"
	"github.com/stagehand-app/stagehand/internal/service"
)

// Worker consumes dispatched completion payloads and executes the
// non-essential side effects: document generation, notification sends, and
// the deferred warehouse status flip. The completion itself is already
// committed, so failures here are logged, never surfaced, and never rolled
// back. A failure in one step does not block the others.
type Worker struct {
	queue       *dispatch.Queue
	store       core.RecordStore
	mailer      core.Mailer
	docs        *service.DocumentService
	exec        *retry.Executor
	concurrency int
	logger      *slog.Logger
	metrics     statsd.Sink
}

// Options bundles dependencies for NewWorker.
type Options struct {
	Queue       *dispatch.Queue          // Required
	Store       core.RecordStore         // Required
	Mailer      core.Mailer              // Required
	Documents   *service.DocumentService // Required
	Exec        *retry.Executor          // Required
	Concurrency int
	Logger      *slog.Logger // Optional
	Metrics     statsd.Sink  // Optional
}

// NewWorker constructs a Worker.
func NewWorker(opts Options) (*Worker, error) {
	if opts.Queue == nil {
		return nil, errors.New("dispatch queue is required")
	}
	if opts.Store == nil {
		return nil, errors.New("RecordStore is required")
	}
	if opts.Mailer == nil {
		return nil, errors.New("Mailer is required")
	}
	if opts.Documents == nil {
		return nil, errors.New("DocumentService is required")
	}
	if opts.Exec == nil {
		return nil, errors.New("retry executor is required")
	}

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		queue:       opts.Queue,
		store:       opts.Store,
		mailer:      opts.Mailer,
		docs:        opts.Documents,
		exec:        opts.Exec,
		concurrency: concurrency,
		logger:      logger.With("component", "completion_worker"),
		metrics:     opts.Metrics,
	}, nil
}

// drainTimeout bounds the processing of each payload that was already
// enqueued when shutdown began.
const drainTimeout = 10 * time.Second

// Run consumes the queue until it is closed and drained. Cancelling the
// context stops new payloads from arriving (the orchestrator closes the
// queue); what is already enqueued is still processed, each payload under a
// bounded grace window instead of the dead run context.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "starting completion worker", "concurrency", w.concurrency)

	var g errgroup.Group
	for i := 0; i < w.concurrency; i++ {
		g.Go(func() error {
			for payload := range w.queue.Chan() {
				pctx, cancel := w.payloadContext(ctx)
				w.Process(pctx, payload)
				cancel()
			}
			return nil
		})
	}
	return g.Wait()
}

func (w *Worker) payloadContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx.Err() == nil {
		return ctx, func() {}
	}
	return context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
}

// Process executes all side effects for one payload. Exported so the HTTP
// dispatch path and tests can drive a single payload synchronously.
func (w *Worker) Process(ctx context.Context, payload *model.BackgroundCompletionPayload) {
	if payload == nil {
		return
	}

	logger := w.logger.With(
		"dispatch_id", payload.DispatchID,
		"job_id", payload.JobID,
		"job_kind", payload.JobKind,
	)
	start := time.Now()

	venueName := w.resolveVenueName(ctx, payload, logger)
	report, reportType := w.buildReport(ctx, payload, venueName, logger)

	var stepErrs []error

	if err := w.notifyRecipient(ctx, payload); err != nil {
		logger.WarnContext(ctx, "recipient notification failed", "error", err)
		stepErrs = append(stepErrs, fmt.Errorf("recipient notification: %w", err))
	}

	if len(payload.NotifyRecipients) > 0 {
		if err := w.notifyClients(ctx, payload, venueName, report, reportType); err != nil {
			logger.WarnContext(ctx, "client notification failed", "error", err)
			stepErrs = append(stepErrs, fmt.Errorf("client notification: %w", err))
		}
	}

	// The warehouse path defers its external status flip entirely to this
	// phase, with the full retry budget.
	if payload.JobKind == model.JobKindWarehouse {
		err := w.exec.Do(ctx, "warehouse status flip", func(ctx context.Context) error {
			return w.store.MarkWarehouseComplete(ctx, payload.JobID)
		})
		if err != nil {
			logger.ErrorContext(ctx, "warehouse status flip failed", "error", err)
			stepErrs = append(stepErrs, fmt.Errorf("warehouse status flip: %w", err))
		}
	}

	w.emitProcessMetrics(payload, time.Since(start), errors.Join(stepErrs...))

	logger.InfoContext(ctx, "background completion processed",
		"failed_steps", len(stepErrs),
		"elapsed", time.Since(start),
	)
}

// resolveVenueName looks up display data best-effort, failing open to an
// empty name.
func (w *Worker) resolveVenueName(ctx context.Context, payload *model.BackgroundCompletionPayload, logger *slog.Logger) string {
	if payload.VenueID == "" {
		return ""
	}
	name, err := retry.Result(ctx, w.exec, "resolve venue name",
		func(ctx context.Context) (string, error) {
			return w.store.GetVenueName(ctx, payload.VenueID)
		})
	if err != nil {
		logger.WarnContext(ctx, "venue lookup failed, continuing without name",
			"venue_id", payload.VenueID,
			"error", err,
		)
		return ""
	}
	return name
}

// buildReport generates the completion document for delivery jobs only.
func (w *Worker) buildReport(ctx context.Context, payload *model.BackgroundCompletionPayload, venueName string, logger *slog.Logger) ([]byte, string) {
	if payload.JobKind != model.JobKindDelivery {
		return nil, ""
	}
	report, contentType, err := w.docs.BuildCompletionReport(ctx, payload, venueName)
	if err != nil {
		logger.WarnContext(ctx, "completion report generation failed", "error", err)
		return nil, ""
	}
	return report, contentType
}

func (w *Worker) notifyRecipient(ctx context.Context, payload *model.BackgroundCompletionPayload) error {
	if payload.Recipient.Email == "" {
		return nil
	}
	subject := fmt.Sprintf("Job %s marked complete", payload.JobID)
	body := fmt.Sprintf(
		"Hi %s,\n\nJob %s was marked complete at %s. Thanks for closing it out.\n",
		payload.Recipient.Name,
		payload.JobID,
		payload.CompletedAt.Format("Mon 2 Jan 15:04"),
	)
	return w.mailer.Send(ctx, core.Message{
		To:      []string{payload.Recipient.Email},
		Subject: subject,
		Body:    body,
	})
}

// notifyClients sends the client-facing notification, attaching the
// completion report for delivery jobs.
func (w *Worker) notifyClients(ctx context.Context, payload *model.BackgroundCompletionPayload, venueName string, report []byte, reportType string) error {
	subject := fmt.Sprintf("Work completed: job %s", payload.JobID)
	where := ""
	if venueName != "" {
		where = " at " + venueName
	}
	body := fmt.Sprintf(
		"Job %s%s was completed on %s by %s.\n",
		payload.JobID,
		where,
		payload.CompletedAt.Format("Mon 2 Jan 2006"),
		payload.Recipient.Name,
	)

	msg := core.Message{
		To:      payload.NotifyRecipients,
		Subject: subject,
		Body:    body,
	}
	if payload.JobKind == model.JobKindDelivery && len(report) > 0 {
		msg.Attachments = []core.Attachment{{
			Filename:    fmt.Sprintf("completion-report-%s.html", payload.JobID),
			ContentType: reportType,
			Data:        report,
		}}
	}
	return w.mailer.Send(ctx, msg)
}

func (w *Worker) emitProcessMetrics(payload *model.BackgroundCompletionPayload, elapsed time.Duration, err error) {
	if w.metrics == nil {
		return
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}

	tags := map[string]string{
		"job_kind": string(payload.JobKind),
		"result":   result,
	}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	w.metrics.Count("completion_worker.processed", 1, tags)
	if elapsed > 0 {
		w.metrics.Timing("completion_worker.process_duration", elapsed, metrics.CloneTags(tags))
	}
	if err == nil {
		w.metrics.Gauge("completion_worker.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}
