package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/stagehand-app/stagehand/internal/core"
	"github.com/stagehand-app/stagehand/internal/domain/model"
	"github.com/stagehand-app/stagehand/internal/retry"
)

// DocumentService assembles completion documents for delivery jobs. The
// line items come from the record store; rendering is delegated to the
// renderer port.
type DocumentService struct {
	store    core.RecordStore
	renderer core.DocumentRenderer
	exec     *retry.Executor
	logoURL  string
	logger   *slog.Logger
}

// DocumentServiceOptions bundles dependencies for NewDocumentService.
type DocumentServiceOptions struct {
	Store    core.RecordStore      // Required
	Renderer core.DocumentRenderer // Required
	Exec     *retry.Executor       // Required
	LogoURL  string                // Optional
	Logger   *slog.Logger          // Optional
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(opts DocumentServiceOptions) (*DocumentService, error) {
	if opts.Store == nil {
		return nil, errors.New("RecordStore is required")
	}
	if opts.Renderer == nil {
		return nil, errors.New("DocumentRenderer is required")
	}
	if opts.Exec == nil {
		return nil, errors.New("retry executor is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &DocumentService{
		store:    opts.Store,
		renderer: opts.Renderer,
		exec:     opts.Exec,
		logoURL:  opts.LogoURL,
		logger:   logger.With("component", "documents"),
	}, nil
}

// BuildCompletionReport renders the completion document for a delivery job.
// Line items are fetched best-effort: a document without them still beats no
// document.
func (s *DocumentService) BuildCompletionReport(ctx context.Context, payload *model.BackgroundCompletionPayload, venueName string) ([]byte, string, error) {
	items, err := retry.Result(ctx, s.exec, "read line items",
		func(ctx context.Context) ([]model.LineItem, error) {
			return s.store.GetJobLineItems(ctx, payload.JobID)
		})
	if err != nil {
		s.logger.WarnContext(ctx, "line items unavailable, rendering without them",
			"job_id", payload.JobID,
			"error", err,
		)
		items = nil
	}

	doc := &model.CompletionDocument{
		JobID:       payload.JobID,
		VenueName:   venueName,
		Recipient:   payload.Recipient,
		CompletedAt: payload.CompletedAt,
		Notes:       payload.Notes,
		LineItems:   items,
		Signature:   payload.Signature,
		LogoURL:     s.logoURL,
	}

	return s.renderer.Render(ctx, doc)
}
