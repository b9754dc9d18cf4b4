// Package service holds the lifecycle business logic: escalation scheduling,
// the completion pipeline, and the gates consulted before outbound sends.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/stagehand-app/stagehand/internal/core"
	"github.com/stagehand-app/stagehand/internal/domain/model"
	"github.com/stagehand-app/stagehand/internal/retry"
)

// MuteGate decides whether an outbound notification to a recipient is
// suppressed. Suppression affects delivery only; escalation bookkeeping is
// never altered by a mute.
type MuteGate struct {
	store  core.RecordStore
	exec   *retry.Executor
	logger *slog.Logger
}

// MuteGateOptions bundles dependencies for NewMuteGate.
type MuteGateOptions struct {
	Store  core.RecordStore // Required
	Exec   *retry.Executor  // Required
	Logger *slog.Logger     // Optional
}

// NewMuteGate constructs a MuteGate.
func NewMuteGate(opts MuteGateOptions) (*MuteGate, error) {
	if opts.Store == nil {
		return nil, errors.New("RecordStore is required")
	}
	if opts.Exec == nil {
		return nil, errors.New("retry executor is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &MuteGate{
		store:  opts.Store,
		exec:   opts.Exec,
		logger: logger.With("component", "mute_gate"),
	}, nil
}

// IsSuppressed reports whether delivery to the recipient is muted, either
// globally or for this specific job. The preference is read fresh on every
// check so a mute applied mid-cycle takes effect on the next read. A read
// failure fails open: an occasional email to a muted recipient beats
// silently losing reminders.
func (g *MuteGate) IsSuppressed(ctx context.Context, recipientID, jobID string, now time.Time) bool {
	if recipientID == "" {
		return false
	}

	pref, err := retry.Result(ctx, g.exec, "get mute preference",
		func(ctx context.Context) (*model.MutePreference, error) {
			return g.store.GetMutePreference(ctx, recipientID)
		})
	if err != nil {
		g.logger.WarnContext(ctx, "mute preference read failed, failing open",
			"recipient_id", recipientID,
			"error", err,
		)
		return false
	}

	if pref.GloballyMuted(now) {
		return true
	}
	return pref.JobMuted(jobID)
}
