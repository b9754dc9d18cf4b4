// Package dispatch moves completion payloads from Phase 1 to the background
// side-effect worker. The in-process queue is a bounded channel: no durable
// store backs it, so payloads in flight are lost if the process dies. The
// authoritative completion state is already committed by then.
package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/stagehand-app/stagehand/internal/core"
	"github.com/stagehand-app/stagehand/internal/domain/model"
	apperrors "github.com/stagehand-app/stagehand/internal/errors"
)

// Queue is a bounded in-process dispatcher. Enqueue never blocks the
// caller: a full or closed queue rejects the payload instead.
type Queue struct {
	ch     chan *model.BackgroundCompletionPayload
	logger *slog.Logger

	// mu orders Dispatch against Close so a late dispatch during shutdown
	// is rejected instead of sending on a closed channel.
	mu     sync.RWMutex
	closed bool
}

var _ core.Dispatcher = (*Queue)(nil)

// NewQueue creates a queue holding at most size payloads.
func NewQueue(size int, logger *slog.Logger) *Queue {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		ch:     make(chan *model.BackgroundCompletionPayload, size),
		logger: logger.With("component", "dispatch_queue"),
	}
}

// Dispatch enqueues a payload for the worker without waiting for it to be
// processed. Dispatching to a closed queue degrades to an unavailable error,
// matching the full-queue behaviour.
func (q *Queue) Dispatch(ctx context.Context, payload *model.BackgroundCompletionPayload) error {
	if payload == nil {
		return apperrors.Validation("dispatch payload is required")
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return apperrors.Unavailable("dispatch queue is closed")
	}

	select {
	case q.ch <- payload:
		q.logger.DebugContext(ctx, "payload enqueued",
			"dispatch_id", payload.DispatchID,
			"job_id", payload.JobID,
		)
		return nil
	default:
		return apperrors.Unavailable("dispatch queue is full")
	}
}

// Chan exposes the consumer side for the worker.
func (q *Queue) Chan() <-chan *model.BackgroundCompletionPayload {
	return q.ch
}

// Close stops accepting payloads; already-enqueued payloads remain readable
// until drained. Safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
