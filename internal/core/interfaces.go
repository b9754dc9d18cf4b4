// Package core defines the ports the lifecycle services depend on. The core
// declares interfaces; the data layer provides the implementations.
package core

import (
	"context"
	"time"

	"github.com/stagehand-app/stagehand/internal/domain/model"
)

//go:generate mockgen -package mocks -destination ../mocks/recordstore.go github.com/stagehand-app/stagehand/internal/core RecordStore

// JobWindow bounds a filtered batch read of jobs by scheduled date.
type JobWindow struct {
	From time.Time
	To   time.Time
}

// RecordStore is the narrow mutation/query contract against the external
// work-management system of record. The remote is rate-limited and
// eventually consistent; implementations translate transport and payload
// errors into the internal error taxonomy, and callers wrap every call in
// the retry executor.
type RecordStore interface {
	// GetJob reads a single job by its opaque external ID.
	GetJob(ctx context.Context, id string) (*model.Job, error)

	// ListJobsDue returns jobs scheduled within the window, for the
	// escalation eligibility scan.
	ListJobsDue(ctx context.Context, window JobWindow) ([]*model.Job, error)

	// SetEscalationLevel overwrites the job's escalation level field. The
	// write is a plain field overwrite and therefore idempotent.
	SetEscalationLevel(ctx context.Context, jobID string, level int) error

	// CompleteJob performs the single multi-field write that commits a
	// completion: notes, completion timestamp, and status done.
	CompleteJob(ctx context.Context, jobID, notes string, completedAt time.Time) error

	// MarkWarehouseComplete flips the warehouse sub-area status for a job.
	// Deferred entirely to the background phase for warehouse jobs.
	MarkWarehouseComplete(ctx context.Context, jobID string) error

	// AttachFile uploads a photo or signature to the job record. The payload
	// is reconstructed per attempt; a byte stream is never replayed.
	AttachFile(ctx context.Context, jobID string, file model.MediaPayload) error

	// GetMutePreference reads a recipient's mute policy. Parsed fresh on
	// every check; never cached.
	GetMutePreference(ctx context.Context, recipientID string) (*model.MutePreference, error)

	// GetVenueName resolves a venue's display name. Best-effort; callers
	// fail open on error.
	GetVenueName(ctx context.Context, venueID string) (string, error)

	// GetJobLineItems reads the equipment lines for a job, for completion
	// documents.
	GetJobLineItems(ctx context.Context, jobID string) ([]model.LineItem, error)

	// Ping checks reachability of the remote store.
	Ping(ctx context.Context) error
}

// Attachment is a file attached to an outbound message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is an outbound notification email.
type Message struct {
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Mailer delivers outbound notifications.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// CacheRepository is the expiring key-value store backing per-recipient
// rate-limit counters and single-flight claim records. Keys expire lazily;
// no background sweep is required.
type CacheRepository interface {
	// Get retrieves a value by key, or nil if absent/expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key, reporting whether it existed.
	Delete(ctx context.Context, key string) (bool, error)

	// SetIfNotExists atomically sets a key only if absent, for single-flight
	// claims under overlapping scheduler runs.
	SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Increment atomically increments a counter, setting the TTL on first
	// write, and returns the new count.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}

// Dispatcher hands a completion payload to the background side-effect
// worker. Dispatch failures are logged by the caller and never revoke the
// already-committed completion.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload *model.BackgroundCompletionPayload) error
}

// DocumentRenderer renders a completion document to bytes. Byte-level
// layout is out of scope for the services; they only carry the result.
type DocumentRenderer interface {
	Render(ctx context.Context, doc *model.CompletionDocument) (data []byte, contentType string, err error)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }
