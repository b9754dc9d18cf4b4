// Package testutil contains simple hand-written test doubles for the core
// ports. These are lightweight and suitable for unit tests without codegen.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/stagehand-app/stagehand/internal/core"
	"github.com/stagehand-app/stagehand/internal/domain/model"
	"github.com/stagehand-app/stagehand/internal/retry"
)

// Ensure compile-time conformance to the ports.
var (
	_ core.Clock           = (*FixedClock)(nil)
	_ core.Mailer          = (*CaptureMailer)(nil)
	_ core.Dispatcher      = (*CaptureDispatcher)(nil)
	_ core.CacheRepository = (*StubCache)(nil)
)

// SilentLogger discards all log output.
func SilentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// FastExecutor returns a retry executor with production attempt counts but
// millisecond backoff, so retry paths run without slowing the suite.
func FastExecutor() *retry.Executor {
	return retry.NewExecutor(retry.Options{
		Config: retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond},
		Logger: SilentLogger(),
	})
}

// FixedClock returns a constant time.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed time.
func (c FixedClock) Now() time.Time { return c.T }

// CaptureMailer records outbound messages instead of sending them.
type CaptureMailer struct {
	mu   sync.Mutex
	sent []core.Message

	// Err, when set, is returned from every Send.
	Err error
	// SendFunc, when set, overrides the default capture behavior.
	SendFunc func(ctx context.Context, msg core.Message) error
}

// Send records the message.
func (m *CaptureMailer) Send(ctx context.Context, msg core.Message) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of the captured messages.
func (m *CaptureMailer) Sent() []core.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Message, len(m.sent))
	copy(out, m.sent)
	return out
}

// CaptureDispatcher records dispatched payloads.
type CaptureDispatcher struct {
	mu       sync.Mutex
	payloads []*model.BackgroundCompletionPayload

	// Err, when set, is returned from every Dispatch.
	Err error
}

// Dispatch records the payload.
func (d *CaptureDispatcher) Dispatch(_ context.Context, payload *model.BackgroundCompletionPayload) error {
	if d.Err != nil {
		return d.Err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.payloads = append(d.payloads, payload)
	return nil
}

// Dispatched returns a copy of the captured payloads.
func (d *CaptureDispatcher) Dispatched() []*model.BackgroundCompletionPayload {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*model.BackgroundCompletionPayload, len(d.payloads))
	copy(out, d.payloads)
	return out
}

// StubCache is an in-memory CacheRepository without expiry, with injectable
// failures for exercising fail-open paths.
type StubCache struct {
	mu     sync.Mutex
	values map[string][]byte
	counts map[string]int64

	// Err, when set, is returned from every method.
	Err error
}

// NewStubCache returns an empty StubCache.
func NewStubCache() *StubCache {
	return &StubCache{
		values: make(map[string][]byte),
		counts: make(map[string]int64),
	}
}

// Get returns the stored value or nil.
func (c *StubCache) Get(_ context.Context, key string) ([]byte, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key], nil
}

// Set stores the value, ignoring the TTL.
func (c *StubCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if c.Err != nil {
		return c.Err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

// Delete removes the key.
func (c *StubCache) Delete(_ context.Context, key string) (bool, error) {
	if c.Err != nil {
		return false, c.Err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	delete(c.values, key)
	return ok, nil
}

// SetIfNotExists stores the value only if the key is absent.
func (c *StubCache) SetIfNotExists(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	if c.Err != nil {
		return false, c.Err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.values[key]; ok {
		return false, nil
	}
	c.values[key] = value
	return true, nil
}

// Increment bumps the counter, ignoring the TTL.
func (c *StubCache) Increment(_ context.Context, key string, _ time.Duration) (int64, error) {
	if c.Err != nil {
		return 0, c.Err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
	return c.counts[key], nil
}

// Health always succeeds unless Err is set.
func (c *StubCache) Health(_ context.Context) error {
	return c.Err
}

// ConfirmedJob builds a confirmed, assigned job scheduled at the given time.
func ConfirmedJob(id string, scheduledAt time.Time) *model.Job {
	return &model.Job{
		ID:          id,
		Kind:        model.JobKindDelivery,
		Status:      model.JobStatusConfirmed,
		ScheduledAt: scheduledAt,
		Assignee: model.Recipient{
			ID:    "crew-" + id,
			Name:  "Crew " + id,
			Email: "crew-" + id + "@example.com",
		},
	}
}
