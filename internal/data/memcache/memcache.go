// Package memcache implements the CacheRepository port in process. Entries
// expire lazily on access; no background sweep goroutine runs.
package memcache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stagehand-app/stagehand/internal/core"
)

type entry struct {
	value     []byte
	count     int64
	expiresAt time.Time // zero means no expiry
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Repo is a concurrency-safe in-process TTL cache. It backs rate-limit
// counters and single-flight claims when Redis is not configured.
type Repo struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

var _ core.CacheRepository = (*Repo)(nil)

// New creates an empty Repo.
func New() *Repo {
	return &Repo{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// NewWithClock creates a Repo with an injected time source for tests.
func NewWithClock(now func() time.Time) *Repo {
	r := New()
	r.now = now
	return r
}

// Get retrieves a value by key, or nil if absent or expired.
func (r *Repo) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("key cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.lookup(key)
	if e == nil {
		return nil, nil
	}
	return e.value, nil
}

// Set stores a value with the given TTL. A zero TTL means no expiry.
func (r *Repo) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[key] = &entry{value: value, expiresAt: r.deadline(ttl)}
	return nil
}

// Delete removes a key, reporting whether a live entry existed.
func (r *Repo) Delete(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("key cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existed := r.lookup(key) != nil
	delete(r.entries, key)
	return existed, nil
}

// SetIfNotExists sets a key only if no live entry exists.
func (r *Repo) SetIfNotExists(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, errors.New("key cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lookup(key) != nil {
		return false, nil
	}
	r.entries[key] = &entry{value: value, expiresAt: r.deadline(ttl)}
	return true, nil
}

// Increment increments a counter, starting a fresh window when the previous
// entry is absent or has lapsed.
func (r *Repo) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	if key == "" {
		return 0, errors.New("key cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.lookup(key)
	if e == nil {
		e = &entry{expiresAt: r.deadline(ttl)}
		r.entries[key] = e
	}
	e.count++
	return e.count, nil
}

// Health always succeeds for the in-process cache.
func (r *Repo) Health(context.Context) error {
	return nil
}

// lookup returns the live entry for key, discarding it if expired.
// Callers must hold the mutex.
func (r *Repo) lookup(key string) *entry {
	e, ok := r.entries[key]
	if !ok {
		return nil
	}
	if e.expired(r.now()) {
		delete(r.entries, key)
		return nil
	}
	return e
}

func (r *Repo) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return r.now().Add(ttl)
}
