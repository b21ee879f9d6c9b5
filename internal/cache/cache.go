// Package cache holds the last aggregation result between requests.
//
// Memory keeps it in process and falls back to the previous result when a
// refresh fails. Shared stores it in a storage.Store under a fixed key so
// several processes can use one snapshot; it has no stale fallback.
package cache

import (
	"context"
	"time"

	"github.com/pfrederiksen/run-events/internal/event"
	"github.com/pfrederiksen/run-events/internal/logger"
)

// DefaultTTL is how long an aggregation result is served before the next
// read re-aggregates.
const DefaultTTL = 6 * time.Hour

// SharedKey is the storage key of the shared snapshot.
const SharedKey = "events:all"

// Aggregator produces a fresh event list.
type Aggregator interface {
	Aggregate(ctx context.Context) ([]*event.Event, error)
}

// Cache serves event lists, re-aggregating when its entry is too old.
type Cache interface {
	// Events returns the cached list, or a fresh one when the entry is
	// missing or expired.
	Events(ctx context.Context) (*Result, error)

	// Refresh re-aggregates unconditionally and returns the new count.
	// It never falls back to old data.
	Refresh(ctx context.Context) (int, error)
}

// Result is one cache read. Events must be treated as read-only; it is
// shared with other readers.
type Result struct {
	Events    []*event.Event
	FetchedAt time.Time
	ExpiresAt time.Time
	Cached    bool
	Stale     bool
}

// MaxAge returns the time left until the result expires, never negative.
func (r *Result) MaxAge(now time.Time) time.Duration {
	if left := r.ExpiresAt.Sub(now); left > 0 {
		return left
	}
	return 0
}

// Option configures Memory and Shared caches.
type Option func(*options)

type options struct {
	ttl time.Duration
	now func() time.Time
}

func buildOptions(opts []Option) options {
	o := options{
		ttl: DefaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock overrides the clock used for ages and timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Prewarm fills c with one refresh. Failure is logged; the first request
// will aggregate again.
func Prewarm(ctx context.Context, c Cache) {
	start := time.Now()
	count, err := c.Refresh(ctx)
	if err != nil {
		logger.Error("Cache prewarm failed", nil, err)
		return
	}
	logger.Info("Cache prewarmed", logger.Fields{
		"events":      count,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}
