package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pfrederiksen/run-events/internal/event"
	"github.com/pfrederiksen/run-events/internal/logger"
	"github.com/pfrederiksen/run-events/internal/metrics"
)

type entry struct {
	events    []*event.Event
	fetchedAt time.Time
}

// Memory is an in-process cache. The entry is swapped as a whole, so
// readers see either the old or the new result. Concurrent misses each
// aggregate and the last one to finish wins.
type Memory struct {
	agg     Aggregator
	opts    options
	current atomic.Pointer[entry]
}

// NewMemory creates an empty Memory cache in front of agg.
func NewMemory(agg Aggregator, opts ...Option) *Memory {
	return &Memory{
		agg:  agg,
		opts: buildOptions(opts),
	}
}

// Events implements Cache. When aggregation fails and an older entry
// exists, that entry is served with Stale set.
func (m *Memory) Events(ctx context.Context) (*Result, error) {
	prev := m.current.Load()
	if prev != nil && m.opts.now().Sub(prev.fetchedAt) < m.opts.ttl {
		metrics.CacheRequest(metrics.CacheHit)
		return m.result(prev, true, false), nil
	}

	events, err := m.agg.Aggregate(ctx)
	if err != nil {
		if prev != nil {
			metrics.CacheRequest(metrics.CacheStale)
			logger.Warn("Serving stale events after aggregation failure", logger.Fields{
				"fetched_at": prev.fetchedAt.Format(time.RFC3339),
				"error":      err.Error(),
			})
			return m.result(prev, true, true), nil
		}
		metrics.CacheRequest(metrics.CacheError)
		return nil, err
	}

	metrics.CacheRequest(metrics.CacheMiss)
	return m.result(m.store(events), false, false), nil
}

// Refresh implements Cache.
func (m *Memory) Refresh(ctx context.Context) (int, error) {
	events, err := m.agg.Aggregate(ctx)
	if err != nil {
		return 0, err
	}
	m.store(events)
	return len(events), nil
}

func (m *Memory) store(events []*event.Event) *entry {
	e := &entry{
		events:    events,
		fetchedAt: m.opts.now(),
	}
	m.current.Store(e)
	return e
}

func (m *Memory) result(e *entry, cached, stale bool) *Result {
	return &Result{
		Events:    e.events,
		FetchedAt: e.fetchedAt,
		ExpiresAt: e.fetchedAt.Add(m.opts.ttl),
		Cached:    cached,
		Stale:     stale,
	}
}
