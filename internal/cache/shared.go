package cache

import (
	"context"

	"github.com/pfrederiksen/run-events/internal/event"
	"github.com/pfrederiksen/run-events/internal/logger"
	"github.com/pfrederiksen/run-events/internal/metrics"
	"github.com/pfrederiksen/run-events/internal/storage"
)

// Shared keeps the snapshot in a storage.Store under SharedKey. Expiry is
// left to the store: the snapshot is written with the TTL as its max-age.
// A miss always aggregates and aggregation errors are returned as is.
type Shared struct {
	agg   Aggregator
	store storage.Store
	opts  options
}

// NewShared creates a Shared cache in front of agg.
func NewShared(agg Aggregator, store storage.Store, opts ...Option) *Shared {
	return &Shared{
		agg:   agg,
		store: store,
		opts:  buildOptions(opts),
	}
}

// Events implements Cache. An unreadable snapshot is treated as a miss.
func (s *Shared) Events(ctx context.Context) (*Result, error) {
	snap, ok, err := s.store.Get(SharedKey)
	if err != nil {
		logger.Warn("Reading shared snapshot failed", logger.Fields{
			"key":   SharedKey,
			"error": err.Error(),
		})
	}
	if ok {
		metrics.CacheRequest(metrics.CacheHit)
		return &Result{
			Events:    snap.Events,
			FetchedAt: snap.FetchedAt,
			ExpiresAt: snap.FetchedAt.Add(s.opts.ttl),
			Cached:    true,
		}, nil
	}

	snap, err = s.fetch(ctx)
	if err != nil {
		metrics.CacheRequest(metrics.CacheError)
		return nil, err
	}

	metrics.CacheRequest(metrics.CacheMiss)
	return &Result{
		Events:    snap.Events,
		FetchedAt: snap.FetchedAt,
		ExpiresAt: snap.FetchedAt.Add(s.opts.ttl),
	}, nil
}

// Refresh implements Cache.
func (s *Shared) Refresh(ctx context.Context) (int, error) {
	snap, err := s.fetch(ctx)
	if err != nil {
		return 0, err
	}
	return len(snap.Events), nil
}

// fetch aggregates and stores the result. A failed write is logged; the
// fresh events are still returned.
func (s *Shared) fetch(ctx context.Context) (*storage.Snapshot, error) {
	events, err := s.agg.Aggregate(ctx)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []*event.Event{}
	}

	snap := &storage.Snapshot{
		FetchedAt: s.opts.now().UTC(),
		Events:    events,
	}
	if err := s.store.Put(SharedKey, snap, s.opts.ttl); err != nil {
		logger.Error("Writing shared snapshot failed", logger.Fields{"key": SharedKey}, err)
	}
	return snap, nil
}
