// Package aggregator runs every source extractor, merges their output and
// produces the ordered, de-duplicated list of upcoming events.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pfrederiksen/run-events/internal/event"
	"github.com/pfrederiksen/run-events/internal/logger"
	"github.com/pfrederiksen/run-events/internal/metrics"
	"github.com/pfrederiksen/run-events/internal/scraper"
)

// ErrNoEvents is returned when every extractor failed and nothing, not
// even a manual event, was produced.
var ErrNoEvents = errors.New("no events available from any source")

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the clock used to decide which events are past.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// Aggregator fans out to a fixed, ordered set of extractors. Order matters:
// when two sources list the same event, the earlier source wins.
type Aggregator struct {
	extractors []scraper.Extractor
	manual     *scraper.Manual
	now        func() time.Time
}

// New creates an Aggregator. manual may be nil.
func New(extractors []scraper.Extractor, manual *scraper.Manual, opts ...Option) *Aggregator {
	a := &Aggregator{
		extractors: extractors,
		manual:     manual,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type outcome struct {
	events []*event.Event
	err    error
}

// Aggregate runs every extractor concurrently and waits for all of them.
// A failing extractor contributes no events; the others are unaffected.
// Scrapes are detached from ctx cancellation so that an abandoned request
// still completes the cycle.
func (a *Aggregator) Aggregate(ctx context.Context) ([]*event.Event, error) {
	start := time.Now()
	scrapeCtx := context.WithoutCancel(ctx)

	outcomes := make([]outcome, len(a.extractors))

	var wg sync.WaitGroup
	wg.Add(len(a.extractors))
	for i, ex := range a.extractors {
		go func(i int, ex scraper.Extractor) {
			defer wg.Done()
			outcomes[i] = runExtractor(scrapeCtx, ex)
		}(i, ex)
	}
	wg.Wait()

	batches := make([][]*event.Event, 0, len(outcomes)+1)
	var errs []error
	candidates := 0

	for i, o := range outcomes {
		if o.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.extractors[i].Name(), o.err))
			continue
		}
		batches = append(batches, o.events)
		candidates += len(o.events)
	}

	if a.manual != nil {
		manual := a.manual.Events()
		batches = append(batches, manual)
		candidates += len(manual)
	}

	if candidates == 0 && len(errs) > 0 && len(errs) == len(a.extractors) {
		return nil, fmt.Errorf("%w: %w", ErrNoEvents, errors.Join(errs...))
	}

	events := Merge(batches, a.now())

	elapsed := time.Since(start)
	metrics.ObserveAggregation(elapsed, len(events))
	logger.Info("Aggregation complete", logger.Fields{
		"sources":     len(a.extractors),
		"failed":      len(errs),
		"candidates":  candidates,
		"events":      len(events),
		"duration_ms": elapsed.Milliseconds(),
	})

	return events, nil
}

func runExtractor(ctx context.Context, ex scraper.Extractor) outcome {
	start := time.Now()
	events, err := ex.Extract(ctx)
	elapsed := time.Since(start)

	metrics.ObserveScrape(ex.Name(), elapsed, len(events), err)

	if err != nil {
		logger.Error("Source failed", logger.Fields{
			"source":      ex.Name(),
			"duration_ms": elapsed.Milliseconds(),
		}, err)
		return outcome{err: err}
	}

	logger.Debug("Source finished", logger.Fields{
		"source":      ex.Name(),
		"events":      len(events),
		"duration_ms": elapsed.Milliseconds(),
	})
	return outcome{events: events}
}

// Merge concatenates batches in order, keeps the first event for each
// dedup key, drops events without a start date or starting before the
// calendar day of now, and sorts by start date. Events sharing a start
// date keep their relative order.
func Merge(batches [][]*event.Event, now time.Time) []*event.Event {
	seen := make(map[string]bool)
	out := make([]*event.Event, 0)

	for _, batch := range batches {
		for _, evt := range batch {
			if evt == nil {
				continue
			}
			key := evt.DedupKey()
			if seen[key] {
				continue
			}
			seen[key] = true

			if evt.IsPast(now) {
				continue
			}
			out = append(out, evt)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartDate < out[j].StartDate
	})

	return out
}
