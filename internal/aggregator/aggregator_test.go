package aggregator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pfrederiksen/run-events/internal/event"
	"github.com/pfrederiksen/run-events/internal/scraper"
)

type fakeExtractor struct {
	name   string
	events []*event.Event
	err    error
	delay  time.Duration
	calls  atomic.Int32
}

func (f *fakeExtractor) Name() string { return f.name }

func (f *fakeExtractor) Extract(ctx context.Context) ([]*event.Event, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func evt(id, title, start string, distances ...string) *event.Event {
	e := event.New(id, title, start, "")
	if len(distances) > 0 {
		e.Distances = distances
	}
	return e
}

func fixedClock(date string) func() time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", date, time.Local)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func TestAggregate_CityRunExample(t *testing.T) {
	a := &fakeExtractor{name: "a", events: []*event.Event{evt("a-1", "City Run", "2026-03-01", "10K")}}
	b := &fakeExtractor{name: "b", events: []*event.Event{evt("b-1", "city run", "2026-03-01")}}

	agg := New([]scraper.Extractor{a, b}, nil, WithClock(fixedClock("2026-02-01 12:00")))
	events, err := agg.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Title != "City Run" {
		t.Errorf("Title = %q, want City Run", events[0].Title)
	}
	if len(events[0].Distances) != 1 || events[0].Distances[0] != "10K" {
		t.Errorf("Distances = %v, want [10K]", events[0].Distances)
	}
}

func TestAggregate_OneSourceFails(t *testing.T) {
	ok := &fakeExtractor{name: "ok", events: []*event.Event{evt("ok-1", "Good Run", "2026-05-01")}}
	bad := &fakeExtractor{name: "bad", err: errors.New("connection reset")}
	slow := &fakeExtractor{name: "slow", delay: 20 * time.Millisecond, events: []*event.Event{evt("slow-1", "Slow Run", "2026-04-01")}}

	agg := New([]scraper.Extractor{bad, ok, slow}, nil, WithClock(fixedClock("2026-01-01 00:00")))
	events, err := agg.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ID != "slow-1" || events[1].ID != "ok-1" {
		t.Errorf("order = %s, %s", events[0].ID, events[1].ID)
	}
	for _, ex := range []*fakeExtractor{ok, bad, slow} {
		if ex.calls.Load() != 1 {
			t.Errorf("%s called %d times", ex.name, ex.calls.Load())
		}
	}
}

func TestAggregate_AllFail(t *testing.T) {
	a := &fakeExtractor{name: "a", err: errors.New("boom")}
	b := &fakeExtractor{name: "b", err: errors.New("timeout")}

	agg := New([]scraper.Extractor{a, b}, nil)
	events, err := agg.Aggregate(context.Background())
	if !errors.Is(err, ErrNoEvents) {
		t.Fatalf("err = %v, want ErrNoEvents", err)
	}
	if events != nil {
		t.Errorf("events = %v, want nil", events)
	}
}

func TestAggregate_AllFailButManual(t *testing.T) {
	manual, err := scraper.ParseManual([]byte("- title: Curated Run\n  start_date: \"2026-06-01\"\n"))
	if err != nil {
		t.Fatalf("ParseManual failed: %v", err)
	}
	a := &fakeExtractor{name: "a", err: errors.New("boom")}

	agg := New([]scraper.Extractor{a}, manual, WithClock(fixedClock("2026-01-01 00:00")))
	events, err := agg.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(events) != 1 || events[0].ID != "manual-curated-run" {
		t.Errorf("events = %v", events)
	}
}

func TestAggregate_ManualLosesTies(t *testing.T) {
	manual, err := scraper.ParseManual([]byte("- title: Pune Marathon\n  start_date: \"2026-12-06\"\n"))
	if err != nil {
		t.Fatalf("ParseManual failed: %v", err)
	}
	scraped := &fakeExtractor{name: "scraped", events: []*event.Event{evt("ir-9", "PUNE MARATHON!", "2026-12-06")}}

	agg := New([]scraper.Extractor{scraped}, manual, WithClock(fixedClock("2026-10-16 09:00")))
	events, err := agg.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(events) != 1 || events[0].ID != "ir-9" {
		t.Errorf("events = %v, want only ir-9", events)
	}
}

func TestAggregate_CancelledContext(t *testing.T) {
	var sawCancel atomic.Bool
	ex := extractorFunc(func(ctx context.Context) ([]*event.Event, error) {
		if ctx.Err() != nil {
			sawCancel.Store(true)
		}
		return []*event.Event{evt("x-1", "Detached Run", "2026-08-01")}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg := New([]scraper.Extractor{ex}, nil, WithClock(fixedClock("2026-01-01 00:00")))
	events, err := agg.Aggregate(ctx)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if sawCancel.Load() {
		t.Error("extractor saw caller cancellation")
	}
	if len(events) != 1 {
		t.Errorf("got %d events, want 1", len(events))
	}
}

type extractorFunc func(ctx context.Context) ([]*event.Event, error)

func (f extractorFunc) Name() string { return "func" }

func (f extractorFunc) Extract(ctx context.Context) ([]*event.Event, error) { return f(ctx) }

func TestMerge(t *testing.T) {
	now := fixedClock("2026-03-10 18:30")()

	tests := []struct {
		name    string
		batches [][]*event.Event
		wantIDs []string
	}{
		{
			name: "earlier batch wins duplicates",
			batches: [][]*event.Event{
				{evt("a-1", "Run For Water", "2026-04-01")},
				{evt("b-1", "run-for-water", "2026-04-01"), evt("b-2", "Run For Water", "2026-04-02")},
			},
			wantIDs: []string{"a-1", "b-2"},
		},
		{
			name: "today kept, yesterday and undated dropped",
			batches: [][]*event.Event{{
				evt("y", "Yesterday Run", "2026-03-09"),
				evt("t", "Today Run", "2026-03-10"),
				evt("n", "Undated Run", ""),
			}},
			wantIDs: []string{"t"},
		},
		{
			name: "stable sort keeps input order for equal dates",
			batches: [][]*event.Event{
				{evt("c", "Gamma", "2026-05-01"), evt("a", "Alpha", "2026-04-01")},
				{evt("d", "Delta", "2026-05-01"), evt("b", "Beta", "2026-04-01")},
			},
			wantIDs: []string{"a", "b", "c", "d"},
		},
		{
			name: "title prefix beyond 28 characters is ignored",
			batches: [][]*event.Event{{
				evt("long-1", "The Very Long Annual Charity Run Edition One", "2026-06-01"),
				evt("long-2", "The Very Long Annual Charity Run Edition Two", "2026-06-01"),
			}},
			wantIDs: []string{"long-1"},
		},
		{
			name:    "empty input",
			batches: nil,
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.batches, now)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d events, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("got[%d].ID = %q, want %q", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestMerge_SortedAndUnique(t *testing.T) {
	now := fixedClock("2026-01-01 00:00")()
	batches := [][]*event.Event{
		{evt("1", "A", "2026-09-01"), evt("2", "B", "2026-02-01"), evt("3", "A", "2026-09-01")},
		{evt("4", "C", "2026-07-15"), evt("5", "B", "2026-02-01"), evt("6", "D", "2026-02-01")},
	}

	got := Merge(batches, now)

	keys := make(map[string]bool)
	for i, e := range got {
		if keys[e.DedupKey()] {
			t.Errorf("duplicate key %q", e.DedupKey())
		}
		keys[e.DedupKey()] = true
		if i > 0 && got[i-1].StartDate > e.StartDate {
			t.Errorf("not sorted at %d: %s > %s", i, got[i-1].StartDate, e.StartDate)
		}
	}
	if len(got) != 4 {
		t.Errorf("got %d events, want 4", len(got))
	}
}
