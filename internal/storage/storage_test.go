package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pfrederiksen/run-events/internal/event"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func newTestStore(t *testing.T) (*FileStore, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	s, err := New(t.TempDir(), WithClock(c.now))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s, c
}

func TestFileStore_PutGet(t *testing.T) {
	s, c := newTestStore(t)

	price := "₹1,200"
	snap := &Snapshot{
		FetchedAt: c.t,
		Events: []*event.Event{
			{ID: "ir-1", Title: "City Run", StartDate: "2026-03-15", EndDate: "2026-03-15", Distances: []string{"10K"}, Price: &price, Region: "India"},
		},
	}

	if err := s.Put("events:all", snap, time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok, err := s.Get("events:all")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("expected snapshot to be present")
	}
	if !got.FetchedAt.Equal(snap.FetchedAt) {
		t.Errorf("FetchedAt = %v, want %v", got.FetchedAt, snap.FetchedAt)
	}
	if len(got.Events) != 1 || got.Events[0].Title != "City Run" {
		t.Fatalf("Events = %+v", got.Events)
	}
	if got.Events[0].Price == nil || *got.Events[0].Price != price {
		t.Errorf("Price = %v", got.Events[0].Price)
	}

	if _, err := os.Stat(filepath.Join(s.Dir(), "events_all.json")); err != nil {
		t.Errorf("expected events_all.json: %v", err)
	}
}

func TestFileStore_Expiry(t *testing.T) {
	s, c := newTestStore(t)

	if err := s.Put("k", &Snapshot{FetchedAt: c.t}, 10*time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	tests := []struct {
		name    string
		advance time.Duration
		wantOK  bool
	}{
		{"fresh", 0, true},
		{"just before max-age", 10*time.Minute - time.Second, true},
		{"at max-age", 10 * time.Minute, false},
		{"long after", 24 * time.Hour, false},
	}

	start := c.t
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.t = start.Add(tt.advance)
			_, ok, err := s.Get("k")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
		})
	}
}

func TestFileStore_Missing(t *testing.T) {
	s, _ := newTestStore(t)

	snap, ok, err := s.Get("nothing")
	if err != nil || ok || snap != nil {
		t.Errorf("Get(missing) = %v, %v, %v; want nil, false, nil", snap, ok, err)
	}
}

func TestFileStore_Corrupt(t *testing.T) {
	s, _ := newTestStore(t)

	if err := os.WriteFile(filepath.Join(s.Dir(), "bad.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Get("bad"); err == nil {
		t.Error("expected error for corrupt snapshot")
	}
}

func TestFileStore_Overwrite(t *testing.T) {
	s, c := newTestStore(t)

	for i, title := range []string{"First", "Second"} {
		snap := &Snapshot{FetchedAt: c.t.Add(time.Duration(i) * time.Minute), Events: []*event.Event{{ID: title, Title: title}}}
		if err := s.Put("events:all", snap, time.Hour); err != nil {
			t.Fatalf("Put %d failed: %v", i, err)
		}
	}

	got, ok, err := s.Get("events:all")
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if got.Events[0].Title != "Second" {
		t.Errorf("Title = %q, want Second", got.Events[0].Title)
	}

	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 file after overwrite, found %d", len(entries))
	}
}

func TestNew_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	s, err := New("~/cache/run-events")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if want := filepath.Join(home, "cache", "run-events"); s.Dir() != want {
		t.Errorf("Dir() = %q, want %q", s.Dir(), want)
	}
}
