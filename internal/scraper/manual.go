package scraper

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/pfrederiksen/run-events/internal/event"
	"gopkg.in/yaml.v3"
)

//go:embed manual_events.yaml
var defaultManualEvents []byte

// ManualEntry is one hand-curated event as written in the YAML list.
type ManualEntry struct {
	ID        string   `yaml:"id"`
	Title     string   `yaml:"title"`
	City      string   `yaml:"city"`
	State     string   `yaml:"state"`
	StartDate string   `yaml:"start_date"`
	EndDate   string   `yaml:"end_date"`
	Distances []string `yaml:"distances"`
	Price     string   `yaml:"price"`
	Organizer string   `yaml:"organizer"`
	URL       string   `yaml:"url"`
	Region    string   `yaml:"region"`
}

// Manual serves a fixed list of curated events. It never touches the
// network and never fails.
type Manual struct {
	events []*event.Event
}

// LoadManual reads the manual list from path, or the built-in list when
// path is empty.
func LoadManual(path string) (*Manual, error) {
	if path == "" {
		return ParseManual(defaultManualEvents)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manual events: %w", err)
	}
	return ParseManual(data)
}

// ParseManual decodes a YAML list of ManualEntry. Every entry needs a
// title and a parseable start date.
func ParseManual(data []byte) (*Manual, error) {
	var entries []ManualEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing manual events: %w", err)
	}

	events := make([]*event.Event, 0, len(entries))
	for i, entry := range entries {
		evt, err := entry.toEvent()
		if err != nil {
			return nil, fmt.Errorf("manual event %d: %w", i, err)
		}
		events = append(events, evt)
	}

	return &Manual{events: events}, nil
}

func (m ManualEntry) toEvent() (*event.Event, error) {
	title := strings.TrimSpace(m.Title)
	if title == "" {
		return nil, fmt.Errorf("missing title")
	}

	start := event.ParseDate(m.StartDate)
	if start == "" {
		return nil, fmt.Errorf("%q: invalid start_date %q", title, m.StartDate)
	}

	localID := m.ID
	if localID == "" {
		localID = event.Slugify(title)
	}

	evt := event.New("manual-"+localID, title, start, event.ParseDate(m.EndDate))
	evt.City = m.City
	evt.State = m.State
	if len(m.Distances) > 0 {
		evt.Distances = append([]string{}, m.Distances...)
	}
	if p, ok := normalizePriceText(m.Price); ok {
		evt.Price = &p
	}
	evt.Organizer = m.Organizer
	evt.URL = m.URL
	evt.Source = SourceManual
	if m.Region != "" {
		evt.Region = m.Region
	}

	return evt, nil
}

// Events returns copies of the curated events so callers may modify them.
func (m *Manual) Events() []*event.Event {
	out := make([]*event.Event, len(m.events))
	for i, evt := range m.events {
		out[i] = evt.Clone()
	}
	return out
}

// Len returns the number of curated events.
func (m *Manual) Len() int { return len(m.events) }
