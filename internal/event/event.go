package event

import (
	"strings"
	"time"
)

// DefaultTitle is used when a source record carries no usable name.
const DefaultTitle = "Untitled Event"

// RegionIndia is the region of every event from the current sources.
const RegionIndia = "India"

// dedupTitleLen is the number of normalized title characters in a dedup key.
const dedupTitleLen = 28

// Event is the canonical running-event record served by the API.
//
// StartDate and EndDate are calendar dates in YYYY-MM-DD form. An empty
// StartDate means the source date could not be parsed; such events never
// survive aggregation.
type Event struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	City      string   `json:"city"`
	State     string   `json:"state"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
	Distances []string `json:"distances"`
	Price     *string  `json:"price"`
	Rating    *float64 `json:"rating"`
	Organizer string   `json:"organizer"`
	URL       string   `json:"url"`
	Source    string   `json:"source"`
	Region    string   `json:"region"`
}

// New builds an Event with the defaults every normalizer relies on:
// a placeholder title, EndDate falling back to StartDate, a non-nil
// distance list and the India region.
func New(id, title, startDate, endDate string) *Event {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	if endDate == "" {
		endDate = startDate
	}
	return &Event{
		ID:        id,
		Title:     title,
		StartDate: startDate,
		EndDate:   endDate,
		Distances: []string{},
		Region:    RegionIndia,
	}
}

// Clone returns a deep copy of e.
func (e *Event) Clone() *Event {
	c := *e
	c.Distances = append([]string{}, e.Distances...)
	if e.Price != nil {
		p := *e.Price
		c.Price = &p
	}
	if e.Rating != nil {
		r := *e.Rating
		c.Rating = &r
	}
	return &c
}

// DedupKey derives the cross-source duplicate key: the lowercased title
// stripped to [a-z0-9], truncated to 28 characters, followed by StartDate.
func (e *Event) DedupKey() string {
	return DedupKey(e.Title, e.StartDate)
}

// DedupKey is the function form of (*Event).DedupKey.
func DedupKey(title, startDate string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == dedupTitleLen {
				break
			}
		}
	}
	return b.String() + startDate
}

// Start returns StartDate as a time at local midnight, or the zero time
// when StartDate is empty or malformed.
func (e *Event) Start() time.Time {
	if e.StartDate == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(DateLayout, e.StartDate, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// IsPast reports whether the event starts before the calendar day of now
// (local time). Events without a usable start date count as past.
func (e *Event) IsPast(now time.Time) bool {
	start := e.Start()
	if start.IsZero() {
		return true
	}
	now = now.In(time.Local)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	return start.Before(today)
}

// Month returns the 1-based month of StartDate, or 0 if it has none.
func (e *Event) Month() int {
	start := e.Start()
	if start.IsZero() {
		return 0
	}
	return int(start.Month())
}

// Slugify lowercases s and joins its ASCII alphanumeric runs with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}
