// Package filter narrows an event list by the optional query parameters of
// the events API.
//
// A Query has three independent criteria, combined with AND:
//   - Region: "india" keeps Indian events, "global" keeps the rest
//   - Distance: a bucket (5k, 10k, half, marathon, ultra) matched against
//     each event's distance labels; other values are substring matches
//   - Month: a 1-based month number compared with the event start date
//
// An empty value or "all" disables a criterion.
//
// Example usage:
//
//	q := filter.Query{Distance: "half", Month: "3"}
//	filtered := q.Apply(events)
package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pfrederiksen/run-events/internal/event"
)

// Criterion value that disables filtering.
const All = "all"

// Region values.
const (
	RegionIndia  = "india"
	RegionGlobal = "global"
)

// Distance buckets.
const (
	Distance5K       = "5k"
	Distance10K      = "10k"
	DistanceHalf     = "half"
	DistanceMarathon = "marathon"
	DistanceUltra    = "ultra"
)

var (
	fiveKLabel  = regexp.MustCompile(`\b5\s?k`)
	tenKLabel   = regexp.MustCompile(`\b10\s?k`)
	ultraLabel  = regexp.MustCompile(`ultra|\b(?:50|75|100)\s?k`)
	marathonish = regexp.MustCompile(`marathon|42`)
)

// Query represents the event filter criteria.
type Query struct {
	Region   string `json:"region,omitempty"`
	Distance string `json:"distance,omitempty"`
	Month    string `json:"month,omitempty"`
}

func active(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, All)
}

// IsEmpty reports whether the query matches every event.
func (q Query) IsEmpty() bool {
	return !active(q.Region) && !active(q.Distance) && !active(q.Month)
}

// Matches reports whether evt passes every active criterion.
func (q Query) Matches(evt *event.Event) bool {
	return q.matchesRegion(evt) && q.matchesDistance(evt) && q.matchesMonth(evt)
}

func (q Query) matchesRegion(evt *event.Event) bool {
	switch strings.ToLower(strings.TrimSpace(q.Region)) {
	case RegionIndia:
		return evt.Region == event.RegionIndia
	case RegionGlobal:
		return evt.Region != event.RegionIndia
	default:
		return true
	}
}

func (q Query) matchesDistance(evt *event.Event) bool {
	if !active(q.Distance) {
		return true
	}
	for _, label := range evt.Distances {
		if MatchesDistance(label, q.Distance) {
			return true
		}
	}
	return false
}

// matchesMonth compares against the month of StartDate. A month that is
// not a number between 1 and 12 matches nothing.
func (q Query) matchesMonth(evt *event.Event) bool {
	if !active(q.Month) {
		return true
	}
	month, err := strconv.Atoi(strings.TrimSpace(q.Month))
	if err != nil || month < 1 || month > 12 {
		return false
	}
	return evt.Month() == month
}

// Apply returns the events matching q, in their original order. The
// result is always a new slice.
func (q Query) Apply(events []*event.Event) []*event.Event {
	filtered := make([]*event.Event, 0, len(events))
	for _, evt := range events {
		if q.Matches(evt) {
			filtered = append(filtered, evt)
		}
	}
	return filtered
}

// MatchesDistance reports whether a free-text distance label belongs to
// bucket. Unknown buckets fall back to a case-insensitive substring match.
func MatchesDistance(label, bucket string) bool {
	l := strings.ToLower(label)
	b := strings.ToLower(strings.TrimSpace(bucket))

	switch b {
	case "", All:
		return true
	case Distance5K:
		return fiveKLabel.MatchString(l)
	case Distance10K:
		return tenKLabel.MatchString(l)
	case DistanceHalf:
		return strings.Contains(l, "half") || strings.Contains(l, "21")
	case DistanceMarathon:
		return marathonish.MatchString(l) &&
			!strings.Contains(l, "half") &&
			!strings.Contains(l, "ultra")
	case DistanceUltra:
		return ultraLabel.MatchString(l)
	default:
		return strings.Contains(l, b)
	}
}

// String returns a human-readable description of the active criteria.
// Format: "Region: india | Distance: half | Month: 3"
func (q Query) String() string {
	if q.IsEmpty() {
		return "No active filters"
	}

	var parts []string
	if active(q.Region) {
		parts = append(parts, fmt.Sprintf("Region: %s", q.Region))
	}
	if active(q.Distance) {
		parts = append(parts, fmt.Sprintf("Distance: %s", q.Distance))
	}
	if active(q.Month) {
		parts = append(parts, fmt.Sprintf("Month: %s", q.Month))
	}
	return strings.Join(parts, " | ")
}
