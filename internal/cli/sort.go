package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pfrederiksen/run-events/internal/event"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByDate  SortOrder = "date"
	SortByTitle SortOrder = "title"
	SortByCity  SortOrder = "city"
)

// ParseSortOrder validates a --sort value.
func ParseSortOrder(s string) (SortOrder, error) {
	switch order := SortOrder(strings.ToLower(strings.TrimSpace(s))); order {
	case SortByDate, SortByTitle, SortByCity:
		return order, nil
	case "":
		return SortByDate, nil
	default:
		return "", fmt.Errorf("invalid sort order: %s (must be 'date', 'title' or 'city')", s)
	}
}

// sortEvents sorts a slice of events based on the specified sort order.
// The sort is stable so equal keys keep the aggregator's order.
func sortEvents(events []*event.Event, sortOrder SortOrder) {
	switch sortOrder {
	case SortByDate:
		sort.SliceStable(events, func(i, j int) bool {
			return compareByDate(events[i], events[j])
		})
	case SortByCity:
		sort.SliceStable(events, func(i, j int) bool {
			ci, cj := strings.ToLower(events[i].City), strings.ToLower(events[j].City)
			if ci != cj {
				// Events without a city go last
				if ci == "" || cj == "" {
					return cj == ""
				}
				return ci < cj
			}
			return compareByDate(events[i], events[j])
		})
	case SortByTitle:
		sort.SliceStable(events, func(i, j int) bool {
			ti, tj := strings.ToLower(events[i].Title), strings.ToLower(events[j].Title)
			if ti != tj {
				return ti < tj
			}
			return compareByDate(events[i], events[j])
		})
	}
}

// compareByDate compares two events by their start date
// Returns true if event i should come before event j
func compareByDate(i, j *event.Event) bool {
	// YYYY-MM-DD compares correctly as a string
	if i.StartDate != "" && j.StartDate != "" {
		return i.StartDate < j.StartDate
	}

	// If only one date is valid, put the valid one first
	return i.StartDate != "" && j.StartDate == ""
}
