package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pfrederiksen/run-events/internal/calendar"
	"github.com/pfrederiksen/run-events/internal/event"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult contains data to be output
type OutputResult struct {
	FetchedAt  time.Time      `json:"fetched_at"`
	Filters    string         `json:"filters"`
	Events     []*event.Event `json:"events"`
	EventCount int            `json:"event_count"`
	Total      int            `json:"total"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result *OutputResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	if result.EventCount == 0 {
		fmt.Fprintln(w, "No events found.")
		return nil
	}

	for _, evt := range result.Events {
		fmt.Fprintf(w, "%s  %s", dateRange(evt), evt.Title)
		if location := calendar.Location(evt); location != "" {
			fmt.Fprintf(w, " (%s)", location)
		}
		fmt.Fprintln(w)

		if verbose {
			fmt.Fprintf(w, "     ID: %s\n", evt.ID)
			if len(evt.Distances) > 0 {
				fmt.Fprintf(w, "     Distances: %s\n", strings.Join(evt.Distances, ", "))
			}
			if evt.Price != nil {
				fmt.Fprintf(w, "     Price: %s\n", *evt.Price)
			}
			if evt.Organizer != "" {
				fmt.Fprintf(w, "     Organizer: %s\n", evt.Organizer)
			}
			if evt.URL != "" {
				fmt.Fprintf(w, "     URL: %s\n", evt.URL)
			}
		}
	}

	fmt.Fprintf(w, "\nTotal: %d of %d events (%s)\n", result.EventCount, result.Total, result.Filters)
	return nil
}

// dateRange renders "2026-03-15" or "2026-04-10..2026-04-11".
func dateRange(evt *event.Event) string {
	if evt.EndDate == "" || evt.EndDate == evt.StartDate {
		return evt.StartDate
	}
	return evt.StartDate + ".." + evt.EndDate
}
