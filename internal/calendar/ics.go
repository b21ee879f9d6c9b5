// Package calendar renders events as iCalendar (RFC 5545) documents.
package calendar

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/pfrederiksen/run-events/internal/event"
)

const (
	// DefaultCalendarName is used when no name is given.
	DefaultCalendarName = "Running Events"

	productID = "-//run-events//run-events//EN"
	uidDomain = "run-events"
)

// GenerateICS generates an iCalendar document holding a single event.
func GenerateICS(evt *event.Event, stamp time.Time) string {
	return GenerateBulkICS([]*event.Event{evt}, "", stamp)
}

// GenerateBulkICS generates an iCalendar document with one all-day VEVENT
// per event. Events without a usable start date are left out. stamp is
// written as DTSTAMP on every entry.
func GenerateBulkICS(events []*event.Event, calendarName string, stamp time.Time) string {
	if calendarName == "" {
		calendarName = DefaultCalendarName
	}

	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName(calendarName)
	cal.SetName(calendarName)

	for _, evt := range events {
		addEvent(cal, evt, stamp)
	}

	return cal.Serialize(ical.WithNewLineWindows)
}

func addEvent(cal *ical.Calendar, evt *event.Event, stamp time.Time) {
	start := evt.Start()
	if start.IsZero() {
		return
	}

	end := start
	if evt.EndDate != "" {
		if t, err := time.ParseInLocation(event.DateLayout, evt.EndDate, time.Local); err == nil && !t.Before(start) {
			end = t
		}
	}

	ve := cal.AddEvent(fmt.Sprintf("%s@%s", evt.ID, uidDomain))
	ve.SetDtStampTime(stamp)
	ve.SetAllDayStartAt(start)
	// DTEND of an all-day event is exclusive.
	ve.SetAllDayEndAt(end.AddDate(0, 0, 1))
	ve.SetSummary(evt.Title)
	ve.SetStatus(ical.ObjectStatusConfirmed)
	ve.SetTimeTransparency(ical.TransparencyTransparent)

	if location := Location(evt); location != "" {
		ve.SetLocation(location)
	}
	if evt.URL != "" {
		ve.SetURL(evt.URL)
	}
	for _, d := range evt.Distances {
		ve.AddCategory(d)
	}
	ve.SetDescription(Description(evt))
}

// Location joins city and state, skipping empty parts.
func Location(evt *event.Event) string {
	var parts []string
	if evt.City != "" {
		parts = append(parts, evt.City)
	}
	if evt.State != "" && !strings.EqualFold(evt.State, evt.City) {
		parts = append(parts, evt.State)
	}
	return strings.Join(parts, ", ")
}

// Description is the plain-text body of a calendar entry.
func Description(evt *event.Event) string {
	var lines []string
	if len(evt.Distances) > 0 {
		lines = append(lines, "Distances: "+strings.Join(evt.Distances, ", "))
	}
	if evt.Price != nil {
		lines = append(lines, "Price: "+*evt.Price)
	}
	if evt.Organizer != "" {
		lines = append(lines, "Organizer: "+evt.Organizer)
	}
	if evt.URL != "" {
		lines = append(lines, "Register at: "+evt.URL)
	}
	lines = append(lines, "Source: "+evt.Source)
	return strings.Join(lines, "\n")
}
