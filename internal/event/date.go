package event

import (
	"regexp"
	"strings"
	"time"
)

// DateLayout is the canonical calendar-date form used for StartDate/EndDate.
const DateLayout = "2006-01-02"

var (
	isoDatePrefix = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})(?:$|[T\s])`)

	// Trailing clock suffixes: "6:00 AM", "06:30pm", "at 5 a.m." and the
	// 24-hour forms "06:00", "18:30:00", optionally followed by a zone tag.
	clock12Suffix = regexp.MustCompile(`(?i)[\s,@|-]*(?:at\s+)?\b\d{1,2}(?::\d{2}){0,2}\s*(?:a\.?m\.?|p\.?m\.?)(?:\s*(?:IST|UTC|GMT))?\s*$`)
	clock24Suffix = regexp.MustCompile(`(?i)[\s,@|-]*(?:at\s+)?\d{1,2}:\d{2}(?::\d{2})?(?:\s*(?:IST|UTC|GMT|hrs))?\s*$`)

	// The end of a trailing time range: "to 11:00 AM", "- 10:30", "-9pm".
	clockRangeEnd = regexp.MustCompile(`(?i)(?:\s*[-–]\s*|\s+to\s+)(?:\d{1,2}(?::\d{2}){1,2}\s*(?:a\.?m\.?|p\.?m\.?)?|\d{1,2}\s*(?:a\.?m\.?|p\.?m\.?))(?:\s*(?:IST|UTC|GMT|hrs))?\s*$`)

	ordinalSuffix = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)\b`)
	spaceRun      = regexp.MustCompile(`\s+`)
)

// longFormLayouts are tried in order after time-of-day suffixes are removed.
var longFormLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"2 January, 2006",
	"2 Jan, 2006",
	"Monday, January 2, 2006",
	"Mon, Jan 2, 2006",
	"Monday, 2 January 2006",
	"Mon, 2 Jan 2006",
	"2006/01/02",
}

// ParseDate converts a source date string into YYYY-MM-DD.
// Returns "" if the text cannot be parsed.
//
// ISO dates and datetimes keep their calendar date verbatim; the time of
// day and any offset are discarded. Long-form dates ("March 1, 2026 6:00 AM",
// "1st Mar 2026 18:30") have their clock suffix trimmed and are anchored
// in UTC before formatting.
func ParseDate(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	if m := isoDatePrefix.FindStringSubmatch(text); m != nil {
		if _, err := time.Parse(DateLayout, m[1]); err == nil {
			return m[1]
		}
		return ""
	}

	t, ok := parseLongForm(text)
	if !ok {
		return ""
	}
	return t.Format(DateLayout)
}

// parseLongForm strips a trailing time of day or time range (12- or
// 24-hour clock) and parses what remains against longFormLayouts in UTC.
func parseLongForm(text string) (time.Time, bool) {
	if loc := clockRangeEnd.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	if loc := clock12Suffix.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	} else if loc := clock24Suffix.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}

	text = ordinalSuffix.ReplaceAllString(text, "$1")
	text = spaceRun.ReplaceAllString(strings.TrimSpace(text), " ")
	text = strings.TrimRight(text, ",")

	for _, layout := range longFormLayouts {
		if t, err := time.ParseInLocation(layout, text, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
