package filter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ParseQuery reads region, distance and month from URL query values.
// Values are trimmed and lowercased; validation is left to matching so
// that an unusable value narrows the result instead of failing the request.
func ParseQuery(values url.Values) Query {
	return Query{
		Region:   clean(values.Get("region")),
		Distance: clean(values.Get("distance")),
		Month:    clean(values.Get("month")),
	}
}

// Values encodes q back into query parameters, omitting inactive criteria.
func (q Query) Values() url.Values {
	v := url.Values{}
	if active(q.Region) {
		v.Set("region", q.Region)
	}
	if active(q.Distance) {
		v.Set("distance", q.Distance)
	}
	if active(q.Month) {
		v.Set("month", q.Month)
	}
	return v
}

func clean(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// NormalizeMonth accepts a month number ("3", "03") or an English month
// name ("mar", "March") and returns the month number as a string.
// Empty input and "all" are returned unchanged.
func NormalizeMonth(input string) (string, error) {
	input = clean(input)
	if input == "" || input == All {
		return input, nil
	}

	if n, err := strconv.Atoi(input); err == nil {
		if n < 1 || n > 12 {
			return "", fmt.Errorf("invalid month: %d", n)
		}
		return strconv.Itoa(n), nil
	}

	if m := parseMonth(input); m != 0 {
		return strconv.Itoa(int(m)), nil
	}
	return "", fmt.Errorf("invalid month: %s", input)
}

// ValidateRegion rejects region values other than india, global and all.
func ValidateRegion(region string) error {
	switch clean(region) {
	case "", All, RegionIndia, RegionGlobal:
		return nil
	default:
		return fmt.Errorf("invalid region: %s (use india, global or all)", region)
	}
}

// parseMonth converts month name to time.Month
func parseMonth(name string) time.Month {
	name = strings.ToLower(strings.TrimSpace(name))

	months := map[string]time.Month{
		"jan": time.January, "january": time.January,
		"feb": time.February, "february": time.February,
		"mar": time.March, "march": time.March,
		"apr": time.April, "april": time.April,
		"may": time.May,
		"jun": time.June, "june": time.June,
		"jul": time.July, "july": time.July,
		"aug": time.August, "august": time.August,
		"sep": time.September, "september": time.September,
		"oct": time.October, "october": time.October,
		"nov": time.November, "november": time.November,
		"dec": time.December, "december": time.December,
	}

	return months[name]
}
