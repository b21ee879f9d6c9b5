package scraper

import (
	"html"
	"math"
	"strconv"
	"strings"
)

// lookupPath walks a decoded JSON tree along a dotted path. Arrays met
// along the way are entered through their first element, so
// "offers.price" works whether offers is an object or a list of objects.
func lookupPath(node any, path string) any {
	if path == "" {
		return node
	}
	for _, key := range strings.Split(path, ".") {
		if arr, ok := node.([]any); ok {
			if len(arr) == 0 {
				return nil
			}
			node = arr[0]
		}
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node, ok = m[key]
		if !ok {
			return nil
		}
	}
	return node
}

// firstString returns the first path whose value is a non-empty string or
// a number, trimmed and with HTML entities decoded.
func firstString(node any, paths ...string) string {
	for _, p := range paths {
		switch v := lookupPath(node, p).(type) {
		case string:
			if s := strings.TrimSpace(html.UnescapeString(v)); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// firstNumber returns the first path holding a number or a numeric string.
func firstNumber(node any, paths ...string) (float64, bool) {
	for _, p := range paths {
		switch v := lookupPath(node, p).(type) {
		case float64:
			return v, true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// firstRating is firstNumber returning nil for absent or non-positive values.
func firstRating(node any, paths ...string) *float64 {
	if r, ok := firstNumber(node, paths...); ok && r > 0 {
		return &r
	}
	return nil
}

// priceFrom resolves the first available price field into a display string.
func priceFrom(node any, paths ...string) *string {
	for _, p := range paths {
		switch v := lookupPath(node, p).(type) {
		case float64:
			s := FormatPrice(v)
			return &s
		case string:
			if s, ok := normalizePriceText(v); ok {
				return &s
			}
		}
	}
	return nil
}

func normalizePriceText(text string) (string, bool) {
	text = strings.TrimSpace(html.UnescapeString(text))
	if text == "" {
		return "", false
	}
	if strings.EqualFold(text, "free") {
		return "Free", true
	}
	digits := strings.TrimSpace(strings.TrimPrefix(strings.ReplaceAll(text, ",", ""), "₹"))
	digits = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(digits, "INR"), "Rs."))
	if f, err := strconv.ParseFloat(digits, 64); err == nil {
		return FormatPrice(f), true
	}
	return text, true
}

// FormatPrice renders an INR amount with Indian digit grouping
// ("₹1,25,000"). Zero is rendered as "Free".
func FormatPrice(amount float64) string {
	if amount <= 0 {
		return "Free"
	}
	amount = math.Round(amount*100) / 100

	whole := int64(math.Floor(amount))
	frac := amount - float64(whole)

	digits := strconv.FormatInt(whole, 10)
	grouped := digits
	if len(digits) > 3 {
		head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
		var parts []string
		for len(head) > 2 {
			parts = append([]string{head[len(head)-2:]}, parts...)
			head = head[:len(head)-2]
		}
		if head != "" {
			parts = append([]string{head}, parts...)
		}
		grouped = strings.Join(parts, ",") + "," + tail
	}

	if frac >= 0.005 {
		return "₹" + grouped + strconv.FormatFloat(frac, 'f', 2, 64)[1:]
	}
	return "₹" + grouped
}

// labelsFrom reads a distance list that may be a list of strings, a list
// of objects carrying a name/label, or a single comma-separated string.
func labelsFrom(node any, paths ...string) []string {
	for _, p := range paths {
		var labels []string
		switch v := lookupPath(node, p).(type) {
		case []any:
			for _, item := range v {
				if s := firstString(item, "", "name", "label", "distance", "title", "category"); s != "" {
					labels = append(labels, s)
				}
			}
		case string:
			for _, part := range strings.Split(v, ",") {
				if s := strings.TrimSpace(part); s != "" {
					labels = append(labels, s)
				}
			}
		}
		if len(labels) > 0 {
			return uniqueLabels(labels)
		}
	}
	return []string{}
}

func uniqueLabels(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		key := strings.ToLower(l)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	return out
}

// absoluteURL resolves root-relative links against base.
func absoluteURL(base, link string) string {
	if strings.HasPrefix(link, "/") && !strings.HasPrefix(link, "//") {
		return strings.TrimRight(base, "/") + link
	}
	return link
}

// lastPathSegment returns the final non-empty path segment of a URL,
// ignoring any query string or fragment.
func lastPathSegment(link string) string {
	if i := strings.IndexAny(link, "?#"); i >= 0 {
		link = link[:i]
	}
	link = strings.TrimRight(link, "/")
	if i := strings.LastIndex(link, "/"); i >= 0 {
		link = link[i+1:]
	}
	if strings.Contains(link, ":") {
		return ""
	}
	return link
}
