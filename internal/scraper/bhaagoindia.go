package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/run-events/internal/event"
	"github.com/pfrederiksen/run-events/internal/logger"
)

const (
	BhaagoIndiaURL     = "https://www.bhaagoindia.com"
	BhaagoIndiaTimeout = 20 * time.Second

	// DefaultDetailConcurrency bounds simultaneous detail-page requests.
	DefaultDetailConcurrency = 8

	bhaagoIndiaListingPath = "/events/"
)

var (
	// eventSlugPattern matches detail links such as /events/pune-half-marathon-1234/.
	eventSlugPattern = regexp.MustCompile(`/events/([\w-]+-\d+)(?:[/?#"'\s]|$)`)

	ldJSONBlock = regexp.MustCompile(`(?is)<script[^>]*type\s*=\s*["']application/ld\+json["'][^>]*>(.*?)</script>`)
	eventType   = regexp.MustCompile(`"@type"\s*:\s*(?:\[[^\]]*)?"[A-Za-z]*Event"`)

	// Per-field patterns. A JSON string value is `"(?:[^"\\]|\\.)*"`.
	ldName         = regexp.MustCompile(`"name"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	ldStartDate    = regexp.MustCompile(`"startDate"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	ldEndDate      = regexp.MustCompile(`"endDate"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	ldLocality     = regexp.MustCompile(`"addressLocality"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	ldRegion       = regexp.MustCompile(`"addressRegion"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	ldPrice        = regexp.MustCompile(`"(?:price|lowPrice)"\s*:\s*"?([\d.,]+)"?`)
	ldOrganizer    = regexp.MustCompile(`(?s)"organizer"\s*:\s*\{[^{}]*?"name"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	ldRatingValue  = regexp.MustCompile(`"ratingValue"\s*:\s*"?([\d.]+)"?`)
	ldOrganizerStr = regexp.MustCompile(`"organizer"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

// BhaagoIndia extracts events from bhaagoindia.com in two phases: slugs
// are collected from the listing page, then each detail page is fetched
// and its JSON-LD event block is read field by field.
type BhaagoIndia struct {
	baseURL     string
	concurrency int
	fetcher     *Fetcher
}

// NewBhaagoIndia creates a BhaagoIndia extractor. concurrency caps the
// number of detail pages fetched at once; 0 or less means no cap.
func NewBhaagoIndia(baseURL string, timeout time.Duration, concurrency int) *BhaagoIndia {
	if baseURL == "" {
		baseURL = BhaagoIndiaURL
	}
	if timeout <= 0 {
		timeout = BhaagoIndiaTimeout
	}
	return &BhaagoIndia{
		baseURL:     strings.TrimRight(baseURL, "/"),
		concurrency: concurrency,
		fetcher:     NewFetcher(SourceBhaagoIndia, timeout, UserAgent),
	}
}

// Name implements Extractor.
func (s *BhaagoIndia) Name() string { return SourceBhaagoIndia }

// Extract implements Extractor. Only a failed listing request fails the
// source; detail pages that fail or carry no usable block are skipped.
func (s *BhaagoIndia) Extract(ctx context.Context) ([]*event.Event, error) {
	body, err := s.fetcher.Get(ctx, s.baseURL+bhaagoIndiaListingPath)
	if err != nil {
		return nil, fmt.Errorf("fetching listing: %w", err)
	}

	slugs, err := collectSlugs(body)
	if err != nil {
		return nil, err
	}

	logger.Debug("Collected detail slugs", logger.Fields{
		"source": SourceBhaagoIndia,
		"count":  len(slugs),
	})

	results := make([]*event.Event, len(slugs))

	var sem chan struct{}
	if s.concurrency > 0 {
		sem = make(chan struct{}, s.concurrency)
	}

	var wg sync.WaitGroup
	for i, slug := range slugs {
		wg.Add(1)
		go func(i int, slug string) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			results[i] = s.fetchDetail(ctx, slug)
		}(i, slug)
	}
	wg.Wait()

	events := make([]*event.Event, 0, len(results))
	for _, evt := range results {
		if evt != nil {
			events = append(events, evt)
		}
	}
	return events, nil
}

func (s *BhaagoIndia) fetchDetail(ctx context.Context, slug string) *event.Event {
	pageURL := s.baseURL + "/events/" + slug + "/"

	body, err := s.fetcher.Get(ctx, pageURL)
	if err != nil {
		logger.Debug("Detail page failed", logger.Fields{
			"source": SourceBhaagoIndia,
			"slug":   slug,
			"error":  err.Error(),
		})
		return nil
	}

	block := findEventBlock(string(body))
	if block == "" {
		logger.Debug("No event block on detail page", logger.Fields{
			"source": SourceBhaagoIndia,
			"slug":   slug,
		})
		return nil
	}

	evt, ok := normalizeBhaagoIndia(slug, block, pageURL)
	if !ok {
		logger.Debug("Dropped incomplete event", logger.Fields{
			"source": SourceBhaagoIndia,
			"slug":   slug,
		})
		return nil
	}
	return evt
}

// collectSlugs returns the detail-page slugs linked from the listing page,
// in first-seen order. Anchors are read first; a sweep of the raw HTML
// then picks up links that only appear inside inline scripts.
func collectSlugs(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing listing HTML: %w", err)
	}

	seen := make(map[string]bool)
	var slugs []string
	add := func(slug string) {
		if !seen[slug] {
			seen[slug] = true
			slugs = append(slugs, slug)
		}
	}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if m := eventSlugPattern.FindStringSubmatch(href); m != nil {
			add(m[1])
		}
	})

	for _, m := range eventSlugPattern.FindAllSubmatch(body, -1) {
		add(string(m[1]))
	}

	return slugs, nil
}

// findEventBlock returns the content of the first JSON-LD script whose
// @type names an event, or "" when the page has none.
func findEventBlock(page string) string {
	for _, m := range ldJSONBlock.FindAllStringSubmatch(page, -1) {
		if eventType.MatchString(m[1]) {
			return m[1]
		}
	}
	return ""
}

// normalizeBhaagoIndia builds an Event from a raw JSON-LD block using one
// pattern per field, so a broken value only loses that field. Records
// without a name or a parseable start date are rejected.
func normalizeBhaagoIndia(slug, block, pageURL string) (*event.Event, bool) {
	block = eventObject(block)

	name := ldField(ldName, topLevel(block))
	if name == "" {
		name = ldField(ldName, block)
	}
	if name == "" {
		return nil, false
	}

	start := event.ParseDate(ldField(ldStartDate, block))
	if start == "" {
		return nil, false
	}

	evt := event.New("bi-"+slug, name, start, event.ParseDate(ldField(ldEndDate, block)))
	evt.City = ldField(ldLocality, block)
	evt.State = ldField(ldRegion, block)
	evt.Distances = InferDistances(name)
	evt.Organizer = ldField(ldOrganizer, block)
	if evt.Organizer == "" {
		evt.Organizer = ldField(ldOrganizerStr, block)
	}
	evt.URL = pageURL
	evt.Source = SourceBhaagoIndia

	if m := ldPrice.FindStringSubmatch(block); m != nil {
		if f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			price := FormatPrice(f)
			evt.Price = &price
		}
	}
	if m := ldRatingValue.FindStringSubmatch(block); m != nil {
		if r, err := strconv.ParseFloat(m[1], 64); err == nil && r > 0 {
			evt.Rating = &r
		}
	}

	return evt, true
}

// ldField returns the first capture of pattern in block, unescaped.
func ldField(pattern *regexp.Regexp, block string) string {
	m := pattern.FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	return unescapeJSONString(m[1])
}

func unescapeJSONString(raw string) string {
	var s string
	if err := json.Unmarshal([]byte(`"`+raw+`"`), &s); err != nil {
		s = raw
	}
	return strings.TrimSpace(html.UnescapeString(s))
}

// eventObject narrows block to the JSON object carrying the first event
// @type, so array-wrapped blocks and @graph lists resolve to the event
// itself. block is returned unchanged when no such object is found.
func eventObject(block string) string {
	loc := eventType.FindStringIndex(block)
	if loc == nil {
		return block
	}

	var open []int
	scanStructure(block[:loc[0]], func(i int, c byte) {
		switch c {
		case '{', '[':
			open = append(open, i)
		case '}', ']':
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
		}
	})

	start := -1
	for j := len(open) - 1; j >= 0; j-- {
		if block[open[j]] == '{' {
			start = open[j]
			break
		}
	}
	if start < 0 {
		return block
	}

	end := len(block)
	depth := 0
	done := false
	scanStructure(block[start:], func(i int, c byte) {
		if done {
			return
		}
		switch c {
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				end = start + i + 1
				done = true
			}
		}
	})
	return block[start:end]
}

// scanStructure calls fn for every bracket of s that is outside a JSON
// string.
func scanStructure(s string, fn func(i int, c byte)) {
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{' || c == '[' || c == '}' || c == ']':
			fn(i, c)
		}
	}
}

// topLevel blanks out everything nested below the object that opens
// block, so a "name" key of a location or organizer is not mistaken for
// the event name. Callers narrow block with eventObject first.
func topLevel(block string) string {
	out := []byte(block)
	base := -1
	depth := 0
	inString, escaped := false, false

	for i := 0; i < len(out); i++ {
		c := out[i]
		keep := base < 0 || depth <= base

		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{' || c == '[':
			depth++
			if base < 0 && c == '{' {
				base = depth
			}
			keep = base < 0 || depth <= base
		case c == '}' || c == ']':
			depth--
		}

		if !keep {
			out[i] = ' '
		}
	}
	return string(out)
}
