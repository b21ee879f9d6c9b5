package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/run-events/internal/event"
	"github.com/pfrederiksen/run-events/internal/logger"
)

const (
	TownscriptURL     = "https://www.townscript.com"
	TownscriptTimeout = 20 * time.Second

	// DefaultPageSize is large enough for the whole running listing to
	// come back in one page.
	DefaultPageSize = 1000

	ldJSONSelector = `script[type="application/ld+json"]`
)

// Townscript extracts events from the townscript.com running listing. The
// site only embeds JSON-LD for crawler user agents, so requests identify
// as one.
type Townscript struct {
	baseURL  string
	pageSize int
	fetcher  *Fetcher
}

// NewTownscript creates a Townscript extractor.
func NewTownscript(baseURL string, timeout time.Duration, pageSize int) *Townscript {
	if baseURL == "" {
		baseURL = TownscriptURL
	}
	if timeout <= 0 {
		timeout = TownscriptTimeout
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Townscript{
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: pageSize,
		fetcher:  NewFetcher(SourceTownscript, timeout, CrawlerUserAgent),
	}
}

// Name implements Extractor.
func (s *Townscript) Name() string { return SourceTownscript }

// Extract implements Extractor.
func (s *Townscript) Extract(ctx context.Context) ([]*event.Event, error) {
	listingURL := fmt.Sprintf("%s/discover/india/running?page=0&size=%d", s.baseURL, s.pageSize)

	body, err := s.fetcher.Get(ctx, listingURL)
	if err != nil {
		return nil, err
	}

	items, err := parseLDItems(body)
	if err != nil {
		return nil, err
	}

	events := make([]*event.Event, 0, len(items))
	for _, raw := range items {
		events = append(events, normalizeTownscript(raw, s.baseURL))
	}
	return events, nil
}

// parseLDItems decodes every JSON-LD block on the page and returns the
// event-typed items. Blocks that fail to decode are skipped.
func parseLDItems(body []byte) ([]map[string]any, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	var items []map[string]any
	doc.Find(ldJSONSelector).Each(func(i int, sel *goquery.Selection) {
		var node any
		if err := json.Unmarshal([]byte(strings.TrimSpace(sel.Text())), &node); err != nil {
			logger.Debug("Skipping malformed JSON-LD block", logger.Fields{
				"source": SourceTownscript,
				"block":  i,
				"error":  err.Error(),
			})
			return
		}
		for _, item := range ldCandidates(node) {
			if isEventType(item["@type"]) {
				items = append(items, item)
			}
		}
	})

	return items, nil
}

// ldCandidates flattens a decoded block: a list, a single object, or an
// object carrying an @graph list.
func ldCandidates(node any) []map[string]any {
	var out []map[string]any
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			out = append(out, ldCandidates(item)...)
		}
	case map[string]any:
		if graph, ok := v["@graph"].([]any); ok {
			for _, item := range graph {
				out = append(out, ldCandidates(item)...)
			}
			break
		}
		out = append(out, v)
	}
	return out
}

// isEventType reports whether a JSON-LD @type value is Event or one of
// its subtypes (SportsEvent, ...).
func isEventType(t any) bool {
	switch v := t.(type) {
	case string:
		return strings.HasSuffix(v, "Event")
	case []any:
		for _, item := range v {
			if isEventType(item) {
				return true
			}
		}
	}
	return false
}

// normalizeTownscript maps one JSON-LD event item to an Event.
func normalizeTownscript(raw map[string]any, baseURL string) *event.Event {
	name := firstString(raw, "name")
	link := absoluteURL(baseURL, firstString(raw, "url", "@id"))

	evt := event.New(
		"",
		name,
		event.ParseDate(firstString(raw, "startDate")),
		event.ParseDate(firstString(raw, "endDate")),
	)

	localID := lastPathSegment(link)
	if localID == "" {
		localID = event.Slugify(evt.Title)
	}
	evt.ID = "ts-" + localID

	evt.City = firstString(raw, "location.address.addressLocality", "location.name")
	evt.State = firstString(raw, "location.address.addressRegion")
	evt.Distances = InferDistances(evt.Title)
	evt.Price = priceFrom(raw, "offers.price", "offers.lowPrice")
	evt.Rating = firstRating(raw, "aggregateRating.ratingValue")
	evt.Organizer = firstString(raw, "organizer.name", "organizer")
	evt.URL = link
	evt.Source = SourceTownscript

	return evt
}
