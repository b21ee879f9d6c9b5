package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/run-events/internal/event"
	"github.com/pfrederiksen/run-events/internal/logger"
)

const (
	IndiaRunningURL     = "https://www.indiarunning.com"
	IndiaRunningTimeout = 15 * time.Second

	// nextDataSelector locates the server-rendered Next.js payload.
	nextDataSelector = "script#__NEXT_DATA__"
)

// indiaRunningCategories are the distance-category listing pages.
var indiaRunningCategories = []string{
	"/running-events/5k",
	"/running-events/10k",
	"/running-events/half-marathon",
	"/running-events/marathon",
	"/running-events/ultra",
	"/running-events/trail",
}

// listStrategy is one candidate location of the event array inside the
// page payload. The payload shape differs between page types, so
// strategies are tried in order and the first one holding an array wins.
type listStrategy struct {
	name string
	path string
}

var indiaRunningStrategies = []listStrategy{
	{name: "events", path: "props.pageProps.events"},
	{name: "data.events", path: "props.pageProps.data.events"},
	{name: "initialData.events", path: "props.pageProps.initialData.events"},
	{name: "eventList", path: "props.pageProps.eventList"},
	{name: "data", path: "props.pageProps.data"},
	{name: "races", path: "props.pageProps.races"},
}

// IndiaRunning extracts events from the server-rendered category pages of
// indiarunning.com.
type IndiaRunning struct {
	baseURL    string
	categories []string
	fetcher    *Fetcher
}

// NewIndiaRunning creates an IndiaRunning extractor. An empty baseURL or
// zero timeout selects the defaults.
func NewIndiaRunning(baseURL string, timeout time.Duration) *IndiaRunning {
	if baseURL == "" {
		baseURL = IndiaRunningURL
	}
	if timeout <= 0 {
		timeout = IndiaRunningTimeout
	}
	return &IndiaRunning{
		baseURL:    strings.TrimRight(baseURL, "/"),
		categories: indiaRunningCategories,
		fetcher:    NewFetcher(SourceIndiaRunning, timeout, UserAgent),
	}
}

// Name implements Extractor.
func (s *IndiaRunning) Name() string { return SourceIndiaRunning }

// Extract fetches every category page in parallel and merges their events,
// keeping the first occurrence of each upstream id or slug. A category page
// that fails is skipped; the source fails only when all of them do.
func (s *IndiaRunning) Extract(ctx context.Context) ([]*event.Event, error) {
	pages := make([][]map[string]any, len(s.categories))
	errs := make([]error, len(s.categories))

	var wg sync.WaitGroup
	for i, category := range s.categories {
		wg.Add(1)
		go func(i int, pageURL string) {
			defer wg.Done()
			pages[i], errs[i] = s.fetchCategory(ctx, pageURL)
		}(i, s.baseURL+category)
	}
	wg.Wait()

	failed := 0
	seen := make(map[string]bool)
	events := make([]*event.Event, 0)

	for i, items := range pages {
		if errs[i] != nil {
			failed++
			logger.Warn("Category page failed", logger.Fields{
				"source":   SourceIndiaRunning,
				"category": s.categories[i],
				"error":    errs[i].Error(),
			})
			continue
		}

		for _, raw := range items {
			if key := indiaRunningKey(raw); key != "" {
				if seen[key] {
					continue
				}
				seen[key] = true
			}
			events = append(events, normalizeIndiaRunning(raw, s.baseURL))
		}
	}

	if failed == len(s.categories) {
		return nil, fmt.Errorf("all %d category pages failed: %w", failed, errors.Join(errs...))
	}

	return events, nil
}

func (s *IndiaRunning) fetchCategory(ctx context.Context, pageURL string) ([]map[string]any, error) {
	body, err := s.fetcher.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return parseNextData(body)
}

// parseNextData pulls the raw event objects out of a category page.
// A page without the payload marker, with an undecodable payload or with
// no recognizable event array yields no events rather than an error.
func parseNextData(body []byte) ([]map[string]any, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	payload := strings.TrimSpace(doc.Find(nextDataSelector).First().Text())
	if payload == "" {
		return nil, nil
	}

	var tree any
	if err := json.Unmarshal([]byte(payload), &tree); err != nil {
		logger.Debug("Undecodable page payload", logger.Fields{
			"source": SourceIndiaRunning,
			"error":  err.Error(),
		})
		return nil, nil
	}

	for _, strategy := range indiaRunningStrategies {
		arr, ok := lookupPath(tree, strategy.path).([]any)
		if !ok {
			continue
		}
		items := make([]map[string]any, 0, len(arr))
		for _, item := range arr {
			if m, ok := item.(map[string]any); ok {
				items = append(items, m)
			}
		}
		return items, nil
	}

	return nil, nil
}

// indiaRunningKey is the upstream identity used to merge category pages.
func indiaRunningKey(raw map[string]any) string {
	if id := firstString(raw, "id", "_id", "eventId"); id != "" {
		return "id:" + id
	}
	if slug := firstString(raw, "slug", "eventSlug"); slug != "" {
		return "slug:" + slug
	}
	return ""
}

// normalizeIndiaRunning maps one raw payload object to an Event.
func normalizeIndiaRunning(raw map[string]any, baseURL string) *event.Event {
	title := firstString(raw, "name", "title", "eventName")
	slug := firstString(raw, "slug", "eventSlug")

	evt := event.New(
		"",
		title,
		event.ParseDate(firstString(raw, "startDate", "start_date", "eventDate", "date")),
		event.ParseDate(firstString(raw, "endDate", "end_date")),
	)

	localID := firstString(raw, "id", "_id", "eventId")
	if localID == "" {
		localID = slug
	}
	if localID == "" {
		localID = event.Slugify(evt.Title)
	}
	evt.ID = "ir-" + localID

	evt.City = firstString(raw, "city", "location.city", "venue.city", "location")
	evt.State = firstString(raw, "state", "location.state", "venue.state")
	evt.Distances = labelsFrom(raw, "distances", "categories", "raceCategories")
	evt.Price = priceFrom(raw, "price", "minPrice", "startingPrice", "registrationFee")
	evt.Rating = firstRating(raw, "rating", "averageRating")
	evt.Organizer = firstString(raw, "organizer", "organizer.name", "organiser", "organizerName")
	evt.Source = SourceIndiaRunning

	evt.URL = absoluteURL(baseURL, firstString(raw, "url", "eventUrl", "link"))
	if evt.URL == "" && slug != "" {
		evt.URL = baseURL + "/event/" + slug
	}

	return evt
}
