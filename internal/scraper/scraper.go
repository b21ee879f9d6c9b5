package scraper

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pfrederiksen/run-events/internal/event"
	"github.com/pfrederiksen/run-events/internal/metrics"
)

// Source tags stored in event.Event.Source.
const (
	SourceIndiaRunning = "indiarunning"
	SourceBhaagoIndia  = "bhaagoindia"
	SourceTownscript   = "townscript"
	SourceManual       = "manual"
)

const (
	// UserAgent identifies run-events to sites that serve regular browsers.
	UserAgent = "Mozilla/5.0 (compatible; run-events/1.0; +https://github.com/pfrederiksen/run-events)"

	// CrawlerUserAgent is sent to sites that only emit structured data to
	// search-engine crawlers.
	CrawlerUserAgent = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

// Extractor produces candidate events from one upstream site.
// Each extractor fails independently; an error means "this source is
// unavailable" for the current cycle.
type Extractor interface {
	Name() string
	Extract(ctx context.Context) ([]*event.Event, error)
}

// Fetcher performs GET requests for one source with a fixed timeout and
// User-Agent. Requests are never retried.
type Fetcher struct {
	source string
	client *resty.Client
}

// NewFetcher creates a Fetcher whose requests are labelled with source in
// metrics and logs.
func NewFetcher(source string, timeout time.Duration, userAgent string) *Fetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-IN,en;q=0.9")

	return &Fetcher{
		source: source,
		client: client,
	}
}

// Get fetches url and returns the body of a 200 response.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()

	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		metrics.ObserveFetch(f.source, 0, time.Since(start))
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	metrics.ObserveFetch(f.source, resp.StatusCode(), time.Since(start))

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode(), url)
	}

	return resp.Body(), nil
}
