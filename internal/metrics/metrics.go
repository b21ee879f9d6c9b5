// Package metrics exposes Prometheus collectors for the scraping pipeline,
// the cache layer and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "run_events"

// Cache request outcomes.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheStale = "stale"
	CacheError = "error"
)

var (
	scrapeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scrape_duration_seconds",
		Help:      "Time spent running one source extractor",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"source"})

	sourceEvents = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "source_events",
		Help:      "Events returned by the last successful run of a source",
	}, []string{"source"})

	sourceFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_failures_total",
		Help:      "Source extractor runs that failed",
	}, []string{"source"})

	fetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "fetch_duration_seconds",
		Help:      "Upstream HTTP request latency by source and status",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source", "status"})

	cacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_requests_total",
		Help:      "Cache reads by outcome",
	}, []string{"result"})

	aggregationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "aggregation_duration_seconds",
		Help:      "Wall time of a full aggregation cycle",
		Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
	})

	aggregatedEvents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "aggregated_events",
		Help:      "Events produced by the last successful aggregation",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served by route and status",
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(
		scrapeDuration, sourceEvents, sourceFailures, fetchDuration,
		cacheRequests, aggregationDuration, aggregatedEvents, httpRequests,
	)
}

// ObserveScrape records the outcome of one extractor run.
func ObserveScrape(source string, d time.Duration, events int, err error) {
	scrapeDuration.WithLabelValues(source).Observe(d.Seconds())
	if err != nil {
		sourceFailures.WithLabelValues(source).Inc()
		return
	}
	sourceEvents.WithLabelValues(source).Set(float64(events))
}

// ObserveFetch records one upstream HTTP request. status is 0 when the
// request never produced a response.
func ObserveFetch(source string, status int, d time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	fetchDuration.WithLabelValues(source, label).Observe(d.Seconds())
}

// ObserveAggregation records a completed aggregation cycle.
func ObserveAggregation(d time.Duration, events int) {
	aggregationDuration.Observe(d.Seconds())
	aggregatedEvents.Set(float64(events))
}

// CacheRequest counts one cache read with the given outcome.
func CacheRequest(result string) {
	cacheRequests.WithLabelValues(result).Inc()
}

// HTTPRequest counts one served HTTP request.
func HTTPRequest(method, path string, status int) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// Handler returns the Prometheus exposition handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
