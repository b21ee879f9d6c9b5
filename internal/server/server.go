// Package server exposes the aggregated event list over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pfrederiksen/run-events/internal/cache"
	"github.com/pfrederiksen/run-events/internal/logger"
	"github.com/pfrederiksen/run-events/internal/metrics"
)

// Options configures the HTTP surface.
type Options struct {
	// StaticDir, when set, is served at /. Otherwise / is a 404.
	StaticDir string

	// CalendarName is the X-WR-CALNAME of the iCalendar export.
	CalendarName string

	// Now is the clock used for Cache-Control and DTSTAMP. Defaults to
	// time.Now.
	Now func() time.Time
}

// Server routes API requests to a cache.Cache.
type Server struct {
	cache   cache.Cache
	opts    Options
	mux     *http.ServeMux
	handler http.Handler
}

// New builds the server and registers its routes.
func New(c cache.Cache, opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		cache: c,
		opts:  opts,
		mux:   http.NewServeMux(),
	}
	s.registerRoutes()
	s.handler = s.instrument(s.mux)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/events.ics", s.handleCalendar)
	s.mux.HandleFunc("GET /api/events/{id}/ics", s.handleEventCalendar)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", metrics.Handler())

	if s.opts.StaticDir != "" {
		s.mux.Handle("GET /", http.FileServer(http.Dir(s.opts.StaticDir)))
	}
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument logs and counts every request. The metrics path label is the
// matched route pattern so unknown URLs share one series.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequest(r.Method, route, rec.status)
		logger.Debug("HTTP request", logger.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to write JSON response", nil, err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
