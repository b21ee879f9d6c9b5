package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pfrederiksen/run-events/internal/cache"
	"github.com/pfrederiksen/run-events/internal/calendar"
	"github.com/pfrederiksen/run-events/internal/crypto"
	"github.com/pfrederiksen/run-events/internal/event"
	"github.com/pfrederiksen/run-events/internal/filter"
	"github.com/pfrederiksen/run-events/internal/logger"
)

const (
	msgFetchFailed   = "Failed to fetch events"
	msgRefreshFailed = "Failed to refresh events"
	msgNotFound      = "Event not found"

	calendarFilename = "running-events.ics"
)

// EventsResponse is the body of GET /api/events. Total counts the events
// before filtering.
type EventsResponse struct {
	Events    []*event.Event `json:"events"`
	Total     int            `json:"total"`
	FetchedAt string         `json:"fetchedAt"`
	Cached    bool           `json:"cached"`
	Stale     bool           `json:"stale,omitempty"`
}

// RefreshResponse is the body of a successful POST /api/refresh.
type RefreshResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	res, err := s.cache.Events(r.Context())
	if err != nil {
		logger.Error(msgFetchFailed, logger.Fields{"path": r.URL.Path}, err)
		writeError(w, http.StatusInternalServerError, msgFetchFailed)
		return
	}

	query := filter.ParseQuery(r.URL.Query())
	body, err := json.Marshal(EventsResponse{
		Events:    query.Apply(res.Events),
		Total:     len(res.Events),
		FetchedAt: res.FetchedAt.UTC().Format(time.RFC3339),
		Cached:    res.Cached,
		Stale:     res.Stale,
	})
	if err != nil {
		logger.Error("Failed to encode events", nil, err)
		writeError(w, http.StatusInternalServerError, msgFetchFailed)
		return
	}
	body = append(body, '\n')

	etag := crypto.ETag(body)
	w.Header().Set("ETag", etag)
	w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="alternate"; type="text/calendar"`, calendarLink(query)))
	w.Header().Set("Cache-Control", s.cacheControl(res))

	if crypto.MatchesETag(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.Debug("Failed to write events response", logger.Fields{"error": err.Error()})
	}
}

// cacheControl lets clients reuse a cached result until it expires. Fresh
// aggregations and stale fallbacks are not reusable.
func (s *Server) cacheControl(res *cache.Result) string {
	if !res.Cached || res.Stale {
		return "no-cache"
	}
	return fmt.Sprintf("public, max-age=%d", int(res.MaxAge(s.opts.Now()).Seconds()))
}

// calendarLink is the iCalendar feed matching the same filters.
func calendarLink(q filter.Query) string {
	link := "/api/events.ics"
	if v := q.Values(); len(v) > 0 {
		link += "?" + v.Encode()
	}
	return link
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	res, err := s.cache.Events(r.Context())
	if err != nil {
		logger.Error(msgFetchFailed, logger.Fields{"path": r.URL.Path}, err)
		writeError(w, http.StatusInternalServerError, msgFetchFailed)
		return
	}

	events := filter.ParseQuery(r.URL.Query()).Apply(res.Events)
	writeCalendar(w, calendar.GenerateBulkICS(events, s.opts.CalendarName, s.opts.Now()), calendarFilename)
}

func (s *Server) handleEventCalendar(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	res, err := s.cache.Events(r.Context())
	if err != nil {
		logger.Error(msgFetchFailed, logger.Fields{"path": r.URL.Path}, err)
		writeError(w, http.StatusInternalServerError, msgFetchFailed)
		return
	}

	for _, evt := range res.Events {
		if evt.ID == id {
			writeCalendar(w, calendar.GenerateICS(evt, s.opts.Now()), evt.ID+".ics")
			return
		}
	}
	writeError(w, http.StatusNotFound, msgNotFound)
}

func writeCalendar(w http.ResponseWriter, ics, filename string) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ics))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	count, err := s.cache.Refresh(r.Context())
	if err != nil {
		logger.Error(msgRefreshFailed, nil, err)
		writeError(w, http.StatusInternalServerError, msgRefreshFailed)
		return
	}

	logger.Info("Events refreshed", logger.Fields{"count": count})
	writeJSON(w, http.StatusOK, RefreshResponse{Success: true, Count: count})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
