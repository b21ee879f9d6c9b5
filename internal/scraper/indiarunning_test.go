package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func nextDataPage(payload string) string {
	return `<html><head><title>Races</title></head><body><div id="__next"></div>` +
		`<script id="__NEXT_DATA__" type="application/json">` + payload + `</script></body></html>`
}

func newIndiaRunningServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, ok := pages[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestIndiaRunningExtract(t *testing.T) {
	pages := map[string]string{
		"/running-events/5k": nextDataPage(`{"props":{"pageProps":{"events":[
			{"id":101,"name":"Pune 5K Fun Run","slug":"pune-5k-fun-run","startDate":"2026-11-01T06:00:00.000Z",
			 "city":"Pune","state":"Maharashtra","categories":[{"name":"5K"}],"price":500,"rating":4.5,
			 "organizer":{"name":"Pune Striders"}}
		]}}}`),
		"/running-events/10k": nextDataPage(`{"props":{"pageProps":{"data":{"events":[
			{"id":101,"name":"Pune 5K Fun Run (duplicate)","startDate":"2026-11-01"},
			{"id":"102","title":"Chennai Coastal 10K","eventDate":"2026-12-13","location":{"city":"Chennai","state":"Tamil Nadu"},
			 "distances":["10K","5K"],"minPrice":"0","url":"/event/chennai-coastal-10k"}
		]}}}}`),
		"/running-events/half-marathon": `<html><body>No payload here</body></html>`,
		// marathon is missing from the map and answers 500.
		"/running-events/ultra": nextDataPage(`{"props":`),
		"/running-events/trail": nextDataPage(`{"props":{"pageProps":{"races":[
			{"slug":"western-ghats-trail","eventName":"Western Ghats Trail","date":"2026-12-05","venue":{"city":"Lonavala"}}
		]}}}`),
	}
	server := newIndiaRunningServer(t, pages)

	s := NewIndiaRunning(server.URL, 5*time.Second)
	events, err := s.Extract(context.Background())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	wantIDs := []string{"ir-101", "ir-102", "ir-western-ghats-trail"}
	if len(events) != len(wantIDs) {
		t.Fatalf("got %d events, want %d", len(events), len(wantIDs))
	}
	for i, id := range wantIDs {
		if events[i].ID != id {
			t.Errorf("events[%d].ID = %q, want %q", i, events[i].ID, id)
		}
		if events[i].Source != SourceIndiaRunning {
			t.Errorf("events[%d].Source = %q", i, events[i].Source)
		}
	}

	first := events[0]
	if first.Title != "Pune 5K Fun Run" {
		t.Errorf("Title = %q, first occurrence should win", first.Title)
	}
	if first.StartDate != "2026-11-01" || first.EndDate != "2026-11-01" {
		t.Errorf("dates = %q/%q, want 2026-11-01", first.StartDate, first.EndDate)
	}
	if first.City != "Pune" || first.State != "Maharashtra" {
		t.Errorf("location = %q, %q", first.City, first.State)
	}
	if len(first.Distances) != 1 || first.Distances[0] != "5K" {
		t.Errorf("Distances = %v, want [5K]", first.Distances)
	}
	if first.Price == nil || *first.Price != "₹500" {
		t.Errorf("Price = %v, want ₹500", first.Price)
	}
	if first.Rating == nil || *first.Rating != 4.5 {
		t.Errorf("Rating = %v, want 4.5", first.Rating)
	}
	if first.Organizer != "Pune Striders" {
		t.Errorf("Organizer = %q", first.Organizer)
	}
	if first.URL != server.URL+"/event/pune-5k-fun-run" {
		t.Errorf("URL = %q", first.URL)
	}

	second := events[1]
	if second.City != "Chennai" || second.State != "Tamil Nadu" {
		t.Errorf("nested location = %q, %q", second.City, second.State)
	}
	if second.Price == nil || *second.Price != "Free" {
		t.Errorf("Price = %v, want Free", second.Price)
	}
	if second.URL != server.URL+"/event/chennai-coastal-10k" {
		t.Errorf("URL = %q", second.URL)
	}

	third := events[2]
	if third.Title != "Western Ghats Trail" || third.City != "Lonavala" {
		t.Errorf("third = %q in %q", third.Title, third.City)
	}
	if third.Price != nil || third.Rating != nil {
		t.Error("missing price and rating should stay nil")
	}
	if third.Distances == nil {
		t.Error("Distances should never be nil")
	}
}

func TestIndiaRunningExtract_AllFailed(t *testing.T) {
	server := newIndiaRunningServer(t, map[string]string{})

	s := NewIndiaRunning(server.URL, 5*time.Second)
	events, err := s.Extract(context.Background())
	if err == nil {
		t.Fatal("expected error when every category page fails")
	}
	if events != nil {
		t.Errorf("expected nil events, got %d", len(events))
	}
}

func TestIndiaRunningExtract_NoPayloadIsNotFailure(t *testing.T) {
	pages := make(map[string]string)
	for _, c := range indiaRunningCategories {
		pages[c] = `<html><body>maintenance</body></html>`
	}
	server := newIndiaRunningServer(t, pages)

	s := NewIndiaRunning(server.URL, 5*time.Second)
	events, err := s.Extract(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected 0 events, got %d", len(events))
	}
}

func TestParseNextData_StrategyOrder(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
	}{
		{
			name:    "events wins over data.events",
			payload: `{"props":{"pageProps":{"events":[{"id":1}],"data":{"events":[{"id":2},{"id":3}]}}}}`,
			want:    1,
		},
		{
			name:    "data is an object, falls through to races",
			payload: `{"props":{"pageProps":{"data":{"title":"x"},"races":[{"id":1},{"id":2}]}}}`,
			want:    2,
		},
		{
			name:    "data itself is the list",
			payload: `{"props":{"pageProps":{"data":[{"id":1},"junk",{"id":2}]}}}`,
			want:    2,
		},
		{
			name:    "no known path",
			payload: `{"props":{"pageProps":{"something":[{"id":1}]}}}`,
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := parseNextData([]byte(nextDataPage(tt.payload)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(items) != tt.want {
				t.Errorf("got %d items, want %d", len(items), tt.want)
			}
		})
	}
}

func TestNormalizeIndiaRunning_Fallbacks(t *testing.T) {
	evt := normalizeIndiaRunning(map[string]any{}, "https://www.indiarunning.com")

	if evt.Title != "Untitled Event" {
		t.Errorf("Title = %q, want placeholder", evt.Title)
	}
	if evt.StartDate != "" {
		t.Errorf("StartDate = %q, want empty", evt.StartDate)
	}
	if evt.ID != "ir-untitled-event" {
		t.Errorf("ID = %q", evt.ID)
	}
	if evt.URL != "" {
		t.Errorf("URL = %q, want empty", evt.URL)
	}
	if evt.Region != "India" {
		t.Errorf("Region = %q", evt.Region)
	}
}
