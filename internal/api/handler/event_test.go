package handler

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iconidentify/mediaslayer/internal/domain"
	"github.com/iconidentify/mediaslayer/internal/service"
)

func newTestEventHandler(t *testing.T) (*EventHandler, *service.EventService) {
	t.Helper()
	svc := service.NewEventService(service.EventServiceConfig{RingBufferSize: 50}, testLogger())
	t.Cleanup(svc.Close)
	return NewEventHandler(svc, testLogger()), svc
}

func emit(svc *service.EventService, sev domain.EventSeverity, cat domain.EventCategory, msg string, id domain.FormID) {
	svc.Emit(domain.NewEvent(sev, cat, msg).From("form_service").ForForm(id))
}

func TestEventHandler_List(t *testing.T) {
	handler, svc := newTestEventHandler(t)
	emit(svc, domain.EventSeverityInfo, domain.EventCategoryForm, "form created", "f1")
	emit(svc, domain.EventSeveritySuccess, domain.EventCategorySession, "session completed", "f1")
	emit(svc, domain.EventSeverityWarning, domain.EventCategorySession, "submit rejected: unrecognized URL", "f2")

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"all", "", 3},
		{"category", "?category=session", 2},
		{"severity", "?severity=warning", 1},
		{"form", "?form_id=f1", 2},
		{"form and category", "?form_id=f1&category=session", 1},
		{"search", "?search=unrecognized", 1},
		{"until in the past", "?until=2000-01-01T00:00:00Z", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.List(w, httptest.NewRequest(http.MethodGet, "/api/v1/events"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			var resp EventListResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Total != tt.want {
				t.Errorf("total = %d, want %d", resp.Total, tt.want)
			}
		})
	}
}

func TestEventHandler_List_BadFilter(t *testing.T) {
	handler, _ := newTestEventHandler(t)

	for _, query := range []string{
		"?severity=loud",
		"?category=tweets",
		"?since=yesterday",
		"?until=2024-13-01",
	} {
		w := httptest.NewRecorder()
		handler.List(w, httptest.NewRequest(http.MethodGet, "/api/v1/events"+query, nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", query, w.Code, http.StatusBadRequest)
		}
	}
}

func TestEventHandler_List_Pagination(t *testing.T) {
	handler, svc := newTestEventHandler(t)
	for i := 0; i < 5; i++ {
		emit(svc, domain.EventSeverityInfo, domain.EventCategoryForm, "form created", "f1")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?limit=2&offset=1", nil)
	w := httptest.NewRecorder()
	handler.List(w, req)

	var resp EventListResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Events) != 2 {
		t.Errorf("len(events) = %d, want 2", len(resp.Events))
	}
	if resp.Limit != 2 || resp.Offset != 1 {
		t.Errorf("limit/offset = %d/%d, want 2/1", resp.Limit, resp.Offset)
	}
	if !resp.HasMore {
		t.Error("has_more should be true")
	}
}

func TestEventHandler_Recent(t *testing.T) {
	handler, svc := newTestEventHandler(t)
	emit(svc, domain.EventSeverityInfo, domain.EventCategoryForm, "first", "f1")
	emit(svc, domain.EventSeverityInfo, domain.EventCategoryForm, "second", "f1")
	emit(svc, domain.EventSeverityInfo, domain.EventCategoryForm, "other", "f2")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/recent?limit=1&form_id=f1", nil)
	w := httptest.NewRecorder()
	handler.Recent(w, req)

	var resp RecentEventsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Events) != 1 || resp.Events[0].Message != "second" {
		t.Errorf("events = %+v, want only the newest for f1", resp.Events)
	}
}

func TestEventHandler_Stats(t *testing.T) {
	handler, svc := newTestEventHandler(t)
	emit(svc, domain.EventSeverityInfo, domain.EventCategoryForm, "form created", "f1")
	emit(svc, domain.EventSeverityError, domain.EventCategorySession, "session failed", "f1")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/stats", nil)
	w := httptest.NewRecorder()
	handler.Stats(w, req)

	var resp service.EventStats
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Emitted != 2 || resp.Buffered != 2 {
		t.Errorf("emitted/buffered = %d/%d, want 2/2", resp.Emitted, resp.Buffered)
	}
	if resp.BySeverity[domain.EventSeverityError] != 1 || resp.BySeverity[domain.EventSeverityInfo] != 1 {
		t.Errorf("by_severity = %v", resp.BySeverity)
	}
	if resp.ByCategory[domain.EventCategorySession] != 1 {
		t.Errorf("by_category = %v", resp.ByCategory)
	}
	if resp.BufferSize != 50 {
		t.Errorf("buffer_size = %d, want 50", resp.BufferSize)
	}
}

func TestEventHandler_Stream(t *testing.T) {
	handler, svc := newTestEventHandler(t)

	srv := httptest.NewServer(http.HandlerFunc(handler.Stream))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "?form_id=mine")
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	lines := make(chan string, 16)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); line != "" {
				lines <- line
			}
		}
	}()

	next := func() string {
		select {
		case line := <-lines:
			return line
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for SSE line")
			return ""
		}
	}

	if line := next(); line != "event: connected" {
		t.Fatalf("first line = %q, want event: connected", line)
	}
	next() // subscriber id

	// The subscription exists once connected has been written.
	emit(svc, domain.EventSeverityInfo, domain.EventCategoryForm, "not mine", "theirs")
	emit(svc, domain.EventSeverityInfo, domain.EventCategoryForm, "mine", "mine")

	if line := next(); line != "event: event" {
		t.Fatalf("line = %q, want event: event", line)
	}
	data := strings.TrimPrefix(next(), "data: ")

	var event domain.Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	if event.Message != "mine" || event.FormID != "mine" {
		t.Errorf("event = %+v, want only the subscribed form", event)
	}
}

func TestEventHandler_Stream_BadFilter(t *testing.T) {
	handler, svc := newTestEventHandler(t)

	w := httptest.NewRecorder()
	handler.Stream(w, httptest.NewRequest(http.MethodGet, "/api/v1/events/stream?severity=loud", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if svc.SubscriberCount() != 0 {
		t.Error("a rejected stream should not subscribe")
	}
}

func TestEventHandler_Categories(t *testing.T) {
	handler, _ := newTestEventHandler(t)

	w := httptest.NewRecorder()
	handler.Categories(w, httptest.NewRequest(http.MethodGet, "/api/v1/events/categories", nil))

	var resp map[string][]string
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp["categories"]) != 3 || resp["categories"][0] != "form" {
		t.Errorf("categories = %v, want [form session system]", resp["categories"])
	}
}

func TestEventHandler_Severities(t *testing.T) {
	handler, _ := newTestEventHandler(t)

	w := httptest.NewRecorder()
	handler.Severities(w, httptest.NewRequest(http.MethodGet, "/api/v1/events/severities", nil))

	var resp map[string][]string
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp["severities"]) != 4 {
		t.Errorf("severities = %v, want 4", resp["severities"])
	}
}
