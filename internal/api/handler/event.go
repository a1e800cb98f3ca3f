package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/iconidentify/mediaslayer/internal/domain"
	"github.com/iconidentify/mediaslayer/internal/service"
)

// EventHandler serves the activity log.
type EventHandler struct {
	eventSvc *service.EventService
	logger   *slog.Logger
}

// NewEventHandler creates a new event handler.
func NewEventHandler(eventSvc *service.EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		eventSvc: eventSvc,
		logger:   logger,
	}
}

// EventListResponse contains a page of events.
type EventListResponse struct {
	Events  []domain.Event `json:"events"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
	HasMore bool           `json:"has_more"`
}

// RecentEventsResponse wraps the newest events.
type RecentEventsResponse struct {
	Events []domain.Event `json:"events"`
}

// List handles GET /api/v1/events
// Query parameters (all optional):
//   - severity, category: exact match
//   - form_id, session_id: events about one form or session
//   - source: emitting component
//   - since, until: RFC3339 bounds
//   - search: case-insensitive message substring
//   - limit (default 50, max 200), offset
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter, err := parseEventFilter(q)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	query := domain.EventQuery{
		Filter: filter,
		Limit:  intParam(q, "limit", 50, 1, 200),
		Offset: intParam(q, "offset", 0, 0, -1),
	}

	result, err := h.eventSvc.Query(r.Context(), query)
	if err != nil {
		h.logger.Error("failed to query events", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to query events")
		return
	}

	h.writeJSON(w, http.StatusOK, EventListResponse{
		Events:  result.Events,
		Total:   result.Total,
		Limit:   query.Limit,
		Offset:  query.Offset,
		HasMore: result.HasMore,
	})
}

// Recent handles GET /api/v1/events/recent
// Accepts the List filters and a limit (default 50, max 200).
func (h *EventHandler) Recent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter, err := parseEventFilter(q)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events := h.eventSvc.Recent(intParam(q, "limit", 50, 1, 200), filter)
	h.writeJSON(w, http.StatusOK, RecentEventsResponse{Events: events})
}

// Stats handles GET /api/v1/events/stats
func (h *EventHandler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.eventSvc.Stats())
}

// Stream handles GET /api/v1/events/stream
// Server-Sent Events endpoint for live activity. Accepts the List filters,
// so a page can pass ?form_id= to follow only its own form.
func (h *EventHandler) Stream(w http.ResponseWriter, r *http.Request) {
	filter, err := parseEventFilter(r.URL.Query())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stream, ok := startSSE(w)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	subID, eventCh := h.eventSvc.Subscribe(filter)
	defer h.eventSvc.Unsubscribe(subID)

	h.logger.Info("event stream connected", "subscriber_id", subID, "form_id", filter.FormID, "remote_addr", r.RemoteAddr)
	stream.send("connected", map[string]uint64{"subscriber_id": subID})

	keepalive := time.NewTicker(sseKeepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("event stream disconnected", "subscriber_id", subID)
			return

		case event, ok := <-eventCh:
			if !ok {
				return
			}
			if err := stream.send("event", event); err != nil {
				h.logger.Warn("failed to send event", "event_id", event.ID, "error", err)
			}

		case <-keepalive.C:
			stream.keepalive()
		}
	}
}

// Categories handles GET /api/v1/events/categories
func (h *EventHandler) Categories(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string][]domain.EventCategory{"categories": domain.EventCategories})
}

// Severities handles GET /api/v1/events/severities
func (h *EventHandler) Severities(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string][]domain.EventSeverity{"severities": domain.EventSeverities})
}

// parseEventFilter reads filter criteria from query parameters. Unknown
// severities or categories and malformed times are errors rather than
// being silently ignored.
func parseEventFilter(q url.Values) (domain.EventFilter, error) {
	filter := domain.EventFilter{
		FormID:     domain.FormID(q.Get("form_id")),
		SessionID:  domain.SessionID(q.Get("session_id")),
		Source:     q.Get("source"),
		SearchText: q.Get("search"),
	}

	if v := q.Get("severity"); v != "" {
		sev, ok := domain.ParseEventSeverity(v)
		if !ok {
			return filter, fmt.Errorf("unknown severity %q", v)
		}
		filter.Severity = &sev
	}
	if v := q.Get("category"); v != "" {
		cat, ok := domain.ParseEventCategory(v)
		if !ok {
			return filter, fmt.Errorf("unknown category %q", v)
		}
		filter.Category = &cat
	}

	for _, bound := range []struct {
		name string
		dst  **time.Time
	}{
		{"since", &filter.Since},
		{"until", &filter.Until},
	} {
		v := q.Get(bound.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("%s must be RFC3339", bound.name)
		}
		*bound.dst = &t
	}

	return filter, nil
}

// intParam parses an integer query parameter, falling back to def when it
// is missing, malformed or below lo. A positive hi caps the value.
func intParam(q url.Values, name string, def, lo, hi int) int {
	v, err := strconv.Atoi(q.Get(name))
	if err != nil || v < lo {
		return def
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}

func (h *EventHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *EventHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
