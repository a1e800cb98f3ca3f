package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iconidentify/mediaslayer/internal/domain"
)

const (
	defaultRingBufferSize = 1000
	defaultQueryLimit     = 50
	maxQueryLimit         = 200
	eventSubscriberBuffer = 100
)

// EventServiceConfig configures the event service.
type EventServiceConfig struct {
	// RingBufferSize is the number of events to keep in memory.
	RingBufferSize int
}

// EventService keeps the activity log in an in-memory ring buffer and fans
// new events out to SSE subscribers. Older events are overwritten once the
// buffer is full; nothing is persisted.
type EventService struct {
	size   int
	logger *slog.Logger

	mu         sync.RWMutex
	ring       []domain.Event
	next       int
	buffered   int
	emitted    int
	bySeverity map[domain.EventSeverity]int
	byCategory map[domain.EventCategory]int

	subMu  sync.RWMutex
	subs   map[uint64]*eventSubscriber
	subSeq uint64
}

type eventSubscriber struct {
	ch     chan domain.Event
	filter domain.EventFilter
}

// NewEventService creates a new event service.
func NewEventService(cfg EventServiceConfig, logger *slog.Logger) *EventService {
	size := cfg.RingBufferSize
	if size <= 0 {
		size = defaultRingBufferSize
	}

	return &EventService{
		size:       size,
		logger:     logger,
		ring:       make([]domain.Event, size),
		bySeverity: make(map[domain.EventSeverity]int),
		byCategory: make(map[domain.EventCategory]int),
		subs:       make(map[uint64]*eventSubscriber),
	}
}

// Emit records an event and forwards it to matching subscribers.
func (s *EventService) Emit(event domain.Event) {
	if event.ID == "" {
		event.ID = domain.EventID(uuid.NewString())
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	s.mu.Lock()
	s.ring[s.next] = event
	s.next = (s.next + 1) % s.size
	if s.buffered < s.size {
		s.buffered++
	}
	s.emitted++
	s.bySeverity[event.Severity]++
	s.byCategory[event.Category]++
	s.mu.Unlock()

	s.publish(event)

	level := slog.LevelInfo
	switch event.Severity {
	case domain.EventSeverityWarning:
		level = slog.LevelWarn
	case domain.EventSeverityError:
		level = slog.LevelError
	}
	attrs := []any{
		"event_id", event.ID,
		"category", event.Category,
		"message", event.Message,
	}
	if event.FormID != "" {
		attrs = append(attrs, "form_id", event.FormID)
	}
	if event.SessionID != "" {
		attrs = append(attrs, "session_id", event.SessionID)
	}
	s.logger.Log(context.Background(), level, "activity", attrs...)
}

// newestFirst calls fn for each buffered event from newest to oldest until
// fn returns false. The caller must hold s.mu.
func (s *EventService) newestFirst(fn func(domain.Event) bool) {
	for i := 1; i <= s.buffered; i++ {
		if !fn(s.ring[(s.next-i+s.size)%s.size]) {
			return
		}
	}
}

// Query returns events matching the filter, newest first, with pagination.
func (s *EventService) Query(ctx context.Context, query domain.EventQuery) (*domain.EventQueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}
	offset := max(query.Offset, 0)

	result := &domain.EventQueryResult{Events: []domain.Event{}}

	s.mu.RLock()
	defer s.mu.RUnlock()

	s.newestFirst(func(e domain.Event) bool {
		if !query.Filter.Matches(e) {
			return true
		}
		if result.Total >= offset && len(result.Events) < limit {
			result.Events = append(result.Events, e)
		}
		result.Total++
		return true
	})
	result.HasMore = offset+len(result.Events) < result.Total

	return result, nil
}

// Recent returns up to n of the newest events matching filter.
func (s *EventService) Recent(n int, filter domain.EventFilter) []domain.Event {
	if n <= 0 {
		n = defaultQueryLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]domain.Event, 0, min(n, s.buffered))
	s.newestFirst(func(e domain.Event) bool {
		if filter.Matches(e) {
			events = append(events, e)
		}
		return len(events) < n
	})
	return events
}

// Subscribe registers for new events matching filter. The caller must call
// Unsubscribe when done; Close also ends every subscription.
func (s *EventService) Subscribe(filter domain.EventFilter) (uint64, <-chan domain.Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.subSeq++
	id := s.subSeq
	sub := &eventSubscriber{
		ch:     make(chan domain.Event, eventSubscriberBuffer),
		filter: filter,
	}
	s.subs[id] = sub

	s.logger.Debug("event subscriber added", "subscriber_id", id, "form_id", filter.FormID, "subscribers", len(s.subs))
	return id, sub.ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *EventService) Unsubscribe(id uint64) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if sub, ok := s.subs[id]; ok {
		close(sub.ch)
		delete(s.subs, id)
		s.logger.Debug("event subscriber removed", "subscriber_id", id, "subscribers", len(s.subs))
	}
}

// SubscriberCount returns the number of active subscribers.
func (s *EventService) SubscriberCount() int {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	return len(s.subs)
}

// Close ends every subscription.
func (s *EventService) Close() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for id, sub := range s.subs {
		close(sub.ch)
		delete(s.subs, id)
	}
}

// publish never blocks; a subscriber that falls behind loses events.
func (s *EventService) publish(event domain.Event) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for id, sub := range s.subs {
		if !sub.filter.Matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			s.logger.Warn("event subscriber buffer full, dropping event", "subscriber_id", id, "event_id", event.ID)
		}
	}
}

// EventStats describes the activity log. Emitted and the per-severity and
// per-category counts cover the whole process lifetime, not just the
// buffered window.
type EventStats struct {
	BufferSize  int                          `json:"buffer_size"`
	Buffered    int                          `json:"buffered"`
	Emitted     int                          `json:"emitted"`
	BySeverity  map[domain.EventSeverity]int `json:"by_severity"`
	ByCategory  map[domain.EventCategory]int `json:"by_category"`
	Subscribers int                          `json:"subscribers"`
}

// Stats returns statistics about the activity log.
func (s *EventService) Stats() EventStats {
	s.mu.RLock()
	stats := EventStats{
		BufferSize: s.size,
		Buffered:   s.buffered,
		Emitted:    s.emitted,
		BySeverity: make(map[domain.EventSeverity]int, len(domain.EventSeverities)),
		ByCategory: make(map[domain.EventCategory]int, len(domain.EventCategories)),
	}
	for _, sev := range domain.EventSeverities {
		stats.BySeverity[sev] = s.bySeverity[sev]
	}
	for _, c := range domain.EventCategories {
		stats.ByCategory[c] = s.byCategory[c]
	}
	s.mu.RUnlock()

	stats.Subscribers = s.SubscriberCount()
	return stats
}
