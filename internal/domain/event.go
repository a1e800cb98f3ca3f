package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// EventID is a unique identifier for an event.
type EventID string

// String returns the string representation of the EventID.
func (id EventID) String() string {
	return string(id)
}

// EventSeverity represents the severity level of an event.
type EventSeverity string

const (
	EventSeverityInfo    EventSeverity = "info"
	EventSeveritySuccess EventSeverity = "success"
	EventSeverityWarning EventSeverity = "warning"
	EventSeverityError   EventSeverity = "error"
)

// EventSeverities lists every severity, least severe first.
var EventSeverities = []EventSeverity{
	EventSeverityInfo,
	EventSeveritySuccess,
	EventSeverityWarning,
	EventSeverityError,
}

// ParseEventSeverity converts s into an EventSeverity.
func ParseEventSeverity(s string) (EventSeverity, bool) {
	for _, sev := range EventSeverities {
		if string(sev) == s {
			return sev, true
		}
	}
	return "", false
}

// EventCategory groups events for filtering.
type EventCategory string

const (
	// EventCategoryForm covers form creation and removal.
	EventCategoryForm EventCategory = "form"
	// EventCategorySession covers submits and simulated sessions.
	EventCategorySession EventCategory = "session"
	// EventCategorySystem covers process lifecycle.
	EventCategorySystem EventCategory = "system"
)

// EventCategories lists every category.
var EventCategories = []EventCategory{
	EventCategoryForm,
	EventCategorySession,
	EventCategorySystem,
}

// ParseEventCategory converts s into an EventCategory.
func ParseEventCategory(s string) (EventCategory, bool) {
	for _, c := range EventCategories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Event is one entry in the activity log. Form and session events carry
// the IDs they concern so a page can follow only its own form.
type Event struct {
	ID        EventID         `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Severity  EventSeverity   `json:"severity"`
	Category  EventCategory   `json:"category"`
	Message   string          `json:"message"`
	FormID    FormID          `json:"form_id,omitempty"`
	SessionID SessionID       `json:"session_id,omitempty"`
	Source    string          `json:"source,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// NewEvent starts an event. The log assigns ID and timestamp on Emit.
func NewEvent(severity EventSeverity, category EventCategory, message string) Event {
	return Event{
		Severity: severity,
		Category: category,
		Message:  message,
	}
}

// From sets the emitting component.
func (e Event) From(source string) Event {
	e.Source = source
	return e
}

// ForForm ties the event to a form.
func (e Event) ForForm(id FormID) Event {
	e.FormID = id
	return e
}

// ForSession ties the event to the form and session of snap.
func (e Event) ForSession(snap FormSnapshot) Event {
	e.FormID = snap.ID
	e.SessionID = snap.SessionID
	return e
}

// With attaches metadata. A nil map leaves the event without metadata.
func (e Event) With(meta EventMetadata) Event {
	e.Metadata = meta.ToJSON()
	return e
}

// EventMetadata is a helper type for building event metadata.
type EventMetadata map[string]interface{}

// ToJSON converts metadata to JSON.
func (m EventMetadata) ToJSON() json.RawMessage {
	if m == nil {
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return data
}

// EventFilter specifies criteria for querying or streaming events. Zero
// fields match everything.
type EventFilter struct {
	Severity   *EventSeverity `json:"severity,omitempty"`
	Category   *EventCategory `json:"category,omitempty"`
	FormID     FormID         `json:"form_id,omitempty"`
	SessionID  SessionID      `json:"session_id,omitempty"`
	Source     string         `json:"source,omitempty"`
	Since      *time.Time     `json:"since,omitempty"`
	Until      *time.Time     `json:"until,omitempty"`
	SearchText string         `json:"search_text,omitempty"`
}

// Matches reports whether e satisfies every criterion set in the filter.
// SearchText matches the message case-insensitively.
func (f EventFilter) Matches(e Event) bool {
	switch {
	case f.Severity != nil && e.Severity != *f.Severity:
		return false
	case f.Category != nil && e.Category != *f.Category:
		return false
	case f.FormID != "" && e.FormID != f.FormID:
		return false
	case f.SessionID != "" && e.SessionID != f.SessionID:
		return false
	case f.Source != "" && e.Source != f.Source:
		return false
	case f.Since != nil && e.Timestamp.Before(*f.Since):
		return false
	case f.Until != nil && e.Timestamp.After(*f.Until):
		return false
	case f.SearchText != "" && !strings.Contains(strings.ToLower(e.Message), strings.ToLower(f.SearchText)):
		return false
	}
	return true
}

// EventEmitter is implemented by components that record events.
type EventEmitter interface {
	Emit(event Event)
}

// EventQuery represents a query for events with pagination.
type EventQuery struct {
	Filter EventFilter `json:"filter"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// EventQueryResult contains the result of an event query.
type EventQueryResult struct {
	Events  []Event `json:"events"`
	Total   int     `json:"total"`
	HasMore bool    `json:"has_more"`
}
