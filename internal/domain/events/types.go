// Package events defines all event types used in lanterm.
package events

import (
	"encoding/json"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Terminal session events
	EventTypeSessionCreated    EventType = "session_created"
	EventTypeSessionAttached   EventType = "session_attached"
	EventTypeSessionDetached   EventType = "session_detached"
	EventTypeSessionTerminated EventType = "session_terminated"
	EventTypeSessionReaped     EventType = "session_reaped"
	EventTypeSessionEnded      EventType = "session_ended" // shell exited on its own

	// Filesystem events
	EventTypeFileOperation    EventType = "file_operation"
	EventTypeArchiveExtracted EventType = "archive_extracted"

	// Git events
	EventTypeGitOperation EventType = "git_operation"

	// Command runner events
	EventTypeCommandExecuted EventType = "command_executed"
)

// Event is the base interface for all events.
type Event interface {
	// Type returns the event type.
	Type() EventType

	// Timestamp returns when the event occurred.
	Timestamp() time.Time

	// ToJSON serializes the event to JSON.
	ToJSON() ([]byte, error)

	// GetSessionID returns the terminal session ID (may be empty).
	GetSessionID() string

	// GetPayload returns the event payload.
	GetPayload() interface{}
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	EventType EventType   `json:"event"`
	EventTime time.Time   `json:"timestamp"`
	SessionID string      `json:"session_id,omitempty"`
	Payload   interface{} `json:"payload"`
	RequestID string      `json:"request_id,omitempty"`
}

// GetSessionID returns the session ID.
func (e *BaseEvent) GetSessionID() string {
	return e.SessionID
}

// GetPayload returns the event payload.
func (e *BaseEvent) GetPayload() interface{} {
	return e.Payload
}

// Type returns the event type.
func (e *BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e *BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// ToJSON serializes the event to JSON.
func (e *BaseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// NewEvent creates a new base event with the given type and payload.
func NewEvent(eventType EventType, payload interface{}) *BaseEvent {
	return &BaseEvent{
		EventType: eventType,
		EventTime: time.Now().UTC(),
		Payload:   payload,
	}
}

// NewEventWithRequestID creates a new event with a request ID for correlation.
func NewEventWithRequestID(eventType EventType, payload interface{}, requestID string) *BaseEvent {
	e := NewEvent(eventType, payload)
	e.RequestID = requestID
	return e
}

// NewSessionScopedEvent creates a new event tied to a terminal session.
func NewSessionScopedEvent(eventType EventType, payload interface{}, sessionID string) *BaseEvent {
	e := NewEvent(eventType, payload)
	e.SessionID = sessionID
	return e
}

// Outcome values recorded on operation payloads.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)
