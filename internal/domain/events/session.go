package events

// SessionPayload is the payload for terminal session lifecycle events.
type SessionPayload struct {
	SessionID string `json:"session_id"`
	ClientID  string `json:"client_id,omitempty"`
	Cwd       string `json:"cwd,omitempty"`
	Cols      uint16 `json:"cols,omitempty"`
	Rows      uint16 `json:"rows,omitempty"`
	Pid       int    `json:"pid,omitempty"`
	SocketID  string `json:"socket_id,omitempty"`
	Sockets   int    `json:"sockets"`
	Reason    string `json:"reason,omitempty"`
}

// NewSessionEvent creates a terminal session lifecycle event.
func NewSessionEvent(eventType EventType, p SessionPayload) *BaseEvent {
	return NewSessionScopedEvent(eventType, p, p.SessionID)
}
