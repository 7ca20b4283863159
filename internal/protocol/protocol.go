// Package protocol defines the terminal WebSocket wire format.
//
// Frames are text. Control messages are OSC sequences with a fixed prefix
// so a terminal emulator that sees one by accident ignores it:
//
//	server -> client  ESC ] lanterm;session;<id> BEL
//	                  ESC ] lanterm;not-found BEL
//	                  ESC ] lanterm;forbidden BEL
//	client -> server  ESC ] lanterm;resize;<cols>;<rows> BEL
//	                  ESC ] lanterm;session? BEL
//
// Any other frame is raw terminal data.
package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// Prefix opens every control frame.
	Prefix = "\x1b]lanterm;"
	// Terminator closes every control frame.
	Terminator = "\x07"
)

// Kind tags a Message.
type Kind int

const (
	KindData Kind = iota
	KindResize
	KindIdentifierQuery
	KindIdentifierAnnounce
	KindSessionNotFound
	KindSessionForbidden
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindResize:
		return "resize"
	case KindIdentifierQuery:
		return "identifier_query"
	case KindIdentifierAnnounce:
		return "identifier_announce"
	case KindSessionNotFound:
		return "session_not_found"
	case KindSessionForbidden:
		return "session_forbidden"
	default:
		return "unknown"
	}
}

// Message is a decoded frame. Only the fields relevant to Kind are set.
type Message struct {
	Kind      Kind
	Data      string
	Cols      uint16
	Rows      uint16
	SessionID string
}

// Data wraps raw terminal text.
func Data(s string) Message { return Message{Kind: KindData, Data: s} }

// Resize builds a resize request.
func Resize(cols, rows uint16) Message { return Message{Kind: KindResize, Cols: cols, Rows: rows} }

// IdentifierQuery asks the server to repeat the session identifier.
func IdentifierQuery() Message { return Message{Kind: KindIdentifierQuery} }

// Announce carries the session identifier to the client.
func Announce(id string) Message { return Message{Kind: KindIdentifierAnnounce, SessionID: id} }

// NotFound rejects an unknown session identifier.
func NotFound() Message { return Message{Kind: KindSessionNotFound} }

// Forbidden rejects a session owned by another client.
func Forbidden() Message { return Message{Kind: KindSessionForbidden} }

// IsControl reports whether the message is a control frame.
func (m Message) IsControl() bool {
	return m.Kind != KindData
}

// Encode renders m as a text frame.
func Encode(m Message) string {
	switch m.Kind {
	case KindResize:
		return fmt.Sprintf("%sresize;%d;%d%s", Prefix, m.Cols, m.Rows, Terminator)
	case KindIdentifierQuery:
		return Prefix + "session?" + Terminator
	case KindIdentifierAnnounce:
		return Prefix + "session;" + m.SessionID + Terminator
	case KindSessionNotFound:
		return Prefix + "not-found" + Terminator
	case KindSessionForbidden:
		return Prefix + "forbidden" + Terminator
	default:
		return m.Data
	}
}

// Decode parses a text frame. Frames that are not a well-formed control
// message, including malformed resize requests, decode as raw data so that
// keystrokes are never dropped.
func Decode(frame string) Message {
	if !strings.HasPrefix(frame, Prefix) || !strings.HasSuffix(frame, Terminator) {
		return Data(frame)
	}
	body := frame[len(Prefix) : len(frame)-len(Terminator)]

	switch {
	case body == "session?":
		return IdentifierQuery()
	case body == "not-found":
		return NotFound()
	case body == "forbidden":
		return Forbidden()
	case strings.HasPrefix(body, "session;"):
		id := strings.TrimPrefix(body, "session;")
		if id == "" || strings.ContainsAny(id, ";\x07\x1b") {
			return Data(frame)
		}
		return Announce(id)
	case strings.HasPrefix(body, "resize;"):
		parts := strings.Split(strings.TrimPrefix(body, "resize;"), ";")
		if len(parts) != 2 {
			return Data(frame)
		}
		cols, err1 := strconv.ParseUint(parts[0], 10, 16)
		rows, err2 := strconv.ParseUint(parts[1], 10, 16)
		if err1 != nil || err2 != nil || cols == 0 || rows == 0 {
			return Data(frame)
		}
		return Resize(uint16(cols), uint16(rows))
	}
	return Data(frame)
}
