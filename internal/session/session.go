// Package session multiplexes interactive PTY shells across WebSocket
// connections. Sessions outlive the sockets attached to them: a client that
// reconnects with its session identifier gets the replay buffer followed by
// live output.
package session

import (
	"sync"
	"time"

	"github.com/brianly1003/lanterm/internal/protocol"
	"github.com/brianly1003/lanterm/internal/terminal"
)

// Socket is an attached client connection. Send must not block: a socket
// whose outbound queue is full returns an error and misses that chunk. A
// freshly attached socket must accept MaxReplayFrames+1 messages.
type Socket interface {
	ID() string
	Send(m protocol.Message) error
	Close()
}

// Session is one live shell and the sockets attached to it.
type Session struct {
	ID        string
	Cwd       string // relative to the sandbox root
	CreatedAt time.Time

	proc   terminal.Process
	output chan string

	mu           sync.Mutex
	clientID     string
	cols         uint16
	rows         uint16
	lastActivity time.Time
	replay       *ReplayBuffer
	sockets      map[string]Socket
	closed       bool
	terminated   bool // killed by Terminate or the reaper, not a natural exit
}

func newSession(id, cwd, clientID string, cols, rows uint16, proc terminal.Process, maxChars int) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           id,
		Cwd:          cwd,
		CreatedAt:    now,
		proc:         proc,
		output:       make(chan string, 64),
		clientID:     clientID,
		cols:         cols,
		rows:         rows,
		lastActivity: now,
		replay:       NewReplayBuffer(maxChars),
		sockets:      make(map[string]Socket),
	}
}

// Info is a serializable snapshot of a session.
type Info struct {
	ID           string    `json:"id"`
	ClientID     string    `json:"client_id,omitempty"`
	Cwd          string    `json:"cwd"`
	Cols         uint16    `json:"cols"`
	Rows         uint16    `json:"rows"`
	Pid          int       `json:"pid"`
	Sockets      int       `json:"sockets"`
	BufferChars  int       `json:"buffer_chars"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// ToInfo returns a serializable session info.
func (s *Session) ToInfo() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:           s.ID,
		ClientID:     s.clientID,
		Cwd:          s.Cwd,
		Cols:         s.cols,
		Rows:         s.rows,
		Pid:          s.proc.Pid(),
		Sockets:      len(s.sockets),
		BufferChars:  s.replay.Len(),
		CreatedAt:    s.CreatedAt,
		LastActivity: s.lastActivity,
	}
}

// ClientID returns the owning client identifier.
func (s *Session) ClientID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientID
}

// LastActivity returns the last activity timestamp.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// touch refreshes the activity timestamp. Callers hold s.mu.
func (s *Session) touch() {
	s.lastActivity = time.Now().UTC()
}

// History returns the replay buffer contents.
func (s *Session) History() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replay.String()
}

// broadcast appends chunk to the replay buffer and fans it out. It runs on
// the session's single broadcast goroutine, so chunks reach every socket in
// production order.
func (s *Session) broadcast(chunk string, onSkip func(sock Socket, err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replay.Append(chunk)
	msg := protocol.Data(chunk)
	for _, sock := range s.sockets {
		if err := sock.Send(msg); err != nil && onSkip != nil {
			onSkip(sock, err)
		}
	}
}

// closeSockets marks the session closed and closes every attached socket.
func (s *Session) closeSockets() []string {
	s.mu.Lock()
	socks := make([]Socket, 0, len(s.sockets))
	ids := make([]string, 0, len(s.sockets))
	for id, sock := range s.sockets {
		socks = append(socks, sock)
		ids = append(ids, id)
	}
	s.sockets = make(map[string]Socket)
	s.closed = true
	s.mu.Unlock()

	for _, sock := range socks {
		sock.Close()
	}
	return ids
}
