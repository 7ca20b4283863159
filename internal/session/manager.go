package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brianly1003/lanterm/internal/domain"
	"github.com/brianly1003/lanterm/internal/domain/events"
	"github.com/brianly1003/lanterm/internal/domain/ports"
	"github.com/brianly1003/lanterm/internal/protocol"
	"github.com/brianly1003/lanterm/internal/sandbox"
	"github.com/brianly1003/lanterm/internal/terminal"
)

const (
	// DefaultIdleTimeout is how long a session may go without activity.
	DefaultIdleTimeout = 24 * time.Hour
	// DefaultReapInterval is how often idle sessions are swept.
	DefaultReapInterval = time.Hour
	// DefaultFrameChars bounds a single replay frame.
	DefaultFrameChars = 16 * 1024
	// MaxReplayFrames bounds how many frames a full replay is split into.
	// A Socket must be able to queue MaxReplayFrames+1 messages without
	// dropping so the replay and the identifier announcement both arrive.
	MaxReplayFrames = 512

	readBufferSize = 32 * 1024
)

// Options configures a Manager.
type Options struct {
	Shell          string
	MaxBufferChars int
	FrameChars     int
	IdleTimeout    time.Duration
	ReapInterval   time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxBufferChars <= 0 {
		o.MaxBufferChars = DefaultMaxBufferChars
	}
	if o.FrameChars <= 0 {
		o.FrameChars = DefaultFrameChars
	}
	if floor := (o.MaxBufferChars + MaxReplayFrames - 1) / MaxReplayFrames; o.FrameChars < floor {
		o.FrameChars = floor
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	if o.ReapInterval <= 0 {
		o.ReapInterval = DefaultReapInterval
	}
	return o
}

// AttachRequest is what a connecting socket asks for.
type AttachRequest struct {
	SessionID string
	ClientID  string
	Cwd       string
	Cols      uint16
	Rows      uint16
}

// Manager is the session registry and PTY multiplexer.
//
// Lock order: the registry lock (mu) is never held while a session lock is
// taken, and no two session locks are ever held together.
type Manager struct {
	sb        *sandbox.Sandbox
	spawn     terminal.Spawner
	publisher ports.EventPublisher
	logger    *slog.Logger
	opts      Options

	mu       sync.RWMutex
	sessions map[string]*Session
	bySocket map[string]string // socket id -> session id

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a session manager. A nil spawn uses terminal.StartShell.
func NewManager(sb *sandbox.Sandbox, spawn terminal.Spawner, publisher ports.EventPublisher, logger *slog.Logger, opts Options) *Manager {
	if spawn == nil {
		spawn = terminal.StartShell
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		sb:        sb,
		spawn:     spawn,
		publisher: publisher,
		logger:    logger,
		opts:      opts.withDefaults(),
		sessions:  make(map[string]*Session),
		bySocket:  make(map[string]string),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start starts the idle reaper.
func (m *Manager) Start() error {
	m.logger.Info("Starting session manager",
		"idle_timeout", m.opts.IdleTimeout,
		"reap_interval", m.opts.ReapInterval,
		"max_buffer_chars", m.opts.MaxBufferChars,
	)
	m.wg.Add(1)
	go m.idleMonitor()
	return nil
}

// Stop terminates every session and stops the reaper.
func (m *Manager) Stop() error {
	m.logger.Info("Stopping session manager")
	m.cancel()
	n := m.TerminateAll("")
	m.wg.Wait()
	if n > 0 {
		m.logger.Info("Terminated sessions on shutdown", "count", n)
	}
	return nil
}

// Create spawns a shell in cwd and registers it.
func (m *Manager) Create(cwd string, cols, rows uint16, clientID string) (*Session, error) {
	dir, err := m.sb.ResolveDir(cwd)
	if err != nil {
		return nil, err
	}
	if cols == 0 {
		cols = terminal.DefaultCols
	}
	if rows == 0 {
		rows = terminal.DefaultRows
	}

	proc, err := m.spawn(terminal.SpawnOptions{
		Dir:   dir.Abs,
		Shell: m.opts.Shell,
		Cols:  cols,
		Rows:  rows,
	})
	if err != nil {
		return nil, fmt.Errorf("spawn shell in %s: %w", dir.Rel, err)
	}

	s := newSession(uuid.NewString(), dir.Rel, clientID, cols, rows, proc, m.opts.MaxBufferChars)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	go m.readLoop(s)
	go m.broadcastLoop(s)

	m.logger.Info("Session created", "session_id", s.ID, "cwd", s.Cwd, "pid", proc.Pid(), "client_id", clientID)
	m.publish(events.EventTypeSessionCreated, events.SessionPayload{
		SessionID: s.ID,
		ClientID:  clientID,
		Cwd:       s.Cwd,
		Cols:      cols,
		Rows:      rows,
		Pid:       proc.Pid(),
	})
	return s, nil
}

// Attach connects sock to a session following the reconnection protocol:
// an empty SessionID always creates a new session; a known SessionID is
// joined if the client owns it (an unowned session is adopted); an unknown
// SessionID is rejected. On rejection the socket is told why and closed.
func (m *Manager) Attach(sock Socket, req AttachRequest) (*Session, error) {
	if req.SessionID == "" {
		s, err := m.Create(req.Cwd, req.Cols, req.Rows, req.ClientID)
		if err != nil {
			return nil, err
		}
		if err := m.join(s, sock, req.ClientID); err != nil {
			return nil, err
		}
		return s, nil
	}

	s := m.Get(req.SessionID)
	if s == nil {
		m.reject(sock, protocol.NotFound())
		return nil, fmt.Errorf("%s: %w", req.SessionID, domain.ErrSessionNotFound)
	}
	if err := m.join(s, sock, req.ClientID); err != nil {
		return nil, err
	}
	if req.Cols > 0 && req.Rows > 0 {
		_ = m.Resize(s.ID, req.Cols, req.Rows)
	}
	return s, nil
}

// join adds sock to s. The replay frames are queued on the socket and the
// socket is registered under the session lock, which the broadcast loop also
// holds while appending, so the socket sees the buffer and then live output
// with nothing missed or repeated.
func (m *Manager) join(s *Session, sock Socket, clientID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		m.reject(sock, protocol.NotFound())
		return fmt.Errorf("%s: %w", s.ID, domain.ErrSessionNotFound)
	}
	switch {
	case s.clientID == "":
		s.clientID = clientID
	case s.clientID != clientID:
		s.mu.Unlock()
		m.logger.Warn("Rejected attach from another client", "session_id", s.ID, "client_id", clientID)
		m.reject(sock, protocol.Forbidden())
		return fmt.Errorf("%s: %w", s.ID, domain.ErrSessionForbidden)
	}

	for _, frame := range s.replay.Frames(m.opts.FrameChars) {
		if err := sock.Send(protocol.Data(frame)); err != nil {
			m.logger.Debug("Replay frame dropped", "session_id", s.ID, "socket_id", sock.ID(), "error", err)
		}
	}
	_ = sock.Send(protocol.Announce(s.ID))
	s.sockets[sock.ID()] = sock
	s.touch()
	attached := len(s.sockets)
	owner := s.clientID
	s.mu.Unlock()

	m.mu.Lock()
	m.bySocket[sock.ID()] = s.ID
	m.mu.Unlock()

	m.logger.Debug("Socket attached", "session_id", s.ID, "socket_id", sock.ID(), "sockets", attached)
	m.publish(events.EventTypeSessionAttached, events.SessionPayload{
		SessionID: s.ID,
		ClientID:  owner,
		SocketID:  sock.ID(),
		Sockets:   attached,
	})
	return nil
}

func (m *Manager) reject(sock Socket, msg protocol.Message) {
	_ = sock.Send(msg)
	sock.Close()
}

// Detach removes sock from its session. The session keeps running.
func (m *Manager) Detach(sock Socket) {
	m.mu.Lock()
	id, ok := m.bySocket[sock.ID()]
	delete(m.bySocket, sock.ID())
	s := m.sessions[id]
	m.mu.Unlock()
	if !ok || s == nil {
		return
	}

	s.mu.Lock()
	delete(s.sockets, sock.ID())
	s.touch()
	remaining := len(s.sockets)
	s.mu.Unlock()

	m.logger.Debug("Socket detached", "session_id", id, "socket_id", sock.ID(), "sockets", remaining)
	m.publish(events.EventTypeSessionDetached, events.SessionPayload{
		SessionID: id,
		SocketID:  sock.ID(),
		Sockets:   remaining,
	})
}

// Input writes keystrokes to the session's shell.
func (m *Manager) Input(id string, data []byte) error {
	s := m.Get(id)
	if s == nil {
		return fmt.Errorf("%s: %w", id, domain.ErrSessionNotFound)
	}
	s.mu.Lock()
	s.touch()
	s.mu.Unlock()
	if _, err := s.proc.Write(data); err != nil {
		return fmt.Errorf("write to session %s: %w", id, err)
	}
	return nil
}

// Resize changes the session's terminal geometry.
func (m *Manager) Resize(id string, cols, rows uint16) error {
	if cols == 0 || rows == 0 {
		return domain.NewValidationError("size", "cols and rows must be positive")
	}
	s := m.Get(id)
	if s == nil {
		return fmt.Errorf("%s: %w", id, domain.ErrSessionNotFound)
	}
	s.mu.Lock()
	s.cols, s.rows = cols, rows
	s.touch()
	s.mu.Unlock()
	return s.proc.Resize(cols, rows)
}

// Terminate kills a session's shell and closes its sockets.
func (m *Manager) Terminate(id string) error {
	if !m.terminate(id, events.EventTypeSessionTerminated, "terminated") {
		return fmt.Errorf("%s: %w", id, domain.ErrSessionNotFound)
	}
	return nil
}

// TerminateAll terminates every session, or only those owned by clientID
// when it is non-empty. It returns how many were terminated.
func (m *Manager) TerminateAll(clientID string) int {
	n := 0
	for _, info := range m.List(clientID) {
		if m.terminate(info.ID, events.EventTypeSessionTerminated, "terminated") {
			n++
		}
	}
	return n
}

func (m *Manager) terminate(id string, eventType events.EventType, reason string) bool {
	s := m.remove(id)
	if s == nil {
		return false
	}

	s.mu.Lock()
	s.terminated = true
	s.mu.Unlock()

	if err := s.proc.Kill(); err != nil {
		m.logger.Warn("Failed to kill session process", "session_id", id, "error", err)
	}
	_ = s.proc.Close()
	sockets := s.closeSockets()

	m.logger.Info("Session "+reason, "session_id", id, "sockets_closed", len(sockets))
	m.publish(eventType, events.SessionPayload{
		SessionID: id,
		ClientID:  s.ClientID(),
		Cwd:       s.Cwd,
		Reason:    reason,
	})
	return true
}

// remove unregisters a session and its socket index entries.
func (m *Manager) remove(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	delete(m.sessions, id)
	for sockID, sessID := range m.bySocket {
		if sessID == id {
			delete(m.bySocket, sockID)
		}
	}
	return s
}

// Get returns a session by id, or nil.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// List returns all sessions, or only those owned by clientID when it is
// non-empty.
func (m *Manager) List(clientID string) []Info {
	infos := make([]Info, 0)
	for _, s := range m.snapshot() {
		info := s.ToInfo()
		if clientID != "" && info.ClientID != clientID {
			continue
		}
		infos = append(infos, info)
	}
	return infos
}

// History returns a session's replay buffer.
func (m *Manager) History(id string) (string, error) {
	s := m.Get(id)
	if s == nil {
		return "", fmt.Errorf("%s: %w", id, domain.ErrSessionNotFound)
	}
	return s.History(), nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// snapshot copies the registry so callers can take session locks without
// holding the registry lock.
func (m *Manager) snapshot() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// readLoop turns PTY output into text chunks for the broadcast loop.
func (m *Manager) readLoop(s *Session) {
	defer close(s.output)
	var dec utf8Decoder
	buf := make([]byte, readBufferSize)
	for {
		n, err := s.proc.Read(buf)
		if n > 0 {
			if text := dec.Decode(buf[:n]); text != "" {
				s.output <- text
			}
		}
		if err != nil {
			if rest := dec.Flush(); rest != "" {
				s.output <- rest
			}
			if err != io.EOF {
				m.logger.Debug("PTY read ended", "session_id", s.ID, "error", err)
			}
			return
		}
	}
}

// broadcastLoop owns the session's fan-out. When the output stream ends the
// shell has exited; the session is removed and its sockets closed.
func (m *Manager) broadcastLoop(s *Session) {
	for chunk := range s.output {
		s.broadcast(chunk, func(sock Socket, err error) {
			m.logger.Debug("Skipped slow socket", "session_id", s.ID, "socket_id", sock.ID(), "error", err)
		})
	}

	_ = s.proc.Wait()

	s.mu.Lock()
	terminated := s.terminated
	s.mu.Unlock()
	if terminated {
		return
	}

	if m.remove(s.ID) == nil {
		return
	}
	_ = s.proc.Close()
	sockets := s.closeSockets()
	m.logger.Info("Session ended", "session_id", s.ID, "sockets_closed", len(sockets))
	m.publish(events.EventTypeSessionEnded, events.SessionPayload{
		SessionID: s.ID,
		ClientID:  s.ClientID(),
		Cwd:       s.Cwd,
		Reason:    "process exited",
	})
}

// idleMonitor periodically reaps idle sessions.
func (m *Manager) idleMonitor() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.opts.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.ReapIdle(time.Now().UTC())
		}
	}
}

// ReapIdle terminates sessions whose last activity is older than the idle
// timeout at now, whether or not sockets are attached. It returns how many
// were reaped.
func (m *Manager) ReapIdle(now time.Time) int {
	n := 0
	for _, s := range m.snapshot() {
		idle := now.Sub(s.LastActivity())
		if idle <= m.opts.IdleTimeout {
			continue
		}
		m.logger.Info("Reaping idle session", "session_id", s.ID, "idle_duration", idle)
		if m.terminate(s.ID, events.EventTypeSessionReaped, "reaped") {
			n++
		}
	}
	return n
}

func (m *Manager) publish(t events.EventType, p events.SessionPayload) {
	if m.publisher == nil {
		return
	}
	m.publisher.Publish(events.NewSessionEvent(t, p))
}
