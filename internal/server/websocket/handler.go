package websocket

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/brianly1003/lanterm/internal/protocol"
	"github.com/brianly1003/lanterm/internal/security"
	"github.com/brianly1003/lanterm/internal/session"
)

// Input rate defaults per connection, in frames per second.
const (
	DefaultInputRate  = 1000
	DefaultInputBurst = 100
)

// Handler upgrades /ws requests and attaches each connection to a terminal
// session. Query parameters: cwd, cols, rows, sessionId, clientId.
type Handler struct {
	sessions *session.Manager
	upgrader websocket.Upgrader

	inputRate  rate.Limit
	inputBurst int

	mu       sync.RWMutex
	clients  map[string]*Client
	sessOf   map[string]string // client id -> session id
	limiters map[string]*rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Handler.
type Option func(*Handler)

// WithInputRate limits how many frames per second a connection may send to
// its shell. A non-positive rate disables the limit.
func WithInputRate(perSecond float64, burst int) Option {
	return func(h *Handler) {
		if perSecond <= 0 {
			h.inputRate = rate.Inf
			return
		}
		h.inputRate = rate.Limit(perSecond)
		if burst > 0 {
			h.inputBurst = burst
		}
	}
}

// NewHandler creates a WebSocket terminal handler. A nil origins checker
// accepts only same-host and loopback origins.
func NewHandler(sessions *session.Manager, origins *security.OriginChecker, opts ...Option) *Handler {
	if origins == nil {
		origins = security.NewOriginChecker(nil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handler{
		sessions:   sessions,
		inputRate:  DefaultInputRate,
		inputBurst: DefaultInputBurst,
		clients:    make(map[string]*Client),
		sessOf:     make(map[string]string),
		limiters:   make(map[string]*rate.Limiter),
		ctx:        ctx,
		cancel:     cancel,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     origins.CheckOrigin,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := session.AttachRequest{
		SessionID: q.Get("sessionId"),
		ClientID:  q.Get("clientId"),
		Cwd:       q.Get("cwd"),
		Cols:      parseDimension(q.Get("cols")),
		Rows:      parseDimension(q.Get("rows")),
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("failed to upgrade connection")
		return
	}

	client := NewClient(conn, h.handleFrame, h.removeClient)
	go client.writePump()

	s, err := h.sessions.Attach(client, req)
	if err != nil {
		log.Info().
			Err(err).
			Str("client_id", client.ID()).
			Str("session_id", req.SessionID).
			Str("remote_addr", r.RemoteAddr).
			Msg("terminal attach rejected")
		// not-found and forbidden were already sent; anything else is reported
		// as terminal text
		_ = client.Send(protocol.Data("\r\nlanterm: " + err.Error() + "\r\n"))
		client.Close()
		return
	}

	h.mu.Lock()
	h.clients[client.ID()] = client
	h.sessOf[client.ID()] = s.ID
	h.limiters[client.ID()] = rate.NewLimiter(h.inputRate, h.inputBurst)
	h.mu.Unlock()

	log.Info().
		Str("client_id", client.ID()).
		Str("session_id", s.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("terminal connected")

	go client.readPump()
}

// handleFrame routes one decoded frame from a client to its session.
func (h *Handler) handleFrame(c *Client, m protocol.Message) {
	h.mu.RLock()
	id := h.sessOf[c.ID()]
	limiter := h.limiters[c.ID()]
	h.mu.RUnlock()
	if id == "" {
		return
	}

	var err error
	switch m.Kind {
	case protocol.KindData:
		if limiter != nil {
			if werr := limiter.Wait(h.ctx); werr != nil {
				return
			}
		}
		err = h.sessions.Input(id, []byte(m.Data))
	case protocol.KindResize:
		err = h.sessions.Resize(id, m.Cols, m.Rows)
	case protocol.KindIdentifierQuery:
		err = c.Send(protocol.Announce(id))
	default:
		log.Debug().Str("client_id", c.ID()).Str("kind", m.Kind.String()).Msg("ignoring server-only frame from client")
		return
	}
	if err != nil {
		log.Debug().Err(err).Str("client_id", c.ID()).Str("session_id", id).Msg("terminal frame failed")
		if h.sessions.Get(id) == nil {
			c.Close()
		}
	}
}

// removeClient detaches a disconnected client. The session keeps running.
func (h *Handler) removeClient(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.ID()]
	delete(h.clients, c.ID())
	delete(h.sessOf, c.ID())
	delete(h.limiters, c.ID())
	h.mu.Unlock()
	if !ok {
		return
	}
	h.sessions.Detach(c)
	log.Info().Str("client_id", c.ID()).Msg("terminal disconnected")
}

// ClientCount returns the number of connected clients.
func (h *Handler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SetInputRate changes the per-connection input limit for all clients.
func (h *Handler) SetInputRate(perSecond float64, burst int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	WithInputRate(perSecond, burst)(h)
	for _, l := range h.limiters {
		l.SetLimit(h.inputRate)
		l.SetBurst(h.inputBurst)
	}
}

// Close disconnects every client. Sessions are left to the session manager.
func (h *Handler) Close() {
	h.cancel()
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.Close()
	}
}

// parseDimension parses a terminal dimension; anything invalid is zero,
// which selects the default.
func parseDimension(s string) uint16 {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0
	}
	return uint16(n)
}
