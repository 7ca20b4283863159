// Package websocket carries terminal sessions over WebSocket connections.
//
// Each connection is a Client with two goroutines:
//   - readPump decodes incoming frames and hands them to the handler
//   - writePump drains the outbound queue and sends pings
//
// Outbound frames are queued without blocking. A client whose queue is full
// misses frames instead of stalling the session that feeds it.
package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/brianly1003/lanterm/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 15 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 90 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer.
	maxMessageSize = 512 * 1024

	// Outbound queue length per client. Must exceed session.MaxReplayFrames.
	sendBufferSize = 1024
)

var (
	// ErrBufferFull is returned by Send when the client is too slow.
	ErrBufferFull = errors.New("send buffer full")
	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("client closed")
)

// FrameHandler receives every decoded frame read from a client.
type FrameHandler func(c *Client, m protocol.Message)

// Client is one terminal WebSocket connection. It implements session.Socket.
type Client struct {
	id      string
	conn    *websocket.Conn
	send    chan string
	done    chan struct{}
	onFrame FrameHandler
	onClose func(c *Client)

	mu     sync.Mutex
	closed bool

	closeOnce sync.Once
}

// NewClient creates a new WebSocket client.
func NewClient(conn *websocket.Conn, onFrame FrameHandler, onClose func(c *Client)) *Client {
	return &Client{
		id:      uuid.NewString(),
		conn:    conn,
		send:    make(chan string, sendBufferSize),
		done:    make(chan struct{}),
		onFrame: onFrame,
		onClose: onClose,
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() string {
	return c.id
}

// Send queues m for delivery. It never blocks.
func (c *Client) Send(m protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	select {
	case c.send <- protocol.Encode(m):
		return nil
	default:
		log.Warn().Str("client_id", c.id).Msg("client send buffer full, dropping frame")
		return ErrBufferFull
	}
}

// Close stops the client. Frames already queued are still written before
// the close frame.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

// Done returns a channel that's closed when the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// readPump decodes frames from the connection until it fails.
func (c *Client) readPump() {
	defer func() {
		c.Close()
		_ = c.conn.Close()
		c.closeOnce.Do(func() {
			if c.onClose != nil {
				c.onClose(c)
			}
		})
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("client_id", c.id).Msg("websocket read error")
			}
			return
		}
		if c.onFrame != nil {
			c.onFrame(c, protocol.Decode(string(data)))
		}
	}
}

// writePump writes queued frames to the connection. Each frame is a
// separate text message.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.drain()
			return

		case frame := <-c.send:
			if !c.write(frame) {
				c.Close()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("client_id", c.id).Msg("ping error")
				c.Close()
				return
			}
		}
	}
}

// drain writes whatever is still queued, such as a rejection notice sent
// just before Close.
func (c *Client) drain() {
	for {
		select {
		case frame := <-c.send:
			if !c.write(frame) {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(frame string) bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		log.Debug().Err(err).Str("client_id", c.id).Msg("write error")
		return false
	}
	return true
}
