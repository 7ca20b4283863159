package testutil

import (
	"errors"
	"strings"
	"sync"

	"github.com/brianly1003/lanterm/internal/protocol"
)

// ErrQueueFull is returned by FakeSocket.Send when its capacity is reached.
var ErrQueueFull = errors.New("fake socket queue full")

// FakeSocket records the messages sent to it. A positive Capacity makes
// Send fail once that many messages are queued, imitating a slow client.
type FakeSocket struct {
	id       string
	Capacity int

	mu       sync.Mutex
	messages []protocol.Message
	closed   bool
}

// NewFakeSocket creates an unbounded FakeSocket.
func NewFakeSocket(id string) *FakeSocket {
	return &FakeSocket{id: id}
}

// ID returns the socket id.
func (s *FakeSocket) ID() string { return s.id }

// Send records m without blocking.
func (s *FakeSocket) Send(m protocol.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("fake socket closed")
	}
	if s.Capacity > 0 && len(s.messages) >= s.Capacity {
		return ErrQueueFull
	}
	s.messages = append(s.messages, m)
	return nil
}

// Close marks the socket closed.
func (s *FakeSocket) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Closed reports whether Close was called.
func (s *FakeSocket) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Messages returns a copy of everything sent.
func (s *FakeSocket) Messages() []protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.Message(nil), s.messages...)
}

// Output concatenates the data messages received so far.
func (s *FakeSocket) Output() string {
	var b strings.Builder
	for _, m := range s.Messages() {
		if m.Kind == protocol.KindData {
			b.WriteString(m.Data)
		}
	}
	return b.String()
}

// Has reports whether a message of kind k was received.
func (s *FakeSocket) Has(k protocol.Kind) bool {
	for _, m := range s.Messages() {
		if m.Kind == k {
			return true
		}
	}
	return false
}
