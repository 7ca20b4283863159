// Package hub fans lanterm domain events out to subscribers.
package hub

import (
	"sync"
	"sync/atomic"

	"github.com/brianly1003/lanterm/internal/domain/events"
	"github.com/brianly1003/lanterm/internal/domain/ports"
	"github.com/rs/zerolog/log"
)

// DefaultQueueSize is the number of events buffered between Publish and
// delivery.
const DefaultQueueSize = 256

// Hub is the central event dispatcher. Publish never blocks: when the queue
// is full the event is dropped and counted.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]ports.Subscriber
	running     bool
	done        chan struct{}
	wg          sync.WaitGroup

	queue   chan events.Event
	dropped atomic.Uint64
}

var _ ports.EventHub = (*Hub)(nil)

// New creates a new Hub. A non-positive queueSize means DefaultQueueSize.
func New(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Hub{
		subscribers: make(map[string]ports.Subscriber),
		queue:       make(chan events.Event, queueSize),
	}
}

// Start begins delivering events. Starting a running hub is a no-op.
func (h *Hub) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return nil
	}
	h.running = true
	h.done = make(chan struct{})

	h.wg.Add(1)
	go h.run(h.done)

	log.Debug().Msg("event hub started")
	return nil
}

// Stop drains queued events, stops delivery and closes every subscriber.
func (h *Hub) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = false
	close(h.done)
	h.mu.Unlock()

	h.wg.Wait()

	h.mu.Lock()
	subs := h.subscribers
	h.subscribers = make(map[string]ports.Subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}

	log.Debug().Uint64("dropped", h.dropped.Load()).Msg("event hub stopped")
	return nil
}

func (h *Hub) run(done <-chan struct{}) {
	defer h.wg.Done()
	for {
		select {
		case event := <-h.queue:
			h.dispatch(event)
		case <-done:
			for {
				select {
				case event := <-h.queue:
					h.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

// dispatch delivers one event. Subscribers are called without holding the
// hub lock; a subscriber whose Send fails is removed.
func (h *Hub) dispatch(event events.Event) {
	h.mu.RLock()
	subs := make([]ports.Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.Send(event); err != nil {
			log.Warn().
				Str("subscriber_id", sub.ID()).
				Str("event_type", string(event.Type())).
				Err(err).
				Msg("failed to send event to subscriber")
			h.Unsubscribe(sub.ID())
		}
	}
}

// Publish queues an event for delivery.
func (h *Hub) Publish(event events.Event) {
	if !h.IsRunning() {
		log.Trace().Str("event_type", string(event.Type())).Msg("event dropped: hub not running")
		return
	}
	select {
	case h.queue <- event:
		log.Trace().
			Str("event_type", string(event.Type())).
			Msg("event published")
	default:
		h.dropped.Add(1)
		log.Warn().
			Str("event_type", string(event.Type())).
			Msg("event dropped: queue full")
	}
}

// Subscribe adds a subscriber, replacing any with the same ID.
func (h *Hub) Subscribe(sub ports.Subscriber) {
	h.mu.Lock()
	old := h.subscribers[sub.ID()]
	h.subscribers[sub.ID()] = sub
	h.mu.Unlock()

	if old != nil && old != sub {
		_ = old.Close()
	}
	log.Debug().Str("subscriber_id", sub.ID()).Msg("subscriber registered")
}

// Unsubscribe removes and closes a subscriber by ID.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	delete(h.subscribers, id)
	h.mu.Unlock()

	if ok {
		_ = sub.Close()
		log.Debug().Str("subscriber_id", id).Msg("subscriber unregistered")
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// IsRunning returns true if the hub is running.
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// Dropped returns the number of events dropped because the queue was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
