package hub

import (
	"github.com/brianly1003/lanterm/internal/domain/events"
	"github.com/brianly1003/lanterm/internal/domain/ports"
)

// FilteredSubscriber forwards only events of the listed types.
// With no types every event is forwarded.
type FilteredSubscriber struct {
	inner ports.Subscriber
	types map[events.EventType]bool
}

// NewFilteredSubscriber wraps inner so it only receives the given types.
func NewFilteredSubscriber(inner ports.Subscriber, types ...events.EventType) *FilteredSubscriber {
	set := make(map[events.EventType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return &FilteredSubscriber{inner: inner, types: set}
}

// ID returns the subscriber's unique identifier.
func (f *FilteredSubscriber) ID() string {
	return f.inner.ID()
}

// Send forwards the event when its type passes the filter.
func (f *FilteredSubscriber) Send(event events.Event) error {
	if len(f.types) > 0 && !f.types[event.Type()] {
		return nil
	}
	return f.inner.Send(event)
}

// Close closes the wrapped subscriber.
func (f *FilteredSubscriber) Close() error {
	return f.inner.Close()
}

// Done returns a channel that's closed when the subscriber is done.
func (f *FilteredSubscriber) Done() <-chan struct{} {
	return f.inner.Done()
}
