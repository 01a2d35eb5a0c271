// Package event delivers applied-edit notifications to subscribers.
//
// The engine publishes one Edit per applied store version, in version
// order. Delivery is synchronous and in subscription order; handlers
// run on the publisher's goroutine, so they should be quick and must
// not edit the document reentrantly.
package event

import (
	"sync"
	"sync/atomic"
)

// Edit describes one applied document edit.
type Edit struct {
	Offset      int64
	RemovedLen  int64
	InsertedLen int64
	Version     uint64
}

// Delta returns the edit's change in document length.
func (e Edit) Delta() int64 {
	return e.InsertedLen - e.RemovedLen
}

// HandlerFunc receives published edits.
type HandlerFunc func(Edit)

// Subscription identifies one registered handler.
type Subscription struct {
	id uint64
}

// ID returns the subscription's identifier. Zero means the
// subscription is inert.
func (s Subscription) ID() uint64 {
	return s.id
}

// Stats reports bus counters.
type Stats struct {
	EventsPublished   uint64
	EventsDelivered   uint64
	HandlerPanics     uint64
	ActiveSubscribers int
}

type subscriber struct {
	id uint64
	fn HandlerFunc
}

// Bus fans published edits out to subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs []subscriber

	nextID    atomic.Uint64
	published atomic.Uint64
	delivered atomic.Uint64
	panics    atomic.Uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler and returns its subscription handle.
// A nil handler yields an inert subscription.
func (b *Bus) Subscribe(fn HandlerFunc) Subscription {
	if fn == nil {
		return Subscription{}
	}

	id := b.nextID.Add(1)
	b.mu.Lock()
	b.subs = append(b.subs, subscriber{id: id, fn: fn})
	b.mu.Unlock()
	return Subscription{id: id}
}

// Unsubscribe removes a handler. Returns false if the subscription is
// unknown or already removed.
func (b *Bus) Unsubscribe(sub Subscription) bool {
	if sub.id == 0 {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == sub.id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Publish delivers an edit to every subscriber in subscription order.
// The subscriber list is copied before delivery, so handlers may
// subscribe or unsubscribe without deadlocking; such changes take
// effect from the next publish.
func (b *Bus) Publish(e Edit) {
	b.mu.RLock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	b.published.Add(1)
	for _, s := range subs {
		b.deliver(s.fn, e)
	}
}

// deliver runs one handler, absorbing a panic so one bad subscriber
// cannot take down the edit pipeline.
func (b *Bus) deliver(fn HandlerFunc, e Edit) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
		}
	}()
	fn(e)
	b.delivered.Add(1)
}

// SubscriberCount returns the number of registered handlers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Stats returns current bus counters.
func (b *Bus) Stats() Stats {
	return Stats{
		EventsPublished:   b.published.Load(),
		EventsDelivered:   b.delivered.Load(),
		HandlerPanics:     b.panics.Load(),
		ActiveSubscribers: b.SubscriberCount(),
	}
}
