package events

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Handler consumes one event. Handlers for the same publish run in parallel;
// Publish returns once all of them have.
type Handler func(Event)

type subscription struct {
	id   int
	name string
	fn   Handler
}

// Bus is the in-process typed publish/subscribe hub. Subscriptions are keyed
// by event Type; publishing fans an event out to every subscriber of its type
// concurrently and waits for all of them to finish.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Type][]subscription
	log    *logrus.Entry
}

// NewBus returns an empty bus logging through the given entry.
func NewBus(log *logrus.Entry) *Bus {
	return &Bus{
		subs: make(map[Type][]subscription),
		log:  log,
	}
}

// Subscribe registers a named handler for an event type and returns a token
// for Unsubscribe. The name only shows up in logs.
func (b *Bus) Subscribe(t Type, name string, fn Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs[t] = append(b.subs[t], subscription{id: b.nextID, name: name, fn: fn})

	b.log.WithFields(logrus.Fields{
		"event_type": t,
		"handler":    name,
	}).Debug("Handler subscribed")

	return b.nextID
}

// Unsubscribe removes the subscription with the given token. Unknown tokens
// are ignored.
func (b *Bus) Unsubscribe(t Type, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[t]
	for i, sub := range subs {
		if sub.id == id {
			b.subs[t] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers the event to every subscriber of its type, each in its own
// goroutine, and blocks until all handlers return. A panicking handler is
// recovered and logged; it never takes down the bus or its siblings.
func (b *Bus) Publish(event Event) {
	t := event.EventType()

	b.mu.RLock()
	subs := make([]subscription, len(b.subs[t]))
	copy(subs, b.subs[t])
	b.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub subscription) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.log.WithFields(logrus.Fields{
						"event_type": t,
						"handler":    sub.name,
						"panic":      fmt.Sprintf("%v", r),
					}).Error("Event handler panicked")
				}
			}()
			sub.fn(event)
		}(sub)
	}
	wg.Wait()
}

// SubscriberCount reports how many handlers listen for a type. Used by tests
// and the status endpoint.
func (b *Bus) SubscriberCount(t Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[t])
}
