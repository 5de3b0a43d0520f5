package app

import (
	"log/slog"
	"sync"

	"sketchspy/internal/domain"
)

// DefaultSubscriberBuffer is the number of events a subscriber may lag behind
// before it is dropped.
const DefaultSubscriberBuffer = 64

// Subscription receives the events of one room in emission order. The channel
// is closed when the subscription is cancelled, dropped for lagging, or the
// room closes; the subscriber is then expected to resync from a snapshot.
type Subscription struct {
	id uint64
	ch chan domain.Event
	b  *Broadcaster
}

// Events returns the event channel
func (s *Subscription) Events() <-chan domain.Event {
	return s.ch
}

// Close cancels the subscription
func (s *Subscription) Close() {
	s.b.remove(s.id)
}

// Broadcaster fans one room's event stream out to its subscribers. Publish
// never blocks on a subscriber.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	closed bool
	logger *slog.Logger
}

// NewBroadcaster creates a broadcaster with the given per-subscriber buffer
func NewBroadcaster(buffer int, logger *slog.Logger) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Broadcaster{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers a new subscriber. Subscribing to a closed broadcaster
// returns an already closed subscription.
func (b *Broadcaster) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id: b.nextID,
		ch: make(chan domain.Event, b.buffer),
		b:  b,
	}

	if b.closed {
		close(sub.ch)
		return sub
	}

	b.subs[sub.id] = sub
	return sub
}

// Publish delivers the event to every subscriber
func (b *Broadcaster) Publish(event domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subs {
		select {
		case sub.ch <- event:
		default:
			b.logger.Warn("subscriber lagging, dropping subscription",
				"roomCode", event.RoomCode,
				"seq", event.Seq,
			)
			delete(b.subs, id)
			close(sub.ch)
		}
	}
}

// count returns the number of live subscribers
func (b *Broadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscription
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}

func (b *Broadcaster) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}
