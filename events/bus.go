package events

import (
	"sync"
)

// Publisher accepts events. Bus implements it; Discard drops everything.
type Publisher interface {
	Publish(e Event)
}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}

// Bus fans events out to its subscriptions. Publish never blocks: every
// subscription buffers without bound, so a slow consumer delays only
// itself. A Bus is safe for concurrent use by any number of publishers.
type Bus struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new consumer. It receives every event published
// after this call. Subscribing to a closed bus yields a closed subscription.
func (b *Bus) Subscribe() *Subscription {
	s := newSubscription(b)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.close()
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

// Publish delivers e to every subscription. Events published after Close
// are dropped.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for s := range b.subs {
		s.push(e)
	}
}

// Close ends the stream. Subscriptions still deliver what they buffered,
// then their channels close.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		s.close()
	}
	b.subs = nil
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, s)
}

// Subscription is one consumer's view of a bus.
type Subscription struct {
	bus *Bus

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Event
	closed bool

	out  chan Event
	done chan struct{}
	once sync.Once
}

func newSubscription(b *Bus) *Subscription {
	s := &Subscription{
		bus:  b,
		out:  make(chan Event),
		done: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.pump()
	return s
}

// Events returns the channel delivering events in publish order. It is
// closed after the bus closes and the backlog is drained, or after
// Unsubscribe.
func (s *Subscription) Events() <-chan Event {
	return s.out
}

// Unsubscribe detaches the subscription and drops its backlog.
func (s *Subscription) Unsubscribe() {
	s.bus.remove(s)
	s.once.Do(func() { close(s.done) })
	s.mu.Lock()
	s.queue = nil
	s.closed = true
	s.mu.Unlock()
	s.cond.Broadcast()
}

func (s *Subscription) push(e Event) {
	s.mu.Lock()
	if !s.closed {
		s.queue = append(s.queue, e)
	}
	s.mu.Unlock()
	s.cond.Signal()
}

func (s *Subscription) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cond.Broadcast()
}

// pump moves events from the unbounded queue to the out channel.
func (s *Subscription) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		e := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- e:
		case <-s.done:
			return
		}
	}
}

// Drain collects every event until the subscription's channel closes.
func (s *Subscription) Drain() []Event {
	var out []Event
	for e := range s.out {
		out = append(out, e)
	}
	return out
}
