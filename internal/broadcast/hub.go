// Package broadcast fans timer state out to attached observers.
package broadcast

import (
	"sync"

	"github.com/hammamikhairi/tomato/internal/domain"
	"github.com/hammamikhairi/tomato/internal/logger"
)

// Subscription is one attached observer. Receive states from C until it is
// closed.
type Subscription struct {
	id  uint64
	ch  chan domain.TimerState
	hub *Hub
}

// ID identifies the subscription in logs.
func (s *Subscription) ID() uint64 { return s.id }

// C delivers states, newest last. It is closed on Close or when the hub shuts down.
func (s *Subscription) C() <-chan domain.TimerState { return s.ch }

// Close detaches the observer. Safe to call more than once.
func (s *Subscription) Close() { s.hub.Unsubscribe(s) }

// Hub keeps the set of attached observers. Delivery never blocks: each
// subscription is a buffered channel and a full buffer drops its oldest
// state, so a stalled observer only ever misses intermediate values.
type Hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*Subscription
	closed bool
	log    *logger.Logger
}

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		subs: make(map[uint64]*Subscription),
		log:  log,
	}
}

// Attach registers a new observer and queues initial as its first state.
func (h *Hub) Attach(buffer int, initial domain.TimerState) *Subscription {
	if buffer <= 0 {
		buffer = 1
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id:  h.nextID,
		ch:  make(chan domain.TimerState, buffer),
		hub: h,
	}
	if h.closed {
		close(sub.ch)
		return sub
	}
	h.subs[sub.id] = sub
	deliver(sub.ch, initial.Clone())

	h.log.Debug("observer %d attached (%d total)", sub.id, len(h.subs))
	return sub
}

// Unsubscribe removes sub and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.id]; !ok {
		return
	}
	delete(h.subs, sub.id)
	close(sub.ch)
	h.log.Debug("observer %d detached (%d left)", sub.id, len(h.subs))
}

// Broadcast pushes a copy of state to every attached observer.
func (h *Hub) Broadcast(state domain.TimerState) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		deliver(sub.ch, state.Clone())
	}
}

// Len returns the number of attached observers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close detaches every observer. Later Attach calls get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		close(sub.ch)
		delete(h.subs, id)
	}
}

// deliver sends without blocking, evicting the oldest queued state if the
// buffer is full. Callers hold the hub lock, so nobody else sends on ch.
func deliver(ch chan domain.TimerState, state domain.TimerState) {
	select {
	case ch <- state:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- state:
	default:
	}
}
