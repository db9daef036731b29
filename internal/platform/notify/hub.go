package notify

import (
	"sync"
	"time"
)

// Event is one published notification. Seq increases by one per Publish.
type Event struct {
	Seq       int64
	Method    string
	Payload   any
	Timestamp time.Time
}

// DefaultSubscriberBuffer is the per-subscriber channel size used unless
// WithSubscriberBuffer overrides it.
const DefaultSubscriberBuffer = 32

// Option configures a Hub.
type Option func(*Hub)

// WithSubscriberBuffer sets how many undelivered events a subscriber may hold
// before it is dropped. Values below 1 keep the default.
func WithSubscriberBuffer(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.buffer = size
		}
	}
}

// Hub keeps a bounded history of events and fans them out to subscribers.
// Slow subscribers whose buffer is full are dropped and their channel closed.
type Hub struct {
	mu      sync.Mutex
	nextSeq int64
	limit   int
	buffer  int
	history []Event
	subs    map[int]chan Event
	nextSub int
	now     func() time.Time
}

func NewHub(limit int, opts ...Option) *Hub {
	if limit < 1 {
		limit = 1
	}
	h := &Hub{
		limit:  limit,
		buffer: DefaultSubscriberBuffer,
		subs:   make(map[int]chan Event),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) Publish(method string, payload any) Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextSeq++
	event := Event{
		Seq:       h.nextSeq,
		Method:    method,
		Payload:   payload,
		Timestamp: h.now(),
	}
	h.history = append(h.history, event)
	if len(h.history) > h.limit {
		h.history = append([]Event(nil), h.history[len(h.history)-h.limit:]...)
	}

	for id, ch := range h.subs {
		select {
		case ch <- event:
		default:
			close(ch)
			delete(h.subs, id)
		}
	}
	return event
}

// Subscribe returns retained events newer than fromSeq, a channel for later
// events and a func that ends the subscription.
func (h *Hub) Subscribe(fromSeq int64) ([]Event, <-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	replay := make([]Event, 0)
	for _, event := range h.history {
		if event.Seq > fromSeq {
			replay = append(replay, event)
		}
	}

	id := h.nextSub
	h.nextSub++
	ch := make(chan Event, h.buffer)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			close(sub)
			delete(h.subs, id)
		}
	}
	return replay, ch, cancel
}

func (h *Hub) BacklogSize() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.history)
}
