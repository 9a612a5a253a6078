package assistant

import (
	"sync"
	"time"
)

// Event kinds published on the feed.
const (
	EventState    = "state"
	EventSpoken   = "spoken"
	EventListened = "listened"
)

// Event is one observable moment in the assistant's lifecycle, consumed
// by the control panel's live feed.
type Event struct {
	Kind  string    `json:"kind"`
	State string    `json:"state,omitempty"`
	Text  string    `json:"text,omitempty"`
	Time  time.Time `json:"time"`
}

// Events is a small fan-out bus. Slow subscribers drop events rather
// than blocking the assistant loop.
type Events struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewEvents creates an empty bus.
func NewEvents() *Events {
	return &Events{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a listener. The returned cancel func must be
// called to release the channel.
func (e *Events) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 32)
	e.mu.Lock()
	e.subs[ch] = struct{}{}
	e.mu.Unlock()

	cancel := func() {
		e.mu.Lock()
		delete(e.subs, ch)
		e.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking.
func (e *Events) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
