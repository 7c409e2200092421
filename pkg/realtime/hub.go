// Package realtime fans events out to the connected sessions of a user.
package realtime

import (
	"sync"
)

const DefaultBuffer = 16

type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"payload"`
}

type subscriber struct {
	ch   chan Event
	once sync.Once
}

// Hub is an in-process pub/sub keyed by user id. Publish never blocks:
// a subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint]map[*subscriber]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{subs: make(map[uint]map[*subscriber]struct{}), buffer: buffer}
}

// Subscribe returns the event channel and the func that releases it.
// Calling the func more than once is safe.
func (h *Hub) Subscribe(userID uint) (<-chan Event, func()) {
	s := &subscriber{ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*subscriber]struct{})
	}
	h.subs[userID][s] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		s.once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], s)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(s.ch)
		})
	}
	return s.ch, unsubscribe
}

// Publish returns how many subscribers received the event.
func (h *Hub) Publish(userID uint, e Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for s := range h.subs[userID] {
		select {
		case s.ch <- e:
			delivered++
		default:
		}
	}
	return delivered
}

func (h *Hub) Subscribers(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
