// Package live implements the observer-pattern core of the store's live
// queries: a subscription registry notified on every committed write.
//
// Delivery is push-based over buffered channels. When a subscriber lags, the
// newest event is coalesced into the buffer slot rather than blocking the
// writer, so a consumer that only re-runs its query on any change never
// misses a wake-up.
package live

import (
	"sync"
)

// Event describes a committed write that may affect query results.
type Event struct {
	Collection string
	ID         string
}

// Subscription is a live feed of change events. Cancel is idempotent and
// must be called when the consumer goes away; it closes C.
type Subscription struct {
	C      <-chan Event
	ch     chan Event
	cancel func()
	once   sync.Once
}

// Cancel removes the subscription from the hub and closes C.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// Hub is the per-store subscription registry.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]*subEntry
	nextID int
	closed bool
}

type subEntry struct {
	match func(Event) bool
	ch    chan Event
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]*subEntry)}
}

// Subscribe registers a subscriber for events accepted by match. A nil match
// accepts every event.
func (h *Hub) Subscribe(match func(Event) bool) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 1)
	if h.closed {
		close(ch)
		return &Subscription{C: ch, ch: ch, cancel: func() {}}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = &subEntry{match: match, ch: ch}

	sub := &Subscription{C: ch, ch: ch}
	sub.cancel = func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(ch)
		}
	}
	return sub
}

// Publish fans out ev to matching subscribers without blocking. If a
// subscriber's buffer is full the stale event is replaced by ev.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, s := range h.subs {
		if s.match != nil && !s.match(ev) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			select {
			case <-s.ch:
			default:
			}
			select {
			case s.ch <- ev:
			default:
			}
		}
	}
}

// Close cancels all subscriptions. Further Publish calls are no-ops and
// further Subscribe calls return already-closed subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, s := range h.subs {
		delete(h.subs, id)
		close(s.ch)
	}
}
