package database

import "sync"

// Collection names used as hub topics. Writers notify the topic they
// touched; live queries re-run on every tick.
const (
	CollectionPlans     = "plans"
	CollectionLocations = "locations"
)

// Hub fans out change notifications per collection. It carries no
// payload: a tick only means "the collection changed, query again".
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]chan struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan struct{})}
}

// Subscribe registers for ticks on a collection. The returned cancel
// func releases the registration; failing to call it leaks the
// subscription.
func (h *Hub) Subscribe(collection string) (<-chan struct{}, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++

	if h.subs[collection] == nil {
		h.subs[collection] = make(map[int]chan struct{})
	}
	// Buffer of one: a pending tick already promises a re-query, so
	// further ticks before the subscriber drains it can be dropped.
	ch := make(chan struct{}, 1)
	h.subs[collection][id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[collection], id)
	}
	return ch, cancel
}

// Notify wakes every subscriber of a collection without blocking.
func (h *Hub) Notify(collection string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs[collection] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
