package hub

import (
	"sync"
)

// Hub fans frames out to all connected clients or to a scoped subset.
// All methods are safe for concurrent use. Delivery is best-effort: a slow
// client's full outbox drops frames rather than blocking the sender.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

// Add registers a client for delivery.
//
// Precondition: no client with the same id is registered.
func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID()] = c
}

// Remove unregisters a client. Removing an absent id is a no-op, so
// duplicate close signals are harmless.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

// Get returns the client for the given id.
func (h *Hub) Get(id string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	return c, ok
}

// Broadcast delivers a frame to every registered client except exceptID.
// Pass an empty exceptID to reach everyone.
func (h *Hub) Broadcast(frame []byte, exceptID string) {
	for _, c := range h.Clients() {
		if c.ID() == exceptID {
			continue
		}
		c.Enqueue(frame)
	}
}

// SendTo delivers a frame only to the clients named in ids. Unknown ids are
// skipped; the scoped set may name participants that left mid-dispatch.
func (h *Hub) SendTo(ids []string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range ids {
		if c, ok := h.clients[id]; ok {
			c.Enqueue(frame)
		}
	}
}

// Send delivers a frame to a single client. It reports false if the id is
// unknown or the frame was dropped.
func (h *Hub) Send(id string, frame []byte) bool {
	c, ok := h.Get(id)
	if !ok {
		return false
	}
	return c.Enqueue(frame)
}

// Clients returns a point-in-time copy of all registered clients.
func (h *Hub) Clients() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	return out
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
