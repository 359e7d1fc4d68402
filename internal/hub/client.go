// Package hub provides the broadcast router, the per-connection client
// state record, and the heartbeat monitor.
package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// OutboundKind distinguishes data frames from transport-level probe markers
// in the outbox, so the single writer goroutine can emit both safely.
type OutboundKind int

const (
	// KindFrame is a marshalled protocol frame.
	KindFrame OutboundKind = iota
	// KindProbe instructs the writer to send a ping control frame.
	KindProbe
)

// Outbound is one queued item for a client's writer.
type Outbound struct {
	Kind OutboundKind
	Data []byte
}

// Client is the explicit per-connection state record: identity, outbox,
// liveness flag, and the two independent rate gates. It is owned by the
// connection handler for that connection.
type Client struct {
	id string

	out    chan Outbound
	mu     sync.Mutex
	closed bool

	alive atomic.Bool

	moveGate *rate.Limiter
	chatGate *rate.Limiter

	evictOnce sync.Once
	onEvict   func()
}

// NewClient creates a Client with the given outbox capacity and rate-gate
// intervals. A freshly created client is considered alive.
//
// Precondition: id must be non-empty; moveInterval and chatInterval must be positive.
func NewClient(id string, bufferSize int, moveInterval, chatInterval time.Duration) *Client {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	c := &Client{
		id:  id,
		out: make(chan Outbound, bufferSize),
		// burst 1 turns the limiter into a minimum inter-arrival gate
		moveGate: rate.NewLimiter(rate.Every(moveInterval), 1),
		chatGate: rate.NewLimiter(rate.Every(chatInterval), 1),
	}
	c.alive.Store(true)
	return c
}

// ID returns the participant id this client serves.
func (c *Client) ID() string {
	return c.id
}

// Enqueue queues a frame for delivery. Delivery is fire-and-forget: when
// the outbox is full or the client is closed the frame is dropped and
// Enqueue reports false.
func (c *Client) Enqueue(frame []byte) bool {
	return c.enqueue(Outbound{Kind: KindFrame, Data: frame})
}

// EnqueueProbe queues a liveness probe marker for the writer.
func (c *Client) EnqueueProbe() bool {
	return c.enqueue(Outbound{Kind: KindProbe})
}

func (c *Client) enqueue(item Outbound) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.out <- item:
		return true
	default:
		return false
	}
}

// Outbound returns the read-only outbox channel. The connection's writer
// goroutine drains it until Close.
func (c *Client) Outbound() <-chan Outbound {
	return c.out
}

// Close closes the outbox. It is idempotent; further Enqueue calls report false.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.out)
	}
}

// IsClosed reports whether the outbox has been closed.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// MarkAlive records liveness (any inbound frame or probe response).
func (c *Client) MarkAlive() {
	c.alive.Store(true)
}

// SwapAlive clears the liveness flag and returns its previous value. The
// heartbeat monitor calls this once per cycle: a false return means the
// client never responded since the last cycle.
func (c *Client) SwapAlive() bool {
	return c.alive.Swap(false)
}

// AllowMove reports whether a move frame arriving now passes the move gate.
// A rejected frame is simply dropped; no state is buffered.
func (c *Client) AllowMove() bool {
	return c.moveGate.Allow()
}

// AllowChat reports whether a chat frame arriving now passes the chat gate.
func (c *Client) AllowChat() bool {
	return c.chatGate.Allow()
}

// OnEvict registers the teardown hook invoked by Evict.
//
// Precondition: must be called before the client is visible to the monitor.
func (c *Client) OnEvict(fn func()) {
	c.onEvict = fn
}

// Evict runs the registered teardown hook exactly once, no matter how many
// times eviction is requested.
func (c *Client) Evict() {
	c.evictOnce.Do(func() {
		if c.onEvict != nil {
			c.onEvict()
		}
	})
}
