package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inspiredrishabh/plaza/internal/protocol"
	"github.com/inspiredrishabh/plaza/internal/session"
)

func testMonitor(h *Hub, reg *session.Registry, ttl time.Duration) *Monitor {
	return NewMonitor(h, reg, 10*time.Millisecond, ttl, zap.NewNop())
}

func TestMonitor_ProbesResponsiveClients(t *testing.T) {
	h := New()
	reg := session.NewRegistry(session.Room{Width: 100, Height: 100}, 24)
	c := addClient(h, "a")

	m := testMonitor(h, reg, time.Minute)
	m.cycle()

	item := <-c.Outbound()
	assert.Equal(t, KindProbe, item.Kind)
}

func TestMonitor_EvictsAfterTwoSilentCycles(t *testing.T) {
	h := New()
	reg := session.NewRegistry(session.Room{Width: 100, Height: 100}, 24)
	c := addClient(h, "a")

	evicted := false
	c.OnEvict(func() { evicted = true })

	m := testMonitor(h, reg, time.Minute)
	m.cycle() // clears the flag, sends a probe
	assert.False(t, evicted)

	m.cycle() // no response since: terminate
	assert.True(t, evicted)
}

func TestMonitor_ResponseResetsTheClock(t *testing.T) {
	h := New()
	reg := session.NewRegistry(session.Room{Width: 100, Height: 100}, 24)
	c := addClient(h, "a")

	evicted := false
	c.OnEvict(func() { evicted = true })

	m := testMonitor(h, reg, time.Minute)
	for i := 0; i < 5; i++ {
		m.cycle()
		c.MarkAlive() // simulated probe response
	}
	assert.False(t, evicted)
}

func TestMonitor_TTLSweepEvictsStaleClient(t *testing.T) {
	h := New()
	reg := session.NewRegistry(session.Room{Width: 100, Height: 100}, 24)
	p := reg.Register()

	c := NewClient(p.ID, 16, time.Millisecond, time.Millisecond)
	h.Add(c)
	evicted := false
	c.OnEvict(func() { evicted = true })

	m := testMonitor(h, reg, time.Nanosecond)
	time.Sleep(time.Millisecond) // let lastSeen fall behind the TTL
	c.MarkAlive()                // transport flag stuck true must not save it
	m.cycle()

	assert.True(t, evicted, "stale registry entry must evict even with a live transport flag")
}

func TestMonitor_TTLSweepRemovesOrphanedEntry(t *testing.T) {
	h := New()
	reg := session.NewRegistry(session.Room{Width: 100, Height: 100}, 24)
	p := reg.Register()

	// A bystander observes the departure.
	witness := addClient(h, "witness")

	m := testMonitor(h, reg, time.Nanosecond)
	time.Sleep(time.Millisecond)
	m.cycle()

	assert.Equal(t, 0, reg.Count())

	frames := drain(witness)
	var sawLeft bool
	for _, frame := range frames {
		if len(frame) == 0 {
			continue // probe marker, not a data frame
		}
		var env protocol.Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		if env.Type == protocol.TypeLeft {
			var payload struct {
				ID string `json:"id"`
			}
			require.NoError(t, json.Unmarshal(env.Payload, &payload))
			assert.Equal(t, p.ID, payload.ID)
			sawLeft = true
		}
	}
	assert.True(t, sawLeft, "orphan removal must broadcast left")

	// A second sweep finds nothing: the departure is announced exactly once.
	witness.MarkAlive()
	m.cycle()
	for _, frame := range drain(witness) {
		if len(frame) == 0 {
			continue
		}
		var env protocol.Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		assert.NotEqual(t, protocol.TypeLeft, env.Type)
	}
}

func TestMonitor_StartStop(t *testing.T) {
	h := New()
	reg := session.NewRegistry(session.Room{Width: 100, Height: 100}, 24)
	m := testMonitor(h, reg, time.Minute)

	done := make(chan error, 1)
	go func() { done <- m.Start() }()

	time.Sleep(25 * time.Millisecond)
	m.Stop()
	m.Stop() // idempotent

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
