package hub

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/inspiredrishabh/plaza/internal/protocol"
	"github.com/inspiredrishabh/plaza/internal/session"
)

// Monitor is the heartbeat service. Each cycle it terminates clients whose
// liveness flag was never refreshed since the previous cycle, probes the
// rest, and independently sweeps the registry for entries whose last
// activity exceeds the TTL. Worst case, an unresponsive connection survives
// two cycles before eviction.
type Monitor struct {
	hub      *Hub
	registry *session.Registry
	interval time.Duration
	ttl      time.Duration
	logger   *zap.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// NewMonitor creates a heartbeat Monitor.
//
// Precondition: hub, registry, and logger must be non-nil; interval and ttl must be positive.
func NewMonitor(hub *Hub, registry *session.Registry, interval, ttl time.Duration, logger *zap.Logger) *Monitor {
	return &Monitor{
		hub:      hub,
		registry: registry,
		interval: interval,
		ttl:      ttl,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start runs the probe/sweep cycle until Stop is called. It blocks, which
// makes the Monitor a lifecycle Service.
func (m *Monitor) Start() error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cycle()
		case <-m.done:
			return nil
		}
	}
}

// Stop terminates the cycle. Safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

// cycle runs one probe pass and one TTL sweep. Eviction delegates to each
// client's once-guarded teardown hook, so racing a concurrent transport
// close is harmless.
func (m *Monitor) cycle() {
	var probed, evicted int
	for _, c := range m.hub.Clients() {
		if c.SwapAlive() {
			c.EnqueueProbe()
			probed++
			continue
		}
		m.logger.Info("evicting unresponsive connection",
			zap.String("participant_id", c.ID()),
		)
		c.Evict()
		evicted++
	}

	for _, id := range m.registry.Stale(m.ttl) {
		if c, ok := m.hub.Get(id); ok {
			m.logger.Info("evicting stale participant",
				zap.String("participant_id", id),
				zap.Duration("ttl", m.ttl),
			)
			c.Evict()
			evicted++
			continue
		}
		// Orphaned registry entry with no live client: remove directly and
		// still announce the departure exactly once.
		if _, err := m.registry.Remove(id); err == nil {
			m.hub.Broadcast(protocol.Left(id), "")
			evicted++
		}
	}

	if evicted > 0 {
		m.logger.Debug("heartbeat cycle",
			zap.Int("probed", probed),
			zap.Int("evicted", evicted),
		)
	}
}
