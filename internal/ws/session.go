package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/inspiredrishabh/plaza/internal/hub"
	"github.com/inspiredrishabh/plaza/internal/protocol"
	"github.com/inspiredrishabh/plaza/internal/session"
)

// wsSession is the per-connection state machine: Connecting (registered,
// welcome/state/joined emitted), Active (frames dispatched by type), Closed
// (registry removal plus one left broadcast, idempotent against duplicate
// close signals from the transport, the monitor, and server shutdown).
type wsSession struct {
	server *Server
	conn   *websocket.Conn
	client *hub.Client
	selfID string

	closeOnce sync.Once
}

// serve runs one connection from registration to teardown. It blocks until
// the read loop ends.
func (s *Server) serve(conn *websocket.Conn, remoteAddr string) {
	start := time.Now()

	self := s.registry.Register()
	sess := &wsSession{
		server: s,
		conn:   conn,
		client: hub.NewClient(self.ID, outboxSize, s.cfg.Limits.MoveInterval, s.cfg.Limits.ChatInterval),
		selfID: self.ID,
	}
	sess.client.OnEvict(func() { sess.teardown(errors.New("liveness eviction")) })
	s.hub.Add(sess.client)

	s.logger.Info("client connected",
		zap.String("remote_addr", remoteAddr),
		zap.String("participant_id", self.ID),
		zap.Int("participants", s.registry.Count()),
	)

	go sess.writePump()

	// Connecting: full state to the newcomer, the announcement to the rest.
	room := s.registry.Room()
	sess.client.Enqueue(protocol.Welcome(self.ID, protocol.RoomInfo{Width: room.Width, Height: room.Height}))
	sess.client.Enqueue(protocol.State(s.registry.Snapshot()))
	s.hub.Broadcast(protocol.Joined(self), self.ID)

	sess.readLoop()

	s.logger.Info("client disconnected",
		zap.String("remote_addr", remoteAddr),
		zap.String("participant_id", self.ID),
		zap.Duration("duration", time.Since(start)),
	)
}

// readLoop processes inbound frames strictly in arrival order for this
// connection until the transport closes or the session is evicted.
func (w *wsSession) readLoop() {
	defer w.teardown(nil)

	w.conn.SetReadLimit(maxFrameBytes)
	deadline := w.server.cfg.Heartbeat.TTL
	_ = w.conn.SetReadDeadline(time.Now().Add(deadline))
	w.conn.SetPongHandler(func(string) error {
		w.client.MarkAlive()
		w.server.registry.Touch(w.selfID)
		return w.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = w.conn.SetReadDeadline(time.Now().Add(deadline))

		// Any inbound application frame counts as liveness.
		w.client.MarkAlive()
		w.server.registry.Touch(w.selfID)

		cmd, err := protocol.DecodeCommand(data)
		if err != nil {
			// Malformed or invalid frames are dropped; the connection stays open.
			w.server.logger.Debug("dropping frame",
				zap.String("participant_id", w.selfID),
				zap.Error(err),
			)
			continue
		}
		w.dispatch(cmd)
	}
}

// dispatch routes one decoded command. The command set is closed, so every
// variant is handled here; Unknown is the forward-compatible no-op.
func (w *wsSession) dispatch(cmd protocol.Command) {
	reg := w.server.registry
	switch c := cmd.(type) {
	case protocol.Join:
		name := c.Name
		var p session.Participant
		if name != "" {
			var err error
			p, err = reg.Rename(w.selfID, name)
			if err != nil {
				return
			}
		} else {
			var ok bool
			p, ok = reg.Get(w.selfID)
			if !ok {
				return
			}
		}
		// Join-correction variant: the sender is included.
		w.server.hub.Broadcast(protocol.Renamed(p.ID, p.Name), "")
		w.client.Enqueue(protocol.State(reg.Snapshot()))

	case protocol.Move:
		if !w.client.AllowMove() {
			return
		}
		p, err := reg.UpdatePosition(w.selfID, c.X, c.Y)
		if err != nil {
			return
		}
		w.server.hub.Broadcast(protocol.Moved(p.ID, p.X, p.Y), w.selfID)
		nearby, err := reg.NearbyOf(w.selfID, w.server.cfg.Proximity.Radius)
		if err != nil {
			return
		}
		w.client.Enqueue(protocol.Proximity(w.selfID, nearby))

	case protocol.Rename:
		p, err := reg.Rename(w.selfID, c.Name)
		if err != nil {
			return
		}
		w.server.hub.Broadcast(protocol.Renamed(p.ID, p.Name), w.selfID)

	case protocol.Ping:
		w.client.Enqueue(protocol.Pong())

	case protocol.Chat:
		if !w.client.AllowChat() {
			return
		}
		sender, ok := reg.Get(w.selfID)
		if !ok {
			return
		}
		msg := clampRunes(c.Message, w.server.cfg.Limits.MaxChatLength)
		nearby, err := reg.NearbyOf(w.selfID, w.server.cfg.Proximity.Radius)
		if err != nil {
			return
		}
		if len(nearby) == 0 {
			w.client.Enqueue(protocol.ChatError("no one is nearby to hear you"))
			return
		}
		frame := protocol.ChatMessage(sender.ID, sender.Name, msg, time.Now())
		w.server.hub.SendTo(append(nearby, w.selfID), frame)

	case protocol.Unknown:
		// Forward-compatible no-op.
	}
}

// writePump is the single writer for this connection. It drains the outbox,
// turning probe markers into ping control frames, until the outbox closes.
func (w *wsSession) writePump() {
	defer w.conn.Close()

	for item := range w.client.Outbound() {
		_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		var err error
		switch item.Kind {
		case hub.KindProbe:
			err = w.conn.WriteMessage(websocket.PingMessage, nil)
		default:
			err = w.conn.WriteMessage(websocket.TextMessage, item.Data)
		}
		if err != nil {
			w.teardown(err)
			return
		}
	}

	// Outbox closed by teardown: say goodbye before the socket drops.
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = w.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// teardown performs the Closed transition exactly once: hub removal,
// registry removal, a single left broadcast, and resource cleanup. It is
// safe to call concurrently from the read loop, the write pump, the
// heartbeat monitor, and server shutdown.
func (w *wsSession) teardown(cause error) {
	w.closeOnce.Do(func() {
		w.server.hub.Remove(w.selfID)
		if _, err := w.server.registry.Remove(w.selfID); err == nil {
			w.server.hub.Broadcast(protocol.Left(w.selfID), w.selfID)
		}
		w.client.Close()
		_ = w.conn.Close()

		if cause != nil {
			w.server.logger.Debug("session closed",
				zap.String("participant_id", w.selfID),
				zap.Error(cause),
			)
		}
	})
}

// clampRunes truncates s to at most max runes.
func clampRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) > max {
		return string(runes[:max])
	}
	return s
}
