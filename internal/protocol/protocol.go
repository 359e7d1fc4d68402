// Package protocol defines the JSON wire protocol: the frame envelope, the
// decoded client command variants, and the server event constructors.
//
// Every frame is {"type": string, "payload": object}. Client and server both
// send frames asynchronously over one persistent connection; there is no
// request/response pairing except ping/pong.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Client frame types.
const (
	TypeJoin   = "join"
	TypeMove   = "move"
	TypeRename = "rename"
	TypePing   = "ping"
	TypeChat   = "chat"
)

// Server frame types.
const (
	TypeWelcome   = "welcome"
	TypeState     = "state"
	TypeJoined    = "joined"
	TypeMoved     = "moved"
	TypeRenamed   = "renamed"
	TypeLeft      = "left"
	TypePong      = "pong"
	TypeProximity = "proximity"
	TypeChatError = "chat_error"
)

// ErrMalformed marks frames whose envelope or payload cannot be parsed.
var ErrMalformed = errors.New("malformed frame")

// ErrInvalidField marks frames whose payload parsed but carries an unusable
// value (missing or non-finite coordinate). Such commands are dropped
// without side effects.
var ErrInvalidField = errors.New("invalid field")

// Envelope is the outer structure of every frame.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Command is the closed set of decoded client frames. Exactly one concrete
// type exists per client frame type, plus Unknown for forward compatibility.
type Command interface {
	isCommand()
}

// Join sets or confirms the display name and requests a full-state re-send.
// Name is trimmed; empty means "keep the generated guest name".
type Join struct {
	Name string
}

// Move proposes a new position, subject to rate limiting and clamping.
type Move struct {
	X int
	Y int
}

// Rename changes the display name. Name is trimmed and always non-empty.
type Rename struct {
	Name string
}

// Ping is an application-level liveness probe, answered with pong.
type Ping struct{}

// Chat sends a proximity-scoped chat message. Message is trimmed and
// always non-empty.
type Chat struct {
	Message string
}

// Unknown is any frame type this server does not recognize. It is a no-op,
// so newer clients do not break older servers.
type Unknown struct {
	Type string
}

func (Join) isCommand()    {}
func (Move) isCommand()    {}
func (Rename) isCommand()  {}
func (Ping) isCommand()    {}
func (Chat) isCommand()    {}
func (Unknown) isCommand() {}

// DecodeCommand parses a raw inbound frame into a Command.
//
// Numeric fields must be present and finite or the frame is rejected with
// ErrInvalidField. String fields are trimmed; an empty required string is
// rejected with ErrInvalidField. Unrecognized types decode to Unknown.
func DecodeCommand(data []byte) (Command, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case TypeJoin:
		var p struct {
			Name string `json:"name"`
		}
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				return nil, fmt.Errorf("%w: join payload: %v", ErrMalformed, err)
			}
		}
		return Join{Name: strings.TrimSpace(p.Name)}, nil

	case TypeMove:
		var p struct {
			X *float64 `json:"x"`
			Y *float64 `json:"y"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: move payload: %v", ErrMalformed, err)
		}
		if p.X == nil || p.Y == nil {
			return nil, fmt.Errorf("%w: move requires x and y", ErrInvalidField)
		}
		if !isFinite(*p.X) || !isFinite(*p.Y) {
			return nil, fmt.Errorf("%w: move coordinates must be finite", ErrInvalidField)
		}
		return Move{X: int(math.Round(*p.X)), Y: int(math.Round(*p.Y))}, nil

	case TypeRename:
		var p struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: rename payload: %v", ErrMalformed, err)
		}
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: rename requires a name", ErrInvalidField)
		}
		return Rename{Name: name}, nil

	case TypePing:
		return Ping{}, nil

	case TypeChat:
		var p struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: chat payload: %v", ErrMalformed, err)
		}
		msg := strings.TrimSpace(p.Message)
		if msg == "" {
			return nil, fmt.Errorf("%w: chat requires a message", ErrInvalidField)
		}
		return Chat{Message: msg}, nil

	default:
		return Unknown{Type: env.Type}, nil
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
