package protocol

import (
	"encoding/json"
	"time"

	"github.com/inspiredrishabh/plaza/internal/session"
)

// RoomInfo is the room dimensions block of the welcome frame.
type RoomInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Event constructors below return fully marshalled frames ready for the
// router. The payload types contain only marshal-safe fields, so encoding
// cannot fail; delivery itself is fire-and-forget.

// Welcome is sent to the new connection only.
func Welcome(selfID string, room RoomInfo) []byte {
	return marshal(TypeWelcome, struct {
		SelfID string   `json:"selfId"`
		Room   RoomInfo `json:"room"`
	}{SelfID: selfID, Room: room})
}

// State carries the full participant list, for the new connection and for
// the sender after a join.
func State(participants []session.Participant) []byte {
	if participants == nil {
		participants = []session.Participant{}
	}
	return marshal(TypeState, struct {
		Participants []session.Participant `json:"participants"`
	}{Participants: participants})
}

// Joined announces a new participant to everyone else.
func Joined(p session.Participant) []byte {
	return marshal(TypeJoined, struct {
		Participant session.Participant `json:"participant"`
	}{Participant: p})
}

// Moved announces an accepted position change to everyone but the mover.
func Moved(id string, x, y int) []byte {
	return marshal(TypeMoved, struct {
		ID string `json:"id"`
		X  int    `json:"x"`
		Y  int    `json:"y"`
	}{ID: id, X: x, Y: y})
}

// Renamed announces a display name change.
func Renamed(id, name string) []byte {
	return marshal(TypeRenamed, struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}{ID: id, Name: name})
}

// Left announces a departed participant to all remaining connections.
func Left(id string) []byte {
	return marshal(TypeLeft, struct {
		ID string `json:"id"`
	}{ID: id})
}

// Pong answers an application-level ping, to the requester only.
func Pong() []byte {
	return marshal(TypePong, struct{}{})
}

// Proximity reports the mover's current nearby set, to the mover only.
func Proximity(selfID string, nearby []string) []byte {
	if nearby == nil {
		nearby = []string{}
	}
	return marshal(TypeProximity, struct {
		SelfID string   `json:"selfId"`
		Nearby []string `json:"nearby"`
	}{SelfID: selfID, Nearby: nearby})
}

// ChatMessage delivers a chat line to the sender and its nearby set.
func ChatMessage(senderID, senderName, message string, at time.Time) []byte {
	return marshal(TypeChat, struct {
		SenderID   string `json:"senderId"`
		SenderName string `json:"senderName"`
		Message    string `json:"message"`
		Timestamp  int64  `json:"timestamp"`
	}{SenderID: senderID, SenderName: senderName, Message: message, Timestamp: at.UnixMilli()})
}

// ChatError tells the sender that a chat had no nearby recipients. This is
// a normal outcome, distinct from the silent rate-limit drop.
func ChatError(message string) []byte {
	return marshal(TypeChatError, struct {
		Message string `json:"message"`
	}{Message: message})
}

func marshal(frameType string, payload any) []byte {
	raw, _ := json.Marshal(payload)
	data, _ := json.Marshal(Envelope{Type: frameType, Payload: raw})
	return data
}
