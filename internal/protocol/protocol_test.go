package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inspiredrishabh/plaza/internal/session"
)

func TestDecodeCommand_Join(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{"type":"join","payload":{"name":"  Alice  "}}`))
	require.NoError(t, err)
	assert.Equal(t, Join{Name: "Alice"}, cmd)
}

func TestDecodeCommand_JoinWithoutName(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{"type":"join","payload":{}}`))
	require.NoError(t, err)
	assert.Equal(t, Join{Name: ""}, cmd)

	cmd, err = DecodeCommand([]byte(`{"type":"join"}`))
	require.NoError(t, err)
	assert.Equal(t, Join{Name: ""}, cmd)
}

func TestDecodeCommand_Move(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{"type":"move","payload":{"x":10.6,"y":-3.2}}`))
	require.NoError(t, err)
	assert.Equal(t, Move{X: 11, Y: -3}, cmd)
}

func TestDecodeCommand_MoveMissingCoordinate(t *testing.T) {
	_, err := DecodeCommand([]byte(`{"type":"move","payload":{"x":10}}`))
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestDecodeCommand_MoveNonNumericCoordinate(t *testing.T) {
	_, err := DecodeCommand([]byte(`{"type":"move","payload":{"x":"10","y":5}}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeCommand_Rename(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{"type":"rename","payload":{"name":"Bob"}}`))
	require.NoError(t, err)
	assert.Equal(t, Rename{Name: "Bob"}, cmd)
}

func TestDecodeCommand_RenameEmptyAfterTrim(t *testing.T) {
	_, err := DecodeCommand([]byte(`{"type":"rename","payload":{"name":"   "}}`))
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestDecodeCommand_Ping(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{"type":"ping","payload":{}}`))
	require.NoError(t, err)
	assert.Equal(t, Ping{}, cmd)
}

func TestDecodeCommand_Chat(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{"type":"chat","payload":{"message":" hello "}}`))
	require.NoError(t, err)
	assert.Equal(t, Chat{Message: "hello"}, cmd)
}

func TestDecodeCommand_ChatEmptyMessage(t *testing.T) {
	_, err := DecodeCommand([]byte(`{"type":"chat","payload":{"message":""}}`))
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestDecodeCommand_UnknownType(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{"type":"teleport","payload":{"x":1}}`))
	require.NoError(t, err)
	assert.Equal(t, Unknown{Type: "teleport"}, cmd)
}

func TestDecodeCommand_MalformedJSON(t *testing.T) {
	_, err := DecodeCommand([]byte(`{"type":`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func decodeEnvelope(t *testing.T, frame []byte) (string, map[string]any) {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(frame, &env))
	var payload map[string]any
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	return env.Type, payload
}

func TestWelcomeFrame(t *testing.T) {
	typ, payload := decodeEnvelope(t, Welcome("abc", RoomInfo{Width: 800, Height: 600}))
	assert.Equal(t, TypeWelcome, typ)
	assert.Equal(t, "abc", payload["selfId"])
	room := payload["room"].(map[string]any)
	assert.Equal(t, float64(800), room["width"])
	assert.Equal(t, float64(600), room["height"])
}

func TestStateFrame_EmptyListIsNotNull(t *testing.T) {
	typ, payload := decodeEnvelope(t, State(nil))
	assert.Equal(t, TypeState, typ)
	require.NotNil(t, payload["participants"])
	assert.Empty(t, payload["participants"])
}

func TestStateFrame(t *testing.T) {
	_, payload := decodeEnvelope(t, State([]session.Participant{
		{ID: "a", Name: "Alice", X: 1, Y: 2, Color: "#fff"},
	}))
	participants := payload["participants"].([]any)
	require.Len(t, participants, 1)
	first := participants[0].(map[string]any)
	assert.Equal(t, "a", first["id"])
	assert.Equal(t, "Alice", first["name"])
}

func TestMovedFrame(t *testing.T) {
	typ, payload := decodeEnvelope(t, Moved("a", 10, 20))
	assert.Equal(t, TypeMoved, typ)
	assert.Equal(t, "a", payload["id"])
	assert.Equal(t, float64(10), payload["x"])
	assert.Equal(t, float64(20), payload["y"])
}

func TestProximityFrame_EmptyNearbyIsNotNull(t *testing.T) {
	typ, payload := decodeEnvelope(t, Proximity("a", nil))
	assert.Equal(t, TypeProximity, typ)
	assert.Equal(t, "a", payload["selfId"])
	require.NotNil(t, payload["nearby"])
	assert.Empty(t, payload["nearby"])
}

func TestChatMessageFrame(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	typ, payload := decodeEnvelope(t, ChatMessage("a", "Alice", "hi", at))
	assert.Equal(t, TypeChat, typ)
	assert.Equal(t, "a", payload["senderId"])
	assert.Equal(t, "Alice", payload["senderName"])
	assert.Equal(t, "hi", payload["message"])
	assert.Equal(t, float64(1700000000000), payload["timestamp"])
}

func TestLeftFrame(t *testing.T) {
	typ, payload := decodeEnvelope(t, Left("gone"))
	assert.Equal(t, TypeLeft, typ)
	assert.Equal(t, "gone", payload["id"])
}
