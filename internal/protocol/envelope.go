// Package protocol defines the wire message catalog from spec §6: a
// JSON envelope {v, type, payload} carrying the client<->server message
// types. It has no dependency on room/wire/sim so both can import it
// without creating a cycle.
package protocol

import "encoding/json"

// EnvelopeVersion is the only accepted value of an envelope's "v" field.
const EnvelopeVersion = 1

// Envelope is the outer shape of every message on the wire.
type Envelope struct {
	V       int             `json:"v"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload and wraps it in a versioned envelope of
// the given type.
func NewEnvelope(msgType string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{V: EnvelopeVersion, Type: msgType, Payload: raw}, nil
}

// Message type constants, spec §6.
const (
	TypeJoin        = "join"
	TypeLeave       = "leave"
	TypePing        = "ping"
	TypeSetSettings = "set_settings"
	TypeReady       = "ready"
	TypeInput       = "input"

	TypeJoined     = "joined"
	TypeLobbyState = "lobby_state"
	TypeStart      = "start"
	TypeState      = "state"
	TypeEnd        = "end"
	TypePong       = "pong"
	TypeError      = "error"
)

// Error codes, spec §6/§7.
const (
	ErrBadJoin         = "bad_join"
	ErrJoinTimeout     = "join_timeout"
	ErrRoomInProgress  = "room_in_progress"
	ErrRoomFull        = "room_full"
	ErrServerError     = "server_error"
)
