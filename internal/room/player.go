package room

import "cubesnake.io/internal/protocol"

// Sender delivers an outbound envelope to one connected player. The wire
// package's websocket connection implements this; tests use a fake.
type Sender interface {
	Send(env protocol.Envelope) error
}

// PlayerConn is one connected player, owned by exactly one Room.
type PlayerConn struct {
	PlayerID    string
	Name        string
	Conn        Sender
	Ready       bool
	Color       int
	InputByTick map[int]int // tick -> turn
	LastAckTick int
}

func newPlayerConn(id, name string, color int, conn Sender) *PlayerConn {
	return &PlayerConn{
		PlayerID:    id,
		Name:        name,
		Conn:        conn,
		Color:       color,
		InputByTick: make(map[int]int),
		LastAckTick: -1,
	}
}
