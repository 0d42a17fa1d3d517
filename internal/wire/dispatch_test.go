package wire

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"cubesnake.io/internal/protocol"
	"cubesnake.io/internal/room"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func TestJoinErrorCode_MapsRoomErrorsToProtocolCodes(t *testing.T) {
	assert.Equal(t, protocol.ErrRoomFull, joinErrorCode(room.ErrRoomFull))
	assert.Equal(t, protocol.ErrRoomInProgress, joinErrorCode(room.ErrRoomInProgress))
	assert.Equal(t, protocol.ErrBadJoin, joinErrorCode(room.ErrBadJoin))
	assert.Equal(t, protocol.ErrServerError, joinErrorCode(assert.AnError))
}

func TestLobbyStateEnvelope_CarriesCurrentLobbySnapshot(t *testing.T) {
	clock := &stubClock{}
	r := newRoomForTest(clock)
	_, err := r.Join("alice", noopSender{})
	assert.NoError(t, err)

	env := lobbyStateEnvelope(r)
	assert.Equal(t, protocol.TypeLobbyState, env.Type)
	assert.Equal(t, protocol.EnvelopeVersion, env.V)

	var payload protocol.LobbyStatePayload
	assert.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Len(t, payload.Lobby.Players, 1)
	assert.Equal(t, "alice", payload.Lobby.Players[0].Name)
}

// stubClock and noopSender give these tests a minimal room without
// reaching into internal/room's own test fakes (unexported, different
// package).
type stubClock struct{}

func (stubClock) NowMs() int64      { return 1000 }
func (stubClock) MonotonicNs() int64 { return 0 }
func (stubClock) SleepNs(int64)     {}

type noopSender struct{}

func (noopSender) Send(protocol.Envelope) error { return nil }

func newRoomForTest(clock room.Clock) *room.Room {
	manager, _ := room.NewRoomManager(context.Background(), testLog(), clock, room.DefaultRoomSettings())
	return manager.CreateRoom()
}
