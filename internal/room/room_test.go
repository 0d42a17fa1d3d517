package room

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cubesnake.io/internal/protocol"
)

// fakeClock gives tests full control over both time axes; SleepNs
// advances both clocks instead of actually blocking.
type fakeClock struct {
	mu       sync.Mutex
	nowMs    int64
	monoNs   int64
}

func (c *fakeClock) NowMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nowMs
}

func (c *fakeClock) MonotonicNs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.monoNs
}

func (c *fakeClock) SleepNs(ns int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.monoNs += ns
	c.nowMs += ns / 1_000_000
}

func (c *fakeClock) advanceMs(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nowMs += ms
	c.monoNs += ms * 1_000_000
}

// fakeSender records every envelope sent to it; it never fails.
type fakeSender struct {
	mu   sync.Mutex
	envs []protocol.Envelope
}

func (s *fakeSender) Send(env protocol.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envs = append(s.envs, env)
	return nil
}

func (s *fakeSender) count(msgType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.envs {
		if e.Type == msgType {
			n++
		}
	}
	return n
}

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func newTestRoom(clock *fakeClock) *Room {
	idSeq := 0
	newID := func() string { idSeq++; return "id-" + string(rune('a'+idSeq)) }
	spawn := func(fn func()) { go fn() }
	return newRoom("TEST01", DefaultRoomSettings(), testLog(), newID, clock, spawn, func() {})
}

func TestMaybeStart_RequiresEveryPlayerReady(t *testing.T) {
	clock := &fakeClock{nowMs: 1000}
	r := newTestRoom(clock)

	a, err := r.Join("alice", &fakeSender{})
	require.NoError(t, err)
	b, err := r.Join("bob", &fakeSender{})
	require.NoError(t, err)

	r.SetReady(a.PlayerID, true)
	assert.Equal(t, PhaseLobby, r.PhaseNow(), "should not start with one of two ready")

	r.SetReady(b.PlayerID, true)
	assert.Equal(t, PhaseRunning, r.PhaseNow(), "should start once everyone is ready")
}

func TestMaybeStart_EmptyRoomNeverStarts(t *testing.T) {
	clock := &fakeClock{nowMs: 1000}
	r := newTestRoom(clock)

	started, err := r.MaybeStart(false)
	assert.False(t, started)
	assert.NoError(t, err)
	assert.Equal(t, PhaseLobby, r.PhaseNow())
}

func TestMaybeStart_ForceStartsOnlyReadySubset(t *testing.T) {
	clock := &fakeClock{nowMs: 1000}
	r := newTestRoom(clock)

	a, err := r.Join("alice", &fakeSender{})
	require.NoError(t, err)
	b, err := r.Join("bob", &fakeSender{})
	require.NoError(t, err)

	r.SetReady(a.PlayerID, true)
	started, err := r.MaybeStart(true)
	require.NoError(t, err)
	assert.True(t, started)

	r.mu.Lock()
	_, aliceInGame := r.Game.Snakes[a.PlayerID]
	_, bobInGame := r.Game.Snakes[b.PlayerID]
	r.mu.Unlock()
	assert.True(t, aliceInGame)
	assert.False(t, bobInGame)
}

func TestRoundEnd_ResetsToFreshLobby(t *testing.T) {
	clock := &fakeClock{nowMs: 1000}
	r := newTestRoom(clock)

	aSend := &fakeSender{}
	a, err := r.Join("alice", aSend)
	require.NoError(t, err)
	r.SetReady(a.PlayerID, true)
	require.Equal(t, PhaseRunning, r.PhaseNow())

	r.mu.Lock()
	endsAt := r.Game.EndsAtMs
	r.mu.Unlock()

	clock.advanceMs(endsAt - clock.NowMs() + 10000)

	ended := r.stepOnce()
	assert.True(t, ended)
	assert.Equal(t, PhaseLobby, r.PhaseNow())

	r.mu.Lock()
	_, ready := r.Players[a.PlayerID]
	r.mu.Unlock()
	require.True(t, ready)
	assert.False(t, r.Players[a.PlayerID].Ready)
	assert.Equal(t, 1, aSend.count(protocol.TypeEnd))
	assert.Equal(t, 1, aSend.count(protocol.TypeLobbyState))
}

func TestSetSettings_HostOnlyAndLobbyOnly(t *testing.T) {
	clock := &fakeClock{nowMs: 1000}
	r := newTestRoom(clock)

	host, err := r.Join("host", &fakeSender{})
	require.NoError(t, err)
	guest, err := r.Join("guest", &fakeSender{})
	require.NoError(t, err)

	n := 40
	ok := r.SetSettings(guest.PlayerID, &n, nil, nil)
	assert.False(t, ok, "non-host cannot change settings")

	ok = r.SetSettings(host.PlayerID, &n, nil, nil)
	assert.True(t, ok)
	assert.Equal(t, 40, r.LobbyState().Settings.CubeN)

	r.mu.Lock()
	r.Phase = PhaseRunning
	r.mu.Unlock()
	m := 50
	ok = r.SetSettings(host.PlayerID, &m, nil, nil)
	assert.False(t, ok, "settings cannot change outside the lobby")
	assert.Equal(t, 40, r.LobbyState().Settings.CubeN)
}

func TestJoin_RejectsWhenRoomFullOrRunning(t *testing.T) {
	clock := &fakeClock{nowMs: 1000}
	r := newTestRoom(clock)

	for i := 0; i < maxPlayersPerRoom; i++ {
		_, err := r.Join("p", &fakeSender{})
		require.NoError(t, err)
	}
	_, err := r.Join("overflow", &fakeSender{})
	assert.ErrorIs(t, err, ErrRoomFull)

	running := newTestRoom(clock)
	running.mu.Lock()
	running.Phase = PhaseRunning
	running.mu.Unlock()
	_, err = running.Join("late", &fakeSender{})
	assert.ErrorIs(t, err, ErrRoomInProgress)
}

func TestLeave_HandsOffHostWhenHostLeaves(t *testing.T) {
	clock := &fakeClock{nowMs: 1000}
	r := newTestRoom(clock)

	host, err := r.Join("host", &fakeSender{})
	require.NoError(t, err)
	other, err := r.Join("other", &fakeSender{})
	require.NoError(t, err)

	require.Equal(t, host.PlayerID, r.LobbyState().HostID)
	r.Leave(host.PlayerID)
	assert.Equal(t, other.PlayerID, r.LobbyState().HostID)
}
