// Package room implements the per-room lobby/running/ended state machine,
// the fixed-rate tick driver, and the RoomManager that owns all rooms.
package room

import (
	"context"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"cubesnake.io/internal/protocol"
	"cubesnake.io/internal/sim"
)

// Phase is the room's lifecycle state. A GameState only ever exists
// while Phase == Running — see design note in spec §9 about making that
// invariant explicit; Room enforces it by nilling Game on every
// transition out of Running.
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseRunning
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhaseRunning:
		return "running"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// RoomSettings are the host-configurable, clamped round parameters.
// FruitTarget is not part of RoomSettings: it is derived at round start
// from the number of starting players (spec §3).
type RoomSettings struct {
	CubeN        int
	RoundSeconds int
	TickRate     int
}

// DefaultRoomSettings matches the teacher's DefaultConfig() precedent:
// sane defaults a host can then tune before starting.
func DefaultRoomSettings() RoomSettings {
	return RoomSettings{CubeN: 24, RoundSeconds: 180, TickRate: 12}
}

// Clamp restricts every field to its spec §3 valid range.
func (s RoomSettings) Clamp() RoomSettings {
	return RoomSettings{
		CubeN:        sim.ClampCubeN(s.CubeN),
		RoundSeconds: sim.ClampRoundSeconds(s.RoundSeconds),
		TickRate:     sim.ClampTickRate(s.TickRate),
	}
}

// Room is a single lobby/round's worth of state. Every exported method
// that touches Players/Settings/Phase/Game/driver state takes mu.
type Room struct {
	mu sync.Mutex

	ID       string
	HostID   string // "" when no host
	Settings RoomSettings
	Players  map[string]*PlayerConn
	Phase    Phase
	Game     *sim.GameState

	log *logrus.Entry

	cancelDriver context.CancelFunc
	newFruitID   func() string
	clock        Clock
	spawn        func(fn func())
	onEmpty      func()
}

// Clock abstracts wall-clock and monotonic time so tests can control it.
type Clock interface {
	NowMs() int64       // wall-clock milliseconds since epoch
	MonotonicNs() int64 // nanoseconds on an arbitrary monotonic base
	SleepNs(ns int64)   // sleep for ns nanoseconds
}

func newRoom(id string, settings RoomSettings, log *logrus.Entry, newFruitID func() string, clock Clock, spawn func(fn func()), onEmpty func()) *Room {
	return &Room{
		ID:         id,
		Settings:   settings,
		Players:    make(map[string]*PlayerConn),
		Phase:      PhaseLobby,
		log:        log.WithField("room_id", id),
		newFruitID: newFruitID,
		clock:      clock,
		spawn:      spawn,
		onEmpty:    onEmpty,
	}
}

// PhaseNow returns the room's current lifecycle phase under lock. Prefer
// this over reading the Phase field directly from outside the package.
func (r *Room) PhaseNow() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Phase
}

// LobbyState is a pure snapshot of the room for lobby_state/joined
// messages: host, player list sorted by playerId, and current settings.
func (r *Room) LobbyState() protocol.Lobby {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lobbyStateLocked()
}

func (r *Room) lobbyStateLocked() protocol.Lobby {
	ids := make([]string, 0, len(r.Players))
	for id := range r.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	players := make([]protocol.PlayerSummary, 0, len(ids))
	for _, id := range ids {
		p := r.Players[id]
		players = append(players, protocol.PlayerSummary{
			PlayerID: p.PlayerID, Name: p.Name, Ready: p.Ready, Color: p.Color,
		})
	}

	return protocol.Lobby{
		RoomID: r.ID,
		HostID: r.HostID,
		Players: players,
		Settings: protocol.LobbySettings{
			CubeN: r.Settings.CubeN, RoundSeconds: r.Settings.RoundSeconds, TickRate: r.Settings.TickRate,
		},
	}
}

// Broadcast sends env to every current player. A player whose Send fails
// is evicted; if that player was host, the next player by map-iteration
// order (i.e. Go's randomized map order, per spec §4.3) becomes host.
func (r *Room) Broadcast(env protocol.Envelope) {
	r.mu.Lock()
	conns := make([]*PlayerConn, 0, len(r.Players))
	for _, p := range r.Players {
		conns = append(conns, p)
	}
	r.mu.Unlock()

	var failed []string
	for _, p := range conns {
		if err := p.Conn.Send(env); err != nil {
			failed = append(failed, p.PlayerID)
		}
	}
	if len(failed) == 0 {
		return
	}

	r.mu.Lock()
	for _, id := range failed {
		r.evictLocked(id)
	}
	empty := len(r.Players) == 0
	r.mu.Unlock()

	if empty && r.onEmpty != nil {
		r.onEmpty()
	}
}

// evictLocked removes a player and hands off host if needed. Caller must
// hold mu.
func (r *Room) evictLocked(id string) {
	if _, ok := r.Players[id]; !ok {
		return
	}
	delete(r.Players, id)
	if r.HostID == id {
		r.HostID = ""
		for pid := range r.Players {
			r.HostID = pid
			break
		}
	}
}

// SetSettings applies a host-only, lobby-only patch, clamping each
// provided field into its valid range.
func (r *Room) SetSettings(hostPid string, cubeN, roundSeconds, tickRate *int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Phase != PhaseLobby || hostPid != r.HostID || r.HostID == "" {
		return false
	}
	next := r.Settings
	if cubeN != nil {
		next.CubeN = *cubeN
	}
	if roundSeconds != nil {
		next.RoundSeconds = *roundSeconds
	}
	if tickRate != nil {
		next.TickRate = *tickRate
	}
	r.Settings = next.Clamp()
	return true
}
