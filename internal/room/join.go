package room

import (
	"errors"

	"github.com/google/uuid"

	"cubesnake.io/internal/protocol"
)

// ErrRoomFull and ErrRoomInProgress are surfaced to the wire layer as
// the matching error envelope codes from spec §7.
var (
	ErrRoomFull       = errors.New(protocol.ErrRoomFull)
	ErrRoomInProgress = errors.New(protocol.ErrRoomInProgress)
	ErrBadJoin        = errors.New(protocol.ErrBadJoin)
)

const maxPlayersPerRoom = 8

var colorPalette = [...]int{0, 1, 2, 3, 4, 5, 6, 7}

// Join adds a new player to the room, assigning the first unused color
// in the palette and, if the room currently has no host, making them
// host. A join while the round is running or the room is full is
// rejected without mutating state.
func (r *Room) Join(name string, conn Sender) (*PlayerConn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Phase == PhaseRunning {
		return nil, ErrRoomInProgress
	}
	if len(r.Players) >= maxPlayersPerRoom {
		return nil, ErrRoomFull
	}

	color := r.nextColorLocked()
	p := newPlayerConn(uuid.NewString(), name, color, conn)
	r.Players[p.PlayerID] = p
	if r.HostID == "" {
		r.HostID = p.PlayerID
	}
	return p, nil
}

func (r *Room) nextColorLocked() int {
	used := make(map[int]bool, len(r.Players))
	for _, p := range r.Players {
		used[p.Color] = true
	}
	for _, c := range colorPalette {
		if !used[c] {
			return c
		}
	}
	return len(r.Players) % len(colorPalette)
}

// Leave removes a player, handing off host if they were one. If the
// room becomes empty, onEmpty (if set) is invoked outside the lock.
func (r *Room) Leave(pid string) {
	r.mu.Lock()
	r.evictLocked(pid)
	empty := len(r.Players) == 0
	r.mu.Unlock()

	if empty && r.onEmpty != nil {
		r.onEmpty()
	}
}
