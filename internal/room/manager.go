package room

import (
	"context"
	"crypto/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// roomIDAlphabet excludes visually ambiguous characters (0/O, 1/I) so
// a spoken or hand-typed room code doesn't round-trip wrong.
const roomIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const roomIDLength = 6

// RoomManager owns every live Room and runs their tick-driver goroutines
// under one errgroup. A panic in one room's driver is recovered inside
// that goroutine and resets only that room; sibling rooms keep running.
type RoomManager struct {
	mu    sync.Mutex
	rooms map[string]*Room

	log             *logrus.Entry
	clock           Clock
	group           *errgroup.Group
	defaultSettings RoomSettings
}

// NewRoomManager builds a manager whose room drivers are all spawned
// under group.Go, so Wait() blocks until every driver goroutine has
// returned; each returns nil, including after a recovered panic. ctx does
// not stop running drivers. Every room it creates starts with
// defaultSettings (already clamped by the caller).
func NewRoomManager(ctx context.Context, log *logrus.Entry, clock Clock, defaultSettings RoomSettings) (*RoomManager, *errgroup.Group) {
	group, _ := errgroup.WithContext(ctx)
	return &RoomManager{
		rooms:           make(map[string]*Room),
		log:             log,
		clock:           clock,
		group:           group,
		defaultSettings: defaultSettings,
	}, group
}

// CreateRoom allocates a fresh empty room with a unique generated id.
func (m *RoomManager) CreateRoom() *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createRoomLocked()
}

func (m *RoomManager) createRoomLocked() *Room {
	var id string
	for {
		id = generateRoomID()
		if _, exists := m.rooms[id]; !exists {
			break
		}
	}
	return m.newRoomLocked(id)
}

// newRoomLocked builds and registers a room under the given id. Caller
// must hold m.mu and must have already confirmed id is free.
func (m *RoomManager) newRoomLocked(id string) *Room {
	var r *Room
	spawn := func(fn func()) {
		m.group.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					m.log.WithField("room_id", id).WithField("panic", rec).Error("room driver panic recovered")
					r.recoverToLobby()
				}
			}()
			fn()
			return nil
		})
	}
	onEmpty := func() {
		r.mu.Lock()
		cancel := r.cancelDriver
		r.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		m.removeRoom(id)
	}

	r = newRoom(id, m.defaultSettings, m.log, func() string { return uuid.NewString() }, m.clock, spawn, onEmpty)
	m.rooms[id] = r
	return r
}

// Room looks up a room by id.
func (m *RoomManager) Room(id string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	return r, ok
}

// Join resolves roomID to a room and adds the player to it. An empty
// roomID creates a fresh room under a generated id; a non-empty roomID
// that names no existing room creates one under that exact id instead
// of erroring, so a client-chosen room code atomically finds-or-creates.
func (m *RoomManager) Join(roomID, name string, conn Sender) (*Room, *PlayerConn, error) {
	var r *Room
	if roomID == "" {
		r = m.CreateRoom()
	} else {
		m.mu.Lock()
		var ok bool
		r, ok = m.rooms[roomID]
		if !ok {
			r = m.newRoomLocked(roomID)
		}
		m.mu.Unlock()
	}

	p, err := r.Join(name, conn)
	if err != nil {
		return nil, nil, err
	}
	return r, p, nil
}

func (m *RoomManager) removeRoom(id string) {
	m.mu.Lock()
	delete(m.rooms, id)
	m.mu.Unlock()
}

// RoomCount reports how many rooms are currently tracked, for /healthz
// and debug surfaces.
func (m *RoomManager) RoomCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

func generateRoomID() string {
	buf := make([]byte, roomIDLength)
	idx := make([]byte, roomIDLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand.Read on the standard reader never fails in
		// practice; fall back to a fixed pattern rather than panic.
		for i := range buf {
			buf[i] = byte(i)
		}
	}
	for i, b := range buf {
		idx[i] = roomIDAlphabet[int(b)%len(roomIDAlphabet)]
	}
	return string(idx)
}
