package room

import (
	"context"
	"sort"
	"time"

	"cubesnake.io/internal/protocol"
	"cubesnake.io/internal/sim"
)

// runDriver is the fixed-rate tick loop for one running round. It is
// launched via Room.spawn from MaybeStart and returns when the round
// ends or ctx is cancelled (room torn down early, e.g. empty room).
//
// Timing follows spec §4.3: sleep until StartServerTimeMs, then advance
// on a monotonic deadline accumulator so a scheduler stall produces a
// burst of catch-up ticks rather than permanent drift.
func (r *Room) runDriver(ctx context.Context) {
	r.mu.Lock()
	startAt := r.Game.StartServerTimeMs
	r.mu.Unlock()

	if wait := startAt - r.clock.NowMs(); wait > 0 {
		r.clock.SleepNs(wait * int64(time.Millisecond))
	}
	if ctx.Err() != nil {
		return
	}

	r.mu.Lock()
	tickRate := r.Game.Settings.TickRate
	r.mu.Unlock()
	periodNs := int64(time.Second) / int64(tickRate)

	deadline := r.clock.MonotonicNs() + periodNs

	for {
		if ctx.Err() != nil {
			return
		}

		ended := r.stepOnce()
		if ended {
			return
		}

		// The deadline always advances by exactly one period; when the
		// loop has fallen behind it runs the missed ticks back to back
		// without sleeping.
		now := r.clock.MonotonicNs()
		if now < deadline {
			r.clock.SleepNs(deadline - now)
		}
		deadline += periodNs
	}
}

// stepOnce runs exactly one Tick under lock, builds and broadcasts the
// resulting state snapshot, and — if the round's end time has passed —
// finalizes the round and returns true.
func (r *Room) stepOnce() (ended bool) {
	r.mu.Lock()
	game := r.Game
	if game == nil {
		r.mu.Unlock()
		return true
	}

	nowMs := r.clock.NowMs()
	inputs := r.collectInputsLocked(game.Tick)
	sim.Tick(game, inputs, nowMs, r.newFruitID)

	inputAck := make(map[string]int, len(r.Players))
	for pid, p := range r.Players {
		inputAck[pid] = p.LastAckTick
	}

	statePayload := buildStatePayload(game, nowMs, inputAck)

	var endPayload *protocol.EndPayload
	if nowMs >= game.EndsAtMs {
		endPayload = buildEndPayload(game)
	}
	r.mu.Unlock()

	env, err := protocol.NewEnvelope(protocol.TypeState, statePayload)
	if err == nil {
		r.Broadcast(env)
	} else {
		r.log.WithError(err).Error("encode state payload")
	}

	if endPayload == nil {
		return false
	}

	endEnv, err := protocol.NewEnvelope(protocol.TypeEnd, *endPayload)
	if err == nil {
		r.Broadcast(endEnv)
	} else {
		r.log.WithError(err).Error("encode end payload")
	}

	r.finishRound()
	return true
}

// collectInputsLocked pulls each player's queued turn for this tick (if
// any) out of their InputByTick buffer and records the ack. Caller must
// hold mu.
func (r *Room) collectInputsLocked(tick int) map[string]sim.Input {
	inputs := make(map[string]sim.Input, len(r.Players))
	for pid, p := range r.Players {
		turn, ok := p.InputByTick[tick]
		delete(p.InputByTick, tick)
		if ok {
			inputs[pid] = sim.Input{HasTurn: true, Turn: turn}
			p.LastAckTick = tick
		}
	}
	return inputs
}

func buildStatePayload(game *sim.GameState, nowMs int64, inputAck map[string]int) protocol.StatePayload {
	pids := make([]string, 0, len(game.Snakes))
	for pid := range game.Snakes {
		pids = append(pids, pid)
	}
	sort.Strings(pids)

	snakes := make([]protocol.SnakeView, 0, len(pids))
	scores := make(map[string]int, len(pids))
	for _, pid := range pids {
		s := game.Snakes[pid]
		view := protocol.SnakeView{
			PlayerID: pid,
			Alive:    s.Alive,
			Dir:      int(s.Dir),
			Cells:    append([]int(nil), s.Cells...),
		}
		if !s.Alive && s.RespawnAtMs != nil {
			left := *s.RespawnAtMs - nowMs
			if left < 0 {
				left = 0
			}
			view.RespawnInMs = &left
		}
		snakes = append(snakes, view)
		scores[pid] = s.Score
	}

	fids := make([]string, 0, len(game.Fruits))
	for fid := range game.Fruits {
		fids = append(fids, fid)
	}
	sort.Strings(fids)
	fruits := make([]protocol.FruitView, 0, len(fids))
	for _, fid := range fids {
		f := game.Fruits[fid]
		fruits = append(fruits, protocol.FruitView{
			ID: f.ID, Cell: f.Cell, Kind: fruitKindName(f.Kind), Value: f.Value,
		})
	}

	timerLeft := game.EndsAtMs - nowMs
	if timerLeft < 0 {
		timerLeft = 0
	}

	return protocol.StatePayload{
		Tick:         game.Tick,
		ServerTimeMs: nowMs,
		TimerMsLeft:  timerLeft,
		Snakes:       snakes,
		Fruits:       fruits,
		Scores:       scores,
		InputAck:     inputAck,
	}
}

func buildEndPayload(game *sim.GameState) *protocol.EndPayload {
	scores := make(map[string]int, len(game.Snakes))
	for pid, s := range game.Snakes {
		scores[pid] = s.Score
	}
	return &protocol.EndPayload{FinalScores: scores}
}

func fruitKindName(k sim.FruitKind) string {
	switch k {
	case sim.Berry:
		return "berry"
	case sim.Apple:
		return "apple"
	case sim.Banana:
		return "banana"
	case sim.Watermelon:
		return "watermelon"
	default:
		return "berry"
	}
}

// finishRound moves a just-ended round back to lobby: clears Game,
// resets every player's ready flag and input buffer, and broadcasts the
// refreshed lobby_state. resetToLobby sets Phase to Ended and then to
// Lobby inside one critical section, so readers that take mu only ever
// see Running or Lobby.
func (r *Room) finishRound() {
	r.resetToLobby()
	r.broadcastLobbyState()
}

// recoverToLobby is called by RoomManager after a panic recovered from
// this room's driver goroutine. It resets the room the same way a
// normal round end does, without an end payload (the round never
// reached a real conclusion).
func (r *Room) recoverToLobby() {
	r.resetToLobby()
	r.broadcastLobbyState()
}

func (r *Room) resetToLobby() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Phase = PhaseEnded
	r.Game = nil
	r.cancelDriver = nil
	for _, p := range r.Players {
		p.Ready = false
		p.InputByTick = make(map[int]int)
		p.LastAckTick = -1
	}
	r.Phase = PhaseLobby
}

func (r *Room) broadcastLobbyState() {
	env, err := protocol.NewEnvelope(protocol.TypeLobbyState, protocol.LobbyStatePayload{Lobby: r.LobbyState()})
	if err != nil {
		r.log.WithError(err).Error("encode lobby_state payload")
		return
	}
	r.Broadcast(env)
}
