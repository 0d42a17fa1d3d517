package room

import (
	"context"
	"fmt"
	"sort"

	"cubesnake.io/internal/protocol"
	"cubesnake.io/internal/sim"
)

// SetReady sets a player's ready flag (lobby only) and then attempts to
// start the round.
func (r *Room) SetReady(pid string, ready bool) {
	r.mu.Lock()
	if r.Phase == PhaseLobby {
		if p, ok := r.Players[pid]; ok {
			p.Ready = ready
		}
	}
	r.mu.Unlock()

	r.MaybeStart(false)
}

// SubmitInputs stores each valid {tick,turn} item into the player's
// per-tick buffer, overwriting any prior value for the same tick.
// Items with turn outside {-1,0,1} are dropped.
func (r *Room) SubmitInputs(pid string, items []protocol.InputItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.Players[pid]
	if !ok {
		return
	}
	for _, it := range items {
		if it.Turn < -1 || it.Turn > 1 {
			continue
		}
		p.InputByTick[it.Tick] = it.Turn
	}
}

// MaybeStart transitions lobby -> running if not already running and the
// room has players. In normal mode every player must be ready; in forced
// mode only the ready subset starts. It returns started=false with a nil
// error when the room is not in the lobby, is empty, or (normal mode)
// has a player who is not ready; it returns a non-nil error when a
// forced start finds no ready player or a starting snake cannot be
// placed.
func (r *Room) MaybeStart(force bool) (started bool, err error) {
	r.mu.Lock()

	if r.Phase != PhaseLobby {
		r.mu.Unlock()
		return false, nil
	}
	if len(r.Players) == 0 {
		r.mu.Unlock()
		return false, nil
	}

	var starting []string
	if force {
		for pid, p := range r.Players {
			if p.Ready {
				starting = append(starting, pid)
			}
		}
		if len(starting) == 0 {
			r.mu.Unlock()
			return false, fmt.Errorf("no ready players to force-start")
		}
	} else {
		for pid, p := range r.Players {
			if !p.Ready {
				r.mu.Unlock()
				return false, nil
			}
			starting = append(starting, pid)
		}
	}
	sort.Strings(starting)

	settings := r.Settings.Clamp()
	gameSettings := sim.GameSettings{
		CubeN:        settings.CubeN,
		RoundSeconds: settings.RoundSeconds,
		TickRate:     settings.TickRate,
		FruitTarget:  len(starting),
	}

	seed := r.clock.NowMs() ^ int64(len(starting))<<32
	nowMs := r.clock.NowMs()
	startAt := nowMs + 3500
	endsAt := startAt + int64(gameSettings.RoundSeconds)*1000

	game := sim.NewGameState(seed, gameSettings, startAt, endsAt)

	occ := make(map[int]bool)
	for _, pid := range starting {
		s := sim.PlaceSnake(pid, gameSettings.CubeN, game.RNG, occ)
		if s == nil {
			r.mu.Unlock()
			return false, fmt.Errorf("could not place all starting snakes")
		}
		game.Snakes[pid] = s
	}

	sim.EnsureFruitTarget(game, r.newFruitID)

	r.Game = game
	r.Phase = PhaseRunning

	ctx, cancel := context.WithCancel(context.Background())
	r.cancelDriver = cancel

	startPayload := protocol.StartPayload{
		Settings: protocol.StartSettings{
			CubeN:        gameSettings.CubeN,
			RoundSeconds: gameSettings.RoundSeconds,
			TickRate:     gameSettings.TickRate,
			FruitTarget:  gameSettings.FruitTarget,
		},
		Seed:              seed,
		StartTick:         0,
		StartServerTimeMs: startAt,
		Players:           startingPlayersLocked(r, starting),
	}

	rm := r
	r.spawn(func() { rm.runDriver(ctx) })

	r.mu.Unlock()

	if env, err := protocol.NewEnvelope(protocol.TypeStart, startPayload); err == nil {
		r.Broadcast(env)
	} else {
		r.log.WithError(err).Error("encode start payload")
	}

	return true, nil
}

// startingPlayersLocked builds the ordered player roster for the start
// payload. Caller must hold mu.
func startingPlayersLocked(r *Room, starting []string) []protocol.StartPlayer {
	out := make([]protocol.StartPlayer, 0, len(starting))
	for _, pid := range starting {
		p := r.Players[pid]
		out = append(out, protocol.StartPlayer{PlayerID: p.PlayerID, Name: p.Name, Color: p.Color})
	}
	return out
}
