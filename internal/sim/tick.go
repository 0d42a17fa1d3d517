package sim

import (
	"sort"

	"cubesnake.io/internal/geometry"
)

// respawnDelayMs is how long a dead snake waits before its first respawn
// attempt; retryDelayMs is added on top for every failed placement retry.
const (
	respawnDelayMs = 3000
	retryDelayMs   = 250
)

type pendingMove struct {
	nextHead int
	newDir   geometry.Direction
}

type biteHit struct {
	attacker string
	segIdx   int
}

// Tick mutates state by exactly one simulation step, per spec §4.2's
// eight phases: respawn, input application, move & eat, head-on
// collision, bite resolution, death finalization, fruit maintenance,
// tick increment. newFruitID mints opaque ids for any fruit spawned this
// tick.
func Tick(state *GameState, inputs map[string]Input, nowMs int64, newFruitID func() string) {
	n := state.Settings.CubeN

	respawnPass(state, nowMs, n)

	moves := projectMoves(state, inputs, n)

	moveAndEat(state, moves)

	dead := headOnCollisions(state)

	biteCollisions(state, dead)

	finalizeDeaths(state, dead, nowMs)

	ensureFruitTarget(state, newFruitID)

	state.Tick++
}

func respawnPass(state *GameState, nowMs int64, n int) {
	for _, s := range state.Snakes {
		if s.Alive || s.RespawnAtMs == nil || *s.RespawnAtMs > nowMs {
			continue
		}
		occ := occupiedCells(state)
		placed := tryPlaceSnake(s.PlayerID, n, state.RNG, occ, respawnPlacementAttempts)
		if placed == nil {
			next := *s.RespawnAtMs + retryDelayMs
			s.RespawnAtMs = &next
			continue
		}
		placed.Score = s.Score
		state.Snakes[s.PlayerID] = placed
	}
}

func projectMoves(state *GameState, inputs map[string]Input, n int) map[string]pendingMove {
	moves := make(map[string]pendingMove, len(state.Snakes))
	for pid, s := range state.Snakes {
		if !s.Alive {
			continue
		}
		dir := s.Dir
		if in, ok := inputs[pid]; ok {
			switch {
			case in.HasDir:
				if in.Dir.Reverse() != dir {
					dir = in.Dir
				}
			case in.HasTurn:
				dir = dir.Rotate(in.Turn)
			}
		}
		nextHead, newDir := geometry.Step(s.Cells[0], dir, n)
		moves[pid] = pendingMove{nextHead: nextHead, newDir: newDir}
	}
	return moves
}

func moveAndEat(state *GameState, moves map[string]pendingMove) {
	for pid, s := range state.Snakes {
		if !s.Alive {
			continue
		}
		mv := moves[pid]
		s.Dir = mv.newDir
		s.Cells = append([]int{mv.nextHead}, s.Cells...)
		if s.PendingGrowth > 0 {
			s.PendingGrowth--
		} else {
			s.Cells = s.Cells[:len(s.Cells)-1]
		}

		for fid, f := range state.Fruits {
			if f.Cell == mv.nextHead {
				delete(state.Fruits, fid)
				s.Score += f.Value
				s.PendingGrowth += f.Value
				break
			}
		}
	}
}

// headOnCollisions groups alive snakes by head cell; every snake sharing
// its head cell with another is marked dead.
func headOnCollisions(state *GameState) map[string]bool {
	byHead := make(map[int][]string)
	for pid, s := range state.Snakes {
		if !s.Alive {
			continue
		}
		byHead[s.Cells[0]] = append(byHead[s.Cells[0]], pid)
	}
	dead := make(map[string]bool)
	for _, pids := range byHead {
		if len(pids) < 2 {
			continue
		}
		for _, pid := range pids {
			dead[pid] = true
		}
	}
	return dead
}

// biteCollisions resolves non-head bites among snakes that survived
// headOnCollisions, truncating victims and distributing score.
func biteCollisions(state *GameState, dead map[string]bool) {
	type occupant struct {
		pid    string
		segIdx int
	}
	occupied := make(map[int][]occupant)
	for pid, s := range state.Snakes {
		if !s.Alive || dead[pid] {
			continue
		}
		for idx, cell := range s.Cells {
			occupied[cell] = append(occupied[cell], occupant{pid, idx})
		}
	}

	bites := make(map[string][]biteHit)
	for pid, s := range state.Snakes {
		if !s.Alive || dead[pid] {
			continue
		}
		head := s.Cells[0]
		for _, occ := range occupied[head] {
			if occ.segIdx < 1 {
				continue
			}
			bites[occ.pid] = append(bites[occ.pid], biteHit{attacker: pid, segIdx: occ.segIdx})
		}
	}

	for victimID, hits := range bites {
		victim := state.Snakes[victimID]
		oldLen := len(victim.Cells)

		cutSet := make(map[int]bool, len(hits))
		for _, h := range hits {
			cutSet[h.segIdx] = true
		}
		cuts := make([]int, 0, len(cutSet))
		for idx := range cutSet {
			cuts = append(cuts, idx)
		}
		sort.Ints(cuts)

		boundaries := append(append([]int{}, cuts...), oldLen)
		for i, k := range cuts {
			next := boundaries[i+1]
			segLen := next - k
			attackers := attackersAt(hits, k)
			if len(attackers) == 0 || segLen <= 0 {
				continue
			}
			share := segLen / len(attackers)
			remainder := segLen % len(attackers)
			for ai, attackerID := range attackers {
				award := share
				if ai == 0 {
					award += remainder
				}
				if s := state.Snakes[attackerID]; s != nil {
					s.Score += award
				}
			}
		}

		victim.Cells = victim.Cells[:cuts[0]]
		if len(victim.Cells) < 4 {
			dead[victimID] = true
		}
	}
}

// attackersAt returns the distinct attacker ids biting at segment index k,
// sorted by id for deterministic remainder assignment.
func attackersAt(hits []biteHit, k int) []string {
	set := make(map[string]bool)
	for _, h := range hits {
		if h.segIdx == k {
			set[h.attacker] = true
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func finalizeDeaths(state *GameState, dead map[string]bool, nowMs int64) {
	for pid := range dead {
		s := state.Snakes[pid]
		if s == nil {
			continue
		}
		s.Alive = false
		s.Cells = nil
		s.PendingGrowth = 0
		at := nowMs + respawnDelayMs
		s.RespawnAtMs = &at
	}
}
