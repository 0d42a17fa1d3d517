package sim

import "cubesnake.io/internal/geometry"

// initialPlacementAttempts bounds placement retries for a round's starting
// snakes (lobby -> running transition, one mostly-empty board).
// respawnPlacementAttempts bounds retries for mid-round respawns, where
// the board is typically more crowded and needs a larger budget to reach
// the same practical success rate.
const (
	initialPlacementAttempts = 2000
	respawnPlacementAttempts = 4000
)

// tryPlaceSnake randomly picks a (face,u,v,dir), requires the head and
// three forward cells to be clear, then walks three cells backward to
// build a length-4 body, rejecting any occupied backward cell. Returns
// nil after attempts failures.
func tryPlaceSnake(playerID string, n int, rng *Rand, occ occupiedSet, attempts int) *Snake {
	if attempts <= 0 {
		attempts = initialPlacementAttempts
	}
	for try := 0; try < attempts; try++ {
		face := geometry.Face(rng.Intn(geometry.NumFaces))
		u := rng.Intn(n)
		v := rng.Intn(n)
		dir := geometry.Direction(rng.Intn(geometry.NumDirections))

		head := geometry.Encode(face, u, v, n)
		if occ[head] {
			continue
		}

		forward, ok := forwardClearCells(head, dir, n, occ, 3)
		if !ok {
			continue
		}

		back := dir.Reverse()
		bodyRest, ok := forwardClearCells(head, back, n, occ, 3)
		if !ok {
			continue
		}

		cells := append([]int{head}, bodyRest...)
		for _, c := range cells {
			occ[c] = true
		}
		_ = forward // forward clearance was only a precondition check

		return &Snake{
			PlayerID:      playerID,
			Alive:         true,
			Dir:           dir,
			Cells:         cells,
			PendingGrowth: 0,
			Score:         0,
		}
	}
	return nil
}

// forwardClearCells walks `count` cells from start in direction dir,
// returning them in walked order if every one of them is unoccupied, and
// ok=false otherwise. It does not mutate occ.
func forwardClearCells(start int, dir geometry.Direction, n int, occ occupiedSet, count int) ([]int, bool) {
	cells := make([]int, 0, count)
	cell, d := start, dir
	for i := 0; i < count; i++ {
		next, nd := geometry.Step(cell, d, n)
		if occ[next] {
			return nil, false
		}
		cells = append(cells, next)
		cell, d = next, nd
	}
	return cells, true
}
