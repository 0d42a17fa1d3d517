package sim

// PlaceSnake is the exported entry point room uses to seed a starting
// snake at round start. occ is mutated in place with the cells the
// returned snake now occupies; callers placing multiple snakes should
// reuse the same occ map across calls so later placements avoid earlier
// ones. Returns nil if no free length-4 slot could be found.
func PlaceSnake(playerID string, n int, rng *Rand, occ map[int]bool) *Snake {
	return tryPlaceSnake(playerID, n, rng, occupiedSet(occ), initialPlacementAttempts)
}

// EnsureFruitTarget is the exported entry point room uses right after
// round start to pre-populate the board before the first tick.
func EnsureFruitTarget(state *GameState, newID func() string) {
	ensureFruitTarget(state, newID)
}
