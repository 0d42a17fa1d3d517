package sim

import "cubesnake.io/internal/geometry"

// maxFruitSpawnAttempts bounds retries per fruit spawn (spec §4.2: >= 2000).
const maxFruitSpawnAttempts = 2000

var fruitKindOrder = []FruitKind{Berry, Apple, Banana, Watermelon}

// pickFruitKind chooses a weighted-random fruit kind. Each kind's base
// weight is divided by 1+count(kind already on board), so rarer/larger
// fruit becomes less likely as more of it accumulates.
func pickFruitKind(rng *Rand, fruits map[string]*Fruit) FruitKind {
	counts := make(map[FruitKind]int, len(fruitKindOrder))
	for _, f := range fruits {
		counts[f.Kind]++
	}

	weights := make([]int, len(fruitKindOrder))
	total := 0
	for i, k := range fruitKindOrder {
		w := fruitWeights[k] / (1 + counts[k])
		weights[i] = w
		total += w
	}
	if total <= 0 {
		return Berry
	}

	roll := rng.Intn(total)
	for i, w := range weights {
		if roll < w {
			return fruitKindOrder[i]
		}
		roll -= w
	}
	return fruitKindOrder[len(fruitKindOrder)-1]
}

// spawnFruit places one new fruit at a random unoccupied cell, bounded by
// maxFruitSpawnAttempts. Returns nil if every attempt was occupied.
func spawnFruit(n int, rng *Rand, occ occupiedSet, newID func() string) *Fruit {
	for try := 0; try < maxFruitSpawnAttempts; try++ {
		face := geometry.Face(rng.Intn(geometry.NumFaces))
		u := rng.Intn(n)
		v := rng.Intn(n)
		cell := geometry.Encode(face, u, v, n)
		if occ[cell] {
			continue
		}
		return &Fruit{Cell: cell, ID: newID()}
	}
	return nil
}

// ensureFruitTarget spawns fruit until len(state.Fruits) reaches
// state.Settings.FruitTarget, or spawn attempts are exhausted for a
// given fruit — in which case it stops spawning for this tick.
func ensureFruitTarget(state *GameState, newID func() string) {
	occ := occupiedCells(state)
	for len(state.Fruits) < state.Settings.FruitTarget {
		f := spawnFruit(state.Settings.CubeN, state.RNG, occ, newID)
		if f == nil {
			return
		}
		f.Kind = pickFruitKind(state.RNG, state.Fruits)
		f.Value = f.Kind.Value()
		occ[f.Cell] = true
		state.Fruits[f.ID] = f
	}
}
