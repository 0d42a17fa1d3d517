package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allCells(n int) []int {
	var cells []int
	for f := 0; f < NumFaces; f++ {
		for v := 0; v < n; v++ {
			for u := 0; u < n; u++ {
				cells = append(cells, Encode(Face(f), u, v, n))
			}
		}
	}
	return cells
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	const n = 8
	for f := 0; f < NumFaces; f++ {
		for v := 0; v < n; v++ {
			for u := 0; u < n; u++ {
				cell := Encode(Face(f), u, v, n)
				require.Less(t, cell, NumFaces*n*n)
				gf, gu, gv := Decode(cell, n)
				assert.Equal(t, Face(f), gf)
				assert.Equal(t, u, gu)
				assert.Equal(t, v, gv)
			}
		}
	}
}

func TestStepStaysInBounds(t *testing.T) {
	const n = 8
	for _, cell := range allCells(n) {
		for d := Direction(0); d < NumDirections; d++ {
			next, _ := Step(cell, d, n)
			_, u, v := Decode(next, n)
			assert.GreaterOrEqual(t, u, 0)
			assert.Less(t, u, n)
			assert.GreaterOrEqual(t, v, 0)
			assert.Less(t, v, n)
		}
	}
}

func TestStepReversibility(t *testing.T) {
	const n = 8
	for _, cell := range allCells(n) {
		for d := Direction(0); d < NumDirections; d++ {
			c2, d2 := Step(cell, d, n)
			back, backDir := Step(c2, d2.Reverse(), n)
			assert.Equal(t, cell, back, "cell=%d dir=%d", cell, d)
			assert.Equal(t, d.Reverse(), backDir, "cell=%d dir=%d", cell, d)
		}
	}
}

// A snake walking straight along the middle column of a face travels a
// great circle around the cube and returns home after exactly 4N steps.
func TestStepGreatCircleReturnsHome(t *testing.T) {
	const n = 8
	start := Encode(FacePosX, n/2, n/2, n)
	cell, dir := start, North
	for i := 0; i < 4*n; i++ {
		cell, dir = Step(cell, dir, n)
	}
	assert.Equal(t, start, cell)
	assert.Equal(t, North, dir)
}

// Scenario 1 from spec §8: N=8, a snake at encode(4,3,3,8) facing North
// with no turning inputs advances deterministically tick over tick,
// always staying within the cube's cell space.
func TestScenarioOneHeadProjection(t *testing.T) {
	const n = 8
	cell := Encode(FacePosZ, 3, 3, n)
	dir := North
	seen := map[int]bool{cell: true}
	for i := 0; i < 4; i++ {
		next, nd := Step(cell, dir, n)
		require.NotEqual(t, cell, next, "head must move every tick")
		cell, dir = next, nd
		_, u, v := Decode(cell, n)
		assert.True(t, u >= 0 && u < n && v >= 0 && v < n)
		seen[cell] = true
	}
	assert.Len(t, seen, 5)
}

func TestDirectionReverseAndRotate(t *testing.T) {
	assert.Equal(t, South, North.Reverse())
	assert.Equal(t, West, East.Reverse())
	assert.Equal(t, East, North.Rotate(1))
	assert.Equal(t, West, North.Rotate(-1))
	assert.Equal(t, North, West.Rotate(1))
}
