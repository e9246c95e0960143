package cloud

import (
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
)

// maxGridCoordinate bounds |p / cellSize| so cell coordinates stay exact
// integers. Beyond it the grid is disabled and find scans linearly.
const maxGridCoordinate = 1 << 40

// cellKey - coordinates of a cell in normalized space
type cellKey struct {
	X, Y, Z int
}

// cell - indices of the kept points hashed into one bucket
type cell struct {
	indices []int
}

// pointGrid is a uniform hash grid over kept points. With a cell size equal
// to the merge tolerance, every candidate within tolerance lives in the 27
// cells around the query point.
type pointGrid struct {
	cellSize float64
	cells    []cell
	cellMask int
}

// newPointGrid returns nil when a grid cannot answer exactly (zero tolerance
// or coordinates too large for the cell size); callers then scan linearly.
func newPointGrid(cellSize float64, numPoints int, lo, hi mgl64.Vec3) *pointGrid {
	if cellSize <= 0 {
		return nil
	}
	for j := 0; j < 3; j++ {
		if math.Abs(lo[j])/cellSize > maxGridCoordinate || math.Abs(hi[j])/cellSize > maxGridCoordinate {
			return nil
		}
	}

	numCells := nextPowerOfTwo(numPoints)
	cells := make([]cell, numCells)
	for i := range cells {
		cells[i].indices = make([]int, 0, 2)
	}

	return &pointGrid{
		cellSize: cellSize,
		cells:    cells,
		cellMask: numCells - 1,
	}
}

// nextPowerOfTwo - rounds up to the next power of 2
func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}

func (g *pointGrid) insert(index int, p mgl64.Vec3) {
	if g == nil {
		return
	}
	idx := g.hashCell(g.toCell(p))
	g.cells[idx].indices = append(g.cells[idx].indices, index)
}

func (g *pointGrid) remove(index int, p mgl64.Vec3) {
	if g == nil {
		return
	}
	c := &g.cells[g.hashCell(g.toCell(p))]
	if k := slices.Index(c.indices, index); k >= 0 {
		c.indices = slices.Delete(c.indices, k, k+1)
	}
}

// move re-files a kept point whose position changed.
func (g *pointGrid) move(index int, from, to mgl64.Vec3) {
	g.remove(index, from)
	g.insert(index, to)
}

// find returns the lowest index of a kept point within epsilon of p on every
// axis, or -1. The lowest index is what a front-to-back linear scan over kept
// would return, so results do not depend on the grid.
func (g *pointGrid) find(kept []mgl64.Vec3, p mgl64.Vec3, epsilon float64) int {
	if g == nil {
		for j := range kept {
			if near(kept[j], p, epsilon) {
				return j
			}
		}
		return -1
	}

	best := -1
	center := g.toCell(p)
	for x := center.X - 1; x <= center.X+1; x++ {
		for y := center.Y - 1; y <= center.Y+1; y++ {
			for z := center.Z - 1; z <= center.Z+1; z++ {
				for _, j := range g.cells[g.hashCell(cellKey{x, y, z})].indices {
					if (best == -1 || j < best) && near(kept[j], p, epsilon) {
						best = j
					}
				}
			}
		}
	}
	return best
}

func near(a, b mgl64.Vec3, epsilon float64) bool {
	return math.Abs(a[0]-b[0]) < epsilon &&
		math.Abs(a[1]-b[1]) < epsilon &&
		math.Abs(a[2]-b[2]) < epsilon
}

// toCell - converts a position to cell coordinates
func (g *pointGrid) toCell(pos mgl64.Vec3) cellKey {
	return cellKey{
		X: int(math.Floor(pos.X() / g.cellSize)),
		Y: int(math.Floor(pos.Y() / g.cellSize)),
		Z: int(math.Floor(pos.Z() / g.cellSize)),
	}
}

// hashCell - hashes a cell to an index into the array
func (g *pointGrid) hashCell(key cellKey) int {
	h := (key.X * 73856093) ^ (key.Y * 19349663) ^ (key.Z * 83492791)
	return h & g.cellMask
}
