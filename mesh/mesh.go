// Package mesh implements the triangle soup with per-edge neighbour links
// used as the working polytope while a hull is built incrementally.
//
// Triangles live in an arena and refer to each other by index. Deleting a
// triangle leaves a tombstone: indices are never reused until Reset, so an
// index taken before a mutation still designates the same triangle (or a
// tombstone) afterwards.
//
// Two-sided invariant: for every live triangle t and edge i, the triangle
// n = t.N[i] is live, owns the reversed edge, and points back at t through it.
package mesh

import (
	"iter"
	"sync"

	"github.com/pkg/errors"
)

// meshInitialCapacity is the initial arena size of a pooled mesh.
const meshInitialCapacity = 64

// Tri is a triangle of the working mesh.
//
// N[i] is the triangle sharing the edge opposite V[i], i.e. the edge
// V[(i+1)%3] → V[(i+2)%3].
type Tri struct {
	V  [3]int
	N  [3]int
	ID int
	// VMax is the point farthest above the triangle, -1 when saturated.
	VMax int
	// Rise is the distance of VMax above the triangle plane.
	Rise float64

	dead bool
}

// NeibSlot returns the index into N of the edge joining a and b, in either
// direction, or -1 when the triangle has no such edge.
func (t *Tri) NeibSlot(a, b int) int {
	for i := 0; i < 3; i++ {
		i1 := (i + 1) % 3
		i2 := (i + 2) % 3
		if (t.V[i] == a && t.V[i1] == b) || (t.V[i] == b && t.V[i1] == a) {
			return i2
		}
	}
	return -1
}

// HasEdge reports whether the triangle contains the directed edge a → b.
func (t *Tri) HasEdge(a, b int) bool {
	for i := 0; i < 3; i++ {
		if t.V[i] == a && t.V[(i+1)%3] == b {
			return true
		}
	}
	return false
}

func (t *Tri) HasVert(v int) bool {
	return t.V[0] == v || t.V[1] == v || t.V[2] == v
}

// Mesh is an arena of triangles.
type Mesh struct {
	tris []Tri
	live int
	err  error
}

var meshPool = sync.Pool{
	New: func() interface{} {
		return &Mesh{tris: make([]Tri, 0, meshInitialCapacity)}
	},
}

// Acquire returns an empty mesh from the pool.
func Acquire() *Mesh {
	m := meshPool.Get().(*Mesh)
	m.Reset()
	return m
}

// Release returns m to the pool. m must not be used afterwards.
func Release(m *Mesh) {
	if m == nil {
		return
	}
	m.Reset()
	meshPool.Put(m)
}

// Reset drops every triangle while keeping the allocated arena.
func (m *Mesh) Reset() {
	m.tris = m.tris[:0]
	m.live = 0
	m.err = nil
}

// Len is the number of arena slots, tombstones included.
func (m *Mesh) Len() int {
	return len(m.tris)
}

// Count is the number of live triangles.
func (m *Mesh) Count() int {
	return m.live
}

// Tri returns the triangle at index i, or nil for a tombstone or an index out
// of range. The pointer is valid until the next Allocate.
func (m *Mesh) Tri(i int) *Tri {
	if i < 0 || i >= len(m.tris) || m.tris[i].dead {
		return nil
	}
	return &m.tris[i]
}

// All iterates the live triangles in index order.
func (m *Mesh) All() iter.Seq2[int, *Tri] {
	return func(yield func(int, *Tri) bool) {
		for i := range m.tris {
			if m.tris[i].dead {
				continue
			}
			if !yield(i, &m.tris[i]) {
				return
			}
		}
	}
}

// Err returns the first broken invariant met while editing the mesh.
func (m *Mesh) Err() error {
	return m.err
}

func (m *Mesh) fail(format string, args ...any) {
	if m.err == nil {
		m.err = errors.Errorf(format, args...)
	}
}

// Allocate appends the triangle a, b, c with unset neighbours and returns its index.
func (m *Mesh) Allocate(a, b, c int) int {
	id := len(m.tris)
	m.tris = append(m.tris, Tri{
		V:    [3]int{a, b, c},
		N:    [3]int{-1, -1, -1},
		ID:   id,
		VMax: -1,
	})
	m.live++
	return id
}

// Delete tombstones the triangle at index i.
func (m *Mesh) Delete(i int) {
	if m.Tri(i) == nil {
		m.fail("mesh: delete of dead triangle %d", i)
		return
	}
	m.tris[i].dead = true
	m.live--
}

// setNeib points the edge a-b of triangle i at triangle value.
func (m *Mesh) setNeib(i, a, b, value int) {
	t := m.Tri(i)
	if t == nil {
		m.fail("mesh: triangle %d is dead while relinking edge %d-%d", i, a, b)
		return
	}
	slot := t.NeibSlot(a, b)
	if slot < 0 {
		m.fail("mesh: triangle %d %v has no edge %d-%d", i, t.V, a, b)
		return
	}
	t.N[slot] = value
}

// neib returns the neighbour of triangle i across the edge a-b, -1 if unknown.
func (m *Mesh) neib(i, a, b int) int {
	t := m.Tri(i)
	if t == nil {
		m.fail("mesh: triangle %d is dead while reading edge %d-%d", i, a, b)
		return -1
	}
	slot := t.NeibSlot(a, b)
	if slot < 0 {
		m.fail("mesh: triangle %d %v has no edge %d-%d", i, t.V, a, b)
		return -1
	}
	return t.N[slot]
}

// Extrude replaces triangle i by three triangles joining each of its edges
// to the apex v, and relinks the outer neighbours.
//
// A new triangle whose outer neighbour already contains v is folded onto that
// neighbour (both are removed and their other neighbours glued together), so
// the mesh never keeps a back-to-back pair of zero-volume triangles.
func (m *Mesh) Extrude(i, v int) {
	t0 := m.Tri(i)
	if t0 == nil {
		m.fail("mesh: extrude of dead triangle %d", i)
		return
	}
	t, nb := t0.V, t0.N
	n := len(m.tris)

	ta := m.Allocate(v, t[1], t[2])
	m.tris[ta].N = [3]int{nb[0], n + 1, n + 2}
	m.setNeib(nb[0], t[1], t[2], n+0)

	tb := m.Allocate(v, t[2], t[0])
	m.tris[tb].N = [3]int{nb[1], n + 2, n + 0}
	m.setNeib(nb[1], t[2], t[0], n+1)

	tc := m.Allocate(v, t[0], t[1])
	m.tris[tc].N = [3]int{nb[2], n + 0, n + 1}
	m.setNeib(nb[2], t[0], t[1], n+2)

	for _, k := range [3]int{ta, tb, tc} {
		tk := m.Tri(k)
		if tk == nil {
			continue
		}
		if outer := m.Tri(tk.N[0]); outer != nil && outer.HasVert(v) {
			m.RemoveB2B(k, tk.N[0])
		}
	}

	m.Delete(i)
}

// b2bfix glues the outer neighbours of the back-to-back pair s, t.
func (m *Mesh) b2bfix(s, t int) {
	for i := 0; i < 3; i++ {
		ts := m.Tri(s)
		if ts == nil {
			m.fail("mesh: b2b triangle %d is dead", s)
			return
		}
		a := ts.V[(i+1)%3]
		b := ts.V[(i+2)%3]

		sn := m.neib(s, a, b)
		tn := m.neib(t, b, a)
		if sn < 0 || tn < 0 {
			return
		}
		m.setNeib(sn, b, a, tn)
		m.setNeib(tn, a, b, sn)
	}
}

// RemoveB2B deletes the back-to-back pair s, t after gluing their neighbours.
func (m *Mesh) RemoveB2B(s, t int) {
	m.b2bfix(s, t)
	m.Delete(s)
	m.Delete(t)
}

// Check verifies the two-sided invariant around triangle i.
func (m *Mesh) Check(i int) error {
	t := m.Tri(i)
	if t == nil {
		return errors.Errorf("mesh: triangle %d is dead", i)
	}
	if t.ID != i {
		return errors.Errorf("mesh: triangle %d carries id %d", i, t.ID)
	}
	for k := 0; k < 3; k++ {
		a := t.V[(k+1)%3]
		b := t.V[(k+2)%3]
		if a == b {
			return errors.Errorf("mesh: triangle %d %v has a collapsed edge", i, t.V)
		}
		nb := m.Tri(t.N[k])
		if nb == nil {
			return errors.Errorf("mesh: triangle %d %v edge %d-%d links dead neighbour %d", i, t.V, a, b, t.N[k])
		}
		if !nb.HasEdge(b, a) {
			return errors.Errorf("mesh: neighbour %d %v does not own edge %d-%d of triangle %d", t.N[k], nb.V, b, a, i)
		}
		if back := nb.N[nb.NeibSlot(b, a)]; back != i {
			return errors.Errorf("mesh: neighbour %d links back to %d instead of %d", t.N[k], back, i)
		}
	}
	return nil
}

// CheckAll verifies the two-sided invariant on every live triangle.
func (m *Mesh) CheckAll() error {
	if m.err != nil {
		return m.err
	}
	for i := range m.All() {
		if err := m.Check(i); err != nil {
			return err
		}
	}
	return nil
}
