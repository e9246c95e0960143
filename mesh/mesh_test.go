package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tetrahedron builds the 4 glued triangles over vertices 0..3.
func tetrahedron(m *Mesh) {
	t0 := m.Allocate(2, 3, 1)
	m.Tri(t0).N = [3]int{2, 3, 1}
	t1 := m.Allocate(3, 2, 0)
	m.Tri(t1).N = [3]int{3, 2, 0}
	t2 := m.Allocate(0, 1, 3)
	m.Tri(t2).N = [3]int{0, 1, 3}
	t3 := m.Allocate(1, 0, 2)
	m.Tri(t3).N = [3]int{1, 0, 2}
}

func TestTriEdgeQueries(t *testing.T) {
	tri := Tri{V: [3]int{4, 7, 9}}

	tests := []struct {
		name     string
		a, b     int
		slot     int
		directed bool
	}{
		{"forward 4-7", 4, 7, 2, true},
		{"reverse 7-4", 7, 4, 2, false},
		{"forward 7-9", 7, 9, 0, true},
		{"wrap 9-4", 9, 4, 1, true},
		{"missing", 4, 5, -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.slot, tri.NeibSlot(tt.a, tt.b))
			assert.Equal(t, tt.directed, tri.HasEdge(tt.a, tt.b))
		})
	}

	assert.True(t, tri.HasVert(9))
	assert.False(t, tri.HasVert(5))
}

func TestTetrahedronIsClosed(t *testing.T) {
	m := Acquire()
	defer Release(m)

	tetrahedron(m)
	assert.Equal(t, 4, m.Count())
	require.NoError(t, m.CheckAll())
}

func TestExtrudeKeepsInvariant(t *testing.T) {
	m := Acquire()
	defer Release(m)
	tetrahedron(m)

	m.Extrude(0, 4)
	require.NoError(t, m.Err())
	require.NoError(t, m.CheckAll())
	assert.Equal(t, 6, m.Count())
	assert.Equal(t, 7, m.Len(), "tombstones keep their slot")
	assert.Nil(t, m.Tri(0))

	apex := 0
	for _, tri := range m.All() {
		if tri.HasVert(4) {
			apex++
		}
	}
	assert.Equal(t, 3, apex)
}

func TestExtrudeFoldsBackToBackPairs(t *testing.T) {
	m := Acquire()
	defer Release(m)
	tetrahedron(m)

	m.Extrude(0, 4) // creates (4,3,1) glued to triangle 2 across 3-1
	m.Extrude(2, 4) // (4,1,3) lands back to back on (4,3,1)

	require.NoError(t, m.Err())
	require.NoError(t, m.CheckAll())
	assert.Equal(t, 6, m.Count())

	for _, tri := range m.All() {
		assert.False(t, tri.HasVert(1) && tri.HasVert(3) && tri.HasVert(4), "folded pair %v must be gone", tri.V)
	}
}

func TestCheckDetectsBrokenLinks(t *testing.T) {
	m := Acquire()
	defer Release(m)
	tetrahedron(m)

	m.Tri(0).N[0] = 1
	assert.Error(t, m.Check(0))
	assert.Error(t, m.CheckAll())

	m.Tri(0).N[0] = 2
	m.Delete(3)
	assert.Error(t, m.CheckAll(), "dead neighbour must be reported")
}

func TestDeleteTwiceRecordsError(t *testing.T) {
	m := Acquire()
	defer Release(m)
	tetrahedron(m)

	m.Delete(1)
	require.NoError(t, m.Err())
	m.Delete(1)
	assert.Error(t, m.Err())

	m.Reset()
	assert.NoError(t, m.Err())
	assert.Zero(t, m.Len())
}
