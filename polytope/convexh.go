// Package polytope represents a convex polytope as vertices, half-edges and
// facet planes, and builds polytopes by clipping a box with planes.
package polytope

import (
	"github.com/akmonengine/hull/geom"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// HalfEdge is a directed edge of a facet loop.
type HalfEdge struct {
	// Ea is the opposite half-edge, on the neighbouring facet.
	Ea int
	// V is the vertex the edge starts from.
	V int
	// P is the facet the edge belongs to.
	P int
}

// ConvexH is a convex polytope. The edges of a facet are stored contiguously,
// in facet order, and walk the facet counter-clockwise seen from outside.
// A ConvexH is never modified once built: clipping returns a new value.
type ConvexH struct {
	Vertices []mgl64.Vec3
	Edges    []HalfEdge
	Facets   []geom.Plane
}

// NewCube returns the box [lo, hi] with 8 vertices, 24 half-edges and 6
// facets. Vertex i has x from bit 2, y from bit 1 and z from bit 0.
func NewCube(lo, hi mgl64.Vec3) *ConvexH {
	c := &ConvexH{
		Vertices: make([]mgl64.Vec3, 8),
		Facets: []geom.Plane{
			geom.NewPlane(mgl64.Vec3{-1, 0, 0}, lo.X()),
			geom.NewPlane(mgl64.Vec3{1, 0, 0}, -hi.X()),
			geom.NewPlane(mgl64.Vec3{0, -1, 0}, lo.Y()),
			geom.NewPlane(mgl64.Vec3{0, 1, 0}, -hi.Y()),
			geom.NewPlane(mgl64.Vec3{0, 0, -1}, lo.Z()),
			geom.NewPlane(mgl64.Vec3{0, 0, 1}, -hi.Z()),
		},
		Edges: []HalfEdge{
			{11, 0, 0}, {23, 1, 0}, {15, 3, 0}, {16, 2, 0},
			{13, 6, 1}, {21, 7, 1}, {9, 5, 1}, {18, 4, 1},
			{19, 0, 2}, {6, 4, 2}, {20, 5, 2}, {0, 1, 2},
			{22, 3, 3}, {4, 7, 3}, {17, 6, 3}, {2, 2, 3},
			{3, 0, 4}, {14, 2, 4}, {7, 6, 4}, {8, 4, 4},
			{10, 1, 5}, {5, 5, 5}, {12, 7, 5}, {1, 3, 5},
		},
	}
	for i := range c.Vertices {
		c.Vertices[i] = mgl64.Vec3{
			pick(i&4 != 0, lo.X(), hi.X()),
			pick(i&2 != 0, lo.Y(), hi.Y()),
			pick(i&1 != 0, lo.Z(), hi.Z()),
		}
	}
	return c
}

func pick(high bool, lo, hi float64) float64 {
	if high {
		return hi
	}
	return lo
}

// Clone returns a deep copy of c.
func (c *ConvexH) Clone() *ConvexH {
	return &ConvexH{
		Vertices: append([]mgl64.Vec3(nil), c.Vertices...),
		Edges:    append([]HalfEdge(nil), c.Edges...),
		Facets:   append([]geom.Plane(nil), c.Facets...),
	}
}

// next returns the edge following e in its facet loop.
func (c *ConvexH) next(e, start int) int {
	n := e + 1
	if n >= len(c.Edges) || c.Edges[n].P != c.Edges[e].P {
		return start
	}
	return n
}

// Faces returns the vertex loop of every facet, in facet order.
func (c *ConvexH) Faces() [][]int {
	faces := make([][]int, 0, len(c.Facets))
	for i := 0; i < len(c.Edges); {
		var loop []int
		p := c.Edges[i].P
		for ; i < len(c.Edges) && c.Edges[i].P == p; i++ {
			loop = append(loop, c.Edges[i].V)
		}
		faces = append(faces, loop)
	}
	return faces
}

// FacePlanes returns the plane of every loop of Faces, in the same order.
func (c *ConvexH) FacePlanes() []geom.Plane {
	planes := make([]geom.Plane, 0, len(c.Facets))
	for i := 0; i < len(c.Edges); {
		p := c.Edges[i].P
		for ; i < len(c.Edges) && c.Edges[i].P == p; i++ {
		}
		planes = append(planes, c.Facets[p])
	}
	return planes
}

// SplitTest classifies the whole polytope against plane: the OR of the
// flags of its vertices.
func (c *ConvexH) SplitTest(plane geom.Plane, epsilon float64) int {
	flag := 0
	for _, v := range c.Vertices {
		flag |= plane.Test(v, epsilon)
	}
	return flag
}

// Check verifies that c is a closed, consistently wound polytope: every
// half-edge has an opposite edge running the other way, every vertex lies
// on the facets it bounds, and every facet loop winds along its normal.
func (c *ConvexH) Check(epsilon float64) error {
	if len(c.Edges) == 0 {
		return errors.New("polytope: no edges")
	}
	start := 0
	for i, e := range c.Edges {
		if c.Edges[start].P != e.P {
			start = i
		}
		if e.P < 0 || e.P >= len(c.Facets) {
			return errors.Errorf("polytope: edge %d refers to facet %d", i, e.P)
		}
		if e.V < 0 || e.V >= len(c.Vertices) {
			return errors.Errorf("polytope: edge %d refers to vertex %d", i, e.V)
		}
		if e.Ea < 0 || e.Ea >= len(c.Edges) {
			return errors.Errorf("polytope: edge %d has no opposite", i)
		}
		if c.Edges[e.Ea].Ea != i {
			return errors.Errorf("polytope: edge %d and %d are not opposite", i, e.Ea)
		}
		if c.Edges[e.Ea].V != c.Edges[c.next(i, start)].V {
			return errors.Errorf("polytope: edge %d and its opposite %d do not share endpoints", i, e.Ea)
		}
	}

	start = 0
	for i, e := range c.Edges {
		if c.Edges[start].P != e.P {
			start = i
		}
		facet := c.Facets[e.P]
		if facet.Test(c.Vertices[e.V], epsilon) != geom.Coplanar {
			return errors.Errorf("polytope: vertex %d is off facet %d", e.V, e.P)
		}
		i1 := c.next(i, start)
		i2 := c.next(i1, start)
		if i == i2 {
			continue
		}
		n := geom.TriNormal(c.Vertices[e.V], c.Vertices[c.Edges[i1].V], c.Vertices[c.Edges[i2].V])
		if n.Dot(facet.Normal) <= 0 {
			return errors.Errorf("polytope: facet %d winds against its normal at edge %d", e.P, i)
		}
	}
	return nil
}

// Intact reports whether Check finds nothing wrong.
func (c *ConvexH) Intact(epsilon float64) bool {
	return c.Check(epsilon) == nil
}
