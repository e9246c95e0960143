// Package quickhull builds the convex hull of a point cloud by incremental
// extrusion of a triangle mesh.
//
// A tetrahedron spanned by four extreme points seeds the mesh. Every
// triangle then tracks the point farthest above it; the triangle with the
// largest rise is extruded toward its point, which becomes a hull vertex,
// until no point rises above any triangle by more than the epsilon of the
// cloud or the vertex budget is spent.
package quickhull

import (
	"math"

	"github.com/akmonengine/hull/geom"
	"github.com/akmonengine/hull/mesh"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

const (
	// EpsilonRatio scales the bounding box diagonal into the build epsilon.
	EpsilonRatio = 0.001
	// AboveRatio scales the build epsilon into the tolerance of the
	// visibility test used while extruding.
	AboveRatio = 0.01
	// SkinnyRatio scales epsilon² into the smallest cross product accepted
	// for a triangle fanning out of a new vertex.
	SkinnyRatio = 0.1
	// SimplexVolumeEpsilon scales the cube of the diagonal into the smallest
	// volume accepted for the seed tetrahedron.
	SimplexVolumeEpsilon = 1e-12
)

var (
	ErrTooFewPoints = errors.New("quickhull: at least 4 points are required")
	ErrDegenerate   = errors.New("quickhull: points are collinear or coplanar")
	ErrAreaTest     = errors.New("quickhull: seed triangle area under the area test epsilon")
	ErrNoProgress   = errors.New("quickhull: extrusion does not converge")
)

// State is the stage a build ended in.
type State int

const (
	StateEmpty State = iota
	StateSimplex
	StateExtruding
	StateDone
	StateVertexLimitReached
	StateFailed
	StateAreaTestFailed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateSimplex:
		return "simplex"
	case StateExtruding:
		return "extruding"
	case StateDone:
		return "done"
	case StateVertexLimitReached:
		return "vertex limit reached"
	case StateFailed:
		return "failed"
	case StateAreaTestFailed:
		return "area test failed"
	}
	return "unknown"
}

// Builder holds the settings of a hull build. The zero value is usable.
type Builder struct {
	// VertexLimit caps the hull vertices, 0 means unlimited. Values under 4
	// still produce the seed tetrahedron.
	VertexLimit int
	// AreaTestEpsilon rejects a seed tetrahedron with a face smaller than
	// it. 0 disables the test.
	AreaTestEpsilon float64
	// Verify checks the neighbour links and the orientation of the mesh
	// after every extrusion.
	Verify bool
}

// Hull is the result of a build. Its mesh comes from a pool: call Release
// once the triangles have been read.
type Hull struct {
	Points  []mgl64.Vec3
	Mesh    *mesh.Mesh
	State   State
	Epsilon float64
	// Extreme marks the points used as hull vertices.
	Extreme []bool
	// Iterations is the number of extruded vertices after the seed.
	Iterations int
}

// Triangles returns the vertex indices of the live triangles, counter-clockwise
// seen from outside.
func (h *Hull) Triangles() [][3]int {
	if h == nil || h.Mesh == nil {
		return nil
	}
	out := make([][3]int, 0, h.Mesh.Count())
	for _, t := range h.Mesh.All() {
		out = append(out, t.V)
	}
	return out
}

// Planes returns the outward planes of the live triangles, in the order of
// Triangles.
func (h *Hull) Planes() []geom.Plane {
	if h == nil || h.Mesh == nil {
		return nil
	}
	out := make([]geom.Plane, 0, h.Mesh.Count())
	for _, t := range h.Mesh.All() {
		out = append(out, geom.PlaneFromTriangle(h.Points[t.V[0]], h.Points[t.V[1]], h.Points[t.V[2]]))
	}
	return out
}

// Release returns the mesh to its pool.
func (h *Hull) Release() {
	if h == nil {
		return
	}
	mesh.Release(h.Mesh)
	h.Mesh = nil
}

type build struct {
	points  []mgl64.Vec3
	allow   []uint8
	extreme []bool
	m       *mesh.Mesh
	epsilon float64
	center  mgl64.Vec3
	verify  bool
}

// above reports whether p is above the plane of triangle t by more than epsilon.
func (b *build) above(t [3]int, p mgl64.Vec3, epsilon float64) bool {
	n := geom.TriNormal(b.points[t[0]], b.points[t[1]], b.points[t[2]])
	return n.Dot(p.Sub(b.points[t[0]])) > epsilon
}

// updateRise recomputes the farthest point above triangle i.
func (b *build) updateRise(i int) {
	t := b.m.Tri(i)
	n := geom.TriNormal(b.points[t.V[0]], b.points[t.V[1]], b.points[t.V[2]])
	t.VMax = MaxDirSterid(b.points, n, b.allow)
	t.Rise = 0
	if t.VMax < 0 || b.extreme[t.VMax] {
		t.VMax = -1
		return
	}
	t.Rise = n.Dot(b.points[t.VMax].Sub(b.points[t.V[0]]))
}

// extrudable returns the triangle with the largest rise above epsilon, or -1.
func (b *build) extrudable() int {
	best := -1
	rise := b.epsilon
	for i, t := range b.m.All() {
		if t.VMax >= 0 && t.Rise > rise {
			best = i
			rise = t.Rise
		}
	}
	return best
}

func (b *build) check() error {
	if err := b.m.CheckAll(); err != nil {
		return err
	}
	for i, t := range b.m.All() {
		if b.above(t.V, b.center, AboveRatio*b.epsilon) {
			return errors.Errorf("quickhull: triangle %d %v faces the centre", i, t.V)
		}
	}
	return nil
}

// Build computes the hull of points. The returned Hull is never nil; when err
// is not nil its State tells which stage failed and its mesh holds nothing
// usable.
//
// Algorithm:
//  1. Epsilon is EpsilonRatio times the bounding box diagonal.
//  2. FindSimplex seeds a positively oriented tetrahedron; its 4 vertices
//     are marked extreme and count against the vertex limit.
//  3. Every triangle gets the farthest allowed point above it (MaxDirSterid
//     along its normal) and the matching rise.
//  4. While the budget lasts, the triangle with the largest rise above
//     epsilon gives the next vertex v. Every triangle that sees v is
//     extruded toward it.
//  5. New triangles fanning out of v that are skinny, or that face the
//     centre of the seed, get their neighbour across the far edge extruded
//     too, until the fan is clean.
//  6. Rises are recomputed for the new triangles only. A triangle whose
//     farthest point is already a vertex is saturated.
func (bd Builder) Build(points []mgl64.Vec3) (*Hull, error) {
	h := &Hull{Points: points, State: StateEmpty}
	if len(points) < 4 {
		h.State = StateFailed
		return h, ErrTooFewPoints
	}

	b := &build{
		points:  points,
		allow:   NewAllow(len(points)),
		extreme: make([]bool, len(points)),
		epsilon: geom.NewAABB(points...).Diagonal() * EpsilonRatio,
		verify:  bd.Verify,
	}
	h.Extreme = b.extreme
	h.Epsilon = b.epsilon
	if b.epsilon == 0 || math.IsNaN(b.epsilon) || math.IsInf(b.epsilon, 0) {
		h.State = StateFailed
		return h, ErrDegenerate
	}

	p, ok := FindSimplex(points, b.allow)
	if !ok {
		h.State = StateFailed
		return h, ErrDegenerate
	}
	h.State = StateSimplex

	b.m = mesh.Acquire()
	h.Mesh = b.m
	b.center = points[p[0]].Add(points[p[1]]).Add(points[p[2]]).Add(points[p[3]]).Mul(0.25)

	// triangle k is opposite p[k]; neighbour links are the seed indices
	seed := [4][2][3]int{
		{{p[2], p[3], p[1]}, {2, 3, 1}},
		{{p[3], p[2], p[0]}, {3, 2, 0}},
		{{p[0], p[1], p[3]}, {0, 1, 3}},
		{{p[1], p[0], p[2]}, {1, 0, 2}},
	}
	for _, s := range seed {
		i := b.m.Allocate(s[0][0], s[0][1], s[0][2])
		b.m.Tri(i).N = s[1]
	}
	for _, v := range p {
		b.extreme[v] = true
	}

	if bd.AreaTestEpsilon > 0 {
		for _, t := range b.m.All() {
			if geom.Area2(points[t.V[0]], points[t.V[1]], points[t.V[2]])*0.5 < bd.AreaTestEpsilon {
				h.State = StateAreaTestFailed
				return h, ErrAreaTest
			}
		}
	}

	if b.verify {
		if err := b.check(); err != nil {
			h.State = StateFailed
			return h, errors.Wrap(err, "quickhull: seed tetrahedron")
		}
	}

	for i := range b.m.All() {
		b.updateRise(i)
	}

	budget := math.MaxInt
	if bd.VertexLimit > 0 {
		budget = bd.VertexLimit - 4
	}
	h.State = StateExtruding

	for budget > 0 {
		te := b.extrudable()
		if te < 0 {
			break
		}

		v := b.m.Tri(te).VMax
		if b.extreme[v] {
			// the point became a vertex through another triangle
			tri := b.m.Tri(te)
			tri.VMax = -1
			tri.Rise = 0
			continue
		}
		b.extreme[v] = true

		if err := b.addVertex(v); err != nil {
			h.State = StateFailed
			return h, errors.Wrapf(err, "quickhull: adding vertex %d", v)
		}

		budget--
		h.Iterations++
	}

	if b.extrudable() >= 0 {
		h.State = StateVertexLimitReached
		return h, nil
	}

	h.State = StateDone
	return h, nil
}

// addVertex extrudes every triangle that sees v, cleans up the fan around v
// and refreshes the rises.
func (b *build) addVertex(v int) error {
	pv := b.points[v]
	for j := b.m.Len() - 1; j >= 0; j-- {
		t := b.m.Tri(j)
		if t == nil {
			continue
		}
		if b.above(t.V, pv, AboveRatio*b.epsilon) {
			b.m.Extrude(j, v)
		}
	}
	if err := b.m.Err(); err != nil {
		return err
	}

	// new triangles are at the end of the arena, all of them contain v
	guard := 4*len(b.points) + b.m.Len()
	for j := b.m.Len() - 1; j >= 0; j-- {
		t := b.m.Tri(j)
		if t == nil {
			continue
		}
		if !t.HasVert(v) {
			break
		}
		a, c, d := b.points[t.V[0]], b.points[t.V[1]], b.points[t.V[2]]
		skinny := c.Sub(a).Cross(d.Sub(c)).Len() < b.epsilon*b.epsilon*SkinnyRatio
		if !skinny && !b.above(t.V, b.center, AboveRatio*b.epsilon) {
			continue
		}

		guard--
		if guard < 0 {
			return ErrNoProgress
		}
		nb := b.m.Tri(t.N[0])
		if nb == nil || nb.HasVert(v) {
			return errors.Errorf("quickhull: cannot repair triangle %d %v around vertex %d", j, t.V, v)
		}
		b.m.Extrude(t.N[0], v)
		if err := b.m.Err(); err != nil {
			return err
		}
		j = b.m.Len()
	}

	for j := b.m.Len() - 1; j >= 0; j-- {
		t := b.m.Tri(j)
		if t == nil {
			continue
		}
		if t.VMax >= 0 {
			break
		}
		b.updateRise(j)
	}

	if b.verify {
		return b.check()
	}
	return b.m.Err()
}
