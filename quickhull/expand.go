package quickhull

import (
	"github.com/akmonengine/hull/geom"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// MaxExpandPasses bounds the push passes of Expand. A pass pushes every
	// violated plane by its largest violation; a point moved inside one
	// plane may still violate another, which the next pass fixes.
	MaxExpandPasses = 16
	// ExpandToleranceRatio scales the build epsilon into the violation
	// ignored by Expand.
	ExpandToleranceRatio = 0.001
	// CornerToleranceRatio scales the diameter into the distance under which
	// two corners computed for the same source vertex are the same point.
	CornerToleranceRatio = 0.00001
)

// ExpandPlane is a hull triangle turned into a plane that can be pushed.
type ExpandPlane struct {
	Plane geom.Plane
	// Tri holds the source vertices of the triangle.
	Tri [3]int
	// Adjacent[k] is the plane across the edge opposite Tri[k], -1 if none.
	Adjacent [3]int
	// ExpandPoint is the point that required the largest push, -1 if none.
	ExpandPoint    int
	ExpandDistance float64
	// Indices[k] is the output point computed for the corner Tri[k].
	Indices [3]int
}

// ExpandResult is the point set re-derived from the pushed planes.
type ExpandResult struct {
	Points []mgl64.Vec3
	Planes []ExpandPlane
}

// PlaneSet returns the pushed planes.
func (r ExpandResult) PlaneSet() []geom.Plane {
	out := make([]geom.Plane, len(r.Planes))
	for i := range r.Planes {
		out[i] = r.Planes[i].Plane
	}
	return out
}

type violation struct {
	plane int
	dist  float64
}

// worstViolations stores, for every point, the plane it is farthest above.
func worstViolations(planes []geom.Plane, points []mgl64.Vec3, workers int, found []violation) {
	task(workers, points, func(i int, p mgl64.Vec3) {
		best := violation{plane: -1}
		for j := range planes {
			if d := planes[j].Distance(p); d > best.dist {
				best = violation{plane: j, dist: d}
			}
		}
		found[i] = best
	})
}

// MaxViolation returns the largest distance of a point above any of the
// planes and the index of that point. A distance of 0 with index -1 means
// every point is enclosed.
func MaxViolation(planes []geom.Plane, points []mgl64.Vec3, workers int) (float64, int) {
	found := make([]violation, len(points))
	worstViolations(planes, points, workers, found)

	worst, at := 0.0, -1
	for i, v := range found {
		if v.plane >= 0 && v.dist > worst {
			worst, at = v.dist, i
		}
	}
	return worst, at
}

func hasEdge(t [3]int, a, b int) bool {
	return (t[0] == a && t[1] == b) || (t[1] == a && t[2] == b) || (t[2] == a && t[0] == b)
}

// Expand turns a hull that stopped on its vertex budget into a smaller
// point set whose hull encloses points.
//
// Algorithm:
//  1. One plane per live triangle. Adjacency is re-derived by matching
//     reversed edges between triangles, the mesh links are not trusted.
//  2. Every point is charged to the plane it is farthest above; each plane
//     is pushed by the largest charge it received. Repeat until no point is
//     outside or MaxExpandPasses is reached.
//  3. Every plane is pushed by inflate.
//  4. Each triangle corner becomes the intersection of its plane with the
//     two planes across the edges meeting at that corner. Corners are keyed
//     by source vertex: a later corner replaces an earlier one when they
//     differ by more than CornerToleranceRatio of the diameter.
//
// Corners whose planes are nearly dependent, or that land farther than the
// diameter from their source vertex, fall back to the source vertex pushed
// along the plane normal.
func Expand(h *Hull, points []mgl64.Vec3, inflate float64, workers int) ExpandResult {
	tris := h.Triangles()
	planes := make([]ExpandPlane, len(tris))
	for i, t := range tris {
		planes[i] = ExpandPlane{
			Plane:       geom.PlaneFromTriangle(h.Points[t[0]], h.Points[t[1]], h.Points[t[2]]),
			Tri:         t,
			Adjacent:    [3]int{-1, -1, -1},
			ExpandPoint: -1,
			Indices:     [3]int{-1, -1, -1},
		}
	}

	for i := range planes {
		t := planes[i].Tri
		for k := 0; k < 3; k++ {
			a, b := t[(k+1)%3], t[(k+2)%3]
			for j := range planes {
				if j != i && hasEdge(planes[j].Tri, b, a) {
					planes[i].Adjacent[k] = j
					break
				}
			}
		}
	}

	tolerance := h.Epsilon * ExpandToleranceRatio
	current := make([]geom.Plane, len(planes))
	found := make([]violation, len(points))
	pushed := make([]float64, len(planes))

	for pass := 0; pass < MaxExpandPasses; pass++ {
		for j := range planes {
			current[j] = planes[j].Plane
			pushed[j] = 0
		}
		worstViolations(current, points, workers, found)

		moved := false
		for i, v := range found {
			if v.plane < 0 || v.dist <= tolerance {
				continue
			}
			if v.dist > pushed[v.plane] {
				pushed[v.plane] = v.dist
				planes[v.plane].ExpandPoint = i
			}
		}
		for j := range planes {
			if pushed[j] > 0 {
				planes[j].Plane = planes[j].Plane.Push(pushed[j])
				planes[j].ExpandDistance += pushed[j]
				moved = true
			}
		}
		if !moved {
			break
		}
	}

	for j := range planes {
		planes[j].Plane = planes[j].Plane.Push(inflate)
	}

	diameter := h.Epsilon / EpsilonRatio
	tolerance = diameter * CornerToleranceRatio
	translate := make([]int, len(h.Points))
	for i := range translate {
		translate[i] = -1
	}

	var out []mgl64.Vec3
	for i := range planes {
		ep := &planes[i]
		for k := 0; k < 3; k++ {
			src := ep.Tri[k]
			p := corner(planes, i, k)
			if p == nil || p.Sub(h.Points[src]).Len() > diameter {
				q := h.Points[src].Add(ep.Plane.Normal.Mul(ep.ExpandDistance + inflate))
				p = &q
			}

			switch at := translate[src]; {
			case at < 0:
				translate[src] = len(out)
				out = append(out, *p)
			case out[at].Sub(*p).Len() > tolerance:
				out[at] = *p
			}
			ep.Indices[k] = translate[src]
		}
	}

	return ExpandResult{Points: out, Planes: planes}
}

// corner intersects plane i with the planes across the two edges that meet
// at its corner k. It returns nil when an edge has no neighbour or the
// three planes do not meet in a single point.
func corner(planes []ExpandPlane, i, k int) *mgl64.Vec3 {
	a1 := planes[i].Adjacent[(k+1)%3]
	a2 := planes[i].Adjacent[(k+2)%3]
	if a1 < 0 || a2 < 0 {
		return nil
	}
	p, ok := geom.ThreePlaneIntersection(planes[i].Plane, planes[a1].Plane, planes[a2].Plane)
	if !ok {
		return nil
	}
	return &p
}
