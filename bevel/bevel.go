// Package bevel reduces a triangulated hull to the candidate planes of an
// overhull: near-parallel triangles are merged and sharp edges get an extra
// chamfer plane.
package bevel

import (
	"math"

	"github.com/akmonengine/hull/geom"
	"github.com/akmonengine/hull/quickhull"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

var ErrZeroBisector = errors.New("bevel: faces around an edge have opposite normals")

type face struct {
	tri    [3]int
	normal mgl64.Vec3
	area2  float64
	alive  bool
}

// Planes returns the candidate planes of the hull h.
//
// Algorithm:
//  1. For every edge, visited once from the triangle with the lower id,
//     whose two faces differ by more than bevelAngle degrees: a bevel plane
//     with normal cross(sn, e) + cross(e, tn) (the bisector of the faces
//     turned around the edge e) touching the point of h farthest along it.
//  2. Among triangles within minAdjAngle degrees of each other only the
//     one with the larger area is kept.
//  3. The planes of the kept triangles, then every bevel plane that is not
//     within minAdjAngle of a plane already output.
func Planes(h *quickhull.Hull, bevelAngle, minAdjAngle float64) ([]geom.Plane, error) {
	m := h.Mesh
	v := h.Points
	maxdot := math.Cos(mgl64.DegToRad(minAdjAngle))
	bevdot := math.Cos(mgl64.DegToRad(bevelAngle))

	normal := func(t [3]int) mgl64.Vec3 {
		return geom.TriNormal(v[t[0]], v[t[1]], v[t[2]])
	}

	var bevels []geom.Plane
	var faces []face
	for _, t := range m.All() {
		tn := normal(t.V)
		faces = append(faces, face{tri: t.V, normal: tn, area2: geom.Area2(v[t.V[0]], v[t.V[1]], v[t.V[2]]), alive: true})

		for j := 0; j < 3; j++ {
			if t.N[j] < t.ID {
				continue
			}
			s := m.Tri(t.N[j])
			if s == nil {
				return nil, errors.Errorf("bevel: triangle %d links dead neighbour %d", t.ID, t.N[j])
			}
			sn := normal(s.V)
			if sn.Dot(tn) >= bevdot {
				continue
			}

			e := v[t.V[(j+2)%3]].Sub(v[t.V[(j+1)%3]])
			var n mgl64.Vec3
			if geom.IsZero(e) {
				n = sn.Add(tn)
			} else {
				n = sn.Cross(e).Add(e.Cross(tn))
			}
			if geom.IsZero(n) {
				return nil, errors.Wrapf(ErrZeroBisector, "edge %d-%d", t.V[(j+1)%3], t.V[(j+2)%3])
			}
			n = n.Normalize()
			bevels = append(bevels, geom.NewPlane(n, -n.Dot(v[quickhull.MaxDir(v, n)])))
		}
	}

	for i := range faces {
		for j := i + 1; j < len(faces) && faces[i].alive; j++ {
			if !faces[j].alive || faces[i].normal.Dot(faces[j].normal) <= maxdot {
				continue
			}
			// keep the larger triangle
			if faces[i].area2 < faces[j].area2 {
				faces[i].alive = false
			} else {
				faces[j].alive = false
			}
		}
	}

	planes := make([]geom.Plane, 0, len(faces)+len(bevels))
	for _, f := range faces {
		if f.alive {
			planes = append(planes, geom.PlaneFromTriangle(v[f.tri[0]], v[f.tri[1]], v[f.tri[2]]))
		}
	}
	for _, b := range bevels {
		duplicate := false
		for _, p := range planes {
			if b.Normal.Dot(p.Normal) > maxdot {
				duplicate = true
				break
			}
		}
		if !duplicate {
			planes = append(planes, b)
		}
	}
	return planes, nil
}
