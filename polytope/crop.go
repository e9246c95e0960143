package polytope

import (
	"github.com/akmonengine/hull/geom"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// MaxCropVertices caps the vertices of a polytope produced by Crop.
const MaxCropVertices = 256

var (
	ErrTooManyVertices = errors.New("polytope: crop exceeds the vertex limit")
	ErrOpenLoop        = errors.New("polytope: coplanar edges do not close into a loop")
	ErrInconsistent    = errors.New("polytope: half-edges are inconsistent with the vertex classification")
)

type vertFlag struct {
	test     int
	undermap int
}

// coplanarEdge is an edge of the new facet lying on the slice plane.
type coplanarEdge struct {
	ea     int // opposite half-edge, on the facet that was cut
	v0, v1 int
}

// Crop returns the part of c under slice: c ∩ {x : slice.Distance(x) <= 0}.
// Vertices within epsilon of slice count as on it. c is left untouched.
//
// Algorithm:
//  1. Classify every vertex Over, Coplanar or Under; nothing Over → Clone.
//  2. Walk the edge loop of every facet once. Edges with an Under or
//     Coplanar start are kept. An edge crossing the plane gets a new vertex
//     at the intersection of its two facets with slice; the opposite edge,
//     walked from the other facet, reuses it.
//  3. Each facet that keeps something Under contributes one edge lying on
//     slice, from where its loop dives under the plane (vin) to where it
//     comes back (vout). These edges, reversed, are chained vin to vout into
//     the loop of the new facet slice.
func Crop(c *ConvexH, slice geom.Plane, epsilon float64) (*ConvexH, error) {
	flags := make([]vertFlag, len(c.Vertices))
	under := 0
	anyOver := false
	for i, v := range c.Vertices {
		flags[i].test = slice.Test(v, epsilon)
		if flags[i].test == geom.Over {
			flags[i].undermap = -1
			anyOver = true
			continue
		}
		flags[i].undermap = under
		under++
	}
	if !anyOver {
		return c.Clone(), nil
	}

	edgeUnder := make([]int, len(c.Edges))
	for i := range edgeUnder {
		edgeUnder[i] = -1
	}
	edges := make([]HalfEdge, 0, len(c.Edges))
	facets := make([]geom.Plane, 0, len(c.Facets)+1)
	var created []mgl64.Vec3
	var coplanar []coplanarEdge

	emit := func(v, p int) int {
		edges = append(edges, HalfEdge{Ea: -1, V: v, P: p})
		return len(edges) - 1
	}
	// link glues the new edge e to the output of the already walked edge ea.
	link := func(e, ea int) error {
		o := edgeUnder[ea]
		if o < 0 {
			return errors.Wrapf(ErrInconsistent, "edge %d was dropped", ea)
		}
		edges[e].Ea = o
		edges[o].Ea = e
		return nil
	}
	split := func(edge0 HalfEdge) mgl64.Vec3 {
		a, b := c.Vertices[edge0.V], c.Vertices[c.Edges[edge0.Ea].V]
		if p, ok := geom.ThreePlaneIntersection(c.Facets[edge0.P], c.Facets[c.Edges[edge0.Ea].P], slice); ok {
			return p
		}
		da, db := slice.Distance(a), slice.Distance(b)
		return a.Add(b.Sub(a).Mul(da / (da - db)))
	}

	e0 := 0
	for fi := range c.Facets {
		if e0 >= len(c.Edges) || c.Edges[e0].P != fi {
			return nil, errors.Wrapf(ErrInconsistent, "facet %d has no edges", fi)
		}
		start := e0
		enext := len(c.Edges)
		planeside := 0
		e1 := e0 + 1
		vout, vin := -1, -1
		onSlice := -1
		p := len(facets)

		for {
			if e1 >= len(c.Edges) || c.Edges[e1].P != fi {
				enext = e1
				e1 = start
			}
			edge0, edge1 := c.Edges[e0], c.Edges[e1]
			t0, t1 := flags[edge0.V].test, flags[edge1.V].test
			planeside |= t0

			switch {
			case t0 == geom.Over && t1 == geom.Over:
				// dropped

			case t0|t1 == geom.Under:
				edgeUnder[e0] = len(edges)
				e := emit(flags[edge0.V].undermap, p)
				if edge0.Ea < e0 {
					if err := link(e, edge0.Ea); err != nil {
						return nil, err
					}
				}

			case t0|t1 == geom.Coplanar:
				// the edge lies on slice: kept only when the facet goes under
				e2 := e1 + 1
				if e2 >= len(c.Edges) || c.Edges[e2].P != fi {
					e2 = start
				}
				if flags[c.Edges[e2].V].test == geom.Under {
					edgeUnder[e0] = len(edges)
					onSlice = emit(flags[edge0.V].undermap, p)
					vout = flags[edge0.V].undermap
					vin = flags[edge1.V].undermap
				}

			case t0 == geom.Under && t1 == geom.Over:
				edgeUnder[e0] = len(edges)
				e := emit(flags[edge0.V].undermap, p)
				if edge0.Ea < e0 {
					if err := link(e, edge0.Ea); err != nil {
						return nil, err
					}
					vout = edges[edgeUnder[edge0.Ea]].V
				} else {
					created = append(created, split(edge0))
					vout = under
					under++
				}
				onSlice = emit(vout, p)

			case t0 == geom.Coplanar && t1 == geom.Over:
				vout = flags[edge0.V].undermap
				for k := start; planeside&geom.Under == 0 && k < len(c.Edges) && c.Edges[k].P == fi; k++ {
					planeside |= flags[c.Edges[k].V].test
				}
				if planeside&geom.Under != 0 {
					onSlice = emit(vout, p)
				}

			case t0 == geom.Over && t1 == geom.Under:
				if e0 < edge0.Ea {
					created = append(created, split(edge0))
					vin = under
					under++
				} else {
					// the opposite edge, walked before, created the vertex
					nea := edgeUnder[edge0.Ea]
					if nea < 0 || nea+1 >= len(edges) {
						return nil, errors.Wrapf(ErrInconsistent, "edge %d crosses without a split vertex", edge0.Ea)
					}
					vin = edges[nea+1].V
				}
				edgeUnder[e0] = len(edges)
				e := emit(vin, p)
				if e0 > edge0.Ea {
					if err := link(e, edge0.Ea); err != nil {
						return nil, err
					}
				}

			case t0 == geom.Over && t1 == geom.Coplanar:
				vin = flags[edge1.V].undermap
			}

			e0 = e1
			e1++
			if e0 == start {
				break
			}
		}
		e0 = enext

		if planeside&geom.Under == 0 {
			continue
		}
		facets = append(facets, c.Facets[fi])
		if vout >= 0 {
			if vin < 0 || onSlice < 0 {
				return nil, errors.Wrapf(ErrOpenLoop, "facet %d leaves the plane without coming back", fi)
			}
			coplanar = append(coplanar, coplanarEdge{ea: onSlice, v0: vin, v1: vout})
		}
	}

	if under > MaxCropVertices {
		return nil, ErrTooManyVertices
	}

	if len(coplanar) > 0 {
		facets = append(facets, slice)
	}
	for i := 0; i < len(coplanar)-1; i++ {
		if coplanar[i].v1 == coplanar[i+1].v0 {
			continue
		}
		j := i + 2
		for ; j < len(coplanar); j++ {
			if coplanar[i].v1 == coplanar[j].v0 {
				coplanar[i+1], coplanar[j] = coplanar[j], coplanar[i+1]
				break
			}
		}
		if j >= len(coplanar) {
			return nil, ErrOpenLoop
		}
	}
	if n := len(coplanar); n > 0 && coplanar[n-1].v1 != coplanar[0].v0 {
		return nil, ErrOpenLoop
	}

	out := &ConvexH{
		Vertices: make([]mgl64.Vec3, 0, under),
		Edges:    make([]HalfEdge, len(edges)+len(coplanar)),
		Facets:   facets,
	}
	for i, v := range c.Vertices {
		if flags[i].test != geom.Over {
			out.Vertices = append(out.Vertices, v)
		}
	}
	out.Vertices = append(out.Vertices, created...)

	copy(out.Edges, edges)
	for i, ce := range coplanar {
		k := len(edges) + i
		out.Edges[k] = HalfEdge{Ea: ce.ea, V: ce.v0, P: len(facets) - 1}
		out.Edges[ce.ea].Ea = k
	}
	return out, nil
}
