package hull

import (
	"math"
	"slices"

	"github.com/akmonengine/hull/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// CoplanarTolerance scales the diameter into the distance under which a
// triangle lies on the plane of its neighbour when faces are merged.
const CoplanarTolerance = 1e-6

// edgeEntry counts the triangles of a group around an undirected edge
// (a < b). An edge seen once is on the boundary of the group.
type edgeEntry struct {
	a, b  int
	count int
}

func findEdge(edges []edgeEntry, a, b int) int {
	if a > b {
		a, b = b, a
	}
	for i := range edges {
		if edges[i].a == a && edges[i].b == b {
			return i
		}
	}
	return -1
}

// mergeCoplanar joins neighbouring triangles lying on the same plane into
// polygon loops, wound like the triangles. A group whose boundary is not a
// single loop is kept as triangles.
func mergeCoplanar(points []mgl64.Vec3, tris [][]int) [][]int {
	if len(tris) == 0 {
		return nil
	}
	tolerance := geom.NewAABB(points...).Diagonal() * CoplanarTolerance

	planes := make([]geom.Plane, len(tris))
	for i, t := range tris {
		planes[i] = geom.PlaneFromTriangle(points[t[0]], points[t[1]], points[t[2]])
	}
	onPlane := func(p geom.Plane, t []int) bool {
		for _, v := range t {
			d := p.Distance(points[v])
			if d > tolerance || d < -tolerance {
				return false
			}
		}
		return true
	}

	owner := make(map[[2]int]int, 3*len(tris))
	for i, t := range tris {
		for k := 0; k < 3; k++ {
			owner[[2]int{t[k], t[(k+1)%3]}] = i
		}
	}

	// union-find, the root of a group is its lowest triangle
	parent := make([]int, len(tris))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for i, t := range tris {
		for k := 0; k < 3; k++ {
			j, ok := owner[[2]int{t[(k+1)%3], t[k]}]
			if !ok || j <= i {
				continue
			}
			if planes[i].Normal.Dot(planes[j].Normal) <= 0 || !onPlane(planes[i], tris[j]) || !onPlane(planes[j], tris[i]) {
				continue
			}
			ri, rj := find(i), find(j)
			if ri != rj {
				parent[max(ri, rj)] = min(ri, rj)
			}
		}
	}

	groups := make(map[int][]int)
	var roots []int
	for i := range tris {
		r := find(i)
		if _, ok := groups[r]; !ok {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], i)
	}

	out := make([][]int, 0, len(roots))
	for _, r := range roots {
		members := groups[r]
		if len(members) == 1 {
			out = append(out, slices.Clone(tris[members[0]]))
			continue
		}
		if loop := boundaryLoop(tris, members); loop != nil {
			out = append(out, loop)
			continue
		}
		for _, i := range members {
			out = append(out, slices.Clone(tris[i]))
		}
	}
	return out
}

// boundaryLoop chains the edges seen once in the triangles of members into
// a loop. It returns nil unless they form exactly one loop.
func boundaryLoop(tris [][]int, members []int) []int {
	var edges []edgeEntry
	for _, i := range members {
		t := tris[i]
		for k := 0; k < 3; k++ {
			a, b := t[k], t[(k+1)%3]
			if e := findEdge(edges, a, b); e >= 0 {
				edges[e].count++
				continue
			}
			edges = append(edges, edgeEntry{a: min(a, b), b: max(a, b), count: 1})
		}
	}

	next := make(map[int]int)
	start := -1
	for _, i := range members {
		t := tris[i]
		for k := 0; k < 3; k++ {
			a, b := t[k], t[(k+1)%3]
			if edges[findEdge(edges, a, b)].count != 1 {
				continue
			}
			if _, ok := next[a]; ok {
				return nil
			}
			next[a] = b
			if start < 0 {
				start = a
			}
		}
	}
	if start < 0 {
		return nil
	}

	loop := []int{start}
	for v := next[start]; v != start; v = next[v] {
		if len(loop) >= len(next) {
			return nil
		}
		if _, ok := next[v]; !ok {
			return nil
		}
		loop = append(loop, v)
	}
	if len(loop) != len(next) {
		return nil
	}
	return loop
}

// triangulate fans every polygon loop around the vertex whose fan has the
// tallest thinnest triangle, heights measured along the loop plane. Cropped
// loops are only planar within the crop epsilon: a fan from a vertex next to
// a nearly straight corner makes a sliver whose own plane tilts across the
// hull. A nil planes uses the Newell plane of each loop.
func triangulate(points []mgl64.Vec3, faces [][]int, planes []geom.Plane) [][]int {
	out := make([][]int, 0, len(faces))
	for i, f := range faces {
		var normal mgl64.Vec3
		if planes != nil {
			normal = planes[i].Normal
		} else {
			normal = facePlane(points, f).Normal
		}

		a := fanApex(points, f, normal)
		n := len(f)
		for k := 1; k+1 < n; k++ {
			out = append(out, []int{f[a], f[(a+k)%n], f[(a+k+1)%n]})
		}
	}
	return out
}

// fanApex returns the position in loop of the apex whose fan maximizes the
// smallest triangle height. The first apex wins ties.
func fanApex(points []mgl64.Vec3, loop []int, normal mgl64.Vec3) int {
	n := len(loop)
	best, bestHeight := 0, math.Inf(-1)
	for a := 0; a < n && n > 3; a++ {
		height := math.Inf(1)
		p0 := points[loop[a]]
		for k := 1; k+1 < n; k++ {
			p1, p2 := points[loop[(a+k)%n]], points[loop[(a+k+1)%n]]
			area2 := p1.Sub(p0).Cross(p2.Sub(p0)).Dot(normal)
			longest := math.Max(p1.Sub(p0).Len(), math.Max(p2.Sub(p1).Len(), p0.Sub(p2).Len()))
			h := math.Inf(-1)
			if longest > 0 {
				h = area2 / longest
			}
			height = math.Min(height, h)
		}
		if height > bestHeight {
			best, bestHeight = a, height
		}
	}
	return best
}

// reverseWinding flips every loop in place, keeping its first vertex.
func reverseWinding(faces [][]int) {
	for _, f := range faces {
		if len(f) > 1 {
			slices.Reverse(f[1:])
		}
	}
}

// facePlane returns the outward plane of a loop from its Newell normal,
// through the loop centroid.
func facePlane(points []mgl64.Vec3, loop []int) geom.Plane {
	var n, c mgl64.Vec3
	for k, v := range loop {
		p, q := points[v], points[loop[(k+1)%len(loop)]]
		n[0] += (p[1] - q[1]) * (p[2] + q[2])
		n[1] += (p[2] - q[2]) * (p[0] + q[0])
		n[2] += (p[0] - q[0]) * (p[1] + q[1])
		c = c.Add(p)
	}
	if geom.IsZero(n) {
		return geom.Plane{}
	}
	c = c.Mul(1 / float64(len(loop)))
	n = n.Normalize()
	return geom.NewPlane(n, -n.Dot(c))
}
