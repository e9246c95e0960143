package hull

import (
	"github.com/go-gl/mathgl/mgl64"
)

// compact drops the points no face references and renumbers the faces.
// Points keep the order of their first reference.
func compact(points []mgl64.Vec3, faces [][]int) ([]mgl64.Vec3, [][]int) {
	remap := make([]int, len(points))
	for i := range remap {
		remap[i] = -1
	}

	used := make([]mgl64.Vec3, 0, len(points))
	out := make([][]int, len(faces))
	for i, f := range faces {
		g := make([]int, len(f))
		for k, v := range f {
			if remap[v] < 0 {
				remap[v] = len(used)
				used = append(used, points[v])
			}
			g[k] = remap[v]
		}
		out[i] = g
	}
	return used, out
}
