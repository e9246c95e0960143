package hull

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/akmonengine/hull/geom"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/markus-wa/quickhull-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitCube() []mgl64.Vec3 {
	pts := make([]mgl64.Vec3, 0, 8)
	for i := 0; i < 8; i++ {
		pts = append(pts, mgl64.Vec3{float64(i & 1), float64((i >> 1) & 1), float64((i >> 2) & 1)})
	}
	return pts
}

// fibonacci spreads n points evenly on the unit sphere.
func fibonacci(n int) []mgl64.Vec3 {
	golden := math.Pi * (3 - math.Sqrt(5))
	pts := make([]mgl64.Vec3, n)
	for i := range pts {
		z := 1 - 2*(float64(i)+0.5)/float64(n)
		r := math.Sqrt(1 - z*z)
		phi := golden * float64(i)
		pts[i] = mgl64.Vec3{r * math.Cos(phi), r * math.Sin(phi), z}
	}
	return pts
}

func randomSphere(n int, seed uint64) []mgl64.Vec3 {
	rng := rand.New(rand.NewPCG(seed, seed))
	pts := make([]mgl64.Vec3, n)
	for i := range pts {
		pts[i] = mgl64.Vec3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}.Normalize()
	}
	return pts
}

func randomBox(n int, seed uint64, size mgl64.Vec3) []mgl64.Vec3 {
	rng := rand.New(rand.NewPCG(seed, seed))
	pts := make([]mgl64.Vec3, n)
	for i := range pts {
		pts[i] = mgl64.Vec3{rng.Float64() * size[0], rng.Float64() * size[1], rng.Float64() * size[2]}
	}
	return pts
}

func create(t *testing.T, desc HullDesc) *HullResult {
	t.Helper()
	r, err := CreateConvexHull(desc)
	require.NoError(t, err)
	require.NotNil(t, r)
	return r
}

func assertEncloses(t *testing.T, r *HullResult, pts []mgl64.Vec3, tolerance float64) {
	t.Helper()
	for i, plane := range r.Planes() {
		for _, p := range pts {
			if !assert.LessOrEqual(t, plane.Distance(p), tolerance, "point %v above face %d", p, i) {
				return
			}
		}
	}
}

func assertCompact(t *testing.T, r *HullResult) {
	t.Helper()
	used := make([]bool, r.NumOutputVertices)
	for _, f := range r.Faces() {
		for _, v := range f {
			require.Less(t, v, r.NumOutputVertices)
			used[v] = true
		}
	}
	for i, u := range used {
		assert.True(t, u, "vertex %d is not referenced", i)
	}
}

func TestCreateConvexHullUnitCube(t *testing.T) {
	r := create(t, NewHullDesc(QfTriangles, unitCube()...))

	assert.Equal(t, StatusOK, r.Status)
	assert.False(t, r.Polygons)
	assert.Equal(t, 8, r.NumOutputVertices)
	assert.Equal(t, 12, r.NumFaces)
	assert.Equal(t, 36, r.NumIndices)
	assert.ElementsMatch(t, unitCube(), r.Vertices())
	assertCompact(t, r)
	assertEncloses(t, r, unitCube(), 1e-9)

	// outward: the centre is under every face
	for _, plane := range r.Planes() {
		assert.InDelta(t, -0.5, plane.Distance(mgl64.Vec3{0.5, 0.5, 0.5}), 1e-9)
	}
}

func TestCreateConvexHullPolygons(t *testing.T) {
	r := create(t, NewHullDesc(0, unitCube()...))

	assert.True(t, r.Polygons)
	assert.Equal(t, 8, r.NumOutputVertices)
	assert.Equal(t, 6, r.NumFaces)
	assert.Equal(t, 6*5, r.NumIndices)
	for _, f := range r.Faces() {
		assert.Len(t, f, 4)
	}
	assertCompact(t, r)
	assertEncloses(t, r, unitCube(), 1e-9)
}

func TestCreateConvexHullReverseOrder(t *testing.T) {
	desc := NewHullDesc(QfTriangles, unitCube()...)
	forward := create(t, desc)
	desc.SetHullFlag(QfReverseOrder)
	reversed := create(t, desc)

	require.Equal(t, forward.NumFaces, reversed.NumFaces)
	ff, rf := forward.Faces(), reversed.Faces()
	for i := range ff {
		assert.Equal(t, []int{ff[i][0], ff[i][2], ff[i][1]}, rf[i])
	}
	for _, plane := range reversed.Planes() {
		assert.Greater(t, plane.Distance(mgl64.Vec3{0.5, 0.5, 0.5}), 0.0)
	}
}

func TestCreateConvexHullVertexLimit(t *testing.T) {
	pts := randomSphere(1000, 3)
	desc := NewHullDesc(QfTriangles, pts...)
	desc.MaxVertices = 64
	r := create(t, desc)

	assert.Equal(t, StatusVertexLimitReached, r.Status)
	assert.LessOrEqual(t, r.NumOutputVertices, ExpandRetryVertices)
	assert.GreaterOrEqual(t, r.NumOutputVertices, 4)
	assertCompact(t, r)
	assertEncloses(t, r, pts, 0.005)
}

func TestCreateConvexHullCoplanar(t *testing.T) {
	pts := randomBox(500, 7, mgl64.Vec3{10, 10, 0})
	r := create(t, NewHullDesc(QfTriangles, pts...))

	assert.Equal(t, StatusOK, r.Status)
	assert.Equal(t, 8, r.NumOutputVertices)
	assert.Equal(t, 12, r.NumFaces)

	in := geom.NewAABB(pts...).Size()
	out := geom.NewAABB(r.Vertices()...).Size()
	assert.InDelta(t, in[0], out[0], 1e-9)
	assert.InDelta(t, in[1], out[1], 1e-9)
	assert.InDelta(t, 0.05*min(in[0], in[1]), out[2], 1e-9)
	assertEncloses(t, r, pts, 1e-9)
}

func TestCreateConvexHullDegenerate(t *testing.T) {
	tests := []struct {
		name   string
		points []mgl64.Vec3
	}{
		{"no points", nil},
		{"one point", []mgl64.Vec3{{1, 2, 3}}},
		{"two points", []mgl64.Vec3{{0, 0, 0}, {1, 1, 1}}},
		{"three points", []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 1}}},
		{"same point", []mgl64.Vec3{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}, {1, 1, 1}, {1, 1, 1}}},
		{"flat", []mgl64.Vec3{{0, 0, 2}, {1, 0, 2}, {0, 1, 2}, {1, 1, 2}, {0.5, 0.5, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := create(t, NewHullDesc(QfTriangles, tt.points...))
			assert.Equal(t, StatusOK, r.Status)
			assert.Equal(t, 8, r.NumOutputVertices)
			assert.Equal(t, 12, r.NumFaces)
			assertEncloses(t, r, tt.points, 1e-9)

			r = create(t, NewHullDesc(0, tt.points...))
			assert.Equal(t, 8, r.NumOutputVertices)
			assert.Equal(t, 6, r.NumFaces)
		})
	}
}

func TestCreateConvexHullCollinearFails(t *testing.T) {
	// the box does not catch a line off the axes
	diagonal := []mgl64.Vec3{{0, 0, 0}, {1, 1, 1}, {2, 2, 2}, {3, 3, 3}, {4, 4, 4}}
	r, err := CreateConvexHull(NewHullDesc(QfTriangles, diagonal...))
	assert.ErrorIs(t, err, ErrFail)
	assert.Equal(t, StatusFail, StatusOf(err))
	assert.Nil(t, r)
}

func TestCreateConvexHullSkinWidth(t *testing.T) {
	desc := NewHullDesc(QfTriangles|QfSkinWidth, unitCube()...)
	desc.SkinWidth = 0.1
	r := create(t, desc)

	assert.Equal(t, StatusOK, r.Status)
	assert.Equal(t, 8, r.NumOutputVertices)
	assert.Equal(t, 12, r.NumFaces)
	for _, v := range r.Vertices() {
		for j := 0; j < 3; j++ {
			assert.True(t, math.Abs(v[j]+0.1) < 1e-9 || math.Abs(v[j]-1.1) < 1e-9, "vertex %v", v)
		}
	}
	assertCompact(t, r)
	assertEncloses(t, r, unitCube(), -0.1+1e-9)

	desc.ClearHullFlag(QfTriangles)
	r = create(t, desc)
	assert.True(t, r.Polygons)
	assert.Equal(t, 6, r.NumFaces)
}

func TestCreateConvexHullSkinWidthBevels(t *testing.T) {
	pts := randomSphere(300, 11)
	desc := NewHullDesc(0, pts...)
	desc.SetHullFlag(QfSkinWidth)
	desc.SkinWidth = 0.05
	r := create(t, desc)

	assert.True(t, r.Polygons)
	assert.LessOrEqual(t, r.NumFaces, 6+DefaultMaxPlanes)
	assertCompact(t, r)
	assertEncloses(t, r, pts, 1e-6)
}

func TestCreateConvexHullConvex(t *testing.T) {
	pts := randomBox(300, 5, mgl64.Vec3{2, 2, 2})
	r := create(t, NewHullDesc(QfTriangles, pts...))

	diameter := geom.NewAABB(pts...).Diagonal()
	vertices := r.Vertices()
	for i, plane := range r.Planes() {
		for _, v := range vertices {
			assert.LessOrEqual(t, plane.Distance(v), diameter*1e-4, "hull vertex above face %d", i)
		}
	}
	assertEncloses(t, r, pts, diameter*0.001)
	assertCompact(t, r)
}

func TestCreateConvexHullIdempotent(t *testing.T) {
	first := create(t, NewHullDesc(QfTriangles, fibonacci(100)...))
	second := create(t, NewHullDesc(QfTriangles, first.Vertices()...))

	assert.Equal(t, 100, first.NumOutputVertices)
	assert.Equal(t, first.NumOutputVertices, second.NumOutputVertices)
	assert.Equal(t, first.NumFaces, second.NumFaces)
	for _, v := range second.Vertices() {
		found := false
		for _, w := range first.Vertices() {
			if v.ApproxEqualThreshold(w, 1e-9) {
				found = true
				break
			}
		}
		assert.True(t, found, "vertex %v is new", v)
	}
}

func TestCreateConvexHullStride(t *testing.T) {
	// x, y, z, then a colour to skip
	var buf []float64
	for _, p := range unitCube() {
		buf = append(buf, p[0], p[1], p[2], 0.25)
	}
	desc := NewHullDesc(QfTriangles)
	desc.Vertices = buf
	desc.VertexCount = 8
	desc.VertexStride = 4

	r := create(t, desc)
	assert.ElementsMatch(t, unitCube(), r.Vertices())
}

func TestCreateConvexHullInvalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(d *HullDesc)
	}{
		{"short stride", func(d *HullDesc) { d.VertexStride = 2 }},
		{"missing values", func(d *HullDesc) { d.VertexCount = 9 }},
		{"negative count", func(d *HullDesc) { d.VertexCount = -1 }},
		{"overflowing count", func(d *HullDesc) { d.VertexCount = math.MaxInt/2 + 2 }},
		{"overflowing stride", func(d *HullDesc) { d.VertexStride = math.MaxInt / 4 }},
		{"no values", func(d *HullDesc) { d.Vertices = nil }},
		{"negative epsilon", func(d *HullDesc) { d.NormalEpsilon = -1 }},
		{"nan skin", func(d *HullDesc) { d.SkinWidth = math.NaN() }},
		{"bevel angle", func(d *HullDesc) { d.BevelAngle = 270 }},
		{"adjacent angle", func(d *HullDesc) { d.MinAdjacentAngle = 90 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := NewHullDesc(QfTriangles, unitCube()...)
			tt.modify(&desc)
			r, err := CreateConvexHull(desc)
			assert.ErrorIs(t, err, ErrInvalidDesc)
			assert.Nil(t, r)
		})
	}
}

func TestCreateConvexHullAreaTest(t *testing.T) {
	corner := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	desc := NewHullDesc(QfTriangles, corner...)
	desc.AreaTestEpsilon = 0.6

	r, err := CreateConvexHull(desc)
	assert.ErrorIs(t, err, ErrAreaTestFail)
	assert.Equal(t, StatusAreaTestFail, StatusOf(err))
	assert.Nil(t, r)

	desc.AreaTestEpsilon = 0.1
	r = create(t, desc)
	assert.Equal(t, 4, r.NumFaces)
}

func TestHullFlags(t *testing.T) {
	desc := NewHullDesc(QfDefault)
	assert.True(t, desc.HasHullFlag(QfTriangles))
	assert.False(t, desc.HasHullFlag(QfSkinWidth))

	desc.SetHullFlag(QfSkinWidth | QfReverseOrder)
	assert.True(t, desc.HasHullFlag(QfSkinWidth|QfReverseOrder))
	desc.ClearHullFlag(QfTriangles)
	assert.False(t, desc.HasHullFlag(QfTriangles))
	assert.True(t, desc.HasHullFlag(QfReverseOrder))
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "VERTEX_LIMIT_REACHED", StatusVertexLimitReached.String())
	assert.Equal(t, "UNKNOWN", Status(42).String())
	assert.Equal(t, StatusOK, StatusOf(nil))
	assert.Equal(t, StatusFail, StatusOf(ErrFail))
}

func TestHullResultRelease(t *testing.T) {
	r := create(t, NewHullDesc(QfTriangles, unitCube()...))
	r.Release()
	assert.Zero(t, r.NumOutputVertices)
	assert.Nil(t, r.Indices)
	assert.Empty(t, r.Faces())
}

func TestComputeHullFailure(t *testing.T) {
	_, status, err := ComputeHull([]mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {3, 0, 0}}, 0, 0, 0, Options{})
	assert.Equal(t, StatusFail, status)
	assert.ErrorIs(t, err, ErrFail)
}

func TestComputeHullInflatedIsPolygonal(t *testing.T) {
	p, status, err := ComputeHull(unitCube(), 0, 0.2, 0, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.True(t, p.Polygons)
	assert.Len(t, p.Faces, 6)
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, DefaultMaxPlanes, o.MaxPlanes)
	assert.Equal(t, float64(DefaultBevelAngle), o.BevelAngle)
	assert.Equal(t, float64(DefaultMinAdjacentAngle), o.MinAdjacentAngle)
	assert.Equal(t, 1, o.Workers)
	assert.NotNil(t, o.Logger)

	o = Options{BevelAngle: 90, Workers: 4}.withDefaults()
	assert.Equal(t, 90.0, o.BevelAngle)
	assert.Equal(t, 4, o.Workers)
}

func TestMergeCoplanar(t *testing.T) {
	// two squares folded along x = 1
	pts := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {1, 0, -1}, {1, 1, -1}}
	tris := [][]int{{0, 1, 2}, {0, 2, 3}, {1, 4, 5}, {1, 5, 2}}

	faces := mergeCoplanar(pts, tris)
	require.Len(t, faces, 2)
	assert.Equal(t, []int{0, 1, 2, 3}, faces[0])
	assert.Equal(t, []int{1, 4, 5, 2}, faces[1])
}

func TestTriangulate(t *testing.T) {
	pts := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {}, {0, 0, 1}, {1, 0, 1}, {0, 1, 1}}
	assert.Equal(t, [][]int{{0, 1, 2}, {0, 2, 3}, {5, 6, 7}}, triangulate(pts, [][]int{{0, 1, 2, 3}, {5, 6, 7}}, nil))
}

func TestTriangulateAvoidsSlivers(t *testing.T) {
	// vertex 1 is a nearly straight corner: fanning from 0 or 2 would make
	// the sliver 0, 1, 2
	pts := []mgl64.Vec3{{0, 0, 0}, {1, -0.001, 0}, {2, 0, 0}, {2, 2, 0}, {0, 2, 0}}
	loop := [][]int{{0, 1, 2, 3, 4}}
	want := [][]int{{1, 2, 3}, {1, 3, 4}, {1, 4, 0}}

	assert.Equal(t, want, triangulate(pts, loop, nil))
	assert.Equal(t, want, triangulate(pts, loop, []geom.Plane{geom.NewPlane(mgl64.Vec3{0, 0, 1}, 0)}))
}

func TestCreateConvexHullSkinWidthTriangles(t *testing.T) {
	tests := []struct {
		name   string
		points []mgl64.Vec3
	}{
		{"sphere", randomSphere(300, 11)},
		{"box", randomBox(200, 10, mgl64.Vec3{2, 2, 2})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := NewHullDesc(QfTriangles|QfSkinWidth, tt.points...)
			desc.SkinWidth = 0.05
			r := create(t, desc)

			assert.False(t, r.Polygons)
			assert.Equal(t, 3*r.NumFaces, r.NumIndices)
			assertCompact(t, r)
			assertEncloses(t, r, tt.points, 1e-6)

			diameter := geom.NewAABB(r.Vertices()...).Diagonal()
			vertices := r.Vertices()
			for i, plane := range r.Planes() {
				for _, v := range vertices {
					if !assert.LessOrEqual(t, plane.Distance(v), diameter*0.005, "hull vertex above triangle %d", i) {
						return
					}
				}
			}
		})
	}
}

func TestCreateConvexHullFlatSided(t *testing.T) {
	// the first three extreme points share a side of the cloud
	pts := []mgl64.Vec3{
		{0, 3, 1}, {1, 0, 2}, {3, 3, 1}, {0, 0, 0}, {4, 0, 2},
		{1, 3, 1}, {0, 1, 1}, {4, 0, 1}, {1, 0, 0}, {3, 0, 0},
	}
	r := create(t, NewHullDesc(QfTriangles, pts...))

	assert.Equal(t, StatusOK, r.Status)
	assertCompact(t, r)
	assertEncloses(t, r, pts, 1e-9)
}

func TestCompact(t *testing.T) {
	pts := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {3, 0, 0}, {4, 0, 0}}
	used, faces := compact(pts, [][]int{{4, 2, 0}, {2, 4, 3}})
	assert.Equal(t, []mgl64.Vec3{{4, 0, 0}, {2, 0, 0}, {0, 0, 0}, {3, 0, 0}}, used)
	assert.Equal(t, [][]int{{0, 1, 2}, {1, 0, 3}}, faces)
}

func oracleVertices(pts []mgl64.Vec3) []mgl64.Vec3 {
	vectors := make([]r3.Vector, len(pts))
	for i, p := range pts {
		vectors[i] = r3.Vector{X: p[0], Y: p[1], Z: p[2]}
	}
	ch := new(quickhull.QuickHull).ConvexHull(vectors, true, true, 1e-10)

	seen := make(map[int]bool)
	var out []mgl64.Vec3
	for _, i := range ch.Indices {
		if !seen[i] {
			seen[i] = true
			out = append(out, pts[i])
		}
	}
	return out
}

func TestCreateConvexHullMatchesReference(t *testing.T) {
	tests := []struct {
		name   string
		points []mgl64.Vec3
		same   bool
	}{
		{"sphere", fibonacci(100), true},
		{"cube", unitCube(), true},
		{"random", randomBox(300, 13, mgl64.Vec3{3, 2, 1}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reference := oracleVertices(tt.points)
			r := create(t, NewHullDesc(QfTriangles, tt.points...))

			if tt.same {
				assert.Equal(t, len(reference), r.NumOutputVertices)
			} else {
				// points within epsilon of the hull are left out
				assert.LessOrEqual(t, r.NumOutputVertices, len(reference))
			}
			for _, v := range r.Vertices() {
				found := false
				for _, w := range reference {
					if v.ApproxEqualThreshold(w, 1e-9) {
						found = true
						break
					}
				}
				assert.True(t, found, "vertex %v is not on the reference hull", v)
			}
		})
	}
}
