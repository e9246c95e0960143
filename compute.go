package hull

import (
	"log/slog"
	"math"

	"github.com/akmonengine/hull/bevel"
	"github.com/akmonengine/hull/geom"
	"github.com/akmonengine/hull/polytope"
	"github.com/akmonengine/hull/quickhull"
	"github.com/go-gl/mathgl/mgl64"
)

// Defaults of Options and HullDesc, taken by their zero fields.
const (
	// DefaultMaxPlanes caps the planes cropping an inflated hull.
	DefaultMaxPlanes = 35
	// DefaultBevelAngle, in degrees, is the dihedral angle under which an
	// edge of an inflated hull is beveled.
	DefaultBevelAngle = 120
	// DefaultMinAdjacentAngle, in degrees, merges planes closer than it.
	DefaultMinAdjacentAngle = 3

	// ExpandRetryVertices is the vertex limit of the rebuild that follows an
	// expansion.
	ExpandRetryVertices = 256
)

// Options tune ComputeHull past its vertex limit, inflation and area test.
// Zero fields take their default: DefaultMaxPlanes, DefaultBevelAngle,
// DefaultMinAdjacentAngle, one worker and slog.Default. A zero angle is
// therefore not expressible; use a small positive one.
type Options struct {
	// MaxPlanes caps the planes cropping the box of an inflated hull.
	MaxPlanes int
	// BevelAngle, in degrees: edges sharper than it get a chamfer plane
	// when the hull is inflated.
	BevelAngle float64
	// MinAdjacentAngle, in degrees: planes closer than it are merged.
	MinAdjacentAngle float64
	// Workers splits the violation scans of an expansion.
	Workers int
	// Verify checks the mesh after every extrusion.
	Verify bool
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxPlanes == 0 {
		o.MaxPlanes = DefaultMaxPlanes
	}
	if o.BevelAngle == 0 {
		o.BevelAngle = DefaultBevelAngle
	}
	if o.MinAdjacentAngle == 0 {
		o.MinAdjacentAngle = DefaultMinAdjacentAngle
	}
	if o.Workers == 0 {
		o.Workers = 1
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Polytope is a hull before reindexing: Faces index Points, which may hold
// points no face uses. Faces are triangles unless Polygons is set; polygons
// come with the plane they were cropped by in Planes.
type Polytope struct {
	Points   []mgl64.Vec3
	Faces    [][]int
	Planes   []geom.Plane
	Polygons bool
}

func fromConvexH(c *polytope.ConvexH) *Polytope {
	return &Polytope{Points: c.Vertices, Faces: c.Faces(), Planes: c.FacePlanes(), Polygons: true}
}

// ComputeHull hulls points, which must be cleaned beforehand.
//
// With inflate 0 the result is the triangulated hull. Otherwise the hull is
// beveled and its planes, pushed out by inflate, crop a box into a polygonal
// hull. When the builder runs out of vertices the hull planes are pushed
// until they enclose every point and rebuilt from their corners, inflated
// on the way; that path reports StatusVertexLimitReached and is not an
// error.
func ComputeHull(points []mgl64.Vec3, vertexLimit int, inflate, areaEpsilon float64, opts Options) (*Polytope, Status, error) {
	opts = opts.withDefaults()
	logger := opts.Logger

	h, err := quickhull.Builder{
		VertexLimit:     vertexLimit,
		AreaTestEpsilon: areaEpsilon,
		Verify:          opts.Verify,
	}.Build(points)
	defer h.Release()
	if err != nil {
		if h.State == quickhull.StateAreaTestFailed {
			return nil, StatusAreaTestFail, withStatus(ErrAreaTestFail, err)
		}
		return nil, StatusFail, withStatus(ErrFail, err)
	}
	logger.Debug("hull built", "state", h.State, "iterations", h.Iterations, "triangles", h.Mesh.Count())

	if h.State == quickhull.StateVertexLimitReached {
		p, err := expanded(h, points, inflate, opts)
		if err != nil {
			return nil, StatusFail, withStatus(ErrFail, err)
		}
		return p, StatusVertexLimitReached, nil
	}

	if inflate == 0 {
		return &Polytope{Points: h.Points, Faces: triangles(h.Triangles())}, StatusOK, nil
	}

	planes, err := bevel.Planes(h, opts.BevelAngle, opts.MinAdjacentAngle)
	if err != nil {
		return nil, StatusFail, withStatus(ErrFail, err)
	}
	c, report, err := polytope.Overhull(planes, points, opts.MaxPlanes, inflate, opts.MinAdjacentAngle)
	if err != nil {
		return nil, StatusFail, withStatus(ErrFail, err)
	}
	if report.Stopped != nil {
		logger.Debug("overhull stopped early", "cuts", report.Cuts, "err", report.Stopped)
	}
	logger.Debug("hull inflated", "planes", len(planes), "cuts", report.Cuts, "vertices", len(c.Vertices))
	return fromConvexH(c), StatusOK, nil
}

// expanded pushes the planes of a capped hull over every point and rebuilds
// a hull from their corners. If the rebuild misses a point, the pushed
// planes crop a box instead.
func expanded(h *quickhull.Hull, points []mgl64.Vec3, inflate float64, opts Options) (*Polytope, error) {
	logger := opts.Logger
	ex := quickhull.Expand(h, points, inflate, opts.Workers)
	logger.Debug("hull expanded", "planes", len(ex.Planes), "corners", len(ex.Points))

	retry, err := quickhull.Builder{VertexLimit: ExpandRetryVertices, Verify: opts.Verify}.Build(ex.Points)
	defer retry.Release()

	tolerance := h.Epsilon + math.Max(0, -inflate)
	if err == nil {
		worst, at := quickhull.MaxViolation(retry.Planes(), points, opts.Workers)
		if worst <= tolerance {
			return &Polytope{Points: retry.Points, Faces: triangles(retry.Triangles())}, nil
		}
		logger.Debug("rebuilt hull misses a point, cropping planes", "point", at, "distance", worst)
	} else {
		logger.Debug("rebuild failed, cropping planes", "err", err)
	}

	bounds := geom.NewAABB(points...)
	bounds = bounds.Inflate(bounds.Diagonal() + math.Abs(inflate)*polytope.BevelMargin)
	c, err := polytope.FromPlanes(bounds.Min, bounds.Max, ex.PlaneSet(), bounds.Diagonal()*polytope.PaperWidth*polytope.PaperWidth)
	if err != nil {
		return nil, err
	}
	return fromConvexH(c), nil
}

func triangles(tris [][3]int) [][]int {
	out := make([][]int, len(tris))
	for i, t := range tris {
		out[i] = []int{t[0], t[1], t[2]}
	}
	return out
}
