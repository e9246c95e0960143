// Package hull computes the convex hull of a point cloud.
//
// CreateConvexHull is the entry point: it reads a flat vertex buffer,
// removes near-duplicate points, builds the hull and emits it as a compact
// vertex list with triangle or polygon faces. The hull may be inflated by a
// skin width, in which case sharp edges are beveled.
//
// The building blocks live in their own packages: cloud cleans the input,
// quickhull builds and expands triangle hulls, bevel and polytope turn a
// hull into an inflated polygonal one.
package hull

import (
	"log/slog"
	"math"

	"github.com/akmonengine/hull/cloud"
	"github.com/akmonengine/hull/geom"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// HullFlag selects the output of CreateConvexHull.
type HullFlag uint32

const (
	// QfTriangles emits triangles, otherwise coplanar triangles are merged
	// into polygons.
	QfTriangles HullFlag = 1 << iota
	// QfReverseOrder winds faces clockwise seen from outside.
	QfReverseOrder
	// QfSkinWidth inflates the hull by SkinWidth.
	QfSkinWidth

	QfDefault = QfTriangles
)

// Defaults set by NewHullDesc.
const (
	DefaultNormalEpsilon = 0.001
	DefaultMaxVertices   = 4096
	DefaultSkinWidth     = 0.01
)

// HullDesc describes the input of CreateConvexHull. Build it with
// NewHullDesc to get the defaults.
type HullDesc struct {
	Flags HullFlag
	// Vertices holds VertexCount points, each starting VertexStride values
	// after the previous one. A zero stride means tightly packed.
	Vertices     []float64
	VertexCount  int
	VertexStride int

	// NormalEpsilon is the deduplication distance, relative to the extent
	// of the cloud on each axis.
	NormalEpsilon float64
	// MaxVertices caps the vertices of the built hull, 0 means unlimited.
	// A capped hull is expanded to still enclose every point.
	MaxVertices int
	// SkinWidth is the inflation applied with QfSkinWidth.
	SkinWidth float64
	// AreaTestEpsilon fails the build when a seed face is smaller, 0
	// disables the test.
	AreaTestEpsilon float64

	// MaxPlanes, BevelAngle, MinAdjacentAngle and Workers tune the
	// inflation and expansion, see Options. Zero takes the default, so a
	// HullDesc built by hand rather than by NewHullDesc still bevels at
	// DefaultBevelAngle.
	MaxPlanes        int
	BevelAngle       float64
	MinAdjacentAngle float64
	Workers          int
	Verify           bool
	Logger           *slog.Logger
}

// NewHullDesc returns a description of points with default settings.
func NewHullDesc(flags HullFlag, points ...mgl64.Vec3) HullDesc {
	vertices := make([]float64, 0, 3*len(points))
	for _, p := range points {
		vertices = append(vertices, p[0], p[1], p[2])
	}
	return HullDesc{
		Flags:            flags,
		Vertices:         vertices,
		VertexCount:      len(points),
		VertexStride:     3,
		NormalEpsilon:    DefaultNormalEpsilon,
		MaxVertices:      DefaultMaxVertices,
		SkinWidth:        DefaultSkinWidth,
		MaxPlanes:        DefaultMaxPlanes,
		BevelAngle:       DefaultBevelAngle,
		MinAdjacentAngle: DefaultMinAdjacentAngle,
		Workers:          1,
	}
}

func (d *HullDesc) HasHullFlag(flag HullFlag) bool {
	return d.Flags&flag == flag
}

func (d *HullDesc) SetHullFlag(flag HullFlag) {
	d.Flags |= flag
}

func (d *HullDesc) ClearHullFlag(flag HullFlag) {
	d.Flags &^= flag
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Validate reports settings CreateConvexHull cannot run with.
func (d *HullDesc) Validate() error {
	switch {
	case d.VertexCount < 0:
		return errors.Wrapf(ErrInvalidDesc, "vertex count %d", d.VertexCount)
	case d.VertexStride != 0 && d.VertexStride < 3:
		return errors.Wrapf(ErrInvalidDesc, "vertex stride %d", d.VertexStride)
	case !finite(d.NormalEpsilon, d.SkinWidth, d.AreaTestEpsilon, d.BevelAngle, d.MinAdjacentAngle):
		return errors.Wrap(ErrInvalidDesc, "settings must be finite")
	case d.NormalEpsilon < 0 || d.AreaTestEpsilon < 0:
		return errors.Wrap(ErrInvalidDesc, "epsilons must not be negative")
	case d.MaxVertices < 0 || d.MaxPlanes < 0 || d.Workers < 0:
		return errors.Wrap(ErrInvalidDesc, "limits must not be negative")
	case d.BevelAngle < 0 || d.BevelAngle > 180:
		return errors.Wrapf(ErrInvalidDesc, "bevel angle %g", d.BevelAngle)
	case d.MinAdjacentAngle < 0 || d.MinAdjacentAngle >= 90:
		return errors.Wrapf(ErrInvalidDesc, "minimum adjacent angle %g", d.MinAdjacentAngle)
	}

	stride := d.VertexStride
	if stride == 0 {
		stride = 3
	}
	// (count-1)*stride+3 values, compared without overflowing
	if d.VertexCount > 0 && (len(d.Vertices) < 3 || d.VertexCount-1 > (len(d.Vertices)-3)/stride) {
		return errors.Wrapf(ErrInvalidDesc, "%d values hold less than %d vertices", len(d.Vertices), d.VertexCount)
	}
	return nil
}

func (d *HullDesc) options() Options {
	return Options{
		MaxPlanes:        d.MaxPlanes,
		BevelAngle:       d.BevelAngle,
		MinAdjacentAngle: d.MinAdjacentAngle,
		Workers:          d.Workers,
		Verify:           d.Verify,
		Logger:           d.Logger,
	}
}

// HullResult is the output of CreateConvexHull.
type HullResult struct {
	// Polygons is set when Indices holds polygon runs (vertex count, then
	// the vertices) rather than triangles.
	Polygons          bool
	NumOutputVertices int
	// OutputVertices holds x, y, z for each output vertex.
	OutputVertices []float64
	NumFaces       int
	NumIndices     int
	Indices        []uint32
	Status         Status
}

// Vertices returns the output vertices.
func (r *HullResult) Vertices() []mgl64.Vec3 {
	out := make([]mgl64.Vec3, r.NumOutputVertices)
	for i := range out {
		out[i] = mgl64.Vec3{r.OutputVertices[3*i], r.OutputVertices[3*i+1], r.OutputVertices[3*i+2]}
	}
	return out
}

// Faces returns the vertex loop of every face, in both output modes.
func (r *HullResult) Faces() [][]int {
	out := make([][]int, 0, r.NumFaces)
	for at := 0; at < r.NumIndices; {
		n := 3
		if r.Polygons {
			n = int(r.Indices[at])
			at++
		}
		loop := make([]int, n)
		for k := range loop {
			loop[k] = int(r.Indices[at+k])
		}
		out = append(out, loop)
		at += n
	}
	return out
}

// Planes returns the plane of every face, outward for the default winding.
func (r *HullResult) Planes() []geom.Plane {
	vertices := r.Vertices()
	faces := r.Faces()
	out := make([]geom.Plane, len(faces))
	for i, f := range faces {
		out[i] = facePlane(vertices, f)
	}
	return out
}

// Release drops the buffers of r.
func (r *HullResult) Release() {
	*r = HullResult{}
}

// CreateConvexHull computes the hull described by desc.
//
// Fewer than 3 points, or points with no extent, give a small box around
// their centre. Points that are flat on an axis give a box as thin as
// their cloud allows. Errors carry a Status, see StatusOf; the result is
// then nil.
func CreateConvexHull(desc HullDesc) (*HullResult, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	logger := desc.Logger
	if logger == nil {
		logger = slog.Default()
	}

	raw := cloud.ReadPoints(desc.Vertices, desc.VertexCount, desc.VertexStride)
	cleaned := cloud.Cleanup(raw, desc.NormalEpsilon)
	if cleaned.Boxed {
		logger.Debug("degenerate input replaced by a box", "points", len(raw))
	}
	points := cleaned.Denormalize()
	logger.Debug("points cleaned", "input", len(raw), "kept", len(points))

	inflate := 0.0
	if desc.HasHullFlag(QfSkinWidth) {
		inflate = desc.SkinWidth
	}

	p, status, err := ComputeHull(points, desc.MaxVertices, inflate, desc.AreaTestEpsilon, desc.options())
	if err != nil {
		logger.Debug("hull failed", "status", status, "err", err)
		return nil, err
	}

	faces := p.Faces
	polygons := !desc.HasHullFlag(QfTriangles)
	switch {
	case polygons && !p.Polygons:
		faces = mergeCoplanar(p.Points, faces)
	case !polygons && p.Polygons:
		faces = triangulate(p.Points, faces, p.Planes)
	}

	vertices, faces := compact(p.Points, faces)
	if desc.HasHullFlag(QfReverseOrder) {
		reverseWinding(faces)
	}

	result := &HullResult{
		Polygons:          polygons,
		NumOutputVertices: len(vertices),
		OutputVertices:    make([]float64, 0, 3*len(vertices)),
		NumFaces:          len(faces),
		Status:            status,
	}
	for _, v := range vertices {
		result.OutputVertices = append(result.OutputVertices, v[0], v[1], v[2])
	}
	for _, f := range faces {
		if polygons {
			result.Indices = append(result.Indices, uint32(len(f)))
		}
		for _, v := range f {
			result.Indices = append(result.Indices, uint32(v))
		}
	}
	result.NumIndices = len(result.Indices)
	return result, nil
}
