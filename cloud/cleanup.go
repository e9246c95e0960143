// Package cloud prepares a raw point cloud for hull construction.
//
// Cleanup removes near-duplicate points, normalizes the cloud by its bounding
// box so every tolerance of the builder is scale independent, and replaces
// degenerate input (too few points, or no extent along one axis) by the
// corners of a thin box. It never fails: whatever comes in, a point set that
// can be hulled comes out.
package cloud

import (
	"math"

	"github.com/akmonengine/hull/geom"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// DegenerateExtent is the bounding box extent under which an axis is
	// considered flat.
	DegenerateExtent = 0.000001

	// BoxThicknessRatio gives flat axes of the substitute box a fraction of
	// the shortest non-flat extent.
	BoxThicknessRatio = 0.05

	// MinimumBoxExtent is used on every axis when the input has no extent at all.
	MinimumBoxExtent = 0.01

	// MinInputPoints is the smallest input that is hulled as-is.
	MinInputPoints = 3

	// MinUniquePoints is the smallest deduplicated set that is hulled as-is.
	// Fewer points are always coplanar.
	MinUniquePoints = 4
)

// Result is a cleaned point cloud.
type Result struct {
	// Points are in normalized units: multiply by Scale to get back to the
	// caller's space.
	Points []mgl64.Vec3
	Scale  mgl64.Vec3
	// Boxed is set when the input was degenerate and Points are the 8
	// corners of a substitute box (Scale is then (1,1,1)).
	Boxed bool
}

// Denormalize returns the points scaled back to the caller's space.
func (r Result) Denormalize() []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(r.Points))
	for i, p := range r.Points {
		out[i] = mgl64.Vec3{p[0] * r.Scale[0], p[1] * r.Scale[1], p[2] * r.Scale[2]}
	}
	return out
}

// ReadPoints gathers count points from a flat buffer where consecutive points
// start stride float64 values apart. A zero stride means tightly packed.
func ReadPoints(src []float64, count, stride int) []mgl64.Vec3 {
	if stride == 0 {
		stride = 3
	}
	points := make([]mgl64.Vec3, count)
	for i := 0; i < count; i++ {
		o := i * stride
		points[i] = mgl64.Vec3{src[o], src[o+1], src[o+2]}
	}
	return points
}

// Cleanup deduplicates points within normalEpsilon (per axis, in normalized
// units) and substitutes a box for degenerate clouds.
//
// Algorithm:
//  1. Bounding box of the input; fewer than MinInputPoints points or a flat
//     axis → box fallback.
//  2. Normalize every point by the box extents.
//  3. Keep a point unless a kept point lies within normalEpsilon on all three
//     axes; in that case the kept point is replaced when the new one is
//     farther from the box centre, so clusters keep their most extreme member.
//  4. Re-check the kept set: pruning may have collapsed a dimension.
func Cleanup(points []mgl64.Vec3, normalEpsilon float64) Result {
	bounds := geom.NewAABB(points...)
	if len(points) < MinInputPoints || isFlat(bounds) {
		return boxed(bounds)
	}

	scale := bounds.Size()
	recip := mgl64.Vec3{1 / scale[0], 1 / scale[1], 1 / scale[2]}
	center := mul(bounds.Center(), recip)

	kept := make([]mgl64.Vec3, 0, len(points))
	grid := newPointGrid(normalEpsilon, len(points), mul(bounds.Min, recip), mul(bounds.Max, recip))

	for _, p := range points {
		q := mul(p, recip)

		j := grid.find(kept, q, normalEpsilon)
		if j >= 0 {
			if q.Sub(center).Len() > kept[j].Sub(center).Len() {
				grid.move(j, kept[j], q)
				kept[j] = q
			}
			continue
		}

		kept = append(kept, q)
		grid.insert(len(kept)-1, q)
	}

	result := Result{Points: kept, Scale: scale}

	real := geom.NewAABB(result.Denormalize()...)
	if len(kept) < MinUniquePoints || isFlat(real) {
		return boxed(real)
	}

	return result
}

func isFlat(bounds geom.AABB) bool {
	size := bounds.Size()
	return size[0] < DegenerateExtent || size[1] < DegenerateExtent || size[2] < DegenerateExtent
}

// boxed returns the 8 corners of a box centred on bounds. Non-flat axes keep
// their extent; flat axes get BoxThicknessRatio of the shortest non-flat one.
func boxed(bounds geom.AABB) Result {
	if bounds.IsEmpty() {
		bounds = geom.AABB{}
	}

	size := bounds.Size()
	shortest := math.MaxFloat64
	for j := 0; j < 3; j++ {
		if size[j] >= DegenerateExtent && size[j] < shortest {
			shortest = size[j]
		}
	}
	for j := 0; j < 3; j++ {
		if size[j] >= DegenerateExtent {
			continue
		}
		if shortest == math.MaxFloat64 {
			size[j] = MinimumBoxExtent
		} else {
			size[j] = shortest * BoxThicknessRatio
		}
	}

	c := bounds.Center()
	lo := c.Sub(size.Mul(0.5))
	hi := c.Add(size.Mul(0.5))

	return Result{
		Points: []mgl64.Vec3{
			{lo[0], lo[1], lo[2]},
			{hi[0], lo[1], lo[2]},
			{hi[0], hi[1], lo[2]},
			{lo[0], hi[1], lo[2]},
			{lo[0], lo[1], hi[2]},
			{hi[0], lo[1], hi[2]},
			{hi[0], hi[1], hi[2]},
			{lo[0], hi[1], hi[2]},
		},
		Scale: mgl64.Vec3{1, 1, 1},
		Boxed: true,
	}
}

func mul(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}
