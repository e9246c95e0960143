package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// EmptyAABB returns an inverted box that any Extend call will reset.
func EmptyAABB() AABB {
	return AABB{
		Min: mgl64.Vec3{math.MaxFloat64, math.MaxFloat64, math.MaxFloat64},
		Max: mgl64.Vec3{-math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64},
	}
}

// NewAABB returns the bounding box of points.
func NewAABB(points ...mgl64.Vec3) AABB {
	box := EmptyAABB()
	for _, p := range points {
		box = box.Extend(p)
	}
	return box
}

// Extend grows the box to include point.
func (a AABB) Extend(point mgl64.Vec3) AABB {
	for j := 0; j < 3; j++ {
		a.Min[j] = math.Min(a.Min[j], point[j])
		a.Max[j] = math.Max(a.Max[j], point[j])
	}
	return a
}

// IsEmpty reports whether the box has never been extended.
func (a AABB) IsEmpty() bool {
	return a.Min.X() > a.Max.X() || a.Min.Y() > a.Max.Y() || a.Min.Z() > a.Max.Z()
}

func (a AABB) Size() mgl64.Vec3 {
	return a.Max.Sub(a.Min)
}

func (a AABB) Center() mgl64.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Diagonal is the length of the box diagonal, the "diameter" every tolerance
// of the hull builder is scaled with.
func (a AABB) Diagonal() float64 {
	if a.IsEmpty() {
		return 0
	}
	return a.Size().Len()
}

// Inflate grows the box by d on every side.
func (a AABB) Inflate(d float64) AABB {
	delta := mgl64.Vec3{d, d, d}
	return AABB{Min: a.Min.Sub(delta), Max: a.Max.Add(delta)}
}

