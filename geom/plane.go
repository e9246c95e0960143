// Package geom holds the small amount of vector, plane and box math the hull
// builder needs on top of mgl64.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Classification of a point against a plane. The values are bit flags so a
// set of points can be summarised with a bitwise OR: a polygon whose flags
// combine to Over|Under straddles the plane.
const (
	Coplanar = 0
	Under    = 1
	Over     = 2
	Split    = Under | Over
)

// DeterminantEpsilon is the smallest |det| accepted by ThreePlaneIntersection.
const DeterminantEpsilon = 1e-6

// Plane is defined by the equation: Normal · p + Dist = 0.
// Points with a positive distance are outside (above) the plane.
type Plane struct {
	Normal mgl64.Vec3 // unit length
	Dist   float64
}

func NewPlane(normal mgl64.Vec3, dist float64) Plane {
	return Plane{Normal: normal, Dist: dist}
}

// PlaneFromTriangle builds the plane of a counter-clockwise triangle.
func PlaneFromTriangle(a, b, c mgl64.Vec3) Plane {
	n := TriNormal(a, b, c)
	return Plane{Normal: n, Dist: -n.Dot(a)}
}

// Distance returns the signed distance from the plane to p.
func (p Plane) Distance(point mgl64.Vec3) float64 {
	return p.Normal.Dot(point) + p.Dist
}

// Test classifies point against the plane with the given tolerance.
func (p Plane) Test(point mgl64.Vec3, epsilon float64) int {
	a := p.Distance(point)
	if a > epsilon {
		return Over
	}
	if a < -epsilon {
		return Under
	}
	return Coplanar
}

// Flip returns the same plane facing the other way.
func (p Plane) Flip() Plane {
	return Plane{Normal: p.Normal.Mul(-1), Dist: -p.Dist}
}

// Push moves the plane outward along its normal by d.
func (p Plane) Push(d float64) Plane {
	return Plane{Normal: p.Normal, Dist: p.Dist - d}
}

// TriNormal returns the unit normal of the triangle a, b, c.
// A degenerate triangle yields the X axis so callers never see NaN.
func TriNormal(a, b, c mgl64.Vec3) mgl64.Vec3 {
	cp := b.Sub(a).Cross(c.Sub(b))
	m := cp.Len()
	if m == 0 {
		return mgl64.Vec3{1, 0, 0}
	}
	return cp.Mul(1.0 / m)
}

// Area2 returns twice the area of the triangle a, b, c.
func Area2(a, b, c mgl64.Vec3) float64 {
	return b.Sub(a).Cross(c.Sub(a)).Len()
}

// Orth returns a unit vector orthogonal to v.
func Orth(v mgl64.Vec3) mgl64.Vec3 {
	a := v.Cross(mgl64.Vec3{0, 0, 1})
	b := v.Cross(mgl64.Vec3{0, 1, 0})
	if a.Len() > b.Len() {
		return a.Normalize()
	}
	return b.Normalize()
}

// ThreePlaneIntersection returns the single point shared by three planes.
//
// The planes are stacked into the rows of a 3x3 system N·x = -d. The boolean
// is false when the normals are (nearly) linearly dependent, i.e. at least
// two planes are parallel or the three meet along a line.
func ThreePlaneIntersection(p0, p1, p2 Plane) (mgl64.Vec3, bool) {
	m := mgl64.Mat3FromRows(p0.Normal, p1.Normal, p2.Normal)
	det := m.Det()
	if math.Abs(det) < DeterminantEpsilon {
		return mgl64.Vec3{}, false
	}
	rhs := mgl64.Vec3{-p0.Dist, -p1.Dist, -p2.Dist}
	return m.Inv().Mul3x1(rhs), true
}

// IsZero reports whether all components of v are exactly zero.
func IsZero(v mgl64.Vec3) bool {
	return v[0] == 0 && v[1] == 0 && v[2] == 0
}
