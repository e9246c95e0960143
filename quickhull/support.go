package quickhull

import (
	"math"

	"github.com/akmonengine/hull/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Values of the allow slice shared by the support searches of one build.
const (
	// Excluded points are never returned again.
	Excluded uint8 = 0
	// Allowed points may be returned.
	Allowed uint8 = 1
	// Confirmed points were found extreme under perturbed directions.
	Confirmed uint8 = 3
)

const (
	// perturbation is the length of the offset added to a search direction
	// when probing its neighbourhood.
	perturbation = 0.025
	// coarseStep and fineStep are the angular steps, in degrees, of the
	// probes around the search direction.
	coarseStep = 45.0
	fineStep   = 5.0
)

// NewAllow returns an allow slice with every point allowed.
func NewAllow(n int) []uint8 {
	allow := make([]uint8, n)
	for i := range allow {
		allow[i] = Allowed
	}
	return allow
}

// MaxDirFiltered returns the allowed point with the largest projection on
// dir, or -1 when every point is excluded.
func MaxDirFiltered(points []mgl64.Vec3, dir mgl64.Vec3, allow []uint8) int {
	m := -1
	best := 0.0
	for i, p := range points {
		if allow[i] == Excluded {
			continue
		}
		if d := p.Dot(dir); m == -1 || d > best {
			m = i
			best = d
		}
	}
	return m
}

// MaxDir returns the point with the largest projection on dir, ignoring
// exclusions. It returns -1 for an empty set.
func MaxDir(points []mgl64.Vec3, dir mgl64.Vec3) int {
	m := -1
	best := 0.0
	for i, p := range points {
		if d := p.Dot(dir); m == -1 || d > best {
			m = i
			best = d
		}
	}
	return m
}

// MaxDirSterid is a support search that is robust to flat ties.
//
// Algorithm:
//  1. Take the best allowed point m along dir. If it was confirmed before, done.
//  2. Probe dir tilted by a small offset every 45° around it. When two
//     consecutive probes both return m, m is confirmed extreme.
//  3. When two consecutive probes disagree, refine the arc between them in
//     5° steps looking for two consecutive agreeing probes on m.
//  4. Otherwise m is only tied for extreme: exclude it and start again.
//
// Excluded points are out of every later search of the same build. The
// search returns -1 once every point has been excluded.
func MaxDirSterid(points []mgl64.Vec3, dir mgl64.Vec3, allow []uint8) int {
	for {
		m := MaxDirFiltered(points, dir, allow)
		if m == -1 {
			return -1
		}
		if allow[m] == Confirmed {
			return m
		}

		u := geom.Orth(dir)
		v := u.Cross(dir)
		probe := func(angle float64) int {
			s, c := math.Sincos(mgl64.DegToRad(angle))
			return MaxDirFiltered(points, dir.Add(u.Mul(s).Add(v.Mul(c)).Mul(perturbation)), allow)
		}

		ma := -1
		for x := 0.0; x <= 360.0; x += coarseStep {
			mb := probe(x)
			if ma == m && mb == m {
				allow[m] = Confirmed
				return m
			}
			if ma != -1 && ma != mb {
				mc := ma
				for xx := x - 40.0; xx <= x; xx += fineStep {
					md := probe(xx)
					if mc == m && md == m {
						allow[m] = Confirmed
						return m
					}
					mc = md
				}
			}
			ma = mb
		}

		allow[m] = Excluded
	}
}

// simplexBasis returns the first search direction of FindSimplex: the
// longest axis of the cloud, slightly skewed so that it is never exactly
// aligned with a grid of points.
func simplexBasis(points []mgl64.Vec3) mgl64.Vec3 {
	size := geom.NewAABB(points...).Size()
	switch {
	case size.X() >= size.Y() && size.X() >= size.Z():
		return mgl64.Vec3{1, 0.02, 0.01}
	case size.Y() >= size.Z():
		return mgl64.Vec3{0.01, 1, 0.02}
	default:
		return mgl64.Vec3{0.01, 0.02, 1}
	}
}

// FindSimplex picks 4 points spanning a tetrahedron of non-zero volume.
//
// The first two points are extreme along the longest axis of the cloud, the
// third is extreme orthogonally to their edge and the fourth is extreme along
// the normal of the first three, or opposite to it when that side gives no
// volume. The result is ordered so that the volume is positive. ok is false
// when the cloud is collinear or coplanar.
func FindSimplex(points []mgl64.Vec3, allow []uint8) (simplex [4]int, ok bool) {
	fail := [4]int{-1, -1, -1, -1}

	basis0 := simplexBasis(points)
	p0 := MaxDirSterid(points, basis0, allow)
	p1 := MaxDirSterid(points, basis0.Mul(-1), allow)
	if p0 < 0 || p1 < 0 || p0 == p1 {
		return fail, false
	}
	basis0 = points[p0].Sub(points[p1])
	if geom.IsZero(basis0) {
		return fail, false
	}

	basis1 := mgl64.Vec3{1, 0.02, 0}.Cross(basis0)
	basis2 := mgl64.Vec3{-0.02, 1, 0}.Cross(basis0)
	if basis2.Len() > basis1.Len() {
		basis1 = basis2
	}
	basis1 = basis1.Normalize()

	p2 := MaxDirSterid(points, basis1, allow)
	if p2 == p0 || p2 == p1 {
		p2 = MaxDirSterid(points, basis1.Mul(-1), allow)
	}
	if p2 < 0 || p2 == p0 || p2 == p1 {
		return fail, false
	}

	basis1 = points[p2].Sub(points[p0])
	basis2 = basis1.Cross(basis0)
	if geom.IsZero(basis2) {
		return fail, false
	}
	basis2 = basis2.Normalize()

	diameter := geom.NewAABB(points...).Diagonal()
	minVolume := SimplexVolumeEpsilon * diameter * diameter * diameter
	volume := func(p3 int) float64 {
		if p3 < 0 || p3 == p0 || p3 == p1 || p3 == p2 {
			return 0
		}
		return points[p3].Sub(points[p0]).Dot(points[p1].Sub(points[p0]).Cross(points[p2].Sub(points[p0])))
	}

	// a flat side holding p0, p1 and p2 may offer its own points first
	p3 := MaxDirSterid(points, basis2, allow)
	v := volume(p3)
	if math.Abs(v) <= minVolume {
		p3 = MaxDirSterid(points, basis2.Mul(-1), allow)
		v = volume(p3)
	}
	if math.Abs(v) <= minVolume {
		return fail, false
	}
	if v < 0 {
		p2, p3 = p3, p2
	}

	return [4]int{p0, p1, p2, p3}, true
}
