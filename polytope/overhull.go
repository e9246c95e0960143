package polytope

import (
	"math"

	"github.com/akmonengine/hull/geom"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

const (
	// PaperWidth scales the diameter into the plane test epsilon of the
	// clipping passes.
	PaperWidth = 0.001
	// CandidateEpsilon is the smallest relative cut accepted by CandidatePlane.
	CandidateEpsilon = 0.01
	// BevelMargin scales the inflation into the margin of the starting box.
	// Two planes meeting at the bevel angle (120°) and pushed by d meet at
	// D = d·|n1+n2|/(1-n1·n2) = 2d from the original corner.
	BevelMargin = 2.5
)

var ErrTooFewPoints = errors.New("polytope: at least 4 points are required")

// CandidatePlane returns the plane of planes that cuts the largest share of
// c, or -1 when no plane cuts more than epsilon of it.
//
// The share of a plane is the height of c above it divided by the extent of
// c along its normal. Planes already bounding c are skipped, and so are
// planes within minAdjAngle degrees of a facet of c while a vertex of that
// facet is strictly under them: cutting there would leave a sliver.
func CandidatePlane(planes []geom.Plane, c *ConvexH, epsilon, minAdjAngle, planeEpsilon float64) int {
	maxdot := math.Cos(mgl64.DegToRad(minAdjAngle))

	best := -1
	md := 0.0
	for i, plane := range planes {
		dmax, dmin := 0.0, 0.0
		for _, v := range c.Vertices {
			d := plane.Distance(v)
			dmax = math.Max(dmax, d)
			dmin = math.Min(dmin, d)
		}
		dr := dmax - dmin
		if dr < planeEpsilon {
			dr = 1
		}
		d := dmax / dr
		if d <= md {
			continue
		}

		for j, facet := range c.Facets {
			if plane == facet {
				d = 0
				continue
			}
			if plane.Normal.Dot(facet.Normal) <= maxdot {
				continue
			}
			for _, e := range c.Edges {
				if e.P == j && plane.Distance(c.Vertices[e.V]) < 0 {
					d = 0
					break
				}
			}
		}

		if d > md {
			best = i
			md = d
		}
	}

	if md > epsilon {
		return best
	}
	return -1
}

// Report describes how an overhull ended.
type Report struct {
	// Cuts is the number of planes that cropped the box.
	Cuts int
	// Stopped is the crop error that ended the clipping early, if any. The
	// polytope is then the last good one.
	Stopped error
}

// Overhull bounds points with up to maxPlanes of planes, each pushed out by
// inflate, by clipping a box around the points.
//
// Algorithm:
//  1. The box is the bounds of points grown by BevelMargin·inflate. A box
//     side within minAdjAngle of a plane is pushed out by half the diameter
//     so it never competes with that plane.
//  2. While planes remain, crop by CandidatePlane. A crop that fails or
//     leaves a broken polytope ends the loop and the previous polytope is
//     kept.
func Overhull(planes []geom.Plane, points []mgl64.Vec3, maxPlanes int, inflate, minAdjAngle float64) (*ConvexH, Report, error) {
	var report Report
	if len(points) < 4 {
		return nil, report, ErrTooFewPoints
	}
	maxPlanes = min(maxPlanes, len(planes))

	bounds := geom.NewAABB(points...)
	diameter := bounds.Diagonal()
	bounds = bounds.Inflate(inflate * BevelMargin)

	pushed := make([]geom.Plane, len(planes))
	for i, p := range planes {
		pushed[i] = p.Push(inflate)
	}

	planeEpsilon := bounds.Diagonal() * PaperWidth
	maxdot := math.Cos(mgl64.DegToRad(minAdjAngle))
	for j := 0; j < 6; j++ {
		var n mgl64.Vec3
		if j%2 == 1 {
			n[j/2] = 1
		} else {
			n[j/2] = -1
		}
		for _, p := range pushed {
			if n.Dot(p.Normal) > maxdot {
				if j%2 == 1 {
					bounds.Max = bounds.Max.Add(n.Mul(diameter * 0.5))
				} else {
					bounds.Min = bounds.Min.Add(n.Mul(diameter * 0.5))
				}
				break
			}
		}
	}

	c := NewCube(bounds.Min, bounds.Max)
	for ; maxPlanes > 0; maxPlanes-- {
		k := CandidatePlane(pushed, c, CandidateEpsilon, minAdjAngle, planeEpsilon)
		if k < 0 {
			break
		}
		next, err := Crop(c, pushed[k], planeEpsilon)
		if err == nil {
			err = next.Check(planeEpsilon)
		}
		if err != nil {
			report.Stopped = errors.Wrapf(err, "polytope: crop by plane %d", k)
			break
		}
		c = next
		report.Cuts++
	}

	return c, report, nil
}

// FromPlanes crops the box [lo, hi] by every plane in turn. Planes that do
// not cut the current polytope are skipped.
func FromPlanes(lo, hi mgl64.Vec3, planes []geom.Plane, epsilon float64) (*ConvexH, error) {
	c := NewCube(lo, hi)
	for i, p := range planes {
		if c.SplitTest(p, epsilon)&geom.Over == 0 {
			continue
		}
		next, err := Crop(c, p, epsilon)
		if err != nil {
			return nil, errors.Wrapf(err, "polytope: crop by plane %d", i)
		}
		c = next
	}
	return c, nil
}
