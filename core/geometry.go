package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// geomEpsilon is the tolerance used when testing vectors for degeneracy.
const geomEpsilon = 1e-9

var (
	axisX = mgl64.Vec3{1, 0, 0}
	axisY = mgl64.Vec3{0, 1, 0}
	axisZ = mgl64.Vec3{0, 0, 1}
)

// Transform places an object relative to its parent: scale first, then
// orientation, then translation.
type Transform struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
	Scale       mgl64.Vec3
}

// IdentityTransform returns a transform that leaves points unchanged.
func IdentityTransform() Transform {
	return Transform{
		Orientation: mgl64.QuatIdent(),
		Scale:       mgl64.Vec3{1, 1, 1},
	}
}

// Apply maps a point from the local frame into the parent frame.
func (t Transform) Apply(p mgl64.Vec3) mgl64.Vec3 {
	s := mgl64.Vec3{p[0] * t.Scale[0], p[1] * t.Scale[1], p[2] * t.Scale[2]}
	return t.Orientation.Rotate(s).Add(t.Position)
}

// Mat4 returns the column-major T·R·S matrix of the transform.
func (t Transform) Mat4() mgl64.Mat4 {
	return mgl64.Translate3D(t.Position[0], t.Position[1], t.Position[2]).
		Mul4(t.Orientation.Mat4()).
		Mul4(mgl64.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

// Compose returns the transform equivalent to applying child and then t.
// The result is exact for uniform scales, which is all the scene uses.
func (t Transform) Compose(child Transform) Transform {
	return Transform{
		Position:    t.Apply(child.Position),
		Orientation: t.Orientation.Mul(child.Orientation),
		Scale: mgl64.Vec3{
			t.Scale[0] * child.Scale[0],
			t.Scale[1] * child.Scale[1],
			t.Scale[2] * child.Scale[2],
		},
	}
}

// MaxScale returns the largest scale component.
func (t Transform) MaxScale() float64 {
	return math.Max(math.Abs(t.Scale[0]), math.Max(math.Abs(t.Scale[1]), math.Abs(t.Scale[2])))
}

// rotationBetween returns the shortest rotation taking direction a onto
// direction b. Antiparallel inputs rotate by π about an axis perpendicular
// to a.
func rotationBetween(a, b mgl64.Vec3) mgl64.Quat {
	a = a.Normalize()
	b = b.Normalize()
	d := a.Dot(b)
	if d >= 1-geomEpsilon {
		return mgl64.QuatIdent()
	}
	if d <= -1+geomEpsilon {
		return mgl64.QuatRotate(math.Pi, perpendicular(a))
	}
	axis := a.Cross(b).Normalize()
	return mgl64.QuatRotate(math.Acos(clamp(d, -1, 1)), axis)
}

// perpendicular returns a unit vector orthogonal to v.
func perpendicular(v mgl64.Vec3) mgl64.Vec3 {
	ax, ay, az := math.Abs(v[0]), math.Abs(v[1]), math.Abs(v[2])
	other := axisX
	if ay <= ax && ay <= az {
		other = axisY
	} else if az <= ax && az <= ay {
		other = axisZ
	}
	p := v.Cross(other)
	if p.Len() < geomEpsilon {
		return axisY
	}
	return p.Normalize()
}

// wrapAngle maps a into [0, 2π).
func wrapAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	if a >= 2*math.Pi {
		a = 0
	}
	return a
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SegmentClearsSphere reports whether the straight segment between p1 and
// p2 stays outside the origin-centred sphere of the given radius.
func SegmentClearsSphere(p1, p2 mgl64.Vec3, radius float64) bool {
	v := p2.Sub(p1)
	a := v.Dot(v)
	if a == 0 {
		// Same point: clear only when it sits outside the sphere.
		return p1.Dot(p1) > radius*radius
	}

	// t* minimises |p1 + t v|^2 over t ∈ ℝ.
	t := clamp(-p1.Dot(v)/a, 0, 1)
	closest := p1.Add(v.Mul(t))
	return closest.Dot(closest) > radius*radius
}

// RaySphere returns the distance along the ray to the first intersection
// with the sphere, or -1 when the ray misses or the sphere is behind it.
// dir must be unit length.
func RaySphere(origin, dir, center mgl64.Vec3, radius float64) float64 {
	oc := origin.Sub(center)
	b := oc.Dot(dir)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return -1
	}
	sq := math.Sqrt(disc)
	t := -b - sq
	if t < 0 {
		t = -b + sq
	}
	if t < 0 {
		return -1
	}
	return t
}

// RaySegmentDistance returns the closest distance between a ray and the
// segment [p, q] together with the ray parameter at the closest approach.
// dir must be unit length.
func RaySegmentDistance(origin, dir, p, q mgl64.Vec3) (dist, t float64) {
	u := q.Sub(p)
	w := origin.Sub(p)
	a := u.Dot(u)
	b := u.Dot(dir)
	d := u.Dot(w)
	e := dir.Dot(w)
	denom := a - b*b

	var s float64
	if a < geomEpsilon {
		s = 0
	} else if denom < geomEpsilon {
		// Parallel.
		s = clamp(d/a, 0, 1)
	} else {
		s = clamp((d-b*e)/denom, 0, 1)
	}
	// Closest ray point for the chosen segment point.
	t = p.Add(u.Mul(s)).Sub(origin).Dot(dir)
	if t < 0 {
		t = 0
	}
	if a >= geomEpsilon {
		// Re-project the segment onto the clamped ray point.
		s = clamp(origin.Add(dir.Mul(t)).Sub(p).Dot(u)/a, 0, 1)
	}
	cp := p.Add(u.Mul(s))
	cr := origin.Add(dir.Mul(t))
	return cp.Sub(cr).Len(), t
}
