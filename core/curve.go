package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Curve is a parametric path evaluated on t ∈ [0, 1].
type Curve interface {
	PointAt(t float64) mgl64.Vec3
}

// ArcCurve is a circular arc in the XY plane of its own frame, starting at
// StartAngle and sweeping counter-clockwise by Sweep radians.
type ArcCurve struct {
	Center     mgl64.Vec3
	Radius     float64
	StartAngle float64
	Sweep      float64
}

// PointAt implements Curve.
func (c ArcCurve) PointAt(t float64) mgl64.Vec3 {
	a := c.StartAngle + c.Sweep*t
	return c.Center.Add(mgl64.Vec3{c.Radius * math.Cos(a), c.Radius * math.Sin(a), 0})
}

// CatmullRomCurve is a uniform Catmull-Rom spline through Points. A point
// list whose last entry repeats the first is treated as a closed loop.
type CatmullRomCurve struct {
	Points []mgl64.Vec3
}

func (c CatmullRomCurve) loop() ([]mgl64.Vec3, bool) {
	pts := c.Points
	n := len(pts)
	if n > 2 && pts[0].ApproxEqualThreshold(pts[n-1], 1e-9) {
		return pts[:n-1], true
	}
	return pts, false
}

// PointAt implements Curve.
func (c CatmullRomCurve) PointAt(t float64) mgl64.Vec3 {
	pts, closed := c.loop()
	n := len(pts)
	switch n {
	case 0:
		return mgl64.Vec3{}
	case 1:
		return pts[0]
	}
	t = clamp(t, 0, 1)

	segs := n - 1
	if closed {
		segs = n
	}
	p := float64(segs) * t
	i := int(math.Floor(p))
	w := p - float64(i)
	if i >= segs {
		i = segs - 1
		w = 1
	}

	at := func(k int) mgl64.Vec3 {
		if closed {
			return pts[((k%n)+n)%n]
		}
		switch {
		case k < 0:
			return pts[0].Mul(2).Sub(pts[1])
		case k >= n:
			return pts[n-1].Mul(2).Sub(pts[n-2])
		}
		return pts[k]
	}
	p0, p1, p2, p3 := at(i-1), at(i), at(i+1), at(i+2)

	w2 := w * w
	w3 := w2 * w
	return p1.Mul(2).
		Add(p2.Sub(p0).Mul(w)).
		Add(p0.Mul(2).Sub(p1.Mul(5)).Add(p2.Mul(4)).Sub(p3).Mul(w2)).
		Add(p3.Sub(p0).Add(p1.Mul(3)).Sub(p2.Mul(3)).Mul(w3)).
		Mul(0.5)
}

// Closed reports whether the spline loops back on itself.
func (c CatmullRomCurve) Closed() bool {
	_, closed := c.loop()
	return closed
}

// Sample evaluates c at segments+1 evenly spaced parameters.
func Sample(c Curve, segments int) []mgl64.Vec3 {
	if segments < 1 {
		segments = 1
	}
	out := make([]mgl64.Vec3, segments+1)
	for i := range out {
		out[i] = c.PointAt(float64(i) / float64(segments))
	}
	return out
}

// PathLength sums the chord lengths of a polyline.
func PathLength(points []mgl64.Vec3) float64 {
	var l float64
	for i := 1; i < len(points); i++ {
		l += points[i].Sub(points[i-1]).Len()
	}
	return l
}

// tangentAt estimates the unit tangent of c at t by central differences.
func tangentAt(c Curve, t float64) mgl64.Vec3 {
	const h = 1e-4
	t1 := clamp(t-h, 0, 1)
	t2 := clamp(t+h, 0, 1)
	d := c.PointAt(t2).Sub(c.PointAt(t1))
	if d.Len() < geomEpsilon {
		return axisX
	}
	return d.Normalize()
}
