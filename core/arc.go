package core

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/globe-visualizer/model"
)

const (
	// minArcAngle keeps the apex strictly above the surface for
	// coincident endpoints.
	minArcAngle = 1e-6

	// flowFraction is the share of the sweep covered by the moving segment.
	flowFraction = 7

	arcSamples = 126 // multiple of flowFraction
)

// ArcStyle configures arc geometry and colors.
type ArcStyle struct {
	TrackColor   model.Color
	FlowColor    model.Color
	HeightFactor float64
	// Tube radii relative to the globe radius.
	TrackWidth float64
	FlowWidth  float64
	// Rand seeds the initial flow phase; nil starts every flow at 0.
	Rand *rand.Rand
}

// DefaultArcStyle returns the stock flyLine settings.
func DefaultArcStyle() ArcStyle {
	return ArcStyle{
		TrackColor:   0xf3ae76,
		FlowColor:    0xff7714,
		HeightFactor: 0.2,
		TrackWidth:   0.004,
		FlowWidth:    0.008,
	}
}

// Arc is a flight path between two surface points. Curve, Track and Flow
// live in the arc's local frame; Orientation maps that frame to the globe.
// The flow mesh is centred on the arc centre, so rotating it about local Z
// by Phase moves it along the track.
type Arc struct {
	From        mgl64.Vec3
	To          mgl64.Vec3
	Apex        mgl64.Vec3
	ApexHeight  float64
	Orientation mgl64.Quat
	Center      mgl64.Vec3
	Radius      float64
	StartAngle  float64
	Sweep       float64
	FlowSweep   float64
	Curve       ArcCurve
	Track       *Mesh
	Flow        *Mesh
	TrackColor  model.Color
	FlowColor   model.Color
	FlowTexture string
	UVRepeat    [2]float64
	Phase       float64
	EndPhase    float64
}

// PointAt evaluates the arc in globe coordinates.
func (a *Arc) PointAt(t float64) mgl64.Vec3 {
	return a.Orientation.Rotate(a.Curve.PointAt(t))
}

// FlowTransform returns the flow segment's placement, relative to the arc
// frame, for the given phase.
func (a *Arc) FlowTransform(phase float64) Transform {
	return Transform{
		Position:    a.Center,
		Orientation: mgl64.QuatRotate(phase, axisZ),
		Scale:       mgl64.Vec3{1, 1, 1},
	}
}

// BuildArc creates the arc from (fromLon, fromLat) to (toLon, toLat) on a
// globe of the given radius. Degenerate inputs still yield a valid arc.
// Endpoints closer than the minimum arc angle (1e-6 rad) produce a tiny
// full loop (sweep near 2π) above the point rather than a short hop.
func BuildArc(radius, fromLon, fromLat, toLon, toLat float64, style ArcStyle) Arc {
	if style.HeightFactor <= 0 || !finite(style.HeightFactor) {
		style.HeightFactor = DefaultArcStyle().HeightFactor
	}
	s := Project(radius, fromLon, fromLat)
	e := Project(radius, toLon, toLat)

	toLocal := arcFrame(s, e)
	s2 := toLocal.Rotate(s)

	theta := math.Max(AngularDistance(s, e), minArcAngle)
	height := theta * radius * style.HeightFactor
	apexY := radius + height

	// Circle through (±sx, sy) and (0, apexY) with its centre on the Y axis.
	sx, sy := math.Abs(s2[0]), s2[1]
	cy := (apexY*apexY - sx*sx - sy*sy) / (2 * (apexY - sy))
	arcR := apexY - cy
	start := math.Atan2(sy-cy, sx)
	sweep := math.Pi - 2*start

	curve := ArcCurve{Center: mgl64.Vec3{0, cy, 0}, Radius: arcR, StartAngle: start, Sweep: sweep}
	flowCurve := ArcCurve{Radius: arcR, StartAngle: start, Sweep: sweep / flowFraction}

	trackLen := PathLength(Sample(curve, arcSamples))
	flowLen := PathLength(Sample(flowCurve, arcSamples/flowFraction))
	endPhase := (trackLen - flowLen) / arcR
	if !(endPhase > 0) || !finite(endPhase) {
		endPhase = math.Max(sweep*(flowFraction-1)/flowFraction, minArcAngle)
	}

	var phase float64
	if style.Rand != nil {
		phase = style.Rand.Float64() * endPhase
	}

	orient := toLocal.Inverse()
	return Arc{
		From:        s,
		To:          e,
		Apex:        orient.Rotate(mgl64.Vec3{0, apexY, 0}),
		ApexHeight:  height,
		Orientation: orient,
		Center:      curve.Center,
		Radius:      arcR,
		StartAngle:  start,
		Sweep:       sweep,
		FlowSweep:   flowCurve.Sweep,
		Curve:       curve,
		Track:       TubeMesh(curve, 64, radius*style.TrackWidth, 4, false),
		Flow:        TubeMesh(flowCurve, 16, radius*style.FlowWidth, 6, false),
		TrackColor:  style.TrackColor,
		FlowColor:   style.FlowColor,
		FlowTexture: TextureFlyLine,
		UVRepeat:    [2]float64{1, 2},
		Phase:       phase,
		EndPhase:    endPhase,
	}
}

// arcFrame returns the rotation taking the great circle through s and e
// into the XY plane, with the pair symmetric about +Y and s on the +X side.
func arcFrame(s, e mgl64.Vec3) mgl64.Quat {
	normal := s.Cross(e)
	if normal.Len() < geomEpsilon*s.Dot(s) {
		// Coincident or antipodal: any plane through s will do.
		normal = perpendicular(s)
	}
	q1 := rotationBetween(normal, axisZ)
	s1 := q1.Rotate(s)
	e1 := q1.Rotate(e)

	mid := s1.Add(e1).Mul(0.5)
	mid[2] = 0
	var alpha float64
	if mid.Len() < geomEpsilon*s.Len() {
		// Antipodal: the apex direction is perpendicular to s in-plane.
		d := axisZ.Cross(s1)
		alpha = math.Atan2(d[1], d[0])
	} else {
		alpha = math.Atan2(mid[1], mid[0])
	}
	q2 := mgl64.QuatRotate(math.Pi/2-alpha, axisZ)
	q := q2.Mul(q1)

	if q.Rotate(s)[0] < 0 {
		q = mgl64.QuatRotate(math.Pi, axisY).Mul(q)
	}
	return q.Normalize()
}
