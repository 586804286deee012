package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/globe-visualizer/model"
)

const (
	orbitTubularSegments = 150
	orbitRadialSegments  = 2
	orbitTubeRadius      = 1
)

// CirclePoints returns segments points evenly spaced by angle on a circle
// in the XZ plane. When closed is set, a copy of the first point is
// appended. Fewer than three segments are raised to three.
func CirclePoints(radius float64, segments int, closed bool) []mgl64.Vec3 {
	if segments < 3 {
		segments = 3
	}
	n := segments
	if closed {
		n++
	}
	out := make([]mgl64.Vec3, 0, n)
	for i := 0; i < segments; i++ {
		a := 2 * math.Pi * float64(i) / float64(segments)
		out = append(out, mgl64.Vec3{radius * math.Cos(a), 0, radius * math.Sin(a)})
	}
	if closed {
		out = append(out, out[0])
	}
	return out
}

// Satellite is a point mass riding an orbit ring, in ring coordinates.
type Satellite struct {
	Index    int
	Position mgl64.Vec3
	Size     float64
}

// OrbitRing is a closed tube around the globe carrying satellites.
type OrbitRing struct {
	Radius        float64
	Points        []mgl64.Vec3
	Tube          *Mesh
	Satellites    []Satellite
	SatelliteMesh *Mesh
	Tilt          mgl64.Quat
	Color         model.Color
	Texture       string
	UVRepeat      [2]float64
}

type orbitConfig struct {
	tilt          mgl64.Quat
	tubeRadius    float64
	satelliteSize float64
	color         model.Color
}

// OrbitRingOption configures BuildOrbitRing.
type OrbitRingOption func(*orbitConfig)

// WithTilt sets the rotation applied to the ring plane.
func WithTilt(q mgl64.Quat) OrbitRingOption {
	return func(c *orbitConfig) { c.tilt = q.Normalize() }
}

// WithTubeRadius overrides the tube thickness.
func WithTubeRadius(r float64) OrbitRingOption {
	return func(c *orbitConfig) {
		if r > 0 {
			c.tubeRadius = r
		}
	}
}

// WithSatelliteSize sets the satellite sphere radius.
func WithSatelliteSize(size float64) OrbitRingOption {
	return func(c *orbitConfig) {
		if size > 0 {
			c.satelliteSize = size
		}
	}
}

// WithRingColor tints the ring.
func WithRingColor(col model.Color) OrbitRingOption {
	return func(c *orbitConfig) { c.color = col }
}

// BuildOrbitRing creates a ring of the given radius from segments circle
// points and places count satellites at evenly spaced point indices.
func BuildOrbitRing(radius float64, segments, count int, opts ...OrbitRingOption) OrbitRing {
	cfg := orbitConfig{
		tilt:          mgl64.QuatIdent(),
		tubeRadius:    orbitTubeRadius,
		satelliteSize: 1,
		color:         0x0cd1eb,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	points := CirclePoints(radius, segments, true)
	n := len(points) - 1
	if count < 0 {
		count = 0
	}
	if count > n {
		count = n
	}
	sats := make([]Satellite, 0, count)
	for k := 0; k < count; k++ {
		idx := k * n / count
		sats = append(sats, Satellite{Index: idx, Position: points[idx], Size: cfg.satelliteSize})
	}

	return OrbitRing{
		Radius:        radius,
		Points:        points,
		Tube:          TubeMesh(CatmullRomCurve{Points: points}, orbitTubularSegments, cfg.tubeRadius, orbitRadialSegments, true),
		Satellites:    sats,
		SatelliteMesh: SphereMesh(cfg.satelliteSize, 16, 16),
		Tilt:          cfg.tilt,
		Color:         cfg.color,
		Texture:       TextureOrbit,
		UVRepeat:      [2]float64{1, 2},
	}
}
