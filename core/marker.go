package core

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/globe-visualizer/model"
)

// Marker proportions relative to the globe radius.
const (
	markerShell        = 1.001
	markerDecalScale   = 0.05
	markerPillarWidth  = 0.05
	markerPillarHeight = 0.3
	markerRippleScale  = 0.04
)

// MarkerKind distinguishes route origins from destinations.
type MarkerKind int

const (
	MarkerOrigin MarkerKind = iota
	MarkerDestination
)

// DensityIndex selects the pillar tint: 0 for origins, 1 for destinations.
func (k MarkerKind) DensityIndex() int {
	if k == MarkerDestination {
		return 1
	}
	return 0
}

func (k MarkerKind) String() string {
	if k == MarkerDestination {
		return "destination"
	}
	return "origin"
}

// MarkerStyle holds the configurable marker colors.
type MarkerStyle struct {
	CircleColor      model.Color
	PillarStartColor model.Color
	PillarEndColor   model.Color
}

// DefaultMarkerStyle returns the stock punctuation colors.
func DefaultMarkerStyle() MarkerStyle {
	return MarkerStyle{
		CircleColor:      0x3892ff,
		PillarStartColor: 0xe4007f,
		PillarEndColor:   0xffffff,
	}
}

// Decal is the flat circle lying on the surface under a marker.
type Decal struct {
	Transform Transform
	Color     model.Color
	Texture   string
}

// Pillar is the vertical light column rising from a marker.
type Pillar struct {
	Transform    Transform
	Width        float64
	Height       float64
	DensityIndex int
	Tint         model.Color
	Texture      string
}

// Ripple is the breathing wave around a marker. ScalePhase is the seed in
// [0,1) handed to the animation arena.
type Ripple struct {
	Transform  Transform
	BaseSize   float64
	ScalePhase float64
	Texture    string
}

// MarkerSet is everything drawn for one geographic point.
type MarkerSet struct {
	Point   model.GeoPoint
	Kind    MarkerKind
	Surface mgl64.Vec3
	Normal  mgl64.Vec3
	Decal   Decal
	Pillar  Pillar
	Ripple  Ripple
}

// MarkerBuilder produces marker sets on a globe of fixed radius. Decals and
// ripples share one unit quad; all pillars share one crossed-quad mesh.
type MarkerBuilder struct {
	radius float64
	style  MarkerStyle
	rng    *rand.Rand
	quad   *Mesh
	pillar *Mesh
}

// MarkerBuilderOption configures a MarkerBuilder.
type MarkerBuilderOption func(*MarkerBuilder)

// WithMarkerRand sets the source used to seed ripple phases.
func WithMarkerRand(r *rand.Rand) MarkerBuilderOption {
	return func(b *MarkerBuilder) {
		if r != nil {
			b.rng = r
		}
	}
}

// NewMarkerBuilder returns a builder for a globe of the given radius.
func NewMarkerBuilder(radius float64, style MarkerStyle, opts ...MarkerBuilderOption) *MarkerBuilder {
	b := &MarkerBuilder{
		radius: radius,
		style:  style,
		rng:    rand.New(rand.NewSource(1)),
		quad:   PlaneMesh(1, 1),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.pillar = pillarMesh(radius*markerPillarWidth, radius*markerPillarHeight, style)
	return b
}

// QuadMesh is the unit quad shared by decals and ripples.
func (b *MarkerBuilder) QuadMesh() *Mesh { return b.quad }

// PillarMesh is the crossed-quad column shared by all pillars.
func (b *MarkerBuilder) PillarMesh() *Mesh { return b.pillar }

// Build creates the decal, pillar and ripple for p.
func (b *MarkerBuilder) Build(p model.GeoPoint, kind MarkerKind) MarkerSet {
	surface := ProjectPoint(p, b.radius*markerShell)
	normal := surface.Normalize()
	orient := rotationBetween(axisZ, normal)

	place := func(scale float64) Transform {
		return Transform{
			Position:    surface,
			Orientation: orient,
			Scale:       mgl64.Vec3{scale, scale, scale},
		}
	}

	tint := b.style.PillarStartColor
	if kind == MarkerDestination {
		tint = b.style.PillarEndColor
	}

	return MarkerSet{
		Point:   p,
		Kind:    kind,
		Surface: surface,
		Normal:  normal,
		Decal: Decal{
			Transform: place(b.radius * markerDecalScale),
			Color:     b.style.CircleColor,
			Texture:   TextureLabel,
		},
		Pillar: Pillar{
			Transform:    place(1),
			Width:        b.radius * markerPillarWidth,
			Height:       b.radius * markerPillarHeight,
			DensityIndex: kind.DensityIndex(),
			Tint:         tint,
			Texture:      TextureLightColumn,
		},
		Ripple: Ripple{
			Transform:  place(b.radius * markerRippleScale),
			BaseSize:   b.radius * markerRippleScale,
			ScalePhase: b.rng.Float64(),
			Texture:    TextureAperture,
		},
	}
}

// pillarMesh builds two quads crossed at 90° about local Z, rising from
// the origin along +Z, with vertex colors fading from start to end.
func pillarMesh(width, height float64, style MarkerStyle) *Mesh {
	m := &Mesh{}
	hw := width / 2
	face := func(normal mgl64.Vec3, rot mgl64.Quat) {
		corners := [4]struct {
			p    mgl64.Vec3
			u, v float64
		}{
			{mgl64.Vec3{-hw, 0, 0}, 0, 0},
			{mgl64.Vec3{hw, 0, 0}, 1, 0},
			{mgl64.Vec3{-hw, 0, height}, 0, 1},
			{mgl64.Vec3{hw, 0, height}, 1, 1},
		}
		base := uint32(m.VertexCount())
		for _, c := range corners {
			m.addVertex(rot.Rotate(c.p), rot.Rotate(normal), c.u, c.v)
			r, g, bl := style.PillarStartColor.Lerp(style.PillarEndColor, c.v)
			m.addColor(r, g, bl)
		}
		m.addTriangle(base, base+1, base+2)
		m.addTriangle(base+2, base+1, base+3)
	}
	face(axisY.Mul(-1), mgl64.QuatIdent())
	face(axisY.Mul(-1), mgl64.QuatRotate(math.Pi/2, axisZ))
	return m
}
