package scene

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"unicode/utf8"

	"github.com/go-gl/mathgl/mgl64"
	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/globe-visualizer/core"
	"github.com/signalsfoundry/globe-visualizer/internal/assets"
	"github.com/signalsfoundry/globe-visualizer/internal/logging"
	"github.com/signalsfoundry/globe-visualizer/internal/observability"
	"github.com/signalsfoundry/globe-visualizer/model"
)

const (
	starCount        = 500
	borderOffset     = 10
	borderSegments   = 60
	earthSegments    = 50
	glowScale        = 3
	labelShell       = 1.001
	labelLift        = 1.1
	labelHeight      = 3
	atmosphereShell  = 1.002
	atmosphereDetail = 60
	orbitShell       = 1.25
	orbitSegments    = 100
	arcPickSamples   = 32
	arcPickWidth     = 0.02
)

// Scene palette.
const (
	starColor       model.Color = 0x4d76cf
	borderColor     model.Color = 0x81ffff
	glowColor       model.Color = 0x4390d1
	scanGlowColor   model.Color = 0x0cd1eb
	satelliteColor  model.Color = 0xe0b187
	orbitRingAlpha              = 0.2
	glowSpriteAlpha             = 0.7
	borderAlpha                 = 0.1
)

// SatelliteConfig controls the orbit ring.
type SatelliteConfig struct {
	Show   bool
	Size   float64
	Number int
	// Tilt rotates the ring plane; the zero value means untilted.
	Tilt mgl64.Quat
}

// EarthConfig is everything the globe scene is built from besides data
// and assets.
type EarthConfig struct {
	Radius      float64
	Markers     core.MarkerStyle
	Arcs        core.ArcStyle
	Animation   core.AnimationConfig
	Satellite   SatelliteConfig
	IntroFrames int
	Seed        int64
	Camera      Camera
}

// DefaultEarthConfig returns the stock globe settings.
func DefaultEarthConfig() EarthConfig {
	return EarthConfig{
		Radius:    50,
		Markers:   core.DefaultMarkerStyle(),
		Arcs:      core.DefaultArcStyle(),
		Animation: core.DefaultAnimationConfig(),
		Satellite: SatelliteConfig{
			Show:   true,
			Size:   1,
			Number: 2,
			Tilt:   mgl64.QuatIdent(),
		},
		IntroFrames: 120,
		Seed:        1,
		Camera:      DefaultEarthCamera(),
	}
}

// Option configures scene construction.
type Option func(*options)

type options struct {
	labeler  assets.LabelRasterizer
	log      logging.Logger
	viewport Viewport
}

// WithLabeler rasterizes label text into textures at build time. Without
// one, label nodes carry their text for the renderer to draw.
func WithLabeler(l assets.LabelRasterizer) Option {
	return func(o *options) { o.labeler = l }
}

// WithLogger sets the build logger.
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithViewport sets the initial viewport.
func WithViewport(width, height float64) Option {
	return func(o *options) { o.viewport = Viewport{Width: width, Height: height} }
}

func buildOptions(opts []Option) options {
	o := options{log: logging.Noop(), viewport: Viewport{Width: 1280, Height: 720}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type rippleBinding struct {
	node NodeID
	id   core.EntityID
}

type flowBinding struct {
	node NodeID
	id   core.EntityID
	arc  int
}

// Earth is the animated globe scene.
type Earth struct {
	cfg      EarthConfig
	tree     *Tree
	anim     *core.AnimationState
	camera   Camera
	viewport Viewport
	log      logging.Logger

	root, globe, earth, atmosphere, orbit NodeID
	scanTimeU, hoverU, cloudTimeU         int

	ripples []rippleBinding
	flows   []flowBinding
	arcs    []core.Arc
	intro   float64

	textures []assets.Texture
}

var _ Composer = (*Earth)(nil)

// NewEarth builds the globe scene for routes. Every texture in
// core.RequiredTextures must be resolvable through loader.
func NewEarth(ctx context.Context, cfg EarthConfig, routes []model.RouteEntry, loader assets.Loader, opts ...Option) (*Earth, error) {
	ctx, span := observability.StartSpan(ctx, "scene.BuildEarth", attribute.Int("routes", len(routes)))
	defer span.End()

	if !(cfg.Radius > 0) || math.IsInf(cfg.Radius, 0) {
		return nil, errors.New("earth radius must be positive")
	}
	if err := requireTextures(loader, core.RequiredTextures()); err != nil {
		span.RecordError(err)
		return nil, err
	}
	o := buildOptions(opts)

	e := &Earth{
		cfg:      cfg,
		tree:     NewTree("group"),
		anim:     core.NewAnimationState(cfg.Animation),
		camera:   cfg.Camera,
		viewport: o.viewport,
		log:      o.log,
		orbit:    NoNode,
		textures: textureHeaders(loader, core.RequiredTextures()),
	}
	if e.camera == (Camera{}) {
		e.camera = DefaultEarthCamera()
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	R := cfg.Radius

	e.root = e.tree.Root()
	e.tree.Node(e.root).Dynamic = true
	e.addStars(rng)

	e.globe = e.tree.AddGroup(e.root, "EarthGroup")
	e.tree.Node(e.globe).Dynamic = true

	e.tree.Add(e.globe, Node{
		Kind: KindPoints,
		Name: "earth_border",
		Mesh: e.tree.AddMesh(core.PointsMesh(core.SpherePoints(R+borderOffset, borderSegments, borderSegments))),
		Material: Material{
			Shader:          "points",
			Color:           borderColor,
			Opacity:         borderAlpha,
			Transparent:     true,
			PointSize:       0.01,
			SizeAttenuation: true,
		},
		Visible: true,
	})

	e.earth = e.tree.Add(e.globe, Node{
		Kind: KindSphere,
		Name: "earth",
		Mesh: e.tree.AddMesh(core.SphereMesh(R, earthSegments, earthSegments)),
		Material: Material{
			Shader:  "earth",
			Opacity: 1,
			Uniforms: []Uniform{
				{Name: "glowColor", Type: UniformColor, Color: scanGlowColor},
				{Name: "scale", Type: UniformFloat, Value: -1},
				{Name: "bias", Type: UniformFloat, Value: 1},
				{Name: "power", Type: UniformFloat, Value: 3.3},
				{Name: "time", Type: UniformFloat, Value: e.anim.ScanTime},
				{Name: "isHover", Type: UniformBool},
				{Name: "map", Type: UniformTexture, Texture: core.TextureEarth},
			},
		},
		Visible: true,
		Dynamic: true,
	})
	earthMat := &e.tree.Node(e.earth).Material
	e.scanTimeU = earthMat.UniformIndex("time")
	e.hoverU = earthMat.UniformIndex("isHover")

	e.tree.Add(e.globe, Node{
		Kind:      KindSprite,
		Name:      "glow",
		Mesh:      NoMesh,
		Transform: core.Transform{Orientation: mgl64.QuatIdent(), Scale: mgl64.Vec3{R * glowScale, R * glowScale, 1}},
		Material: Material{
			Shader:      "sprite",
			Color:       glowColor,
			Texture:     core.TextureGlow,
			Opacity:     glowSpriteAlpha,
			Transparent: true,
		},
		Visible: true,
	})

	e.addMarkers(routes, rng)
	e.addAtmosphere()
	if err := e.addLabels(routes, o.labeler); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if cfg.Satellite.Show {
		e.addOrbit()
	}
	e.addArcs(routes, rng)
	e.apply()

	counts := e.tree.CountByKind()
	e.log.Info(ctx, "earth scene built",
		logging.Int("nodes", e.tree.Len()),
		logging.Int("meshes", e.tree.MeshCount()),
		logging.Int("markers", counts[KindMarker.String()]),
		logging.Int("arcs", len(e.arcs)),
	)
	return e, nil
}

func (e *Earth) addStars(rng *rand.Rand) {
	pts := make([]mgl64.Vec3, starCount)
	for i := range pts {
		pts[i] = mgl64.Vec3{
			800*rng.Float64() - 300,
			800*rng.Float64() - 300,
			800*rng.Float64() - 300,
		}
	}
	e.tree.Add(e.root, Node{
		Kind: KindPoints,
		Name: "stars",
		Mesh: e.tree.AddMesh(core.PointsMesh(pts)),
		Material: Material{
			Shader:          "points",
			Color:           starColor,
			Texture:         core.TextureGradient,
			Opacity:         1,
			Transparent:     true,
			PointSize:       2,
			SizeAttenuation: true,
		},
		Visible: true,
	})
}

func (e *Earth) addMarkers(routes []model.RouteEntry, rng *rand.Rand) {
	b := core.NewMarkerBuilder(e.cfg.Radius, e.cfg.Markers, core.WithMarkerRand(rng))
	quad := e.tree.AddMesh(b.QuadMesh())
	pillar := e.tree.AddMesh(b.PillarMesh())
	group := e.tree.AddGroup(e.globe, "markupPoint")

	add := func(p model.GeoPoint, kind core.MarkerKind) {
		set := b.Build(p, kind)
		e.tree.Add(group, Node{
			Kind:      KindMarker,
			Name:      "plane_circle",
			Mesh:      quad,
			Transform: set.Decal.Transform,
			Material: Material{
				Shader:      "basic",
				Color:       set.Decal.Color,
				Texture:     set.Decal.Texture,
				Opacity:     1,
				Transparent: true,
			},
			Visible: true,
		})
		e.tree.Add(group, Node{
			Kind:      KindMarker,
			Name:      "light_pillar",
			Mesh:      pillar,
			Transform: set.Pillar.Transform,
			Material: Material{
				Shader:       "basic",
				Color:        set.Pillar.Tint,
				Texture:      set.Pillar.Texture,
				Opacity:      1,
				Transparent:  true,
				DoubleSided:  true,
				VertexColors: true,
			},
			Visible:    true,
			Payload:    &model.Selection{EventType: model.EventMarker, EventName: p.Name},
			PickPath:   []mgl64.Vec3{{}, {0, 0, set.Pillar.Height}},
			PickRadius: set.Pillar.Width / 2,
		})
		id := e.anim.AddRipple(set.Ripple.BaseSize, set.Ripple.ScalePhase)
		node := e.tree.Add(group, Node{
			Kind:      KindMarker,
			Name:      "wave",
			Mesh:      quad,
			Transform: set.Ripple.Transform,
			Material: Material{
				Shader:      "basic",
				Color:       set.Decal.Color,
				Texture:     set.Ripple.Texture,
				Opacity:     e.anim.Ripple(id).Opacity,
				Transparent: true,
			},
			Visible: true,
			Dynamic: true,
		})
		e.ripples = append(e.ripples, rippleBinding{node: node, id: id})
	}

	for _, r := range routes {
		add(r.Origin, core.MarkerOrigin)
		for _, d := range r.Destinations {
			add(d, core.MarkerDestination)
		}
	}
}

func (e *Earth) addAtmosphere() {
	e.atmosphere = e.tree.Add(e.root, Node{
		Kind: KindSphere,
		Name: "atmosphere",
		Mesh: e.tree.AddMesh(core.SphereMesh(e.cfg.Radius*atmosphereShell, atmosphereDetail, atmosphereDetail)),
		Material: Material{
			Shader:      "flow",
			Opacity:     1,
			Transparent: true,
			Uniforms: []Uniform{
				{Name: "cloudTexture", Type: UniformTexture, Texture: core.TextureFlow},
				{Name: "time", Type: UniformFloat, Value: e.anim.CloudTime},
			},
		},
		Visible: true,
		Dynamic: true,
	})
	e.cloudTimeU = e.tree.Node(e.atmosphere).Material.UniformIndex("time")
}

// LabelWidth is the sprite width of a city label: 5 units for a
// two-character name plus 2 per extra character, never below 1.
func LabelWidth(name string) float64 {
	w := 5 + float64(utf8.RuneCountInString(name)-2)*2
	return math.Max(w, 1)
}

func (e *Earth) addLabels(routes []model.RouteEntry, labeler assets.LabelRasterizer) error {
	rendered := make(map[string]string)
	for _, r := range routes {
		for _, p := range r.Points() {
			tex := ""
			if labeler != nil {
				name, ok := rendered[p.Name]
				if !ok {
					t, err := labeler.RasterizeLabel(p.Name)
					if err != nil {
						return err
					}
					e.textures = append(e.textures, t)
					name = t.Name
					rendered[p.Name] = name
				}
				tex = name
			}
			pos := core.ProjectPoint(p, e.cfg.Radius*labelShell).Mul(labelLift)
			e.tree.Add(e.earth, Node{
				Kind: KindLabel,
				Name: "sprite_city",
				Mesh: NoMesh,
				Transform: core.Transform{
					Position:    pos,
					Orientation: mgl64.QuatIdent(),
					Scale:       mgl64.Vec3{LabelWidth(p.Name), labelHeight, 1},
				},
				Material: Material{
					Shader:      "sprite",
					Color:       0xffffff,
					Texture:     tex,
					Opacity:     1,
					Transparent: true,
				},
				Text:       p.Name,
				Visible:    true,
				Payload:    &model.Selection{EventType: model.EventSprite, EventName: p.Name},
				PickRadius: 0.5,
			})
		}
	}
	return nil
}

func (e *Earth) addOrbit() {
	tilt := e.cfg.Satellite.Tilt
	if tilt == (mgl64.Quat{}) {
		tilt = mgl64.QuatIdent()
	}
	e.cfg.Satellite.Tilt = tilt

	size := e.cfg.Satellite.Size
	if !(size > 0) {
		size = 1
	}
	ring := core.BuildOrbitRing(e.cfg.Radius*orbitShell, orbitSegments, e.cfg.Satellite.Number,
		core.WithTilt(tilt),
		core.WithSatelliteSize(size),
	)
	e.orbit = e.tree.Add(e.globe, Node{
		Kind:      KindOrbitRing,
		Name:      "orbit_ring",
		Mesh:      e.tree.AddMesh(ring.Tube),
		Transform: core.Transform{Orientation: tilt, Scale: mgl64.Vec3{1, 1, 1}},
		Material: Material{
			Shader:      "basic",
			Color:       ring.Color,
			Texture:     ring.Texture,
			Opacity:     orbitRingAlpha,
			Transparent: true,
			DoubleSided: true,
			UVRepeat:    ring.UVRepeat,
		},
		Visible: true,
		Dynamic: true,
	})
	satMesh := e.tree.AddMesh(ring.SatelliteMesh)
	for _, s := range ring.Satellites {
		e.tree.Add(e.orbit, Node{
			Kind:      KindSatellite,
			Name:      "satellite",
			Mesh:      satMesh,
			Transform: core.Transform{Position: s.Position, Orientation: mgl64.QuatIdent(), Scale: mgl64.Vec3{1, 1, 1}},
			Material: Material{
				Shader:  "basic",
				Color:   satelliteColor,
				Opacity: 1,
			},
			Visible: true,
		})
	}
}

func (e *Earth) addArcs(routes []model.RouteEntry, rng *rand.Rand) {
	style := e.cfg.Arcs
	style.Rand = rng
	group := e.tree.AddGroup(e.globe, "flyLines")

	n := 0
	for _, r := range routes {
		n += len(r.Destinations)
	}
	e.arcs = make([]core.Arc, 0, n)

	for _, r := range routes {
		o := r.Origin
		for _, d := range r.Destinations {
			arc := core.BuildArc(e.cfg.Radius, o.Longitude, o.Latitude, d.Longitude, d.Latitude, style)
			e.arcs = append(e.arcs, arc)
			idx := len(e.arcs) - 1

			track := e.tree.Add(group, Node{
				Kind:      KindArc,
				Name:      "fly_arc",
				Mesh:      e.tree.AddMesh(arc.Track),
				Transform: core.Transform{Orientation: arc.Orientation, Scale: mgl64.Vec3{1, 1, 1}},
				Material: Material{
					Shader:      "basic",
					Color:       arc.TrackColor,
					Opacity:     1,
					Transparent: true,
				},
				Visible:    true,
				Payload:    &model.Selection{EventType: model.EventArc, EventName: o.Name + "-" + d.Name},
				PickPath:   core.Sample(arc.Curve, arcPickSamples),
				PickRadius: e.cfg.Radius * arcPickWidth,
			})
			id := e.anim.AddFlow(arc.Phase, arc.EndPhase)
			flow := e.tree.Add(track, Node{
				Kind:      KindArc,
				Name:      "fly_line",
				Mesh:      e.tree.AddMesh(arc.Flow),
				Transform: arc.FlowTransform(e.anim.Flow(id).Phase),
				Material: Material{
					Shader:      "basic",
					Color:       arc.FlowColor,
					Texture:     arc.FlowTexture,
					Opacity:     1,
					Transparent: true,
					UVRepeat:    arc.UVRepeat,
				},
				Visible: true,
				Dynamic: true,
			})
			e.flows = append(e.flows, flowBinding{node: flow, id: id, arc: idx})
		}
	}
}

// Kind implements Composer.
func (e *Earth) Kind() string { return "earth" }

// Render advances one frame and writes the new state into the tree.
func (e *Earth) Render() core.TickStats { return e.Advance(1) }

// Advance moves the scene forward by frames. Non-positive or non-finite
// frame counts leave it untouched.
func (e *Earth) Advance(frames float64) core.TickStats {
	if !(frames > 0) || math.IsInf(frames, 0) {
		return core.TickStats{}
	}
	stats := e.anim.Advance(frames)
	e.intro += frames
	e.apply()
	return stats
}

// apply copies the animation state into the tree. It does not allocate.
func (e *Earth) apply() {
	t := e.tree
	scale := 1.0
	if e.cfg.IntroFrames > 0 {
		scale = easeOutQuad(e.intro / float64(e.cfg.IntroFrames))
	}
	t.nodes[e.root].Transform.Scale = uniformScale(scale)
	t.nodes[e.globe].Transform.Orientation = mgl64.QuatRotate(e.anim.GlobeAngle, mgl64.Vec3{0, 1, 0})
	if e.orbit != NoNode {
		t.nodes[e.orbit].Transform.Orientation = e.cfg.Satellite.Tilt.Mul(mgl64.QuatRotate(e.anim.OrbitAngle, mgl64.Vec3{0, 1, 0}))
	}
	for _, b := range e.ripples {
		st := e.anim.Ripple(b.id)
		n := &t.nodes[b.node]
		n.Transform.Scale = uniformScale(st.Scale)
		n.Material.Opacity = st.Opacity
	}
	for _, b := range e.flows {
		t.nodes[b.node].Transform = e.arcs[b.arc].FlowTransform(e.anim.Flow(b.id).Phase)
	}
	if e.scanTimeU >= 0 {
		t.nodes[e.earth].Material.Uniforms[e.scanTimeU].Value = e.anim.ScanTime
	}
	if e.cloudTimeU >= 0 {
		t.nodes[e.atmosphere].Material.Uniforms[e.cloudTimeU].Value = e.anim.CloudTime
	}
}

// SetRotation toggles the globe spin.
func (e *Earth) SetRotation(on bool) { e.anim.SetGlobeRotation(on) }

// SetHover sets the earth shader's isHover uniform.
func (e *Earth) SetHover(on bool) {
	if e.hoverU < 0 {
		return
	}
	v := 0.0
	if on {
		v = 1
	}
	e.tree.nodes[e.earth].Material.Uniforms[e.hoverU].Value = v
}

// Resize implements Composer.
func (e *Earth) Resize(width, height float64) {
	vp := Viewport{Width: width, Height: height}
	if vp.Valid() {
		e.viewport = vp
	}
}

// Viewport implements Composer.
func (e *Earth) Viewport() Viewport { return e.viewport }

// Camera returns the scene camera.
func (e *Earth) Camera() Camera { return e.camera }

// Pick implements Composer.
func (e *Earth) Pick(x, y float64) (model.Selection, bool) {
	return e.HitTest(e.camera.Ray(e.viewport, x, y))
}

// HitTest implements Composer. Objects behind the globe, as seen along
// the ray, are not hit.
func (e *Earth) HitTest(r Ray) (model.Selection, bool) {
	if r.Dir.Len() < 1e-12 {
		return model.Selection{}, false
	}
	r.Dir = r.Dir.Normalize()
	w := e.tree.World(e.earth)
	radius := e.cfg.Radius * w.MaxScale()
	eye := r.Origin.Sub(w.Position)
	sel, _, ok := pick(e.tree, r, func(hit mgl64.Vec3) bool {
		return !core.SegmentClearsSphere(eye, hit.Sub(w.Position), radius)
	})
	return sel, ok
}

// CaptureFrame implements Composer.
func (e *Earth) CaptureFrame(dst *FrameState) {
	captureTree(e.tree, e.Kind(), e.anim.Frame, dst)
}

// Describe implements Composer.
func (e *Earth) Describe() Description {
	d := describeTree(e.tree, e.Kind(), e.camera)
	d.Textures = append([]assets.Texture(nil), e.textures...)
	return d
}

// Counts implements Composer.
func (e *Earth) Counts() map[string]int { return e.tree.CountByKind() }

// Tree exposes the scene tree for inspection.
func (e *Earth) Tree() *Tree { return e.tree }

// Animation exposes the animation state for inspection.
func (e *Earth) Animation() *core.AnimationState { return e.anim }

// Arcs returns the built arcs in route order.
func (e *Earth) Arcs() []core.Arc { return e.arcs }
