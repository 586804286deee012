package scene

import (
	"context"
	"errors"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/globe-visualizer/core"
	"github.com/signalsfoundry/globe-visualizer/internal/assets"
	"github.com/signalsfoundry/globe-visualizer/internal/logging"
	"github.com/signalsfoundry/globe-visualizer/internal/observability"
	"github.com/signalsfoundry/globe-visualizer/model"
)

const (
	pieStarCount     = 20
	pieSectorOpacity = 0.94
	pieCurveSegments = 60
	pieSpin          = 0.01
	pieTwinkleStep   = 0.2
)

// PieConfig configures the donut chart scene.
type PieConfig struct {
	// Size is the reference viewport size the chart is laid out for.
	Size   float64
	Data   []model.PieDatum
	Seed   int64
	Camera Camera
}

// DefaultPieConfig returns the stock station-status chart.
func DefaultPieConfig() PieConfig {
	return PieConfig{
		Size: 300,
		Data: []model.PieDatum{
			{Label: "正常电站", Value: 500},
			{Label: "断链电站", Value: 440},
			{Label: "告警电站", Value: 320},
		},
		Seed:   1,
		Camera: DefaultPieCamera(),
	}
}

type pieLabel struct {
	node NodeID
	base [2]float64
}

// Pie is the rotating 3D donut chart scene.
type Pie struct {
	cfg      PieConfig
	tree     *Tree
	layout   core.PieLayout
	scaler   *core.PieScaler
	camera   Camera
	viewport Viewport
	log      logging.Logger

	chart    NodeID
	stars    NodeID
	iTimeU   int
	labels   []pieLabel
	angle    float64
	iTime    float64
	frame    uint64
	textures []assets.Texture
}

var _ Composer = (*Pie)(nil)

// NewPie builds the chart. The gradient texture must be resolvable
// through loader.
func NewPie(ctx context.Context, cfg PieConfig, loader assets.Loader, opts ...Option) (*Pie, error) {
	ctx, span := observability.StartSpan(ctx, "scene.BuildPie", attribute.Int("sectors", len(cfg.Data)))
	defer span.End()

	if !(cfg.Size > 0) || math.IsInf(cfg.Size, 0) {
		return nil, errors.New("pie size must be positive")
	}
	if err := requireTextures(loader, []string{core.TextureGradient}); err != nil {
		span.RecordError(err)
		return nil, err
	}
	o := buildOptions(opts)

	p := &Pie{
		cfg:      cfg,
		tree:     NewTree("pie"),
		layout:   core.LayoutPie(cfg.Data, cfg.Size),
		scaler:   core.NewPieScaler(cfg.Size),
		camera:   cfg.Camera,
		viewport: o.viewport,
		log:      o.log,
		textures: textureHeaders(loader, []string{core.TextureGradient}),
	}
	if p.camera == (Camera{}) {
		p.camera = DefaultPieCamera()
	}

	p.addStars(rand.New(rand.NewSource(cfg.Seed)))
	p.chart = p.tree.AddGroup(p.tree.Root(), "chart")
	p.tree.Node(p.chart).Dynamic = true
	if err := p.addSectors(o.labeler); err != nil {
		span.RecordError(err)
		return nil, err
	}
	p.apply()

	p.log.Info(ctx, "pie scene built",
		logging.Int("sectors", len(p.layout.Sectors)),
		logging.Float64("size", cfg.Size),
	)
	return p, nil
}

func (p *Pie) addStars(rng *rand.Rand) {
	pts := make([]mgl64.Vec3, pieStarCount)
	for i := range pts {
		pts[i] = mgl64.Vec3{
			600*rng.Float64() - 300,
			600*rng.Float64() - 300,
			800*rng.Float64() - 400,
		}
	}
	p.stars = p.tree.Add(p.tree.Root(), Node{
		Kind: KindPoints,
		Name: "stars",
		Mesh: p.tree.AddMesh(core.PointsMesh(pts)),
		Material: Material{
			Shader:      "twinkle",
			Opacity:     1,
			Transparent: true,
			Uniforms: []Uniform{
				{Name: "iTime", Type: UniformFloat},
				{Name: "pointMap", Type: UniformTexture, Texture: core.TextureGradient},
			},
		},
		Visible: true,
		Dynamic: true,
	})
	p.iTimeU = p.tree.Node(p.stars).Material.UniformIndex("iTime")
}

func (p *Pie) addSectors(labeler assets.LabelRasterizer) error {
	l := p.layout
	for _, s := range l.Sectors {
		mesh := core.ExtrudeSector(l.Inner, l.Outer, s.Span(), s.Depth, pieCurveSegments)
		sector := p.tree.Add(p.chart, Node{
			Kind:      KindSector,
			Name:      s.Datum.Label,
			Mesh:      p.tree.AddMesh(mesh),
			Transform: core.Transform{Orientation: s.Rotation(), Scale: mgl64.Vec3{1, 1, 1}},
			Material: Material{
				Shader:      "phong",
				Color:       s.Color,
				Opacity:     pieSectorOpacity,
				Transparent: true,
			},
			Visible:    true,
			Payload:    &model.Selection{EventType: model.EventSector, EventName: s.Datum.Label},
			PickPath:   sectorPickPath(l.Inner, l.Outer, s.Span(), s.Depth),
			PickRadius: (l.Outer - l.Inner) / 2,
		})

		tex := ""
		if labeler != nil {
			t, err := labeler.RasterizeLabel(s.Text)
			if err != nil {
				return err
			}
			p.textures = append(p.textures, t)
			tex = t.Name
		}
		label := p.tree.Add(sector, Node{
			Kind: KindLabel,
			Name: "sector_label",
			Mesh: NoMesh,
			Transform: core.Transform{
				Position:    s.LabelPosition,
				Orientation: mgl64.QuatIdent(),
				Scale:       mgl64.Vec3{s.LabelScale[0], s.LabelScale[1], 1},
			},
			Material: Material{
				Shader:      "sprite",
				Color:       0xffffff,
				Texture:     tex,
				Opacity:     1,
				Transparent: true,
			},
			Text:       s.Text,
			Visible:    true,
			Dynamic:    true,
			Payload:    &model.Selection{EventType: model.EventSector, EventName: s.Datum.Label},
			PickRadius: 0.5,
		})
		p.labels = append(p.labels, pieLabel{node: label, base: s.LabelScale})
	}
	return nil
}

// sectorPickPath runs along the middle of the sector's top face.
func sectorPickPath(inner, outer, span, depth float64) []mgl64.Vec3 {
	const steps = 16
	mid := (inner + outer) / 2
	out := make([]mgl64.Vec3, steps+1)
	for i := range out {
		a := span * float64(i) / steps
		out[i] = mgl64.Vec3{mid * math.Cos(a), mid * math.Sin(a), depth}
	}
	return out
}

// Kind implements Composer.
func (p *Pie) Kind() string { return "pie" }

// Render spins the chart and advances the star twinkle by one frame.
func (p *Pie) Render() core.TickStats {
	p.angle = math.Mod(p.angle+pieSpin, 2*math.Pi)
	p.iTime += pieTwinkleStep
	p.frame++
	p.apply()
	return core.TickStats{}
}

func (p *Pie) apply() {
	t := p.tree
	s := p.scaler.Scale()
	chart := &t.nodes[p.chart]
	chart.Transform.Orientation = mgl64.QuatRotate(p.angle, mgl64.Vec3{0, 0, 1})
	chart.Transform.Scale = uniformScale(s)
	for _, l := range p.labels {
		ls := p.scaler.LabelScale(l.base)
		t.nodes[l.node].Transform.Scale = mgl64.Vec3{ls[0], ls[1], 1}
	}
	if p.iTimeU >= 0 {
		t.nodes[p.stars].Material.Uniforms[p.iTimeU].Value = p.iTime
	}
}

// Resize rescales the chart to the new viewport while keeping labels at
// their base on-screen size. Non-positive sizes are ignored.
func (p *Pie) Resize(width, height float64) {
	if _, ok := p.scaler.Resize(width, height); !ok {
		return
	}
	p.viewport = Viewport{Width: width, Height: height}
	p.apply()
}

// Viewport implements Composer.
func (p *Pie) Viewport() Viewport { return p.viewport }

// Scale returns the current chart group scale.
func (p *Pie) Scale() float64 { return p.scaler.Scale() }

// Angle returns the chart rotation about Z.
func (p *Pie) Angle() float64 { return p.angle }

// Layout returns the computed sector layout.
func (p *Pie) Layout() core.PieLayout { return p.layout }

// Camera returns the scene camera.
func (p *Pie) Camera() Camera { return p.camera }

// Pick implements Composer.
func (p *Pie) Pick(x, y float64) (model.Selection, bool) {
	return p.HitTest(p.camera.Ray(p.viewport, x, y))
}

// HitTest implements Composer.
func (p *Pie) HitTest(r Ray) (model.Selection, bool) {
	if r.Dir.Len() < 1e-12 {
		return model.Selection{}, false
	}
	r.Dir = r.Dir.Normalize()
	sel, _, ok := pick(p.tree, r, nil)
	return sel, ok
}

// CaptureFrame implements Composer.
func (p *Pie) CaptureFrame(dst *FrameState) {
	captureTree(p.tree, p.Kind(), p.frame, dst)
}

// Describe implements Composer.
func (p *Pie) Describe() Description {
	d := describeTree(p.tree, p.Kind(), p.camera)
	d.Textures = append([]assets.Texture(nil), p.textures...)
	return d
}

// Counts implements Composer.
func (p *Pie) Counts() map[string]int { return p.tree.CountByKind() }

// Tree exposes the scene tree for inspection.
func (p *Pie) Tree() *Tree { return p.tree }
