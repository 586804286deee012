package scene

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/signalsfoundry/globe-visualizer/core"
	"github.com/signalsfoundry/globe-visualizer/internal/assets"
	"github.com/signalsfoundry/globe-visualizer/model"
)

func testLoader(t *testing.T) assets.Loader {
	t.Helper()
	cat, err := assets.Placeholders(core.RequiredTextures())
	if err != nil {
		t.Fatalf("Placeholders: %v", err)
	}
	return cat
}

func testRoutes() []model.RouteEntry {
	a := model.GeoPoint{Name: "A", Longitude: -90, Latitude: 0}
	return []model.RouteEntry{
		{Origin: a, Destinations: []model.GeoPoint{
			{Name: "B", Longitude: -90, Latitude: 60},
			{Name: "C", Longitude: 0, Latitude: 0},
		}},
		{Origin: a, Destinations: []model.GeoPoint{
			{Name: "D", Longitude: 120, Latitude: -30},
		}},
	}
}

func staticEarthConfig() EarthConfig {
	cfg := DefaultEarthConfig()
	cfg.IntroFrames = 0
	cfg.Animation.GlobeRotation = false
	return cfg
}

func TestNewEarthBuildsEveryEntity(t *testing.T) {
	e, err := NewEarth(context.Background(), DefaultEarthConfig(), testRoutes(), testLoader(t))
	if err != nil {
		t.Fatalf("NewEarth: %v", err)
	}
	counts := e.Counts()
	want := map[string]int{
		"group":      4, // root, EarthGroup, markupPoint, flyLines
		"points":     2,
		"sphere":     2,
		"sprite":     1,
		"marker":     15, // 5 points, no dedup, 3 nodes each
		"label":      5,
		"arc":        6, // track + flow per arc
		"orbit_ring": 1,
		"satellite":  2,
	}
	for k, v := range want {
		if counts[k] != v {
			t.Fatalf("count[%s] = %d, want %d (all: %v)", k, counts[k], v, counts)
		}
	}
	if got := e.Animation().RippleCount(); got != 5 {
		t.Fatalf("ripples = %d, want 5", got)
	}
	if got := e.Animation().FlowCount(); got != 3 {
		t.Fatalf("flows = %d, want 3", got)
	}

	stars := e.Tree().Mesh(e.Tree().Node(e.Tree().Find("stars")).Mesh)
	if stars.VertexCount() != 500 {
		t.Fatalf("stars = %d, want 500", stars.VertexCount())
	}
}

func TestNewEarthWithoutSatellites(t *testing.T) {
	cfg := DefaultEarthConfig()
	cfg.Satellite.Show = false
	e, err := NewEarth(context.Background(), cfg, testRoutes(), testLoader(t))
	if err != nil {
		t.Fatalf("NewEarth: %v", err)
	}
	if n := e.Counts()["orbit_ring"]; n != 0 {
		t.Fatalf("orbit ring built while hidden")
	}
	e.Render()
}

func TestNewEarthRequiresAssets(t *testing.T) {
	cat := assets.NewCatalog()
	_, err := NewEarth(context.Background(), DefaultEarthConfig(), testRoutes(), cat)
	if !errors.Is(err, ErrAssetMissing) {
		t.Fatalf("err = %v, want ErrAssetMissing", err)
	}
	if _, err := NewEarth(context.Background(), DefaultEarthConfig(), nil, nil); !errors.Is(err, ErrAssetMissing) {
		t.Fatalf("nil loader err = %v, want ErrAssetMissing", err)
	}
}

func TestNewEarthRejectsBadRadius(t *testing.T) {
	cfg := DefaultEarthConfig()
	cfg.Radius = 0
	if _, err := NewEarth(context.Background(), cfg, nil, testLoader(t)); err == nil {
		t.Fatalf("expected error for zero radius")
	}
}

func TestEarthRenderIsDeterministic(t *testing.T) {
	build := func() *Earth {
		e, err := NewEarth(context.Background(), DefaultEarthConfig(), testRoutes(), testLoader(t))
		if err != nil {
			t.Fatalf("NewEarth: %v", err)
		}
		return e
	}
	a, b := build(), build()
	var fa, fb FrameState
	for i := 0; i < 250; i++ {
		a.Render()
		b.Render()
	}
	a.CaptureFrame(&fa)
	b.CaptureFrame(&fb)
	if !reflect.DeepEqual(fa, fb) {
		t.Fatalf("frames diverged for identical seeds")
	}
	if fa.Frame != 250 || fa.Scene != "earth" {
		t.Fatalf("frame header = %s/%d", fa.Scene, fa.Frame)
	}
}

func TestEarthRenderDoesNotAllocate(t *testing.T) {
	e, err := NewEarth(context.Background(), DefaultEarthConfig(), testRoutes(), testLoader(t))
	if err != nil {
		t.Fatalf("NewEarth: %v", err)
	}
	var fs FrameState
	e.CaptureFrame(&fs)
	allocs := testing.AllocsPerRun(100, func() {
		e.Render()
		e.CaptureFrame(&fs)
	})
	if allocs != 0 {
		t.Fatalf("Render+CaptureFrame allocs = %v, want 0", allocs)
	}
}

func TestEarthIntroEasesRootScale(t *testing.T) {
	cfg := DefaultEarthConfig()
	cfg.IntroFrames = 10
	e, err := NewEarth(context.Background(), cfg, testRoutes(), testLoader(t))
	if err != nil {
		t.Fatalf("NewEarth: %v", err)
	}
	root := e.Tree().Node(e.Tree().Root())
	if root.Transform.Scale[0] != 0 {
		t.Fatalf("initial root scale = %v, want 0", root.Transform.Scale[0])
	}
	for i := 0; i < 5; i++ {
		e.Render()
	}
	if got := root.Transform.Scale[0]; math.Abs(got-0.75) > 1e-12 {
		t.Fatalf("root scale at half intro = %v, want 0.75", got)
	}
	for i := 0; i < 20; i++ {
		e.Render()
	}
	if got := root.Transform.Scale[0]; got != 1 {
		t.Fatalf("root scale after intro = %v, want 1", got)
	}
}

func TestEarthWritesAnimationIntoTree(t *testing.T) {
	e, err := NewEarth(context.Background(), DefaultEarthConfig(), testRoutes(), testLoader(t))
	if err != nil {
		t.Fatalf("NewEarth: %v", err)
	}
	for i := 0; i < 10; i++ {
		e.Render()
	}
	tr := e.Tree()
	earth := tr.Node(tr.Find("earth"))
	if v := earth.Material.Uniforms[earth.Material.UniformIndex("time")].Value; v != e.Animation().ScanTime {
		t.Fatalf("earth time uniform = %v, want %v", v, e.Animation().ScanTime)
	}
	atmo := tr.Node(tr.Find("atmosphere"))
	if v := atmo.Material.Uniforms[atmo.Material.UniformIndex("time")].Value; math.Abs(v-0.2) > 1e-9 {
		t.Fatalf("cloud time = %v, want 0.2", v)
	}
	globe := tr.Node(tr.Find("EarthGroup"))
	if globe.Transform.Orientation.W == 1 {
		t.Fatalf("globe should have rotated")
	}
	wave := tr.Node(tr.Find("wave"))
	st := e.Animation().Ripple(0)
	if wave.Transform.Scale[0] != st.Scale || wave.Material.Opacity != st.Opacity {
		t.Fatalf("ripple node = %v/%v, state = %v/%v", wave.Transform.Scale[0], wave.Material.Opacity, st.Scale, st.Opacity)
	}

	e.SetHover(true)
	if v := earth.Material.Uniforms[earth.Material.UniformIndex("isHover")].Value; v != 1 {
		t.Fatalf("isHover = %v, want 1", v)
	}
}

func TestEarthPickLabel(t *testing.T) {
	routes := []model.RouteEntry{
		{Origin: model.GeoPoint{Name: "AB", Longitude: -90, Latitude: 0}},
		{Origin: model.GeoPoint{Name: "CD", Longitude: 90, Latitude: 0}},
	}
	e, err := NewEarth(context.Background(), staticEarthConfig(), routes, testLoader(t), WithViewport(800, 600))
	if err != nil {
		t.Fatalf("NewEarth: %v", err)
	}

	near := core.Project(50*labelShell, -90, 0).Mul(labelLift)
	x, y, ok := e.Camera().ScreenPoint(e.Viewport(), near)
	if !ok {
		t.Fatalf("near label not on screen")
	}
	sel, ok := e.Pick(x, y)
	if !ok {
		t.Fatalf("expected a hit on the near label")
	}
	if sel != (model.Selection{EventType: model.EventSprite, EventName: "AB"}) {
		t.Fatalf("selection = %+v", sel)
	}

	far := core.Project(50*labelShell, 90, 0).Mul(labelLift)
	x, y, ok = e.Camera().ScreenPoint(e.Viewport(), far)
	if !ok {
		t.Fatalf("far label should project")
	}
	if sel, ok := e.Pick(x, y); ok {
		t.Fatalf("label behind the globe was picked: %+v", sel)
	}
}

func TestEarthPickArc(t *testing.T) {
	routes := []model.RouteEntry{{
		Origin:       model.GeoPoint{Name: "A", Longitude: -90, Latitude: 0},
		Destinations: []model.GeoPoint{{Name: "B", Longitude: -90, Latitude: 60}},
	}}
	cfg := staticEarthConfig()
	cfg.Satellite.Show = false
	e, err := NewEarth(context.Background(), cfg, routes, testLoader(t), WithViewport(800, 600))
	if err != nil {
		t.Fatalf("NewEarth: %v", err)
	}
	arcs := e.Arcs()
	if len(arcs) != 1 {
		t.Fatalf("arcs = %d, want 1", len(arcs))
	}
	mid := arcs[0].PointAt(0.5)
	x, y, ok := e.Camera().ScreenPoint(e.Viewport(), mid)
	if !ok {
		t.Fatalf("arc apex not on screen")
	}
	sel, ok := e.Pick(x, y)
	if !ok || sel.EventType != model.EventArc || sel.EventName != "A-B" {
		t.Fatalf("selection = %+v, %v", sel, ok)
	}
}

func TestEarthResizeIgnoresDegenerateSizes(t *testing.T) {
	e, err := NewEarth(context.Background(), DefaultEarthConfig(), nil, testLoader(t), WithViewport(640, 480))
	if err != nil {
		t.Fatalf("NewEarth: %v", err)
	}
	e.Resize(0, 100)
	e.Resize(-5, -5)
	if e.Viewport() != (Viewport{Width: 640, Height: 480}) {
		t.Fatalf("viewport changed to %+v", e.Viewport())
	}
	e.Resize(1024, 768)
	if e.Viewport() != (Viewport{Width: 1024, Height: 768}) {
		t.Fatalf("viewport = %+v", e.Viewport())
	}
}

func TestEarthDescribeCarriesTextures(t *testing.T) {
	lab, err := assets.NewBitmapLabeler(24, nil)
	if err != nil {
		t.Fatalf("NewBitmapLabeler: %v", err)
	}
	e, err := NewEarth(context.Background(), DefaultEarthConfig(), testRoutes(), testLoader(t), WithLabeler(lab))
	if err != nil {
		t.Fatalf("NewEarth: %v", err)
	}
	d := e.Describe()
	if d.Scene != "earth" || len(d.Nodes) != e.Tree().Len() || len(d.Meshes) != e.Tree().MeshCount() {
		t.Fatalf("description header mismatch: %s %d/%d", d.Scene, len(d.Nodes), len(d.Meshes))
	}
	// 9 stock textures plus one label texture per distinct city.
	if len(d.Textures) != 9+4 {
		t.Fatalf("textures = %d, want 13", len(d.Textures))
	}
	for _, tex := range d.Textures[:9] {
		if len(tex.Data) != 0 {
			t.Fatalf("stock texture %s should not carry bytes", tex.Name)
		}
	}
	for _, n := range d.Nodes {
		if n.Kind == KindLabel && n.Material.Texture == "" {
			t.Fatalf("label %q has no texture", n.Text)
		}
	}
}

func TestLabelWidth(t *testing.T) {
	if LabelWidth("成都") != 5 || LabelWidth("Beijing") != 15 || LabelWidth("") != 1 {
		t.Fatalf("LabelWidth mismatch")
	}
}
