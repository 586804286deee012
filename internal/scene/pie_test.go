package scene

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/globe-visualizer/internal/assets"
	"github.com/signalsfoundry/globe-visualizer/model"
)

func newTestPie(t *testing.T) *Pie {
	t.Helper()
	p, err := NewPie(context.Background(), DefaultPieConfig(), testLoader(t), WithViewport(300, 300))
	if err != nil {
		t.Fatalf("NewPie: %v", err)
	}
	return p
}

func TestNewPieBuildsSectorsAndLabels(t *testing.T) {
	p := newTestPie(t)
	counts := p.Counts()
	if counts["sector"] != 3 || counts["label"] != 3 || counts["points"] != 1 {
		t.Fatalf("counts = %v", counts)
	}
	stars := p.Tree().Mesh(p.Tree().Node(p.Tree().Find("stars")).Mesh)
	if stars.VertexCount() != 20 {
		t.Fatalf("stars = %d, want 20", stars.VertexCount())
	}
	l := p.Layout()
	if l.Inner != 75 || l.Outer != 112.5 || l.MaxDepth != 30 {
		t.Fatalf("layout = %+v", l)
	}
}

func TestNewPieRequiresGradient(t *testing.T) {
	_, err := NewPie(context.Background(), DefaultPieConfig(), assets.NewCatalog())
	if !errors.Is(err, ErrAssetMissing) {
		t.Fatalf("err = %v, want ErrAssetMissing", err)
	}
}

func TestPieResizeKeepsLabelScreenSize(t *testing.T) {
	p := newTestPie(t)
	chart := p.Tree().Node(p.Tree().Find("chart"))

	for _, vp := range [][2]float64{{600, 400}, {1920, 1080}, {200, 900}} {
		p.Resize(vp[0], vp[1])
		gs := chart.Transform.Scale[0]
		if gs != p.Scale() {
			t.Fatalf("group scale %v != scaler %v", gs, p.Scale())
		}
		for _, l := range p.labels {
			n := p.Tree().Node(l.node)
			if d := n.Transform.Scale[0]*gs - l.base[0]; math.Abs(d) > 1e-9 {
				t.Fatalf("label x scale drifted by %v", d)
			}
			if d := n.Transform.Scale[1]*gs - l.base[1]; math.Abs(d) > 1e-9 {
				t.Fatalf("label y scale drifted by %v", d)
			}
		}
	}
	if math.Abs(p.Scale()-200.0/300.0) > 1e-12 {
		t.Fatalf("final scale = %v, want %v", p.Scale(), 200.0/300.0)
	}

	before := p.Scale()
	p.Resize(0, 500)
	p.Resize(500, -1)
	if p.Scale() != before {
		t.Fatalf("degenerate resize changed scale")
	}
}

func TestPieRenderSpinsAndTwinkles(t *testing.T) {
	p := newTestPie(t)
	for i := 0; i < 10; i++ {
		p.Render()
	}
	if math.Abs(p.Angle()-0.1) > 1e-12 {
		t.Fatalf("angle = %v, want 0.1", p.Angle())
	}
	var fs FrameState
	p.CaptureFrame(&fs)
	if fs.Scene != "pie" || fs.Frame != 10 {
		t.Fatalf("frame header = %s/%d", fs.Scene, fs.Frame)
	}
	found := false
	for _, u := range fs.Uniforms {
		if u.Name == "iTime" {
			found = true
			if math.Abs(u.Value-2) > 1e-9 {
				t.Fatalf("iTime = %v, want 2", u.Value)
			}
		}
	}
	if !found {
		t.Fatalf("iTime uniform not captured")
	}
}

func TestPiePickSector(t *testing.T) {
	p := newTestPie(t)
	l := p.Layout()
	tr := p.Tree()
	for _, id := range tr.Node(tr.Find("chart")).Children {
		n := tr.Node(id)
		if n.Kind != KindSector {
			continue
		}
		var s = l.Sectors[0]
		for _, cand := range l.Sectors {
			if cand.Datum.Label == n.Name {
				s = cand
			}
		}
		mid := (l.Inner + l.Outer) / 2
		half := s.Span() / 2
		world := tr.World(id).Apply(mgl64.Vec3{mid * math.Cos(half), mid * math.Sin(half), s.Depth})
		x, y, ok := p.Camera().ScreenPoint(p.Viewport(), world)
		if !ok {
			t.Fatalf("sector %s not on screen", n.Name)
		}
		sel, ok := p.Pick(x, y)
		if !ok {
			t.Fatalf("sector %s not picked", n.Name)
		}
		if sel != (model.Selection{EventType: model.EventSector, EventName: n.Name}) {
			t.Fatalf("picked %+v, want sector %s", sel, n.Name)
		}
	}

	// The donut hole is empty.
	if sel, ok := p.Pick(150, 150); ok {
		t.Fatalf("centre pick hit %+v", sel)
	}
}
