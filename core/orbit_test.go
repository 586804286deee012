package core

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestCirclePoints(t *testing.T) {
	pts := CirclePoints(62.5, 100, true)
	if len(pts) != 101 {
		t.Fatalf("closed circle has %d points, want 101", len(pts))
	}
	if pts[0] != pts[100] {
		t.Fatalf("closed circle last point %v != first %v", pts[100], pts[0])
	}
	for i, p := range pts {
		if p[1] != 0 {
			t.Fatalf("point %d has y=%v, want 0", i, p[1])
		}
		if math.Abs(p.Len()-62.5) > 1e-9 {
			t.Fatalf("point %d radius %v, want 62.5", i, p.Len())
		}
	}
	step := 2 * math.Pi / 100
	if a := AngularDistance(pts[0], pts[1]); math.Abs(a-step) > 1e-9 {
		t.Fatalf("angular step %v, want %v", a, step)
	}

	if open := CirclePoints(1, 100, false); len(open) != 100 {
		t.Fatalf("open circle has %d points, want 100", len(open))
	}
	if tiny := CirclePoints(1, 1, false); len(tiny) != 3 {
		t.Fatalf("segment count should be raised to 3, got %d points", len(tiny))
	}
}

func TestBuildOrbitRing_Satellites(t *testing.T) {
	ring := BuildOrbitRing(62.5, 100, 2)
	if len(ring.Satellites) != 2 {
		t.Fatalf("got %d satellites, want 2", len(ring.Satellites))
	}
	if ring.Satellites[0].Index != 0 || ring.Satellites[1].Index != 50 {
		t.Fatalf("satellite indices = %d,%d want 0,50", ring.Satellites[0].Index, ring.Satellites[1].Index)
	}
	if !vecNear(ring.Satellites[1].Position, mgl64.Vec3{-62.5, 0, 0}, 1e-9) {
		t.Fatalf("second satellite at %v, want opposite the first", ring.Satellites[1].Position)
	}
	if ring.Texture != TextureOrbit || ring.UVRepeat != [2]float64{1, 2} {
		t.Fatalf("ring material = %q %v", ring.Texture, ring.UVRepeat)
	}
	// 151 rings of 3 vertices, 150×2×2 triangles.
	if ring.Tube.VertexCount() != 151*3 || ring.Tube.TriangleCount() != 150*2*2 {
		t.Fatalf("tube mesh %d vertices / %d triangles", ring.Tube.VertexCount(), ring.Tube.TriangleCount())
	}

	if n := len(BuildOrbitRing(10, 4, 10).Satellites); n != 4 {
		t.Fatalf("satellite count should clamp to segments, got %d", n)
	}
	if n := len(BuildOrbitRing(10, 4, -1).Satellites); n != 0 {
		t.Fatalf("negative satellite count should yield none, got %d", n)
	}
}

func TestBuildOrbitRing_TubeIsClosed(t *testing.T) {
	ring := BuildOrbitRing(62.5, 100, 2)
	m := ring.Tube
	stride := 3
	last := m.VertexCount() - stride
	for j := 0; j < stride; j++ {
		a, b := m.Vertex(j), m.Vertex(last+j)
		if a.Sub(b).Len() > 1e-3 {
			t.Fatalf("tube seam vertex %d differs: %v vs %v", j, a, b)
		}
	}
	for i := 0; i < m.VertexCount(); i++ {
		r := math.Hypot(m.Vertex(i)[0], m.Vertex(i)[2])
		if math.Abs(r-62.5) > 1.05 {
			t.Fatalf("tube vertex %d at ring distance %v", i, r)
		}
	}
}

func TestBuildOrbitRing_Tilt(t *testing.T) {
	tilt := mgl64.QuatRotate(-math.Pi/9, axisZ)
	ring := BuildOrbitRing(62.5, 100, 2, WithTilt(tilt), WithSatelliteSize(2))
	if !vecNear(ring.Tilt.V, tilt.V, 1e-12) || math.Abs(ring.Tilt.W-tilt.W) > 1e-12 {
		t.Fatalf("tilt = %v, want %v", ring.Tilt, tilt)
	}
	if ring.Satellites[0].Size != 2 {
		t.Fatalf("satellite size = %v, want 2", ring.Satellites[0].Size)
	}
}

func TestCatmullRom_ClosedLoopPassesThroughPoints(t *testing.T) {
	pts := CirclePoints(10, 8, true)
	c := CatmullRomCurve{Points: pts}
	if !c.Closed() {
		t.Fatalf("expected repeated endpoint to close the curve")
	}
	for i := 0; i < 8; i++ {
		got := c.PointAt(float64(i) / 8)
		if !vecNear(got, pts[i], 1e-9) {
			t.Fatalf("PointAt(%d/8) = %v, want %v", i, got, pts[i])
		}
	}
	if got := c.PointAt(1); !vecNear(got, pts[0], 1e-9) {
		t.Fatalf("PointAt(1) = %v, want start %v", got, pts[0])
	}
}
