package core

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestSphereMesh_VerticesOnSurface(t *testing.T) {
	m := SphereMesh(50, 50, 50)
	if m.VertexCount() != 51*51 {
		t.Fatalf("vertex count = %d, want %d", m.VertexCount(), 51*51)
	}
	// Pole rows contribute one triangle per segment, the rest two.
	if want := 50*2*50 - 2*50; m.TriangleCount() != want {
		t.Fatalf("triangle count = %d, want %d", m.TriangleCount(), want)
	}
	for i := 0; i < m.VertexCount(); i++ {
		if d := math.Abs(m.Vertex(i).Len() - 50); d > 1e-4 {
			t.Fatalf("vertex %d off the sphere by %v", i, d)
		}
	}
}

func TestSpherePoints_DropsSeam(t *testing.T) {
	pts := SpherePoints(60, 60, 60)
	if len(pts) != 61*60 {
		t.Fatalf("point count = %d, want %d", len(pts), 61*60)
	}
}

func TestPlaneMesh(t *testing.T) {
	m := PlaneMesh(2, 4)
	if m.VertexCount() != 4 || m.TriangleCount() != 2 {
		t.Fatalf("plane has %d vertices / %d triangles", m.VertexCount(), m.TriangleCount())
	}
	c, r := m.BoundingSphere()
	if !vecNear(c, mgl64.Vec3{}, 1e-9) || math.Abs(r-math.Sqrt(5)) > 1e-6 {
		t.Fatalf("bounding sphere = %v r=%v", c, r)
	}
}

func TestMeshMerge_TransformsAndReindexes(t *testing.T) {
	var m Mesh
	quad := PlaneMesh(1, 1)
	m.Merge(quad, IdentityTransform())
	shift := IdentityTransform()
	shift.Position = mgl64.Vec3{10, 0, 0}
	m.Merge(quad, shift)

	if m.VertexCount() != 8 || m.TriangleCount() != 4 {
		t.Fatalf("merged mesh has %d vertices / %d triangles", m.VertexCount(), m.TriangleCount())
	}
	if m.Indices[6] != quad.Indices[0]+4 {
		t.Fatalf("second quad indices not rebased: %v", m.Indices)
	}
	if got := m.Vertex(4)[0]; math.Abs(got-9.5) > 1e-6 {
		t.Fatalf("shifted vertex x = %v, want 9.5", got)
	}
}

func TestTubeMesh_OpenCurve(t *testing.T) {
	c := ArcCurve{Radius: 10, Sweep: math.Pi}
	m := TubeMesh(c, 20, 0.5, 6, false)
	if m.VertexCount() != 21*7 {
		t.Fatalf("tube vertex count = %d, want %d", m.VertexCount(), 21*7)
	}
	for i := 0; i < m.VertexCount(); i++ {
		v := m.Vertex(i)
		d := math.Abs(math.Sqrt(math.Pow(math.Hypot(v[0], v[1])-10, 2)+v[2]*v[2]) - 0.5)
		if d > 1e-4 {
			t.Fatalf("tube vertex %d is %v off the tube surface", i, d)
		}
	}
}
