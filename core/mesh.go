package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Mesh is an indexed triangle list in the flat float32 layout the renderer
// uploads directly. Colors is empty unless the mesh carries per-vertex RGB.
type Mesh struct {
	Positions []float32 `json:"positions"`
	Normals   []float32 `json:"normals,omitempty"`
	UVs       []float32 `json:"uvs,omitempty"`
	Colors    []float32 `json:"colors,omitempty"`
	Indices   []uint32  `json:"indices,omitempty"`
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return len(m.Positions) / 3 }

// TriangleCount returns the number of indexed triangles.
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// Vertex returns vertex i as a vector.
func (m *Mesh) Vertex(i int) mgl64.Vec3 {
	return mgl64.Vec3{
		float64(m.Positions[3*i]),
		float64(m.Positions[3*i+1]),
		float64(m.Positions[3*i+2]),
	}
}

func (m *Mesh) addVertex(p, n mgl64.Vec3, u, v float64) uint32 {
	idx := uint32(m.VertexCount())
	m.Positions = append(m.Positions, float32(p[0]), float32(p[1]), float32(p[2]))
	m.Normals = append(m.Normals, float32(n[0]), float32(n[1]), float32(n[2]))
	m.UVs = append(m.UVs, float32(u), float32(v))
	return idx
}

func (m *Mesh) addColor(r, g, b float64) {
	m.Colors = append(m.Colors, float32(r), float32(g), float32(b))
}

func (m *Mesh) addTriangle(a, b, c uint32) {
	m.Indices = append(m.Indices, a, b, c)
}

// Merge appends other, transformed by t, to m.
func (m *Mesh) Merge(other *Mesh, t Transform) {
	base := uint32(m.VertexCount())
	rot := Transform{Orientation: t.Orientation, Scale: mgl64.Vec3{1, 1, 1}}
	for i := 0; i < other.VertexCount(); i++ {
		p := t.Apply(other.Vertex(i))
		m.Positions = append(m.Positions, float32(p[0]), float32(p[1]), float32(p[2]))
		if len(other.Normals) >= 3*(i+1) {
			n := rot.Apply(mgl64.Vec3{
				float64(other.Normals[3*i]),
				float64(other.Normals[3*i+1]),
				float64(other.Normals[3*i+2]),
			})
			m.Normals = append(m.Normals, float32(n[0]), float32(n[1]), float32(n[2]))
		}
	}
	m.UVs = append(m.UVs, other.UVs...)
	m.Colors = append(m.Colors, other.Colors...)
	for _, idx := range other.Indices {
		m.Indices = append(m.Indices, base+idx)
	}
}

// BoundingSphere returns the centroid of the vertices and the largest
// distance from it.
func (m *Mesh) BoundingSphere() (mgl64.Vec3, float64) {
	n := m.VertexCount()
	if n == 0 {
		return mgl64.Vec3{}, 0
	}
	var c mgl64.Vec3
	for i := 0; i < n; i++ {
		c = c.Add(m.Vertex(i))
	}
	c = c.Mul(1 / float64(n))
	var r float64
	for i := 0; i < n; i++ {
		r = math.Max(r, m.Vertex(i).Sub(c).Len())
	}
	return c, r
}

// PlaneMesh returns a width×height quad in the XY plane facing +Z.
func PlaneMesh(width, height float64) *Mesh {
	hw, hh := width/2, height/2
	m := &Mesh{}
	n := axisZ
	m.addVertex(mgl64.Vec3{-hw, hh, 0}, n, 0, 1)
	m.addVertex(mgl64.Vec3{hw, hh, 0}, n, 1, 1)
	m.addVertex(mgl64.Vec3{-hw, -hh, 0}, n, 0, 0)
	m.addVertex(mgl64.Vec3{hw, -hh, 0}, n, 1, 0)
	m.addTriangle(0, 2, 1)
	m.addTriangle(2, 3, 1)
	return m
}

// SphereMesh returns a UV sphere. Segment counts are raised to the
// smallest values that still close the surface.
func SphereMesh(radius float64, widthSegments, heightSegments int) *Mesh {
	if widthSegments < 3 {
		widthSegments = 3
	}
	if heightSegments < 2 {
		heightSegments = 2
	}
	m := &Mesh{}
	for iy := 0; iy <= heightSegments; iy++ {
		v := float64(iy) / float64(heightSegments)
		for ix := 0; ix <= widthSegments; ix++ {
			u := float64(ix) / float64(widthSegments)
			n := mgl64.Vec3{
				-math.Cos(u*2*math.Pi) * math.Sin(v*math.Pi),
				math.Cos(v * math.Pi),
				math.Sin(u*2*math.Pi) * math.Sin(v*math.Pi),
			}
			m.addVertex(n.Mul(radius), n, u, 1-v)
		}
	}
	stride := uint32(widthSegments + 1)
	for iy := 0; iy < heightSegments; iy++ {
		for ix := 0; ix < widthSegments; ix++ {
			a := uint32(iy)*stride + uint32(ix) + 1
			b := uint32(iy)*stride + uint32(ix)
			c := uint32(iy+1)*stride + uint32(ix)
			d := uint32(iy+1)*stride + uint32(ix) + 1
			if iy != 0 {
				m.addTriangle(a, b, d)
			}
			if iy != heightSegments-1 {
				m.addTriangle(b, c, d)
			}
		}
	}
	return m
}

// SpherePoints returns the vertex positions of a UV sphere as a point
// cloud, without the duplicated seam column.
func SpherePoints(radius float64, widthSegments, heightSegments int) []mgl64.Vec3 {
	s := SphereMesh(radius, widthSegments, heightSegments)
	out := make([]mgl64.Vec3, 0, s.VertexCount())
	w := widthSegments
	if w < 3 {
		w = 3
	}
	for i := 0; i < s.VertexCount(); i++ {
		if i%(w+1) == w {
			continue
		}
		out = append(out, s.Vertex(i))
	}
	return out
}

// PointsMesh packs a point cloud into a mesh without indices.
func PointsMesh(points []mgl64.Vec3) *Mesh {
	m := &Mesh{Positions: make([]float32, 0, 3*len(points))}
	for _, p := range points {
		m.Positions = append(m.Positions, float32(p[0]), float32(p[1]), float32(p[2]))
	}
	return m
}
