package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// TubeMesh sweeps a circle of the given radius along c. Frames are
// propagated by parallel transport so the tube does not twist; closed tubes
// spread the residual twist evenly along the path.
func TubeMesh(c Curve, tubularSegments int, radius float64, radialSegments int, closed bool) *Mesh {
	if tubularSegments < 1 {
		tubularSegments = 1
	}
	if radialSegments < 2 {
		radialSegments = 2
	}
	tangents, normals, binormals := transportFrames(c, tubularSegments, closed)

	m := &Mesh{}
	ring := func(i int) {
		p := c.PointAt(float64(i) / float64(tubularSegments))
		n, b := normals[i], binormals[i]
		for j := 0; j <= radialSegments; j++ {
			v := float64(j) / float64(radialSegments) * 2 * math.Pi
			sin, cos := math.Sin(v), -math.Cos(v)
			dir := n.Mul(cos).Add(b.Mul(sin)).Normalize()
			m.addVertex(p.Add(dir.Mul(radius)), dir, float64(i)/float64(tubularSegments), float64(j)/float64(radialSegments))
		}
	}
	for i := 0; i < tubularSegments; i++ {
		ring(i)
	}
	if closed {
		// Reuse the first frame so the seam matches exactly.
		normals[tubularSegments] = normals[0]
		binormals[tubularSegments] = binormals[0]
		tangents[tubularSegments] = tangents[0]
	}
	ring(tubularSegments)

	stride := uint32(radialSegments + 1)
	for i := 1; i <= tubularSegments; i++ {
		for j := 1; j <= radialSegments; j++ {
			a := stride*uint32(i-1) + uint32(j-1)
			b := stride*uint32(i) + uint32(j-1)
			cc := stride*uint32(i) + uint32(j)
			d := stride*uint32(i-1) + uint32(j)
			m.addTriangle(a, b, d)
			m.addTriangle(b, cc, d)
		}
	}
	return m
}

func transportFrames(c Curve, segments int, closed bool) (tangents, normals, binormals []mgl64.Vec3) {
	tangents = make([]mgl64.Vec3, segments+1)
	normals = make([]mgl64.Vec3, segments+1)
	binormals = make([]mgl64.Vec3, segments+1)
	for i := range tangents {
		tangents[i] = tangentAt(c, float64(i)/float64(segments))
	}

	// Seed the first normal from the axis least aligned with the tangent.
	t0 := tangents[0]
	seed := axisX
	ax, ay, az := math.Abs(t0[0]), math.Abs(t0[1]), math.Abs(t0[2])
	minv := ax
	if ay <= minv {
		minv = ay
		seed = axisY
	}
	if az <= minv {
		seed = axisZ
	}
	v := t0.Cross(seed).Normalize()
	normals[0] = t0.Cross(v)
	binormals[0] = t0.Cross(normals[0])

	for i := 1; i <= segments; i++ {
		normals[i] = normals[i-1]
		binormals[i] = binormals[i-1]
		axis := tangents[i-1].Cross(tangents[i])
		if axis.Len() > geomEpsilon {
			axis = axis.Normalize()
			theta := math.Acos(clamp(tangents[i-1].Dot(tangents[i]), -1, 1))
			normals[i] = mgl64.QuatRotate(theta, axis).Rotate(normals[i])
		}
		binormals[i] = tangents[i].Cross(normals[i])
	}

	if closed {
		theta := math.Acos(clamp(normals[0].Dot(normals[segments]), -1, 1)) / float64(segments)
		if tangents[0].Dot(normals[0].Cross(normals[segments])) > 0 {
			theta = -theta
		}
		for i := 1; i <= segments; i++ {
			normals[i] = mgl64.QuatRotate(theta*float64(i), tangents[i]).Rotate(normals[i])
			binormals[i] = tangents[i].Cross(normals[i])
		}
	}
	return tangents, normals, binormals
}
