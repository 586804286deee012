package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Projection selects how a Camera maps the view volume to the screen.
type Projection int

const (
	Perspective Projection = iota
	Orthographic
)

// Viewport is the drawing surface size in pixels.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether both dimensions are positive and finite.
func (v Viewport) Valid() bool {
	return v.Width > 0 && v.Height > 0 && !math.IsInf(v.Width, 0) && !math.IsInf(v.Height, 0)
}

// Aspect returns width/height, or 1 for an invalid viewport.
func (v Viewport) Aspect() float64 {
	if !v.Valid() {
		return 1
	}
	return v.Width / v.Height
}

// Ray is a half-line in world coordinates. Dir is unit length.
type Ray struct {
	Origin mgl64.Vec3
	Dir    mgl64.Vec3
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) mgl64.Vec3 { return r.Origin.Add(r.Dir.Mul(t)) }

// Camera is an explicit view description. Orthographic cameras map one
// pixel to one world unit, centred on the view axis.
type Camera struct {
	Projection Projection `json:"projection"`
	Position   mgl64.Vec3 `json:"position"`
	Target     mgl64.Vec3 `json:"target"`
	Up         mgl64.Vec3 `json:"up"`
	FovY       float64    `json:"fovY"` // degrees
	Near       float64    `json:"near"`
	Far        float64    `json:"far"`
}

// DefaultEarthCamera looks at the globe from slightly above the equator.
func DefaultEarthCamera() Camera {
	return Camera{
		Projection: Perspective,
		Position:   mgl64.Vec3{0, 30, 250},
		Up:         mgl64.Vec3{0, 1, 0},
		FovY:       45,
		Near:       1,
		Far:        10000,
	}
}

// DefaultPieCamera looks down -Z at the chart.
func DefaultPieCamera() Camera {
	return Camera{
		Projection: Orthographic,
		Position:   mgl64.Vec3{0, 0, 1000},
		Up:         mgl64.Vec3{0, 1, 0},
		Near:       1,
		Far:        2000,
	}
}

func (c Camera) basis() (forward, right, up mgl64.Vec3) {
	forward = c.Target.Sub(c.Position)
	if forward.Len() < 1e-12 {
		forward = mgl64.Vec3{0, 0, -1}
	}
	forward = forward.Normalize()
	upHint := c.Up
	if upHint.Len() < 1e-12 || math.Abs(forward.Dot(upHint.Normalize())) > 1-1e-9 {
		upHint = mgl64.Vec3{0, 1, 0}
		if math.Abs(forward[1]) > 1-1e-9 {
			upHint = mgl64.Vec3{0, 0, -1}
		}
	}
	right = forward.Cross(upHint).Normalize()
	up = right.Cross(forward)
	return forward, right, up
}

// Ray builds a pick ray through pixel (x, y), origin top-left.
func (c Camera) Ray(vp Viewport, x, y float64) Ray {
	forward, right, up := c.basis()
	nx, ny := 0.0, 0.0
	if vp.Valid() {
		nx = 2*x/vp.Width - 1
		ny = 1 - 2*y/vp.Height
	}

	if c.Projection == Orthographic {
		origin := c.Position.Add(right.Mul(nx * vp.Width / 2)).Add(up.Mul(ny * vp.Height / 2))
		return Ray{Origin: origin, Dir: forward}
	}

	th := math.Tan(mgl64.DegToRad(c.FovY) / 2)
	dir := forward.Add(right.Mul(nx * th * vp.Aspect())).Add(up.Mul(ny * th))
	return Ray{Origin: c.Position, Dir: dir.Normalize()}
}

// ScreenPoint projects a world point to pixel coordinates. ok is false for
// points behind a perspective camera.
func (c Camera) ScreenPoint(vp Viewport, p mgl64.Vec3) (x, y float64, ok bool) {
	forward, right, up := c.basis()
	d := p.Sub(c.Position)
	var nx, ny float64
	if c.Projection == Orthographic {
		if !vp.Valid() {
			return 0, 0, false
		}
		nx = d.Dot(right) / (vp.Width / 2)
		ny = d.Dot(up) / (vp.Height / 2)
	} else {
		z := d.Dot(forward)
		if z <= 0 {
			return 0, 0, false
		}
		th := math.Tan(mgl64.DegToRad(c.FovY) / 2)
		nx = d.Dot(right) / (z * th * vp.Aspect())
		ny = d.Dot(up) / (z * th)
	}
	return (nx + 1) / 2 * vp.Width, (1 - ny) / 2 * vp.Height, true
}
