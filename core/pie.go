package core

import (
	"math"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/globe-visualizer/model"
)

const (
	pieCurveSegments = 60
	pieLabelDistance = 1.35
	pieLabelHeight   = 33
)

// PieColors is the sector palette, cycled by sector index.
var PieColors = []model.Color{
	0x4f87b8, 0xd06c34, 0x8f8f8f, 0xdea72f, 0x3b64a7, 0x639746, 0x96b7db, 0xeca5bc,
}

// Sector is one slice of the donut chart. Label coordinates are in the
// sector's own frame, where the slice spans [0, Span] about +Z.
type Sector struct {
	Index         int
	Datum         model.PieDatum
	Text          string
	StartAngle    float64
	EndAngle      float64
	Depth         float64
	Color         model.Color
	LabelPosition mgl64.Vec3
	LabelScale    [2]float64
}

// Span returns the angular width of the sector.
func (s Sector) Span() float64 { return s.EndAngle - s.StartAngle }

// Rotation is the sector's orientation in the chart group: rotated to its
// start angle, then a quarter turn back so the first slice starts at the
// bottom.
func (s Sector) Rotation() mgl64.Quat {
	return mgl64.QuatRotate(s.StartAngle-math.Pi/2, axisZ)
}

// PieLayout is the computed geometry of a chart of a given reference size.
type PieLayout struct {
	Size     float64
	Inner    float64
	Outer    float64
	MinDepth float64
	MaxDepth float64
	Sectors  []Sector
}

// LayoutPie computes sector spans and depths. Values that are not positive
// and finite are skipped. Equal values all get the maximum depth.
func LayoutPie(data []model.PieDatum, size float64) PieLayout {
	l := PieLayout{
		Size:     size,
		Inner:    size / 4,
		Outer:    size / 4 * 1.5,
		MaxDepth: size / 10,
	}
	l.MinDepth = l.MaxDepth * 0.6

	valid := make([]model.PieDatum, 0, len(data))
	var sum float64
	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, d := range data {
		if !(d.Value > 0) || !finite(d.Value) {
			continue
		}
		valid = append(valid, d)
		sum += d.Value
		minV = math.Min(minV, d.Value)
		maxV = math.Max(maxV, d.Value)
	}
	if len(valid) == 0 {
		return l
	}

	start := 0.0
	for i, d := range valid {
		end := start + d.Value/sum*2*math.Pi
		if i == len(valid)-1 {
			end = 2 * math.Pi
		}
		s := Sector{
			Index:      i,
			Datum:      d,
			Text:       strconv.FormatFloat(d.Value, 'f', -1, 64),
			StartAngle: start,
			EndAngle:   end,
			Depth:      SectorDepth(d.Value, minV, maxV, l.MinDepth, l.MaxDepth),
			Color:      PieColors[i%len(PieColors)],
		}
		half := s.Span() / 2
		s.LabelPosition = mgl64.Vec3{
			l.Outer * pieLabelDistance * math.Cos(half),
			l.Outer * pieLabelDistance * math.Sin(half),
			s.Depth,
		}
		s.LabelScale = [2]float64{LabelWidth(s.Text), pieLabelHeight}
		l.Sectors = append(l.Sectors, s)
		start = end
	}
	return l
}

// SectorDepth interpolates depth linearly between the value extremes.
func SectorDepth(v, minV, maxV, minDepth, maxDepth float64) float64 {
	if maxV-minV <= 0 {
		return maxDepth
	}
	return minDepth + (maxDepth-minDepth)*(v-minV)/(maxV-minV)
}

// LabelWidth is the sprite width for a label of the given text.
func LabelWidth(text string) float64 {
	return 27 + float64(len(text))*13.5
}

// ExtrudeSector builds an annular sector of the given span in the XY plane,
// starting at angle 0, extruded along +Z by depth.
func ExtrudeSector(inner, outer, span, depth float64, curveSegments int) *Mesh {
	if curveSegments < 1 {
		curveSegments = pieCurveSegments
	}
	m := &Mesh{}
	at := func(r, a, z float64) mgl64.Vec3 {
		return mgl64.Vec3{r * math.Cos(a), r * math.Sin(a), z}
	}

	// Caps.
	for _, capZ := range []float64{0, depth} {
		n := axisZ
		if capZ == 0 {
			n = axisZ.Mul(-1)
		}
		base := uint32(m.VertexCount())
		for i := 0; i <= curveSegments; i++ {
			a := span * float64(i) / float64(curveSegments)
			u := float64(i) / float64(curveSegments)
			m.addVertex(at(inner, a, capZ), n, u, 0)
			m.addVertex(at(outer, a, capZ), n, u, 1)
		}
		for i := 0; i < curveSegments; i++ {
			i0 := base + uint32(2*i)
			o0, i1, o1 := i0+1, i0+2, i0+3
			if capZ == 0 {
				m.addTriangle(i0, i1, o0)
				m.addTriangle(o0, i1, o1)
			} else {
				m.addTriangle(i0, o0, i1)
				m.addTriangle(o0, o1, i1)
			}
		}
	}

	// Curved walls.
	wall := func(r float64, outward bool) {
		base := uint32(m.VertexCount())
		for i := 0; i <= curveSegments; i++ {
			a := span * float64(i) / float64(curveSegments)
			n := mgl64.Vec3{math.Cos(a), math.Sin(a), 0}
			if !outward {
				n = n.Mul(-1)
			}
			u := float64(i) / float64(curveSegments)
			m.addVertex(at(r, a, 0), n, u, 0)
			m.addVertex(at(r, a, depth), n, u, 1)
		}
		for i := 0; i < curveSegments; i++ {
			b0 := base + uint32(2*i)
			t0, b1, t1 := b0+1, b0+2, b0+3
			if outward {
				m.addTriangle(b0, b1, t0)
				m.addTriangle(t0, b1, t1)
			} else {
				m.addTriangle(b0, t0, b1)
				m.addTriangle(t0, t1, b1)
			}
		}
	}
	wall(outer, true)
	wall(inner, false)

	// Radial ends.
	end := func(a float64, n mgl64.Vec3) {
		base := uint32(m.VertexCount())
		m.addVertex(at(inner, a, 0), n, 0, 0)
		m.addVertex(at(outer, a, 0), n, 1, 0)
		m.addVertex(at(inner, a, depth), n, 0, 1)
		m.addVertex(at(outer, a, depth), n, 1, 1)
		m.addTriangle(base, base+2, base+1)
		m.addTriangle(base+1, base+2, base+3)
	}
	end(0, mgl64.Vec3{0, -1, 0})
	end(span, mgl64.Vec3{-math.Sin(span), math.Cos(span), 0})
	return m
}

// PieScaler keeps chart labels at a constant on-screen size as the
// viewport changes.
type PieScaler struct {
	size  float64
	scale float64
}

// NewPieScaler starts at scale 1 for a chart laid out at size.
func NewPieScaler(size float64) *PieScaler {
	return &PieScaler{size: size, scale: 1}
}

// Scale returns the current group scale.
func (p *PieScaler) Scale() float64 { return p.scale }

// Resize applies scale = min(w,h)/size·scale and rebases size onto the new
// viewport. Non-positive or non-finite sizes are ignored.
func (p *PieScaler) Resize(width, height float64) (float64, bool) {
	if !(width > 0) || !(height > 0) || !finite(width) || !finite(height) || !(p.size > 0) {
		return p.scale, false
	}
	m := math.Min(width, height)
	p.scale = m / p.size * p.scale
	p.size = m
	return p.scale, true
}

// LabelScale returns the label scale that cancels the group scale.
func (p *PieScaler) LabelScale(base [2]float64) [2]float64 {
	return [2]float64{base[0] / p.scale, base[1] / p.scale}
}
