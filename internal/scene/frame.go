package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/globe-visualizer/core"
	"github.com/signalsfoundry/globe-visualizer/internal/assets"
	"github.com/signalsfoundry/globe-visualizer/model"
)

// Pose is a transform flattened for the wire. Rotation is (x, y, z, w).
type Pose struct {
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation"`
	Scale    [3]float64 `json:"scale"`
}

func poseOf(t core.Transform) Pose {
	q := t.Orientation
	return Pose{
		Position: t.Position,
		Rotation: [4]float64{q.V[0], q.V[1], q.V[2], q.W},
		Scale:    t.Scale,
	}
}

// NodeState is the per-frame state of a dynamic node.
type NodeState struct {
	ID      NodeID  `json:"id"`
	Pose    Pose    `json:"pose"`
	Opacity float64 `json:"opacity"`
	Visible bool    `json:"visible"`
}

// UniformState is the per-frame value of a float or bool uniform.
type UniformState struct {
	Node  NodeID  `json:"node"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// FrameState is everything a renderer needs to update a described scene
// to the current frame. It is reused across captures.
type FrameState struct {
	Scene    string         `json:"scene"`
	Frame    uint64         `json:"frame"`
	Nodes    []NodeState    `json:"nodes"`
	Uniforms []UniformState `json:"uniforms"`
}

// CopyFrom overwrites f with src, reusing f's storage.
func (f *FrameState) CopyFrom(src *FrameState) {
	f.Scene = src.Scene
	f.Frame = src.Frame
	f.Nodes = append(f.Nodes[:0], src.Nodes...)
	f.Uniforms = append(f.Uniforms[:0], src.Uniforms...)
}

// captureTree writes every dynamic node into dst. After the first capture
// of a tree it does not allocate.
func captureTree(t *Tree, scene string, frame uint64, dst *FrameState) {
	dst.Scene = scene
	dst.Frame = frame
	dst.Nodes = dst.Nodes[:0]
	dst.Uniforms = dst.Uniforms[:0]
	for i := range t.nodes {
		n := &t.nodes[i]
		if !n.Dynamic {
			continue
		}
		dst.Nodes = append(dst.Nodes, NodeState{
			ID:      n.ID,
			Pose:    poseOf(n.Transform),
			Opacity: n.Material.Opacity,
			Visible: n.Visible,
		})
		for _, u := range n.Material.Uniforms {
			if u.Type == UniformFloat || u.Type == UniformBool {
				dst.Uniforms = append(dst.Uniforms, UniformState{Node: n.ID, Name: u.Name, Value: u.Value})
			}
		}
	}
}

// NodeDesc is the static description of one node.
type NodeDesc struct {
	ID       NodeID           `json:"id"`
	Parent   NodeID           `json:"parent"`
	Kind     Kind             `json:"kind"`
	Name     string           `json:"name"`
	Pose     Pose             `json:"pose"`
	Mesh     MeshID           `json:"mesh"`
	Material Material         `json:"material"`
	Visible  bool             `json:"visible"`
	Dynamic  bool             `json:"dynamic,omitempty"`
	Text     string           `json:"text,omitempty"`
	Payload  *model.Selection `json:"payload,omitempty"`
}

// Description is the full static scene a renderer bootstraps from.
type Description struct {
	Scene    string           `json:"scene"`
	Root     NodeID           `json:"root"`
	Camera   Camera           `json:"camera"`
	Nodes    []NodeDesc       `json:"nodes"`
	Meshes   []*core.Mesh     `json:"meshes"`
	Textures []assets.Texture `json:"textures"`
}

func describeTree(t *Tree, scene string, cam Camera) Description {
	d := Description{
		Scene:  scene,
		Root:   t.Root(),
		Camera: cam,
		Nodes:  make([]NodeDesc, 0, len(t.nodes)),
		Meshes: append([]*core.Mesh(nil), t.meshes...),
	}
	for i := range t.nodes {
		n := &t.nodes[i]
		mat := n.Material
		mat.Uniforms = append([]Uniform(nil), n.Material.Uniforms...)
		d.Nodes = append(d.Nodes, NodeDesc{
			ID:       n.ID,
			Parent:   n.Parent,
			Kind:     n.Kind,
			Name:     n.Name,
			Pose:     poseOf(n.Transform),
			Mesh:     n.Mesh,
			Material: mat,
			Visible:  n.Visible,
			Dynamic:  n.Dynamic,
			Text:     n.Text,
			Payload:  n.Payload,
		})
	}
	return d
}

// textureHeaders resolves names through l without the encoded bytes.
func textureHeaders(l assets.Loader, names []string) []assets.Texture {
	out := make([]assets.Texture, 0, len(names))
	for _, name := range names {
		if tex, ok := l.Texture(name); ok {
			tex.Data = nil
			out = append(out, tex)
		}
	}
	return out
}

// pick returns the payload of the nearest clickable node hit by r. Hits
// for which blocked reports true are discarded; blocked may be nil.
func pick(t *Tree, r Ray, blocked func(hit mgl64.Vec3) bool) (model.Selection, NodeID, bool) {
	best := math.Inf(1)
	bestID := NoNode
	for i := range t.nodes {
		n := &t.nodes[i]
		if n.Payload == nil || n.PickRadius <= 0 || !t.Visible(n.ID) {
			continue
		}
		w := t.World(n.ID)
		dist := hitDistance(n, w, r)
		if dist < 0 {
			continue
		}
		if blocked != nil && blocked(r.Origin.Add(r.Dir.Mul(dist))) {
			continue
		}
		if dist < best {
			best = dist
			bestID = n.ID
		}
	}
	if bestID == NoNode {
		return model.Selection{}, NoNode, false
	}
	return *t.nodes[bestID].Payload, bestID, true
}

func hitDistance(n *Node, w core.Transform, r Ray) float64 {
	scale := w.MaxScale()
	if len(n.PickPath) > 1 {
		tol := n.PickRadius * scale
		best := -1.0
		prev := w.Apply(n.PickPath[0])
		for _, p := range n.PickPath[1:] {
			cur := w.Apply(p)
			d, at := core.RaySegmentDistance(r.Origin, r.Dir, prev, cur)
			if d <= tol && at > 0 && (best < 0 || at < best) {
				best = at
			}
			prev = cur
		}
		return best
	}
	center := w.Apply(n.PickCenter)
	return core.RaySphere(r.Origin, r.Dir, center, n.PickRadius*scale)
}

// easeOutQuad maps [0,1] onto [0,1] decelerating towards 1.
func easeOutQuad(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * (2 - t)
}

func uniformScale(s float64) mgl64.Vec3 { return mgl64.Vec3{s, s, s} }
