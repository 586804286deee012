// Package scene assembles the procedural geometry from core into typed
// scene trees (the animated globe and the 3D donut chart), advances them
// one frame at a time and answers pick queries against them.
package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/globe-visualizer/core"
	"github.com/signalsfoundry/globe-visualizer/model"
)

// NodeID indexes a node in its Tree. IDs are stable for the tree's life.
type NodeID int32

// NoNode is the parent of the root.
const NoNode NodeID = -1

// MeshID indexes a mesh in its Tree.
type MeshID int32

// NoMesh marks nodes without geometry.
const NoMesh MeshID = -1

// Kind is the node type a renderer dispatches on.
type Kind uint8

const (
	KindGroup Kind = iota
	KindSphere
	KindPoints
	KindSprite
	KindMarker
	KindArc
	KindOrbitRing
	KindSatellite
	KindSector
	KindLabel
)

var kindNames = [...]string{
	KindGroup:     "group",
	KindSphere:    "sphere",
	KindPoints:    "points",
	KindSprite:    "sprite",
	KindMarker:    "marker",
	KindArc:       "arc",
	KindOrbitRing: "orbit_ring",
	KindSatellite: "satellite",
	KindSector:    "sector",
	KindLabel:     "label",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if name == string(text) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("scene: unknown node kind %q", text)
}

// UniformType tells a renderer how to bind a uniform.
type UniformType string

const (
	UniformFloat   UniformType = "float"
	UniformBool    UniformType = "bool"
	UniformColor   UniformType = "color"
	UniformTexture UniformType = "texture"
)

// Uniform is a named shader input. Shaders are opaque: the scene only
// writes values by name.
type Uniform struct {
	Name    string      `json:"name"`
	Type    UniformType `json:"type"`
	Value   float64     `json:"value,omitempty"`
	Color   model.Color `json:"color,omitempty"`
	Texture string      `json:"texture,omitempty"`
}

// Material describes how a node is shaded.
type Material struct {
	Shader          string      `json:"shader"`
	Color           model.Color `json:"color"`
	Texture         string      `json:"texture,omitempty"`
	Opacity         float64     `json:"opacity"`
	Transparent     bool        `json:"transparent,omitempty"`
	DepthWrite      bool        `json:"depthWrite,omitempty"`
	DoubleSided     bool        `json:"doubleSided,omitempty"`
	VertexColors    bool        `json:"vertexColors,omitempty"`
	PointSize       float64     `json:"pointSize,omitempty"`
	SizeAttenuation bool        `json:"sizeAttenuation,omitempty"`
	UVRepeat        [2]float64  `json:"uvRepeat,omitempty"`
	Uniforms        []Uniform   `json:"uniforms,omitempty"`
}

// UniformIndex returns the position of the named uniform, or -1.
func (m *Material) UniformIndex(name string) int {
	for i := range m.Uniforms {
		if m.Uniforms[i].Name == name {
			return i
		}
	}
	return -1
}

// SetFloat writes a float or bool uniform. It reports false when the
// material has no uniform of that name.
func (m *Material) SetFloat(name string, v float64) bool {
	i := m.UniformIndex(name)
	if i < 0 {
		return false
	}
	m.Uniforms[i].Value = v
	return true
}

// Node is one element of the scene tree.
type Node struct {
	ID        NodeID
	Kind      Kind
	Name      string
	Parent    NodeID
	Children  []NodeID
	Transform core.Transform
	Mesh      MeshID
	Material  Material
	Visible   bool
	// Dynamic nodes are written every frame and captured into FrameState.
	Dynamic bool
	// Text is the label text for label sprites.
	Text string
	// Payload makes the node clickable.
	Payload *model.Selection

	// Pick volume in local coordinates. A PickPath is tested as a
	// polyline with PickRadius tolerance, otherwise a sphere is used.
	PickCenter mgl64.Vec3
	PickRadius float64
	PickPath   []mgl64.Vec3
}

// Tree is an arena of nodes and meshes with stable indices.
type Tree struct {
	nodes  []Node
	meshes []*core.Mesh
}

// NewTree creates a tree holding a single root group.
func NewTree(rootName string) *Tree {
	t := &Tree{}
	t.nodes = append(t.nodes, Node{
		ID:        0,
		Kind:      KindGroup,
		Name:      rootName,
		Parent:    NoNode,
		Transform: core.IdentityTransform(),
		Mesh:      NoMesh,
		Visible:   true,
	})
	return t
}

// Root returns the root node's ID.
func (t *Tree) Root() NodeID { return 0 }

// Add appends n under parent and returns its ID. A zero transform becomes
// the identity. Callers set Mesh explicitly, NoMesh included.
func (t *Tree) Add(parent NodeID, n Node) NodeID {
	if t.Node(parent) == nil {
		panic(fmt.Sprintf("scene: parent %d does not exist", parent))
	}
	id := NodeID(len(t.nodes))
	n.ID = id
	n.Parent = parent
	n.Children = nil
	if n.Transform == (core.Transform{}) {
		n.Transform = core.IdentityTransform()
	}
	t.nodes = append(t.nodes, n)
	t.nodes[parent].Children = append(t.nodes[parent].Children, id)
	return id
}

// AddGroup is Add for an empty, visible group node.
func (t *Tree) AddGroup(parent NodeID, name string) NodeID {
	return t.Add(parent, Node{Kind: KindGroup, Name: name, Mesh: NoMesh, Visible: true})
}

// AddMesh registers m and returns its ID.
func (t *Tree) AddMesh(m *core.Mesh) MeshID {
	t.meshes = append(t.meshes, m)
	return MeshID(len(t.meshes) - 1)
}

// Node returns the node with the given ID, or nil.
func (t *Tree) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return &t.nodes[id]
}

// Mesh returns the mesh with the given ID, or nil.
func (t *Tree) Mesh(id MeshID) *core.Mesh {
	if id < 0 || int(id) >= len(t.meshes) {
		return nil
	}
	return t.meshes[id]
}

// Len returns the number of nodes including the root.
func (t *Tree) Len() int { return len(t.nodes) }

// MeshCount returns the number of registered meshes.
func (t *Tree) MeshCount() int { return len(t.meshes) }

// Find returns the first node with the given name, or NoNode.
func (t *Tree) Find(name string) NodeID {
	for i := range t.nodes {
		if t.nodes[i].Name == name {
			return NodeID(i)
		}
	}
	return NoNode
}

// World returns the node's transform relative to the root's parent frame.
func (t *Tree) World(id NodeID) core.Transform {
	n := t.Node(id)
	if n == nil {
		return core.IdentityTransform()
	}
	w := n.Transform
	for p := n.Parent; p != NoNode; p = t.nodes[p].Parent {
		w = t.nodes[p].Transform.Compose(w)
	}
	return w
}

// Visible reports whether the node and all its ancestors are visible.
func (t *Tree) Visible(id NodeID) bool {
	for n := t.Node(id); n != nil; n = t.Node(n.Parent) {
		if !n.Visible {
			return false
		}
	}
	return true
}

// CountByKind returns the number of nodes of each kind, keyed by name.
func (t *Tree) CountByKind() map[string]int {
	out := make(map[string]int)
	for i := range t.nodes {
		out[t.nodes[i].Kind.String()]++
	}
	return out
}
