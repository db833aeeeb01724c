package camlattice

import (
	"cmp"
	"slices"

	"github.com/google/uuid"
)

// Scenes are single-threaded, so IDs come from a plain counter.
var nodeIDCounter uint32

func nextNodeID() uint32 {
	nodeIDCounter++
	return nodeIDCounter
}

// Channel is a bitmask of transform channels that can be locked.
type Channel uint16

const (
	ChannelTX Channel = 1 << iota
	ChannelTY
	ChannelTZ
	ChannelRX
	ChannelRY
	ChannelRZ
	ChannelSX
	ChannelSY
	ChannelSZ

	ChannelsTranslate = ChannelTX | ChannelTY | ChannelTZ
	ChannelsRotate    = ChannelRX | ChannelRY | ChannelRZ
	ChannelsScale     = ChannelSX | ChannelSY | ChannelSZ
	ChannelsAll       = ChannelsTranslate | ChannelsRotate | ChannelsScale
)

// Node is the scene graph element. A single flat struct is used for all node
// types; the shape pointer matching Type is the only one set.
type Node struct {
	// Identity
	ID   uint32
	UUID uuid.UUID
	Name string
	Type NodeType

	// Hierarchy
	Parent   *Node
	children []*Node

	// Transform (local). Rotate is Euler XYZ in degrees.
	Translate Vec3
	Rotate    Vec3
	Scale     Vec3
	locked    Channel

	Visible bool

	// Shapes
	Camera    *CameraShape
	Mesh      *MeshShape
	Lattice   *LatticeShape
	Deformer  *Deformer
	Influence *InfluenceArea

	// Internal
	scene    *Scene
	disposed bool
}

// nodeDefaults sets the common default field values shared by all constructors.
func nodeDefaults(n *Node) {
	n.ID = nextNodeID()
	n.UUID = uuid.New()
	n.Scale = Vec3{1, 1, 1}
	n.Visible = true
}

// newNode allocates a detached node. Scene.addNode registers it.
func newNode(name string, typ NodeType) *Node {
	n := &Node{Name: name, Type: typ}
	nodeDefaults(n)
	return n
}

// --- Tree manipulation ---

// AddChild parents child under n, moving it from its previous parent.
// It panics on a nil child or when child is n or one of n's ancestors.
func (n *Node) AddChild(child *Node) {
	if child == nil {
		panic("camlattice: cannot add nil child")
	}
	debugCheckDisposed(n, "AddChild (parent)")
	debugCheckDisposed(child, "AddChild (child)")
	if isAncestor(child, n) {
		panic("camlattice: adding child would create a cycle")
	}
	if old := child.Parent; old != nil {
		old.detach(child)
	}
	child.Parent = n
	n.children = append(n.children, child)
	n.touch()
	if n.scene != nil {
		n.scene.debugCheckTreeDepth(child)
	}
}

// RemoveChild unparents child. It panics when child is not a child of n.
func (n *Node) RemoveChild(child *Node) {
	if child.Parent != n {
		panic("camlattice: child's parent is not this node")
	}
	n.detach(child)
	child.Parent = nil
	n.touch()
}

// RemoveFromParent unparents n if it has a parent.
func (n *Node) RemoveFromParent() {
	if p := n.Parent; p != nil {
		p.RemoveChild(n)
	}
}

// Children returns the children in insertion order. Callers must not modify
// the slice.
func (n *Node) Children() []*Node {
	return n.children
}

// NumChildren returns len(Children()).
func (n *Node) NumChildren() int {
	return len(n.children)
}

// Scene returns the scene that owns this node, or nil for a detached node.
func (n *Node) Scene() *Scene {
	return n.scene
}

// --- Disposal ---

// Dispose deletes the node from its scene, cascading to dependent nodes the
// way Scene.Delete does. A detached node is simply marked disposed along with
// its descendants.
func (n *Node) Dispose() {
	if n.disposed {
		return
	}
	if n.scene != nil {
		n.scene.Delete(n)
		return
	}
	n.RemoveFromParent()
	n.dispose()
}

func (n *Node) dispose() {
	walk(n, func(d *Node) { d.disposed = true })
}

// IsDisposed reports whether the node was deleted or disposed.
func (n *Node) IsDisposed() bool {
	return n.disposed
}

// --- Locks ---

// Lock locks the given transform channels.
func (n *Node) Lock(ch Channel) {
	n.locked |= ch
	n.touch()
}

// Unlock unlocks the given transform channels.
func (n *Node) Unlock(ch Channel) {
	n.locked &^= ch
	n.touch()
}

// Locked reports whether any of the given channels is locked.
func (n *Node) Locked(ch Channel) bool {
	return n.locked&ch != 0
}

// --- Helpers ---

// touch records that the node changed so the enclosing undo chunk is kept.
func (n *Node) touch() {
	if n.scene != nil {
		n.scene.touch()
	}
}

// byID orders nodes by creation.
func byID(a, b *Node) int {
	return cmp.Compare(a.ID, b.ID)
}

// isAncestor reports whether candidate is an ancestor of node.
func isAncestor(candidate, node *Node) bool {
	for p := node; p != nil; p = p.Parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// detach drops child from n.children and leaves child.Parent alone.
func (n *Node) detach(child *Node) {
	if i := slices.Index(n.children, child); i >= 0 {
		n.children = slices.Delete(n.children, i, i+1)
	}
}

// walk visits n and its descendants depth first, parents before children.
func walk(n *Node, fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		walk(c, fn)
	}
}

// SetVisible sets the visibility attribute.
func (n *Node) SetVisible(v bool) {
	if n.Visible == v {
		return
	}
	n.Visible = v
	n.touch()
	if n.scene != nil {
		n.scene.publish(Event{Kind: EventAttributeChanged, Node: n, Attribute: AttrVisibility})
	}
}
