package camlattice

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Scene owns the node tree, the undo stack, the selection and the event
// subscribers. A Scene is not safe for concurrent use; only deformation
// fans out to worker goroutines.
type Scene struct {
	root   *Node
	nodes  map[uint32]*Node
	byName map[string]*Node

	log     *zap.Logger
	workers int
	debug   bool

	subs [numEventKinds][]*Subscription
	sink EventSink

	undo      undoStack
	selection Selection
	time      float64
}

// Option configures a Scene.
type Option func(*Scene)

// WithLogger sets the logger used for warnings and debug output.
func WithLogger(log *zap.Logger) Option {
	return func(s *Scene) {
		if log != nil {
			s.log = log
		}
	}
}

// WithWorkers bounds the goroutines used per deformer evaluation.
// Zero or less means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *Scene) { s.workers = n }
}

// WithEventSink forwards every event to sink.
func WithEventSink(sink EventSink) Option {
	return func(s *Scene) { s.sink = sink }
}

// WithDebug enables debug checks and per-evaluation timing logs.
func WithDebug(enabled bool) Option {
	return func(s *Scene) { s.debug = enabled }
}

// NewScene creates an empty scene with a root transform.
func NewScene(opts ...Option) *Scene {
	s := &Scene{
		nodes:  make(map[uint32]*Node),
		byName: make(map[string]*Node),
		log:    zap.NewNop(),
	}
	s.root = newNode("root", NodeTypeTransform)
	s.root.scene = s
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the scene's root node. It is not part of Nodes and cannot be
// deleted.
func (s *Scene) Root() *Node {
	return s.root
}

// Logger returns the scene's logger.
func (s *Scene) Logger() *zap.Logger {
	return s.log
}

// SetDebugMode enables or disables debug checks and timing logs.
func (s *Scene) SetDebugMode(enabled bool) {
	s.debug = enabled
}

// Node returns the live node with the given name, or nil.
func (s *Scene) Node(name string) *Node {
	return s.byName[name]
}

// NodeByID returns the live node with the given ID, or nil.
func (s *Scene) NodeByID(id uint32) *Node {
	return s.nodes[id]
}

// Lookup is Node with an error for missing names.
func (s *Scene) Lookup(name string) (*Node, error) {
	if n := s.byName[name]; n != nil {
		return n, nil
	}
	return nil, fmt.Errorf("%q: %w", name, ErrNodeNotFound)
}

// Nodes returns live nodes of the given types (all types when none are
// given) in creation order.
func (s *Scene) Nodes(types ...NodeType) []*Node {
	out := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		if len(types) == 0 || slices.Contains(types, n.Type) {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, byID)
	return out
}

func (s *Scene) register(n *Node) {
	n.scene = s
	s.nodes[n.ID] = n
	s.byName[n.Name] = n
}

func (s *Scene) unregister(n *Node) {
	delete(s.nodes, n.ID)
	if s.byName[n.Name] == n {
		delete(s.byName, n.Name)
	}
}

// addNode names, registers and parents a new node (under root when parent is
// nil), wiring shape owners.
func (s *Scene) addNode(n *Node, parent *Node) *Node {
	if parent == nil {
		parent = s.root
	}
	n.Name = s.uniqueName(n.Name)
	switch {
	case n.Lattice != nil:
		n.Lattice.owner = n
	case n.Mesh != nil:
		n.Mesh.owner = n
	case n.Deformer != nil:
		n.Deformer.owner = n
	case n.Influence != nil:
		n.Influence.owner = n
	}
	s.register(n)
	// deformers are dependency nodes outside the hierarchy
	if n.Type != NodeTypeDeformer {
		parent.AddChild(n)
	}
	s.touch()
	s.publish(Event{Kind: EventNodeCreated, Node: n})
	return n
}

// uniqueName returns name if unused, otherwise name with its trailing digits
// replaced by the smallest positive counter that is unused.
func (s *Scene) uniqueName(name string) string {
	if name == "" {
		name = "node"
	}
	if s.byName[name] == nil {
		return name
	}
	base := strings.TrimRight(name, "0123456789")
	for i := 1; ; i++ {
		candidate := base + strconv.Itoa(i)
		if s.byName[candidate] == nil {
			return candidate
		}
	}
}

// CreateTransform creates an empty group node under parent (root when nil).
func (s *Scene) CreateTransform(name string, parent *Node) *Node {
	return s.addNode(newNode(name, NodeTypeTransform), parent)
}

// CreateCamera creates a camera node under the root.
func (s *Scene) CreateCamera(name string, shape CameraShape) (*Node, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("create camera %q: %w", name, err)
	}
	n := newNode(name, NodeTypeCamera)
	n.Camera = &shape
	return s.addNode(n, nil), nil
}

// CreateMesh creates a deformable mesh node under the root.
func (s *Scene) CreateMesh(name string, points []Vec3, faces [][]int) *Node {
	n := newNode(name, NodeTypeMesh)
	n.Mesh = &MeshShape{points: slices.Clone(points), Faces: faces}
	return s.addNode(n, nil)
}

// Rename changes a node's name. It fails with ErrNameInUse when another
// live node has that name.
func (s *Scene) Rename(n *Node, name string) error {
	if name == "" {
		return fmt.Errorf("rename %q: empty name", n.Name)
	}
	if name == n.Name {
		return nil
	}
	if other := s.byName[name]; other != nil && other != n {
		return fmt.Errorf("rename %q to %q: %w", n.Name, name, ErrNameInUse)
	}
	old := n.Name
	delete(s.byName, old)
	n.Name = name
	s.byName[name] = n
	s.touch()
	s.publish(Event{Kind: EventNameChanged, Node: n, OldName: old})
	return nil
}

// Delete removes nodes and everything that depends on them: descendants,
// the deformers of deleted meshes and lattices, and the lattices of deleted
// cameras. Links from surviving nodes to deleted ones are cleared.
func (s *Scene) Delete(nodes ...*Node) {
	gone := make(map[*Node]bool)
	var visit func(n *Node)
	visit = func(n *Node) {
		if n == nil || n == s.root || n.disposed || gone[n] {
			return
		}
		gone[n] = true
		for _, c := range n.children {
			visit(c)
		}
		switch n.Type {
		case NodeTypeCamera:
			for _, l := range s.LatticesOf(n) {
				visit(l)
			}
		case NodeTypeLattice:
			for _, d := range s.DeformersOf(n) {
				visit(d)
			}
		case NodeTypeMesh:
			for _, d := range s.deformersOfObject(n) {
				visit(d)
			}
		}
	}
	for _, n := range nodes {
		visit(n)
	}
	if len(gone) == 0 {
		return
	}

	for _, n := range s.Nodes() {
		if gone[n] {
			continue
		}
		switch {
		case n.Lattice != nil && gone[n.Lattice.camera]:
			n.Lattice.camera = nil
		case n.Influence != nil:
			for idx, l := range n.Influence.links {
				if gone[l] {
					delete(n.Influence.links, idx)
				}
			}
		case n.Deformer != nil:
			d := n.Deformer
			for idx, a := range d.matrices {
				if gone[a] {
					delete(d.matrices, idx)
				}
			}
			for idx, a := range d.falloffs {
				if gone[a] {
					delete(d.falloffs, idx)
				}
			}
		}
	}

	ordered := make([]*Node, 0, len(gone))
	for n := range gone {
		ordered = append(ordered, n)
	}
	slices.SortFunc(ordered, byID)
	for _, n := range ordered {
		if n.Parent != nil && !gone[n.Parent] {
			n.Parent.RemoveChild(n)
		}
		s.unregister(n)
		n.disposed = true
	}
	s.touch()
	s.dropFromSelection(gone)
	for _, n := range ordered {
		s.publish(Event{Kind: EventNodeDeleted, Node: n})
	}
}

// Clear deletes every node, empties the undo stack and publishes
// EventDeleteAll.
func (s *Scene) Clear() {
	for _, n := range s.Nodes() {
		s.unregister(n)
		n.disposed = true
	}
	s.root.children = nil
	s.selection = Selection{}
	s.undo = undoStack{}
	s.time = 0
	s.publish(Event{Kind: EventDeleteAll})
}

// Time returns the current scene time in frames.
func (s *Scene) Time() float64 {
	return s.time
}

// SetTime moves the scene to time t and writes every animated lattice point
// offset from its curves.
func (s *Scene) SetTime(t float64) {
	s.time = t
	for _, n := range s.Nodes(NodeTypeLattice) {
		n.Lattice.applyCurves(t)
	}
}

// deformersOfObject returns the deformers acting on obj in creation order.
func (s *Scene) deformersOfObject(obj *Node) []*Node {
	var out []*Node
	for _, n := range s.Nodes(NodeTypeDeformer) {
		if n.Deformer.object == obj {
			out = append(out, n)
		}
	}
	return out
}
