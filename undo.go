package camlattice

import (
	"errors"
	"maps"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
)

var errChunkOpen = errors.New("camlattice: cannot undo or redo while a chunk is open")

// undoChunk is one undoable step: the nodes the chunk changed, each with
// its state before and after, plus the selection when the chunk moved it.
// Undo and redo touch nothing else, so edits made outside chunks survive.
type undoChunk struct {
	name  string
	nodes []nodeDelta

	selChanged bool
	selBefore  Selection
	selAfter   Selection
}

// nodeDelta is one node's change. A nil state means the node was not live
// on that side of the chunk.
type nodeDelta struct {
	node          *Node
	before, after *nodeState
}

type undoStack struct {
	depth  int
	name   string
	before *sceneState
	dirty  bool

	done   []undoChunk
	undone []undoChunk
}

// Chunk runs fn as one named undo step. The chunk is always closed, even when
// fn fails or panics, so partial edits remain undoable as a unit. Chunks
// opened inside fn fold into this one. A chunk that changed nothing is
// discarded.
func (s *Scene) Chunk(name string, fn func() error) error {
	u := &s.undo
	if u.depth == 0 {
		u.name = name
		u.before = s.capture()
		u.dirty = false
	}
	u.depth++
	defer s.closeChunk()
	return fn()
}

func (s *Scene) closeChunk() {
	u := &s.undo
	u.depth--
	if u.depth > 0 {
		return
	}
	if u.dirty {
		if c := diffStates(u.name, u.before, s.capture()); len(c.nodes) > 0 || c.selChanged {
			u.done = append(u.done, c)
			clear(u.undone)
			u.undone = u.undone[:0]
		}
	}
	u.before = nil
	u.dirty = false
}

// touch marks the open chunk as non-empty. Outside a chunk changes are not
// recorded.
func (s *Scene) touch() {
	if s.undo.depth > 0 {
		s.undo.dirty = true
	}
}

// Undo reverts the most recent chunk and returns its name.
func (s *Scene) Undo() (string, error) {
	u := &s.undo
	if u.depth > 0 {
		return "", errChunkOpen
	}
	if len(u.done) == 0 {
		return "", ErrNothingToUndo
	}
	c := u.done[len(u.done)-1]
	u.done = u.done[:len(u.done)-1]
	s.applyChunk(c, false)
	u.undone = append(u.undone, c)
	s.publish(Event{Kind: EventUndo, Chunk: c.name})
	return c.name, nil
}

// Redo reapplies the most recently undone chunk and returns its name.
func (s *Scene) Redo() (string, error) {
	u := &s.undo
	if u.depth > 0 {
		return "", errChunkOpen
	}
	if len(u.undone) == 0 {
		return "", ErrNothingToRedo
	}
	c := u.undone[len(u.undone)-1]
	u.undone = u.undone[:len(u.undone)-1]
	s.applyChunk(c, true)
	u.done = append(u.done, c)
	s.publish(Event{Kind: EventRedo, Chunk: c.name})
	return c.name, nil
}

// UndoName returns the name of the chunk Undo would revert, or "".
func (s *Scene) UndoName() string {
	if n := len(s.undo.done); n > 0 {
		return s.undo.done[n-1].name
	}
	return ""
}

// RedoName returns the name of the chunk Redo would reapply, or "".
func (s *Scene) RedoName() string {
	if n := len(s.undo.undone); n > 0 {
		return s.undo.undone[n-1].name
	}
	return ""
}

// ClearUndo drops all recorded chunks.
func (s *Scene) ClearUndo() {
	s.undo.done = nil
	s.undo.undone = nil
}

// --- Scene state capture ---

type sceneState struct {
	nodes     map[*Node]*nodeState
	selection Selection
}

type nodeState struct {
	name      string
	parent    *Node
	index     int // position among the parent's children, -1 without parent
	translate Vec3
	rotate    Vec3
	scale     Vec3
	locked    Channel
	visible   bool

	camera    CameraShape
	lattice   LatticeShape
	mesh      MeshShape
	deformer  Deformer
	influence InfluenceArea
}

// capture copies the mutable state of every live node.
func (s *Scene) capture() *sceneState {
	st := &sceneState{
		nodes:     make(map[*Node]*nodeState, len(s.nodes)),
		selection: s.selection.clone(),
	}
	for _, n := range s.nodes {
		st.nodes[n] = captureNode(n)
	}
	return st
}

func captureNode(n *Node) *nodeState {
	ns := &nodeState{
		name:      n.Name,
		parent:    n.Parent,
		index:     -1,
		translate: n.Translate,
		rotate:    n.Rotate,
		scale:     n.Scale,
		locked:    n.locked,
		visible:   n.Visible,
	}
	if n.Parent != nil {
		ns.index = slices.Index(n.Parent.children, n)
	}
	switch {
	case n.Camera != nil:
		ns.camera = *n.Camera
	case n.Lattice != nil:
		ns.lattice = n.Lattice.clone()
	case n.Mesh != nil:
		ns.mesh = MeshShape{points: n.Mesh.points, Faces: n.Mesh.Faces, owner: n}
	case n.Deformer != nil:
		ns.deformer = n.Deformer.clone()
	case n.Influence != nil:
		ns.influence = n.Influence.clone()
	}
	return ns
}

// diffStates keeps the nodes whose state differs between before and after.
func diffStates(name string, before, after *sceneState) undoChunk {
	c := undoChunk{name: name}
	seen := make(map[*Node]bool, len(after.nodes))
	add := func(n *Node) {
		if seen[n] {
			return
		}
		seen[n] = true
		b, a := before.nodes[n], after.nodes[n]
		if b == nil || a == nil || !b.equal(a) {
			c.nodes = append(c.nodes, nodeDelta{node: n, before: b, after: a})
		}
	}
	for n := range before.nodes {
		add(n)
	}
	for n := range after.nodes {
		add(n)
	}
	slices.SortFunc(c.nodes, func(a, b nodeDelta) int { return byID(a.node, b.node) })
	if !selectionEqual(before.selection, after.selection) {
		c.selChanged = true
		c.selBefore = before.selection.clone()
		c.selAfter = after.selection.clone()
	}
	return c
}

// equal compares everything undo restores except the sibling position,
// which shifts whenever a sibling comes or goes.
func (a *nodeState) equal(b *nodeState) bool {
	return a.name == b.name &&
		a.parent == b.parent &&
		a.translate == b.translate &&
		a.rotate == b.rotate &&
		a.scale == b.scale &&
		a.locked == b.locked &&
		a.visible == b.visible &&
		a.camera == b.camera &&
		a.lattice.equal(&b.lattice) &&
		a.mesh.equal(&b.mesh) &&
		a.deformer.equal(&b.deformer) &&
		a.influence.equal(&b.influence)
}

// applyChunk moves the nodes c changed from one side of the chunk to the
// other. Only fields that differ between the two sides are written.
func (s *Scene) applyChunk(c undoChunk, redo bool) {
	sides := func(d nodeDelta) (from, to *nodeState) {
		if redo {
			return d.before, d.after
		}
		return d.after, d.before
	}

	// Nodes the chunk created (or revived) go away first, freeing their
	// names. Their current state, including later edits made outside the
	// chunk, becomes the state the opposite direction revives.
	removed := make(map[*Node]bool)
	for i := range c.nodes {
		d := &c.nodes[i]
		if _, to := sides(*d); to != nil || d.node.disposed {
			continue
		}
		n := d.node
		if redo {
			d.before = captureNode(n)
		} else {
			d.after = captureNode(n)
		}
		if p := n.Parent; p != nil {
			p.detach(n)
			n.Parent = nil
		}
		s.unregister(n)
		n.disposed = true
		removed[n] = true
	}

	// release names about to change so swaps cannot collide
	var live []nodeDelta
	for _, d := range c.nodes {
		from, to := sides(d)
		if to == nil {
			continue
		}
		live = append(live, d)
		if (from == nil || from.name != to.name) && s.byName[d.node.Name] == d.node {
			delete(s.byName, d.node.Name)
		}
	}

	for _, d := range live {
		from, to := sides(d)
		n := d.node
		if n.disposed || s.nodes[n.ID] != n {
			n.disposed = false
			n.scene = s
			s.nodes[n.ID] = n
		}
		if from == nil || from.name != to.name {
			name := to.name
			if other := s.byName[name]; other != nil && other != n {
				name = s.uniqueName(name)
			}
			n.Name = name
		}
		s.byName[n.Name] = n
		n.applyState(from, to)
	}

	slices.SortStableFunc(live, func(a, b nodeDelta) int {
		_, ta := sides(a)
		_, tb := sides(b)
		return ta.index - tb.index
	})
	for _, d := range live {
		from, to := sides(d)
		if from != nil && from.parent == to.parent {
			continue
		}
		parent := to.parent
		if parent != nil && parent.disposed {
			parent = s.root
		}
		d.node.reparent(parent, to.index)
	}

	// children of removed nodes that survive move to the root
	for n := range removed {
		for _, child := range slices.Clone(n.children) {
			if !child.disposed && child.Parent == n {
				child.reparent(s.root, len(s.root.children))
			}
		}
	}

	if c.selChanged {
		if redo {
			s.selection = c.selAfter.clone()
		} else {
			s.selection = c.selBefore.clone()
		}
	}
	s.selection.Nodes = slices.DeleteFunc(s.selection.Nodes, func(n *Node) bool { return n.disposed })
	if l := s.selection.Lattice; l != nil && l.disposed {
		s.selection.Lattice = nil
		s.selection.Points = nil
	}
}

// reparent moves n under parent at index (clamped), or unparents it when
// parent is nil.
func (n *Node) reparent(parent *Node, index int) {
	if old := n.Parent; old != nil {
		old.detach(n)
	}
	n.Parent = parent
	if parent == nil {
		return
	}
	index = max(0, min(index, len(parent.children)))
	parent.children = slices.Insert(parent.children, index, n)
}

// applyState writes the fields that differ between from and to. A nil from
// writes everything.
func (n *Node) applyState(from, to *nodeState) {
	full := from == nil
	if full || from.translate != to.translate {
		n.Translate = to.translate
	}
	if full || from.rotate != to.rotate {
		n.Rotate = to.rotate
	}
	if full || from.scale != to.scale {
		n.Scale = to.scale
	}
	if full || from.locked != to.locked {
		n.locked = to.locked
	}
	if full || from.visible != to.visible {
		n.Visible = to.visible
	}
	switch {
	case n.Camera != nil:
		if full || from.camera != to.camera {
			*n.Camera = to.camera
		}
	case n.Lattice != nil:
		var prev *LatticeShape
		if !full {
			prev = &from.lattice
		}
		n.Lattice.apply(prev, &to.lattice)
	case n.Mesh != nil:
		if full || !slices.Equal(from.mesh.points, to.mesh.points) {
			n.Mesh.points = slices.Clone(to.mesh.points)
			n.Mesh.deformed = nil
		}
		if full || !facesEqual(from.mesh.Faces, to.mesh.Faces) {
			n.Mesh.Faces = to.mesh.Faces
		}
	case n.Deformer != nil:
		d, t := n.Deformer, &to.deformer
		if full {
			*d = t.clone()
			d.owner = n
			return
		}
		f := &from.deformer
		if f.object != t.object {
			d.object = t.object
		}
		if f.lattice != t.lattice {
			d.lattice = t.lattice
		}
		applyLinks(d.matrices, f.matrices, t.matrices)
		applyLinks(d.falloffs, f.falloffs, t.falloffs)
	case n.Influence != nil:
		a, t := n.Influence, &to.influence
		if full {
			*a = t.clone()
			a.owner = n
			return
		}
		if from.influence.Falloff != t.Falloff {
			a.Falloff = t.Falloff
		}
		applyLinks(a.links, from.influence.links, t.links)
	}
}

// applyLinks writes the keys that differ between from and to into dst.
func applyLinks(dst, from, to map[int]*Node) {
	for k, v := range to {
		if from[k] != v {
			dst[k] = v
		}
	}
	for k := range from {
		if _, ok := to[k]; !ok {
			delete(dst, k)
		}
	}
}

// apply writes the attributes, offsets and curves that differ between from
// and to. A nil from replaces the whole shape.
func (l *LatticeShape) apply(from, to *LatticeShape) {
	if from == nil {
		owner := l.owner
		*l = to.clone()
		l.owner = owner
		return
	}
	if from.Active != to.Active {
		l.Active = to.Active
	}
	if from.Interpolation != to.Interpolation {
		l.Interpolation = to.Interpolation
	}
	if from.SDivisions != to.SDivisions {
		l.SDivisions = to.SDivisions
	}
	if from.TDivisions != to.TDivisions {
		l.TDivisions = to.TDivisions
	}
	if from.MaxRecursion != to.MaxRecursion {
		l.MaxRecursion = to.MaxRecursion
	}
	if from.GateOffset != to.GateOffset {
		l.GateOffset = to.GateOffset
	}
	if from.camera != to.camera {
		l.camera = to.camera
	}
	if len(from.offsets) != len(to.offsets) || len(l.offsets) != len(to.offsets) {
		l.offsets = slices.Clone(to.offsets)
	} else {
		for i, off := range to.offsets {
			if from.offsets[i] != off {
				l.offsets[i] = off
			}
		}
	}
	for i, pc := range to.curves {
		if !pointCurvesEqual(from.curves[i], pc) {
			l.curves[i] = &pointCurves{X: pc.X.clone(), Y: pc.Y.clone()}
		}
	}
	for i := range from.curves {
		if _, ok := to.curves[i]; !ok {
			delete(l.curves, i)
		}
	}
}

func (l *LatticeShape) equal(o *LatticeShape) bool {
	return l.Active == o.Active &&
		l.Interpolation == o.Interpolation &&
		l.SDivisions == o.SDivisions &&
		l.TDivisions == o.TDivisions &&
		l.MaxRecursion == o.MaxRecursion &&
		l.GateOffset == o.GateOffset &&
		l.camera == o.camera &&
		slices.Equal(l.offsets, o.offsets) &&
		maps.EqualFunc(l.curves, o.curves, pointCurvesEqual)
}

func pointCurvesEqual(a, b *pointCurves) bool {
	if a == nil || b == nil {
		return a == b
	}
	return curveEqual(a.X, b.X) && curveEqual(a.Y, b.Y)
}

func curveEqual(a, b *Curve) bool {
	if a == nil || b == nil {
		return a.Len() == 0 && b.Len() == 0
	}
	return slices.Equal(a.keys, b.keys)
}

func (m *MeshShape) equal(o *MeshShape) bool {
	return slices.Equal(m.points, o.points) && facesEqual(m.Faces, o.Faces)
}

func facesEqual(a, b [][]int) bool {
	return slices.EqualFunc(a, b, func(x, y []int) bool { return slices.Equal(x, y) })
}

func (d *Deformer) equal(o *Deformer) bool {
	return d.object == o.object &&
		d.lattice == o.lattice &&
		maps.Equal(d.matrices, o.matrices) &&
		maps.Equal(d.falloffs, o.falloffs)
}

func (a *InfluenceArea) equal(o *InfluenceArea) bool {
	return a.Falloff == o.Falloff && maps.Equal(a.links, o.links)
}

func (l *LatticeShape) clone() LatticeShape {
	c := *l
	c.offsets = slices.Clone(l.offsets)
	if c.offsets == nil {
		c.offsets = []mgl64.Vec2{}
	}
	c.curves = make(map[int]*pointCurves, len(l.curves))
	for idx, pc := range l.curves {
		c.curves[idx] = &pointCurves{X: pc.X.clone(), Y: pc.Y.clone()}
	}
	return c
}

func (d *Deformer) clone() Deformer {
	c := *d
	c.matrices = maps.Clone(d.matrices)
	c.falloffs = maps.Clone(d.falloffs)
	if c.matrices == nil {
		c.matrices = make(map[int]*Node)
	}
	if c.falloffs == nil {
		c.falloffs = make(map[int]*Node)
	}
	return c
}

func (a *InfluenceArea) clone() InfluenceArea {
	c := *a
	c.links = maps.Clone(a.links)
	if c.links == nil {
		c.links = make(map[int]*Node)
	}
	return c
}
