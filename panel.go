package camlattice

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// Chunk names after which a panel list must be rebuilt.
var (
	objectListChunks    = []string{ChunkDeleteLattice, ChunkAddObject, ChunkRemoveObject}
	influenceListChunks = []string{ChunkDeleteLattice, ChunkAddInfluence, ChunkRemoveInfluence, ChunkCreateInfluence}
	latticeChunks       = []string{ChunkCreateLattice, ChunkDeleteLattice, ChunkSelectLattice}
)

// errNoPanelLattice is returned by panel actions that need a current lattice.
var errNoPanelLattice = errors.New("camlattice: panel has no current lattice")

// PanelItem is one row of the affected-object or influence-area list.
type PanelItem struct {
	Label    string // short name
	Tooltip  string // full path
	Node     *Node  // object or influence area
	Deformer *Node  // object rows only
}

// PanelState is a snapshot of everything the panel displays.
type PanelState struct {
	CameraLabel string
	Lattices    []string
	Current     int // index into Lattices, -1 when empty

	CreateEnabled   bool
	DeleteEnabled   bool
	ControlsEnabled bool

	Active              bool
	Interpolation       Interpolation
	MaxRecursion        int
	MaxRecursionMin     int
	MaxRecursionMax     int
	MaxRecursionVisible bool

	Objects    []PanelItem
	Influences []PanelItem
}

// Panel is a headless controller for camera lattices. It follows the scene
// selection to pick a camera, lists that camera's lattices and exposes the
// lattice tools. Each Panel owns its subscriptions; call Close to release
// them.
type Panel struct {
	scene *Scene
	subs  []*Subscription

	camera   *Node
	lattices []*Node
	names    []string
	lattice  *Node
	state    PanelState

	refreshing             bool
	interpolationFromPanel bool
	maxRecursionFromPanel  bool
}

// NewPanel creates a panel bound to scene and syncs it with the current
// selection.
func NewPanel(scene *Scene) *Panel {
	p := &Panel{scene: scene}
	p.reset()
	p.subs = []*Subscription{
		scene.Subscribe(EventSelectionChanged, func(Event) { p.selectionChanged() }),
		scene.Subscribe(EventDeleteAll, func(Event) { p.deleteAll() }),
		scene.Subscribe(EventNameChanged, func(Event) { p.nameChanged() }),
		scene.Subscribe(EventUndo, func(e Event) { p.undoRedo(e.Chunk) }),
		scene.Subscribe(EventRedo, func(e Event) { p.undoRedo(e.Chunk) }),
		scene.Subscribe(EventAttributeChanged, p.attributeChanged),
	}
	p.selectionChanged()
	return p
}

// Close unsubscribes the panel from the scene.
func (p *Panel) Close() {
	for _, sub := range p.subs {
		sub.Unsubscribe()
	}
	p.subs = nil
}

// State returns a copy of the displayed state.
func (p *Panel) State() PanelState {
	st := p.state
	st.Lattices = slices.Clone(p.state.Lattices)
	st.Objects = slices.Clone(p.state.Objects)
	st.Influences = slices.Clone(p.state.Influences)
	return st
}

// Camera returns the camera the panel is following, or nil.
func (p *Panel) Camera() *Node { return p.camera }

// Lattice returns the current lattice, or nil.
func (p *Panel) Lattice() *Node { return p.lattice }

// Refresh rebuilds every widget from the scene.
func (p *Panel) Refresh() {
	if p.camera != nil {
		p.refreshWidgets(nil)
	}
}

// --- Scene event handlers ---

func (p *Panel) selectionChanged() {
	cam := p.scene.CameraFromSelection(p.scene.selection.Nodes)
	if cam == nil || cam == p.camera {
		return
	}
	p.camera = cam
	p.state.CreateEnabled = true
	p.state.CameraLabel = cam.Name
	p.refreshWidgets(nil)
}

func (p *Panel) deleteAll() {
	p.refreshing = true
	p.reset()
	p.refreshing = false
}

func (p *Panel) reset() {
	p.camera = nil
	p.lattice = nil
	p.lattices = nil
	p.names = nil
	p.state = PanelState{CameraLabel: "None", Current: -1}
}

func (p *Panel) nameChanged() {
	if p.camera == nil {
		return
	}
	lattices := p.scene.sortedLattices(p.camera)
	if len(lattices) == 0 {
		return
	}
	if p.latticeRenamed() {
		p.refreshing = true
		p.refreshCombo(lattices)
		selected := p.visibleLattice()
		p.setComboIndex(slices.Index(p.lattices, selected))
		p.setLattice(selected)
		p.refreshing = false
		return
	}
	p.refreshObjects()
	p.refreshInfluences()
}

// latticeRenamed reports whether a listed lattice no longer has the name it
// was listed under.
func (p *Panel) latticeRenamed() bool {
	for i, l := range p.lattices {
		if l.disposed || l.Name != p.names[i] {
			return true
		}
	}
	return false
}

func (p *Panel) undoRedo(chunk string) {
	if p.lattice != nil {
		if slices.Contains(objectListChunks, chunk) {
			p.refreshObjects()
		}
		if slices.Contains(influenceListChunks, chunk) {
			p.refreshInfluences()
		}
		if chunk == ChunkSetLatticeAttribute && !p.lattice.disposed {
			p.syncControls()
		}
	}
	if p.camera != nil && slices.Contains(latticeChunks, chunk) {
		p.refreshWidgets(nil)
	}
}

func (p *Panel) attributeChanged(e Event) {
	if p.lattice == nil || e.Node != p.lattice {
		return
	}
	l := p.lattice.Lattice
	switch e.Attribute {
	case AttrInterpolation:
		if !p.interpolationFromPanel {
			p.state.Interpolation = l.Interpolation
			p.state.MaxRecursionVisible = l.Interpolation == InterpolationBezier
		}
		p.interpolationFromPanel = false
	case AttrMaxRecursion:
		if !p.maxRecursionFromPanel {
			p.state.MaxRecursion = l.MaxRecursion
		}
		p.maxRecursionFromPanel = false
	}
}

// --- Widget refresh ---

func (p *Panel) refreshWidgets(selected *Node) {
	lattices := p.scene.sortedLattices(p.camera)
	has := len(lattices) > 0

	p.state.Objects = nil
	p.state.Influences = nil
	p.state.ControlsEnabled = has
	p.state.DeleteEnabled = has

	p.refreshing = true
	if has {
		p.refreshCombo(lattices)
		if selected == nil {
			selected = p.visibleLattice()
		}
		p.setComboIndex(slices.Index(p.lattices, selected))
		p.setLattice(selected)
	} else {
		p.lattices = nil
		p.names = nil
		p.state.Lattices = nil
		p.setComboIndex(-1)
		p.lattice = nil
	}
	p.refreshing = false
}

func (p *Panel) refreshCombo(lattices []*Node) {
	p.lattices = lattices
	p.names = make([]string, len(lattices))
	p.state.Lattices = make([]string, len(lattices))
	for i, l := range lattices {
		p.names[i] = l.Name
		p.state.Lattices[i] = l.Name
	}
}

// visibleLattice returns the first visible listed lattice, falling back to
// the first one.
func (p *Panel) visibleLattice() *Node {
	for _, l := range p.lattices {
		if l.Visible {
			return l
		}
	}
	if len(p.lattices) > 0 {
		return p.lattices[0]
	}
	return nil
}

// setComboIndex mirrors a combo box: changing the index fires the change
// handler, which ignores changes made while refreshing.
func (p *Panel) setComboIndex(i int) {
	if p.state.Current == i {
		return
	}
	p.state.Current = i
	p.latticeComboChanged(i)
}

func (p *Panel) latticeComboChanged(i int) {
	if p.refreshing || i < 0 || i >= len(p.lattices) {
		return
	}
	chosen := p.lattices[i]
	err := p.scene.Chunk(ChunkSelectLattice, func() error {
		for _, l := range p.lattices {
			l.SetVisible(false)
		}
		chosen.SetVisible(true)
		p.scene.Select(chosen)
		return nil
	})
	if err != nil {
		p.scene.log.Warn("lattice selection failed", zap.Error(err))
	}
	p.refreshWidgets(chosen)
}

func (p *Panel) setLattice(l *Node) {
	p.lattice = l
	if l == nil {
		return
	}
	p.syncControls()
	p.refreshObjects()
	p.refreshInfluences()
}

// syncControls reads the attribute controls back from the current lattice.
func (p *Panel) syncControls() {
	shape := p.lattice.Lattice
	p.state.Active = shape.Active != 0
	p.state.Interpolation = shape.Interpolation
	p.state.MaxRecursion = shape.MaxRecursion
	p.state.MaxRecursionMin, p.state.MaxRecursionMax = shape.MaxRecursionBounds()
	p.state.MaxRecursionVisible = shape.Interpolation == InterpolationBezier
}

func (p *Panel) refreshObjects() {
	p.state.Objects = nil
	if p.lattice == nil {
		return
	}
	for _, ao := range p.scene.AffectedObjects(p.lattice) {
		p.state.Objects = append(p.state.Objects, objectItem(ao.Deformer, ao.Object))
	}
}

func (p *Panel) refreshInfluences() {
	p.state.Influences = nil
	if p.lattice == nil {
		return
	}
	for _, a := range p.scene.InfluenceAreas(p.lattice) {
		p.state.Influences = append(p.state.Influences, influenceItem(a))
	}
}

func objectItem(deformer, obj *Node) PanelItem {
	return PanelItem{Label: obj.Name, Tooltip: obj.FullPath(), Node: obj, Deformer: deformer}
}

func influenceItem(area *Node) PanelItem {
	return PanelItem{Label: area.Name, Tooltip: area.FullPath(), Node: area}
}

// --- Actions ---

// SelectLattice makes the lattice at index i current, visible and selected.
func (p *Panel) SelectLattice(i int) {
	p.setComboIndex(i)
}

// CreateLattice creates a lattice on the panel's camera and makes it current.
func (p *Panel) CreateLattice(sDiv, tDiv int) (*Node, error) {
	if p.camera == nil {
		return nil, fmt.Errorf("create lattice: %w", ErrNotCamera)
	}
	l, err := p.scene.CreateCameraLattice(p.camera, sDiv, tDiv)
	p.refreshWidgets(l)
	return l, err
}

// DeleteLattice deletes the current lattice.
func (p *Panel) DeleteLattice() error {
	var err error
	if len(p.lattices) > 0 && p.state.Current >= 0 {
		err = p.scene.DeleteCameraLattice(p.lattices[p.state.Current])
	}
	if p.camera != nil {
		p.refreshWidgets(nil)
	}
	return err
}

// SetActive turns the current lattice on or off.
func (p *Panel) SetActive(on bool) error {
	if p.lattice == nil {
		return errNoPanelLattice
	}
	v := 0.0
	if on {
		v = 1
	}
	p.state.Active = on
	return p.scene.Chunk(ChunkSetLatticeAttribute, func() error {
		p.lattice.Lattice.SetActive(v)
		return nil
	})
}

// SetInterpolation sets the current lattice's interpolation.
func (p *Panel) SetInterpolation(i Interpolation) error {
	if p.lattice == nil {
		return errNoPanelLattice
	}
	l := p.lattice.Lattice
	p.state.Interpolation = i
	p.state.MaxRecursionVisible = i == InterpolationBezier
	if l.Interpolation == i {
		return nil
	}
	p.interpolationFromPanel = true
	return p.scene.Chunk(ChunkSetLatticeAttribute, func() error {
		l.SetInterpolation(i)
		return nil
	})
}

// SetMaxRecursion sets the current lattice's bezier window.
func (p *Panel) SetMaxRecursion(v int) error {
	if p.lattice == nil {
		return errNoPanelLattice
	}
	l := p.lattice.Lattice
	v = max(p.state.MaxRecursionMin, min(v, p.state.MaxRecursionMax))
	p.state.MaxRecursion = v
	if l.MaxRecursion == v {
		return nil
	}
	p.maxRecursionFromPanel = true
	return p.scene.Chunk(ChunkSetLatticeAttribute, func() error {
		l.SetMaxRecursion(v)
		return nil
	})
}

// AddObjects attaches objects to the current lattice and lists the new ones.
func (p *Panel) AddObjects(objects ...*Node) error {
	if p.lattice == nil {
		return errNoPanelLattice
	}
	if len(objects) == 0 {
		p.scene.log.Warn("please select mesh transforms and add them to the lattice")
		return nil
	}
	created, err := p.scene.AttachObjects(p.lattice, objects...)
	for _, d := range created {
		p.state.Objects = append(p.state.Objects, objectItem(d, d.Deformer.object))
	}
	return err
}

// AddSelectedObjects attaches the selected nodes to the current lattice.
func (p *Panel) AddSelectedObjects() error {
	return p.AddObjects(p.scene.selection.Nodes...)
}

// RemoveObjects detaches the listed objects at the given row indices.
func (p *Panel) RemoveObjects(rows ...int) error {
	if p.lattice == nil {
		return errNoPanelLattice
	}
	var deformers []*Node
	p.state.Objects = takeRows(p.state.Objects, rows, func(it PanelItem) {
		deformers = append(deformers, it.Deformer)
	})
	if len(deformers) == 0 {
		return nil
	}
	return p.scene.DetachObjects(deformers...)
}

// SelectObjects selects the listed objects at the given row indices.
func (p *Panel) SelectObjects(rows ...int) {
	p.scene.Select(pickRows(p.state.Objects, rows)...)
}

// CreateInfluence creates an influence area on the current lattice.
func (p *Panel) CreateInfluence() (*Node, error) {
	if p.lattice == nil {
		return nil, errNoPanelLattice
	}
	area, err := p.scene.CreateInfluenceArea(p.lattice)
	if err != nil {
		return nil, err
	}
	p.state.Influences = append(p.state.Influences, influenceItem(area))
	return area, nil
}

// AddInfluences attaches influence areas to the current lattice.
func (p *Panel) AddInfluences(areas ...*Node) error {
	if p.lattice == nil {
		return errNoPanelLattice
	}
	attached, err := p.scene.AttachInfluenceAreas(p.lattice, areas...)
	for _, a := range attached {
		p.state.Influences = append(p.state.Influences, influenceItem(a))
	}
	return err
}

// AddSelectedInfluences attaches the selected influence areas.
func (p *Panel) AddSelectedInfluences() error {
	var areas []*Node
	for _, n := range p.scene.selection.Nodes {
		if IsInfluenceArea(n) {
			areas = append(areas, n)
		}
	}
	return p.AddInfluences(areas...)
}

// RemoveInfluences detaches the listed influence areas at the given rows.
func (p *Panel) RemoveInfluences(rows ...int) error {
	if p.lattice == nil {
		return errNoPanelLattice
	}
	var areas []*Node
	p.state.Influences = takeRows(p.state.Influences, rows, func(it PanelItem) {
		areas = append(areas, it.Node)
	})
	if len(areas) == 0 {
		return nil
	}
	return p.scene.DetachInfluenceAreas(p.lattice, areas...)
}

// SelectInfluences selects the listed influence areas at the given rows.
func (p *Panel) SelectInfluences(rows ...int) {
	p.scene.Select(pickRows(p.state.Influences, rows)...)
}

// Point tools on the current lattice.

func (p *Panel) SelectAllPoints() error      { return p.withLattice(p.scene.SelectAllPoints) }
func (p *Panel) SelectEditedPoints() error   { return p.withLattice(p.scene.SelectEditedPoints) }
func (p *Panel) SelectAnimatedPoints() error { return p.withLattice(p.scene.SelectAnimatedPoints) }
func (p *Panel) SelectStaticEditedPoints() error {
	return p.withLattice(p.scene.SelectStaticEditedPoints)
}
func (p *Panel) InvertPointSelection() error { return p.withLattice(p.scene.InvertPointSelection) }
func (p *Panel) ResetSelectedPoints() error  { return p.withLattice(p.scene.ResetSelectedPoints) }
func (p *Panel) ResetAllPoints() error       { return p.withLattice(p.scene.ResetAllPoints) }

// KeySelectedPoints keys the selected points on axes at the scene time.
func (p *Panel) KeySelectedPoints(axes Axis) error {
	return p.withLattice(func(l *Node) error { return p.scene.KeySelectedPoints(l, axes) })
}

func (p *Panel) withLattice(fn func(*Node) error) error {
	if p.lattice == nil {
		return errNoPanelLattice
	}
	return fn(p.lattice)
}

// takeRows removes the items at rows, calling fn for each removed item.
func takeRows(items []PanelItem, rows []int, fn func(PanelItem)) []PanelItem {
	drop := make(map[int]bool, len(rows))
	for _, r := range rows {
		if r >= 0 && r < len(items) {
			drop[r] = true
		}
	}
	out := items[:0:0]
	for i, it := range items {
		if drop[i] {
			fn(it)
			continue
		}
		out = append(out, it)
	}
	return out
}

func pickRows(items []PanelItem, rows []int) []*Node {
	var out []*Node
	for _, r := range rows {
		if r >= 0 && r < len(items) {
			out = append(out, items[r].Node)
		}
	}
	return out
}
