package camlattice

import (
	"errors"
	"testing"
)

// panelRig returns a scene with one camera selected and a panel following it.
func panelRig(t *testing.T) (*Scene, *Node, *Panel) {
	t.Helper()
	s := NewScene()
	cam := mustCamera(t, s, "cam", DefaultCameraShape())
	p := NewPanel(s)
	t.Cleanup(p.Close)
	s.Select(cam)
	return s, cam, p
}

func TestPanelInitialState(t *testing.T) {
	s := NewScene()
	p := NewPanel(s)
	defer p.Close()
	st := p.State()
	if st.CameraLabel != "None" || st.Current != -1 {
		t.Errorf("state = %+v", st)
	}
	if st.CreateEnabled || st.DeleteEnabled || st.ControlsEnabled {
		t.Error("buttons should start disabled")
	}
	if _, err := p.CreateLattice(4, 4); !errors.Is(err, ErrNotCamera) {
		t.Errorf("err = %v, want ErrNotCamera", err)
	}
}

func TestPanelFollowsSelection(t *testing.T) {
	s, cam, p := panelRig(t)
	if p.Camera() != cam {
		t.Fatal("panel should follow the selected camera")
	}
	st := p.State()
	if st.CameraLabel != "cam" || !st.CreateEnabled {
		t.Errorf("state = %+v", st)
	}
	if st.DeleteEnabled || st.ControlsEnabled {
		t.Error("delete and controls need a lattice")
	}

	// selecting a lattice of another camera switches cameras
	other := mustCamera(t, s, "other", DefaultCameraShape())
	l := mustLattice(t, s, other, 5, 5)
	s.Select(l)
	if p.Camera() != other || p.Lattice() != l {
		t.Errorf("camera = %v, lattice = %v", p.Camera(), p.Lattice())
	}

	// selecting something unrelated keeps the camera
	s.Select(quadMesh(s, "m", -5))
	if p.Camera() != other {
		t.Error("panel should keep its camera")
	}
}

func TestPanelCreateLattice(t *testing.T) {
	s, _, p := panelRig(t)
	l, err := p.CreateLattice(6, 6)
	if err != nil {
		t.Fatal(err)
	}
	if p.Lattice() != l {
		t.Fatal("new lattice should be current")
	}
	st := p.State()
	if len(st.Lattices) != 1 || st.Lattices[0] != l.Name || st.Current != 0 {
		t.Errorf("lattices = %v, current = %d", st.Lattices, st.Current)
	}
	if !st.DeleteEnabled || !st.ControlsEnabled || !st.Active {
		t.Errorf("state = %+v", st)
	}
	if st.MaxRecursion != 3 || st.MaxRecursionMin != 1 || st.MaxRecursionMax != 4 {
		t.Errorf("recursion = %d in %d..%d", st.MaxRecursion, st.MaxRecursionMin, st.MaxRecursionMax)
	}
	if st.MaxRecursionVisible {
		t.Error("max recursion is only shown for bezier")
	}
	if s.UndoName() != ChunkCreateLattice {
		t.Errorf("UndoName = %q", s.UndoName())
	}

	if _, err := p.CreateLattice(2, 6); !errors.Is(err, ErrInvalidDivisions) {
		t.Errorf("err = %v, want ErrInvalidDivisions", err)
	}
	if p.Lattice() != l {
		t.Error("failed creation should keep the current lattice")
	}
}

func TestPanelSelectLattice(t *testing.T) {
	s, _, p := panelRig(t)
	l1, _ := p.CreateLattice(4, 4)
	l2, _ := p.CreateLattice(4, 4)
	if p.Lattice() != l2 || p.State().Current != 1 {
		t.Fatalf("current = %d", p.State().Current)
	}

	p.SelectLattice(0)
	if p.Lattice() != l1 {
		t.Fatal("SelectLattice should switch lattices")
	}
	if !l1.Visible || l2.Visible {
		t.Error("only the chosen lattice should be visible")
	}
	if got := s.Selection().Nodes; len(got) != 1 || got[0] != l1 {
		t.Error("chosen lattice should be selected")
	}
	if s.UndoName() != ChunkSelectLattice {
		t.Errorf("UndoName = %q", s.UndoName())
	}

	// undo refreshes the combo without recording a new chunk
	if _, err := s.Undo(); err != nil {
		t.Fatal(err)
	}
	if p.Lattice() != l2 || p.State().Current != 1 {
		t.Errorf("after undo lattice = %v, current = %d", p.Lattice(), p.State().Current)
	}
	if s.RedoName() != ChunkSelectLattice {
		t.Errorf("RedoName = %q, want %q", s.RedoName(), ChunkSelectLattice)
	}

	// selecting the current index again is a no-op
	p.SelectLattice(1)
	if s.RedoName() != ChunkSelectLattice {
		t.Error("re-selecting the current lattice should not record a chunk")
	}
}

func TestPanelDeleteLattice(t *testing.T) {
	s, _, p := panelRig(t)
	l1, _ := p.CreateLattice(4, 4)
	l2, _ := p.CreateLattice(4, 4)

	if err := p.DeleteLattice(); err != nil {
		t.Fatal(err)
	}
	if !l2.IsDisposed() {
		t.Error("current lattice should be deleted")
	}
	if p.Lattice() != l1 || !l1.Visible {
		t.Error("sibling should become current and visible")
	}
	if st := p.State(); len(st.Lattices) != 1 || st.Current != 0 {
		t.Errorf("state = %+v", st)
	}

	if _, err := s.Undo(); err != nil {
		t.Fatal(err)
	}
	if st := p.State(); len(st.Lattices) != 2 || p.Lattice() != l2 {
		t.Errorf("after undo lattices = %v, current lattice = %v", st.Lattices, p.Lattice())
	}

	if err := p.DeleteLattice(); err != nil {
		t.Fatal(err)
	}
	if err := p.DeleteLattice(); err != nil {
		t.Fatal(err)
	}
	st := p.State()
	if st.Current != -1 || st.DeleteEnabled || st.ControlsEnabled || p.Lattice() != nil {
		t.Errorf("state after deleting all = %+v", st)
	}
}

func TestPanelAttributeControls(t *testing.T) {
	s, _, p := panelRig(t)
	l, _ := p.CreateLattice(6, 6)

	if err := p.SetInterpolation(InterpolationBezier); err != nil {
		t.Fatal(err)
	}
	if l.Lattice.Interpolation != InterpolationBezier {
		t.Error("interpolation not applied")
	}
	if !p.State().MaxRecursionVisible {
		t.Error("max recursion should be shown for bezier")
	}
	if p.interpolationFromPanel {
		t.Error("echo flag should be consumed by the attribute event")
	}

	if err := p.SetMaxRecursion(100); err != nil {
		t.Fatal(err)
	}
	if l.Lattice.MaxRecursion != 4 || p.State().MaxRecursion != 4 {
		t.Errorf("maxRecursion = %d, want clamped 4", l.Lattice.MaxRecursion)
	}

	if err := p.SetActive(false); err != nil {
		t.Fatal(err)
	}
	if l.Lattice.Active != 0 || p.State().Active {
		t.Error("SetActive(false) not applied")
	}

	// undo brings the controls back in line with the lattice
	if _, err := s.Undo(); err != nil {
		t.Fatal(err)
	}
	if !p.State().Active {
		t.Error("undo should re-enable the active control")
	}
	s.Undo()
	s.Undo()
	st := p.State()
	if st.Interpolation != InterpolationLinear || st.MaxRecursionVisible || st.MaxRecursion != 3 {
		t.Errorf("controls after undo = %+v", st)
	}
}

func TestPanelSetSameValueSkipsChunk(t *testing.T) {
	s, _, p := panelRig(t)
	p.CreateLattice(4, 4)
	if err := p.SetInterpolation(InterpolationLinear); err != nil {
		t.Fatal(err)
	}
	if p.interpolationFromPanel {
		t.Error("flag should stay clear when nothing changes")
	}
	if s.UndoName() != ChunkCreateLattice {
		t.Errorf("UndoName = %q", s.UndoName())
	}
}

func TestPanelTracksExternalAttributeChanges(t *testing.T) {
	_, _, p := panelRig(t)
	l, _ := p.CreateLattice(6, 6)
	l.Lattice.SetInterpolation(InterpolationBezier)
	l.Lattice.SetMaxRecursion(2)
	st := p.State()
	if st.Interpolation != InterpolationBezier || !st.MaxRecursionVisible {
		t.Errorf("interpolation = %v, visible = %v", st.Interpolation, st.MaxRecursionVisible)
	}
	if st.MaxRecursion != 2 {
		t.Errorf("maxRecursion = %d, want 2", st.MaxRecursion)
	}
}

func TestPanelRename(t *testing.T) {
	s, _, p := panelRig(t)
	l, _ := p.CreateLattice(4, 4)
	m := quadMesh(s, "m", -5)
	if err := p.AddObjects(m); err != nil {
		t.Fatal(err)
	}

	if err := s.Rename(l, "faceLattice"); err != nil {
		t.Fatal(err)
	}
	if st := p.State(); len(st.Lattices) != 1 || st.Lattices[0] != "faceLattice" {
		t.Errorf("lattices = %v", st.Lattices)
	}
	if p.Lattice() != l {
		t.Error("renamed lattice should stay current")
	}

	if err := s.Rename(m, "hero"); err != nil {
		t.Fatal(err)
	}
	if objs := p.State().Objects; len(objs) != 1 || objs[0].Label != "hero" || objs[0].Tooltip != "|hero" {
		t.Errorf("objects = %+v", objs)
	}
}

func TestPanelObjects(t *testing.T) {
	s, logs := observedScene()
	cam := mustCamera(t, s, "cam", DefaultCameraShape())
	p := NewPanel(s)
	defer p.Close()
	s.Select(cam)

	if err := p.AddObjects(quadMesh(s, "x", -5)); !errors.Is(err, errNoPanelLattice) {
		t.Errorf("err = %v, want errNoPanelLattice", err)
	}
	p.CreateLattice(4, 4)

	if err := p.AddObjects(); err != nil {
		t.Fatal(err)
	}
	if logs.FilterMessage("please select mesh transforms and add them to the lattice").Len() != 1 {
		t.Error("expected a warning for an empty add")
	}

	a := quadMesh(s, "a", -5)
	b := quadMesh(s, "b", -6)
	s.Select(a, b)
	if err := p.AddSelectedObjects(); err != nil {
		t.Fatal(err)
	}
	objs := p.State().Objects
	if len(objs) != 2 || objs[0].Node != a || objs[1].Node != b || objs[0].Deformer == nil {
		t.Fatalf("objects = %+v", objs)
	}
	da := objs[0].Deformer

	if err := p.RemoveObjects(0, 7); err != nil {
		t.Fatal(err)
	}
	if objs := p.State().Objects; len(objs) != 1 || objs[0].Node != b {
		t.Errorf("objects after remove = %+v", objs)
	}
	if !da.IsDisposed() {
		t.Error("removed row's deformer should be deleted")
	}

	if _, err := s.Undo(); err != nil {
		t.Fatal(err)
	}
	if n := len(p.State().Objects); n != 2 {
		t.Errorf("%d objects after undo, want 2", n)
	}

	p.SelectObjects(1)
	if got := s.Selection().Nodes; len(got) != 1 || got[0] != b {
		t.Errorf("selection = %v", got)
	}
}

func TestPanelInfluences(t *testing.T) {
	s, _, p := panelRig(t)
	l, _ := p.CreateLattice(4, 4)
	area, err := p.CreateInfluence()
	if err != nil {
		t.Fatal(err)
	}
	if p.Lattice() != l {
		t.Fatal("selecting the new area should not change the current lattice")
	}
	if inf := p.State().Influences; len(inf) != 1 || inf[0].Node != area {
		t.Fatalf("influences = %+v", inf)
	}

	if err := p.RemoveInfluences(0); err != nil {
		t.Fatal(err)
	}
	if len(p.State().Influences) != 0 || len(area.Influence.Lattices()) != 0 {
		t.Error("area should be detached")
	}

	s.Select(area)
	if err := p.AddSelectedInfluences(); err != nil {
		t.Fatal(err)
	}
	if len(p.State().Influences) != 1 {
		t.Error("area should be listed again")
	}
	if err := p.AddInfluences(area); err != nil {
		t.Fatal(err)
	}
	if len(p.State().Influences) != 1 {
		t.Error("attaching twice should not duplicate the row")
	}

	p.SelectInfluences(0)
	if got := s.Selection().Nodes; len(got) != 1 || got[0] != area {
		t.Errorf("selection = %v", got)
	}

	if err := p.RemoveInfluences(0); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Undo(); err != nil {
		t.Fatal(err)
	}
	if len(p.State().Influences) != 1 {
		t.Error("undo should list the area again")
	}
}

func TestPanelDeleteAllResets(t *testing.T) {
	s, _, p := panelRig(t)
	p.CreateLattice(4, 4)
	s.Clear()
	st := p.State()
	if p.Camera() != nil || p.Lattice() != nil || st.CameraLabel != "None" || st.Current != -1 {
		t.Errorf("state after clear = %+v", st)
	}
	if err := p.SelectAllPoints(); !errors.Is(err, errNoPanelLattice) {
		t.Errorf("err = %v, want errNoPanelLattice", err)
	}
}

func TestPanelPointTools(t *testing.T) {
	s, _, p := panelRig(t)
	l, _ := p.CreateLattice(3, 3)
	if err := p.SelectAllPoints(); err != nil {
		t.Fatal(err)
	}
	if n := len(s.Selection().Points); n != 9 {
		t.Errorf("%d points selected, want 9", n)
	}
	if err := s.MovePoints(l, []int{4}, [2]float64{0.1, 0}); err != nil {
		t.Fatal(err)
	}
	if err := p.SelectEditedPoints(); err != nil {
		t.Fatal(err)
	}
	if err := p.KeySelectedPoints(AxisX); err != nil {
		t.Fatal(err)
	}
	if !l.Lattice.Animated(4) {
		t.Error("point 4 should be keyed")
	}
	if err := p.ResetAllPoints(); err != nil {
		t.Fatal(err)
	}
	if len(l.Lattice.EditedPoints()) != 0 {
		t.Error("points should be reset")
	}
}

func TestPanelClose(t *testing.T) {
	s := NewScene()
	cam := mustCamera(t, s, "cam", DefaultCameraShape())
	p := NewPanel(s)
	p.Close()
	s.Select(cam)
	if p.Camera() != nil {
		t.Error("closed panel should not follow the selection")
	}
}

func TestPanelStateIsCopy(t *testing.T) {
	_, _, p := panelRig(t)
	p.CreateLattice(4, 4)
	st := p.State()
	st.Lattices[0] = "changed"
	if p.State().Lattices[0] == "changed" {
		t.Error("State should return a copy")
	}
}
