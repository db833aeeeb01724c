package camlattice

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func roundTrip(t *testing.T, s *Scene) *Scene {
	t.Helper()
	var buf bytes.Buffer
	if err := s.SaveScene(&buf); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadScene(&buf)
	if err != nil {
		t.Fatalf("LoadScene: %v\n%s", err, buf.String())
	}
	return loaded
}

func TestSceneFileRoundTrip(t *testing.T) {
	s := NewScene()
	shape := DefaultCameraShape()
	shape.FocalLength = 50
	cam := mustCamera(t, s, "shotCam", shape)
	cam.Translate = Vec3{1, 2, 3}
	cam.Rotate = Vec3{0, 45, 0}
	l := mustLattice(t, s, cam, 4, 5)
	l2 := mustLattice(t, s, cam, 3, 3)
	m := quadMesh(s, "m", -5)
	created, err := s.AttachObjects(l, m)
	if err != nil {
		t.Fatal(err)
	}
	a1, _ := s.CreateInfluenceArea(l)
	a2, _ := s.CreateInfluenceArea(l)
	a1.Influence.SetFalloff(0.25)
	// leave a hole at index 0 of the deformer slots
	if err := s.DetachInfluenceAreas(l, a1); err != nil {
		t.Fatal(err)
	}

	l.Lattice.SetInterpolation(InterpolationBezier)
	l.Lattice.SetGateOffset(0.2)
	l.Lattice.SetActive(0.5)
	if err := s.MovePoints(l, []int{3, 17}, [2]float64{0.1, -0.2}); err != nil {
		t.Fatal(err)
	}
	c := &Curve{}
	c.SetKeyEase(0, 0, "inOutSine")
	c.SetKey(24, 0.3)
	l.Lattice.SetCurve(6, AxisY, c)
	s.SetTime(12)

	got := roundTrip(t, s)

	gcam := got.Node("shotCam")
	if gcam == nil || gcam.Camera == nil {
		t.Fatal("camera missing")
	}
	if gcam.UUID != cam.UUID {
		t.Error("UUID not preserved")
	}
	if *gcam.Camera != *cam.Camera {
		t.Errorf("camera = %+v, want %+v", *gcam.Camera, *cam.Camera)
	}
	assertVecNear(t, "translate", gcam.Translate, cam.Translate, 1e-12)
	assertVecNear(t, "rotate", gcam.Rotate, cam.Rotate, 1e-12)

	gl := got.Node(l.Name)
	if gl == nil || gl.Parent != gcam || gl.Lattice.Camera() != gcam {
		t.Fatal("lattice not parented and linked to its camera")
	}
	if gl.locked != ChannelsAll {
		t.Errorf("locked = %v, want all", gl.locked)
	}
	if gl.Visible != l.Visible || got.Node(l2.Name).Visible != l2.Visible {
		t.Error("visibility not preserved")
	}
	gs := gl.Lattice
	if gs.Interpolation != InterpolationBezier || gs.GateOffset != 0.2 || gs.Active != 0.5 {
		t.Errorf("attributes = %v %v %v", gs.Interpolation, gs.GateOffset, gs.Active)
	}
	if gs.SDivisions != 4 || gs.TDivisions != 5 || gs.MaxRecursion != l.Lattice.MaxRecursion {
		t.Errorf("divisions = %dx%d rec %d", gs.SDivisions, gs.TDivisions, gs.MaxRecursion)
	}
	for i := 0; i < gs.NumPoints(); i++ {
		if gs.Offset(i) != l.Lattice.Offset(i) {
			t.Errorf("offset %d = %v, want %v", i, gs.Offset(i), l.Lattice.Offset(i))
		}
	}
	keys := gs.Curve(6, AxisY).Keys()
	if len(keys) != 2 || keys[0].Ease != "inOutSine" || keys[1].Value != 0.3 {
		t.Errorf("keys = %+v", keys)
	}
	if got.Time() != 12 {
		t.Errorf("time = %v, want 12", got.Time())
	}

	gd := got.Node(created[0].Name)
	if gd == nil || gd.Deformer.Object() != got.Node("m") || gd.Deformer.Lattice() != gl {
		t.Fatal("deformer links not restored")
	}
	if slots := gd.Deformer.InfluenceSlots(); len(slots) != 1 || slots[0] != 1 {
		t.Errorf("slots = %v, want [1]", slots)
	}
	assertAligned(t, gd.Deformer, got.Node(a2.Name))

	ga1 := got.Node(a1.Name)
	if ga1.Influence.Falloff != 0.25 || len(ga1.Influence.Lattices()) != 0 {
		t.Error("detached area should keep its falloff and have no links")
	}
	if areas := got.InfluenceAreas(gl); len(areas) != 1 || areas[0].Name != a2.Name {
		t.Errorf("areas = %v", areas)
	}

	if got.UndoName() != "" {
		t.Error("loaded scene should have an empty undo stack")
	}
}

func TestSceneFileOrphanLattice(t *testing.T) {
	s := NewScene()
	cam := mustCamera(t, s, "cam", DefaultCameraShape())
	l := mustLattice(t, s, cam, 3, 3)
	// a lattice whose camera link was broken
	l.RemoveFromParent()
	s.Root().AddChild(l)
	l.Lattice.camera = nil

	got := roundTrip(t, s)
	gl := got.Node(l.Name)
	if gl == nil || gl.Lattice.Camera() != nil {
		t.Error("lattice should load without a camera link")
	}
	if _, err := got.CameraOf(gl); !errors.Is(err, ErrCameraLookup) {
		t.Errorf("err = %v, want ErrCameraLookup", err)
	}
}

func TestSceneFileOnDisk(t *testing.T) {
	s := NewScene()
	cam := mustCamera(t, s, "cam", DefaultCameraShape())
	mustLattice(t, s, cam, 3, 3)
	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := s.SaveSceneFile(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"version: 1", "lActive: 1", "camera: cam", "sDivisions: 3"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("file missing %q:\n%s", want, data)
		}
	}
	got, err := LoadSceneFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Nodes(NodeTypeLattice)) != 1 {
		t.Error("lattice not loaded")
	}
	if _, err := LoadSceneFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestLoadSceneErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"bad yaml", "nodes: [", nil},
		{"future version", "version: 9\nnodes: []\n", nil},
		{"unknown type", "version: 1\nnodes:\n  - {name: a, type: sprite}\n", nil},
		{"duplicate name", "version: 1\nnodes:\n  - {name: a, type: transform}\n  - {name: a, type: transform}\n", ErrNameInUse},
		{"missing parent", "version: 1\nnodes:\n  - {name: a, type: transform, parent: nope}\n", ErrNodeNotFound},
		{"bad camera", "version: 1\nnodes:\n  - {name: c, type: camera, camera: {focalLength: 0, horizontalFilmAperture: 1, verticalFilmAperture: 1, nearClipPlane: 0.1, orthographicWidth: 1}}\n", ErrInvalidCamera},
		{"missing camera", "version: 1\nnodes:\n  - {name: c, type: camera}\n", nil},
		{"bad divisions", "version: 1\nnodes:\n  - {name: l, type: lattice, lattice: {sDivisions: 2, tDivisions: 3, interpolation: linear}}\n", ErrInvalidDivisions},
		{"bad interpolation", "version: 1\nnodes:\n  - {name: l, type: lattice, lattice: {sDivisions: 3, tDivisions: 3, interpolation: cubic}}\n", nil},
		{"point out of range", "version: 1\nnodes:\n  - {name: l, type: lattice, lattice: {sDivisions: 3, tDivisions: 3, interpolation: linear, pnts: {9: [0, 0]}}}\n", nil},
		{"bad curve axis", "version: 1\nnodes:\n  - {name: l, type: lattice, lattice: {sDivisions: 3, tDivisions: 3, interpolation: linear, keyframes: [{point: 0, axis: xy, keys: []}]}}\n", nil},
		{"dangling link", "version: 1\nnodes:\n  - {name: l, type: lattice, lattice: {camera: ghost, sDivisions: 3, tDivisions: 3, interpolation: linear}}\n", ErrNodeNotFound},
		{"link to non-camera", "version: 1\nnodes:\n  - {name: t, type: transform}\n  - {name: l, type: lattice, lattice: {camera: t, sDivisions: 3, tDivisions: 3, interpolation: linear}}\n", ErrNotCamera},
		{"deformer without attributes", "version: 1\nnodes:\n  - {name: d, type: deformer}\n", nil},
		{"influence slot links a mesh", "version: 1\nnodes:\n  - {name: cam, type: camera, camera: {nearClipPlane: 0.1, focalLength: 35, horizontalFilmAperture: 1.417, verticalFilmAperture: 0.945, orthographicWidth: 30}}\n  - {name: l, type: lattice, lattice: {camera: cam, sDivisions: 3, tDivisions: 3, interpolation: linear}}\n  - {name: m, type: mesh, mesh: {points: [], faces: []}}\n  - {name: a, type: influence, influence: {falloff: 0.5}}\n  - {name: d, type: deformer, deformer: {deformerMessage: m, ldMessage: l, influenceMatrix: {0: m}, influenceFalloff: {0: a}}}\n", ErrNotInfluence},
		{"influence slots mismatch", "version: 1\nnodes:\n  - {name: cam, type: camera, camera: {nearClipPlane: 0.1, focalLength: 35, horizontalFilmAperture: 1.417, verticalFilmAperture: 0.945, orthographicWidth: 30}}\n  - {name: l, type: lattice, lattice: {camera: cam, sDivisions: 3, tDivisions: 3, interpolation: linear}}\n  - {name: m, type: mesh, mesh: {points: [], faces: []}}\n  - {name: a, type: influence, influence: {falloff: 0.5}}\n  - {name: d, type: deformer, deformer: {deformerMessage: m, ldMessage: l, influenceMatrix: {0: a}, influenceFalloff: {1: a}}}\n", nil},
		{"influence falloff missing", "version: 1\nnodes:\n  - {name: cam, type: camera, camera: {nearClipPlane: 0.1, focalLength: 35, horizontalFilmAperture: 1.417, verticalFilmAperture: 0.945, orthographicWidth: 30}}\n  - {name: l, type: lattice, lattice: {camera: cam, sDivisions: 3, tDivisions: 3, interpolation: linear}}\n  - {name: m, type: mesh, mesh: {points: [], faces: []}}\n  - {name: a, type: influence, influence: {falloff: 0.5}}\n  - {name: d, type: deformer, deformer: {deformerMessage: m, ldMessage: l, influenceMatrix: {0: a}}}\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScene(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadSceneClampsAttributes(t *testing.T) {
	data := `version: 1
nodes:
  - name: cam
    type: camera
    camera: {nearClipPlane: 0.1, focalLength: 35, horizontalFilmAperture: 1.417, verticalFilmAperture: 0.945, orthographicWidth: 30}
  - name: l
    type: lattice
    parent: cam
    lattice: {lActive: 3, camera: cam, interpolation: bezier, sDivisions: 6, tDivisions: 6, maxRecursion: 50, gateOffset: -1}
  - name: a
    type: influence
    influence: {falloff: 7}
`
	s, err := LoadScene(strings.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	l := s.Node("l").Lattice
	if l.Active != 1 || l.GateOffset != 0 || l.MaxRecursion != 4 {
		t.Errorf("active %v gate %v rec %d", l.Active, l.GateOffset, l.MaxRecursion)
	}
	if f := s.Node("a").Influence.Falloff; f != 1 {
		t.Errorf("falloff = %v, want 1", f)
	}
}
