package camlattice

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/multierr"
)

func TestSetPointsResetsDeformed(t *testing.T) {
	s := NewScene()
	m := quadMesh(s, "m", -5)
	m.Mesh.deformed = []Vec3{{9, 9, 9}, {9, 9, 9}, {9, 9, 9}, {9, 9, 9}}

	var attrs []string
	s.Subscribe(EventAttributeChanged, func(e Event) { attrs = append(attrs, e.Attribute) })
	pts := []Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	m.Mesh.SetPoints(pts)

	if got := m.Mesh.Deformed(); got[2] != pts[2] {
		t.Errorf("Deformed()[2] = %v, want rest point %v", got[2], pts[2])
	}
	if len(attrs) != 1 || attrs[0] != AttrMeshPoints {
		t.Errorf("events = %v, want one %q", attrs, AttrMeshPoints)
	}
}

func TestEvaluateWithoutDeformers(t *testing.T) {
	s := NewScene()
	m := quadMesh(s, "m", -5)
	got, err := s.Evaluate(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range m.Mesh.Points() {
		assertVecNear(t, "point", got[i], p, 1e-12)
	}
}

func TestEvaluateNotDeformable(t *testing.T) {
	s := NewScene()
	cam := mustCamera(t, s, "cam", DefaultCameraShape())
	if _, err := s.Evaluate(context.Background(), cam); !errors.Is(err, ErrNotDeformable) {
		t.Errorf("err = %v, want ErrNotDeformable", err)
	}
	if _, err := s.Evaluate(context.Background(), nil); !errors.Is(err, ErrNotDeformable) {
		t.Errorf("err = %v, want ErrNotDeformable", err)
	}
}

func TestEvaluateAllCombinesErrors(t *testing.T) {
	s, logs := observedScene()
	cam := mustCamera(t, s, "cam", orthoCamera())
	l := mustLattice(t, s, cam, 4, 4)
	a := quadMesh(s, "a", -5)
	b := quadMesh(s, "b", -5)
	ok := quadMesh(s, "ok", -5)
	if _, err := s.AttachObjects(l, a, b); err != nil {
		t.Fatal(err)
	}
	l.Lattice.camera = nil

	err := s.EvaluateAll(context.Background())
	if !errors.Is(err, ErrCameraLookup) {
		t.Fatalf("err = %v, want ErrCameraLookup", err)
	}
	if n := len(multierr.Errors(err)); n != 2 {
		t.Errorf("%d combined errors, want 2", n)
	}
	if n := logs.FilterMessage("evaluation failed").Len(); n != 2 {
		t.Errorf("%d warnings, want 2", n)
	}
	if ok.Mesh.deformed == nil {
		t.Error("the healthy mesh should still be evaluated")
	}
}
