package camlattice

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// MeshShape is a deformable polygon mesh. Points are object-space rest
// positions; Deformed holds the result of the last Scene.Evaluate.
type MeshShape struct {
	points   []Vec3
	Faces    [][]int
	deformed []Vec3

	owner *Node
}

// Points returns the rest points. The returned slice MUST NOT be mutated.
func (m *MeshShape) Points() []Vec3 {
	return m.points
}

// SetPoints replaces the rest points.
func (m *MeshShape) SetPoints(pts []Vec3) {
	m.points = pts
	m.deformed = nil
	if m.owner != nil {
		m.owner.touch()
		if s := m.owner.scene; s != nil {
			s.publish(Event{Kind: EventAttributeChanged, Node: m.owner, Attribute: AttrMeshPoints})
		}
	}
}

// Deformed returns the points produced by the last evaluation, or the rest
// points if the mesh has not been evaluated since its inputs last changed.
func (m *MeshShape) Deformed() []Vec3 {
	if m.deformed == nil {
		return m.points
	}
	return m.deformed
}

// Evaluate runs every deformer on mesh in creation order, each one reading
// the previous one's output, and stores the result on the mesh shape.
func (s *Scene) Evaluate(ctx context.Context, mesh *Node) ([]Vec3, error) {
	if mesh == nil || mesh.Mesh == nil {
		return nil, ErrNotDeformable
	}
	var t0 time.Time
	if s.debug {
		t0 = time.Now()
	}

	pts := mesh.Mesh.points
	stack := s.deformersOfObject(mesh)
	for _, dn := range stack {
		in, err := dn.Deformer.input(pts, s.log)
		if err != nil {
			return nil, err
		}
		out, err := Deform(ctx, in, s.workers)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %s: %w", mesh.Name, dn.Name, err)
		}
		pts = out
	}
	mesh.Mesh.deformed = pts

	if s.debug {
		s.debugLog(evalStats{
			mesh:      mesh.Name,
			points:    len(pts),
			deformers: len(stack),
			elapsed:   time.Since(t0),
		})
	}
	return pts, nil
}

// EvaluateAll evaluates every mesh in the scene. All meshes are attempted;
// failures are combined into the returned error.
func (s *Scene) EvaluateAll(ctx context.Context) error {
	var errs error
	for _, n := range s.Nodes(NodeTypeMesh) {
		if _, err := s.Evaluate(ctx, n); err != nil {
			s.log.Warn("evaluation failed", zap.String("mesh", n.Name), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
