package camlattice

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// influenceOffset is the distance in front of the camera at which a new
// influence area is placed.
const influenceOffset = 3.0

// IsLattice reports whether n is a camera lattice.
func IsLattice(n *Node) bool {
	return n != nil && n.Type == NodeTypeLattice && n.Lattice != nil
}

// IsCamera reports whether n carries a camera shape.
func IsCamera(n *Node) bool {
	return n != nil && n.Camera != nil
}

// IsDeformable reports whether n carries a deformable shape.
func IsDeformable(n *Node) bool {
	return n != nil && n.Mesh != nil
}

// IsInfluenceArea reports whether n is an influence area locator.
func IsInfluenceArea(n *Node) bool {
	return n != nil && n.Influence != nil
}

// --- Queries ---

// CameraOf returns the single camera linked to lattice.
func (s *Scene) CameraOf(lattice *Node) (*Node, error) {
	if !IsLattice(lattice) {
		return nil, ErrNotLattice
	}
	cam := lattice.Lattice.camera
	if cam == nil || cam.disposed || !IsCamera(cam) {
		return nil, fmt.Errorf("%s: %w", lattice.Name, ErrCameraLookup)
	}
	return cam, nil
}

// LatticesOf returns the lattices linked to camera in creation order.
func (s *Scene) LatticesOf(camera *Node) []*Node {
	var out []*Node
	for _, n := range s.Nodes(NodeTypeLattice) {
		if n.Lattice.camera == camera {
			out = append(out, n)
		}
	}
	return out
}

// DeformersOf returns the deformers driven by lattice in creation order.
func (s *Scene) DeformersOf(lattice *Node) []*Node {
	var out []*Node
	for _, n := range s.Nodes(NodeTypeDeformer) {
		if n.Deformer.lattice == lattice {
			out = append(out, n)
		}
	}
	return out
}

// DeformerFor returns the deformer binding obj to lattice, or nil.
func (s *Scene) DeformerFor(lattice, obj *Node) *Node {
	for _, d := range s.DeformersOf(lattice) {
		if d.Deformer.object == obj {
			return d
		}
	}
	return nil
}

// AffectedObject pairs a deformer with the object it deforms.
type AffectedObject struct {
	Deformer *Node
	Object   *Node
}

// AffectedObjects returns the objects deformed by lattice.
func (s *Scene) AffectedObjects(lattice *Node) []AffectedObject {
	var out []AffectedObject
	for _, d := range s.DeformersOf(lattice) {
		if obj := d.Deformer.object; obj != nil {
			out = append(out, AffectedObject{Deformer: d, Object: obj})
		}
	}
	return out
}

// InfluenceAreas returns the influence areas linked to lattice in creation
// order.
func (s *Scene) InfluenceAreas(lattice *Node) []*Node {
	var out []*Node
	for _, n := range s.Nodes(NodeTypeInfluence) {
		if n.Influence.linkIndex(lattice) != -1 {
			out = append(out, n)
		}
	}
	return out
}

// CameraFromSelection returns the first camera in nodes, or the camera of
// the first lattice in nodes. It returns nil when neither is present.
func (s *Scene) CameraFromSelection(nodes []*Node) *Node {
	for _, n := range nodes {
		if IsCamera(n) {
			return n
		}
		if IsLattice(n) {
			if cam, err := s.CameraOf(n); err == nil {
				return cam
			}
		}
	}
	return nil
}

// uniqueLatticeName returns cameraLattice<N> for the smallest unused N >= 1.
func (s *Scene) uniqueLatticeName() string {
	for i := 1; ; i++ {
		name := LatticeBaseName + strconv.Itoa(i)
		if s.byName[name] == nil {
			return name
		}
	}
}

// --- Operations ---

// CreateCameraLattice creates a lattice with the given divisions under
// camera, hides the camera's other lattices and selects the new one.
func (s *Scene) CreateCameraLattice(camera *Node, sDiv, tDiv int) (*Node, error) {
	var lattice *Node
	err := s.Chunk(ChunkCreateLattice, func() error {
		if !IsCamera(camera) {
			return fmt.Errorf("create lattice: %w", ErrNotCamera)
		}
		shape, err := newLatticeShape(sDiv, tDiv)
		if err != nil {
			return fmt.Errorf("create lattice: %w", err)
		}
		shape.camera = camera

		for _, other := range s.LatticesOf(camera) {
			other.SetVisible(false)
		}

		n := newNode(s.uniqueLatticeName(), NodeTypeLattice)
		n.Lattice = shape
		n.Scale = Vec3{1, 1, 0}
		n.locked = ChannelsAll
		lattice = s.addNode(n, camera)
		s.Select(lattice)
		s.log.Debug("created camera lattice",
			zap.String("lattice", lattice.Name),
			zap.String("camera", camera.Name),
			zap.Int("sDivisions", sDiv),
			zap.Int("tDivisions", tDiv))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lattice, nil
}

// DeleteCameraLattice deletes lattice and its deformers, then makes another
// lattice of the same camera visible.
func (s *Scene) DeleteCameraLattice(lattice *Node) error {
	return s.Chunk(ChunkDeleteLattice, func() error {
		if !IsLattice(lattice) {
			return fmt.Errorf("delete lattice: %w", ErrNotLattice)
		}
		siblings := s.sortedLattices(lattice.Lattice.camera)
		index := slices.Index(siblings, lattice)

		s.Delete(s.DeformersOf(lattice)...)
		s.Delete(lattice)

		if len(siblings) > 1 {
			next := 0
			if index == 0 {
				next = 1
			}
			siblings[next].SetVisible(true)
		}
		return nil
	})
}

// sortedLattices returns the camera's lattices ordered by full path, the
// order the panel lists them in.
func (s *Scene) sortedLattices(camera *Node) []*Node {
	if camera == nil {
		return nil
	}
	out := s.LatticesOf(camera)
	slices.SortFunc(out, func(a, b *Node) int {
		return cmp.Compare(a.FullPath(), b.FullPath())
	})
	return out
}

// AttachObjects creates a deformer for each object on lattice and connects
// every influence area already on the lattice. Lattices, non-deformable
// objects and objects already on the lattice are skipped with a warning.
// It returns the new deformers.
func (s *Scene) AttachObjects(lattice *Node, objects ...*Node) ([]*Node, error) {
	var created []*Node
	err := s.Chunk(ChunkAddObject, func() error {
		if !IsLattice(lattice) {
			return fmt.Errorf("attach objects: %w", ErrNotLattice)
		}
		areas := s.InfluenceAreas(lattice)
		cameraChecked := false

		var errs error
		for _, obj := range objects {
			switch {
			case obj == nil || obj.disposed:
				errs = multierr.Append(errs, fmt.Errorf("attach objects: %w", ErrNodeNotFound))
				continue
			case IsLattice(obj):
				s.log.Warn("cannot add camera lattices to the list of the affected objects",
					zap.String("object", obj.Name))
				continue
			case !IsDeformable(obj):
				s.log.Warn("not a deformable object", zap.String("object", obj.Name))
				continue
			case s.DeformerFor(lattice, obj) != nil:
				s.log.Warn("this object is already affected by this lattice",
					zap.String("object", obj.Name), zap.String("lattice", lattice.Name))
				continue
			}

			if !cameraChecked {
				if _, err := s.CameraOf(lattice); err != nil {
					return multierr.Append(errs, fmt.Errorf("attach objects: %w", err))
				}
				cameraChecked = true
			}
			n := newNode(TypeDeformer+"1", NodeTypeDeformer)
			n.Deformer = newDeformer(obj, lattice)
			s.addNode(n, nil)
			for _, area := range areas {
				s.applyInfluenceToDeformer(n, area)
			}
			created = append(created, n)
		}
		return errs
	})
	return created, err
}

// DetachObjects deletes the given deformers.
func (s *Scene) DetachObjects(deformers ...*Node) error {
	return s.Chunk(ChunkRemoveObject, func() error {
		var errs error
		var valid []*Node
		for _, d := range deformers {
			if d == nil || d.Deformer == nil {
				errs = multierr.Append(errs, fmt.Errorf("detach objects: %w", ErrNotDeformer))
				continue
			}
			valid = append(valid, d)
		}
		s.Delete(valid...)
		return errs
	})
}

// CreateInfluenceArea creates an influence area three units in front of the
// lattice's camera, attaches it to lattice and selects it.
func (s *Scene) CreateInfluenceArea(lattice *Node) (*Node, error) {
	var area *Node
	err := s.Chunk(ChunkCreateInfluence, func() error {
		cam, err := s.CameraOf(lattice)
		if err != nil {
			return fmt.Errorf("create influence area: %w", err)
		}
		m := cam.WorldMatrix()
		pos := m.Col(3).Vec3().Add(m.Col(2).Vec3().Mul(-influenceOffset))

		n := newNode(TypeInfluence, NodeTypeInfluence)
		n.Influence = newInfluenceArea()
		n.Translate = pos
		area = s.addNode(n, nil)
		s.attachInfluence(lattice, area)
		s.Select(area)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return area, nil
}

// AttachInfluenceAreas links areas to lattice and to all of its deformers.
// Areas already on the lattice are skipped. It returns the newly attached
// areas.
func (s *Scene) AttachInfluenceAreas(lattice *Node, areas ...*Node) ([]*Node, error) {
	var attached []*Node
	err := s.Chunk(ChunkAddInfluence, func() error {
		if !IsLattice(lattice) {
			return fmt.Errorf("attach influence areas: %w", ErrNotLattice)
		}
		var errs error
		for _, a := range areas {
			if !IsInfluenceArea(a) {
				errs = multierr.Append(errs, fmt.Errorf("attach influence areas: %w", ErrNotInfluence))
				continue
			}
			if s.attachInfluence(lattice, a) {
				attached = append(attached, a)
			}
		}
		return errs
	})
	return attached, err
}

// DetachInfluenceAreas unlinks areas from lattice and clears their slots on
// every deformer of the lattice. The locators are kept.
func (s *Scene) DetachInfluenceAreas(lattice *Node, areas ...*Node) error {
	return s.Chunk(ChunkRemoveInfluence, func() error {
		if !IsLattice(lattice) {
			return fmt.Errorf("detach influence areas: %w", ErrNotLattice)
		}
		var errs error
		for _, a := range areas {
			if !IsInfluenceArea(a) {
				errs = multierr.Append(errs, fmt.Errorf("detach influence areas: %w", ErrNotInfluence))
				continue
			}
			idx := a.Influence.linkIndex(lattice)
			if idx == -1 {
				continue
			}
			delete(a.Influence.links, idx)
			a.touch()
			for _, d := range s.DeformersOf(lattice) {
				if !d.Deformer.disconnectInfluence(a) {
					s.log.Warn("something is wrong with your influence area to deformer connections",
						zap.String("deformer", d.Name), zap.String("area", a.Name))
				}
			}
		}
		return errs
	})
}

// attachInfluence links area to lattice at the next free index and applies
// it to every deformer of the lattice. It returns false if already linked.
func (s *Scene) attachInfluence(lattice, area *Node) bool {
	inf := area.Influence
	if inf.linkIndex(lattice) != -1 {
		return false
	}
	inf.links[nextIndex(inf.links)] = lattice
	area.touch()
	for _, d := range s.DeformersOf(lattice) {
		s.applyInfluenceToDeformer(d, area)
	}
	return true
}

func (s *Scene) applyInfluenceToDeformer(deformer, area *Node) {
	if !deformer.Deformer.connectInfluence(area) {
		s.log.Warn("influence area already applied",
			zap.String("deformer", deformer.Name), zap.String("area", area.Name))
	}
}
