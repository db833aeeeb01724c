package camlattice

import (
	"fmt"
	"maps"
	"slices"

	"go.uber.org/zap"
)

// Deformer binds one deformable object to one lattice. Its influence slots
// are sparse: influenceMatrix[i] and influenceFalloff[i] name the influence
// area supplying that slot's world matrix and falloff.
type Deformer struct {
	object  *Node // deformerMessage
	lattice *Node // ldMessage

	matrices map[int]*Node
	falloffs map[int]*Node

	owner *Node
}

func newDeformer(object, lattice *Node) *Deformer {
	return &Deformer{
		object:   object,
		lattice:  lattice,
		matrices: make(map[int]*Node),
		falloffs: make(map[int]*Node),
	}
}

// Object returns the deformed object.
func (d *Deformer) Object() *Node { return d.object }

// Lattice returns the driving lattice.
func (d *Deformer) Lattice() *Node { return d.lattice }

// InfluenceSlots returns the logical indices of the falloff slots in
// ascending order.
func (d *Deformer) InfluenceSlots() []int {
	return slices.Sorted(maps.Keys(d.falloffs))
}

// InfluenceAt returns the areas connected at logical index i.
func (d *Deformer) InfluenceAt(i int) (matrix, falloff *Node) {
	return d.matrices[i], d.falloffs[i]
}

// falloffIndex returns the slot whose falloff comes from area, or -1.
func (d *Deformer) falloffIndex(area *Node) int {
	for _, idx := range d.InfluenceSlots() {
		if d.falloffs[idx] == area {
			return idx
		}
	}
	return -1
}

// connectInfluence fills the next free slot with area. It returns false
// when the area is already connected.
func (d *Deformer) connectInfluence(area *Node) bool {
	if d.falloffIndex(area) != -1 {
		return false
	}
	idx := nextIndex(d.matrices)
	d.matrices[idx] = area
	d.falloffs[idx] = area
	d.owner.touch()
	return true
}

// disconnectInfluence clears both arrays at the slot holding area.
func (d *Deformer) disconnectInfluence(area *Node) bool {
	idx := d.falloffIndex(area)
	if idx == -1 {
		return false
	}
	delete(d.falloffs, idx)
	delete(d.matrices, idx)
	d.owner.touch()
	return true
}

// influencers builds the evaluation-time influencers in slot order. A
// mismatched pair of arrays is reported and yields no influencers.
func (d *Deformer) influencers(log *zap.Logger) []Influencer {
	if len(d.falloffs) != len(d.matrices) {
		log.Warn("something is wrong with your influence area connection. Ignoring influence areas.",
			zap.String("deformer", d.owner.Name))
		return nil
	}
	var out []Influencer
	for _, idx := range d.InfluenceSlots() {
		falloff, matrix := d.falloffs[idx], d.matrices[idx]
		if falloff == nil || matrix == nil || falloff.Influence == nil {
			continue
		}
		out = append(out, NewInfluencer(matrix.WorldMatrix(), falloff.Influence.Falloff))
	}
	return out
}

// input gathers the deformer's live inputs for the given points.
func (d *Deformer) input(points []Vec3, log *zap.Logger) (DeformInput, error) {
	lat := d.lattice
	if lat == nil || lat.Lattice == nil {
		return DeformInput{}, fmt.Errorf("deformer %s: %w", d.owner.Name, ErrNotLattice)
	}
	cam := lat.Lattice.camera
	if cam == nil || cam.Camera == nil {
		return DeformInput{}, fmt.Errorf("deformer %s: %w", d.owner.Name, ErrCameraLookup)
	}
	shape := lat.Lattice
	return DeformInput{
		Points:        points,
		LatticePoints: shape.Points(),
		SDivisions:    shape.SDivisions,
		TDivisions:    shape.TDivisions,
		Interpolation: shape.Interpolation,
		MaxRecursion:  shape.MaxRecursion,
		Envelope:      shape.Active,
		GateOffset:    shape.GateOffset,
		ObjectMatrix:  d.object.WorldMatrix(),
		CameraMatrix:  cam.WorldMatrix(),
		Camera:        *cam.Camera,
		Influencers:   d.influencers(log),
	}, nil
}
