package camlattice

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Default lattice attribute values.
const (
	DefaultActive     = 1.0
	DefaultGateOffset = 0.1
)

// pointCurves holds the animation curves of one lattice point.
type pointCurves struct {
	X, Y *Curve
}

// LatticeShape is the control grid of a camera lattice. Points live on a
// unit plane in lattice object space; point (s, t) has index s + t*SDivisions.
type LatticeShape struct {
	Active        float64 // lActive, drives each deformer's envelope
	Interpolation Interpolation
	SDivisions    int
	TDivisions    int
	MaxRecursion  int
	GateOffset    float64

	offsets []mgl64.Vec2 // pnts[i].pntx / pnty; pntz is locked at 0
	curves  map[int]*pointCurves
	camera  *Node

	owner *Node
}

// newLatticeShape returns a shape with the creation defaults for the given
// divisions.
func newLatticeShape(sDiv, tDiv int) (*LatticeShape, error) {
	if err := ValidateDivisions(sDiv, tDiv); err != nil {
		return nil, err
	}
	return &LatticeShape{
		Active:        DefaultActive,
		Interpolation: InterpolationLinear,
		SDivisions:    sDiv,
		TDivisions:    tDiv,
		MaxRecursion:  DefaultMaxRecursion(sDiv, tDiv),
		GateOffset:    DefaultGateOffset,
		offsets:       make([]mgl64.Vec2, sDiv*tDiv),
		curves:        make(map[int]*pointCurves),
	}, nil
}

// ValidateDivisions checks divisions against the creation dialog limits.
func ValidateDivisions(sDiv, tDiv int) error {
	if sDiv < MinDivisions || sDiv > MaxDivisions || tDiv < MinDivisions || tDiv > MaxDivisions {
		return fmt.Errorf("divisions %dx%d outside %d..%d: %w",
			sDiv, tDiv, MinDivisions, MaxDivisions, ErrInvalidDivisions)
	}
	return nil
}

// DefaultMaxRecursion is min(4, max(s, t)/2).
func DefaultMaxRecursion(sDiv, tDiv int) int {
	return min(4, max(sDiv, tDiv)/2)
}

// MaxRecursionBounds returns the inclusive range of the maxRecursion attribute.
func (l *LatticeShape) MaxRecursionBounds() (lo, hi int) {
	return 1, max(l.SDivisions, l.TDivisions) - 2
}

// NumPoints returns SDivisions * TDivisions.
func (l *LatticeShape) NumPoints() int {
	return l.SDivisions * l.TDivisions
}

// Camera returns the camera node linked through the lattice's camera
// attribute, or nil.
func (l *LatticeShape) Camera() *Node {
	return l.camera
}

// RestPoint returns the undeformed position of point i.
func (l *LatticeShape) RestPoint(i int) Vec3 {
	s := i % l.SDivisions
	t := i / l.SDivisions
	return Vec3{
		float64(s)/float64(l.SDivisions-1) - 0.5,
		float64(t)/float64(l.TDivisions-1) - 0.5,
		0,
	}
}

// Points returns the rest grid plus per-point offsets in lattice object space.
func (l *LatticeShape) Points() []Vec3 {
	out := make([]Vec3, l.NumPoints())
	for i := range out {
		p := l.RestPoint(i)
		if i < len(l.offsets) {
			p[0] += l.offsets[i].X()
			p[1] += l.offsets[i].Y()
		}
		out[i] = p
	}
	return out
}

// Offset returns the pntx/pnty offset of point i.
func (l *LatticeShape) Offset(i int) mgl64.Vec2 {
	return l.offsets[i]
}

// SetOffset sets the pntx/pnty offset of point i.
func (l *LatticeShape) SetOffset(i int, off mgl64.Vec2) {
	if l.offsets[i] == off {
		return
	}
	l.offsets[i] = off
	l.changed(AttrPoints)
}

// SetActive sets lActive, clamped to 0..1.
func (l *LatticeShape) SetActive(v float64) {
	v = mgl64.Clamp(v, 0, 1)
	if l.Active == v {
		return
	}
	l.Active = v
	l.changed(AttrActive)
}

// SetInterpolation sets the interpolation enum.
func (l *LatticeShape) SetInterpolation(i Interpolation) {
	if l.Interpolation == i {
		return
	}
	l.Interpolation = i
	l.changed(AttrInterpolation)
}

// SetMaxRecursion sets maxRecursion, clamped to MaxRecursionBounds.
func (l *LatticeShape) SetMaxRecursion(v int) {
	lo, hi := l.MaxRecursionBounds()
	v = max(lo, min(v, hi))
	if l.MaxRecursion == v {
		return
	}
	l.MaxRecursion = v
	l.changed(AttrMaxRecursion)
}

// SetGateOffset sets gateOffset, clamped to 0..1.
func (l *LatticeShape) SetGateOffset(v float64) {
	v = mgl64.Clamp(v, 0, 1)
	if l.GateOffset == v {
		return
	}
	l.GateOffset = v
	l.changed(AttrGateOffset)
}

// changed marks the owning scene dirty and publishes an attribute event.
func (l *LatticeShape) changed(attr string) {
	if l.owner == nil {
		return
	}
	l.owner.touch()
	if s := l.owner.scene; s != nil {
		s.publish(Event{Kind: EventAttributeChanged, Node: l.owner, Attribute: attr})
	}
}
