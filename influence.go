package camlattice

import (
	"maps"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultFalloff is the falloff of a newly created influence area.
const DefaultFalloff = 0.5

// InfluenceArea is a falloff locator. Inside its unit sphere it restricts
// lattice deformation to a local region; the outer Falloff fraction of the
// radius blends linearly to zero.
type InfluenceArea struct {
	Falloff float64

	// locatorMessage: logical index -> lattice node.
	links map[int]*Node

	owner *Node
}

func newInfluenceArea() *InfluenceArea {
	return &InfluenceArea{Falloff: DefaultFalloff, links: make(map[int]*Node)}
}

// SetFalloff sets the falloff, clamped to 0..1.
func (a *InfluenceArea) SetFalloff(v float64) {
	v = mgl64.Clamp(v, 0, 1)
	if a.Falloff == v {
		return
	}
	a.Falloff = v
	if a.owner != nil {
		a.owner.touch()
		if s := a.owner.scene; s != nil {
			s.publish(Event{Kind: EventAttributeChanged, Node: a.owner, Attribute: AttrFalloff})
		}
	}
}

// InnerRadius is the radius of the fully weighted core as drawn in the
// viewport. The outer sphere always has radius 1.
func (a *InfluenceArea) InnerRadius() float64 {
	return 1 - mgl64.Clamp(a.Falloff, 0.02, 0.98)
}

// Lattices returns the linked lattices ordered by logical index.
func (a *InfluenceArea) Lattices() []*Node {
	out := make([]*Node, 0, len(a.links))
	for _, idx := range slices.Sorted(maps.Keys(a.links)) {
		out = append(out, a.links[idx])
	}
	return out
}

// linkIndex returns the logical index linking lattice, or -1.
func (a *InfluenceArea) linkIndex(lattice *Node) int {
	for idx, l := range a.links {
		if l == lattice {
			return idx
		}
	}
	return -1
}

// nextIndex returns one past the highest used logical index, or 0.
func nextIndex[V any](m map[int]V) int {
	next := 0
	for idx := range m {
		if idx >= next {
			next = idx + 1
		}
	}
	return next
}

// Influencer is the evaluation-time form of an influence area.
type Influencer struct {
	Falloff       float64
	InvMatrix     Mat4
	Pos           Vec3
	MaxAxisLength float64
}

// NewInfluencer prepares an influencer from the area's world matrix.
func NewInfluencer(world Mat4, falloff float64) Influencer {
	longest := 0.0
	for c := 0; c < 3; c++ {
		longest = max(longest, world.Col(c).Vec3().Len())
	}
	return Influencer{
		Falloff:       falloff,
		InvMatrix:     world.Inv(),
		Pos:           world.Col(3).Vec3(),
		MaxAxisLength: longest,
	}
}

// influenceWeight accumulates the weight of world point w over all
// influencers. A point within any core returns 1.
func influenceWeight(w Vec3, influencers []Influencer) float64 {
	total := 0.0
	for i := range influencers {
		inf := &influencers[i]
		if w.Sub(inf.Pos).Len() > inf.MaxAxisLength {
			continue
		}
		// the locator radius is 1 in its local space
		d := transformPoint(inf.InvMatrix, w).Len()
		if d < 1 {
			if d <= 1e-4 || inf.Falloff < 1e-4 || d < 1-inf.Falloff {
				total = 1
			} else {
				total += 1 - (d-(1-inf.Falloff))/inf.Falloff
			}
		}
		if total >= 0.9999 {
			return 1
		}
	}
	return total
}
