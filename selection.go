package camlattice

import (
	"fmt"
	"slices"
)

// Selection is the active selection: whole nodes, or points of one lattice.
type Selection struct {
	Nodes   []*Node
	Lattice *Node // owner of Points
	Points  []int // ascending point indices
}

// Empty reports whether nothing is selected.
func (sel Selection) Empty() bool {
	return len(sel.Nodes) == 0 && len(sel.Points) == 0
}

func (sel Selection) clone() Selection {
	return Selection{
		Nodes:   slices.Clone(sel.Nodes),
		Lattice: sel.Lattice,
		Points:  slices.Clone(sel.Points),
	}
}

// Selection returns a copy of the current selection.
func (s *Scene) Selection() Selection {
	return s.selection.clone()
}

// Select replaces the selection with nodes.
func (s *Scene) Select(nodes ...*Node) {
	s.setSelection(Selection{Nodes: slices.Clone(nodes)})
}

// SelectAdd appends nodes not already selected. Any point selection is dropped.
func (s *Scene) SelectAdd(nodes ...*Node) {
	next := Selection{Nodes: slices.Clone(s.selection.Nodes)}
	for _, n := range nodes {
		if !slices.Contains(next.Nodes, n) {
			next.Nodes = append(next.Nodes, n)
		}
	}
	s.setSelection(next)
}

// ClearSelection empties the selection.
func (s *Scene) ClearSelection() {
	s.setSelection(Selection{})
}

// SelectPoints replaces the selection with the given points of lattice.
// Indices are deduplicated and sorted.
func (s *Scene) SelectPoints(lattice *Node, points []int) error {
	if !IsLattice(lattice) {
		return fmt.Errorf("select points: %w", ErrNotLattice)
	}
	n := lattice.Lattice.NumPoints()
	pts := make([]int, 0, len(points))
	for _, p := range points {
		if p < 0 || p >= n {
			return fmt.Errorf("select points: index %d outside 0..%d", p, n-1)
		}
		pts = append(pts, p)
	}
	slices.Sort(pts)
	pts = slices.Compact(pts)
	if len(pts) == 0 {
		s.setSelection(Selection{})
		return nil
	}
	s.setSelection(Selection{Lattice: lattice, Points: pts})
	return nil
}

// selectedPointsOf returns the selected points of lattice. An empty
// selection yields nil; a selection of anything else fails with
// ErrNoLatticePoints.
func (s *Scene) selectedPointsOf(lattice *Node) ([]int, error) {
	sel := s.selection
	if sel.Empty() {
		return nil, nil
	}
	if sel.Lattice != lattice || len(sel.Points) == 0 {
		return nil, ErrNoLatticePoints
	}
	return slices.Clone(sel.Points), nil
}

func (s *Scene) setSelection(next Selection) {
	if selectionEqual(s.selection, next) {
		return
	}
	s.selection = next
	s.touch()
	s.publish(Event{Kind: EventSelectionChanged})
}

// dropFromSelection removes deleted nodes and their points.
func (s *Scene) dropFromSelection(gone map[*Node]bool) {
	next := s.selection.clone()
	next.Nodes = slices.DeleteFunc(next.Nodes, func(n *Node) bool { return gone[n] })
	if next.Lattice != nil && gone[next.Lattice] {
		next.Lattice = nil
		next.Points = nil
	}
	s.setSelection(next)
}

func selectionEqual(a, b Selection) bool {
	return a.Lattice == b.Lattice && slices.Equal(a.Nodes, b.Nodes) && slices.Equal(a.Points, b.Points)
}
