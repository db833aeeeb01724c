package camlattice

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// editedTolerance is the offset beyond which a point counts as edited.
const editedTolerance = 1e-4

// Edited reports whether point i is offset from its rest position on X or Y.
func (l *LatticeShape) Edited(i int) bool {
	off := l.offsets[i]
	return math.Abs(off.X()) > editedTolerance || math.Abs(off.Y()) > editedTolerance
}

// EditedPoints returns the indices of edited points.
func (l *LatticeShape) EditedPoints() []int {
	return l.filterPoints(l.Edited)
}

// AnimatedPoints returns the indices of points with a curve on X or Y.
func (l *LatticeShape) AnimatedPoints() []int {
	return l.filterPoints(l.Animated)
}

// StaticEditedPoints returns edited points that are not animated.
func (l *LatticeShape) StaticEditedPoints() []int {
	return l.filterPoints(func(i int) bool { return l.Edited(i) && !l.Animated(i) })
}

func (l *LatticeShape) filterPoints(keep func(int) bool) []int {
	var out []int
	for i := 0; i < l.NumPoints(); i++ {
		if keep(i) {
			out = append(out, i)
		}
	}
	return out
}

func allPoints(l *LatticeShape) []int {
	return l.filterPoints(func(int) bool { return true })
}

// pointOp runs fn for lattice inside a chunk after checking the node.
func (s *Scene) pointOp(chunk string, lattice *Node, fn func(l *LatticeShape) error) error {
	if !IsLattice(lattice) {
		return fmt.Errorf("%s: %w", chunk, ErrNotLattice)
	}
	return s.Chunk(chunk, func() error { return fn(lattice.Lattice) })
}

// SelectAllPoints selects every point of lattice.
func (s *Scene) SelectAllPoints(lattice *Node) error {
	return s.pointOp(ChunkSelectAllPoints, lattice, func(l *LatticeShape) error {
		return s.SelectPoints(lattice, allPoints(l))
	})
}

// SelectEditedPoints selects the points offset from rest.
func (s *Scene) SelectEditedPoints(lattice *Node) error {
	return s.pointOp(ChunkSelectEditedPoints, lattice, func(l *LatticeShape) error {
		return s.SelectPoints(lattice, l.EditedPoints())
	})
}

// SelectStaticEditedPoints selects the edited points that are not animated.
func (s *Scene) SelectStaticEditedPoints(lattice *Node) error {
	return s.pointOp(ChunkSelectEditedPoints, lattice, func(l *LatticeShape) error {
		return s.SelectPoints(lattice, l.StaticEditedPoints())
	})
}

// SelectAnimatedPoints selects the points with animation curves.
func (s *Scene) SelectAnimatedPoints(lattice *Node) error {
	return s.pointOp(ChunkSelectAnimatedPoints, lattice, func(l *LatticeShape) error {
		return s.SelectPoints(lattice, l.AnimatedPoints())
	})
}

// InvertPointSelection selects the points of lattice that are not selected.
// With nothing selected it selects all points.
func (s *Scene) InvertPointSelection(lattice *Node) error {
	if s.selection.Empty() {
		return s.SelectAllPoints(lattice)
	}
	selected, err := s.selectedPointsOf(lattice)
	if err != nil {
		return fmt.Errorf("cannot invert selection: %w", err)
	}
	return s.pointOp(ChunkInvertPointSelection, lattice, func(l *LatticeShape) error {
		picked := make(map[int]bool, len(selected))
		for _, i := range selected {
			picked[i] = true
		}
		return s.SelectPoints(lattice, l.filterPoints(func(i int) bool { return !picked[i] }))
	})
}

// ResetSelectedPoints zeroes the offsets of the selected points.
func (s *Scene) ResetSelectedPoints(lattice *Node) error {
	selected, err := s.selectedPointsOf(lattice)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return nil
	}
	return s.pointOp(ChunkResetSelectedPoints, lattice, func(l *LatticeShape) error {
		for _, i := range selected {
			l.SetOffset(i, mgl64.Vec2{})
		}
		return nil
	})
}

// ResetAllPoints zeroes every offset of lattice.
func (s *Scene) ResetAllPoints(lattice *Node) error {
	return s.pointOp(ChunkResetPoints, lattice, func(l *LatticeShape) error {
		for i := 0; i < l.NumPoints(); i++ {
			l.SetOffset(i, mgl64.Vec2{})
		}
		return nil
	})
}

// KeySelectedPoints keys the selected points' current offsets at the scene
// time on the given axes.
func (s *Scene) KeySelectedPoints(lattice *Node, axes Axis) error {
	selected, err := s.selectedPointsOf(lattice)
	if err != nil {
		return fmt.Errorf("cannot key points: %w", err)
	}
	if len(selected) == 0 {
		return nil
	}
	var chunk string
	switch axes {
	case AxisX:
		chunk = ChunkKeyPointsX
	case AxisY:
		chunk = ChunkKeyPointsY
	case AxisXY:
		chunk = ChunkKeyPointsXY
	default:
		return fmt.Errorf("key points: invalid axis %d", axes)
	}
	return s.pointOp(chunk, lattice, func(l *LatticeShape) error {
		for _, i := range selected {
			l.KeyPoint(i, axes, s.time)
		}
		return nil
	})
}

// MovePoints adds delta to the offsets of the given points.
func (s *Scene) MovePoints(lattice *Node, points []int, delta mgl64.Vec2) error {
	return s.pointOp(ChunkSetLatticeAttribute, lattice, func(l *LatticeShape) error {
		for _, i := range points {
			if i < 0 || i >= l.NumPoints() {
				return fmt.Errorf("move points: index %d outside 0..%d", i, l.NumPoints()-1)
			}
			l.SetOffset(i, l.offsets[i].Add(delta))
		}
		return nil
	})
}
