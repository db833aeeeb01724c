package camlattice

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// LocalMatrix returns the node's local matrix.
//
// Composition order:
//
//	Scale -> RotateX -> RotateY -> RotateZ -> Translate
//
// A lattice ignores its own channels: its camera's translator drives scaleX,
// scaleY and translateZ, and scaleZ is pinned at zero.
func (n *Node) LocalMatrix() Mat4 {
	if n.Type == NodeTypeLattice && n.Lattice != nil {
		if cam := n.Lattice.camera; cam != nil && cam.Camera != nil {
			lt := cam.Camera.LatticeTransform()
			return mgl64.Translate3D(0, 0, lt.TranslateZ).Mul4(mgl64.Scale3D(lt.ScaleX, lt.ScaleY, 0))
		}
	}
	rx := mgl64.DegToRad(n.Rotate.X())
	ry := mgl64.DegToRad(n.Rotate.Y())
	rz := mgl64.DegToRad(n.Rotate.Z())
	rot := mgl64.HomogRotate3DZ(rz).Mul4(mgl64.HomogRotate3DY(ry)).Mul4(mgl64.HomogRotate3DX(rx))
	return mgl64.Translate3D(n.Translate.X(), n.Translate.Y(), n.Translate.Z()).
		Mul4(rot).
		Mul4(mgl64.Scale3D(n.Scale.X(), n.Scale.Y(), n.Scale.Z()))
}

// WorldMatrix returns the product of all local matrices from the root down to n.
func (n *Node) WorldMatrix() Mat4 {
	m := n.LocalMatrix()
	for p := n.Parent; p != nil; p = p.Parent {
		m = p.LocalMatrix().Mul4(m)
	}
	return m
}

// WorldPosition returns the translation column of the world matrix.
func (n *Node) WorldPosition() Vec3 {
	return n.WorldMatrix().Col(3).Vec3()
}

// FullPath returns the "|"-separated path from the root's first child down to n.
func (n *Node) FullPath() string {
	var parts []string
	for p := n; p != nil && p.Parent != nil; p = p.Parent {
		parts = append(parts, p.Name)
	}
	if len(parts) == 0 {
		return "|" + n.Name
	}
	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteByte('|')
		b.WriteString(parts[i])
	}
	return b.String()
}

// transformPoint applies a 4x4 matrix to a point (w = 1).
func transformPoint(m Mat4, p Vec3) Vec3 {
	return mgl64.TransformCoordinate(p, m)
}

// --- Transform property setters ---

// SetTranslate sets the node's local translation.
// Fails with ErrLockedChannel if any translate channel is locked.
func (n *Node) SetTranslate(v Vec3) error {
	if err := n.checkLocked(ChannelsTranslate, v, n.Translate); err != nil {
		return err
	}
	n.Translate = v
	n.touch()
	return nil
}

// SetRotate sets the node's local Euler rotation in degrees.
func (n *Node) SetRotate(v Vec3) error {
	if err := n.checkLocked(ChannelsRotate, v, n.Rotate); err != nil {
		return err
	}
	n.Rotate = v
	n.touch()
	return nil
}

// SetScale sets the node's local scale.
func (n *Node) SetScale(v Vec3) error {
	if err := n.checkLocked(ChannelsScale, v, n.Scale); err != nil {
		return err
	}
	n.Scale = v
	n.touch()
	return nil
}

// checkLocked fails if a locked channel of the group would change value.
// first is the X channel of the group; Y and Z follow it in the mask.
func (n *Node) checkLocked(group Channel, next, cur Vec3) error {
	first := group & -group
	for i := 0; i < 3; i++ {
		ch := first << i
		if n.locked&ch != 0 && next[i] != cur[i] {
			return fmt.Errorf("%s: %w", n.Name, ErrLockedChannel)
		}
	}
	return nil
}
