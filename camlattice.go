package camlattice

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 is the 3D vector type used for positions and offsets throughout the API.
type Vec3 = mgl64.Vec3

// Mat4 is a column-major 4x4 matrix. Points are column vectors: p' = M * p.
type Mat4 = mgl64.Mat4

// Host attribute and node-type names used by tcCameraLattice rigs. They form
// the persisted schema of the scene file.
const (
	TypeDeformer  = "tcCameraLatticeDeformer"
	TypeInfluence = "tcCameraLatticeInfluenceAreaLocator"

	LatticeBaseName = "cameraLattice"

	AttrActive        = "lActive"
	AttrCamera        = "camera"
	AttrInterpolation = "interpolation"
	AttrSDivisions    = "sDivisions"
	AttrTDivisions    = "tDivisions"
	AttrMaxRecursion  = "maxRecursion"
	AttrGateOffset    = "gateOffset"
	AttrFalloff       = "falloff"
	AttrVisibility    = "visibility"
	AttrPoints        = "pnts"
	AttrKeyframes     = "keyframes"
	AttrMeshPoints    = "points"
)

// Undo chunk names. The panel inspects these after undo/redo to decide which
// lists need refreshing.
const (
	ChunkCreateLattice         = "tcCreateCameraLattice"
	ChunkDeleteLattice         = "tcDeleteCameraLattice"
	ChunkSelectLattice         = "tcCameraLatticeSelection"
	ChunkAddObject             = "tcAddObjectToCameraLattice"
	ChunkRemoveObject          = "tcRemoveObjectFromCameraLattice"
	ChunkCreateInfluence       = "tcCreateInfluenceAreaToCameraLattice"
	ChunkAddInfluence          = "tcAddInfluenceAreaToCameraLattice"
	ChunkRemoveInfluence       = "tcRemoveInfluenceAreaFromCameraLattice"
	ChunkSelectAllPoints       = "tcSelectAllCameraLatticePoints"
	ChunkSelectEditedPoints    = "tcSelectAllCameraLatticeEditedPoints"
	ChunkSelectAnimatedPoints  = "tcSelectAllCameraLatticeAnimatedPoints"
	ChunkInvertPointSelection  = "tcInvertCameraLatticePointSelection"
	ChunkResetSelectedPoints   = "tcResetSelectedCameraLatticePoints"
	ChunkResetPoints           = "tcResetCameraLatticePoints"
	ChunkKeyPointsX            = "tcKeyCameraLatticePointsOnX"
	ChunkKeyPointsY            = "tcKeyCameraLatticePointsOnY"
	ChunkKeyPointsXY           = "tcKeyCameraLatticePointsOnXY"
	ChunkSetLatticeAttribute   = "tcSetCameraLatticeAttribute"
	ChunkSetInfluenceAttribute = "tcSetInfluenceAreaAttribute"
)

// Division limits enforced by the lattice creation dialog.
const (
	MinDivisions     = 3
	MaxDivisions     = 100
	DefaultDivisions = 10
)

var (
	ErrInvalidCamera    = errors.New("camlattice: invalid camera parameters")
	ErrInvalidDivisions = errors.New("camlattice: invalid lattice divisions")
	ErrCameraLookup     = errors.New("camlattice: could not find camera shape from lattice")
	ErrNotDeformable    = errors.New("camlattice: object is not deformable")
	ErrLatticeMismatch  = errors.New("camlattice: lattice point count does not match divisions")
	ErrNotLattice       = errors.New("camlattice: node is not a camera lattice")
	ErrNotCamera        = errors.New("camlattice: node is not a camera")
	ErrNotInfluence     = errors.New("camlattice: node is not an influence area")
	ErrNotDeformer      = errors.New("camlattice: node is not a camera lattice deformer")
	ErrNodeNotFound     = errors.New("camlattice: node not found")
	ErrNoLatticePoints  = errors.New("camlattice: no lattice points selected")
	ErrNothingToUndo    = errors.New("camlattice: nothing to undo")
	ErrNothingToRedo    = errors.New("camlattice: nothing to redo")
	ErrNameInUse        = errors.New("camlattice: name already in use")
	ErrLockedChannel    = errors.New("camlattice: transform channel is locked")
)

// NodeType distinguishes what a Node carries.
type NodeType uint8

const (
	NodeTypeTransform NodeType = iota // group node with no shape
	NodeTypeCamera                    // carries a CameraShape
	NodeTypeMesh                      // carries a deformable MeshShape
	NodeTypeLattice                   // carries a LatticeShape, parented under a camera
	NodeTypeDeformer                  // dependency node binding a mesh to a lattice
	NodeTypeInfluence                 // falloff locator
)

var nodeTypeNames = [...]string{"transform", "camera", "mesh", "lattice", "deformer", "influence"}

// String returns the scene-file name of the node type.
func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return "unknown"
}

// ParseNodeType is the inverse of NodeType.String.
func ParseNodeType(s string) (NodeType, bool) {
	for i, name := range nodeTypeNames {
		if name == s {
			return NodeType(i), true
		}
	}
	return 0, false
}

// Interpolation selects how mesh points are mapped through the lattice grid.
type Interpolation uint8

const (
	InterpolationLinear Interpolation = iota // bilinear blend of the enclosing cell
	InterpolationBezier                      // Bernstein blend over a window of cells
)

// String returns the enum field name used by the lattice attribute.
func (i Interpolation) String() string {
	if i == InterpolationBezier {
		return "bezier"
	}
	return "linear"
}

// ParseInterpolation parses "linear" or "bezier".
func ParseInterpolation(s string) (Interpolation, bool) {
	switch s {
	case "linear", "Linear":
		return InterpolationLinear, true
	case "bezier", "Bezier":
		return InterpolationBezier, true
	}
	return 0, false
}

// Axis is a bitmask of lattice point offset axes.
type Axis uint8

const (
	AxisX  Axis = 1 << iota // pntx
	AxisY                   // pnty
	AxisXY = AxisX | AxisY
)

// String returns "x", "y" or "xy".
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisXY:
		return "xy"
	}
	return ""
}

// ParseAxis is the inverse of Axis.String.
func ParseAxis(s string) (Axis, bool) {
	switch s {
	case "x", "X":
		return AxisX, true
	case "y", "Y":
		return AxisY, true
	case "xy", "XY":
		return AxisXY, true
	}
	return 0, false
}
