package preview

import (
	"testing"

	"github.com/phanxgames/camlattice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orthoRig(t *testing.T) (*camlattice.Scene, *camlattice.Node, *camlattice.Node) {
	t.Helper()
	s := camlattice.NewScene()
	shape := camlattice.DefaultCameraShape()
	shape.Orthographic = true
	shape.OrthographicWidth = 10
	cam, err := s.CreateCamera("cam", shape)
	require.NoError(t, err)
	cam.Translate = camlattice.Vec3{0, 0, 5}
	l, err := s.CreateCameraLattice(cam, 3, 3)
	require.NoError(t, err)
	return s, cam, l
}

func TestProjectCenter(t *testing.T) {
	_, cam, _ := orthoRig(t)
	p := NewProjector(cam, View{Width: 200, Height: 100})
	x, y, ok := p.Project(camlattice.Vec3{0, 0, -10})
	require.True(t, ok)
	assert.InDelta(t, 100, x, 1e-9)
	assert.InDelta(t, 50, y, 1e-9)

	// +Y in world is up on screen
	_, y, _ = p.Project(camlattice.Vec3{0, 2.5, 0})
	assert.InDelta(t, 25, y, 1e-9)
}

func TestProjectPerspectiveBehindCamera(t *testing.T) {
	s := camlattice.NewScene()
	cam, err := s.CreateCamera("cam", camlattice.DefaultCameraShape())
	require.NoError(t, err)
	p := NewProjector(cam, View{Width: 100, Height: 100})

	_, _, ok := p.Project(camlattice.Vec3{0, 0, 1})
	assert.False(t, ok, "point behind the camera")
	_, _, ok = p.Project(camlattice.Vec3{0, 0, 0})
	assert.False(t, ok, "point on the camera plane")

	// the gate edge at any depth lands on the viewport edge
	h, _ := cam.Camera.FilmFrame()
	x, _, ok := p.Project(camlattice.Vec3{h / 2 * 7, 0, -7})
	require.True(t, ok)
	assert.InDelta(t, 100, x, 1e-9)
}

func TestLatticeGridCoversGate(t *testing.T) {
	_, cam, l := orthoRig(t)
	p := NewProjector(cam, View{Width: 100, Height: 100})
	segs := p.LatticeGrid(l)
	// 3x3 grid: 2 segments per row and column, 3 rows and 3 columns
	require.Len(t, segs, 12)
	first := segs[0]
	assert.InDelta(t, 0, first.X0, 1e-9)
	assert.InDelta(t, 100, first.Y0, 1e-9)
	assert.InDelta(t, 50, first.X1, 1e-9)
}

func TestLatticeGridFollowsOffsets(t *testing.T) {
	s, cam, l := orthoRig(t)
	require.NoError(t, s.MovePoints(l, []int{0}, [2]float64{0.1, 0}))
	p := NewProjector(cam, View{Width: 100, Height: 100})
	segs := p.LatticeGrid(l)
	assert.InDelta(t, 10, segs[0].X0, 1e-9)
}

func TestMeshWireUsesDeformedPoints(t *testing.T) {
	s, cam, l := orthoRig(t)
	m := s.CreateMesh("tri", []camlattice.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, [][]int{{0, 1, 2}})
	_, err := s.AttachObjects(l, m)
	require.NoError(t, err)
	all := make([]int, 9)
	for i := range all {
		all[i] = i
	}
	require.NoError(t, s.MovePoints(l, all, [2]float64{0.1, 0}))
	_, err = s.Evaluate(t.Context(), m)
	require.NoError(t, err)

	p := NewProjector(cam, View{Width: 100, Height: 100})
	segs := p.MeshWire(m)
	require.Len(t, segs, 3)
	// shifted by 0.1 gate width, the origin vertex lands at 60 px
	assert.InDelta(t, 60, segs[0].X0, 1e-6)
}

func TestInfluenceCircle(t *testing.T) {
	s, cam, l := orthoRig(t)
	area, err := s.CreateInfluenceArea(l)
	require.NoError(t, err)
	area.Scale = camlattice.Vec3{2, 2, 2}
	area.Influence.SetFalloff(0.5)

	p := NewProjector(cam, View{Width: 100, Height: 100})
	c, ok := p.Influence(area)
	require.True(t, ok)
	assert.InDelta(t, 50, c.X, 1e-9)
	assert.InDelta(t, 20, c.Radius, 1e-9)
	assert.InDelta(t, 10, c.Inner, 1e-9)
}

func TestGateFrameMargin(t *testing.T) {
	_, cam, _ := orthoRig(t)
	p := NewProjector(cam, View{Width: 100, Height: 100, Margin: 0.1})
	frame := p.GateFrame()
	require.Len(t, frame, 4)
	assert.Equal(t, Segment{10, 10, 90, 10}, frame[0])
}
