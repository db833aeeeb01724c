package preview

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/phanxgames/camlattice"
)

// View maps the camera gate onto a pixel viewport. Margin is the fraction
// of the viewport left empty on each side of the gate.
type View struct {
	Width, Height int
	Margin        float64
}

// Segment is a projected line in screen pixels.
type Segment struct {
	X0, Y0, X1, Y1 float64
}

// Circle is a projected influence sphere in screen pixels.
type Circle struct {
	X, Y, Radius, Inner float64
}

// Projector projects world points through one camera into a View.
type Projector struct {
	view   View
	shape  camlattice.CameraShape
	toCam  mgl64.Mat4
	filmH  float64
	filmV  float64
	camera *camlattice.Node
}

// NewProjector captures the camera's current world matrix and film frame.
func NewProjector(camera *camlattice.Node, view View) *Projector {
	p := &Projector{view: view, shape: *camera.Camera, camera: camera}
	p.toCam = camera.WorldMatrix().Inv()
	p.filmH, p.filmV = p.shape.FilmFrame()
	return p
}

// Gate returns (u, v) in gate units, -0.5..0.5 across the film frame.
// ok is false for points on or behind the camera plane of a perspective
// camera.
func (p *Projector) Gate(world camlattice.Vec3) (u, v float64, ok bool) {
	c := p.toCam.Mul4x1(world.Vec4(1)).Vec3()
	if p.shape.Orthographic {
		return c.X() / p.filmH, c.Y() / p.filmV, true
	}
	if c.Z() >= 0 {
		return 0, 0, false
	}
	d := -c.Z()
	return c.X() / d / p.filmH, c.Y() / d / p.filmV, true
}

// Project returns the pixel position of a world point. Screen Y grows
// downward.
func (p *Projector) Project(world camlattice.Vec3) (x, y float64, ok bool) {
	u, v, ok := p.Gate(world)
	if !ok {
		return 0, 0, false
	}
	x, y = p.toScreen(u, v)
	return x, y, true
}

func (p *Projector) toScreen(u, v float64) (x, y float64) {
	w, h := float64(p.view.Width), float64(p.view.Height)
	sx, sy := w*(1-2*p.view.Margin), h*(1-2*p.view.Margin)
	return w/2 + u*sx, h/2 - v*sy
}

// GateFrame returns the four edges of the film gate.
func (p *Projector) GateFrame() []Segment {
	x0, y0 := p.toScreen(-0.5, 0.5)
	x1, y1 := p.toScreen(0.5, -0.5)
	return []Segment{
		{x0, y0, x1, y0},
		{x1, y0, x1, y1},
		{x1, y1, x0, y1},
		{x0, y1, x0, y0},
	}
}

// LatticeGrid returns the lines between neighbouring lattice points, offsets
// included.
func (p *Projector) LatticeGrid(lattice *camlattice.Node) []Segment {
	shape := lattice.Lattice
	m := lattice.WorldMatrix()
	pts := shape.Points()
	world := make([]camlattice.Vec3, len(pts))
	for i, lp := range pts {
		world[i] = m.Mul4x1(lp.Vec4(1)).Vec3()
	}
	sd, td := shape.SDivisions, shape.TDivisions
	var out []Segment
	for t := 0; t < td; t++ {
		for s := 0; s < sd; s++ {
			i := s + t*sd
			if s+1 < sd {
				out = p.appendLine(out, world[i], world[i+1])
			}
			if t+1 < td {
				out = p.appendLine(out, world[i], world[i+sd])
			}
		}
	}
	return out
}

// MeshWire returns the face edges of mesh using its deformed points.
func (p *Projector) MeshWire(mesh *camlattice.Node) []Segment {
	m := mesh.WorldMatrix()
	pts := mesh.Mesh.Deformed()
	var out []Segment
	for _, f := range mesh.Mesh.Faces {
		for k := range f {
			a, b := f[k], f[(k+1)%len(f)]
			if a < 0 || b < 0 || a >= len(pts) || b >= len(pts) {
				continue
			}
			out = p.appendLine(out,
				m.Mul4x1(pts[a].Vec4(1)).Vec3(),
				m.Mul4x1(pts[b].Vec4(1)).Vec3())
		}
	}
	return out
}

// Influence returns the projected outer and inner circles of an area.
func (p *Projector) Influence(area *camlattice.Node) (Circle, bool) {
	m := area.WorldMatrix()
	center := m.Col(3).Vec3()
	x, y, ok := p.Project(center)
	if !ok {
		return Circle{}, false
	}
	// radius along the camera's right axis
	right := p.camera.WorldMatrix().Col(0).Vec3().Normalize()
	rx, ry, ok := p.Project(center.Add(right.Mul(m.Col(0).Vec3().Len())))
	if !ok {
		return Circle{}, false
	}
	r := mgl64.Vec2{rx - x, ry - y}.Len()
	return Circle{X: x, Y: y, Radius: r, Inner: r * area.Influence.InnerRadius()}, true
}

func (p *Projector) appendLine(out []Segment, a, b camlattice.Vec3) []Segment {
	x0, y0, ok0 := p.Project(a)
	x1, y1, ok1 := p.Project(b)
	if !ok0 || !ok1 {
		return out
	}
	return append(out, Segment{x0, y0, x1, y1})
}
