package camlattice

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// sceneFileVersion is written to every scene file.
const sceneFileVersion = 1

type sceneFile struct {
	Version int         `yaml:"version"`
	Time    float64     `yaml:"time,omitempty"`
	Nodes   []nodeEntry `yaml:"nodes"`
}

type nodeEntry struct {
	Name       string     `yaml:"name"`
	Type       string     `yaml:"type"`
	UUID       string     `yaml:"uuid,omitempty"`
	Parent     string     `yaml:"parent,omitempty"`
	Translate  [3]float64 `yaml:"translate,flow"`
	Rotate     [3]float64 `yaml:"rotate,flow"`
	Scale      [3]float64 `yaml:"scale,flow"`
	Locked     Channel    `yaml:"locked,omitempty"`
	Visibility bool       `yaml:"visibility"`

	Camera    *cameraEntry    `yaml:"camera,omitempty"`
	Lattice   *latticeEntry   `yaml:"lattice,omitempty"`
	Mesh      *meshEntry      `yaml:"mesh,omitempty"`
	Deformer  *deformerEntry  `yaml:"deformer,omitempty"`
	Influence *influenceEntry `yaml:"influence,omitempty"`
}

type cameraEntry struct {
	NearClip               float64 `yaml:"nearClipPlane"`
	FocalLength            float64 `yaml:"focalLength"`
	HorizontalFilmAperture float64 `yaml:"horizontalFilmAperture"`
	VerticalFilmAperture   float64 `yaml:"verticalFilmAperture"`
	Orthographic           bool    `yaml:"orthographic,omitempty"`
	OrthographicWidth      float64 `yaml:"orthographicWidth"`
}

type latticeEntry struct {
	Active        float64            `yaml:"lActive"`
	Camera        string             `yaml:"camera"`
	Interpolation string             `yaml:"interpolation"`
	SDivisions    int                `yaml:"sDivisions"`
	TDivisions    int                `yaml:"tDivisions"`
	MaxRecursion  int                `yaml:"maxRecursion"`
	GateOffset    float64            `yaml:"gateOffset"`
	Points        map[int][2]float64 `yaml:"pnts,omitempty"`
	Curves        []curveEntry       `yaml:"keyframes,omitempty"`
}

type curveEntry struct {
	Point int    `yaml:"point"`
	Axis  string `yaml:"axis"`
	Keys  []Key  `yaml:"keys"`
}

type meshEntry struct {
	Points [][3]float64 `yaml:"points,flow"`
	Faces  [][]int      `yaml:"faces,flow"`
}

type deformerEntry struct {
	Object  string         `yaml:"deformerMessage"`
	Lattice string         `yaml:"ldMessage"`
	Matrix  map[int]string `yaml:"influenceMatrix,omitempty"`
	Falloff map[int]string `yaml:"influenceFalloff,omitempty"`
}

type influenceEntry struct {
	Falloff float64        `yaml:"falloff"`
	Links   map[int]string `yaml:"locatorMessage,omitempty"`
}

// SaveScene writes the scene as YAML. Links between nodes are stored by
// name and sparse arrays keep their logical indices.
func (s *Scene) SaveScene(w io.Writer) error {
	f := sceneFile{Version: sceneFileVersion, Time: s.time}
	for _, n := range s.saveOrder() {
		f.Nodes = append(f.Nodes, encodeNode(n))
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&f); err != nil {
		return fmt.Errorf("save scene: %w", err)
	}
	return enc.Close()
}

// SaveSceneFile writes the scene to path.
func (s *Scene) SaveSceneFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save scene: %w", err)
	}
	if err := s.SaveScene(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// saveOrder lists hierarchy nodes parents first, then the deformers.
func (s *Scene) saveOrder() []*Node {
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		for _, c := range n.children {
			out = append(out, c)
			walk(c)
		}
	}
	walk(s.root)
	return append(out, s.Nodes(NodeTypeDeformer)...)
}

func encodeNode(n *Node) nodeEntry {
	e := nodeEntry{
		Name:       n.Name,
		Type:       n.Type.String(),
		UUID:       n.UUID.String(),
		Translate:  n.Translate,
		Rotate:     n.Rotate,
		Scale:      n.Scale,
		Locked:     n.locked,
		Visibility: n.Visible,
	}
	if n.Parent != nil && n.Parent != n.scene.root {
		e.Parent = n.Parent.Name
	}
	switch {
	case n.Camera != nil:
		c := n.Camera
		e.Camera = &cameraEntry{
			NearClip:               c.NearClip,
			FocalLength:            c.FocalLength,
			HorizontalFilmAperture: c.HorizontalFilmAperture,
			VerticalFilmAperture:   c.VerticalFilmAperture,
			Orthographic:           c.Orthographic,
			OrthographicWidth:      c.OrthographicWidth,
		}
	case n.Lattice != nil:
		e.Lattice = encodeLattice(n.Lattice)
	case n.Mesh != nil:
		m := &meshEntry{Faces: n.Mesh.Faces}
		for _, p := range n.Mesh.points {
			m.Points = append(m.Points, p)
		}
		e.Mesh = m
	case n.Deformer != nil:
		d := n.Deformer
		e.Deformer = &deformerEntry{
			Object:  nodeName(d.object),
			Lattice: nodeName(d.lattice),
			Matrix:  namesByIndex(d.matrices),
			Falloff: namesByIndex(d.falloffs),
		}
	case n.Influence != nil:
		e.Influence = &influenceEntry{
			Falloff: n.Influence.Falloff,
			Links:   namesByIndex(n.Influence.links),
		}
	}
	return e
}

func encodeLattice(l *LatticeShape) *latticeEntry {
	e := &latticeEntry{
		Active:        l.Active,
		Camera:        nodeName(l.camera),
		Interpolation: l.Interpolation.String(),
		SDivisions:    l.SDivisions,
		TDivisions:    l.TDivisions,
		MaxRecursion:  l.MaxRecursion,
		GateOffset:    l.GateOffset,
	}
	for i, off := range l.offsets {
		if off != (mgl64.Vec2{}) {
			if e.Points == nil {
				e.Points = make(map[int][2]float64)
			}
			e.Points[i] = off
		}
	}
	for _, i := range slices.Sorted(maps.Keys(l.curves)) {
		pc := l.curves[i]
		if pc.X.Len() > 0 {
			e.Curves = append(e.Curves, curveEntry{Point: i, Axis: AxisX.String(), Keys: pc.X.Keys()})
		}
		if pc.Y.Len() > 0 {
			e.Curves = append(e.Curves, curveEntry{Point: i, Axis: AxisY.String(), Keys: pc.Y.Keys()})
		}
	}
	return e
}

func nodeName(n *Node) string {
	if n == nil {
		return ""
	}
	return n.Name
}

func namesByIndex(m map[int]*Node) map[int]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[int]string, len(m))
	for idx, n := range m {
		out[idx] = nodeName(n)
	}
	return out
}

// LoadScene reads a scene written by SaveScene into a new Scene. The loaded
// scene starts with an empty undo stack.
func LoadScene(r io.Reader, opts ...Option) (*Scene, error) {
	var f sceneFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("load scene: %w", err)
	}
	if f.Version > sceneFileVersion {
		return nil, fmt.Errorf("load scene: unsupported version %d", f.Version)
	}

	s := NewScene(opts...)
	created := make([]*Node, len(f.Nodes))
	for i := range f.Nodes {
		n, err := s.decodeNode(&f.Nodes[i])
		if err != nil {
			return nil, fmt.Errorf("load scene: %w", err)
		}
		created[i] = n
	}
	for i := range f.Nodes {
		if err := s.resolveLinks(created[i], &f.Nodes[i]); err != nil {
			return nil, fmt.Errorf("load scene: %w", err)
		}
	}
	s.SetTime(f.Time)
	return s, nil
}

// LoadSceneFile reads a scene file from path.
func LoadSceneFile(path string, opts ...Option) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load scene: %w", err)
	}
	defer f.Close()
	return LoadScene(f, opts...)
}

// decodeNode creates the node and its shape. Links are resolved afterwards.
func (s *Scene) decodeNode(e *nodeEntry) (*Node, error) {
	typ, ok := ParseNodeType(e.Type)
	if !ok {
		return nil, fmt.Errorf("node %q: unknown type %q", e.Name, e.Type)
	}
	if s.byName[e.Name] != nil {
		return nil, fmt.Errorf("node %q: %w", e.Name, ErrNameInUse)
	}
	n := newNode(e.Name, typ)
	if e.UUID != "" {
		id, err := uuid.Parse(e.UUID)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", e.Name, err)
		}
		n.UUID = id
	}
	n.Translate = e.Translate
	n.Rotate = e.Rotate
	n.Scale = e.Scale
	n.locked = e.Locked
	n.Visible = e.Visibility

	switch typ {
	case NodeTypeCamera:
		if e.Camera == nil {
			return nil, fmt.Errorf("camera %q: missing camera attributes", e.Name)
		}
		shape := CameraShape{
			NearClip:               e.Camera.NearClip,
			FocalLength:            e.Camera.FocalLength,
			HorizontalFilmAperture: e.Camera.HorizontalFilmAperture,
			VerticalFilmAperture:   e.Camera.VerticalFilmAperture,
			Orthographic:           e.Camera.Orthographic,
			OrthographicWidth:      e.Camera.OrthographicWidth,
		}
		if err := shape.Validate(); err != nil {
			return nil, fmt.Errorf("camera %q: %w", e.Name, err)
		}
		n.Camera = &shape
	case NodeTypeLattice:
		shape, err := decodeLattice(e)
		if err != nil {
			return nil, err
		}
		n.Lattice = shape
	case NodeTypeMesh:
		m := &MeshShape{}
		if e.Mesh != nil {
			m.Faces = e.Mesh.Faces
			for _, p := range e.Mesh.Points {
				m.points = append(m.points, p)
			}
		}
		n.Mesh = m
	case NodeTypeDeformer:
		n.Deformer = newDeformer(nil, nil)
	case NodeTypeInfluence:
		n.Influence = newInfluenceArea()
		if e.Influence != nil {
			n.Influence.Falloff = mgl64.Clamp(e.Influence.Falloff, 0, 1)
		}
	}

	var parent *Node
	if e.Parent != "" {
		if parent = s.byName[e.Parent]; parent == nil {
			return nil, fmt.Errorf("node %q: parent %q: %w", e.Name, e.Parent, ErrNodeNotFound)
		}
	}
	return s.addNode(n, parent), nil
}

func decodeLattice(e *nodeEntry) (*LatticeShape, error) {
	le := e.Lattice
	if le == nil {
		return nil, fmt.Errorf("lattice %q: missing lattice attributes", e.Name)
	}
	shape, err := newLatticeShape(le.SDivisions, le.TDivisions)
	if err != nil {
		return nil, fmt.Errorf("lattice %q: %w", e.Name, err)
	}
	interp, ok := ParseInterpolation(le.Interpolation)
	if !ok {
		return nil, fmt.Errorf("lattice %q: unknown interpolation %q", e.Name, le.Interpolation)
	}
	shape.Active = mgl64.Clamp(le.Active, 0, 1)
	shape.Interpolation = interp
	shape.GateOffset = mgl64.Clamp(le.GateOffset, 0, 1)
	lo, hi := shape.MaxRecursionBounds()
	shape.MaxRecursion = max(lo, min(le.MaxRecursion, hi))
	for i, off := range le.Points {
		if i < 0 || i >= shape.NumPoints() {
			return nil, fmt.Errorf("lattice %q: point %d outside 0..%d", e.Name, i, shape.NumPoints()-1)
		}
		shape.offsets[i] = off
	}
	for _, ce := range le.Curves {
		axis, ok := ParseAxis(ce.Axis)
		if !ok || axis == AxisXY {
			return nil, fmt.Errorf("lattice %q: point %d: bad curve axis %q", e.Name, ce.Point, ce.Axis)
		}
		if ce.Point < 0 || ce.Point >= shape.NumPoints() {
			return nil, fmt.Errorf("lattice %q: curve point %d out of range", e.Name, ce.Point)
		}
		c := &Curve{}
		for _, k := range ce.Keys {
			c.SetKeyEase(k.Time, k.Value, k.Ease)
		}
		shape.SetCurve(ce.Point, axis, c)
	}
	return shape, nil
}

// resolveLinks connects the message attributes of n by name.
func (s *Scene) resolveLinks(n *Node, e *nodeEntry) error {
	switch {
	case n.Lattice != nil:
		if e.Lattice.Camera == "" {
			return nil
		}
		cam, err := s.linkTarget(n, e.Lattice.Camera)
		if err != nil {
			return err
		}
		if !IsCamera(cam) {
			return fmt.Errorf("lattice %q: %w", n.Name, ErrNotCamera)
		}
		n.Lattice.camera = cam
	case n.Deformer != nil:
		de := e.Deformer
		if de == nil {
			return fmt.Errorf("deformer %q: missing deformer attributes", n.Name)
		}
		obj, err := s.linkTarget(n, de.Object)
		if err != nil {
			return err
		}
		lat, err := s.linkTarget(n, de.Lattice)
		if err != nil {
			return err
		}
		if !IsDeformable(obj) {
			return fmt.Errorf("deformer %q: %w", n.Name, ErrNotDeformable)
		}
		if !IsLattice(lat) {
			return fmt.Errorf("deformer %q: %w", n.Name, ErrNotLattice)
		}
		n.Deformer.object, n.Deformer.lattice = obj, lat
		if len(de.Matrix) != len(de.Falloff) {
			return fmt.Errorf("deformer %q: %d influence matrices but %d falloffs", n.Name, len(de.Matrix), len(de.Falloff))
		}
		for idx := range de.Matrix {
			if _, ok := de.Falloff[idx]; !ok {
				return fmt.Errorf("deformer %q: influence slot %d has no falloff", n.Name, idx)
			}
		}
		if err := s.resolveSlots(n, de.Matrix, n.Deformer.matrices, IsInfluenceArea); err != nil {
			return err
		}
		return s.resolveSlots(n, de.Falloff, n.Deformer.falloffs, IsInfluenceArea)
	case n.Influence != nil && e.Influence != nil:
		return s.resolveSlots(n, e.Influence.Links, n.Influence.links, nil)
	}
	return nil
}

// resolveSlots links every named slot into into. When accept is set, targets
// it rejects fail with ErrNotInfluence.
func (s *Scene) resolveSlots(n *Node, names map[int]string, into map[int]*Node, accept func(*Node) bool) error {
	for idx, name := range names {
		target, err := s.linkTarget(n, name)
		if err != nil {
			return err
		}
		if accept != nil && !accept(target) {
			return fmt.Errorf("%s: slot %d links %q: %w", n.Name, idx, name, ErrNotInfluence)
		}
		into[idx] = target
	}
	return nil
}

func (s *Scene) linkTarget(from *Node, name string) (*Node, error) {
	t := s.byName[name]
	if t == nil {
		return nil, fmt.Errorf("%s: link to %q: %w", from.Name, name, ErrNodeNotFound)
	}
	return t, nil
}
