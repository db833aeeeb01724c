package camlattice

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ScriptStep is a single rig operation in a script. Only the fields the
// action reads need to be set.
type ScriptStep struct {
	Action string `yaml:"action"`

	Name    string   `yaml:"name,omitempty"`
	Node    string   `yaml:"node,omitempty"`
	Camera  string   `yaml:"camera,omitempty"`
	Lattice string   `yaml:"lattice,omitempty"`
	Objects []string `yaml:"objects,omitempty"`
	Areas   []string `yaml:"areas,omitempty"`

	// camera and transform parameters
	Focal      float64     `yaml:"focal,omitempty"`
	Near       float64     `yaml:"near,omitempty"`
	Ortho      bool        `yaml:"ortho,omitempty"`
	OrthoWidth float64     `yaml:"orthoWidth,omitempty"`
	Translate  *[3]float64 `yaml:"translate,omitempty,flow"`
	Rotate     *[3]float64 `yaml:"rotate,omitempty,flow"`

	// mesh
	OBJ    string       `yaml:"obj,omitempty"`
	Points [][3]float64 `yaml:"points,omitempty,flow"`
	Faces  [][]int      `yaml:"faces,omitempty,flow"`

	// lattice
	S             int        `yaml:"s,omitempty"`
	T             int        `yaml:"t,omitempty"`
	Indices       []int      `yaml:"indices,omitempty,flow"`
	Offset        [2]float64 `yaml:"offset,omitempty,flow"`
	Axis          string     `yaml:"axis,omitempty"`
	Active        *float64   `yaml:"active,omitempty"`
	Interpolation string     `yaml:"interpolation,omitempty"`
	MaxRecursion  int        `yaml:"maxRecursion,omitempty"`
	GateOffset    *float64   `yaml:"gateOffset,omitempty"`
	Falloff       *float64   `yaml:"falloff,omitempty"`

	Time  float64 `yaml:"time,omitempty"`
	Count int     `yaml:"count,omitempty"`
}

// Script is an ordered list of rig operations.
type Script struct {
	Steps []ScriptStep `yaml:"steps"`
}

// LoadScript parses a YAML script.
func LoadScript(data []byte) (*Script, error) {
	var sc Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("parse script: no steps")
	}
	return &sc, nil
}

// LoadScriptFile parses the YAML script at path.
func LoadScriptFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	return LoadScript(data)
}

// Run executes the steps in order against s and stops at the first failure.
func (sc *Script) Run(ctx context.Context, s *Scene) error {
	for i := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		st := &sc.Steps[i]
		s.log.Debug("script step", zap.Int("step", i+1), zap.String("action", st.Action))
		if err := st.run(ctx, s); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, st.Action, err)
		}
	}
	return nil
}

func (st *ScriptStep) run(ctx context.Context, s *Scene) error {
	switch st.Action {
	case "camera":
		return st.camera(s)
	case "mesh":
		return st.mesh(s)
	case "transform":
		n, err := s.Lookup(st.Node)
		if err != nil {
			return err
		}
		return st.applyTransform(n)
	case "rename":
		n, err := s.Lookup(st.Node)
		if err != nil {
			return err
		}
		return s.Rename(n, st.Name)
	case "delete":
		n, err := s.Lookup(st.Node)
		if err != nil {
			return err
		}
		s.Delete(n)
		return nil

	case "createLattice":
		cam, err := s.Lookup(st.Camera)
		if err != nil {
			return err
		}
		l, err := s.CreateCameraLattice(cam, orDefault(st.S, DefaultDivisions), orDefault(st.T, DefaultDivisions))
		if err != nil {
			return err
		}
		if st.Name != "" {
			return s.Rename(l, st.Name)
		}
		return nil
	case "deleteLattice":
		l, err := s.Lookup(st.Lattice)
		if err != nil {
			return err
		}
		return s.DeleteCameraLattice(l)
	case "setLattice":
		l, err := st.lattice(s)
		if err != nil {
			return err
		}
		return st.setLattice(s, l)

	case "attach":
		l, objs, err := st.latticeAnd(s, st.Objects)
		if err != nil {
			return err
		}
		_, err = s.AttachObjects(l, objs...)
		return err
	case "detach":
		l, objs, err := st.latticeAnd(s, st.Objects)
		if err != nil {
			return err
		}
		var deformers []*Node
		for _, o := range objs {
			if d := s.DeformerFor(l, o); d != nil {
				deformers = append(deformers, d)
			}
		}
		return s.DetachObjects(deformers...)

	case "createInfluence":
		l, err := st.lattice(s)
		if err != nil {
			return err
		}
		a, err := s.CreateInfluenceArea(l)
		if err != nil {
			return err
		}
		return st.setInfluence(s, a)
	case "attachInfluence":
		l, areas, err := st.latticeAnd(s, st.Areas)
		if err != nil {
			return err
		}
		_, err = s.AttachInfluenceAreas(l, areas...)
		return err
	case "detachInfluence":
		l, areas, err := st.latticeAnd(s, st.Areas)
		if err != nil {
			return err
		}
		return s.DetachInfluenceAreas(l, areas...)

	case "selectPoints":
		l, err := st.lattice(s)
		if err != nil {
			return err
		}
		return s.SelectPoints(l, st.Indices)
	case "movePoints":
		l, err := st.lattice(s)
		if err != nil {
			return err
		}
		return s.MovePoints(l, st.Indices, mgl64.Vec2(st.Offset))
	case "keyPoints":
		l, err := st.lattice(s)
		if err != nil {
			return err
		}
		axis := AxisXY
		if st.Axis != "" {
			var ok bool
			if axis, ok = ParseAxis(st.Axis); !ok {
				return fmt.Errorf("unknown axis %q", st.Axis)
			}
		}
		return s.KeySelectedPoints(l, axis)
	case "resetPoints":
		l, err := st.lattice(s)
		if err != nil {
			return err
		}
		return s.ResetAllPoints(l)

	case "time":
		s.SetTime(st.Time)
		return nil
	case "evaluate":
		return s.EvaluateAll(ctx)
	case "undo", "redo":
		for range orDefault(st.Count, 1) {
			var err error
			if st.Action == "undo" {
				_, err = s.Undo()
			} else {
				_, err = s.Redo()
			}
			if err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown action %q", st.Action)
}

func (st *ScriptStep) camera(s *Scene) error {
	shape := DefaultCameraShape()
	if st.Focal > 0 {
		shape.FocalLength = st.Focal
	}
	if st.Near > 0 {
		shape.NearClip = st.Near
	}
	shape.Orthographic = st.Ortho
	if st.OrthoWidth > 0 {
		shape.OrthographicWidth = st.OrthoWidth
	}
	cam, err := s.CreateCamera(st.Name, shape)
	if err != nil {
		return err
	}
	return st.applyTransform(cam)
}

func (st *ScriptStep) mesh(s *Scene) error {
	var mesh *Node
	if st.OBJ != "" {
		f, err := os.Open(st.OBJ)
		if err != nil {
			return err
		}
		defer f.Close()
		if mesh, err = s.ImportOBJ(st.Name, f); err != nil {
			return err
		}
	} else {
		pts := make([]Vec3, len(st.Points))
		for i, p := range st.Points {
			pts[i] = p
		}
		mesh = s.CreateMesh(st.Name, pts, st.Faces)
	}
	return st.applyTransform(mesh)
}

func (st *ScriptStep) applyTransform(n *Node) error {
	if st.Translate != nil {
		if err := n.SetTranslate(*st.Translate); err != nil {
			return err
		}
	}
	if st.Rotate != nil {
		if err := n.SetRotate(*st.Rotate); err != nil {
			return err
		}
	}
	return nil
}

func (st *ScriptStep) lattice(s *Scene) (*Node, error) {
	l, err := s.Lookup(st.Lattice)
	if err != nil {
		return nil, err
	}
	if !IsLattice(l) {
		return nil, fmt.Errorf("%q: %w", st.Lattice, ErrNotLattice)
	}
	return l, nil
}

// latticeAnd resolves the step's lattice and the named nodes.
func (st *ScriptStep) latticeAnd(s *Scene, names []string) (*Node, []*Node, error) {
	l, err := st.lattice(s)
	if err != nil {
		return nil, nil, err
	}
	nodes := make([]*Node, 0, len(names))
	for _, name := range names {
		n, err := s.Lookup(name)
		if err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, n)
	}
	return l, nodes, nil
}

func (st *ScriptStep) setLattice(s *Scene, l *Node) error {
	return s.Chunk(ChunkSetLatticeAttribute, func() error {
		shape := l.Lattice
		if st.Active != nil {
			shape.SetActive(*st.Active)
		}
		if st.Interpolation != "" {
			interp, ok := ParseInterpolation(st.Interpolation)
			if !ok {
				return fmt.Errorf("unknown interpolation %q", st.Interpolation)
			}
			shape.SetInterpolation(interp)
		}
		if st.MaxRecursion > 0 {
			shape.SetMaxRecursion(st.MaxRecursion)
		}
		if st.GateOffset != nil {
			shape.SetGateOffset(*st.GateOffset)
		}
		return nil
	})
}

func (st *ScriptStep) setInfluence(s *Scene, a *Node) error {
	return s.Chunk(ChunkSetInfluenceAttribute, func() error {
		if st.Name != "" {
			if err := s.Rename(a, st.Name); err != nil {
				return err
			}
		}
		if st.Falloff != nil {
			a.Influence.SetFalloff(*st.Falloff)
		}
		return st.applyTransform(a)
	})
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
