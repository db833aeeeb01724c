package camlattice

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadOBJ parses the vertex positions and faces of a Wavefront OBJ stream.
// Face indices are returned zero-based; texture and normal references are
// ignored. Other records are skipped.
func ReadOBJ(r io.Reader) (points []Vec3, faces [][]int, err error) {
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, nil, fmt.Errorf("obj line %d: vertex needs 3 coordinates", line)
			}
			var p Vec3
			for i := 0; i < 3; i++ {
				if p[i], err = strconv.ParseFloat(fields[i+1], 64); err != nil {
					return nil, nil, fmt.Errorf("obj line %d: %w", line, err)
				}
			}
			points = append(points, p)
		case "f":
			if len(fields) < 4 {
				return nil, nil, fmt.Errorf("obj line %d: face needs 3 vertices", line)
			}
			face := make([]int, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				idx, err := objIndex(ref, len(points))
				if err != nil {
					return nil, nil, fmt.Errorf("obj line %d: %w", line, err)
				}
				face = append(face, idx)
			}
			faces = append(faces, face)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("read obj: %w", err)
	}
	return points, faces, nil
}

// objIndex resolves a "v", "v/vt" or "v/vt/vn" reference. Negative indices
// count back from the last vertex read so far.
func objIndex(ref string, numPoints int) (int, error) {
	v, _, _ := strings.Cut(ref, "/")
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("face index %q: %w", ref, err)
	}
	switch {
	case i > 0:
		i--
	case i < 0:
		i += numPoints
	default:
		return 0, fmt.Errorf("face index %q: zero is not valid", ref)
	}
	if i < 0 || i >= numPoints {
		return 0, fmt.Errorf("face index %q outside 1..%d", ref, numPoints)
	}
	return i, nil
}

// WriteOBJ writes points and zero-based faces as an OBJ object called name.
func WriteOBJ(w io.Writer, name string, points []Vec3, faces [][]int) error {
	bw := bufio.NewWriter(w)
	if name != "" {
		fmt.Fprintf(bw, "o %s\n", name)
	}
	for _, p := range points {
		fmt.Fprintf(bw, "v %s %s %s\n", formatFloat(p[0]), formatFloat(p[1]), formatFloat(p[2]))
	}
	for _, f := range faces {
		bw.WriteString("f")
		for _, idx := range f {
			bw.WriteByte(' ')
			bw.WriteString(strconv.Itoa(idx + 1))
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write obj: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ImportOBJ reads an OBJ stream into a new mesh node.
func (s *Scene) ImportOBJ(name string, r io.Reader) (*Node, error) {
	pts, faces, err := ReadOBJ(r)
	if err != nil {
		return nil, fmt.Errorf("import %q: %w", name, err)
	}
	return s.CreateMesh(name, pts, faces), nil
}

// ExportOBJ writes the mesh's deformed points as OBJ. Call Evaluate first to
// export the current deformation.
func (s *Scene) ExportOBJ(w io.Writer, mesh *Node) error {
	if !IsDeformable(mesh) {
		return fmt.Errorf("export: %w", ErrNotDeformable)
	}
	return WriteOBJ(w, mesh.Name, mesh.Mesh.Deformed(), mesh.Mesh.Faces)
}
