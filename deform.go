package camlattice

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Deformation thresholds.
const (
	minEnvelope    = 0.01
	minPointWeight = 1e-5
	fullWeight     = 0.9999
)

// minRangeSize is the smallest point range handed to a worker.
const minRangeSize = 512

// DeformInput carries everything one deformer evaluation reads. Points are
// in object space; LatticePoints are in lattice object space on the unit
// plane, indexed s + t*SDivisions.
type DeformInput struct {
	Points        []Vec3
	LatticePoints []Vec3
	SDivisions    int
	TDivisions    int
	Interpolation Interpolation
	MaxRecursion  int
	Envelope      float64
	GateOffset    float64
	ObjectMatrix  Mat4
	CameraMatrix  Mat4
	Camera        CameraShape
	Influencers   []Influencer
}

// Validate checks that the lattice grid matches its divisions.
func (in *DeformInput) Validate() error {
	n := len(in.LatticePoints)
	if n == 0 || n != in.SDivisions*in.TDivisions {
		return fmt.Errorf("%d points for %dx%d: %w", n, in.SDivisions, in.TDivisions, ErrLatticeMismatch)
	}
	return nil
}

// Deform returns the deformed copy of in.Points. Points outside the gate or
// outside every influence area are returned unchanged. The point set is split
// into ranges evaluated concurrently by up to workers goroutines
// (GOMAXPROCS when workers <= 0).
func Deform(ctx context.Context, in DeformInput, workers int) ([]Vec3, error) {
	out := make([]Vec3, len(in.Points))
	copy(out, in.Points)

	if in.Envelope < minEnvelope {
		return out, nil
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	e := newEvaluator(&in)
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	size := max(minRangeSize, (len(out)+workers-1)/workers)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < len(out); lo += size {
		hi := min(lo+size, len(out))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				out[i] = e.deformPoint(out[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("deform: %w", err)
	}
	return out, nil
}

// evaluator holds the per-evaluation constants shared by all workers.
type evaluator struct {
	in           *DeformInput
	toCamera     Mat4
	fromCamera   Mat4
	filmH, filmV float64
}

func newEvaluator(in *DeformInput) *evaluator {
	h, v := in.Camera.FilmFrame()
	return &evaluator{
		in:         in,
		toCamera:   in.CameraMatrix.Inv().Mul4(in.ObjectMatrix),
		fromCamera: in.ObjectMatrix.Inv().Mul4(in.CameraMatrix),
		filmH:      h,
		filmV:      v,
	}
}

func (e *evaluator) deformPoint(p Vec3) Vec3 {
	in := e.in
	weight := in.Envelope
	if len(in.Influencers) != 0 {
		weight *= influenceWeight(transformPoint(in.ObjectMatrix, p), in.Influencers)
	}
	if weight < minPointWeight {
		return p
	}

	q := transformPoint(e.toCamera, p)
	zDepth := -q.Z()
	ortho := in.Camera.Orthographic
	if !ortho {
		// a point on the camera plane has no film position
		if zDepth == 0 {
			return p
		}
		q = q.Mul(1 / zDepth)
	}

	u := q.X()/e.filmH + 0.5
	v := q.Y()/e.filmV + 0.5
	gov := in.GateOffset
	if u > 1+gov || v > 1+gov || u < -gov || v < -gov {
		return p
	}

	var f Vec3
	if in.Interpolation == InterpolationBezier {
		f = bezierPoint(in.LatticePoints, u, v, in.SDivisions, in.TDivisions, in.MaxRecursion)
	} else {
		f = linearPoint(in.LatticePoints, u, v, in.SDivisions, in.TDivisions)
	}

	f[0] *= e.filmH
	f[1] *= e.filmV
	f[2] = q.Z()
	if !ortho {
		f = f.Mul(zDepth)
	}
	f = transformPoint(e.fromCamera, f)

	if weight > fullWeight {
		return f
	}
	return p.Add(f.Sub(p).Mul(weight))
}

// SampleGrid evaluates the lattice surface at film coordinates (u, v) with
// the given interpolation. The preview uses it to draw the warped gate.
func SampleGrid(points []Vec3, u, v float64, sDiv, tDiv int, interp Interpolation, maxRecursion int) Vec3 {
	if interp == InterpolationBezier {
		return bezierPoint(points, u, v, sDiv, tDiv, maxRecursion)
	}
	return linearPoint(points, u, v, sDiv, tDiv)
}

// findBoundaryCells returns the grid indices bracketing w in [0, 1] for D
// divisions. Values left of the range clamp to the first cell, values at or
// right of 1 to the last.
func findBoundaryCells(w float64, d int) (lo, hi int) {
	step := 1.0 / float64(d-1)
	for i := 0; i < d-1; i++ {
		this := step * float64(i)
		if w < this+step && w >= this {
			return i, i + 1
		}
	}
	if w < 0 {
		return 0, 1
	}
	if d > 2 {
		return d - 2, d - 1
	}
	return d - 1, d - 1
}

// linearPoint blends the four corners of the cell enclosing (u, v).
func linearPoint(points []Vec3, u, v float64, sD, tD int) Vec3 {
	minX, maxX := findBoundaryCells(u, sD)
	minY, maxY := findBoundaryCells(v, tD)

	fx := float64(sD - 1)
	fy := float64(tD - 1)
	uLocal := (u - float64(minX)/fx) / (float64(maxX)/fx - float64(minX)/fx)
	vLocal := (v - float64(minY)/fy) / (float64(maxY)/fy - float64(minY)/fy)

	p1 := points[minX+minY*sD]
	p2 := points[minX+maxY*sD]
	p3 := points[maxX+minY*sD]
	p4 := points[maxX+maxY*sD]

	p21 := p1.Add(p2.Sub(p1).Mul(vLocal))
	p43 := p3.Add(p4.Sub(p3).Mul(vLocal))
	return p21.Add(p43.Sub(p21).Mul(uLocal))
}

// bezierPoint evaluates the tensor-product Bernstein surface over the
// enclosing cell widened by rec cells on each side.
func bezierPoint(points []Vec3, u, v float64, sD, tD, rec int) Vec3 {
	if rec < 1 {
		rec = 1
	}
	minX, maxX := findBoundaryCells(u, sD)
	minY, maxY := findBoundaryCells(v, tD)

	// upper bounds are exclusive
	minX = max(minX-rec, 0)
	maxX = min(maxX+rec, sD)
	minY = max(minY-rec, 0)
	maxY = min(maxY+rec, tD)

	minSU := float64(minX) / float64(sD-1)
	maxSU := float64(maxX-1) / float64(sD-1)
	u = (u - minSU) / (maxSU - minSU)

	minTU := float64(minY) / float64(tD-1)
	maxTU := float64(maxY-1) / float64(tD-1)
	v = (v - minTU) / (maxTU - minTU)

	finalS := maxX - minX
	finalT := maxY - minY
	var result Vec3
	for s := 0; s < finalS; s++ {
		bs := bernstein(s, finalS-1, u)
		for t := 0; t < finalT; t++ {
			idx := minX + s + (minY+t)*sD
			result = result.Add(points[idx].Mul(bs * bernstein(t, finalT-1, v)))
		}
	}
	return result
}

// bernstein is the Bernstein basis polynomial B(i, l; x).
func bernstein(i, l int, x float64) float64 {
	return binomial(l, i) * powi(x, i) * powi(1-x, l-i)
}

// binomial returns C(n, k) as a float64.
func binomial(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	k = min(k, n-k)
	r := 1.0
	for i := 1; i <= k; i++ {
		r = r * float64(n-k+i) / float64(i)
	}
	return r
}

// powi is x^n for small non-negative n. pow(0, 0) is 1.
func powi(x float64, n int) float64 {
	r := 1.0
	for ; n > 0; n-- {
		r *= x
	}
	return r
}
