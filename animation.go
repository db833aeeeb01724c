package camlattice

import (
	"slices"
	"sort"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Key is one keyframe. Ease shapes the segment from this key to the next.
type Key struct {
	Time  float64 `yaml:"time"`
	Value float64 `yaml:"value"`
	Ease  string  `yaml:"ease,omitempty"`
}

// Curve is a keyframed scalar channel. Keys are kept sorted by time.
type Curve struct {
	keys []Key
}

// easings maps the names accepted in Key.Ease to tween functions.
var easings = map[string]ease.TweenFunc{
	"":           ease.Linear,
	"linear":     ease.Linear,
	"inQuad":     ease.InQuad,
	"outQuad":    ease.OutQuad,
	"inOutQuad":  ease.InOutQuad,
	"inCubic":    ease.InCubic,
	"outCubic":   ease.OutCubic,
	"inOutCubic": ease.InOutCubic,
	"inSine":     ease.InSine,
	"outSine":    ease.OutSine,
	"inOutSine":  ease.InOutSine,
}

// EaseNames returns the accepted easing names, sorted.
func EaseNames() []string {
	out := make([]string, 0, len(easings))
	for name := range easings {
		if name != "" {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// ValidEase reports whether name is a known easing.
func ValidEase(name string) bool {
	_, ok := easings[name]
	return ok
}

// SetKey inserts a linear key, replacing any key at the same time.
func (c *Curve) SetKey(t, v float64) {
	c.SetKeyEase(t, v, "")
}

// SetKeyEase inserts a key with the given easing, replacing any key at the
// same time. Unknown easings fall back to linear.
func (c *Curve) SetKeyEase(t, v float64, easing string) {
	if !ValidEase(easing) {
		easing = ""
	}
	i := sort.Search(len(c.keys), func(i int) bool { return c.keys[i].Time >= t })
	k := Key{Time: t, Value: v, Ease: easing}
	if i < len(c.keys) && c.keys[i].Time == t {
		c.keys[i] = k
		return
	}
	c.keys = slices.Insert(c.keys, i, k)
}

// Keys returns a copy of the keys in time order.
func (c *Curve) Keys() []Key {
	return slices.Clone(c.keys)
}

// Len returns the number of keys.
func (c *Curve) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// Evaluate returns the curve value at t. Before the first key and after the
// last the curve holds the end values.
func (c *Curve) Evaluate(t float64) float64 {
	n := len(c.keys)
	switch {
	case n == 0:
		return 0
	case t <= c.keys[0].Time:
		return c.keys[0].Value
	case t >= c.keys[n-1].Time:
		return c.keys[n-1].Value
	}
	i := sort.Search(n, func(i int) bool { return c.keys[i].Time > t }) - 1
	a, b := c.keys[i], c.keys[i+1]
	tw := gween.New(float32(a.Value), float32(b.Value), float32(b.Time-a.Time), easings[a.Ease])
	v, _ := tw.Update(float32(t - a.Time))
	return float64(v)
}

func (c *Curve) clone() *Curve {
	if c == nil {
		return nil
	}
	return &Curve{keys: slices.Clone(c.keys)}
}

// --- Lattice point animation ---

// Curve returns the animation curve of point i on axis (AxisX or AxisY),
// or nil when that channel is not animated.
func (l *LatticeShape) Curve(i int, axis Axis) *Curve {
	pc := l.curves[i]
	if pc == nil {
		return nil
	}
	if axis == AxisY {
		return pc.Y
	}
	return pc.X
}

// Animated reports whether point i has a curve on X or Y.
func (l *LatticeShape) Animated(i int) bool {
	pc := l.curves[i]
	return pc != nil && (pc.X.Len() > 0 || pc.Y.Len() > 0)
}

// KeyPoint keys the current offset of point i at time t on the given axes.
func (l *LatticeShape) KeyPoint(i int, axes Axis, t float64) {
	pc := l.curves[i]
	if pc == nil {
		pc = &pointCurves{}
		l.curves[i] = pc
	}
	off := l.offsets[i]
	if axes&AxisX != 0 {
		if pc.X == nil {
			pc.X = &Curve{}
		}
		pc.X.SetKey(t, off.X())
	}
	if axes&AxisY != 0 {
		if pc.Y == nil {
			pc.Y = &Curve{}
		}
		pc.Y.SetKey(t, off.Y())
	}
	l.changed(AttrKeyframes)
}

// SetCurve replaces the curve of point i on axis.
func (l *LatticeShape) SetCurve(i int, axis Axis, c *Curve) {
	pc := l.curves[i]
	if pc == nil {
		pc = &pointCurves{}
		l.curves[i] = pc
	}
	if axis == AxisY {
		pc.Y = c
	} else {
		pc.X = c
	}
	l.changed(AttrKeyframes)
}

// applyCurves writes animated offsets for time t.
func (l *LatticeShape) applyCurves(t float64) {
	for i, pc := range l.curves {
		if i >= len(l.offsets) {
			continue
		}
		if pc.X.Len() > 0 {
			l.offsets[i][0] = pc.X.Evaluate(t)
		}
		if pc.Y.Len() > 0 {
			l.offsets[i][1] = pc.Y.Evaluate(t)
		}
	}
}
