package camlattice

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// evalStats holds per-mesh evaluation metrics.
// Only populated when Scene.debug is true.
type evalStats struct {
	mesh      string
	points    int
	deformers int
	elapsed   time.Duration
}

// debugLog writes evaluation stats at debug level.
func (s *Scene) debugLog(stats evalStats) {
	if !s.debug {
		return
	}
	s.log.Debug("evaluate",
		zap.String("mesh", stats.mesh),
		zap.Int("points", stats.points),
		zap.Int("deformers", stats.deformers),
		zap.Duration("elapsed", stats.elapsed))
}

// debugCheckDisposed panics with a descriptive message when a disposed node is
// used in a tree operation. Only active when the node's scene is in debug mode.
func debugCheckDisposed(n *Node, op string) {
	if n.disposed && n.scene != nil && n.scene.debug {
		panic(fmt.Sprintf("camlattice debug: %s on disposed node %q (ID %d)", op, n.Name, n.ID))
	}
}

// debugMaxTreeDepth is the depth beyond which a warning is logged.
const debugMaxTreeDepth = 32

func (s *Scene) debugCheckTreeDepth(n *Node) {
	if !s.debug {
		return
	}
	depth := 0
	for p := n; p != nil; p = p.Parent {
		depth++
	}
	if depth > debugMaxTreeDepth {
		s.log.Warn("tree depth exceeds threshold",
			zap.Int("depth", depth), zap.Int("threshold", debugMaxTreeDepth), zap.String("node", n.Name))
	}
}
