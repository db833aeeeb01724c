// Package preview draws a camera lattice rig as seen through its camera
// using ebiten. It shows the film gate, the lattice grid, deformed mesh
// wireframes and influence areas.
package preview

import (
	"context"
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/phanxgames/camlattice"
	"go.uber.org/zap"
)

// Colors used by Draw.
var (
	ColorBackground = color.RGBA{0x1e, 0x1e, 0x28, 0xff}
	ColorGate       = color.RGBA{0x80, 0x80, 0x80, 0xff}
	ColorLattice    = color.RGBA{0x50, 0xb4, 0xff, 0xff}
	ColorMesh       = color.RGBA{0xf0, 0xf0, 0xf0, 0xff}
	ColorInfluence  = color.RGBA{0xff, 0xb0, 0x40, 0xff}
)

// Config controls a Game.
type Config struct {
	Camera        *camlattice.Node
	Width, Height int
	Margin        float64 // fraction of the window around the gate; 0.05 when zero
	ScreenshotDir string  // "screenshots" when empty
	ShowInfo      bool    // print time and lattice name in the corner
	FrameStep     float64 // frames advanced per arrow key press; 1 when zero
}

// Game is an ebiten.Game that previews one camera of a scene. The scene is
// re-evaluated every tick.
type Game struct {
	scene *camlattice.Scene
	cfg   Config
	log   *zap.Logger

	screenshotQueue []string
	evalErr         error
}

// New creates a preview of scene through cfg.Camera.
func New(scene *camlattice.Scene, cfg Config) (*Game, error) {
	if !camlattice.IsCamera(cfg.Camera) {
		return nil, fmt.Errorf("preview: %w", camlattice.ErrNotCamera)
	}
	if cfg.Width <= 0 {
		cfg.Width = 960
	}
	if cfg.Height <= 0 {
		w, v := cfg.Camera.Camera.FilmFrame()
		cfg.Height = int(float64(cfg.Width) * v / w)
	}
	if cfg.Margin == 0 {
		cfg.Margin = 0.05
	}
	if cfg.ScreenshotDir == "" {
		cfg.ScreenshotDir = "screenshots"
	}
	if cfg.FrameStep == 0 {
		cfg.FrameStep = 1
	}
	return &Game{scene: scene, cfg: cfg, log: scene.Logger()}, nil
}

// Update handles the time keys and screenshot key, then evaluates every mesh.
func (g *Game) Update() error {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowRight):
		g.scene.SetTime(g.scene.Time() + g.cfg.FrameStep)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft):
		g.scene.SetTime(g.scene.Time() - g.cfg.FrameStep)
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		g.Screenshot("view")
	}
	return g.evaluate(context.Background())
}

func (g *Game) evaluate(ctx context.Context) error {
	err := g.scene.EvaluateAll(ctx)
	if err != nil && g.evalErr == nil {
		g.log.Warn("preview evaluation failed", zap.Error(err))
	}
	g.evalErr = err
	return nil
}

// Draw renders the current state and flushes queued screenshots.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(ColorBackground)
	p := g.projector()

	strokeAll(screen, p.GateFrame(), 1, ColorGate)
	for _, m := range g.scene.Nodes(camlattice.NodeTypeMesh) {
		if m.Visible {
			strokeAll(screen, p.MeshWire(m), 1, ColorMesh)
		}
	}
	var current *camlattice.Node
	for _, l := range g.scene.LatticesOf(g.cfg.Camera) {
		if !l.Visible {
			continue
		}
		current = l
		strokeAll(screen, p.LatticeGrid(l), 1, ColorLattice)
		for _, a := range g.scene.InfluenceAreas(l) {
			if c, ok := p.Influence(a); ok {
				vector.StrokeCircle(screen, float32(c.X), float32(c.Y), float32(c.Radius), 1, ColorInfluence, true)
				vector.StrokeCircle(screen, float32(c.X), float32(c.Y), float32(c.Inner), 1, ColorInfluence, true)
			}
		}
	}
	if g.cfg.ShowInfo {
		name := "no lattice"
		if current != nil {
			name = current.Name
		}
		ebitenutil.DebugPrint(screen, fmt.Sprintf("%s  %s  frame %g", g.cfg.Camera.Name, name, g.scene.Time()))
	}

	g.flushScreenshots(screen)
}

// Layout returns the configured window size.
func (g *Game) Layout(_, _ int) (int, int) {
	return g.cfg.Width, g.cfg.Height
}

func (g *Game) projector() *Projector {
	return NewProjector(g.cfg.Camera, View{Width: g.cfg.Width, Height: g.cfg.Height, Margin: g.cfg.Margin})
}

func strokeAll(dst *ebiten.Image, segs []Segment, width float32, clr color.Color) {
	for _, s := range segs {
		vector.StrokeLine(dst, float32(s.X0), float32(s.Y0), float32(s.X1), float32(s.Y1), width, clr, true)
	}
}

// Run opens a window titled title and runs g until it is closed.
func Run(g *Game, title string) error {
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(g.cfg.Width, g.cfg.Height)
	return ebiten.RunGame(g)
}
