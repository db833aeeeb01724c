package preview

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Screenshot queues a labeled capture of the next drawn frame. Files are
// named <camera>_f<frame>_<label>.png under Config.ScreenshotDir.
func (g *Game) Screenshot(label string) {
	g.screenshotQueue = append(g.screenshotQueue, label)
}

func (g *Game) flushScreenshots(screen *ebiten.Image) {
	if len(g.screenshotQueue) == 0 {
		return
	}
	defer func() { g.screenshotQueue = g.screenshotQueue[:0] }()

	if err := os.MkdirAll(g.cfg.ScreenshotDir, 0o755); err != nil {
		g.log.Warn("screenshot directory", zap.String("dir", g.cfg.ScreenshotDir), zap.Error(err))
		return
	}
	b := screen.Bounds()
	pixels := make([]byte, 4*b.Dx()*b.Dy())
	screen.ReadPixels(pixels)
	img := frameImage(pixels, b.Dx(), b.Dy())

	for _, label := range g.screenshotQueue {
		path := g.shotPath(label)
		if err := writePNG(path, img); err != nil {
			g.log.Warn("screenshot failed", zap.Error(err))
			continue
		}
		g.log.Info("screenshot saved",
			zap.String("path", path),
			zap.Float64("time", g.scene.Time()))
	}
}

// shotPath names a capture after the viewing camera and the current frame.
func (g *Game) shotPath(label string) string {
	frame := int(math.Round(g.scene.Time()))
	name := fmt.Sprintf("%s_f%04d_%s.png", sanitizeLabel(g.cfg.Camera.Name), frame, sanitizeLabel(label))
	return filepath.Join(g.cfg.ScreenshotDir, name)
}

// frameImage wraps premultiplied pixels read back from the screen and
// converts them to straight alpha for PNG encoding.
func frameImage(pixels []byte, w, h int) *image.NRGBA {
	src := &image.RGBA{Pix: pixels, Stride: 4 * w, Rect: image.Rect(0, 0, w, h)}
	dst := image.NewNRGBA(src.Rect)
	draw.Draw(dst, dst.Rect, src, image.Point{}, draw.Src)
	return dst
}

func writePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { err = multierr.Append(err, f.Close()) }()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

// sanitizeLabel keeps letters, digits and "-_." and maps everything else to
// '_'. Blank labels become "unlabeled".
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unlabeled"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, label)
}
