package preview

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/phanxgames/camlattice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hello", "hello"},
		{"frame12", "frame12"},
		{"frame.5", "frame.5"},
		{"snake_case", "snake_case"},
		{"has spaces", "has_spaces"},
		{"path/to/thing", "path_to_thing"},
		{"", "unlabeled"},
		{"   ", "unlabeled"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeLabel(tt.in), "sanitizeLabel(%q)", tt.in)
	}
}

func TestScreenshotQueue(t *testing.T) {
	_, cam, _ := orthoRig(t)
	g, err := New(cam.Scene(), Config{Camera: cam})
	require.NoError(t, err)
	g.Screenshot("a")
	g.Screenshot("b")
	assert.Equal(t, []string{"a", "b"}, g.screenshotQueue)
	assert.Equal(t, "screenshots", g.cfg.ScreenshotDir)
}

func TestShotPath(t *testing.T) {
	s, cam, _ := orthoRig(t)
	g, err := New(s, Config{Camera: cam, ScreenshotDir: "out"})
	require.NoError(t, err)
	s.SetTime(11.6)
	assert.Equal(t, filepath.Join("out", cam.Name+"_f0012_view.png"), g.shotPath("view"))
	assert.Equal(t, filepath.Join("out", cam.Name+"_f0012_a_b.png"), g.shotPath("a/b"))
}

func TestNewDefaults(t *testing.T) {
	_, cam, _ := orthoRig(t)
	g, err := New(cam.Scene(), Config{Camera: cam})
	require.NoError(t, err)
	w, h := g.Layout(0, 0)
	assert.Equal(t, 960, w)
	// ortho film frame is square
	assert.Equal(t, 960, h)
	assert.InDelta(t, 0.05, g.cfg.Margin, 1e-12)

	_, err = New(cam.Scene(), Config{})
	assert.ErrorIs(t, err, camlattice.ErrNotCamera)
}

func TestWritePNG(t *testing.T) {
	img := frameImage([]byte{
		128, 64, 0, 128, // half transparent
		255, 255, 255, 255,
	}, 2, 1)
	assert.Equal(t, []byte{255, 127, 0, 128, 255, 255, 255, 255}, img.Pix)

	path := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, writePNG(path, img))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	decoded, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 2, decoded.Bounds().Dx())
}
