package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/phanxgames/camlattice"
	"github.com/phanxgames/camlattice/preview"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// cameraFlags binds the camera shape flags of a command over the config
// defaults. Only flags the user set override the config.
type cameraFlags struct {
	cmd   *cobra.Command
	shape camlattice.CameraShape
}

func addCameraFlags(cmd *cobra.Command) *cameraFlags {
	cf := &cameraFlags{cmd: cmd}
	f := cmd.Flags()
	f.Float64Var(&cf.shape.FocalLength, "focal", 0, "focal length in millimetres")
	f.Float64Var(&cf.shape.NearClip, "near", 0, "near clip plane")
	f.Float64Var(&cf.shape.HorizontalFilmAperture, "h-aperture", 0, "horizontal film aperture in inches")
	f.Float64Var(&cf.shape.VerticalFilmAperture, "v-aperture", 0, "vertical film aperture in inches")
	f.BoolVar(&cf.shape.Orthographic, "ortho", false, "orthographic camera")
	f.Float64Var(&cf.shape.OrthographicWidth, "ortho-width", 0, "orthographic width")
	return cf
}

func (cf *cameraFlags) resolve(base camlattice.CameraShape) (camlattice.CameraShape, error) {
	f := cf.cmd.Flags()
	if f.Changed("focal") {
		base.FocalLength = cf.shape.FocalLength
	}
	if f.Changed("near") {
		base.NearClip = cf.shape.NearClip
	}
	if f.Changed("h-aperture") {
		base.HorizontalFilmAperture = cf.shape.HorizontalFilmAperture
	}
	if f.Changed("v-aperture") {
		base.VerticalFilmAperture = cf.shape.VerticalFilmAperture
	}
	if f.Changed("ortho") {
		base.Orthographic = cf.shape.Orthographic
	}
	if f.Changed("ortho-width") {
		base.OrthographicWidth = cf.shape.OrthographicWidth
	}
	return base, base.Validate()
}

func (a *app) sceneOptions() []camlattice.Option {
	return []camlattice.Option{
		camlattice.WithLogger(a.logger),
		camlattice.WithWorkers(a.cfg.Workers),
		camlattice.WithDebug(a.verbose),
	}
}

// --- create ---

type createOptions struct {
	camera *cameraFlags
	name   string
	s, t   int
	meshes []string
	out    string
}

func (a *app) createCmd() *cobra.Command {
	opts := &createOptions{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a camera with a lattice and save the scene",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCreate(cmd, opts)
		},
	}
	opts.camera = addCameraFlags(cmd)
	cmd.Flags().StringVar(&opts.name, "camera", "camera1", "camera node name")
	cmd.Flags().IntVar(&opts.s, "s", 0, "s divisions (config default when zero)")
	cmd.Flags().IntVar(&opts.t, "t", 0, "t divisions (config default when zero)")
	cmd.Flags().StringArrayVar(&opts.meshes, "mesh", nil, "OBJ file to import and attach (repeatable)")
	cmd.Flags().StringVarP(&opts.out, "output", "o", "scene.yaml", "scene file to write")
	return cmd
}

func (a *app) runCreate(cmd *cobra.Command, opts *createOptions) error {
	shape, err := opts.camera.resolve(a.cfg.Camera.Shape())
	if err != nil {
		return err
	}
	sDiv := orDefault(opts.s, a.cfg.Divisions.S)
	tDiv := orDefault(opts.t, a.cfg.Divisions.T)

	s := camlattice.NewScene(a.sceneOptions()...)
	cam, err := s.CreateCamera(opts.name, shape)
	if err != nil {
		return err
	}
	lattice, err := s.CreateCameraLattice(cam, sDiv, tDiv)
	if err != nil {
		return err
	}

	var objects []*camlattice.Node
	for _, path := range opts.meshes {
		mesh, err := importMesh(s, path)
		if err != nil {
			return err
		}
		objects = append(objects, mesh)
	}
	if len(objects) > 0 {
		if _, err := s.AttachObjects(lattice, objects...); err != nil {
			return err
		}
	}

	if err := s.SaveSceneFile(opts.out); err != nil {
		return err
	}
	a.logger.Info("scene created",
		zap.String("path", opts.out),
		zap.String("lattice", lattice.Name),
		zap.Int("meshes", len(objects)))
	fmt.Fprintf(cmd.OutOrStdout(), "created %s on %s (%dx%d) -> %s\n",
		lattice.Name, cam.Name, sDiv, tDiv, opts.out)
	return nil
}

func importMesh(s *camlattice.Scene, path string) (*camlattice.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return s.ImportOBJ(name, f)
}

// --- translate ---

func (a *app) translateCmd() *cobra.Command {
	var camera *cameraFlags
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Print the lattice placement for camera parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			shape, err := camera.resolve(a.cfg.Camera.Shape())
			if err != nil {
				return err
			}
			return printTransform(cmd.OutOrStdout(), shape.LatticeTransform())
		},
	}
	camera = addCameraFlags(cmd)
	return cmd
}

func printTransform(w io.Writer, lt camlattice.LatticeTransform) error {
	_, err := fmt.Fprintf(w, "scaleX: %g\nscaleY: %g\ntranslateZ: %g\n",
		lt.ScaleX, lt.ScaleY, lt.TranslateZ)
	return err
}

// --- deform ---

type deformOptions struct {
	time float64
	out  string
}

func (a *app) deformCmd() *cobra.Command {
	opts := &deformOptions{}
	cmd := &cobra.Command{
		Use:   "deform <scene.yaml>",
		Short: "Evaluate every mesh at a frame and export it as OBJ",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDeform(cmd, args[0], opts)
		},
	}
	cmd.Flags().Float64Var(&opts.time, "time", 0, "frame to evaluate at")
	cmd.Flags().StringVarP(&opts.out, "output", "o", "deformed", "directory for the OBJ files")
	return cmd
}

func (a *app) runDeform(cmd *cobra.Command, path string, opts *deformOptions) error {
	s, err := camlattice.LoadSceneFile(path, a.sceneOptions()...)
	if err != nil {
		return err
	}
	s.SetTime(opts.time)
	if err := s.EvaluateAll(cmd.Context()); err != nil {
		return err
	}
	if err := os.MkdirAll(opts.out, 0o755); err != nil {
		return err
	}

	var errs error
	meshes := s.Nodes(camlattice.NodeTypeMesh)
	for _, mesh := range meshes {
		errs = multierr.Append(errs, exportMesh(s, mesh, filepath.Join(opts.out, mesh.Name+".obj")))
	}
	if errs != nil {
		return errs
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %d meshes at frame %g to %s\n", len(meshes), opts.time, opts.out)
	return nil
}

func exportMesh(s *camlattice.Scene, mesh *camlattice.Node, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()
	return s.ExportOBJ(f, mesh)
}

// --- info ---

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <scene.yaml>",
		Short: "List the cameras, lattices, deformers and influence areas of a scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := camlattice.LoadSceneFile(args[0], a.sceneOptions()...)
			if err != nil {
				return err
			}
			writeInfo(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func writeInfo(w io.Writer, s *camlattice.Scene) {
	for _, cam := range s.Nodes(camlattice.NodeTypeCamera) {
		c := cam.Camera
		proj := "perspective"
		if c.Orthographic {
			proj = "orthographic"
		}
		fmt.Fprintf(w, "camera %s %s focal=%g near=%g\n", cam.Name, proj, c.FocalLength, c.NearClip)
		for _, l := range s.LatticesOf(cam) {
			shape := l.Lattice
			fmt.Fprintf(w, "  lattice %s %dx%d %s edited=%d animated=%d\n",
				l.Name, shape.SDivisions, shape.TDivisions, shape.Interpolation,
				len(shape.EditedPoints()), len(shape.AnimatedPoints()))
			for _, d := range s.DeformersOf(l) {
				fmt.Fprintf(w, "    deformer %s -> %s\n", d.Name, d.Deformer.Object().Name)
			}
			for _, area := range s.InfluenceAreas(l) {
				fmt.Fprintf(w, "    influence %s falloff=%g\n", area.Name, area.Influence.Falloff)
			}
		}
	}
}

// --- run ---

type runOptions struct {
	scene string
	out   string
}

func (a *app) runCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <script.yaml>",
		Short: "Run a rig script and optionally save the resulting scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScript(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.scene, "scene", "", "scene file to start from")
	cmd.Flags().StringVarP(&opts.out, "output", "o", "", "scene file to write")
	return cmd
}

func (a *app) runScript(cmd *cobra.Command, path string, opts *runOptions) error {
	script, err := camlattice.LoadScriptFile(path)
	if err != nil {
		return err
	}
	var s *camlattice.Scene
	if opts.scene != "" {
		if s, err = camlattice.LoadSceneFile(opts.scene, a.sceneOptions()...); err != nil {
			return err
		}
	} else {
		s = camlattice.NewScene(a.sceneOptions()...)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := script.Run(ctx, s); err != nil {
		return err
	}
	if opts.out != "" {
		if err := s.SaveSceneFile(opts.out); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ran %d steps\n", len(script.Steps))
	return nil
}

// --- preview ---

type previewOptions struct {
	camera     string
	width      int
	screenshot string
}

func (a *app) previewCmd() *cobra.Command {
	opts := &previewOptions{}
	cmd := &cobra.Command{
		Use:   "preview <scene.yaml>",
		Short: "Open a window drawing the scene through a camera",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := camlattice.LoadSceneFile(args[0], a.sceneOptions()...)
			if err != nil {
				return err
			}
			cfg := preview.Config{Width: opts.width, ScreenshotDir: opts.screenshot, ShowInfo: true}
			if opts.camera != "" {
				if cfg.Camera, err = s.Lookup(opts.camera); err != nil {
					return err
				}
			} else if cams := s.Nodes(camlattice.NodeTypeCamera); len(cams) > 0 {
				cfg.Camera = cams[0]
			}
			g, err := preview.New(s, cfg)
			if err != nil {
				return err
			}
			return preview.Run(g, "camlattice - "+filepath.Base(args[0]))
		},
	}
	cmd.Flags().StringVar(&opts.camera, "camera", "", "camera to look through (first camera when empty)")
	cmd.Flags().IntVar(&opts.width, "width", 0, "window width")
	cmd.Flags().StringVar(&opts.screenshot, "screenshots", "", "screenshot directory")
	return cmd
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
