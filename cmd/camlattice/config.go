package main

import (
	"fmt"
	"os"

	"github.com/phanxgames/camlattice"
	"gopkg.in/yaml.v3"
)

// Config holds the defaults applied before command-line flags.
type Config struct {
	Camera    CameraConfig    `yaml:"camera"`
	Divisions DivisionsConfig `yaml:"divisions"`
	Workers   int             `yaml:"workers"`
}

// CameraConfig mirrors the camera attributes of a scene file.
type CameraConfig struct {
	NearClip               float64 `yaml:"nearClipPlane"`
	FocalLength            float64 `yaml:"focalLength"`
	HorizontalFilmAperture float64 `yaml:"horizontalFilmAperture"`
	VerticalFilmAperture   float64 `yaml:"verticalFilmAperture"`
	Orthographic           bool    `yaml:"orthographic"`
	OrthographicWidth      float64 `yaml:"orthographicWidth"`
}

// DivisionsConfig is the default lattice resolution.
type DivisionsConfig struct {
	S int `yaml:"s"`
	T int `yaml:"t"`
}

// DefaultConfig returns the host camera defaults and 10x10 divisions.
func DefaultConfig() Config {
	c := camlattice.DefaultCameraShape()
	return Config{
		Camera: CameraConfig{
			NearClip:               c.NearClip,
			FocalLength:            c.FocalLength,
			HorizontalFilmAperture: c.HorizontalFilmAperture,
			VerticalFilmAperture:   c.VerticalFilmAperture,
			Orthographic:           c.Orthographic,
			OrthographicWidth:      c.OrthographicWidth,
		},
		Divisions: DivisionsConfig{S: camlattice.DefaultDivisions, T: camlattice.DefaultDivisions},
	}
}

// LoadConfig reads path over the defaults. Keys missing from the file keep
// their default value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := camlattice.ValidateDivisions(cfg.Divisions.S, cfg.Divisions.T); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	shape := cfg.Camera.Shape()
	if err := shape.Validate(); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Shape converts the config to a camera shape.
func (c CameraConfig) Shape() camlattice.CameraShape {
	return camlattice.CameraShape{
		NearClip:               c.NearClip,
		FocalLength:            c.FocalLength,
		HorizontalFilmAperture: c.HorizontalFilmAperture,
		VerticalFilmAperture:   c.VerticalFilmAperture,
		Orthographic:           c.Orthographic,
		OrthographicWidth:      c.OrthographicWidth,
	}
}
