package camlattice

import (
	"fmt"
	"math"
)

// Film apertures are stored in inches, focal length in millimetres.
const mmPerInch = 25.4

// Distance in front of the near clip plane at which a lattice is placed.
const (
	orthoLatticeOffset       = 0.04
	perspectiveLatticeOffset = 0.0001
)

// CameraShape holds the projection parameters of a camera node.
type CameraShape struct {
	NearClip               float64
	FocalLength            float64 // mm
	HorizontalFilmAperture float64 // inches
	VerticalFilmAperture   float64 // inches
	Orthographic           bool
	OrthographicWidth      float64
}

// DefaultCameraShape returns the parameters of a freshly created host camera.
func DefaultCameraShape() CameraShape {
	return CameraShape{
		NearClip:               0.1,
		FocalLength:            35,
		HorizontalFilmAperture: 1.417,
		VerticalFilmAperture:   0.945,
		OrthographicWidth:      30,
	}
}

// Validate reports parameters that would produce a degenerate film frame.
func (c *CameraShape) Validate() error {
	switch {
	case c.NearClip <= 0:
		return fmt.Errorf("near clip %g: %w", c.NearClip, ErrInvalidCamera)
	case c.FocalLength <= 0:
		return fmt.Errorf("focal length %g: %w", c.FocalLength, ErrInvalidCamera)
	case c.HorizontalFilmAperture <= 0 || c.VerticalFilmAperture <= 0:
		return fmt.Errorf("film aperture %gx%g: %w",
			c.HorizontalFilmAperture, c.VerticalFilmAperture, ErrInvalidCamera)
	case c.Orthographic && c.OrthographicWidth <= 0:
		return fmt.Errorf("orthographic width %g: %w", c.OrthographicWidth, ErrInvalidCamera)
	}
	return nil
}

// LatticeTransform is the lattice placement derived from camera parameters.
type LatticeTransform struct {
	ScaleX     float64
	ScaleY     float64
	TranslateZ float64
}

// LatticeTransform computes the scale and depth that make a unit lattice
// exactly cover the camera gate just in front of the near clip plane.
func (c *CameraShape) LatticeTransform() LatticeTransform {
	if c.Orthographic {
		return LatticeTransform{
			ScaleX:     c.OrthographicWidth,
			ScaleY:     c.OrthographicWidth,
			TranslateZ: -c.NearClip - orthoLatticeOffset,
		}
	}
	w := c.HorizontalFilmAperture * mmPerInch
	h := c.VerticalFilmAperture * mmPerInch
	wfov := 2 * math.Atan(0.5*w/c.FocalLength)
	hfov := 2 * math.Atan(0.5*h/c.FocalLength)
	return LatticeTransform{
		ScaleX:     2 * math.Tan(wfov/2) * c.NearClip,
		ScaleY:     2 * math.Tan(hfov/2) * c.NearClip,
		TranslateZ: -c.NearClip - perspectiveLatticeOffset,
	}
}

// FilmFrame returns the gate extent the deformer normalizes by: world units
// for orthographic cameras, extent at unit depth for perspective ones.
func (c *CameraShape) FilmFrame() (h, v float64) {
	if c.Orthographic {
		return c.OrthographicWidth, c.OrthographicWidth
	}
	hfov := 2 * math.Atan(0.5*c.HorizontalFilmAperture*mmPerInch/c.FocalLength)
	vfov := 2 * math.Atan(0.5*c.VerticalFilmAperture*mmPerInch/c.FocalLength)
	return 2 * math.Tan(hfov/2), 2 * math.Tan(vfov/2)
}
