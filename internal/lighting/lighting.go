// Package lighting switches between procedural lights and an image-based
// environment. The two setups are mutually exclusive; the inactive one's
// parameters are kept.
package lighting

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Mode selects the active lighting setup.
type Mode int

const (
	Procedural Mode = iota
	ImageBased
)

func (m Mode) String() string {
	if m == ImageBased {
		return "image"
	}
	return "procedural"
}

// ParseMode accepts "procedural" or "image" (also "hdri", "image_based").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "procedural", "lights":
		return Procedural, nil
	case "image", "image_based", "hdri", "environment":
		return ImageBased, nil
	}
	return Procedural, fmt.Errorf("unknown lighting mode %q", s)
}

// Lights are the procedural parameters.
type Lights struct {
	Ambient             float32
	Directional         float32
	DirectionalPosition mgl32.Vec3
}

// DefaultLights returns an ambient fill of 0.6 and a key light of 1.0 at
// (5, 5, 5).
func DefaultLights() Lights {
	return Lights{Ambient: 0.6, Directional: 1, DirectionalPosition: mgl32.Vec3{5, 5, 5}}
}

// Setup is what the renderer applies for one frame.
type Setup struct {
	Mode        Mode
	Ambient     float32
	Directional float32
	// LightDir points from the surface toward the directional light.
	LightDir mgl32.Vec3

	// Environment is nil in procedural mode and in image mode before an
	// image has been supplied; the scene is then unlit.
	Environment          *EnvironmentMap
	EnvironmentIntensity float32
}

// Lit reports whether anything contributes light.
func (s Setup) Lit() bool {
	return s.Ambient > 0 || s.Directional > 0 || (s.Environment != nil && s.EnvironmentIntensity > 0)
}

// Controller holds both configurations and the active mode.
type Controller struct {
	mode      Mode
	lights    Lights
	env       *EnvironmentMap
	intensity float32
}

// NewController starts in procedural mode.
func NewController(lights Lights, envIntensity float32) *Controller {
	c := &Controller{intensity: 1}
	c.SetLights(lights)
	c.SetEnvironmentIntensity(envIntensity)
	return c
}

// Mode returns the active mode.
func (c *Controller) Mode() Mode { return c.mode }

// SetMode switches the active setup.
func (c *Controller) SetMode(m Mode) { c.mode = m }

// Lights returns the procedural parameters, active or not.
func (c *Controller) Lights() Lights { return c.lights }

// SetLights replaces the procedural parameters. Negative intensities are
// clamped to zero.
func (c *Controller) SetLights(l Lights) {
	l.Ambient = max(l.Ambient, 0)
	l.Directional = max(l.Directional, 0)
	c.lights = l
}

// SetAmbient sets the ambient intensity.
func (c *Controller) SetAmbient(v float32) {
	c.lights.Ambient = max(v, 0)
}

// SetDirectional sets the directional intensity.
func (c *Controller) SetDirectional(v float32) {
	c.lights.Directional = max(v, 0)
}

// SetDirectionalPosition moves the directional light; it always aims at
// the origin.
func (c *Controller) SetDirectionalPosition(p mgl32.Vec3) {
	c.lights.DirectionalPosition = p
}

// Environment returns the loaded environment image, if any.
func (c *Controller) Environment() *EnvironmentMap { return c.env }

// SetEnvironment installs a decoded environment image.
func (c *Controller) SetEnvironment(env *EnvironmentMap) { c.env = env }

// EnvironmentIntensity returns the image-based multiplier.
func (c *Controller) EnvironmentIntensity() float32 { return c.intensity }

// SetEnvironmentIntensity sets the image-based multiplier, clamped to >= 0.
func (c *Controller) SetEnvironmentIntensity(v float32) {
	c.intensity = max(v, 0)
}

// Setup returns the effective contributions for the active mode only.
func (c *Controller) Setup() Setup {
	if c.mode == ImageBased {
		return Setup{
			Mode:                 ImageBased,
			Environment:          c.env,
			EnvironmentIntensity: c.intensity,
		}
	}

	dir := c.lights.DirectionalPosition
	if dir.Len() > 0 {
		dir = dir.Normalize()
	} else {
		dir = mgl32.Vec3{0, 1, 0}
	}
	return Setup{
		Mode:        Procedural,
		Ambient:     c.lights.Ambient,
		Directional: c.lights.Directional,
		LightDir:    dir,
	}
}
