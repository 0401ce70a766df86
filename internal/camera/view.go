package camera

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// View selects between user-driven orbiting and the six fixed poses.
type View int

const (
	Free View = iota
	Front
	Back
	Top
	Bottom
	Left
	Right
)

var viewNames = [...]string{"free", "front", "back", "top", "bottom", "left", "right"}

// Views lists every view in menu order.
func Views() []View {
	return []View{Free, Front, Back, Top, Bottom, Left, Right}
}

func (v View) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return fmt.Sprintf("View(%d)", int(v))
	}
	return viewNames[v]
}

// ParseView maps a name like "top" to its View, case-insensitively.
func ParseView(s string) (View, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range viewNames {
		if name == s {
			return View(i), nil
		}
	}
	return Free, fmt.Errorf("unknown camera view %q", s)
}

// axis returns the unit direction from the origin to the preset pose.
func (v View) axis() mgl32.Vec3 {
	switch v {
	case Front:
		return mgl32.Vec3{0, 0, 1}
	case Back:
		return mgl32.Vec3{0, 0, -1}
	case Top:
		return mgl32.Vec3{0, 1, 0}
	case Bottom:
		return mgl32.Vec3{0, -1, 0}
	case Left:
		return mgl32.Vec3{-1, 0, 0}
	case Right:
		return mgl32.Vec3{1, 0, 0}
	}
	return mgl32.Vec3{}
}

// up is the view-up vector; the vertical presets need one off the Y axis.
func (v View) up() mgl32.Vec3 {
	switch v {
	case Top:
		return mgl32.Vec3{0, 0, -1}
	case Bottom:
		return mgl32.Vec3{0, 0, 1}
	}
	return mgl32.Vec3{0, 1, 0}
}

// ViewController drives the active camera. Fixed views are recomputed from
// the radius on every query; Free defers to the orbit camera, whose state
// survives excursions to fixed views.
type ViewController struct {
	view   View
	radius float32
	orbit  *OrbitCamera
}

// NewViewController starts in Free at (0, 0, radius).
func NewViewController(radius float32) *ViewController {
	return &ViewController{radius: radius, orbit: NewOrbitCamera(radius)}
}

// SetView switches the active view.
func (c *ViewController) SetView(v View) {
	c.view = v
}

// View returns the active view.
func (c *ViewController) View() View {
	return c.view
}

// Radius is the fixed-view distance from the origin.
func (c *ViewController) Radius() float32 {
	return c.radius
}

// Orbit exposes the free-mode camera.
func (c *ViewController) Orbit() *OrbitCamera {
	return c.orbit
}

// InputEnabled reports whether orbit, pan and zoom input is accepted.
func (c *ViewController) InputEnabled() bool {
	return c.view == Free
}

// Position returns the camera position for the active view.
func (c *ViewController) Position() mgl32.Vec3 {
	if c.view == Free {
		return c.orbit.Position()
	}
	return c.view.axis().Mul(c.radius)
}

// Target returns the point the camera looks at.
func (c *ViewController) Target() mgl32.Vec3 {
	if c.view == Free {
		return c.orbit.Center
	}
	return mgl32.Vec3{}
}

// ViewMatrix returns the view matrix for the active view.
func (c *ViewController) ViewMatrix() mgl32.Mat4 {
	if c.view == Free {
		return c.orbit.ViewMatrix()
	}
	return mgl32.LookAtV(c.Position(), mgl32.Vec3{}, c.view.up())
}

// HandleDrag orbits in Free and is ignored otherwise.
func (c *ViewController) HandleDrag(dx, dy float32) {
	if c.InputEnabled() {
		c.orbit.HandleDrag(dx, dy)
	}
}

// HandleZoom zooms in Free and is ignored otherwise.
func (c *ViewController) HandleZoom(delta float32) {
	if c.InputEnabled() {
		c.orbit.HandleZoom(delta)
	}
}

// HandlePan pans in Free and is ignored otherwise.
func (c *ViewController) HandlePan(dx, dy float32) {
	if c.InputEnabled() {
		c.orbit.HandlePan(dx, dy)
	}
}
