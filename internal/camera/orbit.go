// Package camera provides the orbit camera and the preset view controller.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

var worldUp = mgl32.Vec3{0, 1, 0}

// Range is an inclusive [Min, Max] clamp.
type Range struct{ Min, Max float32 }

func (r Range) clamp(v float32) float32 { return mgl32.Clamp(v, r.Min, r.Max) }

// OrbitCamera looks at Center from spherical coordinates around it.
// Pitch and Yaw are radians; Yaw 0 puts the camera on +Z.
type OrbitCamera struct {
	Center   mgl32.Vec3
	Distance float32
	Pitch    float32
	Yaw      float32

	DistanceRange Range
	PitchRange    Range

	// Per pixel for drag and pan, per wheel notch for zoom.
	RotateSpeed float32
	ZoomStep    float32
	PanSpeed    float32
}

// NewOrbitCamera returns a camera on +Z at distance looking at the origin.
// Zoom is limited to 1/20 .. 50x the starting distance.
func NewOrbitCamera(distance float32) *OrbitCamera {
	return &OrbitCamera{
		Distance:      distance,
		DistanceRange: Range{distance / 20, distance * 50},
		PitchRange:    Range{-1.5, 1.5},
		RotateSpeed:   0.005,
		ZoomStep:      0.1,
		PanSpeed:      0.002,
	}
}

// Position is the eye point in world space.
func (c *OrbitCamera) Position() mgl32.Vec3 {
	sp, cp := math.Sincos(float64(c.Pitch))
	sy, cy := math.Sincos(float64(c.Yaw))
	dir := mgl32.Vec3{float32(cp * sy), float32(sp), float32(cp * cy)}
	return c.Center.Add(dir.Mul(c.Distance))
}

func (c *OrbitCamera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position(), c.Center, worldUp)
}

// HandleDrag rotates by a pointer delta in pixels. Pitch stops short of the
// poles.
func (c *OrbitCamera) HandleDrag(dx, dy float32) {
	c.Yaw -= dx * c.RotateSpeed
	c.Pitch = c.PitchRange.clamp(c.Pitch + dy*c.RotateSpeed)
}

// HandleZoom scales distance by ZoomStep per wheel notch; positive moves in.
func (c *OrbitCamera) HandleZoom(notches float32) {
	c.Distance = c.DistanceRange.clamp(c.Distance * (1 - notches*c.ZoomStep))
}

// HandlePan slides Center in the view plane. The step grows with distance.
func (c *OrbitCamera) HandlePan(dx, dy float32) {
	forward := c.Center.Sub(c.Position()).Normalize()
	right := forward.Cross(worldUp)
	if right.Len() < 1e-6 {
		right = mgl32.Vec3{1, 0, 0}
	}
	right = right.Normalize()
	up := right.Cross(forward)

	step := c.Distance * c.PanSpeed
	c.Center = c.Center.Add(up.Mul(dy * step)).Sub(right.Mul(dx * step))
}

// FitToBounds centers on a box and backs off to 2.5x its half-diagonal.
// A degenerate box only moves the center.
func (c *OrbitCamera) FitToBounds(min, max mgl32.Vec3) {
	c.Center = min.Add(max).Mul(0.5)
	if radius := max.Sub(min).Len() / 2; radius > 0 {
		c.Distance = c.DistanceRange.clamp(radius * 2.5)
	}
}
