// Package binding connects the property panel's editable fields to the
// material and local position of the selected mesh.
package binding

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/folio-viewer/internal/highlight"
	"github.com/Faultbox/folio-viewer/internal/scene"
)

// Fields are the values shown in the property panel.
type Fields struct {
	Color     scene.Color
	Metalness float32
	Roughness float32
	Position  mgl32.Vec3
}

// Resolver returns the live selection at the moment of the call.
type Resolver interface {
	Selected() (*scene.Node, highlight.Ref)
}

// Controller pulls fields once per new selection and pushes each edit to
// whatever mesh is selected when the edit is processed.
type Controller struct {
	sel    Resolver
	fields Fields
	synced highlight.Ref
}

// NewController returns a controller showing defaults until the first
// selection.
func NewController(sel Resolver, defaults Fields) *Controller {
	return &Controller{sel: sel, fields: defaults}
}

// Fields returns the current panel values.
func (c *Controller) Fields() Fields {
	return c.fields
}

// Active reports whether edits currently have a target.
func (c *Controller) Active() bool {
	n, _ := c.sel.Selected()
	return n != nil
}

// Sync snapshots the selected mesh into the fields when the selection moved
// to a different non-empty reference. An empty selection leaves the fields
// untouched.
func (c *Controller) Sync() {
	n, ref := c.sel.Selected()
	if n == nil {
		c.synced = highlight.None
		return
	}
	if ref == c.synced {
		return
	}
	c.synced = ref
	c.fields.Position = n.Position
	if m := n.Mesh.Material; m != nil {
		c.fields.Color = m.Color
		c.fields.Metalness = m.Metalness
		c.fields.Roughness = m.Roughness
	}
}

// target returns the selected mesh's node and material, or false when
// edits must be dropped.
func (c *Controller) target() (*scene.Node, *scene.Material, bool) {
	n, _ := c.sel.Selected()
	if n == nil || n.Mesh == nil || n.Mesh.Material == nil {
		return nil, nil, false
	}
	return n, n.Mesh.Material, true
}

// SetColor applies a base color to the selected mesh.
func (c *Controller) SetColor(col scene.Color) bool {
	_, m, ok := c.target()
	if !ok {
		return false
	}
	for i := range col {
		col[i] = clamp01(col[i])
	}
	m.Color = col
	c.fields.Color = col
	return true
}

// SetMetalness applies metalness, clamped to [0,1].
func (c *Controller) SetMetalness(v float32) bool {
	_, m, ok := c.target()
	if !ok {
		return false
	}
	m.Metalness = clamp01(v)
	c.fields.Metalness = m.Metalness
	return true
}

// SetRoughness applies roughness, clamped to [0,1].
func (c *Controller) SetRoughness(v float32) bool {
	_, m, ok := c.target()
	if !ok {
		return false
	}
	m.Roughness = clamp01(v)
	c.fields.Roughness = m.Roughness
	return true
}

// SetPosition moves the selected mesh node in its parent's space.
func (c *Controller) SetPosition(p mgl32.Vec3) bool {
	n, _, ok := c.target()
	if !ok {
		return false
	}
	n.Position = p
	c.fields.Position = p
	return true
}

func clamp01(v float32) float32 {
	return mgl32.Clamp(v, 0, 1)
}
