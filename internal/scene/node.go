// Package scene holds the normalized scene graph produced by the format
// decoders: group nodes with a local transform and mesh leaves carrying
// geometry and one material.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Node is one element of a scene graph. A node with a non-nil Mesh is a
// mesh leaf; decoders never attach children to mesh nodes they create, but
// glTF hierarchies may, so callers must not rely on leaves being childless.
type Node struct {
	Name     string
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
	Children []*Node
	Mesh     *Mesh
}

// NewGroup creates an empty node with an identity transform.
func NewGroup(name string) *Node {
	return &Node{
		Name:     name,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// NewMeshNode creates a leaf node carrying the given mesh.
func NewMeshNode(name string, mesh *Mesh) *Node {
	n := NewGroup(name)
	n.Mesh = mesh
	return n
}

// AddChild appends child to n.
func (n *Node) AddChild(child *Node) {
	n.Children = append(n.Children, child)
}

// LocalMatrix composes translation * rotation * scale.
func (n *Node) LocalMatrix() mgl32.Mat4 {
	t := mgl32.Translate3D(n.Position[0], n.Position[1], n.Position[2])
	r := n.Rotation.Normalize().Mat4()
	s := mgl32.Scale3D(n.Scale[0], n.Scale[1], n.Scale[2])
	return t.Mul4(r).Mul4(s)
}

// Walk visits n and every descendant depth-first, passing the accumulated
// world matrix. Returning false from fn skips the node's children.
func (n *Node) Walk(parent mgl32.Mat4, fn func(node *Node, world mgl32.Mat4) bool) {
	world := parent.Mul4(n.LocalMatrix())
	if !fn(n, world) {
		return
	}
	for _, c := range n.Children {
		c.Walk(world, fn)
	}
}

// Meshes returns every mesh node under n in depth-first order. The order is
// stable for an unmodified tree, which the composition layer relies on to
// hand out mesh indices.
func (n *Node) Meshes() []*Node {
	var out []*Node
	n.Walk(mgl32.Ident4(), func(node *Node, _ mgl32.Mat4) bool {
		if node.Mesh != nil {
			out = append(out, node)
		}
		return true
	})
	return out
}

// WorldMatrices returns the world matrix of every mesh node, keyed by node.
func (n *Node) WorldMatrices(parent mgl32.Mat4) map[*Node]mgl32.Mat4 {
	out := make(map[*Node]mgl32.Mat4)
	n.Walk(parent, func(node *Node, world mgl32.Mat4) bool {
		if node.Mesh != nil {
			out[node] = world
		}
		return true
	})
	return out
}

// Bounds returns the world-space bounding box of all geometry under n.
// ok is false when the subtree holds no vertices.
func (n *Node) Bounds() (min, max mgl32.Vec3, ok bool) {
	n.Walk(mgl32.Ident4(), func(node *Node, world mgl32.Mat4) bool {
		if node.Mesh == nil || node.Mesh.Geometry == nil {
			return true
		}
		for _, p := range node.Mesh.Geometry.Positions {
			w := mgl32.TransformCoordinate(mgl32.Vec3(p), world)
			if !ok {
				min, max, ok = w, w, true
				continue
			}
			for i := 0; i < 3; i++ {
				if w[i] < min[i] {
					min[i] = w[i]
				}
				if w[i] > max[i] {
					max[i] = w[i]
				}
			}
		}
		return true
	})
	return min, max, ok
}
