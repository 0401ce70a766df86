package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Mesh is renderable geometry paired with exactly one material.
type Mesh struct {
	Geometry *Geometry
	Material *Material
}

// Geometry is an indexed triangle list. Indices may be empty, in which case
// every three consecutive positions form a triangle.
type Geometry struct {
	Positions [][3]float32
	Normals   [][3]float32
	Indices   []uint32
}

// TriangleCount returns the number of triangles in the geometry.
func (g *Geometry) TriangleCount() int {
	if len(g.Indices) > 0 {
		return len(g.Indices) / 3
	}
	return len(g.Positions) / 3
}

// Triangle returns the vertex positions of triangle i.
func (g *Geometry) Triangle(i int) (a, b, c [3]float32) {
	if len(g.Indices) > 0 {
		return g.Positions[g.Indices[i*3]], g.Positions[g.Indices[i*3+1]], g.Positions[g.Indices[i*3+2]]
	}
	return g.Positions[i*3], g.Positions[i*3+1], g.Positions[i*3+2]
}

// LocalBounds returns the axis-aligned bounds in the geometry's own space.
func (g *Geometry) LocalBounds() (min, max [3]float32) {
	if len(g.Positions) == 0 {
		return min, max
	}
	min, max = g.Positions[0], g.Positions[0]
	for _, p := range g.Positions[1:] {
		for i := 0; i < 3; i++ {
			if p[i] < min[i] {
				min[i] = p[i]
			}
			if p[i] > max[i] {
				max[i] = p[i]
			}
		}
	}
	return min, max
}

// ComputeNormals replaces Normals with area-weighted vertex normals.
// For non-indexed geometry this produces flat face normals.
func (g *Geometry) ComputeNormals() {
	normals := make([]mgl32.Vec3, len(g.Positions))
	for i := 0; i < g.TriangleCount(); i++ {
		var ia, ib, ic int
		if len(g.Indices) > 0 {
			ia, ib, ic = int(g.Indices[i*3]), int(g.Indices[i*3+1]), int(g.Indices[i*3+2])
		} else {
			ia, ib, ic = i*3, i*3+1, i*3+2
		}
		a, b, c := mgl32.Vec3(g.Positions[ia]), mgl32.Vec3(g.Positions[ib]), mgl32.Vec3(g.Positions[ic])
		face := b.Sub(a).Cross(c.Sub(a))
		normals[ia] = normals[ia].Add(face)
		normals[ib] = normals[ib].Add(face)
		normals[ic] = normals[ic].Add(face)
	}

	g.Normals = make([][3]float32, len(normals))
	for i, n := range normals {
		if n.Len() == 0 {
			g.Normals[i] = [3]float32{0, 1, 0}
			continue
		}
		g.Normals[i] = n.Normalize()
	}
}
