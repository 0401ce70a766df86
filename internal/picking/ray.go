// Package picking provides ray casting and nearest-hit selection.
package picking

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/folio-viewer/internal/scene"
)

const epsilon = 1e-7

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3 // Normalized direction
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// ScreenToRay converts screen coordinates to a world-space ray.
// screenX, screenY are pixel coordinates, viewportW/H are viewport dimensions.
// invViewProj is the inverse of the view-projection matrix.
func ScreenToRay(screenX, screenY, viewportW, viewportH float32, invViewProj mgl32.Mat4) Ray {
	ndcX := 2*screenX/viewportW - 1
	ndcY := 1 - 2*screenY/viewportH // Flip Y

	near := unproject(invViewProj, mgl32.Vec4{ndcX, ndcY, -1, 1})
	far := unproject(invViewProj, mgl32.Vec4{ndcX, ndcY, 1, 1})

	dir := far.Sub(near)
	if dir.Len() > 0 {
		dir = dir.Normalize()
	}
	return Ray{Origin: near, Direction: dir}
}

func unproject(inv mgl32.Mat4, p mgl32.Vec4) mgl32.Vec3 {
	w := inv.Mul4x1(p)
	if w[3] != 0 {
		return w.Vec3().Mul(1 / w[3])
	}
	return w.Vec3()
}

// IntersectAABB tests ray intersection with an axis-aligned bounding box.
// Returns the distance to intersection (t) and whether intersection occurred.
// If the ray starts inside the box, returns the exit distance.
func (r Ray) IntersectAABB(box AABB) (t float32, hit bool) {
	tmin := float32(-math.MaxFloat32)
	tmax := float32(math.MaxFloat32)

	for axis := 0; axis < 3; axis++ {
		if r.Direction[axis] == 0 {
			if r.Origin[axis] < box.Min[axis] || r.Origin[axis] > box.Max[axis] {
				return 0, false
			}
			continue
		}
		t1 := (box.Min[axis] - r.Origin[axis]) / r.Direction[axis]
		t2 := (box.Max[axis] - r.Origin[axis]) / r.Direction[axis]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = max(tmin, t1)
		tmax = min(tmax, t2)
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// IntersectTriangle is the Möller–Trumbore test. Both faces count as hits.
func (r Ray) IntersectTriangle(a, b, c mgl32.Vec3) (t float32, hit bool) {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := r.Direction.Cross(e2)
	det := e1.Dot(p)
	if det > -epsilon && det < epsilon {
		return 0, false // Parallel to the triangle plane
	}
	inv := 1 / det

	s := r.Origin.Sub(a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := r.Direction.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t = e2.Dot(q) * inv
	if t <= epsilon {
		return 0, false
	}
	return t, true
}

// TransformAABB returns the world-space box enclosing a local box under m.
func TransformAABB(min, max [3]float32, m mgl32.Mat4) AABB {
	out := AABB{
		Min: mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: mgl32.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
	for i := 0; i < 8; i++ {
		corner := mgl32.Vec3{min[0], min[1], min[2]}
		if i&1 != 0 {
			corner[0] = max[0]
		}
		if i&2 != 0 {
			corner[1] = max[1]
		}
		if i&4 != 0 {
			corner[2] = max[2]
		}
		w := mgl32.TransformCoordinate(corner, m)
		for axis := 0; axis < 3; axis++ {
			out.Min[axis] = float32(math.Min(float64(out.Min[axis]), float64(w[axis])))
			out.Max[axis] = float32(math.Max(float64(out.Max[axis]), float64(w[axis])))
		}
	}
	return out
}

// IntersectMesh returns the nearest hit between the ray and geometry placed
// in the world by m. The bounding box is tested first.
func (r Ray) IntersectMesh(g *scene.Geometry, m mgl32.Mat4) (t float32, hit bool) {
	if g == nil || len(g.Positions) == 0 {
		return 0, false
	}
	lo, hi := g.LocalBounds()
	if _, ok := r.IntersectAABB(TransformAABB(lo, hi, m)); !ok {
		return 0, false
	}

	best := Nearest[int]{}
	for i := 0; i < g.TriangleCount(); i++ {
		a, b, c := g.Triangle(i)
		wa := mgl32.TransformCoordinate(mgl32.Vec3(a), m)
		wb := mgl32.TransformCoordinate(mgl32.Vec3(b), m)
		wc := mgl32.TransformCoordinate(mgl32.Vec3(c), m)
		if d, ok := r.IntersectTriangle(wa, wb, wc); ok {
			best.Offer(i, d)
		}
	}
	return best.Distance, best.Hit
}

// Nearest keeps the closest candidate offered to it. Ties keep the first.
type Nearest[T any] struct {
	Target   T
	Distance float32
	Hit      bool
}

// Offer records target if it is closer than the current best.
func (n *Nearest[T]) Offer(target T, distance float32) {
	if n.Hit && distance >= n.Distance {
		return
	}
	n.Target = target
	n.Distance = distance
	n.Hit = true
}
