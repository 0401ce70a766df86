package loader

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"

	"github.com/g3n/engine/loader/obj"

	"github.com/Faultbox/folio-viewer/internal/scene"
)

// objVertexKey identifies a unique position/normal pair inside one leaf.
type objVertexKey struct {
	v, vn int
}

// objLeaf accumulates the faces of one object that share a material.
type objLeaf struct {
	name     string
	material string
	geom     scene.Geometry
	lookup   map[objVertexKey]uint32
	allVN    bool
}

// DecodeOBJ reads a Wavefront OBJ file and its MTL library (a sibling .mtl,
// else the mtllib line). Each object becomes one mesh leaf per material it
// uses. Named materials missing from the library get the decoder's gray
// default; faces with no usemtl get plain white.
func DecodeOBJ(ctx context.Context, path string) (*scene.Node, error) {
	dec, err := obj.Decode(path, "")
	if err != nil {
		return nil, fmt.Errorf("parse obj: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	materials := make(map[string]*scene.Material, len(dec.Materials))
	for name, m := range dec.Materials {
		materials[name] = objMaterial(name, m)
	}
	fallback := &scene.Material{Name: "obj-default", Color: scene.Color{1, 1, 1}, Opacity: 1, Roughness: 1}

	root := scene.NewGroup(filepath.Base(path))
	for _, o := range dec.Objects {
		leaves, err := objLeaves(dec, o)
		if err != nil {
			return nil, fmt.Errorf("object %q: %w", o.Name, err)
		}
		for _, l := range leaves {
			if !l.allVN {
				l.geom.ComputeNormals()
			}
			mat, ok := materials[l.material]
			if !ok {
				mat = fallback
			}
			root.AddChild(scene.NewMeshNode(l.name, &scene.Mesh{Geometry: &l.geom, Material: mat}))
		}
	}
	if len(root.Children) == 0 {
		return nil, errors.New("obj contains no faces")
	}
	return root, nil
}

// objLeaves splits an object's faces by material, in first-use order, and
// fan-triangulates each face.
func objLeaves(dec *obj.Decoder, o obj.Object) ([]*objLeaf, error) {
	positions := len(dec.Vertices) / 3
	normals := len(dec.Normals) / 3

	var leaves []*objLeaf
	byMaterial := map[string]*objLeaf{}
	for fi, f := range o.Faces {
		if len(f.Vertices) < 3 {
			return nil, fmt.Errorf("face %d has %d vertices", fi+1, len(f.Vertices))
		}
		l, ok := byMaterial[f.Material]
		if !ok {
			l = &objLeaf{name: o.Name, material: f.Material, lookup: map[objVertexKey]uint32{}, allVN: true}
			byMaterial[f.Material] = l
			leaves = append(leaves, l)
		}

		corners := make([]uint32, len(f.Vertices))
		for i, v := range f.Vertices {
			if v < 0 || v >= positions {
				return nil, fmt.Errorf("face %d: vertex index %d out of range (have %d)", fi+1, v, positions)
			}
			vn := -1
			if i < len(f.Normals) && f.Normals[i] >= 0 && f.Normals[i] < normals {
				vn = f.Normals[i]
			}
			corners[i] = l.vertex(dec, v, vn)
		}
		for i := 1; i+1 < len(corners); i++ {
			l.geom.Indices = append(l.geom.Indices, corners[0], corners[i], corners[i+1])
		}
	}
	return leaves, nil
}

// vertex returns the leaf-local index of a position/normal pair, appending
// it on first use. vn < 0 means the face carries no normal.
func (l *objLeaf) vertex(dec *obj.Decoder, v, vn int) uint32 {
	key := objVertexKey{v: v, vn: vn}
	if idx, ok := l.lookup[key]; ok {
		return idx
	}

	idx := uint32(len(l.geom.Positions))
	l.geom.Positions = append(l.geom.Positions, [3]float32{dec.Vertices[3*v], dec.Vertices[3*v+1], dec.Vertices[3*v+2]})
	if vn >= 0 {
		l.geom.Normals = append(l.geom.Normals, [3]float32{dec.Normals[3*vn], dec.Normals[3*vn+1], dec.Normals[3*vn+2]})
	} else {
		l.allVN = false
		l.geom.Normals = append(l.geom.Normals, [3]float32{0, 1, 0})
	}
	l.lookup[key] = idx
	return idx
}

// objMaterial maps an MTL entry onto the PBR material. The Phong exponent
// Ns becomes roughness as sqrt(2/(Ns+2)).
func objMaterial(name string, m *obj.Material) *scene.Material {
	out := &scene.Material{
		Name:      name,
		Color:     scene.Color{m.Diffuse.R, m.Diffuse.G, m.Diffuse.B},
		Emissive:  scene.Color{m.Emissive.R, m.Emissive.G, m.Emissive.B},
		Opacity:   m.Opacity,
		Roughness: float32(math.Sqrt(2 / (float64(max(m.Shininess, 0)) + 2))),
	}
	// An entry without a d line decodes with zero opacity
	if out.Opacity <= 0 {
		out.Opacity = 1
	}
	if m.MapKd != "" {
		out.Params = map[string]string{"map_Kd": m.MapKd}
	}
	return out
}
