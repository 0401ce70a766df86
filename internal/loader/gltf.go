package loader

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/folio-viewer/internal/scene"
)

// DecodeGLTF reads a .glb or .gltf file (external buffers resolved relative
// to the file) into a scene subtree. Materials and meshes referenced by more
// than one primitive or node are shared in the returned tree, exactly as the
// document authors them.
func DecodeGLTF(ctx context.Context, path string) (*scene.Node, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	materials := make([]*scene.Material, len(doc.Materials))
	for i, gm := range doc.Materials {
		materials[i] = gltfMaterial(gm, i)
	}
	var fallback *scene.Material

	// One entry per glTF mesh; a multi-primitive mesh yields several leaves.
	meshes := make([][]*scene.Mesh, len(doc.Meshes))
	for mi, gm := range doc.Meshes {
		for pi, prim := range gm.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles {
				continue
			}
			geom, err := gltfGeometry(doc, prim)
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d: %w", mi, pi, err)
			}
			var mat *scene.Material
			if prim.Material != nil && *prim.Material < len(materials) {
				mat = materials[*prim.Material]
			} else {
				if fallback == nil {
					fallback = &scene.Material{Name: "gltf-default", Color: scene.Color{1, 1, 1}, Opacity: 1, Metalness: 1, Roughness: 1}
				}
				mat = fallback
			}
			meshes[mi] = append(meshes[mi], &scene.Mesh{Geometry: geom, Material: mat})
		}
	}

	nodes := make([]*scene.Node, len(doc.Nodes))
	for i, gn := range doc.Nodes {
		name := gn.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}
		n := scene.NewGroup(name)
		applyGLTFTransform(n, gn)

		if gn.Mesh != nil && *gn.Mesh < len(meshes) {
			prims := meshes[*gn.Mesh]
			meshName := doc.Meshes[*gn.Mesh].Name
			if meshName == "" {
				meshName = name
			}
			switch len(prims) {
			case 0:
			case 1:
				n.Mesh = prims[0]
			default:
				for pi, p := range prims {
					n.AddChild(scene.NewMeshNode(fmt.Sprintf("%s_%d", meshName, pi), p))
				}
			}
		}
		nodes[i] = n
	}

	attached := make([]bool, len(nodes))
	for i, gn := range doc.Nodes {
		for _, c := range gn.Children {
			if c < 0 || c >= len(nodes) || c == i || attached[c] {
				continue
			}
			nodes[i].AddChild(nodes[c])
			attached[c] = true
		}
	}

	root := scene.NewGroup("gltf")
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		for _, idx := range doc.Scenes[*doc.Scene].Nodes {
			if idx >= 0 && idx < len(nodes) {
				root.AddChild(nodes[idx])
			}
		}
	} else {
		for i, n := range nodes {
			if !attached[i] {
				root.AddChild(n)
			}
		}
	}
	return root, nil
}

func gltfMaterial(gm *gltf.Material, idx int) *scene.Material {
	name := gm.Name
	if name == "" {
		name = fmt.Sprintf("material_%d", idx)
	}
	mat := &scene.Material{
		Name:      name,
		Color:     scene.Color{1, 1, 1},
		Opacity:   1,
		Metalness: 1,
		Roughness: 1,
		Emissive: scene.Color{
			float32(gm.EmissiveFactor[0]),
			float32(gm.EmissiveFactor[1]),
			float32(gm.EmissiveFactor[2]),
		},
	}
	if pbr := gm.PBRMetallicRoughness; pbr != nil {
		cf := pbr.BaseColorFactorOrDefault()
		mat.Color = scene.Color{float32(cf[0]), float32(cf[1]), float32(cf[2])}
		mat.Opacity = float32(cf[3])
		mat.Metalness = float32(pbr.MetallicFactorOrDefault())
		mat.Roughness = float32(pbr.RoughnessFactorOrDefault())
		if pbr.BaseColorTexture != nil {
			mat.Params = map[string]string{"baseColorTexture": fmt.Sprint(pbr.BaseColorTexture.Index)}
		}
	}
	return mat
}

func gltfGeometry(doc *gltf.Document, prim *gltf.Primitive) (*scene.Geometry, error) {
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok || posIdx >= len(doc.Accessors) {
		return nil, fmt.Errorf("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	geom := &scene.Geometry{Positions: positions}

	if idx, ok := prim.Attributes[gltf.NORMAL]; ok && idx < len(doc.Accessors) {
		normals, err := modeler.ReadNormal(doc, doc.Accessors[idx], nil)
		if err == nil && len(normals) == len(positions) {
			geom.Normals = normals
		}
	}

	if prim.Indices != nil {
		if *prim.Indices >= len(doc.Accessors) {
			return nil, fmt.Errorf("indices accessor %d out of range", *prim.Indices)
		}
		indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		for _, i := range indices {
			if int(i) >= len(positions) {
				return nil, fmt.Errorf("index %d exceeds %d vertices", i, len(positions))
			}
		}
		geom.Indices = indices
	}

	if geom.Normals == nil {
		geom.ComputeNormals()
	}
	return geom, nil
}

func applyGLTFTransform(n *scene.Node, gn *gltf.Node) {
	if gn.Matrix != gltf.DefaultMatrix && gn.Matrix != [16]float64{} {
		var m mgl32.Mat4
		for i, v := range gn.Matrix {
			m[i] = float32(v)
		}
		n.Position = m.Col(3).Vec3()
		n.Scale = mgl32.Vec3{m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len()}
		rot := m
		for c := 0; c < 3; c++ {
			if s := n.Scale[c]; s != 0 {
				col := rot.Col(c).Mul(1 / s)
				rot.SetCol(c, col)
			}
		}
		rot.SetCol(3, mgl32.Vec4{0, 0, 0, 1})
		n.Rotation = mgl32.Mat4ToQuat(rot)
		return
	}

	t := gn.TranslationOrDefault()
	n.Position = mgl32.Vec3{float32(t[0]), float32(t[1]), float32(t[2])}
	s := gn.ScaleOrDefault()
	n.Scale = mgl32.Vec3{float32(s[0]), float32(s[1]), float32(s[2])}
	r := gn.RotationOrDefault() // x, y, z, w
	n.Rotation = mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
}
