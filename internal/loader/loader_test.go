package loader

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/folio-viewer/internal/scene"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// binarySTL encodes triangles in the binary STL layout.
func binarySTL(tris [][3][3]float32) []byte {
	var buf bytes.Buffer
	buf.Write(make([]byte, 80))
	binary.Write(&buf, binary.LittleEndian, uint32(len(tris)))
	for _, tri := range tris {
		binary.Write(&buf, binary.LittleEndian, [3]float32{})
		for _, v := range tri {
			binary.Write(&buf, binary.LittleEndian, v)
		}
		binary.Write(&buf, binary.LittleEndian, uint16(0))
	}
	return buf.Bytes()
}

// sharedMaterialGLTF builds a two-node document where both nodes point at
// the same mesh, and therefore the same material.
func sharedMaterialGLTF() []byte {
	var buf bytes.Buffer
	for _, v := range [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}} {
		binary.Write(&buf, binary.LittleEndian, v)
	}
	data := base64.StdEncoding.EncodeToString(buf.Bytes())
	return []byte(fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0, 1]}],
  "nodes": [
    {"name": "Leg", "mesh": 0, "translation": [-1, 0, 0]},
    {"name": "Leg", "mesh": 0, "translation": [1, 0, 0]}
  ],
  "meshes": [{"name": "leg", "primitives": [{"attributes": {"POSITION": 0}, "material": 0}]}],
  "materials": [{"name": "oak", "pbrMetallicRoughness": {"baseColorFactor": [0.6, 0.4, 0.2, 1], "metallicFactor": 0.1, "roughnessFactor": 0.9}}],
  "accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3", "min": [0, 0, 0], "max": [1, 1, 0]}],
  "bufferViews": [{"buffer": 0, "byteLength": %d}],
  "buffers": [{"byteLength": %d, "uri": "data:application/octet-stream;base64,%s"}]
}`, buf.Len(), buf.Len(), data))
}

const cubeOBJ = `# two faces
mtllib missing.mtl
o Box
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vn 0 0 1
usemtl red
f 1//1 2//1 3//1 4//1
o Lid
f -4 -3 -2
`

func TestDetectFormat(t *testing.T) {
	cases := map[string]Format{
		"chair.glb":   FormatGLTF,
		"scene.GLTF":  FormatGLTF,
		"part.stl":    FormatSTL,
		"mesh.Obj":    FormatOBJ,
		"a.b.c.stl":   FormatSTL,
		"archive.fbx": "",
	}
	for name, want := range cases {
		got, ok := DetectFormat(name)
		assert.Equal(t, want != "", ok, name)
		assert.Equal(t, want, got, name)
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := writeFile(t, "model.fbx", []byte("whatever"))
	_, err := NewDispatcher().Load(context.Background(), path, "model.fbx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadSTLGetsDefaultMaterial(t *testing.T) {
	path := writeFile(t, "part.stl", binarySTL([][3][3]float32{
		{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		{{1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
	}))

	res, err := NewDispatcher().Load(context.Background(), path, "part.stl")
	require.NoError(t, err)
	assert.Equal(t, FormatSTL, res.Format)
	assert.Equal(t, 1, res.Meshes)
	assert.Equal(t, "part.stl", res.Root.Name)

	mesh := res.Root.Meshes()[0].Mesh
	assert.Equal(t, "#aaaaaa", mesh.Material.Color.Hex())
	assert.Zero(t, mesh.Material.Metalness)
	assert.Equal(t, 2, mesh.Geometry.TriangleCount())
	assert.InDelta(t, 1, mesh.Geometry.Normals[0][2], 1e-5)
}

func TestLoadCorruptSTLIsDecodeError(t *testing.T) {
	path := writeFile(t, "broken.stl", []byte("solid broken\nfacet oops\n"))

	_, err := NewDispatcher().Load(context.Background(), path, "broken.stl")
	require.Error(t, err)
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, FormatSTL, de.Format)
	assert.Equal(t, "broken.stl", de.File)
}

func TestLoadOBJ(t *testing.T) {
	path := writeFile(t, "box.obj", []byte(cubeOBJ))

	res, err := NewDispatcher().Load(context.Background(), path, "box.obj")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Meshes)

	meshes := res.Root.Meshes()
	assert.Equal(t, "Box", meshes[0].Name)
	assert.Equal(t, 2, meshes[0].Mesh.Geometry.TriangleCount())
	assert.Equal(t, "Lid", meshes[1].Name)
	assert.Equal(t, 1, meshes[1].Mesh.Geometry.TriangleCount())
	assert.NotSame(t, meshes[0].Mesh.Material, meshes[1].Mesh.Material)
}

func TestDecodeOBJWithMTL(t *testing.T) {
	dir := t.TempDir()
	mtl := "newmtl red\nKd 1 0 0\nd 1\nmap_Kd textures/red.png\n\nnewmtl glass\nKd 1 1 1\nd 0.25\nNs 198\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "parts.mtl"), []byte(mtl), 0o644))
	obj := "mtllib parts.mtl\no Box\nv 0 0 0\nv 1 0 0\nv 0 1 0\nusemtl red\nf 1 2 3\nusemtl glass\nf 3 2 1\n"
	path := filepath.Join(dir, "box.obj")
	require.NoError(t, os.WriteFile(path, []byte(obj), 0o644))

	root, err := DecodeOBJ(context.Background(), path)
	require.NoError(t, err)
	meshes := root.Meshes()
	require.Len(t, meshes, 2, "one leaf per material used by the object")
	assert.Equal(t, "Box", meshes[0].Name)
	assert.Equal(t, "Box", meshes[1].Name)

	red := meshes[0].Mesh.Material
	assert.Equal(t, "#ff0000", red.Color.Hex())
	assert.InDelta(t, 1, red.Roughness, 1e-5)
	assert.Equal(t, "textures/red.png", red.Params["map_Kd"])

	glass := meshes[1].Mesh.Material
	assert.InDelta(t, 0.25, glass.Opacity, 1e-5)
	assert.InDelta(t, 0.1, glass.Roughness, 1e-5)
}

func TestDecodeOBJWithoutLibrary(t *testing.T) {
	path := writeFile(t, "tri.obj", []byte("o Tri\nv 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"))

	root, err := DecodeOBJ(context.Background(), path)
	require.NoError(t, err)
	meshes := root.Meshes()
	require.Len(t, meshes, 1)
	m := meshes[0].Mesh.Material
	assert.Equal(t, float32(1), m.Opacity)

	g := meshes[0].Mesh.Geometry
	require.Len(t, g.Normals, 3)
	assert.InDelta(t, 1, g.Normals[0][2], 1e-5, "normals are computed when the file has none")
}

func TestDecodeOBJErrors(t *testing.T) {
	cases := map[string]string{
		"index out of range": "o Tri\nv 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 9\n",
		"relative underflow": "o Tri\nv 0 0 0\nv 1 0 0\nv 0 1 0\nf -1 -2 -4\n",
		"degenerate face":    "o Tri\nv 0 0 0\nv 1 0 0\nf 1 2\n",
		"bad float":          "o Tri\nv 0 zero 0\n",
		"no faces":           "o Tri\nv 0 0 0\nv 1 0 0\nv 0 1 0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, "bad.obj", []byte(body))
			_, err := DecodeOBJ(context.Background(), path)
			assert.Error(t, err)
		})
	}
}

func TestLoadGLTFIsolatesSharedMaterial(t *testing.T) {
	path := writeFile(t, "chair.gltf", sharedMaterialGLTF())

	raw, err := DecodeGLTF(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 1, scene.AliasedMaterials(raw))

	res, err := NewDispatcher().Load(context.Background(), path, "chair.gltf")
	require.NoError(t, err)
	assert.Equal(t, FormatGLTF, res.Format)
	require.Equal(t, 2, res.Meshes)
	assert.Zero(t, scene.AliasedMaterials(res.Root))

	meshes := res.Root.Meshes()
	a, b := meshes[0].Mesh.Material, meshes[1].Mesh.Material
	assert.NotSame(t, a, b)
	assert.Equal(t, "oak", a.Name)
	assert.InDelta(t, 0.9, a.Roughness, 1e-5)

	a.Color = scene.Color{1, 0, 0}
	assert.InDelta(t, 0.6, b.Color[0], 1e-5)

	min, max, ok := res.Root.Bounds()
	require.True(t, ok)
	assert.InDelta(t, -1, min[0], 1e-5)
	assert.InDelta(t, 2, max[0], 1e-5)
}

func TestLoadCancelledContext(t *testing.T) {
	path := writeFile(t, "part.stl", binarySTL([][3][3]float32{{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDispatcher().Load(ctx, path, "part.stl")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegisterOverridesDecoder(t *testing.T) {
	d := NewDispatcher()
	called := false
	d.Register(FormatSTL, DecoderFunc(func(ctx context.Context, path string) (*scene.Node, error) {
		called = true
		g := &scene.Geometry{Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, float32(math.Sqrt2), 0}}}
		root := scene.NewGroup("stub")
		root.AddChild(scene.NewMeshNode("tri", &scene.Mesh{Geometry: g}))
		return root, nil
	}))

	res, err := d.Load(context.Background(), "/nonexistent.stl", "x.stl")
	require.NoError(t, err)
	assert.True(t, called)
	assert.NotNil(t, res.Root.Meshes()[0].Mesh.Material)
}
