package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quad() *Geometry {
	return &Geometry{
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
	}
}

// sharedTree mimics a decoder that hands the same material (and the same
// Mesh value) to several leaves.
func sharedTree() (*Node, *Material) {
	shared := &Material{Name: "wood", Color: Color{0.5, 0.3, 0.1}, Opacity: 1, Roughness: 0.8,
		Params: map[string]string{"map_Kd": "wood.png"}}
	mesh := &Mesh{Geometry: quad(), Material: shared}

	root := NewGroup("chair.glb")
	legs := NewGroup("Legs")
	legs.AddChild(NewMeshNode("Leg", mesh))
	legs.AddChild(NewMeshNode("Leg", mesh))
	root.AddChild(legs)
	root.AddChild(NewMeshNode("Seat", &Mesh{Geometry: quad(), Material: shared}))
	return root, shared
}

func TestIsolateMaterialsRemovesAliasing(t *testing.T) {
	root, shared := sharedTree()
	require.Equal(t, 2, AliasedMaterials(root))

	n, err := IsolateMaterials(root)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Zero(t, AliasedMaterials(root))

	meshes := root.Meshes()
	require.Len(t, meshes, 3)
	for i, a := range meshes {
		assert.NotSame(t, shared, a.Mesh.Material, "mesh %d still points at the source material", i)
		for _, b := range meshes[i+1:] {
			assert.NotSame(t, a.Mesh, b.Mesh)
			assert.NotSame(t, a.Mesh.Material, b.Mesh.Material)
		}
	}
}

func TestIsolateMaterialsDeepCopiesParams(t *testing.T) {
	root, shared := sharedTree()
	_, err := IsolateMaterials(root)
	require.NoError(t, err)

	meshes := root.Meshes()
	meshes[0].Mesh.Material.Params["map_Kd"] = "oak.png"
	meshes[0].Mesh.Material.Tint = EmissiveTint{Color: Color{0, 1, 1}, Intensity: 0.6}

	assert.Equal(t, "wood.png", shared.Params["map_Kd"])
	assert.Equal(t, "wood.png", meshes[1].Mesh.Material.Params["map_Kd"])
	assert.Zero(t, meshes[1].Mesh.Material.Tint.Intensity)
	assert.Equal(t, shared.Color, meshes[2].Mesh.Material.Color)
}

func TestIsolateMaterialsKeepsGeometryShared(t *testing.T) {
	root, _ := sharedTree()
	before := root.Meshes()[0].Mesh.Geometry

	_, err := IsolateMaterials(root)
	require.NoError(t, err)

	meshes := root.Meshes()
	assert.Same(t, before, meshes[0].Mesh.Geometry)
	assert.Same(t, meshes[0].Mesh.Geometry, meshes[1].Mesh.Geometry)
}

func TestIsolateMaterialsFillsMissingMaterial(t *testing.T) {
	root := NewGroup("part")
	root.AddChild(NewMeshNode("body", &Mesh{Geometry: quad()}))

	_, err := IsolateMaterials(root)
	require.NoError(t, err)

	mat := root.Meshes()[0].Mesh.Material
	require.NotNil(t, mat)
	assert.Equal(t, "#aaaaaa", mat.Color.Hex())
	assert.Zero(t, mat.Metalness)
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#00ffff")
	require.NoError(t, err)
	assert.Equal(t, Color{0, 1, 1}, c)
	assert.Equal(t, "#00ffff", c.Hex())

	c, err = ParseHexColor("a0a0a0")
	require.NoError(t, err)
	assert.Equal(t, "#a0a0a0", c.Hex())

	_, err = ParseHexColor("#fff")
	assert.Error(t, err)
	_, err = ParseHexColor("#gggggg")
	assert.Error(t, err)
}

func TestBoundsAppliesTransforms(t *testing.T) {
	root := NewGroup("root")
	child := NewMeshNode("q", &Mesh{Geometry: quad(), Material: DefaultMaterial()})
	child.Position = mgl32.Vec3{10, 0, 0}
	child.Scale = mgl32.Vec3{2, 2, 2}
	root.AddChild(child)

	min, max, ok := root.Bounds()
	require.True(t, ok)
	assert.InDelta(t, 10, min[0], 1e-5)
	assert.InDelta(t, 12, max[0], 1e-5)
	assert.InDelta(t, 2, max[1], 1e-5)

	_, _, ok = NewGroup("empty").Bounds()
	assert.False(t, ok)
}

func TestComputeNormalsFlatQuad(t *testing.T) {
	g := quad()
	g.ComputeNormals()
	require.Len(t, g.Normals, 4)
	for _, n := range g.Normals {
		assert.InDelta(t, 1, n[2], 1e-5)
	}
}
