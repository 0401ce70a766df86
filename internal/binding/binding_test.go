package binding

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/folio-viewer/internal/composition"
	"github.com/Faultbox/folio-viewer/internal/highlight"
	"github.com/Faultbox/folio-viewer/internal/loader"
	"github.com/Faultbox/folio-viewer/internal/scene"
)

var panelDefaults = Fields{Color: scene.MustHexColor("#a0a0a0"), Metalness: 0.3, Roughness: 0.7}

func chairScene(t *testing.T) (*composition.Manager, *Controller, uint64) {
	t.Helper()
	tri := &scene.Geometry{Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}}
	shared := &scene.Material{Name: "oak", Color: scene.Color{0.6, 0.4, 0.2}, Opacity: 1, Metalness: 0.1, Roughness: 0.4}
	root := scene.NewGroup("chair")
	root.AddChild(scene.NewMeshNode("Seat", &scene.Mesh{Geometry: tri, Material: shared}))
	root.AddChild(scene.NewMeshNode("Back", &scene.Mesh{Geometry: tri, Material: shared}))
	_, err := scene.IsolateMaterials(root)
	require.NoError(t, err)

	m := composition.NewManager()
	c := NewController(m, panelDefaults)
	m.OnChange(func(_, _ highlight.Selection) { c.Sync() })
	id := m.AddInstance(root, "chair.glb", "", loader.FormatGLTF)
	return m, c, id
}

func selectMesh(t *testing.T, m *composition.Manager, id uint64, name string) highlight.Ref {
	t.Helper()
	ref, ok := m.FindMesh(id, name)
	require.True(t, ok)
	m.Dispatch(highlight.Event{Kind: highlight.PointerDown, Target: ref})
	return ref
}

func TestChairRoughnessScenario(t *testing.T) {
	m, c, id := chairScene(t)
	require.Equal(t, "chair.glb", m.Instances()[0].DisplayName)
	assert.Equal(t, panelDefaults, c.Fields())
	assert.False(t, c.Active())

	seat := selectMesh(t, m, id, "Seat")
	assert.Equal(t, scene.Color{0.6, 0.4, 0.2}, c.Fields().Color)
	assert.InDelta(t, 0.1, c.Fields().Metalness, 1e-6)
	assert.InDelta(t, 0.4, c.Fields().Roughness, 1e-6)

	require.True(t, c.SetRoughness(0.9))
	back, _ := m.FindMesh(id, "Back")
	assert.InDelta(t, 0.9, m.Mesh(seat).Mesh.Material.Roughness, 1e-6)
	assert.InDelta(t, 0.4, m.Mesh(back).Mesh.Material.Roughness, 1e-6)

	require.True(t, m.RemoveInstance(id))
	assert.Empty(t, m.Instances())
	assert.False(t, c.Active())
	assert.False(t, c.SetRoughness(0.2), "inert after removal")
	assert.InDelta(t, 0.9, c.Fields().Roughness, 1e-6, "fields are kept")
}

func TestEditsFollowLiveSelection(t *testing.T) {
	m, c, id := chairScene(t)
	seat := selectMesh(t, m, id, "Seat")
	back := selectMesh(t, m, id, "Back")

	c.SetMetalness(0.8)
	assert.InDelta(t, 0.8, m.Mesh(back).Mesh.Material.Metalness, 1e-6)
	assert.InDelta(t, 0.1, m.Mesh(seat).Mesh.Material.Metalness, 1e-6)
}

func TestEditsCommute(t *testing.T) {
	red := scene.Color{1, 0, 0}

	m1, c1, id1 := chairScene(t)
	r1 := selectMesh(t, m1, id1, "Seat")
	c1.SetColor(red)
	c1.SetRoughness(0.25)

	m2, c2, id2 := chairScene(t)
	r2 := selectMesh(t, m2, id2, "Seat")
	c2.SetRoughness(0.25)
	c2.SetColor(red)

	assert.Equal(t, *m1.Mesh(r1).Mesh.Material, *m2.Mesh(r2).Mesh.Material)
}

func TestSetPositionAndClamp(t *testing.T) {
	m, c, id := chairScene(t)
	seat := selectMesh(t, m, id, "Seat")

	require.True(t, c.SetPosition(mgl32.Vec3{0, 1, 0}))
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, m.Mesh(seat).Position)

	c.SetRoughness(4)
	c.SetMetalness(-1)
	c.SetColor(scene.Color{2, -1, 0.5})
	mat := m.Mesh(seat).Mesh.Material
	assert.Equal(t, float32(1), mat.Roughness)
	assert.Equal(t, float32(0), mat.Metalness)
	assert.Equal(t, scene.Color{1, 0, 0.5}, mat.Color)
}

func TestReselectPullsAgain(t *testing.T) {
	m, c, id := chairScene(t)
	selectMesh(t, m, id, "Seat")
	c.SetRoughness(0.9)

	m.Dispatch(highlight.Event{Kind: highlight.Escape})
	assert.InDelta(t, 0.9, c.Fields().Roughness, 1e-6)

	selectMesh(t, m, id, "Back")
	assert.InDelta(t, 0.4, c.Fields().Roughness, 1e-6)
}
