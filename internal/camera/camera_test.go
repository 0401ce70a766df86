package camera

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertVec(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-5, "component %d of %v", i, got)
	}
}

func TestInitialPosition(t *testing.T) {
	c := NewViewController(3)
	assert.Equal(t, Free, c.View())
	assertVec(t, mgl32.Vec3{0, 0, 3}, c.Position())
	assert.True(t, c.InputEnabled())
}

func TestFixedPoses(t *testing.T) {
	want := map[View]mgl32.Vec3{
		Front:  {0, 0, 3},
		Back:   {0, 0, -3},
		Top:    {0, 3, 0},
		Bottom: {0, -3, 0},
		Left:   {-3, 0, 0},
		Right:  {3, 0, 0},
	}
	c := NewViewController(3)
	for v, pos := range want {
		c.SetView(v)
		assertVec(t, pos, c.Position())
		assert.False(t, c.InputEnabled(), v.String())

		m := c.ViewMatrix()
		eye := mgl32.TransformCoordinate(mgl32.Vec3{}, m)
		assert.InDelta(t, -3, eye[2], 1e-4, "%s: origin sits in front of the camera", v)
	}
}

func TestTopIgnoresPriorState(t *testing.T) {
	c := NewViewController(3)
	c.HandleDrag(120, 80)
	c.HandleZoom(2)
	c.HandlePan(10, 10)
	c.SetView(Top)
	first := c.Position()

	c.SetView(Free)
	c.HandleDrag(-300, 10)
	c.SetView(Top)
	assertVec(t, first, c.Position())
	assertVec(t, mgl32.Vec3{0, 3, 0}, first)
}

func TestBackFreeOrbitBack(t *testing.T) {
	c := NewViewController(3)
	c.SetView(Back)
	back := c.Position()

	c.SetView(Free)
	c.HandleDrag(200, -50)
	require.NotEqual(t, back, c.Position())

	c.SetView(Back)
	assert.Equal(t, back, c.Position())
}

func TestFreeKeepsOrbitAcrossExcursion(t *testing.T) {
	c := NewViewController(3)
	c.HandleDrag(100, 40)
	orbited := c.Position()

	c.SetView(Left)
	c.HandleDrag(500, 500)
	c.SetView(Free)
	assertVec(t, orbited, c.Position())
}

func TestOrbitClamps(t *testing.T) {
	o := NewOrbitCamera(3)
	o.HandleDrag(0, 1e6)
	assert.Equal(t, o.PitchRange.Max, o.Pitch)
	o.HandleZoom(100)
	assert.Equal(t, o.DistanceRange.Min, o.Distance)
}

func TestFitToBounds(t *testing.T) {
	o := NewOrbitCamera(3)
	o.FitToBounds(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{2, 2, 2})
	assertVec(t, mgl32.Vec3{1, 1, 1}, o.Center)
	assert.Greater(t, o.Distance, float32(1.7))
}

func TestParseView(t *testing.T) {
	for _, v := range Views() {
		got, err := ParseView(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	v, err := ParseView(" TOP ")
	require.NoError(t, err)
	assert.Equal(t, Top, v)

	_, err = ParseView("isometric")
	assert.Error(t, err)
}
