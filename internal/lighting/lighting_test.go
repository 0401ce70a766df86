package lighting

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, w, h int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	path := filepath.Join(t.TempDir(), "studio.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestModesAreExclusive(t *testing.T) {
	c := NewController(DefaultLights(), 1)
	s := c.Setup()
	assert.Equal(t, Procedural, s.Mode)
	assert.InDelta(t, 0.6, s.Ambient, 1e-6)
	assert.InDelta(t, 1, s.Directional, 1e-6)
	assert.Nil(t, s.Environment)

	c.SetEnvironment(&EnvironmentMap{Width: 1, Height: 1, Pixels: []float32{1, 1, 1}})
	c.SetMode(ImageBased)
	s = c.Setup()
	assert.Zero(t, s.Ambient)
	assert.Zero(t, s.Directional)
	assert.NotNil(t, s.Environment)

	c.SetMode(Procedural)
	s = c.Setup()
	assert.Nil(t, s.Environment)
	assert.InDelta(t, 0.6, s.Ambient, 1e-6, "procedural values survive the round trip")
}

func TestImageModeWithoutImageIsUnlit(t *testing.T) {
	c := NewController(DefaultLights(), 1)
	c.SetMode(ImageBased)
	s := c.Setup()
	assert.False(t, s.Lit())
	assert.InDelta(t, 0.6, c.Lights().Ambient, 1e-6)
}

func TestSettersClamp(t *testing.T) {
	c := NewController(Lights{Ambient: -1, Directional: -2}, -3)
	assert.Zero(t, c.Lights().Ambient)
	assert.Zero(t, c.Lights().Directional)
	assert.Zero(t, c.EnvironmentIntensity())

	c.SetAmbient(0.25)
	c.SetDirectional(2)
	c.SetDirectionalPosition(mgl32.Vec3{0, 0, 10})
	s := c.Setup()
	assert.InDelta(t, 0.25, s.Ambient, 1e-6)
	assert.InDelta(t, 1, s.LightDir[2], 1e-6)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("HDRI")
	require.NoError(t, err)
	assert.Equal(t, ImageBased, m)
	m, err = ParseMode(Procedural.String())
	require.NoError(t, err)
	assert.Equal(t, Procedural, m)
	_, err = ParseMode("candles")
	assert.Error(t, err)
}

func TestDecodeEnvironmentPNG(t *testing.T) {
	path := writePNG(t, 8, 4, color.RGBA{R: 255, G: 0, B: 0, A: 255})

	env, err := DecodeEnvironment(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 8, env.Width)
	assert.Equal(t, 4, env.Height)
	assert.False(t, env.HDR)
	assert.Len(t, env.Pixels, 8*4*3)
	assert.InDelta(t, 1, env.Average[0], 1e-4)
	assert.InDelta(t, 0, env.Average[1], 1e-4)

	c := env.Sample(0, 1, 0)
	assert.InDelta(t, 1, c[0], 1e-4)
}

func TestDecodeEnvironmentRejectsNonImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.hdr")
	require.NoError(t, os.WriteFile(path, []byte("just some text, not pixels"), 0o644))

	_, err := DecodeEnvironment(context.Background(), path)
	var ie *ImageError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "notes.hdr", ie.File)
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestDecodeEnvironmentMissingFile(t *testing.T) {
	_, err := DecodeEnvironment(context.Background(), filepath.Join(t.TempDir(), "nope.png"))
	var ie *ImageError
	assert.True(t, errors.As(err, &ie))
}
