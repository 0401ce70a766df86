package scene

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is a linear RGB triple in the 0..1 range.
type Color [3]float32

// ParseHexColor parses "#rrggbb" or "rrggbb".
func ParseHexColor(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return Color{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return Color{
		float32((v>>16)&0xff) / 255,
		float32((v>>8)&0xff) / 255,
		float32(v&0xff) / 255,
	}, nil
}

// MustHexColor is ParseHexColor for package-level constants.
func MustHexColor(s string) Color {
	c, err := ParseHexColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex formats the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", channel(c[0]), channel(c[1]), channel(c[2]))
}

func channel(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// EmissiveTint is the highlight signal added on top of a material's own
// emission. It is owned by the pick/highlight layer and is never authored.
type EmissiveTint struct {
	Color     Color
	Intensity float32
}

// Material is a metallic-roughness surface description.
type Material struct {
	Name      string
	Color     Color
	Opacity   float32
	Metalness float32
	Roughness float32
	Emissive  Color
	Tint      EmissiveTint

	// Params carries decoder-specific extras (texture URIs, MTL keys) that
	// the viewer does not interpret but keeps with the material.
	Params map[string]string
}

// DefaultMaterial is the flat gray, non-metallic surface given to geometry
// that arrives without an authored material.
func DefaultMaterial() *Material {
	return &Material{
		Name:      "default",
		Color:     MustHexColor("#aaaaaa"),
		Opacity:   1,
		Metalness: 0,
		Roughness: 1,
	}
}
