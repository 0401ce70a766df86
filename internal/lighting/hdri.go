package lighting

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"math"
	"os"
	"path/filepath"

	"github.com/h2non/filetype"
	"github.com/mdouchement/hdr"
	_ "github.com/mdouchement/hdr/codec/rgbe" // Register Radiance .hdr decoder
	_ "golang.org/x/image/bmp"                // Register BMP decoder
	_ "golang.org/x/image/tiff"               // Register TIFF decoder
	_ "golang.org/x/image/webp"               // Register WebP decoder

	"github.com/Faultbox/folio-viewer/internal/scene"
)

// ImageError reports an environment image that could not be used.
type ImageError struct {
	File string
	Err  error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("environment image %s: %v", e.File, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

// ErrNotImage is wrapped by ImageError when the payload is not a known
// image container.
var ErrNotImage = errors.New("not an image")

// EnvironmentMap is an equirectangular image in linear RGB.
type EnvironmentMap struct {
	Source string
	Width  int
	Height int
	HDR    bool
	// Pixels holds Width*Height RGB triples, row 0 at the top.
	Pixels []float32
	// Average is the mean radiance, used as the ambient term.
	Average scene.Color
}

// At returns the linear color at pixel (x, y).
func (e *EnvironmentMap) At(x, y int) scene.Color {
	i := (y*e.Width + x) * 3
	return scene.Color{e.Pixels[i], e.Pixels[i+1], e.Pixels[i+2]}
}

// Sample looks up the map in direction dir (not necessarily normalized).
func (e *EnvironmentMap) Sample(dx, dy, dz float32) scene.Color {
	l := math.Sqrt(float64(dx*dx + dy*dy + dz*dz))
	if l == 0 || e.Width == 0 || e.Height == 0 {
		return scene.Color{}
	}
	u := 0.5 + math.Atan2(float64(dx), -float64(dz))/(2*math.Pi)
	v := math.Acos(float64(dy)/l) / math.Pi
	x := min(int(u*float64(e.Width)), e.Width-1)
	y := min(int(v*float64(e.Height)), e.Height-1)
	return e.At(max(x, 0), max(y, 0))
}

const sniffLen = 262

// DecodeEnvironment reads a Radiance .hdr or an LDR image (PNG, JPEG, BMP,
// TIFF, WebP) from path. LDR pixels are converted from sRGB to linear.
// Every failure is an *ImageError.
func DecodeEnvironment(ctx context.Context, path string) (*EnvironmentMap, error) {
	name := filepath.Base(path)
	f, err := os.Open(path)
	if err != nil {
		return nil, &ImageError{File: name, Err: err}
	}
	defer f.Close()

	br := bufio.NewReader(f)
	head, _ := br.Peek(sniffLen)
	if !isRadiance(head) && !filetype.IsImage(head) {
		kind, _ := filetype.Match(head)
		if kind == filetype.Unknown {
			return nil, &ImageError{File: name, Err: ErrNotImage}
		}
		return nil, &ImageError{File: name, Err: fmt.Errorf("%w: detected %s", ErrNotImage, kind.MIME.Value)}
	}

	img, format, err := image.Decode(br)
	if err != nil {
		return nil, &ImageError{File: name, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	env := toEnvironment(img)
	env.Source = name
	env.HDR = format == "hdr" || format == "rgbe" || isRadiance(head)
	if env.Width == 0 || env.Height == 0 {
		return nil, &ImageError{File: name, Err: errors.New("empty image")}
	}
	return env, nil
}

func isRadiance(head []byte) bool {
	return bytes.HasPrefix(head, []byte("#?RADIANCE")) || bytes.HasPrefix(head, []byte("#?RGBE"))
}

func toEnvironment(img image.Image) *EnvironmentMap {
	b := img.Bounds()
	env := &EnvironmentMap{
		Width:  b.Dx(),
		Height: b.Dy(),
		Pixels: make([]float32, 0, b.Dx()*b.Dy()*3),
	}
	var sum [3]float64

	hdrImg, isHDR := img.(hdr.Image)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var r, g, bl float64
			if isHDR {
				r, g, bl, _ = hdrImg.HDRAt(x, y).HDRRGBA()
			} else {
				r16, g16, b16, _ := img.At(x, y).RGBA()
				r = srgbToLinear(float64(r16) / 0xffff)
				g = srgbToLinear(float64(g16) / 0xffff)
				bl = srgbToLinear(float64(b16) / 0xffff)
			}
			env.Pixels = append(env.Pixels, float32(r), float32(g), float32(bl))
			sum[0] += r
			sum[1] += g
			sum[2] += bl
		}
	}

	if n := float64(env.Width * env.Height); n > 0 {
		env.Average = scene.Color{float32(sum[0] / n), float32(sum[1] / n), float32(sum[2] / n)}
	}
	return env
}

func srgbToLinear(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}
