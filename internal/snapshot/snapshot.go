// Package snapshot writes the current rendered frame to a PNG file.
package snapshot

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/folio-viewer/internal/logger"
)

// DefaultFilename is used when no filename is configured.
const DefaultFilename = "model-snapshot.png"

// Surface is a render target whose last frame can be read back.
// ReadFrame returns RGBA rows bottom-up (OpenGL order); ok is false when
// nothing has been rendered yet.
type Surface interface {
	ReadFrame() (pixels []byte, width, height int, ok bool)
}

// Exporter writes snapshots under a fixed name; each export overwrites the
// previous one.
type Exporter struct {
	dir      string
	filename string
	log      *zap.Logger
}

// NewExporter creates an exporter writing dir/filename.
func NewExporter(dir, filename string) *Exporter {
	if filename == "" {
		filename = DefaultFilename
	}
	return &Exporter{dir: dir, filename: filename, log: logger.Named("snapshot")}
}

// Path returns the file the next export will write.
func (e *Exporter) Path() string {
	if e.dir == "" {
		return e.filename
	}
	return filepath.Join(e.dir, e.filename)
}

// Export captures surface. Without a surface or a rendered frame it does
// nothing and returns an empty path and nil error.
func (e *Exporter) Export(surface Surface) (string, error) {
	if surface == nil {
		return "", nil
	}
	pixels, width, height, ok := surface.ReadFrame()
	if !ok || width <= 0 || height <= 0 {
		e.log.Debug("snapshot skipped, no frame")
		return "", nil
	}

	img, err := FromPixels(pixels, width, height)
	if err != nil {
		return "", err
	}

	if e.dir != "" {
		if err := os.MkdirAll(e.dir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}
	path := e.Path()
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("encoding PNG: %w", err)
	}

	e.log.Info("snapshot saved", zap.String("path", path), zap.Int("width", width), zap.Int("height", height))
	return path, nil
}

// FromPixels builds an image from bottom-up RGBA rows, flipping them so
// row 0 is the top of the picture.
func FromPixels(pixels []byte, width, height int) (*image.RGBA, error) {
	if len(pixels) != width*height*4 {
		return nil, fmt.Errorf("pixel data size mismatch: expected %d, got %d", width*height*4, len(pixels))
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rowSize := width * 4
	for y := 0; y < height; y++ {
		src := (height - 1 - y) * rowSize
		dst := y * img.Stride
		copy(img.Pix[dst:dst+rowSize], pixels[src:src+rowSize])
	}
	return img, nil
}
