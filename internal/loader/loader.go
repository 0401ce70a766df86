// Package loader selects a model decoder by file extension and turns an
// asset on disk into a normalized, material-isolated scene graph.
package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/folio-viewer/internal/logger"
	"github.com/Faultbox/folio-viewer/internal/scene"
)

// Format identifies a model container format.
type Format string

// Supported formats.
const (
	FormatGLTF Format = "gltf"
	FormatOBJ  Format = "obj"
	FormatSTL  Format = "stl"
)

var extensions = map[string]Format{
	".glb":  FormatGLTF,
	".gltf": FormatGLTF,
	".obj":  FormatOBJ,
	".stl":  FormatSTL,
}

// Extensions returns the recognized extensions without the leading dot,
// for file pickers.
func Extensions() []string {
	return []string{"glb", "gltf", "obj", "stl"}
}

// ErrUnsupportedFormat is returned when the file extension is not one of the
// recognized model formats. Callers treat it as a silent no-op.
var ErrUnsupportedFormat = errors.New("unsupported model format")

// DecodeError reports a recognized file whose payload could not be decoded.
type DecodeError struct {
	File   string
	Format Format
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s (%s): %v", e.File, e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DetectFormat maps a filename to its format, case-insensitively.
func DetectFormat(filename string) (Format, bool) {
	f, ok := extensions[strings.ToLower(filepath.Ext(filename))]
	return f, ok
}

// Decoder turns the file at path into a scene subtree.
type Decoder interface {
	Decode(ctx context.Context, path string) (*scene.Node, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(ctx context.Context, path string) (*scene.Node, error)

// Decode calls f.
func (f DecoderFunc) Decode(ctx context.Context, path string) (*scene.Node, error) {
	return f(ctx, path)
}

// Result is a decoded, isolated model ready to be handed to the scene
// composition manager.
type Result struct {
	Root   *scene.Node
	Format Format
	Meshes int
}

// Dispatcher routes files to the decoder registered for their format.
type Dispatcher struct {
	decoders map[Format]Decoder
	log      *zap.Logger
}

// NewDispatcher returns a dispatcher with the glTF, OBJ and STL decoders registered.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		decoders: make(map[Format]Decoder),
		log:      logger.Named("loader"),
	}
	d.Register(FormatGLTF, DecoderFunc(DecodeGLTF))
	d.Register(FormatOBJ, DecoderFunc(DecodeOBJ))
	d.Register(FormatSTL, DecoderFunc(DecodeSTL))
	return d
}

// Register installs or replaces the decoder for a format.
func (d *Dispatcher) Register(f Format, dec Decoder) {
	d.decoders[f] = dec
}

// Load decodes the file at path. filename is the user-facing name used for
// format detection and as the root node name; it may differ from the base
// name of path when the asset was fetched into a cache.
//
// Unrecognized extensions return ErrUnsupportedFormat. Decoder failures,
// empty results and isolation failures return *DecodeError.
func (d *Dispatcher) Load(ctx context.Context, path, filename string) (*Result, error) {
	format, ok := DetectFormat(filename)
	if !ok {
		d.log.Debug("ignoring unsupported file", zap.String("file", filename))
		return nil, ErrUnsupportedFormat
	}
	dec, ok := d.decoders[format]
	if !ok {
		return nil, ErrUnsupportedFormat
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	root, err := dec.Decode(ctx, path)
	if err != nil {
		return nil, &DecodeError{File: filename, Format: format, Err: err}
	}
	if root == nil {
		return nil, &DecodeError{File: filename, Format: format, Err: errors.New("decoder returned no scene")}
	}

	meshes := len(root.Meshes())
	if meshes == 0 {
		return nil, &DecodeError{File: filename, Format: format, Err: errors.New("no renderable meshes")}
	}

	aliased := scene.AliasedMaterials(root)
	if _, err := scene.IsolateMaterials(root); err != nil {
		return nil, &DecodeError{File: filename, Format: format, Err: err}
	}
	root.Name = filename

	d.log.Info("model decoded",
		zap.String("file", filename),
		zap.String("format", string(format)),
		zap.Int("meshes", meshes),
		zap.Int("aliased_materials", aliased),
		zap.Duration("took", time.Since(start)),
	)

	return &Result{Root: root, Format: format, Meshes: meshes}, nil
}
