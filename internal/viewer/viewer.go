// Package viewer ties the scene, selection, property panel, camera,
// lighting and snapshot components together and serializes every scene
// mutation onto the render thread.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/folio-viewer/internal/binding"
	"github.com/Faultbox/folio-viewer/internal/camera"
	"github.com/Faultbox/folio-viewer/internal/composition"
	"github.com/Faultbox/folio-viewer/internal/highlight"
	"github.com/Faultbox/folio-viewer/internal/lighting"
	"github.com/Faultbox/folio-viewer/internal/loader"
	"github.com/Faultbox/folio-viewer/internal/logger"
	"github.com/Faultbox/folio-viewer/internal/picking"
	"github.com/Faultbox/folio-viewer/internal/scene"
	"github.com/Faultbox/folio-viewer/internal/snapshot"
	"github.com/Faultbox/folio-viewer/internal/upload"
)

// MessageKind classifies a user-visible message.
type MessageKind int

const (
	Info MessageKind = iota
	Error
)

func (k MessageKind) String() string {
	if k == Error {
		return "error"
	}
	return "info"
}

// Message is shown in the message list until dismissed.
type Message struct {
	Kind MessageKind
	Text string
	Time time.Time
}

// Options configure New.
type Options struct {
	CameraDistance       float32
	Lights               lighting.Lights
	LightingMode         lighting.Mode
	EnvironmentIntensity float32
	PanelDefaults        binding.Fields
	SnapshotDir          string
	SnapshotFile         string
	AutomationDir        string
}

// DefaultOptions mirrors the default configuration.
func DefaultOptions() Options {
	return Options{
		CameraDistance:       3,
		Lights:               lighting.DefaultLights(),
		EnvironmentIntensity: 1,
		PanelDefaults: binding.Fields{
			Color:     scene.MustHexColor("#a0a0a0"),
			Metalness: 0.3,
			Roughness: 0.7,
		},
		SnapshotFile: snapshot.DefaultFilename,
	}
}

// Viewer is the application core. Apart from Load, LoadEnvironment and
// Pending, its methods must be called on the render thread.
type Viewer struct {
	scene    *composition.Manager
	binding  *binding.Controller
	camera   *camera.ViewController
	lighting *lighting.Controller
	exporter *snapshot.Exporter
	loader   *loader.Dispatcher
	store    upload.Store
	surface  snapshot.Surface

	mu      sync.Mutex
	queue   []func()
	pending atomic.Int32

	messages      []Message
	automationDir string
	log           *zap.Logger
}

// New builds a viewer. A nil store means files are used in place.
func New(opts Options, store upload.Store) *Viewer {
	if store == nil {
		store = upload.LocalStore{}
	}
	if opts.CameraDistance <= 0 {
		opts.CameraDistance = 3
	}

	v := &Viewer{
		scene:         composition.NewManager(),
		camera:        camera.NewViewController(opts.CameraDistance),
		lighting:      lighting.NewController(opts.Lights, opts.EnvironmentIntensity),
		exporter:      snapshot.NewExporter(opts.SnapshotDir, opts.SnapshotFile),
		loader:        loader.NewDispatcher(),
		store:         store,
		automationDir: opts.AutomationDir,
		log:           logger.Named("viewer"),
	}
	v.lighting.SetMode(opts.LightingMode)
	v.binding = binding.NewController(v.scene, opts.PanelDefaults)
	v.scene.OnChange(func(_, _ highlight.Selection) { v.binding.Sync() })
	return v
}

// Scene returns the composition manager.
func (v *Viewer) Scene() *composition.Manager { return v.scene }

// Binding returns the property panel controller.
func (v *Viewer) Binding() *binding.Controller { return v.binding }

// Camera returns the view controller.
func (v *Viewer) Camera() *camera.ViewController { return v.camera }

// Lighting returns the lighting controller.
func (v *Viewer) Lighting() *lighting.Controller { return v.lighting }

// Dispatcher returns the format dispatcher, for registering extra decoders.
func (v *Viewer) Dispatcher() *loader.Dispatcher { return v.loader }

// SetSurface installs the render target read by Snapshot.
func (v *Viewer) SetSurface(s snapshot.Surface) { v.surface = s }

// enqueue schedules fn to run on the render thread during the next Update.
func (v *Viewer) enqueue(fn func()) {
	v.mu.Lock()
	v.queue = append(v.queue, fn)
	v.mu.Unlock()
}

// Update applies every completed background task. Call it once at the
// start of each frame.
func (v *Viewer) Update() {
	v.mu.Lock()
	queue := v.queue
	v.queue = nil
	v.mu.Unlock()

	for _, fn := range queue {
		fn()
	}
	v.pollCommands()
}

// Pending returns the number of loads whose result has not been applied.
func (v *Viewer) Pending() int {
	return int(v.pending.Load())
}

// Load uploads, fetches and decodes the model at path in the background.
// Files with an unrecognized extension are ignored. The new instance
// appears after the Update following completion; failures become messages.
func (v *Viewer) Load(ctx context.Context, path string) {
	filename := upload.FilenameOf(path)
	if _, ok := loader.DetectFormat(filename); !ok {
		v.log.Debug("ignoring unsupported file", zap.String("file", filename))
		return
	}

	v.pending.Add(1)
	v.log.Info("loading model", zap.String("file", filename))
	go func() {
		sourceURL, res, err := v.fetchAndDecode(ctx, path, filename)
		v.enqueue(func() {
			defer v.pending.Add(-1)
			v.finishLoad(filename, sourceURL, res, err)
		})
	}()
}

func (v *Viewer) fetchAndDecode(ctx context.Context, path, filename string) (string, *loader.Result, error) {
	sourceURL, err := v.store.Upload(ctx, path)
	if err != nil {
		return "", nil, err
	}
	local, err := v.store.Resolve(ctx, sourceURL)
	if err != nil {
		return sourceURL, nil, err
	}
	res, err := v.loader.Load(ctx, local, filename)
	return sourceURL, res, err
}

func (v *Viewer) finishLoad(filename, sourceURL string, res *loader.Result, err error) {
	var transport *upload.TransportError
	var decode *loader.DecodeError
	switch {
	case err == nil:
		id := v.scene.AddInstance(res.Root, filename, sourceURL, res.Format)
		v.log.Info("model loaded", zap.String("file", filename), zap.Uint64("id", id))
	case errors.Is(err, loader.ErrUnsupportedFormat):
		v.log.Debug("unsupported format", zap.String("file", filename))
	case errors.As(err, &transport):
		v.log.Warn("upload failed", zap.String("file", filename), zap.Error(err))
		v.addMessage(Error, fmt.Sprintf("Upload failed: %v", transport.Err))
	case errors.As(err, &decode):
		v.log.Warn("decode failed", zap.String("file", filename), zap.Error(err))
		v.addMessage(Error, fmt.Sprintf("Could not read %s: %v", filename, decode.Err))
	default:
		v.log.Warn("load failed", zap.String("file", filename), zap.Error(err))
		v.addMessage(Error, fmt.Sprintf("Could not load %s: %v", filename, err))
	}
}

// LoadEnvironment decodes an equirectangular image in the background and
// installs it as the image-based environment. The lighting mode is not
// changed.
func (v *Viewer) LoadEnvironment(ctx context.Context, path string) {
	v.pending.Add(1)
	go func() {
		env, err := lighting.DecodeEnvironment(ctx, path)
		v.enqueue(func() {
			defer v.pending.Add(-1)
			if err != nil {
				v.log.Warn("environment image failed", zap.String("path", path), zap.Error(err))
				v.addMessage(Error, err.Error())
				return
			}
			v.lighting.SetEnvironment(env)
			v.log.Info("environment loaded",
				zap.String("file", env.Source),
				zap.Int("width", env.Width),
				zap.Int("height", env.Height),
				zap.Bool("hdr", env.HDR),
			)
		})
	}()
}

// RemoveInstance removes an instance from the scene.
func (v *Viewer) RemoveInstance(id uint64) bool {
	return v.scene.RemoveInstance(id)
}

// FrameScene fits the orbit camera to every loaded instance and returns to
// the free view. It reports false when the scene is empty.
func (v *Viewer) FrameScene() bool {
	min, max, ok := v.scene.Bounds()
	if !ok {
		return false
	}
	v.camera.Orbit().FitToBounds(min, max)
	v.camera.SetView(camera.Free)
	return true
}

// PointerMove updates hover from a pick along ray.
func (v *Viewer) PointerMove(ray picking.Ray) {
	ref, _ := v.scene.Pick(ray)
	v.hover(ref)
}

// PointerExit clears hover when the pointer leaves the viewport.
func (v *Viewer) PointerExit() {
	v.hover(highlight.None)
}

func (v *Viewer) hover(ref highlight.Ref) {
	prev := v.scene.Selection().Hovered
	if prev == ref {
		return
	}
	if !prev.IsZero() {
		v.scene.Dispatch(highlight.Event{Kind: highlight.PointerLeave, Target: prev})
	}
	if !ref.IsZero() {
		v.scene.Dispatch(highlight.Event{Kind: highlight.PointerEnter, Target: ref})
	}
}

// PointerDown selects the nearest mesh along ray, or clears the selection
// when nothing is hit.
func (v *Viewer) PointerDown(ray picking.Ray) {
	ref, _ := v.scene.Pick(ray)
	v.scene.Dispatch(highlight.Event{Kind: highlight.PointerDown, Target: ref})
}

// KeyEscape clears the selection.
func (v *Viewer) KeyEscape() {
	v.scene.Dispatch(highlight.Event{Kind: highlight.Escape})
}

// Select selects a mesh by reference, as a click on it would.
func (v *Viewer) Select(ref highlight.Ref) {
	v.scene.Dispatch(highlight.Event{Kind: highlight.PointerDown, Target: ref})
}

// SetColor edits the selected mesh's base color.
func (v *Viewer) SetColor(c scene.Color) bool { return v.binding.SetColor(c) }

// SetMetalness edits the selected mesh's metalness.
func (v *Viewer) SetMetalness(x float32) bool { return v.binding.SetMetalness(x) }

// SetRoughness edits the selected mesh's roughness.
func (v *Viewer) SetRoughness(x float32) bool { return v.binding.SetRoughness(x) }

// SetPosition moves the selected mesh.
func (v *Viewer) SetPosition(p mgl32.Vec3) bool { return v.binding.SetPosition(p) }

// Snapshot writes the last rendered frame. Without a frame it does nothing.
func (v *Viewer) Snapshot() (string, error) {
	path, err := v.exporter.Export(v.surface)
	if err != nil {
		v.log.Warn("snapshot failed", zap.Error(err))
		v.addMessage(Error, fmt.Sprintf("Snapshot failed: %v", err))
		return "", err
	}
	if path != "" {
		v.addMessage(Info, "Saved "+path)
	}
	return path, nil
}

func (v *Viewer) addMessage(kind MessageKind, text string) {
	v.messages = append(v.messages, Message{Kind: kind, Text: text, Time: time.Now()})
}

// Messages returns the undismissed messages, oldest first.
func (v *Viewer) Messages() []Message {
	return v.messages
}

// DismissMessage removes message i.
func (v *Viewer) DismissMessage(i int) {
	if i < 0 || i >= len(v.messages) {
		return
	}
	v.messages = append(v.messages[:i], v.messages[i+1:]...)
}
