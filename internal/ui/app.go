package ui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/folio-viewer/internal/composition"
	"github.com/Faultbox/folio-viewer/internal/loader"
	"github.com/Faultbox/folio-viewer/internal/logger"
	"github.com/Faultbox/folio-viewer/internal/render"
	"github.com/Faultbox/folio-viewer/internal/viewer"
)

// environmentExtensions are the image types the environment decoder reads.
var environmentExtensions = []string{"hdr", "png", "jpg", "jpeg", "bmp", "tif", "tiff", "webp"}

type fileKind int

const (
	fileIgnored fileKind = iota
	fileModel
	fileEnvironment
)

// classify decides what a picked or dropped file is by its extension.
func classify(path string) fileKind {
	if _, ok := loader.DetectFormat(path); ok {
		return fileModel
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if slices.Contains(environmentExtensions, ext) {
		return fileEnvironment
	}
	return fileIgnored
}

type picked struct {
	kind fileKind
	path string
}

// App draws the viewer panels each frame.
type App struct {
	backend  *Backend
	viewer   *viewer.Viewer
	renderer *render.Renderer
	ctx      context.Context

	// Dialog results arrive from a goroutine and are applied on the main
	// thread.
	picks      chan picked
	dialogOpen atomic.Bool

	saveSettings func() error

	snapshotRequested bool
	viewportHovered   bool
	lastMouse         imgui.Vec2

	log *zap.Logger
}

// NewApp creates the renderer for the viewport and installs it as the
// viewer's snapshot surface. The GL context must already exist.
func NewApp(ctx context.Context, b *Backend, v *viewer.Viewer, viewportW, viewportH int) (*App, error) {
	r, err := render.New(int32(viewportW), int32(viewportH))
	if err != nil {
		return nil, err
	}
	v.SetSurface(r)

	app := &App{
		backend:  b,
		viewer:   v,
		renderer: r,
		ctx:      ctx,
		picks:    make(chan picked, 4),
		log:      logger.Named("ui"),
	}
	b.OnDrop(app.Open)
	return app, nil
}

// SetSaveSettings installs the action behind "Save as default" in the
// lighting panel. Without one the button is hidden.
func (a *App) SetSaveSettings(fn func() error) {
	a.saveSettings = fn
}

// Run blocks in the render loop until the window closes.
func (a *App) Run() {
	a.backend.Run(a.frame)
}

// Close releases GL resources.
func (a *App) Close() {
	a.viewer.SetSurface(nil)
	a.renderer.Destroy()
}

// Open loads each path as a model or environment image by extension.
// Anything else is ignored.
func (a *App) Open(paths []string) {
	for _, p := range paths {
		switch classify(p) {
		case fileModel:
			a.viewer.Load(a.ctx, p)
		case fileEnvironment:
			a.viewer.LoadEnvironment(a.ctx, p)
		default:
			a.log.Debug("ignoring file", zap.String("path", p))
		}
	}
}

func (a *App) frame() {
	// Capture before this frame redraws the framebuffer
	if a.snapshotRequested {
		a.snapshotRequested = false
		a.viewer.Snapshot()
	}

	a.drainPicks()
	a.viewer.Update()
	a.backend.ShowDocument(documentName(a.viewer.Scene().Instances()))
	a.handleShortcuts()
	a.layout()
}

// documentName names the open models for the window title.
func documentName(instances []*composition.Instance) string {
	switch len(instances) {
	case 0:
		return ""
	case 1:
		return instances[0].DisplayName
	default:
		return fmt.Sprintf("%s +%d", instances[0].DisplayName, len(instances)-1)
	}
}

func (a *App) drainPicks() {
	for {
		select {
		case p := <-a.picks:
			if p.kind == fileEnvironment {
				a.viewer.LoadEnvironment(a.ctx, p.path)
			} else {
				a.viewer.Load(a.ctx, p.path)
			}
		default:
			return
		}
	}
}

func (a *App) handleShortcuts() {
	if imgui.IsKeyChordPressed(imgui.KeyChord(imgui.KeyF12)) {
		a.snapshotRequested = true
	}
	ctrlO := imgui.KeyChord(imgui.ModCtrl) | imgui.KeyChord(imgui.KeyO)
	if imgui.IsKeyChordPressed(ctrlO) {
		a.openDialog(fileModel)
	}
	ctrlF := imgui.KeyChord(imgui.ModCtrl) | imgui.KeyChord(imgui.KeyF)
	if imgui.IsKeyChordPressed(ctrlF) {
		a.viewer.FrameScene()
	}
	if !imgui.IsAnyItemActive() && imgui.IsKeyChordPressed(imgui.KeyChord(imgui.KeyEscape)) {
		a.viewer.KeyEscape()
	}
}

// openDialog shows a native file dialog. SDL/Cocoa window operations must
// stay on the main thread, so the result is queued for the next frame.
func (a *App) openDialog(kind fileKind) {
	if !a.dialogOpen.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer a.dialogOpen.Store(false)

		b := dialog.File()
		if kind == fileModel {
			b = b.Title("Open Model").Filter("3D Models", loader.Extensions()...)
		} else {
			b = b.Title("Open Environment Image").Filter("Environment Images", environmentExtensions...)
		}
		path, err := b.Filter("All Files", "*").Load()
		if err != nil {
			if !errors.Is(err, dialog.ErrCancelled) {
				a.log.Warn("file dialog failed", zap.Error(err))
			}
			return
		}
		a.picks <- picked{kind: kind, path: path}
	}()
}
