// Package ui hosts the viewer in an SDL window with Dear ImGui panels.
package ui

import (
	"fmt"
	"os"

	"github.com/AllenDang/cimgui-go/backend"
	"github.com/AllenDang/cimgui-go/backend/sdlbackend"
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/folio-viewer/internal/logger"
)

const fontSize = 16

// partNameGlyphs are the code point ranges baked into the font atlas,
// [first, last] pairs ending in 0. Mesh names in real assets are often
// not ASCII.
var partNameGlyphs = []imgui.Wchar{
	0x0020, 0x024F, // Latin
	0x0370, 0x03FF, // Greek
	0x0400, 0x04FF, // Cyrillic
	0x2000, 0x206F, // punctuation
	0x3000, 0x30FF, // kana
	0x4E00, 0x9FFF, // CJK ideographs
	0xAC00, 0xD7AF, // Hangul
	0,
}

// unicodeFonts are tried in order; the ImGui default font is the fallback.
var unicodeFonts = []string{
	"/System/Library/Fonts/Supplemental/Arial Unicode.ttf",
	"/Library/Fonts/Arial Unicode.ttf",
	`C:\Windows\Fonts\arialuni.ttf`,
	`C:\Windows\Fonts\segoeui.ttf`,
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/truetype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/noto-cjk/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

// firstFile returns the first candidate that exists as a regular file.
func firstFile(candidates []string) (string, bool) {
	for _, p := range candidates {
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}

// Backend wraps the ImGui SDL backend and the GL context it owns.
type Backend struct {
	backend backend.Backend[sdlbackend.SDLWindowFlags]
	title   string
	shown   string
	log     *zap.Logger
}

// NewBackend creates the window and initializes OpenGL. It must be called
// on the locked main thread.
func NewBackend(title string, width, height int) (*Backend, error) {
	b := &Backend{title: title, shown: title, log: logger.Named("ui")}

	be, err := backend.CreateBackend(sdlbackend.NewSDLBackend())
	if err != nil {
		return nil, fmt.Errorf("sdl backend: %w", err)
	}
	b.backend = be

	// The atlas is built when the window is created
	be.SetAfterCreateContextHook(b.loadFont)
	be.SetBgColor(imgui.NewVec4(0.08, 0.08, 0.1, 1))
	be.CreateWindow(title, width, height)

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("init opengl: %w", err)
	}
	b.log.Info("window ready",
		zap.String("title", title),
		zap.String("gl", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		zap.Int("width", width), zap.Int("height", height))
	return b, nil
}

func (b *Backend) loadFont() {
	path, ok := firstFile(unicodeFonts)
	if !ok {
		b.log.Debug("no unicode font installed, part names may show as '?'")
		return
	}

	cfg := imgui.NewFontConfig()
	defer cfg.Destroy()
	if imgui.CurrentIO().Fonts().AddFontFromFileTTFV(path, fontSize, cfg, &partNameGlyphs[0]) == nil {
		b.log.Warn("font load failed", zap.String("path", path))
		return
	}
	b.log.Debug("font loaded", zap.String("path", path))
}

// SetTargetFPS caps the frame rate; zero leaves the backend default.
func (b *Backend) SetTargetFPS(fps int) {
	if fps > 0 {
		b.backend.SetTargetFPS(uint(fps))
	}
}

// OnDrop registers a callback for files dropped onto the window.
func (b *Backend) OnDrop(fn func(paths []string)) {
	b.backend.SetDropCallback(fn)
}

// Run calls frame once per display frame until the window closes.
func (b *Backend) Run(frame func()) {
	b.backend.Run(frame)
}

// ShowDocument puts doc after the application name in the window title.
// An empty doc shows the name alone.
func (b *Backend) ShowDocument(doc string) {
	t := documentTitle(b.title, doc)
	if t == b.shown {
		return
	}
	b.shown = t
	b.backend.SetWindowTitle(t)
}

func documentTitle(app, doc string) string {
	if doc == "" {
		return app
	}
	return doc + " - " + app
}
