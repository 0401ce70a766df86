// Package watch forwards model files dropped into a folder to the viewer.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/folio-viewer/internal/logger"
)

// DefaultDebounce is how long a file must stay quiet before it is handed on.
const DefaultDebounce = 300 * time.Millisecond

// Watcher reports files created, written or renamed into a directory once
// their write burst has settled.
type Watcher struct {
	dir      string
	accept   func(name string) bool
	onFile   func(path string)
	debounce time.Duration

	fsw     *fsnotify.Watcher
	mu      sync.Mutex
	pending map[string]*time.Timer
	log     *zap.Logger
}

// New watches dir. accept filters by filename; onFile runs on the watcher's
// goroutine and must not block.
func New(dir string, accept func(name string) bool, onFile func(path string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}
	return &Watcher{
		dir:      dir,
		accept:   accept,
		onFile:   onFile,
		debounce: DefaultDebounce,
		fsw:      fsw,
		pending:  make(map[string]*time.Timer),
		log:      logger.Named("watch"),
	}, nil
}

// SetDebounce changes the quiet period. Non-positive values keep the
// default. Call before Run.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	w.log.Info("watching drop folder", zap.String("dir", w.dir))
	defer w.close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if w.accept != nil && !w.accept(filepath.Base(event.Name)) {
				continue
			}
			w.schedule(event.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.log.Debug("file settled", zap.String("path", path))
		w.onFile(path)
	})
}

func (w *Watcher) close() {
	w.mu.Lock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	w.fsw.Close()
}
