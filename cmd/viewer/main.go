// Folio Viewer - an interactive viewer for glTF, OBJ and STL models.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/Faultbox/folio-viewer/internal/binding"
	"github.com/Faultbox/folio-viewer/internal/config"
	"github.com/Faultbox/folio-viewer/internal/lighting"
	"github.com/Faultbox/folio-viewer/internal/loader"
	"github.com/Faultbox/folio-viewer/internal/logger"
	"github.com/Faultbox/folio-viewer/internal/scene"
	"github.com/Faultbox/folio-viewer/internal/ui"
	"github.com/Faultbox/folio-viewer/internal/upload"
	"github.com/Faultbox/folio-viewer/internal/viewer"
	"github.com/Faultbox/folio-viewer/internal/watch"
)

func main() {
	// SDL and OpenGL calls must stay on the main thread
	runtime.LockOSThread()

	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	var fileCfg logger.FileConfig
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
		fileCfg.MaxSizeMB = cfg.Logging.MaxSizeMB
		fileCfg.MaxBackups = cfg.Logging.MaxBackups
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, true); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Folio Viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if err := run(cfg); err != nil {
		logger.Error("viewer error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("viewer closed normally")
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := upload.New(cfg.Upload.Backend, cfg.UploadOptions())
	if err != nil {
		return fmt.Errorf("upload backend: %w", err)
	}
	logger.Info("model store ready", zap.String("backend", cfg.Upload.Backend))

	opts, err := viewerOptions(cfg)
	if err != nil {
		return err
	}
	v := viewer.New(opts, store)

	if cfg.Watch.Enabled {
		accept := func(name string) bool {
			_, ok := loader.DetectFormat(name)
			return ok
		}
		w, err := watch.New(cfg.Watch.Dir, accept, func(path string) { v.Load(ctx, path) })
		if err != nil {
			return fmt.Errorf("watch %s: %w", cfg.Watch.Dir, err)
		}
		w.SetDebounce(cfg.Watch.Debounce)
		go w.Run(ctx)
		logger.Info("watching for models", zap.String("dir", cfg.Watch.Dir))
	}

	b, err := ui.NewBackend(cfg.Window.Title, cfg.Window.Width, cfg.Window.Height)
	if err != nil {
		return err
	}
	b.SetTargetFPS(cfg.Window.FPSLimit)

	app, err := ui.NewApp(ctx, b, v, cfg.Viewer.ViewportWidth, cfg.Viewer.ViewportHeight)
	if err != nil {
		return fmt.Errorf("renderer: %w", err)
	}
	defer app.Close()
	app.SetSaveSettings(func() error {
		lc := v.Lighting()
		l := lc.Lights()
		cfg.CaptureLighting(lc.Mode().String(), l.Ambient, l.Directional, l.DirectionalPosition, lc.EnvironmentIntensity())
		if err := cfg.Save(); err != nil {
			return err
		}
		logger.Info("settings saved", zap.String("dir", config.ConfigDir()))
		return nil
	})

	if cfg.Lighting.Environment != "" {
		v.LoadEnvironment(ctx, cfg.Lighting.Environment)
	}
	app.Open(config.Args())

	app.Run()
	return nil
}

// viewerOptions maps the validated config onto viewer.Options.
func viewerOptions(cfg *config.Config) (viewer.Options, error) {
	mode, err := lighting.ParseMode(cfg.Lighting.Mode)
	if err != nil {
		return viewer.Options{}, err
	}
	panelColor, err := scene.ParseHexColor(cfg.Material.DefaultColor)
	if err != nil {
		return viewer.Options{}, err
	}

	opts := viewer.DefaultOptions()
	opts.CameraDistance = cfg.Viewer.CameraDistance
	opts.AutomationDir = cfg.Viewer.AutomationDir
	opts.Lights = lighting.Lights{
		Ambient:             cfg.Lighting.Ambient,
		Directional:         cfg.Lighting.Directional,
		DirectionalPosition: cfg.Lighting.DirectionalPosition,
	}
	opts.LightingMode = mode
	opts.EnvironmentIntensity = cfg.Lighting.EnvironmentIntensity
	opts.PanelDefaults = binding.Fields{
		Color:     panelColor,
		Metalness: cfg.Material.Metalness,
		Roughness: cfg.Material.Roughness,
	}
	opts.SnapshotDir = cfg.Snapshot.Dir
	if cfg.Snapshot.Filename != "" {
		opts.SnapshotFile = cfg.Snapshot.Filename
	}
	return opts, nil
}
