// Package config handles viewer configuration loading and management.
package config

import (
	"time"

	"github.com/Faultbox/folio-viewer/internal/upload"
)

// Config holds all viewer settings.
type Config struct {
	Window   WindowConfig   `yaml:"window"`
	Viewer   ViewerConfig   `yaml:"viewer"`
	Lighting LightingConfig `yaml:"lighting"`
	Material MaterialConfig `yaml:"material"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Upload   UploadConfig   `yaml:"upload"`
	Watch    WatchConfig    `yaml:"watch"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// WindowConfig holds the host window settings.
type WindowConfig struct {
	Title    string `yaml:"title"`
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	FPSLimit int    `yaml:"fps_limit"` // 0 leaves pacing to the backend
}

// ViewerConfig holds viewport and camera settings.
type ViewerConfig struct {
	CameraDistance float32 `yaml:"camera_distance"`
	ViewportWidth  int     `yaml:"viewport_width"`
	ViewportHeight int     `yaml:"viewport_height"`
	AutomationDir  string  `yaml:"automation_dir"` // command.json / state.json exchange, empty disables
}

// LightingConfig holds the procedural rig and environment settings.
type LightingConfig struct {
	Mode                 string     `yaml:"mode"` // "procedural" or "image"
	Ambient              float32    `yaml:"ambient"`
	Directional          float32    `yaml:"directional"`
	DirectionalPosition  [3]float32 `yaml:"directional_position"`
	EnvironmentIntensity float32    `yaml:"environment_intensity"`
	Environment          string     `yaml:"environment"` // optional image loaded at startup
}

// MaterialConfig holds the property panel values shown before any
// selection.
type MaterialConfig struct {
	DefaultColor string  `yaml:"default_color"`
	Metalness    float32 `yaml:"metalness"`
	Roughness    float32 `yaml:"roughness"`
}

// SnapshotConfig holds where snapshots are written.
type SnapshotConfig struct {
	Dir      string `yaml:"dir"`
	Filename string `yaml:"filename"`
}

// UploadConfig selects and configures the model store.
type UploadConfig struct {
	Backend  string           `yaml:"backend"` // "local", "http" or "s3"
	Endpoint string           `yaml:"endpoint"`
	Path     string           `yaml:"path"`
	Timeout  time.Duration    `yaml:"timeout"`
	CacheDir string           `yaml:"cache_dir"`
	S3       upload.S3Options `yaml:"s3"`
}

// WatchConfig holds the drop-folder settings.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Dir      string        `yaml:"dir"`
	Debounce time.Duration `yaml:"debounce"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:    "Folio Viewer",
			Width:    1280,
			Height:   800,
			FPSLimit: 60,
		},
		Viewer: ViewerConfig{
			CameraDistance: 3,
			ViewportWidth:  960,
			ViewportHeight: 640,
		},
		Lighting: LightingConfig{
			Mode:                 "procedural",
			Ambient:              0.6,
			Directional:          1,
			DirectionalPosition:  [3]float32{5, 5, 5},
			EnvironmentIntensity: 1,
		},
		Material: MaterialConfig{
			DefaultColor: "#a0a0a0",
			Metalness:    0.3,
			Roughness:    0.7,
		},
		Snapshot: SnapshotConfig{
			Filename: "model-snapshot.png",
		},
		Upload: UploadConfig{
			Backend:  upload.BackendLocal,
			Endpoint: "http://127.0.0.1:8000",
			Path:     "/api/upload-model/",
			Timeout:  30 * time.Second,
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  20,
			MaxBackups: 3,
		},
	}
}
