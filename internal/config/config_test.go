package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Window.Width != 1280 || cfg.Window.Height != 800 {
		t.Errorf("expected window 1280x800, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Window.FPSLimit != 60 {
		t.Errorf("expected fps limit 60, got %d", cfg.Window.FPSLimit)
	}

	if cfg.Viewer.CameraDistance != 3 {
		t.Errorf("expected camera distance 3, got %f", cfg.Viewer.CameraDistance)
	}

	if cfg.Lighting.Mode != "procedural" {
		t.Errorf("expected procedural lighting, got %s", cfg.Lighting.Mode)
	}
	if cfg.Lighting.Ambient != 0.6 {
		t.Errorf("expected ambient 0.6, got %f", cfg.Lighting.Ambient)
	}
	if cfg.Lighting.DirectionalPosition != [3]float32{5, 5, 5} {
		t.Errorf("expected key light at (5,5,5), got %v", cfg.Lighting.DirectionalPosition)
	}

	if cfg.Material.DefaultColor != "#a0a0a0" {
		t.Errorf("expected panel color #a0a0a0, got %s", cfg.Material.DefaultColor)
	}
	if cfg.Material.Metalness != 0.3 || cfg.Material.Roughness != 0.7 {
		t.Errorf("expected metalness 0.3 / roughness 0.7, got %f / %f", cfg.Material.Metalness, cfg.Material.Roughness)
	}

	if cfg.Snapshot.Filename != "model-snapshot.png" {
		t.Errorf("expected snapshot file model-snapshot.png, got %s", cfg.Snapshot.Filename)
	}

	if cfg.Upload.Backend != "local" {
		t.Errorf("expected local upload backend, got %s", cfg.Upload.Backend)
	}
	if cfg.Upload.Path != "/api/upload-model/" {
		t.Errorf("expected upload path /api/upload-model/, got %s", cfg.Upload.Path)
	}
	if cfg.Upload.Timeout != 30*time.Second {
		t.Errorf("expected timeout 30s, got %v", cfg.Upload.Timeout)
	}

	if cfg.Watch.Enabled {
		t.Error("expected watch to be disabled by default")
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
window:
  width: 1920
  height: 1080
  fps_limit: 144

viewer:
  camera_distance: 5
  automation_dir: "/tmp/folio"

lighting:
  mode: image
  environment_intensity: 0.5
  environment: "studio.hdr"

material:
  default_color: "#112233"

upload:
  backend: s3
  timeout: 5s
  s3:
    bucket: models
    region: eu-west-1
    prefix: uploads/

watch:
  enabled: true
  dir: "/srv/drop"

logging:
  level: "debug"
  log_file: "viewer.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Window.Width != 1920 || cfg.Window.Height != 1080 {
		t.Errorf("expected 1920x1080, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Window.FPSLimit != 144 {
		t.Errorf("expected fps limit 144, got %d", cfg.Window.FPSLimit)
	}
	if cfg.Viewer.CameraDistance != 5 {
		t.Errorf("expected camera distance 5, got %f", cfg.Viewer.CameraDistance)
	}
	if cfg.Lighting.Mode != "image" || cfg.Lighting.Environment != "studio.hdr" {
		t.Errorf("expected image lighting with studio.hdr, got %s / %s", cfg.Lighting.Mode, cfg.Lighting.Environment)
	}
	if cfg.Lighting.Ambient != 0.6 {
		t.Errorf("expected ambient to keep default 0.6, got %f", cfg.Lighting.Ambient)
	}
	if cfg.Material.DefaultColor != "#112233" {
		t.Errorf("expected #112233, got %s", cfg.Material.DefaultColor)
	}
	if cfg.Upload.Backend != "s3" || cfg.Upload.S3.Bucket != "models" || cfg.Upload.S3.Region != "eu-west-1" {
		t.Errorf("unexpected s3 settings: %+v", cfg.Upload)
	}
	if cfg.Upload.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Upload.Timeout)
	}
	if cfg.Upload.Path != "/api/upload-model/" {
		t.Errorf("expected upload path to keep default, got %s", cfg.Upload.Path)
	}
	if !cfg.Watch.Enabled || cfg.Watch.Dir != "/srv/drop" {
		t.Errorf("unexpected watch settings: %+v", cfg.Watch)
	}
	if cfg.Logging.LogFile != "viewer.log" {
		t.Errorf("expected log file viewer.log, got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("window: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"zero camera distance", func(c *Config) { c.Viewer.CameraDistance = 0 }, "camera_distance"},
		{"negative ambient", func(c *Config) { c.Lighting.Ambient = -1 }, "intensities"},
		{"negative environment", func(c *Config) { c.Lighting.EnvironmentIntensity = -0.1 }, "intensities"},
		{"unknown lighting mode", func(c *Config) { c.Lighting.Mode = "sunset" }, "lighting mode"},
		{"bad panel color", func(c *Config) { c.Material.DefaultColor = "grey" }, "material"},
		{"roughness above one", func(c *Config) { c.Material.Roughness = 1.5 }, "roughness"},
		{"unknown backend", func(c *Config) { c.Upload.Backend = "ftp" }, "unknown backend"},
		{"s3 without bucket", func(c *Config) { c.Upload.Backend = "s3" }, "bucket"},
		{"http without endpoint", func(c *Config) { c.Upload.Backend = "http"; c.Upload.Endpoint = "" }, "endpoint"},
		{"watch without dir", func(c *Config) { c.Watch.Enabled = true }, "watch"},
		{"zero window", func(c *Config) { c.Window.Width = 0 }, "window"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateReportsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Viewer.CameraDistance = -1
	cfg.Upload.Backend = "ftp"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "camera_distance") || !strings.Contains(err.Error(), "ftp") {
		t.Errorf("expected both problems reported, got %v", err)
	}
}

func TestUploadOptions(t *testing.T) {
	cfg := Default()
	cfg.Upload.Backend = "http"
	opts := cfg.UploadOptions()

	if opts.Endpoint != "http://127.0.0.1:8000" {
		t.Errorf("unexpected endpoint %s", opts.Endpoint)
	}
	if opts.CacheDir == "" {
		t.Error("expected a default cache dir")
	}

	cfg.Upload.CacheDir = "/var/cache/models"
	if got := cfg.UploadOptions().CacheDir; got != "/var/cache/models" {
		t.Errorf("expected configured cache dir, got %s", got)
	}
}

func TestSaveTo(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "subdir", "config.yaml")

	cfg := Default()
	cfg.Window.Width = 1600
	cfg.Lighting.Mode = "image"
	cfg.Upload.S3.Bucket = "models"

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, configPath); err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}

	if loaded.Window.Width != 1600 {
		t.Errorf("expected width 1600, got %d", loaded.Window.Width)
	}
	if loaded.Lighting.Mode != "image" {
		t.Errorf("expected image lighting, got %s", loaded.Lighting.Mode)
	}
	if loaded.Upload.S3.Bucket != "models" {
		t.Errorf("expected bucket models, got %s", loaded.Upload.S3.Bucket)
	}
	if loaded.Upload.Timeout != 30*time.Second {
		t.Errorf("expected timeout to survive round trip, got %v", loaded.Upload.Timeout)
	}
}

func TestSaveToReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("stale: true\n"), 0644); err != nil {
		t.Fatalf("failed to seed config: %v", err)
	}

	cfg := Default()
	cfg.CaptureLighting("image", 0.2, 0.4, [3]float32{1, 2, 3}, 1.5)
	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, configPath); err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Lighting.Mode != "image" || loaded.Lighting.Ambient != 0.2 || loaded.Lighting.EnvironmentIntensity != 1.5 {
		t.Errorf("lighting not persisted: %+v", loaded.Lighting)
	}
	if loaded.Lighting.DirectionalPosition != [3]float32{1, 2, 3} {
		t.Errorf("expected light position (1,2,3), got %v", loaded.Lighting.DirectionalPosition)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only config.yaml to remain, got %d entries", len(entries))
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("window:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find config.yaml in current directory")
	}
}

func TestFindConfigFileInUserDir(t *testing.T) {
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		t.Skip("XDG_CONFIG_HOME is only honored on unix")
	}
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)
	os.Chdir(t.TempDir())

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	want := filepath.Join(xdg, "folio-viewer", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(want), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(want, []byte("viewer:\n  camera_distance: 4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if got := findConfigFile(); got != want {
		t.Errorf("findConfigFile() = %q, want %q", got, want)
	}
}

func TestLoadFromFileEmpty(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, nil, 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("empty config should load, got %v", err)
	}
	if cfg.Window.Width != Default().Window.Width {
		t.Errorf("defaults changed by empty file: width %d", cfg.Window.Width)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name: "upload flags",
			setup: func() {
				*flagUpload = "http"
				*flagEndpoint = "http://models.internal:9000"
			},
			verify: func(cfg *Config) {
				if cfg.Upload.Backend != "http" {
					t.Errorf("expected http backend, got %s", cfg.Upload.Backend)
				}
				if cfg.Upload.Endpoint != "http://models.internal:9000" {
					t.Errorf("unexpected endpoint %s", cfg.Upload.Endpoint)
				}
			},
			teardown: func() {
				*flagUpload = ""
				*flagEndpoint = ""
			},
		},
		{
			name:  "watch flag enables watching",
			setup: func() { *flagWatch = "/srv/drop" },
			verify: func(cfg *Config) {
				if !cfg.Watch.Enabled || cfg.Watch.Dir != "/srv/drop" {
					t.Errorf("unexpected watch settings: %+v", cfg.Watch)
				}
			},
			teardown: func() { *flagWatch = "" },
		},
		{
			name: "width and height flags",
			setup: func() {
				*flagWidth = 2560
				*flagHeight = 1440
			},
			verify: func(cfg *Config) {
				if cfg.Window.Width != 2560 || cfg.Window.Height != 1440 {
					t.Errorf("expected 2560x1440, got %dx%d", cfg.Window.Width, cfg.Window.Height)
				}
			},
			teardown: func() {
				*flagWidth = 0
				*flagHeight = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	yamlContent := `
window:
  width: 1600
  height: 900
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagWidth = 1920
	defer func() {
		*flagConfig = ""
		*flagWidth = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Width from flag, height from file
	if cfg.Window.Width != 1920 {
		t.Errorf("expected width 1920 from flag, got %d", cfg.Window.Width)
	}
	if cfg.Window.Height != 900 {
		t.Errorf("expected height 900 from file, got %d", cfg.Window.Height)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("upload:\n  backend: carrier-pigeon\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); err == nil {
		t.Error("expected Load to reject an unknown backend")
	}
}
