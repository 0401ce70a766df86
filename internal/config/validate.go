package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/folio-viewer/internal/lighting"
	"github.com/Faultbox/folio-viewer/internal/scene"
	"github.com/Faultbox/folio-viewer/internal/upload"
)

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window: size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Window.FPSLimit < 0 {
		errs = append(errs, errors.New("window: fps_limit must not be negative"))
	}
	if c.Viewer.CameraDistance <= 0 {
		errs = append(errs, fmt.Errorf("viewer: camera_distance must be positive, got %g", c.Viewer.CameraDistance))
	}
	if _, err := lighting.ParseMode(c.Lighting.Mode); err != nil {
		errs = append(errs, fmt.Errorf("lighting: %w", err))
	}
	if c.Lighting.Ambient < 0 || c.Lighting.Directional < 0 || c.Lighting.EnvironmentIntensity < 0 {
		errs = append(errs, errors.New("lighting: intensities must not be negative"))
	}
	if _, err := scene.ParseHexColor(c.Material.DefaultColor); err != nil {
		errs = append(errs, fmt.Errorf("material: %w", err))
	}
	if !unit(c.Material.Metalness) || !unit(c.Material.Roughness) {
		errs = append(errs, errors.New("material: metalness and roughness must be within [0, 1]"))
	}
	switch strings.ToLower(c.Upload.Backend) {
	case "", upload.BackendLocal:
	case upload.BackendHTTP:
		if c.Upload.Endpoint == "" {
			errs = append(errs, errors.New("upload: http backend needs an endpoint"))
		}
	case upload.BackendS3:
		if c.Upload.S3.Bucket == "" {
			errs = append(errs, errors.New("upload: s3 backend needs a bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("upload: unknown backend %q", c.Upload.Backend))
	}
	if c.Upload.Timeout < 0 {
		errs = append(errs, errors.New("upload: timeout must not be negative"))
	}
	if c.Watch.Enabled && c.Watch.Dir == "" {
		errs = append(errs, errors.New("watch: enabled without a dir"))
	}

	return errors.Join(errs...)
}

func unit(v float32) bool {
	return v >= 0 && v <= 1
}

// UploadOptions converts the upload section for upload.New.
func (c *Config) UploadOptions() upload.Options {
	cacheDir := c.Upload.CacheDir
	if cacheDir == "" {
		cacheDir = CacheDir()
	}
	return upload.Options{
		Endpoint: c.Upload.Endpoint,
		Path:     c.Upload.Path,
		Timeout:  c.Upload.Timeout,
		CacheDir: cacheDir,
		S3:       c.Upload.S3,
	}
}
