package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Save writes the config to the user's config directory.
func (c *Config) Save() error {
	return c.SaveTo(filepath.Join(ConfigDir(), "config.yaml"))
}

// SaveTo writes the config to path through a temp file and rename.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// CaptureLighting copies live lighting values into the config so Save
// persists them as the startup defaults.
func (c *Config) CaptureLighting(mode string, ambient, directional float32, position [3]float32, envIntensity float32) {
	c.Lighting.Mode = mode
	c.Lighting.Ambient = ambient
	c.Lighting.Directional = directional
	c.Lighting.DirectionalPosition = position
	c.Lighting.EnvironmentIntensity = envIntensity
}
