package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// FileName is the name looked up in the working and config directories.
const FileName = "config.yaml"

// Load loads configuration with priority: defaults < file < flags, then
// validates the result.
func Load() (*Config, error) {
	cfg := Default()

	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file, preferring the
// working directory over ConfigDir.
func findConfigFile() string {
	for _, path := range []string{
		FileName,
		filepath.Join(ConfigDir(), FileName),
	} {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Forge3D")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Forge3D")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "forge3d")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "forge3d")
	}
}

// loadFromFile merges the YAML file at path into cfg. Unknown keys are an
// error. Relative asset roots and the shader directory are taken relative
// to the file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	// Only paths written in the file are rebased; defaults stay relative to
	// the working directory.
	var paths struct {
		Assets struct {
			Roots     []string `yaml:"roots"`
			ShaderDir string   `yaml:"shader_dir"`
		} `yaml:"assets"`
	}
	if err := yaml.Unmarshal(data, &paths); err != nil {
		return err
	}
	base := filepath.Dir(path)
	if len(paths.Assets.Roots) > 0 {
		cfg.Assets.Roots = make([]string, len(paths.Assets.Roots))
		for i, root := range paths.Assets.Roots {
			cfg.Assets.Roots[i] = resolve(base, root)
		}
	}
	if paths.Assets.ShaderDir != "" {
		cfg.Assets.ShaderDir = resolve(base, paths.Assets.ShaderDir)
	}
	return nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Validate reports the first setting the viewer cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	case c.Window.Samples < 0:
		return fmt.Errorf("msaa sample count %d must not be negative", c.Window.Samples)
	case c.Camera.FovY <= 0 || c.Camera.FovY >= 180:
		return fmt.Errorf("camera fov %g must be between 0 and 180", c.Camera.FovY)
	case c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near:
		return fmt.Errorf("camera clip range %g..%g is invalid", c.Camera.Near, c.Camera.Far)
	case c.Renderer.AmbientIntensity < 0 || c.Scene.SunPower < 0:
		return errors.New("light intensities must not be negative")
	case c.Assets.FetchTimeout < 0:
		return fmt.Errorf("fetch timeout %v must not be negative", c.Assets.FetchTimeout)
	case c.Assets.WatchShaders && c.Assets.ShaderDir == "":
		return errors.New("watch_shaders needs shader_dir")
	}
	return nil
}
