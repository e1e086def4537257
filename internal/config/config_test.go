package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test window defaults
	if cfg.Window.Width != 1280 {
		t.Errorf("expected width 1280, got %d", cfg.Window.Width)
	}
	if cfg.Window.Height != 720 {
		t.Errorf("expected height 720, got %d", cfg.Window.Height)
	}
	if cfg.Window.Fullscreen {
		t.Error("expected fullscreen to be false by default")
	}
	if !cfg.Window.VSync {
		t.Error("expected vsync to be true by default")
	}
	if cfg.Window.Samples != 4 {
		t.Errorf("expected 4 MSAA samples, got %d", cfg.Window.Samples)
	}
	if cfg.Window.ScreenshotDir != "screenshots" {
		t.Errorf("expected screenshot dir 'screenshots', got %s", cfg.Window.ScreenshotDir)
	}

	// Test renderer defaults
	if cfg.Renderer.AmbientIntensity != 0.1 {
		t.Errorf("expected ambient intensity 0.1, got %f", cfg.Renderer.AmbientIntensity)
	}
	if cfg.Renderer.ClearColor[3] != 1 {
		t.Errorf("expected opaque clear color, got %v", cfg.Renderer.ClearColor)
	}

	// Test camera defaults
	if cfg.Camera.FovY != 45 {
		t.Errorf("expected fov 45, got %f", cfg.Camera.FovY)
	}
	if cfg.Camera.CullingMask != 0xFFFF {
		t.Errorf("expected culling mask 0xFFFF, got %#x", cfg.Camera.CullingMask)
	}

	// Test scene defaults
	if cfg.Scene.Model != "" {
		t.Errorf("expected no model by default, got %s", cfg.Scene.Model)
	}
	if !cfg.Scene.Headlight {
		t.Error("expected headlight to be enabled by default")
	}

	// Test assets defaults
	if cfg.Assets.FetchTimeout != 30*time.Second {
		t.Errorf("expected fetch timeout 30s, got %v", cfg.Assets.FetchTimeout)
	}
	if cfg.Assets.WatchShaders {
		t.Error("expected shader watching to be off by default")
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
window:
  title: "Preview"
  width: 1920
  height: 1080
  fullscreen: true
  vsync: false

renderer:
  clear_color: [0, 0, 0, 1]
  ambient_color: [1, 0.9, 0.8]
  ambient_intensity: 0.25

camera:
  fov: 60
  near: 0.5
  far: 500
  culling_mask: 3

scene:
  model: "models/helmet.glb"
  auto_scale: true
  sun_longitude: 120
  sun_latitude: 30
  sun_color: [1, 0.95, 0.9]
  sun_intensity: 2
  headlight: false

assets:
  roots: ["assets", "/srv/shared"]
  base_url: "https://cdn.example.com/models/"
  fetch_timeout: 5s
  shader_dir: "shaders"
  watch_shaders: true

logging:
  level: "debug"
  log_file: "viewer.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Load config
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify values were loaded
	if cfg.Window.Title != "Preview" {
		t.Errorf("expected title Preview, got %s", cfg.Window.Title)
	}
	if cfg.Window.Width != 1920 {
		t.Errorf("expected width 1920, got %d", cfg.Window.Width)
	}
	if cfg.Window.Height != 1080 {
		t.Errorf("expected height 1080, got %d", cfg.Window.Height)
	}
	if !cfg.Window.Fullscreen {
		t.Error("expected fullscreen to be true")
	}
	if cfg.Window.VSync {
		t.Error("expected vsync to be false")
	}

	if cfg.Renderer.AmbientIntensity != 0.25 {
		t.Errorf("expected ambient intensity 0.25, got %f", cfg.Renderer.AmbientIntensity)
	}
	if cfg.Renderer.AmbientColor != [3]float32{1, 0.9, 0.8} {
		t.Errorf("unexpected ambient color %v", cfg.Renderer.AmbientColor)
	}

	if cfg.Camera.FovY != 60 || cfg.Camera.Near != 0.5 || cfg.Camera.Far != 500 {
		t.Errorf("unexpected camera %+v", cfg.Camera)
	}
	if cfg.Camera.CullingMask != 3 {
		t.Errorf("expected culling mask 3, got %d", cfg.Camera.CullingMask)
	}

	if cfg.Scene.Model != "models/helmet.glb" {
		t.Errorf("expected model models/helmet.glb, got %s", cfg.Scene.Model)
	}
	if !cfg.Scene.AutoScale {
		t.Error("expected auto_scale to be true")
	}
	if cfg.Scene.SunLon != 120 || cfg.Scene.SunLat != 30 {
		t.Errorf("unexpected sun angles %f, %f", cfg.Scene.SunLon, cfg.Scene.SunLat)
	}
	if cfg.Scene.Headlight {
		t.Error("expected headlight to be false")
	}

	if len(cfg.Assets.Roots) != 2 || cfg.Assets.Roots[1] != "/srv/shared" {
		t.Errorf("unexpected roots %v", cfg.Assets.Roots)
	}
	if cfg.Assets.BaseURL != "https://cdn.example.com/models/" {
		t.Errorf("unexpected base url %s", cfg.Assets.BaseURL)
	}
	if cfg.Assets.FetchTimeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Assets.FetchTimeout)
	}
	if !cfg.Assets.WatchShaders {
		t.Error("expected watch_shaders to be true")
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "viewer.log" {
		t.Errorf("expected log file 'viewer.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	// Create temporary config file with invalid YAML
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
window:
  width: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Try to load - should error
	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Actual path depends on OS
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

	// No config file exists - should return empty
	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("window:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	path = findConfigFile()
	if path == "" {
		t.Error("expected to find config.yaml in current directory")
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Scene.Model = "models/box.gltf"
	cfg.Assets.FetchTimeout = 2 * time.Second
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if loaded.Scene.Model != "models/box.gltf" {
		t.Errorf("expected model to survive save, got %s", loaded.Scene.Model)
	}
	if loaded.Assets.FetchTimeout != 2*time.Second {
		t.Errorf("expected timeout to survive save, got %v", loaded.Assets.FetchTimeout)
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
			name: "debug flag",
			setup: func() {
				*flagDebug = true
			},
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() {
				*flagDebug = false
			},
		},
		{
			name: "model flag",
			setup: func() {
				*flagModel = "models/duck.glb"
			},
			verify: func(cfg *Config) {
				if cfg.Scene.Model != "models/duck.glb" {
					t.Errorf("expected model models/duck.glb, got %s", cfg.Scene.Model)
				}
			},
			teardown: func() {
				*flagModel = ""
			},
		},
		{
			name: "asset url flag",
			setup: func() {
				*flagAssetURL = "http://localhost:8000/"
			},
			verify: func(cfg *Config) {
				if cfg.Assets.BaseURL != "http://localhost:8000/" {
					t.Errorf("expected base url override, got %s", cfg.Assets.BaseURL)
				}
			},
			teardown: func() {
				*flagAssetURL = ""
			},
		},
		{
			name: "shader flags",
			setup: func() {
				*flagShaderDir = "dev/shaders"
				*flagWatch = true
			},
			verify: func(cfg *Config) {
				if cfg.Assets.ShaderDir != "dev/shaders" {
					t.Errorf("expected shader dir dev/shaders, got %s", cfg.Assets.ShaderDir)
				}
				if !cfg.Assets.WatchShaders {
					t.Error("expected shader watching with watch flag")
				}
			},
			teardown: func() {
				*flagShaderDir = ""
				*flagWatch = false
			},
		},
		{
			name: "windowed flag",
			setup: func() {
				*flagWindowed = true
			},
			verify: func(cfg *Config) {
				if cfg.Window.Fullscreen {
					t.Error("expected fullscreen to be false with windowed flag")
				}
			},
			teardown: func() {
				*flagWindowed = false
			},
		},
		{
			name: "fullscreen flag",
			setup: func() {
				*flagFullscreen = true
			},
			verify: func(cfg *Config) {
				if !cfg.Window.Fullscreen {
					t.Error("expected fullscreen to be true with fullscreen flag")
				}
			},
			teardown: func() {
				*flagFullscreen = false
			},
		},
		{
			name: "width and height flags",
			setup: func() {
				*flagWidth = 2560
				*flagHeight = 1440
			},
			verify: func(cfg *Config) {
				if cfg.Window.Width != 2560 {
					t.Errorf("expected width 2560, got %d", cfg.Window.Width)
				}
				if cfg.Window.Height != 1440 {
					t.Errorf("expected height 1440, got %d", cfg.Window.Height)
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
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
window:
  width: 1600
  height: 900
scene:
  model: "from-file.gltf"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Set flags to override config file
	*flagConfig = configPath
	*flagWidth = 1920
	*flagModel = "from-flag.gltf"
	defer func() {
		*flagConfig = ""
		*flagWidth = 0
		*flagModel = ""
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Width should be from flag (1920), not file (1600)
	if cfg.Window.Width != 1920 {
		t.Errorf("expected width 1920 from flag, got %d", cfg.Window.Width)
	}

	// Height should be from file (900) since no flag override
	if cfg.Window.Height != 900 {
		t.Errorf("expected height 900 from file, got %d", cfg.Window.Height)
	}

	if cfg.Scene.Model != "from-flag.gltf" {
		t.Errorf("expected model from flag, got %s", cfg.Scene.Model)
	}
}

func TestLoadFromFileUnknownKey(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("window:\n  widht: 800\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	err := loadFromFile(Default(), configPath)
	if err == nil || !strings.Contains(err.Error(), "widht") {
		t.Errorf("expected unknown key error, got %v", err)
	}
}

func TestLoadFromFileEmpty(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, nil, 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("expected empty file to load, got %v", err)
	}
	if cfg.Window.Width != 1280 {
		t.Errorf("expected defaults to survive, got width %d", cfg.Window.Width)
	}
}

func TestLoadFromFileRelativePaths(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	yamlContent := "assets:\n  roots: [\"models\", \"/abs\"]\n  shader_dir: \"glsl\"\n"
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Assets.Roots[0] != filepath.Join(tmpDir, "models") {
		t.Errorf("expected root relative to config file, got %s", cfg.Assets.Roots[0])
	}
	if cfg.Assets.Roots[1] != "/abs" {
		t.Errorf("expected absolute root unchanged, got %s", cfg.Assets.Roots[1])
	}
	if cfg.Assets.ShaderDir != filepath.Join(tmpDir, "glsl") {
		t.Errorf("expected shader dir relative to config file, got %s", cfg.Assets.ShaderDir)
	}

	// Defaults are not rebased.
	other := filepath.Join(tmpDir, "other.yaml")
	if err := os.WriteFile(other, []byte("window:\n  width: 640\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg = Default()
	if err := loadFromFile(cfg, other); err != nil {
		t.Fatal(err)
	}
	if len(cfg.Assets.Roots) != 1 || cfg.Assets.Roots[0] != "." {
		t.Errorf("expected default root '.', got %v", cfg.Assets.Roots)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"zero width", func(c *Config) { c.Window.Width = 0 }, false},
		{"negative msaa", func(c *Config) { c.Window.Samples = -2 }, false},
		{"fov too wide", func(c *Config) { c.Camera.FovY = 180 }, false},
		{"far before near", func(c *Config) { c.Camera.Far = 0.05 }, false},
		{"zero near", func(c *Config) { c.Camera.Near = 0 }, false},
		{"negative sun", func(c *Config) { c.Scene.SunPower = -1 }, false},
		{"negative timeout", func(c *Config) { c.Assets.FetchTimeout = -time.Second }, false},
		{"watch without dir", func(c *Config) { c.Assets.WatchShaders = true }, false},
		{"watch with dir", func(c *Config) {
			c.Assets.WatchShaders = true
			c.Assets.ShaderDir = "shaders"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("expected valid config, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestSaveToHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := Default().SaveTo(path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Forge3D") {
		t.Errorf("expected header comment, got %q", data[:20])
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("expected temporary file to be renamed")
	}
}
