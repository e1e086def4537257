// Package config handles viewer configuration loading and management.
package config

import "time"

// Config holds all viewer settings.
type Config struct {
	Window   WindowConfig   `yaml:"window"`
	Renderer RendererConfig `yaml:"renderer"`
	Camera   CameraConfig   `yaml:"camera"`
	Scene    SceneConfig    `yaml:"scene"`
	Assets   AssetsConfig   `yaml:"assets"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
	Samples    int    `yaml:"msaa"`

	ScreenshotDir string `yaml:"screenshot_dir"`
}

// RendererConfig holds frame-level render settings.
type RendererConfig struct {
	ClearColor       [4]float32 `yaml:"clear_color"`
	AmbientColor     [3]float32 `yaml:"ambient_color"`
	AmbientIntensity float32    `yaml:"ambient_intensity"`
}

// CameraConfig holds projection settings for the viewer camera.
type CameraConfig struct {
	FovY        float32 `yaml:"fov"`
	Near        float32 `yaml:"near"`
	Far         float32 `yaml:"far"`
	CullingMask uint32  `yaml:"culling_mask"`
}

// SceneConfig holds what the viewer shows and how it is lit.
type SceneConfig struct {
	Model     string     `yaml:"model"` // glTF/GLB path; empty shows a cube
	AutoScale bool       `yaml:"auto_scale"`
	SunLon    float32    `yaml:"sun_longitude"`
	SunLat    float32    `yaml:"sun_latitude"`
	SunColor  [3]float32 `yaml:"sun_color"`
	SunPower  float32    `yaml:"sun_intensity"`
	Headlight bool       `yaml:"headlight"`
}

// AssetsConfig holds asset lookup settings.
type AssetsConfig struct {
	Roots        []string      `yaml:"roots"`
	BaseURL      string        `yaml:"base_url"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	ShaderDir    string        `yaml:"shader_dir"`
	WatchShaders bool          `yaml:"watch_shaders"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:      "Forge3D",
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			Samples:    4,

			ScreenshotDir: "screenshots",
		},
		Renderer: RendererConfig{
			ClearColor:       [4]float32{0.1, 0.1, 0.15, 1},
			AmbientColor:     [3]float32{1, 1, 1},
			AmbientIntensity: 0.1,
		},
		Camera: CameraConfig{
			FovY:        45,
			Near:        0.1,
			Far:         1000,
			CullingMask: 0xFFFF,
		},
		Scene: SceneConfig{
			AutoScale: false,
			SunLon:    45,
			SunLat:    50,
			SunColor:  [3]float32{1, 1, 1},
			SunPower:  1,
			Headlight: true,
		},
		Assets: AssetsConfig{
			Roots:        []string{"."},
			FetchTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
