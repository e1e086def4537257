package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagModel      = flag.String("model", "", "glTF or GLB model to show")
	flagAssetURL   = flag.String("asset-url", "", "Base URL for assets missing from the local roots")
	flagShaderDir  = flag.String("shaders", "", "Directory overriding the built-in shaders")
	flagWatch      = flag.Bool("watch", false, "Reload shaders when files in the shader directory change")
	flagWindowed   = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth      = flag.Int("width", 0, "Window width")
	flagHeight     = flag.Int("height", 0, "Window height")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagModel != "" {
		cfg.Scene.Model = *flagModel
	}
	if *flagAssetURL != "" {
		cfg.Assets.BaseURL = *flagAssetURL
	}
	if *flagShaderDir != "" {
		cfg.Assets.ShaderDir = *flagShaderDir
	}
	if *flagWatch {
		cfg.Assets.WatchShaders = true
	}
	if *flagWindowed {
		cfg.Window.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Window.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
}
