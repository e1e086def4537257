// Package viewer implements the model viewer main loop.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sqweek/dialog"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/forge3d/internal/assets"
	"github.com/Faultbox/forge3d/internal/config"
	"github.com/Faultbox/forge3d/internal/engine/debug"
	"github.com/Faultbox/forge3d/internal/engine/gfx/glbackend"
	"github.com/Faultbox/forge3d/internal/engine/input"
	"github.com/Faultbox/forge3d/internal/engine/scene"
	"github.com/Faultbox/forge3d/internal/engine/shader"
	"github.com/Faultbox/forge3d/internal/engine/window"
	"github.com/Faultbox/forge3d/internal/logger"
)

// Viewer is the running application.
type Viewer struct {
	config  *config.Config
	running bool

	window  *window.Window
	gl      *glbackend.Context
	scene   *scene.Scene
	assets  *assets.Manager
	input   *input.Input
	watcher *shader.Watcher
	stage   *stage

	screenshots *debug.Screenshots
	// pending receives model paths picked in the file dialog, which runs
	// off the main thread.
	pending chan string

	ctx context.Context
	log *zap.Logger
}

// New opens the window and builds the scene described by cfg.
func New(ctx context.Context, cfg *config.Config) (*Viewer, error) {
	v := &Viewer{
		config:      cfg,
		screenshots: debug.NewScreenshots(cfg.Window.ScreenshotDir, "forge3d"),
		pending:     make(chan string, 1),
		ctx:         ctx,
		log:         logger.Named("viewer"),
	}
	v.log.Info("initializing viewer",
		zap.String("title", cfg.Window.Title),
		zap.Int("width", cfg.Window.Width),
		zap.Int("height", cfg.Window.Height),
		zap.String("model", cfg.Scene.Model),
	)

	if err := v.init(ctx); err != nil {
		v.Close()
		return nil, err
	}

	v.log.Info("viewer initialized successfully")
	return v, nil
}

func (v *Viewer) init(ctx context.Context) error {
	cfg := v.config

	var err error
	v.window, err = window.New(window.Config{
		Title:      cfg.Window.Title,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
		Samples:    cfg.Window.Samples,
	})
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}

	// The GL backend needs the context the window just made current.
	v.gl, err = glbackend.New(glbackend.Config{DrawableSize: v.window.GetDrawableSize})
	if err != nil {
		return fmt.Errorf("failed to create graphics context: %w", err)
	}

	sceneCfg := scene.DefaultConfig()
	sceneCfg.Renderer = RendererConfig(cfg.Renderer)
	sceneCfg.ShaderDir = cfg.Assets.ShaderDir
	v.scene, err = scene.New(v.gl, sceneCfg)
	if err != nil {
		return fmt.Errorf("failed to create scene: %w", err)
	}

	v.assets, err = assets.NewManagerFromConfig(assets.Config{
		Roots:   cfg.Assets.Roots,
		BaseURL: cfg.Assets.BaseURL,
		Timeout: cfg.Assets.FetchTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create asset manager: %w", err)
	}

	v.stage, err = newStage(ctx, v.scene, v.assets, cfg)
	if err != nil {
		return err
	}

	if cfg.Assets.WatchShaders && cfg.Assets.ShaderDir != "" {
		v.watcher, err = shader.NewWatcher(cfg.Assets.ShaderDir)
		if err != nil {
			v.log.Warn("shader hot reload disabled", zap.Error(err))
		}
	}

	v.input = input.New()
	return nil
}

// Run starts the main loop and returns when the window is closed.
func (v *Viewer) Run() error {
	v.running = true

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	v.log.Info("starting render loop")

	for v.running {
		if v.ctx.Err() != nil {
			v.log.Info("interrupted")
			break
		}

		now := time.Now()
		dt := now.Sub(lastTime).Seconds()
		lastTime = now

		// 1. Process input
		if v.input.Update() {
			v.running = false
			break
		}
		if err := v.handleEvents(); err != nil {
			return err
		}

		// 2. Update behaviours and shaders
		v.update(float32(dt))

		// 3. Render
		v.stage.draw()

		// 4. Present
		v.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			stats := v.scene.Renderer.Stats()
			v.log.Debug("fps",
				zap.Int("count", frameCount),
				zap.String("dt", fmt.Sprintf("%.2fms", dt*1000)),
				zap.Int("drawCalls", stats.DrawCalls),
				zap.Int("programs", stats.Programs),
			)
			v.window.SetTitle(fmt.Sprintf("%s - %d fps, %d draws", v.config.Window.Title, frameCount, stats.DrawCalls))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

func (v *Viewer) handleEvents() error {
	for _, event := range v.input.Events() {
		if event.Type == input.EventMouseDown && event.Button == sdl.BUTTON_RIGHT {
			w, h := v.window.GetSize()
			v.stage.focus(float32(event.MouseX), float32(event.MouseY), float32(w), float32(h))
			continue
		}
		if event.Type != input.EventKeyDown {
			continue
		}
		switch event.Key {
		case sdl.SCANCODE_ESCAPE:
			v.running = false
		case sdl.SCANCODE_F:
			v.stage.refit()
		case sdl.SCANCODE_P:
			w, h := v.window.GetDrawableSize()
			on, err := v.stage.togglePreview(w, h)
			if err != nil {
				return fmt.Errorf("preview: %w", err)
			}
			v.log.Info("preview toggled", zap.Bool("enabled", on))
		case sdl.SCANCODE_R:
			v.reloadShaders(nil)
		case sdl.SCANCODE_O:
			v.openFileDialog()
		case sdl.SCANCODE_F11:
			if err := v.window.ToggleFullscreen(); err != nil {
				v.log.Warn("fullscreen toggle failed", zap.Error(err))
			}
		case sdl.SCANCODE_F12:
			v.screenshot()
		}
	}

	dx, dy := v.input.Drag(sdl.BUTTON_LEFT)
	if dx != 0 || dy != 0 {
		v.stage.arcball.HandleDrag(float32(dx), float32(dy))
	}
	if wheel := v.input.Wheel(); wheel != 0 {
		v.stage.arcball.HandleZoom(wheel)
	}
	return nil
}

func (v *Viewer) update(dt float32) {
	select {
	case path := <-v.pending:
		if err := v.openModel(path); err != nil {
			v.log.Error("failed to open model", zap.String("path", path), zap.Error(err))
		}
	default:
	}

	if v.watcher != nil {
		if files := v.watcher.Poll(); len(files) > 0 {
			v.reloadShaders(files)
		}
	}
	v.stage.update(dt)
}

// reloadShaders rebuilds programs for the families using files, or for
// every family when files is nil. Failures are logged, not returned.
func (v *Viewer) reloadShaders(files []string) {
	if files == nil {
		files = []string{shader.HeaderFile}
	}
	n, err := v.scene.ReloadShaders(files)
	if err != nil {
		v.log.Error("shader reload failed", zap.Strings("files", files), zap.Error(err))
		return
	}
	v.log.Info("shaders reloaded", zap.Strings("files", files), zap.Int("families", n))
}

// openFileDialog shows a native file dialog to pick a glTF model.
func (v *Viewer) openFileDialog() {
	// The dialog blocks, so it runs in a goroutine and the chosen path is
	// opened on the main thread by update.
	go func() {
		filename, err := dialog.File().
			Filter("glTF Models", "gltf", "glb").
			Filter("All Files", "*").
			Title("Open Model").
			Load()
		if err != nil {
			if !errors.Is(err, dialog.ErrCancelled) {
				v.log.Warn("file dialog error", zap.Error(err))
			}
			return
		}
		select {
		case v.pending <- filename:
		default:
		}
	}()
}

// openModel replaces the scene content with the model at path, a file
// system path outside the asset roots. Its directory becomes the highest
// priority root so relative buffers and images resolve.
func (v *Viewer) openModel(path string) error {
	if err := v.assets.AddDir(filepath.Dir(path)); err != nil {
		return err
	}
	// Cached names may belong to the previous model's directory.
	v.assets.Cache().Clear()

	cfg := *v.config
	cfg.Scene.Model = filepath.Base(path)

	v.scene.Clear()
	if err := v.scene.Init(); err != nil {
		return fmt.Errorf("resetting scene: %w", err)
	}
	st, err := newStage(v.ctx, v.scene, v.assets, &cfg)
	if err != nil {
		// Fall back to the cube so the viewer keeps running.
		v.scene.Clear()
		if initErr := v.scene.Init(); initErr != nil {
			return errors.Join(err, initErr)
		}
		cfg.Scene.Model = ""
		fallback, fallbackErr := newStage(v.ctx, v.scene, v.assets, &cfg)
		if fallbackErr != nil {
			return errors.Join(err, fallbackErr)
		}
		v.stage = fallback
		return err
	}

	v.stage = st
	v.log.Info("model opened", zap.String("path", path))
	return nil
}

// screenshot saves the window and, when shown, the preview target.
func (v *Viewer) screenshot() {
	if _, err := v.screenshots.Capture(v.gl); err != nil {
		v.log.Error("screenshot failed", zap.Error(err))
	}
	if p := v.stage.preview; p != nil && p.enabled {
		if _, err := v.screenshots.CaptureTarget(v.gl, p.target); err != nil {
			v.log.Error("preview screenshot failed", zap.Error(err))
		}
	}
}

// Close releases everything in reverse creation order.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")

	if v.watcher != nil {
		_ = v.watcher.Close()
	}
	if v.assets != nil {
		v.assets.Close()
	}
	if v.scene != nil {
		v.scene.Close()
	}
	if v.gl != nil {
		v.gl.Close()
	}
	if v.window != nil {
		v.window.Close()
	}
}
