package viewer

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/forge3d/internal/assets"
	"github.com/Faultbox/forge3d/internal/config"
	"github.com/Faultbox/forge3d/internal/engine/behavior"
	"github.com/Faultbox/forge3d/internal/engine/camera"
	"github.com/Faultbox/forge3d/internal/engine/lighting"
	"github.com/Faultbox/forge3d/internal/engine/node"
	"github.com/Faultbox/forge3d/internal/engine/picking"
	"github.com/Faultbox/forge3d/internal/engine/primitive"
	"github.com/Faultbox/forge3d/internal/engine/renderer"
	"github.com/Faultbox/forge3d/internal/engine/rendertarget"
	"github.com/Faultbox/forge3d/internal/engine/scene"
	"github.com/Faultbox/forge3d/internal/gltfimport"
	"github.com/Faultbox/forge3d/internal/logger"
)

// PreviewLayer holds the screen showing the render-target preview. It lies
// outside the default culling mask so only the preview pass draws it.
const PreviewLayer uint32 = 1 << 16

// headlightIntensity is the strength of the light that follows the camera.
const headlightIntensity = 0.5

// RendererConfig converts the renderer section of the viewer config.
func RendererConfig(c config.RendererConfig) renderer.Config {
	return renderer.Config{
		ClearColor:       mgl32.Vec4(c.ClearColor),
		AmbientColor:     mgl32.Vec3(c.AmbientColor),
		AmbientIntensity: c.AmbientIntensity,
	}
}

// stage is everything the viewer places in the scene.
type stage struct {
	scene     *scene.Scene
	camera    *camera.Camera
	arcball   *behavior.Arcball
	behaviors behavior.List

	model     *node.Node
	sun       *lighting.Light
	headlight *lighting.Light

	preview *preview
	log     *zap.Logger
}

// preview renders the scene into an offscreen target shown on a screen
// inside the scene itself.
type preview struct {
	target  *rendertarget.Target
	screen  *node.Node
	enabled bool
}

// newStage populates s from cfg: the model or a cube, the sun, the
// optional headlight and an arcball camera.
func newStage(ctx context.Context, s *scene.Scene, m *assets.Manager, cfg *config.Config) (*stage, error) {
	st := &stage{
		scene:  s,
		camera: s.Camera(),
		log:    logger.Named("viewer"),
	}

	cam := st.camera
	cam.SetFovY(cfg.Camera.FovY)
	cam.SetNear(cfg.Camera.Near)
	cam.SetFar(cfg.Camera.Far)
	cam.CullingMask = cfg.Camera.CullingMask &^ PreviewLayer

	if err := st.loadModel(ctx, m, cfg.Scene); err != nil {
		return nil, err
	}
	if err := st.createLights(cfg.Scene); err != nil {
		return nil, err
	}

	st.arcball = behavior.NewArcball(cam.Node)
	st.arcball.FitToBounds(s.WorldBounds(st.model))
	st.behaviors.Add(st.arcball)
	if st.headlight != nil {
		st.behaviors.Add(behavior.NewHeadlight(st.headlight.Node, cam.Node))
	}

	return st, nil
}

func (st *stage) loadModel(ctx context.Context, m *assets.Manager, cfg config.SceneConfig) error {
	if cfg.Model != "" {
		loader := gltfimport.NewLoader(st.scene, m)
		loader.AutoScale = cfg.AutoScale
		res, err := loader.Load(ctx, cfg.Model)
		if err != nil {
			return fmt.Errorf("loading model: %w", err)
		}
		st.model = res.Root
		return nil
	}

	cube, err := st.scene.CreateMeshFromData("viewer/cube", primitive.Cube(2, nil))
	if err != nil {
		return fmt.Errorf("creating cube: %w", err)
	}
	n := node.New("cube")
	st.scene.Root.AddChild(n)
	if _, err := st.scene.CreateMeshInstance(n, cube); err != nil {
		return fmt.Errorf("placing cube: %w", err)
	}
	st.model = n
	return nil
}

func (st *stage) createLights(cfg config.SceneConfig) error {
	sunNode := node.New("sun")
	st.scene.Root.AddChild(sunNode)
	sun, err := st.scene.CreateLight(sunNode, lighting.Directional)
	if err != nil {
		return fmt.Errorf("creating sun: %w", err)
	}
	sun.Color = mgl32.Vec3(cfg.SunColor)
	sun.Intensity = cfg.SunPower
	lighting.Aim(sunNode, lighting.DirectionFromAngles(cfg.SunLon, cfg.SunLat).Mul(-1))
	sunNode.UpdateMatrix()
	st.sun = sun

	if !cfg.Headlight {
		return nil
	}
	// Shares the camera's parent so the copied local pose is its world pose.
	headNode := node.New("headlight")
	st.camera.Node.Parent().AddChild(headNode)
	head, err := st.scene.CreateLight(headNode, lighting.Directional)
	if err != nil {
		return fmt.Errorf("creating headlight: %w", err)
	}
	head.Intensity = headlightIntensity
	st.headlight = head
	return nil
}

// togglePreview creates the preview target and screen on first use and
// toggles it afterwards. It reports whether the preview is now shown.
func (st *stage) togglePreview(width, height int) (bool, error) {
	if st.preview == nil {
		p, err := st.createPreview(width, height)
		if err != nil {
			return false, err
		}
		st.preview = p
	}
	st.preview.enabled = !st.preview.enabled
	return st.preview.enabled, nil
}

func (st *stage) createPreview(width, height int) (*preview, error) {
	target, err := st.scene.CreateRenderTarget(width/2, height/2)
	if err != nil {
		return nil, err
	}

	mat := st.scene.NewUnlit(true)
	mat.DiffuseMap = target.ColorTexture()
	screenMesh, err := st.scene.CreateMeshFromData("viewer/preview", primitive.Cube(1, mat))
	if err != nil {
		return nil, err
	}

	b := st.scene.WorldBounds(st.model)
	size := float32(1)
	if b.Valid() && b.Diagonal() > 0 {
		size = b.Diagonal() / 2
	}

	screen := node.New("preview")
	screen.LayerMask = PreviewLayer
	screen.Scale = mgl32.Vec3{size * 16 / 9, size, size * 0.02}
	if b.Valid() {
		screen.Position = mgl32.Vec3{b.Max.X() + size, b.Center().Y(), b.Center().Z()}
	}
	st.scene.Root.AddChild(screen)

	if _, err := st.scene.CreateMeshInstance(screen, screenMesh); err != nil {
		return nil, err
	}

	st.log.Info("preview created", zap.Int("width", width/2), zap.Int("height", height/2))
	return &preview{target: target, screen: screen}, nil
}

func (st *stage) update(dt float32) {
	st.behaviors.Update(dt)
}

// draw renders a frame. With the preview on, the scene is first drawn into
// the target without the screen, then to the window with it.
func (st *stage) draw() {
	if st.preview == nil || !st.preview.enabled {
		st.scene.Draw()
		return
	}

	r := st.scene.Renderer
	mask := st.camera.CullingMask

	st.camera.CullingMask = mask &^ PreviewLayer
	r.SetRenderTarget(st.preview.target)
	st.scene.Draw()

	st.camera.CullingMask = mask | PreviewLayer
	r.SetRenderTarget(nil)
	st.scene.Draw()

	st.camera.CullingMask = mask
}

// focus orbits the instance under the screen point (x, y) of a width by
// height window. It reports whether anything was hit.
func (st *stage) focus(x, y, width, height float32) bool {
	ray := picking.FromCamera(st.camera, x, y, width, height)
	hit, ok := picking.Pick(ray, st.scene.Renderer.Instances(), st.camera.CullingMask)
	if !ok {
		return false
	}
	st.arcball.FitToBounds(hit.Instance.WorldBounds())
	st.log.Debug("focused", zap.String("node", hit.Instance.Node.Name), zap.Float32("distance", hit.Distance))
	return true
}

// refit points the arcball at the model again.
func (st *stage) refit() {
	st.arcball.FitToBounds(st.scene.WorldBounds(st.model))
}
