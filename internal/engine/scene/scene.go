// Package scene ties the engine together: it owns the graphics context, the
// node hierarchy and every resource registry, and drives the renderer.
package scene

import (
	"errors"
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/forge3d/internal/engine/bounds"
	"github.com/Faultbox/forge3d/internal/engine/camera"
	"github.com/Faultbox/forge3d/internal/engine/gfx"
	"github.com/Faultbox/forge3d/internal/engine/lighting"
	"github.com/Faultbox/forge3d/internal/engine/material"
	"github.com/Faultbox/forge3d/internal/engine/mesh"
	"github.com/Faultbox/forge3d/internal/engine/node"
	"github.com/Faultbox/forge3d/internal/engine/renderer"
	"github.com/Faultbox/forge3d/internal/engine/rendertarget"
	"github.com/Faultbox/forge3d/internal/engine/shader"
	"github.com/Faultbox/forge3d/internal/engine/texture"
	"github.com/Faultbox/forge3d/internal/logger"
)

// ErrResourceCollision is returned when a named resource already exists.
var ErrResourceCollision = errors.New("resource name collision")

// Default camera placement.
var (
	DefaultCameraPosition = mgl32.Vec3{0, 7, 10}
	DefaultCameraTarget   = mgl32.Vec3{0, 1, 0}
)

// Config contains scene configuration options.
type Config struct {
	Renderer renderer.Config

	// ShaderDir overrides the embedded GLSL sources when set.
	ShaderDir string
}

// DefaultConfig returns a default scene configuration.
func DefaultConfig() Config {
	return Config{Renderer: renderer.DefaultConfig()}
}

// Scene manages the node hierarchy and the resources drawn from it.
type Scene struct {
	ctx    gfx.Context
	config Config
	log    *zap.Logger

	// Root is the top of the transform hierarchy.
	Root *node.Node

	Library       *shader.Library
	Programs      *shader.Cache
	Meshes        *mesh.Registry
	Textures      *texture.Registry
	Lights        *lighting.Lights
	Cameras       *camera.Cameras
	RenderTargets *rendertarget.Targets
	Renderer      *renderer.Renderer

	shaders map[string]*shader.Shader
}

// New creates a scene on ctx and initializes it.
// IMPORTANT: Must be called AFTER the graphics context is created!
func New(ctx gfx.Context, cfg Config) (*Scene, error) {
	lib, err := shader.NewLibrary(cfg.ShaderDir)
	if err != nil {
		return nil, fmt.Errorf("loading shader library: %w", err)
	}

	s := &Scene{
		ctx:           ctx,
		config:        cfg,
		log:           logger.Named("scene"),
		Root:          node.New("root"),
		Library:       lib,
		Programs:      shader.NewCache(ctx, lib),
		Meshes:        mesh.NewRegistry(ctx),
		Textures:      texture.NewRegistry(ctx),
		Lights:        lighting.NewLights(),
		Cameras:       camera.NewCameras(),
		RenderTargets: rendertarget.NewTargets(ctx),
		shaders:       make(map[string]*shader.Shader),
	}
	s.Renderer = renderer.New(ctx, s.Lights, cfg.Renderer)

	if err := s.Init(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Init sets pipeline state and creates the default textures, shader
// families and camera. It is called by New and may be called again after
// Clear.
func (s *Scene) Init() error {
	s.ctx.Enable(gfx.DepthTest)
	s.ctx.Enable(gfx.CullFace)

	if err := s.Textures.CreateDefaults(); err != nil {
		return fmt.Errorf("creating default textures: %w", err)
	}

	for _, name := range shader.Families() {
		if _, ok := s.shaders[name]; ok {
			continue
		}
		sh, err := s.Library.Family(name)
		if err != nil {
			return fmt.Errorf("loading shader family: %w", err)
		}
		s.shaders[name] = sh
	}

	camNode := node.New("camera")
	camNode.Position = DefaultCameraPosition
	s.Root.AddChild(camNode)
	camNode.LookAt(DefaultCameraTarget, mgl32.Vec3{0, 1, 0})
	camNode.UpdateMatrix()
	s.Renderer.Camera = s.Cameras.Create(camNode)

	s.log.Debug("scene initialized", zap.Int("shaders", len(s.shaders)))
	return nil
}

// Context returns the graphics context.
func (s *Scene) Context() gfx.Context { return s.ctx }

// Camera returns the active camera.
func (s *Scene) Camera() *camera.Camera { return s.Renderer.Camera }

// SetCamera selects the camera used by Draw.
func (s *Scene) SetCamera(c *camera.Camera) { s.Renderer.Camera = c }

// Shader returns a shader family by name.
func (s *Scene) Shader(name string) (*shader.Shader, bool) {
	sh, ok := s.shaders[name]
	return sh, ok
}

// CreateShader registers a shader family under its name.
func (s *Scene) CreateShader(sh *shader.Shader) error {
	if _, ok := s.shaders[sh.Name]; ok {
		return fmt.Errorf("shader %q: %w", sh.Name, ErrResourceCollision)
	}
	s.shaders[sh.Name] = sh
	s.log.Debug("shader created", zap.String("name", sh.Name))
	return nil
}

// DefaultMaterial returns a new Phong material, used for geometry that
// comes without one.
func (s *Scene) DefaultMaterial() material.Material {
	return material.NewPhong(s.shaders[shader.Phong])
}

// NewPhong returns a Phong material using the textured family when
// textured is set.
func (s *Scene) NewPhong(textured bool) *material.Phong {
	if textured {
		return material.NewPhong(s.shaders[shader.PhongTextured])
	}
	return material.NewPhong(s.shaders[shader.Phong])
}

// NewUnlit returns an Unlit material using the textured family when
// textured is set.
func (s *Scene) NewUnlit(textured bool) *material.Unlit {
	if textured {
		return material.NewUnlit(s.shaders[shader.UnlitTextured])
	}
	return material.NewUnlit(s.shaders[shader.Unlit])
}

// CreateMesh registers a mesh built from already uploaded primitives.
func (s *Scene) CreateMesh(name string, primitives []*mesh.Primitive) (*mesh.Mesh, error) {
	if s.Meshes.Has(name) {
		return nil, fmt.Errorf("mesh %q: %w", name, ErrResourceCollision)
	}
	return s.Meshes.Create(name, primitives)
}

// CreateMeshFromData uploads d and registers the result. Primitives without
// a material get DefaultMaterial.
func (s *Scene) CreateMeshFromData(name string, d *mesh.Data) (*mesh.Mesh, error) {
	if s.Meshes.Has(name) {
		return nil, fmt.Errorf("mesh %q: %w", name, ErrResourceCollision)
	}
	primitives, err := d.Upload(s.ctx, s.DefaultMaterial)
	if err != nil {
		return nil, fmt.Errorf("uploading mesh %q: %w", name, err)
	}
	return s.Meshes.Create(name, primitives)
}

// CreateTexture uploads RGBA pixels under name.
func (s *Scene) CreateTexture(name string, width, height int, rgba []byte) (*texture.Texture, error) {
	if s.Textures.Has(name) {
		return nil, fmt.Errorf("texture %q: %w", name, ErrResourceCollision)
	}
	return s.Textures.Create(name, width, height, rgba)
}

// CreateTextureFromImage uploads img under name.
func (s *Scene) CreateTextureFromImage(name string, img image.Image) (*texture.Texture, error) {
	if s.Textures.Has(name) {
		return nil, fmt.Errorf("texture %q: %w", name, ErrResourceCollision)
	}
	return s.Textures.CreateFromImage(name, img)
}

// CreateTextureFromBytes decodes an encoded image and uploads it under
// name. An empty mime is sniffed from the data.
func (s *Scene) CreateTextureFromBytes(name string, data []byte, mime string) (*texture.Texture, error) {
	if s.Textures.Has(name) {
		return nil, fmt.Errorf("texture %q: %w", name, ErrResourceCollision)
	}
	return s.Textures.CreateFromBytes(name, data, mime)
}

// CreateMeshInstance places m on n, resolves a program for every material
// and attaches the instance to the node. A node carries at most one
// instance; a second one is rejected with ErrResourceCollision.
func (s *Scene) CreateMeshInstance(n *node.Node, m *mesh.Mesh, materials ...material.Material) (*mesh.Instance, error) {
	inst, err := s.PrepareMeshInstance(n, m, materials...)
	if err != nil {
		return nil, err
	}
	if err := s.AddMeshInstance(inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// PrepareMeshInstance builds an instance of m on n and resolves its
// programs without attaching it to the node or the renderer. Importers use
// it to finish every instance before any becomes visible.
func (s *Scene) PrepareMeshInstance(n *node.Node, m *mesh.Mesh, materials ...material.Material) (*mesh.Instance, error) {
	if n.Components.MeshInstance != nil {
		return nil, fmt.Errorf("node %q already has a mesh instance: %w", n.Name, ErrResourceCollision)
	}
	inst, err := mesh.NewInstance(n, m, materials)
	if err != nil {
		return nil, err
	}

	for i, p := range m.Primitives {
		mat := inst.Material(i)
		if mat == nil {
			continue
		}
		if err := s.UpdateProgram(mat, p); err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %w", m.Name, i, err)
		}
	}
	return inst, nil
}

// AddMeshInstance attaches a prepared instance to its node and registers it
// with the renderer.
func (s *Scene) AddMeshInstance(inst *mesh.Instance) error {
	n := inst.Node
	if n.Components.MeshInstance != nil {
		return fmt.Errorf("node %q already has a mesh instance: %w", n.Name, ErrResourceCollision)
	}
	n.Components.MeshInstance = inst
	s.Renderer.AddInstance(inst)
	return nil
}

// RemoveMeshInstance detaches inst from its node and the renderer.
func (s *Scene) RemoveMeshInstance(inst *mesh.Instance) {
	if inst.Node.Components.MeshInstance == inst {
		inst.Node.Components.MeshInstance = nil
	}
	s.Renderer.RemoveInstance(inst)
}

// CreateLight creates a light of type t on n.
func (s *Scene) CreateLight(n *node.Node, t lighting.Type) (*lighting.Light, error) {
	return s.Lights.Create(n, t)
}

// CreateCamera creates a camera on n. It does not become active; see
// SetCamera.
func (s *Scene) CreateCamera(n *node.Node) *camera.Camera {
	return s.Cameras.Create(n)
}

// CreateRenderTarget allocates an offscreen target.
func (s *Scene) CreateRenderTarget(width, height int) (*rendertarget.Target, error) {
	return s.RenderTargets.Create(width, height)
}

// UpdateProgram resolves the program m needs to draw p. Call it whenever a
// material's shader or maps change.
func (s *Scene) UpdateProgram(m material.Material, p *mesh.Primitive) error {
	_, err := s.Programs.UpdateProgram(m, p)
	return err
}

// RefreshPrograms re-resolves the program of every instance material.
func (s *Scene) RefreshPrograms() error {
	var errs []error
	for _, inst := range s.Renderer.Instances() {
		for i, p := range inst.Mesh.Primitives {
			mat := inst.Material(i)
			if mat == nil {
				continue
			}
			if err := s.UpdateProgram(mat, p); err != nil {
				errs = append(errs, fmt.Errorf("mesh %q primitive %d: %w", inst.Mesh.Name, i, err))
			}
		}
	}
	return errors.Join(errs...)
}

// ReloadShaders re-reads the sources of every family built from one of
// files, drops their programs and resolves all materials again. It returns
// the number of families reloaded.
func (s *Scene) ReloadShaders(files []string) (int, error) {
	if err := s.Library.Reload(); err != nil {
		return 0, fmt.Errorf("reloading shader library: %w", err)
	}

	// A family that fails to refresh keeps its sources and programs; the
	// others are still reloaded and every material is re-resolved.
	var errs []error
	reloaded := 0
	for _, sh := range s.shaders {
		if !usesAny(sh, files) {
			continue
		}
		ok, err := s.Library.Refresh(sh)
		if err != nil {
			errs = append(errs, fmt.Errorf("reloading shader %q: %w", sh.Name, err))
			continue
		}
		if !ok {
			continue
		}
		s.Programs.Evict(sh)
		reloaded++
	}

	if reloaded > 0 {
		s.log.Info("shaders reloaded", zap.Int("families", reloaded), zap.Strings("files", files))
		errs = append(errs, s.RefreshPrograms())
	}
	return reloaded, errors.Join(errs...)
}

func usesAny(sh *shader.Shader, files []string) bool {
	for _, f := range files {
		if shader.Uses(sh, f) {
			return true
		}
	}
	return false
}

// Draw renders one frame with the active camera.
func (s *Scene) Draw() {
	s.Renderer.Draw()
}

// WorldBounds returns the union of the world bounds of every mesh instance
// in the subtree of n. A nil n means the root.
func (s *Scene) WorldBounds(n *node.Node) bounds.Bounds {
	if n == nil {
		n = s.Root
	}
	b := bounds.New()
	n.Walk(func(child *node.Node) {
		if inst := child.Components.MeshInstance; inst != nil {
			b.EncapsulateBounds(inst.WorldBounds())
		}
	})
	return b
}

// Clear releases every GPU resource held by the registries and discards
// the node hierarchy. Shader families stay registered.
func (s *Scene) Clear() {
	s.Renderer.Clear()
	s.Programs.Clear()
	s.Meshes.Clear()
	s.Textures.Clear()
	s.Lights.Clear()
	s.Cameras.Clear()
	s.RenderTargets.Clear()
	s.Root = node.New("root")
	s.log.Debug("scene cleared")
}

// Close releases everything, the renderer's own buffers included.
func (s *Scene) Close() {
	s.Clear()
	s.Renderer.Close()
}
