// Package renderer draws the mesh instances of a scene.
//
// A frame groups draw calls by compiled program, binds the shared global
// uniform block once per frame and re-uploads light data only when the
// layer mask of the next draw differs from the one already on the GPU.
package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/forge3d/internal/engine/camera"
	"github.com/Faultbox/forge3d/internal/engine/gfx"
	"github.com/Faultbox/forge3d/internal/engine/lighting"
	"github.com/Faultbox/forge3d/internal/engine/mesh"
	"github.com/Faultbox/forge3d/internal/engine/rendertarget"
	"github.com/Faultbox/forge3d/internal/engine/shader"
	"github.com/Faultbox/forge3d/internal/engine/uniform"
	"github.com/Faultbox/forge3d/internal/logger"
)

// Config holds renderer configuration.
type Config struct {
	ClearColor       mgl32.Vec4
	AmbientColor     mgl32.Vec3
	AmbientIntensity float32
}

// DefaultConfig returns the default clear and ambient settings.
func DefaultConfig() Config {
	return Config{
		ClearColor:       mgl32.Vec4{0.1, 0.1, 0.15, 1},
		AmbientColor:     mgl32.Vec3{1, 1, 1},
		AmbientIntensity: 0.1,
	}
}

// Stats describes the work done by the last frame.
type Stats struct {
	DrawCalls      int
	Programs       int
	LightUploads   int
	Culled         int
	Skipped        int
	InstancesTotal int
}

type drawCall struct {
	instance  *mesh.Instance
	primitive int
}

type batch struct {
	program *shader.Program
	calls   []drawCall
}

// Renderer executes the per-frame draw algorithm against a gfx.Context.
type Renderer struct {
	ctx    gfx.Context
	config Config
	log    *zap.Logger

	// Camera is the active camera. Draw is a no-op without one.
	Camera *camera.Camera

	lights    *lighting.Lights
	instances []*mesh.Instance
	target    *rendertarget.Target

	global    uniform.Global
	object    uniform.Object
	globalBuf *uniform.Buffer
	objectBuf *uniform.Buffer

	// lightMask is the layer mask the uploaded light list was built for.
	lightMask uint32

	// Scratch state reused between frames.
	batchIndex map[*shader.Program]int
	batches    []batch
	enabled    gfx.AttributeMask

	warned map[gfx.Topology]bool
	stats  Stats
}

// New creates a renderer and allocates its uniform buffers.
// IMPORTANT: Must be called AFTER the graphics context is created!
func New(ctx gfx.Context, lights *lighting.Lights, cfg Config) *Renderer {
	r := &Renderer{
		ctx:        ctx,
		config:     cfg,
		log:        logger.Named("renderer"),
		lights:     lights,
		globalBuf:  uniform.NewBuffer(ctx, shader.GlobalBlockBinding, uniform.GlobalSize),
		objectBuf:  uniform.NewBuffer(ctx, shader.ObjectBlockBinding, uniform.ObjectSize),
		batchIndex: make(map[*shader.Program]int),
		warned:     make(map[gfx.Topology]bool),
	}
	r.global.SetAmbient(cfg.AmbientColor, cfg.AmbientIntensity)
	return r
}

// Config returns the current configuration.
func (r *Renderer) Config() Config { return r.config }

// SetClearColor changes the color used to clear the frame.
func (r *Renderer) SetClearColor(c mgl32.Vec4) { r.config.ClearColor = c }

// SetAmbient changes the ambient light.
func (r *Renderer) SetAmbient(color mgl32.Vec3, intensity float32) {
	r.config.AmbientColor = color
	r.config.AmbientIntensity = intensity
	r.global.SetAmbient(color, intensity)
}

// SetRenderTarget selects where frames are drawn. Nil selects the default
// framebuffer.
func (r *Renderer) SetRenderTarget(t *rendertarget.Target) { r.target = t }

// RenderTarget returns the active render target, or nil.
func (r *Renderer) RenderTarget() *rendertarget.Target { return r.target }

// AddInstance registers a mesh instance for drawing.
func (r *Renderer) AddInstance(inst *mesh.Instance) {
	r.instances = append(r.instances, inst)
}

// RemoveInstance unregisters inst. It reports whether inst was registered.
func (r *Renderer) RemoveInstance(inst *mesh.Instance) bool {
	for i, it := range r.instances {
		if it == inst {
			r.instances = append(r.instances[:i], r.instances[i+1:]...)
			return true
		}
	}
	return false
}

// Instances returns the registered instances in creation order.
func (r *Renderer) Instances() []*mesh.Instance { return r.instances }

// Stats returns the statistics of the last frame.
func (r *Renderer) Stats() Stats { return r.stats }

// Clear forgets every instance and the camera. GPU resources owned by the
// renderer itself are kept.
func (r *Renderer) Clear() {
	r.instances = nil
	r.Camera = nil
	r.target = nil
	r.resetBatches()
}

// Close releases the uniform buffers.
func (r *Renderer) Close() {
	r.globalBuf.Delete()
	r.objectBuf.Delete()
}

// Draw renders one frame.
func (r *Renderer) Draw() {
	if r.Camera == nil {
		return
	}
	r.stats = Stats{InstancesTotal: len(r.instances)}

	r.bindTarget()
	r.updateCamera()
	r.prepare()

	// Zero never matches a drawn instance, so the first draw uploads lights.
	r.lightMask = 0

	for i := range r.batches {
		r.drawBatch(&r.batches[i])
	}

	r.ctx.ActiveTexture(0)
	r.ctx.BindTexture(0)

	r.log.Debug("frame",
		zap.Int("drawCalls", r.stats.DrawCalls),
		zap.Int("programs", r.stats.Programs),
		zap.Int("lightUploads", r.stats.LightUploads),
		zap.Int("culled", r.stats.Culled),
	)
}

func (r *Renderer) bindTarget() {
	var width, height int
	if r.target != nil {
		r.ctx.BindFramebuffer(r.target.Handle())
		width, height = r.target.Size()
	} else {
		r.ctx.BindFramebuffer(0)
		width, height = r.ctx.DrawingBufferSize()
	}
	r.ctx.Viewport(0, 0, width, height)

	c := r.config.ClearColor
	r.ctx.ClearColor(c[0], c[1], c[2], c[3])
	r.ctx.Clear(gfx.ColorBit | gfx.DepthBit)

	if height > 0 {
		r.Camera.SetAspect(float32(width) / float32(height))
	}
}

func (r *Renderer) updateCamera() {
	r.global.SetCamera(r.Camera.Projection(), r.Camera.View(), r.Camera.Position())
}

func (r *Renderer) resetBatches() {
	for i := range r.batches {
		r.batches[i].calls = r.batches[i].calls[:0]
		r.batches[i].program = nil
	}
	r.batches = r.batches[:0]
	clear(r.batchIndex)
}

// prepare builds the draw list grouped by program, in order of first use.
func (r *Renderer) prepare() {
	r.resetBatches()

	for _, inst := range r.instances {
		if r.Camera.CullingMask&inst.Node.LayerMask == 0 {
			r.stats.Culled++
			continue
		}

		for i, prim := range inst.Mesh.Primitives {
			if prim.Topology != gfx.Triangles {
				r.warnTopology(inst, prim.Topology)
				r.stats.Skipped++
				continue
			}

			mat := inst.Material(i)
			if mat == nil || mat.Program() == nil {
				r.stats.Skipped++
				continue
			}

			r.appendCall(mat.Program(), drawCall{instance: inst, primitive: i})
		}
	}
}

func (r *Renderer) appendCall(p *shader.Program, call drawCall) {
	idx, ok := r.batchIndex[p]
	if !ok {
		idx = len(r.batches)
		r.batchIndex[p] = idx
		if idx < cap(r.batches) {
			r.batches = r.batches[:idx+1]
			r.batches[idx].program = p
		} else {
			r.batches = append(r.batches, batch{program: p})
		}
	}
	r.batches[idx].calls = append(r.batches[idx].calls, call)
}

func (r *Renderer) warnTopology(inst *mesh.Instance, t gfx.Topology) {
	if r.warned[t] {
		return
	}
	r.warned[t] = true
	r.log.Warn("skipping primitives with unsupported topology",
		zap.String("mesh", inst.Mesh.Name),
		zap.Stringer("topology", t),
	)
}

func (r *Renderer) drawBatch(b *batch) {
	p := b.program
	r.ctx.UseProgram(p.Handle)
	r.ctx.UniformBlockBinding(p.Handle, p.GlobalBlock, shader.GlobalBlockBinding)
	r.ctx.UniformBlockBinding(p.Handle, p.ObjectBlock, shader.ObjectBlockBinding)
	r.stats.Programs++

	for _, call := range b.calls {
		r.drawCall(p, call)
	}
}

func (r *Renderer) drawCall(p *shader.Program, call drawCall) {
	inst := call.instance
	prim := inst.Mesh.Primitives[call.primitive]

	if mask := inst.Node.LayerMask; mask != r.lightMask {
		r.lightMask = mask
		r.global.SetLights(r.lights.Items(), mask)
		r.globalBuf.Upload(r.global.Bytes())
		r.stats.LightUploads++
	}

	r.object.SetWorld(inst.Node.WorldMatrix())
	r.objectBuf.Upload(r.object.Bytes())

	inst.Material(call.primitive).PushUniforms(r.ctx, p)

	r.bindAttributes(prim)

	r.ctx.BindBuffer(gfx.ElementArrayBuffer, prim.Indices.Buffer)
	r.ctx.DrawElements(prim.Topology, prim.Indices.Count, prim.Indices.ComponentType, prim.Indices.Offset)
	r.stats.DrawCalls++
}

// bindAttributes points every attribute of prim at its buffer and leaves
// exactly those locations enabled.
func (r *Renderer) bindAttributes(prim *mesh.Primitive) {
	for _, a := range prim.Attributes {
		r.ctx.BindBuffer(gfx.ArrayBuffer, a.Buffer)
		r.ctx.VertexAttribPointer(uint32(a.Semantic), a.ComponentCount, a.ComponentType, a.Normalized, a.Stride, a.Offset)
		if !r.enabled.Has(a.Semantic) {
			r.ctx.EnableVertexAttribArray(uint32(a.Semantic))
		}
	}

	want := prim.AttributeMask()
	for _, s := range gfx.Semantics() {
		if r.enabled.Has(s) && !want.Has(s) {
			r.ctx.DisableVertexAttribArray(uint32(s))
		}
	}
	r.enabled = want
}
