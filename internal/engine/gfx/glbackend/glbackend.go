// Package glbackend implements gfx.Context on OpenGL 4.1 core.
package glbackend

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/forge3d/internal/engine/gfx"
	"github.com/Faultbox/forge3d/internal/logger"
)

// Config holds backend configuration.
type Config struct {
	// DrawableSize reports the default framebuffer size in pixels.
	DrawableSize func() (width, height int)
}

// Context is an OpenGL implementation of gfx.Context.
// IMPORTANT: Must be created AFTER the OpenGL context is current!
type Context struct {
	config Config

	// Core profile refuses attribute pointers without a bound VAO.
	vao uint32
}

var _ gfx.Context = (*Context)(nil)

// New initializes OpenGL function pointers and returns a context.
func New(cfg Config) (*Context, error) {
	if cfg.DrawableSize == nil {
		return nil, fmt.Errorf("drawable size callback is required")
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	c := &Context{config: cfg}
	gl.GenVertexArrays(1, &c.vao)
	gl.BindVertexArray(c.vao)
	gl.DepthFunc(gl.LEQUAL)
	gl.ClearDepth(1.0)

	return c, nil
}

// Close releases backend-owned objects.
func (c *Context) Close() {
	if c.vao != 0 {
		gl.DeleteVertexArrays(1, &c.vao)
		c.vao = 0
	}
}

func ptr(data []byte) unsafe.Pointer {
	if len(data) == 0 {
		return nil
	}
	return gl.Ptr(data)
}

func bufferTarget(t gfx.BufferTarget) uint32 {
	switch t {
	case gfx.ElementArrayBuffer:
		return gl.ELEMENT_ARRAY_BUFFER
	case gfx.UniformBuffer:
		return gl.UNIFORM_BUFFER
	default:
		return gl.ARRAY_BUFFER
	}
}

func dataType(t gfx.DataType) uint32 {
	switch t {
	case gfx.Byte:
		return gl.BYTE
	case gfx.UnsignedByte:
		return gl.UNSIGNED_BYTE
	case gfx.Short:
		return gl.SHORT
	case gfx.UnsignedShort:
		return gl.UNSIGNED_SHORT
	case gfx.UnsignedInt:
		return gl.UNSIGNED_INT
	default:
		return gl.FLOAT
	}
}

func topology(t gfx.Topology) uint32 {
	switch t {
	case gfx.Points:
		return gl.POINTS
	case gfx.Lines:
		return gl.LINES
	case gfx.LineLoop:
		return gl.LINE_LOOP
	case gfx.LineStrip:
		return gl.LINE_STRIP
	case gfx.TriangleStrip:
		return gl.TRIANGLE_STRIP
	case gfx.TriangleFan:
		return gl.TRIANGLE_FAN
	default:
		return gl.TRIANGLES
	}
}

func filter(f gfx.Filter) int32 {
	switch f {
	case gfx.Nearest:
		return gl.NEAREST
	case gfx.LinearMipmapLinear:
		return gl.LINEAR_MIPMAP_LINEAR
	default:
		return gl.LINEAR
	}
}

func wrap(w gfx.Wrap) int32 {
	if w == gfx.ClampToEdge {
		return gl.CLAMP_TO_EDGE
	}
	return gl.REPEAT
}

// CreateBuffer implements gfx.Context.
func (c *Context) CreateBuffer() gfx.Buffer {
	var b uint32
	gl.GenBuffers(1, &b)
	return gfx.Buffer(b)
}

// BindBuffer implements gfx.Context.
func (c *Context) BindBuffer(target gfx.BufferTarget, b gfx.Buffer) {
	gl.BindBuffer(bufferTarget(target), uint32(b))
}

// BufferData implements gfx.Context.
func (c *Context) BufferData(target gfx.BufferTarget, data []byte, usage gfx.Usage) {
	u := uint32(gl.STATIC_DRAW)
	if usage == gfx.DynamicDraw {
		u = gl.DYNAMIC_DRAW
	}
	gl.BufferData(bufferTarget(target), len(data), ptr(data), u)
}

// BufferSubData implements gfx.Context.
func (c *Context) BufferSubData(target gfx.BufferTarget, offset int, data []byte) {
	if len(data) == 0 {
		return
	}
	gl.BufferSubData(bufferTarget(target), offset, len(data), ptr(data))
}

// BindBufferRange implements gfx.Context.
func (c *Context) BindBufferRange(target gfx.BufferTarget, index uint32, b gfx.Buffer, offset, size int) {
	gl.BindBufferRange(bufferTarget(target), index, uint32(b), offset, size)
}

// DeleteBuffer implements gfx.Context.
func (c *Context) DeleteBuffer(b gfx.Buffer) {
	id := uint32(b)
	gl.DeleteBuffers(1, &id)
}

// CreateTexture implements gfx.Context.
func (c *Context) CreateTexture() gfx.Texture {
	var t uint32
	gl.GenTextures(1, &t)
	return gfx.Texture(t)
}

// ActiveTexture implements gfx.Context.
func (c *Context) ActiveTexture(unit int) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
}

// BindTexture implements gfx.Context.
func (c *Context) BindTexture(t gfx.Texture) {
	gl.BindTexture(gl.TEXTURE_2D, uint32(t))
}

// TexImage2D implements gfx.Context.
func (c *Context) TexImage2D(format gfx.TextureFormat, width, height int, pixels []byte) {
	internal, pixelFormat, typ := int32(gl.RGBA8), uint32(gl.RGBA), uint32(gl.UNSIGNED_BYTE)
	switch format {
	case gfx.RGB8:
		internal, pixelFormat = gl.RGB8, gl.RGB
	case gfx.Depth24:
		internal, pixelFormat, typ = gl.DEPTH_COMPONENT24, gl.DEPTH_COMPONENT, gl.UNSIGNED_INT
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(width), int32(height), 0, pixelFormat, typ, ptr(pixels))
}

// TexFilter implements gfx.Context.
func (c *Context) TexFilter(min, mag gfx.Filter) {
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter(min))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter(mag))
}

// TexWrap implements gfx.Context.
func (c *Context) TexWrap(s, t gfx.Wrap) {
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrap(s))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrap(t))
}

// GenerateMipmap implements gfx.Context.
func (c *Context) GenerateMipmap() {
	gl.GenerateMipmap(gl.TEXTURE_2D)
}

// DeleteTexture implements gfx.Context.
func (c *Context) DeleteTexture(t gfx.Texture) {
	id := uint32(t)
	gl.DeleteTextures(1, &id)
}

// CreateFramebuffer implements gfx.Context.
func (c *Context) CreateFramebuffer() gfx.Framebuffer {
	var fb uint32
	gl.GenFramebuffers(1, &fb)
	return gfx.Framebuffer(fb)
}

// BindFramebuffer implements gfx.Context. Zero binds the default framebuffer.
func (c *Context) BindFramebuffer(fb gfx.Framebuffer) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
}

// FramebufferTexture2D implements gfx.Context.
func (c *Context) FramebufferTexture2D(attachment gfx.Attachment, t gfx.Texture) {
	a := uint32(gl.COLOR_ATTACHMENT0)
	if attachment == gfx.DepthAttachment {
		a = gl.DEPTH_ATTACHMENT
	}
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, a, gl.TEXTURE_2D, uint32(t), 0)
}

// FramebufferComplete implements gfx.Context.
func (c *Context) FramebufferComplete() bool {
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	if status != gl.FRAMEBUFFER_COMPLETE {
		logger.Debug("framebuffer incomplete", zap.Uint32("status", status))
		return false
	}
	return true
}

// DeleteFramebuffer implements gfx.Context.
func (c *Context) DeleteFramebuffer(fb gfx.Framebuffer) {
	id := uint32(fb)
	gl.DeleteFramebuffers(1, &id)
}

// CreateShader implements gfx.Context.
func (c *Context) CreateShader(stage gfx.Stage) gfx.ShaderObject {
	typ := uint32(gl.VERTEX_SHADER)
	if stage == gfx.FragmentStage {
		typ = gl.FRAGMENT_SHADER
	}
	return gfx.ShaderObject(gl.CreateShader(typ))
}

// ShaderSource implements gfx.Context.
func (c *Context) ShaderSource(s gfx.ShaderObject, source string) {
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(uint32(s), 1, csource, nil)
	free()
}

// CompileShader implements gfx.Context.
func (c *Context) CompileShader(s gfx.ShaderObject) bool {
	gl.CompileShader(uint32(s))
	var status int32
	gl.GetShaderiv(uint32(s), gl.COMPILE_STATUS, &status)
	return status != gl.FALSE
}

// ShaderInfoLog implements gfx.Context.
func (c *Context) ShaderInfoLog(s gfx.ShaderObject) string {
	var logLen int32
	gl.GetShaderiv(uint32(s), gl.INFO_LOG_LENGTH, &logLen)
	if logLen == 0 {
		return ""
	}
	log := make([]byte, logLen)
	gl.GetShaderInfoLog(uint32(s), logLen, nil, &log[0])
	return gl.GoStr(&log[0])
}

// DeleteShader implements gfx.Context.
func (c *Context) DeleteShader(s gfx.ShaderObject) {
	gl.DeleteShader(uint32(s))
}

// CreateProgram implements gfx.Context.
func (c *Context) CreateProgram() gfx.Program {
	return gfx.Program(gl.CreateProgram())
}

// AttachShader implements gfx.Context.
func (c *Context) AttachShader(p gfx.Program, s gfx.ShaderObject) {
	gl.AttachShader(uint32(p), uint32(s))
}

// LinkProgram implements gfx.Context.
func (c *Context) LinkProgram(p gfx.Program) bool {
	gl.LinkProgram(uint32(p))
	var status int32
	gl.GetProgramiv(uint32(p), gl.LINK_STATUS, &status)
	return status != gl.FALSE
}

// ProgramInfoLog implements gfx.Context.
func (c *Context) ProgramInfoLog(p gfx.Program) string {
	var logLen int32
	gl.GetProgramiv(uint32(p), gl.INFO_LOG_LENGTH, &logLen)
	if logLen == 0 {
		return ""
	}
	log := make([]byte, logLen)
	gl.GetProgramInfoLog(uint32(p), logLen, nil, &log[0])
	return gl.GoStr(&log[0])
}

// DeleteProgram implements gfx.Context.
func (c *Context) DeleteProgram(p gfx.Program) {
	gl.DeleteProgram(uint32(p))
}

// UseProgram implements gfx.Context.
func (c *Context) UseProgram(p gfx.Program) {
	gl.UseProgram(uint32(p))
}

// UniformBlockIndex implements gfx.Context.
func (c *Context) UniformBlockIndex(p gfx.Program, name string) uint32 {
	return gl.GetUniformBlockIndex(uint32(p), gl.Str(name+"\x00"))
}

// UniformBlockBinding implements gfx.Context.
func (c *Context) UniformBlockBinding(p gfx.Program, blockIndex, binding uint32) {
	gl.UniformBlockBinding(uint32(p), blockIndex, binding)
}

// UniformLocation implements gfx.Context.
func (c *Context) UniformLocation(p gfx.Program, name string) gfx.Uniform {
	return gfx.Uniform(gl.GetUniformLocation(uint32(p), gl.Str(name+"\x00")))
}

// Uniform1i implements gfx.Context.
func (c *Context) Uniform1i(u gfx.Uniform, v int32) {
	gl.Uniform1i(int32(u), v)
}

// Uniform1f implements gfx.Context.
func (c *Context) Uniform1f(u gfx.Uniform, v float32) {
	gl.Uniform1f(int32(u), v)
}

// Uniform4f implements gfx.Context.
func (c *Context) Uniform4f(u gfx.Uniform, v [4]float32) {
	gl.Uniform4f(int32(u), v[0], v[1], v[2], v[3])
}

// VertexAttribPointer implements gfx.Context.
func (c *Context) VertexAttribPointer(index uint32, size int, typ gfx.DataType, normalized bool, stride, offset int) {
	gl.VertexAttribPointerWithOffset(index, int32(size), dataType(typ), normalized, int32(stride), uintptr(offset))
}

// EnableVertexAttribArray implements gfx.Context.
func (c *Context) EnableVertexAttribArray(index uint32) {
	gl.EnableVertexAttribArray(index)
}

// DisableVertexAttribArray implements gfx.Context.
func (c *Context) DisableVertexAttribArray(index uint32) {
	gl.DisableVertexAttribArray(index)
}

// DrawElements implements gfx.Context.
func (c *Context) DrawElements(mode gfx.Topology, count int, typ gfx.DataType, offset int) {
	gl.DrawElementsWithOffset(topology(mode), int32(count), dataType(typ), uintptr(offset))
}

// Enable implements gfx.Context.
func (c *Context) Enable(capability gfx.Capability) {
	switch capability {
	case gfx.DepthTest:
		gl.Enable(gl.DEPTH_TEST)
	case gfx.CullFace:
		gl.Enable(gl.CULL_FACE)
	case gfx.Blend:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	}
}

// Viewport implements gfx.Context.
func (c *Context) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

// ClearColor implements gfx.Context.
func (c *Context) ClearColor(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
}

// Clear implements gfx.Context.
func (c *Context) Clear(mask gfx.ClearMask) {
	var bits uint32
	if mask&gfx.ColorBit != 0 {
		bits |= gl.COLOR_BUFFER_BIT
	}
	if mask&gfx.DepthBit != 0 {
		bits |= gl.DEPTH_BUFFER_BIT
	}
	gl.Clear(bits)
}

// DrawingBufferSize implements gfx.Context.
func (c *Context) DrawingBufferSize() (int, int) {
	return c.config.DrawableSize()
}

func (c *Context) ReadPixels(x, y, width, height int) []byte {
	pixels := make([]byte, width*height*4)
	if len(pixels) == 0 {
		return pixels
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(int32(x), int32(y), int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, ptr(pixels))
	return pixels
}
