// Package gfx defines the graphics context boundary used by the engine.
//
// The engine never calls a GPU API directly. Everything goes through Context,
// an opaque capability object that hands out handles and accepts them back.
// glbackend implements it on top of OpenGL 4.1 core; gfxtest records calls
// for tests.
package gfx

// Opaque GPU object handles. Zero is never a valid handle.
type (
	Buffer       uint32
	Texture      uint32
	Framebuffer  uint32
	ShaderObject uint32
	Program      uint32
)

// Uniform is a uniform location. NoUniform marks an inactive or missing uniform.
type Uniform int32

// NoUniform is returned for uniforms the program does not expose.
const NoUniform Uniform = -1

// InvalidIndex is returned by UniformBlockIndex when the block is missing.
const InvalidIndex uint32 = 0xFFFFFFFF

// BufferTarget selects the binding point of a buffer.
type BufferTarget uint32

const (
	ArrayBuffer BufferTarget = iota + 1
	ElementArrayBuffer
	UniformBuffer
)

// Usage is a buffer usage hint.
type Usage uint32

const (
	StaticDraw Usage = iota + 1
	DynamicDraw
)

// Stage is a programmable pipeline stage.
type Stage uint32

const (
	VertexStage Stage = iota + 1
	FragmentStage
)

func (s Stage) String() string {
	switch s {
	case VertexStage:
		return "vertex"
	case FragmentStage:
		return "fragment"
	default:
		return "unknown"
	}
}

// DataType is a component type for vertex and index data.
type DataType uint32

const (
	Byte DataType = iota + 1
	UnsignedByte
	Short
	UnsignedShort
	UnsignedInt
	Float
)

// Size returns the size of one component in bytes.
func (t DataType) Size() int {
	switch t {
	case Byte, UnsignedByte:
		return 1
	case Short, UnsignedShort:
		return 2
	case UnsignedInt, Float:
		return 4
	default:
		return 0
	}
}

// Topology is a primitive assembly mode.
type Topology uint32

const (
	Points Topology = iota + 1
	Lines
	LineLoop
	LineStrip
	Triangles
	TriangleStrip
	TriangleFan
)

func (t Topology) String() string {
	switch t {
	case Points:
		return "points"
	case Lines:
		return "lines"
	case LineLoop:
		return "line_loop"
	case LineStrip:
		return "line_strip"
	case Triangles:
		return "triangles"
	case TriangleStrip:
		return "triangle_strip"
	case TriangleFan:
		return "triangle_fan"
	default:
		return "unknown"
	}
}

// TextureFormat describes texture storage.
type TextureFormat uint32

const (
	RGBA8 TextureFormat = iota + 1
	RGB8
	Depth24
)

// Attachment is a framebuffer attachment point.
type Attachment uint32

const (
	ColorAttachment0 Attachment = iota + 1
	DepthAttachment
)

// Filter is a texture sampling filter.
type Filter uint32

const (
	Nearest Filter = iota + 1
	Linear
	LinearMipmapLinear
)

// Wrap is a texture wrap mode.
type Wrap uint32

const (
	Repeat Wrap = iota + 1
	ClampToEdge
)

// ClearMask selects the buffers cleared by Clear.
type ClearMask uint32

const (
	ColorBit ClearMask = 1 << iota
	DepthBit
)

// Capability is a toggleable pipeline state.
type Capability uint32

const (
	DepthTest Capability = iota + 1
	CullFace
	Blend
)

// Semantic is the meaning of a vertex attribute. The value doubles as the
// attribute location in every engine shader.
type Semantic uint32

const (
	Position Semantic = iota
	Normal
	TexCoord0
)

func (s Semantic) String() string {
	switch s {
	case Position:
		return "position"
	case Normal:
		return "normal"
	case TexCoord0:
		return "texcoord0"
	default:
		return "unknown"
	}
}

// Bit returns the attribute-mask bit for the semantic.
func (s Semantic) Bit() AttributeMask {
	return AttributeMask(1) << s
}

// Semantics lists every semantic in location order.
func Semantics() []Semantic {
	return []Semantic{Position, Normal, TexCoord0}
}

// AttributeMask is a set of semantics present on a primitive.
type AttributeMask uint32

// Has reports whether s is in the mask.
func (m AttributeMask) Has(s Semantic) bool {
	return m&s.Bit() != 0
}

// Context is the graphics capability consumed by the engine.
type Context interface {
	// Buffers
	CreateBuffer() Buffer
	BindBuffer(target BufferTarget, b Buffer)
	BufferData(target BufferTarget, data []byte, usage Usage)
	BufferSubData(target BufferTarget, offset int, data []byte)
	BindBufferRange(target BufferTarget, index uint32, b Buffer, offset, size int)
	DeleteBuffer(b Buffer)

	// Textures
	CreateTexture() Texture
	ActiveTexture(unit int)
	BindTexture(t Texture)
	TexImage2D(format TextureFormat, width, height int, pixels []byte)
	TexFilter(min, mag Filter)
	TexWrap(s, t Wrap)
	GenerateMipmap()
	DeleteTexture(t Texture)

	// Framebuffers
	CreateFramebuffer() Framebuffer
	BindFramebuffer(fb Framebuffer)
	FramebufferTexture2D(attachment Attachment, t Texture)
	FramebufferComplete() bool
	DeleteFramebuffer(fb Framebuffer)

	// Shaders and programs
	CreateShader(stage Stage) ShaderObject
	ShaderSource(s ShaderObject, source string)
	CompileShader(s ShaderObject) bool
	ShaderInfoLog(s ShaderObject) string
	DeleteShader(s ShaderObject)
	CreateProgram() Program
	AttachShader(p Program, s ShaderObject)
	LinkProgram(p Program) bool
	ProgramInfoLog(p Program) string
	DeleteProgram(p Program)
	UseProgram(p Program)
	UniformBlockIndex(p Program, name string) uint32
	UniformBlockBinding(p Program, blockIndex, binding uint32)
	UniformLocation(p Program, name string) Uniform
	Uniform1i(u Uniform, v int32)
	Uniform1f(u Uniform, v float32)
	Uniform4f(u Uniform, v [4]float32)

	// Vertex input and drawing
	VertexAttribPointer(index uint32, size int, typ DataType, normalized bool, stride, offset int)
	EnableVertexAttribArray(index uint32)
	DisableVertexAttribArray(index uint32)
	DrawElements(mode Topology, count int, typ DataType, offset int)

	// Frame state
	Enable(c Capability)
	Viewport(x, y, width, height int)
	ClearColor(r, g, b, a float32)
	Clear(mask ClearMask)
	DrawingBufferSize() (width, height int)

	// ReadPixels returns the RGBA8 contents of a rectangle of the bound
	// framebuffer, bottom row first.
	ReadPixels(x, y, width, height int) []byte
}
