// Package gfxtest provides an in-memory gfx.Context for tests.
package gfxtest

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Faultbox/forge3d/internal/engine/gfx"
)

// Call is one recorded context call.
type Call struct {
	Name string
	Args []any
}

// Draw is a snapshot of pipeline state taken at every DrawElements.
type Draw struct {
	Program    gfx.Program
	Mode       gfx.Topology
	Count      int
	Type       gfx.DataType
	Offset     int
	Attributes []uint32
	// Blocks holds a copy of the bytes bound to each uniform buffer slot.
	Blocks map[uint32][]byte
	Textures map[int]gfx.Texture
}

type shaderObject struct {
	stage  gfx.Stage
	source string
}

type programObject struct {
	shaders   []gfx.ShaderObject
	linked    bool
	blocks    map[string]uint32
	bindings  map[uint32]uint32
	locations map[string]gfx.Uniform

	// sources is snapshotted at link time; GL keeps the link result after
	// the attached shaders are deleted.
	sources map[gfx.Stage]string
}

type bufferRange struct {
	buffer gfx.Buffer
	offset int
	size   int
}

// Recorder implements gfx.Context without a GPU. Handles are handed out from
// a counter, every call is appended to Calls and live objects are tracked so
// tests can assert on leaks.
type Recorder struct {
	Width, Height int

	// CompileError, when set, is consulted for each compiled shader. A
	// non-empty return fails the compile with that info log.
	CompileError func(stage gfx.Stage, source string) string
	// LinkError, when non-empty, fails every link with that info log.
	LinkError string
	// Incomplete makes FramebufferComplete report false.
	Incomplete bool

	Calls []Call
	Draws []Draw

	next         uint32
	buffers      map[gfx.Buffer][]byte
	textures     map[gfx.Texture]bool
	framebuffers map[gfx.Framebuffer]bool
	shaders      map[gfx.ShaderObject]*shaderObject
	programs     map[gfx.Program]*programObject

	bound        map[gfx.BufferTarget]gfx.Buffer
	ranges       map[uint32]bufferRange
	enabled      map[uint32]bool
	activeUnit   int
	unitTextures map[int]gfx.Texture
	current      gfx.Program
	capabilities map[gfx.Capability]bool
	clearColor   [4]float32
	cleared      [4]byte
}

var _ gfx.Context = (*Recorder)(nil)

// New returns a recorder with a drawing surface of the given size.
func New(width, height int) *Recorder {
	return &Recorder{
		Width:        width,
		Height:       height,
		buffers:      make(map[gfx.Buffer][]byte),
		textures:     make(map[gfx.Texture]bool),
		framebuffers: make(map[gfx.Framebuffer]bool),
		shaders:      make(map[gfx.ShaderObject]*shaderObject),
		programs:     make(map[gfx.Program]*programObject),
		bound:        make(map[gfx.BufferTarget]gfx.Buffer),
		ranges:       make(map[uint32]bufferRange),
		enabled:      make(map[uint32]bool),
		unitTextures: make(map[int]gfx.Texture),
		capabilities: make(map[gfx.Capability]bool),
	}
}

func (r *Recorder) record(name string, args ...any) {
	r.Calls = append(r.Calls, Call{Name: name, Args: args})
}

func (r *Recorder) handle() uint32 {
	r.next++
	return r.next
}

// Count returns how many times the named call was recorded.
func (r *Recorder) Count(name string) int {
	n := 0
	for _, c := range r.Calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// CallsNamed returns every recorded call with the given name.
func (r *Recorder) CallsNamed(name string) []Call {
	var out []Call
	for _, c := range r.Calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls and draws but keeps object state.
func (r *Recorder) Reset() {
	r.Calls = nil
	r.Draws = nil
}

// LiveBuffers returns the number of buffers created and not deleted.
func (r *Recorder) LiveBuffers() int { return len(r.buffers) }

// LiveTextures returns the number of textures created and not deleted.
func (r *Recorder) LiveTextures() int { return len(r.textures) }

// LiveFramebuffers returns the number of framebuffers created and not deleted.
func (r *Recorder) LiveFramebuffers() int { return len(r.framebuffers) }

// LiveShaders returns the number of shader objects created and not deleted.
func (r *Recorder) LiveShaders() int { return len(r.shaders) }

// LivePrograms returns the number of programs created and not deleted.
func (r *Recorder) LivePrograms() int { return len(r.programs) }

// BufferContents returns a copy of the data stored in b.
func (r *Recorder) BufferContents(b gfx.Buffer) []byte {
	return append([]byte(nil), r.buffers[b]...)
}

// ProgramSources returns the sources attached to p keyed by stage.
func (r *Recorder) ProgramSources(p gfx.Program) map[gfx.Stage]string {
	out := make(map[gfx.Stage]string)
	po, ok := r.programs[p]
	if !ok {
		return out
	}
	if po.linked {
		for stage, src := range po.sources {
			out[stage] = src
		}
		return out
	}
	for _, s := range po.shaders {
		if so, ok := r.shaders[s]; ok {
			out[so.stage] = so.source
		}
	}
	return out
}

// BlockBinding returns the binding slot assigned to a program's uniform block.
func (r *Recorder) BlockBinding(p gfx.Program, blockIndex uint32) (uint32, bool) {
	po, ok := r.programs[p]
	if !ok {
		return 0, false
	}
	b, ok := po.bindings[blockIndex]
	return b, ok
}

// Enabled reports whether a capability was turned on.
func (r *Recorder) Enabled(c gfx.Capability) bool {
	return r.capabilities[c]
}

// Buffers

func (r *Recorder) CreateBuffer() gfx.Buffer {
	b := gfx.Buffer(r.handle())
	r.buffers[b] = nil
	r.record("CreateBuffer", b)
	return b
}

func (r *Recorder) BindBuffer(target gfx.BufferTarget, b gfx.Buffer) {
	r.bound[target] = b
	r.record("BindBuffer", target, b)
}

func (r *Recorder) BufferData(target gfx.BufferTarget, data []byte, usage gfx.Usage) {
	if b := r.bound[target]; b != 0 {
		r.buffers[b] = append([]byte(nil), data...)
	}
	r.record("BufferData", target, len(data), usage)
}

func (r *Recorder) BufferSubData(target gfx.BufferTarget, offset int, data []byte) {
	if b := r.bound[target]; b != 0 {
		buf := r.buffers[b]
		if need := offset + len(data); need > len(buf) {
			buf = append(buf, make([]byte, need-len(buf))...)
		}
		copy(buf[offset:], data)
		r.buffers[b] = buf
	}
	r.record("BufferSubData", target, offset, len(data))
}

func (r *Recorder) BindBufferRange(target gfx.BufferTarget, index uint32, b gfx.Buffer, offset, size int) {
	r.ranges[index] = bufferRange{buffer: b, offset: offset, size: size}
	r.record("BindBufferRange", target, index, b, offset, size)
}

func (r *Recorder) DeleteBuffer(b gfx.Buffer) {
	delete(r.buffers, b)
	r.record("DeleteBuffer", b)
}

// Textures

func (r *Recorder) CreateTexture() gfx.Texture {
	t := gfx.Texture(r.handle())
	r.textures[t] = true
	r.record("CreateTexture", t)
	return t
}

func (r *Recorder) ActiveTexture(unit int) {
	r.activeUnit = unit
	r.record("ActiveTexture", unit)
}

func (r *Recorder) BindTexture(t gfx.Texture) {
	r.unitTextures[r.activeUnit] = t
	r.record("BindTexture", t)
}

func (r *Recorder) TexImage2D(format gfx.TextureFormat, width, height int, pixels []byte) {
	r.record("TexImage2D", format, width, height, len(pixels))
}

func (r *Recorder) TexFilter(min, mag gfx.Filter) {
	r.record("TexFilter", min, mag)
}

func (r *Recorder) TexWrap(s, t gfx.Wrap) {
	r.record("TexWrap", s, t)
}

func (r *Recorder) GenerateMipmap() {
	r.record("GenerateMipmap")
}

func (r *Recorder) DeleteTexture(t gfx.Texture) {
	delete(r.textures, t)
	r.record("DeleteTexture", t)
}

// Framebuffers

func (r *Recorder) CreateFramebuffer() gfx.Framebuffer {
	fb := gfx.Framebuffer(r.handle())
	r.framebuffers[fb] = true
	r.record("CreateFramebuffer", fb)
	return fb
}

func (r *Recorder) BindFramebuffer(fb gfx.Framebuffer) {
	r.record("BindFramebuffer", fb)
}

func (r *Recorder) FramebufferTexture2D(attachment gfx.Attachment, t gfx.Texture) {
	r.record("FramebufferTexture2D", attachment, t)
}

func (r *Recorder) FramebufferComplete() bool {
	r.record("FramebufferComplete")
	return !r.Incomplete
}

func (r *Recorder) DeleteFramebuffer(fb gfx.Framebuffer) {
	delete(r.framebuffers, fb)
	r.record("DeleteFramebuffer", fb)
}

// Shaders and programs

func (r *Recorder) CreateShader(stage gfx.Stage) gfx.ShaderObject {
	s := gfx.ShaderObject(r.handle())
	r.shaders[s] = &shaderObject{stage: stage}
	r.record("CreateShader", stage, s)
	return s
}

func (r *Recorder) ShaderSource(s gfx.ShaderObject, source string) {
	if so, ok := r.shaders[s]; ok {
		so.source = source
	}
	r.record("ShaderSource", s)
}

func (r *Recorder) CompileShader(s gfx.ShaderObject) bool {
	r.record("CompileShader", s)
	so, ok := r.shaders[s]
	if !ok {
		return false
	}
	if r.CompileError != nil && r.CompileError(so.stage, so.source) != "" {
		return false
	}
	return true
}

func (r *Recorder) ShaderInfoLog(s gfx.ShaderObject) string {
	so, ok := r.shaders[s]
	if !ok || r.CompileError == nil {
		return ""
	}
	return r.CompileError(so.stage, so.source)
}

func (r *Recorder) DeleteShader(s gfx.ShaderObject) {
	delete(r.shaders, s)
	r.record("DeleteShader", s)
}

func (r *Recorder) CreateProgram() gfx.Program {
	p := gfx.Program(r.handle())
	r.programs[p] = &programObject{
		blocks:    make(map[string]uint32),
		bindings:  make(map[uint32]uint32),
		locations: make(map[string]gfx.Uniform),
	}
	r.record("CreateProgram", p)
	return p
}

func (r *Recorder) AttachShader(p gfx.Program, s gfx.ShaderObject) {
	if po, ok := r.programs[p]; ok {
		po.shaders = append(po.shaders, s)
	}
	r.record("AttachShader", p, s)
}

func (r *Recorder) LinkProgram(p gfx.Program) bool {
	r.record("LinkProgram", p)
	po, ok := r.programs[p]
	if !ok || r.LinkError != "" {
		return false
	}
	po.sources = make(map[gfx.Stage]string)
	for _, s := range po.shaders {
		if so, ok := r.shaders[s]; ok {
			po.sources[so.stage] = so.source
		}
	}
	po.linked = true
	return true
}

func (r *Recorder) ProgramInfoLog(p gfx.Program) string {
	return r.LinkError
}

func (r *Recorder) DeleteProgram(p gfx.Program) {
	delete(r.programs, p)
	r.record("DeleteProgram", p)
}

func (r *Recorder) UseProgram(p gfx.Program) {
	r.current = p
	r.record("UseProgram", p)
}

// declares reports whether any shader attached to p declares name. Uniform
// block names and plain uniforms are both matched on the identifier that
// follows the type in a "uniform" declaration.
func (r *Recorder) declares(p gfx.Program, pattern *regexp.Regexp) bool {
	for _, src := range r.ProgramSources(p) {
		if pattern.MatchString(src) {
			return true
		}
	}
	return false
}

func (r *Recorder) UniformBlockIndex(p gfx.Program, name string) uint32 {
	r.record("UniformBlockIndex", p, name)
	po, ok := r.programs[p]
	if !ok || !po.linked {
		return gfx.InvalidIndex
	}
	if idx, ok := po.blocks[name]; ok {
		return idx
	}
	pattern := regexp.MustCompile(`(?m)^\s*(layout\s*\([^)]*\)\s*)?uniform\s+` + regexp.QuoteMeta(name) + `\b`)
	if !r.declares(p, pattern) {
		return gfx.InvalidIndex
	}
	idx := uint32(len(po.blocks))
	po.blocks[name] = idx
	return idx
}

func (r *Recorder) UniformBlockBinding(p gfx.Program, blockIndex, binding uint32) {
	if po, ok := r.programs[p]; ok {
		po.bindings[blockIndex] = binding
	}
	r.record("UniformBlockBinding", p, blockIndex, binding)
}

func (r *Recorder) UniformLocation(p gfx.Program, name string) gfx.Uniform {
	r.record("UniformLocation", p, name)
	po, ok := r.programs[p]
	if !ok || !po.linked {
		return gfx.NoUniform
	}
	if loc, ok := po.locations[name]; ok {
		return loc
	}
	pattern := regexp.MustCompile(`(?m)^\s*uniform\s+\w+\s+` + regexp.QuoteMeta(name) + `\s*;`)
	if !r.declares(p, pattern) {
		return gfx.NoUniform
	}
	loc := gfx.Uniform(len(po.locations))
	po.locations[name] = loc
	return loc
}

func (r *Recorder) Uniform1i(u gfx.Uniform, v int32) {
	r.record("Uniform1i", u, v)
}

func (r *Recorder) Uniform1f(u gfx.Uniform, v float32) {
	r.record("Uniform1f", u, v)
}

func (r *Recorder) Uniform4f(u gfx.Uniform, v [4]float32) {
	r.record("Uniform4f", u, v)
}

// Vertex input and drawing

func (r *Recorder) VertexAttribPointer(index uint32, size int, typ gfx.DataType, normalized bool, stride, offset int) {
	r.record("VertexAttribPointer", index, size, typ, normalized, stride, offset, r.bound[gfx.ArrayBuffer])
}

func (r *Recorder) EnableVertexAttribArray(index uint32) {
	r.enabled[index] = true
	r.record("EnableVertexAttribArray", index)
}

func (r *Recorder) DisableVertexAttribArray(index uint32) {
	delete(r.enabled, index)
	r.record("DisableVertexAttribArray", index)
}

func (r *Recorder) DrawElements(mode gfx.Topology, count int, typ gfx.DataType, offset int) {
	r.record("DrawElements", mode, count, typ, offset)

	attrs := make([]uint32, 0, len(r.enabled))
	for idx := range r.enabled {
		attrs = append(attrs, idx)
	}
	sort.Slice(attrs, func(i, j int) bool { return attrs[i] < attrs[j] })

	blocks := make(map[uint32][]byte, len(r.ranges))
	for slot, rng := range r.ranges {
		data := r.buffers[rng.buffer]
		end := rng.offset + rng.size
		if end > len(data) {
			end = len(data)
		}
		if rng.offset < end {
			blocks[slot] = append([]byte(nil), data[rng.offset:end]...)
		}
	}

	textures := make(map[int]gfx.Texture, len(r.unitTextures))
	for unit, t := range r.unitTextures {
		textures[unit] = t
	}

	r.Draws = append(r.Draws, Draw{
		Program:    r.current,
		Mode:       mode,
		Count:      count,
		Type:       typ,
		Offset:     offset,
		Attributes: attrs,
		Blocks:     blocks,
		Textures:   textures,
	})
}

// Frame state

func (r *Recorder) Enable(c gfx.Capability) {
	r.capabilities[c] = true
	r.record("Enable", c)
}

func (r *Recorder) Viewport(x, y, width, height int) {
	r.record("Viewport", x, y, width, height)
}

func (r *Recorder) ClearColor(red, green, blue, alpha float32) {
	r.clearColor = [4]float32{red, green, blue, alpha}
	r.record("ClearColor", red, green, blue, alpha)
}

func (r *Recorder) Clear(mask gfx.ClearMask) {
	if mask&gfx.ColorBit != 0 {
		for i, c := range r.clearColor {
			r.cleared[i] = byte(min(max(c, 0), 1)*255 + 0.5)
		}
	}
	r.record("Clear", mask)
}

// ReadPixels returns every pixel set to the color of the last color clear.
func (r *Recorder) ReadPixels(x, y, width, height int) []byte {
	r.record("ReadPixels", x, y, width, height)
	pixels := make([]byte, width*height*4)
	for i := 0; i < len(pixels); i += 4 {
		copy(pixels[i:i+4], r.cleared[:])
	}
	return pixels
}

func (r *Recorder) DrawingBufferSize() (int, int) {
	return r.Width, r.Height
}

// String renders the call log, one call per line.
func (r *Recorder) String() string {
	var sb strings.Builder
	for _, c := range r.Calls {
		fmt.Fprintf(&sb, "%s%v\n", c.Name, c.Args)
	}
	return sb.String()
}
