// Package uniform encodes the engine's std140 uniform blocks and keeps their
// GPU buffers.
//
// The byte layouts mirror the declarations in shader/glsl/common_header.glsl.
package uniform

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/forge3d/internal/engine/gfx"
	"github.com/Faultbox/forge3d/internal/engine/lighting"
)

// Global block layout.
const (
	GlobalSize = 480

	OffsetProjection       = 0
	OffsetView             = 64
	OffsetCameraPosition   = 128
	OffsetAmbientIntensity = 140
	OffsetAmbientColor     = 144
	OffsetLightCount       = 156
	OffsetLights           = 160
	LightStride            = 64
)

// Light record layout, relative to the record start.
const (
	LightType         = 0
	LightRange        = 4
	LightIntensity    = 8
	LightPosition     = 16
	LightSpotInnerCos = 28
	LightDirection    = 32
	LightSpotOuterCos = 44
	LightColor        = 48
)

// Object block layout.
const (
	ObjectSize = 128

	OffsetWorld        = 0
	OffsetNormalMatrix = 64
)

// Global is the CPU copy of the global block.
type Global struct {
	data [GlobalSize]byte
}

// SetCamera writes the projection, view and camera position.
func (g *Global) SetCamera(proj, view mgl32.Mat4, position mgl32.Vec3) {
	putMat4(g.data[OffsetProjection:], proj)
	putMat4(g.data[OffsetView:], view)
	putVec3(g.data[OffsetCameraPosition:], position)
}

// SetAmbient writes the ambient color and intensity.
func (g *Global) SetAmbient(color mgl32.Vec3, intensity float32) {
	putVec3(g.data[OffsetAmbientColor:], color)
	putFloat(g.data[OffsetAmbientIntensity:], intensity)
}

// SetLights writes every light whose layer mask intersects mask, in order,
// up to lighting.MaxLights, and returns the written count.
func (g *Global) SetLights(lights []*lighting.Light, mask uint32) int {
	count := 0
	for _, l := range lights {
		if count == lighting.MaxLights {
			break
		}
		if l.LayerMask&mask == 0 {
			continue
		}
		g.setLight(count, l)
		count++
	}
	putInt(g.data[OffsetLightCount:], int32(count))
	return count
}

func (g *Global) setLight(i int, l *lighting.Light) {
	rec := g.data[OffsetLights+i*LightStride : OffsetLights+(i+1)*LightStride]
	putInt(rec[LightType:], int32(l.Type))
	putFloat(rec[LightRange:], l.Range)
	putFloat(rec[LightIntensity:], l.Intensity)
	putVec3(rec[LightPosition:], l.Position())
	putFloat(rec[LightSpotInnerCos:], cosDegrees(l.SpotInnerAngle))
	putVec3(rec[LightDirection:], l.Direction())
	putFloat(rec[LightSpotOuterCos:], cosDegrees(l.SpotOuterAngle))
	putVec3(rec[LightColor:], l.Color)
}

// Bytes returns the encoded block.
func (g *Global) Bytes() []byte { return g.data[:] }

// Object is the CPU copy of the per-draw object block.
type Object struct {
	data [ObjectSize]byte
}

// SetWorld writes the world matrix and its inverse transpose.
func (o *Object) SetWorld(world mgl32.Mat4) {
	putMat4(o.data[OffsetWorld:], world)
	putMat4(o.data[OffsetNormalMatrix:], NormalMatrix(world))
}

// Bytes returns the encoded block.
func (o *Object) Bytes() []byte { return o.data[:] }

// NormalMatrix returns the inverse transpose of m. A singular matrix
// yields the zero matrix, same as mgl32.Mat4.Inv.
func NormalMatrix(m mgl32.Mat4) mgl32.Mat4 {
	return m.Inv().Transpose()
}

// Buffer is a uniform buffer bound to a fixed slot.
type Buffer struct {
	ctx     gfx.Context
	handle  gfx.Buffer
	binding uint32
	size    int
}

// NewBuffer allocates a dynamic uniform buffer of size bytes and binds its
// whole range to binding.
func NewBuffer(ctx gfx.Context, binding uint32, size int) *Buffer {
	b := &Buffer{ctx: ctx, handle: ctx.CreateBuffer(), binding: binding, size: size}
	ctx.BindBuffer(gfx.UniformBuffer, b.handle)
	ctx.BufferData(gfx.UniformBuffer, make([]byte, size), gfx.DynamicDraw)
	ctx.BindBufferRange(gfx.UniformBuffer, binding, b.handle, 0, size)
	return b
}

// Upload replaces the buffer contents with data.
func (b *Buffer) Upload(data []byte) {
	b.ctx.BindBuffer(gfx.UniformBuffer, b.handle)
	b.ctx.BufferSubData(gfx.UniformBuffer, 0, data)
}

// Handle returns the GPU buffer.
func (b *Buffer) Handle() gfx.Buffer { return b.handle }

// Binding returns the block slot.
func (b *Buffer) Binding() uint32 { return b.binding }

// Delete releases the GPU buffer.
func (b *Buffer) Delete() {
	if b.handle != 0 {
		b.ctx.DeleteBuffer(b.handle)
		b.handle = 0
	}
}

func cosDegrees(deg float32) float32 {
	return float32(math.Cos(float64(mgl32.DegToRad(deg))))
}

func putFloat(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func putInt(b []byte, v int32) {
	binary.LittleEndian.PutUint32(b, uint32(v))
}

func putVec3(b []byte, v mgl32.Vec3) {
	for i, f := range v {
		putFloat(b[i*4:], f)
	}
}

func putMat4(b []byte, m mgl32.Mat4) {
	for i, f := range m {
		putFloat(b[i*4:], f)
	}
}
