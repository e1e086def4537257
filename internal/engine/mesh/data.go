package mesh

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/forge3d/internal/engine/bounds"
	"github.com/Faultbox/forge3d/internal/engine/gfx"
	"github.com/Faultbox/forge3d/internal/engine/material"
)

// PrimitiveData is one index list drawn with one material.
type PrimitiveData struct {
	Indices  []uint16
	Material material.Material
}

// Data builds geometry on the CPU. All primitives share one vertex buffer
// holding the position, normal and texcoord streams back to back; each
// primitive gets its own element buffer.
type Data struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	TexCoords []mgl32.Vec2

	Primitives []PrimitiveData
}

// AddPrimitive appends an index list. A nil material selects the default
// passed to Upload.
func (d *Data) AddPrimitive(indices []uint16, m material.Material) {
	d.Primitives = append(d.Primitives, PrimitiveData{Indices: indices, Material: m})
}

// Bounds returns the bounds of the positions.
func (d *Data) Bounds() bounds.Bounds {
	b := bounds.New()
	for _, p := range d.Positions {
		b.EncapsulatePoint(p)
	}
	return b
}

// Validate checks stream lengths and index ranges.
func (d *Data) Validate() error {
	n := len(d.Positions)
	if n == 0 {
		return fmt.Errorf("mesh data has no positions")
	}
	if len(d.Normals) != 0 && len(d.Normals) != n {
		return fmt.Errorf("mesh data has %d normals for %d positions", len(d.Normals), n)
	}
	if len(d.TexCoords) != 0 && len(d.TexCoords) != n {
		return fmt.Errorf("mesh data has %d texcoords for %d positions", len(d.TexCoords), n)
	}
	if len(d.Primitives) == 0 {
		return fmt.Errorf("mesh data has no primitives")
	}
	for i, p := range d.Primitives {
		if len(p.Indices) == 0 {
			return fmt.Errorf("primitive %d has no indices", i)
		}
		for _, idx := range p.Indices {
			if int(idx) >= n {
				return fmt.Errorf("primitive %d: index %d out of range", i, idx)
			}
		}
	}
	return nil
}

// Upload creates the GPU buffers and returns the primitives.
// defaultMaterial supplies the base material of primitives added without
// one.
func (d *Data) Upload(ctx gfx.Context, defaultMaterial func() material.Material) ([]*Primitive, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	vertices := make([]byte, 0, len(d.Positions)*32)
	var attributes []Attribute

	add := func(s gfx.Semantic, components int, floats []float32) {
		attributes = append(attributes, Attribute{
			Semantic:       s,
			ComponentType:  gfx.Float,
			ComponentCount: components,
			Count:          len(floats) / components,
			Offset:         len(vertices),
		})
		vertices = appendFloats(vertices, floats)
	}

	add(gfx.Position, 3, flatten3(d.Positions))
	if len(d.Normals) > 0 {
		add(gfx.Normal, 3, flatten3(d.Normals))
	}
	if len(d.TexCoords) > 0 {
		add(gfx.TexCoord0, 2, flatten2(d.TexCoords))
	}

	vbo := ctx.CreateBuffer()
	ctx.BindBuffer(gfx.ArrayBuffer, vbo)
	ctx.BufferData(gfx.ArrayBuffer, vertices, gfx.StaticDraw)
	for i := range attributes {
		attributes[i].Buffer = vbo
	}

	b := d.Bounds()
	primitives := make([]*Primitive, 0, len(d.Primitives))
	for _, pd := range d.Primitives {
		ebo := ctx.CreateBuffer()
		ctx.BindBuffer(gfx.ElementArrayBuffer, ebo)
		ctx.BufferData(gfx.ElementArrayBuffer, indexBytes(pd.Indices), gfx.StaticDraw)

		m := pd.Material
		if m == nil && defaultMaterial != nil {
			m = defaultMaterial()
		}

		primitives = append(primitives, NewPrimitive(
			gfx.Triangles,
			ElementBuffer{ComponentType: gfx.UnsignedShort, Count: len(pd.Indices), Buffer: ebo},
			attributes,
			b,
			m,
		))
	}
	return primitives, nil
}

func flatten3(vs []mgl32.Vec3) []float32 {
	out := make([]float32, 0, len(vs)*3)
	for _, v := range vs {
		out = append(out, v[0], v[1], v[2])
	}
	return out
}

func flatten2(vs []mgl32.Vec2) []float32 {
	out := make([]float32, 0, len(vs)*2)
	for _, v := range vs {
		out = append(out, v[0], v[1])
	}
	return out
}

func appendFloats(dst []byte, fs []float32) []byte {
	for _, f := range fs {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(f))
	}
	return dst
}

func indexBytes(indices []uint16) []byte {
	out := make([]byte, 0, len(indices)*2)
	for _, idx := range indices {
		out = binary.LittleEndian.AppendUint16(out, idx)
	}
	return out
}
