package mesh

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/forge3d/internal/engine/bounds"
	"github.com/Faultbox/forge3d/internal/engine/gfx"
	"github.com/Faultbox/forge3d/internal/engine/gfx/gfxtest"
	"github.com/Faultbox/forge3d/internal/engine/material"
	"github.com/Faultbox/forge3d/internal/engine/node"
	"github.com/Faultbox/forge3d/internal/engine/shader"
)

func assertVec3Near(t *testing.T, want, got mgl32.Vec3, msgAndArgs ...any) {
	t.Helper()
	assert.InDeltaSlice(t, want[:], got[:], 1e-4, msgAndArgs...)
}

func unitBounds() bounds.Bounds {
	return bounds.FromMinMax(mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1})
}

func testPrimitive(base material.Material, semantics ...gfx.Semantic) *Primitive {
	var attrs []Attribute
	for _, s := range semantics {
		attrs = append(attrs, Attribute{Semantic: s, ComponentType: gfx.Float, ComponentCount: 3, Buffer: 1})
	}
	return NewPrimitive(gfx.Triangles, ElementBuffer{ComponentType: gfx.UnsignedShort, Count: 3, Buffer: 2}, attrs, unitBounds(), base)
}

func TestAttributeMask(t *testing.T) {
	p := testPrimitive(nil, gfx.Position, gfx.TexCoord0)
	assert.True(t, p.AttributeMask().Has(gfx.Position))
	assert.False(t, p.AttributeMask().Has(gfx.Normal))
	assert.True(t, p.AttributeMask().Has(gfx.TexCoord0))
	assert.Equal(t, gfx.AttributeMask(0b101), p.AttributeMask())
}

func TestRegistry(t *testing.T) {
	rec := gfxtest.New(1, 1)
	r := NewRegistry(rec)

	p := testPrimitive(nil, gfx.Position)
	other := NewPrimitive(gfx.Triangles, ElementBuffer{Buffer: 3}, nil,
		bounds.FromMinMax(mgl32.Vec3{2, 2, 2}, mgl32.Vec3{3, 3, 3}), nil)

	m, err := r.Create("box", []*Primitive{p, other})
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{-1, -1, -1}, m.Bounds.Min)
	assert.Equal(t, mgl32.Vec3{3, 3, 3}, m.Bounds.Max)

	_, err = r.Create("box", nil)
	assert.ErrorIs(t, err, ErrExists)

	// Shares buffer 1 and 2 with "box".
	_, err = r.Create("copy", []*Primitive{testPrimitive(nil, gfx.Position)})
	require.NoError(t, err)

	assert.True(t, r.Has("box"))
	assert.Equal(t, 2, r.Len())
	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "box", all[0].Name)

	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 3, rec.Count("DeleteBuffer"), "each distinct buffer deleted once")
}

func TestInstanceShapeMismatch(t *testing.T) {
	s := &shader.Shader{Name: shader.Phong}
	m := &Mesh{Name: "tri", Primitives: []*Primitive{
		testPrimitive(nil, gfx.Position),
		testPrimitive(nil, gfx.Position),
		testPrimitive(nil, gfx.Position),
	}, Bounds: unitBounds()}

	_, err := NewInstance(node.New("n"), m, []material.Material{material.NewPhong(s), material.NewPhong(s)})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	// An empty list is explicit, unlike nil.
	_, err = NewInstance(node.New("n"), m, []material.Material{})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	inst, err := NewInstance(node.New("n"), m, nil)
	require.NoError(t, err)
	assert.Len(t, inst.Materials, 3)
}

func TestInstanceClonesMaterials(t *testing.T) {
	s := &shader.Shader{Name: shader.Phong}
	base := material.NewPhong(s)
	m := &Mesh{Name: "m", Primitives: []*Primitive{testPrimitive(base, gfx.Position)}, Bounds: unitBounds()}

	inst, err := NewInstance(node.New("n"), m, nil)
	require.NoError(t, err)
	require.Len(t, inst.Materials, 1)
	assert.NotSame(t, base, inst.Material(0))
	assert.Same(t, s, inst.Material(0).Shader())

	override := material.NewUnlit(s)
	inst, err = NewInstance(node.New("n"), m, []material.Material{override})
	require.NoError(t, err)
	assert.IsType(t, &material.Unlit{}, inst.Material(0))
	assert.NotSame(t, override, inst.Material(0))
}

func TestInstanceWorldBounds(t *testing.T) {
	m := &Mesh{Name: "m", Primitives: []*Primitive{testPrimitive(nil, gfx.Position)}, Bounds: unitBounds()}

	root := node.New("root")
	n := node.New("n")
	root.AddChild(n)

	inst, err := NewInstance(n, m, nil)
	require.NoError(t, err)
	n.Components.MeshInstance = inst
	assert.Equal(t, unitBounds(), inst.WorldBounds())

	root.Position = mgl32.Vec3{10, 0, 0}
	n.Scale = mgl32.Vec3{2, 2, 2}
	root.UpdateMatrix()

	wb := inst.WorldBounds()
	assertVec3Near(t, mgl32.Vec3{8, -2, -2}, wb.Min)
	assertVec3Near(t, mgl32.Vec3{12, 2, 2}, wb.Max)
}

func TestDataUpload(t *testing.T) {
	rec := gfxtest.New(1, 1)
	d := &Data{
		Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 2, 0}},
		Normals:   []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
	}
	d.AddPrimitive([]uint16{0, 1, 2}, nil)
	d.AddPrimitive([]uint16{2, 1, 0}, material.NewUnlit(nil))

	defaults := 0
	prims, err := d.Upload(rec, func() material.Material {
		defaults++
		return material.NewPhong(nil)
	})
	require.NoError(t, err)
	require.Len(t, prims, 2)
	assert.Equal(t, 1, defaults)
	assert.IsType(t, &material.Phong{}, prims[0].BaseMaterial)
	assert.IsType(t, &material.Unlit{}, prims[1].BaseMaterial)

	p := prims[0]
	assert.Equal(t, gfx.Position.Bit()|gfx.Normal.Bit(), p.AttributeMask())
	require.Len(t, p.Attributes, 2)
	assert.Equal(t, 0, p.Attributes[0].Offset)
	assert.Equal(t, 36, p.Attributes[1].Offset)
	assert.Equal(t, 3, p.Attributes[1].Count)
	assert.Equal(t, mgl32.Vec3{1, 2, 0}, p.Bounds.Max)
	assert.NotEqual(t, prims[0].Indices.Buffer, prims[1].Indices.Buffer)
	assert.Equal(t, p.Attributes[0].Buffer, prims[1].Attributes[0].Buffer)
	assert.Equal(t, 3, rec.LiveBuffers())

	vertices := rec.BufferContents(p.Attributes[0].Buffer)
	require.Len(t, vertices, 72)
	assert.Equal(t, float32(2), math.Float32frombits(binary.LittleEndian.Uint32(vertices[7*4:])))

	indices := rec.BufferContents(prims[1].Indices.Buffer)
	assert.Equal(t, []byte{2, 0, 1, 0, 0, 0}, indices)
}

func TestDataValidate(t *testing.T) {
	tests := []struct {
		name string
		data Data
	}{
		{"no positions", Data{}},
		{"normal count", Data{Positions: make([]mgl32.Vec3, 3), Normals: make([]mgl32.Vec3, 2), Primitives: []PrimitiveData{{Indices: []uint16{0}}}}},
		{"texcoord count", Data{Positions: make([]mgl32.Vec3, 3), TexCoords: make([]mgl32.Vec2, 1), Primitives: []PrimitiveData{{Indices: []uint16{0}}}}},
		{"no primitives", Data{Positions: make([]mgl32.Vec3, 3)}},
		{"empty indices", Data{Positions: make([]mgl32.Vec3, 3), Primitives: []PrimitiveData{{}}}},
		{"index range", Data{Positions: make([]mgl32.Vec3, 3), Primitives: []PrimitiveData{{Indices: []uint16{0, 1, 3}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.data.Validate())
			_, err := tt.data.Upload(gfxtest.New(1, 1), nil)
			assert.Error(t, err)
		})
	}
}
