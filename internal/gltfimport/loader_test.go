package gltfimport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
	"testing/fstest"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/forge3d/internal/assets"
	"github.com/Faultbox/forge3d/internal/engine/gfx"
	"github.com/Faultbox/forge3d/internal/engine/gfx/gfxtest"
	"github.com/Faultbox/forge3d/internal/engine/material"
	"github.com/Faultbox/forge3d/internal/engine/scene"
)

func assertVec3Near(t *testing.T, want, got mgl32.Vec3, msgAndArgs ...any) {
	t.Helper()
	assert.InDeltaSlice(t, want[:], got[:], 1e-4, msgAndArgs...)
}

// triangleBuffer holds three positions followed by three uint16 indices.
func triangleBuffer() []byte {
	var buf bytes.Buffer
	for _, v := range []float32{0, 0, 0, 2, 0, 0, 0, 4, 0} {
		_ = binary.Write(&buf, binary.LittleEndian, math.Float32bits(v))
	}
	_ = binary.Write(&buf, binary.LittleEndian, []uint16{0, 1, 2})
	buf.Write([]byte{0, 0})
	return buf.Bytes()
}

func dataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

const texturedTriangle = `{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [
    {"name": "parent", "translation": [1, 0, 0], "children": [1]},
    {"name": "child", "translation": [0, 2, 0], "mesh": 0}
  ],
  "meshes": [{"name": "tri", "primitives": [{"attributes": {"POSITION": 0}, "indices": 1, "material": 0}]}],
  "materials": [{"pbrMetallicRoughness": {"baseColorFactor": [0.5, 0.25, 1, 1], "baseColorTexture": {"index": 0}}}],
  "textures": [{"source": 0}],
  "images": [{"uri": "tex%%20a.png"}],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3", "min": [0, 0, 0], "max": [2, 4, 0]},
    {"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
  ],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36},
    {"buffer": 0, "byteOffset": 36, "byteLength": 6}
  ],
  "buffers": [{"byteLength": 44, "uri": "%s"}]
}`

const unindexedTriangle = `{
  "asset": {"version": "2.0"},
  "nodes": [{"mesh": 0}],
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
  "accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}],
  "bufferViews": [{"buffer": 0, "byteLength": 36}],
  "buffers": [{"byteLength": 44, "uri": "tri.bin"}]
}`

const noPosition = `{
  "asset": {"version": "2.0"},
  "nodes": [{"mesh": 0}],
  "meshes": [{"primitives": [{"attributes": {"NORMAL": 0}}]}],
  "accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}],
  "bufferViews": [{"buffer": 0, "byteLength": 36}],
  "buffers": [{"byteLength": 44, "uri": "tri.bin"}]
}`

// halfValid has a drawable first mesh and a second one without POSITION.
const halfValid = `{
  "asset": {"version": "2.0"},
  "nodes": [{"name": "good", "mesh": 0}, {"name": "bad", "mesh": 1}],
  "meshes": [
    {"primitives": [{"attributes": {"POSITION": 0}}]},
    {"primitives": [{"attributes": {"NORMAL": 0}}]}
  ],
  "accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}],
  "bufferViews": [{"buffer": 0, "byteLength": 36}],
  "buffers": [{"byteLength": 44, "uri": "tri.bin"}]
}`

type fixture struct {
	rec    *gfxtest.Recorder
	scene  *scene.Scene
	loader *Loader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rec := gfxtest.New(640, 480)
	s, err := scene.New(rec, scene.DefaultConfig())
	require.NoError(t, err)

	m := assets.NewManager()
	m.AddRoot(fstest.MapFS{
		"models/tri.gltf":        {Data: []byte(fmt.Sprintf(texturedTriangle, dataURI("application/octet-stream", triangleBuffer())))},
		"models/tex a.png":       {Data: pngBytes(t)},
		"models/unindexed.gltf":  {Data: []byte(unindexedTriangle)},
		"models/tri.bin":         {Data: triangleBuffer()},
		"models/noposition.gltf": {Data: []byte(noPosition)},
		"models/half.gltf":       {Data: []byte(halfValid)},
	})
	return &fixture{rec: rec, scene: s, loader: NewLoader(s, m)}
}

func TestLoadTexturedTriangle(t *testing.T) {
	f := newFixture(t)

	res, err := f.loader.Load(context.Background(), "models/tri.gltf")
	require.NoError(t, err)

	assert.Same(t, f.scene.Root, res.Root.Parent())
	require.Len(t, res.Nodes, 2)
	assert.Equal(t, "parent", res.Nodes[0].Name)
	assert.Same(t, res.Nodes[0], res.Nodes[1].Parent())
	assertVec3Near(t, mgl32.Vec3{1, 2, 0}, res.Nodes[1].WorldPosition())

	require.Len(t, res.Meshes, 1)
	assert.True(t, f.scene.Meshes.Has("models/tri.gltf#mesh0:tri"))
	assert.True(t, f.scene.Textures.Has("models/tri.gltf#image0"))

	require.Len(t, res.Instances, 1)
	inst := res.Instances[0]
	assert.Same(t, inst, res.Nodes[1].Components.MeshInstance)

	prim := res.Meshes[0].Primitives[0]
	assert.Equal(t, gfx.Triangles, prim.Topology)
	assert.Equal(t, gfx.UnsignedShort, prim.Indices.ComponentType)
	assert.Equal(t, 3, prim.Indices.Count)
	assertVec3Near(t, mgl32.Vec3{2, 4, 0}, prim.Bounds.Max)

	phong, ok := prim.BaseMaterial.(*material.Phong)
	require.True(t, ok)
	assert.NotNil(t, phong.DiffuseMap)
	assert.Nil(t, phong.EmissionMap)
	assert.InDelta(t, 0.25, phong.DiffuseColor.Y(), 1e-6)

	wb := f.scene.WorldBounds(res.Root)
	assertVec3Near(t, mgl32.Vec3{1, 2, 0}, wb.Min)
	assertVec3Near(t, mgl32.Vec3{3, 6, 0}, wb.Max)
}

func TestLoadSharesBufferViews(t *testing.T) {
	f := newFixture(t)
	before := f.rec.LiveBuffers()

	_, err := f.loader.Load(context.Background(), "models/tri.gltf")
	require.NoError(t, err)

	// One buffer per buffer view.
	assert.Equal(t, before+2, f.rec.LiveBuffers())
}

func TestLoadGeneratesSequentialIndices(t *testing.T) {
	f := newFixture(t)

	res, err := f.loader.Load(context.Background(), "models/unindexed.gltf")
	require.NoError(t, err)

	prim := res.Meshes[0].Primitives[0]
	assert.Equal(t, 3, prim.Indices.Count)
	assert.Equal(t, []byte{0, 0, 1, 0, 2, 0}, f.rec.BufferContents(prim.Indices.Buffer))

	// Bounds come from the positions when the accessor has no min/max.
	assertVec3Near(t, mgl32.Vec3{0, 0, 0}, prim.Bounds.Min)
	assertVec3Near(t, mgl32.Vec3{2, 4, 0}, prim.Bounds.Max)

	_, ok := prim.BaseMaterial.(*material.Phong)
	assert.True(t, ok)
}

func TestLoadAutoScale(t *testing.T) {
	f := newFixture(t)
	f.loader.AutoScale = true

	res, err := f.loader.Load(context.Background(), "models/tri.gltf")
	require.NoError(t, err)

	size := f.scene.WorldBounds(res.Root).Size()
	assert.InDelta(t, 1, max(size[0], size[1], size[2]), 1e-5)
}

func TestLoadMissingPosition(t *testing.T) {
	f := newFixture(t)
	children := f.scene.Root.ChildCount()

	_, err := f.loader.Load(context.Background(), "models/noposition.gltf")
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, children, f.scene.Root.ChildCount())
}

func TestLoadFailureRegistersNothing(t *testing.T) {
	f := newFixture(t)
	children := f.scene.Root.ChildCount()

	_, err := f.loader.Load(context.Background(), "models/half.gltf")
	require.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, children, f.scene.Root.ChildCount())
	assert.Empty(t, f.scene.Renderer.Instances())

	f.scene.Draw()
	assert.Zero(t, f.scene.Renderer.Stats().DrawCalls)
}

func TestLoadMissingFile(t *testing.T) {
	f := newFixture(t)

	_, err := f.loader.Load(context.Background(), "models/absent.gltf")
	assert.ErrorIs(t, err, assets.ErrNotFound)
}

func TestDecodeDataURI(t *testing.T) {
	data, mime, err := decodeDataURI(dataURI("image/png", []byte("abc")))
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, "abc", string(data))

	_, _, err = decodeDataURI("data:text/plain,abc")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, _, err = decodeDataURI("data:nocomma")
	assert.Error(t, err)
}
