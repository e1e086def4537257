// Package gltfimport loads glTF 2.0 and GLB files into a scene.
//
// Nodes are assembled with a node.Builder under a container node, mesh
// instances are created once matrices are final, and the container is
// linked into the live hierarchy last, so the renderer never sees a half
// built import.
package gltfimport

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/forge3d/internal/assets"
	"github.com/Faultbox/forge3d/internal/engine/bounds"
	"github.com/Faultbox/forge3d/internal/engine/gfx"
	"github.com/Faultbox/forge3d/internal/engine/material"
	"github.com/Faultbox/forge3d/internal/engine/mesh"
	"github.com/Faultbox/forge3d/internal/engine/node"
	"github.com/Faultbox/forge3d/internal/engine/scene"
	"github.com/Faultbox/forge3d/internal/engine/texture"
	"github.com/Faultbox/forge3d/internal/logger"
)

// ErrUnsupported is returned for glTF features the engine cannot draw.
var ErrUnsupported = errors.New("unsupported glTF content")

// Result describes an imported file.
type Result struct {
	// Root is the container node linked under the scene root.
	Root *node.Node
	// Nodes maps glTF node indices to engine nodes.
	Nodes  []*node.Node
	Meshes []*mesh.Mesh
	// Instances are the mesh instances created, in node order.
	Instances []*mesh.Instance
}

// Loader imports glTF files through an asset manager.
type Loader struct {
	scene  *scene.Scene
	assets *assets.Manager
	log    *zap.Logger

	// AutoScale scales the container so the import fits a unit box.
	AutoScale bool
}

// NewLoader creates a loader for s reading files from m.
func NewLoader(s *scene.Scene, m *assets.Manager) *Loader {
	return &Loader{
		scene:  s,
		assets: m,
		log:    logger.Named("gltf"),
	}
}

// Load imports the default scene of the glTF or GLB file name. A failure
// leaves the live hierarchy untouched, though GPU resources created before
// the failure stay registered until the scene is cleared.
func (l *Loader) Load(ctx context.Context, name string) (*Result, error) {
	name = assets.Clean(name)
	data, err := l.assets.Load(ctx, name)
	if err != nil {
		return nil, err
	}

	doc := new(gltf.Document)
	dec := gltf.NewDecoderFS(bytes.NewReader(data), &assetFS{ctx: ctx, m: l.assets, dir: path.Dir(name)})
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}

	ld := &load{
		Loader:    l,
		ctx:       ctx,
		name:      name,
		dir:       path.Dir(name),
		doc:       doc,
		gpu:       make(map[int]gfx.Buffer),
		meshes:    make([]*mesh.Mesh, len(doc.Meshes)),
		materials: make([]material.Material, len(doc.Materials)),
		textures:  make([]*texture.Texture, len(doc.Images)),
	}
	res, err := ld.run()
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", name, err)
	}

	l.log.Info("model loaded",
		zap.String("file", name),
		zap.Int("nodes", len(res.Nodes)),
		zap.Int("meshes", len(res.Meshes)),
		zap.Int("instances", len(res.Instances)),
	)
	return res, nil
}

// load is the state of one import.
type load struct {
	*Loader
	ctx  context.Context
	name string
	dir  string
	doc  *gltf.Document

	gpu       map[int]gfx.Buffer
	meshes    []*mesh.Mesh
	materials []material.Material
	textures  []*texture.Texture
}

func (ld *load) run() (*Result, error) {
	doc := ld.doc
	res := &Result{
		Root:  node.New(path.Base(ld.name)),
		Nodes: make([]*node.Node, len(doc.Nodes)),
	}

	for i, gn := range doc.Nodes {
		res.Nodes[i] = newNode(i, gn)
	}

	b := node.NewBuilder()
	for i, gn := range doc.Nodes {
		for _, c := range gn.Children {
			if c < 0 || c >= len(res.Nodes) {
				return nil, fmt.Errorf("node %d: child %d out of range", i, c)
			}
			b.Attach(res.Nodes[i], res.Nodes[c])
		}
	}
	for _, r := range ld.sceneRoots() {
		if r < 0 || r >= len(res.Nodes) {
			return nil, fmt.Errorf("scene root %d out of range", r)
		}
		b.Attach(res.Root, res.Nodes[r])
	}
	b.Finalize(res.Root)

	// Every instance is built before any is registered, so a failure
	// leaves nothing for the renderer to draw.
	for i, gn := range doc.Nodes {
		if gn.Mesh == nil {
			continue
		}
		m, err := ld.mesh(*gn.Mesh)
		if err != nil {
			return nil, err
		}
		inst, err := ld.scene.PrepareMeshInstance(res.Nodes[i], m)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		res.Instances = append(res.Instances, inst)
	}
	for i, inst := range res.Instances {
		if err := ld.scene.AddMeshInstance(inst); err != nil {
			for _, added := range res.Instances[:i] {
				ld.scene.RemoveMeshInstance(added)
			}
			return nil, err
		}
	}

	for _, m := range ld.meshes {
		if m != nil {
			res.Meshes = append(res.Meshes, m)
		}
	}

	if ld.AutoScale {
		autoScale(res.Root, ld.scene.WorldBounds(res.Root))
	}

	ld.scene.Root.AddChild(res.Root)
	return res, nil
}

// sceneRoots returns the root nodes of the default scene, or every
// parentless node when the file has no scenes.
func (ld *load) sceneRoots() []int {
	doc := ld.doc
	if len(doc.Scenes) > 0 {
		idx := 0
		if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
			idx = *doc.Scene
		}
		return doc.Scenes[idx].Nodes
	}

	child := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(child) {
				child[c] = true
			}
		}
	}
	var roots []int
	for i, isChild := range child {
		if !isChild {
			roots = append(roots, i)
		}
	}
	return roots
}

func newNode(i int, gn *gltf.Node) *node.Node {
	name := gn.Name
	if name == "" {
		name = fmt.Sprintf("node%d", i)
	}
	n := node.New(name)

	if m := gn.MatrixOrDefault(); m != gltf.DefaultMatrix {
		var mat mgl32.Mat4
		for k, v := range m {
			mat[k] = float32(v)
		}
		n.SetTransformFromMatrix(mat)
		return n
	}

	t := gn.TranslationOrDefault()
	r := gn.RotationOrDefault()
	s := gn.ScaleOrDefault()
	n.Position = mgl32.Vec3{float32(t[0]), float32(t[1]), float32(t[2])}
	n.Rotation = mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}.Normalize()
	n.Scale = mgl32.Vec3{float32(s[0]), float32(s[1]), float32(s[2])}
	return n
}

// autoScale scales root so the largest extent of b becomes one.
func autoScale(root *node.Node, b bounds.Bounds) {
	if !b.Valid() {
		return
	}
	size := b.Size()
	extent := max(size[0], size[1], size[2])
	if extent <= 0 {
		return
	}
	s := 1 / extent
	root.Scale = mgl32.Vec3{s, s, s}
	root.UpdateMatrix()
}

func (ld *load) mesh(index int) (*mesh.Mesh, error) {
	if index < 0 || index >= len(ld.meshes) {
		return nil, fmt.Errorf("mesh %d out of range", index)
	}
	if m := ld.meshes[index]; m != nil {
		return m, nil
	}

	gm := ld.doc.Meshes[index]
	prims := make([]*mesh.Primitive, 0, len(gm.Primitives))
	for j, gp := range gm.Primitives {
		p, err := ld.primitive(gp)
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", index, j, err)
		}
		prims = append(prims, p)
	}

	name := fmt.Sprintf("%s#mesh%d", ld.name, index)
	if gm.Name != "" {
		name += ":" + gm.Name
	}
	m, err := ld.scene.CreateMesh(name, prims)
	if err != nil {
		return nil, err
	}
	ld.meshes[index] = m
	return m, nil
}

func (ld *load) primitive(gp *gltf.Primitive) (*mesh.Primitive, error) {
	topology, err := topologyOf(gp.Mode)
	if err != nil {
		return nil, err
	}

	posIndex, ok := gp.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("%w: primitive without POSITION", ErrUnsupported)
	}

	var attrs []mesh.Attribute
	for _, sem := range []struct {
		name     string
		semantic gfx.Semantic
	}{
		{gltf.POSITION, gfx.Position},
		{gltf.NORMAL, gfx.Normal},
		{gltf.TEXCOORD_0, gfx.TexCoord0},
	} {
		idx, ok := gp.Attributes[sem.name]
		if !ok {
			continue
		}
		a, err := ld.attribute(sem.semantic, idx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sem.name, err)
		}
		attrs = append(attrs, a)
	}

	var indices mesh.ElementBuffer
	if gp.Indices != nil {
		indices, err = ld.elementBuffer(*gp.Indices)
	} else {
		indices = ld.sequentialIndices(ld.doc.Accessors[posIndex].Count)
	}
	if err != nil {
		return nil, fmt.Errorf("indices: %w", err)
	}

	b, err := ld.positionBounds(posIndex)
	if err != nil {
		return nil, err
	}

	mat, err := ld.material(gp.Material)
	if err != nil {
		return nil, err
	}

	return mesh.NewPrimitive(topology, indices, attrs, b, mat), nil
}

func (ld *load) accessor(index int) (*gltf.Accessor, error) {
	if index < 0 || index >= len(ld.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", index)
	}
	acc := ld.doc.Accessors[index]
	if acc.BufferView == nil {
		return nil, fmt.Errorf("%w: accessor %d has no buffer view", ErrUnsupported, index)
	}
	if acc.Sparse != nil {
		return nil, fmt.Errorf("%w: sparse accessor %d", ErrUnsupported, index)
	}
	return acc, nil
}

func (ld *load) attribute(semantic gfx.Semantic, index int) (mesh.Attribute, error) {
	acc, err := ld.accessor(index)
	if err != nil {
		return mesh.Attribute{}, err
	}
	typ, err := componentType(acc.ComponentType)
	if err != nil {
		return mesh.Attribute{}, err
	}
	components, err := componentCount(acc.Type)
	if err != nil {
		return mesh.Attribute{}, err
	}
	buf, err := ld.gpuBuffer(*acc.BufferView, gfx.ArrayBuffer)
	if err != nil {
		return mesh.Attribute{}, err
	}

	return mesh.Attribute{
		Semantic:       semantic,
		ComponentType:  typ,
		ComponentCount: components,
		Count:          acc.Count,
		Offset:         acc.ByteOffset,
		Stride:         ld.doc.BufferViews[*acc.BufferView].ByteStride,
		Normalized:     acc.Normalized,
		Buffer:         buf,
	}, nil
}

func (ld *load) elementBuffer(index int) (mesh.ElementBuffer, error) {
	acc, err := ld.accessor(index)
	if err != nil {
		return mesh.ElementBuffer{}, err
	}
	typ, err := componentType(acc.ComponentType)
	if err != nil {
		return mesh.ElementBuffer{}, err
	}
	switch typ {
	case gfx.UnsignedByte, gfx.UnsignedShort, gfx.UnsignedInt:
	default:
		return mesh.ElementBuffer{}, fmt.Errorf("%w: index component type %d", ErrUnsupported, acc.ComponentType)
	}
	buf, err := ld.gpuBuffer(*acc.BufferView, gfx.ElementArrayBuffer)
	if err != nil {
		return mesh.ElementBuffer{}, err
	}
	return mesh.ElementBuffer{ComponentType: typ, Count: acc.Count, Offset: acc.ByteOffset, Buffer: buf}, nil
}

// sequentialIndices builds 0..count-1 for non-indexed primitives.
func (ld *load) sequentialIndices(count int) mesh.ElementBuffer {
	var data []byte
	typ := gfx.UnsignedShort
	if count > 0xFFFF {
		typ = gfx.UnsignedInt
		data = make([]byte, 0, count*4)
		for i := 0; i < count; i++ {
			v := uint32(i)
			data = append(data, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
		}
	} else {
		data = make([]byte, 0, count*2)
		for i := 0; i < count; i++ {
			data = append(data, byte(i), byte(i>>8))
		}
	}

	ctx := ld.scene.Context()
	buf := ctx.CreateBuffer()
	ctx.BindBuffer(gfx.ElementArrayBuffer, buf)
	ctx.BufferData(gfx.ElementArrayBuffer, data, gfx.StaticDraw)
	return mesh.ElementBuffer{ComponentType: typ, Count: count, Buffer: buf}
}

// gpuBuffer uploads a buffer view once and returns its GPU buffer.
func (ld *load) gpuBuffer(view int, target gfx.BufferTarget) (gfx.Buffer, error) {
	if b, ok := ld.gpu[view]; ok {
		return b, nil
	}
	data, err := ld.viewData(view)
	if err != nil {
		return 0, err
	}

	ctx := ld.scene.Context()
	b := ctx.CreateBuffer()
	ctx.BindBuffer(target, b)
	ctx.BufferData(target, data, gfx.StaticDraw)
	ld.gpu[view] = b
	return b, nil
}

func (ld *load) viewData(view int) ([]byte, error) {
	if view < 0 || view >= len(ld.doc.BufferViews) {
		return nil, fmt.Errorf("buffer view %d out of range", view)
	}
	bv := ld.doc.BufferViews[view]
	if bv.Buffer < 0 || bv.Buffer >= len(ld.doc.Buffers) {
		return nil, fmt.Errorf("buffer view %d: buffer %d out of range", view, bv.Buffer)
	}
	data := ld.doc.Buffers[bv.Buffer].Data
	end := bv.ByteOffset + bv.ByteLength
	if bv.ByteOffset < 0 || end > len(data) {
		return nil, fmt.Errorf("buffer view %d exceeds buffer %d", view, bv.Buffer)
	}
	return data[bv.ByteOffset:end], nil
}

// positionBounds uses the accessor min/max and falls back to reading the
// positions when they are absent.
func (ld *load) positionBounds(index int) (bounds.Bounds, error) {
	acc := ld.doc.Accessors[index]
	if len(acc.Min) >= 3 && len(acc.Max) >= 3 {
		return bounds.FromMinMax(
			mgl32.Vec3{float32(acc.Min[0]), float32(acc.Min[1]), float32(acc.Min[2])},
			mgl32.Vec3{float32(acc.Max[0]), float32(acc.Max[1]), float32(acc.Max[2])},
		), nil
	}

	positions, err := modeler.ReadPosition(ld.doc, acc, nil)
	if err != nil {
		return bounds.Bounds{}, fmt.Errorf("reading positions: %w", err)
	}
	b := bounds.New()
	for _, p := range positions {
		b.EncapsulatePoint(mgl32.Vec3(p))
	}
	return b, nil
}

func (ld *load) material(index *int) (material.Material, error) {
	if index == nil {
		return ld.scene.DefaultMaterial(), nil
	}
	i := *index
	if i < 0 || i >= len(ld.materials) {
		return nil, fmt.Errorf("material %d out of range", i)
	}
	if m := ld.materials[i]; m != nil {
		return m, nil
	}

	gm := ld.doc.Materials[i]
	var diffuse, emission *texture.Texture
	var err error

	pbr := gm.PBRMetallicRoughness
	if pbr != nil && pbr.BaseColorTexture != nil {
		if diffuse, err = ld.texture(pbr.BaseColorTexture.Index); err != nil {
			return nil, fmt.Errorf("material %d base color: %w", i, err)
		}
	}
	if gm.EmissiveTexture != nil {
		if emission, err = ld.texture(gm.EmissiveTexture.Index); err != nil {
			return nil, fmt.Errorf("material %d emission: %w", i, err)
		}
	}

	m := ld.scene.NewPhong(diffuse != nil || emission != nil)
	m.DiffuseMap = diffuse
	m.EmissionMap = emission
	if pbr != nil && pbr.BaseColorFactor != nil {
		f := pbr.BaseColorFactor
		m.DiffuseColor = mgl32.Vec4{float32(f[0]), float32(f[1]), float32(f[2]), float32(f[3])}
	}

	ld.materials[i] = m
	return m, nil
}

// texture resolves a glTF texture index to an uploaded image.
func (ld *load) texture(index int) (*texture.Texture, error) {
	if index < 0 || index >= len(ld.doc.Textures) {
		return nil, fmt.Errorf("texture %d out of range", index)
	}
	src := ld.doc.Textures[index].Source
	if src == nil || *src < 0 || *src >= len(ld.textures) {
		return nil, fmt.Errorf("%w: texture %d has no image", ErrUnsupported, index)
	}
	if t := ld.textures[*src]; t != nil {
		return t, nil
	}

	img := ld.doc.Images[*src]
	data, mime, err := ld.imageData(img)
	if err != nil {
		return nil, fmt.Errorf("image %d: %w", *src, err)
	}

	name := fmt.Sprintf("%s#image%d", ld.name, *src)
	t, err := ld.scene.CreateTextureFromBytes(name, data, mime)
	if err != nil {
		return nil, err
	}
	ld.textures[*src] = t
	return t, nil
}

func (ld *load) imageData(img *gltf.Image) ([]byte, string, error) {
	switch {
	case img.BufferView != nil:
		data, err := ld.viewData(*img.BufferView)
		return data, img.MimeType, err
	case strings.HasPrefix(img.URI, "data:"):
		return decodeDataURI(img.URI)
	case img.URI != "":
		uri, err := url.PathUnescape(img.URI)
		if err != nil {
			uri = img.URI
		}
		data, err := ld.assets.Load(ld.ctx, path.Join(ld.dir, uri))
		return data, img.MimeType, err
	default:
		return nil, "", fmt.Errorf("%w: image without source", ErrUnsupported)
	}
}

// decodeDataURI decodes a base64 data URI and returns its payload and
// media type.
func decodeDataURI(uri string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data URI")
	}
	mime, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("%w: data URI is not base64", ErrUnsupported)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decoding data URI: %w", err)
	}
	return data, mime, nil
}

func topologyOf(mode gltf.PrimitiveMode) (gfx.Topology, error) {
	switch mode {
	case gltf.PrimitiveTriangles:
		return gfx.Triangles, nil
	case gltf.PrimitivePoints:
		return gfx.Points, nil
	case gltf.PrimitiveLines:
		return gfx.Lines, nil
	case gltf.PrimitiveLineLoop:
		return gfx.LineLoop, nil
	case gltf.PrimitiveLineStrip:
		return gfx.LineStrip, nil
	case gltf.PrimitiveTriangleStrip:
		return gfx.TriangleStrip, nil
	case gltf.PrimitiveTriangleFan:
		return gfx.TriangleFan, nil
	default:
		return 0, fmt.Errorf("%w: primitive mode %d", ErrUnsupported, mode)
	}
}

func componentType(t gltf.ComponentType) (gfx.DataType, error) {
	switch t {
	case gltf.ComponentFloat:
		return gfx.Float, nil
	case gltf.ComponentByte:
		return gfx.Byte, nil
	case gltf.ComponentUbyte:
		return gfx.UnsignedByte, nil
	case gltf.ComponentShort:
		return gfx.Short, nil
	case gltf.ComponentUshort:
		return gfx.UnsignedShort, nil
	case gltf.ComponentUint:
		return gfx.UnsignedInt, nil
	default:
		return 0, fmt.Errorf("%w: component type %d", ErrUnsupported, t)
	}
}

func componentCount(t gltf.AccessorType) (int, error) {
	switch t {
	case gltf.AccessorScalar:
		return 1, nil
	case gltf.AccessorVec2:
		return 2, nil
	case gltf.AccessorVec3:
		return 3, nil
	case gltf.AccessorVec4:
		return 4, nil
	default:
		return 0, fmt.Errorf("%w: accessor type %d", ErrUnsupported, t)
	}
}
