// Package mesh describes GPU-resident geometry and its placement in the
// scene.
package mesh

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/forge3d/internal/engine/bounds"
	"github.com/Faultbox/forge3d/internal/engine/gfx"
	"github.com/Faultbox/forge3d/internal/engine/material"
	"github.com/Faultbox/forge3d/internal/logger"
)

// ErrExists is returned when a mesh name is already registered.
var ErrExists = errors.New("mesh already exists")

// Attribute is one vertex stream read from a GPU buffer.
type Attribute struct {
	Semantic       gfx.Semantic
	ComponentType  gfx.DataType
	ComponentCount int
	Count          int
	Offset         int
	Stride         int
	Normalized     bool
	Buffer         gfx.Buffer
}

// ElementBuffer is the index stream of a primitive.
type ElementBuffer struct {
	ComponentType gfx.DataType
	Count         int
	Offset        int
	Buffer        gfx.Buffer
}

// Primitive is a single draw: topology, indices, attributes, object-space
// bounds and the material used when an instance has no override.
type Primitive struct {
	Topology     gfx.Topology
	Indices      ElementBuffer
	Attributes   []Attribute
	Bounds       bounds.Bounds
	BaseMaterial material.Material

	attributeMask gfx.AttributeMask
}

// NewPrimitive builds a primitive and derives its attribute mask.
func NewPrimitive(topology gfx.Topology, indices ElementBuffer, attributes []Attribute, b bounds.Bounds, base material.Material) *Primitive {
	p := &Primitive{
		Topology:     topology,
		Indices:      indices,
		Attributes:   attributes,
		Bounds:       b,
		BaseMaterial: base,
	}
	for _, a := range attributes {
		p.attributeMask |= a.Semantic.Bit()
	}
	return p
}

// AttributeMask returns the set of semantics the primitive provides.
func (p *Primitive) AttributeMask() gfx.AttributeMask {
	return p.attributeMask
}

// Mesh is an immutable list of primitives.
type Mesh struct {
	Name       string
	Primitives []*Primitive
	Bounds     bounds.Bounds
}

// buffers adds every GPU buffer referenced by m to seen.
func (m *Mesh) buffers(seen map[gfx.Buffer]bool) {
	for _, p := range m.Primitives {
		if p.Indices.Buffer != 0 {
			seen[p.Indices.Buffer] = true
		}
		for _, a := range p.Attributes {
			if a.Buffer != 0 {
				seen[a.Buffer] = true
			}
		}
	}
}

// Registry owns meshes by name. GPU buffers are released only by Clear.
type Registry struct {
	ctx    gfx.Context
	meshes map[string]*Mesh
	log    *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(ctx gfx.Context) *Registry {
	return &Registry{
		ctx:    ctx,
		meshes: make(map[string]*Mesh),
		log:    logger.Named("mesh"),
	}
}

// Create registers a mesh built from primitives. Its bounds are the union
// of the primitive bounds.
func (r *Registry) Create(name string, primitives []*Primitive) (*Mesh, error) {
	if _, ok := r.meshes[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrExists, name)
	}

	m := &Mesh{Name: name, Primitives: primitives, Bounds: bounds.New()}
	for _, p := range primitives {
		m.Bounds.EncapsulateBounds(p.Bounds)
	}
	r.meshes[name] = m

	r.log.Debug("mesh created", zap.String("name", name), zap.Int("primitives", len(primitives)))
	return m, nil
}

// Get returns a mesh by name.
func (r *Registry) Get(name string) (*Mesh, bool) {
	m, ok := r.meshes[name]
	return m, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.meshes[name]
	return ok
}

// Len returns the number of meshes.
func (r *Registry) Len() int { return len(r.meshes) }

// All returns the meshes sorted by name.
func (r *Registry) All() []*Mesh {
	out := make([]*Mesh, 0, len(r.meshes))
	for _, m := range r.meshes {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Clear deletes every mesh. Buffers shared between meshes are deleted once.
func (r *Registry) Clear() {
	seen := make(map[gfx.Buffer]bool)
	for _, m := range r.meshes {
		m.buffers(seen)
	}
	for b := range seen {
		r.ctx.DeleteBuffer(b)
	}
	r.log.Debug("meshes released", zap.Int("meshes", len(r.meshes)), zap.Int("buffers", len(seen)))
	r.meshes = make(map[string]*Mesh)
}
