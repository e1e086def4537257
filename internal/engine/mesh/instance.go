package mesh

import (
	"errors"
	"fmt"

	"github.com/Faultbox/forge3d/internal/engine/bounds"
	"github.com/Faultbox/forge3d/internal/engine/material"
	"github.com/Faultbox/forge3d/internal/engine/node"
)

// ErrShapeMismatch is returned when explicit materials do not match the
// number of primitives.
var ErrShapeMismatch = errors.New("materials do not match primitive count")

// Instance places a mesh on a node with one material per primitive.
type Instance struct {
	Node      *node.Node
	Mesh      *Mesh
	Materials []material.Material

	worldBounds bounds.Bounds
}

var _ node.Bounded = (*Instance)(nil)

// NewInstance creates an instance of m on n. When materials is nil the
// primitive base materials are used; any other slice, empty included, must
// hold one material per primitive. Either way every material is cloned so
// the instance can be edited without touching the prototype.
func NewInstance(n *node.Node, m *Mesh, materials []material.Material) (*Instance, error) {
	if materials != nil && len(materials) != len(m.Primitives) {
		return nil, fmt.Errorf("mesh %q: %w: %d materials for %d primitives",
			m.Name, ErrShapeMismatch, len(materials), len(m.Primitives))
	}

	inst := &Instance{
		Node:      n,
		Mesh:      m,
		Materials: make([]material.Material, len(m.Primitives)),
	}
	for i, p := range m.Primitives {
		src := p.BaseMaterial
		if materials != nil {
			src = materials[i]
		}
		if src != nil {
			inst.Materials[i] = src.Clone()
		}
	}

	inst.UpdateBounds()
	return inst, nil
}

// Material returns the material drawn with primitive i.
func (inst *Instance) Material(i int) material.Material {
	return inst.Materials[i]
}

// UpdateBounds maps the mesh bounds into world space.
func (inst *Instance) UpdateBounds() {
	inst.worldBounds = inst.Mesh.Bounds.Transform(inst.Node.WorldMatrix())
}

// WorldBounds returns the cached world-space bounds.
func (inst *Instance) WorldBounds() bounds.Bounds {
	return inst.worldBounds
}

// Transformed implements node.Component.
func (inst *Instance) Transformed() {
	inst.UpdateBounds()
}
