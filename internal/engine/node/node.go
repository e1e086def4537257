// Package node implements the transform hierarchy.
//
// A parent exclusively owns its children; the parent pointer is a plain
// back-reference. A node is destroyed by removing it from its parent.
package node

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/forge3d/internal/engine/bounds"
)

// DefaultLayerMask is the layer a new node belongs to.
const DefaultLayerMask uint32 = 1

// Component is attached to a node and notified when its world matrix changes.
type Component interface {
	Transformed()
}

// Bounded is a component that exposes world-space bounds.
type Bounded interface {
	Component
	WorldBounds() bounds.Bounds
}

// Components holds at most one component of each kind.
type Components struct {
	Camera       Component
	MeshInstance Bounded
	Light        Component
}

func (c *Components) each(fn func(Component)) {
	if c.Camera != nil {
		fn(c.Camera)
	}
	if c.MeshInstance != nil {
		fn(c.MeshInstance)
	}
	if c.Light != nil {
		fn(c.Light)
	}
}

// Node is an element of the transform hierarchy.
type Node struct {
	Name string

	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3

	LayerMask  uint32
	Components Components

	local mgl32.Mat4
	world mgl32.Mat4

	parent   *Node
	children []*Node
}

// New creates a detached node with an identity transform.
func New(name string) *Node {
	return &Node{
		Name:      name,
		Rotation:  mgl32.QuatIdent(),
		Scale:     mgl32.Vec3{1, 1, 1},
		LayerMask: DefaultLayerMask,
		local:     mgl32.Ident4(),
		world:     mgl32.Ident4(),
	}
}

// Parent returns the parent node or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Child returns the child at index i.
func (n *Node) Child(i int) *Node { return n.children[i] }

// ChildCount returns the number of children.
func (n *Node) ChildCount() int { return len(n.children) }

// Children returns the children in order. The slice must not be modified.
func (n *Node) Children() []*Node { return n.children }

// LocalMatrix returns the last computed local matrix.
func (n *Node) LocalMatrix() mgl32.Mat4 { return n.local }

// WorldMatrix returns the last computed world matrix.
func (n *Node) WorldMatrix() mgl32.Mat4 { return n.world }

// AddChild reparents child under n and recomputes the moved subtree.
func (n *Node) AddChild(child *Node) {
	n.link(child)
	child.UpdateMatrix()
}

func (n *Node) link(child *Node) {
	if child.parent != nil {
		child.parent.unlink(child)
	}
	child.parent = n
	n.children = append(n.children, child)
}

func (n *Node) unlink(child *Node) bool {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return true
		}
	}
	return false
}

// RemoveChild detaches child and its subtree. It reports whether child was
// a child of n.
func (n *Node) RemoveChild(child *Node) bool {
	return n.unlink(child)
}

// Detach removes n from its parent.
func (n *Node) Detach() {
	if n.parent != nil {
		n.parent.unlink(n)
	}
}

// UpdateMatrix recomputes the local and world matrices of n and its subtree
// and notifies attached components.
func (n *Node) UpdateMatrix() {
	n.local = mgl32.Translate3D(n.Position[0], n.Position[1], n.Position[2]).
		Mul4(n.Rotation.Mat4()).
		Mul4(mgl32.Scale3D(n.Scale[0], n.Scale[1], n.Scale[2]))

	if n.parent != nil {
		n.world = n.parent.world.Mul4(n.local)
	} else {
		n.world = n.local
	}

	n.Components.each(func(c Component) { c.Transformed() })

	for _, child := range n.children {
		child.UpdateMatrix()
	}
}

// Walk visits n and its descendants depth-first in child order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, child := range n.children {
		child.Walk(fn)
	}
}

var (
	axisY = mgl32.Vec3{0, 1, 0}
	axisZ = mgl32.Vec3{0, 0, 1}
)

// rotateAxis rotates axis by q. A degenerate rotation yields the axis itself.
func rotateAxis(q mgl32.Quat, axis mgl32.Vec3) mgl32.Vec3 {
	v := q.Rotate(axis)
	if v.Len() < epsilon {
		return axis
	}
	return v.Normalize()
}

// Forward returns the local +Z axis rotated by the node rotation.
func (n *Node) Forward() mgl32.Vec3 {
	return rotateAxis(n.Rotation, axisZ)
}

// Up returns the local +Y axis rotated by the node rotation.
func (n *Node) Up() mgl32.Vec3 {
	return rotateAxis(n.Rotation, axisY)
}

func worldAxis(m mgl32.Mat4, axis mgl32.Vec3) mgl32.Vec3 {
	v := m.Mul4x1(axis.Vec4(0)).Vec3()
	if v.Len() < epsilon {
		return axis
	}
	return v.Normalize()
}

// WorldPosition returns the translation of the world matrix.
func (n *Node) WorldPosition() mgl32.Vec3 {
	return n.world.Col(3).Vec3()
}

// WorldForward returns the +Z axis in world space.
func (n *Node) WorldForward() mgl32.Vec3 {
	return worldAxis(n.world, axisZ)
}

// WorldUp returns the +Y axis in world space.
func (n *Node) WorldUp() mgl32.Vec3 {
	return worldAxis(n.world, axisY)
}

// LookAt rotates the node so that its forward axis points at target.
// The rotation is left unchanged when target coincides with the node
// position or when up is parallel to the view direction.
func (n *Node) LookAt(target, up mgl32.Vec3) {
	z := target.Sub(n.Position)
	if z.Len() < epsilon {
		return
	}
	z = z.Normalize()

	x := up.Cross(z)
	if x.Len() < epsilon {
		return
	}
	x = x.Normalize()
	y := z.Cross(x)

	n.Rotation = mgl32.Mat4ToQuat(mgl32.Mat3FromCols(x, y, z).Mat4()).Normalize()
}
