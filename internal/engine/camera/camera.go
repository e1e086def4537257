// Package camera provides the scene camera component.
package camera

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/forge3d/internal/engine/node"
)

// DefaultCullingMask renders the first 16 layers.
const DefaultCullingMask uint32 = 0xFFFF

// Camera is a perspective camera attached to a node. Projection and view
// are recomputed lazily after a parameter or the node transform changes.
type Camera struct {
	Node *node.Node

	// CullingMask selects the node layers the camera renders.
	CullingMask uint32

	near   float32
	far    float32
	aspect float32
	fovY   float32 // degrees

	dirty      bool
	projection mgl32.Mat4
	view       mgl32.Mat4
}

var _ node.Component = (*Camera)(nil)

// New creates a camera on n with default parameters. It is not attached;
// use Cameras.Create for that.
func New(n *node.Node) *Camera {
	return &Camera{
		Node:        n,
		CullingMask: DefaultCullingMask,
		near:        0.1,
		far:         1000,
		aspect:      1.33,
		fovY:        45,
		dirty:       true,
	}
}

// Near returns the near clip distance.
func (c *Camera) Near() float32 { return c.near }

// Far returns the far clip distance.
func (c *Camera) Far() float32 { return c.far }

// Aspect returns the width / height ratio.
func (c *Camera) Aspect() float32 { return c.aspect }

// FovY returns the vertical field of view in degrees.
func (c *Camera) FovY() float32 { return c.fovY }

// SetNear sets the near clip distance.
func (c *Camera) SetNear(v float32) { c.set(&c.near, v) }

// SetFar sets the far clip distance.
func (c *Camera) SetFar(v float32) { c.set(&c.far, v) }

// SetAspect sets the width / height ratio.
func (c *Camera) SetAspect(v float32) { c.set(&c.aspect, v) }

// SetFovY sets the vertical field of view in degrees.
func (c *Camera) SetFovY(v float32) { c.set(&c.fovY, v) }

func (c *Camera) set(field *float32, v float32) {
	if *field != v {
		*field = v
		c.dirty = true
	}
}

// Dirty reports whether the matrices are stale.
func (c *Camera) Dirty() bool { return c.dirty }

// MarkDirty forces recomputation on the next matrix read.
func (c *Camera) MarkDirty() { c.dirty = true }

// Transformed implements node.Component.
func (c *Camera) Transformed() { c.dirty = true }

func (c *Camera) update() {
	if !c.dirty {
		return
	}

	c.projection = mgl32.Perspective(mgl32.DegToRad(c.fovY), c.aspect, c.near, c.far)

	eye := c.Node.WorldPosition()
	c.view = mgl32.LookAtV(eye, eye.Add(c.Node.WorldForward()), c.Node.WorldUp())

	c.dirty = false
}

// Projection returns the projection matrix.
func (c *Camera) Projection() mgl32.Mat4 {
	c.update()
	return c.projection
}

// View returns the view matrix.
func (c *Camera) View() mgl32.Mat4 {
	c.update()
	return c.view
}

// Position returns the world position of the camera.
func (c *Camera) Position() mgl32.Vec3 {
	return c.Node.WorldPosition()
}

// Cameras is the camera registry.
type Cameras struct {
	items []*Camera
}

// NewCameras creates an empty registry.
func NewCameras() *Cameras {
	return &Cameras{}
}

// Create makes a camera on n and attaches it to the node.
func (cs *Cameras) Create(n *node.Node) *Camera {
	c := New(n)
	n.Components.Camera = c
	cs.items = append(cs.items, c)
	return c
}

// Items returns cameras in creation order. The slice must not be modified.
func (cs *Cameras) Items() []*Camera { return cs.items }

// Len returns the number of cameras.
func (cs *Cameras) Len() int { return len(cs.items) }

// Clear removes every camera.
func (cs *Cameras) Clear() {
	for _, c := range cs.items {
		if c.Node != nil && c.Node.Components.Camera == c {
			c.Node.Components.Camera = nil
		}
	}
	cs.items = nil
}
