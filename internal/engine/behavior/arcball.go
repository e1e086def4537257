package behavior

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/forge3d/internal/engine/bounds"
	"github.com/Faultbox/forge3d/internal/engine/node"
)

// Arcball orbits a camera node around a target point.
type Arcball struct {
	Node *node.Node

	// Target is the point the camera orbits and looks at.
	Target mgl32.Vec3

	// Spherical coordinates around Target.
	Distance float32
	Pitch    float32 // radians, positive looks down from above
	Yaw      float32 // radians

	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	DragSensitivity float32 // radians per pixel
	ZoomSensitivity float32 // fraction of distance per wheel step

	dirty bool
}

// NewArcball creates an arcball controlling n with default settings.
func NewArcball(n *node.Node) *Arcball {
	return &Arcball{
		Node:            n,
		Distance:        10,
		Pitch:           0.5,
		MinDistance:     0.1,
		MaxDistance:     1000,
		MinPitch:        -1.5,
		MaxPitch:        1.5,
		DragSensitivity: 0.01,
		ZoomSensitivity: 0.1,
		dirty:           true,
	}
}

// FitToBounds centers the orbit on b and backs off to twice its diagonal.
// Invalid bounds are ignored.
func (a *Arcball) FitToBounds(b bounds.Bounds) {
	if !b.Valid() {
		return
	}
	diagonal := b.Diagonal()
	if diagonal <= 0 {
		diagonal = 1
	}

	a.Target = b.Center()
	a.Distance = diagonal * 2
	a.MinDistance = diagonal * 0.05
	a.MaxDistance = diagonal * 20
	a.dirty = true
}

// HandleDrag rotates the orbit by a pointer movement in pixels.
func (a *Arcball) HandleDrag(deltaX, deltaY float32) {
	a.Yaw -= deltaX * a.DragSensitivity
	a.Pitch += deltaY * a.DragSensitivity
	a.clamp()
	a.dirty = true
}

// HandleZoom moves toward the target for positive delta.
func (a *Arcball) HandleZoom(delta float32) {
	a.Distance -= delta * a.Distance * a.ZoomSensitivity
	a.clamp()
	a.dirty = true
}

func (a *Arcball) clamp() {
	a.Pitch = mgl32.Clamp(a.Pitch, a.MinPitch, a.MaxPitch)
	a.Distance = mgl32.Clamp(a.Distance, a.MinDistance, a.MaxDistance)
}

// Position returns the camera position implied by the orbit parameters.
func (a *Arcball) Position() mgl32.Vec3 {
	cosPitch := float32(math.Cos(float64(a.Pitch)))
	offset := mgl32.Vec3{
		cosPitch * float32(math.Sin(float64(a.Yaw))),
		float32(math.Sin(float64(a.Pitch))),
		cosPitch * float32(math.Cos(float64(a.Yaw))),
	}
	return a.Target.Add(offset.Mul(a.Distance))
}

// Update places the node when the orbit changed since the last frame.
func (a *Arcball) Update(float32) {
	if !a.dirty {
		return
	}
	a.clamp()
	a.Node.Position = a.Position()
	a.Node.LookAt(a.Target, mgl32.Vec3{0, 1, 0})
	a.Node.UpdateMatrix()
	a.dirty = false
}
