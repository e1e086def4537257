// Package lighting provides the scene light registry.
package lighting

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/forge3d/internal/engine/node"
)

// MaxLights is the number of light records in the global uniform block.
const MaxLights = 5

// ErrCapacityExceeded is returned when creating more than MaxLights lights.
var ErrCapacityExceeded = errors.New("light capacity exceeded")

// Type is the kind of light source.
type Type int32

const (
	Directional Type = iota
	Point
	Spot
)

func (t Type) String() string {
	switch t {
	case Directional:
		return "directional"
	case Point:
		return "point"
	case Spot:
		return "spot"
	default:
		return "unknown"
	}
}

// Light is a light source attached to a node. Its position and direction
// come from the node's world matrix.
type Light struct {
	Type      Type
	Color     mgl32.Vec3
	Range     float32
	Intensity float32

	// Cone angles in degrees, used by spot lights.
	SpotInnerAngle float32
	SpotOuterAngle float32

	// LayerMask selects the node layers the light affects.
	LayerMask uint32

	Node *node.Node
}

var _ node.Component = (*Light)(nil)

// Position returns the world position of the owning node.
func (l *Light) Position() mgl32.Vec3 {
	return l.Node.WorldPosition()
}

// Direction returns the world forward axis of the owning node.
func (l *Light) Direction() mgl32.Vec3 {
	return l.Node.WorldForward()
}

// Transformed implements node.Component. Position and direction are read
// from the node on demand, so there is nothing to refresh.
func (l *Light) Transformed() {}

// Lights is the bounded light collection.
type Lights struct {
	items []*Light
}

// NewLights creates an empty collection.
func NewLights() *Lights {
	return &Lights{items: make([]*Light, 0, MaxLights)}
}

// Create adds a light of type t on n with default parameters and attaches
// it to the node.
func (ls *Lights) Create(n *node.Node, t Type) (*Light, error) {
	if len(ls.items) >= MaxLights {
		return nil, fmt.Errorf("%w: at most %d lights", ErrCapacityExceeded, MaxLights)
	}

	l := &Light{
		Type:           t,
		Color:          mgl32.Vec3{1, 1, 1},
		Range:          10,
		Intensity:      1,
		SpotInnerAngle: 12.5,
		SpotOuterAngle: 45,
		LayerMask:      ^uint32(0),
		Node:           n,
	}
	n.Components.Light = l
	ls.items = append(ls.items, l)
	return l, nil
}

// Items returns the lights in creation order. The slice must not be
// modified.
func (ls *Lights) Items() []*Light { return ls.items }

// Len returns the number of lights.
func (ls *Lights) Len() int { return len(ls.items) }

// Clear removes every light.
func (ls *Lights) Clear() {
	for _, l := range ls.items {
		if l.Node != nil && l.Node.Components.Light == l {
			l.Node.Components.Light = nil
		}
	}
	ls.items = ls.items[:0]
}
