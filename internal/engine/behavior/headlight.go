package behavior

import "github.com/Faultbox/forge3d/internal/engine/node"

// Headlight keeps a light node at the camera node's pose. Both nodes are
// expected to share a parent, since the local transform is copied.
type Headlight struct {
	Light  *node.Node
	Camera *node.Node
}

// NewHeadlight creates a headlight moving light with camera.
func NewHeadlight(light, camera *node.Node) *Headlight {
	return &Headlight{Light: light, Camera: camera}
}

// Update copies the camera position and rotation.
func (h *Headlight) Update(float32) {
	if h.Light.Position == h.Camera.Position && h.Light.Rotation == h.Camera.Rotation {
		return
	}
	h.Light.Position = h.Camera.Position
	h.Light.Rotation = h.Camera.Rotation
	h.Light.UpdateMatrix()
}
