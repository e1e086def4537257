package lighting

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/forge3d/internal/engine/node"
)

// DirectionFromAngles converts longitude/latitude angles in degrees to a
// unit vector pointing towards the light. Longitude rotates around +Y,
// latitude is the elevation above the horizon.
func DirectionFromAngles(longitude, latitude float32) mgl32.Vec3 {
	lon := float64(longitude) * math.Pi / 180.0
	lat := float64(latitude) * math.Pi / 180.0

	return mgl32.Vec3{
		float32(math.Cos(lat) * math.Sin(lon)),
		float32(math.Sin(lat)),
		float32(math.Cos(lat) * math.Cos(lon)),
	}
}

// Aim rotates n so that its forward axis points along dir. A light aimed
// with -DirectionFromAngles shines from that point of the sky.
func Aim(n *node.Node, dir mgl32.Vec3) {
	up := mgl32.Vec3{0, 1, 0}
	if d := dir.Normalize(); math.Abs(float64(d.Dot(up))) > 0.999 {
		up = mgl32.Vec3{0, 0, 1}
	}
	n.LookAt(n.Position.Add(dir), up)
}
