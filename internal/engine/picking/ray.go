// Package picking provides ray casting and object picking utilities.
package picking

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/forge3d/internal/engine/bounds"
	"github.com/Faultbox/forge3d/internal/engine/camera"
	"github.com/Faultbox/forge3d/internal/engine/mesh"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3 // Normalized direction
}

// ScreenToRay converts screen coordinates to a world-space ray.
// screenX, screenY are pixel coordinates with the origin at the top-left,
// viewportW/H are viewport dimensions.
// invViewProj is the inverse of the view-projection matrix.
func ScreenToRay(screenX, screenY, viewportW, viewportH float32, invViewProj mgl32.Mat4) Ray {
	// Convert screen coords to normalized device coords (-1 to 1)
	ndcX := 2*screenX/viewportW - 1
	ndcY := 1 - 2*screenY/viewportH // Flip Y

	nearWorld := invViewProj.Mul4x1(mgl32.Vec4{ndcX, ndcY, -1, 1})
	farWorld := invViewProj.Mul4x1(mgl32.Vec4{ndcX, ndcY, 1, 1})

	// Perspective divide
	origin := perspectiveDivide(nearWorld)
	dir := perspectiveDivide(farWorld).Sub(origin)
	if dir.Len() > 0 {
		dir = dir.Normalize()
	}

	return Ray{Origin: origin, Direction: dir}
}

func perspectiveDivide(v mgl32.Vec4) mgl32.Vec3 {
	if v[3] != 0 {
		return v.Vec3().Mul(1 / v[3])
	}
	return v.Vec3()
}

// FromCamera casts a ray from c through the screen point (x, y) of a
// width by height viewport.
func FromCamera(c *camera.Camera, x, y, width, height float32) Ray {
	inv := c.Projection().Mul4(c.View()).Inv()
	return ScreenToRay(x, y, width, height, inv)
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// IntersectPlaneY intersects a ray with a horizontal plane at the given Y level.
func (r Ray) IntersectPlaneY(planeY float32) (mgl32.Vec3, bool) {
	if math.Abs(float64(r.Direction[1])) < 0.001 {
		return mgl32.Vec3{}, false // Ray parallel to plane
	}

	t := (planeY - r.Origin[1]) / r.Direction[1]
	if t < 0 {
		return mgl32.Vec3{}, false // Intersection behind ray origin
	}
	return r.At(t), true
}

// IntersectBounds tests ray intersection with an axis-aligned box.
// Returns the distance to intersection (t) and whether intersection occurred.
// If the ray starts inside the box, returns the exit distance.
func (r Ray) IntersectBounds(b bounds.Bounds) (t float32, hit bool) {
	if !b.Valid() {
		return 0, false
	}

	tmin := float32(-math.MaxFloat32)
	tmax := float32(math.MaxFloat32)

	for axis := 0; axis < 3; axis++ {
		if r.Direction[axis] == 0 {
			if r.Origin[axis] < b.Min[axis] || r.Origin[axis] > b.Max[axis] {
				return 0, false
			}
			continue
		}
		t1 := (b.Min[axis] - r.Origin[axis]) / r.Direction[axis]
		t2 := (b.Max[axis] - r.Origin[axis]) / r.Direction[axis]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = max(tmin, t1)
		tmax = min(tmax, t2)
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}

	// Return entry point, or exit point if starting inside
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// Hit is the result of a successful pick.
type Hit struct {
	Instance *mesh.Instance
	Distance float32
}

// Point returns the world position of the hit along r.
func (h Hit) Point(r Ray) mgl32.Vec3 {
	return r.At(h.Distance)
}

// Pick returns the nearest instance whose world bounds r crosses. Only
// instances on a layer in mask are considered.
func Pick(r Ray, instances []*mesh.Instance, mask uint32) (Hit, bool) {
	var best Hit
	found := false
	for _, inst := range instances {
		if inst.Node.LayerMask&mask == 0 {
			continue
		}
		t, ok := r.IntersectBounds(inst.WorldBounds())
		if !ok {
			continue
		}
		if !found || t < best.Distance {
			best = Hit{Instance: inst, Distance: t}
			found = true
		}
	}
	return best, found
}
