package node

import "github.com/go-gl/mathgl/mgl32"

const epsilon = 1e-6

// SetTransformFromMatrix decomposes a TRS matrix into position, rotation
// and scale. The matrices are not recomputed.
func (n *Node) SetTransformFromMatrix(m mgl32.Mat4) {
	n.Position = m.Col(3).Vec3()

	cols := [3]mgl32.Vec3{m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()}
	scale := mgl32.Vec3{cols[0].Len(), cols[1].Len(), cols[2].Len()}

	// A mirrored basis is folded into the x scale.
	if m.Mat3().Det() < 0 {
		scale[0] = -scale[0]
	}

	for i := range cols {
		if scale[i] > epsilon || scale[i] < -epsilon {
			cols[i] = cols[i].Mul(1 / scale[i])
		}
	}
	n.Scale = scale

	if scale[0] == 0 || scale[1] == 0 || scale[2] == 0 {
		n.Rotation = mgl32.QuatIdent()
		return
	}
	n.Rotation = mgl32.Mat4ToQuat(mgl32.Mat3FromCols(cols[0], cols[1], cols[2]).Mat4()).Normalize()
}
