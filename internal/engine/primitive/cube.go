// Package primitive generates procedural meshes.
package primitive

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/forge3d/internal/engine/material"
	"github.com/Faultbox/forge3d/internal/engine/mesh"
)

type face struct {
	normal, u, v mgl32.Vec3
}

// u x v == normal for every face, so corners listed (-u,-v) (u,-v) (u,v)
// (-u,v) wind counter-clockwise seen from outside.
var cubeFaces = [6]face{
	{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
	{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
	{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
}

var cornerSigns = [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

var cornerUVs = [4]mgl32.Vec2{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

// Cube returns an axis-aligned cube with the given edge length centered on
// the origin. Each face has its own four vertices so normals stay flat.
// m becomes the base material of the single primitive; nil leaves the
// choice to the uploader.
func Cube(size float32, m material.Material) *mesh.Data {
	h := size / 2
	d := &mesh.Data{
		Positions: make([]mgl32.Vec3, 0, 24),
		Normals:   make([]mgl32.Vec3, 0, 24),
		TexCoords: make([]mgl32.Vec2, 0, 24),
	}
	indices := make([]uint16, 0, 36)

	for _, f := range cubeFaces {
		base := uint16(len(d.Positions))
		for i, s := range cornerSigns {
			p := f.normal.Add(f.u.Mul(s[0])).Add(f.v.Mul(s[1])).Mul(h)
			d.Positions = append(d.Positions, p)
			d.Normals = append(d.Normals, f.normal)
			d.TexCoords = append(d.TexCoords, cornerUVs[i])
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}

	d.AddPrimitive(indices, m)
	return d
}
