// Package bounds provides axis-aligned bounding boxes.
package bounds

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Bounds is an axis-aligned box. An invalidated box has Min = +Inf and
// Max = -Inf so that the first encapsulated point sets both corners.
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

var (
	posInf = float32(math.Inf(1))
	negInf = float32(math.Inf(-1))
)

// New returns an invalidated box.
func New() Bounds {
	return Bounds{
		Min: mgl32.Vec3{posInf, posInf, posInf},
		Max: mgl32.Vec3{negInf, negInf, negInf},
	}
}

// FromMinMax returns the box spanning min and max.
func FromMinMax(min, max mgl32.Vec3) Bounds {
	return Bounds{Min: min, Max: max}
}

// Invalidate resets b to the invalidated box.
func (b *Bounds) Invalidate() {
	*b = New()
}

// Valid reports whether Min <= Max on every axis.
func (b Bounds) Valid() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}

// EncapsulatePoint grows b to contain p.
func (b *Bounds) EncapsulatePoint(p mgl32.Vec3) {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

// EncapsulateBounds grows b to contain other. Invalid boxes are ignored.
func (b *Bounds) EncapsulateBounds(other Bounds) {
	if !other.Valid() {
		return
	}
	b.EncapsulatePoint(other.Min)
	b.EncapsulatePoint(other.Max)
}

// Union returns the smallest box containing a and b.
func Union(a, b Bounds) Bounds {
	out := a
	out.EncapsulateBounds(b)
	return out
}

// Transform maps all eight corners of b through m and returns their bounds.
// Transforming an invalid box returns an invalid box.
func (b Bounds) Transform(m mgl32.Mat4) Bounds {
	out := New()
	if !b.Valid() {
		return out
	}
	for i := 0; i < 8; i++ {
		corner := mgl32.Vec3{b.Min[0], b.Min[1], b.Min[2]}
		if i&1 != 0 {
			corner[0] = b.Max[0]
		}
		if i&2 != 0 {
			corner[1] = b.Max[1]
		}
		if i&4 != 0 {
			corner[2] = b.Max[2]
		}
		out.EncapsulatePoint(mgl32.TransformCoordinate(corner, m))
	}
	return out
}

// Center returns the midpoint of the box.
func (b Bounds) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the extent of the box on each axis.
func (b Bounds) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Diagonal returns the length of the box diagonal.
func (b Bounds) Diagonal() float32 {
	return b.Size().Len()
}
