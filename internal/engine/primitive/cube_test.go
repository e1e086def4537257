package primitive

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertVec3Near(t *testing.T, want, got mgl32.Vec3, msgAndArgs ...any) {
	t.Helper()
	assert.InDeltaSlice(t, want[:], got[:], 1e-4, msgAndArgs...)
}

func TestCube(t *testing.T) {
	d := Cube(2, nil)
	require.NoError(t, d.Validate())

	assert.Len(t, d.Positions, 24)
	assert.Len(t, d.Normals, 24)
	assert.Len(t, d.TexCoords, 24)
	require.Len(t, d.Primitives, 1)
	assert.Len(t, d.Primitives[0].Indices, 36)

	b := d.Bounds()
	assert.Equal(t, mgl32.Vec3{-1, -1, -1}, b.Min)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, b.Max)
}

func TestCubeWindingFacesOutward(t *testing.T) {
	d := Cube(1, nil)
	idx := d.Primitives[0].Indices

	for tri := 0; tri < len(idx); tri += 3 {
		a, b, c := d.Positions[idx[tri]], d.Positions[idx[tri+1]], d.Positions[idx[tri+2]]
		n := b.Sub(a).Cross(c.Sub(a)).Normalize()
		assertVec3Near(t, d.Normals[idx[tri]], n, "triangle %d", tri/3)
	}
}
