package camera

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/forge3d/internal/engine/node"
)

func assertVec3Near(t *testing.T, want, got mgl32.Vec3, msgAndArgs ...any) {
	t.Helper()
	assert.InDeltaSlice(t, want[:], got[:], 1e-4, msgAndArgs...)
}

func assertMat4Near(t *testing.T, want, got mgl32.Mat4, msgAndArgs ...any) {
	t.Helper()
	assert.InDeltaSlice(t, want[:], got[:], 1e-4, msgAndArgs...)
}

func TestDefaults(t *testing.T) {
	c := New(node.New("cam"))
	assert.Equal(t, float32(0.1), c.Near())
	assert.Equal(t, float32(1000), c.Far())
	assert.Equal(t, float32(45), c.FovY())
	assert.Equal(t, DefaultCullingMask, c.CullingMask)
	assert.True(t, c.Dirty())
}

func TestLazyMatrices(t *testing.T) {
	n := node.New("cam")
	c := New(n)

	want := mgl32.Perspective(mgl32.DegToRad(45), 1.33, 0.1, 1000)
	assert.Equal(t, want, c.Projection())
	assert.False(t, c.Dirty())

	c.SetAspect(1.33)
	assert.False(t, c.Dirty(), "unchanged value keeps matrices")

	c.SetAspect(2)
	assert.True(t, c.Dirty())
	assert.Equal(t, mgl32.Perspective(mgl32.DegToRad(45), 2, 0.1, 1000), c.Projection())
}

func TestViewFollowsNode(t *testing.T) {
	n := node.New("cam")
	cams := NewCameras()
	c := cams.Create(n)
	require.Same(t, c, n.Components.Camera)

	n.Position = mgl32.Vec3{0, 7, 10}
	n.LookAt(mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 1, 0})
	_ = c.View()
	n.UpdateMatrix()
	assert.True(t, c.Dirty(), "node transform marks the camera dirty")

	view := c.View()
	want := mgl32.LookAtV(mgl32.Vec3{0, 7, 10}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 1, 0})
	assertMat4Near(t, want, view)
	assertVec3Near(t, mgl32.Vec3{0, 7, 10}, c.Position())
}

func TestCamerasClear(t *testing.T) {
	cams := NewCameras()
	n := node.New("cam")
	cams.Create(n)
	cams.Create(node.New("other"))
	assert.Equal(t, 2, cams.Len())

	cams.Clear()
	assert.Equal(t, 0, cams.Len())
	assert.Nil(t, n.Components.Camera)
}
