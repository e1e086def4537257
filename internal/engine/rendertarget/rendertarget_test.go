package rendertarget

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/forge3d/internal/engine/gfx"
	"github.com/Faultbox/forge3d/internal/engine/gfx/gfxtest"
)

func TestCreate(t *testing.T) {
	rec := gfxtest.New(800, 600)
	targets := NewTargets(rec)

	rt, err := targets.Create(256, 128)
	require.NoError(t, err)

	w, h := rt.Size()
	assert.Equal(t, 256, w)
	assert.Equal(t, 128, h)
	assert.NotZero(t, rt.Handle())
	assert.NotEqual(t, rt.ColorTexture().Handle, rt.DepthTexture().Handle)
	assert.Equal(t, 1, targets.Len())
	assert.Equal(t, 2, rec.LiveTextures())
	assert.Equal(t, 1, rec.LiveFramebuffers())

	attach := rec.CallsNamed("FramebufferTexture2D")
	require.Len(t, attach, 2)
	assert.Equal(t, gfx.ColorAttachment0, attach[0].Args[0])
	assert.Equal(t, gfx.DepthAttachment, attach[1].Args[0])
}

func TestCreateClampsSize(t *testing.T) {
	rt, err := NewTargets(gfxtest.New(1, 1)).Create(0, -5)
	require.NoError(t, err)
	w, h := rt.Size()
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)
}

func TestIncomplete(t *testing.T) {
	rec := gfxtest.New(800, 600)
	rec.Incomplete = true
	targets := NewTargets(rec)

	rt, err := targets.Create(64, 64)
	assert.Nil(t, rt)
	assert.True(t, errors.Is(err, ErrIncomplete))
	assert.Equal(t, 0, targets.Len())
	assert.Equal(t, 0, rec.LiveTextures())
	assert.Equal(t, 0, rec.LiveFramebuffers())
}

func TestResize(t *testing.T) {
	rec := gfxtest.New(800, 600)
	rt, err := NewTargets(rec).Create(64, 64)
	require.NoError(t, err)

	uploads := rec.Count("TexImage2D")
	rt.Resize(64, 64)
	assert.Equal(t, uploads, rec.Count("TexImage2D"))

	rt.Resize(320, 200)
	assert.Equal(t, uploads+2, rec.Count("TexImage2D"))
	w, h := rt.Size()
	assert.Equal(t, 320, w)
	assert.Equal(t, 200, h)
	assert.Equal(t, 320, rt.DepthTexture().Width)
}

func TestClear(t *testing.T) {
	rec := gfxtest.New(800, 600)
	targets := NewTargets(rec)
	for i := 0; i < 3; i++ {
		_, err := targets.Create(32, 32)
		require.NoError(t, err)
	}
	targets.Clear()
	assert.Equal(t, 0, targets.Len())
	assert.Equal(t, 0, rec.LiveTextures())
	assert.Equal(t, 0, rec.LiveFramebuffers())
}
