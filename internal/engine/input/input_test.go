package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veandco/go-sdl2/sdl"
)

func feed(i *Input, events ...sdl.Event) bool {
	i.events = i.events[:0]
	for _, e := range events {
		if i.handle(e) {
			return true
		}
	}
	return false
}

func TestQuit(t *testing.T) {
	i := New()
	assert.True(t, feed(i, &sdl.QuitEvent{Type: sdl.QUIT}))
	assert.Equal(t, EventQuit, i.Events()[0].Type)
}

func TestKeys(t *testing.T) {
	i := New()
	feed(i,
		&sdl.KeyboardEvent{Type: sdl.KEYDOWN, Keysym: sdl.Keysym{Scancode: sdl.SCANCODE_R}},
		&sdl.KeyboardEvent{Type: sdl.KEYDOWN, Repeat: 1, Keysym: sdl.Keysym{Scancode: sdl.SCANCODE_T}},
	)

	assert.True(t, i.IsKeyPressed(sdl.SCANCODE_R))
	assert.False(t, i.IsKeyPressed(sdl.SCANCODE_T))
	assert.Len(t, i.Events(), 1)
}

func TestDragOnlyWhileHeld(t *testing.T) {
	i := New()

	feed(i, &sdl.MouseMotionEvent{Type: sdl.MOUSEMOTION, XRel: 5, YRel: 5})
	dx, dy := i.Drag(sdl.BUTTON_LEFT)
	assert.Zero(t, dx)
	assert.Zero(t, dy)

	feed(i,
		&sdl.MouseButtonEvent{Type: sdl.MOUSEBUTTONDOWN, Button: sdl.BUTTON_LEFT},
		&sdl.MouseMotionEvent{Type: sdl.MOUSEMOTION, XRel: 3, YRel: -1},
		&sdl.MouseMotionEvent{Type: sdl.MOUSEMOTION, XRel: 2, YRel: -4},
	)
	assert.True(t, i.IsButtonDown(sdl.BUTTON_LEFT))
	dx, dy = i.Drag(sdl.BUTTON_LEFT)
	assert.Equal(t, 5, dx)
	assert.Equal(t, -5, dy)

	// Button state persists across frames until released.
	feed(i, &sdl.MouseMotionEvent{Type: sdl.MOUSEMOTION, XRel: 1})
	dx, _ = i.Drag(sdl.BUTTON_LEFT)
	assert.Equal(t, 1, dx)

	feed(i, &sdl.MouseButtonEvent{Type: sdl.MOUSEBUTTONUP, Button: sdl.BUTTON_LEFT})
	assert.False(t, i.IsButtonDown(sdl.BUTTON_LEFT))
}

func TestWheel(t *testing.T) {
	i := New()
	feed(i,
		&sdl.MouseWheelEvent{Type: sdl.MOUSEWHEEL, Y: 2},
		&sdl.MouseWheelEvent{Type: sdl.MOUSEWHEEL, Y: 1, Direction: sdl.MOUSEWHEEL_FLIPPED},
	)
	assert.InDelta(t, 1, i.Wheel(), 1e-6)
}

func TestResize(t *testing.T) {
	i := New()
	feed(i, &sdl.WindowEvent{Type: sdl.WINDOWEVENT, Event: sdl.WINDOWEVENT_RESIZED, Data1: 800, Data2: 600})

	evs := i.Events()
	if assert.Len(t, evs, 1) {
		assert.Equal(t, EventWindowResize, evs[0].Type)
		assert.Equal(t, 800, evs[0].Width)
		assert.Equal(t, 600, evs[0].Height)
	}
}
