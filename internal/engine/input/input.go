// Package input handles SDL2 input events.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// EventType identifies a processed input event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventMouseMove
	EventMouseDown
	EventMouseUp
	EventMouseWheel
)

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Key    sdl.Scancode
	Width  int
	Height int
	MouseX int
	MouseY int
	// Relative motion for EventMouseMove.
	DeltaX int
	DeltaY int
	// Scroll amount for EventMouseWheel, positive away from the user.
	Wheel  float32
	Button uint8
}

// Input handles all input processing.
type Input struct {
	events  []Event
	buttons map[uint8]bool
}

// New creates a new input handler.
func New() *Input {
	return &Input{
		events:  make([]Event, 0, 16),
		buttons: make(map[uint8]bool),
	}
}

// Update polls SDL events and converts them to viewer events.
// Returns true if the viewer should quit.
func (i *Input) Update() bool {
	i.events = i.events[:0]

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if i.handle(event) {
			return true
		}
	}
	return false
}

// handle converts one SDL event and reports whether it requests quit.
func (i *Input) handle(event sdl.Event) bool {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		i.events = append(i.events, Event{Type: EventQuit})
		return true

	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_RESIZED || e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
			i.events = append(i.events, Event{
				Type:   EventWindowResize,
				Width:  int(e.Data1),
				Height: int(e.Data2),
			})
		}

	case *sdl.KeyboardEvent:
		if e.Repeat != 0 {
			return false
		}
		if e.Type == sdl.KEYDOWN {
			i.events = append(i.events, Event{Type: EventKeyDown, Key: e.Keysym.Scancode})
		} else if e.Type == sdl.KEYUP {
			i.events = append(i.events, Event{Type: EventKeyUp, Key: e.Keysym.Scancode})
		}

	case *sdl.MouseMotionEvent:
		i.events = append(i.events, Event{
			Type:   EventMouseMove,
			MouseX: int(e.X),
			MouseY: int(e.Y),
			DeltaX: int(e.XRel),
			DeltaY: int(e.YRel),
		})

	case *sdl.MouseButtonEvent:
		ev := Event{MouseX: int(e.X), MouseY: int(e.Y), Button: e.Button}
		if e.Type == sdl.MOUSEBUTTONDOWN {
			ev.Type = EventMouseDown
			i.buttons[e.Button] = true
		} else if e.Type == sdl.MOUSEBUTTONUP {
			ev.Type = EventMouseUp
			delete(i.buttons, e.Button)
		}
		if ev.Type != EventNone {
			i.events = append(i.events, ev)
		}

	case *sdl.MouseWheelEvent:
		amount := float32(e.Y)
		if e.Direction == sdl.MOUSEWHEEL_FLIPPED {
			amount = -amount
		}
		i.events = append(i.events, Event{Type: EventMouseWheel, Wheel: amount})
	}
	return false
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// IsKeyPressed checks if a specific key was pressed this frame.
func (i *Input) IsKeyPressed(scancode sdl.Scancode) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == scancode {
			return true
		}
	}
	return false
}

// IsButtonDown reports whether a mouse button is currently held.
func (i *Input) IsButtonDown(button uint8) bool {
	return i.buttons[button]
}

// Drag returns the pointer motion accumulated this frame while button was
// held.
func (i *Input) Drag(button uint8) (dx, dy int) {
	if !i.buttons[button] {
		return 0, 0
	}
	for _, e := range i.events {
		if e.Type == EventMouseMove {
			dx += e.DeltaX
			dy += e.DeltaY
		}
	}
	return dx, dy
}

// Wheel returns the scroll amount accumulated this frame.
func (i *Input) Wheel() float32 {
	var total float32
	for _, e := range i.events {
		if e.Type == EventMouseWheel {
			total += e.Wheel
		}
	}
	return total
}
