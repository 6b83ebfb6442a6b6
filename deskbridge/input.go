//go:build !android

package main

import (
	"github.com/viru/berrybridge/event"
	"github.com/viru/berrybridge/gesture"
)

// mousePointer is the pointer id the left mouse button drives.
const mousePointer = 0

// input turns desktop pointer and key input into bridge events. The left
// button acts as a single finger going through the touch dispatcher; every
// button and motion is also reported as is.
type input struct {
	d    *gesture.Dispatcher
	sink event.Sink
	x, y float32
	down bool
}

func newInput(d *gesture.Dispatcher, sink event.Sink) *input {
	return &input{d: d, sink: sink}
}

func (in *input) gesture(a gesture.Action) {
	in.d.Dispatch(gesture.Gesture{
		Kind:     a,
		Pointers: []gesture.Pointer{{ID: mousePointer, X: in.x, Y: in.y}},
	})
}

func (in *input) move(x, y float32) {
	in.x, in.y = x, y
	in.sink.Push(event.Motion(int32(x), int32(y)))
	if in.down {
		in.gesture(gesture.ActionMove)
	}
}

func (in *input) press(b event.Button) {
	in.sink.Push(event.ButtonEvent(event.ButtonPress, b, int32(in.x), int32(in.y)))
	if b == event.ButtonLeft && !in.down {
		in.down = true
		in.gesture(gesture.ActionDown)
	}
}

func (in *input) release(b event.Button) {
	in.sink.Push(event.ButtonEvent(event.ButtonRelease, b, int32(in.x), int32(in.y)))
	if b == event.ButtonLeft && in.down {
		in.down = false
		in.gesture(gesture.ActionUp)
	}
}

// cancel lifts the mouse finger, e.g. when the window is iconified.
func (in *input) cancel() {
	if in.down {
		in.down = false
		in.gesture(gesture.ActionCancel)
	}
}

func (in *input) key(k event.Key, pressed bool) {
	if k == event.KeyUnknown {
		return
	}
	if pressed {
		in.sink.Push(event.KeyEvent(event.KeyPress, k))
		return
	}
	in.sink.Push(event.KeyEvent(event.KeyRelease, k))
}
