// Package device keeps the engine device consistent with the availability of
// the OS surface and owns the render goroutine.
//
// Lifecycle
//
// The device moves through
//
//	uninitialized -> initializing -> running <-> paused -> shutting-down -> destroyed
//
// Every transition runs on the OS UI goroutine under one lock. The render
// goroutine never takes that lock: it reads the published state and keeps
// calling Engine.Frame while the state is running.
//
// Surface safety
//
// A transition that leaves running publishes the new state first and then
// joins the render goroutine before it touches the engine or the surface.
// SurfaceDestroyed therefore returns to the OS only once no frame can be in
// flight on the surface being destroyed.
package device

import "fmt"

// State is the lifecycle state of the engine device.
type State int32

const (
	Uninitialized State = iota
	Initializing
	Running
	Paused
	ShuttingDown
	Destroyed
)

var stateNames = [...]string{
	Uninitialized: "uninitialized",
	Initializing:  "initializing",
	Running:       "running",
	Paused:        "paused",
	ShuttingDown:  "shutting-down",
	Destroyed:     "destroyed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// transitions lists the allowed moves. setState rejects everything else.
var transitions = map[State][]State{
	Uninitialized: {Initializing, Destroyed},
	Initializing:  {Running, Paused, Uninitialized},
	Running:       {Paused, ShuttingDown},
	Paused:        {Running, ShuttingDown},
	ShuttingDown:  {Destroyed},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
