// Package gesture turns multi-pointer gesture notifications into canonical
// touch events.
//
// A notification reports one acting pointer plus a snapshot of every pointer
// currently down, the way mobile platforms deliver motion events. Dispatcher
// emits one event per affected pointer so the engine keeps per-finger
// identity across a gesture.
package gesture

import (
	"fmt"
	"sync/atomic"

	"github.com/viru/berrybridge/event"
)

// Action is the masked action of a gesture notification.
type Action int

const (
	ActionDown Action = iota
	ActionPointerDown
	ActionUp
	ActionPointerUp
	ActionOutside
	ActionCancel
	ActionMove
)

func (a Action) String() string {
	switch a {
	case ActionDown:
		return "down"
	case ActionPointerDown:
		return "pointer-down"
	case ActionUp:
		return "up"
	case ActionPointerUp:
		return "pointer-up"
	case ActionOutside:
		return "outside"
	case ActionCancel:
		return "cancel"
	case ActionMove:
		return "move"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Notification is a platform gesture callback. Indices run from 0 to
// PointerCount()-1.
type Notification interface {
	Action() Action
	ActionIndex() int
	PointerCount() int
	PointerID(index int) int32
	X(index int) float32
	Y(index int) float32
}

// Dispatcher maps notifications to events. It holds no gesture state, but
// calls for one input device must come from a single goroutine since event
// order matters.
type Dispatcher struct {
	sink    event.Sink
	dropped atomic.Uint64
}

// NewDispatcher returns a dispatcher pushing into sink.
func NewDispatcher(sink event.Sink) *Dispatcher {
	return &Dispatcher{sink: sink}
}

// Dispatch emits the events for n and returns how many were accepted by the
// sink.
//
// Down and PointerDown emit one TouchDown for the acting pointer. Up,
// PointerUp, Outside and Cancel emit one TouchUp for the acting pointer.
// Move emits one TouchMove per down pointer in index order.
func (d *Dispatcher) Dispatch(n Notification) int {
	switch n.Action() {
	case ActionDown, ActionPointerDown:
		return d.emit(event.TouchDown, n, n.ActionIndex())
	case ActionUp, ActionPointerUp, ActionOutside, ActionCancel:
		return d.emit(event.TouchUp, n, n.ActionIndex())
	case ActionMove:
		sent := 0
		for i := 0; i < n.PointerCount(); i++ {
			sent += d.emit(event.TouchMove, n, i)
		}
		return sent
	}
	return 0
}

func (d *Dispatcher) emit(k event.Kind, n Notification, i int) int {
	assertIndex(n, i)
	// Conversion truncates toward zero, the engine expects whole pixels.
	e := event.Touch(k, n.PointerID(i), int32(n.X(i)), int32(n.Y(i)))
	if !d.sink.Push(e) {
		d.dropped.Add(1)
		return 0
	}
	return 1
}

// Dropped returns how many events the sink rejected.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}
