package gesture

import (
	"reflect"
	"testing"

	"github.com/viru/berrybridge/event"
)

type recorder struct {
	events []event.Event
	limit  int
}

func (r *recorder) Push(e event.Event) bool {
	if r.limit > 0 && len(r.events) >= r.limit {
		return false
	}
	r.events = append(r.events, e)
	return true
}

func TestDispatchSequence(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec)

	d.Dispatch(Gesture{Kind: ActionDown, Pointers: []Pointer{{ID: 3, X: 10, Y: 20}}})
	d.Dispatch(Gesture{Kind: ActionMove, Pointers: []Pointer{{ID: 3, X: 12, Y: 22}, {ID: 5, X: 50, Y: 60}}})
	d.Dispatch(Gesture{Kind: ActionUp, Pointers: []Pointer{{ID: 3, X: 12, Y: 22}}})

	want := []event.Event{
		event.Touch(event.TouchDown, 3, 10, 20),
		event.Touch(event.TouchMove, 3, 12, 22),
		event.Touch(event.TouchMove, 5, 50, 60),
		event.Touch(event.TouchUp, 3, 12, 22),
	}
	if !reflect.DeepEqual(rec.events, want) {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}

func TestDispatchMoveEmitsEveryPointer(t *testing.T) {
	for n := 1; n <= 5; n++ {
		rec := &recorder{}
		g := Gesture{Kind: ActionMove, Index: n - 1}
		for i := 0; i < n; i++ {
			g.Pointers = append(g.Pointers, Pointer{ID: int32(10 + i), X: float32(i * 7), Y: float32(i * 11)})
		}
		if got := NewDispatcher(rec).Dispatch(g); got != n {
			t.Fatalf("%d pointers: Dispatch() = %d", n, got)
		}
		if len(rec.events) != n {
			t.Fatalf("%d pointers: got %d events", n, len(rec.events))
		}
		for i, e := range rec.events {
			want := event.Touch(event.TouchMove, int32(10+i), int32(i*7), int32(i*11))
			if e != want {
				t.Errorf("%d pointers: event %d = %v, want %v", n, i, e, want)
			}
		}
	}
}

func TestDispatchDownActingPointerOnly(t *testing.T) {
	for _, act := range []Action{ActionDown, ActionPointerDown} {
		rec := &recorder{}
		g := Gesture{Kind: act, Index: 1, Pointers: []Pointer{{ID: 0, X: 1, Y: 1}, {ID: 1, X: 30, Y: 40}, {ID: 2, X: 5, Y: 5}}}
		NewDispatcher(rec).Dispatch(g)
		want := []event.Event{event.Touch(event.TouchDown, 1, 30, 40)}
		if !reflect.DeepEqual(rec.events, want) {
			t.Errorf("%s: events = %v, want %v", act, rec.events, want)
		}
	}
}

func TestDispatchReleaseActionsAreEquivalent(t *testing.T) {
	pointers := []Pointer{{ID: 4, X: 8, Y: 9}, {ID: 7, X: 70, Y: 80}}
	want := []event.Event{event.Touch(event.TouchUp, 7, 70, 80)}
	for _, act := range []Action{ActionUp, ActionPointerUp, ActionOutside, ActionCancel} {
		rec := &recorder{}
		NewDispatcher(rec).Dispatch(Gesture{Kind: act, Index: 1, Pointers: pointers})
		if !reflect.DeepEqual(rec.events, want) {
			t.Errorf("%s: events = %v, want %v", act, rec.events, want)
		}
	}
}

func TestDispatchTruncatesTowardZero(t *testing.T) {
	rec := &recorder{}
	NewDispatcher(rec).Dispatch(Gesture{Kind: ActionMove, Pointers: []Pointer{
		{ID: 0, X: 10.9, Y: 20.5},
		{ID: 1, X: -1.7, Y: -0.2},
	}})
	want := []event.Event{
		event.Touch(event.TouchMove, 0, 10, 20),
		event.Touch(event.TouchMove, 1, -1, 0),
	}
	if !reflect.DeepEqual(rec.events, want) {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}

func TestDispatchCountsDropped(t *testing.T) {
	rec := &recorder{limit: 2}
	d := NewDispatcher(rec)
	g := Gesture{Kind: ActionMove, Pointers: []Pointer{{ID: 0}, {ID: 1}, {ID: 2}}}
	if got := d.Dispatch(g); got != 2 {
		t.Errorf("Dispatch() = %d, want 2", got)
	}
	if got := d.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d, want 1", got)
	}
}

func TestGestureAccessors(t *testing.T) {
	var n Notification = Gesture{Kind: ActionPointerUp, Index: 1, Pointers: []Pointer{{ID: 4, X: 1.5, Y: 2}, {ID: 9, X: 3, Y: 4.25}}}
	if n.Action() != ActionPointerUp || n.ActionIndex() != 1 || n.PointerCount() != 2 {
		t.Errorf("action=%v index=%d count=%d", n.Action(), n.ActionIndex(), n.PointerCount())
	}
	if n.PointerID(1) != 9 || n.X(0) != 1.5 || n.Y(1) != 4.25 {
		t.Errorf("pointer 1 = %d (%v, %v)", n.PointerID(1), n.X(1), n.Y(1))
	}
}
