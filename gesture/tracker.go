package gesture

import (
	log "github.com/sirupsen/logrus"
	"golang.org/x/mobile/event/touch"
)

// Tracker adapts gomobile touch events, which arrive one pointer at a time,
// into gesture notifications carrying a snapshot of every pointer down.
//
// Each touch sequence gets the lowest free pointer id when it begins and
// keeps it until it ends, like the ids handed out by Android. Pointer order
// in snapshots is the order in which the pointers went down.
type Tracker struct {
	d      *Dispatcher
	active []tracked
	log    log.FieldLogger
}

type tracked struct {
	seq touch.Sequence
	Pointer
}

// NewTracker returns a tracker feeding d.
func NewTracker(d *Dispatcher) *Tracker {
	return &Tracker{d: d, log: log.StandardLogger()}
}

// SetLogger replaces the logger used for unexpected sequences.
func (t *Tracker) SetLogger(l log.FieldLogger) {
	t.log = l
}

// Handle dispatches e and returns the number of events emitted.
func (t *Tracker) Handle(e touch.Event) int {
	switch e.Type {
	case touch.TypeBegin:
		if t.find(e.Sequence) >= 0 {
			t.log.WithField("sequence", e.Sequence).Debug("duplicate touch begin")
			return 0
		}
		t.active = append(t.active, tracked{
			seq:     e.Sequence,
			Pointer: Pointer{ID: t.freeID(), X: e.X, Y: e.Y},
		})
		act := ActionPointerDown
		if len(t.active) == 1 {
			act = ActionDown
		}
		return t.d.Dispatch(t.snapshot(act, len(t.active)-1))

	case touch.TypeMove:
		i := t.find(e.Sequence)
		if i < 0 {
			t.log.WithField("sequence", e.Sequence).Debug("move for unknown touch")
			return 0
		}
		t.active[i].X, t.active[i].Y = e.X, e.Y
		return t.d.Dispatch(t.snapshot(ActionMove, i))

	case touch.TypeEnd:
		i := t.find(e.Sequence)
		if i < 0 {
			t.log.WithField("sequence", e.Sequence).Debug("end for unknown touch")
			return 0
		}
		t.active[i].X, t.active[i].Y = e.X, e.Y
		act := ActionPointerUp
		if len(t.active) == 1 {
			act = ActionUp
		}
		n := t.d.Dispatch(t.snapshot(act, i))
		t.active = append(t.active[:i], t.active[i+1:]...)
		return n
	}
	return 0
}

// CancelAll releases every active pointer with ActionCancel. Used when touch
// delivery stops mid-gesture, e.g. the app loses focus.
func (t *Tracker) CancelAll() int {
	n := 0
	for len(t.active) > 0 {
		i := len(t.active) - 1
		n += t.d.Dispatch(t.snapshot(ActionCancel, i))
		t.active = t.active[:i]
	}
	return n
}

// Active returns the number of pointers currently down.
func (t *Tracker) Active() int {
	return len(t.active)
}

func (t *Tracker) find(seq touch.Sequence) int {
	for i, p := range t.active {
		if p.seq == seq {
			return i
		}
	}
	return -1
}

func (t *Tracker) freeID() int32 {
	for id := int32(0); ; id++ {
		used := false
		for _, p := range t.active {
			if p.ID == id {
				used = true
				break
			}
		}
		if !used {
			return id
		}
	}
}

func (t *Tracker) snapshot(act Action, index int) Gesture {
	g := Gesture{Kind: act, Index: index, Pointers: make([]Pointer, len(t.active))}
	for i, p := range t.active {
		g.Pointers[i] = p.Pointer
	}
	return g
}
