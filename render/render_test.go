package render

import (
	"testing"
	"time"

	"github.com/viru/berrybridge/event"
)

func TestMarkersFollowTouches(t *testing.T) {
	o := NewOverlay(time.Now())
	steps := []struct {
		e    event.Event
		want int
	}{
		{event.Touch(event.TouchDown, 0, 10, 20), 1},
		{event.Touch(event.TouchDown, 1, 30, 40), 2},
		{event.Touch(event.TouchMove, 1, 35, 45), 2},
		{event.Touch(event.TouchDown, 1, 36, 46), 2},
		{event.Touch(event.TouchUp, 0, 10, 20), 1},
		{event.Touch(event.TouchUp, 7, 0, 0), 1},
		{event.Touch(event.TouchUp, 1, 36, 46), 0},
	}
	for i, s := range steps {
		o.HandleEvent(s.e)
		if got := o.Markers(); got != s.want {
			t.Errorf("step %d %v: Markers() = %d, want %d", i, s.e, got, s.want)
		}
	}
}

func TestMarkerMoveUpdatesPosition(t *testing.T) {
	o := NewOverlay(time.Now())
	o.HandleEvent(event.Touch(event.TouchDown, 4, 1, 2))
	o.HandleEvent(event.Touch(event.TouchMove, 4, 50, 60))
	i := o.find(4)
	if i < 0 {
		t.Fatal("pointer 4 not tracked")
	}
	if m := o.markers[i]; m.x != 50 || m.y != 60 {
		t.Errorf("marker at (%v,%v), want (50,60)", m.x, m.y)
	}
}

func TestMarkersCapped(t *testing.T) {
	o := NewOverlay(time.Now())
	for id := int32(0); id < MaxMarkers+3; id++ {
		o.HandleEvent(event.Touch(event.TouchDown, id, id, id))
	}
	if got := o.Markers(); got != MaxMarkers {
		t.Errorf("Markers() = %d, want %d", got, MaxMarkers)
	}
}

func TestGravityKept(t *testing.T) {
	o := NewOverlay(time.Now())
	o.HandleEvent(event.Vector(event.Accelerometer, 0.5, -9.7, 0.1))
	o.HandleEvent(event.Vector(event.Compass, 1, 1, 1))
	if o.gravity.Kind != event.Accelerometer || o.gravity.B != -9.7 {
		t.Errorf("gravity = %v", o.gravity)
	}
}

func TestInitRejectsForeignSurface(t *testing.T) {
	o := NewOverlay(time.Now())
	if err := o.Init("not a gl context"); err == nil {
		t.Fatal("Init accepted a string surface")
	}
	// Draw and Release before a successful Init are no-ops.
	o.Draw(100, 100)
	o.Release()
}

func TestPixelsPerPt(t *testing.T) {
	o := NewOverlay(time.Now())
	if got := o.pixelsPerPt(); got != 1 {
		t.Errorf("default pixelsPerPt = %v, want 1", got)
	}
	o.SetPixelsPerPt(2.5)
	if got := o.pixelsPerPt(); got != 2.5 {
		t.Errorf("pixelsPerPt = %v, want 2.5", got)
	}
	o.SetPixelsPerPt(0)
	if got := o.pixelsPerPt(); got != 1 {
		t.Errorf("pixelsPerPt after 0 = %v, want 1", got)
	}
}
