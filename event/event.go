// Package event defines the canonical event vocabulary shared by every input
// producer of the bridge (touch, keys, buttons, motion sensors) and the engine
// that consumes them, plus the bounded queue that carries events between the
// OS callback goroutine and the render goroutine.
package event

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Kind tells the engine how to read the numeric payload of an Event.
type Kind uint32

// Canonical event kinds. Values are part of the wire format, don't reorder.
const (
	None Kind = iota
	KeyPress
	KeyRelease
	ButtonPress
	ButtonRelease
	MotionNotify
	TouchDown
	TouchMove
	TouchUp
	Accelerometer
	Resolution
	Compass
)

var kindNames = [...]string{
	None:          "none",
	KeyPress:      "key-press",
	KeyRelease:    "key-release",
	ButtonPress:   "button-press",
	ButtonRelease: "button-release",
	MotionNotify:  "motion-notify",
	TouchDown:     "touch-down",
	TouchMove:     "touch-move",
	TouchUp:       "touch-up",
	Accelerometer: "accelerometer",
	Resolution:    "resolution",
	Compass:       "compass",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint32(k))
}

// IsTouch reports whether PointerID is meaningful for k.
func (k Kind) IsTouch() bool {
	return k == TouchDown || k == TouchMove || k == TouchUp
}

// Event is a single normalized input or device notification.
//
// Payload by kind:
//
//	touch          A=x B=y (whole pixels)
//	key            A=key code
//	button         A=button B=x C=y
//	motion notify  A=x B=y
//	accelerometer  A=x B=y C=z
//	compass        A=x B=y C=z
//	resolution     A=width B=height
type Event struct {
	Kind      Kind
	PointerID int32
	A, B, C   float64
	D         float64
}

// Touch builds a touch event for pointer id at pixel position (x, y).
func Touch(k Kind, id int32, x, y int32) Event {
	return Event{Kind: k, PointerID: id, A: float64(x), B: float64(y)}
}

// Vector builds a three axis sensor event.
func Vector(k Kind, x, y, z float64) Event {
	return Event{Kind: k, A: x, B: y, C: z}
}

// X returns the integer x coordinate of a touch or pointer event.
func (e Event) X() int32 { return int32(e.A) }

// Y returns the integer y coordinate of a touch or pointer event.
func (e Event) Y() int32 { return int32(e.B) }

func (e Event) String() string {
	switch {
	case e.Kind.IsTouch():
		return fmt.Sprintf("%s(%d,%d,%d)", e.Kind, e.PointerID, e.X(), e.Y())
	case e.Kind == Accelerometer || e.Kind == Compass:
		return fmt.Sprintf("%s(%.4f,%.4f,%.4f)", e.Kind, e.A, e.B, e.C)
	default:
		return fmt.Sprintf("%s(%g,%g,%g,%g)", e.Kind, e.A, e.B, e.C, e.D)
	}
}

// Sink accepts events from a producer. Push must not block: it returns false
// when the event could not be accepted.
type Sink interface {
	Push(Event) bool
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event) bool

// Push calls f(e).
func (f SinkFunc) Push(e Event) bool { return f(e) }

// WireSize is the encoded length of an Event.
const WireSize = 4 + 4 + 4*8

// ErrShortBuffer is returned when decoding fewer than WireSize bytes.
var ErrShortBuffer = errors.New("event: short buffer")

// MarshalBinary encodes e as a fixed little-endian record.
func (e Event) MarshalBinary() ([]byte, error) {
	b := make([]byte, WireSize)
	binary.LittleEndian.PutUint32(b[0:], uint32(e.Kind))
	binary.LittleEndian.PutUint32(b[4:], uint32(e.PointerID))
	binary.LittleEndian.PutUint64(b[8:], math.Float64bits(e.A))
	binary.LittleEndian.PutUint64(b[16:], math.Float64bits(e.B))
	binary.LittleEndian.PutUint64(b[24:], math.Float64bits(e.C))
	binary.LittleEndian.PutUint64(b[32:], math.Float64bits(e.D))
	return b, nil
}

// UnmarshalBinary decodes a record written by MarshalBinary.
func (e *Event) UnmarshalBinary(b []byte) error {
	if len(b) < WireSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrShortBuffer, len(b), WireSize)
	}
	e.Kind = Kind(binary.LittleEndian.Uint32(b[0:]))
	e.PointerID = int32(binary.LittleEndian.Uint32(b[4:]))
	e.A = math.Float64frombits(binary.LittleEndian.Uint64(b[8:]))
	e.B = math.Float64frombits(binary.LittleEndian.Uint64(b[16:]))
	e.C = math.Float64frombits(binary.LittleEndian.Uint64(b[24:]))
	e.D = math.Float64frombits(binary.LittleEndian.Uint64(b[32:]))
	return nil
}
