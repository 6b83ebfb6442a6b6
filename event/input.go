package event

// Key is an engine key code, carried in A of key events.
type Key uint32

const (
	KeyUnknown Key = iota
	KeyBackspace
	KeyTab
	KeySpace
	KeyEscape
	KeyEnter
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyDelete
	KeyLeft
	KeyUp
	KeyRight
	KeyDown
	KeyLeftShift
	KeyRightShift
	KeyLeftCtrl
	KeyRightCtrl
	KeyLeftAlt
	KeyRightAlt
	Key0
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ
)

// Button is a pointer button, carried in A of button events.
type Button uint32

const (
	ButtonLeft Button = iota + 1
	ButtonMiddle
	ButtonRight
	// ButtonAux is the first of the extra buttons, e.g. GPIO push buttons.
	ButtonAux
)

// KeyEvent builds a KeyPress or KeyRelease for code.
func KeyEvent(k Kind, code Key) Event {
	return Event{Kind: k, A: float64(code)}
}

// ButtonEvent builds a ButtonPress or ButtonRelease at (x, y).
func ButtonEvent(k Kind, b Button, x, y int32) Event {
	return Event{Kind: k, A: float64(b), B: float64(x), C: float64(y)}
}

// Motion builds a MotionNotify for the pointer at (x, y).
func Motion(x, y int32) Event {
	return Event{Kind: MotionNotify, A: float64(x), B: float64(y)}
}

// Tee returns a sink pushing every event to each of sinks in order. Push
// reports whether all of them accepted it.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(e Event) bool {
		ok := true
		for _, s := range sinks {
			if !s.Push(e) {
				ok = false
			}
		}
		return ok
	})
}
