package gesture

// Pointer is one contact in a gesture snapshot.
type Pointer struct {
	ID   int32
	X, Y float32
}

// Gesture is a value Notification, used by platform adapters that don't
// hand out their own accessor object.
type Gesture struct {
	Kind     Action
	Index    int
	Pointers []Pointer
}

var _ Notification = Gesture{}

// Action returns the gesture kind.
func (g Gesture) Action() Action { return g.Kind }

// ActionIndex returns the index of the pointer that went down or up.
func (g Gesture) ActionIndex() int { return g.Index }

// PointerCount returns the number of pointers in the snapshot.
func (g Gesture) PointerCount() int { return len(g.Pointers) }

// PointerID returns the stable id of the pointer at index.
func (g Gesture) PointerID(index int) int32 { return g.Pointers[index].ID }

// X returns the horizontal position of the pointer at index, in pixels.
func (g Gesture) X(index int) float32 { return g.Pointers[index].X }

// Y returns the vertical position of the pointer at index, in pixels.
func (g Gesture) Y(index int) float32 { return g.Pointers[index].Y }
