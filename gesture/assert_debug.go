//go:build berrydebug

package gesture

import "fmt"

func assertIndex(n Notification, i int) {
	if i < 0 || i >= n.PointerCount() {
		panic(fmt.Sprintf("gesture: pointer index %d out of range [0,%d) for %s", i, n.PointerCount(), n.Action()))
	}
}
