package device

import (
	"sync/atomic"
	"time"
)

// renderThread is one render goroutine episode. It loops while cond holds
// and can be joined once it returned.
type renderThread struct {
	done  chan struct{}
	alive atomic.Bool
}

// Hooks run on the render goroutine around the frame loop, e.g. to lock the
// OS thread and make a GL context current.
type Hooks struct {
	Begin func()
	End   func()
}

func startRenderThread(cond func() bool, frame func(), hooks Hooks) *renderThread {
	rt := &renderThread{done: make(chan struct{})}
	rt.alive.Store(true)
	go func() {
		defer close(rt.done)
		defer rt.alive.Store(false)
		if hooks.Begin != nil {
			hooks.Begin()
		}
		if hooks.End != nil {
			defer hooks.End()
		}
		// No pacing here, the engine decides how long a frame takes.
		for cond() {
			frame()
		}
	}()
	return rt
}

// Alive reports whether the goroutine hasn't returned yet.
func (rt *renderThread) Alive() bool {
	return rt.alive.Load()
}

// join waits for the goroutine to return. A zero timeout waits forever.
func (rt *renderThread) join(timeout time.Duration) bool {
	if timeout <= 0 {
		<-rt.done
		return true
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-rt.done:
		return true
	case <-t.C:
		return false
	}
}
