package device

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/viru/berrybridge/event"
)

var (
	// ErrDestroyed is returned by transitions requested after Destroy.
	ErrDestroyed = errors.New("device: lifecycle destroyed")
	// ErrRenderStuck is returned when the render goroutine didn't stop
	// within the join timeout, twice. The surface and the engine are left
	// alone from then on.
	ErrRenderStuck = errors.New("device: render goroutine did not stop")
)

// Config tunes a Lifecycle.
type Config struct {
	// JoinTimeout bounds each wait for the render goroutine. Zero waits
	// forever.
	JoinTimeout time.Duration
	// Hooks run on every render goroutine.
	Hooks Hooks
	// Events receives Resolution events when the surface size is known.
	// Optional.
	Events event.Sink
	// Logger defaults to the logrus standard logger.
	Logger log.FieldLogger
}

// Lifecycle is the device state machine. It is driven by OS surface and
// activity callbacks, all of which must come from the same UI goroutine.
type Lifecycle struct {
	mu    sync.Mutex
	state atomic.Int32

	eng Engine
	cfg Config
	log log.FieldLogger

	bound         bool
	appPaused     bool
	width, height int
	render        *renderThread
	leaked        bool

	// stale marks a bound surface the OS destroyed while a stuck frame
	// still held it. It is released, never rendered to, once the frame
	// returns.
	stale bool
	// pending holds a surface created while the stale one couldn't be
	// released yet.
	pending    Surface
	hasPending bool
}

// New returns a lifecycle in the Uninitialized state.
func New(eng Engine, cfg Config) *Lifecycle {
	l := &Lifecycle{eng: eng, cfg: cfg, log: cfg.Logger}
	if l.log == nil {
		l.log = log.StandardLogger()
	}
	return l
}

// State returns the published state. Safe from any goroutine.
func (l *Lifecycle) State() State {
	return State(l.state.Load())
}

// RenderAlive reports whether a render goroutine is still running.
func (l *Lifecycle) RenderAlive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.render != nil && l.render.Alive()
}

// Leaked reports whether a render goroutine failed to stop and its surface
// was abandoned.
func (l *Lifecycle) Leaked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.leaked
}

func (l *Lifecycle) setState(to State) {
	from := l.State()
	if !canTransition(from, to) {
		l.log.WithFields(log.Fields{"from": from, "to": to}).Error("invalid device transition")
		return
	}
	l.state.Store(int32(to))
	l.log.WithFields(log.Fields{"from": from, "to": to}).Debug("device state")
}

// SurfaceCreated binds a new OS surface. The first call initializes the
// engine device; a failed init rolls back to Uninitialized and returns the
// error. Calls while a live surface is already bound are ignored. A surface
// that arrives while a stuck frame still holds the destroyed one is kept
// and bound once that frame returns.
func (l *Lifecycle) SurfaceCreated(s Surface) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.State() {
	case ShuttingDown, Destroyed:
		return ErrDestroyed
	case Uninitialized:
		return l.initLocked(s)
	}
	if l.bound && !l.stale {
		l.log.Debug("duplicate surface created, ignoring")
		return nil
	}
	l.pending, l.hasPending = s, true
	if err := l.recoverLocked(); err != nil {
		return err
	}
	l.bindPending()
	return l.resumeLocked()
}

func (l *Lifecycle) initLocked(s Surface) error {
	l.setState(Initializing)
	l.bind(s)
	if err := l.eng.InitDevice(); err != nil {
		l.unbind()
		l.setState(Uninitialized)
		return fmt.Errorf("can't init device: %w", err)
	}
	if l.appPaused {
		l.eng.PauseDevice()
		l.setState(Paused)
		return nil
	}
	l.setState(Running)
	l.startRender()
	return nil
}

// SurfaceChanged records the surface size and forwards it to the engine.
func (l *Lifecycle) SurfaceChanged(width, height int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.width, l.height = width, height
	if l.bound && !l.stale {
		l.resize()
	}
}

// SurfaceDestroyed stops the render goroutine and releases the surface. It
// returns only after the render goroutine has returned.
func (l *Lifecycle) SurfaceDestroyed() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// The latest surface is the one going away.
	l.pending, l.hasPending = nil, false
	switch l.State() {
	case Running:
		if err := l.stopLocked(); err != nil {
			l.stale = l.bound
			return err
		}
	case Paused:
		if err := l.recoverLocked(); err != nil {
			l.stale = l.bound
			return err
		}
	default:
		return nil
	}
	if l.bound {
		l.unbind()
	}
	return nil
}

// Pause handles the activity being paused. The surface stays bound.
func (l *Lifecycle) Pause() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appPaused = true
	if l.State() == Running {
		return l.stopLocked()
	}
	return nil
}

// Resume handles the activity being resumed. Rendering restarts once a
// surface is bound as well.
func (l *Lifecycle) Resume() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appPaused = false
	if l.State() != Paused {
		return nil
	}
	if err := l.recoverLocked(); err != nil {
		return err
	}
	return l.resumeLocked()
}

// Destroy shuts the engine device down. Only the first call has an effect.
func (l *Lifecycle) Destroy() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.State() {
	case ShuttingDown, Destroyed:
		return nil
	case Uninitialized:
		l.setState(Destroyed)
		return nil
	}

	l.setState(ShuttingDown)
	l.pending, l.hasPending = nil, false
	if !l.joinRender() {
		// Fail safe: a frame may still be using the surface.
		l.leaked = true
		l.setState(Destroyed)
		return ErrRenderStuck
	}
	if l.bound {
		l.unbind()
	}
	l.stale = false
	l.eng.ShutdownDevice()
	l.setState(Destroyed)
	return nil
}

// resumeLocked moves Paused to Running when both the surface and the
// activity allow it.
func (l *Lifecycle) resumeLocked() error {
	if !l.bound || l.stale || l.appPaused {
		return nil
	}
	l.eng.UnpauseDevice()
	l.setState(Running)
	l.startRender()
	return nil
}

// stopLocked moves Running to Paused. The state is published before the
// join so the render loop sees it on its next check.
func (l *Lifecycle) stopLocked() error {
	l.setState(Paused)
	if !l.joinRender() {
		l.leaked = true
		return ErrRenderStuck
	}
	l.eng.PauseDevice()
	return nil
}

// recoverLocked retries the join of a render goroutine that got stuck
// earlier. Once it returned, a stale surface is released and a pending one
// takes its place.
func (l *Lifecycle) recoverLocked() error {
	if l.leaked {
		if !l.joinRender() {
			return ErrRenderStuck
		}
		l.leaked = false
		l.eng.PauseDevice()
		l.log.Warn("stuck render goroutine finally stopped")
	}
	if l.stale {
		l.unbind()
		l.stale = false
	}
	l.bindPending()
	return nil
}

func (l *Lifecycle) bindPending() {
	if !l.hasPending {
		return
	}
	if l.bound {
		l.unbind()
	}
	l.bind(l.pending)
	l.pending, l.hasPending = nil, false
}

func (l *Lifecycle) startRender() {
	if l.render != nil {
		l.log.Error("render goroutine already started")
		return
	}
	cond := func() bool {
		return l.State() == Running && l.eng.IsDeviceRunning()
	}
	l.render = startRenderThread(cond, l.eng.Frame, l.cfg.Hooks)
}

// joinRender waits for the render goroutine, retrying once on timeout.
func (l *Lifecycle) joinRender() bool {
	if l.render == nil {
		return true
	}
	for attempt := 1; attempt <= 2; attempt++ {
		if l.render.join(l.cfg.JoinTimeout) {
			l.render = nil
			return true
		}
		l.log.WithFields(log.Fields{
			"attempt": attempt,
			"timeout": l.cfg.JoinTimeout,
		}).Warn("render goroutine didn't stop in time")
	}
	l.log.Error("giving up on render goroutine, leaking surface")
	return false
}

func (l *Lifecycle) bind(s Surface) {
	l.bound = true
	l.eng.SetWindow(s)
	if l.width > 0 && l.height > 0 {
		l.resize()
	}
}

func (l *Lifecycle) unbind() {
	l.eng.DestroyWindow()
	l.bound = false
}

func (l *Lifecycle) resize() {
	l.eng.Resize(l.width, l.height)
	if l.cfg.Events != nil {
		l.cfg.Events.Push(event.Event{Kind: event.Resolution, A: float64(l.width), B: float64(l.height)})
	}
}
