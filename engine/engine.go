// Package engine is the in-process engine device driven by device.Lifecycle.
// Each frame drains the event queue into the handlers, then draws with the
// renderer bound to the current surface.
package engine

import (
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/viru/berrybridge/device"
	"github.com/viru/berrybridge/event"
)

// Handler consumes events drained at the start of a frame.
type Handler interface {
	HandleEvent(e event.Event)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(e event.Event)

func (f HandlerFunc) HandleEvent(e event.Event) { f(e) }

// Handlers fans every event out to each handler in order.
type Handlers []Handler

func (hs Handlers) HandleEvent(e event.Event) {
	for _, h := range hs {
		h.HandleEvent(e)
	}
}

// Renderer draws frames on a surface. Init and Draw run on the render
// goroutine; Release runs on the UI goroutine once no frame is in flight.
type Renderer interface {
	Init(s device.Surface) error
	Draw(width, height int)
	Release()
}

// Config tunes a Device.
type Config struct {
	// QueueSize is the capacity of the event queue. Defaults to
	// event.DefaultQueueSize.
	QueueSize int
	// Handler receives every queued event. Optional.
	Handler Handler
	// Renderer draws on the bound surface. Optional.
	Renderer Renderer
	// Publish is called after each frame, e.g. to swap buffers.
	Publish func()
	// FrameInterval paces frames when non-zero.
	FrameInterval time.Duration
	Logger        log.FieldLogger
}

// Device implements device.Engine.
type Device struct {
	cfg   Config
	queue *event.Queue
	log   log.FieldLogger

	init   atomic.Bool
	paused atomic.Bool
	width  atomic.Int32
	height atomic.Int32

	frames  atomic.Uint64
	handled atomic.Uint64

	// Owned by whichever goroutine may touch the surface: the UI goroutine
	// between render episodes, the render goroutine during one.
	surface   device.Surface
	ready     bool
	initFails int
	last      time.Time
}

var _ device.Engine = (*Device)(nil)

// New returns a device with an empty event queue.
func New(cfg Config) *Device {
	d := &Device{cfg: cfg, queue: event.NewQueue(cfg.QueueSize), log: cfg.Logger}
	if d.log == nil {
		d.log = log.StandardLogger()
	}
	return d
}

// Events returns the queue producers push into. It has a single consumer,
// the render goroutine, and must have a single producer.
func (d *Device) Events() *event.Queue {
	return d.queue
}

// InitDevice marks the device initialized and running.
func (d *Device) InitDevice() error {
	if d.init.Load() {
		d.log.Warn("device already initialized")
		return nil
	}
	d.paused.Store(false)
	d.init.Store(true)
	d.log.WithFields(log.Fields{
		"width":  d.width.Load(),
		"height": d.height.Load(),
	}).Info("device initialized")
	return nil
}

// ShutdownDevice releases the renderer and clears the device flags.
func (d *Device) ShutdownDevice() {
	d.release()
	d.init.Store(false)
	d.paused.Store(false)
	d.log.WithFields(log.Fields{
		"frames":  d.frames.Load(),
		"handled": d.handled.Load(),
		"dropped": d.queue.Dropped(),
	}).Info("device shut down")
}

func (d *Device) PauseDevice()   { d.paused.Store(true) }
func (d *Device) UnpauseDevice() { d.paused.Store(false) }

func (d *Device) IsDeviceInit() bool    { return d.init.Load() }
func (d *Device) IsDevicePaused() bool  { return d.paused.Load() }
func (d *Device) IsDeviceRunning() bool { return d.init.Load() && !d.paused.Load() }

// SetWindow binds s. The renderer is initialized on the next frame.
func (d *Device) SetWindow(s device.Surface) {
	d.surface = s
	d.ready = false
	d.initFails = 0
}

// DestroyWindow releases the renderer and forgets the surface.
func (d *Device) DestroyWindow() {
	d.release()
	d.surface = nil
}

// Resize records the surface size used by the next frame.
func (d *Device) Resize(width, height int) {
	d.width.Store(int32(width))
	d.height.Store(int32(height))
}

// Frame drains the event queue, then draws and publishes one frame.
func (d *Device) Frame() {
	n := d.queue.Drain(d.handle)
	d.handled.Add(uint64(n))

	if d.draw() && d.cfg.Publish != nil {
		d.cfg.Publish()
	}
	d.frames.Add(1)
	d.pace()
}

func (d *Device) handle(e event.Event) {
	if d.cfg.Handler != nil {
		d.cfg.Handler.HandleEvent(e)
	}
}

func (d *Device) draw() bool {
	r := d.cfg.Renderer
	if r == nil || d.surface == nil {
		return false
	}
	if !d.ready {
		if err := r.Init(d.surface); err != nil {
			// Logged once per surface, retried every frame.
			if d.initFails == 0 {
				d.log.WithError(err).Error("can't init renderer")
			}
			d.initFails++
			return false
		}
		d.ready = true
	}
	r.Draw(int(d.width.Load()), int(d.height.Load()))
	return true
}

func (d *Device) pace() {
	if d.cfg.FrameInterval <= 0 {
		return
	}
	now := time.Now()
	if wait := d.cfg.FrameInterval - now.Sub(d.last); wait > 0 {
		time.Sleep(wait)
		now = now.Add(wait)
	}
	d.last = now
}

func (d *Device) release() {
	if d.ready {
		d.cfg.Renderer.Release()
		d.ready = false
	}
}

// Frames returns the number of frames run so far.
func (d *Device) Frames() uint64 {
	return d.frames.Load()
}

// Handled returns the number of events delivered to the handler.
func (d *Device) Handled() uint64 {
	return d.handled.Load()
}
