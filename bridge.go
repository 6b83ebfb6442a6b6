package main

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/size"
	"golang.org/x/mobile/event/touch"
	"golang.org/x/mobile/exp/sensor"

	"github.com/viru/berrybridge/device"
	"github.com/viru/berrybridge/engine"
	"github.com/viru/berrybridge/event"
	"github.com/viru/berrybridge/gesture"
	"github.com/viru/berrybridge/motion"
	"github.com/viru/berrybridge/remote"
	"github.com/viru/berrybridge/render"
)

// Bridge holds the app context: every OS callback from the app event loop
// goes through one of its methods, on the same goroutine.
type Bridge struct {
	life    *device.Lifecycle
	dev     *engine.Device
	overlay *render.Overlay
	tracker *gesture.Tracker
	motion  *motion.Listener
	mirror  *remote.Mirror
	cancel  context.CancelFunc
	focused bool
}

// Config tunes a Bridge.
type Config struct {
	Motion      motion.Config
	Sensors     motion.Sensors
	JoinTimeout time.Duration
	// Publish is called by the render goroutine after each frame.
	Publish func()
}

// NewBridge creates the engine device and its lifecycle. The activity
// starts paused, rendering begins once the app is both visible and focused.
func NewBridge(cfg Config) *Bridge {
	b := &Bridge{overlay: render.NewOverlay(time.Now())}
	b.dev = engine.New(engine.Config{
		Handler:  b.overlay,
		Renderer: b.overlay,
		Publish:  cfg.Publish,
	})
	b.mirror = remote.NewMirror(b.dev.Events())
	b.life = device.New(b.dev, device.Config{
		JoinTimeout: cfg.JoinTimeout,
		Events:      b.mirror,
	})
	b.tracker = gesture.NewTracker(gesture.NewDispatcher(b.mirror))
	b.motion = motion.NewListener(cfg.Motion, cfg.Sensors, b.mirror)
	b.life.Pause()
	return b
}

// Lifecycle maps app stages onto surface and activity callbacks. Losing
// focus is handled before losing the surface, gaining the surface before
// gaining focus.
func (b *Bridge) Lifecycle(e lifecycle.Event, s device.Surface) {
	if e.Crosses(lifecycle.StageFocused) == lifecycle.CrossOff {
		b.pause()
	}
	switch e.Crosses(lifecycle.StageVisible) {
	case lifecycle.CrossOn:
		if err := b.life.SurfaceCreated(s); err != nil {
			log.Errorf("can't bind surface: %v", err)
		}
	case lifecycle.CrossOff:
		if err := b.life.SurfaceDestroyed(); err != nil {
			log.Errorf("can't release surface: %v", err)
		}
	}
	if e.Crosses(lifecycle.StageFocused) == lifecycle.CrossOn {
		b.resume()
	}
	if e.Crosses(lifecycle.StageDead) == lifecycle.CrossOn {
		b.Destroy()
	}
}

func (b *Bridge) resume() {
	b.focused = true
	if err := b.motion.Start(); err != nil {
		log.Warnf("can't start motion sensors: %v", err)
	}
	if err := b.life.Resume(); err != nil {
		log.Errorf("can't resume device: %v", err)
	}
}

func (b *Bridge) pause() {
	b.focused = false
	b.tracker.CancelAll()
	if err := b.motion.Stop(); err != nil {
		log.Warnf("can't stop motion sensors: %v", err)
	}
	if err := b.life.Pause(); err != nil {
		log.Errorf("can't pause device: %v", err)
	}
}

// Size forwards the new surface size.
func (b *Bridge) Size(e size.Event) {
	b.overlay.SetPixelsPerPt(e.PixelsPerPt)
	b.life.SurfaceChanged(e.WidthPx, e.HeightPx)
	log.WithFields(log.Fields{
		"width":       e.WidthPx,
		"height":      e.HeightPx,
		"orientation": e.Orientation,
	}).Info("surface size")
}

// Touch forwards one pointer update.
func (b *Bridge) Touch(e touch.Event) {
	b.tracker.Handle(e)
}

// Key forwards the back key as escape. Other keys are engine specific and
// ignored.
func (b *Bridge) Key(e key.Event) {
	if e.Code != key.CodeEscape {
		return
	}
	switch e.Direction {
	case key.DirPress:
		b.mirror.Push(event.KeyEvent(event.KeyPress, event.KeyEscape))
	case key.DirRelease:
		b.mirror.Push(event.KeyEvent(event.KeyRelease, event.KeyEscape))
	}
}

// Sensor forwards one raw sensor sample to the filters.
func (b *Bridge) Sensor(e sensor.Event) {
	b.motion.Handle(e)
}

// remoteFound is sent back to the app event loop once discovery connected.
type remoteFound struct {
	c *remote.Client
}

// Discover looks for an engine host in the background and hands the
// connection to send, which must deliver it back to SetRemote on the event
// goroutine.
func (b *Bridge) Discover(addr string, send func(any)) {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	go func() {
		h, err := remote.Discover(ctx, addr)
		if err != nil {
			if ctx.Err() == nil {
				log.Warnf("can't discover engine host: %v", err)
			}
			return
		}
		c, err := remote.Dial(h.Addr)
		if err != nil {
			log.Warnf("did not connect: %v", err)
			return
		}
		send(remoteFound{c})
	}()
}

// SetRemote starts mirroring events to c.
func (b *Bridge) SetRemote(c *remote.Client) {
	if b.life.State() == device.Destroyed {
		go c.Close()
		return
	}
	b.mirror.Attach(c)
}

// Destroy shuts everything down. Safe to call more than once.
func (b *Bridge) Destroy() {
	if b.focused {
		b.pause()
	}
	if err := b.life.Destroy(); err != nil {
		log.Errorf("can't destroy device: %v", err)
	}
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	if err := b.mirror.Close(); err != nil {
		log.Warn(err)
	}
}
