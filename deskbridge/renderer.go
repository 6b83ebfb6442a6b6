//go:build !android

package main

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	log "github.com/sirupsen/logrus"

	"github.com/viru/berrybridge/device"
	"github.com/viru/berrybridge/event"
)

// glRenderer clears the window with a color following the input, enough to
// see that frames run and events arrive. Everything runs on the render
// goroutine with the window context current.
type glRenderer struct {
	glInit  bool
	w, h    float32
	down    bool
	x, y    float32
	buttons int
}

func newGLRenderer() *glRenderer {
	return &glRenderer{w: 1, h: 1}
}

func (r *glRenderer) Init(s device.Surface) error {
	if s == nil {
		return fmt.Errorf("can't render without a window")
	}
	if !r.glInit {
		if err := gl.Init(); err != nil {
			return fmt.Errorf("gl init: %w", err)
		}
		r.glInit = true
		log.WithField("version", gl.GoStr(gl.GetString(gl.VERSION))).Info("OpenGL ready")
	}
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.CULL_FACE)
	return nil
}

func (r *glRenderer) Draw(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
	red, green, blue := r.color()
	gl.ClearColor(red, green, blue, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

// Release has nothing to free, the clear color holds no GL objects.
func (r *glRenderer) Release() {}

func (r *glRenderer) HandleEvent(e event.Event) {
	switch e.Kind {
	case event.Resolution:
		r.w, r.h = float32(e.A), float32(e.B)
	case event.TouchDown, event.TouchMove:
		r.down = true
		r.x, r.y = float32(e.A), float32(e.B)
	case event.TouchUp:
		r.down = false
	case event.ButtonPress:
		r.buttons++
	case event.ButtonRelease:
		if r.buttons > 0 {
			r.buttons--
		}
	}
}

func (r *glRenderer) color() (red, green, blue float32) {
	blue = 0.15
	if r.buttons > 0 {
		blue = 0.4
	}
	if !r.down || r.w <= 0 || r.h <= 0 {
		return 0.1, 0.1, blue
	}
	return clamp01(r.x / r.w), clamp01(r.y / r.h), blue
}

func clamp01(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
