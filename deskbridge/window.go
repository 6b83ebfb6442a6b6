//go:build !android

package main

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	log "github.com/sirupsen/logrus"

	"github.com/viru/berrybridge/device"
	"github.com/viru/berrybridge/event"
)

func initWindow(width, height int) (*glfw.Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err := glfw.CreateWindow(width, height, "berrybridge", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}
	// The context is made current on the render goroutine only.
	return window, nil
}

// bindWindow routes window callbacks, which run on the main thread inside
// glfw event polling, to the lifecycle and the input adapter.
func bindWindow(w *glfw.Window, life *device.Lifecycle, in *input) {
	w.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		life.SurfaceChanged(width, height)
	})
	w.SetIconifyCallback(func(_ *glfw.Window, iconified bool) {
		if iconified {
			in.cancel()
			if err := life.Pause(); err != nil {
				log.Errorf("can't pause device: %v", err)
			}
			return
		}
		if err := life.Resume(); err != nil {
			log.Errorf("can't resume device: %v", err)
		}
	})
	w.SetCursorPosCallback(func(w *glfw.Window, x, y float64) {
		s := pixelScale(w)
		in.move(float32(x*s), float32(y*s))
	})
	w.SetMouseButtonCallback(func(_ *glfw.Window, b glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		eb, ok := mouseButtons[b]
		if !ok {
			return
		}
		switch action {
		case glfw.Press:
			in.press(eb)
		case glfw.Release:
			in.release(eb)
		}
	})
	w.SetKeyCallback(func(_ *glfw.Window, k glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		switch action {
		case glfw.Press:
			in.key(translateKey(k), true)
		case glfw.Release:
			in.key(translateKey(k), false)
		}
	})
}

// pixelScale converts screen coordinates to framebuffer pixels.
func pixelScale(w *glfw.Window) float64 {
	ww, _ := w.GetSize()
	fw, _ := w.GetFramebufferSize()
	if ww == 0 {
		return 1
	}
	return float64(fw) / float64(ww)
}

var mouseButtons = map[glfw.MouseButton]event.Button{
	glfw.MouseButtonLeft:   event.ButtonLeft,
	glfw.MouseButtonMiddle: event.ButtonMiddle,
	glfw.MouseButtonRight:  event.ButtonRight,
}

var keys = map[glfw.Key]event.Key{
	glfw.KeyBackspace:    event.KeyBackspace,
	glfw.KeyTab:          event.KeyTab,
	glfw.KeySpace:        event.KeySpace,
	glfw.KeyEscape:       event.KeyEscape,
	glfw.KeyEnter:        event.KeyEnter,
	glfw.KeyHome:         event.KeyHome,
	glfw.KeyEnd:          event.KeyEnd,
	glfw.KeyPageUp:       event.KeyPageUp,
	glfw.KeyPageDown:     event.KeyPageDown,
	glfw.KeyDelete:       event.KeyDelete,
	glfw.KeyLeft:         event.KeyLeft,
	glfw.KeyUp:           event.KeyUp,
	glfw.KeyRight:        event.KeyRight,
	glfw.KeyDown:         event.KeyDown,
	glfw.KeyLeftShift:    event.KeyLeftShift,
	glfw.KeyRightShift:   event.KeyRightShift,
	glfw.KeyLeftControl:  event.KeyLeftCtrl,
	glfw.KeyRightControl: event.KeyRightCtrl,
	glfw.KeyLeftAlt:      event.KeyLeftAlt,
	glfw.KeyRightAlt:     event.KeyRightAlt,
}

func translateKey(k glfw.Key) event.Key {
	switch {
	case k >= glfw.KeyA && k <= glfw.KeyZ:
		return event.KeyA + event.Key(k-glfw.KeyA)
	case k >= glfw.Key0 && k <= glfw.Key9:
		return event.Key0 + event.Key(k-glfw.Key0)
	}
	return keys[k]
}
