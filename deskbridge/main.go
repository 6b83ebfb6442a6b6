//go:build !android

// Command deskbridge runs the bridge on a desktop GLFW window. The mouse
// drives pointer 0, iconifying the window pauses the device and optional
// GPIO push buttons on a Raspberry Pi arrive as extra pointer buttons.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	log "github.com/sirupsen/logrus"

	"github.com/viru/berrybridge/device"
	"github.com/viru/berrybridge/engine"
	"github.com/viru/berrybridge/gesture"
	"github.com/viru/berrybridge/remote"
)

var (
	width       = flag.Int("width", 960, "window width")
	height      = flag.Int("height", 540, "window height")
	fps         = flag.Int("fps", 0, "frame rate cap, 0 follows vsync")
	joinTimeout = flag.Duration("join-timeout", 2*time.Second, "how long to wait for the render goroutine")
	gpioPins    = flag.String("gpio-pins", "", "comma separated GPIO pins read as push buttons")
	discover    = flag.Bool("discover", false, "mirror events to the first engine host found")
	bcastPort   = flag.Int("bcast-port", remote.DefaultBroadcastPort, "UDP broadcast port used for discovery")
	verbose     = flag.Bool("v", false, "debug logging")
)

func init() {
	// GLFW calls must come from the main thread.
	runtime.LockOSThread()
}

func main() {
	flag.Parse()
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	window, err := initWindow(*width, *height)
	if err != nil {
		log.Fatalf("Can't init window: %v", err)
	}
	defer glfw.Terminate()

	var buttons *gpioButtons
	if *gpioPins != "" {
		pins, err := parsePins(*gpioPins)
		if err != nil {
			log.Fatal(err)
		}
		buttons, err = openGPIOButtons(pins)
		if err != nil {
			log.Fatalf("Can't init GPIO: %v", err)
		}
		defer buttons.close()
		buttons.start()
	}

	r := newGLRenderer()
	cfg := engine.Config{
		Handler:  r,
		Renderer: r,
		Publish:  window.SwapBuffers,
	}
	if *fps > 0 {
		cfg.FrameInterval = time.Second / time.Duration(*fps)
	}
	dev := engine.New(cfg)
	mirror := remote.NewMirror(dev.Events())

	life := device.New(dev, device.Config{
		JoinTimeout: *joinTimeout,
		Events:      mirror,
		Hooks: device.Hooks{
			Begin: func() {
				runtime.LockOSThread()
				window.MakeContextCurrent()
				glfw.SwapInterval(1)
			},
			End: func() {
				glfw.DetachCurrentContext()
				runtime.UnlockOSThread()
			},
		},
	})

	found := make(chan *remote.Client, 1)
	if *discover {
		go func() {
			h, err := remote.Discover(context.Background(), fmt.Sprintf(":%d", *bcastPort))
			if err != nil {
				log.Warnf("can't discover engine host: %v", err)
				return
			}
			c, err := remote.Dial(h.Addr)
			if err != nil {
				log.Warnf("did not connect: %v", err)
				return
			}
			found <- c
			glfw.PostEmptyEvent()
		}()
	}

	in := newInput(gesture.NewDispatcher(mirror), mirror)
	bindWindow(window, life, in)

	fbw, fbh := window.GetFramebufferSize()
	life.SurfaceChanged(fbw, fbh)
	if err := life.SurfaceCreated(window); err != nil {
		log.Fatalf("Can't init device: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-sig
		log.Infof("Got %s, trying to shutdown gracefully", s.String())
		window.SetShouldClose(true)
		glfw.PostEmptyEvent()
	}()

	for !window.ShouldClose() {
		glfw.WaitEventsTimeout(0.05)
		select {
		case c := <-found:
			log.Info("mirroring events to engine host")
			mirror.Attach(c)
		default:
		}
		if buttons != nil {
			buttons.drain(in)
		}
	}

	if err := life.SurfaceDestroyed(); err != nil {
		log.Errorf("can't release surface: %v", err)
	}
	if err := life.Destroy(); err != nil {
		log.Errorf("can't destroy device: %v", err)
	}
	if err := mirror.Close(); err != nil {
		log.Warn(err)
	}
	if life.Leaked() {
		// The render goroutine still owns the GL context.
		log.Error("render goroutine leaked, not destroying window")
		return
	}
	window.Destroy()
}

func parsePins(s string) ([]int, error) {
	var pins []int
	for _, f := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("can't parse GPIO pin %q: %v", f, err)
		}
		pins = append(pins, n)
	}
	return pins, nil
}
