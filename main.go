// Command berrybridge is the gomobile shell of the bridge. It runs the
// reference engine with the debug overlay and mirrors input to an engine
// host when one announces itself on the local network.
package main

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/mobile/app"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"
	"golang.org/x/mobile/event/touch"
	"golang.org/x/mobile/exp/sensor"
	"golang.org/x/mobile/gl"

	"github.com/viru/berrybridge/motion"
	"github.com/viru/berrybridge/remote"
)

const joinTimeout = 2 * time.Second

func main() {
	app.Main(func(a app.App) {
		sensor.Notify(a)
		b := NewBridge(Config{
			Motion:      motion.DefaultConfig(),
			Sensors:     motion.DeviceSensors(),
			JoinTimeout: joinTimeout,
			Publish:     func() { a.Publish() },
		})
		b.Discover(fmt.Sprintf(":%d", remote.DefaultBroadcastPort), a.Send)

		for e := range a.Events() {
			switch e := a.Filter(e).(type) {
			case lifecycle.Event:
				glctx, _ := e.DrawContext.(gl.Context)
				b.Lifecycle(e, glctx)
			case size.Event:
				b.Size(e)
			case paint.Event:
				// Frames are driven by the render goroutine, system
				// paint requests carry nothing new.
			case touch.Event:
				b.Touch(e)
			case key.Event:
				b.Key(e)
			case sensor.Event:
				b.Sensor(e)
			case remoteFound:
				log.Info("mirroring events to engine host")
				b.SetRemote(e.c)
			}
		}
	})
}
