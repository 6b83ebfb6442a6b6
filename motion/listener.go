package motion

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/mobile/exp/sensor"

	"github.com/viru/berrybridge/event"
)

// ErrListening is returned by Start on a listener that is already started.
var ErrListening = errors.New("motion: already listening")

// Sensors enables and disables hardware sensors.
type Sensors interface {
	Enable(t sensor.Type, delay time.Duration) error
	Disable(t sensor.Type) error
}

type mobileSensors struct{}

func (mobileSensors) Enable(t sensor.Type, delay time.Duration) error { return sensor.Enable(t, delay) }
func (mobileSensors) Disable(t sensor.Type) error                     { return sensor.Disable(t) }

// DeviceSensors returns the gomobile sensor manager. Samples are delivered
// on the app event channel as sensor.Event.
func DeviceSensors() Sensors {
	return mobileSensors{}
}

// Listener owns one sensor listening session: the filter state lives from
// Start to Stop and is never shared between sessions.
//
// Handle runs on the OS event goroutine, it never blocks and takes no locks.
type Listener struct {
	cfg     Config
	sink    event.Sink
	sensors Sensors
	log     log.FieldLogger

	listening  bool
	accel      *LowPass
	compass    *Compass
	hasAccel   bool
	hasCompass bool
	reported   map[sensor.Type]bool
	dropped    atomic.Uint64
}

// NewListener returns a stopped listener pushing filtered samples to sink.
func NewListener(cfg Config, sensors Sensors, sink event.Sink) *Listener {
	return &Listener{
		cfg:      cfg,
		sink:     sink,
		sensors:  sensors,
		log:      log.StandardLogger(),
		reported: make(map[sensor.Type]bool),
	}
}

// SetLogger replaces the logger used for capability warnings.
func (l *Listener) SetLogger(lg log.FieldLogger) {
	l.log = lg
}

// Start enables the accelerometer and magnetometer and resets the filters.
// A missing sensor is not an error: it is logged once and reported by
// HasAccelerometer/HasCompass, the caller decides whether it can run
// without it.
func (l *Listener) Start() error {
	if l.listening {
		return ErrListening
	}
	delay := time.Duration(float64(time.Second) / l.cfg.UpdateHz)
	l.hasAccel = l.enable(sensor.Accelerometer, delay)
	l.hasCompass = l.enable(sensor.Magnetometer, delay)
	l.accel = NewLowPass(l.cfg)
	l.compass = &Compass{}
	l.listening = true
	l.log.WithFields(log.Fields{
		"accelerometer": l.hasAccel,
		"compass":       l.hasCompass,
		"cutoff":        l.cfg.CutoffHz,
		"mode":          l.cfg.Mode,
	}).Debug("motion listening")
	return nil
}

func (l *Listener) enable(t sensor.Type, delay time.Duration) bool {
	err := l.sensors.Enable(t, delay)
	if err == nil {
		return true
	}
	if !l.reported[t] {
		l.reported[t] = true
		l.log.WithField("sensor", t).Warnf("can't enable sensor: %v", err)
	}
	return false
}

// Stop disables the sensors and discards the filter state. Samples already
// pushed to the sink stay there.
func (l *Listener) Stop() error {
	if !l.listening {
		return nil
	}
	l.listening = false
	l.accel, l.compass = nil, nil

	var errs []error
	if l.hasAccel {
		if err := l.sensors.Disable(sensor.Accelerometer); err != nil {
			errs = append(errs, fmt.Errorf("can't disable accelerometer: %w", err))
		}
	}
	if l.hasCompass {
		if err := l.sensors.Disable(sensor.Magnetometer); err != nil {
			errs = append(errs, fmt.Errorf("can't disable magnetometer: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Listening reports whether a session is active.
func (l *Listener) Listening() bool { return l.listening }

// HasAccelerometer reports whether the accelerometer could be enabled by the
// last Start.
func (l *Listener) HasAccelerometer() bool { return l.hasAccel }

// HasCompass reports whether the magnetometer could be enabled by the last
// Start.
func (l *Listener) HasCompass() bool { return l.hasCompass }

// Handle filters one sample. It returns true if an event was pushed.
func (l *Listener) Handle(e sensor.Event) bool {
	if !l.listening || len(e.Data) < 3 {
		return false
	}
	raw := Vec3{e.Data[0], e.Data[1], e.Data[2]}
	switch e.Sensor {
	case sensor.Accelerometer:
		l.accel.Update(raw)
		v := l.accel.Output()
		return l.push(event.Vector(event.Accelerometer, v[0], v[1], v[2]))
	case sensor.Magnetometer:
		v := l.compass.Update(raw)
		if !l.cfg.ForwardCompass {
			return false
		}
		return l.push(event.Vector(event.Compass, v[0], v[1], v[2]))
	}
	return false
}

// Gravity returns the current accelerometer estimate, zero when stopped.
func (l *Listener) Gravity() Vec3 {
	if l.accel == nil {
		return Vec3{}
	}
	return l.accel.Output()
}

// Heading returns the current magnetometer estimate, zero when stopped.
func (l *Listener) Heading() Vec3 {
	if l.compass == nil {
		return Vec3{}
	}
	return l.compass.Smoothed()
}

// Dropped returns how many samples the sink rejected.
func (l *Listener) Dropped() uint64 {
	return l.dropped.Load()
}

func (l *Listener) push(e event.Event) bool {
	if l.sink.Push(e) {
		return true
	}
	l.dropped.Add(1)
	return false
}
