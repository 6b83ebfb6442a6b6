//go:build !android

package main

import (
	"fmt"
	"time"

	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/rpi" // RaspberryPI driver
	log "github.com/sirupsen/logrus"

	"github.com/viru/berrybridge/event"
)

const defaultPollDur = 20 * time.Millisecond

// digitalPin is the part of embd.DigitalPin the buttons use.
type digitalPin interface {
	Read() (int, error)
	Close() error
}

type buttonChange struct {
	button  event.Button
	pressed bool
}

// gpioButtons polls push buttons wired to GPIO inputs. Pin i is reported as
// event.ButtonAux+i. Changes are handed to the main thread through a
// channel, since only the main thread may push events.
type gpioButtons struct {
	pins    []digitalPin
	state   []int
	changes chan buttonChange
	waitc   chan struct{}
	stopped chan struct{}
	started bool
	gpio    bool
}

func openGPIOButtons(numbers []int) (*gpioButtons, error) {
	if err := embd.InitGPIO(); err != nil {
		return nil, fmt.Errorf("can't init GPIO: %v", err)
	}
	var pins []digitalPin
	for _, n := range numbers {
		p, err := embd.NewDigitalPin(n)
		if err != nil {
			closePins(pins)
			embd.CloseGPIO()
			return nil, fmt.Errorf("can't init pin %d: %v", n, err)
		}
		if err := p.SetDirection(embd.In); err != nil {
			p.Close()
			closePins(pins)
			embd.CloseGPIO()
			return nil, fmt.Errorf("can't set pin %d direction: %v", n, err)
		}
		pins = append(pins, p)
	}
	b := newButtons(pins)
	b.gpio = true
	return b, nil
}

func newButtons(pins []digitalPin) *gpioButtons {
	b := &gpioButtons{
		pins:    pins,
		state:   make([]int, len(pins)),
		changes: make(chan buttonChange, 16),
		waitc:   make(chan struct{}),
		stopped: make(chan struct{}),
	}
	for i := range b.state {
		b.state[i] = embd.Low
	}
	return b
}

// start polls the pins on a new goroutine until close.
func (b *gpioButtons) start() {
	b.started = true
	go b.run()
}

func (b *gpioButtons) run() {
	defer close(b.stopped)
	t := time.NewTicker(defaultPollDur)
	defer t.Stop()
	for {
		select {
		case <-b.waitc:
			return
		case <-t.C:
			b.poll()
		}
	}
}

func (b *gpioButtons) poll() {
	for i, p := range b.pins {
		v, err := p.Read()
		if err != nil {
			log.Warnf("can't read button %d: %v", i, err)
			continue
		}
		if v == b.state[i] {
			continue
		}
		c := buttonChange{button: event.ButtonAux + event.Button(i), pressed: v == embd.High}
		select {
		case b.changes <- c:
			b.state[i] = v
		default:
			// Main thread is behind, try again on the next tick.
		}
	}
}

// drain reports pending changes to in. Called from the main thread.
func (b *gpioButtons) drain(in *input) {
	for {
		select {
		case c := <-b.changes:
			if c.pressed {
				in.press(c.button)
			} else {
				in.release(c.button)
			}
		default:
			return
		}
	}
}

// close stops polling and releases the pins once no Read is in flight.
func (b *gpioButtons) close() {
	close(b.waitc)
	if b.started {
		<-b.stopped
	}
	closePins(b.pins)
	if b.gpio {
		embd.CloseGPIO()
	}
}

func closePins(pins []digitalPin) {
	for _, p := range pins {
		p.Close()
	}
}
