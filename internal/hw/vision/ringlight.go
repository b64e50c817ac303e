package vision

import (
	"github.com/cjeanneret/DriveGo/internal/debug"
	"github.com/cjeanneret/DriveGo/internal/hw/gpio"
)

// RingLight is the LED ring around the camera lens, switched through a
// single GPIO line (active HIGH). It is lit only while the distance
// pipeline is selected so the retroreflective target stands out.
type RingLight struct {
	gpio gpio.Driver
	pin  int
}

// NewRingLight configures the LED pin as an output, initially off.
// pin 0 means no LED is wired; requests are then only logged.
func NewRingLight(g gpio.Driver, pin int) *RingLight {
	if pin > 0 {
		_ = g.SetupPin(pin, gpio.Output)
		_ = g.WritePin(pin, gpio.Low)
	}
	return &RingLight{gpio: g, pin: pin}
}

// SetPipeline turns the ring on for the distance pipeline and off otherwise.
func (r *RingLight) SetPipeline(p Pipeline) error {
	if r.pin <= 0 {
		debug.Verbose("Ring light: no pin configured (pipeline %s)", p)
		return nil
	}
	level := gpio.Low
	if p == PipelineDistance {
		level = gpio.High
	}
	debug.Verbose("Ring light: pin %d -> %v (pipeline %s)", r.pin, level, p)
	return r.gpio.WritePin(r.pin, level)
}
