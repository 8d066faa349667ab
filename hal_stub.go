//go:build !(linux && (arm || arm64)) || disablegpio

package main

// This file defines the hardware abstraction layer (HAL) used when building
// off the Pi.  It hands out in-memory periph test pins so that the web server
// and the status loop run unchanged on a desktop machine: the e-stop input
// never sees an edge and the status output only records its level.  The real
// implementation lives in hal_rpi.go, guarded by a build tag.

import (
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// initGPIO performs any global initialisation required to access GPIO pins.
// In the stub implementation it does nothing.
func initGPIO() error {
	return nil
}

// openEStopPin returns an input pulled high that never reports an edge.
func openEStopPin(name string) (EStopInput, error) {
	p := &gpiotest.Pin{N: name, L: gpio.High, EdgesChan: make(chan gpio.Level)}
	if err := p.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, err
	}
	return p, nil
}

// openStatusPin returns an output that starts low.
func openStatusPin(name string) (StatusOutput, error) {
	p := &gpiotest.Pin{N: name}
	if err := p.Out(gpio.Low); err != nil {
		return nil, err
	}
	return p, nil
}
