//go:build linux && (arm || arm64) && !disablegpio

// This file provides a Raspberry Pi implementation of the HAL functions using
// the periph.io library.  When cross-compiling on other platforms or when
// the build tag "disablegpio" is specified, hal_stub.go will be used instead.

package main

import (
	"fmt"

	// Use the new periph module layout.  See https://periph.io/news/2020/a_new_start/
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// initGPIO initialises periph host state.  Returning an error here will
// prevent the service from starting.  This function is called once during
// startup, before any pin is opened.
func initGPIO() error {
	_, err := host.Init()
	return err
}

// openEStopPin configures the e-stop input with a pull-up and falling edge
// detection.  The button shorts the line to ground, so pressing it produces
// the falling edge.  Pins are addressed by name, e.g. "GPIO17".
func openEStopPin(name string) (EStopInput, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("unknown gpio pin %q", name)
	}
	if err := p.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("configure e-stop pin %s: %w", name, err)
	}
	return p, nil
}

// openStatusPin configures the status LED output and drives it low.
func openStatusPin(name string) (StatusOutput, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("unknown gpio pin %q", name)
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("configure status pin %s: %w", name, err)
	}
	return p, nil
}
