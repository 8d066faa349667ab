package main

import (
	"sync/atomic"

	"periph.io/x/conn/v3/gpio"
)

// StatusOutput is the status LED.  periph's gpio.PinOut satisfies it.
type StatusOutput interface {
	Out(l gpio.Level) error
	Halt() error
}

// EStopMonitor latches the emergency stop.  OnTripEdge is the only writer and
// may run concurrently with everything else; it never takes a lock, never
// allocates and never logs.  Follow-up work such as logging and alerts waits
// on Tripped() in an ordinary goroutine.
type EStopMonitor struct {
	tripped   atomic.Bool
	trippedCh chan struct{}
	status    StatusOutput
}

// NewEStopMonitor returns a monitor in the Normal state driving status on trip.
func NewEStopMonitor(status StatusOutput) *EStopMonitor {
	return &EStopMonitor{
		trippedCh: make(chan struct{}),
		status:    status,
	}
}

// OnTripEdge records a falling edge on the e-stop input.  The first call
// moves the monitor to Tripped, drives the status output to its alert level
// and releases waiters on Tripped(); later calls do nothing.
func (m *EStopMonitor) OnTripEdge() {
	if !m.tripped.CompareAndSwap(false, true) {
		return
	}
	// The flag is set before the write so that the status loop, which
	// re-checks the flag after every low write, cannot leave the LED off.
	_ = m.status.Out(gpio.High)
	close(m.trippedCh)
}

// IsTripped reports whether a trip has been recorded.
func (m *EStopMonitor) IsTripped() bool {
	return m.tripped.Load()
}

// State returns the current latch state.
func (m *EStopMonitor) State() EStopState {
	if m.IsTripped() {
		return EStopTripped
	}
	return EStopNormal
}

// Tripped returns a channel that is closed once the monitor trips.
func (m *EStopMonitor) Tripped() <-chan struct{} {
	return m.trippedCh
}
