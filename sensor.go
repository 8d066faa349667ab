package main

import (
	"context"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// defaultEdgePoll bounds how long watchEStop blocks between checks for
// shutdown.
const defaultEdgePoll = 250 * time.Millisecond

// EStopInput is the e-stop button line, configured for falling edges.
// periph's gpio.PinIn satisfies it.
type EStopInput interface {
	Read() gpio.Level
	WaitForEdge(timeout time.Duration) bool
	Halt() error
}

// estopEngaged interprets the raw level of the e-stop line.  The input is
// pulled up and the button shorts it to ground, so low means pressed.
func estopEngaged(l gpio.Level) bool {
	return l == gpio.Low
}

// watchEStop delivers e-stop edges to the monitor.  It plays the part of the
// interrupt handler: every detected falling edge calls OnTripEdge directly.
// A button already held down at startup trips the monitor immediately.  The
// loop waits at most poll for each edge so that it notices ctx being
// cancelled, and returns once the monitor has tripped since the latch is
// terminal.
func watchEStop(ctx context.Context, in EStopInput, m *EStopMonitor, poll time.Duration) error {
	if poll <= 0 {
		poll = defaultEdgePoll
	}
	if estopEngaged(in.Read()) {
		m.OnTripEdge()
		return nil
	}
	for {
		if ctx.Err() != nil {
			return nil
		}
		if in.WaitForEdge(poll) {
			m.OnTripEdge()
			return nil
		}
	}
}
