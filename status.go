package main

import (
	"context"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// defaultBlinkInterval is the length of each on and off phase.
const defaultBlinkInterval = 500 * time.Millisecond

// StatusSignaler blinks the status LED while the e-stop is not tripped.  Once
// the monitor trips it stops touching the LED, leaving the alert level set by
// EStopMonitor in place.
type StatusSignaler struct {
	out      StatusOutput
	monitor  *EStopMonitor
	interval time.Duration
}

// NewStatusSignaler returns a signaler with equal on and off phases of
// interval.  A non-positive interval selects the default.
func NewStatusSignaler(out StatusOutput, monitor *EStopMonitor, interval time.Duration) *StatusSignaler {
	if interval <= 0 {
		interval = defaultBlinkInterval
	}
	return &StatusSignaler{out: out, monitor: monitor, interval: interval}
}

// Run blinks until ctx is cancelled.  It returns within one interval of
// cancellation.
func (s *StatusSignaler) Run(ctx context.Context) error {
	for {
		if !s.monitor.IsTripped() {
			s.drive(gpio.High)
			if !sleepCtx(ctx, s.interval) {
				return nil
			}
			s.drive(gpio.Low)
		}
		if !sleepCtx(ctx, s.interval) {
			return nil
		}
	}
}

// drive writes l unless the monitor has tripped.  A trip can land between the
// check and the write; the flag is set before the monitor raises the LED, so
// re-checking after a low write and restoring the alert level closes that gap.
func (s *StatusSignaler) drive(l gpio.Level) {
	if s.monitor.IsTripped() {
		return
	}
	_ = s.out.Out(l)
	if l == gpio.Low && s.monitor.IsTripped() {
		_ = s.out.Out(gpio.High)
	}
}

// sleepCtx waits for d and reports false if ctx was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
