package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
)

func runSignaler(t *testing.T, s *StatusSignaler) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return cancel, done
}

func TestStatusSignaler_BlinksWhileNormal(t *testing.T) {
	out := &recordingOutput{}
	m := NewEStopMonitor(out)
	cancel, done := runSignaler(t, NewStatusSignaler(out, m, 5*time.Millisecond))

	require.Eventually(t, func() bool { return len(out.written()) >= 4 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	levels := out.written()
	for i, l := range levels {
		// Writes alternate, starting with on.
		assert.Equal(t, gpio.Level(i%2 == 0), l, "write %d", i)
	}
}

func TestStatusSignaler_TripLeavesAlertLevel(t *testing.T) {
	out := &recordingOutput{}
	m := NewEStopMonitor(out)
	cancel, done := runSignaler(t, NewStatusSignaler(out, m, 2*time.Millisecond))

	require.Eventually(t, func() bool { return len(out.written()) >= 3 }, time.Second, time.Millisecond)
	m.OnTripEdge()
	time.Sleep(20 * time.Millisecond)
	afterTrip := len(out.written())
	time.Sleep(20 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	last, ok := out.last()
	require.True(t, ok)
	assert.Equal(t, gpio.High, last)
	// Nothing is written once the trip has settled.
	assert.Equal(t, afterTrip, len(out.written()))
}

func TestStatusSignaler_StopsWithinOneInterval(t *testing.T) {
	out := &recordingOutput{}
	m := NewEStopMonitor(out)
	interval := 50 * time.Millisecond
	cancel, done := runSignaler(t, NewStatusSignaler(out, m, interval))

	time.Sleep(10 * time.Millisecond)
	start := time.Now()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
		assert.True(t, time.Since(start) < interval, "took %s", time.Since(start))
	case <-time.After(time.Second):
		t.Fatal("signaler did not stop")
	}
}

func TestStatusSignaler_IdleWhenTripped(t *testing.T) {
	out := &recordingOutput{}
	m := NewEStopMonitor(out)
	m.OnTripEdge()

	cancel, done := runSignaler(t, NewStatusSignaler(out, m, time.Millisecond))
	time.Sleep(20 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []gpio.Level{gpio.High}, out.written())
}

func TestNewStatusSignaler_DefaultInterval(t *testing.T) {
	s := NewStatusSignaler(&recordingOutput{}, NewEStopMonitor(&recordingOutput{}), 0)
	assert.Equal(t, defaultBlinkInterval, s.interval)
}
