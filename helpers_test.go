package main

import (
	"sync"

	"periph.io/x/conn/v3/gpio"
)

// memSettings is an in-memory SettingsStore.
type memSettings struct {
	mu      sync.Mutex
	cfg     Configuration
	saves   []Configuration
	loadErr error
	saveErr error
}

func newMemSettings(cfg Configuration) *memSettings {
	return &memSettings{cfg: cfg}
}

func (m *memSettings) Load() (Configuration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg, m.loadErr
}

func (m *memSettings) Save(cfg Configuration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.cfg = cfg
	m.saves = append(m.saves, cfg)
	return nil
}

func (m *memSettings) Location() string { return "memory" }

func (m *memSettings) saved() []Configuration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Configuration(nil), m.saves...)
}

// recordingOutput is a StatusOutput that remembers every level written.
type recordingOutput struct {
	mu     sync.Mutex
	levels []gpio.Level
	halted bool
}

func (r *recordingOutput) Out(l gpio.Level) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels = append(r.levels, l)
	return nil
}

func (r *recordingOutput) Halt() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.halted = true
	return nil
}

func (r *recordingOutput) written() []gpio.Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gpio.Level(nil), r.levels...)
}

func (r *recordingOutput) isHalted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.halted
}

func (r *recordingOutput) last() (gpio.Level, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.levels) == 0 {
		return gpio.Low, false
	}
	return r.levels[len(r.levels)-1], true
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
