package main

import (
	"sync"

	"go.uber.org/multierr"
)

// ConfigStore wraps the operator configuration and a mutex for concurrent
// access.  The HTTP handler, the status loop and the trip reporter all read it;
// only Update writes it, and every successful Update is persisted.
type ConfigStore struct {
	mu  sync.RWMutex
	cfg Configuration

	// saveMu orders writes to disk in the same order the updates were
	// applied, without holding mu during file I/O.
	saveMu  sync.Mutex
	persist SettingsStore
}

// NewConfigStore loads the configuration through persist.  If loading fails
// the defaults are used and the load error is returned alongside the store so
// the caller can log it and keep running.  A loaded alliance color that is
// not one of the known values is replaced by the default.
func NewConfigStore(persist SettingsStore) (*ConfigStore, error) {
	cfg, err := persist.Load()
	if err != nil {
		cfg = DefaultConfiguration()
	}
	if !cfg.AllianceColor.Valid() {
		cfg.AllianceColor = DefaultConfiguration().AllianceColor
	}
	return &ConfigStore{cfg: cfg, persist: persist}, err
}

// Snapshot returns a copy of the current configuration.  Configuration holds
// no references so the copy is never affected by later updates.
func (cs *ConfigStore) Snapshot() Configuration {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.cfg
}

// Update applies the fields present in changes as one atomic swap and persists
// the result.  The returned configuration is always the new in-memory state.
// The error, if any, aggregates a ValidationError for every rejected field and
// a PersistenceError if the save failed; neither undoes the applied fields.
func (cs *ConfigStore) Update(changes ConfigChanges) (Configuration, error) {
	cs.mu.Lock()
	next := cs.cfg
	var errs error
	if changes.AllianceColor != nil {
		if c := AllianceColor(*changes.AllianceColor); c.Valid() {
			next.AllianceColor = c
		} else {
			errs = multierr.Append(errs, &ValidationError{Field: "color", Value: *changes.AllianceColor})
		}
	}
	if changes.DeviceIP != nil {
		next.DeviceIP = *changes.DeviceIP
	}
	if changes.ArenaIP != nil {
		next.ArenaIP = *changes.ArenaIP
	}
	if changes.ArenaPort != nil {
		next.ArenaPort = *changes.ArenaPort
	}
	if changes.UseDHCP != nil {
		next.UseDHCP = *changes.UseDHCP
	}
	cs.cfg = next
	// Take the save lock before releasing mu so saves land in update order.
	cs.saveMu.Lock()
	cs.mu.Unlock()
	defer cs.saveMu.Unlock()

	if err := cs.persist.Save(next); err != nil {
		errs = multierr.Append(errs, &PersistenceError{Path: cs.persist.Location(), Err: err})
	}
	return next, errs
}
