package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// defaultSettingsPath is the default filename for persisted operator settings.
const defaultSettingsPath = "Freaky_settings.txt"

// SettingsStore loads and saves the operator configuration.  ConfigStore only
// talks to disk through this interface.
type SettingsStore interface {
	Load() (Configuration, error)
	Save(cfg Configuration) error
	// Location names where the settings live, for error reports.
	Location() string
}

// FileSettings persists the configuration as one key=value pair per line:
//
//	allianceColor=Red
//	arenaIP=10.0.100.5
//	deviceIP=
//	arenaPort=8080
//	useDHCP=1
type FileSettings struct {
	Path string
}

// NewFileSettings returns a store for path, falling back to the default
// filename when path is empty.
func NewFileSettings(path string) *FileSettings {
	if path == "" {
		path = defaultSettingsPath
	}
	return &FileSettings{Path: path}
}

// Location returns the settings file path.
func (fs *FileSettings) Location() string { return fs.Path }

// Load reads the settings file on top of the defaults.  A missing file is not
// an error: the defaults are returned unchanged.  Lines that are not key=value
// and unknown keys are ignored, as is an alliance color that is not one of the
// known values.
func (fs *FileSettings) Load() (Configuration, error) {
	cfg := DefaultConfiguration()
	data, err := os.ReadFile(fs.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("unable to read settings: %w", err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimRight(scanner.Text(), "\r"), "=")
		if !ok || key == "" {
			continue
		}
		switch key {
		case "allianceColor":
			if c := AllianceColor(value); c.Valid() {
				cfg.AllianceColor = c
			}
		case "arenaIP":
			cfg.ArenaIP = value
		case "deviceIP":
			cfg.DeviceIP = value
		case "arenaPort":
			cfg.ArenaPort = value
		case "useDHCP":
			n, _ := strconv.Atoi(strings.TrimSpace(value))
			cfg.UseDHCP = n != 0
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("invalid settings file: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to a temporary file and renames it over the
// settings file so a crash never leaves a half-written file behind.
func (fs *FileSettings) Save(cfg Configuration) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "allianceColor=%s\n", cfg.AllianceColor)
	fmt.Fprintf(&buf, "arenaIP=%s\n", cfg.ArenaIP)
	fmt.Fprintf(&buf, "deviceIP=%s\n", cfg.DeviceIP)
	fmt.Fprintf(&buf, "arenaPort=%s\n", cfg.ArenaPort)
	fmt.Fprintf(&buf, "useDHCP=%d\n", boolToInt(cfg.UseDHCP))

	tmpPath := fs.Path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, fs.Path)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
