package main

// AllianceColor is the operational mode tag used by the surrounding
// competition system.  Only the three values below are valid.
type AllianceColor string

const (
	AllianceRed   AllianceColor = "Red"
	AllianceBlue  AllianceColor = "Blue"
	AllianceField AllianceColor = "Field"
)

// Valid reports whether c is one of the known alliance colors.  Matching is
// exact; "red" is not a valid color.
func (c AllianceColor) Valid() bool {
	switch c {
	case AllianceRed, AllianceBlue, AllianceField:
		return true
	default:
		return false
	}
}

// Configuration holds the operator settings persisted to the settings file.
// When UseDHCP is true DeviceIP is kept but is not authoritative.
type Configuration struct {
	AllianceColor AllianceColor
	DeviceIP      string // dotted quad, empty when unset
	ArenaIP       string // dotted quad
	ArenaPort     string // 1-65535, stored as entered
	UseDHCP       bool
}

// DefaultConfiguration returns the settings used when no settings file exists.
func DefaultConfiguration() Configuration {
	return Configuration{
		AllianceColor: AllianceRed,
		DeviceIP:      "",
		ArenaIP:       "10.0.100.5",
		ArenaPort:     "8080",
		UseDHCP:       true,
	}
}

// ConfigChanges is a partial update.  A nil field is left untouched.
type ConfigChanges struct {
	AllianceColor *string
	DeviceIP      *string
	ArenaIP       *string
	ArenaPort     *string
	UseDHCP       *bool
}

// Empty reports whether the change set carries no fields at all.
func (c ConfigChanges) Empty() bool {
	return c.AllianceColor == nil && c.DeviceIP == nil && c.ArenaIP == nil &&
		c.ArenaPort == nil && c.UseDHCP == nil
}

// EStopState is the latch state of the emergency stop.
type EStopState string

const (
	EStopNormal  EStopState = "Normal"
	EStopTripped EStopState = "Tripped"
)
