package defense

import (
	"fmt"

	"github.com/safing/trackguard/service/threat"
)

// Method is one countermeasure technique.
type Method uint8

// Countermeasure methods.
const (
	MethodDetection Method = iota
	MethodSpoofing
	MethodJamming
	MethodFrequencyHopping
	MethodEncryption
)

func (m Method) String() string {
	switch m {
	case MethodDetection:
		return "signal_detection"
	case MethodSpoofing:
		return "location_spoofing"
	case MethodJamming:
		return "signal_jamming"
	case MethodFrequencyHopping:
		return "frequency_hopping"
	case MethodEncryption:
		return "encryption"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
// It also makes Method usable as a JSON object key.
func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Level is the configured protection tier.
type Level uint8

// Protection levels, ordered from weakest to strongest.
const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
	LevelMaximum
)

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	case LevelMaximum:
		return "maximum"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// ParseLevel returns the protection level with the given name.
func ParseLevel(name string) (Level, error) {
	switch name {
	case "low":
		return LevelLow, nil
	case "medium":
		return LevelMedium, nil
	case "high":
		return LevelHigh, nil
	case "maximum":
		return LevelMaximum, nil
	default:
		return 0, fmt.Errorf("%w: protection level %q", threat.ErrInvalidConfig, name)
	}
}

// Methods returns the cumulative method set enabled by the given level.
// The set is always derived fresh from the level, never patched in place.
func Methods(level Level) []Method {
	methods := []Method{MethodDetection, MethodSpoofing}
	if level >= LevelMedium {
		methods = append(methods, MethodJamming)
	}
	if level >= LevelHigh {
		methods = append(methods, MethodFrequencyHopping)
	}
	if level >= LevelMaximum {
		methods = append(methods, MethodEncryption)
	}
	return methods
}
