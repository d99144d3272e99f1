package threat

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned for unknown level or mode names.
var ErrInvalidConfig = errors.New("invalid configuration value")

// Level classifies how severe a detected signal's tracking risk is.
type Level uint8

// Threat levels, ordered by severity.
const (
	LevelNone Level = iota
	LevelLow
	LevelMedium
	LevelHigh
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	case LevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Mode is the sensitivity and cadence profile of the monitoring cycle.
type Mode uint8

// Detection modes.
const (
	ModePassive Mode = iota
	ModeActive
	ModeAggressive
)

func (m Mode) String() string {
	switch m {
	case ModePassive:
		return "passive"
	case ModeActive:
		return "active"
	case ModeAggressive:
		return "aggressive"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ParseMode returns the detection mode with the given name.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "passive":
		return ModePassive, nil
	case "active":
		return ModeActive, nil
	case "aggressive":
		return ModeAggressive, nil
	default:
		return 0, fmt.Errorf("%w: detection mode %q", ErrInvalidConfig, name)
	}
}

// ThresholdScale returns the factor applied to the score thresholds.
// Aggressive trades false positives for sensitivity, passive the reverse.
func (m Mode) ThresholdScale() float64 {
	switch m {
	case ModeAggressive:
		return 0.85
	case ModePassive:
		return 1.15
	default:
		return 1.0
	}
}
