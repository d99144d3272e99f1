package spectrum

import "time"

// Sampling ranges of the simulated receiver.
const (
	MinStrength = 0.1
	MaxStrength = 1.0
	MinQuality  = 0.5
	MaxQuality  = 0.95

	// MinDetectableStrength is the floor below which a signal is too weak to
	// be picked up by a real receiver. Kept for reporting, weaker samples
	// still flow through the full cycle.
	MinDetectableStrength = 0.3
)

// Sample is one simulated GPS observation.
// A Sample is immutable once created.
type Sample struct {
	Band         Band      `json:"band"`
	FrequencyMHz float64   `json:"frequency_mhz"`
	Strength     float64   `json:"strength"`
	Quality      float64   `json:"quality"`
	Time         time.Time `json:"time"`
}

// Detectable reports whether the signal is strong enough to be picked up.
func (s Sample) Detectable() bool {
	return s.Strength > MinDetectableStrength
}
