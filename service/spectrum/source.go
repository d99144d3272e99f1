package spectrum

import (
	"fmt"

	"github.com/safing/trackguard/base/rng"
)

// Source supplies uniform random floats to the simulation.
// Implementations must be safe for sequential use by a single caller.
type Source interface {
	// Uniform returns a random float in [min, max).
	Uniform(min, max float64) (float64, error)
}

// rngSource draws from the fortuna generator in base/rng.
type rngSource struct{}

// DefaultSource returns a Source backed by base/rng.
// Reads fail until the rng module has been started and seeded.
func DefaultSource() Source {
	return rngSource{}
}

func (rngSource) Uniform(min, max float64) (float64, error) {
	f, err := rng.Float64()
	if err != nil {
		return 0, fmt.Errorf("draw uniform float: %w", err)
	}
	return min + f*(max-min), nil
}

// SequenceSource replays a fixed sequence of fractions in [0, 1).
// It is used for deterministic tests and scripted demos.
type SequenceSource struct {
	Fractions []float64

	next int
}

// Uniform maps the next fraction of the sequence into [min, max).
func (s *SequenceSource) Uniform(min, max float64) (float64, error) {
	if len(s.Fractions) == 0 {
		return min, nil
	}
	f := s.Fractions[s.next%len(s.Fractions)]
	s.next++
	return min + f*(max-min), nil
}
