package spectrum

import (
	"sync"
	"time"
)

// Generator produces synthetic GPS signal samples.
// Bands are cycled round-robin (L1, L2, L5, L1, ...), so that every band is
// observed equally often regardless of how the randomness source behaves.
type Generator struct {
	source Source

	lock     sync.Mutex
	nextBand int
}

// NewGenerator returns a new sample generator drawing from the given source.
func NewGenerator(source Source) *Generator {
	return &Generator{
		source: source,
	}
}

// Generate produces one fresh sample.
// The only error condition is a failing randomness source.
func (g *Generator) Generate() (Sample, error) {
	g.lock.Lock()
	band := Bands[g.nextBand]
	g.nextBand = (g.nextBand + 1) % len(Bands)
	g.lock.Unlock()

	strength, err := g.source.Uniform(MinStrength, MaxStrength)
	if err != nil {
		return Sample{}, err
	}
	quality, err := g.source.Uniform(MinQuality, MaxQuality)
	if err != nil {
		return Sample{}, err
	}

	return Sample{
		Band:         band,
		FrequencyMHz: band.Frequency(),
		Strength:     strength,
		Quality:      quality,
		Time:         time.Now(),
	}, nil
}
