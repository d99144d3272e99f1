package defense

import (
	"fmt"
	"io"
	"time"

	"github.com/mr-tron/base58"
	"github.com/umahmood/haversine"

	"github.com/safing/trackguard/base/rng"
	"github.com/safing/trackguard/service/spectrum"
	"github.com/safing/trackguard/service/threat"
)

// Decoy is a fake location reported instead of the real position.
type Decoy struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// decoys is the fixed list of named city coordinates used for spoofing.
var decoys = []Decoy{
	{Name: "New York", Lat: 40.7128, Lon: -74.0060},
	{Name: "London", Lat: 51.5074, Lon: -0.1278},
	{Name: "Tokyo", Lat: 35.6762, Lon: 139.6503},
	{Name: "Sydney", Lat: -33.8688, Lon: 151.2093},
	{Name: "Moscow", Lat: 55.7558, Lon: 37.6176},
}

// hopPools are the fixed frequency pattern pools in MHz.
var hopPools = [][]float64{
	{spectrum.FrequencyL1, spectrum.FrequencyL2, spectrum.FrequencyL5}, // GPS bands
	{2400.0, 5800.0, 900.0},                                            // alternative bands
	{433.0, 868.0, 2400.0},                                             // ISM bands
}

// Jamming and hopping parameter ranges.
const (
	minJamPower = 0.6
	maxJamPower = 0.95
	// A jamming attempt only overpowers the signal above this level.
	jamSuccessPower = 0.7

	minHopInterval = 100 * time.Millisecond
	maxHopInterval = 500 * time.Millisecond

	encryptionKeySize   = 32
	encryptionAlgorithm = "AES-256"
)

// Outcome reports the result of one simulated countermeasure run.
type Outcome struct {
	Method        Method  `json:"method"`
	Success       bool    `json:"success"`
	Effectiveness float64 `json:"effectiveness"`

	// Detection.
	Band string `json:"band,omitempty"`

	// Spoofing.
	Decoy      *Decoy  `json:"decoy,omitempty"`
	OffsetKm   float64 `json:"offset_km,omitempty"`

	// Jamming.
	PowerLevel float64 `json:"power_level,omitempty"`

	// Frequency hopping.
	FrequencyMHz float64       `json:"frequency_mhz,omitempty"`
	HopInterval  time.Duration `json:"hop_interval,omitempty"`

	// Encryption.
	KeyFingerprint string `json:"key_fingerprint,omitempty"`
	Algorithm      string `json:"algorithm,omitempty"`
}

// Controller executes the countermeasure methods enabled by a protection level.
type Controller struct {
	source    spectrum.Source
	keyReader io.Reader
	reference haversine.Coord
}

// NewController returns a new protection controller.
// The reference position is used to report the offset of spoofed locations.
func NewController(source spectrum.Source, refLat, refLon float64) *Controller {
	return &Controller{
		source:    source,
		keyReader: rng.Reader,
		reference: haversine.Coord{Lat: refLat, Lon: refLon},
	}
}

// Apply runs every method enabled by the given level against the sample.
// The methods run independently: a simulated failure of one method is
// recorded in its outcome and does not affect the others. The threat level is
// passed through to the outcomes for reporting only, it does not change which
// methods run. The only hard error is an unavailable randomness source.
func (c *Controller) Apply(level Level, sample spectrum.Sample, tl threat.Level) (map[Method]Outcome, error) {
	outcomes := make(map[Method]Outcome, 5)

	for _, method := range Methods(level) {
		var (
			outcome Outcome
			err     error
		)
		switch method {
		case MethodDetection:
			outcome = c.runDetection(sample)
		case MethodSpoofing:
			outcome, err = c.runSpoofing()
		case MethodJamming:
			outcome, err = c.runJamming()
		case MethodFrequencyHopping:
			outcome, err = c.runFrequencyHopping()
		case MethodEncryption:
			outcome, err = c.runEncryption()
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", method, err)
		}
		outcomes[method] = outcome
	}

	return outcomes, nil
}

func (c *Controller) runDetection(sample spectrum.Sample) Outcome {
	return Outcome{
		Method:        MethodDetection,
		Success:       true,
		Effectiveness: sample.Quality,
		Band:          sample.Band.String(),
	}
}

func (c *Controller) runSpoofing() (Outcome, error) {
	pick, err := c.source.Uniform(0, float64(len(decoys)))
	if err != nil {
		return Outcome{}, err
	}
	decoy := decoys[int(pick)%len(decoys)]

	// How far off the tracker ends up.
	_, km := haversine.Distance(c.reference, haversine.Coord{Lat: decoy.Lat, Lon: decoy.Lon})

	return Outcome{
		Method:        MethodSpoofing,
		Success:       true,
		Effectiveness: 1.0,
		Decoy:         &decoy,
		OffsetKm:      km,
	}, nil
}

func (c *Controller) runJamming() (Outcome, error) {
	power, err := c.source.Uniform(minJamPower, maxJamPower)
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Method:        MethodJamming,
		Success:       power > jamSuccessPower,
		Effectiveness: power,
		PowerLevel:    power,
	}, nil
}

func (c *Controller) runFrequencyHopping() (Outcome, error) {
	poolPick, err := c.source.Uniform(0, float64(len(hopPools)))
	if err != nil {
		return Outcome{}, err
	}
	pool := hopPools[int(poolPick)%len(hopPools)]

	freqPick, err := c.source.Uniform(0, float64(len(pool)))
	if err != nil {
		return Outcome{}, err
	}
	interval, err := c.source.Uniform(
		float64(minHopInterval), float64(maxHopInterval),
	)
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Method:        MethodFrequencyHopping,
		Success:       true,
		Effectiveness: 1.0,
		FrequencyMHz:  pool[int(freqPick)%len(pool)],
		HopInterval:   time.Duration(interval),
	}, nil
}

func (c *Controller) runEncryption() (Outcome, error) {
	key := make([]byte, encryptionKeySize)
	if _, err := io.ReadFull(c.keyReader, key); err != nil {
		return Outcome{}, fmt.Errorf("generate key: %w", err)
	}

	return Outcome{
		Method:         MethodEncryption,
		Success:        true,
		Effectiveness:  1.0,
		KeyFingerprint: base58.Encode(key[:8]),
		Algorithm:      encryptionAlgorithm,
	}, nil
}
