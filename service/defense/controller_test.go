package defense

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/trackguard/service/spectrum"
	"github.com/safing/trackguard/service/threat"
)

func testController(fractions ...float64) *Controller {
	c := NewController(&spectrum.SequenceSource{Fractions: fractions}, 52.5200, 13.4050)
	c.keyReader = bytes.NewReader(bytes.Repeat([]byte{0x42}, 1024))
	return c
}

func testSample() spectrum.Sample {
	return spectrum.Sample{
		Band:         spectrum.BandL1,
		FrequencyMHz: spectrum.FrequencyL1,
		Strength:     0.8,
		Quality:      0.9,
	}
}

func TestMethodsCumulative(t *testing.T) {
	t.Parallel()

	levels := []Level{LevelLow, LevelMedium, LevelHigh, LevelMaximum}

	// Non-decreasing along the order, always a superset of the low set.
	prev := Methods(LevelLow)
	for _, level := range levels {
		methods := Methods(level)
		assert.GreaterOrEqual(t, len(methods), len(prev))
		assert.Subset(t, methods, Methods(LevelLow))
		assert.Subset(t, methods, prev)
		prev = methods
	}

	assert.Len(t, Methods(LevelLow), 2)
	assert.Len(t, Methods(LevelMedium), 3)
	assert.Len(t, Methods(LevelHigh), 4)
	assert.Len(t, Methods(LevelMaximum), 5)
}

func TestApplyCoversEnabledMethodsExactly(t *testing.T) {
	t.Parallel()

	for _, level := range []Level{LevelLow, LevelMedium, LevelHigh, LevelMaximum} {
		c := testController(0.5)
		outcomes, err := c.Apply(level, testSample(), threat.LevelHigh)
		require.NoError(t, err)

		enabled := Methods(level)
		assert.Len(t, outcomes, len(enabled))
		for _, method := range enabled {
			outcome, ok := outcomes[method]
			require.Truef(t, ok, "missing outcome for %s", method)
			assert.Equal(t, method, outcome.Method)
		}
	}
}

func TestApplyMaximum(t *testing.T) {
	t.Parallel()

	c := testController(0.1, 0.3, 0.5, 0.7, 0.9)
	outcomes, err := c.Apply(LevelMaximum, testSample(), threat.LevelCritical)
	require.NoError(t, err)

	require.Len(t, outcomes, 5)
	for _, method := range []Method{
		MethodDetection, MethodSpoofing, MethodJamming,
		MethodFrequencyHopping, MethodEncryption,
	} {
		assert.Contains(t, outcomes, method)
	}

	// Spoofing always succeeds and names a decoy city.
	spoof := outcomes[MethodSpoofing]
	assert.True(t, spoof.Success)
	require.NotNil(t, spoof.Decoy)
	assert.NotEmpty(t, spoof.Decoy.Name)
	assert.Greater(t, spoof.OffsetKm, 0.0)

	// Jamming success tracks the drawn power.
	jam := outcomes[MethodJamming]
	assert.Equal(t, jam.PowerLevel > jamSuccessPower, jam.Success)
	assert.GreaterOrEqual(t, jam.PowerLevel, minJamPower)
	assert.Less(t, jam.PowerLevel, maxJamPower)

	// Hopping always performs a hop within the configured bounds.
	hop := outcomes[MethodFrequencyHopping]
	assert.True(t, hop.Success)
	assert.NotZero(t, hop.FrequencyMHz)
	assert.GreaterOrEqual(t, hop.HopInterval, minHopInterval)
	assert.Less(t, hop.HopInterval, maxHopInterval)

	// Encryption reports the key fingerprint, never the key.
	enc := outcomes[MethodEncryption]
	assert.True(t, enc.Success)
	assert.NotEmpty(t, enc.KeyFingerprint)
	assert.Equal(t, "AES-256", enc.Algorithm)
}

func TestApplyJammingFailureIsIndependent(t *testing.T) {
	t.Parallel()

	// Fraction 0.05 puts the jamming power at ~0.6175, below the success
	// threshold. All other methods must still report their own outcomes.
	c := testController(0.05)
	outcomes, err := c.Apply(LevelMaximum, testSample(), threat.LevelHigh)
	require.NoError(t, err)

	assert.False(t, outcomes[MethodJamming].Success)
	assert.True(t, outcomes[MethodSpoofing].Success)
	assert.True(t, outcomes[MethodFrequencyHopping].Success)
	assert.True(t, outcomes[MethodEncryption].Success)
	assert.True(t, outcomes[MethodDetection].Success)
}

func TestApplySourceFailure(t *testing.T) {
	t.Parallel()

	c := NewController(failingSource{}, 0, 0)
	_, err := c.Apply(LevelMaximum, testSample(), threat.LevelHigh)
	require.Error(t, err)
}

type failingSource struct{}

func (failingSource) Uniform(min, max float64) (float64, error) {
	return 0, errors.New("source broken")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"low", "medium", "high", "maximum"} {
		level, err := ParseLevel(name)
		require.NoError(t, err)
		assert.Equal(t, name, level.String())
	}

	_, err := ParseLevel("extreme")
	require.ErrorIs(t, err, threat.ErrInvalidConfig)
}
