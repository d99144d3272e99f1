package threat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/trackguard/service/spectrum"
)

func TestAssessReferenceVectors(t *testing.T) {
	t.Parallel()

	// Strong, clean signal: score 2.95 >= 2.5, quality >= 0.9.
	sample := spectrum.Sample{Strength: 1.0, Quality: 0.95}
	assert.Equal(t, LevelCritical, Assess(sample, ModeActive))

	// Weak signal: score 0.9 < 1.0.
	sample = spectrum.Sample{Strength: 0.2, Quality: 0.5}
	assert.Equal(t, LevelNone, Assess(sample, ModeActive))
}

func TestAssessBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		strength float64
		quality  float64
		want     Level
	}{
		{"critical score but low quality", 1.0, 0.85, LevelHigh},
		{"high score and quality", 0.6, 0.8, LevelHigh},
		{"high score but low quality", 0.65, 0.7, LevelMedium},
		{"medium", 0.5, 0.5, LevelMedium},
		{"low", 0.25, 0.6, LevelLow},
		{"exactly low threshold", 0.25, 0.5, LevelLow},
		{"below low", 0.2, 0.55, LevelNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sample := spectrum.Sample{Strength: tt.strength, Quality: tt.quality}
			assert.Equal(t, tt.want, Assess(sample, ModeActive))
		})
	}
}

func TestAssessModeScaling(t *testing.T) {
	t.Parallel()

	// Score 1.05: low under active, none under passive (threshold 1.15),
	// still low under aggressive (threshold 0.85).
	sample := spectrum.Sample{Strength: 0.25, Quality: 0.55}
	assert.Equal(t, LevelLow, Assess(sample, ModeActive))
	assert.Equal(t, LevelNone, Assess(sample, ModePassive))
	assert.Equal(t, LevelLow, Assess(sample, ModeAggressive))

	// Score 1.45: medium only under aggressive (1.5*0.85 = 1.275).
	sample = spectrum.Sample{Strength: 0.4, Quality: 0.65}
	assert.Equal(t, LevelLow, Assess(sample, ModeActive))
	assert.Equal(t, LevelMedium, Assess(sample, ModeAggressive))
}

func TestAssessDeterministicAndTotal(t *testing.T) {
	t.Parallel()

	// Sweep the full sample space. Every input must yield a defined level,
	// and the same input must always yield the same level.
	for strength := spectrum.MinStrength; strength <= spectrum.MaxStrength; strength += 0.05 {
		for quality := spectrum.MinQuality; quality <= spectrum.MaxQuality; quality += 0.05 {
			sample := spectrum.Sample{Strength: strength, Quality: quality}
			for _, mode := range []Mode{ModePassive, ModeActive, ModeAggressive} {
				first := Assess(sample, mode)
				assert.LessOrEqual(t, first, LevelCritical)
				assert.Equal(t, first, Assess(sample, mode))
			}
		}
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"passive", "active", "aggressive"} {
		mode, err := ParseMode(name)
		require.NoError(t, err)
		assert.Equal(t, name, mode.String())
	}

	_, err := ParseMode("turbo")
	require.ErrorIs(t, err, ErrInvalidConfig)
}
