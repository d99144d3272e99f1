package threat

import "github.com/safing/trackguard/service/spectrum"

// Reference score thresholds with the active detection mode.
// Other modes scale these via Mode.ThresholdScale.
const (
	criticalScore = 2.5
	highScore     = 2.0
	mediumScore   = 1.5
	lowScore      = 1.0

	// Quality gates are fixed and not scaled: a noisy signal stays a noisy
	// signal, regardless of how eagerly we are scanning.
	criticalQuality = 0.9
	highQuality     = 0.8
)

// Assess derives the threat level of a signal sample.
// It is a pure function: the same sample and mode always yield the same level.
func Assess(sample spectrum.Sample, mode Mode) Level {
	score := sample.Strength*2 + sample.Quality
	scale := mode.ThresholdScale()

	switch {
	case score >= criticalScore*scale && sample.Quality >= criticalQuality:
		return LevelCritical
	case score >= highScore*scale && sample.Quality >= highQuality:
		return LevelHigh
	case score >= mediumScore*scale:
		return LevelMedium
	case score >= lowScore*scale:
		return LevelLow
	default:
		return LevelNone
	}
}
