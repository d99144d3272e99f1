package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tevino/abool"

	"github.com/safing/trackguard/base/rng"
	"github.com/safing/trackguard/service/defense"
	"github.com/safing/trackguard/service/events"
	"github.com/safing/trackguard/service/mgr"
	"github.com/safing/trackguard/service/spectrum"
	"github.com/safing/trackguard/service/threat"
)

func init() {
	// The controller draws encryption keys from the global rng.
	r, err := rng.New(struct{}{})
	if err != nil {
		panic(err)
	}
	if err := r.Start(mgr.New("rng test")); err != nil {
		panic(err)
	}
}

func newTestMonitor(t *testing.T, fractions ...float64) *Monitor {
	t.Helper()

	if len(fractions) == 0 {
		fractions = []float64{0.1, 0.3, 0.5, 0.7, 0.9}
	}
	source := &spectrum.SequenceSource{Fractions: fractions}

	m := &Monitor{
		generator:         spectrum.NewGenerator(source),
		controller:        defense.NewController(source, 52.5200, 13.4050),
		intervals:         DefaultIntervals(),
		running:           abool.New(),
		level:             defense.LevelMedium,
		mode:              threat.ModeActive,
		lastEffectiveness: make(map[defense.Method]float64),
	}
	require.NoError(t, m.Start(mgr.New("test monitor")))
	t.Cleanup(func() {
		_ = m.Stop(nil)
	})
	return m
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t)

	status := m.Status()
	assert.False(t, status.Running)
	assert.Equal(t, defense.LevelMedium, status.ProtectionLevel)
	assert.Equal(t, threat.ModeActive, status.DetectionMode)
	assert.Zero(t, status.SignalsDetected)
	assert.Equal(t, defense.Methods(defense.LevelMedium), status.ActiveMethods)
}

func TestStartStopIdempotence(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t)

	sub := m.EventFeed.Subscribe("test", 16)
	defer sub.Cancel()

	require.NoError(t, m.StartMonitoring())
	statusAfterFirst := m.Status()
	assert.True(t, statusAfterFirst.Running)

	// A second start is a no-op reported as a warning event.
	err := m.StartMonitoring()
	require.ErrorIs(t, err, ErrAlreadyRunning)
	statusAfterSecond := m.Status()
	assert.Equal(t, statusAfterFirst.Running, statusAfterSecond.Running)
	assert.Equal(t, statusAfterFirst.ProtectionLevel, statusAfterSecond.ProtectionLevel)
	assert.Equal(t, statusAfterFirst.DetectionMode, statusAfterSecond.DetectionMode)

	require.NoError(t, m.StopMonitoring())
	assert.False(t, m.Status().Running)

	err = m.StopMonitoring()
	require.ErrorIs(t, err, ErrAlreadyStopped)

	// The redundant calls produced warning events.
	warnings := 0
	for {
		select {
		case event := <-sub.Events():
			if event.Severity == events.SeverityWarning {
				warnings++
			}
		default:
			assert.Equal(t, 2, warnings)
			return
		}
	}
}

func TestStopPreservesCounters(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t)

	for range 5 {
		require.NoError(t, m.RunCycle())
	}
	before := m.Status()
	assert.EqualValues(t, 5, before.SignalsDetected)

	// Stop monitoring must not reset the counters.
	require.NoError(t, m.StartMonitoring())
	require.NoError(t, m.StopMonitoring())

	after := m.Status()
	assert.False(t, after.Running)
	assert.GreaterOrEqual(t, after.SignalsDetected, before.SignalsDetected)

	// A full reset clears them.
	m.Reset()
	assert.Zero(t, m.Status().SignalsDetected)
	assert.Equal(t, threat.LevelNone, m.Status().CurrentThreatLevel)
}

func TestRunCycleUpdatesState(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, 0.9)
	require.NoError(t, m.SetProtectionLevel("maximum"))

	sub := m.EventFeed.Subscribe("test", 16)
	defer sub.Cancel()

	require.NoError(t, m.RunCycle())

	status := m.Status()
	assert.EqualValues(t, 1, status.SignalsDetected)
	assert.Len(t, status.LastEffectiveness, 5)
	assert.Contains(t, status.LastEffectiveness, defense.MethodJamming)

	// One detection and one protection event per cycle.
	kinds := map[events.Kind]int{}
	for range 2 {
		select {
		case event := <-sub.Events():
			kinds[event.Kind]++
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for cycle events")
		}
	}
	assert.Equal(t, 1, kinds[events.KindDetection])
	assert.Equal(t, 1, kinds[events.KindProtection])
}

func TestSnapshotIsolation(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t)
	require.NoError(t, m.RunCycle())

	status := m.Status()
	status.LastEffectiveness[defense.MethodJamming] = 42
	status.ActiveMethods[0] = defense.MethodEncryption

	// Mutating a returned snapshot must not leak into the live state.
	fresh := m.Status()
	assert.NotEqual(t, 42.0, fresh.LastEffectiveness[defense.MethodJamming])
	assert.Equal(t, defense.MethodDetection, fresh.ActiveMethods[0])
}

func TestSetProtectionLevel(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t)

	require.NoError(t, m.SetProtectionLevel("maximum"))
	status := m.Status()
	assert.Equal(t, defense.LevelMaximum, status.ProtectionLevel)
	assert.Len(t, status.ActiveMethods, 5)

	// Invalid values are rejected and leave the state unchanged.
	err := m.SetProtectionLevel("extreme")
	require.ErrorIs(t, err, threat.ErrInvalidConfig)
	assert.Equal(t, defense.LevelMaximum, m.Status().ProtectionLevel)
}

func TestSetDetectionMode(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t)

	require.NoError(t, m.SetDetectionMode("aggressive"))
	assert.Equal(t, threat.ModeAggressive, m.Status().DetectionMode)

	err := m.SetDetectionMode("turbo")
	require.ErrorIs(t, err, threat.ErrInvalidConfig)
	assert.Equal(t, threat.ModeAggressive, m.Status().DetectionMode)
}

func TestLoopStopsOnRandomSourceFailure(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t)
	m.generator = spectrum.NewGenerator(failingSource{})
	m.intervals = map[threat.Mode]time.Duration{
		threat.ModeActive: 10 * time.Millisecond,
	}

	sub := m.EventFeed.Subscribe("test", 16)
	defer sub.Cancel()

	require.NoError(t, m.StartMonitoring())

	// The loop must stop itself and emit an error event.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-sub.Events():
			if event.Kind == events.KindError {
				for range 100 {
					if !m.IsRunning() {
						return
					}
					time.Sleep(10 * time.Millisecond)
				}
				t.Fatal("loop still running after random source failure")
			}
		case <-deadline:
			t.Fatal("timed out waiting for error event")
		}
	}
}

type failingSource struct{}

func (failingSource) Uniform(min, max float64) (float64, error) {
	return 0, rng.ErrNotReady
}
