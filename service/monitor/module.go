package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tevino/abool"

	"github.com/safing/trackguard/service/defense"
	"github.com/safing/trackguard/service/events"
	"github.com/safing/trackguard/service/mgr"
	"github.com/safing/trackguard/service/spectrum"
	"github.com/safing/trackguard/service/threat"
)

// Monitoring errors.
var (
	// ErrAlreadyRunning and ErrAlreadyStopped report redundant start/stop
	// calls. They are benign: the call is a no-op and the state is unchanged.
	ErrAlreadyRunning = errors.New("monitoring is already running")
	ErrAlreadyStopped = errors.New("monitoring is already stopped")

	// ErrRandomSource reports that the underlying randomness primitive could
	// not be used. This is fatal for the running cycle and stops the loop.
	ErrRandomSource = errors.New("random source unavailable")
)

// Config holds the monitor defaults.
type Config struct {
	Level     defense.Level
	Mode      threat.Mode
	Intervals map[threat.Mode]time.Duration

	ReferenceLat float64
	ReferenceLon float64

	AutoStart bool
}

// DefaultIntervals returns the reference cycle cadence per detection mode.
func DefaultIntervals() map[threat.Mode]time.Duration {
	return map[threat.Mode]time.Duration{
		threat.ModePassive:    2 * time.Second,
		threat.ModeActive:     1 * time.Second,
		threat.ModeAggressive: 500 * time.Millisecond,
	}
}

// Monitor owns the monitoring state and drives the periodic cycle.
type Monitor struct {
	mgr *mgr.Manager

	generator  *spectrum.Generator
	controller *defense.Controller
	intervals  map[threat.Mode]time.Duration
	autoStart  bool

	running *abool.AtomicBool

	// loopLock serializes StartMonitoring/StopMonitoring.
	loopLock   sync.Mutex
	loopCancel context.CancelFunc
	loopDone   chan struct{}

	// lock guards the mutable state record below. The monitoring loop is the
	// only writer during cycles, configuration calls are applied between
	// cycles only.
	lock              sync.Mutex
	level             defense.Level
	mode              threat.Mode
	signalsDetected   uint64
	currentThreat     threat.Level
	lastEffectiveness map[defense.Method]float64
	jammingActive     bool

	snapshot atomic.Pointer[Status]

	// EventFeed publishes the structured events of the monitoring core.
	EventFeed *mgr.EventMgr[events.Event]

	instance instance
}

// Start starts the monitor module.
func (m *Monitor) Start(mg *mgr.Manager) error {
	m.mgr = mg
	m.EventFeed = mgr.NewEventMgr[events.Event]("monitor event", mg)

	m.lock.Lock()
	m.publishSnapshot()
	m.lock.Unlock()

	if m.autoStart {
		return m.StartMonitoring()
	}
	return nil
}

// Stop stops the monitor module.
func (m *Monitor) Stop(mg *mgr.Manager) error {
	err := m.StopMonitoring()
	if errors.Is(err, ErrAlreadyStopped) {
		return nil
	}
	return err
}

// StartMonitoring begins periodic monitoring cycles.
// Calling it while monitoring is already running is a no-op: it emits a
// warning event and returns ErrAlreadyRunning without touching any state.
func (m *Monitor) StartMonitoring() error {
	m.loopLock.Lock()
	defer m.loopLock.Unlock()

	if !m.running.SetToIf(false, true) {
		m.mgr.Warn("monitoring already running")
		m.EventFeed.Submit(events.New(events.KindStatus, events.SeverityWarning, statusPayload{
			Message: "start ignored: monitoring already running",
		}))
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(m.mgr.Ctx())
	done := make(chan struct{})
	m.loopCancel = cancel
	m.loopDone = done

	m.mgr.Go("monitoring loop", func(w *mgr.WorkerCtx) error {
		defer close(done)
		return m.loop(w, ctx)
	})

	m.lock.Lock()
	m.publishSnapshot()
	m.lock.Unlock()

	m.mgr.Info("monitoring started", "mode", m.Mode(), "level", m.Level())
	m.EventFeed.Submit(events.New(events.KindStatus, events.SeverityInfo, statusPayload{
		Message: "monitoring started",
		Status:  m.Status(),
	}))
	return nil
}

// StopMonitoring stops the periodic cycles.
// It returns once no further cycle will begin, waiting for at most one
// in-flight cycle to complete. Counters are left intact for inspection, use
// Reset for a full teardown. Calling it while stopped is a no-op: it emits a
// warning event and returns ErrAlreadyStopped.
func (m *Monitor) StopMonitoring() error {
	m.loopLock.Lock()
	defer m.loopLock.Unlock()

	if !m.running.SetToIf(true, false) {
		m.mgr.Warn("monitoring already stopped")
		m.EventFeed.Submit(events.New(events.KindStatus, events.SeverityWarning, statusPayload{
			Message: "stop ignored: monitoring already stopped",
		}))
		return ErrAlreadyStopped
	}

	m.loopCancel()
	<-m.loopDone

	m.lock.Lock()
	m.publishSnapshot()
	m.lock.Unlock()

	m.mgr.Info("monitoring stopped")
	m.EventFeed.Submit(events.New(events.KindStatus, events.SeverityInfo, statusPayload{
		Message: "monitoring stopped",
		Status:  m.Status(),
	}))
	return nil
}

// SetProtectionLevel switches the protection tier.
// The enabled method set is derived from the new level atomically, a running
// cycle still finishes with the previous level. Invalid names are rejected
// with an error and leave the state unchanged.
func (m *Monitor) SetProtectionLevel(name string) error {
	level, err := defense.ParseLevel(name)
	if err != nil {
		return err
	}

	m.lock.Lock()
	m.level = level
	m.publishSnapshot()
	m.lock.Unlock()

	m.mgr.Info("protection level set", "level", level)
	m.EventFeed.Submit(events.New(events.KindStatus, events.SeverityInfo, statusPayload{
		Message: "protection level set to " + level.String(),
		Status:  m.Status(),
	}))
	return nil
}

// SetDetectionMode switches the detection sensitivity and cycle cadence.
// The new cadence takes effect with the next cycle. Invalid names are
// rejected with an error and leave the state unchanged.
func (m *Monitor) SetDetectionMode(name string) error {
	mode, err := threat.ParseMode(name)
	if err != nil {
		return err
	}

	m.lock.Lock()
	m.mode = mode
	m.publishSnapshot()
	m.lock.Unlock()

	m.mgr.Info("detection mode set", "mode", mode)
	m.EventFeed.Submit(events.New(events.KindStatus, events.SeverityInfo, statusPayload{
		Message: "detection mode set to " + mode.String(),
		Status:  m.Status(),
	}))
	return nil
}

// Reset clears the accumulated counters and threat state.
func (m *Monitor) Reset() {
	m.lock.Lock()
	m.signalsDetected = 0
	m.currentThreat = threat.LevelNone
	m.lastEffectiveness = make(map[defense.Method]float64)
	m.jammingActive = false
	m.publishSnapshot()
	m.lock.Unlock()

	m.mgr.Info("state reset")
}

// IsRunning reports whether the monitoring loop is active.
func (m *Monitor) IsRunning() bool {
	return m.running.IsSet()
}

// Level returns the current protection level.
func (m *Monitor) Level() defense.Level {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.level
}

// Mode returns the current detection mode.
func (m *Monitor) Mode() threat.Mode {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.mode
}

func (m *Monitor) interval(mode threat.Mode) time.Duration {
	if interval, ok := m.intervals[mode]; ok {
		return interval
	}
	return DefaultIntervals()[mode]
}

// statusPayload is the payload of status-kind events.
type statusPayload struct {
	Message string `json:"message"`
	Status  Status `json:"status,omitzero"`
}

var (
	module     *Monitor
	shimLoaded atomic.Bool
)

// New returns a new monitor module.
func New(instance instance, cfg Config) (*Monitor, error) {
	if !shimLoaded.CompareAndSwap(false, true) {
		return nil, errors.New("only one instance allowed")
	}

	if cfg.Intervals == nil {
		cfg.Intervals = DefaultIntervals()
	}
	source := spectrum.DefaultSource()

	module = &Monitor{
		generator:         spectrum.NewGenerator(source),
		controller:        defense.NewController(source, cfg.ReferenceLat, cfg.ReferenceLon),
		intervals:         cfg.Intervals,
		autoStart:         cfg.AutoStart,
		running:           abool.New(),
		level:             cfg.Level,
		mode:              cfg.Mode,
		lastEffectiveness: make(map[defense.Method]float64),
		instance:          instance,
	}
	return module, nil
}

type instance interface{}
