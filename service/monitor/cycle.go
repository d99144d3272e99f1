package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/safing/trackguard/service/defense"
	"github.com/safing/trackguard/service/events"
	"github.com/safing/trackguard/service/mgr"
	"github.com/safing/trackguard/service/spectrum"
	"github.com/safing/trackguard/service/threat"
)

var cycleCount = metrics.NewCounter("trackguard_monitor_cycles_total")

// loop drives monitoring cycles until the loop context is canceled.
// Cycles run strictly sequentially: a cycle always completes before the
// ticker is consulted again, so cancellation waits for at most one cycle.
func (m *Monitor) loop(w *mgr.WorkerCtx, ctx context.Context) error {
	ticker := time.NewTicker(m.interval(m.Mode()))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.Done():
			return nil
		case <-ticker.C:
		}

		if err := m.RunCycle(); err != nil {
			// A dead randomness source cannot recover on its own.
			// Report and stop the loop.
			w.Error("monitoring cycle failed", "err", err)
			m.EventFeed.Submit(events.New(events.KindError, events.SeverityError, errorPayload{
				Message: "monitoring cycle aborted, stopping loop",
				Error:   err.Error(),
			}))
			m.running.UnSet()
			m.lock.Lock()
			m.publishSnapshot()
			m.lock.Unlock()
			return nil
		}

		// Pick up detection mode changes between cycles.
		ticker.Reset(m.interval(m.Mode()))
	}
}

// RunCycle executes one full monitoring cycle:
// generate a sample, assess the threat, apply the enabled countermeasures,
// update the state and emit events. It is called by the monitoring loop and
// may also be called directly while the loop is stopped, for scripted runs.
func (m *Monitor) RunCycle() error {
	// Configuration is read once per cycle, changes apply between cycles.
	m.lock.Lock()
	level, mode := m.level, m.mode
	m.lock.Unlock()

	sample, err := m.generator.Generate()
	if err != nil {
		return fmt.Errorf("%w: generate sample: %s", ErrRandomSource, err)
	}

	threatLevel := threat.Assess(sample, mode)

	outcomes, err := m.controller.Apply(level, sample, threatLevel)
	if err != nil {
		return fmt.Errorf("%w: apply protection: %s", ErrRandomSource, err)
	}

	// Update the state record.
	m.lock.Lock()
	m.signalsDetected++
	m.currentThreat = threatLevel
	for method, outcome := range outcomes {
		m.lastEffectiveness[method] = outcome.Effectiveness
	}
	if jam, ok := outcomes[defense.MethodJamming]; ok {
		m.jammingActive = jam.Success
	}
	m.publishSnapshot()
	m.lock.Unlock()

	m.countCycle(threatLevel, outcomes)

	m.EventFeed.Submit(events.New(events.KindDetection, events.SeverityInfo, detectionPayload{
		Sample:      sample,
		ThreatLevel: threatLevel,
		Detectable:  sample.Detectable(),
	}))
	m.EventFeed.Submit(events.New(events.KindProtection, events.SeverityInfo, protectionPayload{
		ProtectionLevel: level,
		ThreatLevel:     threatLevel,
		Outcomes:        outcomes,
	}))

	m.mgr.Debug(
		"cycle complete",
		"band", sample.Band,
		"strength", sample.Strength,
		"threat", threatLevel,
		"methods", len(outcomes),
	)
	return nil
}

func (m *Monitor) countCycle(threatLevel threat.Level, outcomes map[defense.Method]defense.Outcome) {
	cycleCount.Inc()
	metrics.GetOrCreateCounter(
		fmt.Sprintf(`trackguard_threat_assessments_total{level=%q}`, threatLevel),
	).Inc()
	for method, outcome := range outcomes {
		metrics.GetOrCreateCounter(
			fmt.Sprintf(`trackguard_method_runs_total{method=%q,success="%t"}`, method, outcome.Success),
		).Inc()
	}
}

// detectionPayload is the payload of detection-kind events.
type detectionPayload struct {
	Sample      spectrum.Sample `json:"sample"`
	ThreatLevel threat.Level    `json:"threat_level"`
	Detectable  bool            `json:"detectable"`
}

// protectionPayload is the payload of protection-kind events.
type protectionPayload struct {
	ProtectionLevel defense.Level                      `json:"protection_level"`
	ThreatLevel     threat.Level                       `json:"threat_level"`
	Outcomes        map[defense.Method]defense.Outcome `json:"outcomes"`
}

// errorPayload is the payload of error-kind events.
type errorPayload struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
